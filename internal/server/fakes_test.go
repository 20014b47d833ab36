package server

import (
	"context"
	"strings"
	"time"

	"assettrack/pkg/types"
)

// fakeStore implements every store interface the handlers use. Each call
// is recorded so tests can assert what the handler passed down.
type fakeStore struct {
	err error

	categories []*types.Category
	employees  map[string]*types.Employee // by email
	detail     *types.RequestDetail
	result     *types.CreateRequestResult

	lastViewer      types.Viewer
	lastPage        types.PageQuery
	lastRequestedBy string
	lastBegin       types.BeginAssignment
	lastEnd         *time.Time
	lastStatus      string
	lastPath        []string
	calls           []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		employees: map[string]*types.Employee{},
		result:    &types.CreateRequestResult{},
	}
}

func (f *fakeStore) stores() Stores {
	return Stores{
		Categories:  f,
		Accessories: f,
		Items:       f,
		Ledger:      f,
		Licenses:    f,
		Employees:   f,
		Requests:    f,
	}
}

func (f *fakeStore) called(name string) error {
	f.calls = append(f.calls, name)
	return f.err
}

func (f *fakeStore) ListCategories(_ context.Context, pq types.PageQuery) (*types.Page[*types.Category], error) {
	f.lastPage = pq
	if err := f.called("ListCategories"); err != nil {
		return nil, err
	}
	pq = pq.Normalize()
	return types.NewPage(f.categories, len(f.categories), pq), nil
}

func (f *fakeStore) CreateCategory(_ context.Context, name, slug string) (*types.Category, error) {
	if err := f.called("CreateCategory"); err != nil {
		return nil, err
	}
	return &types.Category{ID: "c1", Name: name, Slug: slug}, nil
}

func (f *fakeStore) DeleteCategory(_ context.Context, slug string) error {
	f.lastPath = []string{slug}
	return f.called("DeleteCategory")
}

func (f *fakeStore) Stats(_ context.Context, viewer types.Viewer) ([]*types.CategoryStat, error) {
	f.lastViewer = viewer
	if err := f.called("Stats"); err != nil {
		return nil, err
	}
	return []*types.CategoryStat{{Slug: "laptop", Name: "Laptops", Count: 2}}, nil
}

func (f *fakeStore) AccessoryTypes(context.Context, string) ([]*types.AccessoryType, error) {
	return []*types.AccessoryType{}, f.called("AccessoryTypes")
}

func (f *fakeStore) CreateAccessoryType(_ context.Context, _, name string) (*types.AccessoryType, error) {
	if err := f.called("CreateAccessoryType"); err != nil {
		return nil, err
	}
	return &types.AccessoryType{ID: "a1", Name: name}, nil
}

func (f *fakeStore) DeleteAccessoryType(_ context.Context, slug, id string) error {
	f.lastPath = []string{slug, id}
	return f.called("DeleteAccessoryType")
}

func (f *fakeStore) ListItems(_ context.Context, _ string, viewer types.Viewer, pq types.PageQuery) (*types.Page[*types.ItemView], error) {
	f.lastViewer = viewer
	f.lastPage = pq
	if err := f.called("ListItems"); err != nil {
		return nil, err
	}
	return types.NewPage[*types.ItemView](nil, 0, pq.Normalize()), nil
}

func (f *fakeStore) ItemDetail(_ context.Context, _, id string, viewer types.Viewer, pq types.PageQuery) (*types.ItemDetail, error) {
	f.lastViewer = viewer
	f.lastPage = pq
	if err := f.called("ItemDetail"); err != nil {
		return nil, err
	}
	return &types.ItemDetail{Item: &types.ItemView{Item: types.Item{ID: id}}, History: []types.AssignmentView{}}, nil
}

func (f *fakeStore) CreateItem(_ context.Context, _ string, in types.ItemInput) (*types.Item, error) {
	if err := f.called("CreateItem"); err != nil {
		return nil, err
	}
	return &types.Item{ID: "i1", SerialNumber: in.SerialNumber}, nil
}

func (f *fakeStore) UpdateItem(context.Context, string, string, types.ItemInput) error {
	return f.called("UpdateItem")
}

func (f *fakeStore) Begin(_ context.Context, slug, itemID string, in types.BeginAssignment) (*types.Assignment, error) {
	f.lastBegin = in
	f.lastPath = []string{slug, itemID}
	if err := f.called("Begin"); err != nil {
		return nil, err
	}
	return &types.Assignment{ID: "as1", ItemID: itemID, EmployeeID: &in.EmployeeID, StartDate: in.StartDate}, nil
}

func (f *fakeStore) End(_ context.Context, slug, itemID string, endDate *time.Time) error {
	f.lastEnd = endDate
	f.lastPath = []string{slug, itemID}
	return f.called("End")
}

func (f *fakeStore) LicenseTypes(context.Context) ([]*types.LicenseType, error) {
	return []*types.LicenseType{}, f.called("LicenseTypes")
}

func (f *fakeStore) CreateLicenseType(_ context.Context, name string) (*types.LicenseType, error) {
	if err := f.called("CreateLicenseType"); err != nil {
		return nil, err
	}
	return &types.LicenseType{ID: "l1", Name: name}, nil
}

func (f *fakeStore) Grants(context.Context, string) ([]*types.LicenseType, error) {
	return []*types.LicenseType{{ID: "l1", Name: "Office"}}, f.called("Grants")
}

func (f *fakeStore) Grant(context.Context, string, types.LicenseInput) error {
	return f.called("Grant")
}

func (f *fakeStore) Revoke(_ context.Context, employeeID, licenseTypeID string) error {
	f.lastPath = []string{employeeID, licenseTypeID}
	return f.called("Revoke")
}

func (f *fakeStore) ByEmployeeID(_ context.Context, employeeID string) (*types.Employee, error) {
	if err := f.called("ByEmployeeID"); err != nil {
		return nil, err
	}
	for _, employee := range f.employees {
		if employee.EmployeeID == employeeID {
			return employee, nil
		}
	}
	return nil, types.ErrEmployeeNotFound
}

func (f *fakeStore) ByEmail(_ context.Context, email string) (*types.Employee, error) {
	employee, ok := f.employees[strings.ToLower(email)]
	if !ok {
		return nil, types.ErrEmployeeNotFound
	}
	return employee, nil
}

func (f *fakeStore) Profile(_ context.Context, employee *types.Employee, pq types.PageQuery) (*types.Profile, error) {
	f.lastPage = pq
	if err := f.called("Profile"); err != nil {
		return nil, err
	}
	return &types.Profile{User: employee, Items: types.NewPage[*types.HeldItem](nil, 0, pq.Normalize())}, nil
}

func (f *fakeStore) CreateRequests(_ context.Context, requestedBy string, _ *types.RequestPayload) (*types.CreateRequestResult, error) {
	f.lastRequestedBy = requestedBy
	if err := f.called("CreateRequests"); err != nil {
		return nil, err
	}
	return f.result, nil
}

func (f *fakeStore) SetStatus(_ context.Context, requestID, status string) error {
	f.lastStatus = status
	f.lastPath = []string{requestID}
	return f.called("SetStatus")
}

func (f *fakeStore) PendingCount(context.Context) (int, error) {
	return 3, f.called("PendingCount")
}

func (f *fakeStore) ListRequests(_ context.Context, filter types.RequestFilter, requestedBy string) (*types.Page[*types.RequestSummary], error) {
	f.lastRequestedBy = requestedBy
	f.lastStatus = filter.Status
	if err := f.called("ListRequests"); err != nil {
		return nil, err
	}
	return types.NewPage[*types.RequestSummary](nil, 0, filter.PageQuery.Normalize()), nil
}

func (f *fakeStore) RequestDetail(_ context.Context, requestID string) (*types.RequestDetail, error) {
	f.lastPath = []string{requestID}
	if err := f.called("RequestDetail"); err != nil {
		return nil, err
	}
	if f.detail == nil {
		return nil, types.ErrRequestNotFound
	}
	return f.detail, nil
}
