package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"assettrack/internal/db"
	"assettrack/internal/utils"
	"assettrack/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	requestTableName     = "requests"
	requestItemTableName = "request_items"
)

var (
	requestColumns     = utils.StructTagValues(types.Request{})
	requestItemColumns = utils.StructTagValues(types.RequestItem{})
)

// requestDraft is one employee's share of a validated submission.
type requestDraft struct {
	profile types.EmployeeProfile
	notes   string
	items   []requestItemDraft
}

type requestItemDraft struct {
	slug        string
	startDate   *time.Time
	endDate     *time.Time
	accessories []types.AccessoryInput
	licenses    []types.LicenseInput
}

// legacyDraft is the single-category submission form.
type legacyDraft struct {
	employeeID  string
	item        requestItemDraft
	notes       string
	accessories []types.AccessoryInput
	licenses    []types.LicenseInput
}

type RequestRepository struct {
	pool *pgxpool.Pool
}

func NewRequestRepository(pool *pgxpool.Pool) *RequestRepository {
	return &RequestRepository{pool: pool}
}

// CreateRequests records a submission. Every employee in the batch gets one
// request with one request item per requested item; unknown employees are
// created from the supplied profile. The whole submission commits or
// nothing does.
func (r *RequestRepository) CreateRequests(ctx context.Context, requestedBy string, payload *types.RequestPayload) (*types.CreateRequestResult, error) {
	drafts, legacy, err := normalizeRequest(payload)
	if err != nil {
		return nil, err
	}

	if legacy != nil {
		created, err := r.createLegacy(ctx, requestedBy, legacy)
		if err != nil {
			return nil, err
		}
		return &types.CreateRequestResult{Created: []types.CreatedRequest{*created}, Legacy: true}, nil
	}

	result := &types.CreateRequestResult{Created: make([]types.CreatedRequest, 0, len(drafts))}
	err = db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		categories := make(map[string]string)
		for _, draft := range drafts {
			if _, err := ensureEmployee(ctx, tx, draft.profile); err != nil {
				return err
			}

			first := draft.items[0]
			requestID, err := insertRequest(ctx, tx, requestedBy, draft.profile.EmployeeID, first, draft.notes)
			if err != nil {
				return err
			}

			if err := createRequestItems(ctx, tx, categories, requestID, draft.items); err != nil {
				return err
			}

			result.Created = append(result.Created, types.CreatedRequest{
				RequestID:  requestID,
				EmployeeID: draft.profile.EmployeeID,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *RequestRepository) createLegacy(ctx context.Context, requestedBy string, draft *legacyDraft) (*types.CreatedRequest, error) {
	var created *types.CreatedRequest
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		exists, err := employeeExists(ctx, tx, draft.employeeID)
		if err != nil {
			return err
		}
		if !exists {
			return types.ErrEmployeeNotFound
		}

		requestID, err := insertRequest(ctx, tx, requestedBy, draft.employeeID, draft.item, draft.notes)
		if err != nil {
			return err
		}

		if len(draft.accessories) > 0 {
			category, err := categoryBySlug(ctx, tx, draft.item.slug, false)
			if err != nil {
				return err
			}
			if err := attachAccessories(ctx, tx, requestAccessoryLink, requestID, category.ID, draft.accessories); err != nil {
				return err
			}
		}

		if err := attachLicenses(ctx, tx, requestLicenseLink, requestID, draft.licenses); err != nil {
			return err
		}

		created = &types.CreatedRequest{RequestID: requestID, EmployeeID: draft.employeeID}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// insertRequest writes the request row. The category and dates of the first
// item are copied onto it for clients that read requests as single-category.
func insertRequest(ctx context.Context, tx pgx.Tx, requestedBy, employeeID string, first requestItemDraft, notes string) (string, error) {
	now := time.Now()
	request := &types.Request{
		ID:           utils.NanoID(),
		RequestedBy:  requestedBy,
		EmployeeID:   employeeID,
		CategorySlug: first.slug,
		StartDate:    first.startDate,
		EndDate:      first.endDate,
		Status:       types.RequestStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if notes != "" {
		request.Notes = utils.StringPtr(notes)
	}

	query, args, err := psql().
		Insert(requestTableName).
		SetMap(utils.StructToMap(request)).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("failed to generate insert request query: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return "", fmt.Errorf("failed to insert request: %w", err)
	}

	return request.ID, nil
}

// createRequestItems writes the items of one request with their accessory
// and license links. categories caches slug to category id for the batch.
func createRequestItems(ctx context.Context, tx pgx.Tx, categories map[string]string, requestID string, drafts []requestItemDraft) error {
	for position, draft := range drafts {
		item := &types.RequestItem{
			ID:           utils.NanoID(),
			RequestID:    requestID,
			CategorySlug: draft.slug,
			StartDate:    draft.startDate,
			EndDate:      draft.endDate,
			Position:     position,
			CreatedAt:    time.Now(),
		}

		query, args, err := psql().
			Insert(requestItemTableName).
			SetMap(utils.StructToMap(item)).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to generate insert request item query: %w", err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert request item: %w", err)
		}

		if len(draft.accessories) > 0 {
			categoryID, ok := categories[draft.slug]
			if !ok {
				category, err := categoryBySlug(ctx, tx, draft.slug, false)
				if err != nil {
					return err
				}
				categoryID = category.ID
				categories[draft.slug] = categoryID
			}

			if err := attachAccessories(ctx, tx, requestItemAccessoryLink, item.ID, categoryID, draft.accessories); err != nil {
				return err
			}
		}

		if err := attachLicenses(ctx, tx, requestItemLicenseLink, item.ID, draft.licenses); err != nil {
			return err
		}
	}

	return nil
}

// SetStatus overwrites the status of a request. Any transition is allowed.
func (r *RequestRepository) SetStatus(ctx context.Context, requestID, status string) error {
	parsed, err := types.ParseRequestStatus(status)
	if err != nil {
		return err
	}

	query, args, err := psql().
		Update(requestTableName).
		SetMap(map[string]any{"status": parsed, "updated_at": time.Now()}).
		Where(sq.Eq{"id": requestID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate request status query: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update request status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrRequestNotFound
	}

	return nil
}

func (r *RequestRepository) PendingCount(ctx context.Context) (int, error) {
	query, args, err := psql().
		Select("COUNT(*)").
		From(requestTableName).
		Where(sq.Eq{"status": types.RequestStatusPending}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to generate pending count query: %w", err)
	}

	var count int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count pending requests: %w", err)
	}

	return count, nil
}

// ListRequests pages through requests, newest first. A non-empty
// requestedBy limits the list to that requester's submissions.
func (r *RequestRepository) ListRequests(ctx context.Context, filter types.RequestFilter, requestedBy string) (*types.Page[*types.RequestSummary], error) {
	pq := filter.PageQuery.Normalize()

	where := sq.And{}
	if status := strings.TrimSpace(filter.Status); status != "" {
		parsed, err := types.ParseRequestStatus(status)
		if err != nil {
			return nil, err
		}
		where = append(where, sq.Eq{"r.status": parsed})
	}
	if requestedBy != "" {
		where = append(where, sq.Eq{"r.requested_by": requestedBy})
	}

	countQuery, countArgs, err := psql().
		Select("COUNT(*)").
		From(requestTableName + " r").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate request count query: %w", err)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count requests: %w", err)
	}

	columns := append(
		utils.PrefixSliceOfStrings("r", requestColumns),
		"e.name AS employee_name",
		"e.email AS employee_email",
		"(SELECT string_agg(DISTINCT ri.category_slug, ',' ORDER BY ri.category_slug) FROM request_items ri WHERE ri.request_id = r.id) AS categories",
	)

	query, args, err := psql().
		Select(columns...).
		From(requestTableName + " r").
		LeftJoin(employeeTableName + " e ON e.employee_id = r.employee_id").
		Where(where).
		OrderBy("r.created_at DESC", "r.id DESC").
		Limit(uint64(pq.PageSize)).
		Offset(pq.Offset()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate requests query: %w", err)
	}

	var requests []*types.RequestSummary
	if err := pgxscan.Select(ctx, r.pool, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("failed to fetch requests: %w", err)
	}

	return types.NewPage(requests, total, pq), nil
}

// RequestDetail loads a request with its items, their attachments and any
// request-level attachments from the single-category form.
func (r *RequestRepository) RequestDetail(ctx context.Context, requestID string) (*types.RequestDetail, error) {
	columns := append(
		utils.PrefixSliceOfStrings("r", requestColumns),
		"e.name AS employee_name",
		"e.email AS employee_email",
		"e.department AS departments",
		"e.job_title",
	)

	query, args, err := psql().
		Select(columns...).
		From(requestTableName + " r").
		LeftJoin(employeeTableName + " e ON e.employee_id = r.employee_id").
		Where(sq.Eq{"r.id": requestID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate request query: %w", err)
	}

	var header types.RequestDetailHeader
	if err := pgxscan.Get(ctx, r.pool, &header, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to fetch request: %w", err)
	}

	query, args, err = psql().
		Select("ri.id", "ri.category_slug", "c.name AS category_name", "ri.start_date", "ri.end_date").
		From(requestItemTableName + " ri").
		LeftJoin(categoryTableName + " c ON c.slug = ri.category_slug").
		Where(sq.Eq{"ri.request_id": requestID}).
		OrderBy("ri.position ASC", "ri.id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate request items query: %w", err)
	}

	var items = make([]types.RequestItemView, 0)
	if err := pgxscan.Select(ctx, r.pool, &items, query, args...); err != nil {
		return nil, fmt.Errorf("failed to fetch request items: %w", err)
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}

	itemAccessories, err := accessoryLines(ctx, r.pool, requestItemAccessoryLink, ids)
	if err != nil {
		return nil, err
	}
	itemLicenses, err := licenseLines(ctx, r.pool, requestItemLicenseLink, ids)
	if err != nil {
		return nil, err
	}

	for i := range items {
		items[i].Accessories = nonNil(itemAccessories[items[i].ID])
		items[i].Licenses = nonNil(itemLicenses[items[i].ID])
	}

	legacyAccessories, err := accessoryLines(ctx, r.pool, requestAccessoryLink, []string{requestID})
	if err != nil {
		return nil, err
	}
	legacyLicenses, err := licenseLines(ctx, r.pool, requestLicenseLink, []string{requestID})
	if err != nil {
		return nil, err
	}

	return &types.RequestDetail{
		Request: &header,
		Items:   items,
		Legacy: types.LegacyAttachments{
			Accessories: nonNil(legacyAccessories[requestID]),
			Licenses:    nonNil(legacyLicenses[requestID]),
		},
	}, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return make([]T, 0)
	}
	return s
}

// normalizeRequest validates a submission before anything is written. It
// returns the per-employee drafts of the batch form, or the legacy draft of
// the single-category form.
func normalizeRequest(p *types.RequestPayload) ([]requestDraft, *legacyDraft, error) {
	if p == nil {
		return nil, nil, types.Invalid("request body required")
	}

	users := p.Users
	if len(users) == 0 && len(p.Items) > 0 && (strings.TrimSpace(p.EmployeeID) != "" || p.Employee != nil) {
		users = []types.RequestUserInput{{
			EmployeeProfile: types.EmployeeProfile{EmployeeID: p.EmployeeID},
			Employee:        p.Employee,
			Items:           p.Items,
			Notes:           p.Notes,
		}}
	}

	if len(users) == 0 {
		legacy, err := normalizeLegacy(p)
		if err != nil {
			return nil, nil, err
		}
		return nil, legacy, nil
	}

	drafts := make([]requestDraft, 0, len(users))
	for i, u := range users {
		profile := mergeProfile(u)
		if profile.EmployeeID == "" {
			return nil, nil, types.Invalid("users[%d].employee_id required", i)
		}
		if len(u.Items) == 0 {
			return nil, nil, types.Invalid("users[%d].items required", i)
		}

		items := make([]requestItemDraft, 0, len(u.Items))
		for j, it := range u.Items {
			item, err := normalizeRequestItem(it)
			if err != nil {
				return nil, nil, types.Invalid("users[%d].items[%d].%s", i, j, err.Error())
			}
			items = append(items, item)
		}

		notes := strings.TrimSpace(u.Notes)
		if notes == "" {
			notes = strings.TrimSpace(p.Notes)
		}

		drafts = append(drafts, requestDraft{profile: profile, notes: notes, items: items})
	}

	return drafts, nil, nil
}

func normalizeLegacy(p *types.RequestPayload) (*legacyDraft, error) {
	employeeID := strings.TrimSpace(p.EmployeeID)
	if employeeID == "" || !utils.IsValidSlug(p.CategorySlug) {
		return nil, types.Invalid("employee_id and valid category_slug required")
	}

	item, err := normalizeRequestItem(types.RequestItemInput{
		CategorySlug: p.CategorySlug,
		StartDate:    p.StartDate,
		EndDate:      p.EndDate,
	})
	if err != nil {
		return nil, types.Invalid("%s", err.Error())
	}

	return &legacyDraft{
		employeeID:  employeeID,
		item:        item,
		notes:       strings.TrimSpace(p.Notes),
		accessories: p.Accessories,
		licenses:    p.Licenses,
	}, nil
}

// normalizeRequestItem returns plain errors naming the offending field; the
// caller adds the position and the validation kind.
func normalizeRequestItem(in types.RequestItemInput) (requestItemDraft, error) {
	slug := strings.TrimSpace(in.CategorySlug)
	if !utils.IsValidSlug(slug) {
		return requestItemDraft{}, fmt.Errorf("category_slug invalid")
	}

	start, err := utils.ParseDate(in.StartDate)
	if err != nil {
		return requestItemDraft{}, fmt.Errorf("start_date: %w", err)
	}

	end, err := utils.ParseDate(in.EndDate)
	if err != nil {
		return requestItemDraft{}, fmt.Errorf("end_date: %w", err)
	}

	return requestItemDraft{
		slug:        slug,
		startDate:   start,
		endDate:     end,
		accessories: in.Accessories,
		licenses:    in.Licenses,
	}, nil
}

// mergeProfile prefers the nested employee object and falls back to the
// fields given beside it.
func mergeProfile(u types.RequestUserInput) types.EmployeeProfile {
	emp := types.EmployeeProfile{}
	if u.Employee != nil {
		emp = *u.Employee
	}

	pick := func(primary, fallback string) string {
		if v := strings.TrimSpace(primary); v != "" {
			return v
		}
		return strings.TrimSpace(fallback)
	}

	profile := types.EmployeeProfile{
		EmployeeID:  pick(u.EmployeeID, emp.EmployeeID),
		Name:        pick(emp.Name, u.Name),
		Email:       pick(emp.Email, u.Email),
		Departments: pick(emp.Departments, u.Departments),
		PhoneNumber: pick(emp.PhoneNumber, u.PhoneNumber),
		JobTitle:    pick(emp.JobTitle, u.JobTitle),
		TableNumber: pick(emp.TableNumber, u.TableNumber),
	}
	if profile.Name == "" {
		profile.Name = profile.EmployeeID
	}

	return profile
}
