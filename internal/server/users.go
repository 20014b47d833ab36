package server

import (
	"context"
	"net/http"

	"assettrack/pkg/types"
)

type createLicenseTypeRequest struct {
	Name string `json:"name"`
}

func (s *Service) handleGetMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var pq types.PageQuery
	if err := decodeQuery(r.URL.Query(), &pq); err != nil {
		s.writeError(w, r, err)
		return
	}

	employee, err := s.employees.ByEmail(ctx, identityFromContext(ctx).Email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	profile, err := s.employees.Profile(ctx, employee, pq)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, profile)
}

// handleGetUser returns an employee with the items they hold, paged and
// filtered like /users/me.
func (s *Service) handleGetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	employeeID := r.PathValue("employeeId")

	var pq types.PageQuery
	if err := decodeQuery(r.URL.Query(), &pq); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.authorizeEmployee(ctx, employeeID); err != nil {
		s.writeError(w, r, err)
		return
	}

	employee, err := s.employees.ByEmployeeID(ctx, employeeID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	profile, err := s.employees.Profile(ctx, employee, pq)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, profile)
}

func (s *Service) handleListUserLicenses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	employeeID := r.PathValue("employeeId")

	if err := s.authorizeEmployee(ctx, employeeID); err != nil {
		s.writeError(w, r, err)
		return
	}

	grants, err := s.licenses.Grants(ctx, employeeID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, grants)
}

func (s *Service) handleGrantLicense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body types.LicenseInput
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.licenses.Grant(ctx, r.PathValue("employeeId"), body); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, okResponse{OK: true})
}

func (s *Service) handleRevokeLicense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.licenses.Revoke(ctx, r.PathValue("employeeId"), r.PathValue("typeId")); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeOK(w)
}

func (s *Service) handleListLicenseTypes(w http.ResponseWriter, r *http.Request) {
	licenseTypes, err := s.licenses.LicenseTypes(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, licenseTypes)
}

func (s *Service) handleCreateLicenseType(w http.ResponseWriter, r *http.Request) {
	var body createLicenseTypeRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	licenseType, err := s.licenses.CreateLicenseType(r.Context(), body.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, licenseType)
}

// authorizeEmployee lets admins through and otherwise requires the caller's
// own employee record to be the one addressed.
func (s *Service) authorizeEmployee(ctx context.Context, employeeID string) error {
	viewer, err := s.viewer(ctx)
	if err != nil {
		return err
	}
	if viewer.Admin || (viewer.EmployeeID != "" && viewer.EmployeeID == employeeID) {
		return nil
	}
	return types.ErrForbidden
}
