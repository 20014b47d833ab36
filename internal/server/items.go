package server

import (
	"net/http"
	"time"

	"assettrack/internal/utils"
	"assettrack/pkg/types"
)

type beginAssignmentRequest struct {
	EmployeeID  string                 `json:"employee_id"`
	StartDate   string                 `json:"start_date"`
	EndDate     string                 `json:"end_date"`
	Accessories []types.AccessoryInput `json:"accessories"`
}

type endAssignmentRequest struct {
	EndDate string `json:"end_date"`
}

func (s *Service) handleListItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var pq types.PageQuery
	if err := decodeQuery(r.URL.Query(), &pq); err != nil {
		s.writeError(w, r, err)
		return
	}

	viewer, err := s.viewer(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	page, err := s.items.ListItems(ctx, r.PathValue("slug"), viewer, pq)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, page)
}

// handleGetItem returns the item with one page of its history. page and
// pageSize apply to the history.
func (s *Service) handleGetItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var pq types.PageQuery
	if err := decodeQuery(r.URL.Query(), &pq); err != nil {
		s.writeError(w, r, err)
		return
	}

	viewer, err := s.viewer(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	detail, err := s.items.ItemDetail(ctx, r.PathValue("slug"), r.PathValue("id"), viewer, pq)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, detail)
}

func (s *Service) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body types.ItemInput
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	item, err := s.items.CreateItem(ctx, r.PathValue("slug"), body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, item)
}

func (s *Service) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body types.ItemInput
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.items.UpdateItem(ctx, r.PathValue("slug"), r.PathValue("id"), body); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeOK(w)
}

func (s *Service) handleBeginAssignment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body beginAssignmentRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	startDate, err := parseDateField("start_date", body.StartDate)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	endDate, err := parseDateField("end_date", body.EndDate)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	in := types.BeginAssignment{
		EmployeeID:  body.EmployeeID,
		EndDate:     endDate,
		Accessories: body.Accessories,
	}
	if startDate != nil {
		in.StartDate = *startDate
	}

	slug, itemID := r.PathValue("slug"), r.PathValue("id")
	assignment, err := s.ledger.Begin(ctx, slug, itemID, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.WithField("item_id", itemID).WithField("employee_id", in.EmployeeID).Info("assignment started")
	s.writeJSON(w, http.StatusCreated, assignment)
}

func (s *Service) handleEndAssignment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body endAssignmentRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	endDate, err := parseDateField("end_date", body.EndDate)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	slug, itemID := r.PathValue("slug"), r.PathValue("id")
	if err := s.ledger.End(ctx, slug, itemID, endDate); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.WithField("item_id", itemID).Info("assignment ended")
	s.writeOK(w)
}

func parseDateField(field, raw string) (*time.Time, error) {
	date, err := utils.ParseDate(raw)
	if err != nil {
		return nil, types.Invalid("%s: %v", field, err)
	}
	return date, nil
}
