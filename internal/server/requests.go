package server

import (
	"net/http"

	"assettrack/pkg/types"
)

type createdLegacyResponse struct {
	ID string `json:"id"`
}

type createdBatchResponse struct {
	OK      bool                   `json:"ok"`
	Created []types.CreatedRequest `json:"created"`
}

type setStatusRequest struct {
	Status string `json:"status"`
}

type countResponse struct {
	Count int `json:"count"`
}

// handleListRequests lists every request for admins. HR sees only the
// requests it submitted.
func (s *Service) handleListRequests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var filter types.RequestFilter
	if err := decodeQuery(r.URL.Query(), &filter); err != nil {
		s.writeError(w, r, err)
		return
	}

	var requestedBy string
	if identity := identityFromContext(ctx); !identity.IsAdmin() {
		requestedBy = identity.SubjectID
	}

	page, err := s.requests.ListRequests(ctx, filter, requestedBy)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, page)
}

func (s *Service) handleCreateRequests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload types.RequestPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		s.writeError(w, r, err)
		return
	}

	identity := identityFromContext(ctx)
	result, err := s.requests.CreateRequests(ctx, identity.SubjectID, &payload)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.WithField("requested_by", identity.SubjectID).WithField("created", len(result.Created)).Info("requests submitted")

	if result.Legacy && len(result.Created) == 1 {
		s.writeJSON(w, http.StatusCreated, createdLegacyResponse{ID: result.Created[0].RequestID})
		return
	}

	s.writeJSON(w, http.StatusCreated, createdBatchResponse{OK: true, Created: result.Created})
}

func (s *Service) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	detail, err := s.requests.RequestDetail(ctx, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	identity := identityFromContext(ctx)
	if !identity.IsAdmin() && detail.Request.RequestedBy != identity.SubjectID {
		s.writeError(w, r, types.ErrForbidden)
		return
	}

	s.writeJSON(w, http.StatusOK, detail)
}

func (s *Service) handleSetRequestStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body setStatusRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	requestID := r.PathValue("id")
	if err := s.requests.SetStatus(ctx, requestID, body.Status); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.WithField("request_id", requestID).WithField("status", body.Status).Info("request status changed")
	s.writeOK(w)
}

func (s *Service) handlePendingCount(w http.ResponseWriter, r *http.Request) {
	count, err := s.requests.PendingCount(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, countResponse{Count: count})
}
