package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"assettrack/pkg/types"

	"github.com/go-playground/form/v4"
)

const maxBodyBytes = 1 << 20

var decoder = form.NewDecoder()

type errorResponse struct {
	Error string `json:"error"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("failed to encode response")
	}
}

func (s *Service) writeOK(w http.ResponseWriter) {
	s.writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// writeError maps an error kind to a status code. Anything that is not a
// domain error is logged and reported as an opaque 500.
func (s *Service) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.WithError(err).WithField("path", r.URL.Path).Error("request failed")
		s.writeJSON(w, status, errorResponse{Error: "internal server error"})
		return
	}

	s.writeJSON(w, status, errorResponse{Error: publicMessage(err)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage drops the leading kind from an error message, so a client
// sees "slug must be a-z, 0-9, _" rather than "validation failed: ...".
func publicMessage(err error) string {
	msg := err.Error()
	for _, kind := range []error{types.ErrValidation, types.ErrConflict} {
		msg = strings.TrimPrefix(msg, kind.Error()+": ")
	}
	return msg
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return types.Invalid("invalid JSON body")
}

func decodeQuery(values url.Values, v any) error {
	if err := decoder.Decode(v, values); err != nil {
		return types.Invalid("invalid query parameters")
	}
	return nil
}
