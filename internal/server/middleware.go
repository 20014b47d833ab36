package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"assettrack/pkg/types"

	"github.com/sirupsen/logrus"
)

type contextKey string

const contextKeyIdentity contextKey = "identity"

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Service) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		s.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.statusCode,
			"duration_ms": time.Since(started).Milliseconds(),
		}).Info("http request")
	})
}

// StripTrailingSlash rewrites /api/categories/ to /api/categories so the
// router sees a single form of every path.
func StripTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path != "/" && strings.HasSuffix(path, "/") {
			r.URL.Path = strings.TrimRight(path, "/")
			if r.URL.Path == "" {
				r.URL.Path = "/"
			}
			r.URL.RawPath = ""
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth verifies the access token and puts the caller's identity on
// the request context.
func (s *Service) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := s.auth.Identify(r)
		if err != nil {
			entry := s.logger.WithError(err).WithField("path", r.URL.Path)
			if errors.Is(err, errNoToken) {
				entry.Debug("unauthenticated request")
			} else {
				entry.Warn("rejected access token")
			}
			s.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}

		s.logger.WithFields(logrus.Fields{
			"subject": identity.SubjectID,
			"role":    identity.Role,
		}).Debug("authenticated user")

		ctx := context.WithValue(r.Context(), contextKeyIdentity, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Service) RequireAdmin(next http.Handler) http.Handler {
	return s.requireRole(next, types.Identity.IsAdmin)
}

func (s *Service) RequireHROrAdmin(next http.Handler) http.Handler {
	return s.requireRole(next, types.Identity.IsHROrAdmin)
}

func (s *Service) requireRole(next http.Handler, allowed func(types.Identity) bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !allowed(identityFromContext(r.Context())) {
			s.writeJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func identityFromContext(ctx context.Context) types.Identity {
	identity, _ := ctx.Value(contextKeyIdentity).(types.Identity)
	return identity
}

// viewer resolves the caller for item visibility. Non-admins are matched to
// an employee by email; no match means they hold nothing.
func (s *Service) viewer(ctx context.Context) (types.Viewer, error) {
	identity := identityFromContext(ctx)
	if identity.IsAdmin() {
		return types.Viewer{Admin: true}, nil
	}

	employee, err := s.employees.ByEmail(ctx, identity.Email)
	if errors.Is(err, types.ErrNotFound) {
		return types.Viewer{}, nil
	}
	if err != nil {
		return types.Viewer{}, err
	}

	return types.Viewer{EmployeeID: employee.EmployeeID}, nil
}
