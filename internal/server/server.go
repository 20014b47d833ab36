package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"assettrack/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/sirupsen/logrus"
)

type CategoryStore interface {
	ListCategories(ctx context.Context, pq types.PageQuery) (*types.Page[*types.Category], error)
	CreateCategory(ctx context.Context, name, slug string) (*types.Category, error)
	DeleteCategory(ctx context.Context, slug string) error
	Stats(ctx context.Context, viewer types.Viewer) ([]*types.CategoryStat, error)
}

type AccessoryStore interface {
	AccessoryTypes(ctx context.Context, slug string) ([]*types.AccessoryType, error)
	CreateAccessoryType(ctx context.Context, slug, name string) (*types.AccessoryType, error)
	DeleteAccessoryType(ctx context.Context, slug, id string) error
}

type ItemStore interface {
	ListItems(ctx context.Context, slug string, viewer types.Viewer, pq types.PageQuery) (*types.Page[*types.ItemView], error)
	ItemDetail(ctx context.Context, slug, id string, viewer types.Viewer, history types.PageQuery) (*types.ItemDetail, error)
	CreateItem(ctx context.Context, slug string, in types.ItemInput) (*types.Item, error)
	UpdateItem(ctx context.Context, slug, id string, in types.ItemInput) error
}

type LedgerStore interface {
	Begin(ctx context.Context, slug, itemID string, in types.BeginAssignment) (*types.Assignment, error)
	End(ctx context.Context, slug, itemID string, endDate *time.Time) error
}

type LicenseStore interface {
	LicenseTypes(ctx context.Context) ([]*types.LicenseType, error)
	CreateLicenseType(ctx context.Context, name string) (*types.LicenseType, error)
	Grants(ctx context.Context, employeeID string) ([]*types.LicenseType, error)
	Grant(ctx context.Context, employeeID string, in types.LicenseInput) error
	Revoke(ctx context.Context, employeeID, licenseTypeID string) error
}

type EmployeeStore interface {
	ByEmployeeID(ctx context.Context, employeeID string) (*types.Employee, error)
	ByEmail(ctx context.Context, email string) (*types.Employee, error)
	Profile(ctx context.Context, employee *types.Employee, pq types.PageQuery) (*types.Profile, error)
}

type RequestStore interface {
	CreateRequests(ctx context.Context, requestedBy string, payload *types.RequestPayload) (*types.CreateRequestResult, error)
	SetStatus(ctx context.Context, requestID, status string) error
	PendingCount(ctx context.Context) (int, error)
	ListRequests(ctx context.Context, filter types.RequestFilter, requestedBy string) (*types.Page[*types.RequestSummary], error)
	RequestDetail(ctx context.Context, requestID string) (*types.RequestDetail, error)
}

// Stores bundles the repositories the handlers read and write through.
type Stores struct {
	Categories  CategoryStore
	Accessories AccessoryStore
	Items       ItemStore
	Ledger      LedgerStore
	Licenses    LicenseStore
	Employees   EmployeeStore
	Requests    RequestStore
}

type Service struct {
	logger logrus.FieldLogger
	config *types.Config
	auth   *Authenticator

	categories  CategoryStore
	accessories AccessoryStore
	items       ItemStore
	ledger      LedgerStore
	licenses    LicenseStore
	employees   EmployeeStore
	requests    RequestStore

	server *http.Server
}

func New(config *types.Config, logger logrus.FieldLogger, stores Stores, auth *Authenticator) (*Service, error) {
	if auth == nil {
		return nil, fmt.Errorf("authenticator is required")
	}

	s := &Service{
		logger: logger,
		config: config,
		auth:   auth,

		categories:  stores.Categories,
		accessories: stores.Accessories,
		items:       stores.Items,
		ledger:      stores.Ledger,
		licenses:    stores.Licenses,
		employees:   stores.Employees,
		requests:    stores.Requests,
	}

	mux := flow.New()
	s.buildRouter(mux)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", config.ServerPort),
		Handler:           s.wrap(mux),
		ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(config.WriteTimeoutSec) * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return s, nil
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Service) Handler() http.Handler {
	return s.server.Handler
}

// wrap applies the middleware that must also see requests the router
// answers on its own, such as CORS preflights.
func (s *Service) wrap(mux http.Handler) http.Handler {
	handler := StripTrailingSlash(mux)

	if s.config.RateLimitPerMin > 0 {
		handler = httprate.LimitByIP(s.config.RateLimitPerMin, time.Minute)(handler)
	}

	handler = cors.Handler(cors.Options{
		AllowedOrigins:   s.config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})(handler)

	return s.LoggingMiddleware(handler)
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	})
	r.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})

	r.HandleFunc("/api/health", s.handleHealth, http.MethodGet)

	r.Group(func(r *flow.Mux) {
		r.Use(s.RequireAuth)

		r.HandleFunc("/api/categories", s.handleListCategories, http.MethodGet)
		r.HandleFunc("/api/categories/stats", s.handleCategoryStats, http.MethodGet)
		r.HandleFunc("/api/categories/:slug/accessories", s.handleListAccessoryTypes, http.MethodGet)
		r.HandleFunc("/api/categories/:slug/items", s.handleListItems, http.MethodGet)
		r.HandleFunc("/api/categories/:slug/items/:id", s.handleGetItem, http.MethodGet)

		r.HandleFunc("/api/users/me", s.handleGetMe, http.MethodGet)
		r.HandleFunc("/api/users/:employeeId", s.handleGetUser, http.MethodGet)
		r.HandleFunc("/api/users/:employeeId/licenses", s.handleListUserLicenses, http.MethodGet)

		r.Group(func(r *flow.Mux) {
			r.Use(s.RequireHROrAdmin)

			r.HandleFunc("/api/requests", s.handleListRequests, http.MethodGet)
			r.HandleFunc("/api/requests", s.handleCreateRequests, http.MethodPost)
			r.HandleFunc("/api/licenses", s.handleListLicenseTypes, http.MethodGet)
			r.HandleFunc("/api/licenses", s.handleCreateLicenseType, http.MethodPost)
		})

		r.Group(func(r *flow.Mux) {
			r.Use(s.RequireAdmin)

			r.HandleFunc("/api/categories", s.handleCreateCategory, http.MethodPost)
			r.HandleFunc("/api/categories/:slug", s.handleDeleteCategory, http.MethodDelete)
			r.HandleFunc("/api/categories/:slug/accessories", s.handleCreateAccessoryType, http.MethodPost)
			r.HandleFunc("/api/categories/:slug/accessories/:id", s.handleDeleteAccessoryType, http.MethodDelete)
			r.HandleFunc("/api/categories/:slug/items", s.handleCreateItem, http.MethodPost)
			r.HandleFunc("/api/categories/:slug/items/:id", s.handleUpdateItem, http.MethodPut)
			r.HandleFunc("/api/categories/:slug/items/:id/transactions", s.handleBeginAssignment, http.MethodPost)
			r.HandleFunc("/api/categories/:slug/items/:id/transactions/end", s.handleEndAssignment, http.MethodPut)

			r.HandleFunc("/api/requests/pending_count", s.handlePendingCount, http.MethodGet)
			r.HandleFunc("/api/requests/:id/status", s.handleSetRequestStatus, http.MethodPut)

			r.HandleFunc("/api/users/:employeeId/licenses", s.handleGrantLicense, http.MethodPost)
			r.HandleFunc("/api/users/:employeeId/licenses/:typeId", s.handleRevokeLicense, http.MethodDelete)
		})

		r.Group(func(r *flow.Mux) {
			r.Use(s.RequireHROrAdmin)

			r.HandleFunc("/api/requests/:id", s.handleGetRequest, http.MethodGet)
		})
	})
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeOK(w)
}
