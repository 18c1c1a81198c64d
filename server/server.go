// Package server exposes the pipelines over HTTP. Transport concerns stop
// here: handlers validate and authenticate, then delegate to the pipeline
// service.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"esgledger/auth"
	"esgledger/ledger"
	"esgledger/observability/metrics"
	"esgledger/pipeline"
	"esgledger/store"
)

// Config captures the dependencies required to construct the server.
type Config struct {
	Store        *store.Store
	Pipelines    *pipeline.Service
	Issuer       *auth.Issuer
	ContractAddr string
	Logger       *slog.Logger
	RateLimits   map[string]RateLimit
}

// Server encapsulates dependencies for the HTTP API.
type Server struct {
	store        *store.Store
	pipelines    *pipeline.Service
	issuer       *auth.Issuer
	contractAddr string
	logger       *slog.Logger

	router http.Handler
}

// New constructs a configured HTTP router.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	srv := &Server{
		store:        cfg.Store,
		pipelines:    cfg.Pipelines,
		issuer:       cfg.Issuer,
		contractAddr: cfg.ContractAddr,
		logger:       logger,
	}
	srv.router = srv.buildRouter(cfg.RateLimits)
	return srv
}

// Handler exposes the configured HTTP router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter(limits map[string]RateLimit) http.Handler {
	limiter := NewRateLimiter(limits, s.logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(countRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/register", s.Register)
		api.Post("/auth/login", s.Login)

		api.Group(func(protected chi.Router) {
			protected.Use(s.issuer.Authenticate)

			protected.With(auth.RequireRole(auth.RoleCompany), limiter.Middleware("submit")).
				Post("/blockchain/register-company", s.RegisterCompany)
			protected.Get("/blockchain/company-info", s.CompanyInfo)
			protected.Get("/blockchain/stats", s.LedgerStats)

			protected.With(auth.RequireRole(auth.RoleCompany), limiter.Middleware("submit")).
				Post("/esg/submit", s.SubmitRecord)
			protected.Get("/esg/records", s.OwnerRecords)
			protected.Get("/esg/record/{recordId}", s.RecordByID)
			protected.Get("/esg/data-types", s.DataTypes)

			protected.With(auth.RequireRole(auth.RoleVerifier, auth.RoleAdmin)).
				Get("/verification/pending", s.PendingRecords)
			protected.With(auth.RequireRole(auth.RoleVerifier, auth.RoleAdmin)).
				Get("/verification/all", s.AllRecords)
			protected.With(auth.RequireRole(auth.RoleVerifier, auth.RoleAdmin), limiter.Middleware("submit")).
				Post("/verification/verify/{recordId}", s.VerifyRecord)
			protected.Get("/verification/stats", s.VerificationStats)
		})
	})

	return r
}

func countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		status := strconv.Itoa(ww.Status()/100) + "xx"
		metrics.HTTPRequests.WithLabelValues(route, status).Inc()
	})
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps the failure taxonomy onto HTTP statuses. Every failure
// carries a stable kind and a human-readable detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := ledger.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case ledger.KindValidation:
		status = http.StatusBadRequest
	case ledger.KindPrecondition, ledger.KindLedgerRevert, ledger.KindInsufficientFunds:
		status = http.StatusBadRequest
	case ledger.KindNotFound:
		status = http.StatusNotFound
	case ledger.KindLedgerUnavailable:
		status = http.StatusServiceUnavailable
	case ledger.KindEventNotFound:
		status = http.StatusBadGateway
	}

	detail := ""
	var le *ledger.Error
	if errors.As(err, &le) {
		detail = le.Detail
	}
	if status >= http.StatusInternalServerError || kind == ledger.KindEventNotFound {
		s.logger.Error("request failed", "path", r.URL.Path, "kind", kind, "err", err)
	}
	writeJSON(w, status, errorResponse{Error: string(kind), Detail: detail})
}
