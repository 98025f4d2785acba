// Package httpserver exposes the budget-tracker HTTP API.
package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/and161185/budget-tracker/internal/model"
	"github.com/and161185/budget-tracker/internal/service"
)

// RouterConfig wires services into the router.
type RouterConfig struct {
	Auth         service.AuthService
	Transactions service.TransactionService
	Gate         Authenticator
	DB           Pinger // nil for the in-memory store
	AccessTTL    time.Duration
	CORSOrigins  []string
	Metrics      bool // expose /metrics and record request durations
	Log          *zap.Logger
}

// NewRouter builds the HTTP handler tree.
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	validate := validator.New(validator.WithRequiredStructEnabled())
	authH := NewAuthHandler(cfg.Auth, cfg.AccessTTL, validate, log)
	txH := NewTransactionHandler(cfg.Transactions, validate, log)
	adminH := NewAdminHandler(cfg.Auth, validate, log)
	requireAuth := Authenticate(cfg.Gate, log)

	r := chi.NewRouter()
	r.Use(chimid.RequestID)
	r.Use(chimid.RealIP)
	r.Use(Logging(log))
	r.Use(Recover(log))
	if cfg.Metrics {
		r.Use(Prometheus)
	}
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Method(http.MethodGet, "/health", NewHealthHandler(cfg.DB, log))
	if cfg.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/auth", func(r chi.Router) {
		r.Use(chimid.AllowContentType("application/json"))
		r.Post("/register", authH.Register)
		r.Post("/login", authH.Login)
		r.Post("/refresh", authH.Refresh)
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/me", authH.Me)
			r.Put("/profile", authH.UpdateProfile)
			r.Post("/change-password", authH.ChangePassword)
		})
	})

	r.Route("/transactions", func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(chimid.AllowContentType("application/json"))
		r.Post("/", txH.Create)
		r.Get("/", txH.List)
		r.Get("/summary", txH.Summary)
		r.Get("/{id}", txH.Get)
		r.Put("/{id}", txH.Update)
		r.Delete("/{id}", txH.Delete)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(RequireRole(model.RoleAdmin))
		r.Use(chimid.AllowContentType("application/json"))
		r.Put("/users/{id}/active", adminH.SetActive)
	})

	return r
}
