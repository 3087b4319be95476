// Package api assembles the HTTP router from the feature handlers.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/simplecms/api/internal/access"
	"github.com/simplecms/api/internal/auth"
	"github.com/simplecms/api/internal/customer"
	appMiddleware "github.com/simplecms/api/internal/middleware"
	"github.com/simplecms/api/internal/user"
)

// Deps are the wired handlers and settings the router needs.
type Deps struct {
	JWTSecret string
	Auth      *auth.Handler
	Users     *user.Handler
	Customers *customer.Handler
}

// NewRouter builds the full route tree, including middleware, health check,
// and swagger UI. Resource routes are guarded by the access rules: 401 for
// anonymous callers, 403 for authenticated callers the rules deny.
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Swagger UI at /swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Public token endpoint
		r.Post("/auth/token", d.Auth.Token)

		// Resource routes: authentication resolves the principal, the access
		// rules decide per resource and action.
		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.Authenticate(d.JWTSecret))

			r.Route("/customers", func(r chi.Router) {
				r.With(access.Require(access.ResourceCustomers, access.ActionList)).Get("/", d.Customers.List)
				r.With(access.Require(access.ResourceCustomers, access.ActionCreate)).Post("/", d.Customers.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.With(access.Require(access.ResourceCustomers, access.ActionRetrieve)).Get("/", d.Customers.Get)
					r.With(access.Require(access.ResourceCustomers, access.ActionUpdate)).Put("/", d.Customers.Update)
					r.With(access.Require(access.ResourceCustomers, access.ActionUpdate)).Patch("/", d.Customers.Update)
					r.With(access.Require(access.ResourceCustomers, access.ActionDelete)).Delete("/", d.Customers.Delete)
				})
			})

			r.Route("/users", func(r chi.Router) {
				r.With(access.Require(access.ResourceUsers, access.ActionList)).Get("/", d.Users.List)
				r.With(access.Require(access.ResourceUsers, access.ActionCreate)).Post("/", d.Users.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.With(access.Require(access.ResourceUsers, access.ActionRetrieve)).Get("/", d.Users.Get)
					r.With(access.Require(access.ResourceUsers, access.ActionUpdate)).Put("/", d.Users.Update)
					r.With(access.Require(access.ResourceUsers, access.ActionUpdate)).Patch("/", d.Users.Update)
					r.With(access.Require(access.ResourceUsers, access.ActionDelete)).Delete("/", d.Users.Delete)
				})
			})
		})
	})

	return r
}
