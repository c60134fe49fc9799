package giftcard

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns the user-facing gift card router. Redemption is throttled by limiter.
func (h *Handler) Routes(authMiddleware, limiter func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.With(limiter).Post("/redeem", h.Redeem)
	return r
}

// AdminRoutes returns the admin router; the caller mounts it behind auth and role checks.
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Issue)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/disable", h.Disable)
	r.Post("/{id}/reactivate", h.Reactivate)
	return r
}
