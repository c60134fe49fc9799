package game

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns game router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Post("/", h.Create)
	r.Post("/join", h.Join)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.GetByID)
		r.Patch("/", h.Update)
		r.Post("/prizes", h.AddPrize)
		r.Delete("/prizes/{prizeID}", h.RemovePrize)

		r.Post("/publish", h.transition(publish))
		r.Post("/start", h.transition(start))
		r.Post("/pause", h.transition(pause))
		r.Post("/resume", h.transition(resume))
		r.Post("/finish", h.transition(finish))
		r.Post("/rounds", h.transition(nextRound))

		r.Post("/draw", h.Draw)
		r.Get("/draws", h.Draws)
		r.Post("/cards/{cardID}/mark", h.Mark)
		r.Post("/claims", h.Claim)
	})

	return r
}
