// internal/app/features/threads/routes.go
package threads

import (
	"github.com/go-chi/chi/v5"

	"github.com/opencampus/discusshub/internal/app/system/auth"
)

// Routes mounts the thread routes under the base path (typically
// "/threads" from bootstrap).
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)

		pr.Get("/", h.ServeList)
		pr.Post("/", h.HandleCreate)

		pr.Get("/{threadID}", h.ServeView)
		pr.Patch("/{threadID}", h.HandleUpdate)
		pr.Delete("/{threadID}", h.HandleDelete)
	})

	return r
}
