// internal/app/features/comments/routes.go
package comments

import (
	"github.com/go-chi/chi/v5"

	"github.com/opencampus/discusshub/internal/app/system/auth"
)

// Routes mounts the comment routes under the base path (typically
// "/comments" from bootstrap).
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)

		pr.Get("/", h.ServeList)
		pr.Post("/", h.HandleCreate)

		pr.Get("/{commentID}", h.ServeView)
		pr.Patch("/{commentID}", h.HandleUpdate)
		pr.Delete("/{commentID}", h.HandleDelete)
	})

	return r
}
