// internal/app/features/coursemeta/routes.go
package coursemeta

import (
	"github.com/go-chi/chi/v5"

	"github.com/opencampus/discusshub/internal/app/system/auth"
)

// Routes mounts the course metadata routes.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)

		pr.Get("/reason_codes", h.ServeReasonCodes)
		pr.Get("/courses/{courseID}/settings", h.ServeSettings)
	})

	return r
}
