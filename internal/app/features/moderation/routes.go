// internal/app/features/moderation/routes.go
package moderation

import (
	"github.com/go-chi/chi/v5"

	"github.com/opencampus/discusshub/internal/app/system/auth"
)

// Routes mounts the moderation routes under the base path (typically
// "/moderation" from bootstrap). Per-action authorization happens in
// the service, which resolves the actor's standing per course.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)

		pr.Post("/bans", h.HandleBan)
		pr.Post("/bans/{banID}/unban", h.HandleUnbanByID)
		pr.Post("/unbans", h.HandleUnban)
		pr.Get("/banned", h.ServeBannedList)
		pr.Get("/audit", h.ServeAuditLog)

		pr.Post("/bulk_deletes", h.HandleBulkDelete)
		pr.Get("/tasks/{taskID}", h.ServeTask)
		pr.Post("/tasks/{taskID}/cancel", h.HandleTaskCancel)
	})

	return r
}
