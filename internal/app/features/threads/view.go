// internal/app/features/threads/view.go
package threads

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/opencampus/discusshub/internal/app/features/shared"
	"github.com/opencampus/discusshub/internal/app/system/apierr"
	"github.com/opencampus/discusshub/internal/app/system/timeouts"
)

// ServeView returns one thread: GET /threads/{threadID}.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	threadID := chi.URLParam(r, "threadID")
	thread, err := h.fetchThread(ctx, threadID)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	rc, err := h.Resolver.Resolve(ctx, r, thread.CourseID)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	// Refetch under the requester identity so read/following state is
	// the requester's.
	thread, err = h.Forum.GetThread(ctx, threadID, rc.Course.ID, rc.User.ID.Hex(), false)
	if err != nil {
		apierr.Write(w, shared.MapForumError(err, "Thread not found."))
		return
	}

	if r.URL.Query().Get("mark_read") != "false" {
		if err := h.Forum.MarkThreadRead(ctx, rc.User.ID.Hex(), threadID, rc.Course.ID); err != nil {
			h.Log.Warn("failed to mark thread read", zap.Error(err))
		}
	}

	view, err := h.Serializer.Thread(ctx, thread, h.Resolver.EnvWithVotes(ctx, rc))
	if err != nil {
		apierr.Write(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, view)
}
