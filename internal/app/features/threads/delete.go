// internal/app/features/threads/delete.go
package threads

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/opencampus/discusshub/internal/app/features/shared"
	"github.com/opencampus/discusshub/internal/app/policy/contentpolicy"
	"github.com/opencampus/discusshub/internal/app/store/audit"
	"github.com/opencampus/discusshub/internal/app/system/apierr"
	"github.com/opencampus/discusshub/internal/app/system/timeouts"
)

// HandleDelete removes a thread: DELETE /threads/{threadID}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
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

	polCtx := contentpolicy.Context{
		RoleSet:     rc.RoleSet,
		Course:      rc.Course,
		RequesterID: rc.User.ID.Hex(),
	}
	if !contentpolicy.CanDeleteThread(thread, polCtx) {
		apierr.Write(w, apierr.NewAuthorization("You do not have permission to delete this thread."))
		return
	}

	if err := h.Forum.DeleteThread(ctx, threadID, rc.Course.ID); err != nil {
		apierr.Write(w, shared.MapForumError(err, "Thread not found."))
		return
	}

	authorOID, _ := primitive.ObjectIDFromHex(thread.AuthorID)
	if err := h.Audit.ContentDelete(ctx, authorOID, rc.User.ID, rc.Course.ID, threadID, audit.SourceHuman, true); err != nil {
		h.Log.Error("failed to audit thread delete", zap.Error(err))
	}

	w.WriteHeader(http.StatusNoContent)
}
