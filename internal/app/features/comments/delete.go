// internal/app/features/comments/delete.go
package comments

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

// HandleDelete removes a comment: DELETE /comments/{commentID}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	commentID := chi.URLParam(r, "commentID")
	comment, thread, err := h.fetchComment(ctx, commentID)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	rc, err := h.Resolver.Resolve(ctx, r, comment.CourseID)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	polCtx := contentpolicy.Context{
		RoleSet:     rc.RoleSet,
		Course:      rc.Course,
		RequesterID: rc.User.ID.Hex(),
		Thread:      thread,
	}
	if !contentpolicy.CanDeleteComment(comment, polCtx) {
		apierr.Write(w, apierr.NewAuthorization("You do not have permission to delete this comment."))
		return
	}

	if err := h.Forum.DeleteComment(ctx, commentID, rc.Course.ID); err != nil {
		apierr.Write(w, shared.MapForumError(err, "Comment not found."))
		return
	}

	authorOID, _ := primitive.ObjectIDFromHex(comment.AuthorID)
	if err := h.Audit.ContentDelete(ctx, authorOID, rc.User.ID, rc.Course.ID, commentID, audit.SourceHuman, false); err != nil {
		h.Log.Error("failed to audit comment delete", zap.Error(err))
	}

	w.WriteHeader(http.StatusNoContent)
}
