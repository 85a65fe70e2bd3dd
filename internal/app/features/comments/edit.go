// internal/app/features/comments/edit.go
package comments

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/opencampus/discusshub/internal/app/features/shared"
	"github.com/opencampus/discusshub/internal/app/policy/contentpolicy"
	"github.com/opencampus/discusshub/internal/app/system/apierr"
	"github.com/opencampus/discusshub/internal/app/system/timeouts"
	"github.com/opencampus/discusshub/internal/domain/models"
	"github.com/opencampus/discusshub/internal/domain/reasons"
)

// commentPatch is the validated outcome of a PATCH payload.
type commentPatch struct {
	fields map[string]any

	abuseFlagged *bool
	voted        *bool

	bodyEdited     bool
	editReasonCode string
}

// HandleUpdate applies a merge patch to a comment:
// PATCH /comments/{commentID}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := shared.RequireMergePatch(r); err != nil {
		apierr.Write(w, err)
		return
	}
	payload, err := shared.DecodePayload(r)
	if err != nil {
		apierr.Write(w, err)
		return
	}

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

	if err := h.Gate.CheckUpdate(ctx, rc.User, rc.Course, rc.RoleSet); err != nil {
		apierr.Write(w, err)
		return
	}

	patch, err := h.validateCommentPatch(payload, comment, thread, rc)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	if err := h.applyCommentPatch(ctx, comment, rc, patch); err != nil {
		apierr.Write(w, err)
		return
	}

	updated, err := h.Forum.GetComment(ctx, commentID, rc.Course.ID)
	if err != nil {
		apierr.Write(w, shared.MapForumError(err, "Comment not found."))
		return
	}
	view, err := h.Serializer.Comment(ctx, updated, thread, h.Resolver.EnvWithVotes(ctx, rc))
	if err != nil {
		apierr.Write(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) validateCommentPatch(payload shared.Payload, comment *models.Comment, thread *models.Thread, rc *shared.ReqContext) (*commentPatch, error) {
	polCtx := contentpolicy.Context{
		RoleSet:     rc.RoleSet,
		Course:      rc.Course,
		RequesterID: rc.User.ID.Hex(),
		Thread:      thread,
	}
	editable := contentpolicy.CommentEditableFields(comment, polCtx)
	isAuthor := comment.AuthorID == rc.User.ID.Hex()

	errs := make(map[string]string)
	for field := range payload {
		if editable.Has(field) {
			continue
		}
		switch field {
		case contentpolicy.FieldThreadID, contentpolicy.FieldParentID:
			errs[field] = shared.MsgNotAllowedUpdate
		default:
			errs[field] = shared.MsgNotEditable
		}
	}

	patch := &commentPatch{fields: make(map[string]any)}

	if body, ok := payload.String(contentpolicy.FieldRawBody, errs); ok && errs[contentpolicy.FieldRawBody] == "" {
		if body == "" {
			errs[contentpolicy.FieldRawBody] = shared.MsgBlank
		} else if body != comment.Body {
			patch.fields["body"] = body
			patch.fields["editing_user_id"] = rc.User.ID.Hex()
			patch.bodyEdited = true
		}
	}

	if code, ok := payload.String(contentpolicy.FieldEditReasonCode, errs); ok && errs[contentpolicy.FieldEditReasonCode] == "" {
		if !reasons.ValidEditReason(code) {
			errs[contentpolicy.FieldEditReasonCode] = shared.MsgInvalidEditCode
		} else {
			patch.editReasonCode = code
			patch.fields["edit_reason_code"] = code
		}
	}

	if endorsed, ok := payload.Bool(contentpolicy.FieldEndorsed, errs); ok && endorsed != comment.Endorsed {
		patch.fields["endorsed"] = endorsed
		if endorsed {
			patch.fields["endorsement_user_id"] = rc.User.ID.Hex()
		}
	}

	if v, ok := payload.Bool(contentpolicy.FieldAbuseFlagged, errs); ok {
		patch.abuseFlagged = &v
	}
	if v, ok := payload.Bool(contentpolicy.FieldVoted, errs); ok {
		patch.voted = &v
	}

	if patch.bodyEdited && isAuthor {
		patch.editReasonCode = ""
	}

	if len(errs) > 0 {
		return nil, apierr.NewValidationMap(errs)
	}
	return patch, nil
}

func (h *Handler) applyCommentPatch(ctx context.Context, comment *models.Comment, rc *shared.ReqContext, patch *commentPatch) error {
	requester := rc.User.ID.Hex()

	if len(patch.fields) > 0 {
		if _, err := h.Forum.UpdateComment(ctx, comment.ID, rc.Course.ID, patch.fields); err != nil {
			return shared.MapForumError(err, "Comment not found.")
		}
	}

	if patch.abuseFlagged != nil {
		if err := h.Forum.FlagComment(ctx, comment.ID, rc.Course.ID, requester, *patch.abuseFlagged); err != nil {
			return shared.MapForumError(err, "Comment not found.")
		}
	}
	if patch.voted != nil {
		if err := h.Forum.VoteComment(ctx, comment.ID, rc.Course.ID, requester, *patch.voted); err != nil {
			return shared.MapForumError(err, "Comment not found.")
		}
	}

	if patch.bodyEdited && comment.AuthorID != requester {
		authorOID, _ := primitive.ObjectIDFromHex(comment.AuthorID)
		if err := h.Audit.ContentEdit(ctx, authorOID, rc.User.ID, rc.Course.ID, comment.ID, patch.editReasonCode); err != nil {
			h.Log.Error("failed to audit content edit", zap.Error(err))
		}
	}
	return nil
}
