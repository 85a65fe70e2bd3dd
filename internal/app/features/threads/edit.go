// internal/app/features/threads/edit.go
package threads

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

// threadPatch is the validated outcome of a PATCH payload.
type threadPatch struct {
	fields map[string]any // forum update fields

	// toggles handled by dedicated backend verbs
	abuseFlagged *bool
	voted        *bool
	read         bool
	following    *bool

	bodyEdited      bool
	editReasonCode  string
	closedChanged   bool
	closedNow       bool
	closeReasonCode string
}

// HandleUpdate applies a merge patch to a thread:
// PATCH /threads/{threadID}.
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

	if err := h.Gate.CheckUpdate(ctx, rc.User, rc.Course, rc.RoleSet); err != nil {
		apierr.Write(w, err)
		return
	}

	patch, err := h.validateThreadPatch(payload, thread, rc)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	if err := h.applyThreadPatch(ctx, thread, rc, patch); err != nil {
		apierr.Write(w, err)
		return
	}

	// Reload under the requester so toggles and edits are reflected.
	updated, err := h.Forum.GetThread(ctx, threadID, rc.Course.ID, rc.User.ID.Hex(), false)
	if err != nil {
		apierr.Write(w, shared.MapForumError(err, "Thread not found."))
		return
	}
	view, err := h.Serializer.Thread(ctx, updated, h.Resolver.EnvWithVotes(ctx, rc))
	if err != nil {
		apierr.Write(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) validateThreadPatch(payload shared.Payload, thread *models.Thread, rc *shared.ReqContext) (*threadPatch, error) {
	polCtx := contentpolicy.Context{
		RoleSet:     rc.RoleSet,
		Course:      rc.Course,
		RequesterID: rc.User.ID.Hex(),
	}
	editable := contentpolicy.ThreadEditableFields(thread, polCtx)
	isAuthor := thread.AuthorID == rc.User.ID.Hex()

	errs := make(map[string]string)
	for field := range payload {
		if editable.Has(field) {
			continue
		}
		if field == contentpolicy.FieldCourseID {
			errs[field] = shared.MsgNotAllowedUpdate
		} else {
			errs[field] = shared.MsgNotEditable
		}
	}

	patch := &threadPatch{fields: make(map[string]any)}

	if body, ok := payload.String(contentpolicy.FieldRawBody, errs); ok && errs[contentpolicy.FieldRawBody] == "" {
		if body == "" {
			errs[contentpolicy.FieldRawBody] = shared.MsgBlank
		} else if body != thread.Body {
			patch.fields["body"] = body
			patch.fields["editing_user_id"] = rc.User.ID.Hex()
			patch.bodyEdited = true
		}
	}
	if title, ok := payload.String(contentpolicy.FieldTitle, errs); ok && errs[contentpolicy.FieldTitle] == "" {
		if title == "" {
			errs[contentpolicy.FieldTitle] = shared.MsgBlank
		} else {
			patch.fields["title"] = title
		}
	}
	if topic, ok := payload.String(contentpolicy.FieldTopicID, errs); ok && errs[contentpolicy.FieldTopicID] == "" {
		if topic == "" {
			errs[contentpolicy.FieldTopicID] = shared.MsgBlank
		} else {
			patch.fields["commentable_id"] = topic
		}
	}
	if typ, ok := payload.String(contentpolicy.FieldType, errs); ok && errs[contentpolicy.FieldType] == "" {
		if typ != models.ThreadTypeDiscussion && typ != models.ThreadTypeQuestion {
			errs[contentpolicy.FieldType] = `"` + typ + `" is not a valid choice.`
		} else {
			patch.fields["thread_type"] = typ
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

	if closed, ok := payload.Bool(contentpolicy.FieldClosed, errs); ok && closed != thread.Closed {
		patch.closedChanged = true
		patch.closedNow = closed
		patch.fields["closed"] = closed
		if closed {
			patch.fields["closing_user_id"] = rc.User.ID.Hex()
			patch.fields["closed_by"] = rc.User.Username
		} else {
			patch.fields["closing_user_id"] = ""
			patch.fields["closed_by"] = ""
			patch.fields["close_reason_code"] = ""
		}
	}
	if code, ok := payload.String(contentpolicy.FieldCloseReasonCode, errs); ok && errs[contentpolicy.FieldCloseReasonCode] == "" {
		if !reasons.ValidCloseReason(code) {
			errs[contentpolicy.FieldCloseReasonCode] = shared.MsgInvalidCloseCode
		} else {
			patch.closeReasonCode = code
			patch.fields["close_reason_code"] = code
		}
	}

	if pinned, ok := payload.Bool(contentpolicy.FieldPinned, errs); ok {
		patch.fields["pinned"] = pinned
	}
	if gid, ok := payload.Int64(contentpolicy.FieldGroupID, errs); ok {
		patch.fields["group_id"] = gid
	}
	if anon, ok := payload.Bool(contentpolicy.FieldAnonymous, errs); ok {
		patch.fields["anonymous"] = anon
	}
	if anonPeers, ok := payload.Bool(contentpolicy.FieldAnonymousToPeers, errs); ok {
		patch.fields["anonymous_to_peers"] = anonPeers
	}

	if v, ok := payload.Bool(contentpolicy.FieldAbuseFlagged, errs); ok {
		patch.abuseFlagged = &v
	}
	if v, ok := payload.Bool(contentpolicy.FieldVoted, errs); ok {
		patch.voted = &v
	}
	if v, ok := payload.Bool(contentpolicy.FieldRead, errs); ok && v {
		patch.read = true
	}
	if v, ok := payload.Bool(contentpolicy.FieldFollowing, errs); ok {
		patch.following = &v
	}

	// An edit reason from the author is meaningless; the policy already
	// excludes the field, this guards the audit row.
	if patch.bodyEdited && isAuthor {
		patch.editReasonCode = ""
	}

	if len(errs) > 0 {
		return nil, apierr.NewValidationMap(errs)
	}
	return patch, nil
}

func (h *Handler) applyThreadPatch(ctx context.Context, thread *models.Thread, rc *shared.ReqContext, patch *threadPatch) error {
	requester := rc.User.ID.Hex()

	if len(patch.fields) > 0 {
		if _, err := h.Forum.UpdateThread(ctx, thread.ID, rc.Course.ID, patch.fields); err != nil {
			return shared.MapForumError(err, "Thread not found.")
		}
	}

	if patch.abuseFlagged != nil {
		if err := h.Forum.FlagThread(ctx, thread.ID, rc.Course.ID, requester, *patch.abuseFlagged); err != nil {
			return shared.MapForumError(err, "Thread not found.")
		}
	}
	if patch.voted != nil {
		if err := h.Forum.VoteThread(ctx, thread.ID, rc.Course.ID, requester, *patch.voted); err != nil {
			return shared.MapForumError(err, "Thread not found.")
		}
	}
	if patch.read {
		if err := h.Forum.MarkThreadRead(ctx, requester, thread.ID, rc.Course.ID); err != nil {
			return shared.MapForumError(err, "Thread not found.")
		}
	}
	if patch.following != nil {
		if err := h.Forum.Subscribe(ctx, requester, thread.ID, rc.Course.ID, *patch.following); err != nil {
			return shared.MapForumError(err, "Thread not found.")
		}
	}

	authorOID, _ := primitive.ObjectIDFromHex(thread.AuthorID)

	if patch.closedChanged {
		if err := h.Audit.ThreadClose(ctx, authorOID, rc.User.ID, rc.Course.ID, thread.ID, patch.closeReasonCode, patch.closedNow); err != nil {
			h.Log.Error("failed to audit thread close", zap.Error(err))
		}
	}
	if patch.bodyEdited && thread.AuthorID != requester {
		if err := h.Audit.ContentEdit(ctx, authorOID, rc.User.ID, rc.Course.ID, thread.ID, patch.editReasonCode); err != nil {
			h.Log.Error("failed to audit content edit", zap.Error(err))
		}
	}
	return nil
}
