// internal/app/features/comments/create.go
package comments

import (
	"context"
	"net/http"

	"github.com/opencampus/discusshub/internal/app/features/shared"
	"github.com/opencampus/discusshub/internal/app/forum"
	"github.com/opencampus/discusshub/internal/app/policy/contentpolicy"
	"github.com/opencampus/discusshub/internal/app/system/apierr"
	"github.com/opencampus/discusshub/internal/app/system/timeouts"
	"github.com/opencampus/discusshub/internal/domain/models"
)

const captchaTokenField = "captcha_token"

// Replies nest one level: a top-level comment may have children, the
// children may not.
const maxParentDepth = 0

// HandleCreate creates a comment: POST /comments.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	payload, err := shared.DecodePayload(r)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	errs := make(map[string]string)
	captchaToken, _ := payload.String(captchaTokenField, errs)
	delete(payload, captchaTokenField)

	threadID, _ := payload.String(contentpolicy.FieldThreadID, errs)
	if threadID == "" {
		apierr.Write(w, apierr.NewValidation(contentpolicy.FieldThreadID, shared.MsgRequired))
		return
	}

	thread, err := h.Forum.GetThread(ctx, threadID, "", "", false)
	if err != nil {
		apierr.Write(w, shared.MapForumError(err, "Thread not found."))
		return
	}

	rc, err := h.Resolver.Resolve(ctx, r, thread.CourseID)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	if thread.Closed && !rc.RoleSet.HasModerationPrivilege {
		apierr.Write(w, apierr.NewAuthorization("This thread is closed."))
		return
	}

	polCtx := contentpolicy.Context{
		RoleSet:     rc.RoleSet,
		Course:      rc.Course,
		RequesterID: rc.User.ID.Hex(),
		Thread:      thread,
	}
	allowed := contentpolicy.CommentInitializableFields(polCtx)
	for field := range payload {
		if !allowed.Has(field) {
			errs[field] = shared.MsgNotAllowedCreate
		}
	}

	req := forum.CommentCreate{
		CourseID: rc.Course.ID,
		ThreadID: thread.ID,
		AuthorID: rc.User.ID.Hex(),
		Username: rc.User.Username,
	}

	body, ok := payload.String(contentpolicy.FieldRawBody, errs)
	switch {
	case errs[contentpolicy.FieldRawBody] != "":
	case !ok:
		errs[contentpolicy.FieldRawBody] = shared.MsgRequired
	case body == "":
		errs[contentpolicy.FieldRawBody] = shared.MsgBlank
	default:
		req.Body = body
	}

	var parent *models.Comment
	if parentID, ok := payload.String(contentpolicy.FieldParentID, errs); ok && parentID != "" {
		parent, err = h.Forum.GetComment(ctx, parentID, rc.Course.ID)
		if err != nil {
			apierr.Write(w, shared.MapForumError(err, "Parent comment not found."))
			return
		}
		if parent.ThreadID != thread.ID {
			errs[contentpolicy.FieldParentID] = "Comment does not belong to this thread."
		} else if parent.Depth > maxParentDepth {
			errs[contentpolicy.FieldParentID] = "Comment level is too deep."
		}
		req.ParentID = parentID
	}

	if v, ok := payload.Bool(contentpolicy.FieldAnonymous, errs); ok {
		req.Anonymous = v
	}
	if v, ok := payload.Bool(contentpolicy.FieldAnonymousToPeers, errs); ok {
		req.AnonymousToPeers = v
	}

	if len(errs) > 0 {
		apierr.Write(w, apierr.NewValidationMap(errs))
		return
	}

	if err := h.Gate.CheckPost(ctx, rc.User, rc.Course, rc.RoleSet, captchaToken); err != nil {
		apierr.Write(w, err)
		return
	}

	var created *models.Comment
	if parent != nil {
		created, err = h.Forum.CreateChildComment(ctx, req)
	} else {
		created, err = h.Forum.CreateParentComment(ctx, req)
	}
	if err != nil {
		apierr.Write(w, shared.MapForumError(err, "Thread not found."))
		return
	}

	view, err := h.Serializer.Comment(ctx, created, thread, rc.Env())
	if err != nil {
		apierr.Write(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, view)
}
