// internal/app/features/threads/create.go
package threads

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/opencampus/discusshub/internal/app/features/shared"
	"github.com/opencampus/discusshub/internal/app/forum"
	"github.com/opencampus/discusshub/internal/app/policy/contentpolicy"
	"github.com/opencampus/discusshub/internal/app/system/apierr"
	"github.com/opencampus/discusshub/internal/app/system/timeouts"
	"github.com/opencampus/discusshub/internal/domain/models"
)

// captchaTokenField rides alongside the thread fields on create and is
// consumed by the gate chain, not the thread payload.
const captchaTokenField = "captcha_token"

// HandleCreate creates a thread: POST /threads.
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

	courseID, _ := payload.String(contentpolicy.FieldCourseID, errs)
	if courseID == "" {
		apierr.Write(w, apierr.NewValidation(contentpolicy.FieldCourseID, shared.MsgRequired))
		return
	}

	rc, err := h.Resolver.Resolve(ctx, r, courseID)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	polCtx := contentpolicy.Context{
		RoleSet:     rc.RoleSet,
		Course:      rc.Course,
		RequesterID: rc.User.ID.Hex(),
	}
	allowed := contentpolicy.ThreadInitializableFields(polCtx)
	for field := range payload {
		if !allowed.Has(field) {
			errs[field] = shared.MsgNotAllowedCreate
		}
	}

	req := forum.ThreadCreate{
		CourseID: rc.Course.ID,
		AuthorID: rc.User.ID.Hex(),
		Username: rc.User.Username,
	}
	req.Type = requiredString(payload, contentpolicy.FieldType, errs)
	req.Title = requiredString(payload, contentpolicy.FieldTitle, errs)
	req.Body = requiredString(payload, contentpolicy.FieldRawBody, errs)
	req.TopicID = requiredString(payload, contentpolicy.FieldTopicID, errs)

	if req.Type != "" && req.Type != models.ThreadTypeDiscussion && req.Type != models.ThreadTypeQuestion {
		errs[contentpolicy.FieldType] = `"` + req.Type + `" is not a valid choice.`
	}
	if v, ok := payload.Bool(contentpolicy.FieldAnonymous, errs); ok {
		req.Anonymous = v
	}
	if v, ok := payload.Bool(contentpolicy.FieldAnonymousToPeers, errs); ok {
		req.AnonymousToPeers = v
	}
	if v, ok := payload.Int64(contentpolicy.FieldGroupID, errs); ok {
		req.GroupID = &v
	}
	following, _ := payload.Bool(contentpolicy.FieldFollowing, errs)

	if len(errs) > 0 {
		apierr.Write(w, apierr.NewValidationMap(errs))
		return
	}

	if err := h.Gate.CheckPost(ctx, rc.User, rc.Course, rc.RoleSet, captchaToken); err != nil {
		apierr.Write(w, err)
		return
	}

	thread, err := h.Forum.CreateThread(ctx, req)
	if err != nil {
		apierr.Write(w, shared.MapForumError(err, "Thread not found."))
		return
	}

	if following {
		if err := h.Forum.Subscribe(ctx, rc.User.ID.Hex(), thread.ID, rc.Course.ID, true); err != nil {
			h.Log.Warn("failed to subscribe author to new thread", zap.Error(err))
		} else {
			thread.Following = true
		}
	}

	view, err := h.Serializer.Thread(ctx, thread, rc.Env())
	if err != nil {
		apierr.Write(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, view)
}

// requiredString enforces presence and non-blankness.
func requiredString(p shared.Payload, field string, errs map[string]string) string {
	s, ok := p.String(field, errs)
	if errs[field] != "" {
		return ""
	}
	if !ok {
		errs[field] = shared.MsgRequired
		return ""
	}
	if s == "" {
		errs[field] = shared.MsgBlank
		return ""
	}
	return s
}
