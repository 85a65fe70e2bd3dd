// internal/app/features/moderation/handler.go
package moderation

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/opencampus/discusshub/internal/app/features/shared"
	"github.com/opencampus/discusshub/internal/app/store/jobs"
	"github.com/opencampus/discusshub/internal/app/system/apierr"
	"github.com/opencampus/discusshub/internal/app/system/auth"
	"github.com/opencampus/discusshub/internal/app/system/limits"
	"github.com/opencampus/discusshub/internal/app/system/timeouts"
	"github.com/opencampus/discusshub/internal/domain/models"
)

// Handler exposes the moderation service over HTTP.
type Handler struct {
	Log     *zap.Logger
	Service *Service
}

// NewHandler constructs a moderation handler.
func NewHandler(log *zap.Logger, service *Service) *Handler {
	return &Handler{Log: log, Service: service}
}

// decodeBody reads a size-capped JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	body := io.LimitReader(r.Body, limits.MaxModerationBodySize)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return apierr.NewValidation("non_field_errors", "Could not parse request body as a JSON object.")
	}
	return nil
}

// actor loads the requesting moderator's user record.
func (h *Handler) actor(ctx context.Context, r *http.Request) (*models.User, error) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		return nil, apierr.NewUnauthenticated("authentication required")
	}
	uid, err := primitive.ObjectIDFromHex(su.ID)
	if err != nil {
		return nil, apierr.NewUnauthenticated("authentication required")
	}
	user, err := h.Service.Users.GetByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apierr.NewUnauthenticated("authentication required")
	}
	return user, nil
}

// banRequestBody is the wire shape for ban and unban calls.
type banRequestBody struct {
	Username string `json:"username"`
	Scope    string `json:"scope"`
	CourseID string `json:"course_id"`
	OrgKey   string `json:"org_key"`
	Reason   string `json:"reason"`
}

func (b banRequestBody) toRequest() BanRequest {
	scope := b.Scope
	if scope == "" {
		scope = models.ScopeCourse
	}
	return BanRequest{
		Username: b.Username,
		Scope:    scope,
		CourseID: b.CourseID,
		OrgKey:   b.OrgKey,
		Reason:   b.Reason,
	}
}

// banView is the API shape of a ban record.
type banView struct {
	ID          string  `json:"id"`
	Scope       string  `json:"scope"`
	CourseID    string  `json:"course_id,omitempty"`
	OrgKey      string  `json:"org_key,omitempty"`
	Reason      string  `json:"reason"`
	IsActive    bool    `json:"is_active"`
	BannedAt    string  `json:"banned_at"`
	UnbannedAt  *string `json:"unbanned_at,omitempty"`
	Reactivated bool    `json:"reactivated,omitempty"`
}

func toBanView(ban *models.Ban, reactivated bool) banView {
	v := banView{
		ID:          ban.ID.Hex(),
		Scope:       ban.Scope,
		CourseID:    ban.CourseID,
		OrgKey:      ban.OrgKey,
		Reason:      ban.Reason,
		IsActive:    ban.IsActive,
		BannedAt:    ban.BannedAt.Format(time.RFC3339),
		Reactivated: reactivated,
	}
	if ban.UnbannedAt != nil {
		at := ban.UnbannedAt.Format(time.RFC3339)
		v.UnbannedAt = &at
	}
	return v
}

// HandleBan bans a user: POST /bans.
func (h *Handler) HandleBan(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	actor, err := h.actor(ctx, r)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	var body banRequestBody
	if err := decodeBody(r, &body); err != nil {
		apierr.Write(w, err)
		return
	}

	result, err := h.Service.BanUser(ctx, actor, body.toRequest())
	if err != nil {
		apierr.Write(w, err)
		return
	}

	status := http.StatusCreated
	if result.Reactivated {
		status = http.StatusOK
	}
	shared.WriteJSON(w, status, toBanView(result.Ban, result.Reactivated))
}

// HandleUnban lifts a ban by (username, scope, key): POST /unbans.
func (h *Handler) HandleUnban(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	actor, err := h.actor(ctx, r)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	var body banRequestBody
	if err := decodeBody(r, &body); err != nil {
		apierr.Write(w, err)
		return
	}

	result, err := h.Service.UnbanUser(ctx, actor, body.toRequest())
	if err != nil {
		apierr.Write(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toBanView(result.Ban, false))
}

// unbanByIDBody is the wire shape for lifting a ban by id.
type unbanByIDBody struct {
	CourseID string `json:"course_id"`
	Reason   string `json:"reason"`
}

// exceptionView is the API shape of a per-course exception.
type exceptionView struct {
	ID       string `json:"id"`
	BanID    string `json:"ban_id"`
	CourseID string `json:"course_id"`
	Reason   string `json:"reason"`
	Created  bool   `json:"created"`
}

// HandleUnbanByID lifts one ban: POST /bans/{banID}/unban.
func (h *Handler) HandleUnbanByID(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	actor, err := h.actor(ctx, r)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	var body unbanByIDBody
	if err := decodeBody(r, &body); err != nil {
		apierr.Write(w, err)
		return
	}

	result, err := h.Service.UnbanByID(ctx, actor, chi.URLParam(r, "banID"), body.CourseID, body.Reason)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	if result.Exception != nil {
		shared.WriteJSON(w, http.StatusOK, exceptionView{
			ID:       result.Exception.ID.Hex(),
			BanID:    result.Exception.BanID.Hex(),
			CourseID: result.Exception.CourseID,
			Reason:   result.Exception.Reason,
			Created:  result.ExceptionCreated,
		})
		return
	}
	shared.WriteJSON(w, http.StatusOK, toBanView(result.Ban, false))
}

// bulkDeleteBody is the wire shape for bulk cleanup.
type bulkDeleteBody struct {
	Username  string   `json:"username"`
	CourseIDs []string `json:"course_ids"`
	Ban       bool     `json:"ban"`
	BanScope  string   `json:"ban_scope"`
	Reason    string   `json:"reason"`
}

// HandleBulkDelete queues a bulk cleanup: POST /bulk_deletes.
func (h *Handler) HandleBulkDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	actor, err := h.actor(ctx, r)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	var body bulkDeleteBody
	if err := decodeBody(r, &body); err != nil {
		apierr.Write(w, err)
		return
	}
	scope := body.BanScope
	if body.Ban && scope == "" {
		scope = models.ScopeCourse
	}

	receipt, err := h.Service.BulkDelete(ctx, actor, BulkDeleteRequest{
		Username:  body.Username,
		CourseIDs: body.CourseIDs,
		Ban:       body.Ban,
		BanScope:  scope,
		Reason:    body.Reason,
	})
	if err != nil {
		apierr.Write(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusAccepted, receipt)
}

// taskView is the API shape of a deletion job.
type taskView struct {
	TaskID          string `json:"task_id"`
	Status          string `json:"status"`
	ThreadsDeleted  int    `json:"threads_deleted"`
	CommentsDeleted int    `json:"comments_deleted"`
	Failed          int    `json:"failed"`
	CancelRequested bool   `json:"cancel_requested"`
}

func toTaskView(job *jobs.DeletionJob) taskView {
	return taskView{
		TaskID:          job.TaskID,
		Status:          job.Status,
		ThreadsDeleted:  job.ThreadsDeleted,
		CommentsDeleted: job.CommentsDeleted,
		Failed:          job.Failed,
		CancelRequested: job.CancelRequested,
	}
}

// ServeTask reports a deletion job: GET /tasks/{taskID}.
func (h *Handler) ServeTask(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if _, err := h.actor(ctx, r); err != nil {
		apierr.Write(w, err)
		return
	}

	job, err := h.Service.Jobs.GetByTaskID(ctx, chi.URLParam(r, "taskID"))
	if err != nil {
		apierr.Write(w, err)
		return
	}
	if job == nil {
		apierr.Write(w, apierr.NewNotFound("Task not found."))
		return
	}
	shared.WriteJSON(w, http.StatusOK, toTaskView(job))
}

// HandleTaskCancel requests cancellation: POST /tasks/{taskID}/cancel.
func (h *Handler) HandleTaskCancel(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if _, err := h.actor(ctx, r); err != nil {
		apierr.Write(w, err)
		return
	}

	taskID := chi.URLParam(r, "taskID")
	ok, err := h.Service.Jobs.RequestCancel(ctx, taskID)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	if !ok {
		apierr.Write(w, apierr.NewNotFound("Task not found or already finished."))
		return
	}

	job, err := h.Service.Jobs.GetByTaskID(ctx, taskID)
	if err != nil || job == nil {
		apierr.Write(w, apierr.NewNotFound("Task not found."))
		return
	}
	shared.WriteJSON(w, http.StatusOK, toTaskView(job))
}

// ServeAuditLog lists moderation history: GET /audit?course_id=...
func (h *Handler) ServeAuditLog(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	actor, err := h.actor(ctx, r)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	q := r.URL.Query()
	query := AuditQuery{
		CourseID: q.Get("course_id"),
		Username: q.Get("username"),
		Action:   q.Get("action"),
		Source:   q.Get("source"),
	}
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			apierr.Write(w, apierr.NewValidation("page", "Must be a positive integer."))
			return
		}
		query.Offset = int64(n-1) * auditPageSize
	}
	query.Limit = auditPageSize

	entries, total, err := h.Service.AuditHistory(ctx, actor, query)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"results": entries,
		"count":   total,
	})
}

const auditPageSize = 50

// ServeBannedList lists effective bans for a course:
// GET /courses/{courseID}/banned?scope=...
func (h *Handler) ServeBannedList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	actor, err := h.actor(ctx, r)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	courseID := r.URL.Query().Get("course_id")
	scope := r.URL.Query().Get("scope")

	list, err := h.Service.ListBannedForCourse(ctx, actor, courseID, scope)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"results": list, "count": len(list)})
}
