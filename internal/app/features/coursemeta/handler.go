// internal/app/features/coursemeta/handler.go

// Package coursemeta serves per-course discussion metadata: the course's
// discussion settings and the static moderation reason-code tables that
// clients render into pickers.
package coursemeta

import (
	"context"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/opencampus/discusshub/internal/app/features/shared"
	"github.com/opencampus/discusshub/internal/app/system/apierr"
	"github.com/opencampus/discusshub/internal/app/system/timeouts"
	"github.com/opencampus/discusshub/internal/domain/reasons"
)

// Handler serves course metadata endpoints.
type Handler struct {
	Log      *zap.Logger
	Resolver *shared.ContextResolver
}

// NewHandler constructs a coursemeta handler.
func NewHandler(log *zap.Logger, resolver *shared.ContextResolver) *Handler {
	return &Handler{Log: log, Resolver: resolver}
}

// reasonEntry pairs a code with its display label.
type reasonEntry struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

func sortedReasons(table map[string]string) []reasonEntry {
	out := make([]reasonEntry, 0, len(table))
	for code, label := range table {
		out = append(out, reasonEntry{Code: code, Label: label})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// ServeReasonCodes returns the edit and close reason tables:
// GET /reason_codes.
func (h *Handler) ServeReasonCodes(w http.ResponseWriter, _ *http.Request) {
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"edit_reasons":  sortedReasons(reasons.EditReasons),
		"close_reasons": sortedReasons(reasons.CloseReasons),
	})
}

// settingsView is the discussion settings for one course, annotated with
// the requester's standing.
type settingsView struct {
	ID                    string `json:"id"`
	AllowAnonymous        bool   `json:"allow_anonymous"`
	AllowAnonymousToPeers bool   `json:"allow_anonymous_to_peers"`
	DivisionScheme        string `json:"division_scheme,omitempty"`
	EnableDiscussionBan   bool   `json:"enable_discussion_ban"`
	CaptchaEnabled        bool   `json:"captcha_enabled"`

	IsPrivileged bool     `json:"is_privileged"`
	UserRoles    []string `json:"user_roles"`
}

// ServeSettings reports the course's discussion settings:
// GET /courses/{courseID}/settings.
func (h *Handler) ServeSettings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rc, err := h.Resolver.Resolve(ctx, r, chi.URLParam(r, "courseID"))
	if err != nil {
		apierr.Write(w, err)
		return
	}

	roleNames := rc.RoleSet.Roles
	if roleNames == nil {
		roleNames = []string{}
	}

	shared.WriteJSON(w, http.StatusOK, settingsView{
		ID:                    rc.Course.ID,
		AllowAnonymous:        rc.Course.AllowAnonymous,
		AllowAnonymousToPeers: rc.Course.AllowAnonymousToPeers,
		DivisionScheme:        rc.Course.DivisionScheme,
		EnableDiscussionBan:   rc.Course.EnableDiscussionBan,
		CaptchaEnabled:        rc.Course.CaptchaEnabled,
		IsPrivileged:          rc.RoleSet.HasModerationPrivilege,
		UserRoles:             roleNames,
	})
}
