// internal/app/features/threads/list.go
package threads

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/opencampus/discusshub/internal/app/features/shared"
	"github.com/opencampus/discusshub/internal/app/forum"
	"github.com/opencampus/discusshub/internal/app/system/apierr"
	"github.com/opencampus/discusshub/internal/app/system/timeouts"
	"github.com/opencampus/discusshub/internal/domain/models"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// listResponse is the paged thread listing.
type listResponse struct {
	Results           []shared.ThreadView `json:"results"`
	Page              int                 `json:"page"`
	NumPages          int                 `json:"num_pages"`
	Count             int                 `json:"count"`
	TextSearchRewrite *string             `json:"text_search_rewrite,omitempty"`
}

// ServeList lists and searches threads: GET /threads?course_id=...
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	q := r.URL.Query()
	courseID := q.Get("course_id")
	if courseID == "" {
		apierr.Write(w, apierr.NewValidation("course_id", shared.MsgRequired))
		return
	}

	rc, err := h.Resolver.Resolve(ctx, r, courseID)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	params, err := listParams(q, rc)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	page, err := h.Forum.SearchThreads(ctx, params)
	if err != nil {
		apierr.Write(w, shared.MapForumError(err, "Course not found."))
		return
	}

	views, err := h.Serializer.Threads(ctx, page.Threads, h.Resolver.EnvWithVotes(ctx, rc))
	if err != nil {
		apierr.Write(w, err)
		return
	}

	resp := listResponse{
		Results:  views,
		Page:     page.Page,
		NumPages: page.NumPages,
		Count:    page.TotalCount,
	}
	if page.CorrectedText != "" {
		resp.TextSearchRewrite = &page.CorrectedText
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

func listParams(q map[string][]string, rc *shared.ReqContext) (forum.SearchParams, error) {
	get := func(name string) string {
		if vs := q[name]; len(vs) > 0 {
			return vs[0]
		}
		return ""
	}

	params := forum.SearchParams{
		CourseID:    rc.Course.ID,
		RequesterID: rc.User.ID.Hex(),
		Author:      get("author"),
		Text:        get("text_search"),
		Following:   get("following") == "true",
		Page:        1,
		PageSize:    defaultPageSize,
	}

	if v := get("topic_id"); v != "" {
		params.TopicIDs = strings.Split(v, ",")
	}

	if v := get("thread_type"); v != "" {
		if v != models.ThreadTypeDiscussion && v != models.ThreadTypeQuestion {
			return params, apierr.NewValidation("thread_type", `"`+v+`" is not a valid choice.`)
		}
		params.ThreadType = v
	}

	// Flag triage is a moderation view.
	if get("flagged") == "true" {
		if !rc.RoleSet.HasModerationPrivilege {
			return params, apierr.NewAuthorization("Only moderators may view flagged threads.")
		}
		params.Flagged = true
	}

	switch v := get("view"); v {
	case "", forum.ViewUnread, forum.ViewUnanswered, forum.ViewUnresponded:
		params.View = v
	default:
		return params, apierr.NewValidation("view", `"`+v+`" is not a valid choice.`)
	}

	switch v := get("order_by"); v {
	case "":
		params.OrderBy = forum.OrderLastActivity
	case forum.OrderLastActivity, forum.OrderCommentCount, forum.OrderVoteCount:
		params.OrderBy = v
	default:
		return params, apierr.NewValidation("order_by", `"`+v+`" is not a valid choice.`)
	}

	if v := get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return params, apierr.NewValidation("page", "Must be a positive integer.")
		}
		params.Page = n
	}
	if v := get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxPageSize {
			return params, apierr.NewValidation("page_size", "Must be a positive integer no larger than 100.")
		}
		params.PageSize = n
	}

	if v := get("group_id"); v != "" && rc.RoleSet.HasModerationPrivilege {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return params, apierr.NewValidation("group_id", shared.MsgExpectedInt)
		}
		params.GroupID = &n
	}

	return params, nil
}
