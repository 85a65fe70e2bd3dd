// internal/app/features/comments/view.go
package comments

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/opencampus/discusshub/internal/app/features/shared"
	"github.com/opencampus/discusshub/internal/app/system/apierr"
	"github.com/opencampus/discusshub/internal/app/system/timeouts"
)

// listResponse is the paged comment listing for one thread.
type listResponse struct {
	Results  []shared.CommentView `json:"results"`
	Page     int                  `json:"page"`
	NumPages int                  `json:"num_pages"`
	Count    int                  `json:"count"`
}

// ServeView returns one comment with children:
// GET /comments/{commentID}.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
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

	view, err := h.Serializer.Comment(ctx, comment, thread, h.Resolver.EnvWithVotes(ctx, rc))
	if err != nil {
		apierr.Write(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, view)
}

// ServeList lists a thread's comments: GET /comments?thread_id=...
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	q := r.URL.Query()
	threadID := q.Get("thread_id")
	if threadID == "" {
		apierr.Write(w, apierr.NewValidation("thread_id", shared.MsgRequired))
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

	page := 1
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			apierr.Write(w, apierr.NewValidation("page", "Must be a positive integer."))
			return
		}
		page = n
	}
	pageSize := 10
	if v := q.Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			apierr.Write(w, apierr.NewValidation("page_size", "Must be a positive integer no larger than 100."))
			return
		}
		pageSize = n
	}

	result, err := h.Forum.ThreadComments(ctx, threadID, rc.Course.ID, page, pageSize)
	if err != nil {
		apierr.Write(w, shared.MapForumError(err, "Thread not found."))
		return
	}

	views, err := h.Serializer.Comments(ctx, result.Comments, thread, h.Resolver.EnvWithVotes(ctx, rc))
	if err != nil {
		apierr.Write(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, listResponse{
		Results:  views,
		Page:     result.Page,
		NumPages: result.NumPages,
		Count:    result.TotalCount,
	})
}
