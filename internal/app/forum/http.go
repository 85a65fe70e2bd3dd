// internal/app/forum/http.go
package forum

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/opencampus/discusshub/internal/domain/models"
)

// HTTPClient talks to the comments backend over its v1 REST API.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewHTTP creates a client for the backend at baseURL. The timeout
// bounds every call including body read.
func NewHTTP(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// do issues one request and decodes the response into out when out is
// non-nil. Error mapping: 404 -> ErrNotFound, 503 -> ErrMaintenance,
// anything else non-2xx -> *StatusError.
func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("forum request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return ErrNotFound
	case resp.StatusCode == http.StatusServiceUnavailable:
		io.Copy(io.Discard, resp.Body)
		return ErrMaintenance
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if c.logger != nil {
			c.logger.Warn("forum backend error",
				zap.String("method", method),
				zap.String("path", path),
				zap.Int("status", resp.StatusCode))
		}
		return &StatusError{StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// courseQuery builds the course_id query pair. An empty course id is
// omitted; the backend then resolves the record by id alone.
func courseQuery(courseID string) url.Values {
	q := url.Values{}
	if courseID != "" {
		q.Set("course_id", courseID)
	}
	return q
}

func pageQuery(q url.Values, page, pageSize int) url.Values {
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		q.Set("per_page", strconv.Itoa(pageSize))
	}
	return q
}

type threadPageBody struct {
	Collection     []models.Thread `json:"collection"`
	Page           int             `json:"page"`
	NumPages       int             `json:"num_pages"`
	ThreadCount    int             `json:"thread_count"`
	CorrectedText  string          `json:"corrected_text"`
}

func (b threadPageBody) toPage() ThreadPage {
	return ThreadPage{
		Threads:       b.Collection,
		Page:          b.Page,
		NumPages:      b.NumPages,
		TotalCount:    b.ThreadCount,
		CorrectedText: b.CorrectedText,
	}
}

type commentPageBody struct {
	Collection   []models.Comment `json:"collection"`
	Page         int              `json:"page"`
	NumPages     int              `json:"num_pages"`
	CommentCount int              `json:"comment_count"`
}

func (b commentPageBody) toPage() CommentPage {
	return CommentPage{
		Comments:   b.Collection,
		Page:       b.Page,
		NumPages:   b.NumPages,
		TotalCount: b.CommentCount,
	}
}

func (c *HTTPClient) GetThread(ctx context.Context, id, courseID, requesterID string, withResponses bool) (*models.Thread, error) {
	q := courseQuery(courseID)
	if requesterID != "" {
		q.Set("user_id", requesterID)
	}
	if withResponses {
		q.Set("with_responses", "true")
	}
	var t models.Thread
	if err := c.do(ctx, http.MethodGet, "/threads/"+id, q, nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *HTTPClient) CreateThread(ctx context.Context, req ThreadCreate) (*models.Thread, error) {
	body := map[string]any{
		"course_id":          req.CourseID,
		"user_id":            req.AuthorID,
		"username":           req.Username,
		"commentable_id":     req.TopicID,
		"thread_type":        req.Type,
		"title":              req.Title,
		"body":               req.Body,
		"anonymous":          req.Anonymous,
		"anonymous_to_peers": req.AnonymousToPeers,
	}
	if req.GroupID != nil {
		body["group_id"] = *req.GroupID
	}
	var t models.Thread
	if err := c.do(ctx, http.MethodPost, "/"+req.TopicID+"/threads", nil, body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *HTTPClient) UpdateThread(ctx context.Context, id, courseID string, fields map[string]any) (*models.Thread, error) {
	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["course_id"] = courseID
	var t models.Thread
	if err := c.do(ctx, http.MethodPut, "/threads/"+id, nil, body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *HTTPClient) DeleteThread(ctx context.Context, id, courseID string) error {
	return c.do(ctx, http.MethodDelete, "/threads/"+id, courseQuery(courseID), nil, nil)
}

func (c *HTTPClient) GetComment(ctx context.Context, id, courseID string) (*models.Comment, error) {
	var cm models.Comment
	if err := c.do(ctx, http.MethodGet, "/comments/"+id, courseQuery(courseID), nil, &cm); err != nil {
		return nil, err
	}
	return &cm, nil
}

func (c *HTTPClient) CreateParentComment(ctx context.Context, req CommentCreate) (*models.Comment, error) {
	return c.createComment(ctx, "/threads/"+req.ThreadID+"/comments", req)
}

func (c *HTTPClient) CreateChildComment(ctx context.Context, req CommentCreate) (*models.Comment, error) {
	return c.createComment(ctx, "/comments/"+req.ParentID, req)
}

func (c *HTTPClient) createComment(ctx context.Context, path string, req CommentCreate) (*models.Comment, error) {
	body := map[string]any{
		"course_id":          req.CourseID,
		"user_id":            req.AuthorID,
		"username":           req.Username,
		"body":               req.Body,
		"anonymous":          req.Anonymous,
		"anonymous_to_peers": req.AnonymousToPeers,
	}
	var cm models.Comment
	if err := c.do(ctx, http.MethodPost, path, nil, body, &cm); err != nil {
		return nil, err
	}
	return &cm, nil
}

func (c *HTTPClient) UpdateComment(ctx context.Context, id, courseID string, fields map[string]any) (*models.Comment, error) {
	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["course_id"] = courseID
	var cm models.Comment
	if err := c.do(ctx, http.MethodPut, "/comments/"+id, nil, body, &cm); err != nil {
		return nil, err
	}
	return &cm, nil
}

func (c *HTTPClient) DeleteComment(ctx context.Context, id, courseID string) error {
	return c.do(ctx, http.MethodDelete, "/comments/"+id, courseQuery(courseID), nil, nil)
}

func (c *HTTPClient) ThreadComments(ctx context.Context, threadID, courseID string, page, pageSize int) (CommentPage, error) {
	q := pageQuery(courseQuery(courseID), page, pageSize)
	var body commentPageBody
	if err := c.do(ctx, http.MethodGet, "/threads/"+threadID+"/comments", q, nil, &body); err != nil {
		return CommentPage{}, err
	}
	return body.toPage(), nil
}

func (c *HTTPClient) UserComments(ctx context.Context, username, courseID string, page, pageSize int) (CommentPage, error) {
	q := pageQuery(courseQuery(courseID), page, pageSize)
	q.Set("username", username)
	var body commentPageBody
	if err := c.do(ctx, http.MethodGet, "/comments", q, nil, &body); err != nil {
		return CommentPage{}, err
	}
	return body.toPage(), nil
}

func (c *HTTPClient) FlagThread(ctx context.Context, id, courseID, userID string, flagged bool) error {
	return c.flag(ctx, "/threads/"+id, courseID, userID, flagged)
}

func (c *HTTPClient) FlagComment(ctx context.Context, id, courseID, userID string, flagged bool) error {
	return c.flag(ctx, "/comments/"+id, courseID, userID, flagged)
}

func (c *HTTPClient) flag(ctx context.Context, base, courseID, userID string, flagged bool) error {
	action := "/abuse_flag"
	if !flagged {
		action = "/abuse_unflag"
	}
	body := map[string]any{"course_id": courseID, "user_id": userID}
	return c.do(ctx, http.MethodPut, base+action, nil, body, nil)
}

func (c *HTTPClient) VoteThread(ctx context.Context, id, courseID, userID string, voted bool) error {
	return c.vote(ctx, "/threads/"+id+"/votes", courseID, userID, voted)
}

func (c *HTTPClient) VoteComment(ctx context.Context, id, courseID, userID string, voted bool) error {
	return c.vote(ctx, "/comments/"+id+"/votes", courseID, userID, voted)
}

func (c *HTTPClient) vote(ctx context.Context, path, courseID, userID string, voted bool) error {
	if voted {
		body := map[string]any{"course_id": courseID, "user_id": userID, "value": "up"}
		return c.do(ctx, http.MethodPut, path, nil, body, nil)
	}
	q := courseQuery(courseID)
	q.Set("user_id", userID)
	return c.do(ctx, http.MethodDelete, path, q, nil, nil)
}

func (c *HTTPClient) PinThread(ctx context.Context, id, courseID, userID string, pinned bool) error {
	action := "/pin"
	if !pinned {
		action = "/unpin"
	}
	body := map[string]any{"course_id": courseID, "user_id": userID}
	return c.do(ctx, http.MethodPut, "/threads/"+id+action, nil, body, nil)
}

func (c *HTTPClient) Subscribe(ctx context.Context, userID, threadID, courseID string, subscribed bool) error {
	body := map[string]any{
		"course_id":   courseID,
		"source_type": "thread",
		"source_id":   threadID,
	}
	method := http.MethodPost
	if !subscribed {
		method = http.MethodDelete
	}
	return c.do(ctx, method, "/users/"+userID+"/subscriptions", nil, body, nil)
}

func (c *HTTPClient) MarkThreadRead(ctx context.Context, userID, threadID, courseID string) error {
	body := map[string]any{
		"course_id":   courseID,
		"source_type": "thread",
		"source_id":   threadID,
	}
	return c.do(ctx, http.MethodPost, "/users/"+userID+"/read", nil, body, nil)
}

func (c *HTTPClient) SearchThreads(ctx context.Context, params SearchParams) (ThreadPage, error) {
	q := pageQuery(courseQuery(params.CourseID), params.Page, params.PageSize)
	if params.RequesterID != "" {
		q.Set("user_id", params.RequesterID)
	}
	if len(params.TopicIDs) > 0 {
		q.Set("commentable_ids", strings.Join(params.TopicIDs, ","))
	}
	if params.Author != "" {
		q.Set("author_username", params.Author)
	}
	if params.ThreadType != "" {
		q.Set("thread_type", params.ThreadType)
	}
	if params.Flagged {
		q.Set("flagged", "true")
	}
	if params.Following {
		q.Set("subscribed", "true")
	}
	if params.View != "" {
		switch params.View {
		case ViewUnread:
			q.Set("unread", "true")
		case ViewUnanswered:
			q.Set("unanswered", "true")
		case ViewUnresponded:
			q.Set("unresponded", "true")
		}
	}
	if params.OrderBy != "" {
		q.Set("sort_key", params.OrderBy)
	}
	if params.GroupID != nil {
		q.Set("group_id", strconv.FormatInt(*params.GroupID, 10))
	}

	path := "/threads"
	if params.Text != "" {
		path = "/search/threads"
		q.Set("text", params.Text)
	}

	var body threadPageBody
	if err := c.do(ctx, http.MethodGet, path, q, nil, &body); err != nil {
		return ThreadPage{}, err
	}
	return body.toPage(), nil
}

func (c *HTTPClient) UserThreads(ctx context.Context, username, courseID string, page, pageSize int) (ThreadPage, error) {
	q := pageQuery(courseQuery(courseID), page, pageSize)
	q.Set("author_username", username)
	var body threadPageBody
	if err := c.do(ctx, http.MethodGet, "/threads", q, nil, &body); err != nil {
		return ThreadPage{}, err
	}
	return body.toPage(), nil
}

func (c *HTTPClient) UserActiveThreads(ctx context.Context, userID, courseID string, page, pageSize int) (ThreadPage, error) {
	q := pageQuery(courseQuery(courseID), page, pageSize)
	var body threadPageBody
	if err := c.do(ctx, http.MethodGet, "/users/"+userID+"/active_threads", q, nil, &body); err != nil {
		return ThreadPage{}, err
	}
	return body.toPage(), nil
}

func (c *HTTPClient) UserCourseStats(ctx context.Context, username, courseID string) (UserCourseStats, error) {
	q := url.Values{"usernames": {username}}
	var body struct {
		UserStats []struct {
			Username string `json:"username"`
			UserCourseStats
		} `json:"user_stats"`
	}
	if err := c.do(ctx, http.MethodGet, "/users/"+courseID+"/stats", q, nil, &body); err != nil {
		return UserCourseStats{}, err
	}
	for _, s := range body.UserStats {
		if s.Username == username {
			return s.UserCourseStats, nil
		}
	}
	return UserCourseStats{}, nil
}

func (c *HTTPClient) CommentableCounts(ctx context.Context, courseID string) (map[string]int, error) {
	var counts map[string]int
	if err := c.do(ctx, http.MethodGet, "/commentables/"+courseID+"/counts", nil, nil, &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

func (c *HTTPClient) UpvotedIDs(ctx context.Context, userID, courseID string) ([]string, error) {
	var body struct {
		IDs []string `json:"upvoted_ids"`
	}
	if err := c.do(ctx, http.MethodGet, "/users/"+userID+"/upvoted", courseQuery(courseID), nil, &body); err != nil {
		return nil, err
	}
	return body.IDs, nil
}

func (c *HTTPClient) RetireUser(ctx context.Context, userID string) error {
	body := map[string]any{"retired_username": "retired_user_" + userID}
	return c.do(ctx, http.MethodPost, "/users/"+userID+"/retire", nil, body, nil)
}

func (c *HTTPClient) ReplaceUsername(ctx context.Context, userID, newUsername string) error {
	body := map[string]any{"new_username": newUsername}
	return c.do(ctx, http.MethodPost, "/users/"+userID+"/replace_username", nil, body, nil)
}

var _ Client = (*HTTPClient)(nil)
