// internal/app/forum/fake.go
package forum

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/opencampus/discusshub/internal/domain/models"
)

// Fake is an in-memory Client for tests. It implements enough backend
// behavior for the handlers and the bulk deleter to be exercised
// without a network.
type Fake struct {
	mu       sync.Mutex
	nextID   int
	Threads  map[string]*models.Thread
	Comments map[string]*models.Comment

	// FailWith, when set, is returned by every call.
	FailWith error

	DeletedThreads  []string
	DeletedComments []string
}

// NewFake creates an empty fake backend.
func NewFake() *Fake {
	return &Fake{
		Threads:  make(map[string]*models.Thread),
		Comments: make(map[string]*models.Comment),
	}
}

func (f *Fake) newID() string {
	f.nextID++
	return "fake-" + strconv.Itoa(f.nextID)
}

// SeedThread inserts a thread directly.
func (f *Fake) SeedThread(t models.Thread) *models.Thread {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ID == "" {
		t.ID = f.newID()
	}
	cp := t
	f.Threads[cp.ID] = &cp
	return &cp
}

// SeedComment inserts a comment directly.
func (f *Fake) SeedComment(c models.Comment) *models.Comment {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID == "" {
		c.ID = f.newID()
	}
	cp := c
	f.Comments[cp.ID] = &cp
	return &cp
}

func (f *Fake) GetThread(_ context.Context, id, courseID, _ string, withResponses bool) (*models.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWith != nil {
		return nil, f.FailWith
	}
	t, ok := f.Threads[id]
	if !ok || (courseID != "" && t.CourseID != courseID) {
		return nil, ErrNotFound
	}
	cp := *t
	if withResponses {
		for _, c := range f.sortedComments() {
			if c.ThreadID == id && c.ParentID == "" {
				cp.CommentCount++
			}
		}
	}
	return &cp, nil
}

func (f *Fake) CreateThread(_ context.Context, req ThreadCreate) (*models.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWith != nil {
		return nil, f.FailWith
	}
	t := &models.Thread{
		ID:               f.newID(),
		CourseID:         req.CourseID,
		AuthorID:         req.AuthorID,
		Username:         req.Username,
		TopicID:          req.TopicID,
		Type:             req.Type,
		Title:            req.Title,
		Body:             req.Body,
		Anonymous:        req.Anonymous,
		AnonymousToPeers: req.AnonymousToPeers,
		GroupID:          req.GroupID,
	}
	f.Threads[t.ID] = t
	cp := *t
	return &cp, nil
}

func (f *Fake) UpdateThread(_ context.Context, id, courseID string, fields map[string]any) (*models.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWith != nil {
		return nil, f.FailWith
	}
	t, ok := f.Threads[id]
	if !ok || (courseID != "" && t.CourseID != courseID) {
		return nil, ErrNotFound
	}
	applyThreadFields(t, fields)
	cp := *t
	return &cp, nil
}

func applyThreadFields(t *models.Thread, fields map[string]any) {
	for k, v := range fields {
		switch k {
		case "body":
			t.Body, _ = v.(string)
		case "title":
			t.Title, _ = v.(string)
		case "commentable_id":
			t.TopicID, _ = v.(string)
		case "thread_type":
			t.Type, _ = v.(string)
		case "closed":
			t.Closed, _ = v.(bool)
		case "pinned":
			t.Pinned, _ = v.(bool)
		case "close_reason_code":
			t.CloseReasonCode, _ = v.(string)
		case "closing_user_id":
			t.ClosingUserID, _ = v.(string)
		case "closed_by":
			t.ClosedBy, _ = v.(string)
		case "anonymous":
			t.Anonymous, _ = v.(bool)
		case "anonymous_to_peers":
			t.AnonymousToPeers, _ = v.(bool)
		case "group_id":
			switch n := v.(type) {
			case int64:
				t.GroupID = &n
			case float64:
				g := int64(n)
				t.GroupID = &g
			}
		}
	}
}

func (f *Fake) DeleteThread(_ context.Context, id, courseID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWith != nil {
		return f.FailWith
	}
	t, ok := f.Threads[id]
	if !ok || (courseID != "" && t.CourseID != courseID) {
		return ErrNotFound
	}
	delete(f.Threads, id)
	for cid, c := range f.Comments {
		if c.ThreadID == id {
			delete(f.Comments, cid)
		}
	}
	f.DeletedThreads = append(f.DeletedThreads, id)
	return nil
}

func (f *Fake) GetComment(_ context.Context, id, courseID string) (*models.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWith != nil {
		return nil, f.FailWith
	}
	c, ok := f.Comments[id]
	if !ok || (courseID != "" && c.CourseID != courseID) {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *Fake) CreateParentComment(_ context.Context, req CommentCreate) (*models.Comment, error) {
	return f.createComment(req, 0)
}

func (f *Fake) CreateChildComment(_ context.Context, req CommentCreate) (*models.Comment, error) {
	f.mu.Lock()
	parent, ok := f.Comments[req.ParentID]
	if !ok {
		f.mu.Unlock()
		return nil, ErrNotFound
	}
	req.ThreadID = parent.ThreadID
	depth := parent.Depth + 1
	f.mu.Unlock()
	return f.createComment(req, depth)
}

func (f *Fake) createComment(req CommentCreate, depth int) (*models.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWith != nil {
		return nil, f.FailWith
	}
	c := &models.Comment{
		ID:               f.newID(),
		CourseID:         req.CourseID,
		ThreadID:         req.ThreadID,
		ParentID:         req.ParentID,
		AuthorID:         req.AuthorID,
		Username:         req.Username,
		Body:             req.Body,
		Anonymous:        req.Anonymous,
		AnonymousToPeers: req.AnonymousToPeers,
		Depth:            depth,
	}
	f.Comments[c.ID] = c
	cp := *c
	return &cp, nil
}

func (f *Fake) UpdateComment(_ context.Context, id, courseID string, fields map[string]any) (*models.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWith != nil {
		return nil, f.FailWith
	}
	c, ok := f.Comments[id]
	if !ok || (courseID != "" && c.CourseID != courseID) {
		return nil, ErrNotFound
	}
	for k, v := range fields {
		switch k {
		case "body":
			c.Body, _ = v.(string)
		case "endorsed":
			c.Endorsed, _ = v.(bool)
		}
	}
	cp := *c
	return &cp, nil
}

func (f *Fake) DeleteComment(_ context.Context, id, courseID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWith != nil {
		return f.FailWith
	}
	c, ok := f.Comments[id]
	if !ok || (courseID != "" && c.CourseID != courseID) {
		return ErrNotFound
	}
	delete(f.Comments, id)
	f.DeletedComments = append(f.DeletedComments, id)
	return nil
}

func (f *Fake) sortedComments() []*models.Comment {
	out := make([]*models.Comment, 0, len(f.Comments))
	for _, c := range f.Comments {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *Fake) ThreadComments(_ context.Context, threadID, courseID string, _, _ int) (CommentPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWith != nil {
		return CommentPage{}, f.FailWith
	}
	var page CommentPage
	for _, c := range f.sortedComments() {
		if c.ThreadID == threadID && c.CourseID == courseID {
			page.Comments = append(page.Comments, *c)
		}
	}
	page.Page, page.NumPages, page.TotalCount = 1, 1, len(page.Comments)
	return page, nil
}

func (f *Fake) UserComments(_ context.Context, username, courseID string, _, _ int) (CommentPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWith != nil {
		return CommentPage{}, f.FailWith
	}
	var page CommentPage
	for _, c := range f.sortedComments() {
		if c.Username == username && c.CourseID == courseID {
			page.Comments = append(page.Comments, *c)
		}
	}
	page.Page, page.NumPages, page.TotalCount = 1, 1, len(page.Comments)
	return page, nil
}

func (f *Fake) FlagThread(_ context.Context, id, courseID, userID string, flagged bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.Threads[id]
	if !ok || (courseID != "" && t.CourseID != courseID) {
		return ErrNotFound
	}
	t.AbuseFlaggers = toggleMember(t.AbuseFlaggers, userID, flagged)
	return nil
}

func (f *Fake) FlagComment(_ context.Context, id, courseID, userID string, flagged bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.Comments[id]
	if !ok || (courseID != "" && c.CourseID != courseID) {
		return ErrNotFound
	}
	c.AbuseFlaggers = toggleMember(c.AbuseFlaggers, userID, flagged)
	return nil
}

func toggleMember(members []string, id string, present bool) []string {
	idx := -1
	for i, m := range members {
		if m == id {
			idx = i
			break
		}
	}
	if present && idx < 0 {
		return append(members, id)
	}
	if !present && idx >= 0 {
		return append(members[:idx], members[idx+1:]...)
	}
	return members
}

func (f *Fake) VoteThread(_ context.Context, id, courseID, _ string, voted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.Threads[id]
	if !ok || (courseID != "" && t.CourseID != courseID) {
		return ErrNotFound
	}
	if voted {
		t.Votes.UpCount++
	} else if t.Votes.UpCount > 0 {
		t.Votes.UpCount--
	}
	return nil
}

func (f *Fake) VoteComment(_ context.Context, id, courseID, _ string, voted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.Comments[id]
	if !ok || (courseID != "" && c.CourseID != courseID) {
		return ErrNotFound
	}
	if voted {
		c.Votes.UpCount++
	} else if c.Votes.UpCount > 0 {
		c.Votes.UpCount--
	}
	return nil
}

func (f *Fake) PinThread(_ context.Context, id, courseID, _ string, pinned bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.Threads[id]
	if !ok || (courseID != "" && t.CourseID != courseID) {
		return ErrNotFound
	}
	t.Pinned = pinned
	return nil
}

func (f *Fake) Subscribe(context.Context, string, string, string, bool) error { return nil }

func (f *Fake) MarkThreadRead(context.Context, string, string, string) error { return nil }

func (f *Fake) SearchThreads(_ context.Context, params SearchParams) (ThreadPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWith != nil {
		return ThreadPage{}, f.FailWith
	}
	var page ThreadPage
	ids := make([]string, 0, len(f.Threads))
	for id := range f.Threads {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		t := f.Threads[id]
		if t.CourseID != params.CourseID {
			continue
		}
		if params.Author != "" && t.Username != params.Author {
			continue
		}
		if params.ThreadType != "" && t.Type != params.ThreadType {
			continue
		}
		if params.Flagged && len(t.AbuseFlaggers) == 0 {
			continue
		}
		page.Threads = append(page.Threads, *t)
	}
	page.Page, page.NumPages, page.TotalCount = 1, 1, len(page.Threads)
	return page, nil
}

func (f *Fake) UserThreads(ctx context.Context, username, courseID string, page, pageSize int) (ThreadPage, error) {
	return f.SearchThreads(ctx, SearchParams{CourseID: courseID, Author: username, Page: page, PageSize: pageSize})
}

func (f *Fake) UserActiveThreads(_ context.Context, userID, courseID string, _, _ int) (ThreadPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWith != nil {
		return ThreadPage{}, f.FailWith
	}
	active := make(map[string]bool)
	for _, t := range f.Threads {
		if t.CourseID == courseID && t.AuthorID == userID {
			active[t.ID] = true
		}
	}
	for _, c := range f.Comments {
		if c.CourseID == courseID && c.AuthorID == userID {
			active[c.ThreadID] = true
		}
	}
	var page ThreadPage
	ids := make([]string, 0, len(active))
	for id := range active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if t, ok := f.Threads[id]; ok {
			page.Threads = append(page.Threads, *t)
		}
	}
	page.Page, page.NumPages, page.TotalCount = 1, 1, len(page.Threads)
	return page, nil
}

func (f *Fake) UserCourseStats(_ context.Context, username, courseID string) (UserCourseStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var stats UserCourseStats
	for _, t := range f.Threads {
		if t.CourseID == courseID && t.Username == username {
			stats.Threads++
		}
	}
	for _, c := range f.Comments {
		if c.CourseID != courseID || c.Username != username {
			continue
		}
		if c.ParentID == "" {
			stats.Comments++
		} else {
			stats.Replies++
		}
	}
	return stats, nil
}

func (f *Fake) CommentableCounts(_ context.Context, courseID string) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[string]int)
	for _, t := range f.Threads {
		if t.CourseID == courseID {
			counts[t.TopicID]++
		}
	}
	return counts, nil
}

func (f *Fake) UpvotedIDs(context.Context, string, string) ([]string, error) { return nil, nil }

func (f *Fake) RetireUser(context.Context, string) error { return nil }

func (f *Fake) ReplaceUsername(_ context.Context, userID, newUsername string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.Threads {
		if t.AuthorID == userID {
			t.Username = newUsername
		}
	}
	for _, c := range f.Comments {
		if c.AuthorID == userID {
			c.Username = newUsername
		}
	}
	return nil
}

var _ Client = (*Fake)(nil)
