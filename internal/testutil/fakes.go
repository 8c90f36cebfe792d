// Package testutil holds in-memory collaborators shared by package tests.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/maheshrc27/agency-planner/internal/apperr"
	"github.com/maheshrc27/agency-planner/internal/models"
	"github.com/maheshrc27/agency-planner/internal/repository"
	"github.com/maheshrc27/agency-planner/internal/transfer"
)

// Posts is an in-memory repository.PostRepository. The hook fields inject
// failures; they run before the fake touches its state.
type Posts struct {
	mu    sync.Mutex
	posts map[string]models.Post

	OnUpdate func(id string, patch models.PostPatch) error
	OnRemove func(id string) error
	OnList   func(ctx context.Context, opts repository.ListOptions) error

	Updates []string
	Removed []string
	Lists   []repository.ListOptions
}

func NewPosts(posts ...models.Post) *Posts {
	f := &Posts{posts: make(map[string]models.Post)}
	for _, p := range posts {
		f.posts[p.ID] = p.Clone()
	}
	return f
}

func (f *Posts) Put(p models.Post) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts[p.ID] = p.Clone()
}

func (f *Posts) Stored(id string) (models.Post, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	return p.Clone(), ok
}

func (f *Posts) UpdateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Updates)
}

func (f *Posts) Create(_ context.Context, _ *sql.Tx, post *models.Post) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	f.posts[post.ID] = post.Clone()
	return post.ID, nil
}

func (f *Posts) GetByID(_ context.Context, id string) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok {
		return nil, nil
	}
	cp := p.Clone()
	return &cp, nil
}

func (f *Posts) sorted(keep func(models.Post) bool) []*models.Post {
	var out []*models.Post
	for _, p := range f.posts {
		if keep(p) {
			cp := p.Clone()
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (f *Posts) ListByProjectID(ctx context.Context, projectID string, opts repository.ListOptions) ([]*models.Post, error) {
	f.mu.Lock()
	f.Lists = append(f.Lists, opts)
	hook := f.OnList
	f.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, opts); err != nil {
			return nil, err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.sorted(func(p models.Post) bool {
		return p.ProjectID == projectID && p.State != models.PostStateArchived && p.State != models.PostStateDeleted
	})
	if opts.Limit <= 0 {
		return all, nil
	}
	if opts.Offset >= len(all) {
		return nil, nil
	}
	end := min(opts.Offset+opts.Limit, len(all))
	return all[opts.Offset:end], nil
}

func (f *Posts) ListScheduledFrom(_ context.Context, projectID, fromDate string) ([]*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sorted(func(p models.Post) bool {
		return p.ProjectID == projectID && p.IsScheduled() && p.ScheduledDate >= fromDate
	}), nil
}

func (f *Posts) ListByLateStatus(_ context.Context, status models.LateStatus, limit int) ([]*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.sorted(func(p models.Post) bool {
		return p.LateStatus == status && p.ExternalPostID != ""
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *Posts) Update(_ context.Context, id string, patch models.PostPatch) error {
	f.mu.Lock()
	hook := f.OnUpdate
	f.Updates = append(f.Updates, id)
	f.mu.Unlock()

	if hook != nil {
		if err := hook(id, patch); err != nil {
			return err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok {
		return apperr.NotFound("post", id)
	}
	patch.Apply(&p)
	p.UpdatedAt = time.Now()
	f.posts[id] = p
	return nil
}

func (f *Posts) Remove(_ context.Context, id string) error {
	f.mu.Lock()
	hook := f.OnRemove
	f.mu.Unlock()

	if hook != nil {
		if err := hook(id); err != nil {
			return err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.posts, id)
	f.Removed = append(f.Removed, id)
	return nil
}

type Accounts struct {
	mu       sync.Mutex
	accounts []models.SocialAccount
	Calls    int
}

func NewAccounts(accounts ...models.SocialAccount) *Accounts {
	return &Accounts{accounts: accounts}
}

func (f *Accounts) GetByID(_ context.Context, id string) (*models.SocialAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sa := range f.accounts {
		if sa.ID == id {
			cp := sa
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *Accounts) ListByScope(_ context.Context, clientID, projectID string) ([]*models.SocialAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	var out []*models.SocialAccount
	for _, sa := range f.accounts {
		if sa.ClientID == clientID && (sa.ProjectID == "" || sa.ProjectID == projectID) {
			cp := sa
			out = append(out, &cp)
		}
	}
	return out, nil
}

type History struct {
	mu       sync.Mutex
	Attempts []models.PublishAttempt
}

func (f *History) Create(_ context.Context, pa *models.PublishAttempt) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pa.ID = int64(len(f.Attempts) + 1)
	f.Attempts = append(f.Attempts, *pa)
	return pa.ID, nil
}

func (f *History) ListByPostID(_ context.Context, postID string) ([]*models.PublishAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.PublishAttempt
	for _, pa := range f.Attempts {
		if pa.PostID == postID {
			cp := pa
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Steps lists the recorded steps for postID in order.
func (f *History) Steps(postID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, pa := range f.Attempts {
		if pa.PostID == postID {
			out = append(out, pa.Step)
		}
	}
	return out
}

type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*models.ApprovalSession
}

func NewSessions(sessions ...models.ApprovalSession) *Sessions {
	f := &Sessions{sessions: make(map[string]*models.ApprovalSession)}
	for _, s := range sessions {
		cp := s
		cp.SelectedPostIDs = slices.Clone(s.SelectedPostIDs)
		f.sessions[s.Token] = &cp
	}
	return f
}

func (f *Sessions) Create(_ context.Context, s *models.ApprovalSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s.CreatedAt = time.Now()
	cp := *s
	cp.SelectedPostIDs = slices.Clone(s.SelectedPostIDs)
	f.sessions[s.Token] = &cp
	return nil
}

func (f *Sessions) GetByToken(_ context.Context, token string) (*models.ApprovalSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[token]
	if !ok {
		return nil, nil
	}
	cp := *s
	cp.SelectedPostIDs = slices.Clone(s.SelectedPostIDs)
	return &cp, nil
}

func (f *Sessions) RemovePost(_ context.Context, postID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, s := range f.sessions {
		if i := slices.Index(s.SelectedPostIDs, postID); i >= 0 {
			s.SelectedPostIDs = slices.Delete(s.SelectedPostIDs, i, i+1)
			n++
		}
	}
	return n, nil
}

func (f *Sessions) DisableExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, s := range f.sessions {
		if s.Enabled && !now.Before(s.ExpiresAt) {
			s.Enabled = false
			n++
		}
	}
	return n, nil
}

// All returns every stored session.
func (f *Sessions) All() []models.ApprovalSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.ApprovalSession, 0, len(f.sessions))
	for _, s := range f.sessions {
		cp := *s
		cp.SelectedPostIDs = slices.Clone(s.SelectedPostIDs)
		out = append(out, cp)
	}
	return out
}

type Projects struct {
	Clients  map[string]*models.Client
	Projects map[string]*models.Project
}

func NewProjects(client models.Client, projects ...models.Project) *Projects {
	f := &Projects{
		Clients:  map[string]*models.Client{client.ID: &client},
		Projects: make(map[string]*models.Project),
	}
	for _, p := range projects {
		cp := p
		f.Projects[p.ID] = &cp
	}
	return f
}

func (f *Projects) GetProject(_ context.Context, id string) (*models.Project, error) {
	return f.Projects[id], nil
}

func (f *Projects) ListByClientID(_ context.Context, clientID string) ([]*models.Project, error) {
	var out []*models.Project
	for _, p := range f.Projects {
		if p.ClientID == clientID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *Projects) GetClient(_ context.Context, id string) (*models.Client, error) {
	return f.Clients[id], nil
}

// Platform fakes the scheduling API. It records calls in order.
type Platform struct {
	mu sync.Mutex

	UploadErr   error
	ScheduleErr error
	DeleteErr   error
	Statuses    map[string]models.LateStatus

	Calls     []string
	Scheduled []transfer.ScheduleRequest
	Deleted   []string
	next      int
}

func (f *Platform) record(call string) {
	f.Calls = append(f.Calls, call)
}

func (f *Platform) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

func (f *Platform) UploadMedia(_ context.Context, name, _ string, _ []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("upload:" + name)
	if f.UploadErr != nil {
		return "", f.UploadErr
	}
	return "https://media.example.com/" + name, nil
}

func (f *Platform) SchedulePost(_ context.Context, req transfer.ScheduleRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("schedule:" + req.ExternalAccountID)
	if f.ScheduleErr != nil {
		return "", f.ScheduleErr
	}
	f.Scheduled = append(f.Scheduled, req)
	f.next++
	return fmt.Sprintf("ext-%d", f.next), nil
}

func (f *Platform) DeletePost(_ context.Context, externalID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("delete:" + externalID)
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.Deleted = append(f.Deleted, externalID)
	return nil
}

func (f *Platform) GetPostStatus(_ context.Context, externalID string) (models.LateStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("status:" + externalID)
	if s, ok := f.Statuses[externalID]; ok {
		return s, nil
	}
	return models.LateStatusScheduled, nil
}

// Media fakes step one of publishing.
type Media struct {
	mu    sync.Mutex
	Err   error
	Calls []string
}

func (f *Media) UploadMedia(_ context.Context, imageRef string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, imageRef)
	if f.Err != nil {
		return "", f.Err
	}
	return "https://media.example.com/" + imageRef, nil
}

func (f *Media) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

type Objects map[string][]byte

func (o Objects) GetObject(_ context.Context, key string) ([]byte, error) {
	b, ok := o[key]
	if !ok {
		return nil, apperr.NotFound("object", key)
	}
	return b, nil
}

var (
	_ repository.PostRepository            = (*Posts)(nil)
	_ repository.SocialAccountRepository   = (*Accounts)(nil)
	_ repository.PublishHistoryRepository  = (*History)(nil)
	_ repository.ApprovalSessionRepository = (*Sessions)(nil)
	_ repository.ProjectRepository         = (*Projects)(nil)
)
