package approval

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/maheshrc27/agency-planner/internal/apperr"
	"github.com/maheshrc27/agency-planner/internal/models"
	"github.com/maheshrc27/agency-planner/internal/store"
	"github.com/maheshrc27/agency-planner/internal/transfer"
)

// SessionCreator is the approval-session collaborator.
type SessionCreator interface {
	CreateSession(ctx context.Context, projectID, clientID string, postIDs []string) (*transfer.ShareSession, error)
}

type Summary struct {
	Pending        int `json:"pending"`
	Approved       int `json:"approved"`
	Rejected       int `json:"rejected"`
	NeedsAttention int `json:"needs_attention"`
}

// Overlay keeps the set of scheduled posts picked for a client approval
// round. Approval fields themselves are only ever read here; the client
// portal is their sole writer.
type Overlay struct {
	mu           sync.Mutex
	board        *store.PostStore
	sessions     SessionCreator
	authoringURL string
	selected     map[string]struct{}
}

func NewOverlay(board *store.PostStore, sessions SessionCreator, authoringURL string) *Overlay {
	return &Overlay{
		board:        board,
		sessions:     sessions,
		authoringURL: authoringURL,
		selected:     make(map[string]struct{}),
	}
}

// Toggle flips id in the selection and reports whether it is now selected.
// Only scheduled posts can be selected.
func (o *Overlay) Toggle(id string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.selected[id]; ok {
		delete(o.selected, id)
		return false, nil
	}
	if !o.board.IsScheduled(id) {
		return false, apperr.Validation("only scheduled posts can be sent for approval")
	}
	o.selected[id] = struct{}{}
	return true, nil
}

// SelectAll replaces the selection with every currently scheduled post.
func (o *Overlay) SelectAll() int {
	scheduled := o.board.Scheduled()

	o.mu.Lock()
	defer o.mu.Unlock()
	o.selected = make(map[string]struct{}, len(scheduled))
	for _, p := range scheduled {
		o.selected[p.ID] = struct{}{}
	}
	return len(o.selected)
}

func (o *Overlay) DeselectAll() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.selected = make(map[string]struct{})
}

// Selected returns the selected ids in board order. Ids whose post left
// the scheduled buckets are dropped.
func (o *Overlay) Selected() []string {
	scheduled := o.board.Scheduled()

	o.mu.Lock()
	defer o.mu.Unlock()
	ids := make([]string, 0, len(o.selected))
	for _, p := range scheduled {
		if _, ok := o.selected[p.ID]; ok {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

func (o *Overlay) IsSelected(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.selected[id]
	return ok
}

// Purge drops ids from the selection. Called when posts are archived or
// deleted.
func (o *Overlay) Purge(ids ...string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, id := range ids {
		delete(o.selected, id)
	}
}

func (o *Overlay) CreateShareSession(ctx context.Context, clientID string, ids []string) (*transfer.ShareSession, error) {
	if len(ids) == 0 {
		return nil, apperr.Validation("select at least one post to share")
	}
	for _, id := range ids {
		if !o.board.IsScheduled(id) {
			return nil, apperr.Validation("post %s is not scheduled", id)
		}
	}
	share, err := o.sessions.CreateSession(ctx, o.board.ProjectID(), clientID, ids)
	if err != nil {
		return nil, apperr.Collaborator("approval session", err)
	}
	return share, nil
}

// Summary counts scheduled posts by approval status.
func (o *Overlay) Summary() Summary {
	var s Summary
	for _, p := range o.board.Scheduled() {
		switch p.ApprovalStatus {
		case models.ApprovalApproved:
			s.Approved++
		case models.ApprovalRejected:
			s.Rejected++
		case models.ApprovalNeedsAttention:
			s.NeedsAttention++
		default:
			s.Pending++
		}
	}
	return s
}

func (o *Overlay) NeedingAttention() []models.Post {
	var out []models.Post
	for _, p := range o.board.Scheduled() {
		if p.NeedsAttention {
			out = append(out, p)
		}
	}
	return out
}

// EditURL links a post to the authoring tool, the way out for posts the
// client sent back with changes.
func (o *Overlay) EditURL(postID string) (string, error) {
	if _, ok := o.board.Get(postID); !ok {
		return "", apperr.NotFound("post", postID)
	}
	base := strings.TrimRight(o.authoringURL, "/")
	return base + "?post=" + url.QueryEscape(postID), nil
}
