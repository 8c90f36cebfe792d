package lifecycle

import (
	"context"
	"log/slog"
	"strings"

	"github.com/maheshrc27/agency-planner/internal/apperr"
	"github.com/maheshrc27/agency-planner/internal/cache"
	"github.com/maheshrc27/agency-planner/internal/inflight"
	"github.com/maheshrc27/agency-planner/internal/models"
	"github.com/maheshrc27/agency-planner/internal/store"
)

type PostUpdater interface {
	Update(ctx context.Context, id string, patch models.PostPatch) error
}

type SelectionPurger interface {
	Purge(ids ...string)
}

type SessionPurger interface {
	PurgePost(ctx context.Context, postID string) error
}

// Lifecycle moves posts between draft, queue and archive, and records
// caption edits. Each change is applied to the board first and undone when
// it cannot be saved.
type Lifecycle struct {
	board     *store.PostStore
	locks     *inflight.Locks
	posts     PostUpdater
	selection SelectionPurger
	sessions  SessionPurger
	cache     *cache.FetchCache
}

func New(board *store.PostStore, locks *inflight.Locks, posts PostUpdater, selection SelectionPurger, sessions SessionPurger, fc *cache.FetchCache) *Lifecycle {
	return &Lifecycle{board: board, locks: locks, posts: posts, selection: selection, sessions: sessions, cache: fc}
}

func (l *Lifecycle) apply(ctx context.Context, postID string, patch models.PostPatch) (models.Post, error) {
	undo, err := l.board.Patch(postID, patch)
	if err != nil {
		return models.Post{}, err
	}
	if err := l.posts.Update(ctx, postID, patch); err != nil {
		undo()
		slog.Info("post update failed, board restored", "post_id", postID, "error", err)
		return models.Post{}, apperr.Collaborator("persistence", err)
	}
	if l.cache != nil {
		l.cache.Invalidate(cache.PostsKey(l.board.ProjectID()))
	}
	post, _ := l.board.Get(postID)
	return post, nil
}

func (l *Lifecycle) acquire(postID string) (models.Post, func(), error) {
	release, err := l.locks.Acquire(postID, inflight.Editing)
	if err != nil {
		return models.Post{}, nil, err
	}
	post, ok := l.board.Get(postID)
	if !ok {
		release()
		return models.Post{}, nil, apperr.NotFound("post", postID)
	}
	return post, release, nil
}

// AddToQueue moves a draft into the project's unscheduled queue.
func (l *Lifecycle) AddToQueue(ctx context.Context, postID string) (models.Post, error) {
	post, release, err := l.acquire(postID)
	if err != nil {
		return models.Post{}, err
	}
	defer release()

	if post.State != models.PostStateDraft {
		return models.Post{}, apperr.Validation("only drafts can be added to the queue")
	}
	return l.apply(ctx, postID, models.PostPatch{State: models.Ptr(models.PostStateUnscheduled)})
}

// EditCaption replaces the caption. A post the client already approved or
// flagged must be approved again.
func (l *Lifecycle) EditCaption(ctx context.Context, postID, caption, editor string) (models.Post, error) {
	if strings.TrimSpace(caption) == "" {
		return models.Post{}, apperr.Validation("caption cannot be empty")
	}

	post, release, err := l.acquire(postID)
	if err != nil {
		return models.Post{}, err
	}
	defer release()

	if post.Caption == caption {
		return post, nil
	}
	patch := models.PostPatch{
		Caption:      models.Ptr(caption),
		EditCount:    models.Ptr(post.EditCount + 1),
		LastEditedBy: models.Ptr(editor),
	}
	if post.ApprovalStatus == models.ApprovalApproved || post.NeedsAttention {
		patch.NeedsReapproval = models.Ptr(true)
	}
	return l.apply(ctx, postID, patch)
}

// Archive takes the post off the board and out of every approval
// selection.
func (l *Lifecycle) Archive(ctx context.Context, postID string) error {
	post, release, err := l.acquire(postID)
	if err != nil {
		return err
	}
	defer release()

	if post.ExternalPostID != "" && post.State == models.PostStateScheduled {
		return apperr.Validation("post %s is scheduled on a platform; delete it instead", postID)
	}
	if _, err := l.apply(ctx, postID, models.PostPatch{State: models.Ptr(models.PostStateArchived)}); err != nil {
		return err
	}

	l.selection.Purge(postID)
	if err := l.sessions.PurgePost(ctx, postID); err != nil {
		slog.Warn("could not purge archived post from approval sessions", "post_id", postID, "error", err)
	}
	return nil
}
