package bulk

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/maheshrc27/agency-planner/internal/apperr"
	"github.com/maheshrc27/agency-planner/internal/cache"
	"github.com/maheshrc27/agency-planner/internal/inflight"
	"github.com/maheshrc27/agency-planner/internal/models"
	"github.com/maheshrc27/agency-planner/internal/publish"
	"github.com/maheshrc27/agency-planner/internal/store"
	"golang.org/x/sync/errgroup"
)

const (
	// MinScheduleDelay is the shortest pause between two schedule requests
	// of one batch.
	MinScheduleDelay = 500 * time.Millisecond
	deleteLimit      = 10
)

type Publisher interface {
	Check(postID string, caption *string) (models.Post, error)
	Run(ctx context.Context, req publish.Request) (publish.Result, error)
}

type RemoteDeleter interface {
	DeletePost(ctx context.Context, externalID string) error
}

type PostRemover interface {
	Remove(ctx context.Context, id string) error
}

type SelectionPurger interface {
	Purge(ids ...string)
}

type SessionPurger interface {
	PurgePost(ctx context.Context, postID string) error
}

type ItemResult struct {
	ID             string `json:"id"`
	OK             bool   `json:"ok"`
	Error          string `json:"error,omitempty"`
	Warning        string `json:"warning,omitempty"`
	ExternalPostID string `json:"external_post_id,omitempty"`
}

// Summary is the terminal outcome of a batch. Partial success is a normal
// result, not an error.
type Summary struct {
	SuccessCount int          `json:"success_count"`
	FailCount    int          `json:"fail_count"`
	Items        []ItemResult `json:"items"`
}

func summarize(items []ItemResult) Summary {
	s := Summary{Items: items}
	for _, it := range items {
		if it.OK {
			s.SuccessCount++
		} else {
			s.FailCount++
		}
	}
	return s
}

type Coordinator struct {
	board     *store.PostStore
	locks     *inflight.Locks
	remote    RemoteDeleter
	posts     PostRemover
	publisher Publisher
	selection SelectionPurger
	sessions  SessionPurger
	cache     *cache.FetchCache
	delay     time.Duration
}

func New(
	board *store.PostStore,
	locks *inflight.Locks,
	remote RemoteDeleter,
	posts PostRemover,
	publisher Publisher,
	selection SelectionPurger,
	sessions SessionPurger,
	fc *cache.FetchCache,
	delay time.Duration) *Coordinator {
	return &Coordinator{
		board:     board,
		locks:     locks,
		remote:    remote,
		posts:     posts,
		publisher: publisher,
		selection: selection,
		sessions:  sessions,
		cache:     fc,
		delay:     max(delay, MinScheduleDelay),
	}
}

// Delete removes ids concurrently. Platform deletion is best-effort; an
// item fails only when the stored post could not be deleted.
func (c *Coordinator) Delete(ctx context.Context, ids []string) (Summary, error) {
	if len(ids) == 0 {
		return Summary{}, apperr.Validation("select at least one post to delete")
	}
	ids = uniqueIDs(ids)

	items := make([]ItemResult, len(ids))
	var g errgroup.Group
	g.SetLimit(deleteLimit)
	for i, id := range ids {
		g.Go(func() error {
			items[i] = c.deleteOne(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	var removed []string
	for _, it := range items {
		if !it.OK {
			continue
		}
		removed = append(removed, it.ID)
		if _, err := c.board.Remove(it.ID); err != nil {
			slog.Debug("deleted post was not on the board", "post_id", it.ID)
		}
		if err := c.sessions.PurgePost(ctx, it.ID); err != nil {
			slog.Warn("could not purge deleted post from approval sessions", "post_id", it.ID, "error", err)
		}
	}
	c.selection.Purge(removed...)
	if c.cache != nil {
		c.cache.Invalidate(cache.PostsKey(c.board.ProjectID()))
	}

	summary := summarize(items)
	slog.Info("bulk delete finished", "succeeded", summary.SuccessCount, "failed", summary.FailCount)
	return summary, nil
}

// uniqueIDs drops repeated ids, keeping first-seen order.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (c *Coordinator) deleteOne(ctx context.Context, id string) ItemResult {
	res := ItemResult{ID: id}

	release, err := c.locks.Acquire(id, inflight.Deleting)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer release()

	post, ok := c.board.Get(id)
	if !ok {
		res.Error = apperr.NotFound("post", id).Error()
		return res
	}

	if post.ExternalPostID != "" {
		if err := c.remote.DeletePost(ctx, post.ExternalPostID); err != nil {
			slog.Warn("platform delete failed, deleting locally", "post_id", id, "external_post_id", post.ExternalPostID, "error", err)
			res.Warning = apperr.External("platform delete", err).Error()
		}
	}

	if err := c.posts.Remove(ctx, id); err != nil {
		res.Error = apperr.Collaborator("persistence", err).Error()
		return res
	}
	res.OK = true
	return res
}

// Schedule publishes ids to accountID one after another, pausing between
// items. The whole batch is validated before the first request; captions
// holds unsaved caption edits by post id.
func (c *Coordinator) Schedule(ctx context.Context, ids []string, accountID string, captions map[string]string) (Summary, error) {
	if len(ids) == 0 {
		return Summary{}, apperr.Validation("select at least one post to schedule")
	}
	if accountID == "" {
		return Summary{}, apperr.Validation("choose an account to schedule to")
	}

	edits := make(map[string]*string, len(captions))
	for id, caption := range captions {
		edits[id] = &caption
	}

	var problems []string
	for _, id := range ids {
		if _, err := c.publisher.Check(id, edits[id]); err != nil {
			problems = append(problems, err.Error())
		}
	}
	if len(problems) > 0 {
		return Summary{}, apperr.Validation("batch rejected: %s", strings.Join(problems, "; "))
	}

	items := make([]ItemResult, 0, len(ids))
	for i, id := range ids {
		if i > 0 {
			if err := c.pause(ctx); err != nil {
				for _, rest := range ids[i:] {
					items = append(items, ItemResult{ID: rest, Error: err.Error()})
				}
				break
			}
		}

		res, err := c.publisher.Run(ctx, publish.Request{PostID: id, AccountID: accountID, Caption: edits[id]})
		item := ItemResult{ID: id, ExternalPostID: res.ExternalPostID}
		if err != nil {
			item.Error = err.Error()
		} else {
			item.OK = true
		}
		items = append(items, item)
	}

	summary := summarize(items)
	slog.Info("bulk schedule finished", "account_id", accountID, "succeeded", summary.SuccessCount, "failed", summary.FailCount)
	return summary, nil
}

func (c *Coordinator) pause(ctx context.Context) error {
	timer := time.NewTimer(c.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
