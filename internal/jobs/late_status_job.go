package job

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/maheshrc27/agency-planner/internal/cache"
	"github.com/maheshrc27/agency-planner/internal/models"
	"github.com/maheshrc27/agency-planner/internal/repository"
	"golang.org/x/sync/semaphore"
)

const (
	lateStatusBatch  = 100
	concurrencyLimit = 10
)

type StatusChecker interface {
	GetPostStatus(ctx context.Context, externalID string) (models.LateStatus, error)
}

// LateStatusJob asks the platform what became of posts it accepted and
// records the answer, marking posts published once the platform says so.
type LateStatusJob struct {
	pr    repository.PostRepository
	ps    StatusChecker
	cache *cache.FetchCache
}

func NewLateStatusJob(pr repository.PostRepository, ps StatusChecker, fc *cache.FetchCache) *LateStatusJob {
	return &LateStatusJob{pr: pr, ps: ps, cache: fc}
}

func (c *LateStatusJob) SyncStatuses() {
	if _, err := c.Run(context.Background()); err != nil {
		slog.Info(err.Error())
	}
}

// Run checks one batch of pending posts and returns how many changed.
func (c *LateStatusJob) Run(ctx context.Context) (int, error) {
	posts, err := c.pr.ListByLateStatus(ctx, models.LateStatusScheduled, lateStatusBatch)
	if err != nil {
		return 0, err
	}

	var (
		wg      sync.WaitGroup
		changed atomic.Int32
		sem     = semaphore.NewWeighted(concurrencyLimit)
	)
	for _, post := range posts {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(post *models.Post) {
			defer wg.Done()
			defer sem.Release(1)
			if c.syncOne(ctx, post) {
				changed.Add(1)
			}
		}(post)
	}
	wg.Wait()

	if n := changed.Load(); n > 0 {
		slog.Info("platform statuses updated", "posts", n)
	}
	return int(changed.Load()), nil
}

func (c *LateStatusJob) syncOne(ctx context.Context, post *models.Post) bool {
	status, err := c.ps.GetPostStatus(ctx, post.ExternalPostID)
	if err != nil {
		slog.Info("unable to fetch platform status", "post_id", post.ID, "external_post_id", post.ExternalPostID, "error", err)
		return false
	}
	if status == post.LateStatus {
		return false
	}

	patch := models.PostPatch{LateStatus: models.Ptr(status)}
	if status == models.LateStatusPublished {
		patch.State = models.Ptr(models.PostStatePublished)
	}
	if err := c.pr.Update(ctx, post.ID, patch); err != nil {
		slog.Info("unable to save platform status", "post_id", post.ID, "error", err)
		return false
	}
	if c.cache != nil {
		c.cache.Invalidate(cache.PostsKey(post.ProjectID))
	}
	return true
}
