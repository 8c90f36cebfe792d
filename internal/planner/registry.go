package planner

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/maheshrc27/agency-planner/internal/apperr"
	"github.com/maheshrc27/agency-planner/internal/approval"
	"github.com/maheshrc27/agency-planner/internal/bulk"
	"github.com/maheshrc27/agency-planner/internal/cache"
	"github.com/maheshrc27/agency-planner/internal/calendar"
	"github.com/maheshrc27/agency-planner/internal/inflight"
	"github.com/maheshrc27/agency-planner/internal/lifecycle"
	"github.com/maheshrc27/agency-planner/internal/models"
	"github.com/maheshrc27/agency-planner/internal/publish"
	"github.com/maheshrc27/agency-planner/internal/repository"
	"github.com/maheshrc27/agency-planner/internal/scheduler"
	"github.com/maheshrc27/agency-planner/internal/store"
)

const (
	defaultPageSize = 200
	maxReadRetries  = 2
)

// Platform is the scheduling API as seen by a workspace.
type Platform interface {
	publish.PostScheduler
	bulk.RemoteDeleter
}

// Sessions creates approval sessions and drops posts from them.
type Sessions interface {
	approval.SessionCreator
	PurgePost(ctx context.Context, postID string) error
}

type Deps struct {
	Posts    repository.PostRepository
	Projects repository.ProjectRepository
	History  repository.PublishHistoryRepository
	Accounts publish.AccountLookup
	Sessions Sessions
	Media    publish.MediaUploader
	Platform Platform
	Cache    *cache.FetchCache
}

type Options struct {
	DefaultTimezone   string
	PostsTTL          time.Duration
	ReadTimeout       time.Duration
	PageSize          int
	BulkScheduleDelay time.Duration
	AuthoringURL      string
	Now               func() time.Time
}

// Workspace is the component set of one project. Every component shares
// the workspace's board and lock map.
type Workspace struct {
	Project   models.Project
	Calendar  *calendar.Calendar
	Board     *store.PostStore
	Locks     *inflight.Locks
	Scheduler *scheduler.Scheduler
	Overlay   *approval.Overlay
	Pipeline  *publish.Pipeline
	Bulk      *bulk.Coordinator
	Lifecycle *lifecycle.Lifecycle

	registry *Registry
}

// Sync reconciles the board with the stored posts. Posts with an operation
// in flight keep their local version.
func (w *Workspace) Sync(ctx context.Context) error {
	posts, err := w.registry.posts(ctx, w.Project.ID)
	if err != nil {
		return err
	}
	w.Board.Replace(posts, w.Locks.Busy)
	return nil
}

// Registry builds workspaces on first use and keeps them for the life of
// the process.
type Registry struct {
	deps Deps
	opts Options

	mu         sync.Mutex
	workspaces map[string]*Workspace
}

func NewRegistry(deps Deps, opts Options) *Registry {
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.DefaultTimezone == "" {
		opts.DefaultTimezone = "UTC"
	}
	if deps.Cache == nil {
		deps.Cache = cache.New(opts.Now)
	}
	return &Registry{deps: deps, opts: opts, workspaces: make(map[string]*Workspace)}
}

func (r *Registry) Workspace(ctx context.Context, projectID string) (*Workspace, error) {
	r.mu.Lock()
	ws, ok := r.workspaces[projectID]
	r.mu.Unlock()
	if ok {
		return ws, nil
	}

	ws, err := r.build(ctx, projectID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.workspaces[projectID]; ok {
		return existing, nil
	}
	r.workspaces[projectID] = ws
	return ws, nil
}

func (r *Registry) project(ctx context.Context, projectID string) (models.Project, error) {
	return cache.Get(ctx, r.deps.Cache, cache.ProjectKey(projectID), r.opts.PostsTTL,
		func(ctx context.Context) (models.Project, error) {
			p, err := r.deps.Projects.GetProject(ctx, projectID)
			if err != nil {
				return models.Project{}, apperr.Collaborator("load project", err)
			}
			if p == nil {
				return models.Project{}, apperr.NotFound("project", projectID)
			}
			return *p, nil
		})
}

func (r *Registry) location(project models.Project) *time.Location {
	for _, name := range []string{project.Timezone, r.opts.DefaultTimezone} {
		if name == "" {
			continue
		}
		loc, err := time.LoadLocation(name)
		if err == nil {
			return loc
		}
		slog.Warn("unknown timezone", "project_id", project.ID, "timezone", name, "error", err)
	}
	return time.UTC
}

func (r *Registry) build(ctx context.Context, projectID string) (*Workspace, error) {
	project, err := r.project(ctx, projectID)
	if err != nil {
		return nil, err
	}
	posts, err := r.posts(ctx, projectID)
	if err != nil {
		return nil, err
	}

	d := r.deps
	cal := calendar.New(r.location(project), r.opts.Now)
	board := store.New(projectID, posts)
	locks := inflight.NewLocks()
	overlay := approval.NewOverlay(board, d.Sessions, r.opts.AuthoringURL)
	pipeline := publish.New(cal, board, locks, d.Media, d.Platform, d.Accounts, d.Posts, d.History, d.Cache)

	ws := &Workspace{
		Project:   project,
		Calendar:  cal,
		Board:     board,
		Locks:     locks,
		Scheduler: scheduler.New(cal, board, locks, d.Posts, d.Cache),
		Overlay:   overlay,
		Pipeline:  pipeline,
		Bulk:      bulk.New(board, locks, d.Platform, d.Posts, pipeline, overlay, d.Sessions, d.Cache, r.opts.BulkScheduleDelay),
		Lifecycle: lifecycle.New(board, locks, d.Posts, overlay, d.Sessions, d.Cache),
		registry:  r,
	}
	slog.Info("workspace ready", "project_id", projectID, "posts", board.Len(), "timezone", cal.Location().String())
	return ws, nil
}

func (r *Registry) posts(ctx context.Context, projectID string) ([]models.Post, error) {
	return cache.Get(ctx, r.deps.Cache, cache.PostsKey(projectID), r.opts.PostsTTL,
		func(ctx context.Context) ([]models.Post, error) {
			return r.loadPosts(ctx, projectID)
		})
}

// loadPosts pages through the project's posts. A page read that times out
// is retried with half the page size, at most maxReadRetries times per
// load.
func (r *Registry) loadPosts(ctx context.Context, projectID string) ([]models.Post, error) {
	var (
		out     []models.Post
		size    = r.opts.PageSize
		offset  int
		retries int
	)
	for {
		page, err := r.readPage(ctx, projectID, repository.ListOptions{Limit: size, Offset: offset})
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			if retries == maxReadRetries {
				return nil, apperr.Timeout("load posts", err)
			}
			retries++
			size = max(size/2, 1)
			slog.Warn("post page read timed out, retrying", "project_id", projectID, "page_size", size, "attempt", retries)
			continue
		}
		if err != nil {
			return nil, apperr.Collaborator("load posts", err)
		}

		for _, p := range page {
			out = append(out, *p)
		}
		if len(page) < size {
			return out, nil
		}
		offset += len(page)
	}
}

func (r *Registry) readPage(ctx context.Context, projectID string, opts repository.ListOptions) ([]*models.Post, error) {
	if r.opts.ReadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.ReadTimeout)
		defer cancel()
	}
	return r.deps.Posts.ListByProjectID(ctx, projectID, opts)
}
