package publish

import (
	"context"
	"log/slog"
	"slices"

	"github.com/maheshrc27/agency-planner/internal/apperr"
	"github.com/maheshrc27/agency-planner/internal/cache"
	"github.com/maheshrc27/agency-planner/internal/calendar"
	"github.com/maheshrc27/agency-planner/internal/inflight"
	"github.com/maheshrc27/agency-planner/internal/models"
	"github.com/maheshrc27/agency-planner/internal/store"
	"github.com/maheshrc27/agency-planner/internal/transfer"
)

const (
	OpMediaUpload     = "media upload"
	OpRequestSchedule = "request schedule"
	OpPersistence     = "persistence"
)

type MediaUploader interface {
	UploadMedia(ctx context.Context, imageRef string) (string, error)
}

type PostScheduler interface {
	SchedulePost(ctx context.Context, req transfer.ScheduleRequest) (string, error)
}

type AccountLookup interface {
	Get(ctx context.Context, clientID, projectID, accountID string) (models.SocialAccount, error)
}

type PostUpdater interface {
	Update(ctx context.Context, id string, patch models.PostPatch) error
}

type AttemptRecorder interface {
	Create(ctx context.Context, pa *models.PublishAttempt) (int64, error)
}

// Request publishes one post to one account. Caption, when set, is an
// unsaved edit that replaces the stored caption.
type Request struct {
	PostID    string
	AccountID string
	Caption   *string
}

type Result struct {
	Post           models.Post `json:"post"`
	AccountID      string      `json:"account_id"`
	MediaRef       string      `json:"media_ref"`
	ExternalPostID string      `json:"external_post_id"`
}

// Pipeline runs the two-step publish of a post to an account: upload the
// media, then ask the platform to schedule it. Step two never runs when
// step one fails. Media uploaded before a failed step two is not removed.
type Pipeline struct {
	cal      *calendar.Calendar
	board    *store.PostStore
	locks    *inflight.Locks
	media    MediaUploader
	platform PostScheduler
	accounts AccountLookup
	posts    PostUpdater
	history  AttemptRecorder
	cache    *cache.FetchCache
}

func New(
	cal *calendar.Calendar,
	board *store.PostStore,
	locks *inflight.Locks,
	media MediaUploader,
	platform PostScheduler,
	accounts AccountLookup,
	posts PostUpdater,
	history AttemptRecorder,
	fc *cache.FetchCache) *Pipeline {
	return &Pipeline{
		cal:      cal,
		board:    board,
		locks:    locks,
		media:    media,
		platform: platform,
		accounts: accounts,
		posts:    posts,
		history:  history,
		cache:    fc,
	}
}

func effectiveCaption(post models.Post, edit *string) string {
	if edit != nil {
		return *edit
	}
	return post.Caption
}

// Check validates the publish preconditions for postID without calling any
// collaborator.
func (p *Pipeline) Check(postID string, caption *string) (models.Post, error) {
	post, ok := p.board.Get(postID)
	if !ok {
		return models.Post{}, apperr.NotFound("post", postID)
	}
	post.Caption = effectiveCaption(post, caption)
	if !post.HasCaption() {
		return models.Post{}, apperr.Validation("post %s has no caption", postID)
	}
	if post.ScheduledDate == "" || post.ScheduledTime == "" {
		return models.Post{}, apperr.Validation("post %s has no scheduled date and time", postID)
	}
	return post, nil
}

func (p *Pipeline) record(ctx context.Context, attempt models.PublishAttempt, err error) {
	if err != nil {
		attempt.ErrorMessage = err.Error()
	}
	if _, herr := p.history.Create(ctx, &attempt); herr != nil {
		slog.Warn("could not record publish attempt", "post_id", attempt.PostID, "step", attempt.Step, "error", herr)
	}
}

// Run publishes req under the post's scheduling flag. A started step is
// never abandoned because the caller went away.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	release, err := p.locks.Acquire(req.PostID, inflight.Scheduling)
	if err != nil {
		return Result{}, err
	}
	defer release()

	post, err := p.Check(req.PostID, req.Caption)
	if err != nil {
		return Result{}, err
	}

	account, err := p.accounts.Get(ctx, post.ClientID, p.board.ProjectID(), req.AccountID)
	if err != nil {
		return Result{}, apperr.Collaborator("account directory", err)
	}
	if account.Status == models.AccountStatusDisconnected {
		return Result{}, apperr.Validation("account %s is disconnected", account.Handle)
	}
	if post.ScheduledOnPlatform(account.Platform) {
		return Result{}, apperr.Conflict("post %s is already scheduled on %s", post.ID, account.Platform)
	}

	scheduledAt, err := p.cal.Combine(post.ScheduledDate, post.ScheduledTime)
	if err != nil {
		return Result{}, apperr.Validation("post %s: %v", post.ID, err)
	}

	ctx = context.WithoutCancel(ctx)
	attempt := models.PublishAttempt{PostID: post.ID, AccountID: account.ID}

	attempt.Step = models.StepMediaUpload
	mediaRef, err := p.media.UploadMedia(ctx, post.ImageRef)
	attempt.MediaRef = mediaRef
	p.record(ctx, attempt, err)
	if err != nil {
		slog.Info("media upload failed", "post_id", post.ID, "error", err)
		return Result{}, apperr.External(OpMediaUpload, err)
	}

	attempt.Step = models.StepRequestSchedule
	externalID, err := p.platform.SchedulePost(ctx, transfer.ScheduleRequest{
		Caption:           post.Caption,
		MediaRef:          mediaRef,
		ScheduledAt:       scheduledAt,
		Platform:          account.Platform,
		ExternalAccountID: account.ExternalAccountID,
	})
	attempt.ExternalPostID = externalID
	p.record(ctx, attempt, err)
	if err != nil {
		slog.Info("schedule request failed", "post_id", post.ID, "account_id", account.ID, "error", err)
		return Result{}, apperr.External(OpRequestSchedule, err)
	}

	return p.confirm(ctx, post, req.Caption != nil, account, attempt)
}

// confirm applies a confirmed schedule locally and persists it. A failed
// write keeps the local state, since the platform already has the post,
// and leaves a persist row in the history for reconciliation.
func (p *Pipeline) confirm(ctx context.Context, post models.Post, captionEdited bool, account models.SocialAccount, attempt models.PublishAttempt) (Result, error) {
	platforms := slices.Clone(post.PlatformsScheduled)
	if !slices.Contains(platforms, account.Platform) {
		platforms = append(platforms, account.Platform)
	}
	patch := models.PostPatch{
		ExternalPostID:     models.Ptr(attempt.ExternalPostID),
		PlatformsScheduled: platforms,
		LateStatus:         models.Ptr(models.LateStatusScheduled),
	}
	if post.State != models.PostStatePublished {
		patch.State = models.Ptr(models.PostStateScheduled)
	}
	if captionEdited {
		patch.Caption = models.Ptr(post.Caption)
	}

	if _, err := p.board.Patch(post.ID, patch); err != nil {
		slog.Warn("post left the board during publish", "post_id", post.ID, "error", err)
	}
	patch.Apply(&post)
	result := Result{Post: post, AccountID: account.ID, MediaRef: attempt.MediaRef, ExternalPostID: attempt.ExternalPostID}

	if err := p.posts.Update(ctx, post.ID, patch); err != nil {
		attempt.Step = models.StepPersist
		p.record(ctx, attempt, err)
		slog.Error("post scheduled on platform but not saved",
			"post_id", post.ID, "account_id", account.ID, "external_post_id", attempt.ExternalPostID, "error", err)
		return result, apperr.External(OpPersistence, err)
	}
	if p.cache != nil {
		p.cache.Invalidate(cache.PostsKey(p.board.ProjectID()))
	}
	return result, nil
}
