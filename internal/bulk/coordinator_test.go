package bulk

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/agency-planner/internal/apperr"
	"github.com/maheshrc27/agency-planner/internal/calendar"
	"github.com/maheshrc27/agency-planner/internal/inflight"
	"github.com/maheshrc27/agency-planner/internal/models"
	"github.com/maheshrc27/agency-planner/internal/publish"
	"github.com/maheshrc27/agency-planner/internal/store"
	"github.com/maheshrc27/agency-planner/internal/testutil"
)

type remoteDeleter struct {
	mu      sync.Mutex
	fail    map[string]bool
	deleted []string
}

func (r *remoteDeleter) DeletePost(_ context.Context, externalID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail[externalID] {
		return errors.New("platform unavailable")
	}
	r.deleted = append(r.deleted, externalID)
	return nil
}

type purger struct {
	mu     sync.Mutex
	purged []string
}

func (p *purger) Purge(ids ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.purged = append(p.purged, ids...)
}

func (p *purger) PurgePost(_ context.Context, postID string) error {
	p.Purge(postID)
	return nil
}

type call struct {
	id         string
	start, end time.Time
}

// timedPublisher records when each run starts and ends.
type timedPublisher struct {
	checkErr map[string]error
	runErr   map[string]error
	calls    []call
}

func (p *timedPublisher) Check(postID string, _ *string) (models.Post, error) {
	if err := p.checkErr[postID]; err != nil {
		return models.Post{}, err
	}
	return models.Post{ID: postID}, nil
}

func (p *timedPublisher) Run(_ context.Context, req publish.Request) (publish.Result, error) {
	c := call{id: req.PostID, start: time.Now()}
	time.Sleep(5 * time.Millisecond)
	c.end = time.Now()
	p.calls = append(p.calls, c)
	if err := p.runErr[req.PostID]; err != nil {
		return publish.Result{}, err
	}
	return publish.Result{ExternalPostID: "ext-" + req.PostID}, nil
}

func scheduled(id, ext string) models.Post {
	return models.Post{ID: id, ProjectID: "p", Caption: "caption " + id, ImageRef: id + ".png",
		State: models.PostStateScheduled, ScheduledDate: "2026-10-16", ScheduledTime: "12:00:00", ExternalPostID: ext}
}

func TestDeleteReportsPartialSuccess(t *testing.T) {
	seed := []models.Post{scheduled("a", "ext-a"), scheduled("b", ""), scheduled("c", "ext-c"), scheduled("d", "")}
	board := store.New("p", seed)
	posts := testutil.NewPosts(seed...)
	posts.OnRemove = func(id string) error {
		if id == "d" {
			return errors.New("constraint violation")
		}
		return nil
	}
	remote := &remoteDeleter{fail: map[string]bool{"ext-c": true}}
	selection, sessions := &purger{}, &purger{}

	c := New(board, inflight.NewLocks(), remote, posts, &timedPublisher{}, selection, sessions, nil, 0)
	summary, err := c.Delete(context.Background(), []string{"a", "b", "c", "d"})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.SuccessCount)
	assert.Equal(t, 1, summary.FailCount)
	require.Len(t, summary.Items, 4)
	assert.False(t, summary.Items[3].OK)
	assert.NotEmpty(t, summary.Items[3].Error)
	assert.True(t, summary.Items[2].OK)
	assert.NotEmpty(t, summary.Items[2].Warning)

	remaining := board.ScheduledOn("2026-10-16")
	require.Len(t, remaining, 1)
	assert.Equal(t, "d", remaining[0].ID)

	assert.Equal(t, []string{"ext-a"}, remote.deleted)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, selection.purged)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, sessions.purged)
}

func TestDeleteSkipsBusyPosts(t *testing.T) {
	seed := []models.Post{scheduled("a", ""), scheduled("b", "")}
	board := store.New("p", seed)
	locks := inflight.NewLocks()
	release, err := locks.Acquire("a", inflight.Scheduling)
	require.NoError(t, err)
	defer release()

	c := New(board, locks, &remoteDeleter{}, testutil.NewPosts(seed...), &timedPublisher{}, &purger{}, &purger{}, nil, 0)
	summary, err := c.Delete(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.SuccessCount)
	assert.Equal(t, 1, summary.FailCount)
	assert.Contains(t, summary.Items[0].Error, "busy")

	_, err = c.Delete(context.Background(), nil)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestDeleteIgnoresRepeatedIDs(t *testing.T) {
	seed := []models.Post{scheduled("a", "ext-a"), scheduled("b", "")}
	board := store.New("p", seed)
	remote := &remoteDeleter{}

	c := New(board, inflight.NewLocks(), remote, testutil.NewPosts(seed...), &timedPublisher{}, &purger{}, &purger{}, nil, 0)
	summary, err := c.Delete(context.Background(), []string{"a", "a", "b", "a"})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.SuccessCount)
	assert.Zero(t, summary.FailCount)
	require.Len(t, summary.Items, 2)
	assert.Equal(t, "a", summary.Items[0].ID)
	assert.Equal(t, "b", summary.Items[1].ID)
	assert.Equal(t, []string{"ext-a"}, remote.deleted)
}

func TestScheduleRunsSequentiallyWithDelay(t *testing.T) {
	pub := &timedPublisher{runErr: map[string]error{"b": errors.New("rate limited")}}
	c := New(store.New("p", nil), inflight.NewLocks(), &remoteDeleter{}, testutil.NewPosts(), pub, &purger{}, &purger{}, nil, 10*time.Millisecond)

	summary, err := c.Schedule(context.Background(), []string{"c", "a", "b"}, "acc", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.SuccessCount)
	assert.Equal(t, 1, summary.FailCount)
	assert.Equal(t, "ext-c", summary.Items[0].ExternalPostID)
	assert.False(t, summary.Items[2].OK)

	require.Len(t, pub.calls, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{pub.calls[0].id, pub.calls[1].id, pub.calls[2].id})
	for i := 1; i < len(pub.calls); i++ {
		gap := pub.calls[i].start.Sub(pub.calls[i-1].end)
		assert.GreaterOrEqual(t, gap, MinScheduleDelay)
	}
}

func TestScheduleRejectsWholeBatch(t *testing.T) {
	pub := &timedPublisher{checkErr: map[string]error{"b": apperr.Validation("post b has no caption")}}
	c := New(store.New("p", nil), inflight.NewLocks(), &remoteDeleter{}, testutil.NewPosts(), pub, &purger{}, &purger{}, nil, 0)

	_, err := c.Schedule(context.Background(), []string{"a", "b", "c"}, "acc", nil)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Empty(t, pub.calls)

	_, err = c.Schedule(context.Background(), nil, "acc", nil)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestScheduleStopsBetweenItemsWhenCancelled(t *testing.T) {
	pub := &timedPublisher{}
	c := New(store.New("p", nil), inflight.NewLocks(), &remoteDeleter{}, testutil.NewPosts(), pub, &purger{}, &purger{}, nil, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	summary, err := c.Schedule(ctx, []string{"a", "b", "c"}, "acc", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.SuccessCount)
	assert.Equal(t, 2, summary.FailCount)
	assert.Len(t, pub.calls, 1)
}

func TestScheduleWithPipelineMakesNoCallsOnBlankCaption(t *testing.T) {
	seed := []models.Post{scheduled("a", ""), scheduled("b", "")}
	seed[1].Caption = " "
	board := store.New("p", seed)
	locks := inflight.NewLocks()
	media, platform := &testutil.Media{}, &testutil.Platform{}
	cal := calendar.New(time.UTC, nil)
	pipeline := publish.New(cal, board, locks, media, platform, nil, testutil.NewPosts(seed...), &testutil.History{}, nil)

	c := New(board, locks, platform, testutil.NewPosts(seed...), pipeline, &purger{}, &purger{}, nil, 0)
	_, err := c.Schedule(context.Background(), []string{"a", "b"}, "acc", nil)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Zero(t, media.CallCount())
	assert.Zero(t, platform.CallCount())

	_, err = c.Schedule(context.Background(), []string{"b"}, "acc", map[string]string{"b": " "})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Zero(t, platform.CallCount())
}
