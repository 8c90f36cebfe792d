package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/agency-planner/internal/apperr"
	"github.com/maheshrc27/agency-planner/internal/cache"
	"github.com/maheshrc27/agency-planner/internal/calendar"
	"github.com/maheshrc27/agency-planner/internal/inflight"
	"github.com/maheshrc27/agency-planner/internal/models"
	"github.com/maheshrc27/agency-planner/internal/store"
	"github.com/maheshrc27/agency-planner/internal/testutil"
)

type fixture struct {
	sched *Scheduler
	board *store.PostStore
	locks *inflight.Locks
	posts *testutil.Posts
	cache *cache.FetchCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	// Wednesday 08:00 in a UTC+12 project.
	now := time.Date(2026, 10, 13, 20, 0, 0, 0, time.UTC)
	cal := calendar.New(time.FixedZone("UTC+12", 12*60*60), func() time.Time { return now })

	seed := []models.Post{
		{ID: "q1", ProjectID: "p1", Caption: "queued", State: models.PostStateUnscheduled},
		{ID: "q2", ProjectID: "p1", Caption: "queued too", State: models.PostStateUnscheduled},
		{ID: "s1", ProjectID: "p1", Caption: "scheduled", State: models.PostStateScheduled,
			ScheduledDate: "2026-10-13", ScheduledTime: "09:00:00", ApprovalStatus: models.ApprovalApproved},
		{ID: "e1", ProjectID: "p1", Caption: "on platform", State: models.PostStateScheduled,
			ScheduledDate: "2026-10-14", ScheduledTime: "10:00:00", ExternalPostID: "ext-1",
			PlatformsScheduled: []string{"instagram"}},
	}
	board := store.New("p1", seed)
	posts := testutil.NewPosts(seed...)
	locks := inflight.NewLocks()
	fc := cache.New(nil)
	return &fixture{
		sched: New(cal, board, locks, posts, fc),
		board: board,
		locks: locks,
		posts: posts,
		cache: fc,
	}
}

func TestScheduleFromQueueDefaultsToNoon(t *testing.T) {
	f := newFixture(t)

	post, err := f.sched.ScheduleFromQueue(context.Background(), "q1", Slot{WeekIndex: 0, DayIndex: 4})
	require.NoError(t, err)
	assert.Equal(t, "2026-10-16", post.ScheduledDate)
	assert.Equal(t, "12:00:00", post.ScheduledTime)
	assert.Equal(t, models.PostStateScheduled, post.State)

	for _, p := range f.board.Unscheduled() {
		assert.NotEqual(t, "q1", p.ID)
	}
	friday := f.board.ScheduledOn("2026-10-16")
	require.Len(t, friday, 1)
	assert.Equal(t, "q1", friday[0].ID)

	stored, _ := f.posts.Stored("q1")
	assert.Equal(t, "2026-10-16", stored.ScheduledDate)
	assert.Equal(t, models.PostStateScheduled, stored.State)
	assert.False(t, f.locks.Busy("q1"))
}

func TestScheduleFromQueueNormalizesTime(t *testing.T) {
	f := newFixture(t)

	post, err := f.sched.ScheduleFromQueue(context.Background(), "q1", Slot{WeekOffset: 1, WeekIndex: 1, DayIndex: 0, TimeOfDay: "2:30 PM"})
	require.NoError(t, err)
	assert.Equal(t, "2026-10-26", post.ScheduledDate)
	assert.Equal(t, "14:30:00", post.ScheduledTime)

	_, err = f.sched.ScheduleFromQueue(context.Background(), "q2", Slot{TimeOfDay: "teatime"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestScheduleFromQueueRestoresOnPersistenceFailure(t *testing.T) {
	f := newFixture(t)
	f.posts.OnUpdate = func(string, models.PostPatch) error { return errors.New("connection reset") }

	_, err := f.sched.ScheduleFromQueue(context.Background(), "q2", Slot{DayIndex: 2})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindExternal))

	queue := f.board.Unscheduled()
	require.Len(t, queue, 2)
	assert.Equal(t, "q2", queue[1].ID)
	assert.Len(t, f.board.ScheduledOn("2026-10-14"), 1)
	assert.False(t, f.locks.Busy("q2"))
}

func TestScheduleFromQueueRejectsBusyPost(t *testing.T) {
	f := newFixture(t)
	release, err := f.locks.Acquire("q1", inflight.Deleting)
	require.NoError(t, err)
	defer release()

	_, err = f.sched.ScheduleFromQueue(context.Background(), "q1", Slot{})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Zero(t, f.posts.UpdateCount())
}

func TestScheduleFromQueueRejectsScheduledSource(t *testing.T) {
	f := newFixture(t)
	_, err := f.sched.ScheduleFromQueue(context.Background(), "s1", Slot{})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.sched.ScheduleFromQueue(context.Background(), "missing", Slot{})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestMoveScheduledPostChangesOnlyDate(t *testing.T) {
	f := newFixture(t)

	post, err := f.sched.MoveScheduledPost(context.Background(), "s1", Slot{DayIndex: 3})
	require.NoError(t, err)
	assert.Equal(t, "2026-10-15", post.ScheduledDate)
	assert.Equal(t, "09:00:00", post.ScheduledTime)
	assert.Equal(t, models.ApprovalApproved, post.ApprovalStatus)
	assert.Empty(t, f.board.ScheduledOn("2026-10-13"))

	stored, _ := f.posts.Stored("s1")
	assert.Equal(t, "2026-10-15", stored.ScheduledDate)
	assert.Equal(t, "09:00:00", stored.ScheduledTime)
}

func TestMoveScheduledPostRestoresOnFailure(t *testing.T) {
	f := newFixture(t)
	f.posts.OnUpdate = func(string, models.PostPatch) error { return errors.New("timeout") }

	_, err := f.sched.MoveScheduledPost(context.Background(), "s1", Slot{DayIndex: 3})
	require.Error(t, err)

	original := f.board.ScheduledOn("2026-10-13")
	require.Len(t, original, 1)
	assert.Equal(t, "s1", original[0].ID)
	assert.Empty(t, f.board.ScheduledOn("2026-10-15"))
}

func TestMoveScheduledPostRequiresScheduledSource(t *testing.T) {
	f := newFixture(t)
	_, err := f.sched.MoveScheduledPost(context.Background(), "q1", Slot{DayIndex: 3})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.sched.MoveScheduledPost(context.Background(), "s1", Slot{WeekIndex: 4})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestUnschedule(t *testing.T) {
	f := newFixture(t)

	post, err := f.sched.Unschedule(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, models.PostStateUnscheduled, post.State)
	assert.Empty(t, post.ScheduledDate)
	assert.Len(t, f.board.Unscheduled(), 3)

	_, err = f.sched.Unschedule(context.Background(), "e1")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Len(t, f.board.ScheduledOn("2026-10-14"), 1)
}
