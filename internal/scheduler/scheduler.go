package scheduler

import (
	"context"
	"log/slog"

	"github.com/maheshrc27/agency-planner/internal/apperr"
	"github.com/maheshrc27/agency-planner/internal/cache"
	"github.com/maheshrc27/agency-planner/internal/calendar"
	"github.com/maheshrc27/agency-planner/internal/inflight"
	"github.com/maheshrc27/agency-planner/internal/models"
	"github.com/maheshrc27/agency-planner/internal/store"
)

// PostUpdater persists partial post updates.
type PostUpdater interface {
	Update(ctx context.Context, id string, patch models.PostPatch) error
}

// Slot addresses a day cell of the board: week WeekIndex of the four weeks
// shown WeekOffset weeks from now, day DayIndex of that week (0 = Monday).
type Slot struct {
	WeekOffset int
	WeekIndex  int
	DayIndex   int
	TimeOfDay  string
}

// Scheduler applies drag-and-drop intents: optimistic board update, then
// persistence, with the board restored when persistence fails.
type Scheduler struct {
	cal   *calendar.Calendar
	board *store.PostStore
	locks *inflight.Locks
	posts PostUpdater
	cache *cache.FetchCache
}

func New(cal *calendar.Calendar, board *store.PostStore, locks *inflight.Locks, posts PostUpdater, fc *cache.FetchCache) *Scheduler {
	return &Scheduler{cal: cal, board: board, locks: locks, posts: posts, cache: fc}
}

func (s *Scheduler) slotDate(slot Slot) (string, error) {
	day, err := s.cal.SlotDate(slot.WeekOffset, slot.WeekIndex, slot.DayIndex)
	if err != nil {
		return "", err
	}
	return calendar.DateKey(day), nil
}

// commit persists patch and reverts the optimistic change when that fails.
func (s *Scheduler) commit(ctx context.Context, postID string, patch models.PostPatch, undo store.Undo) (models.Post, error) {
	if err := s.posts.Update(ctx, postID, patch); err != nil {
		undo()
		slog.Info("post update failed, board restored", "post_id", postID, "error", err)
		return models.Post{}, apperr.Collaborator("persistence", err)
	}
	if s.cache != nil {
		s.cache.Invalidate(cache.PostsKey(s.board.ProjectID()))
	}
	post, _ := s.board.Get(postID)
	return post, nil
}

// ScheduleFromQueue drops an unscheduled post onto slot.
func (s *Scheduler) ScheduleFromQueue(ctx context.Context, postID string, slot Slot) (models.Post, error) {
	date, err := s.slotDate(slot)
	if err != nil {
		return models.Post{}, err
	}
	timeOfDay := calendar.DefaultTimeOfDay
	if slot.TimeOfDay != "" {
		if timeOfDay, err = calendar.NormalizeTime(slot.TimeOfDay); err != nil {
			return models.Post{}, apperr.Validation("invalid time %q", slot.TimeOfDay)
		}
	}

	release, err := s.locks.Acquire(postID, inflight.Moving)
	if err != nil {
		return models.Post{}, err
	}
	defer release()

	post, ok := s.board.Get(postID)
	if !ok {
		return models.Post{}, apperr.NotFound("post", postID)
	}
	if post.State != models.PostStateUnscheduled {
		return models.Post{}, apperr.Validation("post %s is not in the unscheduled queue", postID)
	}

	undo, err := s.board.MoveToDate(postID, date, timeOfDay)
	if err != nil {
		return models.Post{}, err
	}
	return s.commit(ctx, postID, models.PostPatch{
		State:         models.Ptr(models.PostStateScheduled),
		ScheduledDate: models.Ptr(date),
		ScheduledTime: models.Ptr(timeOfDay),
	}, undo)
}

// MoveScheduledPost moves a scheduled post to another day. Only the date
// changes; time, approval and platform fields are left as they are.
func (s *Scheduler) MoveScheduledPost(ctx context.Context, postID string, slot Slot) (models.Post, error) {
	date, err := s.slotDate(slot)
	if err != nil {
		return models.Post{}, err
	}

	release, err := s.locks.Acquire(postID, inflight.Moving)
	if err != nil {
		return models.Post{}, err
	}
	defer release()

	post, ok := s.board.Get(postID)
	if !ok {
		return models.Post{}, apperr.NotFound("post", postID)
	}
	if !s.board.IsScheduled(postID) {
		return models.Post{}, apperr.Validation("post %s is not scheduled", postID)
	}
	if post.ScheduledDate == date {
		return post, nil
	}

	undo, err := s.board.MoveToDate(postID, date, post.ScheduledTime)
	if err != nil {
		return models.Post{}, err
	}
	return s.commit(ctx, postID, models.PostPatch{ScheduledDate: models.Ptr(date)}, undo)
}

// Unschedule drags a scheduled post back to the queue. Posts already
// scheduled on a platform must be deleted there first.
func (s *Scheduler) Unschedule(ctx context.Context, postID string) (models.Post, error) {
	release, err := s.locks.Acquire(postID, inflight.Moving)
	if err != nil {
		return models.Post{}, err
	}
	defer release()

	post, ok := s.board.Get(postID)
	if !ok {
		return models.Post{}, apperr.NotFound("post", postID)
	}
	if !s.board.IsScheduled(postID) {
		return models.Post{}, apperr.Validation("post %s is not scheduled", postID)
	}
	if post.ExternalPostID != "" {
		return models.Post{}, apperr.Validation("post %s is already scheduled on a platform", postID)
	}

	undo, err := s.board.MoveToUnscheduled(postID)
	if err != nil {
		return models.Post{}, err
	}
	return s.commit(ctx, postID, models.PostPatch{
		State:         models.Ptr(models.PostStateUnscheduled),
		ScheduledDate: models.Ptr(""),
		ScheduledTime: models.Ptr(""),
	}, undo)
}
