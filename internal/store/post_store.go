package store

import (
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/maheshrc27/agency-planner/internal/apperr"
	"github.com/maheshrc27/agency-planner/internal/calendar"
	"github.com/maheshrc27/agency-planner/internal/models"
)

// Undo reverts the mutation that returned it, restoring the post's prior
// value and its position in the prior bucket.
type Undo func()

type position struct {
	bucketed bool
	date     string // empty for the unscheduled queue
	index    int
}

// PostStore is the optimistic in-memory board of one project: an ordered
// unscheduled queue and scheduled posts bucketed by date, each bucket
// sorted by time. Mutations apply immediately; callers persist and undo on
// failure.
type PostStore struct {
	mu          sync.RWMutex
	projectID   string
	posts       map[string]*models.Post
	unscheduled []string
	byDate      map[string][]string
}

func New(projectID string, posts []models.Post) *PostStore {
	s := &PostStore{projectID: projectID}
	s.reset(posts)
	return s
}

func (s *PostStore) ProjectID() string {
	return s.projectID
}

func (s *PostStore) reset(posts []models.Post) {
	s.posts = make(map[string]*models.Post, len(posts))
	s.unscheduled = nil
	s.byDate = make(map[string][]string)

	sorted := slices.Clone(posts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	for _, p := range sorted {
		if p.State == models.PostStateArchived || p.State == models.PostStateDeleted {
			continue
		}
		cp := p.Clone()
		s.posts[cp.ID] = &cp
		s.attach(&cp)
	}
}

// Replace reconciles the board with a fresh read. Posts for which keep
// returns true retain their local version, so an operation still in flight
// is not clobbered by an older read.
func (s *PostStore) Replace(posts []models.Post, keep func(id string) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keep == nil {
		s.reset(posts)
		return
	}

	merged := make([]models.Post, 0, len(posts))
	seen := make(map[string]bool, len(posts))
	for _, p := range posts {
		seen[p.ID] = true
		if local, ok := s.posts[p.ID]; ok && keep(p.ID) {
			merged = append(merged, local.Clone())
			continue
		}
		merged = append(merged, p)
	}
	for id, local := range s.posts {
		if !seen[id] && keep(id) {
			merged = append(merged, local.Clone())
		}
	}
	s.reset(merged)
}

func bucketOf(p *models.Post) (string, bool) {
	switch p.State {
	case models.PostStateUnscheduled:
		return "", true
	case models.PostStateScheduled, models.PostStatePublished:
		if p.ScheduledDate == "" {
			return "", false
		}
		return p.ScheduledDate, true
	default:
		return "", false
	}
}

func (s *PostStore) attach(p *models.Post) {
	date, ok := bucketOf(p)
	if !ok {
		return
	}
	if date == "" {
		s.unscheduled = append(s.unscheduled, p.ID)
		return
	}
	ids := s.byDate[date]
	at := sort.Search(len(ids), func(i int) bool {
		return s.posts[ids[i]].ScheduledTime > p.ScheduledTime
	})
	s.byDate[date] = slices.Insert(ids, at, p.ID)
}

func (s *PostStore) attachAt(id string, pos position) {
	if !pos.bucketed {
		return
	}
	if pos.date == "" {
		at := min(pos.index, len(s.unscheduled))
		s.unscheduled = slices.Insert(s.unscheduled, at, id)
		return
	}
	ids := s.byDate[pos.date]
	at := min(pos.index, len(ids))
	s.byDate[pos.date] = slices.Insert(ids, at, id)
}

func (s *PostStore) locate(id string) position {
	if i := slices.Index(s.unscheduled, id); i >= 0 {
		return position{bucketed: true, index: i}
	}
	if p, ok := s.posts[id]; ok && p.ScheduledDate != "" {
		if i := slices.Index(s.byDate[p.ScheduledDate], id); i >= 0 {
			return position{bucketed: true, date: p.ScheduledDate, index: i}
		}
	}
	return position{}
}

func (s *PostStore) detach(id string) {
	pos := s.locate(id)
	if !pos.bucketed {
		return
	}
	if pos.date == "" {
		s.unscheduled = slices.Delete(s.unscheduled, pos.index, pos.index+1)
		return
	}
	ids := slices.Delete(s.byDate[pos.date], pos.index, pos.index+1)
	if len(ids) == 0 {
		delete(s.byDate, pos.date)
		return
	}
	s.byDate[pos.date] = ids
}

// mutate runs fn on the post under the write lock and returns an Undo that
// restores the captured prior state.
func (s *PostStore) mutate(id string, fn func(p *models.Post) (remove bool)) (Undo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.posts[id]
	if !ok {
		return nil, apperr.NotFound("post", id)
	}
	prev := current.Clone()
	prevPos := s.locate(id)

	s.detach(id)
	next := current.Clone()
	if fn(&next) {
		delete(s.posts, id)
	} else {
		s.posts[id] = &next
		s.attach(&next)
	}

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.posts[id]; ok {
			s.detach(id)
		}
		restored := prev.Clone()
		s.posts[id] = &restored
		s.attachAt(id, prevPos)
	}, nil
}

func (s *PostStore) MoveToUnscheduled(id string) (Undo, error) {
	return s.mutate(id, func(p *models.Post) bool {
		p.State = models.PostStateUnscheduled
		p.ScheduledDate = ""
		p.ScheduledTime = ""
		return false
	})
}

// MoveToDate buckets the post under date at timeOfDay. A published post
// keeps its published state.
func (s *PostStore) MoveToDate(id, date, timeOfDay string) (Undo, error) {
	if date == "" {
		return nil, apperr.Validation("scheduled date is required")
	}
	if timeOfDay == "" {
		timeOfDay = calendar.DefaultTimeOfDay
	}
	return s.mutate(id, func(p *models.Post) bool {
		if p.State != models.PostStatePublished {
			p.State = models.PostStateScheduled
		}
		p.ScheduledDate = date
		p.ScheduledTime = timeOfDay
		return false
	})
}

func (s *PostStore) Remove(id string) (Undo, error) {
	return s.mutate(id, func(*models.Post) bool { return true })
}

func (s *PostStore) Patch(id string, patch models.PostPatch) (Undo, error) {
	return s.mutate(id, func(p *models.Post) bool {
		patch.Apply(p)
		return p.State == models.PostStateArchived || p.State == models.PostStateDeleted
	})
}

func (s *PostStore) Get(id string) (models.Post, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[id]
	if !ok {
		return models.Post{}, false
	}
	return p.Clone(), true
}

func (s *PostStore) collect(ids []string) []models.Post {
	out := make([]models.Post, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.posts[id].Clone())
	}
	return out
}

func (s *PostStore) Unscheduled() []models.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.unscheduled)
}

func (s *PostStore) ScheduledOn(date string) []models.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.byDate[date])
}

func (s *PostStore) sortedDates() []string {
	dates := make([]string, 0, len(s.byDate))
	for d := range s.byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// Scheduled returns every bucketed scheduled post ordered by date then time.
func (s *PostStore) Scheduled() []models.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Post
	for _, d := range s.sortedDates() {
		out = append(out, s.collect(s.byDate[d])...)
	}
	return out
}

func (s *PostStore) IsScheduled(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos := s.locate(id)
	return pos.bucketed && pos.date != ""
}

func (s *PostStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.posts)
}

// Weeks groups scheduled posts into one bucket per week start.
func (s *PostStore) Weeks(starts []time.Time) []models.WeekBucket {
	s.mu.RLock()
	defer s.mu.RUnlock()

	buckets := make([]models.WeekBucket, 0, len(starts))
	for _, start := range starts {
		b := models.WeekBucket{
			WeekStart: calendar.DateKey(start),
			Label:     calendar.FormatWeekCommencing(start),
			Posts:     []models.Post{},
		}
		for day := 0; day < calendar.DaysPerWeek; day++ {
			key := calendar.DateKey(calendar.AddDays(start, day))
			b.Posts = append(b.Posts, s.collect(s.byDate[key])...)
		}
		buckets = append(buckets, b)
	}
	return buckets
}
