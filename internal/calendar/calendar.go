package calendar

import (
	"fmt"
	"time"

	"github.com/maheshrc27/agency-planner/internal/apperr"
)

const (
	DefaultWeekCount = 4
	DaysPerWeek      = 7
	DateLayout       = "2006-01-02"
)

// Calendar computes week windows anchored in a project's timezone. All
// arithmetic goes through time.Date so DST shifts never move a date.
type Calendar struct {
	loc *time.Location
	now func() time.Time
}

func New(loc *time.Location, now func() time.Time) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Calendar{loc: loc, now: now}
}

func (c *Calendar) Location() *time.Location {
	return c.loc
}

// Today returns midnight of the current date in the calendar's timezone.
func (c *Calendar) Today() time.Time {
	return Midnight(c.now().In(c.loc))
}

func (c *Calendar) CurrentWeekStart() time.Time {
	return WeekStart(c.Today())
}

// WeeksToDisplay returns count consecutive Mondays starting offset weeks
// from the current week. A non-positive count means DefaultWeekCount.
func (c *Calendar) WeeksToDisplay(offset, count int) []time.Time {
	if count <= 0 {
		count = DefaultWeekCount
	}
	first := AddDays(c.CurrentWeekStart(), offset*DaysPerWeek)

	weeks := make([]time.Time, count)
	for i := range weeks {
		weeks[i] = AddDays(first, i*DaysPerWeek)
	}
	return weeks
}

// SlotDate resolves a calendar cell to its date.
func (c *Calendar) SlotDate(offset, weekIndex, dayIndex int) (time.Time, error) {
	if weekIndex < 0 || weekIndex >= DefaultWeekCount {
		return time.Time{}, apperr.Validation("week index %d out of range", weekIndex)
	}
	if dayIndex < 0 || dayIndex >= DaysPerWeek {
		return time.Time{}, apperr.Validation("day index %d out of range", dayIndex)
	}
	weeks := c.WeeksToDisplay(offset, DefaultWeekCount)
	return AddDays(weeks[weekIndex], dayIndex), nil
}

func (c *Calendar) ParseDate(key string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, key, c.loc)
}

// Combine joins a date key and a HH:MM:SS time into an instant in the
// calendar's timezone.
func (c *Calendar) Combine(dateKey, timeOfDay string) (time.Time, error) {
	d, err := c.ParseDate(dateKey)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", dateKey, err)
	}
	normalized, err := NormalizeTime(timeOfDay)
	if err != nil {
		return time.Time{}, err
	}
	tod, _ := time.Parse(timeLayout24s, normalized)
	return time.Date(d.Year(), d.Month(), d.Day(), tod.Hour(), tod.Minute(), tod.Second(), 0, c.loc), nil
}

func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func AddDays(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+n, 0, 0, 0, 0, t.Location())
}

// WeekStart returns the Monday on or before t, in t's location.
func WeekStart(t time.Time) time.Time {
	wd := int(t.Weekday())
	shift := 1 - wd
	if wd == 0 {
		shift = -6
	}
	return AddDays(t, shift)
}

func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

func FormatWeekCommencing(t time.Time) string {
	return fmt.Sprintf("W/C %d%s %s", t.Day(), Ordinal(t.Day()), t.Month())
}

func Ordinal(n int) string {
	if n%100 >= 11 && n%100 <= 13 {
		return "th"
	}
	switch n % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}
