package calendar

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultTimeOfDay = "12:00:00"

	timeLayout24s = "15:04:05"
	timeLayout24  = "15:04"
	timeLayout12  = "3:04 PM"
)

var acceptedLayouts = []string{timeLayout24s, timeLayout24, timeLayout12, "3:04PM", "03:04 PM"}

func parseTimeOfDay(s string) (time.Time, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return time.Time{}, fmt.Errorf("time of day is empty")
	}
	for _, layout := range acceptedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time of day %q", s)
}

// NormalizeTime accepts HH:MM, HH:MM:SS or 12-hour input and returns HH:MM:SS.
func NormalizeTime(s string) (string, error) {
	t, err := parseTimeOfDay(s)
	if err != nil {
		return "", err
	}
	return t.Format(timeLayout24s), nil
}

// To12Hour renders "14:30" as "2:30 PM".
func To12Hour(s string) (string, error) {
	t, err := parseTimeOfDay(s)
	if err != nil {
		return "", err
	}
	return t.Format(timeLayout12), nil
}

// To24Hour parses "2:30 PM" into "14:30:00".
func To24Hour(s string) (string, error) {
	return NormalizeTime(s)
}
