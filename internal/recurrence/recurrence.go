// Package recurrence expands a commitment's schedule into concrete due
// dates. Only four kinds exist: a one-off on the start date, or a repeat
// every day, week (same weekday as start), or month (same day of month,
// clamped to shorter months).
package recurrence

import (
	"fmt"
	"time"
)

type Kind string

const (
	Once    Kind = "ONCE"
	Daily   Kind = "DAILY"
	Weekly  Kind = "WEEKLY"
	Monthly Kind = "MONTHLY"
)

// Parse validates a stored recurrence string.
func Parse(s string) (Kind, error) {
	switch Kind(s) {
	case Once, Daily, Weekly, Monthly:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown recurrence %q", s)
}

// DueDates returns every due date generated by the schedule within
// [from, to), normalized to start of day. start anchors the schedule; a
// non-nil end caps it (inclusive of the end day).
func DueDates(kind Kind, start time.Time, end *time.Time, from, to time.Time) []time.Time {
	anchor := StartOfDay(start)
	from = StartOfDay(from)
	to = StartOfDay(to)

	var until *time.Time
	if end != nil {
		e := StartOfDay(*end)
		until = &e
	}

	var dates []time.Time
	for d := anchor; d.Before(to); d = next(kind, anchor, d) {
		if until != nil && d.After(*until) {
			break
		}
		if !d.Before(from) {
			dates = append(dates, d)
		}
		if kind == Once {
			break
		}
	}
	return dates
}

// next returns the occurrence after current. anchor carries the weekday /
// day-of-month the schedule follows.
func next(kind Kind, anchor, current time.Time) time.Time {
	switch kind {
	case Daily:
		return current.AddDate(0, 0, 1)
	case Weekly:
		return current.AddDate(0, 0, 7)
	case Monthly:
		return addMonthClamped(anchor, current)
	default:
		// Once never advances; return a date past any range.
		return current.AddDate(1000, 0, 0)
	}
}

// addMonthClamped advances current by one month, restoring the anchor's
// day-of-month when the intervening month was shorter (Jan 31 -> Feb 28 ->
// Mar 31).
func addMonthClamped(anchor, current time.Time) time.Time {
	year, month := current.Year(), current.Month()+1
	if month > time.December {
		year++
		month = time.January
	}
	day := anchor.Day()
	if last := daysIn(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, current.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
