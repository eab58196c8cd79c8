// Package release computes the weekly release window that decides whether
// generated content is current.
package release

import (
	"fmt"
	"time"
)

// KeyPrefix prefixes every sermon bucket key.
const KeyPrefix = "sermon:"

// Scheduler anchors the window to a weekday and local time in one location.
type Scheduler struct {
	location *time.Location
	weekday  time.Weekday
	hour     int
	minute   int
}

// New constructs a scheduler.
func New(location *time.Location, weekday time.Weekday, hour, minute int) (*Scheduler, error) {
	if location == nil {
		return nil, fmt.Errorf("release: nil location")
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return nil, fmt.Errorf("release: invalid time of day %02d:%02d", hour, minute)
	}
	return &Scheduler{location: location, weekday: weekday, hour: hour, minute: minute}, nil
}

// NewNamed loads the named IANA location and constructs a scheduler.
func NewNamed(zone string, weekday time.Weekday, hour, minute int) (*Scheduler, error) {
	location, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("release: load location %q: %w", zone, err)
	}
	return New(location, weekday, hour, minute)
}

// CurrentWindow returns the most recent release instant at or before now.
// Day arithmetic goes through time.Date in the scheduler's location, so a
// daylight-saving change between the two dates cannot shift the result.
func (s *Scheduler) CurrentWindow(now time.Time) time.Time {
	local := now.In(s.location)
	daysBack := (int(local.Weekday()) - int(s.weekday) + 7) % 7
	window := time.Date(local.Year(), local.Month(), local.Day()-daysBack, s.hour, s.minute, 0, 0, s.location)
	if window.After(now) {
		window = time.Date(local.Year(), local.Month(), local.Day()-daysBack-7, s.hour, s.minute, 0, 0, s.location)
	}
	return window
}

// NextWindow returns the first release instant strictly after now.
func (s *Scheduler) NextWindow(now time.Time) time.Time {
	current := s.CurrentWindow(now).In(s.location)
	return time.Date(current.Year(), current.Month(), current.Day()+7, s.hour, s.minute, 0, 0, s.location)
}

// BucketKey returns the date-bucketed key for a release window.
func (s *Scheduler) BucketKey(window time.Time) string {
	return KeyPrefix + window.In(s.location).Format("2006-01-02")
}

// UniqueKey returns a key derived from an arbitrary instant, used for
// generations that must never replace an existing bucket.
func UniqueKey(instant time.Time) string {
	return KeyPrefix + instant.UTC().Format(time.RFC3339Nano)
}

// Location returns the scheduler's civil time zone.
func (s *Scheduler) Location() *time.Location { return s.location }
