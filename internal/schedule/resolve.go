// Package schedule resolves target calendar dates to the nearest usable
// market-data snapshot under a bounded tolerance window.
//
// Walking calendar days instead of consulting a trading calendar keeps the
// resolver pure: exchange holidays and missing vendor files look identical,
// and at most toleranceDays of drift is accepted before an event is dropped.
package schedule

import (
	"fmt"
	"time"
)

// Direction selects which side of the target date to search.
type Direction string

const (
	Before Direction = "before" // strictly earlier days
	After  Direction = "after"  // strictly later days
)

// Resolution is a matched snapshot date and its drift from the target.
// DriftDays is reported so callers can quality-filter events that matched far
// from the earnings date instead of silently treating all matches equally.
type Resolution struct {
	Date      time.Time
	DriftDays int
}

// Availability reports whether a snapshot exists for a calendar date.
type Availability func(time.Time) bool

// Resolve walks outward from target one calendar day at a time, strictly
// earlier for Before and strictly later for After, up to toleranceDays, and
// returns the first date the availability check accepts. The target date
// itself is never returned. Returns ok=false when nothing is available inside
// the tolerance.
func Resolve(target time.Time, dir Direction, toleranceDays int, available Availability) (Resolution, bool) {
	step := 1
	if dir == Before {
		step = -1
	}

	for d := 1; d <= toleranceDays; d++ {
		candidate := target.AddDate(0, 0, d*step)
		if available(candidate) {
			return Resolution{Date: candidate, DriftDays: d}, true
		}
	}
	return Resolution{}, false
}

// ValidateTolerance rejects tolerance windows that cannot resolve anything.
// A bad window is a configuration error and is surfaced at startup.
func ValidateTolerance(toleranceDays int) error {
	if toleranceDays < 1 {
		return fmt.Errorf("snapshot tolerance must be at least 1 day, got %d", toleranceDays)
	}
	return nil
}

// DatesAvailability adapts a set of known snapshot dates into an Availability
// check keyed on the calendar day.
func DatesAvailability(dates []time.Time) Availability {
	set := make(map[string]bool, len(dates))
	for _, d := range dates {
		set[d.Format("2006-01-02")] = true
	}
	return func(d time.Time) bool {
		return set[d.Format("2006-01-02")]
	}
}
