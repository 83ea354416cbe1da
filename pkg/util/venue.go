package util

import (
	"fmt"
	"time"
)

// Venue trading calendar. The risk day is the venue-local calendar day,
// not UTC: an outcome logged at 20:05 UTC belongs to the next IST day.
const (
	VenueTimeZone = "Asia/Kolkata"
)

// VenueLocation resolves the venue timezone, falling back to a fixed IST
// offset when the zone database is unavailable.
func VenueLocation() *time.Location {
	loc, err := time.LoadLocation(VenueTimeZone)
	if err != nil {
		return time.FixedZone("IST", 5*3600+1800)
	}
	return loc
}

// DayWindow returns [00:00, 24:00) of t's calendar day in loc.
func DayWindow(t time.Time, loc *time.Location) (time.Time, time.Time) {
	lt := t.In(loc)
	start := time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
	return start, start.Add(24 * time.Hour)
}

// SameVenueDay reports whether a and b fall on the same calendar day in loc.
func SameVenueDay(a, b time.Time, loc *time.Location) bool {
	as, _ := DayWindow(a, loc)
	bs, _ := DayWindow(b, loc)
	return as.Equal(bs)
}

// ParseClock parses an "HH:MM" session boundary into minutes from midnight.
func ParseClock(s string) (int, error) {
	var hh, mm int
	if _, err := fmt.Sscanf(s, "%d:%d", &hh, &mm); err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("clock %q out of range", s)
	}
	return hh*60 + mm, nil
}

// InSession reports whether t (converted to loc) falls inside [open, close)
// given as minutes from midnight. Weekends are always outside the session.
func InSession(t time.Time, loc *time.Location, openMin, closeMin int) bool {
	lt := t.In(loc)
	if wd := lt.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	cur := lt.Hour()*60 + lt.Minute()
	return cur >= openMin && cur < closeMin
}
