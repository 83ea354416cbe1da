package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2025-06-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2025, 6, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2025, 6, 10, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestDayWindowCrossesUTCMidnight(t *testing.T) {
	loc := VenueLocation()
	// 20:05 UTC is 01:35 IST next day
	at := time.Date(2025, 6, 10, 20, 5, 0, 0, time.UTC)
	start, end := DayWindow(at, loc)
	if start.Day() != 11 {
		t.Fatalf("expected venue day 11, got %d", start.Day())
	}
	if end.Sub(start) != 24*time.Hour {
		t.Fatalf("expected 24h window, got %v", end.Sub(start))
	}
}

func TestSameVenueDay(t *testing.T) {
	loc := VenueLocation()
	a := time.Date(2025, 6, 10, 3, 0, 0, 0, time.UTC)  // 08:30 IST
	b := time.Date(2025, 6, 10, 16, 0, 0, 0, time.UTC) // 21:30 IST
	c := time.Date(2025, 6, 10, 20, 0, 0, 0, time.UTC) // 01:30 IST Jun 11
	if !SameVenueDay(a, b, loc) {
		t.Fatalf("a and b should share a venue day")
	}
	if SameVenueDay(a, c, loc) {
		t.Fatalf("a and c should not share a venue day")
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"09:15", 9*60 + 15, false},
		{"15:30", 15*60 + 30, false},
		{"24:00", 0, true},
		{"oops", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseClock(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseClock(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseClock(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseClock(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestInSession(t *testing.T) {
	loc := VenueLocation()
	openMin, _ := ParseClock("09:15")
	closeMin, _ := ParseClock("15:30")

	mkIST := func(y int, m time.Month, d, hh, mm int) time.Time {
		return time.Date(y, m, d, hh, mm, 0, 0, loc)
	}

	// Tuesday
	if !InSession(mkIST(2025, 6, 10, 10, 0), loc, openMin, closeMin) {
		t.Fatalf("10:00 IST weekday should be in session")
	}
	if InSession(mkIST(2025, 6, 10, 9, 14), loc, openMin, closeMin) {
		t.Fatalf("09:14 IST should be before open")
	}
	if InSession(mkIST(2025, 6, 10, 15, 30), loc, openMin, closeMin) {
		t.Fatalf("15:30 IST should be at/after close")
	}
	// Saturday
	if InSession(mkIST(2025, 6, 14, 10, 0), loc, openMin, closeMin) {
		t.Fatalf("saturday should be outside the session")
	}
}
