package util

import (
	"testing"
	"time"
)

func TestHasPrefixes(t *testing.T) {
	if !HasPrefixes("/sync/v1/message", "/sync", "/api") {
		t.Fatalf("Expected prefix match")
	}
	if HasPrefixes("/healthcheck", "/sync", "/api") {
		t.Fatalf("Unexpected prefix match")
	}
}

func TestRandomString(t *testing.T) {
	s, err := RandomString(24)
	if err != nil {
		t.Fatalf("Failed to generate random string: %v", err)
	}
	if len(s) != 24 {
		t.Fatalf("Expected length 24, got %d", len(s))
	}
}

func TestDaysBetween(t *testing.T) {
	loc := time.Local
	a := time.Date(2024, 3, 10, 23, 50, 0, 0, loc)
	b := time.Date(2024, 3, 11, 0, 10, 0, 0, loc)
	if got := DaysBetween(a, b); got != 1 {
		t.Fatalf("Expected 1 day across midnight, got %d", got)
	}
	if got := DaysBetween(a, a.Add(5*time.Minute)); got != 0 {
		t.Fatalf("Expected 0 days within the same day, got %d", got)
	}
	c := time.Date(2024, 3, 13, 8, 0, 0, 0, loc)
	if got := DaysBetween(a, c); got != 3 {
		t.Fatalf("Expected 3 days, got %d", got)
	}
	if got := DaysBetween(c, a); got != -3 {
		t.Fatalf("Expected -3 days, got %d", got)
	}
}

func TestDaysBetweenAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("Timezone database unavailable: %v", err)
	}
	// March 8 2026 is a 23-hour day (spring forward), November 1 2026 a
	// 25-hour one.
	a := time.Date(2026, 3, 8, 12, 0, 0, 0, loc)
	b := time.Date(2026, 3, 9, 12, 0, 0, 0, loc)
	if got := DaysBetween(a, b); got != 1 {
		t.Fatalf("Expected 1 day across spring forward, got %d", got)
	}
	if got := DaysBetween(a, time.Date(2026, 3, 11, 8, 0, 0, 0, loc)); got != 3 {
		t.Fatalf("Expected 3 days over a gap containing a short day, got %d", got)
	}
	c := time.Date(2026, 10, 31, 12, 0, 0, 0, loc)
	d := time.Date(2026, 11, 1, 12, 0, 0, 0, loc)
	if got := DaysBetween(c, d); got != 1 {
		t.Fatalf("Expected 1 day across fall back, got %d", got)
	}
	if got := DaysBetween(d, c); got != -1 {
		t.Fatalf("Expected -1 day in reverse across fall back, got %d", got)
	}
}

func TestSameDay(t *testing.T) {
	a := time.Date(2024, 3, 10, 0, 0, 1, 0, time.Local)
	b := time.Date(2024, 3, 10, 23, 59, 59, 0, time.Local)
	if !SameDay(a, b) {
		t.Fatalf("Expected same day")
	}
	if SameDay(a, b.Add(time.Second)) {
		t.Fatalf("Expected different days")
	}
}

func TestEndOfDay(t *testing.T) {
	a := time.Date(2024, 3, 10, 13, 30, 0, 0, time.Local)
	end := EndOfDay(a)
	if end.Hour() != 0 || end.Day() != 11 {
		t.Fatalf("Unexpected end of day: %v", end)
	}
}
