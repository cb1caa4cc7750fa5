package model

import "time"

// DeviceTag names which device originated a mutation.
type DeviceTag string

const (
	DevicePhone DeviceTag = "Phone"
	DeviceWatch DeviceTag = "Watch"
)

func (d DeviceTag) Valid() bool {
	return d == DevicePhone || d == DeviceWatch
}

// ReadingSession is an immutable record of a quantum of reading. Only the
// XPAwarded flag may change after creation, set by whichever device credits
// the XP first.
type ReadingSession struct {
	ID              int       `json:"id"`
	UUID            string    `json:"uuid"`
	BookUUID        string    `json:"book_uuid"`
	StartTs         int64     `json:"start_ts"`
	EndTs           int64     `json:"end_ts"`
	StartPage       int       `json:"start_page"`
	EndPage         int       `json:"end_page"`
	DurationMinutes int       `json:"duration_minutes"`
	XPEarned        int       `json:"xp_earned"`
	// AutoGenerated marks sessions synthesized from quick page nudges rather
	// than a running timer.
	AutoGenerated bool `json:"auto_generated"`
	// CountsTowardStats is false for backfilled or imported finishes, which
	// must not feed streaks or goals.
	CountsTowardStats bool `json:"counts_toward_stats"`
	// XPAwarded prevents double credit when a device that already computed XP
	// re-syncs the session.
	XPAwarded bool `json:"xp_awarded"`
}

func (s *ReadingSession) PagesRead() int {
	return s.EndPage - s.StartPage
}

type FindSession struct {
	UUID     *string `json:"uuid"`
	BookUUID *string `json:"book_uuid"`
	// SinceTs filters sessions ending at or after the given unix timestamp.
	SinceTs *int64 `json:"since_ts"`

	Limit *int `json:"limit"`
}

// ActiveReadingSession is the single live reading-in-progress record. At most
// one exists system-wide; either device may own it.
type ActiveReadingSession struct {
	UUID               string    `json:"uuid"`
	BookUUID           string    `json:"book_uuid"`
	StartTs            int64     `json:"start_ts"`
	StartPage          int       `json:"start_page"`
	CurrentPage        int       `json:"current_page"`
	Paused             bool      `json:"paused"`
	PausedAtTs         int64     `json:"paused_at_ts"`
	TotalPausedSeconds int64     `json:"total_paused_seconds"`
	SourceDevice       DeviceTag `json:"source_device"`
	LastUpdatedTs      int64     `json:"last_updated_ts"`
}

// Elapsed reports accumulated reading time at now, excluding paused spans.
// It is derived from wall-clock timestamps rather than a running counter so
// it survives process suspension.
func (a *ActiveReadingSession) Elapsed(now time.Time) time.Duration {
	total := now.Unix() - a.StartTs - a.TotalPausedSeconds
	if a.Paused && a.PausedAtTs > 0 {
		total -= now.Unix() - a.PausedAtTs
	}
	if total < 0 {
		total = 0
	}
	return time.Duration(total) * time.Second
}

func (a *ActiveReadingSession) PagesRead() int {
	return a.CurrentPage - a.StartPage
}
