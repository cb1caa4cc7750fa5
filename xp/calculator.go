// Package xp maps completed reading sessions to experience awards.
//
// The calculation must be bit-stable across devices: both devices may compute
// XP for the same session independently, and deduplication relies on the
// session's xp_awarded flag, not on re-deriving and comparing values.
package xp

const (
	// perPageXP is the base award per page read.
	perPageXP = 10
	// perMinuteXP rewards time spent, capped relative to pages so slow
	// page-turning can't out-earn actual reading.
	perMinuteXP = 2
)

// Calculate returns the XP award for a session. Non-negative, deterministic,
// zero when no pages were read. A zero-duration session (quick page nudges)
// still earns the page-proportional floor.
func Calculate(pagesRead, durationMinutes int) int {
	if pagesRead <= 0 {
		return 0
	}

	base := pagesRead * perPageXP
	if durationMinutes <= 0 {
		return base
	}

	bonus := durationMinutes * perMinuteXP
	if bonus > base/2 {
		bonus = base / 2
	}
	return base + bonus
}
