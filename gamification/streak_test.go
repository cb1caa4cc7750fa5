package gamification

import (
	"testing"
	"time"

	"github.com/johnyfernandes/shlf-sync/model"
	"github.com/johnyfernandes/shlf-sync/store"
	"github.com/pkg/errors"
)

func seedStreak(t *testing.T, s *store.Store, streak int, lastDay time.Time) {
	t.Helper()
	lastTs := lastDay.Unix()
	if _, err := s.UpdateProfile(&model.UpdateProfile{
		CurrentStreak:     &streak,
		LongestStreak:     &streak,
		LastReadingDateTs: &lastTs,
	}); err != nil {
		t.Fatalf("Failed to seed profile: %v", err)
	}
}

func TestStreakDeadline(t *testing.T) {
	s := newTestStore(t, "streak_deadline")
	engine := NewEngine(s)

	day1 := time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local)
	seedStreak(t, s, 3, day1)

	profile, _ := s.GetProfile()
	deadline := engine.StreakDeadline(profile)
	if deadline == nil {
		t.Fatal("Expected a deadline for a live streak")
	}
	// Today counts through the end of the day after the last reading day.
	want := day1.AddDate(0, 0, 2)
	if !deadline.Equal(want) {
		t.Fatalf("Expected deadline %v, got %v", want, deadline)
	}

	// No streak, no deadline.
	zero := 0
	if _, err := s.UpdateProfile(&model.UpdateProfile{CurrentStreak: &zero}); err != nil {
		t.Fatalf("Failed to zero streak: %v", err)
	}
	profile, _ = s.GetProfile()
	if engine.StreakDeadline(profile) != nil {
		t.Fatal("Expected no deadline without a streak")
	}
}

func TestPardonEligibilityStates(t *testing.T) {
	s := newTestStore(t, "pardon_states")
	engine := NewEngine(s)

	day1 := time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local)
	seedStreak(t, s, 3, day1)
	profile, _ := s.GetProfile()

	// Reading yesterday or today: nothing to bridge.
	engine.now = func() time.Time { return day1.Add(20 * time.Hour) }
	if got := engine.PardonEligibility(profile).State; got != PardonNotNeeded {
		t.Fatalf("Expected NOT_NEEDED, got %s", got)
	}
	engine.now = func() time.Time { return day1.AddDate(0, 0, 1).Add(10 * time.Hour) }
	if got := engine.PardonEligibility(profile).State; got != PardonNotNeeded {
		t.Fatalf("Expected NOT_NEEDED the day after, got %s", got)
	}

	// Exactly one missed day, inside the window.
	engine.now = func() time.Time { return day1.AddDate(0, 0, 2).Add(8 * time.Hour) }
	eligibility := engine.PardonEligibility(profile)
	if eligibility.State != PardonAvailable {
		t.Fatalf("Expected AVAILABLE, got %s", eligibility.State)
	}
	wantMissed := day1.AddDate(0, 0, 1)
	if !eligibility.MissedDay.Equal(wantMissed) {
		t.Fatalf("Expected missed day %v, got %v", wantMissed, eligibility.MissedDay)
	}

	// Two missed days: a pardon bridges exactly one, never more.
	engine.now = func() time.Time { return day1.AddDate(0, 0, 3).Add(8 * time.Hour) }
	if got := engine.PardonEligibility(profile).State; got != PardonExpired {
		t.Fatalf("Expected EXPIRED after two missed days, got %s", got)
	}

	// Cooling down.
	engine.now = func() time.Time { return day1.AddDate(0, 0, 2).Add(8 * time.Hour) }
	cooldownUntil := engine.now().Add(24 * time.Hour).Unix()
	if _, err := s.UpdateProfile(&model.UpdateProfile{PardonCooldownUntilTs: &cooldownUntil}); err != nil {
		t.Fatalf("Failed to set cooldown: %v", err)
	}
	profile, _ = s.GetProfile()
	if got := engine.PardonEligibility(profile).State; got != PardonCooldown {
		t.Fatalf("Expected COOLDOWN, got %s", got)
	}
}

func TestApplyPardonBridgesMissedDay(t *testing.T) {
	s := newTestStore(t, "pardon_apply")
	engine := NewEngine(s)

	day1 := time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local)
	seedStreak(t, s, 5, day1)
	engine.now = func() time.Time { return day1.AddDate(0, 0, 2).Add(8 * time.Hour) }

	profile, err := engine.ApplyPardon()
	if err != nil {
		t.Fatalf("Failed to apply pardon: %v", err)
	}

	// The missed day is now treated as read and the streak stands.
	wantBridged := day1.AddDate(0, 0, 1).Unix()
	if profile.LastReadingDateTs != wantBridged {
		t.Fatalf("Expected bridged day %d, got %d", wantBridged, profile.LastReadingDateTs)
	}
	if profile.CurrentStreak != 5 {
		t.Fatalf("Pardon must preserve the streak, got %d", profile.CurrentStreak)
	}
	if profile.PardonCooldownUntilTs <= engine.now().Unix() {
		t.Fatal("Expected a cooldown in the future")
	}

	events := eventTypes(t, s)
	if len(events) == 0 || events[0] != model.StreakEventSaved {
		t.Fatalf("Expected a SAVED event, got %v", events)
	}

	// With the gap bridged the streak is no longer refreshable away.
	if err := engine.RefreshStreak(); err != nil {
		t.Fatalf("Failed to refresh streak: %v", err)
	}
	profile, _ = s.GetProfile()
	if profile.CurrentStreak != 5 {
		t.Fatalf("Bridged streak must survive refresh, got %d", profile.CurrentStreak)
	}
}

func TestApplyPardonRejectedOutsideWindow(t *testing.T) {
	s := newTestStore(t, "pardon_rejected")
	engine := NewEngine(s)

	day1 := time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local)
	seedStreak(t, s, 5, day1)
	engine.now = func() time.Time { return day1.AddDate(0, 0, 5) }

	_, err := engine.ApplyPardon()
	if !errors.Is(err, store.ErrPardonNotAvailable) {
		t.Fatalf("Expected ErrPardonNotAvailable, got %v", err)
	}

	// A failed pardon leaves the profile untouched.
	profile, _ := s.GetProfile()
	if profile.LastReadingDateTs != day1.Unix() || profile.PardonCooldownUntilTs != 0 {
		t.Fatalf("Rejected pardon must not mutate: %+v", profile)
	}
}
