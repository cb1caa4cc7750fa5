package gamification

import (
	"time"

	"github.com/johnyfernandes/shlf-sync/config"
	"github.com/johnyfernandes/shlf-sync/model"
	"github.com/johnyfernandes/shlf-sync/store"
	"github.com/johnyfernandes/shlf-sync/util"
	"github.com/pkg/errors"
)

// PardonState is the outcome of a pardon eligibility check.
type PardonState string

const (
	// PardonNotNeeded - the streak has no missed day to bridge.
	PardonNotNeeded PardonState = "NOT_NEEDED"
	// PardonAvailable - exactly one missed day, inside the window, off cooldown.
	PardonAvailable PardonState = "AVAILABLE"
	// PardonCooldown - a pardon would apply but the previous one is still cooling down.
	PardonCooldown PardonState = "COOLDOWN"
	// PardonExpired - the window has passed or more than one day was missed.
	PardonExpired PardonState = "EXPIRED"
)

// PardonEligibility describes whether a pardon can currently save the streak.
type PardonEligibility struct {
	State PardonState `json:"state"`
	// MissedDay is midnight of the day the pardon would bridge.
	MissedDay time.Time `json:"missed_day,omitempty"`
	// Deadline is when availability ends.
	Deadline time.Time `json:"deadline,omitempty"`
	// NextAvailable is when the cooldown ends.
	NextAvailable time.Time `json:"next_available,omitempty"`
}

// StreakDeadline returns the moment after which today no longer counts toward
// extending the streak: the end of the calendar day following the last
// reading day. Nil when there is no streak to extend.
func (e *Engine) StreakDeadline(profile *model.UserProfile) *time.Time {
	if profile == nil || profile.LastReadingDateTs == 0 || profile.CurrentStreak == 0 {
		return nil
	}
	last := time.Unix(profile.LastReadingDateTs, 0)
	deadline := util.StartOfDay(last).AddDate(0, 0, 2)
	return &deadline
}

// pardonDeadline is how long after the missed day ends a pardon stays usable.
func pardonDeadline(missedDay time.Time) time.Time {
	window := time.Duration(config.Opts.PardonWindowHours) * time.Hour
	return util.EndOfDay(missedDay).Add(window)
}

// PardonEligibility evaluates the pardon state machine against now. A pardon
// bridges exactly one missed day and is only offered within the configured
// window after that day ended.
func (e *Engine) PardonEligibility(profile *model.UserProfile) PardonEligibility {
	if profile == nil || profile.CurrentStreak == 0 || profile.LastReadingDateTs == 0 {
		return PardonEligibility{State: PardonNotNeeded}
	}

	now := e.now()
	last := time.Unix(profile.LastReadingDateTs, 0)
	missed := util.DaysBetween(last, now) - 1
	if missed <= 0 {
		return PardonEligibility{State: PardonNotNeeded}
	}

	missedDay := util.StartOfDay(last).AddDate(0, 0, 1)
	deadline := pardonDeadline(missedDay)

	if missed > 1 || now.After(deadline) {
		return PardonEligibility{State: PardonExpired, MissedDay: missedDay}
	}

	if profile.PardonCooldownUntilTs > now.Unix() {
		return PardonEligibility{
			State:         PardonCooldown,
			MissedDay:     missedDay,
			NextAvailable: time.Unix(profile.PardonCooldownUntilTs, 0),
		}
	}

	return PardonEligibility{State: PardonAvailable, MissedDay: missedDay, Deadline: deadline}
}

// ApplyPardon bridges the missed day, preserving the streak. The eligibility
// check and the mutation run in one store transaction, so concurrent taps
// from both devices cannot both succeed.
func (e *Engine) ApplyPardon() (*model.UserProfile, error) {
	now := e.now()
	cooldown := time.Duration(config.Opts.PardonCooldownHours) * time.Hour

	return e.store.ApplyPardon(func(profile *model.UserProfile) (*model.UpdateProfile, *model.StreakEvent, error) {
		eligibility := e.PardonEligibility(profile)
		if eligibility.State != PardonAvailable {
			return nil, nil, errors.Wrapf(store.ErrPardonNotAvailable, "pardon state is %s", eligibility.State)
		}

		// Bridging: the missed day is treated as read, so a session today
		// extends the streak through the normal one-day-gap path.
		bridgedTs := eligibility.MissedDay.Unix()
		cooldownUntil := now.Add(cooldown).Unix()
		update := &model.UpdateProfile{
			LastReadingDateTs:     &bridgedTs,
			PardonCooldownUntilTs: &cooldownUntil,
		}
		event := &model.StreakEvent{
			EventTs:      now.Unix(),
			EventDateTs:  bridgedTs,
			Type:         model.StreakEventSaved,
			StreakLength: profile.CurrentStreak,
		}
		return update, event, nil
	})
}
