// Package gamification owns the streak state machine, pardons, and
// achievement awards derived from completed sessions.
package gamification

import (
	"context"
	"time"

	"github.com/johnyfernandes/shlf-sync/log"
	"github.com/johnyfernandes/shlf-sync/model"
	"github.com/johnyfernandes/shlf-sync/store"
	"github.com/johnyfernandes/shlf-sync/util"
	"go.uber.org/zap"
)

type Engine struct {
	store *store.Store

	// now is replaceable in tests.
	now func() time.Time
}

func NewEngine(s *store.Store) *Engine {
	return &Engine{store: s, now: time.Now}
}

// HandleSessionCompleted advances the streak state machine for a newly
// recorded session and re-checks achievements. Sessions flagged as not
// counting toward stats (backfills, imports) skip the streak machine.
func (e *Engine) HandleSessionCompleted(session *model.ReadingSession) error {
	if session.CountsTowardStats {
		if err := e.advanceStreak(time.Unix(session.EndTs, 0)); err != nil {
			return err
		}
	}
	return e.CheckAchievements()
}

// advanceStreak applies a qualifying reading day to the profile.
// All streak arithmetic is local-calendar-day based.
func (e *Engine) advanceStreak(readAt time.Time) error {
	profile, err := e.store.GetProfile()
	if err != nil {
		return err
	}
	if profile == nil {
		return nil
	}

	day := util.StartOfDay(readAt)
	dayTs := day.Unix()

	if profile.LastReadingDateTs == 0 {
		return e.startStreak(profile, dayTs)
	}

	last := time.Unix(profile.LastReadingDateTs, 0)
	switch gap := util.DaysBetween(last, day); {
	case gap <= 0:
		// Same day, or a stale replayed session. Streak unchanged.
		return nil
	case gap == 1:
		return e.extendStreak(profile, dayTs)
	default:
		// More than one day without a pardon bridging it: the old streak is
		// lost and today starts a fresh one.
		if _, err := e.store.AddStreakEvent(&model.StreakEvent{
			EventDateTs:  dayTs,
			Type:         model.StreakEventLost,
			StreakLength: profile.CurrentStreak,
		}); err != nil {
			return err
		}
		log.Info("Streak lost", zap.Int("length", profile.CurrentStreak), zap.Int("gap_days", gap))
		return e.startStreak(profile, dayTs)
	}
}

func (e *Engine) startStreak(profile *model.UserProfile, dayTs int64) error {
	streak := 1
	update := &model.UpdateProfile{
		CurrentStreak:     &streak,
		LastReadingDateTs: &dayTs,
	}
	if profile.LongestStreak < streak {
		update.LongestStreak = &streak
	}
	if _, err := e.store.UpdateProfile(update); err != nil {
		return err
	}
	_, err := e.store.AddStreakEvent(&model.StreakEvent{
		EventDateTs:  dayTs,
		Type:         model.StreakEventStarted,
		StreakLength: streak,
	})
	return err
}

func (e *Engine) extendStreak(profile *model.UserProfile, dayTs int64) error {
	streak := profile.CurrentStreak + 1
	update := &model.UpdateProfile{
		CurrentStreak:     &streak,
		LastReadingDateTs: &dayTs,
	}
	if streak > profile.LongestStreak {
		update.LongestStreak = &streak
	}
	if _, err := e.store.UpdateProfile(update); err != nil {
		return err
	}
	_, err := e.store.AddStreakEvent(&model.StreakEvent{
		EventDateTs:  dayTs,
		Type:         model.StreakEventDay,
		StreakLength: streak,
	})
	return err
}

// RefreshStreak lazily evaluates whether the streak has already broken due to
// elapsed time. It is called opportunistically (streak detail views) and from
// the periodic reconciler; there is no dependency on either happening.
//
// A streak still inside the pardon window is left standing so a pardon can
// save it; it is only marked lost once no pardon could bridge the gap.
func (e *Engine) RefreshStreak() error {
	profile, err := e.store.GetProfile()
	if err != nil {
		return err
	}
	if profile == nil || profile.CurrentStreak == 0 || profile.LastReadingDateTs == 0 {
		return nil
	}

	now := e.now()
	last := time.Unix(profile.LastReadingDateTs, 0)
	gap := util.DaysBetween(last, now)
	if gap <= 1 {
		return nil
	}

	// Still saveable by a pardon; leave the streak standing.
	if e.PardonEligibility(profile).State == PardonAvailable {
		return nil
	}

	zero := 0
	if _, err := e.store.UpdateProfile(&model.UpdateProfile{CurrentStreak: &zero}); err != nil {
		return err
	}
	if _, err := e.store.AddStreakEvent(&model.StreakEvent{
		EventDateTs:  util.StartOfDay(now).Unix(),
		Type:         model.StreakEventLost,
		StreakLength: profile.CurrentStreak,
	}); err != nil {
		return err
	}
	log.Info("Streak expired without pardon", zap.Int("length", profile.CurrentStreak), zap.Int("gap_days", gap))
	return nil
}

// StartReconciler runs RefreshStreak on a timer so missed days are detected
// even when nothing pulls streak state. interval <= 0 disables it.
func (e *Engine) StartReconciler(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := e.RefreshStreak(); err != nil {
					log.Error("Streak reconciliation failed", zap.Error(err))
				}
			}
		}
	}()
}

// CheckAchievements awards any newly earned achievements. Unlocking is
// at-most-once, enforced by the store's unique key.
func (e *Engine) CheckAchievements() error {
	profile, err := e.store.GetProfile()
	if err != nil {
		return err
	}
	if profile == nil {
		return nil
	}

	finished, err := e.store.CountFinishedBooks()
	if err != nil {
		return err
	}
	pages, err := e.store.SumPagesRead()
	if err != nil {
		return err
	}

	earned := []model.AchievementKind{}
	if finished >= 1 {
		earned = append(earned, model.AchievementFirstBook)
	}
	if finished >= 5 {
		earned = append(earned, model.AchievementFiveBooks)
	}
	if finished >= 25 {
		earned = append(earned, model.AchievementTwentyFive)
	}
	if pages >= 1000 {
		earned = append(earned, model.AchievementKiloPages)
	}
	if profile.LongestStreak >= 7 {
		earned = append(earned, model.AchievementWeekStreak)
	}
	if profile.LongestStreak >= 30 {
		earned = append(earned, model.AchievementMonthStreak)
	}

	for _, kind := range earned {
		unlocked, err := e.store.UnlockAchievement(kind)
		if err != nil {
			return err
		}
		if unlocked {
			log.Info("Achievement unlocked", zap.String("kind", string(kind)))
		}
	}
	return nil
}
