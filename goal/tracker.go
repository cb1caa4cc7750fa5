// Package goal recomputes standing reading goals from session history.
package goal

import (
	"time"

	"github.com/johnyfernandes/shlf-sync/log"
	"github.com/johnyfernandes/shlf-sync/model"
	"github.com/johnyfernandes/shlf-sync/store"
	"github.com/johnyfernandes/shlf-sync/util"
	"go.uber.org/zap"
)

type Tracker struct {
	store *store.Store

	// now is replaceable in tests.
	now func() time.Time
}

func NewTracker(s *store.Store) *Tracker {
	return &Tracker{store: s, now: time.Now}
}

// UpdateGoals recomputes current_value for every goal active now by
// re-scanning the relevant history window. Idempotent; safe to call after
// every session mutation. Completion is sticky: a completed goal never goes
// back to incomplete even if later data would suggest otherwise.
func (t *Tracker) UpdateGoals() error {
	now := t.now()
	nowTs := now.Unix()
	goals, err := t.store.ListGoals(&model.FindGoal{ActiveAtTs: &nowTs})
	if err != nil {
		return err
	}

	for _, g := range goals {
		current, err := t.currentValue(g, now)
		if err != nil {
			return err
		}
		completed := current >= g.TargetValue
		if err := t.store.SetGoalProgress(g.UUID, current, completed); err != nil {
			return err
		}
		if completed && !g.IsCompleted {
			log.Info("Reading goal completed",
				zap.String("goal", string(g.Type)),
				zap.Int("target", g.TargetValue))
		}
	}
	return nil
}

func (t *Tracker) currentValue(g *model.ReadingGoal, now time.Time) (int, error) {
	switch g.Type {
	case model.GoalPagesPerDay:
		start, end := dayWindow(now)
		return t.store.SumPagesReadBetween(start, end)
	case model.GoalPagesPerWeek:
		start, end := weekWindow(now)
		return t.store.SumPagesReadBetween(start, end)
	case model.GoalMinutesPerDay:
		start, end := dayWindow(now)
		return t.store.SumMinutesBetween(start, end)
	case model.GoalBooksPerYear:
		start, end := yearWindow(now)
		return t.store.CountBooksFinishedBetween(start, end)
	default:
		log.Warn("Unknown goal type, treating progress as zero", zap.String("type", string(g.Type)))
		return 0, nil
	}
}

func dayWindow(now time.Time) (int64, int64) {
	return util.StartOfDay(now).Unix(), util.EndOfDay(now).Unix()
}

func weekWindow(now time.Time) (int64, int64) {
	day := util.StartOfDay(now)
	// Weeks start on Monday.
	offset := (int(day.Weekday()) + 6) % 7
	start := day.AddDate(0, 0, -offset)
	return start.Unix(), start.AddDate(0, 0, 7).Unix()
}

func yearWindow(now time.Time) (int64, int64) {
	start := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
	return start.Unix(), start.AddDate(1, 0, 0).Unix()
}
