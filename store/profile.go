package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/johnyfernandes/shlf-sync/log"
	"github.com/johnyfernandes/shlf-sync/model"
	"github.com/pkg/errors"
)

const profileColumns = `
	id,
	total_xp,
	current_streak,
	longest_streak,
	last_reading_date_ts,
	pardon_cooldown_until_ts,
	show_streak_on_watch,
	show_xp_on_watch,
	created_ts,
	updated_ts
`

func scanProfile(row *sql.Row) (*model.UserProfile, error) {
	var profile model.UserProfile
	if err := row.Scan(
		&profile.ID,
		&profile.TotalXP,
		&profile.CurrentStreak,
		&profile.LongestStreak,
		&profile.LastReadingDateTs,
		&profile.PardonCooldownUntilTs,
		&profile.ShowStreakOnWatch,
		&profile.ShowXPOnWatch,
		&profile.CreatedTs,
		&profile.UpdatedTs,
	); err != nil {
		return nil, err
	}
	return &profile, nil
}

// EnsureProfile returns the singleton profile, creating it when absent. The
// creation path runs under a single lock at startup instead of being a racy
// check-then-create scattered across access sites.
func (s *Store) EnsureProfile() (*model.UserProfile, error) {
	s.profileLock.Lock()
	defer s.profileLock.Unlock()

	profile, err := s.GetProfile()
	if err != nil {
		return nil, err
	}
	if profile != nil {
		return profile, nil
	}

	stmt := `
		INSERT INTO user_profile (id) VALUES (?)
		ON CONFLICT(id) DO NOTHING
	`
	if _, err := s.db.Exec(stmt, model.ProfileID); err != nil {
		return nil, errors.Wrap(err, "failed to create profile")
	}

	s.ProfileCache.Delete(model.ProfileID)
	return s.GetProfile()
}

func (s *Store) GetProfile() (*model.UserProfile, error) {
	if cache, ok := s.ProfileCache.Load(model.ProfileID); ok {
		return cache.(*model.UserProfile), nil
	}

	query := `SELECT ` + profileColumns + ` FROM user_profile WHERE id = ?`
	profile, err := scanProfile(s.db.QueryRow(query, model.ProfileID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	s.ProfileCache.Store(profile.ID, profile)
	return profile, nil
}

func (s *Store) UpdateProfile(update *model.UpdateProfile) (*model.UserProfile, error) {
	set, args := []string{}, []any{}

	if v := update.TotalXP; v != nil {
		set, args = append(set, "total_xp = ?"), append(args, *v)
	}
	if v := update.CurrentStreak; v != nil {
		set, args = append(set, "current_streak = ?"), append(args, *v)
	}
	if v := update.LongestStreak; v != nil {
		set, args = append(set, "longest_streak = ?"), append(args, *v)
	}
	if v := update.LastReadingDateTs; v != nil {
		set, args = append(set, "last_reading_date_ts = ?"), append(args, *v)
	}
	if v := update.PardonCooldownUntilTs; v != nil {
		set, args = append(set, "pardon_cooldown_until_ts = ?"), append(args, *v)
	}
	if v := update.ShowStreakOnWatch; v != nil {
		set, args = append(set, "show_streak_on_watch = ?"), append(args, *v)
	}
	if v := update.ShowXPOnWatch; v != nil {
		set, args = append(set, "show_xp_on_watch = ?"), append(args, *v)
	}

	if len(set) == 0 {
		return s.GetProfile()
	}

	set, args = append(set, "updated_ts = ?"), append(args, time.Now().Unix())
	args = append(args, model.ProfileID)

	stmt := "UPDATE user_profile SET " + strings.Join(set, ", ") + " WHERE id = ?"
	log.Fallback("Debug", fmt.Sprintf("UpdateProfile\nstmt: %s\nargs: %v\n", stmt, args))

	if _, err := s.db.Exec(stmt, args...); err != nil {
		return nil, err
	}

	s.ProfileCache.Delete(model.ProfileID)
	return s.GetProfile()
}

// ApplyPardon runs check inside a single transaction so that the pardon
// eligibility check and the resulting mutation are atomic. check re-evaluates
// eligibility against the freshly-read profile and returns the profile update
// and the streak event to log; returning an error aborts without mutating.
// Concurrent taps on both devices cannot both succeed.
func (s *Store) ApplyPardon(check func(*model.UserProfile) (*model.UpdateProfile, *model.StreakEvent, error)) (*model.UserProfile, error) {
	s.dbLock.Lock()
	defer s.dbLock.Unlock()
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := `SELECT ` + profileColumns + ` FROM user_profile WHERE id = ?`
	profile, err := scanProfile(tx.QueryRow(query, model.ProfileID))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read profile")
	}

	update, event, err := check(profile)
	if err != nil {
		return nil, err
	}

	set, args := []string{"updated_ts = ?"}, []any{time.Now().Unix()}
	if v := update.CurrentStreak; v != nil {
		set, args = append(set, "current_streak = ?"), append(args, *v)
		profile.CurrentStreak = *v
	}
	if v := update.LongestStreak; v != nil {
		set, args = append(set, "longest_streak = ?"), append(args, *v)
		profile.LongestStreak = *v
	}
	if v := update.LastReadingDateTs; v != nil {
		set, args = append(set, "last_reading_date_ts = ?"), append(args, *v)
		profile.LastReadingDateTs = *v
	}
	if v := update.PardonCooldownUntilTs; v != nil {
		set, args = append(set, "pardon_cooldown_until_ts = ?"), append(args, *v)
		profile.PardonCooldownUntilTs = *v
	}
	args = append(args, model.ProfileID)

	stmt := "UPDATE user_profile SET " + strings.Join(set, ", ") + " WHERE id = ?"
	if _, err := tx.Exec(stmt, args...); err != nil {
		return nil, err
	}

	if event != nil {
		if _, err := tx.Exec(`INSERT INTO streak_event (event_ts, event_date_ts, type, streak_length) VALUES (?, ?, ?, ?)`,
			event.EventTs, event.EventDateTs, string(event.Type), event.StreakLength); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.ProfileCache.Delete(model.ProfileID)
	return profile, nil
}
