package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/johnyfernandes/shlf-sync/log"
	"github.com/johnyfernandes/shlf-sync/model"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func (s *Store) GetSession(find *model.FindSession) (*model.ReadingSession, error) {
	list, err := s.ListSessions(find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) ListSessions(find *model.FindSession) ([]*model.ReadingSession, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.UUID; v != nil {
		where, args = append(where, "uuid = ?"), append(args, *v)
	}
	if v := find.BookUUID; v != nil {
		where, args = append(where, "book_uuid = ?"), append(args, *v)
	}
	if v := find.SinceTs; v != nil {
		where, args = append(where, "end_ts >= ?"), append(args, *v)
	}

	query := `
		SELECT
			id,
			uuid,
			book_uuid,
			start_ts,
			end_ts,
			start_page,
			end_page,
			duration_minutes,
			xp_earned,
			auto_generated,
			counts_toward_stats,
			xp_awarded
		FROM reading_session
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY end_ts DESC`
	if v := find.Limit; v != nil {
		query += fmt.Sprintf(" LIMIT %d", *v)
	}

	log.Debug("SQL query and args:")
	log.Fallback("Debug", fmt.Sprintf("query: %s\nargs: %v\n", query, args))

	rows, err := s.db.Query(query, args...)
	if err != nil {
		log.Error("Failed to query sessions", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	list := make([]*model.ReadingSession, 0)
	for rows.Next() {
		var session model.ReadingSession
		if err := rows.Scan(
			&session.ID,
			&session.UUID,
			&session.BookUUID,
			&session.StartTs,
			&session.EndTs,
			&session.StartPage,
			&session.EndPage,
			&session.DurationMinutes,
			&session.XPEarned,
			&session.AutoGenerated,
			&session.CountsTowardStats,
			&session.XPAwarded,
		); err != nil {
			return nil, err
		}
		list = append(list, &session)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

// AddSession persists a completed reading session. The referenced book must
// exist; an orphaned reference is an error, not a silent no-op.
func (s *Store) AddSession(create *model.ReadingSession) (*model.ReadingSession, error) {
	s.dbLock.Lock()
	defer s.dbLock.Unlock()
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := bookExists(tx, create.BookUUID); err != nil {
		return nil, err
	}

	if err := insertSession(tx, create); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return create, nil
}

func bookExists(tx *sql.Tx, bookUUID string) error {
	var one int
	if err := tx.QueryRow(`SELECT 1 FROM book WHERE uuid = ?`, bookUUID).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBookNotFound
		}
		return err
	}
	return nil
}

func insertSession(tx *sql.Tx, create *model.ReadingSession) error {
	fields := []string{"`uuid`", "`book_uuid`", "`start_ts`", "`end_ts`", "`start_page`", "`end_page`", "`duration_minutes`", "`xp_earned`", "`auto_generated`", "`counts_toward_stats`", "`xp_awarded`"}
	placeholder := []string{"?", "?", "?", "?", "?", "?", "?", "?", "?", "?", "?"}
	args := []any{create.UUID, create.BookUUID, create.StartTs, create.EndTs, create.StartPage, create.EndPage, create.DurationMinutes, create.XPEarned, create.AutoGenerated, create.CountsTowardStats, create.XPAwarded}
	stmt := "INSERT INTO reading_session (" + strings.Join(fields, ", ") + ") VALUES (" + strings.Join(placeholder, ", ") + ") RETURNING id"

	log.Fallback("Debug", fmt.Sprintf("insertSession\nstmt: %s\nargs: %v\n", stmt, args))

	return tx.QueryRow(stmt, args...).Scan(&create.ID)
}

func (s *Store) GetActiveSession() (*model.ActiveReadingSession, error) {
	query := `
		SELECT
			uuid,
			book_uuid,
			start_ts,
			start_page,
			current_page,
			paused,
			paused_at_ts,
			total_paused_seconds,
			source_device,
			last_updated_ts
		FROM active_session
		WHERE id = 1
	`
	var active model.ActiveReadingSession
	if err := s.db.QueryRow(query).Scan(
		&active.UUID,
		&active.BookUUID,
		&active.StartTs,
		&active.StartPage,
		&active.CurrentPage,
		&active.Paused,
		&active.PausedAtTs,
		&active.TotalPausedSeconds,
		&active.SourceDevice,
		&active.LastUpdatedTs,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &active, nil
}

// SaveActiveSession upserts the singleton active-session row wholesale. Field
// level merging is never done; the caller's copy is authoritative.
func (s *Store) SaveActiveSession(active *model.ActiveReadingSession) error {
	stmt := `
		INSERT INTO active_session (id, uuid, book_uuid, start_ts, start_page, current_page, paused, paused_at_ts, total_paused_seconds, source_device, last_updated_ts)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE
		SET
			uuid = EXCLUDED.uuid,
			book_uuid = EXCLUDED.book_uuid,
			start_ts = EXCLUDED.start_ts,
			start_page = EXCLUDED.start_page,
			current_page = EXCLUDED.current_page,
			paused = EXCLUDED.paused,
			paused_at_ts = EXCLUDED.paused_at_ts,
			total_paused_seconds = EXCLUDED.total_paused_seconds,
			source_device = EXCLUDED.source_device,
			last_updated_ts = EXCLUDED.last_updated_ts
	`
	_, err := s.db.Exec(stmt,
		active.UUID, active.BookUUID, active.StartTs, active.StartPage, active.CurrentPage,
		active.Paused, active.PausedAtTs, active.TotalPausedSeconds, string(active.SourceDevice), active.LastUpdatedTs,
	)
	return err
}

func (s *Store) DeleteActiveSession() error {
	_, err := s.db.Exec(`DELETE FROM active_session WHERE id = 1`)
	return err
}

// CompleteActiveSession converts the active session into a persisted
// ReadingSession in a single transaction: the session row is inserted, the
// active row removed, the book's current page advanced, and, when creditXP is
// set, the profile's XP credited. Local state is durable before any peer
// notification happens.
//
// When a session with the same uuid already exists (a re-synced completion),
// the existing row is returned and no XP is credited again.
func (s *Store) CompleteActiveSession(create *model.ReadingSession, endedUUID string, creditXP bool) (*model.ReadingSession, error) {
	s.dbLock.Lock()
	defer s.dbLock.Unlock()
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := bookExists(tx, create.BookUUID); err != nil {
		return nil, err
	}

	var existingID int
	err = tx.QueryRow(`SELECT id FROM reading_session WHERE uuid = ?`, create.UUID).Scan(&existingID)
	duplicate := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	if !duplicate {
		if err := insertSession(tx, create); err != nil {
			return nil, err
		}
		if _, err := tx.Exec(`UPDATE book SET current_page = ?, updated_ts = strftime('%s', 'now') WHERE uuid = ? AND current_page < ?`,
			create.EndPage, create.BookUUID, create.EndPage); err != nil {
			return nil, err
		}
		if creditXP {
			if _, err := tx.Exec(`UPDATE user_profile SET total_xp = total_xp + ?, updated_ts = strftime('%s', 'now') WHERE id = ?`,
				create.XPEarned, model.ProfileID); err != nil {
				return nil, err
			}
		}
	} else {
		create.ID = existingID
	}

	if endedUUID != "" {
		if _, err := tx.Exec(`DELETE FROM active_session WHERE id = 1 AND uuid = ?`, endedUUID); err != nil {
			return nil, err
		}
	} else {
		if _, err := tx.Exec(`DELETE FROM active_session WHERE id = 1`); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.BookCache.Delete(create.BookUUID)
	if creditXP && !duplicate {
		s.ProfileCache.Delete(model.ProfileID)
	}
	return create, nil
}

// SumPagesReadBetween totals pages of counting sessions ending in [startTs, endTs).
func (s *Store) SumPagesReadBetween(startTs, endTs int64) (int, error) {
	query := `
		SELECT COALESCE(SUM(end_page - start_page), 0)
		FROM reading_session
		WHERE counts_toward_stats = 1 AND end_ts >= ? AND end_ts < ?
	`
	var total int
	if err := s.db.QueryRow(query, startTs, endTs).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// SumMinutesBetween totals minutes of counting sessions ending in [startTs, endTs).
func (s *Store) SumMinutesBetween(startTs, endTs int64) (int, error) {
	query := `
		SELECT COALESCE(SUM(duration_minutes), 0)
		FROM reading_session
		WHERE counts_toward_stats = 1 AND end_ts >= ? AND end_ts < ?
	`
	var total int
	if err := s.db.QueryRow(query, startTs, endTs).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) SumPagesRead() (int, error) {
	var total int
	if err := s.db.QueryRow(`SELECT COALESCE(SUM(end_page - start_page), 0) FROM reading_session WHERE counts_toward_stats = 1`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) CountSessions() (int, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM reading_session`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
