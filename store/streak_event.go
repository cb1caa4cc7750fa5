package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/johnyfernandes/shlf-sync/model"
)

func (s *Store) AddStreakEvent(create *model.StreakEvent) (*model.StreakEvent, error) {
	if create.EventTs == 0 {
		create.EventTs = time.Now().Unix()
	}
	stmt := `
		INSERT INTO streak_event (event_ts, event_date_ts, type, streak_length)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`
	if err := s.db.QueryRow(stmt, create.EventTs, create.EventDateTs, string(create.Type), create.StreakLength).Scan(&create.ID); err != nil {
		return nil, err
	}
	return create, nil
}

func (s *Store) ListStreakEvents(find *model.FindStreakEvent) ([]*model.StreakEvent, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.Type; v != nil {
		where, args = append(where, "type = ?"), append(args, string(*v))
	}
	if v := find.SinceTs; v != nil {
		where, args = append(where, "event_ts >= ?"), append(args, *v)
	}

	query := `
		SELECT
			id,
			event_ts,
			event_date_ts,
			type,
			streak_length
		FROM streak_event
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY event_ts DESC, id DESC`
	if v := find.Limit; v != nil {
		query += fmt.Sprintf(" LIMIT %d", *v)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]*model.StreakEvent, 0)
	for rows.Next() {
		var event model.StreakEvent
		if err := rows.Scan(
			&event.ID,
			&event.EventTs,
			&event.EventDateTs,
			&event.Type,
			&event.StreakLength,
		); err != nil {
			return nil, err
		}
		list = append(list, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}
