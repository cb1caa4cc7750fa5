package store

import (
	"strings"
	"time"

	"github.com/johnyfernandes/shlf-sync/model"
	"github.com/johnyfernandes/shlf-sync/util"
)

func (s *Store) AddGoal(create *model.ReadingGoal) (*model.ReadingGoal, error) {
	if create.UUID == "" {
		create.UUID = util.GenUUID()
	}
	if create.StartsTs == 0 {
		create.StartsTs = time.Now().Unix()
	}
	stmt := `
		INSERT INTO reading_goal (uuid, type, target_value, current_value, is_completed, starts_ts, ends_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id, created_ts
	`
	if err := s.db.QueryRow(stmt,
		create.UUID, string(create.Type), create.TargetValue, create.CurrentValue,
		create.IsCompleted, create.StartsTs, create.EndsTs,
	).Scan(&create.ID, &create.CreatedTs); err != nil {
		return nil, err
	}
	return create, nil
}

func (s *Store) ListGoals(find *model.FindGoal) ([]*model.ReadingGoal, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.UUID; v != nil {
		where, args = append(where, "uuid = ?"), append(args, *v)
	}
	if v := find.Type; v != nil {
		where, args = append(where, "type = ?"), append(args, string(*v))
	}
	if v := find.ActiveAtTs; v != nil {
		where, args = append(where, "starts_ts <= ? AND (ends_ts = 0 OR ends_ts > ?)"), append(args, *v, *v)
	}

	query := `
		SELECT
			id,
			uuid,
			type,
			target_value,
			current_value,
			is_completed,
			starts_ts,
			ends_ts,
			created_ts
		FROM reading_goal
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_ts ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]*model.ReadingGoal, 0)
	for rows.Next() {
		var goal model.ReadingGoal
		if err := rows.Scan(
			&goal.ID,
			&goal.UUID,
			&goal.Type,
			&goal.TargetValue,
			&goal.CurrentValue,
			&goal.IsCompleted,
			&goal.StartsTs,
			&goal.EndsTs,
			&goal.CreatedTs,
		); err != nil {
			return nil, err
		}
		list = append(list, &goal)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

// SetGoalProgress writes a recomputed progress value. Completion is sticky:
// is_completed is only ever raised, never lowered.
func (s *Store) SetGoalProgress(goalUUID string, currentValue int, completed bool) error {
	stmt := `
		UPDATE reading_goal
		SET current_value = ?, is_completed = CASE WHEN is_completed = 1 THEN 1 ELSE ? END
		WHERE uuid = ?
	`
	_, err := s.db.Exec(stmt, currentValue, completed, goalUUID)
	return err
}

func (s *Store) RemoveGoal(goalUUID string) error {
	_, err := s.db.Exec(`DELETE FROM reading_goal WHERE uuid = ?`, goalUUID)
	return err
}
