package store

import (
	"time"

	"github.com/johnyfernandes/shlf-sync/model"
)

// UnlockAchievement awards the achievement at most once. Returns true when the
// achievement was newly unlocked.
func (s *Store) UnlockAchievement(kind model.AchievementKind) (bool, error) {
	result, err := s.db.Exec(`INSERT OR IGNORE INTO achievement (kind, unlocked_ts) VALUES (?, ?)`,
		string(kind), time.Now().Unix())
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) ListAchievements() ([]*model.Achievement, error) {
	rows, err := s.db.Query(`SELECT id, kind, unlocked_ts FROM achievement ORDER BY unlocked_ts ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]*model.Achievement, 0)
	for rows.Next() {
		var achievement model.Achievement
		if err := rows.Scan(
			&achievement.ID,
			&achievement.Kind,
			&achievement.UnlockedTs,
		); err != nil {
			return nil, err
		}
		list = append(list, &achievement)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}
