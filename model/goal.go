package model

// GoalType selects which aggregate a goal tracks.
type GoalType string

const (
	GoalPagesPerDay   GoalType = "PAGES_PER_DAY"
	GoalPagesPerWeek  GoalType = "PAGES_PER_WEEK"
	GoalMinutesPerDay GoalType = "MINUTES_PER_DAY"
	GoalBooksPerYear  GoalType = "BOOKS_PER_YEAR"
)

func (g GoalType) Valid() bool {
	switch g {
	case GoalPagesPerDay, GoalPagesPerWeek, GoalMinutesPerDay, GoalBooksPerYear:
		return true
	}
	return false
}

// ReadingGoal is a standing target recomputed, not recreated, by the tracker.
type ReadingGoal struct {
	ID           int      `json:"id"`
	UUID         string   `json:"uuid"`
	Type         GoalType `json:"type"`
	TargetValue  int      `json:"target_value"`
	CurrentValue int      `json:"current_value"`
	// IsCompleted is sticky within the goal window: once set it is never
	// cleared even if later data would suggest otherwise.
	IsCompleted bool  `json:"is_completed"`
	StartsTs    int64 `json:"starts_ts"`
	EndsTs      int64 `json:"ends_ts"` // 0 for open-ended goals
	CreatedTs   int64 `json:"created_ts"`
}

type FindGoal struct {
	UUID *string   `json:"uuid"`
	Type *GoalType `json:"type"`
	// ActiveAtTs restricts to goals whose window contains the timestamp.
	ActiveAtTs *int64 `json:"active_at_ts"`
}
