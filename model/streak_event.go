package model

// StreakEventType classifies entries in the append-only streak log.
type StreakEventType string

const (
	// StreakEventDay records a day counted toward the streak.
	StreakEventDay StreakEventType = "DAY"
	// StreakEventSaved records a streak preserved by a pardon.
	StreakEventSaved StreakEventType = "SAVED"
	// StreakEventLost records a broken streak; StreakLength carries the prior length.
	StreakEventLost StreakEventType = "LOST"
	// StreakEventStarted records a fresh streak beginning.
	StreakEventStarted StreakEventType = "STARTED"
)

// StreakEvent is append-only, never mutated or deleted.
type StreakEvent struct {
	ID           int             `json:"id"`
	EventTs      int64           `json:"event_ts"`
	EventDateTs  int64           `json:"event_date_ts"` // midnight of the day the event refers to
	Type         StreakEventType `json:"type"`
	StreakLength int             `json:"streak_length"`
}

type FindStreakEvent struct {
	Type    *StreakEventType `json:"type"`
	SinceTs *int64           `json:"since_ts"`
	Limit   *int             `json:"limit"`
}
