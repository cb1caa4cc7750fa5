package model

// ProfileID is the row id of the singleton profile.
const ProfileID = 1

// UserProfile is the per-install singleton carrying gamification state.
type UserProfile struct {
	ID            int   `json:"id"`
	TotalXP       int   `json:"total_xp"`
	CurrentStreak int   `json:"current_streak"`
	LongestStreak int   `json:"longest_streak"`
	// LastReadingDateTs is midnight (local) of the last day a qualifying
	// session was logged. Zero when the profile has never read.
	LastReadingDateTs int64 `json:"last_reading_date_ts"`
	// PardonCooldownUntilTs is when the next pardon becomes usable again.
	PardonCooldownUntilTs int64 `json:"pardon_cooldown_until_ts"`
	// Watch display preferences, synchronized as ProfileSettingsSync.
	ShowStreakOnWatch bool `json:"show_streak_on_watch"`
	ShowXPOnWatch     bool `json:"show_xp_on_watch"`
	CreatedTs         int64 `json:"created_ts"`
	UpdatedTs         int64 `json:"updated_ts"`
}

type UpdateProfile struct {
	TotalXP               *int
	CurrentStreak         *int
	LongestStreak         *int
	LastReadingDateTs     *int64
	PardonCooldownUntilTs *int64
	ShowStreakOnWatch     *bool
	ShowXPOnWatch         *bool
}
