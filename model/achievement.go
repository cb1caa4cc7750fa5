package model

// AchievementKind is unique per profile; unlocking is at-most-once.
type AchievementKind string

const (
	AchievementFirstBook   AchievementKind = "FIRST_BOOK"
	AchievementFiveBooks   AchievementKind = "FIVE_BOOKS"
	AchievementTwentyFive  AchievementKind = "TWENTY_FIVE_BOOKS"
	AchievementKiloPages   AchievementKind = "THOUSAND_PAGES"
	AchievementWeekStreak  AchievementKind = "SEVEN_DAY_STREAK"
	AchievementMonthStreak AchievementKind = "THIRTY_DAY_STREAK"
)

type Achievement struct {
	ID         int             `json:"id"`
	Kind       AchievementKind `json:"kind"`
	UnlockedTs int64           `json:"unlocked_ts"`
}
