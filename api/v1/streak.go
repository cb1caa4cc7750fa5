package v1 // import "github.com/johnyfernandes/shlf-sync/api/v1"

import (
	"net/http"

	"github.com/johnyfernandes/shlf-sync/gamification"
	"github.com/johnyfernandes/shlf-sync/http/response"
	"github.com/johnyfernandes/shlf-sync/log"
	"github.com/johnyfernandes/shlf-sync/model"
	"github.com/johnyfernandes/shlf-sync/store"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type streakResponse struct {
	CurrentStreak     int    `json:"current_streak"`
	LongestStreak     int    `json:"longest_streak"`
	LastReadingDateTs int64  `json:"last_reading_date_ts"`
	DeadlineTs        *int64 `json:"deadline_ts,omitempty"`

	Pardon gamification.PardonEligibility `json:"pardon"`
}

// getStreak refreshes the streak against the clock before reading it, so a
// streak broken while the daemon idled is reported broken, not stale.
func (h *Handler) getStreak(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.RefreshStreak(); err != nil {
		log.Error("Failed to refresh streak", zap.Error(err))
		response.ServerError(w, r, err)
		return
	}

	profile, err := h.store.GetProfile()
	if err != nil {
		response.ServerError(w, r, err)
		return
	}

	resp := streakResponse{
		CurrentStreak:     profile.CurrentStreak,
		LongestStreak:     profile.LongestStreak,
		LastReadingDateTs: profile.LastReadingDateTs,
		Pardon:            h.engine.PardonEligibility(profile),
	}
	if deadline := h.engine.StreakDeadline(profile); deadline != nil {
		ts := deadline.Unix()
		resp.DeadlineTs = &ts
	}
	response.OK(w, r, resp)
}

func (h *Handler) listStreakEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.store.ListStreakEvents(&model.FindStreakEvent{})
	if err != nil {
		response.ServerError(w, r, err)
		return
	}
	response.OK(w, r, events)
}

func (h *Handler) applyPardon(w http.ResponseWriter, r *http.Request) {
	profile, err := h.engine.ApplyPardon()
	if err != nil {
		if errors.Is(err, store.ErrPardonNotAvailable) {
			response.Conflict(w, r, h.pardonConflict())
			return
		}
		log.Error("Failed to apply pardon", zap.Error(err))
		response.ServerError(w, r, err)
		return
	}
	response.OK(w, r, profile)
}

func (h *Handler) pardonConflict() any {
	profile, err := h.store.GetProfile()
	if err != nil {
		return map[string]string{"error_message": "pardon not available"}
	}
	return h.engine.PardonEligibility(profile)
}
