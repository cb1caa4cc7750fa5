package v1 // import "github.com/johnyfernandes/shlf-sync/api/v1"

import (
	"encoding/json"
	"net/http"

	"github.com/johnyfernandes/shlf-sync/http/response"
	"github.com/johnyfernandes/shlf-sync/log"
	"github.com/johnyfernandes/shlf-sync/model"
	"github.com/johnyfernandes/shlf-sync/sync"
	"go.uber.org/zap"
)

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.store.GetProfile()
	if err != nil {
		response.ServerError(w, r, err)
		return
	}
	response.OK(w, r, profile)
}

// updateSettings persists display preferences locally first; the peer copy
// is only pushed after the local save succeeds, so a failed save leaves both
// devices on the old values.
func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	var body model.ProfileSettingsSync
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.BadRequest(w, r, err)
		return
	}

	profile, err := h.store.UpdateProfile(&model.UpdateProfile{
		ShowStreakOnWatch: &body.ShowStreakOnWatch,
		ShowXPOnWatch:     &body.ShowXPOnWatch,
	})
	if err != nil {
		log.Error("Failed to save settings", zap.Error(err))
		response.ServerError(w, r, err)
		return
	}

	if h.syncer != nil {
		h.syncer.SendProfileSettings(&body)
	}
	response.OK(w, r, profile)
}

// getPeerStatus reports pairing state and a live reachability probe so the
// UI can show whether the other device is online.
func (h *Handler) getPeerStatus(w http.ResponseWriter, r *http.Request) {
	if h.syncer == nil {
		response.OK(w, r, sync.PeerStatus{})
		return
	}
	response.OK(w, r, h.syncer.PeerStatus())
}

func (h *Handler) listAchievements(w http.ResponseWriter, r *http.Request) {
	achievements, err := h.store.ListAchievements()
	if err != nil {
		response.ServerError(w, r, err)
		return
	}
	response.OK(w, r, achievements)
}
