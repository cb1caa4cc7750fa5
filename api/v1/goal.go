package v1 // import "github.com/johnyfernandes/shlf-sync/api/v1"

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/johnyfernandes/shlf-sync/http/request"
	"github.com/johnyfernandes/shlf-sync/http/response"
	"github.com/johnyfernandes/shlf-sync/log"
	"github.com/johnyfernandes/shlf-sync/model"
	"github.com/johnyfernandes/shlf-sync/util"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// listGoals recomputes progress before returning, reads never serve stale
// aggregates.
func (h *Handler) listGoals(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.UpdateGoals(); err != nil {
		log.Error("Failed to update goals", zap.Error(err))
		response.ServerError(w, r, err)
		return
	}

	find := &model.FindGoal{}
	if request.QueryBoolParam(r, "active") {
		now := time.Now().Unix()
		find.ActiveAtTs = &now
	}

	goals, err := h.store.ListGoals(find)
	if err != nil {
		response.ServerError(w, r, err)
		return
	}
	response.OK(w, r, goals)
}

func (h *Handler) addGoal(w http.ResponseWriter, r *http.Request) {
	create := &model.ReadingGoal{}
	if err := json.NewDecoder(r.Body).Decode(create); err != nil {
		response.BadRequest(w, r, err)
		return
	}

	if !create.Type.Valid() {
		response.BadRequest(w, r, errors.Errorf("unknown goal type: %s", create.Type))
		return
	}
	if create.TargetValue <= 0 {
		response.BadRequest(w, r, errors.New("target_value must be positive"))
		return
	}
	if create.UUID == "" {
		create.UUID = util.GenUUID()
	}
	if create.StartsTs == 0 {
		create.StartsTs = time.Now().Unix()
	}

	goal, err := h.store.AddGoal(create)
	if err != nil {
		log.Error("Error adding goal", zap.Error(err))
		response.ServerError(w, r, err)
		return
	}
	response.Created(w, r, goal)
}

func (h *Handler) deleteGoal(w http.ResponseWriter, r *http.Request) {
	uuid := request.RouteStringParam(r, "uuid")
	if err := h.store.RemoveGoal(uuid); err != nil {
		response.ServerError(w, r, err)
		return
	}
	response.NoContent(w, r)
}
