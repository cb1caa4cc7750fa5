package v1 // import "github.com/johnyfernandes/shlf-sync/api/v1"

import (
	"encoding/json"
	"net/http"

	"github.com/johnyfernandes/shlf-sync/http/request"
	"github.com/johnyfernandes/shlf-sync/http/response"
	"github.com/johnyfernandes/shlf-sync/log"
	"github.com/johnyfernandes/shlf-sync/model"
	"github.com/johnyfernandes/shlf-sync/session"
	"github.com/johnyfernandes/shlf-sync/store"
	"github.com/johnyfernandes/shlf-sync/util"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func (h *Handler) getActiveSession(w http.ResponseWriter, r *http.Request) {
	active, err := h.manager.Current()
	if err != nil {
		response.ServerError(w, r, err)
		return
	}
	if active == nil {
		response.NotFound(w, r)
		return
	}
	response.OK(w, r, active)
}

// startSession starts a reading session. When a session is already live,
// possibly mirrored from the other device, the caller gets a 409 carrying
// the live session and must retry with ?force=true to end it first.
func (h *Handler) startSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		BookUUID string `json:"book_uuid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.BadRequest(w, r, err)
		return
	}
	if body.BookUUID == "" {
		response.BadRequest(w, r, errors.New("book_uuid is required"))
		return
	}

	force := request.QueryBoolParam(r, "force")
	active, err := h.manager.Start(body.BookUUID, force)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrActiveSessionExists):
			current, cerr := h.manager.Current()
			if cerr != nil {
				response.ServerError(w, r, cerr)
				return
			}
			response.Conflict(w, r, current)
		case errors.Is(err, store.ErrBookNotFound):
			response.NotFound(w, r)
		default:
			log.Error("Failed to start session", zap.Error(err))
			response.ServerError(w, r, err)
		}
		return
	}
	response.Created(w, r, active)
}

func (h *Handler) pauseSession(w http.ResponseWriter, r *http.Request) {
	active, err := h.manager.Pause()
	if err != nil {
		h.sessionError(w, r, err)
		return
	}
	response.OK(w, r, active)
}

func (h *Handler) resumeSession(w http.ResponseWriter, r *http.Request) {
	active, err := h.manager.Resume()
	if err != nil {
		h.sessionError(w, r, err)
		return
	}
	response.OK(w, r, active)
}

func (h *Handler) adjustPage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Page int `json:"page"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.BadRequest(w, r, err)
		return
	}

	active, err := h.manager.AdjustPage(body.Page)
	if err != nil {
		h.sessionError(w, r, err)
		return
	}
	response.OK(w, r, active)
}

func (h *Handler) completeSession(w http.ResponseWriter, r *http.Request) {
	completed, err := h.manager.Complete()
	if err != nil {
		h.sessionError(w, r, err)
		return
	}
	if completed == nil {
		// Zero pages read: the session is quietly discarded.
		response.NoContent(w, r)
		return
	}
	response.OK(w, r, completed)
}

func (h *Handler) abandonSession(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Abandon(); err != nil {
		h.sessionError(w, r, err)
		return
	}
	response.NoContent(w, r)
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	find := &model.FindSession{}
	if uuid := r.URL.Query().Get("book_uuid"); uuid != "" {
		find.BookUUID = &uuid
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := util.ConvertStringToInt32(raw)
		if err != nil || parsed < 0 {
			response.BadRequest(w, r, errors.New("limit must be a non-negative integer"))
			return
		}
		limit := int(parsed)
		find.Limit = &limit
	}

	sessions, err := h.store.ListSessions(find)
	if err != nil {
		response.ServerError(w, r, err)
		return
	}
	response.OK(w, r, sessions)
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	uuid := request.RouteStringParam(r, "uuid")
	found, err := h.store.GetSession(&model.FindSession{UUID: &uuid})
	if err != nil {
		response.ServerError(w, r, err)
		return
	}
	if found == nil {
		response.NotFound(w, r)
		return
	}
	response.OK(w, r, found)
}

func (h *Handler) sessionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNoActiveSession):
		response.NotFound(w, r)
	case errors.Is(err, session.ErrPageOutOfRange),
		errors.Is(err, session.ErrAlreadyPaused),
		errors.Is(err, session.ErrNotPaused):
		response.BadRequest(w, r, err)
	default:
		log.Error("Session operation failed", zap.Error(err))
		response.ServerError(w, r, err)
	}
}
