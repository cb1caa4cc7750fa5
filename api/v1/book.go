package v1 // import "github.com/johnyfernandes/shlf-sync/api/v1"

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/johnyfernandes/shlf-sync/config"
	"github.com/johnyfernandes/shlf-sync/http/request"
	"github.com/johnyfernandes/shlf-sync/http/response"
	"github.com/johnyfernandes/shlf-sync/log"
	"github.com/johnyfernandes/shlf-sync/model"
	"github.com/johnyfernandes/shlf-sync/store"
	"github.com/johnyfernandes/shlf-sync/util"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func (h *Handler) listBooks(w http.ResponseWriter, r *http.Request) {
	find := &model.FindBook{}
	if s := r.URL.Query().Get("status"); s != "" {
		status := model.ReadingStatus(s)
		if !status.Valid() {
			response.BadRequest(w, r, errors.Errorf("unknown reading status: %s", s))
			return
		}
		find.Status = &status
	}

	books, err := h.store.ListBooks(find)
	if err != nil {
		log.Error("Error listing books", zap.Error(err))
		response.ServerError(w, r, err)
		return
	}
	response.OK(w, r, books)
}

func (h *Handler) getBook(w http.ResponseWriter, r *http.Request) {
	uuid := request.RouteStringParam(r, "uuid")
	book, err := h.store.GetBook(&model.FindBook{UUID: &uuid})
	if err != nil {
		response.ServerError(w, r, err)
		return
	}
	if book == nil {
		response.NotFound(w, r)
		return
	}
	response.OK(w, r, book)
}

func (h *Handler) addBook(w http.ResponseWriter, r *http.Request) {
	create := &model.Book{}
	if err := json.NewDecoder(r.Body).Decode(create); err != nil {
		log.Error("Failed to decode request body", zap.Error(err))
		response.BadRequest(w, r, err)
		return
	}

	if create.Title == "" {
		response.BadRequest(w, r, errors.New("title is required"))
		return
	}
	if create.UUID == "" {
		create.UUID = util.GenUUID()
	}
	if create.ReadingStatus == "" {
		create.ReadingStatus = model.StatusWantToRead
	}
	if !create.ReadingStatus.Valid() {
		response.BadRequest(w, r, errors.Errorf("unknown reading status: %s", create.ReadingStatus))
		return
	}
	if create.DateAddedTs == 0 {
		create.DateAddedTs = time.Now().Unix()
	}

	book, err := h.store.AddBook(create)
	if err != nil {
		log.Error("Error adding book", zap.Error(err))
		response.ServerError(w, r, err)
		return
	}

	h.broadcastLibrary()
	response.Created(w, r, book)
}

func (h *Handler) updateBook(w http.ResponseWriter, r *http.Request) {
	update := &model.UpdateBook{}
	if err := json.NewDecoder(r.Body).Decode(update); err != nil {
		log.Error("Failed to decode request body", zap.Error(err))
		response.BadRequest(w, r, err)
		return
	}
	update.UUID = request.RouteStringParam(r, "uuid")

	if update.ReadingStatus != nil && !update.ReadingStatus.Valid() {
		response.BadRequest(w, r, errors.Errorf("unknown reading status: %s", *update.ReadingStatus))
		return
	}

	book, err := h.store.UpdateBook(update)
	if err != nil {
		if errors.Is(err, store.ErrBookNotFound) {
			response.NotFound(w, r)
			return
		}
		log.Error("Error updating book", zap.Error(err))
		response.ServerError(w, r, err)
		return
	}

	h.broadcastLibrary()
	response.OK(w, r, book)
}

func (h *Handler) deleteBook(w http.ResponseWriter, r *http.Request) {
	uuid := request.RouteStringParam(r, "uuid")
	if err := h.store.RemoveBook(uuid); err != nil {
		if errors.Is(err, store.ErrBookNotFound) {
			response.NotFound(w, r)
			return
		}
		response.ServerError(w, r, err)
		return
	}

	h.broadcastLibrary()
	response.NoContent(w, r)
}

// nudgeProgress moves a book's page outside a running session, the quick
// "+N pages" gesture. The peer gets a fire-and-forget delta carrying the
// absolute page so replays are harmless.
func (h *Handler) nudgeProgress(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Delta int `json:"delta"`
		Page  int `json:"page"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.BadRequest(w, r, err)
		return
	}

	uuid := request.RouteStringParam(r, "uuid")
	book, err := h.store.GetBook(&model.FindBook{UUID: &uuid})
	if err != nil {
		response.ServerError(w, r, err)
		return
	}
	if book == nil {
		response.NotFound(w, r)
		return
	}

	page := book.CurrentPage + body.Delta
	if body.Page > 0 {
		page = body.Page
	}
	ceiling := book.TotalPages
	if ceiling == 0 {
		ceiling = config.Opts.UnknownPageCeiling
	}
	if page < 0 {
		page = 0
	}
	if page > ceiling {
		page = ceiling
	}

	updated, err := h.store.UpdateBook(&model.UpdateBook{UUID: uuid, CurrentPage: &page})
	if err != nil {
		response.ServerError(w, r, err)
		return
	}

	if h.syncer != nil {
		h.syncer.NotifyPageDelta(&model.PageDelta{
			BookUUID: uuid,
			Delta:    body.Delta,
			NewPage:  page,
		})
	}
	response.OK(w, r, updated)
}

func (h *Handler) broadcastLibrary() {
	if h.syncer == nil {
		return
	}
	if err := h.syncer.BroadcastLibrary(); err != nil {
		log.Error("Failed to broadcast library", zap.Error(err))
	}
}
