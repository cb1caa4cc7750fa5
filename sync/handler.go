package sync // import "github.com/johnyfernandes/shlf-sync/sync"

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/johnyfernandes/shlf-sync/http/request"
	"github.com/johnyfernandes/shlf-sync/http/response"
	"github.com/johnyfernandes/shlf-sync/log"
	"github.com/johnyfernandes/shlf-sync/middleware"
	"github.com/johnyfernandes/shlf-sync/model"
	"github.com/johnyfernandes/shlf-sync/store"
	"go.uber.org/zap"
)

// Handler receives the peer daemon's traffic.
type Handler struct {
	store   *store.Store
	applier *Applier
	device  model.DeviceTag
}

func NewHandler(s *store.Store, applier *Applier, device model.DeviceTag) *Handler {
	return &Handler{store: s, applier: applier, device: device}
}

// Server mounts the peer-facing routes. Everything under /sync/v1 requires a
// valid peer token.
func Server(router *mux.Router, handler *Handler) {
	sr := router.PathPrefix("/sync/v1").Subrouter()
	mw := middleware.NewMiddleware(handler.store)
	sr.Use(mw.LoggingRequest)
	sr.Use(mw.PeerAuthInterceptor)

	sr.HandleFunc("/message", handler.receiveMessage).Methods(http.MethodPost)
	sr.HandleFunc("/context", handler.receiveContext).Methods(http.MethodPut)
	sr.HandleFunc("/context", handler.getContext).Methods(http.MethodGet)
}

func (h *Handler) receiveMessage(w http.ResponseWriter, r *http.Request) {
	if !request.IsPeerAuthenticated(r) {
		response.Unauthorized(w, r)
		return
	}

	var envelope model.Envelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		log.Warn("Failed to decode peer message", zap.Error(err))
		response.BadRequest(w, r, err)
		return
	}

	log.Debug("Received peer message",
		zap.String("kind", string(envelope.Kind)),
		zap.String("device", request.GetPeerDevice(r)))

	if err := h.applier.Apply(&envelope); err != nil {
		response.ServerError(w, r, err)
		return
	}
	response.Accepted(w, r)
}

func (h *Handler) receiveContext(w http.ResponseWriter, r *http.Request) {
	var broadcast model.LibraryBroadcast
	if err := json.NewDecoder(r.Body).Decode(&broadcast); err != nil {
		log.Warn("Failed to decode library broadcast", zap.Error(err))
		response.BadRequest(w, r, err)
		return
	}

	if err := h.applier.ApplyContext(&broadcast); err != nil {
		response.ServerError(w, r, err)
		return
	}
	response.Accepted(w, r)
}

// getContext lets a freshly paired peer pull the current library instead of
// waiting for the next broadcast.
func (h *Handler) getContext(w http.ResponseWriter, r *http.Request) {
	status := model.StatusCurrentlyReading
	books, err := h.store.ListBooks(&model.FindBook{Status: &status})
	if err != nil {
		response.ServerError(w, r, err)
		return
	}

	broadcast := &model.LibraryBroadcast{
		Device: h.device,
		SentTs: time.Now().Unix(),
		Books:  make([]model.BookTransfer, 0, len(books)),
	}
	for _, book := range books {
		broadcast.Books = append(broadcast.Books, model.TransferOf(book))
	}
	response.OK(w, r, broadcast)
}
