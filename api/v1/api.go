package v1 // import "github.com/johnyfernandes/shlf-sync/api/v1"

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/johnyfernandes/shlf-sync/gamification"
	"github.com/johnyfernandes/shlf-sync/goal"
	"github.com/johnyfernandes/shlf-sync/middleware"
	"github.com/johnyfernandes/shlf-sync/session"
	"github.com/johnyfernandes/shlf-sync/store"
	"github.com/johnyfernandes/shlf-sync/sync"
)

// Handler serves the local control API. This surface is what the UI layer on
// the device talks to; it is never exposed to the peer.
type Handler struct {
	store   *store.Store
	manager *session.Manager
	tracker *goal.Tracker
	engine  *gamification.Engine
	syncer  *sync.Service
}

// NewHandler is a constructor for the v1.Handler
func NewHandler(store *store.Store, manager *session.Manager, tracker *goal.Tracker, engine *gamification.Engine, syncer *sync.Service) *Handler {
	return &Handler{
		store:   store,
		manager: manager,
		tracker: tracker,
		engine:  engine,
		syncer:  syncer,
	}
}

func Server(router *mux.Router, handler *Handler) {
	sr := router.PathPrefix("/api/v1").Subrouter()
	middleware := middleware.NewMiddleware(handler.store)
	sr.Use(middleware.HandleCORS)
	sr.Use(middleware.LoggingRequest)
	sr.Methods(http.MethodOptions)

	sr.HandleFunc("/books", handler.listBooks).Methods(http.MethodGet)
	sr.HandleFunc("/book", handler.addBook).Methods(http.MethodPost)
	sr.HandleFunc("/book/{uuid}", handler.getBook).Methods(http.MethodGet)
	sr.HandleFunc("/book/{uuid}", handler.updateBook).Methods(http.MethodPut)
	sr.HandleFunc("/book/{uuid}", handler.deleteBook).Methods(http.MethodDelete)
	sr.HandleFunc("/book/{uuid}/progress", handler.nudgeProgress).Methods(http.MethodPost)

	sr.HandleFunc("/session", handler.getActiveSession).Methods(http.MethodGet)
	sr.HandleFunc("/session/start", handler.startSession).Methods(http.MethodPost)
	sr.HandleFunc("/session/pause", handler.pauseSession).Methods(http.MethodPost)
	sr.HandleFunc("/session/resume", handler.resumeSession).Methods(http.MethodPost)
	sr.HandleFunc("/session/page", handler.adjustPage).Methods(http.MethodPut)
	sr.HandleFunc("/session/complete", handler.completeSession).Methods(http.MethodPost)
	sr.HandleFunc("/session/abandon", handler.abandonSession).Methods(http.MethodPost)
	sr.HandleFunc("/sessions", handler.listSessions).Methods(http.MethodGet)
	sr.HandleFunc("/sessions/{uuid}", handler.getSession).Methods(http.MethodGet)

	sr.HandleFunc("/profile", handler.getProfile).Methods(http.MethodGet)
	sr.HandleFunc("/peer", handler.getPeerStatus).Methods(http.MethodGet)
	sr.HandleFunc("/settings", handler.updateSettings).Methods(http.MethodPut)
	sr.HandleFunc("/achievements", handler.listAchievements).Methods(http.MethodGet)

	sr.HandleFunc("/streak", handler.getStreak).Methods(http.MethodGet)
	sr.HandleFunc("/streak/events", handler.listStreakEvents).Methods(http.MethodGet)
	sr.HandleFunc("/streak/pardon", handler.applyPardon).Methods(http.MethodPost)

	sr.HandleFunc("/goals", handler.listGoals).Methods(http.MethodGet)
	sr.HandleFunc("/goal", handler.addGoal).Methods(http.MethodPost)
	sr.HandleFunc("/goal/{uuid}", handler.deleteGoal).Methods(http.MethodDelete)
}
