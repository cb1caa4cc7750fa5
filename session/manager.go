// Package session owns the single live reading session on this device and
// its reconciliation with the peer's copy.
package session

import (
	"sync"
	"time"

	"github.com/johnyfernandes/shlf-sync/config"
	"github.com/johnyfernandes/shlf-sync/gamification"
	"github.com/johnyfernandes/shlf-sync/goal"
	"github.com/johnyfernandes/shlf-sync/log"
	"github.com/johnyfernandes/shlf-sync/model"
	"github.com/johnyfernandes/shlf-sync/store"
	"github.com/johnyfernandes/shlf-sync/util"
	"github.com/johnyfernandes/shlf-sync/xp"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	// ErrActiveSessionExists means a session is already running, possibly on
	// the other device. Starting a new one requires explicitly ending the old
	// one; the control surface turns this into a confirmation, never a silent
	// replacement.
	ErrActiveSessionExists = errors.New("session: an active session already exists")
	// ErrPageOutOfRange rejects adjustments below the session start page or
	// past the book's page count.
	ErrPageOutOfRange = errors.New("session: page out of range")
	// ErrNotPaused / ErrAlreadyPaused guard the pause state machine.
	ErrNotPaused     = errors.New("session: not paused")
	ErrAlreadyPaused = errors.New("session: already paused")
)

// Notifier carries local mutations to the peer. Sends are best-effort and
// must not block the caller.
type Notifier interface {
	NotifySnapshot(*model.ActiveSessionSnapshot)
	NotifyCompletion(*model.SessionCompletion)
	NotifyPageDelta(*model.PageDelta)
}

// Manager is the per-device single mutator for the active session. All local
// and remote mutations serialize through its lock, mirroring the one logical
// mutator each device has.
type Manager struct {
	mu       sync.Mutex
	store    *store.Store
	tracker  *goal.Tracker
	engine   *gamification.Engine
	notifier Notifier
	device   model.DeviceTag

	debounce time.Duration
	pending  *time.Timer

	// now is replaceable in tests.
	now func() time.Time
}

func NewManager(s *store.Store, tracker *goal.Tracker, engine *gamification.Engine, notifier Notifier, device model.DeviceTag) *Manager {
	return &Manager{
		store:    s,
		tracker:  tracker,
		engine:   engine,
		notifier: notifier,
		device:   device,
		debounce: time.Duration(config.Opts.PageSyncDebounce) * time.Millisecond,
		now:      time.Now,
	}
}

// Current returns this device's copy of the active session, nil when idle.
func (m *Manager) Current() (*model.ActiveReadingSession, error) {
	return m.store.GetActiveSession()
}

// Start begins a timed session on the given book. If a session already exists
// (on either device) and force is false, ErrActiveSessionExists is returned so
// the caller can ask the user; with force the existing session is ended first,
// completing it when it made progress and abandoning it otherwise.
func (m *Manager) Start(bookUUID string, force bool) (*model.ActiveReadingSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, err := m.store.GetActiveSession()
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if !force {
			return nil, ErrActiveSessionExists
		}
		if existing.PagesRead() > 0 {
			if _, err := m.completeLocked(existing); err != nil {
				return nil, err
			}
		} else {
			if err := m.abandonLocked(existing); err != nil {
				return nil, err
			}
		}
	}

	book, err := m.store.GetBook(&model.FindBook{UUID: &bookUUID})
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, store.ErrBookNotFound
	}

	now := m.now()
	active := &model.ActiveReadingSession{
		UUID:          util.GenUUID(),
		BookUUID:      bookUUID,
		StartTs:       now.Unix(),
		StartPage:     book.CurrentPage,
		CurrentPage:   book.CurrentPage,
		SourceDevice:  m.device,
		LastUpdatedTs: now.Unix(),
	}
	if err := m.store.SaveActiveSession(active); err != nil {
		return nil, err
	}

	m.notifySnapshot(active)
	log.Info("Reading session started",
		zap.String("book", bookUUID),
		zap.Int("start_page", active.StartPage))
	return active, nil
}

// Pause stops elapsed-time accrual by recording the pause timestamp. The
// start date is never rewritten.
func (m *Manager) Pause() (*model.ActiveReadingSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	active, err := m.requireActive()
	if err != nil {
		return nil, err
	}
	if active.Paused {
		return nil, ErrAlreadyPaused
	}

	now := m.now()
	active.Paused = true
	active.PausedAtTs = now.Unix()
	active.LastUpdatedTs = now.Unix()
	if err := m.store.SaveActiveSession(active); err != nil {
		return nil, err
	}
	m.notifySnapshot(active)
	return active, nil
}

// Resume folds the completed pause segment into the accumulated paused
// duration.
func (m *Manager) Resume() (*model.ActiveReadingSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	active, err := m.requireActive()
	if err != nil {
		return nil, err
	}
	if !active.Paused {
		return nil, ErrNotPaused
	}

	now := m.now()
	active.TotalPausedSeconds += now.Unix() - active.PausedAtTs
	active.Paused = false
	active.PausedAtTs = 0
	active.LastUpdatedTs = now.Unix()
	if err := m.store.SaveActiveSession(active); err != nil {
		return nil, err
	}
	m.notifySnapshot(active)
	return active, nil
}

// AdjustPage sets the current page, bounded by the session start page and the
// book's page count (or the configured ceiling when the count is unknown).
// The snapshot send is debounced: each adjustment cancels any pending send
// and reschedules it, so a burst of +1 taps produces one message.
func (m *Manager) AdjustPage(page int) (*model.ActiveReadingSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	active, err := m.requireActive()
	if err != nil {
		return nil, err
	}

	book, err := m.store.GetBook(&model.FindBook{UUID: &active.BookUUID})
	if err != nil {
		return nil, err
	}
	ceiling := config.Opts.UnknownPageCeiling
	if book != nil && book.TotalPages > 0 {
		ceiling = book.TotalPages
	}
	if page < active.StartPage || page > ceiling {
		return nil, errors.Wrapf(ErrPageOutOfRange, "page %d not in [%d, %d]", page, active.StartPage, ceiling)
	}

	active.CurrentPage = page
	active.LastUpdatedTs = m.now().Unix()
	if err := m.store.SaveActiveSession(active); err != nil {
		return nil, err
	}

	m.scheduleSnapshot(active)
	return active, nil
}

// Complete converts the active session into a persisted ReadingSession. A
// zero-progress stop is an abandon, not a completion, and produces no record.
// The session row, active-row removal, book page and XP credit commit in one
// transaction before the peer is notified, so local state is correct even if
// the send fails.
func (m *Manager) Complete() (*model.ReadingSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	active, err := m.requireActive()
	if err != nil {
		return nil, err
	}
	if active.PagesRead() <= 0 {
		if err := m.abandonLocked(active); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return m.completeLocked(active)
}

func (m *Manager) completeLocked(active *model.ActiveReadingSession) (*model.ReadingSession, error) {
	m.cancelPending()

	now := m.now()
	if active.Paused {
		// Close the open pause segment before measuring elapsed time.
		active.TotalPausedSeconds += now.Unix() - active.PausedAtTs
		active.Paused = false
		active.PausedAtTs = 0
	}
	minutes := int(active.Elapsed(now) / time.Minute)

	completed := &model.ReadingSession{
		UUID:              util.GenUUID(),
		BookUUID:          active.BookUUID,
		StartTs:           active.StartTs,
		EndTs:             now.Unix(),
		StartPage:         active.StartPage,
		EndPage:           active.CurrentPage,
		DurationMinutes:   minutes,
		XPEarned:          xp.Calculate(active.PagesRead(), minutes),
		CountsTowardStats: true,
		XPAwarded:         true,
	}

	saved, err := m.store.CompleteActiveSession(completed, active.UUID, true)
	if err != nil {
		log.Error("Failed to persist completed session, peer not notified", zap.Error(err))
		return nil, err
	}

	if err := m.tracker.UpdateGoals(); err != nil {
		log.Error("Failed to update goals", zap.Error(err))
	}
	if err := m.engine.HandleSessionCompleted(saved); err != nil {
		log.Error("Failed to update gamification state", zap.Error(err))
	}

	if m.notifier != nil {
		m.notifier.NotifyCompletion(&model.SessionCompletion{
			EndedSessionUUID: active.UUID,
			Completed:        saved,
			EndLiveActivity:  true,
		})
	}

	log.Info("Reading session completed",
		zap.String("book", saved.BookUUID),
		zap.Int("pages", saved.PagesRead()),
		zap.Int("xp", saved.XPEarned))
	return saved, nil
}

// Abandon discards the active session without recording anything.
func (m *Manager) Abandon() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	active, err := m.requireActive()
	if err != nil {
		return err
	}
	return m.abandonLocked(active)
}

func (m *Manager) abandonLocked(active *model.ActiveReadingSession) error {
	m.cancelPending()
	if err := m.store.DeleteActiveSession(); err != nil {
		return err
	}
	if m.notifier != nil {
		m.notifier.NotifyCompletion(&model.SessionCompletion{
			EndedSessionUUID: active.UUID,
			EndLiveActivity:  true,
		})
	}
	log.Info("Reading session abandoned", zap.String("book", active.BookUUID))
	return nil
}

// ApplyRemoteSnapshot overwrites the local active-session copy with the
// peer's. Fields are never merged; the most recent LastUpdatedTs wins.
func (m *Manager) ApplyRemoteSnapshot(snapshot *model.ActiveSessionSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	local, err := m.store.GetActiveSession()
	if err != nil {
		return err
	}
	// The recency check is UUID-independent: a delayed snapshot of an
	// already-ended session must not overwrite a newer live one.
	if local != nil && local.LastUpdatedTs > snapshot.LastUpdatedTs {
		log.Debug("Dropping stale session snapshot",
			zap.String("snapshot_session", snapshot.SessionUUID),
			zap.Int64("local_ts", local.LastUpdatedTs),
			zap.Int64("remote_ts", snapshot.LastUpdatedTs))
		return nil
	}
	return m.store.SaveActiveSession(snapshot.ToActiveSession())
}

// ApplyRemoteCompletion applies the atomic completion bundle from the peer.
// XP is credited only when the sender had not already awarded it; the
// xp_awarded flag, not message deduplication, prevents double credit.
func (m *Manager) ApplyRemoteCompletion(completion *model.SessionCompletion) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cancelPending()

	if completion.Completed == nil {
		// Abandon on the peer: clear the mirrored active session, but only
		// the one the bundle ends. A delayed abandon for an older session
		// must not delete a newer live one.
		local, err := m.store.GetActiveSession()
		if err != nil {
			return err
		}
		if local == nil || local.UUID != completion.EndedSessionUUID {
			log.Debug("Ignoring abandon for a session that is not active",
				zap.String("ended_session", completion.EndedSessionUUID))
			return nil
		}
		return m.store.DeleteActiveSession()
	}

	incoming := *completion.Completed
	creditXP := !incoming.XPAwarded
	if creditXP {
		incoming.XPEarned = xp.Calculate(incoming.PagesRead(), incoming.DurationMinutes)
		incoming.XPAwarded = true
	}

	saved, err := m.store.CompleteActiveSession(&incoming, completion.EndedSessionUUID, creditXP)
	if err != nil {
		return err
	}

	if err := m.tracker.UpdateGoals(); err != nil {
		log.Error("Failed to update goals", zap.Error(err))
	}
	if err := m.engine.HandleSessionCompleted(saved); err != nil {
		log.Error("Failed to update gamification state", zap.Error(err))
	}
	return nil
}

// Close cancels any pending debounced send. Called on shutdown so a stale
// snapshot can't fire after teardown.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelPending()
}

func (m *Manager) requireActive() (*model.ActiveReadingSession, error) {
	active, err := m.store.GetActiveSession()
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, store.ErrNoActiveSession
	}
	return active, nil
}

func (m *Manager) notifySnapshot(active *model.ActiveReadingSession) {
	if m.notifier == nil {
		return
	}
	m.notifier.NotifySnapshot(model.SnapshotOf(active))
}

// scheduleSnapshot coalesces rapid page adjustments: a newer edit cancels the
// pending send and restarts the debounce window.
func (m *Manager) scheduleSnapshot(active *model.ActiveReadingSession) {
	if m.notifier == nil {
		return
	}
	m.cancelPending()
	snapshot := model.SnapshotOf(active)
	if m.debounce <= 0 {
		m.notifier.NotifySnapshot(snapshot)
		return
	}
	m.pending = time.AfterFunc(m.debounce, func() {
		m.notifier.NotifySnapshot(snapshot)
	})
}

func (m *Manager) cancelPending() {
	if m.pending != nil {
		m.pending.Stop()
		m.pending = nil
	}
}
