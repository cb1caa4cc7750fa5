package sync // import "github.com/johnyfernandes/shlf-sync/sync"

import (
	"time"

	"github.com/johnyfernandes/shlf-sync/log"
	"github.com/johnyfernandes/shlf-sync/model"
	"github.com/johnyfernandes/shlf-sync/store"
	"github.com/johnyfernandes/shlf-sync/worker"
	"go.uber.org/zap"
)

// Prober reports whether the paired daemon answers right now. Implemented by
// HTTPPeer; nil when unpaired.
type Prober interface {
	Reachable() bool
}

// Service is the outbound half of the peer channel. It frames local
// mutations into envelopes and hands them to the send pool. A nil pool means
// the device is unpaired; every notification becomes a no-op.
type Service struct {
	store  *store.Store
	pool   worker.WorkPool
	prober Prober
	device model.DeviceTag
}

func NewService(s *store.Store, pool worker.WorkPool, prober Prober, device model.DeviceTag) *Service {
	return &Service{store: s, pool: pool, prober: prober, device: device}
}

// PeerStatus describes the pairing state for the control surface. Reachable
// is a live probe, not cached state.
type PeerStatus struct {
	Paired    bool `json:"paired"`
	Reachable bool `json:"reachable"`
}

func (s *Service) PeerStatus() PeerStatus {
	status := PeerStatus{Paired: s.pool != nil}
	if s.prober != nil {
		status.Reachable = s.prober.Reachable()
	}
	return status
}

// NotifySnapshot implements session.Notifier.
func (s *Service) NotifySnapshot(snapshot *model.ActiveSessionSnapshot) {
	s.push(model.MessageSessionSnapshot, snapshot)
}

// NotifyCompletion implements session.Notifier.
func (s *Service) NotifyCompletion(completion *model.SessionCompletion) {
	s.push(model.MessageSessionCompletion, completion)
}

// NotifyPageDelta implements session.Notifier.
func (s *Service) NotifyPageDelta(delta *model.PageDelta) {
	s.push(model.MessagePageDelta, delta)
}

// SendProfileSettings mirrors display preferences to the peer.
func (s *Service) SendProfileSettings(settings *model.ProfileSettingsSync) {
	s.push(model.MessageProfileSettings, settings)
}

// BroadcastLibrary ships the complete currently-reading set to the peer.
// The receiver replaces its list wholesale, so there is no per-book diffing
// to get wrong.
func (s *Service) BroadcastLibrary() error {
	if s.pool == nil {
		return nil
	}

	status := model.StatusCurrentlyReading
	books, err := s.store.ListBooks(&model.FindBook{Status: &status})
	if err != nil {
		return err
	}

	broadcast := &model.LibraryBroadcast{
		Device: s.device,
		SentTs: time.Now().Unix(),
		Books:  make([]model.BookTransfer, 0, len(books)),
	}
	for _, book := range books {
		broadcast.Books = append(broadcast.Books, model.TransferOf(book))
	}

	s.pool.Push(worker.Outbound{Context: broadcast})
	return nil
}

func (s *Service) push(kind model.MessageKind, payload any) {
	if s.pool == nil {
		return
	}

	envelope, err := model.NewEnvelope(kind, s.device, time.Now().Unix(), payload)
	if err != nil {
		log.Error("Failed to frame outbound message", zap.String("kind", string(kind)), zap.Error(err))
		return
	}
	s.pool.Push(worker.Outbound{Envelope: envelope})
}
