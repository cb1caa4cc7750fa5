package sync // import "github.com/johnyfernandes/shlf-sync/sync"

import (
	"encoding/json"
	"sync/atomic"

	"github.com/johnyfernandes/shlf-sync/config"
	"github.com/johnyfernandes/shlf-sync/log"
	"github.com/johnyfernandes/shlf-sync/model"
	"github.com/johnyfernandes/shlf-sync/session"
	"github.com/johnyfernandes/shlf-sync/store"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Applier is the inbound half of the peer channel. Messages arrive in any
// order; each handler is idempotent or latest-wins so replays and gaps are
// harmless. Malformed payloads are logged and dropped, never fatal.
type Applier struct {
	store   *store.Store
	manager *session.Manager

	// lastContextTs guards the library context against out-of-order updates.
	lastContextTs atomic.Int64
}

func NewApplier(s *store.Store, manager *session.Manager) *Applier {
	return &Applier{store: s, manager: manager}
}

// Apply dispatches one inbound envelope.
func (a *Applier) Apply(envelope *model.Envelope) error {
	switch envelope.Kind {
	case model.MessagePageDelta:
		return a.applyPageDelta(envelope.Payload)
	case model.MessageSessionSnapshot:
		return a.applySnapshot(envelope.Payload)
	case model.MessageSessionCompletion:
		return a.applyCompletion(envelope.Payload)
	case model.MessageProfileSettings:
		return a.applyProfileSettings(envelope.Payload)
	default:
		log.Warn("Dropping message of unknown kind", zap.String("kind", string(envelope.Kind)))
		return nil
	}
}

// ApplyContext replaces the currently-reading list with the broadcast set.
// Broadcasts older than the last applied one are dropped.
func (a *Applier) ApplyContext(broadcast *model.LibraryBroadcast) error {
	last := a.lastContextTs.Load()
	if broadcast.SentTs < last {
		log.Debug("Dropping stale library broadcast",
			zap.Int64("broadcast_ts", broadcast.SentTs),
			zap.Int64("last_applied_ts", last))
		return nil
	}

	if err := a.store.ReplaceReadingList(broadcast.Books); err != nil {
		return err
	}
	a.lastContextTs.Store(broadcast.SentTs)
	return nil
}

func (a *Applier) applyPageDelta(payload json.RawMessage) error {
	var delta model.PageDelta
	if err := json.Unmarshal(payload, &delta); err != nil {
		log.Warn("Dropping malformed page delta", zap.Error(err))
		return nil
	}

	book, err := a.store.GetBook(&model.FindBook{UUID: &delta.BookUUID})
	if err != nil {
		return err
	}
	if book == nil {
		// The book has not been broadcast to this device yet. The next
		// library broadcast carries the page anyway.
		log.Debug("Dropping page delta for unknown book", zap.String("book_uuid", delta.BookUUID))
		return nil
	}

	// An absolute page makes the message idempotent on replay.
	page := book.CurrentPage + delta.Delta
	if delta.NewPage > 0 {
		page = delta.NewPage
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

	_, err = a.store.UpdateBook(&model.UpdateBook{UUID: book.UUID, CurrentPage: &page})
	if errors.Is(err, store.ErrBookNotFound) {
		return nil
	}
	return err
}

func (a *Applier) applySnapshot(payload json.RawMessage) error {
	var snapshot model.ActiveSessionSnapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		log.Warn("Dropping malformed session snapshot", zap.Error(err))
		return nil
	}
	return a.manager.ApplyRemoteSnapshot(&snapshot)
}

func (a *Applier) applyCompletion(payload json.RawMessage) error {
	var completion model.SessionCompletion
	if err := json.Unmarshal(payload, &completion); err != nil {
		log.Warn("Dropping malformed session completion", zap.Error(err))
		return nil
	}
	return a.manager.ApplyRemoteCompletion(&completion)
}

func (a *Applier) applyProfileSettings(payload json.RawMessage) error {
	var settings model.ProfileSettingsSync
	if err := json.Unmarshal(payload, &settings); err != nil {
		log.Warn("Dropping malformed profile settings", zap.Error(err))
		return nil
	}

	_, err := a.store.UpdateProfile(&model.UpdateProfile{
		ShowStreakOnWatch: &settings.ShowStreakOnWatch,
		ShowXPOnWatch:     &settings.ShowXPOnWatch,
	})
	return err
}
