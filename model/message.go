package model

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// MessageKind discriminates envelope payloads on the peer channel.
type MessageKind string

const (
	MessagePageDelta         MessageKind = "PAGE_DELTA"
	MessageSessionSnapshot   MessageKind = "SESSION_SNAPSHOT"
	MessageSessionCompletion MessageKind = "SESSION_COMPLETION"
	MessageProfileSettings   MessageKind = "PROFILE_SETTINGS"
)

// Envelope frames a single peer message. No ordering is guaranteed between
// envelopes; every payload must be safe to apply out of order.
type Envelope struct {
	Kind    MessageKind     `json:"kind"`
	Device  DeviceTag       `json:"device"`
	SentTs  int64           `json:"sent_ts"`
	Payload json.RawMessage `json:"payload"`
}

// NewEnvelope marshals payload into a framed message.
func NewEnvelope(kind MessageKind, device DeviceTag, sentTs int64, payload any) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to encode %s payload", kind)
	}
	return &Envelope{Kind: kind, Device: device, SentTs: sentTs, Payload: raw}, nil
}

// PageDelta is fire-and-forget. NewPage, when positive, makes the message
// idempotent: the receiver applies the absolute page instead of the delta.
type PageDelta struct {
	BookUUID string `json:"book_uuid"`
	Delta    int    `json:"delta"`
	NewPage  int    `json:"new_page"`
}

// ActiveSessionSnapshot is overwrite-on-receipt; the receiver replaces its
// whole local active-session copy, most recent LastUpdatedTs wins.
type ActiveSessionSnapshot struct {
	SessionUUID        string    `json:"session_uuid"`
	BookUUID           string    `json:"book_uuid"`
	StartTs            int64     `json:"start_ts"`
	StartPage          int       `json:"start_page"`
	CurrentPage        int       `json:"current_page"`
	Paused             bool      `json:"paused"`
	PausedAtTs         int64     `json:"paused_at_ts"`
	TotalPausedSeconds int64     `json:"total_paused_seconds"`
	SourceDevice       DeviceTag `json:"source_device"`
	LastUpdatedTs      int64     `json:"last_updated_ts"`
}

func (s *ActiveSessionSnapshot) ToActiveSession() *ActiveReadingSession {
	return &ActiveReadingSession{
		UUID:               s.SessionUUID,
		BookUUID:           s.BookUUID,
		StartTs:            s.StartTs,
		StartPage:          s.StartPage,
		CurrentPage:        s.CurrentPage,
		Paused:             s.Paused,
		PausedAtTs:         s.PausedAtTs,
		TotalPausedSeconds: s.TotalPausedSeconds,
		SourceDevice:       s.SourceDevice,
		LastUpdatedTs:      s.LastUpdatedTs,
	}
}

func SnapshotOf(a *ActiveReadingSession) *ActiveSessionSnapshot {
	return &ActiveSessionSnapshot{
		SessionUUID:        a.UUID,
		BookUUID:           a.BookUUID,
		StartTs:            a.StartTs,
		StartPage:          a.StartPage,
		CurrentPage:        a.CurrentPage,
		Paused:             a.Paused,
		PausedAtTs:         a.PausedAtTs,
		TotalPausedSeconds: a.TotalPausedSeconds,
		SourceDevice:       a.SourceDevice,
		LastUpdatedTs:      a.LastUpdatedTs,
	}
}

// SessionCompletion bundles the end of an active session with the resulting
// completed session and the live-activity end signal. Delivered as one
// envelope so the receiver can never observe an ended active session without
// the completed record.
type SessionCompletion struct {
	EndedSessionUUID string          `json:"ended_session_uuid"`
	Completed        *ReadingSession `json:"completed"`
	EndLiveActivity  bool            `json:"end_live_activity"`
}

// BookTransfer is the wire form of a book in a library broadcast.
type BookTransfer struct {
	UUID          string        `json:"uuid"`
	Title         string        `json:"title"`
	Author        string        `json:"author"`
	ISBN          string        `json:"isbn,omitempty"`
	CoverURL      string        `json:"cover_url,omitempty"`
	TotalPages    int           `json:"total_pages,omitempty"`
	CurrentPage   int           `json:"current_page"`
	BookType      BookType      `json:"book_type"`
	ReadingStatus ReadingStatus `json:"reading_status"`
	DateAddedTs   int64         `json:"date_added_ts"`
	Notes         string        `json:"notes,omitempty"`
}

// LibraryBroadcast carries the complete currently-reading set. Delivery is
// latest-wins: a newer broadcast supersedes any undelivered older one.
type LibraryBroadcast struct {
	Device DeviceTag      `json:"device"`
	SentTs int64          `json:"sent_ts"`
	Books  []BookTransfer `json:"books"`
}

// ProfileSettingsSync is overwrite-on-receipt.
type ProfileSettingsSync struct {
	ShowStreakOnWatch bool `json:"show_streak_on_watch"`
	ShowXPOnWatch     bool `json:"show_xp_on_watch"`
}

func TransferOf(b *Book) BookTransfer {
	return BookTransfer{
		UUID:          b.UUID,
		Title:         b.Title,
		Author:        b.Author,
		ISBN:          b.ISBN,
		CoverURL:      b.CoverURL,
		TotalPages:    b.TotalPages,
		CurrentPage:   b.CurrentPage,
		BookType:      b.BookType,
		ReadingStatus: b.ReadingStatus,
		DateAddedTs:   b.DateAddedTs,
		Notes:         b.Notes,
	}
}
