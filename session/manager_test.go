package session

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/johnyfernandes/shlf-sync/config"
	"github.com/johnyfernandes/shlf-sync/gamification"
	"github.com/johnyfernandes/shlf-sync/goal"
	"github.com/johnyfernandes/shlf-sync/log"
	"github.com/johnyfernandes/shlf-sync/model"
	"github.com/johnyfernandes/shlf-sync/store"
	"github.com/johnyfernandes/shlf-sync/store/db"
	"github.com/pkg/errors"
)

// Initialize the logger and config
func init() {
	config.Opts = config.GetDefaultOptions()
	log.Logger = log.NewLogger()
}

// recordingNotifier captures outbound notifications for assertions.
type recordingNotifier struct {
	mu          sync.Mutex
	snapshots   []*model.ActiveSessionSnapshot
	completions []*model.SessionCompletion
	deltas      []*model.PageDelta
}

func (n *recordingNotifier) NotifySnapshot(s *model.ActiveSessionSnapshot) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.snapshots = append(n.snapshots, s)
}

func (n *recordingNotifier) NotifyCompletion(c *model.SessionCompletion) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completions = append(n.completions, c)
}

func (n *recordingNotifier) NotifyPageDelta(d *model.PageDelta) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deltas = append(n.deltas, d)
}

func (n *recordingNotifier) snapshotCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.snapshots)
}

func (n *recordingNotifier) completionCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.completions)
}

func newTestManager(t *testing.T, name string) (*Manager, *store.Store, *recordingNotifier) {
	t.Helper()

	path := filepath.Join(t.TempDir(), name+".db")
	config.Opts.DSN = path
	d, err := db.NewDB(path)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := d.Migrate(context.Background()); err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}

	s := store.NewStore(d.DB)
	if _, err := s.EnsureProfile(); err != nil {
		t.Fatalf("Failed to ensure profile: %v", err)
	}

	notifier := &recordingNotifier{}
	manager := NewManager(s, goal.NewTracker(s), gamification.NewEngine(s), notifier, model.DevicePhone)
	t.Cleanup(manager.Close)
	return manager, s, notifier
}

func addTestBook(t *testing.T, s *store.Store, uuid string, totalPages, currentPage int) {
	t.Helper()
	if _, err := s.AddBook(&model.Book{
		UUID:          uuid,
		Title:         "A Book",
		TotalPages:    totalPages,
		CurrentPage:   currentPage,
		BookType:      model.BookTypePhysical,
		ReadingStatus: model.StatusCurrentlyReading,
	}); err != nil {
		t.Fatalf("Failed to add book: %v", err)
	}
}

func TestStartRejectsSecondSession(t *testing.T) {
	manager, s, _ := newTestManager(t, "start_conflict")
	addTestBook(t, s, "book-1", 300, 10)
	addTestBook(t, s, "book-2", 200, 0)

	if _, err := manager.Start("book-1", false); err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}

	_, err := manager.Start("book-2", false)
	if !errors.Is(err, ErrActiveSessionExists) {
		t.Fatalf("Expected ErrActiveSessionExists, got %v", err)
	}

	// The original session is untouched.
	active, err := manager.Current()
	if err != nil {
		t.Fatalf("Failed to get active session: %v", err)
	}
	if active == nil || active.BookUUID != "book-1" {
		t.Fatalf("Expected book-1 session to survive, got %+v", active)
	}
}

func TestForceStartCompletesProgressedSession(t *testing.T) {
	manager, s, notifier := newTestManager(t, "force_start")
	addTestBook(t, s, "book-1", 300, 10)
	addTestBook(t, s, "book-2", 200, 0)

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)
	manager.now = func() time.Time { return base }
	if _, err := manager.Start("book-1", false); err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}
	manager.now = func() time.Time { return base.Add(20 * time.Minute) }
	if _, err := manager.AdjustPage(22); err != nil {
		t.Fatalf("Failed to adjust page: %v", err)
	}

	active, err := manager.Start("book-2", true)
	if err != nil {
		t.Fatalf("Force start failed: %v", err)
	}
	if active.BookUUID != "book-2" {
		t.Fatalf("Expected book-2 session, got %s", active.BookUUID)
	}

	// The displaced session was recorded, not dropped.
	count, err := s.CountSessions()
	if err != nil {
		t.Fatalf("Failed to count sessions: %v", err)
	}
	if count != 1 {
		t.Fatalf("Expected 1 recorded session, got %d", count)
	}
	if notifier.completionCount() != 1 {
		t.Fatalf("Expected a completion notification, got %d", notifier.completionCount())
	}
}

func TestForceStartAbandonsIdleSession(t *testing.T) {
	manager, s, _ := newTestManager(t, "force_abandon")
	addTestBook(t, s, "book-1", 300, 10)
	addTestBook(t, s, "book-2", 200, 0)

	if _, err := manager.Start("book-1", false); err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}
	// No page progress: force-start abandons rather than records.
	if _, err := manager.Start("book-2", true); err != nil {
		t.Fatalf("Force start failed: %v", err)
	}

	count, err := s.CountSessions()
	if err != nil {
		t.Fatalf("Failed to count sessions: %v", err)
	}
	if count != 0 {
		t.Fatalf("Zero-progress session must not be recorded, got %d", count)
	}
}

func TestPauseExcludesTimeFromElapsed(t *testing.T) {
	manager, s, _ := newTestManager(t, "pause_elapsed")
	addTestBook(t, s, "book-1", 300, 0)

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)
	manager.now = func() time.Time { return base }
	if _, err := manager.Start("book-1", false); err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}

	// Read 10 minutes, pause for 30, read 20 more.
	manager.now = func() time.Time { return base.Add(10 * time.Minute) }
	if _, err := manager.Pause(); err != nil {
		t.Fatalf("Failed to pause: %v", err)
	}
	manager.now = func() time.Time { return base.Add(40 * time.Minute) }
	if _, err := manager.Resume(); err != nil {
		t.Fatalf("Failed to resume: %v", err)
	}
	manager.now = func() time.Time { return base.Add(60 * time.Minute) }
	if _, err := manager.AdjustPage(15); err != nil {
		t.Fatalf("Failed to adjust page: %v", err)
	}

	completed, err := manager.Complete()
	if err != nil {
		t.Fatalf("Failed to complete: %v", err)
	}
	if completed.DurationMinutes != 30 {
		t.Fatalf("Expected 30 elapsed minutes (60 wall - 30 paused), got %d", completed.DurationMinutes)
	}
	if completed.StartTs != base.Unix() {
		t.Fatal("Pause must never rewrite the start timestamp")
	}

	// Double pause and double resume are rejected.
	if _, err := manager.Start("book-1", false); err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}
	if _, err := manager.Resume(); !errors.Is(err, ErrNotPaused) {
		t.Fatalf("Expected ErrNotPaused, got %v", err)
	}
	if _, err := manager.Pause(); err != nil {
		t.Fatalf("Failed to pause: %v", err)
	}
	if _, err := manager.Pause(); !errors.Is(err, ErrAlreadyPaused) {
		t.Fatalf("Expected ErrAlreadyPaused, got %v", err)
	}
	_ = s
}

func TestAdjustPageBounds(t *testing.T) {
	manager, s, _ := newTestManager(t, "page_bounds")
	addTestBook(t, s, "book-1", 100, 40)

	if _, err := manager.Start("book-1", false); err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}

	if _, err := manager.AdjustPage(39); !errors.Is(err, ErrPageOutOfRange) {
		t.Fatalf("Expected out of range below start page, got %v", err)
	}
	if _, err := manager.AdjustPage(101); !errors.Is(err, ErrPageOutOfRange) {
		t.Fatalf("Expected out of range above page count, got %v", err)
	}
	if _, err := manager.AdjustPage(100); err != nil {
		t.Fatalf("Last page must be valid: %v", err)
	}
}

func TestCompleteSessionEndToEnd(t *testing.T) {
	manager, s, notifier := newTestManager(t, "complete_e2e")
	addTestBook(t, s, "book-1", 300, 10)

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)
	manager.now = func() time.Time { return base }
	if _, err := manager.Start("book-1", false); err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}
	manager.now = func() time.Time { return base.Add(31 * time.Minute) }
	if _, err := manager.AdjustPage(25); err != nil {
		t.Fatalf("Failed to adjust page: %v", err)
	}

	completed, err := manager.Complete()
	if err != nil {
		t.Fatalf("Failed to complete: %v", err)
	}

	// 15 pages in 31 minutes: 150 base + min(62, 75) bonus.
	if completed.XPEarned != 212 {
		t.Fatalf("Expected 212 XP, got %d", completed.XPEarned)
	}
	if !completed.XPAwarded {
		t.Fatal("Locally completed session must carry xp_awarded")
	}

	profile, err := s.GetProfile()
	if err != nil {
		t.Fatalf("Failed to get profile: %v", err)
	}
	if profile.TotalXP != 212 {
		t.Fatalf("Expected 212 profile XP, got %d", profile.TotalXP)
	}
	if profile.CurrentStreak != 1 {
		t.Fatalf("Expected streak started, got %d", profile.CurrentStreak)
	}

	uuid := "book-1"
	book, err := s.GetBook(&model.FindBook{UUID: &uuid})
	if err != nil {
		t.Fatalf("Failed to get book: %v", err)
	}
	if book.CurrentPage != 25 {
		t.Fatalf("Expected book at page 25, got %d", book.CurrentPage)
	}

	active, err := manager.Current()
	if err != nil {
		t.Fatalf("Failed to get active session: %v", err)
	}
	if active != nil {
		t.Fatalf("Active session must be cleared, got %+v", active)
	}

	if notifier.completionCount() != 1 {
		t.Fatalf("Expected one completion notification, got %d", notifier.completionCount())
	}
	notifier.mu.Lock()
	bundle := notifier.completions[0]
	notifier.mu.Unlock()
	if bundle.Completed == nil || !bundle.EndLiveActivity {
		t.Fatalf("Completion bundle must carry the session and the end signal: %+v", bundle)
	}
}

func TestCompleteWithoutProgressRecordsNothing(t *testing.T) {
	manager, s, _ := newTestManager(t, "complete_no_progress")
	addTestBook(t, s, "book-1", 300, 10)

	if _, err := manager.Start("book-1", false); err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}
	completed, err := manager.Complete()
	if err != nil {
		t.Fatalf("Failed to complete: %v", err)
	}
	if completed != nil {
		t.Fatalf("Zero-progress completion must return nothing, got %+v", completed)
	}

	count, err := s.CountSessions()
	if err != nil {
		t.Fatalf("Failed to count sessions: %v", err)
	}
	if count != 0 {
		t.Fatalf("Expected no recorded sessions, got %d", count)
	}

	profile, _ := s.GetProfile()
	if profile.TotalXP != 0 {
		t.Fatalf("Abandon must not award XP, got %d", profile.TotalXP)
	}
}

func TestAdjustPageDebouncesSnapshots(t *testing.T) {
	config.Opts.PageSyncDebounce = 30
	defer func() { config.Opts.PageSyncDebounce = 250 }()

	manager, s, notifier := newTestManager(t, "debounce")
	addTestBook(t, s, "book-1", 300, 0)

	if _, err := manager.Start("book-1", false); err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}
	sent := notifier.snapshotCount() // the start snapshot

	// A burst of page taps coalesces into a single send.
	for page := 1; page <= 5; page++ {
		if _, err := manager.AdjustPage(page); err != nil {
			t.Fatalf("Failed to adjust page: %v", err)
		}
	}

	time.Sleep(150 * time.Millisecond)
	if got := notifier.snapshotCount() - sent; got != 1 {
		t.Fatalf("Expected 1 debounced snapshot, got %d", got)
	}
}

func TestApplyRemoteSnapshotOverwrites(t *testing.T) {
	manager, s, _ := newTestManager(t, "remote_snapshot")
	addTestBook(t, s, "book-1", 300, 0)

	snapshot := &model.ActiveSessionSnapshot{
		SessionUUID:   "remote-1",
		BookUUID:      "book-1",
		StartTs:       100,
		StartPage:     0,
		CurrentPage:   12,
		SourceDevice:  model.DeviceWatch,
		LastUpdatedTs: 500,
	}
	if err := manager.ApplyRemoteSnapshot(snapshot); err != nil {
		t.Fatalf("Failed to apply snapshot: %v", err)
	}

	active, _ := manager.Current()
	if active == nil || active.CurrentPage != 12 {
		t.Fatalf("Expected mirrored session at page 12, got %+v", active)
	}

	// A stale snapshot of the same session is dropped.
	stale := *snapshot
	stale.CurrentPage = 5
	stale.LastUpdatedTs = 400
	if err := manager.ApplyRemoteSnapshot(&stale); err != nil {
		t.Fatalf("Failed to apply stale snapshot: %v", err)
	}
	active, _ = manager.Current()
	if active.CurrentPage != 12 {
		t.Fatalf("Stale snapshot must not regress state, got page %d", active.CurrentPage)
	}

	// A newer one replaces wholesale.
	newer := *snapshot
	newer.CurrentPage = 20
	newer.Paused = true
	newer.PausedAtTs = 600
	newer.LastUpdatedTs = 600
	if err := manager.ApplyRemoteSnapshot(&newer); err != nil {
		t.Fatalf("Failed to apply newer snapshot: %v", err)
	}
	active, _ = manager.Current()
	if active.CurrentPage != 20 || !active.Paused {
		t.Fatalf("Expected wholesale overwrite, got %+v", active)
	}

	_ = s
}

func TestApplyRemoteSnapshotFromEndedSessionIsDropped(t *testing.T) {
	manager, s, _ := newTestManager(t, "delayed_snapshot")
	addTestBook(t, s, "book-1", 300, 10)
	addTestBook(t, s, "book-2", 200, 0)

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)
	manager.now = func() time.Time { return base }
	started, err := manager.Start("book-1", false)
	if err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}

	// A snapshot of a different, older session arrives late. It must not
	// replace the live session even though the UUIDs differ.
	stale := &model.ActiveSessionSnapshot{
		SessionUUID:   "old-remote-session",
		BookUUID:      "book-2",
		StartTs:       base.Add(-2 * time.Hour).Unix(),
		CurrentPage:   7,
		SourceDevice:  model.DeviceWatch,
		LastUpdatedTs: base.Add(-time.Hour).Unix(),
	}
	if err := manager.ApplyRemoteSnapshot(stale); err != nil {
		t.Fatalf("Failed to apply snapshot: %v", err)
	}

	active, err := manager.Current()
	if err != nil {
		t.Fatalf("Failed to get active session: %v", err)
	}
	if active == nil || active.UUID != started.UUID {
		t.Fatalf("Delayed snapshot must not replace the live session, got %+v", active)
	}
}

func TestApplyRemoteCompletionNoDoubleXP(t *testing.T) {
	manager, s, _ := newTestManager(t, "remote_completion")
	addTestBook(t, s, "book-1", 300, 0)

	// Mirror of the watch's running session.
	if err := manager.ApplyRemoteSnapshot(&model.ActiveSessionSnapshot{
		SessionUUID:   "remote-1",
		BookUUID:      "book-1",
		StartTs:       100,
		CurrentPage:   15,
		SourceDevice:  model.DeviceWatch,
		LastUpdatedTs: 500,
	}); err != nil {
		t.Fatalf("Failed to apply snapshot: %v", err)
	}

	completion := &model.SessionCompletion{
		EndedSessionUUID: "remote-1",
		Completed: &model.ReadingSession{
			UUID:              "completed-1",
			BookUUID:          "book-1",
			StartTs:           100,
			EndTs:             2000,
			StartPage:         0,
			EndPage:           15,
			DurationMinutes:   30,
			XPEarned:          210,
			CountsTowardStats: true,
			XPAwarded:         true,
		},
		EndLiveActivity: true,
	}
	if err := manager.ApplyRemoteCompletion(completion); err != nil {
		t.Fatalf("Failed to apply completion: %v", err)
	}

	// Sender already awarded the XP; the receiver must not credit again.
	profile, _ := s.GetProfile()
	if profile.TotalXP != 0 {
		t.Fatalf("XP must not be credited twice, got %d", profile.TotalXP)
	}

	active, _ := manager.Current()
	if active != nil {
		t.Fatalf("Mirrored active session must be cleared, got %+v", active)
	}

	count, _ := s.CountSessions()
	if count != 1 {
		t.Fatalf("Expected the completed session persisted, got %d", count)
	}

	// Replaying the same completion changes nothing.
	if err := manager.ApplyRemoteCompletion(completion); err != nil {
		t.Fatalf("Replay must be harmless: %v", err)
	}
	count, _ = s.CountSessions()
	if count != 1 {
		t.Fatalf("Expected 1 session after replay, got %d", count)
	}
}

func TestApplyRemoteCompletionCreditsUnawardedXP(t *testing.T) {
	manager, s, _ := newTestManager(t, "remote_completion_credit")
	addTestBook(t, s, "book-1", 300, 0)

	if err := manager.ApplyRemoteCompletion(&model.SessionCompletion{
		EndedSessionUUID: "remote-1",
		Completed: &model.ReadingSession{
			UUID:              "completed-1",
			BookUUID:          "book-1",
			StartTs:           100,
			EndTs:             2000,
			StartPage:         0,
			EndPage:           15,
			DurationMinutes:   30,
			CountsTowardStats: true,
			XPAwarded:         false,
		},
	}); err != nil {
		t.Fatalf("Failed to apply completion: %v", err)
	}

	// 15 pages, 30 minutes: 150 base + min(60, 75) bonus.
	profile, _ := s.GetProfile()
	if profile.TotalXP != 210 {
		t.Fatalf("Expected 210 XP credited, got %d", profile.TotalXP)
	}
}

func TestApplyRemoteAbandonClearsSession(t *testing.T) {
	manager, s, _ := newTestManager(t, "remote_abandon")
	addTestBook(t, s, "book-1", 300, 0)

	if err := manager.ApplyRemoteSnapshot(&model.ActiveSessionSnapshot{
		SessionUUID:   "remote-1",
		BookUUID:      "book-1",
		StartTs:       100,
		SourceDevice:  model.DeviceWatch,
		LastUpdatedTs: 500,
	}); err != nil {
		t.Fatalf("Failed to apply snapshot: %v", err)
	}

	if err := manager.ApplyRemoteCompletion(&model.SessionCompletion{
		EndedSessionUUID: "remote-1",
		EndLiveActivity:  true,
	}); err != nil {
		t.Fatalf("Failed to apply abandon: %v", err)
	}

	active, _ := manager.Current()
	if active != nil {
		t.Fatalf("Expected cleared session, got %+v", active)
	}
	count, _ := s.CountSessions()
	if count != 0 {
		t.Fatalf("Abandon must record nothing, got %d", count)
	}
}

func TestApplyRemoteAbandonForOtherSessionIsIgnored(t *testing.T) {
	manager, s, _ := newTestManager(t, "delayed_abandon")
	addTestBook(t, s, "book-1", 300, 10)

	started, err := manager.Start("book-1", false)
	if err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}

	// A delayed abandon bundle for a session that already ended must not
	// delete the session that is live now.
	if err := manager.ApplyRemoteCompletion(&model.SessionCompletion{
		EndedSessionUUID: "old-remote-session",
		EndLiveActivity:  true,
	}); err != nil {
		t.Fatalf("Failed to apply abandon: %v", err)
	}

	active, err := manager.Current()
	if err != nil {
		t.Fatalf("Failed to get active session: %v", err)
	}
	if active == nil || active.UUID != started.UUID {
		t.Fatalf("Delayed abandon must not delete the live session, got %+v", active)
	}
}
