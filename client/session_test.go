package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"clinic-checklist/checklist-service/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

type fakeTimer struct {
	f       func()
	d       time.Duration
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

// fakeScheduler hands out timers that fire only when the test says so.
type fakeScheduler struct {
	timers []*fakeTimer
}

func (s *fakeScheduler) factory(d time.Duration, f func()) Timer {
	timer := &fakeTimer{f: f, d: d}
	s.timers = append(s.timers, timer)
	return timer
}

// fireLast runs the most recently armed, not yet cancelled timer.
func (s *fakeScheduler) fireLast(t *testing.T) {
	t.Helper()
	for i := len(s.timers) - 1; i >= 0; i-- {
		if !s.timers[i].stopped {
			timer := s.timers[i]
			timer.stopped = true
			timer.f()
			return
		}
	}
	t.Fatalf("no armed timer to fire")
}

func (s *fakeScheduler) armed() int {
	n := 0
	for _, timer := range s.timers {
		if !timer.stopped {
			n++
		}
	}
	return n
}

type fakeSaver struct {
	calls   [][]models.BulkEntry
	failure error
}

func (s *fakeSaver) SaveChecklist(ctx context.Context, date string, entries []models.BulkEntry) error {
	if s.failure != nil {
		return s.failure
	}
	s.calls = append(s.calls, entries)
	return nil
}

func testRows() []models.ProjectionRow {
	return []models.ProjectionRow{
		{
			Task:  models.TaskView{ID: primitive.NewObjectID(), TaskID: "T1", Name: "Open blinds", AreaName: "Reception"},
			Entry: models.EntryView{},
		},
		{
			Task:  models.TaskView{ID: primitive.NewObjectID(), TaskID: "T2", Name: "Stock gloves", AreaName: "Reception"},
			Entry: models.EntryView{},
		},
	}
}

func newTestSession(t *testing.T) (*Session, *fakeScheduler, *fakeSaver) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)}
	scheduler := &fakeScheduler{}
	saver := &fakeSaver{}

	session, err := NewSession("2024-01-05", testRows(), User{ID: "u1", Name: "Dana"}, saver, clock, scheduler.factory)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return session, scheduler, saver
}

func TestSession_PastDateIsReadOnly(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 6, 10, 0, 0, 0, time.UTC)}
	scheduler := &fakeScheduler{}
	saver := &fakeSaver{}

	session, err := NewSession("2024-01-05", testRows(), User{ID: "u1", Name: "Dana"}, saver, clock, scheduler.factory)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Editable() {
		t.Fatalf("expected a past date to be read-only")
	}

	rows := session.Rows()
	taskID := rows[0].Task.ID.Hex()
	if err := session.SetStatus(taskID, true); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("expected ErrReadOnly, got %v", err)
	}
	if len(scheduler.timers) != 0 {
		t.Fatalf("no timers should be armed on a read-only session")
	}
}

func TestSession_ValidationBlocksSaveWithMessage(t *testing.T) {
	session, scheduler, saver := newTestSession(t)
	rows := session.Rows()
	taskA := rows[0].Task.ID.Hex()

	if err := session.SetStatus(taskA, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The auto-filled staff name is cleared again, leaving a done task
	// with no name.
	if err := session.SetStaffName(taskA, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	scheduler.fireLast(t) // debounce expires with no further edits

	if session.State() != StateError {
		t.Fatalf("expected error state, got %s", session.State())
	}
	if msg := session.ValidationErrors()[taskA]; msg != "Staff name required" {
		t.Fatalf("expected per-row validation message, got %q", msg)
	}
	if len(saver.calls) != 0 {
		t.Fatalf("no bulk save may be sent when validation fails")
	}
}

func TestSession_BurstOfEditsProducesOneSave(t *testing.T) {
	session, scheduler, saver := newTestSession(t)
	rows := session.Rows()
	taskA := rows[0].Task.ID.Hex()
	taskB := rows[1].Task.ID.Hex()

	if err := session.SetStatus(taskA, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := session.SetStatus(taskB, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := scheduler.armed(); got != 1 {
		t.Fatalf("each edit must re-arm the single debounce timer, %d armed", got)
	}

	scheduler.fireLast(t)

	if len(saver.calls) != 1 {
		t.Fatalf("expected exactly one bulk save, got %d", len(saver.calls))
	}
	entries := saver.calls[0]
	if len(entries) != 2 {
		t.Fatalf("whole-snapshot save must cover every displayed row, got %d", len(entries))
	}
	for _, entry := range entries {
		if !entry.Status || entry.StaffName != "Dana" {
			t.Fatalf("expected both rows done by Dana, got %+v", entry)
		}
	}
	if session.State() != StateSaved {
		t.Fatalf("expected saved state, got %s", session.State())
	}
}

func TestSession_ToggleOnThenOffSavesFinalStateOnly(t *testing.T) {
	session, scheduler, saver := newTestSession(t)
	rows := session.Rows()
	taskA := rows[0].Task.ID.Hex()

	if err := session.SetStatus(taskA, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := session.SetStatus(taskA, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	scheduler.fireLast(t)

	if len(saver.calls) != 1 {
		t.Fatalf("expected exactly one save, got %d", len(saver.calls))
	}
	var forA *models.BulkEntry
	for i := range saver.calls[0] {
		if saver.calls[0][i].TaskID == taskA {
			forA = &saver.calls[0][i]
		}
	}
	if forA == nil || forA.Status {
		t.Fatalf("expected final (off) state for the toggled row, got %+v", forA)
	}
}

func TestSession_AutoFillDoesNotOverwriteTypedName(t *testing.T) {
	session, scheduler, saver := newTestSession(t)
	rows := session.Rows()
	taskA := rows[0].Task.ID.Hex()

	if err := session.SetStaffName(taskA, "Miguel"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := session.SetStatus(taskA, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	scheduler.fireLast(t)

	if len(saver.calls) != 1 {
		t.Fatalf("expected one save, got %d", len(saver.calls))
	}
	if saver.calls[0][0].StaffName != "Miguel" {
		t.Fatalf("typed staff name must win over the auto-fill, got %q", saver.calls[0][0].StaffName)
	}
}

func TestSession_ManualSaveShortCircuitsDebounce(t *testing.T) {
	session, scheduler, saver := newTestSession(t)
	rows := session.Rows()
	taskA := rows[0].Task.ID.Hex()

	if err := session.SetStatus(taskA, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := session.Save(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(saver.calls) != 1 {
		t.Fatalf("expected an immediate save, got %d calls", len(saver.calls))
	}
	// The pending debounce must have been cancelled; only the saved
	// banner timer may remain armed.
	if got := scheduler.armed(); got != 1 {
		t.Fatalf("expected only the saved-banner timer armed, got %d", got)
	}
}

func TestSession_SavedReturnsToIdleAfterDisplayDelay(t *testing.T) {
	session, scheduler, _ := newTestSession(t)
	rows := session.Rows()

	if err := session.SetStatus(rows[0].Task.ID.Hex(), true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	scheduler.fireLast(t) // debounce -> save
	if session.State() != StateSaved {
		t.Fatalf("expected saved, got %s", session.State())
	}

	scheduler.fireLast(t) // saved banner expires
	if session.State() != StateIdle {
		t.Fatalf("expected idle, got %s", session.State())
	}
}

func TestSession_SaveFailureKeepsEditsAndRecovers(t *testing.T) {
	session, scheduler, saver := newTestSession(t)
	rows := session.Rows()
	taskA := rows[0].Task.ID.Hex()

	saver.failure = errors.New("network down")
	if err := session.SetStatus(taskA, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	scheduler.fireLast(t)

	if session.State() != StateError {
		t.Fatalf("expected error state, got %s", session.State())
	}
	// The unsaved edit is still displayed.
	if merged := session.Rows(); !merged[0].Entry.Status {
		t.Fatalf("a failed save must not discard local edits")
	}

	// A further edit re-arms the cycle and the retry succeeds.
	saver.failure = nil
	if err := session.SetStaffName(taskA, "Dana"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.State() != StateDirty {
		t.Fatalf("expected dirty after re-edit, got %s", session.State())
	}
	scheduler.fireLast(t)

	if len(saver.calls) != 1 {
		t.Fatalf("expected the retry to reach the saver, got %d calls", len(saver.calls))
	}
	if session.State() != StateSaved {
		t.Fatalf("expected saved, got %s", session.State())
	}
}

func TestSession_SuccessfulSaveClearsBufferAndConfirmsBaseline(t *testing.T) {
	session, scheduler, saver := newTestSession(t)
	rows := session.Rows()
	taskA := rows[0].Task.ID.Hex()

	if err := session.SetStatus(taskA, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	scheduler.fireLast(t)

	if len(saver.calls) != 1 {
		t.Fatalf("expected one save, got %d", len(saver.calls))
	}
	merged := session.Rows()
	if !merged[0].Entry.Status || merged[0].Entry.StaffName != "Dana" {
		t.Fatalf("displayed state must reflect the confirmed save, got %+v", merged[0].Entry)
	}

	// Nothing left to save: a manual save sends no second call.
	if err := session.Save(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(saver.calls) != 1 {
		t.Fatalf("an empty edit buffer must not trigger a save")
	}
}

func TestSession_CloseCancelsPendingDebounce(t *testing.T) {
	session, scheduler, saver := newTestSession(t)
	rows := session.Rows()

	if err := session.SetStatus(rows[0].Task.ID.Hex(), true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	session.Close()

	if got := scheduler.armed(); got != 0 {
		t.Fatalf("close must cancel pending timers, %d still armed", got)
	}
	if len(saver.calls) != 0 {
		t.Fatalf("leaving the view must not save")
	}
}
