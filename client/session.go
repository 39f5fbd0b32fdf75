package client

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"clinic-checklist/checklist-service/models"
	"clinic-checklist/checklist-service/services"
)

// SaveState is the session's save-cycle state.
type SaveState string

const (
	StateIdle   SaveState = "idle"
	StateDirty  SaveState = "dirty"
	StateSaving SaveState = "saving"
	StateSaved  SaveState = "saved"
	StateError  SaveState = "error"
)

const (
	// DebounceDelay is how long edits must stop arriving before an
	// auto-save fires. Every edit re-arms the timer.
	DebounceDelay = 1500 * time.Millisecond

	// SavedDisplayDelay is how long the saved confirmation shows
	// before the session returns to idle.
	SavedDisplayDelay = 3 * time.Second
)

// ErrReadOnly is returned for edits on a session viewing a date other
// than today.
var ErrReadOnly = errors.New("checklist for this date is read-only")

// Saver submits a whole-snapshot bulk save.
type Saver interface {
	SaveChecklist(ctx context.Context, date string, entries []models.BulkEntry) error
}

// User identifies the person editing; Name seeds auto-filled staff
// fields.
type User struct {
	ID   string
	Name string
}

// EntryEdit is one row's local override, merged over the last-fetched
// projection. Nil fields fall through to the baseline.
type EntryEdit struct {
	Status    *bool
	StaffName *string
}

// Session is the client half of the reconciliation loop for one
// date+area view: it buffers local edits over a fetched projection,
// debounces them into a single bulk save, validates before submitting,
// and tracks the save-status state machine. One logical thread of
// control; the debounce timer is the only scheduling point.
type Session struct {
	mu sync.Mutex

	date     string
	user     User
	saver    Saver
	clock    Clock
	newTimer TimerFactory

	baseline []models.ProjectionRow
	edits    map[string]EntryEdit

	state      SaveState
	validation map[string]string
	editable   bool
	closed     bool

	debounceTimer Timer
	savedTimer    Timer
}

// NewSession starts an editing session over a fetched projection. The
// session accepts edits only when date is "today" by the given clock;
// any other date is displayed read-only with the save machinery off.
func NewSession(date string, baseline []models.ProjectionRow, user User, saver Saver, clock Clock, newTimer TimerFactory) (*Session, error) {
	day, err := services.ParseDate(date)
	if err != nil {
		return nil, err
	}

	now := clock.Now()
	editable := day.Year() == now.Year() && day.YearDay() == now.YearDay()

	return &Session{
		date:       date,
		user:       user,
		saver:      saver,
		clock:      clock,
		newTimer:   newTimer,
		baseline:   baseline,
		edits:      make(map[string]EntryEdit),
		state:      StateIdle,
		validation: make(map[string]string),
		editable:   editable,
	}, nil
}

// Editable reports whether the session accepts edits.
func (s *Session) Editable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editable
}

// State returns the current save-cycle state.
func (s *Session) State() SaveState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ValidationErrors returns the per-row validation messages from the
// last failed pre-submit check.
func (s *Session) ValidationErrors() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.validation))
	for k, v := range s.validation {
		out[k] = v
	}
	return out
}

// Rows returns the displayed state: the baseline projection with local
// edits merged over it.
func (s *Session) Rows() []models.ProjectionRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mergedRowsLocked()
}

func (s *Session) mergedRowsLocked() []models.ProjectionRow {
	rows := make([]models.ProjectionRow, len(s.baseline))
	copy(rows, s.baseline)
	for i := range rows {
		edit, ok := s.edits[rows[i].Task.ID.Hex()]
		if !ok {
			continue
		}
		if edit.Status != nil {
			rows[i].Entry.Status = *edit.Status
		}
		if edit.StaffName != nil {
			rows[i].Entry.StaffName = *edit.StaffName
		}
	}
	return rows
}

// SetStatus toggles a row done or not done. Toggling on auto-fills an
// empty staff name with the editing user's own name; the user may
// overwrite it. Toggling off leaves the staff name untouched.
func (s *Session) SetStatus(taskID string, status bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkEditableLocked(); err != nil {
		return err
	}

	edit := s.edits[taskID]
	edit.Status = &status
	if status && edit.StaffName == nil && s.baselineStaffNameLocked(taskID) == "" {
		name := s.user.Name
		edit.StaffName = &name
	}
	s.edits[taskID] = edit
	delete(s.validation, taskID)

	s.markDirtyLocked()
	return nil
}

// SetStaffName records who performed a task.
func (s *Session) SetStaffName(taskID string, staffName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkEditableLocked(); err != nil {
		return err
	}

	edit := s.edits[taskID]
	edit.StaffName = &staffName
	s.edits[taskID] = edit
	delete(s.validation, taskID)

	s.markDirtyLocked()
	return nil
}

// Save short-circuits the debounce and submits immediately.
func (s *Session) Save() error {
	s.mu.Lock()
	if err := s.checkEditableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.state == StateSaving {
		s.mu.Unlock()
		return nil
	}
	s.stopDebounceLocked()
	s.mu.Unlock()

	s.submit()
	return nil
}

// Close tears down the session, cancelling any pending debounce
// without saving.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.stopDebounceLocked()
	if s.savedTimer != nil {
		s.savedTimer.Stop()
		s.savedTimer = nil
	}
}

func (s *Session) baselineStaffNameLocked(taskID string) string {
	for _, row := range s.baseline {
		if row.Task.ID.Hex() == taskID {
			return row.Entry.StaffName
		}
	}
	return ""
}

func (s *Session) checkEditableLocked() error {
	if s.closed || !s.editable {
		return ErrReadOnly
	}
	return nil
}

// markDirtyLocked re-arms the debounce for every edit, so only the
// last edit of a burst triggers the save. Edits arriving while a save
// is in flight accumulate silently; the save's completion starts the
// next cycle.
func (s *Session) markDirtyLocked() {
	if s.state == StateSaving {
		return
	}
	s.state = StateDirty
	s.stopDebounceLocked()
	if s.savedTimer != nil {
		s.savedTimer.Stop()
		s.savedTimer = nil
	}
	s.debounceTimer = s.newTimer(DebounceDelay, s.onDebounce)
}

func (s *Session) stopDebounceLocked() {
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
		s.debounceTimer = nil
	}
}

func (s *Session) onDebounce() {
	s.submit()
}

// submit runs the dirty -> saving transition: validate the merged
// rows, snapshot the full displayed state, and send one bulk save.
// Validation failures never reach the network.
func (s *Session) submit() {
	s.mu.Lock()
	if s.closed || s.state == StateSaving || len(s.edits) == 0 {
		s.mu.Unlock()
		return
	}

	merged := s.mergedRowsLocked()

	failures := make(map[string]string)
	for _, row := range merged {
		if row.Entry.Status && strings.TrimSpace(row.Entry.StaffName) == "" {
			failures[row.Task.ID.Hex()] = "Staff name required"
		}
	}
	if len(failures) > 0 {
		s.validation = failures
		s.state = StateError
		s.mu.Unlock()
		return
	}
	s.validation = make(map[string]string)

	// Whole-snapshot semantics: every displayed row goes into the
	// save, not just the edited ones.
	entries := make([]models.BulkEntry, 0, len(merged))
	for _, row := range merged {
		entries = append(entries, models.BulkEntry{
			TaskID:    row.Task.ID.Hex(),
			Status:    row.Entry.Status,
			StaffName: row.Entry.StaffName,
		})
	}

	captured := s.edits
	s.edits = make(map[string]EntryEdit)
	s.state = StateSaving
	date := s.date
	s.mu.Unlock()

	err := s.saver.SaveChecklist(context.Background(), date, entries)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	if err != nil {
		// Keep the user's unsaved edits: restore the captured buffer
		// under anything newer.
		for taskID, old := range captured {
			edit := s.edits[taskID]
			if edit.Status == nil {
				edit.Status = old.Status
			}
			if edit.StaffName == nil {
				edit.StaffName = old.StaffName
			}
			s.edits[taskID] = edit
		}
		s.state = StateError
		return
	}

	// The saved snapshot is now the server-confirmed baseline.
	s.baseline = merged

	if len(s.edits) > 0 {
		// Edits arrived while saving; start the next cycle.
		s.state = StateDirty
		s.stopDebounceLocked()
		s.debounceTimer = s.newTimer(DebounceDelay, s.onDebounce)
		return
	}

	s.state = StateSaved
	s.savedTimer = s.newTimer(SavedDisplayDelay, s.onSavedExpired)
}

func (s *Session) onSavedExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSaved {
		s.state = StateIdle
	}
	s.savedTimer = nil
}
