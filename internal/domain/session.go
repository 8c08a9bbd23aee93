package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Session errors
var (
	ErrSessionClosed    = errors.New("dispatch session is closed")
	ErrDispatchInFlight = errors.New("a dispatch is already in flight for this pick list")
	ErrNotInFlight      = errors.New("no dispatch is in flight")
	ErrEmptySelection   = errors.New("no items selected")
	ErrTaskNotInList    = errors.New("task is not part of this pick list")
	ErrTaskTerminal     = errors.New("task is already completed or dispatched")
)

// InsufficientStockError rejects a whole batch when any selected task cannot
// be covered by available stock. No backend call is made.
type InsufficientStockError struct {
	Tasks []Task
}

func (e *InsufficientStockError) Error() string {
	lines := make([]string, 0, len(e.Tasks))
	for _, t := range e.Tasks {
		lines = append(lines, fmt.Sprintf("%s: Available %d, Required %d",
			t.DisplayName(), t.AvailableStockCount(), t.Quantity))
	}
	return "cannot dispatch items with insufficient stock:\n" + strings.Join(lines, "\n")
}

// SessionState is the explicit state of a dispatch session. Encoding the
// session as a tagged state rules out illegal combinations such as an
// in-flight batch with an empty selection.
type SessionState string

const (
	SessionStateIdle     SessionState = "IDLE"
	SessionStateSelected SessionState = "SELECTED"
	SessionStateInFlight SessionState = "IN_FLIGHT"
	SessionStateClosed   SessionState = "CLOSED"
)

// DispatchSession owns the selection set and pick list view for one
// shipment's dispatch workflow. All mutation goes through its methods; the
// valid transitions are
//
//	Idle -> Selected -> InFlight -> {Closed | Selected(failed subset)}
//
// Precondition rejections leave the state untouched.
type DispatchSession struct {
	ID         string
	UserID     int64
	ShipmentID int64
	PickList   PickList
	CreatedAt  time.Time
	UpdatedAt  time.Time

	state        SessionState
	selected     map[int64]struct{}
	needsRefresh bool
}

// NewDispatchSession opens a session for a pick list
func NewDispatchSession(id string, userID int64, list PickList) *DispatchSession {
	now := time.Now()
	return &DispatchSession{
		ID:         id,
		UserID:     userID,
		ShipmentID: list.ShipmentID,
		PickList:   list,
		CreatedAt:  now,
		UpdatedAt:  now,
		state:      SessionStateIdle,
		selected:   make(map[int64]struct{}),
	}
}

// Clone returns a deep copy of the session. Stores hand out clones so the
// live session is only ever touched under the store's per-session lock.
func (s *DispatchSession) Clone() *DispatchSession {
	c := *s
	c.selected = make(map[int64]struct{}, len(s.selected))
	for id := range s.selected {
		c.selected[id] = struct{}{}
	}
	c.PickList.Tasks = append([]Task(nil), s.PickList.Tasks...)
	return &c
}

// State returns the current session state
func (s *DispatchSession) State() SessionState {
	return s.state
}

// NeedsRefresh reports whether the last post-batch refresh failed, leaving
// the derived pick list state stale
func (s *DispatchSession) NeedsRefresh() bool {
	return s.needsRefresh
}

// SelectedIDs returns the selection as a sorted slice
func (s *DispatchSession) SelectedIDs() []int64 {
	ids := make([]int64, 0, len(s.selected))
	for id := range s.selected {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// IsSelected reports whether a task id is in the selection set
func (s *DispatchSession) IsSelected(taskID int64) bool {
	_, ok := s.selected[taskID]
	return ok
}

// Select adds a task to the selection set. Terminal tasks are never
// selectable.
func (s *DispatchSession) Select(taskID int64) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}

	task, ok := s.PickList.FindTask(taskID)
	if !ok {
		return ErrTaskNotInList
	}
	if task.Status.Terminal() {
		return ErrTaskTerminal
	}

	s.selected[taskID] = struct{}{}
	s.state = SessionStateSelected
	s.touch()
	return nil
}

// Deselect removes a task from the selection set
func (s *DispatchSession) Deselect(taskID int64) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}

	delete(s.selected, taskID)
	if len(s.selected) == 0 {
		s.state = SessionStateIdle
	}
	s.touch()
	return nil
}

// SetSelection replaces the selection set wholesale
func (s *DispatchSession) SetSelection(taskIDs []int64) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}

	next := make(map[int64]struct{}, len(taskIDs))
	for _, id := range taskIDs {
		task, ok := s.PickList.FindTask(id)
		if !ok {
			return fmt.Errorf("%w: %d", ErrTaskNotInList, id)
		}
		if task.Status.Terminal() {
			return fmt.Errorf("%w: %d", ErrTaskTerminal, id)
		}
		next[id] = struct{}{}
	}

	s.selected = next
	if len(next) == 0 {
		s.state = SessionStateIdle
	} else {
		s.state = SessionStateSelected
	}
	s.touch()
	return nil
}

// SelectAll selects every non-terminal task in the pick list
func (s *DispatchSession) SelectAll() error {
	if err := s.ensureOpen(); err != nil {
		return err
	}

	for _, t := range s.PickList.OpenTasks() {
		s.selected[t.ID] = struct{}{}
	}
	if len(s.selected) > 0 {
		s.state = SessionStateSelected
	}
	s.touch()
	return nil
}

// BeginDispatch validates the batch pre-conditions and moves the session to
// InFlight. A rejection leaves the session unchanged and means no backend
// call was made. Returns the task ids to dispatch, in sorted order.
func (s *DispatchSession) BeginDispatch() ([]int64, error) {
	if s.state == SessionStateClosed {
		return nil, ErrSessionClosed
	}
	if s.state == SessionStateInFlight {
		return nil, ErrDispatchInFlight
	}
	if len(s.selected) == 0 {
		return nil, ErrEmptySelection
	}

	var short []Task
	for id := range s.selected {
		if task, ok := s.PickList.FindTask(id); ok && task.HasInsufficientStock {
			short = append(short, task)
		}
	}
	if len(short) > 0 {
		sort.Slice(short, func(i, j int) bool { return short[i].ID < short[j].ID })
		return nil, &InsufficientStockError{Tasks: short}
	}

	s.state = SessionStateInFlight
	s.touch()
	return s.SelectedIDs(), nil
}

// FinishDispatch reconciles the session against the refreshed pick list once
// every selected id has been attempted. A nil or fully-terminal pick list
// means the shipment is done and the session closes. Otherwise the selection
// retains exactly the failed ids that are still dispatchable, so the next
// action is a natural retry of just the failures.
func (s *DispatchSession) FinishDispatch(refreshed *PickList, failedIDs []int64) error {
	if s.state != SessionStateInFlight {
		return ErrNotInFlight
	}

	s.needsRefresh = false

	if refreshed == nil || !refreshed.HasOpenTasks() {
		s.selected = make(map[int64]struct{})
		s.state = SessionStateClosed
		s.touch()
		return nil
	}

	s.PickList = *refreshed

	if len(failedIDs) == 0 {
		s.selected = make(map[int64]struct{})
		s.state = SessionStateClosed
		s.touch()
		return nil
	}

	next := make(map[int64]struct{}, len(failedIDs))
	for _, id := range failedIDs {
		if task, ok := refreshed.FindTask(id); ok && !task.Status.Terminal() {
			next[id] = struct{}{}
		}
	}
	s.selected = next
	if len(next) == 0 {
		s.state = SessionStateIdle
	} else {
		s.state = SessionStateSelected
	}
	s.touch()
	return nil
}

// FinishDispatchStale records the per-item outcomes when the post-batch
// refresh itself failed. The session stays resumable but its derived state
// is flagged stale until a refresh succeeds.
func (s *DispatchSession) FinishDispatchStale(failedIDs []int64) error {
	if s.state != SessionStateInFlight {
		return ErrNotInFlight
	}

	next := make(map[int64]struct{}, len(failedIDs))
	for _, id := range failedIDs {
		next[id] = struct{}{}
	}
	s.selected = next
	s.needsRefresh = true
	if len(next) == 0 {
		s.state = SessionStateIdle
	} else {
		s.state = SessionStateSelected
	}
	s.touch()
	return nil
}

// ApplyRefresh replaces the pick list view outside a dispatch cycle, purging
// selection entries whose tasks went terminal. Closes the session when the
// pick list disappeared or has no open tasks left.
func (s *DispatchSession) ApplyRefresh(refreshed *PickList) error {
	if s.state == SessionStateClosed {
		return ErrSessionClosed
	}
	if s.state == SessionStateInFlight {
		return ErrDispatchInFlight
	}

	s.needsRefresh = false

	if refreshed == nil || !refreshed.HasOpenTasks() {
		s.selected = make(map[int64]struct{})
		s.state = SessionStateClosed
		s.touch()
		return nil
	}

	s.PickList = *refreshed
	for id := range s.selected {
		if task, ok := refreshed.FindTask(id); !ok || task.Status.Terminal() {
			delete(s.selected, id)
		}
	}
	if len(s.selected) == 0 {
		s.state = SessionStateIdle
	} else {
		s.state = SessionStateSelected
	}
	s.touch()
	return nil
}

// Close ends the session
func (s *DispatchSession) Close() {
	s.selected = make(map[int64]struct{})
	s.state = SessionStateClosed
	s.touch()
}

func (s *DispatchSession) ensureOpen() error {
	switch s.state {
	case SessionStateClosed:
		return ErrSessionClosed
	case SessionStateInFlight:
		return ErrDispatchInFlight
	}
	return nil
}

func (s *DispatchSession) touch() {
	s.UpdatedAt = time.Now()
}
