package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestPickList() PickList {
	stock := 10
	low := 2
	return PickList{
		ShipmentID: 100,
		Tasks: []Task{
			{ID: 1, ShipmentID: 100, ProductName: "Widget", SKUCode: "SKU-001", Quantity: 5, Status: TaskStatusPending, AvailableStock: &stock},
			{ID: 2, ShipmentID: 100, ProductName: "Gadget", SKUCode: "SKU-002", Quantity: 3, Status: TaskStatusPending, AvailableStock: &stock},
			{ID: 3, ShipmentID: 100, ProductName: "Sprocket", SKUCode: "SKU-003", Quantity: 5, Status: TaskStatusPending, AvailableStock: &low, HasInsufficientStock: true},
			{ID: 4, ShipmentID: 100, ProductName: "Flange", SKUCode: "SKU-004", Quantity: 1, Status: TaskStatusCompleted},
		},
	}
}

func TestSessionSelection(t *testing.T) {
	s := NewDispatchSession("sess-1", 7, createTestPickList())
	assert.Equal(t, SessionStateIdle, s.State())

	require.NoError(t, s.Select(1))
	assert.Equal(t, SessionStateSelected, s.State())
	assert.True(t, s.IsSelected(1))

	// Selecting is idempotent
	require.NoError(t, s.Select(1))
	assert.Equal(t, []int64{1}, s.SelectedIDs())

	require.NoError(t, s.Select(2))
	assert.Equal(t, []int64{1, 2}, s.SelectedIDs())

	require.NoError(t, s.Deselect(1))
	assert.Equal(t, []int64{2}, s.SelectedIDs())

	require.NoError(t, s.Deselect(2))
	assert.Equal(t, SessionStateIdle, s.State())
}

func TestSessionSelectRejectsInvalidTasks(t *testing.T) {
	s := NewDispatchSession("sess-1", 7, createTestPickList())

	assert.ErrorIs(t, s.Select(99), ErrTaskNotInList)
	assert.ErrorIs(t, s.Select(4), ErrTaskTerminal)
	assert.Equal(t, SessionStateIdle, s.State())
}

func TestSessionSelectAllSkipsTerminal(t *testing.T) {
	s := NewDispatchSession("sess-1", 7, createTestPickList())

	require.NoError(t, s.SelectAll())
	assert.Equal(t, []int64{1, 2, 3}, s.SelectedIDs())
}

func TestSessionSetSelection(t *testing.T) {
	s := NewDispatchSession("sess-1", 7, createTestPickList())

	require.NoError(t, s.SetSelection([]int64{1, 3}))
	assert.Equal(t, []int64{1, 3}, s.SelectedIDs())

	err := s.SetSelection([]int64{1, 4})
	assert.ErrorIs(t, err, ErrTaskTerminal)
	// A rejected replacement leaves the previous selection intact
	assert.Equal(t, []int64{1, 3}, s.SelectedIDs())

	require.NoError(t, s.SetSelection(nil))
	assert.Equal(t, SessionStateIdle, s.State())
}

func TestBeginDispatchRejectsEmptySelection(t *testing.T) {
	s := NewDispatchSession("sess-1", 7, createTestPickList())

	_, err := s.BeginDispatch()
	assert.ErrorIs(t, err, ErrEmptySelection)
	assert.Equal(t, SessionStateIdle, s.State())
}

func TestBeginDispatchRejectsInsufficientStock(t *testing.T) {
	s := NewDispatchSession("sess-1", 7, createTestPickList())
	require.NoError(t, s.SetSelection([]int64{1, 3}))

	_, err := s.BeginDispatch()
	require.Error(t, err)

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Len(t, stockErr.Tasks, 1)
	assert.Equal(t, int64(3), stockErr.Tasks[0].ID)
	assert.Contains(t, err.Error(), "Sprocket (SKU-003): Available 2, Required 5")

	// Whole batch is rejected; nothing moved, selection intact
	assert.Equal(t, SessionStateSelected, s.State())
	assert.Equal(t, []int64{1, 3}, s.SelectedIDs())
}

func TestBeginDispatchMovesToInFlight(t *testing.T) {
	s := NewDispatchSession("sess-1", 7, createTestPickList())
	require.NoError(t, s.SetSelection([]int64{1, 2}))

	ids, err := s.BeginDispatch()
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)
	assert.Equal(t, SessionStateInFlight, s.State())

	// A second dispatch on the same session is refused, not queued
	_, err = s.BeginDispatch()
	assert.ErrorIs(t, err, ErrDispatchInFlight)

	// So is any selection change while in flight
	assert.ErrorIs(t, s.Select(1), ErrDispatchInFlight)
}

func TestFinishDispatchAllSucceeded(t *testing.T) {
	s := NewDispatchSession("sess-1", 7, createTestPickList())
	require.NoError(t, s.SetSelection([]int64{1, 2}))
	_, err := s.BeginDispatch()
	require.NoError(t, err)

	refreshed := createTestPickList()
	refreshed.Tasks[0].Status = TaskStatusDispatched
	refreshed.Tasks[1].Status = TaskStatusDispatched

	require.NoError(t, s.FinishDispatch(&refreshed, nil))
	// Open tasks remain, but no failures means the batch is done
	assert.Equal(t, SessionStateClosed, s.State())
	assert.Empty(t, s.SelectedIDs())
}

func TestFinishDispatchRetainsFailedIDs(t *testing.T) {
	s := NewDispatchSession("sess-1", 7, createTestPickList())
	require.NoError(t, s.SetSelection([]int64{1, 2}))
	_, err := s.BeginDispatch()
	require.NoError(t, err)

	// Task 1 succeeded, task 2 failed and is still open after refresh
	refreshed := createTestPickList()
	refreshed.Tasks[0].Status = TaskStatusDispatched

	require.NoError(t, s.FinishDispatch(&refreshed, []int64{2}))
	assert.Equal(t, SessionStateSelected, s.State())
	assert.Equal(t, []int64{2}, s.SelectedIDs())
	assert.False(t, s.NeedsRefresh())
}

func TestFinishDispatchDropsFailedIDsGoneTerminal(t *testing.T) {
	s := NewDispatchSession("sess-1", 7, createTestPickList())
	require.NoError(t, s.SetSelection([]int64{1, 2}))
	_, err := s.BeginDispatch()
	require.NoError(t, err)

	// The failed task turned out dispatched on the backend after all
	refreshed := createTestPickList()
	refreshed.Tasks[0].Status = TaskStatusDispatched
	refreshed.Tasks[1].Status = TaskStatusDispatched

	require.NoError(t, s.FinishDispatch(&refreshed, []int64{2}))
	// Still-open task 3 keeps the list alive, but nothing stays selected
	assert.Equal(t, SessionStateIdle, s.State())
	assert.Empty(t, s.SelectedIDs())
}

func TestFinishDispatchClosesWhenListGone(t *testing.T) {
	s := NewDispatchSession("sess-1", 7, createTestPickList())
	require.NoError(t, s.SetSelection([]int64{1, 2}))
	_, err := s.BeginDispatch()
	require.NoError(t, err)

	require.NoError(t, s.FinishDispatch(nil, []int64{2}))
	assert.Equal(t, SessionStateClosed, s.State())
}

func TestFinishDispatchStale(t *testing.T) {
	s := NewDispatchSession("sess-1", 7, createTestPickList())
	require.NoError(t, s.SetSelection([]int64{1, 2}))
	_, err := s.BeginDispatch()
	require.NoError(t, err)

	require.NoError(t, s.FinishDispatchStale([]int64{2}))
	assert.Equal(t, SessionStateSelected, s.State())
	assert.Equal(t, []int64{2}, s.SelectedIDs())
	assert.True(t, s.NeedsRefresh())

	// A later successful refresh clears the stale flag
	refreshed := createTestPickList()
	refreshed.Tasks[0].Status = TaskStatusDispatched
	require.NoError(t, s.ApplyRefresh(&refreshed))
	assert.False(t, s.NeedsRefresh())
	assert.Equal(t, []int64{2}, s.SelectedIDs())
}

func TestApplyRefreshPurgesTerminalSelection(t *testing.T) {
	s := NewDispatchSession("sess-1", 7, createTestPickList())
	require.NoError(t, s.SetSelection([]int64{1, 2}))

	refreshed := createTestPickList()
	refreshed.Tasks[0].Status = TaskStatusDispatched

	require.NoError(t, s.ApplyRefresh(&refreshed))
	assert.Equal(t, []int64{2}, s.SelectedIDs())
}

func TestApplyRefreshClosesEmptyList(t *testing.T) {
	s := NewDispatchSession("sess-1", 7, createTestPickList())
	require.NoError(t, s.Select(1))

	require.NoError(t, s.ApplyRefresh(nil))
	assert.Equal(t, SessionStateClosed, s.State())

	// Everything is refused once closed
	assert.ErrorIs(t, s.Select(1), ErrSessionClosed)
	_, err := s.BeginDispatch()
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestFinishDispatchRequiresInFlight(t *testing.T) {
	s := NewDispatchSession("sess-1", 7, createTestPickList())
	refreshed := createTestPickList()

	assert.ErrorIs(t, s.FinishDispatch(&refreshed, nil), ErrNotInFlight)
	assert.ErrorIs(t, s.FinishDispatchStale(nil), ErrNotInFlight)
}
