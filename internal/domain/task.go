package domain

import (
	"fmt"
	"time"
)

// TaskStatus represents the lifecycle status of a picking task.
// COMPLETED and DISPATCHED are terminal.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
	TaskStatusDispatched TaskStatus = "DISPATCHED"
)

// Terminal reports whether the status is a terminal state
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusDispatched
}

// Task is a single picking unit, owned by the task backend-of-record.
// Tasks are never mutated locally; dispatch goes through the backend and the
// local view is rebuilt from a fresh list.
type Task struct {
	ID                   int64      `json:"id"`
	ShipmentID           int64      `json:"shipmentId"`
	SKUCode              string     `json:"skuCode"`
	ProductName          string     `json:"productName"`
	Quantity             int        `json:"quantity"`
	Status               TaskStatus `json:"status"`
	AssignedToUserID     int64      `json:"assignedToUserId,omitempty"`
	AssignedToUserName   string     `json:"assignedToUserName,omitempty"`
	SuggestedLocation    string     `json:"suggestedLocation,omitempty"`
	AvailableStock       *int       `json:"availableStock,omitempty"`
	HasInsufficientStock bool       `json:"hasInsufficientStock"`
	ShipmentDeadline     *time.Time `json:"shipmentDeadline,omitempty"`
	OrderNumber          string     `json:"orderNumber,omitempty"`
	Destination          string     `json:"destination,omitempty"`
}

// DisplayName returns the task identity used in user-facing messages
func (t Task) DisplayName() string {
	if t.ProductName != "" {
		return fmt.Sprintf("%s (%s)", t.ProductName, t.SKUCode)
	}
	return fmt.Sprintf("Task %d", t.ID)
}

// AvailableStockCount returns the known available stock, 0 when unknown
func (t Task) AvailableStockCount() int {
	if t.AvailableStock == nil {
		return 0
	}
	return *t.AvailableStock
}

// PickingStatistics summarises a worker's picking workload
type PickingStatistics struct {
	ActivePickListsCount int `json:"activePickListsCount"`
	ItemsToPickCount     int `json:"itemsToPickCount"`
	PickedTodayCount     int `json:"pickedTodayCount"`
	ReadyToShipCount     int `json:"readyToShipCount"`
}
