package domain

import (
	"fmt"
	"math"
	"time"
)

// PickList is the derived per-shipment grouping of picking tasks. It is
// recomputed from the authoritative task list on every refresh and never
// persisted, so it cannot diverge from ground truth after a partial failure.
type PickList struct {
	ShipmentID       int64      `json:"shipmentId"`
	ShipmentDeadline *time.Time `json:"shipmentDeadline,omitempty"`
	OrderNumber      string     `json:"orderNumber,omitempty"`
	Destination      string     `json:"destination,omitempty"`
	Tasks            []Task     `json:"tasks"`
}

// OpenTasks returns the tasks that are not in a terminal status
func (p PickList) OpenTasks() []Task {
	open := make([]Task, 0, len(p.Tasks))
	for _, t := range p.Tasks {
		if !t.Status.Terminal() {
			open = append(open, t)
		}
	}
	return open
}

// HasOpenTasks reports whether any task is still dispatchable
func (p PickList) HasOpenTasks() bool {
	for _, t := range p.Tasks {
		if !t.Status.Terminal() {
			return true
		}
	}
	return false
}

// FindTask returns the task with the given id, or false when absent
func (p PickList) FindTask(taskID int64) (Task, bool) {
	for _, t := range p.Tasks {
		if t.ID == taskID {
			return t, true
		}
	}
	return Task{}, false
}

// GroupTasksByShipment partitions tasks into one pick list per shipment,
// preserving the first-seen order of shipment ids. Shipment-level fields are
// taken from the first task encountered for each shipment; all tasks of a
// shipment are assumed to carry identical shipment-level data.
func GroupTasksByShipment(tasks []Task) []PickList {
	index := make(map[int64]int, len(tasks))
	lists := make([]PickList, 0, len(tasks))

	for _, task := range tasks {
		i, seen := index[task.ShipmentID]
		if !seen {
			i = len(lists)
			index[task.ShipmentID] = i
			lists = append(lists, PickList{
				ShipmentID:       task.ShipmentID,
				ShipmentDeadline: task.ShipmentDeadline,
				OrderNumber:      task.OrderNumber,
				Destination:      task.Destination,
			})
		}
		lists[i].Tasks = append(lists[i].Tasks, task)
	}

	return lists
}

// FindPickList returns the pick list for a shipment, or nil when absent
func FindPickList(lists []PickList, shipmentID int64) *PickList {
	for i := range lists {
		if lists[i].ShipmentID == shipmentID {
			return &lists[i]
		}
	}
	return nil
}

// Priority is the display urgency of a pick list. Only two tiers exist.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
)

// CalculatePriority derives a pick list's urgency from its shipment deadline.
// Both "now" and the deadline are normalized to midnight before differencing,
// so a deadline any time today, or earlier, counts as overdue.
func CalculatePriority(deadline *time.Time, now time.Time) Priority {
	if deadline == nil {
		return PriorityMedium
	}

	today := midnight(now, now.Location())
	due := midnight(deadline.In(now.Location()), now.Location())

	diffDays := int(math.Ceil(due.Sub(today).Hours() / 24))
	if diffDays <= 0 {
		return PriorityHigh
	}
	return PriorityMedium
}

func midnight(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// Progress describes pick list completion
type Progress struct {
	Picked     int `json:"picked"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// CalculateProgress counts completed and dispatched tasks against the total.
// Percentage is 0 for an empty list.
func CalculateProgress(list PickList) Progress {
	total := len(list.Tasks)
	picked := 0
	for _, t := range list.Tasks {
		if t.Status.Terminal() {
			picked++
		}
	}

	percentage := 0
	if total > 0 {
		percentage = int(math.Round(float64(picked) / float64(total) * 100))
	}

	return Progress{Picked: picked, Total: total, Percentage: percentage}
}

// FormatPickListID produces the display identifier PL-{year}-{shipmentId},
// zero-padding the shipment id to three digits. The current calendar year is
// used when year is not positive. Display-only: never a backend lookup key.
func FormatPickListID(shipmentID int64, year int) string {
	if year <= 0 {
		year = time.Now().Year()
	}
	return fmt.Sprintf("PL-%d-%03d", year, shipmentID)
}

// FormatDeadlineTime renders a deadline's time-of-day, e.g. "3:00 PM",
// or "N/A" when there is no deadline.
func FormatDeadlineTime(deadline *time.Time) string {
	if deadline == nil {
		return "N/A"
	}
	return deadline.Format("3:04 PM")
}
