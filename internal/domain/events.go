package domain

import (
	"context"
	"time"
)

// Event types published to the platform event bus
const (
	EventTypeTaskDispatched  = "outbound.task.dispatched"
	EventTypePackageVerified = "outbound.package.verified"
)

// TaskDispatchedEvent is emitted for each task successfully dispatched in a
// batch
type TaskDispatchedEvent struct {
	TaskID       int64     `json:"taskId"`
	ShipmentID   int64     `json:"shipmentId"`
	UserID       int64     `json:"userId"`
	SKUCode      string    `json:"skuCode,omitempty"`
	Quantity     int       `json:"quantity"`
	DispatchedAt time.Time `json:"dispatchedAt"`
}

// EventType implements BusinessEvent
func (e TaskDispatchedEvent) EventType() string { return EventTypeTaskDispatched }

// Subject implements BusinessEvent
func (e TaskDispatchedEvent) Subject() string { return FormatPickListID(e.ShipmentID, 0) }

// PackageVerifiedEvent is emitted after each verification call
type PackageVerifiedEvent struct {
	PackageID  int64     `json:"packageId"`
	ShipmentID int64     `json:"shipmentId,omitempty"`
	UserID     int64     `json:"userId,omitempty"`
	Matched    bool      `json:"matched"`
	Confidence float64   `json:"confidence"`
	VerifiedAt time.Time `json:"verifiedAt"`
}

// EventType implements BusinessEvent
func (e PackageVerifiedEvent) EventType() string { return EventTypePackageVerified }

// Subject implements BusinessEvent
func (e PackageVerifiedEvent) Subject() string { return FormatPickListID(e.ShipmentID, 0) }

// BusinessEvent is a publishable domain fact
type BusinessEvent interface {
	EventType() string
	Subject() string
}

// EventPublisher pushes business events to downstream consumers. Publishing
// is best effort; failures must never fail the workflow that produced the
// event.
type EventPublisher interface {
	Publish(ctx context.Context, event BusinessEvent) error
}
