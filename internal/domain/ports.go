package domain

import "context"

// TaskBackend is the task persistence backend-of-record. The core never
// mutates tasks locally; CompleteTask is the only write and must be safe to
// retry for a previously-failed id.
type TaskBackend interface {
	ListPickingTasks(ctx context.Context, userID int64) ([]Task, error)
	ListDispatchedTasks(ctx context.Context, userID int64) ([]Task, error)
	GetPickingStatistics(ctx context.Context, userID int64) (PickingStatistics, error)
	CompleteTask(ctx context.Context, taskID, userID int64) error
}

// ShipmentBackend exposes the shipment records assigned for outbound work
type ShipmentBackend interface {
	ListAssignedShipments(ctx context.Context) ([]Shipment, error)
	ListShipmentPackages(ctx context.Context, shipmentID int64) ([]Package, error)
}

// LabelVerifier is the AI verification collaborator: given a package id and
// an image it returns a match verdict with structured comparison details
type LabelVerifier interface {
	VerifyPackage(ctx context.Context, packageID int64, image []byte, filename string) (*VerificationResult, error)
}

// VerificationLogRepository persists the verification audit trail
type VerificationLogRepository interface {
	Save(ctx context.Context, log *VerificationLog) error
	FindByShipment(ctx context.Context, shipmentID int64) ([]VerificationLog, error)
}
