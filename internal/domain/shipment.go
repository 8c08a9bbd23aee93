package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ShipmentType distinguishes inbound receiving from outbound dispatch
type ShipmentType string

const (
	ShipmentTypeInbound  ShipmentType = "INBOUND"
	ShipmentTypeOutbound ShipmentType = "OUTBOUND"
)

// ShipmentStatus is the fulfillment status reported by the shipment backend
type ShipmentStatus string

const (
	ShipmentStatusPending    ShipmentStatus = "PENDING"
	ShipmentStatusInProgress ShipmentStatus = "IN_PROGRESS"
	ShipmentStatusCompleted  ShipmentStatus = "COMPLETED"
)

// Shipment is a read model owned by the shipment backend
type Shipment struct {
	ID            int64          `json:"id"`
	Type          ShipmentType   `json:"shipmentType"`
	Status        ShipmentStatus `json:"status"`
	CreatedAt     time.Time      `json:"createdAt"`
	PackageCount  int            `json:"packageCount"`
	VerifiedCount int            `json:"verifiedCount"`
}

// AllPackagesVerified reports whether every package of the shipment has been
// verified. A shipment with no packages is never considered verified.
func (s Shipment) AllPackagesVerified() bool {
	return s.PackageCount > 0 && s.VerifiedCount >= s.PackageCount
}

// FilterActiveOutbound keeps shipments that still need outbound processing
func FilterActiveOutbound(shipments []Shipment) []Shipment {
	active := make([]Shipment, 0, len(shipments))
	for _, s := range shipments {
		if s.Type == ShipmentTypeOutbound && s.Status != ShipmentStatusCompleted {
			active = append(active, s)
		}
	}
	return active
}

// PackageStatus is the per-package fulfillment status
type PackageStatus string

const (
	PackageStatusPending    PackageStatus = "PENDING"
	PackageStatusReceived   PackageStatus = "RECEIVED"
	PackageStatusDispatched PackageStatus = "DISPATCHED"
)

// Verified reports whether the package has passed verification
func (s PackageStatus) Verified() bool {
	return s == PackageStatusReceived || s == PackageStatusDispatched
}

// Package is a shipment item with its derived storage location
type Package struct {
	ID          int64         `json:"id"`
	ShipmentID  int64         `json:"shipmentId"`
	SKUCode     string        `json:"skuCode"`
	ProductCode string        `json:"productCode,omitempty"`
	ProductName string        `json:"productName"`
	Quantity    int           `json:"quantity"`
	Status      PackageStatus `json:"status"`
	ZoneName    string        `json:"zoneName,omitempty"`
	RackName    string        `json:"rackName,omitempty"`
	BinName     string        `json:"binName,omitempty"`
}

// CountVerified returns how many packages have passed verification
func CountVerified(packages []Package) int {
	n := 0
	for _, p := range packages {
		if p.Status.Verified() {
			n++
		}
	}
	return n
}

// VerificationLog is the persisted audit record of one verification call
type VerificationLog struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	PackageID  int64              `bson:"packageId" json:"packageId"`
	ShipmentID int64              `bson:"shipmentId,omitempty" json:"shipmentId,omitempty"`
	UserID     int64              `bson:"userId,omitempty" json:"userId,omitempty"`
	Matched    bool               `bson:"matched" json:"matched"`
	Message    string             `bson:"message,omitempty" json:"message,omitempty"`
	Confidence float64            `bson:"confidence" json:"confidence"`
	Issues     []string           `bson:"issues,omitempty" json:"issues,omitempty"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}
