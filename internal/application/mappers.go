package application

import (
	"time"

	"github.com/wms-platform/outbound-service/internal/domain"
)

func toTaskDTO(t domain.Task) TaskDTO {
	return TaskDTO{
		ID:                   t.ID,
		ShipmentID:           t.ShipmentID,
		SKUCode:              t.SKUCode,
		ProductName:          t.ProductName,
		Quantity:             t.Quantity,
		Status:               t.Status,
		AssignedToUserID:     t.AssignedToUserID,
		AssignedToUserName:   t.AssignedToUserName,
		SuggestedLocation:    t.SuggestedLocation,
		AvailableStock:       t.AvailableStock,
		HasInsufficientStock: t.HasInsufficientStock,
	}
}

func toTaskDTOs(tasks []domain.Task) []TaskDTO {
	dtos := make([]TaskDTO, 0, len(tasks))
	for _, t := range tasks {
		dtos = append(dtos, toTaskDTO(t))
	}
	return dtos
}

func toPickListDTO(pl domain.PickList, now time.Time) PickListDTO {
	return PickListDTO{
		PickListID:       domain.FormatPickListID(pl.ShipmentID, now.Year()),
		ShipmentID:       pl.ShipmentID,
		ShipmentDeadline: pl.ShipmentDeadline,
		DeadlineTime:     domain.FormatDeadlineTime(pl.ShipmentDeadline),
		OrderNumber:      pl.OrderNumber,
		Destination:      pl.Destination,
		Priority:         domain.CalculatePriority(pl.ShipmentDeadline, now),
		Progress:         domain.CalculateProgress(pl),
		Tasks:            toTaskDTOs(pl.Tasks),
	}
}

func toPickListDTOs(lists []domain.PickList, now time.Time) []PickListDTO {
	dtos := make([]PickListDTO, 0, len(lists))
	for _, pl := range lists {
		dtos = append(dtos, toPickListDTO(pl, now))
	}
	return dtos
}

func toSessionDTO(s *domain.DispatchSession, now time.Time) SessionDTO {
	return SessionDTO{
		SessionID:       s.ID,
		UserID:          s.UserID,
		ShipmentID:      s.ShipmentID,
		State:           s.State(),
		SelectedTaskIDs: s.SelectedIDs(),
		NeedsRefresh:    s.NeedsRefresh(),
		PickList:        toPickListDTO(s.PickList, now),
	}
}

func toShipmentDTO(s domain.Shipment) ShipmentDTO {
	return ShipmentDTO{
		ID:                  s.ID,
		Type:                s.Type,
		Status:              s.Status,
		CreatedAt:           s.CreatedAt,
		PackageCount:        s.PackageCount,
		VerifiedCount:       s.VerifiedCount,
		AllPackagesVerified: s.AllPackagesVerified(),
	}
}

func toShipmentDTOs(shipments []domain.Shipment) []ShipmentDTO {
	dtos := make([]ShipmentDTO, 0, len(shipments))
	for _, s := range shipments {
		dtos = append(dtos, toShipmentDTO(s))
	}
	return dtos
}
