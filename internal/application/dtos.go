package application

import (
	"time"

	"github.com/wms-platform/outbound-service/internal/domain"
)

// TaskDTO is the API representation of a picking task
type TaskDTO struct {
	ID                   int64             `json:"id"`
	ShipmentID           int64             `json:"shipmentId"`
	SKUCode              string            `json:"skuCode"`
	ProductName          string            `json:"productName"`
	Quantity             int               `json:"quantity"`
	Status               domain.TaskStatus `json:"status"`
	AssignedToUserID     int64             `json:"assignedToUserId,omitempty"`
	AssignedToUserName   string            `json:"assignedToUserName,omitempty"`
	SuggestedLocation    string            `json:"suggestedLocation,omitempty"`
	AvailableStock       *int              `json:"availableStock,omitempty"`
	HasInsufficientStock bool              `json:"hasInsufficientStock"`
}

// PickListDTO is the API representation of a derived pick list
type PickListDTO struct {
	PickListID       string          `json:"pickListId"`
	ShipmentID       int64           `json:"shipmentId"`
	ShipmentDeadline *time.Time      `json:"shipmentDeadline,omitempty"`
	DeadlineTime     string          `json:"deadlineTime"`
	OrderNumber      string          `json:"orderNumber,omitempty"`
	Destination      string          `json:"destination,omitempty"`
	Priority         domain.Priority `json:"priority"`
	Progress         domain.Progress `json:"progress"`
	Tasks            []TaskDTO       `json:"tasks"`
}

// OverviewDTO is the picking overview for one worker
type OverviewDTO struct {
	PickLists       []PickListDTO            `json:"pickLists"`
	DispatchedTasks []TaskDTO                `json:"dispatchedTasks"`
	Statistics      domain.PickingStatistics `json:"statistics"`
}

// SessionDTO is the API representation of a dispatch session
type SessionDTO struct {
	SessionID       string              `json:"sessionId"`
	UserID          int64               `json:"userId"`
	ShipmentID      int64               `json:"shipmentId"`
	State           domain.SessionState `json:"state"`
	SelectedTaskIDs []int64             `json:"selectedTaskIds"`
	NeedsRefresh    bool                `json:"needsRefresh"`
	PickList        PickListDTO         `json:"pickList"`
}

// FailedTaskDTO reports one failed per-task dispatch attempt
type FailedTaskDTO struct {
	TaskID   int64  `json:"taskId"`
	TaskName string `json:"taskName"`
	Error    string `json:"error"`
}

// DispatchResultDTO is the outcome of a dispatch batch
type DispatchResultDTO struct {
	Outcome      DispatchOutcome `json:"outcome"`
	Reason       string          `json:"reason,omitempty"`
	Failed       []FailedTaskDTO `json:"failed,omitempty"`
	RefreshError string          `json:"refreshError,omitempty"`
	Session      *SessionDTO     `json:"session,omitempty"`
}

// ShipmentDTO is the API representation of an outbound shipment
type ShipmentDTO struct {
	ID                  int64                 `json:"id"`
	Type                domain.ShipmentType   `json:"shipmentType"`
	Status              domain.ShipmentStatus `json:"status"`
	CreatedAt           time.Time             `json:"createdAt"`
	PackageCount        int                   `json:"packageCount"`
	VerifiedCount       int                   `json:"verifiedCount"`
	AllPackagesVerified bool                  `json:"allPackagesVerified"`
}

// ShipmentPackagesDTO lists a shipment's packages with the verification tally
type ShipmentPackagesDTO struct {
	ShipmentID    int64            `json:"shipmentId"`
	Packages      []domain.Package `json:"packages"`
	TotalCount    int              `json:"totalCount"`
	VerifiedCount int              `json:"verifiedCount"`
}

// VerificationDTO bundles the raw verification result with its derived
// reconciliation
type VerificationDTO struct {
	Result         domain.VerificationResult `json:"result"`
	Reconciliation domain.Reconciliation     `json:"reconciliation"`
}
