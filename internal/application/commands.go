package application

// GetOverviewQuery loads the picking overview for a worker
type GetOverviewQuery struct {
	UserID int64
}

// OpenSessionCommand opens a dispatch session for a shipment's pick list
type OpenSessionCommand struct {
	UserID     int64
	ShipmentID int64
}

// GetSessionQuery loads a dispatch session
type GetSessionQuery struct {
	SessionID string
}

// SetSelectionCommand replaces a session's selection set
type SetSelectionCommand struct {
	SessionID string
	TaskIDs   []int64
	SelectAll bool
}

// DispatchCommand runs the dispatch batch for a session's selection
type DispatchCommand struct {
	SessionID string
}

// RefreshSessionCommand re-fetches authoritative tasks and reconciles the
// session, used to recover from a failed post-batch refresh
type RefreshSessionCommand struct {
	SessionID string
}

// CloseSessionCommand ends a dispatch session
type CloseSessionCommand struct {
	SessionID string
}

// ListShipmentPackagesQuery loads a shipment's packages with locations.
// SKUCode optionally narrows the list to a single SKU.
type ListShipmentPackagesQuery struct {
	ShipmentID int64
	SKUCode    string
}

// VerifyPackageCommand runs AI verification of a package image
type VerifyPackageCommand struct {
	PackageID  int64
	ShipmentID int64
	UserID     int64
	Image      []byte
	Filename   string
}
