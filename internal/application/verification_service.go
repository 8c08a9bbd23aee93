package application

import (
	"context"
	"strconv"
	"time"

	"github.com/wms-platform/outbound-service/internal/domain"
	apperrors "github.com/wms-platform/outbound-service/pkg/errors"
	"github.com/wms-platform/outbound-service/pkg/logging"
	"github.com/wms-platform/outbound-service/pkg/metrics"
)

// VerificationService drives the outbound package verification workflow
type VerificationService struct {
	shipments domain.ShipmentBackend
	verifier  domain.LabelVerifier
	logs      domain.VerificationLogRepository
	events    domain.EventPublisher
	metrics   *metrics.Metrics
	logger    *logging.Logger
	now       func() time.Time
}

// NewVerificationService creates the verification service
func NewVerificationService(
	shipments domain.ShipmentBackend,
	verifier domain.LabelVerifier,
	logs domain.VerificationLogRepository,
	events domain.EventPublisher,
	m *metrics.Metrics,
	logger *logging.Logger,
) *VerificationService {
	return &VerificationService{
		shipments: shipments,
		verifier:  verifier,
		logs:      logs,
		events:    events,
		metrics:   m,
		logger:    logger.WithComponent("verification-service"),
		now:       time.Now,
	}
}

// ListOutboundShipments returns the assigned shipments that are outbound and
// not yet completed
func (s *VerificationService) ListOutboundShipments(ctx context.Context) ([]ShipmentDTO, error) {
	shipments, err := s.shipments.ListAssignedShipments(ctx)
	if err != nil {
		s.logger.Error("failed to list assigned shipments", "error", err)
		return nil, err
	}
	return toShipmentDTOs(domain.FilterActiveOutbound(shipments)), nil
}

// ListShipmentPackages returns a shipment's packages with their storage
// locations and the verification tally
func (s *VerificationService) ListShipmentPackages(ctx context.Context, query ListShipmentPackagesQuery) (*ShipmentPackagesDTO, error) {
	packages, err := s.shipments.ListShipmentPackages(ctx, query.ShipmentID)
	if err != nil {
		s.logger.Error("failed to list shipment packages",
			"shipmentId", query.ShipmentID, "error", err)
		return nil, err
	}
	if query.SKUCode != "" {
		filtered := packages[:0:0]
		for _, p := range packages {
			if p.SKUCode == query.SKUCode {
				filtered = append(filtered, p)
			}
		}
		packages = filtered
	}
	return &ShipmentPackagesDTO{
		ShipmentID:    query.ShipmentID,
		Packages:      packages,
		TotalCount:    len(packages),
		VerifiedCount: domain.CountVerified(packages),
	}, nil
}

// VerifyPackage submits a package image to the AI verifier and derives the
// reconciliation view for the caller. The audit log write and event publish
// are best effort; the verification verdict is returned even when they fail.
func (s *VerificationService) VerifyPackage(ctx context.Context, cmd VerifyPackageCommand) (*VerificationDTO, error) {
	if len(cmd.Image) == 0 {
		return nil, apperrors.ErrValidation("image file is required")
	}
	if cmd.PackageID <= 0 {
		return nil, apperrors.ErrValidation("packageId must be a positive integer")
	}

	start := s.now()
	result, err := s.verifier.VerifyPackage(ctx, cmd.PackageID, cmd.Image, cmd.Filename)
	duration := s.now().Sub(start)
	if err != nil {
		s.logger.Error("package verification failed",
			"packageId", cmd.PackageID, "error", err)
		return nil, err
	}

	reconciliation := domain.Reconcile(*result)
	s.metrics.RecordVerification(result.Matched, string(reconciliation.Band), duration)
	s.logger.Info("package verified",
		"packageId", cmd.PackageID, "matched", result.Matched,
		"confidence", reconciliation.Confidence, "action", string(reconciliation.Action))

	s.recordLog(ctx, cmd, result, reconciliation)
	s.publishVerified(ctx, cmd, result, reconciliation)

	return &VerificationDTO{Result: *result, Reconciliation: reconciliation}, nil
}

// GetVerificationHistory returns the verification audit trail for a shipment,
// newest first
func (s *VerificationService) GetVerificationHistory(ctx context.Context, shipmentID int64) ([]domain.VerificationLog, error) {
	if s.logs == nil {
		return nil, apperrors.ErrNotFoundWithID("verification history", strconv.FormatInt(shipmentID, 10))
	}
	logs, err := s.logs.FindByShipment(ctx, shipmentID)
	if err != nil {
		s.logger.Error("failed to load verification history",
			"shipmentId", shipmentID, "error", err)
		return nil, err
	}
	return logs, nil
}

func (s *VerificationService) recordLog(ctx context.Context, cmd VerifyPackageCommand, result *domain.VerificationResult, rec domain.Reconciliation) {
	if s.logs == nil {
		return
	}
	entry := &domain.VerificationLog{
		PackageID:  cmd.PackageID,
		ShipmentID: cmd.ShipmentID,
		UserID:     cmd.UserID,
		Matched:    result.Matched,
		Message:    result.Message,
		Confidence: rec.Confidence,
		Issues:     rec.Issues,
		CreatedAt:  s.now(),
	}
	if err := s.logs.Save(ctx, entry); err != nil {
		s.logger.Warn("failed to record verification log",
			"packageId", cmd.PackageID, "error", err)
	}
}

func (s *VerificationService) publishVerified(ctx context.Context, cmd VerifyPackageCommand, result *domain.VerificationResult, rec domain.Reconciliation) {
	if s.events == nil {
		return
	}
	event := domain.PackageVerifiedEvent{
		PackageID:  cmd.PackageID,
		ShipmentID: cmd.ShipmentID,
		UserID:     cmd.UserID,
		Matched:    result.Matched,
		Confidence: rec.Confidence,
		VerifiedAt: s.now(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish package verified event",
			"packageId", cmd.PackageID, "error", err)
	}
}
