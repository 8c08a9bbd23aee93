package application

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/outbound-service/internal/domain"
	apperrors "github.com/wms-platform/outbound-service/pkg/errors"
	"github.com/wms-platform/outbound-service/pkg/logging"
	"github.com/wms-platform/outbound-service/pkg/metrics"
)

type fakeShipmentBackend struct {
	shipments []domain.Shipment
	packages  []domain.Package
	err       error
}

func (f *fakeShipmentBackend) ListAssignedShipments(_ context.Context) ([]domain.Shipment, error) {
	return f.shipments, f.err
}

func (f *fakeShipmentBackend) ListShipmentPackages(_ context.Context, _ int64) ([]domain.Package, error) {
	return f.packages, f.err
}

type fakeVerifier struct {
	result *domain.VerificationResult
	err    error

	lastPackageID int64
	lastFilename  string
}

func (f *fakeVerifier) VerifyPackage(_ context.Context, packageID int64, _ []byte, filename string) (*domain.VerificationResult, error) {
	f.lastPackageID = packageID
	f.lastFilename = filename
	return f.result, f.err
}

type fakeLogRepository struct {
	mu    sync.Mutex
	saved []domain.VerificationLog
	err   error
}

func (f *fakeLogRepository) Save(_ context.Context, log *domain.VerificationLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, *log)
	return nil
}

func (f *fakeLogRepository) FindByShipment(_ context.Context, shipmentID int64) ([]domain.VerificationLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.VerificationLog
	for _, l := range f.saved {
		if l.ShipmentID == shipmentID {
			out = append(out, l)
		}
	}
	return out, f.err
}

func newTestVerificationService(backend *fakeShipmentBackend, verifier *fakeVerifier, logs *fakeLogRepository) (*VerificationService, *recordingPublisher) {
	publisher := &recordingPublisher{}
	var repo domain.VerificationLogRepository
	if logs != nil {
		repo = logs
	}
	service := NewVerificationService(
		backend,
		verifier,
		repo,
		publisher,
		metrics.New(metrics.DefaultConfig("test")),
		logging.New(logging.DefaultConfig("test")),
	)
	return service, publisher
}

func TestListOutboundShipments(t *testing.T) {
	backend := &fakeShipmentBackend{
		shipments: []domain.Shipment{
			{ID: 1, Type: domain.ShipmentTypeOutbound, Status: domain.ShipmentStatusPending, PackageCount: 3, VerifiedCount: 1},
			{ID: 2, Type: domain.ShipmentTypeInbound, Status: domain.ShipmentStatusPending},
			{ID: 3, Type: domain.ShipmentTypeOutbound, Status: domain.ShipmentStatusCompleted},
			{ID: 4, Type: domain.ShipmentTypeOutbound, Status: domain.ShipmentStatusInProgress, PackageCount: 2, VerifiedCount: 2},
		},
	}
	service, _ := newTestVerificationService(backend, &fakeVerifier{}, nil)

	shipments, err := service.ListOutboundShipments(context.Background())
	require.NoError(t, err)

	// Inbound and completed shipments are filtered out
	require.Len(t, shipments, 2)
	assert.Equal(t, int64(1), shipments[0].ID)
	assert.False(t, shipments[0].AllPackagesVerified)
	assert.Equal(t, int64(4), shipments[1].ID)
	assert.True(t, shipments[1].AllPackagesVerified)
}

func TestListShipmentPackages(t *testing.T) {
	backend := &fakeShipmentBackend{
		packages: []domain.Package{
			{ID: 1, ShipmentID: 10, SKUCode: "SKU-1", Status: domain.PackageStatusReceived, ZoneName: "Zone A", RackName: "R1", BinName: "B3"},
			{ID: 2, ShipmentID: 10, SKUCode: "SKU-2", Status: domain.PackageStatusPending},
		},
	}
	service, _ := newTestVerificationService(backend, &fakeVerifier{}, nil)

	result, err := service.ListShipmentPackages(context.Background(), ListShipmentPackagesQuery{ShipmentID: 10})
	require.NoError(t, err)

	assert.Equal(t, int64(10), result.ShipmentID)
	assert.Equal(t, 2, result.TotalCount)
	assert.Equal(t, 1, result.VerifiedCount)
}

func TestListShipmentPackagesFiltersBySKU(t *testing.T) {
	backend := &fakeShipmentBackend{
		packages: []domain.Package{
			{ID: 1, ShipmentID: 10, SKUCode: "SKU-1", Status: domain.PackageStatusReceived},
			{ID: 2, ShipmentID: 10, SKUCode: "SKU-2", Status: domain.PackageStatusPending},
			{ID: 3, ShipmentID: 10, SKUCode: "SKU-2", Status: domain.PackageStatusReceived},
		},
	}
	service, _ := newTestVerificationService(backend, &fakeVerifier{}, nil)

	result, err := service.ListShipmentPackages(context.Background(), ListShipmentPackagesQuery{
		ShipmentID: 10,
		SKUCode:    "SKU-2",
	})
	require.NoError(t, err)

	// Counts follow the filtered view
	assert.Equal(t, 2, result.TotalCount)
	assert.Equal(t, 1, result.VerifiedCount)
	for _, p := range result.Packages {
		assert.Equal(t, "SKU-2", p.SKUCode)
	}

	// Unknown SKU yields an empty list rather than an error
	result, err = service.ListShipmentPackages(context.Background(), ListShipmentPackagesQuery{
		ShipmentID: 10,
		SKUCode:    "SKU-9",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalCount)
	assert.Empty(t, result.Packages)
}

func TestVerifyPackageMatched(t *testing.T) {
	verifier := &fakeVerifier{
		result: &domain.VerificationResult{
			Status:       "SUCCESS",
			Message:      "Package verified successfully",
			Matched:      true,
			AutoAssigned: true,
			Details: &domain.VerificationDetails{
				ExpectedSKU:  "SKU-1",
				ExtractedSKU: "SKU-1",
				Confidence:   0.93,
				BinLocation:  "A-01-03",
			},
		},
	}
	logs := &fakeLogRepository{}
	service, publisher := newTestVerificationService(&fakeShipmentBackend{}, verifier, logs)

	result, err := service.VerifyPackage(context.Background(), VerifyPackageCommand{
		PackageID:  55,
		ShipmentID: 10,
		UserID:     7,
		Image:      []byte("jpeg-bytes"),
		Filename:   "label.jpg",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(55), verifier.lastPackageID)
	assert.Equal(t, "label.jpg", verifier.lastFilename)
	assert.True(t, result.Result.Matched)
	assert.Equal(t, domain.ActionAutoAdvance, result.Reconciliation.Action)
	assert.Equal(t, domain.ConfidenceBandHigh, result.Reconciliation.Band)

	// Audit record and event are written on the success path
	require.Len(t, logs.saved, 1)
	assert.Equal(t, int64(55), logs.saved[0].PackageID)
	assert.True(t, logs.saved[0].Matched)
	require.Len(t, publisher.events, 1)
	assert.Equal(t, domain.EventTypePackageVerified, publisher.events[0].EventType())
}

func TestVerifyPackageMismatchWithApprovalReference(t *testing.T) {
	approvalID := int64(42)
	verifier := &fakeVerifier{
		result: &domain.VerificationResult{
			Status:            "MISMATCH",
			Message:           "Label does not match order data",
			Matched:           false,
			ApprovalRequestID: &approvalID,
			Details:           &domain.VerificationDetails{Confidence: 0.55},
		},
	}
	service, _ := newTestVerificationService(&fakeShipmentBackend{}, verifier, nil)

	result, err := service.VerifyPackage(context.Background(), VerifyPackageCommand{
		PackageID: 55,
		Image:     []byte("jpeg-bytes"),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ActionShowApprovalReference, result.Reconciliation.Action)
	assert.Equal(t, domain.ConfidenceBandCaution, result.Reconciliation.Band)
	require.NotNil(t, result.Result.ApprovalRequestID)
	assert.Equal(t, approvalID, *result.Result.ApprovalRequestID)
}

func TestVerifyPackageValidation(t *testing.T) {
	service, _ := newTestVerificationService(&fakeShipmentBackend{}, &fakeVerifier{}, nil)

	_, err := service.VerifyPackage(context.Background(), VerifyPackageCommand{PackageID: 55})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidationError, appErr.Code)

	_, err = service.VerifyPackage(context.Background(), VerifyPackageCommand{Image: []byte("x")})
	appErr, ok = apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidationError, appErr.Code)
}

func TestVerifyPackageVerifierFailure(t *testing.T) {
	verifier := &fakeVerifier{err: apperrors.ErrUpstream("verification-service", "model timeout")}
	service, publisher := newTestVerificationService(&fakeShipmentBackend{}, verifier, nil)

	_, err := service.VerifyPackage(context.Background(), VerifyPackageCommand{
		PackageID: 55,
		Image:     []byte("jpeg-bytes"),
	})
	require.Error(t, err)
	assert.Empty(t, publisher.events)
}

func TestVerifyPackageLogFailureDoesNotFailVerdict(t *testing.T) {
	verifier := &fakeVerifier{
		result: &domain.VerificationResult{Status: "SUCCESS", Matched: true, AutoAssigned: true},
	}
	logs := &fakeLogRepository{err: errors.New("mongo down")}
	service, _ := newTestVerificationService(&fakeShipmentBackend{}, verifier, logs)

	result, err := service.VerifyPackage(context.Background(), VerifyPackageCommand{
		PackageID: 55,
		Image:     []byte("jpeg-bytes"),
	})
	require.NoError(t, err)
	assert.True(t, result.Result.Matched)
}
