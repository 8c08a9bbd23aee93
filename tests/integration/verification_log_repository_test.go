package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/outbound-service/internal/domain"
	"github.com/wms-platform/outbound-service/internal/infrastructure/mongodb"
	sharedtesting "github.com/wms-platform/outbound-service/pkg/testing"
)

func setupTestRepository(t *testing.T) (*mongodb.VerificationLogRepository, func()) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	mongoContainer, err := sharedtesting.NewMongoDBContainer(ctx)
	require.NoError(t, err)

	client, err := mongoContainer.GetClient(ctx)
	require.NoError(t, err)

	db := client.Database("verification_logs_test")
	repo := mongodb.NewVerificationLogRepository(db)

	cleanup := func() {
		client.Disconnect(ctx)
		mongoContainer.Close(ctx)
	}
	return repo, cleanup
}

func createTestLog(packageID, shipmentID int64, matched bool, createdAt time.Time) *domain.VerificationLog {
	return &domain.VerificationLog{
		PackageID:  packageID,
		ShipmentID: shipmentID,
		UserID:     7,
		Matched:    matched,
		Message:    "Package verified",
		Confidence: 0.9,
		CreatedAt:  createdAt,
	}
}

func TestVerificationLogSaveAndFind(t *testing.T) {
	repo, cleanup := setupTestRepository(t)
	defer cleanup()

	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	first := createTestLog(1, 100, true, base.Add(-2*time.Minute))
	second := createTestLog(2, 100, false, base.Add(-1*time.Minute))
	other := createTestLog(3, 200, true, base)

	require.NoError(t, repo.Save(ctx, first))
	require.NoError(t, repo.Save(ctx, second))
	require.NoError(t, repo.Save(ctx, other))

	// Save assigns the document id
	assert.False(t, first.ID.IsZero())

	logs, err := repo.FindByShipment(ctx, 100)
	require.NoError(t, err)
	require.Len(t, logs, 2)

	// Newest first
	assert.Equal(t, int64(2), logs[0].PackageID)
	assert.False(t, logs[0].Matched)
	assert.Equal(t, int64(1), logs[1].PackageID)
	assert.True(t, logs[1].Matched)
}

func TestVerificationLogFindEmptyShipment(t *testing.T) {
	repo, cleanup := setupTestRepository(t)
	defer cleanup()

	logs, err := repo.FindByShipment(context.Background(), 999)
	require.NoError(t, err)
	assert.Empty(t, logs)
}
