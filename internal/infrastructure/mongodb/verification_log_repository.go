package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/outbound-service/internal/domain"
)

// VerificationLogRepository persists the verification audit trail.
// Implements domain.VerificationLogRepository.
type VerificationLogRepository struct {
	collection *mongo.Collection
}

// NewVerificationLogRepository creates the repository and ensures its indexes
func NewVerificationLogRepository(db *mongo.Database) *VerificationLogRepository {
	repo := &VerificationLogRepository{
		collection: db.Collection("verification_logs"),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *VerificationLogRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "shipmentId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "packageId", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

// Save appends one audit record. Records are immutable once written.
func (r *VerificationLogRepository) Save(ctx context.Context, log *domain.VerificationLog) error {
	result, err := r.collection.InsertOne(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to save verification log: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		log.ID = oid
	}
	return nil
}

// FindByShipment returns a shipment's audit records, newest first
func (r *VerificationLogRepository) FindByShipment(ctx context.Context, shipmentID int64) ([]domain.VerificationLog, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"shipmentId": shipmentID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query verification logs: %w", err)
	}
	defer cursor.Close(ctx)

	var logs []domain.VerificationLog
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, fmt.Errorf("failed to decode verification logs: %w", err)
	}
	return logs, nil
}
