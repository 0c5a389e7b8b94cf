package bookingRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the booking indexes. The active-slot index is what
// makes double booking impossible across instances.
func (r *MongoBookingRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true).SetName(codeIndexName)},
		{
			Keys: bson.D{
				{Key: "resourceId", Value: 1},
				{Key: "date", Value: 1},
				{Key: "slots", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetName(activeSlotIndexName).
				SetPartialFilterExpression(bson.M{"active": true}),
		},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: 1}}, Options: options.Index().SetName("booking_unpaid_sweep")},
		{Keys: bson.D{{Key: "hold.expiresAt", Value: 1}}, Options: options.Index().SetSparse(true).SetName("booking_hold_expiry")},
		{Keys: bson.D{{Key: "payment.status", Value: 1}, {Key: "updatedAt", Value: 1}}, Options: options.Index().SetName("booking_refund_sweep")},
	}

	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create booking indexes: %w", err)
	}
	return nil
}
