package holdRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"groundbook/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoHoldRepo implements HoldRepository using MongoDB.
type MongoHoldRepo struct {
	coll *mongo.Collection
}

// NewMongoHoldRepo constructs a new instance of MongoHoldRepo.
func NewMongoHoldRepo(db *mongo.Database) *MongoHoldRepo {
	return &MongoHoldRepo{coll: db.Collection("holds")}
}

func (r *MongoHoldRepo) Insert(ctx context.Context, h *models.Hold) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, h); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.ErrSlotTaken
		}
		return fmt.Errorf("failed to insert hold: %w", err)
	}
	return nil
}

func (r *MongoHoldRepo) GetByID(ctx context.Context, id string) (*models.Hold, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var h models.Hold
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&h); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("error fetching hold %s: %w", id, err)
	}
	return &h, nil
}

func (r *MongoHoldRepo) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("failed to delete hold %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *MongoHoldRepo) DeleteExpiredOverlapping(ctx context.Context, resourceID, date string, slots []int, now time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.coll.DeleteMany(ctx, bson.M{
		"resourceId": resourceID,
		"date":       date,
		"slots":      bson.M{"$in": slots},
		"expiresAt":  bson.M{"$lt": now},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired holds: %w", err)
	}
	return res.DeletedCount, nil
}

func (r *MongoHoldRepo) ListLive(ctx context.Context, resourceID, date string, now time.Time) ([]models.Hold, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cursor, err := r.coll.Find(ctx, bson.M{
		"resourceId": resourceID,
		"date":       date,
		"expiresAt":  bson.M{"$gte": now},
	})
	if err != nil {
		return nil, fmt.Errorf("error finding holds: %w", err)
	}
	defer cursor.Close(ctx)

	var holds []models.Hold
	if err := cursor.All(ctx, &holds); err != nil {
		return nil, fmt.Errorf("error decoding holds: %w", err)
	}
	return holds, nil
}

func (r *MongoHoldRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	res, err := r.coll.DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lt": now}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired holds: %w", err)
	}
	return res.DeletedCount, nil
}

// EnsureIndexes creates the hold indexes. Each hour of a day can be claimed
// by at most one hold document.
func (r *MongoHoldRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{
			Keys: bson.D{
				{Key: "resourceId", Value: 1},
				{Key: "date", Value: 1},
				{Key: "slots", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("hold_slot_unique"),
		},
		{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetName("hold_expiry")},
	}

	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create hold indexes: %w", err)
	}
	return nil
}
