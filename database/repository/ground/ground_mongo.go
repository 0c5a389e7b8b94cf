package groundRepo

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

// MongoGroundRepo implements GroundRepository using MongoDB.
type MongoGroundRepo struct {
	coll *mongo.Collection
}

// NewMongoGroundRepo constructs a new instance of MongoGroundRepo.
func NewMongoGroundRepo(db *mongo.Database) *MongoGroundRepo {
	return &MongoGroundRepo{coll: db.Collection("grounds")}
}

func (r *MongoGroundRepo) GetByID(ctx context.Context, id string) (*models.Ground, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var g models.Ground
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&g); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("error fetching ground %s: %w", id, err)
	}
	return &g, nil
}

func (r *MongoGroundRepo) List(ctx context.Context) ([]models.Ground, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("error listing grounds: %w", err)
	}
	defer cursor.Close(ctx)

	var grounds []models.Ground
	if err := cursor.All(ctx, &grounds); err != nil {
		return nil, fmt.Errorf("error decoding grounds: %w", err)
	}
	return grounds, nil
}

func (r *MongoGroundRepo) Upsert(ctx context.Context, g *models.Ground) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Replace().SetUpsert(true)
	if _, err := r.coll.ReplaceOne(ctx, bson.M{"id": g.ID}, g, opts); err != nil {
		return fmt.Errorf("failed to save ground %s: %w", g.ID, err)
	}
	return nil
}

func (r *MongoGroundRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create ground indexes: %w", err)
	}
	return nil
}
