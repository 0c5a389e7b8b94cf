package bookingRepo

import (
	"context"
	"fmt"
	"time"

	"groundbook/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type duplicateGroup struct {
	Count    int              `bson:"count"`
	Bookings []models.Booking `bson:"bookings"`
}

func (r *MongoBookingRepo) FindDuplicateGroups(ctx context.Context) ([][]models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"active": true}}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: 1}}}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{
				"requesterId": "$requesterId",
				"resourceId":  "$resourceId",
				"date":        "$date",
				"start":       "$range.start",
				"end":         "$range.end",
			},
			"count":    bson.M{"$sum": 1},
			"bookings": bson.M{"$push": "$$ROOT"},
		}}},
		{{Key: "$match", Value: bson.M{"count": bson.M{"$gt": 1}}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("duplicate aggregation failed: %w", err)
	}
	defer cursor.Close(ctx)

	var groups [][]models.Booking
	for cursor.Next(ctx) {
		var g duplicateGroup
		if err := cursor.Decode(&g); err != nil {
			return nil, fmt.Errorf("error decoding duplicate group: %w", err)
		}
		groups = append(groups, g.Bookings)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return groups, nil
}
