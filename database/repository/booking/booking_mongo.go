package bookingRepo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"groundbook/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	codeIndexName       = "booking_code_unique"
	activeSlotIndexName = "booking_active_slot_unique"
)

// MongoBookingRepo implements BookingRepository using MongoDB. Slot
// exclusivity is a unique multikey index on (resourceId, date, slots) that
// only covers documents with active=true.
type MongoBookingRepo struct {
	coll *mongo.Collection
}

// NewMongoBookingRepo constructs a new instance of MongoBookingRepo.
func NewMongoBookingRepo(db *mongo.Database) *MongoBookingRepo {
	return &MongoBookingRepo{coll: db.Collection("bookings")}
}

func (r *MongoBookingRepo) InsertIfSlotFree(ctx context.Context, b *models.Booking) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, b); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if duplicateOn(err, codeIndexName) {
				return ErrDuplicateCode
			}
			return models.ErrSlotTaken
		}
		return fmt.Errorf("failed to insert booking: %w", err)
	}
	return nil
}

// duplicateOn reports whether a duplicate key error came from the named index.
func duplicateOn(err error, index string) bool {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if strings.Contains(e.Message, index) {
				return true
			}
		}
	}
	return strings.Contains(err.Error(), index)
}

func (r *MongoBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var b models.Booking
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&b); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("error fetching booking %s: %w", id, err)
	}
	return &b, nil
}

func (r *MongoBookingRepo) ListOccupying(ctx context.Context, resourceID, date string, now time.Time) ([]models.Booking, error) {
	filter := bson.M{
		"resourceId": resourceID,
		"date":       date,
		"$or": bson.A{
			bson.M{"active": true},
			bson.M{"hold.active": true, "hold.expiresAt": bson.M{"$gte": now}},
		},
	}
	return r.find(ctx, filter, nil)
}

func (r *MongoBookingRepo) Transition(ctx context.Context, id string, t models.Transition) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"id": id}
	if len(t.From) > 0 {
		filter["status"] = bson.M{"$in": t.From}
	}
	if t.CreatedBefore != nil {
		filter["createdAt"] = bson.M{"$lte": *t.CreatedBefore}
	}
	payment := bson.M{}
	if t.PaymentNotCompleted {
		payment["$ne"] = models.PaymentStatusCompleted
	}
	if t.PaymentIs != "" {
		payment["$eq"] = t.PaymentIs
	}
	if len(payment) > 0 {
		filter["payment.status"] = payment
	}

	set := bson.M{"updatedAt": t.At}
	if t.To != "" {
		set["status"] = t.To
		set["active"] = t.To.IsActive()
	}
	if t.Payment != nil {
		set["payment.status"] = t.Payment.Status
		if t.Payment.SessionID != "" {
			set["payment.sessionId"] = t.Payment.SessionID
		}
		if t.Payment.PaymentID != "" {
			set["payment.paymentId"] = t.Payment.PaymentID
		}
		if t.Payment.PaidAt != nil {
			set["payment.paidAt"] = *t.Payment.PaidAt
		}
	}
	if t.Cancellation != nil {
		set["cancellation"] = *t.Cancellation
	}
	if t.Confirmation != nil {
		set["confirmation"] = *t.Confirmation
	}
	update := bson.M{"$set": set}
	if t.ClearHold {
		update["$unset"] = bson.M{"hold": ""}
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Booking
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		if mongo.IsDuplicateKeyError(err) {
			return nil, models.ErrSlotTaken
		}
		return nil, fmt.Errorf("failed to transition booking %s: %w", id, err)
	}
	return nil, r.mismatch(ctx, id, t.Target)
}

// mismatch explains why a conditional update matched nothing.
func (r *MongoBookingRepo) mismatch(ctx context.Context, id string, target func(models.BookingStatus) models.BookingStatus) error {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return &models.TransitionError{From: current.Status, To: target(current.Status)}
}

func pendingTarget(models.BookingStatus) models.BookingStatus { return models.StatusPending }

func (r *MongoBookingRepo) SetHold(ctx context.Context, id string, hold models.HoldInfo) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"id": id, "status": models.StatusPending},
		bson.M{"$set": bson.M{"hold": hold, "updatedAt": hold.StartedAt}},
	)
	if err != nil {
		return fmt.Errorf("failed to set hold on booking %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return r.mismatch(ctx, id, pendingTarget)
	}
	return nil
}

func (r *MongoBookingRepo) ClearHold(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$unset": bson.M{"hold": ""}})
	if err != nil {
		return fmt.Errorf("failed to clear hold on booking %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *MongoBookingRepo) SetPaymentSession(ctx context.Context, id, prevSessionID string, sess models.PaymentSession, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"id": id, "status": models.StatusPending}
	if prevSessionID == "" {
		filter["payment.sessionId"] = bson.M{"$in": bson.A{nil, ""}}
	} else {
		filter["payment.sessionId"] = prevSessionID
	}
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": bson.M{
		"payment.sessionId":   sess.SessionID,
		"payment.checkoutUrl": sess.URL,
		"payment.status":      models.PaymentStatusPending,
		"updatedAt":           at,
	}})
	if err != nil {
		return fmt.Errorf("failed to record payment session on booking %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != models.StatusPending {
			return &models.TransitionError{From: current.Status, To: models.StatusPending}
		}
		return ErrSessionChanged
	}
	return nil
}

func (r *MongoBookingRepo) ListRefunding(ctx context.Context, before time.Time) ([]models.Booking, error) {
	filter := bson.M{
		"payment.status": models.PaymentStatusRefunding,
		"updatedAt":      bson.M{"$lte": before},
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "updatedAt", Value: 1}}))
}

func (r *MongoBookingRepo) ListExpirableUnpaid(ctx context.Context, cutoff time.Time) ([]models.Booking, error) {
	filter := bson.M{
		"status":         models.StatusPending,
		"payment.status": bson.M{"$ne": models.PaymentStatusCompleted},
		"createdAt":      bson.M{"$lte": cutoff},
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

func (r *MongoBookingRepo) ClearExpiredHolds(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{
		"hold": bson.M{"$exists": true},
		"$or": bson.A{
			bson.M{"hold.expiresAt": bson.M{"$lt": now}},
			bson.M{"hold.expiresAt": bson.M{"$exists": false}},
		},
	}
	res, err := r.coll.UpdateMany(ctx, filter, bson.M{"$unset": bson.M{"hold": ""}})
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired holds: %w", err)
	}
	return res.ModifiedCount, nil
}

func (r *MongoBookingRepo) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("failed to delete booking %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *MongoBookingRepo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if opts == nil {
		opts = options.Find()
	}
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error finding bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("error decoding bookings: %w", err)
	}
	return bookings, nil
}
