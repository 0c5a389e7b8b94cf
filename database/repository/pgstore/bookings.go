// Package pgstore persists bookings, holds and grounds in Postgres. Slot
// exclusivity comes from narrow lock tables keyed on (resource, date, hour)
// that are written in the same transaction as their owner.
package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bookingRepo "groundbook/database/repository/booking"
	"groundbook/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

type BookingStore struct {
	db *sqlx.DB
}

var _ bookingRepo.BookingRepository = (*BookingStore)(nil)

func NewBookingStore(db *sqlx.DB) *BookingStore {
	return &BookingStore{db: db}
}

type bookingRow struct {
	Doc    []byte `db:"doc"`
	Active bool   `db:"active"`
}

func (r bookingRow) decode() (*models.Booking, error) {
	var b models.Booking
	if err := json.Unmarshal(r.Doc, &b); err != nil {
		return nil, fmt.Errorf("failed to decode booking: %w", err)
	}
	b.Active = r.Active
	return &b, nil
}

func isUniqueViolation(err error) (*pq.Error, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return pqErr, true
	}
	return nil, false
}

func holdExpiry(b *models.Booking) *time.Time {
	if b.Hold == nil || !b.Hold.Active {
		return nil
	}
	t := b.Hold.ExpiresAt
	return &t
}

func (s *BookingStore) InsertIfSlotFree(ctx context.Context, b *models.Booking) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	doc, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to encode booking: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO bookings (id, code, resource_id, requester_id, date, range_start, range_end,
			status, active, payment_status, hold_expires_at, created_at, doc)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		b.ID, b.Code, b.ResourceID, b.RequesterID, b.Date, b.Range.Start, b.Range.End,
		b.Status, b.Active, b.Payment.Status, holdExpiry(b), b.CreatedAt, doc,
	)
	if err != nil {
		if pqErr, ok := isUniqueViolation(err); ok && pqErr.Constraint == "bookings_code_key" {
			return bookingRepo.ErrDuplicateCode
		}
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	if b.Active {
		for _, hour := range b.Slots {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO booking_slot_locks (resource_id, date, hour, booking_id) VALUES ($1, $2, $3, $4)`,
				b.ResourceID, b.Date, hour, b.ID,
			)
			if err != nil {
				if _, ok := isUniqueViolation(err); ok {
					return models.ErrSlotTaken
				}
				return fmt.Errorf("failed to lock slot %d: %w", hour, err)
			}
		}
	}
	return tx.Commit()
}

func (s *BookingStore) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var row bookingRow
	if err := s.db.GetContext(ctx, &row, `SELECT doc, active FROM bookings WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("error fetching booking %s: %w", id, err)
	}
	return row.decode()
}

func (s *BookingStore) ListOccupying(ctx context.Context, resourceID, date string, now time.Time) ([]models.Booking, error) {
	return s.selectBookings(ctx, `
		SELECT doc, active FROM bookings
		WHERE resource_id = $1 AND date = $2 AND (active OR hold_expires_at >= $3)
		ORDER BY created_at`, resourceID, date, now)
}

// update loads the booking under a row lock, lets fn mutate it and writes it
// back. Slot locks are released in the same transaction when the booking
// stops being active.
func (s *BookingStore) update(ctx context.Context, id string, fn func(b *models.Booking) error) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var row bookingRow
	if err := tx.GetContext(ctx, &row, `SELECT doc, active FROM bookings WHERE id = $1 FOR UPDATE`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("error locking booking %s: %w", id, err)
	}
	b, err := row.decode()
	if err != nil {
		return nil, err
	}
	wasActive := b.Active

	if err := fn(b); err != nil {
		return nil, err
	}

	doc, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("failed to encode booking: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE bookings
		SET status = $2, active = $3, payment_status = $4, hold_expires_at = $5, doc = $6
		WHERE id = $1`,
		b.ID, b.Status, b.Active, b.Payment.Status, holdExpiry(b), doc,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update booking %s: %w", id, err)
	}
	if wasActive && !b.Active {
		if _, err := tx.ExecContext(ctx, `DELETE FROM booking_slot_locks WHERE booking_id = $1`, id); err != nil {
			return nil, fmt.Errorf("failed to release slots of booking %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit booking %s: %w", id, err)
	}
	return b, nil
}

func (s *BookingStore) Transition(ctx context.Context, id string, t models.Transition) (*models.Booking, error) {
	return s.update(ctx, id, func(b *models.Booking) error {
		if !t.Allows(b) {
			return &models.TransitionError{From: b.Status, To: t.Target(b.Status)}
		}
		t.Apply(b)
		return nil
	})
}

func (s *BookingStore) SetHold(ctx context.Context, id string, hold models.HoldInfo) error {
	_, err := s.update(ctx, id, func(b *models.Booking) error {
		if b.Status != models.StatusPending {
			return &models.TransitionError{From: b.Status, To: models.StatusPending}
		}
		h := hold
		b.Hold = &h
		b.UpdatedAt = hold.StartedAt
		return nil
	})
	return err
}

func (s *BookingStore) ClearHold(ctx context.Context, id string) error {
	_, err := s.update(ctx, id, func(b *models.Booking) error {
		b.Hold = nil
		return nil
	})
	return err
}

func (s *BookingStore) SetPaymentSession(ctx context.Context, id, prevSessionID string, sess models.PaymentSession, at time.Time) error {
	_, err := s.update(ctx, id, func(b *models.Booking) error {
		if b.Status != models.StatusPending {
			return &models.TransitionError{From: b.Status, To: models.StatusPending}
		}
		if b.Payment.SessionID != prevSessionID {
			return bookingRepo.ErrSessionChanged
		}
		b.Payment.SessionID = sess.SessionID
		b.Payment.CheckoutURL = sess.URL
		b.Payment.Status = models.PaymentStatusPending
		b.UpdatedAt = at
		return nil
	})
	return err
}

func (s *BookingStore) ListRefunding(ctx context.Context, before time.Time) ([]models.Booking, error) {
	all, err := s.selectBookings(ctx, `
		SELECT doc, active FROM bookings
		WHERE payment_status = $1
		ORDER BY created_at`, models.PaymentStatusRefunding)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, b := range all {
		if !b.UpdatedAt.After(before) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *BookingStore) ListExpirableUnpaid(ctx context.Context, cutoff time.Time) ([]models.Booking, error) {
	return s.selectBookings(ctx, `
		SELECT doc, active FROM bookings
		WHERE status = $1 AND payment_status <> $2 AND created_at <= $3
		ORDER BY created_at`, models.StatusPending, models.PaymentStatusCompleted, cutoff)
}

func (s *BookingStore) ClearExpiredHolds(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `
		UPDATE bookings
		SET doc = doc - 'hold', hold_expires_at = NULL
		WHERE doc->'hold' IS NOT NULL
		  AND (doc->'hold'->>'expiresAt' IS NULL OR (doc->'hold'->>'expiresAt')::timestamptz < $1)`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired holds: %w", err)
	}
	return res.RowsAffected()
}

func (s *BookingStore) FindDuplicateGroups(ctx context.Context) ([][]models.Booking, error) {
	bookings, err := s.selectBookings(ctx, `
		SELECT b.doc, b.active
		FROM bookings b
		JOIN (
			SELECT COALESCE(requester_id, '') AS requester, resource_id, date, range_start, range_end
			FROM bookings
			WHERE active
			GROUP BY 1, 2, 3, 4, 5
			HAVING COUNT(*) > 1
		) d ON COALESCE(b.requester_id, '') = d.requester
			AND b.resource_id = d.resource_id
			AND b.date = d.date
			AND b.range_start = d.range_start
			AND b.range_end = d.range_end
		WHERE b.active
		ORDER BY d.requester, b.resource_id, b.date, b.range_start, b.range_end, b.created_at`)
	if err != nil {
		return nil, err
	}

	var groups [][]models.Booking
	for i, b := range bookings {
		if i == 0 || !sameGroup(bookings[i-1], b) {
			groups = append(groups, nil)
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], b)
	}
	return groups, nil
}

func sameGroup(a, b models.Booking) bool {
	requester := func(x models.Booking) string {
		if x.RequesterID == nil {
			return ""
		}
		return *x.RequesterID
	}
	return requester(a) == requester(b) && a.ResourceID == b.ResourceID && a.Date == b.Date && a.Range == b.Range
}

func (s *BookingStore) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete booking %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// EnsureIndexes is a no-op; the schema is created by database.RunMigrations.
func (s *BookingStore) EnsureIndexes(ctx context.Context) error { return nil }

func (s *BookingStore) selectBookings(ctx context.Context, query string, args ...interface{}) ([]models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var rows []bookingRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("error querying bookings: %w", err)
	}
	out := make([]models.Booking, 0, len(rows))
	for _, row := range rows {
		b, err := row.decode()
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, nil
}
