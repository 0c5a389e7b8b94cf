package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"groundbook/config"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Postgres is the global connection pool when STORE=postgres.
var Postgres *sqlx.DB

// InitPostgres opens the pool and makes sure the schema exists.
func InitPostgres() {
	db, err := sqlx.Open("postgres", config.AppConfig.PostgresDSN)
	if err != nil {
		log.Fatalf("failed to open Postgres: %v", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		log.Fatalf("failed to ping Postgres: %v", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		log.Fatalf("failed to migrate Postgres: %v", err)
	}
	Postgres = db
	log.Println("Connected to Postgres successfully!")
}

// schema keeps each booking and ground as a JSON document next to the
// columns queried on. The *_slot_locks tables carry the per-hour uniqueness: a lock
// row exists only while its owner occupies the slot.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS grounds (
		id          TEXT PRIMARY KEY,
		doc         JSONB NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id             TEXT PRIMARY KEY,
		code           TEXT NOT NULL UNIQUE,
		resource_id    TEXT NOT NULL,
		requester_id   TEXT,
		date           TEXT NOT NULL,
		range_start    INT NOT NULL,
		range_end      INT NOT NULL,
		status         TEXT NOT NULL,
		active         BOOLEAN NOT NULL,
		payment_status TEXT NOT NULL,
		hold_expires_at TIMESTAMPTZ,
		created_at     TIMESTAMPTZ NOT NULL,
		doc            JSONB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS bookings_resource_date ON bookings (resource_id, date)`,
	`CREATE INDEX IF NOT EXISTS bookings_unpaid ON bookings (status, created_at) WHERE status = 'pending'`,
	`CREATE INDEX IF NOT EXISTS bookings_refunding ON bookings (payment_status) WHERE payment_status = 'refunding'`,
	`CREATE TABLE IF NOT EXISTS booking_slot_locks (
		resource_id TEXT NOT NULL,
		date        TEXT NOT NULL,
		hour        INT NOT NULL,
		booking_id  TEXT NOT NULL REFERENCES bookings (id) ON DELETE CASCADE,
		PRIMARY KEY (resource_id, date, hour)
	)`,
	`CREATE INDEX IF NOT EXISTS booking_slot_locks_owner ON booking_slot_locks (booking_id)`,
	`CREATE TABLE IF NOT EXISTS holds (
		id           TEXT PRIMARY KEY,
		resource_id  TEXT NOT NULL,
		date         TEXT NOT NULL,
		range_start  INT NOT NULL,
		range_end    INT NOT NULL,
		slots        INT[] NOT NULL,
		requester_id TEXT NOT NULL DEFAULT '',
		created_at   TIMESTAMPTZ NOT NULL,
		expires_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS hold_slot_locks (
		resource_id TEXT NOT NULL,
		date        TEXT NOT NULL,
		hour        INT NOT NULL,
		hold_id     TEXT NOT NULL REFERENCES holds (id) ON DELETE CASCADE,
		PRIMARY KEY (resource_id, date, hour)
	)`,
}

// RunMigrations ensures all required tables exist.
func RunMigrations(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
