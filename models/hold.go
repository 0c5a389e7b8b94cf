package models

import "time"

// Hold is a standalone, TTL-bound advisory claim on a slot.
type Hold struct {
	ID          string    `bson:"id" json:"holdId"`
	ResourceID  string    `bson:"resourceId" json:"resourceId"`
	Date        string    `bson:"date" json:"date"`
	Range       TimeRange `bson:"range" json:"range"`
	Slots       []int     `bson:"slots" json:"-"`
	RequesterID string    `bson:"requesterId,omitempty" json:"requesterId,omitempty"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	ExpiresAt   time.Time `bson:"expiresAt" json:"expiresAt"`
}

// HoldRequest asks the hold manager for a claim on a slot.
// Either BookingID or all of ResourceID, Date and Range must be set.
type HoldRequest struct {
	ResourceID  string `json:"resourceId"`
	Date        string `json:"date"`
	Range       string `json:"range"`
	BookingID   string `json:"bookingId,omitempty"` // attach to this pending booking instead of a standalone hold
	RequesterID string `json:"-"`
}

// HoldReceipt is returned when a hold is granted.
type HoldReceipt struct {
	HoldID    string    `json:"holdId"`
	ExpiresAt time.Time `json:"expiresAt"`
}
