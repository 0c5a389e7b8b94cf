package models

import "time"

// Ground is a bookable asset. Its rate ranges tile the full day.
type Ground struct {
	ID         string      `bson:"id" json:"id"`
	Name       string      `bson:"name" json:"name"`
	Capacity   int         `bson:"capacity" json:"capacity"` // maximum players per booking
	RateRanges []RateRange `bson:"rateRanges" json:"rateRanges"`
	CreatedAt  time.Time   `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time   `bson:"updatedAt" json:"updatedAt"`
}

// RateRange is a sub-interval of the day with its own hourly price.
type RateRange struct {
	Label      string    `bson:"label,omitempty" json:"label,omitempty"` // e.g., "day", "floodlights"
	Range      TimeRange `bson:"range" json:"range"`
	HourlyRate float64   `bson:"hourlyRate" json:"hourlyRate"`
}

// GroundInput is the operator payload defining a ground.
type GroundInput struct {
	Name       string `json:"name" binding:"required"`
	Capacity   int    `json:"capacity" binding:"required,min=1"`
	RateRanges []RateRangeInput `json:"rateRanges" binding:"required,min=1,dive"`
}

// RateRangeInput is one rate range as written by an operator.
type RateRangeInput struct {
	Label      string  `json:"label"`
	Range      string  `json:"range" binding:"required"` // "HH:MM-HH:MM", may wrap midnight
	HourlyRate float64 `json:"hourlyRate" binding:"min=0"`
}
