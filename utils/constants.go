// File: utils/constants.go
package utils

import "time"

// AvailabilityCachePrefix is the prefix used for cached day grids.
const AvailabilityCachePrefix = "availability:"

// DefaultAvailabilityCacheTTL applies when AVAILABILITY_CACHE_SECONDS is unset.
const DefaultAvailabilityCacheTTL = 15 * time.Second

// BookingCodePrefix starts every human-readable booking code.
const BookingCodePrefix = "GRD"
