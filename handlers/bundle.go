// File: groundbook/handlers/bundle.go
package handlers

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	Availability *AvailabilityHandler
	Booking      *BookingHandler
	Hold         *HoldHandler
	Payment      *PaymentHandler
	Ground       *GroundHandler
	Admin        *AdminHandler
}
