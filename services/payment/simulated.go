package payment

import (
	"context"
	"fmt"
	"sync"

	"groundbook/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SimulatedGateway stands in for a real provider when no Stripe key is
// configured. Sessions stay pending until Settle is called.
type SimulatedGateway struct {
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]*models.PaymentVerification
	refunds  []models.RefundRequest
}

func NewSimulatedGateway(logger *zap.Logger) *SimulatedGateway {
	return &SimulatedGateway{
		logger:   logger,
		sessions: make(map[string]*models.PaymentVerification),
	}
}

func (g *SimulatedGateway) CreateSession(ctx context.Context, b *models.Booking) (*models.PaymentSession, error) {
	if b.Pricing.Total < 0 {
		return nil, fmt.Errorf("invalid payment amount %.2f", b.Pricing.Total)
	}
	id := "cs_sim_" + uuid.New().String()

	g.mu.Lock()
	g.sessions[id] = &models.PaymentVerification{
		SessionID: id,
		Outcome:   models.OutcomePending,
		Amount:    b.Pricing.Total,
	}
	g.mu.Unlock()

	g.logger.Info("Simulated checkout session created", zap.String("bookingId", b.ID), zap.String("sessionId", id))
	return &models.PaymentSession{SessionID: id, URL: "/simulated-checkout/" + id}, nil
}

// Settle records the payer's outcome for a session.
func (g *SimulatedGateway) Settle(sessionID string, outcome models.PaymentOutcome) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, ok := g.sessions[sessionID]
	if !ok {
		return fmt.Errorf("unknown session %s", sessionID)
	}
	s.Outcome = outcome
	if outcome == models.OutcomePaid {
		s.PaymentID = "pi_" + uuid.New().String()
	}
	return nil
}

func (g *SimulatedGateway) Verify(ctx context.Context, sessionID string) (*models.PaymentVerification, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, ok := g.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("unknown session %s", sessionID)
	}
	v := *s
	return &v, nil
}

func (g *SimulatedGateway) Refund(ctx context.Context, req models.RefundRequest) error {
	g.mu.Lock()
	g.refunds = append(g.refunds, req)
	g.mu.Unlock()

	g.logger.Info("Simulated refund issued", zap.String("bookingId", req.BookingID), zap.Float64("amount", req.Amount))
	return nil
}

// Refunds returns every refund issued so far.
func (g *SimulatedGateway) Refunds() []models.RefundRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]models.RefundRequest(nil), g.refunds...)
}
