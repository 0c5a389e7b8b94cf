package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"groundbook/database/repository/memstore"
	"groundbook/handlers"
	"groundbook/models"
	"groundbook/routes"
	"groundbook/services/availability"
	"groundbook/services/booking"
	"groundbook/services/events"
	"groundbook/services/hold"
	"groundbook/services/payment"
	"groundbook/services/reconcile"
	"groundbook/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var t0 = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

type testServer struct {
	router  *gin.Engine
	gateway *payment.SimulatedGateway
	clock   *utils.ManualClock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	clock := utils.NewManualClock(t0)
	bookings := memstore.NewBookingStore()
	holds := memstore.NewHoldStore()
	grounds := memstore.NewGroundStore()
	gw := payment.NewSimulatedGateway(logger)
	refunds := &payment.InlineRefundQueue{Gateway: gw, Logger: logger, Attempts: 1, Backoff: time.Millisecond}

	avail := &availability.DefaultAvailabilityService{
		Bookings: bookings, Holds: holds, Grounds: grounds, Clock: clock, Location: time.UTC, Logger: logger,
	}
	holdSvc := &hold.DefaultHoldService{
		Bookings: bookings, Holds: holds, Grounds: grounds, Availability: avail,
		Clock: clock, TTL: 5 * time.Minute, Location: time.UTC, Logger: logger,
	}
	lifecycle := &booking.DefaultLifecycleService{
		Bookings: bookings, Availability: avail, Refunds: refunds, Events: events.NopPublisher{},
		Clock: clock, Location: time.UTC, UnpaidTimeout: 5 * time.Minute, Logger: logger,
	}
	reservation := &booking.DefaultReservationService{
		Bookings: bookings, Grounds: grounds, Holds: holdSvc, Availability: avail,
		Events: events.NopPublisher{}, Validate: validator.New(),
		Clock: clock, Location: time.UTC, HoldTTL: 5 * time.Minute, Logger: logger,
	}
	payments := &booking.DefaultPaymentService{
		Bookings: bookings, Lifecycle: lifecycle, Gateway: gw, Holds: holdSvc, Refunds: refunds,
		Events: events.NopPublisher{}, Clock: clock, Logger: logger,
	}
	sweeps := &reconcile.DefaultReconcileService{
		Bookings: bookings, Holds: holds, Lifecycle: lifecycle, Availability: avail,
		Refunds: refunds, Events: events.NopPublisher{}, Clock: clock, Logger: logger,
	}
	refunds.Recorder = sweeps

	r := gin.New()
	routes.RegisterRoutes(r, &handlers.HandlerBundle{
		Availability: handlers.NewAvailabilityHandler(avail),
		Booking:      handlers.NewBookingHandler(reservation, lifecycle),
		Hold:         handlers.NewHoldHandler(holdSvc),
		Payment:      handlers.NewPaymentHandler(payments),
		Ground:       handlers.NewGroundHandler(grounds),
		Admin:        handlers.NewAdminHandler(sweeps),
	})
	return &testServer{router: r, gateway: gw, clock: clock}
}

func token(t *testing.T, sub, role string) string {
	t.Helper()
	tok, err := utils.GenerateToken(sub, role, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func (s *testServer) do(t *testing.T, method, path, tok string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

var groundBody = map[string]any{
	"name":     "Turf One",
	"capacity": 14,
	"rateRanges": []map[string]any{
		{"label": "day", "range": "06:00-18:00", "hourlyRate": 500},
		{"label": "floodlights", "range": "18:00-06:00", "hourlyRate": 800},
	},
}

func bookingBody(rng string) map[string]any {
	return map[string]any{
		"resourceId": "g1",
		"date":       "2025-03-02",
		"range":      rng,
		"requester":  map[string]any{"name": "Asha", "phone": "9876543210", "players": 10},
	}
}

func (s *testServer) seedGround(t *testing.T) {
	t.Helper()
	if w := s.do(t, http.MethodPut, "/api/grounds/g1", token(t, "op", models.ActorOperator), groundBody); w.Code != http.StatusOK {
		t.Fatalf("PUT ground: %d %s", w.Code, w.Body.String())
	}
}

func TestGroundRoutes(t *testing.T) {
	s := newTestServer(t)
	op := token(t, "op", models.ActorOperator)

	if w := s.do(t, http.MethodPut, "/api/grounds/g1", token(t, "u1", models.ActorRequester), groundBody); w.Code != http.StatusForbidden {
		t.Errorf("requester PUT ground: %d", w.Code)
	}
	gap := map[string]any{
		"name":     "Turf One",
		"capacity": 14,
		"rateRanges": []map[string]any{
			{"range": "06:00-18:00", "hourlyRate": 500},
		},
	}
	if w := s.do(t, http.MethodPut, "/api/grounds/g1", op, gap); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("gapped rate ranges: %d %s", w.Code, w.Body.String())
	}
	s.seedGround(t)

	w := s.do(t, http.MethodGet, "/api/grounds/g1/availability?date=2025-03-02", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("availability: %d %s", w.Code, w.Body.String())
	}
	var grid models.AvailabilityResponse
	decode(t, w, &grid)
	if len(grid.Slots) != 24 || !grid.Slots[17].Available {
		t.Errorf("grid = %+v", grid.Slots)
	}

	if w := s.do(t, http.MethodGet, "/api/grounds/missing/availability?date=2025-03-02", "", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown ground availability: %d", w.Code)
	}
}

func TestBookingFlow(t *testing.T) {
	s := newTestServer(t)
	s.seedGround(t)
	u1 := token(t, "u1", models.ActorRequester)
	u2 := token(t, "u2", models.ActorRequester)

	if w := s.do(t, http.MethodPost, "/api/bookings", "", bookingBody("17:00-19:00")); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous booking: %d", w.Code)
	}

	w := s.do(t, http.MethodPost, "/api/bookings", u1, bookingBody("17:00-19:00"))
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	var b models.Booking
	decode(t, w, &b)
	if b.Pricing.Total != 1300 || b.Status != models.StatusPending {
		t.Fatalf("booking = %+v", b)
	}

	w = s.do(t, http.MethodPost, "/api/bookings", u2, bookingBody("18:00-20:00"))
	if w.Code != http.StatusConflict {
		t.Fatalf("overlap: %d %s", w.Code, w.Body.String())
	}
	var conflict struct {
		ConflictingRange string `json:"conflictingRange"`
	}
	decode(t, w, &conflict)
	if conflict.ConflictingRange != "17:00-19:00" {
		t.Errorf("conflictingRange = %q", conflict.ConflictingRange)
	}

	if w := s.do(t, http.MethodPost, "/api/bookings", u2, bookingBody("19:00-20:00")); w.Code != http.StatusCreated {
		t.Fatalf("adjacent: %d %s", w.Code, w.Body.String())
	}
	if w := s.do(t, http.MethodPost, "/api/bookings", u2, bookingBody("20:30-21:00")); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("misaligned range: %d", w.Code)
	}

	if w := s.do(t, http.MethodGet, "/api/bookings/"+b.ID, u2, nil); w.Code != http.StatusNotFound {
		t.Errorf("other requester read booking: %d", w.Code)
	}

	// Pay and confirm.
	w = s.do(t, http.MethodPost, "/api/bookings/"+b.ID+"/checkout", u1, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("checkout: %d %s", w.Code, w.Body.String())
	}
	var sess models.PaymentSession
	decode(t, w, &sess)
	if err := s.gateway.Settle(sess.SessionID, models.OutcomePaid); err != nil {
		t.Fatal(err)
	}
	w = s.do(t, http.MethodPost, "/api/payments/verify", u1, map[string]string{"bookingId": b.ID})
	if w.Code != http.StatusOK {
		t.Fatalf("verify: %d %s", w.Code, w.Body.String())
	}
	var res models.ReconcileResult
	decode(t, w, &res)
	if !res.Confirmed || res.Booking.Status != models.StatusConfirmed {
		t.Fatalf("verify result = %+v", res)
	}

	// Cancel three hours before the slot: half refund.
	s.clock.Set(time.Date(2025, 3, 2, 14, 0, 0, 0, time.UTC))
	w = s.do(t, http.MethodPatch, "/api/bookings/"+b.ID, u1, map[string]string{"status": "cancelled", "reason": "rain"})
	if w.Code != http.StatusOK {
		t.Fatalf("cancel: %d %s", w.Code, w.Body.String())
	}
	var cancelled struct {
		Booking      models.Booking `json:"booking"`
		RefundAmount float64        `json:"refundAmount"`
	}
	decode(t, w, &cancelled)
	if cancelled.RefundAmount != 650 || cancelled.Booking.Status != models.StatusCancelled {
		t.Errorf("cancel response = %+v", cancelled)
	}

	if w := s.do(t, http.MethodPatch, "/api/bookings/"+b.ID, u1, map[string]string{"status": "cancelled"}); w.Code != http.StatusConflict {
		t.Errorf("second cancel: %d", w.Code)
	}
}

func TestHoldRoutes(t *testing.T) {
	s := newTestServer(t)
	s.seedGround(t)
	u1 := token(t, "u1", models.ActorRequester)
	u2 := token(t, "u2", models.ActorRequester)
	body := map[string]string{"resourceId": "g1", "date": "2025-03-02", "range": "10:00-12:00"}

	w := s.do(t, http.MethodPost, "/api/holds", u1, body)
	if w.Code != http.StatusCreated {
		t.Fatalf("hold: %d %s", w.Code, w.Body.String())
	}
	var receipt models.HoldReceipt
	decode(t, w, &receipt)

	if w := s.do(t, http.MethodPost, "/api/holds", u2, body); w.Code != http.StatusConflict {
		t.Errorf("second hold: %d", w.Code)
	}
	if w := s.do(t, http.MethodPost, "/api/bookings", u2, bookingBody("11:00-12:00")); w.Code != http.StatusConflict {
		t.Errorf("booking over a live hold: %d", w.Code)
	}

	if w := s.do(t, http.MethodDelete, "/api/holds/"+receipt.HoldID, u2, nil); w.Code != http.StatusNotFound {
		t.Errorf("release by another requester: %d", w.Code)
	}
	if w := s.do(t, http.MethodPost, "/api/holds", u2, body); w.Code != http.StatusConflict {
		t.Errorf("hold survived a stranger's release attempt: got %d", w.Code)
	}

	for i := 0; i < 2; i++ {
		if w := s.do(t, http.MethodDelete, "/api/holds/"+receipt.HoldID, u1, nil); w.Code != http.StatusNoContent {
			t.Errorf("release %d: %d", i, w.Code)
		}
	}
	if w := s.do(t, http.MethodPost, "/api/holds", u2, body); w.Code != http.StatusCreated {
		t.Errorf("hold after release: %d %s", w.Code, w.Body.String())
	}
}

func TestPaymentRoutesHideOtherRequestersBooking(t *testing.T) {
	s := newTestServer(t)
	s.seedGround(t)
	u1 := token(t, "u1", models.ActorRequester)
	u2 := token(t, "u2", models.ActorRequester)

	w := s.do(t, http.MethodPost, "/api/bookings", u1, bookingBody("17:00-19:00"))
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	var b models.Booking
	decode(t, w, &b)

	if w := s.do(t, http.MethodPost, "/api/bookings/"+b.ID+"/checkout", u2, nil); w.Code != http.StatusNotFound {
		t.Errorf("checkout by another requester: %d", w.Code)
	}
	w = s.do(t, http.MethodPost, "/api/bookings/"+b.ID+"/checkout", u1, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("checkout: %d %s", w.Code, w.Body.String())
	}
	var sess models.PaymentSession
	decode(t, w, &sess)
	if err := s.gateway.Settle(sess.SessionID, models.OutcomePaid); err != nil {
		t.Fatal(err)
	}

	if w := s.do(t, http.MethodPost, "/api/payments/verify", u2, map[string]string{"bookingId": b.ID}); w.Code != http.StatusNotFound {
		t.Errorf("verify by another requester: %d", w.Code)
	}
	w = s.do(t, http.MethodPost, "/api/payments/verify", u1, map[string]string{"bookingId": b.ID})
	if w.Code != http.StatusOK {
		t.Fatalf("verify: %d %s", w.Code, w.Body.String())
	}
	var res models.ReconcileResult
	decode(t, w, &res)
	if !res.Confirmed {
		t.Errorf("verify result = %+v", res)
	}
}

func TestDeleteAndAdmin(t *testing.T) {
	s := newTestServer(t)
	s.seedGround(t)
	u1 := token(t, "u1", models.ActorRequester)
	op := token(t, "op", models.ActorOperator)

	w := s.do(t, http.MethodPost, "/api/bookings", u1, bookingBody("17:00-19:00"))
	var b models.Booking
	decode(t, w, &b)

	if w := s.do(t, http.MethodDelete, "/api/bookings/"+b.ID, u1, nil); w.Code != http.StatusForbidden {
		t.Errorf("requester delete: %d", w.Code)
	}
	if w := s.do(t, http.MethodDelete, "/api/bookings/"+b.ID, op, nil); w.Code != http.StatusNoContent {
		t.Fatalf("operator delete: %d %s", w.Code, w.Body.String())
	}
	if w := s.do(t, http.MethodGet, "/api/bookings/"+b.ID, op, nil); w.Code != http.StatusNotFound {
		t.Errorf("get deleted: %d", w.Code)
	}

	if w := s.do(t, http.MethodPost, "/api/admin/reconcile/duplicates", u1, nil); w.Code != http.StatusForbidden {
		t.Errorf("requester admin: %d", w.Code)
	}
	if w := s.do(t, http.MethodPost, "/api/admin/reconcile/duplicates", op, nil); w.Code != http.StatusOK {
		t.Errorf("operator repair: %d %s", w.Code, w.Body.String())
	}

	s.do(t, http.MethodPost, "/api/bookings", u1, bookingBody("10:00-11:00"))
	s.clock.Advance(6 * time.Minute)
	w = s.do(t, http.MethodPost, "/api/admin/reconcile/expire", op, nil)
	var expired struct {
		ExpiredBookings int `json:"expiredBookings"`
	}
	decode(t, w, &expired)
	if expired.ExpiredBookings != 1 {
		t.Errorf("expired = %d", expired.ExpiredBookings)
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	utils.CheckHealth(context.Background(), map[string]utils.Pinger{
		"store": func(context.Context) error { return nil },
	})
	if w := s.do(t, http.MethodGet, "/healthz", "", nil); w.Code != http.StatusOK {
		t.Fatalf("healthz: %d", w.Code)
	}
}
