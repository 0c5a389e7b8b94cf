// File: groundbook/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"groundbook/config"
	"groundbook/cron"
	"groundbook/database"
	bookingRepo "groundbook/database/repository/booking"
	groundRepo "groundbook/database/repository/ground"
	holdRepo "groundbook/database/repository/hold"
	"groundbook/database/repository/memstore"
	"groundbook/database/repository/pgstore"
	"groundbook/handlers"
	"groundbook/middleware"
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
	"github.com/hibiken/asynq"
	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"
)

type stores struct {
	bookings bookingRepo.BookingRepository
	holds    holdRepo.HoldRepository
	grounds  groundRepo.GroundRepository
	checks   map[string]utils.Pinger
}

// openStores connects the configured storage backend and makes sure its
// uniqueness constraints exist before any request is served.
func openStores(ctx context.Context, logger *zap.Logger) stores {
	var s stores
	switch config.AppConfig.Store {
	case "memory":
		logger.Warn("Using in-memory store; data is lost on restart and only one instance may run")
		s = stores{bookings: memstore.NewBookingStore(), holds: memstore.NewHoldStore(), grounds: memstore.NewGroundStore()}
		s.checks = map[string]utils.Pinger{}
	case "postgres":
		database.InitPostgres()
		db := database.Postgres
		s = stores{bookings: pgstore.NewBookingStore(db), holds: pgstore.NewHoldStore(db), grounds: pgstore.NewGroundStore(db)}
		s.checks = map[string]utils.Pinger{"postgres": db.PingContext}
	default:
		db := database.Mongo()
		s = stores{
			bookings: bookingRepo.NewMongoBookingRepo(db),
			holds:    holdRepo.NewMongoHoldRepo(db),
			grounds:  groundRepo.NewMongoGroundRepo(db),
		}
		s.checks = map[string]utils.Pinger{"mongo": func(ctx context.Context) error { return database.MongoClient.Ping(ctx, nil) }}
	}

	for name, ensure := range map[string]func(context.Context) error{
		"bookings": s.bookings.EnsureIndexes,
		"holds":    s.holds.EnsureIndexes,
		"grounds":  s.grounds.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			logger.Fatal("main: failed to ensure indexes", zap.String("collection", name), zap.Error(err))
		}
	}
	return s
}

func newGateway(logger *zap.Logger) payment.Gateway {
	if config.AppConfig.StripeKey == "" {
		logger.Warn("STRIPE_KEY not set; using simulated payment gateway")
		return payment.NewSimulatedGateway(logger)
	}
	stripe.Key = config.AppConfig.StripeKey
	return &payment.StripeGateway{
		Currency:   config.AppConfig.Currency,
		SuccessURL: config.AppConfig.StripeSuccessURL,
		CancelURL:  config.AppConfig.StripeCancelURL,
		Logger:     logger,
	}
}

func newPublisher(logger *zap.Logger, checks map[string]utils.Pinger) (events.Publisher, func()) {
	if config.AppConfig.AMQPURL == "" {
		return events.NopPublisher{}, func() {}
	}
	pub, err := events.NewAMQPPublisher(config.AppConfig.AMQPURL, config.AppConfig.AMQPExchange, logger)
	if err != nil {
		logger.Error("main: failed to connect to RabbitMQ; lifecycle events disabled", zap.Error(err))
		return events.NopPublisher{}, func() {}
	}
	checks["rabbitmq"] = pub.Ping
	return pub, func() { pub.Close() }
}

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	defer logger.Sync()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	st := openStores(ctx, logger)
	useQueue := config.AppConfig.Scheduler == "asynq"

	var cache availability.GridCache
	if config.AppConfig.AvailabilityCacheSeconds > 0 || useQueue {
		client := utils.GetCacheClient()
		st.checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		if config.AppConfig.AvailabilityCacheSeconds > 0 {
			cache = &availability.RedisGridCache{Client: client, Logger: logger}
		}
	}

	publisher, closePublisher := newPublisher(logger, st.checks)
	defer closePublisher()

	gateway := newGateway(logger)
	var refunds payment.RefundQueue
	var queueClient *asynq.Client
	if useQueue {
		queueClient = asynq.NewClient(utils.QueueRedisOpt())
		defer queueClient.Close()
		refunds = &payment.AsynqRefundQueue{Client: queueClient, Logger: logger}
	} else {
		refunds = &payment.InlineRefundQueue{Gateway: gateway, Logger: logger, Attempts: 8, Backoff: 2 * time.Second}
	}

	clock := utils.SystemClock{}
	loc := config.Location()

	// services.
	availabilityService := &availability.DefaultAvailabilityService{
		Bookings: st.bookings,
		Holds:    st.holds,
		Grounds:  st.grounds,
		Cache:    cache,
		CacheTTL: time.Duration(config.AppConfig.AvailabilityCacheSeconds) * time.Second,
		Clock:    clock,
		Location: loc,
		Logger:   logger,
	}
	holdService := &hold.DefaultHoldService{
		Bookings:     st.bookings,
		Holds:        st.holds,
		Grounds:      st.grounds,
		Availability: availabilityService,
		Clock:        clock,
		TTL:          config.HoldTTL(),
		Location:     loc,
		Logger:       logger,
	}
	lifecycleService := &booking.DefaultLifecycleService{
		Bookings:      st.bookings,
		Availability:  availabilityService,
		Refunds:       refunds,
		Events:        publisher,
		Clock:         clock,
		Location:      loc,
		UnpaidTimeout: config.UnpaidTimeout(),
		Logger:        logger,
	}
	reservationService := &booking.DefaultReservationService{
		Bookings:     st.bookings,
		Grounds:      st.grounds,
		Holds:        holdService,
		Availability: availabilityService,
		Events:       publisher,
		Validate:     validator.New(),
		Clock:        clock,
		Location:     loc,
		HoldTTL:      config.HoldTTL(),
		FeePercent:   config.AppConfig.PlatformFeePercent,
		Logger:       logger,
	}
	paymentService := &booking.DefaultPaymentService{
		Bookings:        st.bookings,
		Lifecycle:       lifecycleService,
		Gateway:         gateway,
		Holds:           holdService,
		Refunds:         refunds,
		Events:          publisher,
		Clock:           clock,
		CancelOnFailure: config.AppConfig.CancelOnPaymentFailure,
		Logger:          logger,
	}
	reconcileService := &reconcile.DefaultReconcileService{
		Bookings:      st.bookings,
		Holds:         st.holds,
		Lifecycle:     lifecycleService,
		Availability:  availabilityService,
		Refunds:       refunds,
		Events:        publisher,
		Clock:         clock,
		UnpaidTimeout: config.UnpaidTimeout(),
		Logger:        logger,
	}
	if inline, ok := refunds.(*payment.InlineRefundQueue); ok {
		inline.Recorder = reconcileService
	}

	// background sweeps.
	sweeps := cron.Sweeps(config.AppConfig.ExpirySweepInterval, config.AppConfig.HoldSweepInterval)
	if useQueue {
		worker := cron.InitWorker(cron.NewServeMux(gateway, reconcileService, logger), logger)
		defer worker.Shutdown()
		scheduler, err := cron.StartScheduler(sweeps, logger)
		if err != nil {
			logger.Fatal("main: failed to start sweep scheduler", zap.Error(err))
		}
		defer scheduler.Shutdown()
	} else {
		go cron.StartSweepTicker(ctx, reconcileService, config.AppConfig.ExpirySweepInterval, config.AppConfig.HoldSweepInterval, logger)
	}
	utils.StartHealthMonitor(ctx, st.checks, 30*time.Second)

	// Create the Gin router.
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.RateLimitMiddleware())

	// Assemble the handler bundle.
	handlerBundle := &handlers.HandlerBundle{
		Availability: handlers.NewAvailabilityHandler(availabilityService),
		Booking:      handlers.NewBookingHandler(reservationService, lifecycleService),
		Hold:         handlers.NewHoldHandler(holdService),
		Payment:      handlers.NewPaymentHandler(paymentService),
		Ground:       handlers.NewGroundHandler(st.grounds),
		Admin:        handlers.NewAdminHandler(reconcileService),
	}

	// Register routes with the assembled handler bundle.
	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar().Errorf("main: server forced to shutdown: %v", err)
	}
	if database.MongoClient != nil {
		database.CloseDB(shutdownCtx)
	}
	if database.Postgres != nil {
		database.Postgres.Close()
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
