// Package app wires the engine together: pool, migrations, repositories,
// services, event dispatcher, and HTTP server with graceful shutdown.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/chowline/internal/domain/cart"
	"github.com/xenking/chowline/internal/domain/delivery"
	"github.com/xenking/chowline/internal/domain/order"
	"github.com/xenking/chowline/internal/event"
	"github.com/xenking/chowline/internal/handler"
	"github.com/xenking/chowline/internal/storage/postgres"
	"github.com/xenking/chowline/pkg/health"
	"github.com/xenking/chowline/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server and the event
// dispatcher, and handles graceful shutdown. It is the single wiring point
// for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	policy, err := cfg.Pricing.Policy()
	if err != nil {
		return errors.Wrap(err, "pricing config")
	}

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Repositories.
	cartRepo := postgres.NewCartRepository(pool)
	catalogRepo := postgres.NewCatalogRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	agentRepo := postgres.NewAgentRepository(pool)
	outboxRepo := postgres.NewOutboxRepository(pool)

	// Health checks.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.DatabaseCheck(pool))
	healthSvc.AddReadinessCheck("outbox", 5*time.Second,
		health.OutboxLagCheck(outboxRepo.OldestPending, cfg.Events.MaxLag))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Domain services.
	cartSvc := cart.NewService(catalogRepo, cartRepo)
	orderSvc := order.NewService(cartRepo, catalogRepo, orderRepo, policy)
	broker := delivery.NewBroker(orderRepo, agentRepo)

	// Event dispatcher: log sink always, channel sink for the realtime
	// push adapter.
	chanSink := event.NewChanSink(cfg.Events.ChanBuffer)
	dispatcher := event.NewDispatcher(outboxRepo,
		[]event.Sink{event.NewLogSink(lg.Named("events")), chanSink},
		cfg.Events.PollInterval, lg.Named("dispatcher"))

	// HTTP routes behind the middleware chain.
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	handler.New(cartSvc, orderSvc, broker, agentRepo).Register(e)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", e)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", handler.HeaderActorID, handler.HeaderActorRole},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("chowline-api"),
			httpmiddleware.LogRequests(),
		),
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return dispatcher.Run(gCtx)
	})

	// Consume realtime events. The websocket fan-out is owned by an
	// external push gateway; here the channel is drained so a missing
	// consumer never stalls dispatch.
	g.Go(func() error {
		for {
			select {
			case <-gCtx.Done():
				return gCtx.Err()
			case e := <-chanSink.Events():
				zctx.From(gCtx).Debug("Realtime event",
					zap.String("kind", string(e.Kind)),
					zap.String("order_id", e.OrderID.String()))
			}
		}
	})

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return errors.Wrap(err, "background workers")
	}
	return nil
}
