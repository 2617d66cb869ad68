package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/dirabus/internal/auth"
	"github.com/kirinyoku/dirabus/internal/config"
	"github.com/kirinyoku/dirabus/internal/postgres"
	"github.com/kirinyoku/dirabus/internal/redis"
	postgresrepo "github.com/kirinyoku/dirabus/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/dirabus/internal/repository/redis"
	"github.com/kirinyoku/dirabus/internal/service"
	"github.com/kirinyoku/dirabus/internal/service/booking"
	"github.com/kirinyoku/dirabus/internal/service/catalog"
	httpgin "github.com/kirinyoku/dirabus/internal/transport/http/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg        *config.Config
	logger     *logrus.Logger
	pool       *pgxpool.Pool
	rdb        *goredis.Client
	pubsub     *redisrepo.EventsPubSub
	httpServer *http.Server
}

func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*App, error) {
	pgxPool, err := postgres.New(ctx, postgres.Config{
		DSN:      cfg.Postgres.DSN(),
		MaxConns: int32(cfg.Postgres.MaxConns),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	rdb, err := redis.New(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		pgxPool.Close()
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	// Repositories
	store := postgresrepo.NewStore(pgxPool)
	cache := redisrepo.NewCache(rdb)
	pubsub := redisrepo.NewEventsPubSub(rdb)
	limiter := redisrepo.NewSlidingWindowLimiter(
		rdb,
		redisrepo.KeyRateLimit("booking"),
		cfg.Booking.RateLimit,
		cfg.Booking.RateWindow,
	)
	idempotencyStore := redisrepo.NewIdempotencyStore(rdb, cfg.Booking.IdempotencyTTL)

	// Services
	services := service.NewServices(store, cache, pubsub, limiter, logger, service.Config{
		Booking: booking.Config{ReceiptAttempts: cfg.Booking.ReceiptAttempts},
		Catalog: catalog.Config{CacheTTL: cfg.Catalog.CacheTTL},
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := httpgin.NewRouter(httpgin.Deps{
		Services:       services,
		Tokens:         auth.NewService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTTL),
		Idempotency:    idempotencyStore,
		Events:         pubsub,
		Logger:         logger,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	return &App{
		cfg:    cfg,
		logger: logger,
		pool:   pgxPool,
		rdb:    rdb,
		pubsub: pubsub,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	defer a.close()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.WithFields(logrus.Fields{
			"host": a.cfg.Server.Host,
			"port": a.cfg.Server.Port,
		}).Info("HTTP server listening")

		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Booking feed: logs booking changes published by any instance.
	g.Go(func() error {
		err := a.pubsub.SubscribeBookingChanges(gCtx, func(_ context.Context, ev redisrepo.BookingChanged) {
			a.logger.WithFields(logrus.Fields{
				"receipt_id":  ev.ReceiptID,
				"bus_id":      ev.BusID,
				"travel_date": ev.TravelDate,
				"status":      ev.Status,
			}).Info("booking changed")
		})
		if err != nil && gCtx.Err() == nil {
			a.logger.WithError(err).Warn("booking feed stopped")
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}

func (a *App) close() {
	if err := a.rdb.Close(); err != nil {
		a.logger.WithError(err).Warn("close redis")
	}
	a.pool.Close()
}
