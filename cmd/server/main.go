package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/cinema-ticketing/internal/cache"
	"github.com/iliyamo/cinema-ticketing/internal/clock"
	"github.com/iliyamo/cinema-ticketing/internal/config"
	"github.com/iliyamo/cinema-ticketing/internal/database"
	"github.com/iliyamo/cinema-ticketing/internal/handler"
	"github.com/iliyamo/cinema-ticketing/internal/metrics"
	"github.com/iliyamo/cinema-ticketing/internal/middleware"
	"github.com/iliyamo/cinema-ticketing/internal/queue"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
	"github.com/iliyamo/cinema-ticketing/internal/router"
	"github.com/iliyamo/cinema-ticketing/internal/service"
	"github.com/iliyamo/cinema-ticketing/migrations"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	if cfg.AutoMigrate {
		if err := migrations.Apply(ctx, db); err != nil {
			log.Fatalf("migrations: %v", err)
		}
	}

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	rec := metrics.NewRecorder()
	txm := repository.NewTxManager(db, cfg.TxMaxRetries, cfg.TxRetryBackoff)
	txm.OnRetry = func(attempt int, err error) {
		log.Printf("tx: retry attempt=%d after %v", attempt, err)
		rec.TxRetry(attempt, err)
	}

	var events service.EventPublisher
	if cfg.EventsEnabled {
		events = queue.NewPublisher(cfg.AMQPURL)
	}
	svc := service.New(service.Stores{
		Tx:          txm,
		Showtimes:   repository.NewShowtimeRepo(db),
		Seats:       repository.NewSeatRepo(db),
		Ledger:      repository.NewLedgerRepo(db),
		Bookings:    repository.NewBookingRepo(db),
		Payments:    repository.NewPaymentRepo(db),
		Rooms:       repository.NewRoomRepo(db),
		TicketTypes: repository.NewTicketTypeRepo(db),
		Users:       repository.NewUserRepo(db),
	}, cache.NewAvailability(config.LoadCacheConfig(), rdb), events, rec, clock.NewSystem())

	if cfg.ConsumerEnabled {
		for _, kind := range queue.Kinds {
			name := queue.QueueName(kind)
			go func() {
				if err := queue.StartBookingConsumer(ctx, cfg.AMQPURL, name, cfg.BookingLogDir); err != nil && !errors.Is(err, context.Canceled) {
					log.Printf("booking-consumer: queue=%s stopped: %v", name, err)
				}
			}()
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())
	e.Use(metrics.RequestDuration())
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	h := handler.New(svc)
	opts := router.Options{
		JWTSecret: cfg.JWTSecret,
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
	}
	router.RegisterRoutes(e, h, handler.Health(db))
	router.RegisterBooking(e, h, opts)
	router.RegisterAdmin(e, h, opts)

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
