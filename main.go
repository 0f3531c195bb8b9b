package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-booking/internal/auth"
	"ms-booking/internal/booking"
	"ms-booking/internal/booking/booking_api"
	booking_db "ms-booking/internal/booking/db"
	"ms-booking/internal/booking/qr"
	"ms-booking/internal/config"
	"ms-booking/internal/database/migrations"
	"ms-booking/internal/events"
	events_db "ms-booking/internal/events/db"
	"ms-booking/internal/events/event_api"
	"ms-booking/internal/inventory"
	"ms-booking/internal/kafka"
	"ms-booking/internal/logger"
	"ms-booking/internal/users"
	users_db "ms-booking/internal/users/db"
	"ms-booking/internal/users/user_api"
)

func verifyConnections(ctx context.Context, cfg *config.Config, log *logger.Logger) (*bun.DB, *redis.Client) {
	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			log.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)
	log.Info("DATABASE", "PostgreSQL connection successful")

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}
	log.Info("DATABASE", fmt.Sprintf("Redis connection successful to %s", cfg.Redis.Addr))

	return bunDB, redisClient
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting Booking Service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	}

	cfg := config.Load()
	if cfg.Auth.AccessSecret == "" || cfg.Auth.RefreshSecret == "" {
		log.Fatal("CONFIG", "ACCESS_SECRET_KEY and REFRESH_SECRET_KEY must be set")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bunDB, redisClient := verifyConnections(ctx, cfg, log)
	defer bunDB.Close()
	defer redisClient.Close()

	if cfg.Database.AutoMigrate {
		runner := migrations.NewRunner(bunDB, cfg.Database.MigrationsDir)
		if err := runner.MigrateUp(); err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Migration failed: %v", err))
		}
		log.Info("DATABASE", "Schema migrations applied")
	}

	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		requiredTopics := []string{
			cfg.Kafka.Topics.BookingCreated,
			cfg.Kafka.Topics.BookingVerified,
			cfg.Kafka.Topics.BookingCancelled,
			cfg.Kafka.Topics.EventClosed,
		}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, requiredTopics); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics)
		defer producer.Close()
		log.Info("KAFKA", "Kafka producer initialized")
	} else {
		log.Warn("KAFKA", "Kafka disabled, booking events will not be published")
	}

	principalCache := auth.NewPrincipalCache(redisClient, cfg.Redis.PrincipalTTL)
	userStore := &users_db.DB{Bun: bunDB}
	guard := auth.NewGuard(cfg.Auth, userStore, principalCache, log)

	userService := users.NewUserService(userStore, cfg.Auth, principalCache)

	var publisher booking.KafkaPublisher
	var eventPublisher events.KafkaPublisher
	if producer != nil {
		publisher = producer
		eventPublisher = producer
	}

	eventService := events.NewService(&events_db.DB{Bun: bunDB}, eventPublisher, log)
	bookingService := booking.NewService(bunDB, &booking_db.DB{Bun: bunDB}, inventory.NewLedger(), publisher, log)

	userHandler := &user_api.Handler{UserService: userService, Logger: log}
	eventHandler := &event_api.Handler{EventService: eventService, Logger: log}
	bookingHandler := &booking_api.Handler{
		BookingService: bookingService,
		QR:             qr.NewIssuer(cfg.Auth.QRSecret),
		Logger:         log,
	}

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()

	// --- Public routes ---
	r.Post("/users/register", userHandler.Register)
	r.Post("/users/login", userHandler.Login)
	r.Get("/users/refresh", userHandler.Refresh)
	r.Get("/events", eventHandler.ListEvents)
	r.Get("/events/{eventId}", eventHandler.GetEvent)
	// The gate device scans without a session; the booking ID is the ticket.
	r.Patch("/bookings/{bookingId}/verify", bookingHandler.VerifyBooking)

	// --- Protected routes ---
	r.Group(func(r chi.Router) {
		r.Use(guard.Middleware())

		r.Delete("/users", userHandler.Delete)

		r.Post("/events", eventHandler.CreateEvent)
		r.Get("/events/mine", eventHandler.ListMyEvents)
		r.Delete("/events/{eventId}", eventHandler.DeleteEvent)

		r.Post("/tickets", eventHandler.CreateTicket)
		r.Delete("/tickets/{ticketId}", eventHandler.DeleteTicket)

		r.Route("/bookings", func(r chi.Router) {
			r.Post("/", bookingHandler.CreateBooking)
			r.Get("/", bookingHandler.ListBookings)
			r.Get("/{bookingId}", bookingHandler.GetBooking)
			r.Delete("/{bookingId}", bookingHandler.CancelBooking)
			r.Get("/{bookingId}/qr", bookingHandler.BookingQR)
		})
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	log.Info("SWEEP", fmt.Sprintf("Starting event status sweep every %s", cfg.Sweep.Interval))
	go eventService.RunStatusSweep(ctx, cfg.Sweep.Interval)

	go func() {
		log.Info("HTTP", fmt.Sprintf("Booking Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	cancel()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server shutdown failed: %v", err))
	} else {
		log.Info("HTTP", "Booking Service shutdown complete")
	}
}
