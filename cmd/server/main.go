package main // Entry point package

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/exam-scheduler/internal/config"
	"github.com/iliyamo/exam-scheduler/internal/database"
	"github.com/iliyamo/exam-scheduler/internal/handler"
	"github.com/iliyamo/exam-scheduler/internal/logger"
	"github.com/iliyamo/exam-scheduler/internal/queue"
	"github.com/iliyamo/exam-scheduler/internal/repository"
	"github.com/iliyamo/exam-scheduler/internal/router"
	"github.com/iliyamo/exam-scheduler/internal/service"
)

func main() {
	// 1. config and logger
	cfg := config.Load()
	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. database and migrations
	db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal("Database connection failed", zap.Error(err))
	}
	defer db.Close()
	if err := database.Migrate(ctx, db, log); err != nil {
		log.Fatal("Database migration failed", zap.Error(err))
	}

	// 3. redis is optional; rate limiting and caching pass through without it
	var rdb *redis.Client
	rdb, err = config.NewRedisClient(ctx, config.LoadRedisConfig())
	if err != nil {
		log.Warn("Redis unavailable, rate limiting and caching disabled", zap.Error(err))
		rdb = nil
	} else {
		defer rdb.Close()
	}

	// 4. schedule events
	var events queue.Publisher = queue.NopPublisher{}
	if cfg.AMQP.URL != "" {
		events = queue.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Queue, log)
	}

	// 5. repository -> service -> handler
	store := repository.NewMySQLStore(db)
	slots := service.NewSlotService(store, cfg.Scheduling, events, log)
	seats := service.NewAllocationService(store, events, log)
	workflow := service.NewRescheduleService(store, cfg.Scheduling, events, log)
	courses := service.NewCourseService(store, log)

	e := router.New(router.Handlers{
		Courses:    handler.NewCourseHandler(courses, seats, log),
		Slots:      handler.NewSlotHandler(slots, log),
		Students:   handler.NewStudentHandler(seats, log),
		Reschedule: handler.NewRescheduleHandler(workflow, log),
	}, router.Options{
		JWTSecret: cfg.JWTSecret,
		DB:        db,
		Redis:     rdb,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
		Logger:    log,
	})

	// 6. audit consumer
	var wg sync.WaitGroup
	if cfg.AMQP.URL != "" && cfg.AMQP.ConsumerEnabled {
		consumer := &queue.AuditConsumer{URL: cfg.AMQP.URL, Queue: cfg.AMQP.Queue, Dir: "logs", Logger: log}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("Schedule consumer stopped", zap.Error(err))
			}
		}()
	}

	// 7. http server with graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}
	wg.Wait()
	log.Info("Server stopped")
}
