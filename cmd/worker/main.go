package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erp/procurement/internal/infrastructure/config"
	"github.com/erp/procurement/internal/infrastructure/event"
	"github.com/erp/procurement/internal/infrastructure/logger"
	"github.com/erp/procurement/internal/infrastructure/persistence"
	"go.uber.org/zap"
)

// The worker drains the transactional outbox: entries committed alongside
// aggregate changes are picked up here and delivered to the event bus.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting procurement worker",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
	)

	if !cfg.Event.ProcessorEnabled {
		log.Warn("Outbox processor is disabled by configuration, nothing to do")
		return
	}

	db, err := persistence.NewDatabase(&cfg.Database, log, cfg.Log.Level)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		_ = db.Close()
	}()

	bus := event.NewInMemoryEventBus(log)
	serializer := event.NewEventSerializer()
	outboxRepo := persistence.NewGormOutboxRepository(db.DB)

	processor := event.NewOutboxProcessor(outboxRepo, bus, serializer, event.OutboxProcessorConfig{
		BatchSize:    cfg.Event.BatchSize,
		PollInterval: cfg.Event.PollInterval,
	}, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := processor.Start(ctx); err != nil {
		log.Fatal("Failed to start outbox processor", zap.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := processor.Stop(shutdownCtx); err != nil {
		log.Error("Outbox processor did not stop cleanly", zap.Error(err))
	}

	log.Info("Worker stopped")
}
