package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/potalora/ai-web-records-app-take-2/internal/config"
	"github.com/potalora/ai-web-records-app-take-2/internal/data/repos"
	httpsrv "github.com/potalora/ai-web-records-app-take-2/internal/http"
	"github.com/potalora/ai-web-records-app-take-2/internal/http/handlers"
	"github.com/potalora/ai-web-records-app-take-2/internal/http/middleware"
	"github.com/potalora/ai-web-records-app-take-2/internal/ingestion"
	"github.com/potalora/ai-web-records-app-take-2/internal/jobs/worker"
	"github.com/potalora/ai-web-records-app-take-2/internal/observability"
	"github.com/potalora/ai-web-records-app-take-2/internal/platform/envutil"
	"github.com/potalora/ai-web-records-app-take-2/internal/platform/logger"
	"github.com/potalora/ai-web-records-app-take-2/internal/platform/postgres"
	"github.com/potalora/ai-web-records-app-take-2/internal/realtime"
	"github.com/potalora/ai-web-records-app-take-2/internal/realtime/bus"
)

const (
	serviceName     = "health-records"
	shutdownTimeout = 15 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: serviceName,
		Environment: cfg.AppEnv,
		Version:     envutil.Str("APP_VERSION", "dev"),
	})

	pg, err := postgres.New(cfg, log)
	if err != nil {
		return fmt.Errorf("init postgres: %w", err)
	}
	db := pg.DB()
	if err := postgres.AutoMigrateAll(db); err != nil {
		return fmt.Errorf("postgres automigrate: %w", err)
	}

	metrics := observability.Init(log)
	metrics.StartServer(ctx, log, envutil.Str("METRICS_ADDR", ":9091"))
	metrics.StartPostgresCollector(ctx, log, db)
	metrics.StartQueueDepthCollector(ctx, log, db)
	metrics.StartRedisCollector(ctx, log, cfg.RedisAddr)

	uploadRepo := repos.NewUploadedFileRepo(db, log)
	patientRepo := repos.NewPatientRepo(db, log)
	recordRepo := repos.NewHealthRecordRepo(db, log)

	hub := realtime.NewHub(log)

	// Without Redis every event stays in-process, which is fine for a
	// single instance. With Redis, events published by any instance
	// reach clients connected to any other.
	var (
		eventBus  bus.Bus
		publisher ingestion.Publisher
		rdb       *redis.Client
	)
	if cfg.RedisAddr != "" {
		eventBus, err = bus.NewRedisBus(cfg, log)
		if err != nil {
			return fmt.Errorf("init redis bus: %w", err)
		}
		defer eventBus.Close()
		if err := eventBus.StartForwarder(ctx, hub.Broadcast); err != nil {
			return fmt.Errorf("start event forwarder: %w", err)
		}
		publisher = eventBus
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
	} else {
		log.Warn("REDIS_ADDR not set, progress events are delivered in-process only")
		publisher = hubPublisher{hub: hub}
	}

	inserter := ingestion.NewBulkInserter(db, recordRepo, metrics, log)
	coordinator := ingestion.NewCoordinator(uploadRepo, patientRepo, inserter, publisher, metrics, cfg, log)

	ingestWorker := worker.NewWorker(uploadRepo, coordinator, cfg, log)
	ingestWorker.Start(ctx)

	srv := httpsrv.NewServer(httpsrv.RouterConfig{
		Log:            log,
		Metrics:        metrics,
		CORSOrigins:    cfg.CORSOrigins,
		ServiceName:    serviceName,
		AuthMiddleware: middleware.NewAuthMiddleware(cfg.JWTSecretKey, log),
		UploadHandler:  handlers.NewUploadHandler(uploadRepo, cfg, log),
		RecordHandler:  handlers.NewRecordHandler(patientRepo, recordRepo, log),
		EventsHandler:  handlers.NewEventsHandler(hub, log),
		HealthHandler:  handlers.NewHealthHandler(db, rdb),
	}, cfg.HTTPAddr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", "addr", cfg.HTTPAddr, "env", cfg.AppEnv)
		return srv.Run()
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		// Let in-flight ingestion finish before the process exits;
		// connected SSE clients still get the final progress events.
		ingestWorker.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()

	if otelShutdown != nil {
		otelCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if shutdownErr := otelShutdown(otelCtx); shutdownErr != nil {
			log.Warn("otel shutdown failed", "error", shutdownErr)
		}
		cancel()
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("shutdown complete")
	return nil
}

// hubPublisher satisfies ingestion.Publisher when no Redis bus is
// configured by broadcasting straight to the local hub.
type hubPublisher struct {
	hub *realtime.Hub
}

func (p hubPublisher) Publish(_ context.Context, event realtime.Event) error {
	p.hub.Broadcast(event)
	return nil
}
