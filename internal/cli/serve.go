package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/Kaplan-Paving/fleet-backend/internal/config"
	"github.com/Kaplan-Paving/fleet-backend/internal/database"
	"github.com/Kaplan-Paving/fleet-backend/internal/handler"
	"github.com/Kaplan-Paving/fleet-backend/internal/logger"
	"github.com/Kaplan-Paving/fleet-backend/internal/middleware"
	"github.com/Kaplan-Paving/fleet-backend/internal/permission"
	"github.com/Kaplan-Paving/fleet-backend/internal/queue"
	"github.com/Kaplan-Paving/fleet-backend/internal/repository"
	"github.com/Kaplan-Paving/fleet-backend/internal/router"
	"github.com/Kaplan-Paving/fleet-backend/internal/service"
	"github.com/Kaplan-Paving/fleet-backend/internal/storage"
	"github.com/Kaplan-Paving/fleet-backend/internal/ws"
)

const (
	shutdownTimeout = 15 * time.Second
	lastSeenEvery   = time.Minute
)

func newServeCommand() *cobra.Command {
	var autoMigrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), autoMigrate)
		},
	}
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "Apply pending migrations before serving")
	return cmd
}

func serve(parent context.Context, autoMigrate bool) error {
	if err := logger.Init(config.LoadLoggerConfig()); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	log := logger.WithComponent("server")
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if autoMigrate {
		if err := database.MigrateUp(ctx, db); err != nil {
			return err
		}
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb != nil {
		defer rdb.Close()
	}
	cacheCfg := config.LoadCacheConfig()

	// ----- persistence -----
	tx := database.NewTxManager(db)
	users := repository.NewUserRepo(db)
	assets := repository.NewAssetRepo(db)
	readings := repository.NewReadingRepo(db)
	thresholds := repository.NewThresholdRepo(db)
	alerts := repository.NewAlertRepo(db)
	tickets := repository.NewTicketRepo(db)
	workOrders := repository.NewWorkOrderRepo(db)
	workLogs := repository.NewWorkLogRepo(db)
	audit := repository.NewAuditRepo(db)
	counters := repository.NewCounterRepo(db)

	// ----- events -----
	hub := ws.NewHub(cfg.CORSOrigins)
	sink := eventSink(service.NewEventRecorder(audit, hub), rdb, cacheCfg.Prefix)
	events, closeEvents := startEvents(ctx, config.LoadEventsConfig(), sink)
	defer closeEvents()

	// ----- services -----
	ticketSvc := service.NewTicketService(service.TicketDeps{
		Tickets:     tickets,
		WorkOrders:  workOrders,
		Counters:    counters,
		DaySequence: service.DaySequencer(rdb, counters),
		Locks:       counters,
		Tx:          tx,
		Events:      events,
		Location:    cfg.Location(),
	})
	alertSvc := service.NewAlertService(alerts, ticketSvc, tx)
	readingSvc := service.NewReadingService(readings, assets, thresholds, alerts, tx, events)
	productivity := service.NewProductivityService(users, workLogs, cfg.Location())
	dashboard := service.NewDashboardService(assets, tickets, workOrders, readings, audit)

	enforcer, err := permission.NewEnforcer()
	if err != nil {
		return fmt.Errorf("build permission enforcer: %w", err)
	}
	presets, err := permission.LoadPresets()
	if err != nil {
		return fmt.Errorf("load permission presets: %w", err)
	}
	uploadCfg := config.LoadUploadConfig()
	blobs, err := storage.NewLocalStore(uploadCfg)
	if err != nil {
		return fmt.Errorf("open attachment store: %w", err)
	}

	// ----- HTTP -----
	e := echo.New()
	e.HideBanner, e.HidePort = true, true
	e.HTTPErrorHandler = middleware.ErrorHandler(audit)
	e.Use(
		echomw.Recover(),
		middleware.RequestLogger(),
		echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:     cfg.CORSOrigins,
			AllowCredentials: true,
		}),
		echomw.BodyLimit(cfg.BodyLimit),
	)

	rl := config.LoadRateLimitConfig()
	router.Register(e, router.Handlers{
		Health:      &handler.HealthHandler{DB: db, Started: time.Now()},
		Auth:        handler.NewAuthHandler(cfg, users, presets, enforcer),
		Assets:      &handler.AssetHandler{Assets: assets},
		Readings:    &handler.ReadingHandler{Svc: readingSvc, Readings: readings},
		Thresholds:  &handler.ThresholdHandler{Thresholds: thresholds},
		Alerts:      &handler.AlertHandler{Svc: alertSvc, Alerts: alerts},
		Tickets:     &handler.RepairTicketHandler{Svc: ticketSvc, Store: blobs, MaxFiles: uploadCfg.MaxFiles},
		WorkOrders:  &handler.WorkOrderHandler{Svc: ticketSvc, Store: blobs, MaxFiles: uploadCfg.MaxFiles},
		WorkLogs:    &handler.WorkLogHandler{Logs: workLogs, Tickets: tickets},
		Mechanics:   &handler.MechanicHandler{Svc: productivity, Users: users},
		Dashboard:   &handler.DashboardHandler{Svc: dashboard},
		Audit:       &handler.AuditHandler{Audit: audit},
		Attachments: &handler.AttachmentHandler{Store: blobs},
		Live:        hub,
	}, router.Guards{
		Auth:       middleware.JWTAuth(cfg.JWTSecret, users),
		Perms:      enforcer,
		Activity:   middleware.LastSeen(users, lastSeenEvery),
		Audit:      middleware.AuditTrail(audit, "/api/ws"),
		RateLimit:  middleware.NewTokenBucket(rl, rdb),
		LoginLimit: middleware.NewTokenBucket(rl.Login(), rdb),
		Cache:      middleware.NewRedisCache(cacheCfg, rdb),
	})

	errc := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", ":"+cfg.Port, "env", cfg.Env)
		errc <- e.Start(":" + cfg.Port)
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// eventSink records each event and broadcasts it, then drops cached
// dashboard responses so the next read reflects the change.
func eventSink(rec *service.EventRecorder, rdb *redis.Client, cachePrefix string) queue.Sink {
	log := logger.WithComponent("events")
	return queue.SinkFunc(func(ctx context.Context, ev queue.FleetEvent) error {
		if err := rec.HandleEvent(ctx, ev); err != nil {
			return err
		}
		if rdb == nil {
			return nil
		}
		if n, err := middleware.PurgeCache(ctx, rdb, cachePrefix); err != nil {
			log.Warn("cache purge failed", "kind", ev.Kind, "err", err)
		} else if n > 0 {
			log.Debug("cache purged", "kind", ev.Kind, "keys", n)
		}
		return nil
	})
}

// startEvents publishes through RabbitMQ when a broker URL is configured,
// starting the consumer alongside, and delivers in-process otherwise.
func startEvents(ctx context.Context, cfg config.EventsConfig, sink queue.Sink) (service.EventPublisher, func()) {
	if cfg.URL == "" {
		return service.NewDirectPublisher(sink), func() {}
	}
	log := logger.WithComponent("events")
	pub := service.NewAMQPPublisher(cfg.URL, cfg.Queue)
	if cfg.Consumer {
		go func() {
			if err := queue.NewConsumer(cfg.URL, cfg.Queue, sink).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("event consumer stopped", "err", err)
			}
		}()
	}
	return pub, func() {
		if err := pub.Close(); err != nil {
			log.Warn("close event publisher", "err", err)
		}
	}
}
