package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/campus-console/internal/api/http"
	"github.com/spec-kit/campus-console/internal/api/http/handlers"
	"github.com/spec-kit/campus-console/internal/auth"
	"github.com/spec-kit/campus-console/internal/backend"
	"github.com/spec-kit/campus-console/internal/config"
	"github.com/spec-kit/campus-console/internal/domain"
	"github.com/spec-kit/campus-console/internal/mutation"
	"github.com/spec-kit/campus-console/internal/notification"
	"github.com/spec-kit/campus-console/internal/observability"
	"github.com/spec-kit/campus-console/internal/persistence"
	"github.com/spec-kit/campus-console/internal/repository"
	"github.com/spec-kit/campus-console/internal/service"
	"github.com/spec-kit/campus-console/internal/store"
	"github.com/spec-kit/campus-console/internal/syncchannel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	baseLogger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer baseLogger.Sync() //nolint:errcheck
	logger := observability.WithService(baseLogger, cfg.App)
	metrics := observability.NewMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	journalDB, err := persistence.OpenJournal(ctx, cfg.Postgres, logger.Named("journal"))
	if err != nil {
		logger.Fatal("failed to open mutation journal", zap.Error(err))
	}
	defer journalDB.Close()

	var journal repository.MutationJournalRepository
	if journalDB.Enabled() {
		journal = repository.NewMutationJournalRepository(journalDB.Pool())
	}

	var broker *persistence.PushBroker
	if cfg.Push.Transport == config.TransportRedis {
		broker = persistence.NewPushBroker(ctx, cfg.Redis, logger.Named("push"))
		defer broker.Close()
	}

	client := backend.New(cfg.Backend.BaseURL, cfg.Backend.Token, cfg.Backend.Timeout, logger.Named("backend"))
	bus := notification.NewBus(
		notification.WithDefaultTTL(cfg.Notification.DefaultTTL),
		notification.WithLogger(logger.Named("notification")),
		notification.WithMetrics(metrics),
	)

	coordCfg := mutation.Config{Timeout: cfg.Backend.Timeout, Metrics: metrics, Journal: journal}

	enrollStore := store.New(domain.KindEnrollment, store.WithLogger(logger), store.WithMetrics(metrics))
	enrollments := service.NewEnrollmentConsole(service.EnrollmentDependencies{
		Backend:     client,
		Store:       enrollStore,
		Coordinator: mutation.NewCoordinator(enrollStore, bus, logger.Named("mutation"), coordCfg),
		Logger:      logger.Named("enrollments"),
	})

	staffStore := store.New(domain.KindStaff, store.WithLogger(logger), store.WithMetrics(metrics))
	staff := service.NewStaffConsole(service.StaffDependencies{
		Backend:     client,
		Store:       staffStore,
		Coordinator: mutation.NewCoordinator(staffStore, bus, logger.Named("mutation"), coordCfg),
		Logger:      logger.Named("staff"),
	})

	channel := syncchannel.New(newTransport(cfg.Push, broker, logger), logger.Named("push"), metrics, syncchannel.WithNotifier(bus))
	for _, room := range cfg.Push.Rooms {
		if err := channel.JoinRoom(ctx, room); err != nil {
			logger.Fatal("failed to join room", zap.String("room", room), zap.Error(err))
		}
	}
	enrollments.RegisterHandlers(channel)
	staff.RegisterHandlers(channel)
	if err := channel.Connect(ctx); err != nil {
		logger.Fatal("failed to connect push channel", zap.Error(err))
	}
	defer channel.Close() //nolint:errcheck

	if err := enrollments.Refresh(ctx, nil); err != nil {
		logger.Warn("initial enrollment load failed", zap.Error(err))
	}
	if err := staff.Refresh(ctx, nil); err != nil {
		logger.Warn("initial staff load failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, journalDB, broker, channel),
		Enrollments:    handlers.NewEnrollmentsHandler(enrollments),
		Staff:          handlers.NewStaffHandler(staff),
		Notifications:  handlers.NewNotificationsHandler(bus),
		Mutations:      handlers.NewMutationsHandler(journal),
		Metrics:        metrics.Handler(),
		AuthMiddleware: auth.NewAuthMiddleware(auth.NewTokenManager(cfg.Auth)),
		RequiredRole:   cfg.Auth.RequiredRole,
	})

	go func() {
		logger.Info("console listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
}

func newTransport(cfg config.PushConfig, broker *persistence.PushBroker, logger *zap.Logger) syncchannel.Transport {
	switch cfg.Transport {
	case config.TransportRedis:
		return syncchannel.NewRedis(broker.Client, cfg.RedisPrefix, logger.Named("push.redis"))
	case config.TransportAMQP:
		return syncchannel.NewAMQP(cfg.AMQPURL, cfg.AMQPExchange, logger.Named("push.amqp"))
	default:
		logger.Warn("using in-memory push transport; no server events will arrive")
		return syncchannel.NewMemory(64)
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
