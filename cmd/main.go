package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/senyabanana/assignment-desk/internal/chat"
	"github.com/senyabanana/assignment-desk/internal/db"
	"github.com/senyabanana/assignment-desk/internal/handlers"
	"github.com/senyabanana/assignment-desk/internal/logging"
	"github.com/senyabanana/assignment-desk/internal/marketplace"
	"github.com/senyabanana/assignment-desk/internal/notify"
	"github.com/senyabanana/assignment-desk/internal/repository"
	"github.com/senyabanana/assignment-desk/internal/router"
	"github.com/senyabanana/assignment-desk/internal/router/config"
	"github.com/senyabanana/assignment-desk/internal/services"
	"github.com/senyabanana/assignment-desk/internal/socket"
)

func main() {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.Fatalf("Event ID: ENV_LOAD_ERROR, Description: error loading .env file: %v", err)
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		logrus.Fatalf("Event ID: CONFIG_ERROR, Description: cannot load config: %v", err)
	}

	logger, err := logging.New(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		logrus.Fatalf("Event ID: LOGGER_ERROR, Description: %v", err)
	}
	logger.Info("Event ID: SERVICE_START, Description: starting assignment desk")

	runDBMigration(logger, cfg.MigrationURL, cfg.PostgresConn)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := db.InitDb(ctx, cfg)
	if err != nil {
		logger.Fatalf("Event ID: DB_INIT_ERROR, Description: error initializing database: %v", err)
	}
	defer dbPool.Close()

	repos := repository.NewRepositories(dbPool)

	breaker := marketplace.NewBreaker("marketplace", 30*time.Second, logger)
	market := marketplace.NewClient(cfg.MarketplaceURL, &http.Client{Timeout: cfg.RequestTimeout}, breaker, logger)

	backoff := socket.DefaultBackoff()
	backoff.MaxRetries = cfg.SocketMaxRetries

	bidService := services.NewBidService(market, logger)
	assignmentService := services.NewAssignmentService(market, repos.Sessions, bidService, logger)

	notificationService := services.NewNotificationService(logger)
	notifyHub := notify.NewHub(ctx, cfg.MarketplaceWSURL, notify.SocketDial(backoff), logger, notificationService.Record)
	notificationService.Hub = notifyHub

	chatHub := chat.NewHub(ctx, cfg.MarketplaceWSURL, market, chat.SocketDial(backoff), logger)
	chatService := services.NewChatService(market, chatHub, notificationService)
	preferenceService := services.NewPreferenceService(repos.Preferences, market)

	watcher := services.NewWatcher(market, assignmentService, cfg.WatchInterval, logger)
	watcher.Subscribe(assignmentService.HandleEvent)
	watcher.Start(ctx)

	routes := router.InitRoutes(router.Handlers{
		Assignment: handlers.NewAssignmentHandler(assignmentService, logger, cfg.RequestTimeout),
		Chat:       handlers.NewChatHandler(chatService, notificationService, logger, cfg.RequestTimeout),
		Preference: handlers.NewPreferenceHandler(preferenceService, logger, cfg.RequestTimeout),
	}, logger)

	server := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           routes,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Event ID: SERVER_START, Description: server is listening on %s", cfg.ServerAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Event ID: SERVER_SHUTDOWN, Description: shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := server.Shutdown(shutdownCtx)

		watcher.Stop()
		chatHub.Close()
		notifyHub.Close()
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Fatalf("Event ID: SERVER_ERROR, Description: %v", err)
	}
	logger.Info("Event ID: SERVICE_STOP, Description: successful shutdown")
}

func runDBMigration(logger *logrus.Logger, migrationURL string, dbSource string) {
	migration, err := migrate.New(migrationURL, dbSource)
	if err != nil {
		logger.Fatalf("Event ID: MIGRATION_ERROR, Description: cannot create a new migrate instance: %v", err)
	}

	if err = migration.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Fatalf("Event ID: MIGRATION_ERROR, Description: failed to run migrate up: %v", err)
	}
	logger.Info("Event ID: DB_MIGRATED, Description: db migrated successfully")
}
