// Package server assembles the application: configuration, database,
// object-store gateway, event publisher, domain services and the HTTP
// API, plus graceful shutdown on OS signals.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/valetdrive/valetdrive/internal/logging"
	"github.com/valetdrive/valetdrive/internal/server/config"
	"github.com/valetdrive/valetdrive/internal/server/events"
	"github.com/valetdrive/valetdrive/internal/server/httpapi"
	"github.com/valetdrive/valetdrive/internal/server/objectstore"
	"github.com/valetdrive/valetdrive/internal/server/repositories/repomanager"
	"github.com/valetdrive/valetdrive/internal/server/services"
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	rm        repomanager.RepositoryManager
	gateway   objectstore.Gateway
	publisher events.Publisher

	userService *services.UserService
	httpServer  *httpapi.Server
}

func NewApp(cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()

	gateway, err := newGateway(cfg)
	if err != nil {
		return nil, err
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.NATSURL != "" {
		publisher, err = events.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			return nil, fmt.Errorf("nats init error: %w", err)
		}
	}

	quotaService := services.NewQuotaService(db, rm, logger)
	valetService := services.NewValetKeyService(gateway, cfg)
	folderService := services.NewFolderService(db, rm, gateway, quotaService, publisher, logger)
	fileService := services.NewFileService(db, rm, gateway, valetService, quotaService, publisher, logger)
	linkService := services.NewPublicLinkService(db, rm, valetService, publisher, logger)
	userService := services.NewUserService(db, rm, cfg, logger)

	httpServer := httpapi.NewServer(cfg.EndpointAddrHTTP, []byte(cfg.SecretKey), logger,
		userService, folderService, fileService, linkService, quotaService)

	return &App{
		config:      cfg,
		logger:      logger,
		db:          db,
		rm:          rm,
		gateway:     gateway,
		publisher:   publisher,
		userService: userService,
		httpServer:  httpServer,
	}, nil
}

func newGateway(cfg *config.Config) (objectstore.Gateway, error) {
	switch cfg.StorageBackend {
	case config.BackendMinio:
		endpoint := cfg.S3BaseEndpoint
		if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
			endpoint = u.Host
		}
		return objectstore.NewMinioGateway(objectstore.MinioOptions{
			Endpoint:  endpoint,
			AccessKey: cfg.S3RootUser,
			SecretKey: cfg.S3RootPassword,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
			Timeout:   cfg.ObjectStoreTimeout,
		})
	case config.BackendS3:
		return objectstore.NewS3Gateway(objectstore.S3Options{
			AccessKey:    cfg.S3RootUser,
			SecretKey:    cfg.S3RootPassword,
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
			Timeout:      cfg.ObjectStoreTimeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.httpServer.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app")

	app.initSignalHandler(cancelFunc)

	if err := app.rm.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	if g, ok := app.gateway.(*objectstore.MinioGateway); ok {
		if err := g.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("bucket init error: %w", err)
		}
	}

	if app.config.SeedDemoUsers {
		if err := app.userService.SeedDemoUsers(ctx); err != nil {
			return fmt.Errorf("demo seed error: %w", err)
		}
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.publisher.Close()
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, err.Error())
	}

	return nil
}
