// Package server initializes and runs the vault's main application
// server. It configures storage and replica backends, applies catalog
// migrations, and starts the HTTP server, handling graceful shutdown the
// same way the app this package is modeled on starts its gRPC server.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/evidencevault/vault/internal/logging"
	"github.com/evidencevault/vault/internal/metrics"
	"github.com/evidencevault/vault/internal/server/admin"
	"github.com/evidencevault/vault/internal/server/auth"
	"github.com/evidencevault/vault/internal/server/config"
	"github.com/evidencevault/vault/internal/server/httpapi"
	"github.com/evidencevault/vault/internal/server/ingestion"
	"github.com/evidencevault/vault/internal/server/replica"
	"github.com/evidencevault/vault/internal/server/repositories/repomanager"
	"github.com/evidencevault/vault/internal/server/retrieval"
	"github.com/evidencevault/vault/internal/server/storage"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// App owns every long-lived dependency of the running server.
type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	srv    *http.Server
}

// NewApp builds the full dependency graph from cfg: catalog, object
// store, optional secondary replica, the three controllers, and the
// HTTP transport.
func NewApp(cfg *config.Config) (*App, error) {
	slogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}))
	logger := logging.NewSlogLogger(slogger)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	manager, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		return nil, fmt.Errorf("repository manager init error: %w", err)
	}
	if err := manager.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	store, err := buildStorage(cfg)
	if err != nil {
		return nil, fmt.Errorf("object store init error: %w", err)
	}

	replicaPort := buildReplica(cfg)
	registry := metrics.NewRegistry()

	hmacVerifier := auth.NewHMACVerifier(cfg.HMACAppKeys)
	bearerVerifier := auth.NewBearerVerifier(cfg.JWTSecret, "evidence-vault")
	tokenIssuer := auth.NewUploadTokenIssuer(cfg.JWTSecret)
	authenticator := httpapi.NewAuthenticator(hmacVerifier, bearerVerifier)

	artifactsRepo := manager.Artifacts(db)
	sessionsRepo := manager.Sessions(db)

	ingestionController := ingestion.NewController(
		db, sessionsRepo, artifactsRepo, store, replicaPort, tokenIssuer,
		registry, logger, cfg.MaxUploadBytes, cfg.UploadSessionTTL, cfg.DownloadURLTTL,
	)
	retrievalController := retrieval.NewController(db, artifactsRepo, store, registry, cfg.DownloadURLTTL)
	adminController := admin.NewController(db, artifactsRepo, store, replicaPort, logger)

	handler := httpapi.NewServer(cfg, logger, registry, authenticator, ingestionController, retrievalController, adminController, db.Ping).Handler()

	return &App{
		config: cfg,
		logger: logger,
		db:     db,
		srv:    httpapi.NewHTTPServer(":"+cfg.Port, handler),
	}, nil
}

func buildStorage(cfg *config.Config) (storage.Port, error) {
	if cfg.S3Endpoint != "" {
		return storage.NewS3Backend(context.Background(), storage.S3Config{
			Endpoint:       cfg.S3Endpoint,
			Region:         cfg.S3Region,
			Bucket:         cfg.S3Bucket,
			AccessKey:      cfg.S3AccessKey,
			SecretKey:      cfg.S3SecretKey,
			ForcePathStyle: cfg.S3ForcePathStyle,
		})
	}
	root := cfg.LocalStoragePath
	if root == "" {
		root = "./data/objects"
	}
	return storage.NewLocalBackend(root)
}

// buildReplica returns nil when IPFS_ENABLED is unset. The ingestion and
// admin controllers treat a nil replica.Port exactly like "replication
// disabled" rather than an error.
func buildReplica(cfg *config.Config) replica.Port {
	if !cfg.IPFSEnabled {
		return nil
	}
	if cfg.IPFSMode == "thirdparty" {
		return replica.NewThirdParty(cfg.IPFSAPIURL, cfg.IPFSAPIKey, cfg.IPFSGatewayURL)
	}
	return replica.NewSelfHosted(cfg.IPFSAPIURL)
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
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
	app.logger.Info(ctx, "starting http server", "addr", app.srv.Addr)
	if err := app.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until a termination signal arrives, then drains in-flight
// requests and closes the catalog connection.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app...")
	app.initSignalHandler(cancelFunc)

	go app.startHTTPServer(ctx, cancelFunc)

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := app.srv.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(ctx, "error during shutdown", "error", err)
	}
	return app.db.Close()
}
