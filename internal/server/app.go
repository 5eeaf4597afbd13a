// Package server initializes and runs the auth application: it opens the
// database, runs migrations, wires the service layer and starts the HTTP
// server with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/akrylov/authgate/internal/logging"
	"github.com/akrylov/authgate/internal/server/auth"
	"github.com/akrylov/authgate/internal/server/config"
	"github.com/akrylov/authgate/internal/server/httpapi"
	"github.com/akrylov/authgate/internal/server/mail"
	"github.com/akrylov/authgate/internal/server/observability"
	"github.com/akrylov/authgate/internal/server/repositories/repomanager"
	"github.com/akrylov/authgate/internal/server/services"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	httpServer *httpapi.Server
}

func NewApp(cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	codec := auth.NewCodec([]byte(cfg.SecretKey), cfg.JWTIssuer, cfg.AccessTokenValidity)
	mailer := mail.NewHTTPMailer(cfg.MailEndpoint, cfg.MailAPIKey, cfg.MailFromEmail, cfg.MailFromName)
	templates := mail.NewTemplateBuilder(cfg.PublicBaseURL)

	svc := services.NewAuthService(db, rm, codec, mailer, templates, logger, metrics, cfg)
	httpServer := httpapi.NewServer(cfg.EndpointAddr, svc, logger, registry, cfg.RefreshTokenValidity)

	return &App{config: cfg, logger: logger, db: db, httpServer: httpServer}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
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

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, err.Error())
	}
}
