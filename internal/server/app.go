// Package server wires the farmtrack API together: logging, storage,
// token codecs, the route policy, the authentication service and the HTTP
// server, plus the background purge of expired token rows.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/farmtrack/internal/cryptox"
	"github.com/dmitrijs2005/farmtrack/internal/dbx"
	"github.com/dmitrijs2005/farmtrack/internal/logging"
	"github.com/dmitrijs2005/farmtrack/internal/server/auth"
	"github.com/dmitrijs2005/farmtrack/internal/server/config"
	"github.com/dmitrijs2005/farmtrack/internal/server/httpapi"
	"github.com/dmitrijs2005/farmtrack/internal/server/repositories/memory"
	"github.com/dmitrijs2005/farmtrack/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/farmtrack/internal/server/services"
	"github.com/gin-gonic/gin"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	service *services.AuthService
	server  *httpapi.Server
}

// openPostgres is a seam for tests.
var openPostgres = repomanager.OpenPostgres

// NewApp builds every component but starts nothing. Options are passed to
// the HTTP server (e.g. httpapi.WithRoutes).
func NewApp(ctx context.Context, c *config.Config, logOut io.Writer, opts ...httpapi.Option) (*App, error) {
	logger, err := logging.New(c.LogFormat, c.LogLevel, logOut)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	app := &App{config: c, logger: logger}

	tx, repos, err := app.openStorage(ctx)
	if err != nil {
		return nil, err
	}

	access, err := auth.NewCodec(auth.KindAccess, c.AccessSecret, c.AccessTokenTTL)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("access codec: %w", err)
	}
	refresh, err := auth.NewCodec(auth.KindRefresh, c.RefreshSecret, c.RefreshTokenTTL)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("refresh codec: %w", err)
	}

	policy, err := auth.LoadPolicy(c.PolicyFile)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.service, err = services.NewAuthService(tx, repos, cryptox.NewBcryptHasher(c.BcryptCost), access, refresh,
		services.WithAdminSignUp(c.AllowAdminSignUp),
		services.WithLogger(logger),
	)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("auth service init error: %w", err)
	}

	if !strings.EqualFold(c.LogLevel, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}
	opts = append([]httpapi.Option{httpapi.WithRateLimit(c.SignInRate, c.SignInBurst)}, opts...)
	app.server = httpapi.NewServer(c.HTTPAddr, logger, app.service, policy, opts...)

	return app, nil
}

func (app *App) openStorage(ctx context.Context) (dbx.Transactor, repomanager.RepositoryManager, error) {
	if app.config.Storage == config.StorageMemory {
		app.logger.Warn(ctx, "Using in-memory storage, state is lost on restart")
		store := memory.NewStore()
		return store, store, nil
	}

	db, err := openPostgres(ctx, app.config.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("db init error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("db migration error: %w", err)
	}

	app.db = db
	return dbx.NewSQLTransactor(db, nil), m, nil
}

// Service exposes the authentication service (bootstrap tooling).
func (app *App) Service() *services.AuthService {
	return app.service
}

// Handler exposes the HTTP handler.
func (app *App) Handler() http.Handler {
	return app.server.Handler()
}

// Close releases the database connection, if any.
func (app *App) Close() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(context.Background(), "db close error", "error", err)
		}
		app.db = nil
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) func() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	done := make(chan struct{})
	go func() {
		select {
		case <-sigs:
			cancelFunc()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is canceled or a termination signal arrives, then
// waits for the server and the purge worker to stop and closes storage.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "storage", app.config.Storage, "address", app.config.HTTPAddr)

	stopSignals := app.initSignalHandler(cancelFunc)
	defer stopSignals()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runPurger(ctx, app.service, app.config.PurgeInterval, app.logger)
	}()

	wg.Wait()
	app.Close()
	app.logger.Info(context.Background(), "App stopped")
}
