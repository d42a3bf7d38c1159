// Package server wires storage, token handling and the business services
// together and runs the HTTP API and the gRPC health listener until the
// process is signalled.
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

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/habittracker/internal/dbx"
	"github.com/dmitrijs2005/habittracker/internal/logging"
	"github.com/dmitrijs2005/habittracker/internal/server/auth"
	"github.com/dmitrijs2005/habittracker/internal/server/config"
	"github.com/dmitrijs2005/habittracker/internal/server/ratelimit"
	"github.com/dmitrijs2005/habittracker/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/habittracker/internal/server/services"
	"github.com/dmitrijs2005/habittracker/internal/server/tokens"

	gs "github.com/dmitrijs2005/habittracker/internal/server/grpc"
	hs "github.com/dmitrijs2005/habittracker/internal/server/http"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	redis  *redis.Client
	http   *hs.Server
	grpc   *gs.GRPCServer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.NewJSONLogger(os.Stdout, slog.LevelInfo)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	issuer, err := auth.NewIssuer(c.SecretKey, c.JWTIssuer, c.JWTAudience, c.AccessTokenValidityDuration)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("token issuer error: %w", err)
	}

	app := &App{config: c, logger: logger, db: db}

	var limiter ratelimit.LoginLimiter = ratelimit.Nop{}
	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		limiter = ratelimit.NewRedis(app.redis, c.MaxLoginAttempts, c.LoginCooldownDuration, logger)
	} else {
		logger.Warn(ctx, "redis address not set, login throttling disabled")
	}

	tx := dbx.NewTransactor(db, nil)
	rotator := tokens.NewRotator(db, tx, rm, logger)

	router := hs.NewRouter(hs.Services{
		Auth:    services.NewAuthService(db, rm, issuer, rotator, limiter, c.RefreshTokenValidityDuration, logger),
		Habits:  services.NewHabitService(db, rm, logger),
		Dailies: services.NewDailyService(db, tx, rm, logger),
		Tasks:   services.NewTaskService(db, rm, logger),
	}, issuer, c.CORSAllowedOrigins, logger)

	app.http = hs.NewServer(c.EndpointAddrHTTP, router, logger)
	app.grpc = gs.NewGRPCServer(c.EndpointAddrGRPC, logger)

	return app, nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

// runServer runs one listener and cancels the whole app if it fails.
func (app *App) runServer(ctx context.Context, cancelFunc context.CancelFunc, name string, run func(context.Context) error) {
	if err := run(ctx); err != nil {
		app.logger.Error(ctx, "server failed", "server", name, "error", err)
		cancelFunc()
	}
}

// Run blocks until a signal arrives or either listener fails, then releases
// the database and Redis connections.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(ctx, cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.runServer(ctx, cancelFunc, "http", app.http.Run)
	}()
	go func() {
		defer wg.Done()
		app.runServer(ctx, cancelFunc, "grpc", app.grpc.Run)
	}()

	wg.Wait()

	app.close(context.Background())
}

func (app *App) close(ctx context.Context) {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error(ctx, "redis close error", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
