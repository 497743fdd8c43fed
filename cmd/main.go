// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Shivanand-hulikatti/boardgame-meetup/internal/config"
	"github.com/Shivanand-hulikatti/boardgame-meetup/internal/database"
	"github.com/Shivanand-hulikatti/boardgame-meetup/internal/handler"
	"github.com/Shivanand-hulikatti/boardgame-meetup/internal/logger"
	"github.com/Shivanand-hulikatti/boardgame-meetup/internal/repository"
	"github.com/Shivanand-hulikatti/boardgame-meetup/internal/service"
	"go.uber.org/zap"
)

// repositories groups the storage backends the service needs.
type repositories struct {
	events    repository.EventRepository
	users     repository.UserRepository
	games     repository.GameRepository
	locations repository.LocationRepository
	close     func()
}

func main() {
	// ── 1. Configuration and logging ──────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zlog, err := logger.New(cfg.App.Environment, cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	os.Exit(exitCode(zlog, run(cfg, zlog)))
}

// exitCode logs err, flushes the logger and returns the process exit status.
// os.Exit skips deferred calls, so the flush happens here.
func exitCode(zlog *zap.Logger, err error) int {
	code := 0
	if err != nil {
		zlog.Error("server exited", zap.Error(err))
		code = 1
	}
	_ = zlog.Sync()
	return code
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	ctx := context.Background()

	// ── 2. Storage ────────────────────────────────────────────────────────
	repos, err := openRepositories(ctx, cfg, zlog)
	if err != nil {
		return err
	}
	defer repos.close()

	// ── 3. Wire up layers ────────────────────────────────────────────────
	eventSvc := service.NewEventService(repos.events, repos.users, repos.games, repos.locations, zlog)
	eventHandler := handler.NewEventHandler(eventSvc, zlog)

	// ── 4. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler.NewRouter(eventHandler, zlog),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		zlog.Info("server listening",
			zap.String("app", cfg.App.Name),
			zap.String("addr", srv.Addr),
			zap.String("storage", cfg.Storage.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Block until SIGINT or SIGTERM, or until the listener fails.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case sig := <-quit:
		zlog.Info("shutting down server", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	zlog.Info("server stopped")
	return nil
}

func openRepositories(ctx context.Context, cfg *config.Config, zlog *zap.Logger) (*repositories, error) {
	var repos *repositories
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		pool, err := database.NewPool(ctx, cfg.Database, zlog)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		if cfg.Database.Migrate {
			if err := database.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
			zlog.Info("schema applied")
		}
		repos = &repositories{
			events:    repository.NewPostgresEventRepository(pool),
			users:     repository.NewPostgresUserRepository(pool),
			games:     repository.NewPostgresGameRepository(pool),
			locations: repository.NewPostgresLocationRepository(pool),
			close:     pool.Close,
		}
	default:
		users := repository.NewMemoryUserRepository()
		games := repository.NewMemoryGameRepository()
		if err := repository.SeedReferenceData(users, games, cfg.Storage.SeedUsers, cfg.Storage.SeedGames); err != nil {
			return nil, fmt.Errorf("seed: %w", err)
		}
		repos = &repositories{
			events:    repository.NewMemoryEventRepository(),
			users:     users,
			games:     games,
			locations: repository.NewMemoryLocationRepository(),
			close:     func() {},
		}
		zlog.Warn("using in-memory storage, data is lost on restart")
	}

	if cfg.Redis.Enabled {
		client, err := database.NewRedis(ctx, cfg.Redis)
		if err != nil {
			repos.close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		repos.events = repository.NewCachedEventRepository(repos.events, client, cfg.Redis.TTL, zlog)
		closeStore := repos.close
		repos.close = func() {
			_ = client.Close()
			closeStore()
		}
		zlog.Info("event cache enabled", zap.String("addr", cfg.Redis.Addr))
	}
	return repos, nil
}
