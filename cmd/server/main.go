package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	specpkg "github.com/crowdpetition/crowdpetition/api"
	"github.com/crowdpetition/crowdpetition/internal/api"
	"github.com/crowdpetition/crowdpetition/internal/api/handler"
	"github.com/crowdpetition/crowdpetition/internal/auth"
	"github.com/crowdpetition/crowdpetition/internal/config"
	"github.com/crowdpetition/crowdpetition/internal/database"
	"github.com/crowdpetition/crowdpetition/internal/petition"
	"github.com/crowdpetition/crowdpetition/internal/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	ctx := context.Background()

	db, err := database.New(ctx, cfg.DatabaseURL, database.WithMaxRetries(cfg.TxMaxRetries))
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if cfg.MigrateOnStart {
		if err := db.Migrate(ctx); err != nil {
			slog.Error("failed to apply migrations", "error", err)
			db.Close()
			os.Exit(1)
		}
	}

	redisClient, err := auth.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		slog.Error("failed to connect to redis", "error", err)
		db.Close()
		os.Exit(1)
	}

	sessions := auth.NewRedisSessionStore(redisClient, cfg.SessionTTL)

	router := api.NewRouter(api.RouterDeps{
		Petitions:   petition.NewService(petition.NewPostgresRepository(db)),
		Users:       user.NewService(user.NewRepository(db.Pool()), sessions, cfg.BcryptCost),
		Resolver:    auth.NewGuard(sessions),
		DBPinger:    db,
		RedisPinger: redisPinger(redisClient),
		Version:     cfg.Version,
		OpenAPISpec: specpkg.OpenAPISpec,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting crowdpetition server", "port", cfg.Port, "version", cfg.Version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-quit:
		slog.Info("shutting down server", "signal", sig.String())
	case err := <-serverErr:
		slog.Error("server error", "error", err)
		exitCode = 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		exitCode = 1
	}

	if err := redisClient.Close(); err != nil {
		slog.Warn("failed to close redis client", "error", err)
	}
	db.Close()

	if exitCode != 0 {
		os.Exit(exitCode)
	}
	slog.Info("server stopped gracefully")
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(logHandler))
}

func redisPinger(client *redis.Client) handler.Pinger {
	return handler.PingFunc(func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}
