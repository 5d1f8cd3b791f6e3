// Package main запускает HTTP-сервер сервиса шелтерлинк.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/shelterlink-system/internal/config"
	"github.com/mmeshcher/shelterlink-system/internal/geo"
	"github.com/mmeshcher/shelterlink-system/internal/handler"
	"github.com/mmeshcher/shelterlink-system/internal/ledger"
	"github.com/mmeshcher/shelterlink-system/internal/middleware"
	"github.com/mmeshcher/shelterlink-system/internal/search"
	"github.com/mmeshcher/shelterlink-system/internal/store"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	st, err := newStore(cfg)
	if err != nil {
		sugar.Fatalw("store initialization error", "error", err.Error())
	}

	var geoClient *geo.Client
	if cfg.GeoSystemAddress != "" {
		geoClient = geo.NewClient(cfg.GeoSystemAddress)
	}

	ldg := ledger.New(st, geoClient)
	defer ldg.Close()

	sessions := search.NewSessionStore()

	sessionMiddleware := middleware.NewSessionMiddleware(cfg.SessionSecret)
	h := handler.NewHandler(ldg, sessions, logger, sessionMiddleware, cfg.AllowedOrigins)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Запуск фоновой чистки устаревших сессий поиска
	g.Go(func() error {
		sessions.StartCleanup(ctx)
		return nil
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting shelterlink server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}

// newStore выбирает реализацию документного хранилища по конфигурации:
// размещённое хранилище по HTTP либо PostgreSQL.
func newStore(cfg *config.Config) (ledger.Store, error) {
	if cfg.StoreAddress != "" {
		return store.NewHTTPClient(cfg.StoreAddress), nil
	}

	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("either STORE_ADDRESS or DATABASE_URI must be set")
	}

	return store.NewPostgresStore(cfg.DatabaseURI)
}
