package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asaskevich/EventBus"
	"golang.org/x/sync/errgroup"

	"github.com/amirhf/imageSearch/services/search-web/api"
	"github.com/amirhf/imageSearch/services/search-web/catalog"
	"github.com/amirhf/imageSearch/services/search-web/client"
	"github.com/amirhf/imageSearch/services/search-web/config"
	"github.com/amirhf/imageSearch/services/search-web/form"
	"github.com/amirhf/imageSearch/services/search-web/logging"
	"github.com/amirhf/imageSearch/services/search-web/session"
	"github.com/amirhf/imageSearch/services/search-web/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Storage
	store, err := storage.New(ctx, storage.Config{
		Driver:      cfg.History.Driver,
		RedisAddr:   cfg.History.RedisAddr,
		RedisPrefix: cfg.History.RedisPrefix,
		SQLiteDSN:   cfg.History.SQLiteDSN,
		DatabaseURL: cfg.History.DatabaseURL,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	bus := EventBus.New()
	recorder := storage.NewRecorder(store, logger)
	if err := bus.SubscribeAsync(form.TopicResolved, recorder.Handle, false); err != nil {
		return err
	}
	defer bus.WaitAsync()

	backend := client.New(client.Options{
		BaseURL: cfg.APIBase,
		Timeout: cfg.RequestTimeout,
		Logger:  logger,
	})

	sessions := session.New(func(id string) *form.Form {
		return form.New(backend,
			form.WithID(id),
			form.WithPublisher(bus),
			form.WithLogger(logger.With("session", id)))
	}, session.Config{TTL: cfg.SessionTTL, Logger: logger})
	defer sessions.Close()

	handler, err := api.NewHandler(api.Options{
		Sessions:     sessions,
		Catalog:      catalog.Default,
		History:      store,
		Backend:      backend,
		Logger:       logger,
		PageSize:     cfg.PickerPageSize,
		HistoryLimit: cfg.History.Limit,
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(handler, cfg.ImagesDir),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("search web running",
			"port", cfg.Port,
			"api_base", cfg.APIBase,
			"history", cfg.History.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", "error", err)
			return err
		}
		logger.Info("server stopped")
		return nil
	})
	return g.Wait()
}
