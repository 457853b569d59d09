package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/calendar-bridge/internal/application"
	"github.com/example/calendar-bridge/internal/config"
	"github.com/example/calendar-bridge/internal/directory"
	httptransport "github.com/example/calendar-bridge/internal/http"
	"github.com/example/calendar-bridge/internal/logging"
	"github.com/example/calendar-bridge/internal/notify"
	"github.com/example/calendar-bridge/internal/memdriver"
	"github.com/example/calendar-bridge/internal/reconcile"
	"github.com/example/calendar-bridge/internal/remote"
)

func main() {
	logger := logging.New(os.Stdout, slog.LevelInfo)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	registry, err := config.LoadRegistry(cfg.RegistryPath)
	if err != nil {
		logger.Error("failed to load node registry", "error", err)
		os.Exit(1)
	}

	store, err := directory.Open(cfg.DirectoryDSN)
	if err != nil {
		logger.Error("failed to open account directory", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close account directory", "error", cerr)
		}
	}()

	dialer, err := newDialer(cfg.Driver)
	if err != nil {
		logger.Error("failed to initialise calendar driver", "error", err, "driver", cfg.Driver)
		os.Exit(1)
	}

	factory := remote.NewConnFactory(dialer, logger)
	pool := remote.NewPool(factory, remote.PoolConfig{
		MaxPerNode:    cfg.PoolMaxPerNode,
		BorrowTimeout: cfg.PoolBorrowTimeout,
	}, logger)
	defer pool.Close()

	engine := reconcile.NewEngine(notify.NewLogPublisher(logger), logger)
	service := application.NewCalendarService(registry, application.NewPooledSessions(pool), engine, store, logger, nil, time.Now)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Pool:      httptransport.NewPoolHandler(pool, logger),
		Directory: httptransport.NewDirectoryHandler(store, service, logger),
	})

	admin := httptransport.RequireAdmin(cfg.AdminUser, cfg.AdminPasswordHash, logger)(router)
	handler := httptransport.RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			router.ServeHTTP(w, r)
			return
		}
		admin.ServeHTTP(w, r)
	}))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("calendar bridge listening", "addr", server.Addr, "nodes", len(registry.Nodes()), "driver", cfg.Driver)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// newDialer selects the calendar protocol driver. Only the in-memory driver
// ships in this module; native drivers register here.
func newDialer(driver string) (remote.Dialer, error) {
	switch driver {
	case "memory":
		return memdriver.New(), nil
	default:
		return nil, fmt.Errorf("unknown calendar driver %q", driver)
	}
}
