package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"wallswitch/internal/app"
	"wallswitch/internal/handlers"
	"wallswitch/internal/logging"
	"wallswitch/internal/media"
	"wallswitch/internal/metrics"
	"wallswitch/internal/middleware"
	"wallswitch/internal/startup"

	"github.com/gorilla/mux"
)

func main() {
	startTime := time.Now()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, startup.Commit, runtime.Version())

	if config.VipsEnabled {
		if err := media.InitVips(); err != nil {
			logging.Warn("libvips unavailable, continuing without it: %v", err)
		} else {
			defer media.ShutdownVips()
		}
	}
	startup.LogScannerInit(config.ScanWorkers, media.IsVipsAvailable())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Open the catalog and wire components
	dbStart := time.Now()
	a, err := app.New(ctx, config, app.Options{})
	if err != nil {
		startup.LogFatal("Failed to initialize: %v", err)
	}
	startup.LogDatabaseInit(time.Since(dbStart))

	startup.LogSchedulerInit(a.Intervals())
	if err := a.Start(ctx); err != nil {
		a.Close()
		startup.LogFatal("Failed to start scheduler: %v", err)
	}

	var srv *http.Server
	if config.MetricsEnabled {
		h := handlers.New(handlers.Deps{
			Refresh: a.Sync,
			Worker:  a.Host,
			Stats:   a.Catalog,
			Tasks:   a.Scheduler,
			Locks:   a.Locks,
		})
		router := setupRouter(h)
		startup.LogHTTPRoutes(router)

		handler := middleware.Metrics(middleware.DefaultMetricsConfig())(router)
		handler = middleware.Logger(middleware.DefaultLoggingConfig())(handler)

		srv = &http.Server{
			Addr:              ":" + config.MetricsPort,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	startup.LogServerStarted(startup.ServerConfig{
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})

	waitForShutdown(a)
	handleShutdown(srv, a)
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")
	r.HandleFunc("/api/status", h.GetStatus).Methods("GET")
	r.Handle("/metrics", h.MetricsHandler()).Methods("GET")

	return r
}

// waitForShutdown blocks until SIGINT or SIGTERM. SIGHUP reloads the
// settings file and reschedules tasks.
func waitForShutdown(a *app.App) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for sig := range sigChan {
		if sig != syscall.SIGHUP {
			startup.LogShutdownInitiated(sig.String())
			return
		}
		if err := a.Settings.Reload(); err != nil {
			logging.Error("Settings reload failed, keeping previous settings: %v", err)
			continue
		}
		if err := a.Reschedule(); err != nil {
			logging.Error("Rescheduling after reload failed: %v", err)
			continue
		}
		logging.Info("Settings reloaded from %s", a.Settings.Path())
	}
}

func handleShutdown(srv *http.Server, a *app.App) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if srv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := srv.Shutdown(ctx); err != nil {
			logging.Warn("Server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Stopping scheduler and scanner")
	if err := a.Close(); err != nil {
		logging.Warn("Close error: %v", err)
	} else {
		startup.LogShutdownStepComplete("Scheduler, scanner and catalog closed")
	}

	startup.LogShutdownComplete()
}
