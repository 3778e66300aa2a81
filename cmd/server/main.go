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

	"go.uber.org/automaxprocs/maxprocs"

	"github.com/apiliability/site/internal/api"
	"github.com/apiliability/site/internal/config"
	"github.com/apiliability/site/internal/layout"
	"github.com/apiliability/site/internal/notify"
	"github.com/apiliability/site/internal/paginate"
	"github.com/apiliability/site/internal/proposal"
	"github.com/apiliability/site/internal/source"
	"github.com/apiliability/site/internal/store"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Error ignored: Set only fails on an invalid GOMAXPROCS env and the
	// runtime default then applies.
	_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		log.Info(fmt.Sprintf(format, args...))
	}))

	cfg, err := config.Load()
	if err != nil {
		log.Error("loading configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if !cfg.AdminEnabled() {
		log.Warn("ADMIN_PASSWORD is not set; admin routes will reject every request")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage.
	st, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		log.Error("opening database", "error", err)
		os.Exit(1)
	}
	if err := st.EnsureSchema(ctx); err != nil {
		log.Error("creating schema", "error", err)
		os.Exit(1)
	}

	// Pagination.
	surface, err := layout.ForBackend(cfg.LayoutBackend, layout.BrowserOptions{
		Bin:    cfg.RodBrowserBin,
		Logger: log,
	}, layout.NewStats(time.Hour))
	if err != nil {
		log.Error("layout backend", "error", err)
		os.Exit(1)
	}
	prop, err := proposal.Load(cfg.ProposalPath, source.Options{
		PDFFallbackPdftotext: cfg.PDFFallbackPdftotext,
	}, paginate.New(surface), cfg.PageCacheTTL, log)
	if err != nil {
		log.Error("loading proposal", "path", cfg.ProposalPath, "error", err)
		os.Exit(1)
	}
	prop.Start(ctx)

	deps := api.Deps{Store: st, Proposal: prop, Layout: surface}

	// Notifications are optional.
	var (
		dispatcher *notify.Dispatcher
		webhook    *notify.Webhook
	)
	if cfg.NotifyWebhookURL != "" {
		webhook = notify.NewWebhook(cfg.NotifyWebhookURL, cfg.NotifyWebhookSecret, 0)
		dispatcher = notify.NewDispatcher(webhook, notify.Options{
			Workers:   cfg.NotifyWorkers,
			QueueSize: cfg.NotifyQueueSize,
			RetryBase: cfg.NotifyRetryBase,
			RetryMax:  cfg.NotifyRetryMax,
		}, log)
		dispatcher.Start(ctx)
		deps.Notifier = dispatcher
	}

	srv := api.NewServer(deps, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown", "error", err)
		}

		if dispatcher != nil {
			if err := dispatcher.Stop(shutdownCtx); err != nil {
				log.Warn("notifications not drained", "error", err)
			}
			webhook.Close()
		}
		prop.Stop()
		if err := surface.Close(); err != nil {
			log.Warn("closing layout backend", "error", err)
		}
		if err := st.Close(); err != nil {
			log.Warn("closing database", "error", err)
		}
	}()

	log.Info("starting site",
		"port", cfg.Port,
		"layout_backend", surface.Name(),
		"proposal", prop.Title(),
		"notify", dispatcher != nil,
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-done
}
