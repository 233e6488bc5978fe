// Command qasportal serves the REST façade consumed by the developer portal.
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

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	azdoadapter "github.com/evoliveira/qasops/internal/adapter/driven/azdo"
	sqliteadapter "github.com/evoliveira/qasops/internal/adapter/driven/sqlite"
	"github.com/evoliveira/qasops/internal/adapter/driven/teams"
	httphandler "github.com/evoliveira/qasops/internal/adapter/driving/http"
	"github.com/evoliveira/qasops/internal/application"
	"github.com/evoliveira/qasops/internal/config"
	"github.com/evoliveira/qasops/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequirePAT(); err != nil {
		return err
	}

	targets, err := config.LoadTargets(cfg.TargetsFile, cfg)
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"targets", len(targets),
		"branch", cfg.Branch,
		"db_path", cfg.DBPath,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := azdoadapter.NewClient(ctx, cfg.OrgURL, cfg.PAT)
	if err != nil {
		return err
	}

	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	outcomes := sqliteadapter.NewOutcomeRepo(db)

	var notifier driven.Notifier
	if cfg.HasWebhook() {
		notifier = teams.NewSink(cfg.WebhookURL)
	} else {
		slog.Info("no webhook configured, background watches will not notify")
	}

	mergeSvc := application.NewMergeService(client, cfg.ReviewerID, cfg.Merge)
	statusSvc := application.NewStatusService(client)
	startWatch := func(watchCfg application.WatchConfig) *application.WatchService {
		return application.NewWatchService(client, notifier, outcomes, watchCfg)
	}

	apiHandler := httphandler.NewHandler(targets, mergeSvc, statusSvc, client, outcomes, startWatch, cfg, slog.Default())
	handler := httphandler.NewServeMux(apiHandler, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
