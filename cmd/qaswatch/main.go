// Command qaswatch watches CI pipelines on the QAS branch per repository and
// posts outcome notifications to the team webhook.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	azdoadapter "github.com/evoliveira/qasops/internal/adapter/driven/azdo"
	"github.com/evoliveira/qasops/internal/adapter/driven/teams"
	"github.com/evoliveira/qasops/internal/application"
	"github.com/evoliveira/qasops/internal/config"
	"github.com/evoliveira/qasops/internal/domain/port/driven"
)

var (
	flagOnce       bool
	flagTimeoutMin int
	flagPollSec    int
	flagRepos      []string
)

var rootCmd = &cobra.Command{
	Use:   "qaswatch",
	Short: "Watch QAS pipelines per repository and notify the team webhook",
	Long: `qaswatch observes the CI pipeline on the QAS branch for each configured
repository: it waits for the running build to finish (or for one to start),
then posts the outcome to the configured webhook.

With --once it does a single check and reports the last completed build when
nothing is running, instead of waiting for a new build to appear.`,
	SilenceUsage: true,
	RunE:         runWatch,
}

func init() {
	rootCmd.Flags().BoolVar(&flagOnce, "once", false, "Single check; do not wait for a build to start")
	rootCmd.Flags().IntVar(&flagTimeoutMin, "timeout-min", 0, "Max minutes to wait per repository (default from QASOPS_MAX_WAIT)")
	rootCmd.Flags().IntVar(&flagPollSec, "poll-sec", 0, "Seconds between polls (default from QASOPS_POLL_INTERVAL)")
	rootCmd.Flags().StringSliceVar(&flagRepos, "repos", nil, "Restrict to these repository ids or aliases")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequirePAT(); err != nil {
		return err
	}

	if flagTimeoutMin > 0 {
		cfg.MaxWait = max(time.Duration(flagTimeoutMin)*time.Minute, config.MinMaxWait)
	}
	if flagPollSec > 0 {
		cfg.PollInterval = max(time.Duration(flagPollSec)*time.Second, config.MinPollInterval)
	}

	targets, err := config.LoadTargets(cfg.TargetsFile, cfg)
	if err != nil {
		return err
	}
	targets, err = config.FilterTargets(targets, flagRepos)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	client, err := azdoadapter.NewClient(ctx, cfg.OrgURL, cfg.PAT)
	if err != nil {
		return err
	}

	if err := client.Verify(ctx, targets[0].Project); err != nil {
		return fmt.Errorf("permission preflight failed (check PAT scope and expiry): %w", err)
	}

	var notifier driven.Notifier
	if cfg.HasWebhook() {
		notifier = teams.NewSink(cfg.WebhookURL)
	} else {
		slog.Info("no webhook configured, outcomes will be logged only")
	}

	svc := application.NewWatchService(client, notifier, nil, application.WatchConfig{
		PollInterval:    cfg.PollInterval,
		StartupInterval: config.DefaultPollInterval,
		MaxWait:         cfg.MaxWait,
	})

	slog.Info("watch starting",
		"targets", len(targets),
		"branch", cfg.Branch,
		"once", flagOnce,
		"poll_interval", cfg.PollInterval,
		"max_wait", cfg.MaxWait,
	)

	svc.WatchAll(ctx, targets, flagOnce)
	return nil
}
