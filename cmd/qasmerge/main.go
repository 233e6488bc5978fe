// Command qasmerge approves and completes active pull requests targeting the
// QAS branch across the configured repositories.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	azdoadapter "github.com/evoliveira/qasops/internal/adapter/driven/azdo"
	"github.com/evoliveira/qasops/internal/application"
	"github.com/evoliveira/qasops/internal/config"
)

var (
	flagRepos []string
	flagPRs   []int
)

var rootCmd = &cobra.Command{
	Use:   "qasmerge",
	Short: "Approve and merge active PRs targeting the QAS branch",
	Long: `qasmerge discovers active pull requests whose target ref matches the QAS
branch for each configured repository, approves each one as the configured
reviewer identity, and completes the merge.

With --prs it skips discovery and processes exactly those PR ids in every
selected repository.`,
	SilenceUsage: true,
	RunE:         runMerge,
}

func init() {
	rootCmd.Flags().StringSliceVar(&flagRepos, "repos", nil, "Restrict to these repository ids or aliases")
	rootCmd.Flags().IntSliceVar(&flagPRs, "prs", nil, "Process exactly these PR ids instead of discovering active ones")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func runMerge(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequirePAT(); err != nil {
		return err
	}
	if err := cfg.RequireReviewer(); err != nil {
		return err
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

	svc := application.NewMergeService(client, cfg.ReviewerID, cfg.Merge)

	slog.Info("merge run starting",
		"targets", len(targets),
		"branch", cfg.Branch,
		"strategy", string(cfg.Merge.Strategy),
		"pr_overrides", len(flagPRs),
	)

	var failures int
	for _, result := range svc.ProcessAll(ctx, targets, flagPRs) {
		if result.Err != nil {
			failures++
			continue
		}
		slog.Info("repository processed", "repo", result.Target.DisplayName(), "prs", result.Processed)
	}

	if failures > 0 {
		slog.Warn("merge run finished with failures", "failed_repos", failures)
	}

	return nil
}
