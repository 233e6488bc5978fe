package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/evoliveira/qasops/internal/domain/model"
	"github.com/evoliveira/qasops/internal/domain/port/driven"
)

// MergeService approves and completes active pull requests targeting the
// QAS branch.
type MergeService struct {
	prs        driven.PullRequestClient
	reviewerID string
	spec       model.MergeSpec
}

// NewMergeService creates a MergeService acting as the given reviewer
// identity with the given completion options.
func NewMergeService(prs driven.PullRequestClient, reviewerID string, spec model.MergeSpec) *MergeService {
	return &MergeService{
		prs:        prs,
		reviewerID: reviewerID,
		spec:       spec,
	}
}

// TargetResult reports the outcome of processing one repository.
type TargetResult struct {
	Target    model.WatchTarget
	Processed int
	Err       error
}

// ProcessAll runs ProcessTarget for each target, isolating failures per
// repository: one repository failing never prevents the rest from being
// processed. prIDs, when non-empty, applies to every selected repository.
func (s *MergeService) ProcessAll(ctx context.Context, targets []model.WatchTarget, prIDs []int) []TargetResult {
	results := make([]TargetResult, 0, len(targets))

	for _, target := range targets {
		if ctx.Err() != nil {
			results = append(results, TargetResult{Target: target, Err: ctx.Err()})
			continue
		}

		processed, err := s.ProcessTarget(ctx, target, prIDs)
		if err != nil {
			slog.Error("merge processing failed", "repo", target.DisplayName(), "error", err)
		}
		results = append(results, TargetResult{Target: target, Processed: processed, Err: err})
	}

	return results
}

// ProcessTarget approves and completes pull requests in one repository.
// With override ids it processes exactly those PRs; the PR payload is not
// available then, so completion is sent without a last merge source commit
// (the service accepts that). Otherwise it discovers active PRs targeting
// the branch and processes each with its discovered source commit for
// idempotent completion. It returns the number of PRs fully processed;
// the first failure aborts the repository.
func (s *MergeService) ProcessTarget(ctx context.Context, target model.WatchTarget, prIDs []int) (int, error) {
	type prItem struct {
		id         int
		lastCommit string
	}

	var items []prItem
	if len(prIDs) > 0 {
		for _, id := range prIDs {
			items = append(items, prItem{id: id})
		}
	} else {
		prs, err := s.prs.ListActive(ctx, target.Project, target.RepoID, target.Branch)
		if err != nil {
			return 0, fmt.Errorf("listing active PRs: %w", err)
		}

		if len(prs) == 0 {
			slog.Info("no active PRs for target branch", "repo", target.DisplayName(), "branch", target.Branch)
			return 0, nil
		}

		for _, pr := range prs {
			items = append(items, prItem{id: pr.ID, lastCommit: pr.LastMergeCommit})
		}
	}

	processed := 0
	for _, item := range items {
		slog.Info("approving PR", "repo", target.DisplayName(), "pr", item.id)
		if err := s.prs.Approve(ctx, target.Project, target.RepoID, item.id, s.reviewerID); err != nil {
			return processed, fmt.Errorf("approving PR %d: %w", item.id, err)
		}

		slog.Info("completing PR", "repo", target.DisplayName(), "pr", item.id, "last_commit", item.lastCommit)
		if err := s.prs.Complete(ctx, target.Project, target.RepoID, item.id, item.lastCommit, s.spec); err != nil {
			return processed, fmt.Errorf("completing PR %d: %w", item.id, err)
		}

		processed++
	}

	return processed, nil
}
