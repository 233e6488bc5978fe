package driven

import (
	"context"

	"github.com/evoliveira/qasops/internal/domain/model"
)

// PullRequestClient defines the driven port for the source-control review
// service: list, approve, and complete change requests.
type PullRequestClient interface {
	// ListActive returns all active pull requests in the repository whose
	// target ref matches targetRef. The adapter paginates as needed.
	ListActive(ctx context.Context, project, repoID, targetRef string) ([]model.PullRequest, error)

	// Approve casts an approving vote on the pull request as the given
	// reviewer identity.
	Approve(ctx context.Context, project, repoID string, prID int, reviewerID string) error

	// Complete merges the pull request with the given options. lastCommit,
	// when non-empty, is sent as the last known source commit so completion
	// is idempotent against concurrent pushes.
	Complete(ctx context.Context, project, repoID string, prID int, lastCommit string, spec model.MergeSpec) error
}
