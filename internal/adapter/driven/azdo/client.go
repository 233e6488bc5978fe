// Package azdo implements the BuildClient and PullRequestClient ports using
// the official Azure DevOps Go SDK.
package azdo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/microsoft/azure-devops-go-api/azuredevops/v7"
	"github.com/microsoft/azure-devops-go-api/azuredevops/v7/build"
	"github.com/microsoft/azure-devops-go-api/azuredevops/v7/git"

	"github.com/evoliveira/qasops/internal/domain/model"
	"github.com/evoliveira/qasops/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.BuildClient       = (*Client)(nil)
	_ driven.PullRequestClient = (*Client)(nil)
)

// repositoryType is fixed: all watched repositories are Azure Repos Git.
const repositoryType = "TfsGit"

// activeLookback is how many newest-queued builds FindActive inspects when
// picking the in-flight one.
const activeLookback = 3

// prPageSize is the page size used when listing active pull requests.
const prPageSize = 200

// Client implements the driven ports against Azure DevOps. A single Client
// serves both the Build and Git APIs over one authenticated connection.
type Client struct {
	builds build.Client
	git    git.Client
}

// NewClient creates a Client authenticated with a personal access token
// (basic auth with an empty username, the way the service expects PATs).
func NewClient(ctx context.Context, orgURL, pat string) (*Client, error) {
	conn := azuredevops.NewPatConnection(orgURL, pat)

	buildClient, err := build.NewClient(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("creating build client: %w", err)
	}

	gitClient, err := git.NewClient(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("creating git client: %w", err)
	}

	return &Client{builds: buildClient, git: gitClient}, nil
}

// Verify performs a cheap permission preflight: listing a single build in
// the given project. A 401 here means the token is invalid or expired, or
// lacks the Build Read scope; failing fast beats a confusing watch run.
func (c *Client) Verify(ctx context.Context, project string) error {
	top := 1
	_, err := c.builds.GetBuilds(ctx, build.GetBuildsArgs{
		Project: &project,
		Top:     &top,
	})
	if err != nil {
		return queryError("verify build access", err)
	}
	return nil
}

// FindActive returns the most recently queued non-completed build for the
// target, or nil when nothing is in flight. The newest few builds are
// listed in queue-time-descending order and the first non-completed entry
// wins; with concurrent builds on the branch only the newest is tracked.
func (c *Client) FindActive(ctx context.Context, target model.WatchTarget) (*model.Build, error) {
	order := build.BuildQueryOrderValues.QueueTimeDescending
	top := activeLookback
	repoID := target.RepoID
	repoType := repositoryType

	args := build.GetBuildsArgs{
		Project:        &target.Project,
		RepositoryId:   &repoID,
		RepositoryType: &repoType,
		BranchName:     &target.Branch,
		QueryOrder:     &order,
		Top:            &top,
	}
	if target.DefinitionID != 0 {
		args.Definitions = &[]int{target.DefinitionID}
	}

	resp, err := c.builds.GetBuilds(ctx, args)
	if err != nil {
		return nil, queryError("find active build", err)
	}

	for i := range resp.Value {
		b := &resp.Value[i]
		if b.Status == nil || *b.Status != build.BuildStatusValues.Completed {
			mapped := mapBuild(b)
			return &mapped, nil
		}
	}

	return nil, nil
}

// FindLatestCompleted returns the most recently finished build for the
// target, or nil when the branch has never built.
func (c *Client) FindLatestCompleted(ctx context.Context, target model.WatchTarget) (*model.Build, error) {
	order := build.BuildQueryOrderValues.FinishTimeDescending
	status := build.BuildStatusValues.Completed
	top := 1
	repoID := target.RepoID
	repoType := repositoryType

	args := build.GetBuildsArgs{
		Project:        &target.Project,
		RepositoryId:   &repoID,
		RepositoryType: &repoType,
		BranchName:     &target.Branch,
		StatusFilter:   &status,
		QueryOrder:     &order,
		Top:            &top,
	}
	if target.DefinitionID != 0 {
		args.Definitions = &[]int{target.DefinitionID}
	}

	resp, err := c.builds.GetBuilds(ctx, args)
	if err != nil {
		return nil, queryError("find latest completed build", err)
	}

	if len(resp.Value) == 0 {
		return nil, nil
	}

	mapped := mapBuild(&resp.Value[0])
	return &mapped, nil
}

// Fetch returns the full current record for a known build id.
func (c *Client) Fetch(ctx context.Context, project string, buildID int) (*model.Build, error) {
	b, err := c.builds.GetBuild(ctx, build.GetBuildArgs{
		Project: &project,
		BuildId: &buildID,
	})
	if err != nil {
		return nil, queryError(fmt.Sprintf("fetch build %d", buildID), err)
	}

	mapped := mapBuild(b)
	return &mapped, nil
}

// ListActive returns all active pull requests in the repository targeting
// targetRef, paginating with top/skip until a short page.
func (c *Client) ListActive(ctx context.Context, project, repoID, targetRef string) ([]model.PullRequest, error) {
	active := git.PullRequestStatusValues.Active
	criteria := git.GitPullRequestSearchCriteria{
		Status:        &active,
		TargetRefName: &targetRef,
	}

	var all []model.PullRequest
	top := prPageSize
	skip := 0

	for {
		prs, err := c.git.GetPullRequests(ctx, git.GetPullRequestsArgs{
			RepositoryId:   &repoID,
			Project:        &project,
			SearchCriteria: &criteria,
			Top:            &top,
			Skip:           &skip,
		})
		if err != nil {
			return nil, queryError("list active pull requests", err)
		}

		for i := range *prs {
			all = append(all, mapPullRequest(&(*prs)[i], repoID))
		}

		if len(*prs) < top {
			break
		}
		skip += top
	}

	return all, nil
}

// Approve casts an approving vote on the pull request for reviewerID.
func (c *Client) Approve(ctx context.Context, project, repoID string, prID int, reviewerID string) error {
	vote := model.ApproveVote
	reviewer, err := c.git.CreatePullRequestReviewer(ctx, git.CreatePullRequestReviewerArgs{
		Reviewer:      &git.IdentityRefWithVote{Vote: &vote},
		RepositoryId:  &repoID,
		PullRequestId: &prID,
		ReviewerId:    &reviewerID,
		Project:       &project,
	})
	if err != nil {
		return queryError(fmt.Sprintf("approve PR %d", prID), err)
	}

	if reviewer != nil && reviewer.Vote != nil {
		slog.Debug("reviewer vote recorded", "pr", prID, "vote", *reviewer.Vote)
	}

	return nil
}

// Complete merges the pull request with the given completion options.
// lastCommit, when known, is forwarded so completion is idempotent against
// a source branch that moved since discovery.
func (c *Client) Complete(ctx context.Context, project, repoID string, prID int, lastCommit string, spec model.MergeSpec) error {
	completed := git.PullRequestStatusValues.Completed
	strategy := mapMergeStrategy(spec.Strategy)
	deleteSource := spec.DeleteSourceBranch
	bypass := spec.BypassPolicy

	update := git.GitPullRequest{
		Status: &completed,
		CompletionOptions: &git.GitPullRequestCompletionOptions{
			MergeStrategy:      &strategy,
			DeleteSourceBranch: &deleteSource,
			BypassPolicy:       &bypass,
		},
	}
	if lastCommit != "" {
		update.LastMergeSourceCommit = &git.GitCommitRef{CommitId: &lastCommit}
	}

	result, err := c.git.UpdatePullRequest(ctx, git.UpdatePullRequestArgs{
		GitPullRequestToUpdate: &update,
		RepositoryId:           &repoID,
		PullRequestId:          &prID,
		Project:                &project,
	})
	if err != nil {
		return queryError(fmt.Sprintf("complete PR %d", prID), err)
	}

	if result != nil && result.MergeStatus != nil {
		slog.Debug("pull request completed", "pr", prID, "merge_status", *result.MergeStatus)
	}

	return nil
}

// queryError converts an SDK error into the domain *model.QueryError,
// preserving the service status code and message. Errors that are not
// service responses (transport failures, context cancellation) pass through
// wrapped.
func queryError(op string, err error) error {
	var wrapped azuredevops.WrappedError
	if errors.As(err, &wrapped) {
		status := 0
		if wrapped.StatusCode != nil {
			status = *wrapped.StatusCode
		}
		body := ""
		if wrapped.Message != nil {
			body = *wrapped.Message
		}
		return &model.QueryError{Op: op, StatusCode: status, Body: body}
	}

	return fmt.Errorf("%s: %w", op, err)
}
