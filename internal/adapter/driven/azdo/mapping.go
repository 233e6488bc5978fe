package azdo

import (
	"time"

	"github.com/microsoft/azure-devops-go-api/azuredevops/v7"
	"github.com/microsoft/azure-devops-go-api/azuredevops/v7/build"
	"github.com/microsoft/azure-devops-go-api/azuredevops/v7/git"

	"github.com/evoliveira/qasops/internal/domain/model"
)

// mapBuild converts an SDK build record to the domain Build. All SDK fields
// are pointers; absent ones map to zero values.
func mapBuild(b *build.Build) model.Build {
	out := model.Build{}

	if b.Id != nil {
		out.ID = *b.Id
	}
	if b.BuildNumber != nil {
		out.Number = *b.BuildNumber
	}
	if b.Status != nil {
		out.Status = model.BuildStatus(*b.Status)
	}
	if b.Result != nil {
		out.Result = model.BuildResult(*b.Result)
	}
	out.QueueTime = mapTime(b.QueueTime)
	out.StartTime = mapTime(b.StartTime)
	out.FinishTime = mapTime(b.FinishTime)
	out.WebURL = webHref(b.Links)

	return out
}

// mapPullRequest converts an SDK pull request to the domain PullRequest.
func mapPullRequest(pr *git.GitPullRequest, repoID string) model.PullRequest {
	out := model.PullRequest{RepoID: repoID}

	if pr.PullRequestId != nil {
		out.ID = *pr.PullRequestId
	}
	if pr.Title != nil {
		out.Title = *pr.Title
	}
	if pr.SourceRefName != nil {
		out.SourceRef = *pr.SourceRefName
	}
	if pr.TargetRefName != nil {
		out.TargetRef = *pr.TargetRefName
	}
	if pr.CreatedBy != nil && pr.CreatedBy.DisplayName != nil {
		out.CreatedBy = *pr.CreatedBy.DisplayName
	}
	if pr.LastMergeSourceCommit != nil && pr.LastMergeSourceCommit.CommitId != nil {
		out.LastMergeCommit = *pr.LastMergeSourceCommit.CommitId
	}

	return out
}

// mapMergeStrategy converts the domain merge strategy to the SDK enum.
// Unknown values fall back to noFastForward, matching the configured
// default; config validation rejects them before they get here.
func mapMergeStrategy(s model.MergeStrategy) git.GitPullRequestMergeStrategy {
	switch s {
	case model.MergeSquash:
		return git.GitPullRequestMergeStrategyValues.Squash
	case model.MergeRebase:
		return git.GitPullRequestMergeStrategyValues.Rebase
	case model.MergeRebaseMerge:
		return git.GitPullRequestMergeStrategyValues.RebaseMerge
	default:
		return git.GitPullRequestMergeStrategyValues.NoFastForward
	}
}

func mapTime(t *azuredevops.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.Time
}

// webHref digs the "web" link out of the untyped _links payload. The SDK
// leaves reference links as interface{}, so this walks the expected
// map shape and returns "" on any mismatch.
func webHref(links interface{}) string {
	m, ok := links.(map[string]interface{})
	if !ok {
		return ""
	}
	web, ok := m["web"].(map[string]interface{})
	if !ok {
		return ""
	}
	href, _ := web["href"].(string)
	return href
}
