package model

// PullRequest is an active change request targeting the QAS branch, as
// returned by the Azure DevOps Git API.
type PullRequest struct {
	ID              int
	Title           string
	RepoID          string
	SourceRef       string
	TargetRef       string
	CreatedBy       string
	LastMergeCommit string // Source commit id used for idempotent completion; may be empty.
}

// MergeStrategy selects how a pull request is merged on completion.
type MergeStrategy string

const (
	MergeNoFastForward MergeStrategy = "noFastForward"
	MergeSquash        MergeStrategy = "squash"
	MergeRebase        MergeStrategy = "rebase"
	MergeRebaseMerge   MergeStrategy = "rebaseMerge"
)

// MergeSpec carries the completion options applied when merging a PR.
type MergeSpec struct {
	Strategy           MergeStrategy
	DeleteSourceBranch bool
	BypassPolicy       bool // Requires bypass permission on the service side.
}

// ApproveVote is the reviewer vote value meaning "approved".
const ApproveVote = 10
