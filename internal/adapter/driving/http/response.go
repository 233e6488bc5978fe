package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/evoliveira/qasops/internal/application"
	"github.com/evoliveira/qasops/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// HealthResponse reports process liveness and which credentials are present.
type HealthResponse struct {
	Status             string `json:"status"`
	PATConfigured      bool   `json:"pat_configured"`
	ReviewerConfigured bool   `json:"reviewer_id_configured"`
	WebhookConfigured  bool   `json:"webhook_configured"`
	Time               string `json:"time"`
}

// ApproveMergeRequest selects which repositories and optionally which
// specific PR ids to approve and complete.
type ApproveMergeRequest struct {
	RepoIDs []string `json:"repo_ids,omitempty"`
	PRIDs   []int    `json:"pr_ids,omitempty"`
}

// RepoResultResponse is the per-repository outcome row of an approve-merge run.
type RepoResultResponse struct {
	RepoID    string `json:"repo_id"`
	Alias     string `json:"alias"`
	Processed int    `json:"processed"`
}

// RepoErrorResponse is the per-repository failure row of an approve-merge run.
type RepoErrorResponse struct {
	RepoID string `json:"repo_id"`
	Alias  string `json:"alias"`
	Error  string `json:"error"`
}

// ApproveMergeResponse carries per-repository results with failures isolated
// into their own list; one failing repository never hides the others.
type ApproveMergeResponse struct {
	Success bool                 `json:"success"`
	Results []RepoResultResponse `json:"results"`
	Errors  []RepoErrorResponse  `json:"errors"`
}

// PRResponse is the JSON representation of an active pull request.
type PRResponse struct {
	ID         int    `json:"id"`
	RepoID     string `json:"repo_id"`
	Alias      string `json:"alias"`
	Title      string `json:"title"`
	CreatedBy  string `json:"created_by"`
	SourceRef  string `json:"source_ref"`
	TargetRef  string `json:"target_ref"`
	LastCommit string `json:"last_merge_source_commit,omitempty"`
}

// ActivePRsResponse lists active PRs with per-repository error rows.
type ActivePRsResponse struct {
	Count  int                 `json:"count"`
	PRs    []PRResponse        `json:"prs"`
	Errors []RepoErrorResponse `json:"errors"`
}

// BuildResponse is the JSON representation of one build record.
type BuildResponse struct {
	ID       int    `json:"id"`
	Number   string `json:"build_number"`
	Status   string `json:"status"`
	Result   string `json:"result,omitempty"`
	Duration string `json:"duration"`
	Link     string `json:"link,omitempty"`
}

// PipelineStatusResponse is the per-repository snapshot row.
type PipelineStatusResponse struct {
	RepoID    string         `json:"repo_id"`
	Alias     string         `json:"alias"`
	IsRunning bool           `json:"is_running"`
	Build     *BuildResponse `json:"build,omitempty"`
	Status    string         `json:"status,omitempty"` // "no_builds" when the branch never built.
	Error     string         `json:"error,omitempty"`
}

// OutcomeResponse is one row of the watch outcome history.
type OutcomeResponse struct {
	RepoID      string `json:"repo_id"`
	Alias       string `json:"alias"`
	BuildID     int    `json:"build_id,omitempty"`
	BuildNumber string `json:"build_number,omitempty"`
	Kind        string `json:"kind"`
	Result      string `json:"result,omitempty"`
	Duration    string `json:"duration,omitempty"`
	Link        string `json:"link,omitempty"`
	ObservedAt  string `json:"observed_at"`
}

// WatchRequest starts a background watch run.
type WatchRequest struct {
	RepoIDs    []string `json:"repo_ids,omitempty"`
	Once       bool     `json:"once"`
	TimeoutMin int      `json:"timeout_min,omitempty"`
	PollSec    int      `json:"poll_sec,omitempty"`
}

// WatchResponse acknowledges an accepted background watch run.
type WatchResponse struct {
	Message string   `json:"message"`
	Repos   []string `json:"repos"`
	Once    bool     `json:"once"`
}

func toPRResponse(pr model.PullRequest, alias string) PRResponse {
	return PRResponse{
		ID:         pr.ID,
		RepoID:     pr.RepoID,
		Alias:      alias,
		Title:      pr.Title,
		CreatedBy:  pr.CreatedBy,
		SourceRef:  pr.SourceRef,
		TargetRef:  pr.TargetRef,
		LastCommit: pr.LastMergeCommit,
	}
}

func toBuildResponse(b *model.Build) *BuildResponse {
	if b == nil {
		return nil
	}
	return &BuildResponse{
		ID:       b.ID,
		Number:   b.NumberOrID(),
		Status:   string(b.Status),
		Result:   string(b.Result),
		Duration: b.Duration(),
		Link:     b.WebURL,
	}
}

func toSnapshotResponse(snap *application.Snapshot) PipelineStatusResponse {
	resp := PipelineStatusResponse{
		RepoID:    snap.Target.RepoID,
		Alias:     snap.Target.DisplayName(),
		IsRunning: snap.IsRunning,
		Build:     toBuildResponse(snap.Build),
	}
	if snap.Build == nil {
		resp.Status = "no_builds"
	}
	return resp
}

func toOutcomeResponse(o model.BuildOutcome) OutcomeResponse {
	return OutcomeResponse{
		RepoID:      o.RepoID,
		Alias:       o.Alias,
		BuildID:     o.BuildID,
		BuildNumber: o.BuildNumber,
		Kind:        string(o.Kind),
		Result:      string(o.Result),
		Duration:    o.DurationText,
		Link:        o.Link,
		ObservedAt:  o.ObservedAt.UTC().Format(time.RFC3339),
	}
}
