// Package httphandler is the driving adapter serving the portal REST API.
package httphandler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/evoliveira/qasops/internal/application"
	"github.com/evoliveira/qasops/internal/config"
	"github.com/evoliveira/qasops/internal/domain/model"
	"github.com/evoliveira/qasops/internal/domain/port/driven"
)

// WatchStarter builds a watch service for the polling knobs a portal request
// supplies. The portal constructs one watch run per request, so the service
// cannot be a fixed dependency.
type WatchStarter func(cfg application.WatchConfig) *application.WatchService

// Handler is the HTTP driving adapter exposing the merge, status, history,
// and watch operations to the developer portal.
type Handler struct {
	targets    []model.WatchTarget
	mergeSvc   *application.MergeService
	statusSvc  *application.StatusService
	prClient   driven.PullRequestClient
	outcomes   driven.OutcomeStore
	startWatch WatchStarter
	cfg        *config.Config
	logger     *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	targets []model.WatchTarget,
	mergeSvc *application.MergeService,
	statusSvc *application.StatusService,
	prClient driven.PullRequestClient,
	outcomes driven.OutcomeStore,
	startWatch WatchStarter,
	cfg *config.Config,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		targets:    targets,
		mergeSvc:   mergeSvc,
		statusSvc:  statusSvc,
		prClient:   prClient,
		outcomes:   outcomes,
		startWatch: startWatch,
		cfg:        cfg,
		logger:     logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("POST /api/v1/prs/approve-merge", h.ApproveMerge)
	mux.HandleFunc("GET /api/v1/prs/active", h.ListActivePRs)
	mux.HandleFunc("GET /api/v1/pipelines/status", h.PipelineStatus)
	mux.HandleFunc("GET /api/v1/pipelines/history", h.PipelineHistory)
	mux.HandleFunc("POST /api/v1/pipelines/watch", h.StartWatch)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Health returns process status and which credentials are configured.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:             "ok",
		PATConfigured:      h.cfg.PAT != "",
		ReviewerConfigured: h.cfg.ReviewerID != "",
		WebhookConfigured:  h.cfg.HasWebhook(),
		Time:               time.Now().UTC().Format(time.RFC3339),
	})
}

// ApproveMerge approves and completes active PRs for the selected
// repositories. Failures are isolated per repository in the payload.
func (h *Handler) ApproveMerge(w http.ResponseWriter, r *http.Request) {
	var req ApproveMergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if h.cfg.ReviewerID == "" {
		writeError(w, http.StatusBadRequest, "QASOPS_REVIEWER_ID not configured")
		return
	}

	targets, err := config.FilterTargets(h.targets, req.RepoIDs)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	results := h.mergeSvc.ProcessAll(r.Context(), targets, req.PRIDs)

	resp := ApproveMergeResponse{
		Results: []RepoResultResponse{},
		Errors:  []RepoErrorResponse{},
	}
	for _, result := range results {
		if result.Err != nil {
			resp.Errors = append(resp.Errors, RepoErrorResponse{
				RepoID: result.Target.RepoID,
				Alias:  result.Target.DisplayName(),
				Error:  result.Err.Error(),
			})
			continue
		}
		resp.Results = append(resp.Results, RepoResultResponse{
			RepoID:    result.Target.RepoID,
			Alias:     result.Target.DisplayName(),
			Processed: result.Processed,
		})
	}
	resp.Success = len(resp.Errors) == 0

	writeJSON(w, http.StatusOK, resp)
}

// ListActivePRs lists active PRs targeting the QAS branch, across all
// configured repositories or the one given as ?repo_id=.
func (h *Handler) ListActivePRs(w http.ResponseWriter, r *http.Request) {
	targets, ok := h.selectTargets(w, r)
	if !ok {
		return
	}

	resp := ActivePRsResponse{PRs: []PRResponse{}, Errors: []RepoErrorResponse{}}

	for _, target := range targets {
		prs, err := h.prClient.ListActive(r.Context(), target.Project, target.RepoID, target.Branch)
		if err != nil {
			h.logger.Error("list active PRs failed", "repo", target.DisplayName(), "error", err)
			resp.Errors = append(resp.Errors, RepoErrorResponse{
				RepoID: target.RepoID,
				Alias:  target.DisplayName(),
				Error:  err.Error(),
			})
			continue
		}

		for _, pr := range prs {
			resp.PRs = append(resp.PRs, toPRResponse(pr, target.DisplayName()))
		}
	}

	resp.Count = len(resp.PRs)
	writeJSON(w, http.StatusOK, resp)
}

// PipelineStatus reports the current build state per repository: the running
// build when one is in flight, otherwise the latest completed one.
func (h *Handler) PipelineStatus(w http.ResponseWriter, r *http.Request) {
	targets, ok := h.selectTargets(w, r)
	if !ok {
		return
	}

	results := make([]PipelineStatusResponse, 0, len(targets))
	for _, target := range targets {
		snap, err := h.statusSvc.Snapshot(r.Context(), target)
		if err != nil {
			h.logger.Error("pipeline status failed", "repo", target.DisplayName(), "error", err)
			results = append(results, PipelineStatusResponse{
				RepoID: target.RepoID,
				Alias:  target.DisplayName(),
				Error:  err.Error(),
			})
			continue
		}
		results = append(results, toSnapshotResponse(snap))
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// PipelineHistory returns recorded terminal watch outcomes, newest first.
func (h *Handler) PipelineHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	var (
		outcomes []model.BuildOutcome
		err      error
	)
	if repoID := r.URL.Query().Get("repo_id"); repoID != "" {
		outcomes, err = h.outcomes.ListByRepo(r.Context(), repoID, limit)
	} else {
		outcomes, err = h.outcomes.ListRecent(r.Context(), limit)
	}
	if err != nil {
		h.logger.Error("history query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]OutcomeResponse, 0, len(outcomes))
	for _, o := range outcomes {
		resp = append(resp, toOutcomeResponse(o))
	}

	writeJSON(w, http.StatusOK, map[string]any{"outcomes": resp})
}

// StartWatch launches a background watch run over the selected repositories
// and returns immediately. The run uses a detached context since the HTTP
// request context is canceled when the response is sent.
func (h *Handler) StartWatch(w http.ResponseWriter, r *http.Request) {
	var req WatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	targets, err := config.FilterTargets(h.targets, req.RepoIDs)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	watchCfg := application.WatchConfig{
		PollInterval:    h.cfg.PollInterval,
		StartupInterval: config.DefaultPollInterval,
		MaxWait:         h.cfg.MaxWait,
	}
	if req.PollSec > 0 {
		watchCfg.PollInterval = max(time.Duration(req.PollSec)*time.Second, config.MinPollInterval)
	}
	if req.TimeoutMin > 0 {
		watchCfg.MaxWait = max(time.Duration(req.TimeoutMin)*time.Minute, config.MinMaxWait)
	}

	svc := h.startWatch(watchCfg)
	go svc.WatchAll(context.Background(), targets, req.Once)

	aliases := make([]string, 0, len(targets))
	for _, target := range targets {
		aliases = append(aliases, target.DisplayName())
	}

	h.logger.Info("background watch started", "repos", aliases, "once", req.Once)
	writeJSON(w, http.StatusAccepted, WatchResponse{
		Message: "watch started",
		Repos:   aliases,
		Once:    req.Once,
	})
}

// selectTargets resolves the optional ?repo_id= filter against the
// configured targets, writing a 400 on unknown ids.
func (h *Handler) selectTargets(w http.ResponseWriter, r *http.Request) ([]model.WatchTarget, bool) {
	repoID := r.URL.Query().Get("repo_id")
	if repoID == "" {
		return h.targets, true
	}

	targets, err := config.FilterTargets(h.targets, []string{repoID})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	return targets, true
}
