package httphandler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httphandler "github.com/evoliveira/qasops/internal/adapter/driving/http"
	"github.com/evoliveira/qasops/internal/application"
	"github.com/evoliveira/qasops/internal/config"
	"github.com/evoliveira/qasops/internal/domain/model"
)

// --- Mock implementations ---

type mockPRClient struct {
	prs        []model.PullRequest
	listErr    func(repoID string) error
	approves   []int
	completes  []int
	approveErr error
}

func (m *mockPRClient) ListActive(_ context.Context, _, repoID, _ string) ([]model.PullRequest, error) {
	if m.listErr != nil {
		if err := m.listErr(repoID); err != nil {
			return nil, err
		}
	}
	return m.prs, nil
}

func (m *mockPRClient) Approve(_ context.Context, _, _ string, prID int, _ string) error {
	m.approves = append(m.approves, prID)
	return m.approveErr
}

func (m *mockPRClient) Complete(_ context.Context, _, _ string, prID int, _ string, _ model.MergeSpec) error {
	m.completes = append(m.completes, prID)
	return nil
}

type mockBuildClient struct {
	active    *model.Build
	completed *model.Build
	err       error
}

func (m *mockBuildClient) FindActive(_ context.Context, _ model.WatchTarget) (*model.Build, error) {
	return m.active, m.err
}

func (m *mockBuildClient) FindLatestCompleted(_ context.Context, _ model.WatchTarget) (*model.Build, error) {
	return m.completed, m.err
}

func (m *mockBuildClient) Fetch(_ context.Context, _ string, _ int) (*model.Build, error) {
	return m.active, m.err
}

type mockOutcomeStore struct {
	outcomes   []model.BuildOutcome
	err        error
	lastLimit  int
	lastRepoID string
}

func (m *mockOutcomeStore) Record(_ context.Context, _ model.BuildOutcome) error { return nil }

func (m *mockOutcomeStore) ListRecent(_ context.Context, limit int) ([]model.BuildOutcome, error) {
	m.lastLimit = limit
	return m.outcomes, m.err
}

func (m *mockOutcomeStore) ListByRepo(_ context.Context, repoID string, limit int) ([]model.BuildOutcome, error) {
	m.lastRepoID = repoID
	m.lastLimit = limit
	return m.outcomes, m.err
}

// --- Test fixtures ---

const (
	billingRepoID = "3f2504e0-4f89-41d3-9a0c-0305e82c3301"
	ordersRepoID  = "9b2a77b0-1111-4e60-8d24-aa61d7e2c302"
	reviewerID    = "2c5e86a0-7cd3-4c77-9146-3b2c5e7d0f01"
)

func testTargets() []model.WatchTarget {
	return []model.WatchTarget{
		{RepoID: billingRepoID, Alias: "billing-api", Project: "Platform", Branch: "refs/heads/qas"},
		{RepoID: ordersRepoID, Alias: "orders-api", Project: "Platform", Branch: "refs/heads/qas"},
	}
}

type testDeps struct {
	prClient *mockPRClient
	builds   *mockBuildClient
	outcomes *mockOutcomeStore
	cfg      *config.Config
	started  []application.WatchConfig
}

func newTestHandler(t *testing.T, deps *testDeps) http.Handler {
	t.Helper()

	if deps.cfg == nil {
		deps.cfg = &config.Config{
			PAT:          "pat_test",
			ReviewerID:   reviewerID,
			PollInterval: config.DefaultPollInterval,
			MaxWait:      config.DefaultMaxWait,
		}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	mergeSvc := application.NewMergeService(deps.prClient, deps.cfg.ReviewerID, deps.cfg.Merge)
	statusSvc := application.NewStatusService(deps.builds)

	starter := func(cfg application.WatchConfig) *application.WatchService {
		deps.started = append(deps.started, cfg)
		return application.NewWatchService(deps.builds, nil, nil, cfg)
	}

	h := httphandler.NewHandler(testTargets(), mergeSvc, statusSvc, deps.prClient, deps.outcomes, starter, deps.cfg, logger)
	return httphandler.NewServeMux(h, logger)
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

// --- Tests ---

func TestHealth(t *testing.T) {
	deps := &testDeps{prClient: &mockPRClient{}, builds: &mockBuildClient{}, outcomes: &mockOutcomeStore{}}
	mux := newTestHandler(t, deps)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[httphandler.HealthResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.PATConfigured)
	assert.True(t, resp.ReviewerConfigured)
	assert.False(t, resp.WebhookConfigured)
}

func TestApproveMerge_Success(t *testing.T) {
	deps := &testDeps{
		prClient: &mockPRClient{prs: []model.PullRequest{{ID: 101, LastMergeCommit: "aaa111"}}},
		builds:   &mockBuildClient{},
		outcomes: &mockOutcomeStore{},
	}
	mux := newTestHandler(t, deps)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/prs/approve-merge", strings.NewReader(`{}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[httphandler.ApproveMergeResponse](t, rec)
	assert.True(t, resp.Success)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "billing-api", resp.Results[0].Alias)
	assert.Equal(t, 1, resp.Results[0].Processed)
	assert.Empty(t, resp.Errors)

	// One discovered PR per repository, approved then completed.
	assert.Equal(t, []int{101, 101}, deps.prClient.approves)
	assert.Equal(t, []int{101, 101}, deps.prClient.completes)
}

func TestApproveMerge_RepoFailureIsolated(t *testing.T) {
	deps := &testDeps{
		prClient: &mockPRClient{
			prs: []model.PullRequest{{ID: 101}},
			listErr: func(repoID string) error {
				if repoID == billingRepoID {
					return &model.QueryError{Op: "list PRs", StatusCode: 500}
				}
				return nil
			},
		},
		builds:   &mockBuildClient{},
		outcomes: &mockOutcomeStore{},
	}
	mux := newTestHandler(t, deps)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/prs/approve-merge", strings.NewReader(`{}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[httphandler.ApproveMergeResponse](t, rec)
	assert.False(t, resp.Success)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "billing-api", resp.Errors[0].Alias)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "orders-api", resp.Results[0].Alias)
}

func TestApproveMerge_InvalidBody(t *testing.T) {
	deps := &testDeps{prClient: &mockPRClient{}, builds: &mockBuildClient{}, outcomes: &mockOutcomeStore{}}
	mux := newTestHandler(t, deps)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/prs/approve-merge", strings.NewReader(`{nope`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApproveMerge_MissingReviewer(t *testing.T) {
	deps := &testDeps{
		prClient: &mockPRClient{},
		builds:   &mockBuildClient{},
		outcomes: &mockOutcomeStore{},
		cfg: &config.Config{
			PAT:          "pat_test",
			PollInterval: config.DefaultPollInterval,
			MaxWait:      config.DefaultMaxWait,
		},
	}
	mux := newTestHandler(t, deps)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/prs/approve-merge", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "QASOPS_REVIEWER_ID")
}

func TestApproveMerge_UnknownRepo(t *testing.T) {
	deps := &testDeps{prClient: &mockPRClient{}, builds: &mockBuildClient{}, outcomes: &mockOutcomeStore{}}
	mux := newTestHandler(t, deps)

	rec := httptest.NewRecorder()
	body := `{"repo_ids":["payments-api"]}`
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/prs/approve-merge", strings.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "payments-api")
}

func TestListActivePRs(t *testing.T) {
	deps := &testDeps{
		prClient: &mockPRClient{prs: []model.PullRequest{{ID: 101, Title: "Fix invoice rounding", RepoID: billingRepoID}}},
		builds:   &mockBuildClient{},
		outcomes: &mockOutcomeStore{},
	}
	mux := newTestHandler(t, deps)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/prs/active?repo_id=billing-api", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[httphandler.ActivePRsResponse](t, rec)
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.PRs, 1)
	assert.Equal(t, 101, resp.PRs[0].ID)
	assert.Equal(t, "billing-api", resp.PRs[0].Alias)
	assert.Equal(t, "Fix invoice rounding", resp.PRs[0].Title)
}

func TestPipelineStatus_Running(t *testing.T) {
	deps := &testDeps{
		prClient: &mockPRClient{},
		builds: &mockBuildClient{
			active: &model.Build{ID: 500, Number: "20260310.4", Status: model.BuildStatusInProgress},
		},
		outcomes: &mockOutcomeStore{},
	}
	mux := newTestHandler(t, deps)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/pipelines/status?repo_id=billing-api", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Results []httphandler.PipelineStatusResponse `json:"results"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Results, 1)
	assert.True(t, resp.Results[0].IsRunning)
	require.NotNil(t, resp.Results[0].Build)
	assert.Equal(t, 500, resp.Results[0].Build.ID)
	assert.Empty(t, resp.Results[0].Status)
}

func TestPipelineStatus_NoBuilds(t *testing.T) {
	deps := &testDeps{prClient: &mockPRClient{}, builds: &mockBuildClient{}, outcomes: &mockOutcomeStore{}}
	mux := newTestHandler(t, deps)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/pipelines/status?repo_id=orders-api", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Results []httphandler.PipelineStatusResponse `json:"results"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Results, 1)
	assert.Nil(t, resp.Results[0].Build)
	assert.Equal(t, "no_builds", resp.Results[0].Status)
}

func TestPipelineStatus_ErrorRow(t *testing.T) {
	deps := &testDeps{
		prClient: &mockPRClient{},
		builds:   &mockBuildClient{err: &model.QueryError{Op: "list builds", StatusCode: 502}},
		outcomes: &mockOutcomeStore{},
	}
	mux := newTestHandler(t, deps)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/pipelines/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Results []httphandler.PipelineStatusResponse `json:"results"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Results, 2)
	for _, row := range resp.Results {
		assert.NotEmpty(t, row.Error)
	}
}

func TestPipelineHistory(t *testing.T) {
	deps := &testDeps{
		prClient: &mockPRClient{},
		builds:   &mockBuildClient{},
		outcomes: &mockOutcomeStore{
			outcomes: []model.BuildOutcome{{
				RepoID:      billingRepoID,
				Alias:       "billing-api",
				BuildID:     500,
				BuildNumber: "20260310.4",
				Kind:        model.OutcomeCompleted,
				Result:      model.BuildResultSucceeded,
				ObservedAt:  time.Date(2026, 3, 10, 14, 5, 0, 0, time.UTC),
			}},
		},
	}
	mux := newTestHandler(t, deps)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/pipelines/history?repo_id="+billingRepoID+"&limit=5", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, billingRepoID, deps.outcomes.lastRepoID)
	assert.Equal(t, 5, deps.outcomes.lastLimit)

	var resp struct {
		Outcomes []httphandler.OutcomeResponse `json:"outcomes"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Outcomes, 1)
	assert.Equal(t, "completed", resp.Outcomes[0].Kind)
	assert.Equal(t, "2026-03-10T14:05:00Z", resp.Outcomes[0].ObservedAt)
}

func TestPipelineHistory_InvalidLimit(t *testing.T) {
	deps := &testDeps{prClient: &mockPRClient{}, builds: &mockBuildClient{}, outcomes: &mockOutcomeStore{}}
	mux := newTestHandler(t, deps)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/pipelines/history?limit=lots", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartWatch(t *testing.T) {
	deps := &testDeps{
		prClient: &mockPRClient{},
		builds:   &mockBuildClient{completed: &model.Build{ID: 1, Status: model.BuildStatusCompleted, Result: model.BuildResultSucceeded}},
		outcomes: &mockOutcomeStore{},
	}
	mux := newTestHandler(t, deps)

	rec := httptest.NewRecorder()
	body := `{"repo_ids":["billing-api"],"once":true,"poll_sec":1,"timeout_min":0}`
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/pipelines/watch", strings.NewReader(body)))

	require.Equal(t, http.StatusAccepted, rec.Code)
	resp := decodeBody[httphandler.WatchResponse](t, rec)
	assert.Equal(t, []string{"billing-api"}, resp.Repos)
	assert.True(t, resp.Once)

	// Overrides below the floor are clamped, absent ones keep defaults.
	require.Len(t, deps.started, 1)
	assert.Equal(t, config.MinPollInterval, deps.started[0].PollInterval)
	assert.Equal(t, config.DefaultMaxWait, deps.started[0].MaxWait)
	assert.Equal(t, config.DefaultPollInterval, deps.started[0].StartupInterval)
}

func TestStartWatch_UnknownRepo(t *testing.T) {
	deps := &testDeps{prClient: &mockPRClient{}, builds: &mockBuildClient{}, outcomes: &mockOutcomeStore{}}
	mux := newTestHandler(t, deps)

	rec := httptest.NewRecorder()
	body := `{"repo_ids":["payments-api"]}`
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/pipelines/watch", strings.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, deps.started)
}
