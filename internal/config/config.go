// Package config loads application configuration from environment variables
// and the watch-target file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/evoliveira/qasops/internal/domain/model"
)

// Floors applied to the polling knobs. Anything faster hammers the service
// for no benefit.
const (
	MinPollInterval = 5 * time.Second
	MinMaxWait      = time.Minute
)

// Defaults for optional variables.
const (
	DefaultBranch       = "refs/heads/qas"
	DefaultPollInterval = 20 * time.Second
	DefaultMaxWait      = 60 * time.Minute
	DefaultListenAddr   = "127.0.0.1:8080"
	DefaultDBPath       = "qasops.db"
	DefaultTargetsFile  = "targets.yaml"
)

// ConfigError reports a missing or invalid startup setting. It is fatal for
// the invoking process.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Key, e.Reason)
}

// Config holds the application configuration loaded from QASOPS_* environment
// variables. It is set once per process invocation and passed into services
// at construction; nothing mutates it afterwards.
type Config struct {
	OrgURL     string // Organization URL, e.g. https://dev.azure.com/acme-cloud
	PAT        string
	ReviewerID string // Reviewer GUID used by the merge flow; optional elsewhere.
	WebhookURL string // Empty means notifications are silently skipped.

	Project string // Default project for targets that do not pin one.
	Branch  string

	PollInterval time.Duration
	MaxWait      time.Duration

	Merge model.MergeSpec

	ListenAddr  string
	DBPath      string
	TargetsFile string
}

// HasWebhook reports whether a notification endpoint is configured.
func (c *Config) HasWebhook() bool {
	return c.WebhookURL != ""
}

// Load reads configuration from environment variables and returns a validated
// Config. QASOPS_ORG_URL is required. The access token is resolved with
// SYSTEM_ACCESSTOKEN taking precedence over QASOPS_PAT so the tool works
// unchanged inside pipeline agents. Everything else has a default.
func Load() (*Config, error) {
	orgURL := os.Getenv("QASOPS_ORG_URL")
	if orgURL == "" {
		return nil, &ConfigError{Key: "QASOPS_ORG_URL", Reason: "organization URL is required"}
	}

	pat := os.Getenv("SYSTEM_ACCESSTOKEN")
	if pat == "" {
		pat = os.Getenv("QASOPS_PAT")
	}

	pollInterval := DefaultPollInterval
	if v, ok := os.LookupEnv("QASOPS_POLL_INTERVAL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, &ConfigError{Key: "QASOPS_POLL_INTERVAL", Reason: fmt.Sprintf("invalid duration %q: %v", v, err)}
		}
		pollInterval = parsed
	}
	if pollInterval < MinPollInterval {
		pollInterval = MinPollInterval
	}

	maxWait := DefaultMaxWait
	if v, ok := os.LookupEnv("QASOPS_MAX_WAIT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, &ConfigError{Key: "QASOPS_MAX_WAIT", Reason: fmt.Sprintf("invalid duration %q: %v", v, err)}
		}
		maxWait = parsed
	}
	if maxWait < MinMaxWait {
		maxWait = MinMaxWait
	}

	merge := model.MergeSpec{Strategy: model.MergeNoFastForward}
	if v, ok := os.LookupEnv("QASOPS_MERGE_STRATEGY"); ok {
		strategy, err := parseMergeStrategy(v)
		if err != nil {
			return nil, &ConfigError{Key: "QASOPS_MERGE_STRATEGY", Reason: err.Error()}
		}
		merge.Strategy = strategy
	}

	var err error
	if merge.DeleteSourceBranch, err = boolEnv("QASOPS_DELETE_SOURCE_BRANCH", false); err != nil {
		return nil, err
	}
	if merge.BypassPolicy, err = boolEnv("QASOPS_BYPASS_POLICY", false); err != nil {
		return nil, err
	}

	cfg := &Config{
		OrgURL:       orgURL,
		PAT:          pat,
		ReviewerID:   os.Getenv("QASOPS_REVIEWER_ID"),
		WebhookURL:   os.Getenv("QASOPS_WEBHOOK_URL"),
		Project:      os.Getenv("QASOPS_PROJECT"),
		Branch:       envOr("QASOPS_BRANCH", DefaultBranch),
		PollInterval: pollInterval,
		MaxWait:      maxWait,
		Merge:        merge,
		ListenAddr:   envOr("QASOPS_LISTEN_ADDR", DefaultListenAddr),
		DBPath:       envOr("QASOPS_DB_PATH", DefaultDBPath),
		TargetsFile:  envOr("QASOPS_TARGETS_FILE", DefaultTargetsFile),
	}

	return cfg, nil
}

// RequirePAT returns a ConfigError when no access token was resolved.
// Callers that only render help output do not need one, so Load does not
// enforce it.
func (c *Config) RequirePAT() error {
	if c.PAT == "" {
		return &ConfigError{Key: "QASOPS_PAT", Reason: "personal access token is required (or set SYSTEM_ACCESSTOKEN)"}
	}
	return nil
}

// RequireReviewer returns a ConfigError when no reviewer identity was
// configured. Only the merge flow needs one.
func (c *Config) RequireReviewer() error {
	if c.ReviewerID == "" {
		return &ConfigError{Key: "QASOPS_REVIEWER_ID", Reason: "reviewer GUID is required for approve+merge"}
	}
	return nil
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func boolEnv(key string, def bool) (bool, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return false, &ConfigError{Key: key, Reason: fmt.Sprintf("invalid boolean %q", v)}
	}
	return parsed, nil
}

func parseMergeStrategy(v string) (model.MergeStrategy, error) {
	switch model.MergeStrategy(v) {
	case model.MergeNoFastForward, model.MergeSquash, model.MergeRebase, model.MergeRebaseMerge:
		return model.MergeStrategy(v), nil
	default:
		return "", fmt.Errorf("unknown merge strategy %q", v)
	}
}
