package config

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/evoliveira/qasops/internal/domain/model"
)

// targetsFile is the on-disk shape of the watch-target configuration.
type targetsFile struct {
	Branch  string        `yaml:"branch"`
	Targets []targetEntry `yaml:"targets"`
}

type targetEntry struct {
	RepoID       string `yaml:"repo_id"`
	Alias        string `yaml:"alias"`
	Project      string `yaml:"project"`
	DefinitionID int    `yaml:"definition_id"`
}

// LoadTargets reads the YAML watch-target file and resolves defaults from
// cfg: targets without a project inherit cfg.Project, and the file-level
// branch (or cfg.Branch) applies to every target. Repository ids must be
// valid UUIDs; Azure DevOps keys repositories by GUID and a typo here would
// otherwise surface much later as an empty build list.
func LoadTargets(path string, cfg *Config) ([]model.WatchTarget, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Key: "QASOPS_TARGETS_FILE", Reason: fmt.Sprintf("read %s: %v", path, err)}
	}

	var file targetsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, &ConfigError{Key: "QASOPS_TARGETS_FILE", Reason: fmt.Sprintf("parse %s: %v", path, err)}
	}

	if len(file.Targets) == 0 {
		return nil, &ConfigError{Key: "QASOPS_TARGETS_FILE", Reason: fmt.Sprintf("%s defines no targets", path)}
	}

	branch := cfg.Branch
	if file.Branch != "" {
		branch = file.Branch
	}

	targets := make([]model.WatchTarget, 0, len(file.Targets))
	for i, entry := range file.Targets {
		if _, err := uuid.Parse(entry.RepoID); err != nil {
			return nil, &ConfigError{
				Key:    "QASOPS_TARGETS_FILE",
				Reason: fmt.Sprintf("target %d: repo_id %q is not a valid UUID", i, entry.RepoID),
			}
		}

		project := entry.Project
		if project == "" {
			project = cfg.Project
		}
		if project == "" {
			return nil, &ConfigError{
				Key:    "QASOPS_TARGETS_FILE",
				Reason: fmt.Sprintf("target %d (%s): no project set and QASOPS_PROJECT is empty", i, entry.RepoID),
			}
		}

		targets = append(targets, model.WatchTarget{
			RepoID:       entry.RepoID,
			Alias:        entry.Alias,
			Project:      project,
			DefinitionID: entry.DefinitionID,
			Branch:       branch,
		})
	}

	return targets, nil
}

// FilterTargets narrows targets to the ones whose repo id or alias appears in
// keep. An empty keep list returns targets unchanged. Unknown keys are
// reported so a typo on the command line does not silently watch nothing.
func FilterTargets(targets []model.WatchTarget, keep []string) ([]model.WatchTarget, error) {
	if len(keep) == 0 {
		return targets, nil
	}

	byKey := make(map[string]model.WatchTarget, len(targets)*2)
	for _, t := range targets {
		byKey[t.RepoID] = t
		if t.Alias != "" {
			byKey[t.Alias] = t
		}
	}

	var out []model.WatchTarget
	for _, key := range keep {
		t, ok := byKey[key]
		if !ok {
			return nil, fmt.Errorf("unknown repository %q", key)
		}
		out = append(out, t)
	}

	return out, nil
}
