package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/evoliveira/qasops/internal/domain/model"
	"github.com/evoliveira/qasops/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.OutcomeStore = (*OutcomeRepo)(nil)

// defaultListLimit caps history queries when the caller passes no limit.
const defaultListLimit = 50

// OutcomeRepo is the SQLite implementation of the OutcomeStore port.
type OutcomeRepo struct {
	db *DB
}

// NewOutcomeRepo creates a new OutcomeRepo backed by the given DB.
func NewOutcomeRepo(db *DB) *OutcomeRepo {
	return &OutcomeRepo{db: db}
}

// Record appends one terminal watch outcome.
func (r *OutcomeRepo) Record(ctx context.Context, outcome model.BuildOutcome) error {
	const query = `
		INSERT INTO build_outcomes (repo_id, alias, build_id, build_number, kind, result, duration_text, link, observed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	observedAt := outcome.ObservedAt
	if observedAt.IsZero() {
		observedAt = time.Now()
	}

	_, err := r.db.Writer.ExecContext(ctx, query,
		outcome.RepoID, outcome.Alias, outcome.BuildID, outcome.BuildNumber,
		string(outcome.Kind), string(outcome.Result), outcome.DurationText,
		outcome.Link, observedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert outcome for %s: %w", outcome.RepoID, err)
	}

	return nil
}

// ListRecent returns the newest outcomes across all repositories.
func (r *OutcomeRepo) ListRecent(ctx context.Context, limit int) ([]model.BuildOutcome, error) {
	const query = `
		SELECT id, repo_id, alias, build_id, build_number, kind, result, duration_text, link, observed_at
		FROM build_outcomes
		ORDER BY observed_at DESC, id DESC
		LIMIT ?
	`
	return r.list(ctx, query, normalizeLimit(limit))
}

// ListByRepo returns the newest outcomes for one repository.
func (r *OutcomeRepo) ListByRepo(ctx context.Context, repoID string, limit int) ([]model.BuildOutcome, error) {
	const query = `
		SELECT id, repo_id, alias, build_id, build_number, kind, result, duration_text, link, observed_at
		FROM build_outcomes
		WHERE repo_id = ?
		ORDER BY observed_at DESC, id DESC
		LIMIT ?
	`
	return r.list(ctx, query, repoID, normalizeLimit(limit))
}

func (r *OutcomeRepo) list(ctx context.Context, query string, args ...any) ([]model.BuildOutcome, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []model.BuildOutcome
	for rows.Next() {
		var o model.BuildOutcome
		var kind, result, observedAt string

		if err := rows.Scan(
			&o.ID, &o.RepoID, &o.Alias, &o.BuildID, &o.BuildNumber,
			&kind, &result, &o.DurationText, &o.Link, &observedAt,
		); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}

		o.Kind = model.OutcomeKind(kind)
		o.Result = model.BuildResult(result)
		o.ObservedAt, err = time.Parse(time.RFC3339Nano, observedAt)
		if err != nil {
			return nil, fmt.Errorf("parse observed_at: %w", err)
		}

		outcomes = append(outcomes, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}

	return outcomes, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}
