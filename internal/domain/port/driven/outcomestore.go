package driven

import (
	"context"

	"github.com/evoliveira/qasops/internal/domain/model"
)

// OutcomeStore defines the driven port for the terminal watch outcome
// history consumed by the portal.
type OutcomeStore interface {
	Record(ctx context.Context, outcome model.BuildOutcome) error
	ListRecent(ctx context.Context, limit int) ([]model.BuildOutcome, error)
	ListByRepo(ctx context.Context, repoID string, limit int) ([]model.BuildOutcome, error)
}
