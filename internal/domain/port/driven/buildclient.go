// Package driven defines the port interfaces implemented by driven adapters.
package driven

import (
	"context"

	"github.com/evoliveira/qasops/internal/domain/model"
)

// BuildClient defines the driven port for read queries against the CI
// build service.
type BuildClient interface {
	// FindActive returns the most recently queued build for the target's
	// repository+branch (optionally filtered to a pinned definition) whose
	// status is not completed, or nil when none is in flight. When multiple
	// builds are in flight only the most recently queued one is returned;
	// that is a heuristic, not a single-build guarantee.
	FindActive(ctx context.Context, target model.WatchTarget) (*model.Build, error)

	// FindLatestCompleted returns the most recently finished build for the
	// same filter, or nil when none exists.
	FindLatestCompleted(ctx context.Context, target model.WatchTarget) (*model.Build, error)

	// Fetch returns the full current record for a known build id. It fails
	// with a *model.QueryError if the id is unknown or the call errors.
	Fetch(ctx context.Context, project string, buildID int) (*model.Build, error)
}
