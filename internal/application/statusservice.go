package application

import (
	"context"

	"github.com/evoliveira/qasops/internal/domain/model"
	"github.com/evoliveira/qasops/internal/domain/port/driven"
)

// StatusService produces point-in-time build status snapshots for the
// portal: the running build when one is in flight, otherwise the latest
// completed one.
type StatusService struct {
	builds driven.BuildClient
}

// NewStatusService creates a StatusService backed by the given build client.
func NewStatusService(builds driven.BuildClient) *StatusService {
	return &StatusService{builds: builds}
}

// Snapshot is the current build state of one watch target.
type Snapshot struct {
	Target    model.WatchTarget
	Build     *model.Build // nil when the branch has no builds at all.
	IsRunning bool
}

// Snapshot returns the current build state for target. A running build is
// re-fetched by id so the snapshot carries the full current record rather
// than the possibly stale list entry.
func (s *StatusService) Snapshot(ctx context.Context, target model.WatchTarget) (*Snapshot, error) {
	active, err := s.builds.FindActive(ctx, target)
	if err != nil {
		return nil, err
	}

	if active != nil {
		build, err := s.builds.Fetch(ctx, target.Project, active.ID)
		if err != nil {
			return nil, err
		}
		return &Snapshot{Target: target, Build: build, IsRunning: true}, nil
	}

	completed, err := s.builds.FindLatestCompleted(ctx, target)
	if err != nil {
		return nil, err
	}

	return &Snapshot{Target: target, Build: completed}, nil
}
