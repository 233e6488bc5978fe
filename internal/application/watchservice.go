// Package application contains use-case orchestration services.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/evoliveira/qasops/internal/domain/model"
	"github.com/evoliveira/qasops/internal/domain/port/driven"
)

// WatchConfig carries the polling knobs for a watch invocation. It is passed
// in at construction and never mutated, so concurrent watches (the portal
// starts them in the background) cannot interfere with each other.
type WatchConfig struct {
	// PollInterval is the configurable interval used while tracking a build
	// that was already running when the watch started.
	PollInterval time.Duration

	// StartupInterval is the fixed interval used by the wait-for-start loop
	// and by tracking of builds it discovers. It deliberately ignores the
	// configurable PollInterval; the two loops have always used different
	// interval sources and notification timing is tuned around that.
	StartupInterval time.Duration

	// MaxWait bounds both waiting for a build to appear and waiting for a
	// tracked build to finish. Exceeding it is a reported outcome, not an
	// error: a pipeline that never starts or runs long is a normal
	// operational condition.
	MaxWait time.Duration
}

// WatchService implements the observe-until-done policy per repository:
// discover the active build, poll it to completion (or timeout), and emit
// exactly one terminal notification.
type WatchService struct {
	builds   driven.BuildClient
	notifier driven.Notifier     // nil means notifications are skipped.
	outcomes driven.OutcomeStore // nil means no history is recorded.
	cfg      WatchConfig
}

// NewWatchService creates a WatchService. notifier and outcomes may be nil;
// the watch then runs with logs only.
func NewWatchService(builds driven.BuildClient, notifier driven.Notifier, outcomes driven.OutcomeStore, cfg WatchConfig) *WatchService {
	return &WatchService{
		builds:   builds,
		notifier: notifier,
		outcomes: outcomes,
		cfg:      cfg,
	}
}

// WatchAll runs Watch for each target in order. Targets are strictly
// sequential, so total wall-clock time is the sum of the individual waits.
// A failure in one target is logged with its alias and does not prevent the
// remaining targets from being watched.
func (s *WatchService) WatchAll(ctx context.Context, targets []model.WatchTarget, once bool) {
	for _, target := range targets {
		if ctx.Err() != nil {
			slog.Info("watch canceled", "remaining", len(targets))
			return
		}

		if err := s.Watch(ctx, target, once); err != nil {
			slog.Error("watch failed", "repo", target.DisplayName(), "error", err)
		}
	}
}

// Watch observes a single target until a terminal outcome. With once=true
// and no build in flight it reports the last known outcome instead of
// waiting for a new build to appear.
//
// Query failures while checking for an active build are downgraded to "no
// build found" for that iteration; failures while fetching a build already
// being tracked propagate, since the tracked id is no longer usable.
func (s *WatchService) Watch(ctx context.Context, target model.WatchTarget, once bool) error {
	slog.Info("watching branch",
		"repo", target.DisplayName(),
		"project", target.Project,
		"branch", target.Branch,
	)

	active := s.findActive(ctx, target)
	if active != nil {
		slog.Info("build in progress, waiting for completion", "repo", target.DisplayName(), "build", active.ID)
		return s.track(ctx, target, active.ID, s.cfg.PollInterval)
	}

	if once {
		s.reportLastKnown(ctx, target)
		return nil
	}

	return s.waitForStart(ctx, target)
}

// findActive queries for the running or queued build, treating query errors
// as absence.
func (s *WatchService) findActive(ctx context.Context, target model.WatchTarget) *model.Build {
	build, err := s.builds.FindActive(ctx, target)
	if err != nil {
		slog.Warn("active build query failed", "repo", target.DisplayName(), "error", err)
		return nil
	}
	return build
}

// track polls a known build id until it completes or MaxWait elapses.
// Timeout is terminal: it is reported and the watch ends, it does not retry.
func (s *WatchService) track(ctx context.Context, target model.WatchTarget, buildID int, interval time.Duration) error {
	started := time.Now()

	for {
		if time.Since(started) > s.cfg.MaxWait {
			slog.Warn("timeout waiting for build", "repo", target.DisplayName(), "build", buildID)
			s.notify(ctx, timeoutMessage(target, buildID, s.cfg.MaxWait))
			s.record(ctx, model.BuildOutcome{
				RepoID:     target.RepoID,
				Alias:      target.DisplayName(),
				BuildID:    buildID,
				Kind:       model.OutcomeTimeout,
				ObservedAt: time.Now().UTC(),
			})
			return nil
		}

		build, err := s.builds.Fetch(ctx, target.Project, buildID)
		if err != nil {
			return fmt.Errorf("fetching tracked build %d: %w", buildID, err)
		}

		if build.IsCompleted() {
			slog.Info("build completed",
				"repo", target.DisplayName(),
				"build", buildID,
				"result", string(build.Result),
			)
			s.notify(ctx, finishedMessage(target, build))
			s.record(ctx, outcomeFor(target, build, model.OutcomeCompleted))
			return nil
		}

		if err := sleepCtx(ctx, interval); err != nil {
			return err
		}
	}
}

// waitForStart polls for a build to appear on the branch, then tracks it.
// Both the appearance polling and the subsequent tracking use the fixed
// StartupInterval.
func (s *WatchService) waitForStart(ctx context.Context, target model.WatchTarget) error {
	slog.Info("waiting for a build to start", "repo", target.DisplayName(), "branch", target.Branch)
	started := time.Now()

	for {
		if time.Since(started) > s.cfg.MaxWait {
			slog.Warn("no build started within max wait", "repo", target.DisplayName())
			s.notify(ctx, noPipelineMessage(target, s.cfg.MaxWait))
			s.record(ctx, model.BuildOutcome{
				RepoID:     target.RepoID,
				Alias:      target.DisplayName(),
				Kind:       model.OutcomeNoPipeline,
				ObservedAt: time.Now().UTC(),
			})
			return nil
		}

		if active := s.findActive(ctx, target); active != nil {
			slog.Info("build started, waiting for completion", "repo", target.DisplayName(), "build", active.ID)
			return s.track(ctx, target, active.ID, s.cfg.StartupInterval)
		}

		if err := sleepCtx(ctx, s.cfg.StartupInterval); err != nil {
			return err
		}
	}
}

// reportLastKnown emits a notification describing the most recently finished
// build, for once-mode runs with nothing in flight. Query errors are logged
// and treated as absence.
func (s *WatchService) reportLastKnown(ctx context.Context, target model.WatchTarget) {
	build, err := s.builds.FindLatestCompleted(ctx, target)
	if err != nil {
		slog.Warn("latest completed query failed", "repo", target.DisplayName(), "error", err)
		return
	}

	if build == nil {
		slog.Info("no builds on branch; run without --once to wait for one", "repo", target.DisplayName())
		return
	}

	s.notify(ctx, lastKnownMessage(target, build))
	s.record(ctx, outcomeFor(target, build, model.OutcomeLastKnown))
}

// notify delivers a message through the sink. A nil notifier means no
// webhook is configured and the notification is skipped. Delivery failures
// are logged and never influence the watch state machine.
func (s *WatchService) notify(ctx context.Context, msg model.BuildMessage) {
	if s.notifier == nil {
		slog.Debug("no webhook configured, skipping notification", "title", msg.Title)
		return
	}

	if err := s.notifier.Notify(ctx, msg); err != nil {
		slog.Error("notification delivery failed", "title", msg.Title, "error", err)
	}
}

// record persists a terminal outcome when a store is wired. Store failures
// are logged only; history is best-effort.
func (s *WatchService) record(ctx context.Context, outcome model.BuildOutcome) {
	if s.outcomes == nil {
		return
	}

	if err := s.outcomes.Record(ctx, outcome); err != nil {
		slog.Error("outcome record failed", "repo", outcome.Alias, "kind", string(outcome.Kind), "error", err)
	}
}

func outcomeFor(target model.WatchTarget, build *model.Build, kind model.OutcomeKind) model.BuildOutcome {
	return model.BuildOutcome{
		RepoID:       target.RepoID,
		Alias:        target.DisplayName(),
		BuildID:      build.ID,
		BuildNumber:  build.NumberOrID(),
		Kind:         kind,
		Result:       build.Result,
		DurationText: build.Duration(),
		Link:         build.WebURL,
		ObservedAt:   time.Now().UTC(),
	}
}

// sleepCtx sleeps for d or until the context is canceled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
