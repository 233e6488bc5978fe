package model

import "time"

// BuildMessage is the human-readable notification describing a build
// outcome, delivered to the chat webhook as a MessageCard.
type BuildMessage struct {
	Title      string
	ThemeColor string
	Lines      []string // Body lines; empty lines are dropped at render time.
}

// OutcomeKind classifies the terminal event that ended a watch.
type OutcomeKind string

const (
	OutcomeCompleted  OutcomeKind = "completed"   // Tracked build finished.
	OutcomeLastKnown  OutcomeKind = "last_known"  // once-mode report of the latest finished build.
	OutcomeTimeout    OutcomeKind = "timeout"     // Tracked build did not finish within max wait.
	OutcomeNoPipeline OutcomeKind = "no_pipeline" // No build ever appeared within max wait.
)

// BuildOutcome is one terminal watch event, persisted as audit history for
// the portal. It is not resumable watch state: a restarted watcher always
// begins a fresh session.
type BuildOutcome struct {
	ID           int64
	RepoID       string
	Alias        string
	BuildID      int
	BuildNumber  string
	Kind         OutcomeKind
	Result       BuildResult
	DurationText string
	Link         string
	ObservedAt   time.Time
}
