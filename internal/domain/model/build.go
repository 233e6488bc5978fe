package model

import (
	"fmt"
	"strings"
	"time"
)

// BuildStatus is the lifecycle status reported by Azure DevOps for a build.
type BuildStatus string

const (
	BuildStatusNone       BuildStatus = "none"
	BuildStatusNotStarted BuildStatus = "notStarted"
	BuildStatusPostponed  BuildStatus = "postponed"
	BuildStatusInProgress BuildStatus = "inProgress"
	BuildStatusCancelling BuildStatus = "cancelling"
	BuildStatusCompleted  BuildStatus = "completed"
)

// BuildResult is the outcome of a completed build. It is empty until the
// build reaches BuildStatusCompleted.
type BuildResult string

const (
	BuildResultSucceeded          BuildResult = "succeeded"
	BuildResultPartiallySucceeded BuildResult = "partiallySucceeded"
	BuildResultFailed             BuildResult = "failed"
	BuildResultCanceled           BuildResult = "canceled"
)

// Build is one execution instance of a CI pipeline against the watched
// branch. It is read-only from the watcher's perspective: Azure DevOps
// creates and mutates it, we only observe.
type Build struct {
	ID         int
	Number     string
	Status     BuildStatus
	Result     BuildResult
	QueueTime  time.Time
	StartTime  time.Time
	FinishTime time.Time
	WebURL     string
}

// IsCompleted reports whether the build has finished executing, regardless
// of outcome. Status comparison is case-insensitive because older server
// versions have been observed returning "Completed".
func (b Build) IsCompleted() bool {
	return strings.EqualFold(string(b.Status), string(BuildStatusCompleted))
}

// NumberOrID returns the human build number, falling back to the numeric id
// when the server did not assign one.
func (b Build) NumberOrID() string {
	if b.Number != "" {
		return b.Number
	}
	return fmt.Sprintf("%d", b.ID)
}

// ResultMarker maps a build result to the emoji used in notifications.
// The mapping is total: absent and unrecognized results both render as ❔.
func ResultMarker(result BuildResult) string {
	switch strings.ToLower(string(result)) {
	case "":
		return "❔"
	case "succeeded":
		return "✅"
	case "partiallysucceeded":
		return "🟡"
	case "failed":
		return "❌"
	case "canceled":
		return "⚠️"
	default:
		return "❔"
	}
}

// ResultColor maps a build result to the MessageCard theme color. An absent
// result is gray; an unrecognized one is the neutral blue.
func ResultColor(result BuildResult) string {
	switch strings.ToLower(string(result)) {
	case "":
		return ColorGray
	case "succeeded":
		return ColorGreen
	case "partiallysucceeded":
		return ColorAmber
	case "failed":
		return ColorRed
	case "canceled":
		return ColorDarkGray
	default:
		return ColorBlue
	}
}

// Theme colors used in webhook cards. Values match the ones the team's Teams
// channel has always used, so they must not drift.
const (
	ColorGreen    = "2EB886"
	ColorAmber    = "FFB900"
	ColorRed      = "E81123"
	ColorGray     = "767676"
	ColorDarkGray = "8A8886"
	ColorBlue     = "0078D7"
)

// DurationText renders finish−start truncated to whole seconds as
// "<minutes>m<seconds>s". When either timestamp is missing it returns "n/d".
func DurationText(start, finish time.Time) string {
	if start.IsZero() || finish.IsZero() {
		return "n/d"
	}
	total := int(finish.Sub(start).Seconds())
	return fmt.Sprintf("%dm%ds", total/60, total%60)
}

// Duration returns DurationText for the build's own timestamps.
func (b Build) Duration() string {
	return DurationText(b.StartTime, b.FinishTime)
}
