package application

import (
	"fmt"
	"time"

	"github.com/evoliveira/qasops/internal/domain/model"
)

// Message builders for the terminal watch outcomes. Titles carry the [QAS]
// prefix the team's channel filters on; markers and theme colors follow the
// fixed result mapping in the model package.

func finishedMessage(target model.WatchTarget, build *model.Build) model.BuildMessage {
	marker := model.ResultMarker(build.Result)

	return model.BuildMessage{
		Title:      fmt.Sprintf("[QAS] Pipeline finished - %s %s", target.DisplayName(), marker),
		ThemeColor: model.ResultColor(build.Result),
		Lines:      buildLines(target, build, marker),
	}
}

func lastKnownMessage(target model.WatchTarget, build *model.Build) model.BuildMessage {
	marker := model.ResultMarker(build.Result)

	return model.BuildMessage{
		Title:      fmt.Sprintf("[QAS] Last completed pipeline - %s %s", target.DisplayName(), marker),
		ThemeColor: model.ResultColor(build.Result),
		Lines:      buildLines(target, build, marker),
	}
}

func timeoutMessage(target model.WatchTarget, buildID int, maxWait time.Duration) model.BuildMessage {
	return model.BuildMessage{
		Title:      fmt.Sprintf("[QAS] Timeout waiting for pipeline - %s", target.DisplayName()),
		ThemeColor: model.ColorGray,
		Lines: []string{
			fmt.Sprintf("Repository: **%s**", target.DisplayName()),
			fmt.Sprintf("Build in progress: **%d**", buildID),
			fmt.Sprintf("Status: ⏳ Timeout after %d min.", int(maxWait.Minutes())),
		},
	}
}

func noPipelineMessage(target model.WatchTarget, maxWait time.Duration) model.BuildMessage {
	return model.BuildMessage{
		Title:      fmt.Sprintf("[QAS] No pipeline detected - %s", target.DisplayName()),
		ThemeColor: model.ColorGray,
		Lines: []string{
			fmt.Sprintf("Repository: **%s**", target.DisplayName()),
			fmt.Sprintf("Status: ⏳ No build started in %d min.", int(maxWait.Minutes())),
		},
	}
}

func buildLines(target model.WatchTarget, build *model.Build, marker string) []string {
	result := string(build.Result)
	if result == "" {
		result = "unknown"
	}

	return []string{
		fmt.Sprintf("Repository: **%s**", target.DisplayName()),
		fmt.Sprintf("Build: **%s** (id=%d)", build.NumberOrID(), build.ID),
		fmt.Sprintf("Result: **%s** %s", result, marker),
		fmt.Sprintf("Duration: %s", build.Duration()),
		build.WebURL,
	}
}
