// Where: cli/internal/deploy/report.go
// What: Final deployment report rendering.
// Why: One place assembles the observable outputs of a run.
package deploy

import (
	"github.com/fnship/fnship/internal/ui"
)

// Report writes the run outcome to the console. The published version only
// appears when a real publish executed; simulated publishes never produce
// one.
func Report(console *ui.Console, function string, result Result) {
	switch {
	case result.DryRun:
		console.Header("🔍", "Dry run for "+function)
	case result.NoOp:
		console.Header("💤", "No changes for "+function)
	default:
		console.Success("Deployed " + function)
	}

	for _, kind := range result.Applied {
		label := string(kind)
		if result.DryRun && kind != OpNoOp {
			label += " (simulated)"
		}
		console.ItemPlain(label)
	}

	if result.FunctionARN != "" {
		console.Item("Function ARN", result.FunctionARN)
	}
	if result.PublishedVersion != nil && !result.DryRun {
		console.Item("Published version", *result.PublishedVersion)
	}
}
