package pipeline

import (
	"fmt"
	"strings"

	"smmbridge/internal/engine"
	"smmbridge/internal/models"
)

const (
	maxSuccessLines = 20
	maxFailureLines = 10
)

// FormatReport renders the outbound text for a batch. A single order
// replies with its message verbatim; larger batches get an aggregated
// report so a 100-order paste never floods the chat.
func FormatReport(cmd models.CommandKind, results []engine.Result) string {
	if len(results) == 1 {
		return results[0].Message
	}

	var succeeded, failed []engine.Result
	for _, res := range results {
		if res.Success {
			succeeded = append(succeeded, res)
		} else {
			failed = append(failed, res)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 %s report: %d orders\n", cmd, len(results))

	if len(succeeded) > 0 {
		b.WriteString("\n")
		for i, res := range succeeded {
			if i == maxSuccessLines {
				fmt.Fprintf(&b, "... and %d more\n", len(succeeded)-maxSuccessLines)
				break
			}
			fmt.Fprintf(&b, "✅ %s\n", res.OrderID)
		}
	}

	if len(failed) > 0 {
		b.WriteString("\n")
		for i, res := range failed {
			if i == maxFailureLines {
				fmt.Fprintf(&b, "... and %d more\n", len(failed)-maxFailureLines)
				break
			}
			fmt.Fprintf(&b, "❌ %s: %s\n", res.OrderID, res.Message)
		}
	}

	fmt.Fprintf(&b, "\nDone: %d succeeded, %d failed", len(succeeded), len(failed))
	return b.String()
}
