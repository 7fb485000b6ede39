package cognitive

import (
	"log/slog"

	"github.com/alberthild/openclaw-leuko/internal/status"
)

// escalationThreshold is the consecutive-critical streak length that flips
// escalation_needed.
const escalationThreshold = 3

// applyEscalation backfills the escalation fields of freshly-produced results
// by comparing each against the previous run's persisted result for the same
// check name. This runs centrally, after the checks return: streak state
// lives in the status document across runs, never inside a check.
func applyEscalation(results []status.CheckResult, previous *status.Document) {
	for i := range results {
		r := &results[i]
		prev := previous.CognitiveResult(r.CheckName)

		if r.Severity != status.SeverityCritical {
			r.ConsecutiveCriticalCount = 0
			r.FirstCriticalAt = ""
			r.EscalationNeeded = false
			continue
		}

		prevCount := 0
		if prev != nil {
			prevCount = prev.ConsecutiveCriticalCount
		}
		r.ConsecutiveCriticalCount = prevCount + 1

		if prev != nil && prev.FirstCriticalAt != "" && prevCount > 0 {
			r.FirstCriticalAt = prev.FirstCriticalAt
		} else {
			r.FirstCriticalAt = r.Timestamp
		}

		if r.ConsecutiveCriticalCount >= escalationThreshold {
			r.EscalationNeeded = true
			slog.Warn("check critical for consecutive runs, escalation needed",
				"check", r.CheckName,
				"streak", r.ConsecutiveCriticalCount,
				"first_critical_at", r.FirstCriticalAt)
		}
	}
}
