package cognitive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alberthild/openclaw-leuko/internal/llm"
	"github.com/alberthild/openclaw-leuko/internal/status"
)

const threadHealthRubric = `You are a conversation-thread auditor for an autonomous agent.
You receive the agent's threads as JSON. Look for threads that are stuck,
going in circles, abandoned mid-task, or open without a clear owner.

Respond with ONLY a JSON object of this exact shape:
{"severity": "ok" | "warn" | "critical",
 "findings": [{"thread_id": "<id>", "issue": "<short tag>",
               "detail": "<one sentence>", "days_since_update": <int>,
               "recommendation": "<one sentence>"}]}

Severity rules: "critical" only when a thread is blocking other work or
looping; "warn" for stale or drifting threads; "ok" otherwise.`

// thread is the defensively-parsed shape of one entry in the threads file.
type thread struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Subject      string `json:"subject"`
	LastActivity string `json:"last_activity"`
}

// threadHealthCheck flags open threads idle past the configured staleness
// window. Closed threads are never pre-filtered as stale, however old.
type threadHealthCheck struct {
	path      string
	staleDays int
	now       func() time.Time
	threads   []thread
}

func (c *threadHealthCheck) name() string { return status.CheckThreadHealth }

func (c *threadHealthCheck) readInput(ctx context.Context) (string, *status.CheckResult) {
	text, ok := status.ReadTextFile(c.path)
	if !ok {
		return "", skipResult("No threads file present; nothing to evaluate")
	}
	c.threads = parseThreads(text)
	if len(c.threads) == 0 {
		return "", skipResult("Threads file contains no threads; nothing to evaluate")
	}
	return text, nil
}

func parseThreads(text string) []thread {
	var bare []thread
	if err := json.Unmarshal([]byte(text), &bare); err == nil {
		return bare
	}
	var wrapped struct {
		Threads []thread `json:"threads"`
	}
	if err := json.Unmarshal([]byte(text), &wrapped); err != nil {
		return nil
	}
	return wrapped.Threads
}

func (c *threadHealthCheck) preFilter(string) ([]status.Finding, status.Severity) {
	now := c.now()
	staleAfter := time.Duration(c.staleDays) * 24 * time.Hour

	var findings []status.Finding
	for _, th := range c.threads {
		if th.Status != "open" {
			continue
		}
		last, ok := parseTimestamp(th.LastActivity)
		if !ok {
			continue
		}
		idle := now.Sub(last)
		if idle > staleAfter {
			days := int(idle.Hours() / 24)
			findings = append(findings, status.Finding{
				ThreadID:        th.ID,
				Issue:           "stale",
				Detail:          fmt.Sprintf("open thread idle for %d days (threshold %d)", days, c.staleDays),
				DaysSinceUpdate: days,
				Recommendation:  "close the thread or resume it explicitly",
			})
		}
	}
	floor := status.SeverityOK
	if len(findings) > 0 {
		floor = status.SeverityWarn
	}
	return findings, floor
}

func (c *threadHealthCheck) buildPrompt(input string) (string, string) {
	return threadHealthRubric, fmt.Sprintf("Current threads (%s, stale threshold %d days):\n%s",
		countNoun(len(c.threads), "thread"), c.staleDays, input)
}

func (c *threadHealthCheck) failOpen(reason string, findings []status.Finding, floor status.Severity) status.CheckResult {
	return failOpenResult(reason, findings, floor)
}

func (c *threadHealthCheck) merge(content string, findings []status.Finding, floor status.Severity) (status.CheckResult, bool) {
	verdict, ok := llm.ParseJSON[struct {
		Severity string           `json:"severity"`
		Findings []status.Finding `json:"findings"`
	}](content)
	if !ok {
		return status.CheckResult{}, false
	}

	merged := mergeFindings(findings, verdict.Findings)
	detail := "All threads look healthy"
	if len(merged) > 0 {
		detail = fmt.Sprintf("%s across %s", countNoun(len(merged), "issue"), countNoun(len(c.threads), "thread"))
	}
	return status.CheckResult{
		Severity: status.Worst(status.ParseSeverity(verdict.Severity), floor),
		Detail:   detail,
		Findings: merged,
	}, true
}
