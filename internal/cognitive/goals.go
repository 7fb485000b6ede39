package cognitive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alberthild/openclaw-leuko/internal/llm"
	"github.com/alberthild/openclaw-leuko/internal/status"
)

// staleProposalAge is how long a proposed goal may sit unaccepted before the
// pre-filter flags it.
const staleProposalAge = 48 * time.Hour

const goalQualityRubric = `You are a goal-quality auditor for an autonomous agent.
You receive the agent's current goals as JSON. Evaluate whether each goal is
specific, achievable, non-duplicative and still relevant.

Respond with ONLY a JSON object of this exact shape:
{"severity": "ok" | "warn" | "critical",
 "findings": [{"item_id": "<goal id>", "issue": "<short tag>",
               "detail": "<one sentence>", "recommendation": "<one sentence>"}]}

Severity rules: "critical" only when a goal is actively harmful or
contradicts another goal; "warn" for vague, expired or stuck goals;
"ok" otherwise. An empty findings list requires severity "ok".`

// goal is the defensively-parsed shape of one entry in the goals file.
type goal struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Status     string `json:"status"`
	Expires    string `json:"expires"`
	ProposedAt string `json:"proposed_at"`
}

// goalQualityCheck flags expired and long-unaccepted goals deterministically
// and asks the model for a qualitative pass over the rest.
type goalQualityCheck struct {
	path  string
	now   func() time.Time
	goals []goal
}

func (c *goalQualityCheck) name() string { return status.CheckGoalQuality }

func (c *goalQualityCheck) readInput(ctx context.Context) (string, *status.CheckResult) {
	// The file is read whole: a goal past any truncation point must still
	// reach the pre-filter. The prompt budget is applied later, to the
	// prompt, not here.
	text, ok := status.ReadTextFile(c.path)
	if !ok {
		return "", skipResult("No goals file present; nothing to evaluate")
	}
	c.goals = parseGoals(text)
	if len(c.goals) == 0 {
		return "", skipResult("Goals file contains no goals; nothing to evaluate")
	}
	return text, nil
}

// parseGoals accepts the goals either as a bare array or wrapped under
// "goals" or "pending_goals".
func parseGoals(text string) []goal {
	var bare []goal
	if err := json.Unmarshal([]byte(text), &bare); err == nil {
		return bare
	}
	var wrapped struct {
		Goals        []goal `json:"goals"`
		PendingGoals []goal `json:"pending_goals"`
	}
	if err := json.Unmarshal([]byte(text), &wrapped); err != nil {
		return nil
	}
	return append(wrapped.Goals, wrapped.PendingGoals...)
}

func (c *goalQualityCheck) preFilter(string) ([]status.Finding, status.Severity) {
	now := c.now()
	var findings []status.Finding
	for _, g := range c.goals {
		if expires, ok := parseTimestamp(g.Expires); ok && expires.Before(now) {
			findings = append(findings, status.Finding{
				ItemID:         g.ID,
				Issue:          "expired",
				Detail:         fmt.Sprintf("goal expired %s", expires.Format("2006-01-02")),
				Recommendation: "archive the goal or extend its expiry",
			})
			continue
		}
		if g.Status == "proposed" {
			if proposed, ok := parseTimestamp(g.ProposedAt); ok && now.Sub(proposed) > staleProposalAge {
				findings = append(findings, status.Finding{
					ItemID:         g.ID,
					Issue:          "stale_proposal",
					Detail:         fmt.Sprintf("proposed %s and never accepted", proposed.Format("2006-01-02")),
					Recommendation: "accept or reject the proposal",
				})
			}
		}
	}
	floor := status.SeverityOK
	if len(findings) > 0 {
		floor = status.SeverityWarn
	}
	return findings, floor
}

func (c *goalQualityCheck) buildPrompt(input string) (string, string) {
	return goalQualityRubric, fmt.Sprintf("Current goals (%s):\n%s", countNoun(len(c.goals), "goal"), input)
}

func (c *goalQualityCheck) failOpen(reason string, findings []status.Finding, floor status.Severity) status.CheckResult {
	return failOpenResult(reason, findings, floor)
}

func (c *goalQualityCheck) merge(content string, findings []status.Finding, floor status.Severity) (status.CheckResult, bool) {
	verdict, ok := llm.ParseJSON[struct {
		Severity string           `json:"severity"`
		Findings []status.Finding `json:"findings"`
	}](content)
	if !ok {
		return status.CheckResult{}, false
	}

	merged := mergeFindings(findings, verdict.Findings)
	severity := status.Worst(status.ParseSeverity(verdict.Severity), floor)
	detail := "All goals look healthy"
	if len(merged) > 0 {
		detail = fmt.Sprintf("%s across %s", countNoun(len(merged), "issue"), countNoun(len(c.goals), "goal"))
	}
	return status.CheckResult{
		Severity: severity,
		Detail:   detail,
		Findings: merged,
	}, true
}

// parseTimestamp accepts RFC3339 or a bare date. Anything else is treated as
// absent rather than an error.
func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
