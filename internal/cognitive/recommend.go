package cognitive

import (
	"context"
	"fmt"
	"strings"

	"github.com/alberthild/openclaw-leuko/internal/llm"
	"github.com/alberthild/openclaw-leuko/internal/status"
)

const recommendationsRubric = `You are the triage layer of an agent health monitor.
You receive a summary of this run's health check results and the heuristic
daemon's current issues. Propose concrete next actions for the operator.

Respond with ONLY a JSON object of this exact shape:
{"severity": "ok" | "warn" | "critical",
 "recommendations": [{"type": "<action category>", "target": "<what to act on>",
                      "reason": "<one sentence>", "priority": "low" | "medium" | "high"}]}

Propose at most a handful of actions, most impactful first. Severity
reflects how urgently a human should look at the system overall.`

// recommendationsCheck consumes the five prior checks' results plus the
// daemon's current issues; it has no standalone subject file and no
// pre-filter, so without the model it yields no recommendations.
type recommendationsCheck struct {
	prior   []status.CheckResult
	daemon  []status.DaemonCheck
	maxRecs int
}

func (c *recommendationsCheck) name() string { return status.CheckRecommendations }

func (c *recommendationsCheck) readInput(ctx context.Context) (string, *status.CheckResult) {
	return c.summarize(), nil
}

// summarize renders the prior results into a compact textual digest. The
// digest, not the raw documents, is what fits the prompt budget.
func (c *recommendationsCheck) summarize() string {
	var b strings.Builder
	b.WriteString("Cognitive check results this run:\n")
	if len(c.prior) == 0 {
		b.WriteString("- (none)\n")
	}
	for _, r := range c.prior {
		fmt.Fprintf(&b, "- %s [%s]: %s", r.CheckName, r.Severity, r.Detail)
		for _, f := range r.Findings {
			fmt.Fprintf(&b, "\n    finding[%s]: %s", f.Issue, f.Detail)
		}
		for _, cor := range r.Correlations {
			fmt.Fprintf(&b, "\n    correlation: %s", cor.Diagnosis)
		}
		for _, a := range r.Anomalies {
			fmt.Fprintf(&b, "\n    anomaly[%s]: %s", a.Metric, a.Deviation)
		}
		b.WriteString("\n")
	}
	b.WriteString("Daemon issues:\n")
	issues := 0
	for _, d := range c.daemon {
		if d.Severity == status.SeverityOK {
			continue
		}
		issues++
		fmt.Fprintf(&b, "- %s [%s]: %s\n", d.Name, d.Severity, d.Detail)
	}
	if issues == 0 {
		b.WriteString("- (none)\n")
	}
	return b.String()
}

func (c *recommendationsCheck) preFilter(string) ([]status.Finding, status.Severity) {
	return nil, status.SeverityOK
}

func (c *recommendationsCheck) buildPrompt(input string) (string, string) {
	return recommendationsRubric, input
}

func (c *recommendationsCheck) failOpen(reason string, findings []status.Finding, floor status.Severity) status.CheckResult {
	return failOpenResult(reason, findings, floor)
}

func (c *recommendationsCheck) merge(content string, _ []status.Finding, floor status.Severity) (status.CheckResult, bool) {
	verdict, ok := llm.ParseJSON[struct {
		Severity        string                  `json:"severity"`
		Recommendations []status.Recommendation `json:"recommendations"`
	}](content)
	if !ok {
		return status.CheckResult{}, false
	}

	recs := verdict.Recommendations
	for i := range recs {
		switch recs[i].Priority {
		case "low", "medium", "high":
		default:
			recs[i].Priority = "low"
		}
	}
	if len(recs) > c.maxRecs {
		recs = recs[:c.maxRecs]
	}

	detail := "No recommendations"
	if len(recs) > 0 {
		detail = countNoun(len(recs), "recommendation")
	}
	return status.CheckResult{
		Severity:        status.Worst(status.ParseSeverity(verdict.Severity), floor),
		Detail:          detail,
		Recommendations: recs,
	}, true
}
