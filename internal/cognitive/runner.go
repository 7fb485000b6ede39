// Package cognitive implements the L2 check engine: the generic LLM-check
// protocol, the six concrete checks built on it, the orchestrator that runs
// them in dependency order, and the consecutive-critical escalation backfill.
package cognitive

import (
	"context"
	"fmt"
	"time"

	"github.com/alberthild/openclaw-leuko/internal/llm"
	"github.com/alberthild/openclaw-leuko/internal/status"
)

// promptBudget bounds how many characters of subject data go into a prompt.
const promptBudget = status.DefaultMaxInputChars

// policy is the per-check customization of the shared LLM-check protocol.
// Each stage of the pipeline has exactly one hook; the runner owns the
// sequencing, the fail-open branching and the result stamping.
type policy interface {
	// name returns the persisted check name (cognitive:...).
	name() string

	// readInput loads the check's subject data. A non-nil terminal result
	// short-circuits the run before any LLM cost is incurred: absent or
	// empty subjects produce a skip, not a model call.
	readInput(ctx context.Context) (input string, terminal *status.CheckResult)

	// preFilter runs the deterministic pass. Its findings and severity floor
	// must be usable standalone: they are the whole result when the LLM is
	// unavailable, and they are never discarded when it is.
	preFilter(input string) (findings []status.Finding, floor status.Severity)

	// buildPrompt serializes the (already budget-truncated) input into the
	// user prompt; the system prompt is the check's fixed rubric.
	buildPrompt(input string) (system, user string)

	// failOpen builds the degraded result for an unreachable or unparsable
	// LLM. Severity must never exceed the pre-filter floor.
	failOpen(reason string, findings []status.Finding, floor status.Severity) status.CheckResult

	// merge combines a successfully parsed LLM verdict with the pre-filter
	// output. ok=false means the content did not match the expected schema
	// and the runner falls back to failOpen.
	merge(content string, findings []status.Finding, floor status.Severity) (status.CheckResult, bool)
}

// generator is the slice of llm.Client the runner needs; narrowed for tests.
type generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, timeout time.Duration) llm.Response
}

// runLLMCheck executes the five-stage protocol for one check. It always
// returns a stamped result, never an error: every failure mode of the model
// degrades to the pre-filter floor.
func runLLMCheck(ctx context.Context, client generator, useLLM bool, p policy) status.CheckResult {
	start := time.Now()

	input, terminal := p.readInput(ctx)
	if terminal != nil {
		return stamp(*terminal, p.name(), start)
	}

	findings, floor := p.preFilter(input)

	if !useLLM || client == nil {
		return stamp(p.failOpen("LLM disabled", findings, floor), p.name(), start)
	}

	// Timeout 0 defers to the client's configured per-call deadline.
	system, user := p.buildPrompt(truncateInput(input))
	resp := client.Generate(ctx, system, user, 0)

	var result status.CheckResult
	if resp.Failed() {
		result = p.failOpen(resp.Err, findings, floor)
	} else {
		merged, ok := p.merge(resp.Content, findings, floor)
		if !ok {
			// Schema mismatch is treated exactly like an unreachable model.
			result = p.failOpen("unparsable LLM response", findings, floor)
		} else {
			result = merged
		}
	}
	result.ModelUsed = resp.Model
	result.TokensUsed = resp.Tokens
	return stamp(result, p.name(), start)
}

// stamp enforces the result invariants: a fresh timestamp, a strictly
// positive duration and the check's own name, on every path.
func stamp(result status.CheckResult, name string, start time.Time) status.CheckResult {
	result.CheckName = name
	result.Timestamp = time.Now().UTC().Format(time.RFC3339)
	result.DurationMS = time.Since(start).Milliseconds()
	if result.DurationMS <= 0 {
		result.DurationMS = 1
	}
	return result
}

// skipResult is the terminal result for absent or empty subjects.
func skipResult(detail string) *status.CheckResult {
	return &status.CheckResult{Severity: status.SeverityOK, Detail: detail}
}

// failOpenResult is the shared fail-open shape: severity is the pre-filter
// floor, the pre-filter findings are preserved, and the detail names the
// failure mode so the degradation is visible rather than falsely reassuring.
func failOpenResult(reason string, findings []status.Finding, floor status.Severity) status.CheckResult {
	return status.CheckResult{
		Severity: floor,
		Detail:   fmt.Sprintf("LLM unavailable (%s); %d pre-filter finding(s)", reason, len(findings)),
		Findings: findings,
	}
}

// mergeFindings appends LLM findings to the pre-filter findings, dropping any
// LLM finding whose subject id the pre-filter already covered. The
// deterministic pass wins on conflicts; findings without a subject id cannot
// collide and are kept.
func mergeFindings(pre, fromLLM []status.Finding) []status.Finding {
	seen := make(map[string]bool, len(pre))
	for _, f := range pre {
		if id := f.SubjectID(); id != "" {
			seen[id] = true
		}
	}
	merged := append([]status.Finding{}, pre...)
	for _, f := range fromLLM {
		if id := f.SubjectID(); id != "" && seen[id] {
			continue
		}
		merged = append(merged, f)
	}
	return merged
}

// truncateInput applies the prompt character budget.
func truncateInput(input string) string {
	return status.Truncate(input, promptBudget)
}

// countNoun formats "N thing(s)" for details.
func countNoun(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
