package cognitive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alberthild/openclaw-leuko/internal/status"
)

func TestRecommendationsSummaryDigestsPriorRun(t *testing.T) {
	c := &recommendationsCheck{
		prior: []status.CheckResult{
			{
				CheckName: status.CheckGoalQuality,
				Severity:  status.SeverityWarn,
				Detail:    "1 issue across 3 goals",
				Findings:  []status.Finding{{Issue: "expired", Detail: "goal expired 2026-08-30"}},
			},
			{
				CheckName:    status.CheckPipelineCorrelation,
				Severity:     status.SeverityCritical,
				Detail:       "Pipeline issues: consumer_disconnected",
				Correlations: []status.Correlation{{Diagnosis: "consumer_disconnected"}},
			},
		},
		daemon: []status.DaemonCheck{
			{Name: "disk_space", Severity: status.SeverityOK, Detail: "fine"},
			{Name: "cron_heartbeat", Severity: status.SeverityWarn, Detail: "late"},
		},
	}

	digest := c.summarize()

	assert.Contains(t, digest, "cognitive:goal_quality [warn]")
	assert.Contains(t, digest, "finding[expired]")
	assert.Contains(t, digest, "correlation: consumer_disconnected")
	assert.Contains(t, digest, "cron_heartbeat [warn]: late")
	assert.NotContains(t, digest, "disk_space", "healthy daemon checks stay out of the digest")
}

func TestRecommendationsTruncatedToMax(t *testing.T) {
	c := &recommendationsCheck{maxRecs: 2}

	verdict := `{"severity": "warn", "recommendations": [
		{"type": "cleanup", "target": "goals", "reason": "a", "priority": "high"},
		{"type": "restart", "target": "consumer", "reason": "b", "priority": "medium"},
		{"type": "review", "target": "threads", "reason": "c", "priority": "low"}
	]}`
	result := runLLMCheck(context.Background(), okLLM(verdict), true, c)

	require.Len(t, result.Recommendations, 2)
	assert.Equal(t, "cleanup", result.Recommendations[0].Type)
	assert.Equal(t, "2 recommendations", result.Detail)
}

func TestRecommendationsUnknownPriorityCoercedToLow(t *testing.T) {
	c := &recommendationsCheck{maxRecs: 5}

	verdict := `{"severity": "ok", "recommendations": [
		{"type": "cleanup", "target": "goals", "reason": "a", "priority": "URGENT!!"},
		{"type": "restart", "target": "consumer", "reason": "b", "priority": "high"}
	]}`
	result := runLLMCheck(context.Background(), okLLM(verdict), true, c)

	require.Len(t, result.Recommendations, 2)
	assert.Equal(t, "low", result.Recommendations[0].Priority)
	assert.Equal(t, "high", result.Recommendations[1].Priority)
}

func TestRecommendationsFailOpenHasNoRecommendations(t *testing.T) {
	c := &recommendationsCheck{maxRecs: 5, prior: []status.CheckResult{
		{CheckName: status.CheckGoalQuality, Severity: status.SeverityCritical, Detail: "bad"},
	}}

	result := runLLMCheck(context.Background(), deadLLM("Timeout"), true, c)

	// Triage is pure LLM work; a critical prior result must not leak into
	// this check's own severity when the model is down.
	assert.Equal(t, status.SeverityOK, result.Severity)
	assert.Empty(t, result.Recommendations)
	assert.Contains(t, result.Detail, "LLM unavailable (Timeout)")
}

func TestRecommendationsEmptyRunStillSummarizes(t *testing.T) {
	c := &recommendationsCheck{maxRecs: 5}

	digest := c.summarize()

	assert.Contains(t, digest, "- (none)")
}
