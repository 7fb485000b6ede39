package cognitive

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alberthild/openclaw-leuko/internal/config"
	"github.com/alberthild/openclaw-leuko/internal/llm"
	"github.com/alberthild/openclaw-leuko/internal/status"
)

// allClearVerdict satisfies every check's merge schema at once.
const allClearVerdict = `{"severity": "ok", "findings": [], "recommendations": []}`

func testOrchestrator(t *testing.T, client generator) (*Orchestrator, *config.Config) {
	t.Helper()
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "health"), 0755))

	cfg := config.Default(base)
	cfg.LLM.Primary = llm.ProviderSpec{Provider: "openai", Model: "gpt-4o-mini"}
	return &Orchestrator{
		cfg:         cfg,
		client:      client,
		now:         fixedNow,
		countStream: fixedCounter(0, false),
	}, cfg
}

func seedSubjects(t *testing.T, base string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(base, "goals.json"),
		[]byte(`[{"id": "g1", "title": "ship it", "status": "active"}]`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(base, "threads.json"),
		[]byte(`[{"id": "t1", "status": "open", "last_activity": "2026-08-30T12:00:00Z"}]`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(base, "BOOTSTRAP.md"),
		[]byte("# Identity\nYou are the agent.\n"), 0644))
}

func TestOrchestratorRunsChecksInOrder(t *testing.T) {
	o, cfg := testOrchestrator(t, okLLM(allClearVerdict))
	seedSubjects(t, cfg.BaseDir)

	update := o.Run(context.Background())

	require.Len(t, update.CognitiveChecks, 6)
	names := make([]string, len(update.CognitiveChecks))
	for i, r := range update.CognitiveChecks {
		names[i] = r.CheckName
	}
	assert.Equal(t, []string{
		status.CheckGoalQuality,
		status.CheckThreadHealth,
		status.CheckPipelineCorrelation,
		status.CheckAnomalyDetection,
		status.CheckBootstrapIntegrity,
		status.CheckRecommendations,
	}, names)

	meta := update.CognitiveMeta
	assert.Equal(t, 6, meta.ChecksCompleted)
	assert.Zero(t, meta.ChecksFailed)
	assert.Equal(t, "openai/gpt-4o-mini", meta.Model)
	assert.Zero(t, meta.TotalCostUSD)
	assert.Equal(t, "0.3.0", meta.PluginVersion)
	assert.NotEmpty(t, meta.LastRun)
}

func TestOrchestratorDisabledChecksSkipped(t *testing.T) {
	o, cfg := testOrchestrator(t, okLLM(allClearVerdict))
	seedSubjects(t, cfg.BaseDir)
	for _, name := range []string{config.CheckGoalQuality, config.CheckThreadHealth, config.CheckBootstrapIntegrity} {
		s := cfg.Checks[name]
		s.Enabled = false
		cfg.Checks[name] = s
	}

	update := o.Run(context.Background())

	require.Len(t, update.CognitiveChecks, 3)
	assert.Equal(t, 3, update.CognitiveMeta.ChecksCompleted)
}

func TestOrchestratorTokensAggregated(t *testing.T) {
	client := okLLM(allClearVerdict)
	client.resp.Tokens = 11
	o, cfg := testOrchestrator(t, client)
	seedSubjects(t, cfg.BaseDir)

	update := o.Run(context.Background())

	// goal_quality, thread_health, bootstrap_integrity and recommendations
	// hit the model; the two deterministic checks cost nothing.
	assert.Equal(t, 44, update.CognitiveMeta.TotalTokens)
}

func TestOrchestratorPanicIsolated(t *testing.T) {
	o, cfg := testOrchestrator(t, okLLM(allClearVerdict))
	seedSubjects(t, cfg.BaseDir)
	o.countStream = func(context.Context, string) (int64, bool) { panic("stream counter bug") }

	update := o.Run(context.Background())

	assert.Equal(t, 1, update.CognitiveMeta.ChecksFailed)
	require.Len(t, update.CognitiveChecks, 5)
	for _, r := range update.CognitiveChecks {
		assert.NotEqual(t, status.CheckPipelineCorrelation, r.CheckName)
	}
}

func TestOrchestratorNilClientFailsOpen(t *testing.T) {
	o, cfg := testOrchestrator(t, nil)
	seedSubjects(t, cfg.BaseDir)

	update := o.Run(context.Background())

	require.Len(t, update.CognitiveChecks, 6)
	for _, r := range update.CognitiveChecks {
		assert.NotEqual(t, status.SeverityCritical, r.Severity,
			"%s must not go critical just because no model is configured", r.CheckName)
	}
	assert.Zero(t, update.CognitiveMeta.TotalTokens)
}

func TestOrchestratorEscalationAcrossRuns(t *testing.T) {
	// Three runs with a critically stale consumer: escalation_needed must
	// flip on the third, using the persisted document as streak memory.
	criticalVerdict := `{"severity": "critical",
		"findings": [{"item_id": "g1", "issue": "conflict", "detail": "x"}],
		"recommendations": []}`
	o, cfg := testOrchestrator(t, okLLM(criticalVerdict))
	seedSubjects(t, cfg.BaseDir)

	var escalated []bool
	for run := 0; run < 3; run++ {
		update := o.Run(context.Background())
		result := findResult(t, update.CognitiveChecks, status.CheckGoalQuality)
		assert.Equal(t, run+1, result.ConsecutiveCriticalCount)
		escalated = append(escalated, result.EscalationNeeded)
		persist(t, cfg.StatusPath, update)
	}
	assert.Equal(t, []bool{false, false, true}, escalated)

	// A clean run resets the streak.
	o.client = okLLM(allClearVerdict)
	update := o.Run(context.Background())
	result := findResult(t, update.CognitiveChecks, status.CheckGoalQuality)
	assert.Zero(t, result.ConsecutiveCriticalCount)
	assert.False(t, result.EscalationNeeded)
}

func findResult(t *testing.T, results []status.CheckResult, name string) status.CheckResult {
	t.Helper()
	for _, r := range results {
		if r.CheckName == name {
			return r
		}
	}
	t.Fatalf("no result for %s", name)
	return status.CheckResult{}
}

func persist(t *testing.T, path string, update status.Update) {
	t.Helper()
	doc := map[string]any{"cognitive_checks": update.CognitiveChecks}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func TestNewGuardsTypedNilClient(t *testing.T) {
	var client *llm.Client
	o := New(config.Default(t.TempDir()), client, nil)

	assert.Nil(t, o.client, "a typed-nil *llm.Client must become a nil generator")
}
