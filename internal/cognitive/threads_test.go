package cognitive

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alberthild/openclaw-leuko/internal/status"
)

// An LLM timeout degrades to the pre-filter result: severity stays at the
// warn floor and the stale finding survives.
func TestThreadHealthTimeoutFailsOpenOnStaleThread(t *testing.T) {
	path := writeFile(t, "threads.json", `[
		{"id": "t1", "status": "open", "subject": "migrate db", "last_activity": "2026-08-21T12:00:00Z"}
	]`)
	c := &threadHealthCheck{path: path, staleDays: 5, now: fixedNow}

	result := runLLMCheck(context.Background(), deadLLM("Timeout"), true, c)

	assert.Equal(t, status.SeverityWarn, result.Severity)
	assert.Contains(t, result.Detail, "LLM unavailable (Timeout)")
	require.Len(t, result.Findings, 1)
	assert.Equal(t, "stale", result.Findings[0].Issue)
	assert.Equal(t, "t1", result.Findings[0].ThreadID)
	assert.Equal(t, 10, result.Findings[0].DaysSinceUpdate)
}

func TestThreadHealthLargeFileStillPreFiltered(t *testing.T) {
	entries := make([]string, 0, 61)
	for i := 0; i < 60; i++ {
		entries = append(entries, fmt.Sprintf(`{"id": "t%02d", "status": "closed", "subject": "%s"}`,
			i, strings.Repeat("x", 80)))
	}
	entries = append(entries, `{"id": "late", "status": "open", "last_activity": "2026-08-21T12:00:00Z"}`)
	content := "[" + strings.Join(entries, ",") + "]"
	require.Greater(t, len(content), promptBudget)

	path := writeFile(t, "threads.json", content)
	c := &threadHealthCheck{path: path, staleDays: 5, now: fixedNow}

	result := runLLMCheck(context.Background(), deadLLM("Timeout"), true, c)

	assert.Equal(t, status.SeverityWarn, result.Severity)
	require.Len(t, result.Findings, 1)
	assert.Equal(t, "late", result.Findings[0].ThreadID)
	assert.Equal(t, "stale", result.Findings[0].Issue)
}

func TestThreadHealthClosedThreadsNeverStale(t *testing.T) {
	path := writeFile(t, "threads.json", `{"threads": [
		{"id": "t1", "status": "closed", "last_activity": "2020-01-01T00:00:00Z"},
		{"id": "t2", "status": "done", "last_activity": "2020-01-01T00:00:00Z"}
	]}`)
	c := &threadHealthCheck{path: path, staleDays: 5, now: fixedNow}

	findings, floor := preFilterOf(t, c)

	assert.Empty(t, findings)
	assert.Equal(t, status.SeverityOK, floor)
}

func TestThreadHealthFreshOpenThreadNotStale(t *testing.T) {
	path := writeFile(t, "threads.json", `[
		{"id": "t1", "status": "open", "last_activity": "2026-08-30T12:00:00Z"}
	]`)
	c := &threadHealthCheck{path: path, staleDays: 5, now: fixedNow}

	findings, floor := preFilterOf(t, c)

	assert.Empty(t, findings)
	assert.Equal(t, status.SeverityOK, floor)
}

func TestThreadHealthMissingTimestampSkipped(t *testing.T) {
	path := writeFile(t, "threads.json", `[{"id": "t1", "status": "open"}]`)
	c := &threadHealthCheck{path: path, staleDays: 5, now: fixedNow}

	findings, _ := preFilterOf(t, c)

	assert.Empty(t, findings)
}

func TestThreadHealthEmptyFileSkips(t *testing.T) {
	path := writeFile(t, "threads.json", `[]`)
	c := &threadHealthCheck{path: path, staleDays: 5, now: fixedNow}
	client := okLLM(`{}`)

	result := runLLMCheck(context.Background(), client, true, c)

	assert.Zero(t, client.calls)
	assert.Equal(t, status.SeverityOK, result.Severity)
}

func TestThreadHealthMergeKeepsLLMOnlyFindings(t *testing.T) {
	path := writeFile(t, "threads.json", `[
		{"id": "t1", "status": "open", "last_activity": "2026-08-01T00:00:00Z"},
		{"id": "t2", "status": "open", "last_activity": "2026-08-30T00:00:00Z"}
	]`)
	c := &threadHealthCheck{path: path, staleDays: 5, now: fixedNow}

	llmVerdict := `{"severity": "critical", "findings": [
		{"thread_id": "t1", "issue": "looping", "detail": "dropped, pre-filter owns t1"},
		{"thread_id": "t2", "issue": "circular", "detail": "kept"}
	]}`
	result := runLLMCheck(context.Background(), okLLM(llmVerdict), true, c)

	assert.Equal(t, status.SeverityCritical, result.Severity)
	require.Len(t, result.Findings, 2)
	assert.Equal(t, "stale", result.Findings[0].Issue)
	assert.Equal(t, "circular", result.Findings[1].Issue)
}
