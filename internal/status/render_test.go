package status

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestRenderIssuesNilDocument(t *testing.T) {
	assert.Equal(t, "no status available", RenderIssues(nil, 500))
}

func TestRenderIssuesHealthyDocument(t *testing.T) {
	doc := &Document{
		DaemonChecks:    []DaemonCheck{{Name: "disk_space", Severity: SeverityOK, Detail: "fine"}},
		CognitiveChecks: []CheckResult{{CheckName: CheckGoalQuality, Severity: SeverityOK}},
	}
	assert.Equal(t, "all clear", RenderIssues(doc, 500))
}

func TestRenderIssuesWorstFirst(t *testing.T) {
	doc := &Document{
		DaemonChecks: []DaemonCheck{
			{Name: "disk_space", Severity: SeverityWarn, Detail: "85% used"},
		},
		CognitiveChecks: []CheckResult{
			{CheckName: CheckPipelineCorrelation, Severity: SeverityCritical, Detail: "consumer gone"},
		},
	}

	out := RenderIssues(doc, 500)

	assert.Equal(t, "cognitive:pipeline_correlation [critical]: consumer gone; disk_space [warn]: 85% used", out)
}

func TestRenderIssuesTruncation(t *testing.T) {
	doc := &Document{
		DaemonChecks: []DaemonCheck{
			{Name: "disk_space", Severity: SeverityCritical, Detail: strings.Repeat("x", 200)},
		},
	}

	out := RenderIssues(doc, 80)

	assert.LessOrEqual(t, len(out), 80)
	assert.True(t, strings.HasSuffix(out, Ellipsis))
}

func TestRenderIssuesTruncationNeverSplitsRunes(t *testing.T) {
	doc := &Document{
		DaemonChecks: []DaemonCheck{
			{Name: "disk_space", Severity: SeverityCritical, Detail: strings.Repeat("ü", 200)},
		},
	}

	// Sweep the cut point across rune boundaries.
	for maxLen := 30; maxLen < 40; maxLen++ {
		out := RenderIssues(doc, maxLen)
		assert.True(t, utf8.ValidString(out), "maxLen %d", maxLen)
		assert.LessOrEqual(t, len(out), maxLen)
		assert.True(t, strings.HasSuffix(out, Ellipsis))
	}
}

func TestRenderIssuesZeroMaxLenUsesDefault(t *testing.T) {
	doc := &Document{
		DaemonChecks: []DaemonCheck{
			{Name: "disk_space", Severity: SeverityWarn, Detail: "85% used"},
		},
	}
	assert.Equal(t, "disk_space [warn]: 85% used", RenderIssues(doc, 0))
}
