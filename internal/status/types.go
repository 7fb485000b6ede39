package status

import "encoding/json"

// Check names are namespaced so L2 results are distinguishable from daemon
// checks sharing the same document.
const (
	CheckGoalQuality         = "cognitive:goal_quality"
	CheckThreadHealth        = "cognitive:thread_health"
	CheckPipelineCorrelation = "cognitive:pipeline_correlation"
	CheckAnomalyDetection    = "cognitive:anomaly_detection"
	CheckBootstrapIntegrity  = "cognitive:bootstrap_integrity"
	CheckRecommendations     = "cognitive:recommendations"
)

// Finding is a single issue discovered by a check. ItemID carries the subject
// identifier (goal id, thread id) used for deduplicating pre-filter findings
// against LLM findings; checks without per-subject findings leave it empty.
type Finding struct {
	ItemID          string `json:"item_id,omitempty"`
	ThreadID        string `json:"thread_id,omitempty"`
	Issue           string `json:"issue"`
	Line            int    `json:"line,omitempty"`
	Detail          string `json:"detail"`
	DaysSinceUpdate int    `json:"days_since_update,omitempty"`
	Recommendation  string `json:"recommendation,omitempty"`
}

// SubjectID returns the dedup key for a finding: the goal id or thread id,
// whichever is set.
func (f Finding) SubjectID() string {
	if f.ItemID != "" {
		return f.ItemID
	}
	return f.ThreadID
}

// Correlation links an input signal to an output signal with a diagnosis,
// produced by the deterministic pipeline-correlation check.
type Correlation struct {
	InputSignal  string `json:"input_signal"`
	OutputSignal string `json:"output_signal"`
	Diagnosis    string `json:"diagnosis"`
}

// Anomaly records a metric deviating from its historical baseline.
type Anomaly struct {
	Metric    string   `json:"metric"`
	Current   float64  `json:"current"`
	Baseline  float64  `json:"baseline"`
	Deviation string   `json:"deviation"`
	Severity  Severity `json:"severity"`
}

// Recommendation is an actionable suggestion emitted by the recommendations
// check. Priority is one of low/medium/high; anything else is coerced to low
// at parse time.
type Recommendation struct {
	Type     string `json:"type"`
	Target   string `json:"target"`
	Reason   string `json:"reason"`
	Priority string `json:"priority"`
}

// CheckResult is the unit produced by every cognitive check on every run,
// including all failure paths.
type CheckResult struct {
	CheckName string   `json:"check_name"`
	Severity  Severity `json:"severity"`
	Detail    string   `json:"detail"`

	Findings        []Finding          `json:"findings,omitempty"`
	Correlations    []Correlation      `json:"correlations,omitempty"`
	Anomalies       []Anomaly          `json:"anomalies,omitempty"`
	Baselines       map[string]float64 `json:"baselines,omitempty"`
	Recommendations []Recommendation   `json:"recommendations,omitempty"`

	// Escalation state is backfilled by the orchestrator after the check
	// returns, by comparison against the previous run's persisted result.
	EscalationNeeded         bool   `json:"escalation_needed,omitempty"`
	ConsecutiveCriticalCount int    `json:"consecutive_critical_count,omitempty"`
	FirstCriticalAt          string `json:"first_critical_at,omitempty"`

	Timestamp  string `json:"timestamp"`
	ModelUsed  string `json:"model_used,omitempty"`
	TokensUsed int    `json:"tokens_used,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// DaemonCheck is a single L1 heuristic check result, read for correlation and
// rendering but never written by this layer.
type DaemonCheck struct {
	Name     string   `json:"name"`
	Severity Severity `json:"severity"`
	Detail   string   `json:"detail"`
}

// CognitiveMeta summarizes one orchestrator run.
type CognitiveMeta struct {
	LastRun         string `json:"last_run"`
	TotalDurationMS int64  `json:"total_duration_ms"`
	TotalTokens     int    `json:"total_tokens"`
	// TotalCostUSD is always 0: cost accounting across fallback providers is
	// an acknowledged gap, not a computed value.
	TotalCostUSD    float64 `json:"total_cost_usd"`
	Model           string  `json:"model"`
	ChecksCompleted int     `json:"checks_completed"`
	ChecksFailed    int     `json:"checks_failed"`
	PluginVersion   string  `json:"plugin_version"`
}

// Document is the in-memory view of the shared status file. The daemon-owned
// region (DaemonChecks, AutoHealHistory, LastCheck, OverallSeverity) is read
// here and preserved verbatim on write; only the cognitive region is owned by
// this layer.
type Document struct {
	DaemonChecks    []DaemonCheck     `json:"daemon_checks,omitempty"`
	AutoHealHistory []json.RawMessage `json:"auto_heal_history,omitempty"`
	LastCheck       string            `json:"last_check,omitempty"`
	OverallSeverity Severity          `json:"overall_severity,omitempty"`

	CognitiveChecks []CheckResult  `json:"cognitive_checks,omitempty"`
	CognitiveMeta   *CognitiveMeta `json:"cognitive_meta,omitempty"`
}

// CognitiveResult returns the persisted result for the given check name, or
// nil if the document has none. Used by the escalation backfill.
func (d *Document) CognitiveResult(checkName string) *CheckResult {
	if d == nil {
		return nil
	}
	for i := range d.CognitiveChecks {
		if d.CognitiveChecks[i].CheckName == checkName {
			return &d.CognitiveChecks[i]
		}
	}
	return nil
}

// Snapshot is one history entry of named metric values.
type Snapshot struct {
	Timestamp string             `json:"timestamp"`
	Metrics   map[string]float64 `json:"metrics"`
}

// History is the append-only metric history document, read-only here. The
// snapshot order on disk is oldest first.
type History struct {
	Snapshots []Snapshot `json:"snapshots"`
}
