package cognitive

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/alberthild/openclaw-leuko/internal/config"
	"github.com/alberthild/openclaw-leuko/internal/status"
)

const (
	// baselineAge is how far back a history snapshot must be to serve as a
	// growth baseline.
	baselineAge = 7 * 24 * time.Hour

	dirGrowthWarnRatio     = 2.0
	dirGrowthCriticalRatio = 5.0

	shrinkWarnStreak     = 3
	shrinkCriticalStreak = 5
)

// trackedMetrics are the history metrics scanned for shrink streaks.
var trackedMetrics = []string{"fact_count", "goal_count", "thread_count"}

// anomalyDetectionCheck compares current directory sizes and metric trends
// against the history document. Fully deterministic; no LLM involved.
// Shrinkage alarms, growth never does: in this domain a shrinking fact or
// thread count suggests data loss, while growth is just the agent working.
type anomalyDetectionCheck struct {
	dirs    []config.MonitoredDir
	history *status.History
	now     func() time.Time
}

func (c *anomalyDetectionCheck) run() status.CheckResult {
	start := time.Now()

	var anomalies []status.Anomaly
	baselines := map[string]float64{}

	for _, dir := range c.dirs {
		metric := dir.Label + "_dir_mb"
		currentMB := dirSizeMB(dir.Path)
		baselines[metric] = currentMB

		baseline, ok := c.baselineFor(metric)
		if !ok || baseline <= 0 {
			continue
		}
		ratio := currentMB / baseline
		var sev status.Severity
		switch {
		case ratio > dirGrowthCriticalRatio:
			sev = status.SeverityCritical
		case ratio > dirGrowthWarnRatio:
			sev = status.SeverityWarn
		default:
			continue
		}
		anomalies = append(anomalies, status.Anomaly{
			Metric:    metric,
			Current:   currentMB,
			Baseline:  baseline,
			Deviation: fmt.Sprintf("%.1fx growth in 7 days", ratio),
			Severity:  sev,
		})
	}

	for _, metric := range trackedMetrics {
		if a, ok := c.shrinkAnomaly(metric); ok {
			anomalies = append(anomalies, a)
		}
	}

	severities := make([]status.Severity, len(anomalies))
	for i, a := range anomalies {
		severities[i] = a.Severity
	}
	detail := "No anomalies detected"
	if len(anomalies) > 0 {
		detail = fmt.Sprintf("%d anomalies detected", len(anomalies))
		if len(anomalies) == 1 {
			detail = "1 anomaly detected"
		}
	}
	return stamp(status.CheckResult{
		Severity:  status.Worst(severities...),
		Detail:    detail,
		Anomalies: anomalies,
		Baselines: baselines,
	}, status.CheckAnomalyDetection, start)
}

// baselineFor returns the value of metric from the nearest snapshot older
// than the baseline age, i.e. the most recent one beyond it.
func (c *anomalyDetectionCheck) baselineFor(metric string) (float64, bool) {
	if c.history == nil {
		return 0, false
	}
	cutoff := c.now().Add(-baselineAge)
	for i := len(c.history.Snapshots) - 1; i >= 0; i-- {
		snap := c.history.Snapshots[i]
		ts, ok := parseTimestamp(snap.Timestamp)
		if !ok || !ts.Before(cutoff) {
			continue
		}
		if v, ok := snap.Metrics[metric]; ok {
			return v, true
		}
	}
	return 0, false
}

// shrinkAnomaly scans the snapshots from most recent backward, counting
// consecutive strictly-decreasing steps of metric. A flat step stops the
// count. Growth streaks are observed but never surfaced.
func (c *anomalyDetectionCheck) shrinkAnomaly(metric string) (status.Anomaly, bool) {
	if c.history == nil {
		return status.Anomaly{}, false
	}
	snaps := c.history.Snapshots

	var values []float64
	for i := len(snaps) - 1; i >= 0; i-- {
		if v, ok := snaps[i].Metrics[metric]; ok {
			values = append(values, v)
		}
	}
	if len(values) < 2 {
		return status.Anomaly{}, false
	}

	decreases, increases := 0, 0
	for i := 0; i+1 < len(values); i++ {
		if values[i] >= values[i+1] {
			break
		}
		decreases++
	}
	for i := 0; i+1 < len(values); i++ {
		if values[i] <= values[i+1] {
			break
		}
		increases++
	}
	if increases >= shrinkWarnStreak {
		slog.Debug("sustained growth trend", "metric", metric, "steps", increases)
	}

	var sev status.Severity
	var phrasing string
	switch {
	case decreases >= shrinkCriticalStreak:
		sev = status.SeverityCritical
		phrasing = fmt.Sprintf("possible data loss: %s decreased %d consecutive snapshots", metric, decreases)
	case decreases >= shrinkWarnStreak:
		sev = status.SeverityWarn
		phrasing = fmt.Sprintf("%s decreased %d consecutive snapshots", metric, decreases)
	default:
		return status.Anomaly{}, false
	}
	return status.Anomaly{
		Metric:    metric,
		Current:   values[0],
		Baseline:  values[decreases],
		Deviation: phrasing,
		Severity:  sev,
	}, true
}

// dirSizeMB sums the sizes of the top-level regular files of path, in MB.
// Per-entry stat errors (dangling symlinks, permission holes) are skipped
// silently; an unreadable directory counts as zero.
func dirSizeMB(path string) float64 {
	entries, err := os.ReadDir(path)
	if err != nil {
		return 0
	}
	var total int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return float64(total) / (1024 * 1024)
}
