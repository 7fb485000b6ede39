package cognitive

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alberthild/openclaw-leuko/internal/config"
	"github.com/alberthild/openclaw-leuko/internal/llm"
	"github.com/alberthild/openclaw-leuko/internal/metrics"
	"github.com/alberthild/openclaw-leuko/internal/status"
)

// Orchestrator runs the enabled checks in their fixed dependency order and
// assembles the cognitive update for the status writer. Checks run strictly
// sequentially: recommendations consumes every prior result, and a single
// run-wide token budget is easier to account for without fan-out.
type Orchestrator struct {
	cfg      *config.Config
	client   generator
	recorder *metrics.Recorder

	// Seams for tests; production wiring fills these in New.
	now         func() time.Time
	countStream StreamCounter
}

// New builds an orchestrator. client may be nil when every LLM-backed check
// is disabled or running pre-filter-only. recorder may be nil.
func New(cfg *config.Config, client *llm.Client, recorder *metrics.Recorder) *Orchestrator {
	o := &Orchestrator{
		cfg:         cfg,
		now:         time.Now,
		countStream: NATSStreamCounter,
	}
	// A typed-nil *llm.Client must stay a nil generator.
	if client != nil {
		o.client = client
	}
	o.recorder = recorder
	return o
}

// Run executes one full orchestrator pass: read the previous document and
// history, run the enabled checks in their fixed order, backfill escalation
// state against the previous run, and aggregate run metadata. It never
// returns an error; a check that blows up is logged, counted in
// checks_failed, and the run continues.
func (o *Orchestrator) Run(ctx context.Context) status.Update {
	runID := uuid.NewString()[:8]
	start := time.Now()
	slog.Info("cognitive run starting", "run_id", runID)
	if o.recorder != nil {
		o.recorder.RunsTotal.Inc()
	}

	previous := status.ReadDocument(o.cfg.StatusPath)
	history := status.ReadHistory(o.cfg.HistoryPath)

	var daemon []status.DaemonCheck
	if previous != nil {
		daemon = previous.DaemonChecks
	}

	var results []status.CheckResult
	failed := 0

	for _, name := range checkOrder {
		settings := o.cfg.Check(name)
		if !settings.Enabled {
			continue
		}
		result, err := o.runOne(ctx, name, settings, history, daemon, results)
		if err != nil {
			failed++
			slog.Error("check failed unexpectedly", "run_id", runID, "check", name, "error", err)
			if o.recorder != nil {
				o.recorder.ChecksFailed.Inc()
			}
			continue
		}
		o.record(result)
		results = append(results, result)
	}

	applyEscalation(results, previous)

	meta := status.CognitiveMeta{
		LastRun:         o.now().UTC().Format(time.RFC3339),
		TotalDurationMS: time.Since(start).Milliseconds(),
		TotalCostUSD:    0,
		Model:           o.cfg.LLM.Primary.ID(),
		ChecksCompleted: len(results),
		ChecksFailed:    failed,
		PluginVersion:   o.cfg.PluginVersion,
	}
	for _, r := range results {
		meta.TotalTokens += r.TokensUsed
	}
	if o.recorder != nil {
		o.recorder.TokensTotal.Add(float64(meta.TotalTokens))
	}

	slog.Info("cognitive run finished",
		"run_id", runID,
		"completed", meta.ChecksCompleted,
		"failed", meta.ChecksFailed,
		"tokens", meta.TotalTokens,
		"duration_ms", meta.TotalDurationMS)

	return status.Update{CognitiveChecks: results, CognitiveMeta: meta}
}

// checkOrder is the fixed dependency order: recommendations must come last
// because it consumes every prior result.
var checkOrder = []string{
	config.CheckGoalQuality,
	config.CheckThreadHealth,
	config.CheckPipelineCorrelation,
	config.CheckAnomalyDetection,
	config.CheckBootstrapIntegrity,
	config.CheckRecommendations,
}

// runOne dispatches to the right check implementation with panic isolation:
// a bug in one check must not take down the rest of the run.
func (o *Orchestrator) runOne(ctx context.Context, name string, settings config.CheckSettings,
	history *status.History, daemon []status.DaemonCheck, prior []status.CheckResult) (result status.CheckResult, err error) {

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", name, r)
		}
	}()

	switch name {
	case config.CheckGoalQuality:
		return runLLMCheck(ctx, o.client, settings.LLMEnabled(),
			&goalQualityCheck{path: settings.InputPath, now: o.now}), nil

	case config.CheckThreadHealth:
		return runLLMCheck(ctx, o.client, settings.LLMEnabled(),
			&threadHealthCheck{path: settings.InputPath, staleDays: o.cfg.StaleDays, now: o.now}), nil

	case config.CheckPipelineCorrelation:
		check := &pipelineCorrelationCheck{
			threadsPath: settings.InputPath,
			natsStream:  o.cfg.NATSStream,
			windowHours: o.cfg.CorrelationWindowHours,
			hours:       o.cfg.BusinessHours,
			daemon:      daemon,
			countStream: o.countStream,
			now:         o.now,
		}
		return check.run(ctx), nil

	case config.CheckAnomalyDetection:
		check := &anomalyDetectionCheck{dirs: o.cfg.MonitoredDirs, history: history, now: o.now}
		return check.run(), nil

	case config.CheckBootstrapIntegrity:
		return runLLMCheck(ctx, o.client, settings.LLMEnabled(),
			&bootstrapIntegrityCheck{path: settings.InputPath}), nil

	case config.CheckRecommendations:
		return runLLMCheck(ctx, o.client, settings.LLMEnabled(),
			&recommendationsCheck{prior: prior, daemon: daemon, maxRecs: o.cfg.MaxRecommendations}), nil

	default:
		return status.CheckResult{}, fmt.Errorf("unknown check %q", name)
	}
}

func (o *Orchestrator) record(result status.CheckResult) {
	if o.recorder == nil {
		return
	}
	o.recorder.CheckDuration.WithLabelValues(result.CheckName).
		Observe(float64(result.DurationMS) / 1000)
	o.recorder.CheckSeverity.WithLabelValues(result.CheckName).
		Set(metrics.SeverityValue(string(result.Severity)))
}
