package cognitive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/alberthild/openclaw-leuko/internal/config"
	"github.com/alberthild/openclaw-leuko/internal/status"
)

// consumerDeadAfter is the thread-file age past which a backlog of events
// means the consumer is gone rather than slow.
const consumerDeadAfter = 4 * time.Hour

// StreamCounter reports the total message count of a named event stream.
// ok=false means the capability is unavailable (CLI missing, stream absent),
// which silences event-based correlations rather than raising an error.
type StreamCounter func(ctx context.Context, stream string) (int64, bool)

// NATSStreamCounter shells out to the nats CLI. The CLI is an optional
// external capability; any failure degrades to "unknown".
func NATSStreamCounter(ctx context.Context, stream string) (int64, bool) {
	if stream == "" {
		return 0, false
	}
	out, err := exec.CommandContext(ctx, "nats", "stream", "info", stream, "-j").Output()
	if err != nil {
		return 0, false
	}
	var info struct {
		State struct {
			Messages int64 `json:"messages"`
		} `json:"state"`
	}
	if err := json.Unmarshal(out, &info); err != nil {
		return 0, false
	}
	return info.State.Messages, true
}

// pipelineCorrelationCheck cross-references independent signals (event
// backlog, thread-file freshness, daemon check results, time of day) and
// diagnoses pipeline breaks no single signal reveals on its own. Fully
// deterministic; no LLM involved.
type pipelineCorrelationCheck struct {
	threadsPath string
	natsStream  string
	windowHours float64
	hours       config.BusinessHours
	daemon      []status.DaemonCheck
	countStream StreamCounter
	now         func() time.Time
}

func (c *pipelineCorrelationCheck) run(ctx context.Context) status.CheckResult {
	start := time.Now()

	var correlations []status.Correlation
	var severities []status.Severity

	events, eventsKnown := int64(0), false
	if c.countStream != nil {
		events, eventsKnown = c.countStream(ctx, c.natsStream)
	}

	threadAge, threadAgeKnown := c.threadsFileAge()

	// Events accumulating while the threads file sits untouched: the
	// consumer stopped reading, or is badly behind.
	if eventsKnown && events > 0 && threadAgeKnown {
		ageHours := threadAge.Hours()
		switch {
		case threadAge > consumerDeadAfter:
			correlations = append(correlations, status.Correlation{
				InputSignal:  fmt.Sprintf("%d messages on stream %s", events, c.natsStream),
				OutputSignal: fmt.Sprintf("threads file untouched for %.1fh", ageHours),
				Diagnosis:    "consumer_disconnected",
			})
			severities = append(severities, status.SeverityCritical)
		case ageHours > c.windowHours:
			correlations = append(correlations, status.Correlation{
				InputSignal:  fmt.Sprintf("%d messages on stream %s", events, c.natsStream),
				OutputSignal: fmt.Sprintf("threads file untouched for %.1fh", ageHours),
				Diagnosis:    "consumer_slow",
			})
			severities = append(severities, status.SeverityWarn)
		}
	}

	// Cron jobs all green while their outputs go stale: the scheduler runs
	// but whatever it triggers no longer reaches the outputs.
	cronOK, staleOutputs := c.daemonSignals()
	if cronOK && staleOutputs >= 2 {
		correlations = append(correlations, status.Correlation{
			InputSignal:  "all cron-health daemon checks ok",
			OutputSignal: fmt.Sprintf("%d output_freshness checks not ok", staleOutputs),
			Diagnosis:    "pipeline_disconnected",
		})
		severities = append(severities, status.SeverityWarn)
	}

	// Zero events during business hours: the event source itself is silent.
	if eventsKnown && events == 0 && withinBusinessHours(c.hours, c.now()) {
		correlations = append(correlations, status.Correlation{
			InputSignal:  fmt.Sprintf("0 messages on stream %s", c.natsStream),
			OutputSignal: "within configured business hours",
			Diagnosis:    "event_source_silent",
		})
		severities = append(severities, status.SeverityWarn)
	}

	detail := "All pipeline correlations normal"
	if len(correlations) > 0 {
		diagnoses := make([]string, len(correlations))
		for i, cor := range correlations {
			diagnoses[i] = cor.Diagnosis
		}
		detail = "Pipeline issues: " + strings.Join(diagnoses, ", ")
	}
	return stamp(status.CheckResult{
		Severity:     status.Worst(severities...),
		Detail:       detail,
		Correlations: correlations,
	}, status.CheckPipelineCorrelation, start)
}

func (c *pipelineCorrelationCheck) threadsFileAge() (time.Duration, bool) {
	info, err := os.Stat(c.threadsPath)
	if err != nil {
		return 0, false
	}
	return c.now().Sub(info.ModTime()), true
}

// daemonSignals reports whether every cron-health daemon check is ok and how
// many output_freshness checks are not.
func (c *pipelineCorrelationCheck) daemonSignals() (cronOK bool, staleOutputs int) {
	cronOK = true
	sawCron := false
	for _, d := range c.daemon {
		if strings.HasPrefix(d.Name, "cron") {
			sawCron = true
			if d.Severity != status.SeverityOK {
				cronOK = false
			}
		}
		if strings.HasPrefix(d.Name, "output_freshness:") && d.Severity != status.SeverityOK {
			staleOutputs++
		}
	}
	return cronOK && sawCron, staleOutputs
}

// tzOffsetHours maps a handful of zone names onto fixed UTC offsets. This is
// a known approximation inherited from the L1 daemon: it ignores daylight
// saving entirely, so the business-hours boundary drifts by an hour for part
// of the year in DST zones.
func tzOffsetHours(tz string) int {
	switch tz {
	case "", "UTC", "Etc/UTC", "Europe/London":
		return 0
	case "Europe/Berlin", "Europe/Paris", "Europe/Amsterdam":
		return 1
	case "America/New_York":
		return -5
	case "America/Chicago":
		return -6
	case "America/Denver":
		return -7
	case "America/Los_Angeles":
		return -8
	case "Asia/Tokyo":
		return 9
	case "Australia/Sydney":
		return 10
	default:
		return 0
	}
}

func withinBusinessHours(h config.BusinessHours, now time.Time) bool {
	if h.Start == h.End {
		return false
	}
	hour := now.UTC().Add(time.Duration(tzOffsetHours(h.TZ)) * time.Hour).Hour()
	if h.Start < h.End {
		return hour >= h.Start && hour < h.End
	}
	// Overnight window, e.g. 22–6.
	return hour >= h.Start || hour < h.End
}
