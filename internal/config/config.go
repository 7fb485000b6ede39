// Package config holds the plugin configuration consumed by the cognitive
// layer. The host loads and validates a JSON config before this layer runs;
// the loader here mirrors that contract and additionally accepts YAML for
// hand-written files. The base directory is always passed in explicitly so
// path resolution stays testable and side-effect-free.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/alberthild/openclaw-leuko/internal/llm"
)

// Check short names, also the keys of the Checks map. The cognitive: prefix
// is added when results are persisted.
const (
	CheckGoalQuality         = "goal_quality"
	CheckThreadHealth        = "thread_health"
	CheckPipelineCorrelation = "pipeline_correlation"
	CheckAnomalyDetection    = "anomaly_detection"
	CheckBootstrapIntegrity  = "bootstrap_integrity"
	CheckRecommendations     = "recommendations"
)

// CheckSettings is the per-check toggle block.
type CheckSettings struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	// UsesLLM can be switched off to run an LLM-backed check on its
	// deterministic pre-filter alone. A pointer so that a config naming a
	// check without this field inherits the check's default instead of
	// silently disabling the model.
	UsesLLM *bool `json:"usesLlm,omitempty" yaml:"usesLlm,omitempty"`
	// InputPath is the check's subject file, resolved against the base dir
	// when relative.
	InputPath string `json:"inputPath,omitempty" yaml:"inputPath,omitempty"`
}

// LLMEnabled reports whether the check should call the model.
func (s CheckSettings) LLMEnabled() bool {
	return s.UsesLLM != nil && *s.UsesLLM
}

// MonitoredDir names a directory whose top-level size feeds the anomaly
// check. The metric key in history snapshots is "<label>_dir_mb".
type MonitoredDir struct {
	Label string `json:"label" yaml:"label"`
	Path  string `json:"path" yaml:"path"`
}

// BusinessHours is a fixed-UTC-offset approximation of working hours. TZ is a
// named zone mapped onto a static offset; this deliberately ignores daylight
// saving, matching the behavior the L1 daemon already relies on.
type BusinessHours struct {
	Start int    `json:"start" yaml:"start"`
	End   int    `json:"end" yaml:"end"`
	TZ    string `json:"tz" yaml:"tz"`
}

// LLMConfig holds the provider chain.
type LLMConfig struct {
	Primary  llm.ProviderSpec `json:"primary" yaml:"primary"`
	Fallback llm.ProviderSpec `json:"fallback,omitempty" yaml:"fallback,omitempty"`
}

// Config is the full plugin configuration.
type Config struct {
	// BaseDir anchors all relative paths. Never read from the file itself;
	// injected by the caller.
	BaseDir string `json:"-" yaml:"-"`

	StatusPath  string `json:"statusPath,omitempty" yaml:"statusPath,omitempty"`
	HistoryPath string `json:"historyPath,omitempty" yaml:"historyPath,omitempty"`

	Checks map[string]CheckSettings `json:"checks" yaml:"checks"`
	LLM    LLMConfig                `json:"llm" yaml:"llm"`

	MaxRecommendations     int            `json:"maxRecommendations,omitempty" yaml:"maxRecommendations,omitempty"`
	StaleDays              int            `json:"staleDays,omitempty" yaml:"staleDays,omitempty"`
	MonitoredDirs          []MonitoredDir `json:"monitoredDirs,omitempty" yaml:"monitoredDirs,omitempty"`
	NATSStream             string         `json:"natsStream,omitempty" yaml:"natsStream,omitempty"`
	CorrelationWindowHours float64        `json:"correlationWindowHours,omitempty" yaml:"correlationWindowHours,omitempty"`
	BusinessHours          BusinessHours  `json:"businessHours,omitempty" yaml:"businessHours,omitempty"`

	PluginVersion string `json:"pluginVersion,omitempty" yaml:"pluginVersion,omitempty"`
}

// Default returns a configuration with every check enabled and paths
// resolved under baseDir.
func Default(baseDir string) *Config {
	cfg := &Config{
		BaseDir:     baseDir,
		StatusPath:  filepath.Join(baseDir, "health", "status.json"),
		HistoryPath: filepath.Join(baseDir, "health", "history.json"),
		Checks: map[string]CheckSettings{
			CheckGoalQuality:         {Enabled: true, UsesLLM: boolPtr(true), InputPath: filepath.Join(baseDir, "goals.json")},
			CheckThreadHealth:        {Enabled: true, UsesLLM: boolPtr(true), InputPath: filepath.Join(baseDir, "threads.json")},
			CheckPipelineCorrelation: {Enabled: true, UsesLLM: boolPtr(false), InputPath: filepath.Join(baseDir, "threads.json")},
			CheckAnomalyDetection:    {Enabled: true, UsesLLM: boolPtr(false)},
			CheckBootstrapIntegrity:  {Enabled: true, UsesLLM: boolPtr(true), InputPath: filepath.Join(baseDir, "BOOTSTRAP.md")},
			CheckRecommendations:     {Enabled: true, UsesLLM: boolPtr(true)},
		},
		MaxRecommendations:     5,
		StaleDays:              5,
		CorrelationWindowHours: 2,
		BusinessHours:          BusinessHours{Start: 9, End: 18, TZ: "UTC"},
		PluginVersion:          "0.3.0",
	}
	return cfg
}

// Load reads a config file (JSON, or YAML as a fallback for hand-written
// files), overlays it on the defaults for baseDir, resolves relative paths
// and validates.
func Load(path, baseDir string) (*Config, error) {
	cfg := Default(baseDir)
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
		if yamlErr := yaml.Unmarshal(data, cfg); yamlErr != nil {
			return nil, fmt.Errorf("parsing config %s: not JSON (%v) and not YAML (%v)", path, jsonErr, yamlErr)
		}
	}

	cfg.BaseDir = baseDir
	cfg.applyDefaults()
	cfg.resolvePaths()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.MaxRecommendations <= 0 {
		c.MaxRecommendations = 5
	}
	if c.StaleDays <= 0 {
		c.StaleDays = 5
	}
	if c.CorrelationWindowHours <= 0 {
		c.CorrelationWindowHours = 2
	}
	if c.Checks == nil {
		c.Checks = Default(c.BaseDir).Checks
	}
	// JSON/YAML overlay replaces map elements wholesale: a config that names
	// a check with only some of its fields must still inherit that check's
	// defaults for the rest.
	for name, def := range Default(c.BaseDir).Checks {
		check, ok := c.Checks[name]
		if !ok {
			continue
		}
		if check.UsesLLM == nil {
			check.UsesLLM = def.UsesLLM
		}
		if check.InputPath == "" {
			check.InputPath = def.InputPath
		}
		c.Checks[name] = check
	}
	if c.StatusPath == "" {
		c.StatusPath = filepath.Join(c.BaseDir, "health", "status.json")
	}
	if c.HistoryPath == "" {
		c.HistoryPath = filepath.Join(c.BaseDir, "health", "history.json")
	}
}

func (c *Config) resolvePaths() {
	c.StatusPath = c.resolve(c.StatusPath)
	c.HistoryPath = c.resolve(c.HistoryPath)
	for name, check := range c.Checks {
		check.InputPath = c.resolve(check.InputPath)
		c.Checks[name] = check
	}
	for i := range c.MonitoredDirs {
		c.MonitoredDirs[i].Path = c.resolve(c.MonitoredDirs[i].Path)
	}
}

func (c *Config) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.BaseDir, path)
}

func (c *Config) validate() error {
	for name := range c.Checks {
		switch name {
		case CheckGoalQuality, CheckThreadHealth, CheckPipelineCorrelation,
			CheckAnomalyDetection, CheckBootstrapIntegrity, CheckRecommendations:
		default:
			return fmt.Errorf("unknown check %q in config", name)
		}
	}
	if h := c.BusinessHours; h.Start < 0 || h.Start > 23 || h.End < 0 || h.End > 24 {
		return fmt.Errorf("businessHours out of range: start=%d end=%d", h.Start, h.End)
	}
	if v := c.PluginVersion; v != "" && !semver.IsValid("v"+strings.TrimPrefix(v, "v")) {
		slog.Warn("pluginVersion is not valid semver", "version", v)
	}
	return nil
}

// Check returns the settings for a check name, zero-valued (disabled) when
// absent from the map.
func (c *Config) Check(name string) CheckSettings {
	return c.Checks[name]
}

func boolPtr(b bool) *bool { return &b }
