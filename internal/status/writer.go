package status

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Update is the cognitive payload merged into the shared status document.
// SitrepCollectors is passed through opaquely for hosts that attach collector
// snapshots to the same document.
type Update struct {
	CognitiveChecks  []CheckResult   `json:"cognitive_checks"`
	CognitiveMeta    CognitiveMeta   `json:"cognitive_meta"`
	SitrepCollectors json.RawMessage `json:"sitrep_collectors,omitempty"`
}

// WriteDocument merges update into the document at path and persists it via a
// temp sibling file and rename, so a concurrent reader never observes a
// partial write. Every key of the existing document other than the cognitive
// region is preserved verbatim, including keys this layer knows nothing
// about; that is the only defense against clobbering the daemon's region.
//
// Returns false, never panics, on any failure. A malformed existing document
// is tolerated: it is logged and treated as empty, and the write proceeds
// with only the cognitive fields.
func WriteDocument(path string, update Update) bool {
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); err != nil {
		slog.Warn("status directory does not exist, skipping write", "dir", dir, "error", err)
		return false
	}

	merged := map[string]json.RawMessage{}
	if raw, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(raw, &merged); err != nil {
			slog.Warn("existing status document is malformed, replacing cognitive fields only",
				"path", path, "error", err)
			merged = map[string]json.RawMessage{}
		}
	} else if !os.IsNotExist(err) {
		slog.Warn("could not read existing status document", "path", path, "error", err)
	}

	if err := mergeUpdate(merged, update); err != nil {
		slog.Error("failed to serialize cognitive results", "error", err)
		return false
	}

	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		slog.Error("failed to serialize status document", "error", err)
		return false
	}
	data = append(data, '\n')

	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()[:8]))
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		slog.Error("failed to write temp status file", "path", tmp, "error", err)
		return false
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		slog.Error("failed to commit status file", "path", path, "error", err)
		return false
	}
	return true
}

func mergeUpdate(merged map[string]json.RawMessage, update Update) error {
	if update.CognitiveChecks == nil {
		update.CognitiveChecks = []CheckResult{}
	}
	checks, err := json.Marshal(update.CognitiveChecks)
	if err != nil {
		return fmt.Errorf("marshaling cognitive_checks: %w", err)
	}
	meta, err := json.Marshal(update.CognitiveMeta)
	if err != nil {
		return fmt.Errorf("marshaling cognitive_meta: %w", err)
	}
	merged["cognitive_checks"] = checks
	merged["cognitive_meta"] = meta
	if update.SitrepCollectors != nil {
		merged["sitrep_collectors"] = update.SitrepCollectors
	}
	return nil
}
