package status

import (
	"encoding/json"
	"log/slog"
	"os"
	"unicode/utf8"
)

// DefaultMaxInputChars bounds how much of a subject file is fed to an LLM
// prompt.
const DefaultMaxInputChars = 4000

// ReadDocument loads the status file at path. It returns nil, never an error:
// a missing file is an expected cold-start state (debug log), and a malformed
// file degrades to nil with a warning. Individually malformed fields or array
// elements are dropped without discarding the rest of the document.
func ReadDocument(path string) *Document {
	fields := readObject(path)
	if fields == nil {
		return nil
	}

	doc := &Document{}
	doc.DaemonChecks = decodeEach[DaemonCheck](fields["daemon_checks"], path, "daemon_checks")
	for i := range doc.DaemonChecks {
		doc.DaemonChecks[i].Severity = ParseSeverity(string(doc.DaemonChecks[i].Severity))
	}
	decodeField(fields["auto_heal_history"], &doc.AutoHealHistory, path, "auto_heal_history")
	decodeField(fields["last_check"], &doc.LastCheck, path, "last_check")

	var overall string
	decodeField(fields["overall_severity"], &overall, path, "overall_severity")
	doc.OverallSeverity = ParseSeverity(overall)

	doc.CognitiveChecks = decodeEach[CheckResult](fields["cognitive_checks"], path, "cognitive_checks")
	for i := range doc.CognitiveChecks {
		doc.CognitiveChecks[i].Severity = ParseSeverity(string(doc.CognitiveChecks[i].Severity))
	}

	var meta CognitiveMeta
	if ok := decodeField(fields["cognitive_meta"], &meta, path, "cognitive_meta"); ok && fields["cognitive_meta"] != nil {
		doc.CognitiveMeta = &meta
	}

	return doc
}

// ReadHistory loads the metric history at path. It accepts either the
// canonical {"snapshots": [...]} wrapper or a bare top-level array, and drops
// malformed snapshot entries element-wise.
func ReadHistory(path string) *History {
	raw := readFile(path)
	if raw == nil {
		return nil
	}

	var entries []json.RawMessage
	var wrapper struct {
		Snapshots []json.RawMessage `json:"snapshots"`
	}
	if err := json.Unmarshal(raw, &wrapper); err == nil && wrapper.Snapshots != nil {
		entries = wrapper.Snapshots
	} else if err := json.Unmarshal(raw, &entries); err != nil {
		slog.Warn("history file is neither an object nor an array", "path", path, "error", err)
		return nil
	}

	hist := &History{}
	for _, entry := range entries {
		var snap Snapshot
		if err := json.Unmarshal(entry, &snap); err != nil {
			slog.Warn("dropping malformed history snapshot", "path", path, "error", err)
			continue
		}
		if snap.Metrics == nil {
			snap.Metrics = map[string]float64{}
		}
		hist.Snapshots = append(hist.Snapshots, snap)
	}
	return hist
}

// ReadTextFile returns the full text of path, or ok=false when the file is
// absent or unreadable. Checks that parse their subject read it whole;
// truncation is a prompt-building concern, not a reading one.
func ReadTextFile(path string) (string, bool) {
	raw := readFile(path)
	if raw == nil {
		return "", false
	}
	return string(raw), true
}

// ReadTextInput returns the raw text of path truncated to maxChars, or empty
// string with ok=false when the file is absent or unreadable. maxChars <= 0
// uses DefaultMaxInputChars.
func ReadTextInput(path string, maxChars int) (string, bool) {
	if maxChars <= 0 {
		maxChars = DefaultMaxInputChars
	}
	text, ok := ReadTextFile(path)
	if !ok {
		return "", false
	}
	return Truncate(text, maxChars), true
}

// Truncate cuts s to at most n bytes, backing off to a rune boundary so the
// cut never produces invalid UTF-8.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// readFile reads path, returning nil for any absence or I/O failure.
func readFile(path string) []byte {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Debug("file not present", "path", path)
		} else {
			slog.Warn("failed to read file", "path", path, "error", err)
		}
		return nil
	}
	return data
}

// readObject reads path and splits the top-level JSON object into raw fields.
// Returns nil when the file is absent, unparsable, or not an object.
func readObject(path string) map[string]json.RawMessage {
	raw := readFile(path)
	if raw == nil {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		slog.Warn("file is not a JSON object", "path", path, "error", err)
		return nil
	}
	return fields
}

// decodeField unmarshals one raw field into dst, logging and leaving dst at
// its zero value on mismatch. A nil raw field is not an error.
func decodeField(raw json.RawMessage, dst any, path, field string) bool {
	if raw == nil {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		slog.Warn("dropping malformed field", "path", path, "field", field, "error", err)
		return false
	}
	return true
}

// decodeEach unmarshals a raw JSON array element-wise, dropping malformed
// elements instead of rejecting the whole array. A single corrupted entry
// must not erase an otherwise valid status file.
func decodeEach[T any](raw json.RawMessage, path, field string) []T {
	if raw == nil {
		return nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		slog.Warn("dropping non-array field", "path", path, "field", field, "error", err)
		return nil
	}
	var out []T
	for i, elem := range elems {
		var v T
		if err := json.Unmarshal(elem, &v); err != nil {
			slog.Warn("dropping malformed array element",
				"path", path, "field", field, "index", i, "error", err)
			continue
		}
		out = append(out, v)
	}
	return out
}
