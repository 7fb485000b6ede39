// Package status defines the shared status document written by the L1 daemon
// and enriched by the L2 cognitive layer, plus the readers and the atomic
// merge-writer that keep the two writers from clobbering each other.
package status

// Severity is the three-level health lattice used across the whole plugin.
// The zero value is SeverityOK, which is also the fail-open default whenever
// information is missing or malformed.
type Severity string

const (
	SeverityOK       Severity = "ok"
	SeverityWarn     Severity = "warn"
	SeverityCritical Severity = "critical"
)

// rank maps severities onto the lattice order ok < warn < critical.
var rank = map[Severity]int{
	SeverityOK:       0,
	SeverityWarn:     1,
	SeverityCritical: 2,
}

// ParseSeverity maps arbitrary textual input onto the lattice. Anything that
// is not exactly "ok", "warn" or "critical" becomes ok. A garbled severity
// from an LLM or a corrupted file must never manufacture alarm.
func ParseSeverity(v string) Severity {
	switch Severity(v) {
	case SeverityOK, SeverityWarn, SeverityCritical:
		return Severity(v)
	default:
		return SeverityOK
	}
}

// Worst returns the maximum of the given severities under the lattice order.
// With no arguments it returns ok.
func Worst(severities ...Severity) Severity {
	worst := SeverityOK
	for _, s := range severities {
		if rank[s] > rank[worst] {
			worst = s
		}
	}
	return worst
}

// AtLeast reports whether s is at or above the given floor.
func (s Severity) AtLeast(floor Severity) bool {
	return rank[s] >= rank[floor]
}
