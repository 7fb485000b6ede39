package status

import (
	"fmt"
	"strings"
)

// Ellipsis marks a truncated issues rendering.
const Ellipsis = "…"

// RenderIssues produces the bounded one-line summary of current issues that
// hosts embed in prompts and notifications. Issues are ordered worst-first;
// the output never exceeds maxLen and ends with the ellipsis marker when
// truncated. A fully healthy document renders as "all clear".
func RenderIssues(doc *Document, maxLen int) string {
	if maxLen <= 0 {
		maxLen = 500
	}
	if doc == nil {
		return "no status available"
	}

	var parts []string
	for _, sev := range []Severity{SeverityCritical, SeverityWarn} {
		for _, d := range doc.DaemonChecks {
			if d.Severity == sev {
				parts = append(parts, fmt.Sprintf("%s [%s]: %s", d.Name, d.Severity, d.Detail))
			}
		}
		for _, c := range doc.CognitiveChecks {
			if c.Severity == sev {
				parts = append(parts, fmt.Sprintf("%s [%s]: %s", c.CheckName, c.Severity, c.Detail))
			}
		}
	}
	if len(parts) == 0 {
		return "all clear"
	}

	rendered := strings.Join(parts, "; ")
	if len(rendered) <= maxLen {
		return rendered
	}
	return Truncate(rendered, maxLen-len(Ellipsis)) + Ellipsis
}
