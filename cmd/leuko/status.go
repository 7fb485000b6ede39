package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/alberthild/openclaw-leuko/internal/config"
	"github.com/alberthild/openclaw-leuko/internal/status"
)

var (
	statusView   string
	minSeverity  string
	issuesMaxLen int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current health status",
	Long: `Show the current contents of the shared status document.

Views:
  summary          overall state plus one line per issue (default)
  daemon           the heuristic daemon's checks only
  cognitive        the cognitive checks only
  recommendations  the latest recommendations only
  all              everything

Examples:
  leuko status
  leuko status --view cognitive --min-severity warn
  leuko status --view recommendations`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(configPath, baseDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		doc := status.ReadDocument(cfg.StatusPath)
		if doc == nil {
			fmt.Printf("No status document at %s (run 'leuko refresh' or start the daemon)\n", cfg.StatusPath)
			return
		}

		floor := status.ParseSeverity(minSeverity)
		switch statusView {
		case "summary":
			printSummary(doc)
		case "daemon":
			printDaemonChecks(doc, floor)
		case "cognitive":
			printCognitiveChecks(doc, floor)
		case "recommendations":
			printRecommendations(doc)
		case "all":
			printSummary(doc)
			printDaemonChecks(doc, floor)
			printCognitiveChecks(doc, floor)
			printRecommendations(doc)
		default:
			fmt.Fprintf(os.Stderr, "Error: unknown view %q\n", statusView)
			os.Exit(1)
		}
	},
}

func severityBadge(s status.Severity) string {
	switch s {
	case status.SeverityCritical:
		return color.New(color.FgRed, color.Bold).Sprint("CRIT")
	case status.SeverityWarn:
		return color.New(color.FgYellow).Sprint("WARN")
	default:
		return color.New(color.FgGreen).Sprint("OK  ")
	}
}

func printSummary(doc *status.Document) {
	fmt.Printf("Overall: %s (last daemon check %s)\n", severityBadge(doc.OverallSeverity), doc.LastCheck)
	if doc.CognitiveMeta != nil {
		m := doc.CognitiveMeta
		fmt.Printf("Cognitive: %d checks (%d failed), %d tokens, model %s, run %s\n",
			m.ChecksCompleted, m.ChecksFailed, m.TotalTokens, m.Model, m.LastRun)
	}
	fmt.Printf("Issues: %s\n", status.RenderIssues(doc, issuesMaxLen))
}

func printDaemonChecks(doc *status.Document, floor status.Severity) {
	fmt.Println("\nDaemon checks:")
	shown := 0
	for _, d := range doc.DaemonChecks {
		if !d.Severity.AtLeast(floor) {
			continue
		}
		shown++
		fmt.Printf("  %s %-28s %s\n", severityBadge(d.Severity), d.Name, d.Detail)
	}
	if shown == 0 {
		fmt.Println("  (none at or above the requested severity)")
	}
}

func printCognitiveChecks(doc *status.Document, floor status.Severity) {
	fmt.Println("\nCognitive checks:")
	shown := 0
	for _, c := range doc.CognitiveChecks {
		if !c.Severity.AtLeast(floor) {
			continue
		}
		shown++
		fmt.Printf("  %s %-34s %s\n", severityBadge(c.Severity), c.CheckName, c.Detail)
		if c.EscalationNeeded {
			fmt.Printf("       %s critical for %d consecutive runs since %s\n",
				color.New(color.FgRed).Sprint("⚠ escalation needed:"),
				c.ConsecutiveCriticalCount, c.FirstCriticalAt)
		}
		for _, f := range c.Findings {
			subject := f.SubjectID()
			if subject != "" {
				subject = " " + subject
			}
			fmt.Printf("       - [%s]%s %s\n", f.Issue, subject, f.Detail)
		}
		for _, cor := range c.Correlations {
			fmt.Printf("       - %s: %s / %s\n", cor.Diagnosis, cor.InputSignal, cor.OutputSignal)
		}
		for _, a := range c.Anomalies {
			fmt.Printf("       - %s: %s\n", a.Metric, a.Deviation)
		}
	}
	if shown == 0 {
		fmt.Println("  (none at or above the requested severity)")
	}
}

func printRecommendations(doc *status.Document) {
	fmt.Println("\nRecommendations:")
	found := false
	for _, c := range doc.CognitiveChecks {
		for _, r := range c.Recommendations {
			found = true
			fmt.Printf("  [%s] %s → %s: %s\n", r.Priority, r.Type, r.Target, r.Reason)
		}
	}
	if !found {
		fmt.Println("  (none)")
	}
}

func init() {
	statusCmd.Flags().StringVar(&statusView, "view", "summary", "view: summary|daemon|cognitive|recommendations|all")
	statusCmd.Flags().StringVar(&minSeverity, "min-severity", "ok", "hide checks below this severity")
	statusCmd.Flags().IntVar(&issuesMaxLen, "max-issues-len", 500, "truncate the issues line to this many characters")
	rootCmd.AddCommand(statusCmd)
}
