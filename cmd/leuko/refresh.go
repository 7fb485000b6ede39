package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/alberthild/openclaw-leuko/internal/cognitive"
	"github.com/alberthild/openclaw-leuko/internal/config"
	"github.com/alberthild/openclaw-leuko/internal/llm"
	"github.com/alberthild/openclaw-leuko/internal/metrics"
	"github.com/alberthild/openclaw-leuko/internal/status"
)

var metricsListen string

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Run all cognitive checks once and persist the results",
	Long: `Run the enabled cognitive checks in order and merge the results into the
shared status document. The daemon-owned region of the document is preserved.

Examples:
  leuko refresh
  leuko refresh --config leuko.json
  leuko refresh --metrics-listen :9832`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(configPath, baseDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		recorder := metrics.NewRecorder()
		if metricsListen != "" {
			go func() {
				mux := http.NewServeMux()
				mux.Handle("/metrics", recorder.Handler())
				_ = http.ListenAndServe(metricsListen, mux)
			}()
		}

		var client *llm.Client
		if cfg.LLM.Primary.Model != "" {
			client = llm.NewClient(cfg.LLM.Primary, cfg.LLM.Fallback, llm.Options{})
		}

		orch := cognitive.New(cfg, client, recorder)
		update := orch.Run(context.Background())

		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()

		if !status.WriteDocument(cfg.StatusPath, update) {
			recorder.WriteFailures.Inc()
			fmt.Fprintf(os.Stderr, "%s refresh failed: could not write %s\n", red("✗"), cfg.StatusPath)
			os.Exit(1)
		}

		fmt.Printf("%s refreshed %d checks (%d failed, %d tokens) → %s\n",
			green("✓"),
			update.CognitiveMeta.ChecksCompleted,
			update.CognitiveMeta.ChecksFailed,
			update.CognitiveMeta.TotalTokens,
			cfg.StatusPath)
	},
}

func init() {
	refreshCmd.Flags().StringVar(&metricsListen, "metrics-listen", "", "serve Prometheus metrics on this address while refreshing")
	rootCmd.AddCommand(refreshCmd)
}
