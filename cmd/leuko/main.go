// Command leuko is the L2 cognitive health layer of an agent runtime: it
// enriches the heuristic daemon's status file with LLM-assisted and
// deterministic checks and exposes the merged result to the host.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	baseDir    string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "leuko",
	Short: "Cognitive health checks for an agent runtime",
	Long: `leuko runs the cognitive (L2) health layer: it reads the status file
maintained by the heuristic daemon (L1), runs LLM-assisted and deterministic
checks over the agent's goals, threads, pipeline and memory, and merges the
results back into the shared status document atomically.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// API keys commonly live in a .env next to the agent state.
		_ = godotenv.Load()

		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

		if baseDir == "" {
			baseDir = defaultBaseDir()
		}
	},
}

// defaultBaseDir resolves the agent state directory when none is given:
// $OPENCLAW_HOME, else ~/.openclaw, else the working directory.
func defaultBaseDir() string {
	if dir := os.Getenv("OPENCLAW_HOME"); dir != "" {
		return dir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return home + "/.openclaw"
	}
	return "."
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to plugin config (JSON or YAML)")
	rootCmd.PersistentFlags().StringVar(&baseDir, "base-dir", "", "agent state directory (default: $OPENCLAW_HOME or ~/.openclaw)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
