package cmd

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/wolfv/continuous-benchmark/config"
)

var (
	cfgFile   string
	logFormat string
)

// rootCmd is the base command; every subcommand hangs off it.
var rootCmd = &cobra.Command{
	Use:   "benchup",
	Short: "Upload benchmark results, track per-branch history, and flag regressions",
	Long: `benchup ingests Google Benchmark CSV results, keeps a per-branch
history (GitHub gist, SQL, or a local Pebble store), statistically compares
new runs against the baseline branch, forwards timings to Graphite, and
mails an HTML report.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLog(logFormat)
	},
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to config file (default: ./benchup.yaml)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "Log format: 'json' or 'console'")
}

func setupLog(format string) {
	if strings.ToLower(format) == "json" {
		zerolog.TimeFieldFormat = time.RFC3339Nano
		log.Logger = log.Output(os.Stderr)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}
