package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/wolfv/continuous-benchmark/config"
	"github.com/wolfv/continuous-benchmark/history"
	"github.com/wolfv/continuous-benchmark/report"
)

var (
	reportCase   string
	reportBranch string
	reportRuns   int
	reportOut    string
)

// reportCmd renders stored history as an HTML chart page.
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render an HTML chart page of stored benchmark history",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := context.Background()
		store, hostname, branch, err := openStore(ctx, cfg, reportBranch)
		if err != nil {
			return err
		}
		defer store.Close()

		recs, err := store.RecentRuns(ctx, hostname, branch, reportRuns)
		if err != nil {
			return fmt.Errorf("loading history for %s_%s: %w", hostname, branch, err)
		}

		f, err := os.Create(reportOut)
		if err != nil {
			return err
		}
		defer f.Close()

		if err := report.RenderHistory(f, reportCase, recs); err != nil {
			return err
		}
		log.Info().Str("path", reportOut).Int("runs", len(recs)).Msg("Report written")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportCase, "case", "", "Chart a single benchmark case (default: all)")
	reportCmd.Flags().StringVar(&reportBranch, "branch", "", "Branch history to chart (default: baseline branch)")
	reportCmd.Flags().IntVar(&reportRuns, "runs", 50, "How many recent runs to chart")
	reportCmd.Flags().StringVar(&reportOut, "out", "bench_report.html", "Output HTML file")
}

// openStore builds the configured history store and resolves the
// (hostname, branch) key that report and history commands operate on.
func openStore(ctx context.Context, cfg *config.Config, branch string) (history.Store, string, string, error) {
	if err := cfg.Validate(); err != nil {
		return nil, "", "", err
	}

	hostname := cfg.Hostname
	if hostname == "" {
		h, err := os.Hostname()
		if err != nil {
			return nil, "", "", err
		}
		hostname = h
	}
	if branch == "" {
		branch = cfg.Baseline
	}

	store, err := history.NewStore(ctx, history.Config{
		Backend:   history.Backend(cfg.History.Backend),
		GistUser:  cfg.Gist.User,
		GistToken: cfg.Gist.Token,
		Driver:    cfg.History.Driver,
		DSN:       cfg.History.DSN,
		Path:      cfg.History.Path,
		Window:    cfg.History.Window,
	})
	if err != nil {
		return nil, "", "", err
	}
	return store, hostname, branch, nil
}
