package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wolfv/continuous-benchmark/pipeline"
)

var (
	checkJSON   bool
	checkStrict bool
)

// checkCmd is the CI gate: compare only, exit 1 on regression, write
// nothing anywhere.
var checkCmd = &cobra.Command{
	Use:   "check [results.csv]",
	Short: "Compare a run against baseline history and exit non-zero on regression",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resultsPath := "results.csv"
		if len(args) == 1 {
			resultsPath = args[0]
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := context.Background()
		p, err := pipeline.New(ctx, cfg)
		if err != nil {
			return err
		}
		defer p.Close()

		_, _, analysis, err := p.Analyze(ctx, resultsPath)
		if err != nil {
			return err
		}

		if checkJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(analysis); err != nil {
				return err
			}
		} else {
			printAnalysis(os.Stdout, analysis)
		}

		failed := analysis.Regressions > 0
		if checkStrict && analysis.Indeterminate > 0 {
			failed = true
		}
		if failed {
			return fmt.Errorf("%d regression(s), %d indeterminate", analysis.Regressions, analysis.Indeterminate)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Emit the analysis as JSON")
	checkCmd.Flags().BoolVar(&checkStrict, "strict", false, "Also fail on indeterminate verdicts")
}
