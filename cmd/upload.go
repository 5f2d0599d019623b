package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wolfv/continuous-benchmark/pipeline"
)

// uploadCmd runs the full pipeline over a results file.
var uploadCmd = &cobra.Command{
	Use:   "upload [results.csv]",
	Short: "Upload a benchmark run: store history, push metrics, mail the report",
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

		analysis, err := p.Upload(ctx, resultsPath)
		if err != nil {
			return err
		}

		printAnalysis(os.Stdout, analysis)
		if analysis.Regressions > 0 {
			fmt.Fprintf(os.Stdout, "\n%d regression(s) detected\n", analysis.Regressions)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}
