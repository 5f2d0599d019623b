package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	historyBranch string
	historyRuns   int
	pruneKeep     int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and maintain stored benchmark history",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored runs for a (hostname, branch) key",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := context.Background()
		store, hostname, branch, err := openStore(ctx, cfg, historyBranch)
		if err != nil {
			return err
		}
		defer store.Close()

		recs, err := store.RecentRuns(ctx, hostname, branch, historyRuns)
		if err != nil {
			return fmt.Errorf("loading history for %s_%s: %w", hostname, branch, err)
		}

		tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "recorded\tcommit\tcases\tid")
		for _, rec := range recs {
			commit := rec.Commit
			if len(commit) > 12 {
				commit = commit[:12]
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n",
				rec.RecordedAt.Format("2006-01-02 15:04:05"), commit, len(rec.Results), rec.ID)
		}
		return tw.Flush()
	},
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop all but the newest runs for a (hostname, branch) key",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := context.Background()
		store, hostname, branch, err := openStore(ctx, cfg, historyBranch)
		if err != nil {
			return err
		}
		defer store.Close()

		dropped, err := store.Prune(ctx, hostname, branch, pruneKeep)
		if err != nil {
			return err
		}
		log.Info().
			Str("key", hostname+"_"+branch).
			Int("dropped", dropped).
			Int("kept", pruneKeep).
			Msg("History pruned")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyPruneCmd)

	historyCmd.PersistentFlags().StringVar(&historyBranch, "branch", "", "Branch to operate on (default: baseline branch)")
	historyListCmd.Flags().IntVar(&historyRuns, "runs", 20, "How many recent runs to list")
	historyPruneCmd.Flags().IntVar(&pruneKeep, "keep", 30, "How many recent runs to keep")
}
