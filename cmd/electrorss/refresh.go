package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/varoOP/electrorss/internal/app"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch all feeds and rebuild the local snapshot",
	Long: `Refresh fetches every configured feed concurrently, using conditional
requests where possible, parses new entries into release records, and
replaces the persisted snapshot. Categories whose feed is unchanged or
unreachable keep their previous items. A thumbnail cache sweep runs
before and after the round.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := app.NewApp()
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}

		days := viper.GetInt("days")
		items, err := application.Refresh(cmd.Context(), days)
		if err != nil {
			return fmt.Errorf("refresh failed: %w", err)
		}
		fmt.Printf("Snapshot holds %d items\n", len(items))

		if prefetch, _ := cmd.Flags().GetBool("prefetch"); prefetch {
			cached := application.PrefetchThumbs(cmd.Context(), items)
			fmt.Printf("Thumbnails cached: %d\n", cached)
		}

		return nil
	},
}

func init() {
	refreshCmd.Flags().Int("days", 0, "how many days back to keep items (default 7)")
	viper.BindPFlag("days", refreshCmd.Flags().Lookup("days"))
	refreshCmd.Flags().Bool("prefetch", false, "download thumbnails for the refreshed snapshot")
	rootCmd.AddCommand(refreshCmd)
}
