package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/research-agent/internal/memory"
)

var (
	historyLimit  int
	historyOffset int
)

var historyCmd = &cobra.Command{
	Use:   "history [report-id]",
	Short: "List past reports, or print one in full",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mem, err := initMemory(ctx)
		if err != nil {
			return err
		}
		defer mem.Close()

		if err := mem.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		if len(args) == 1 {
			report, err := mem.GetReport(ctx, args[0])
			if err != nil {
				return eris.Wrap(err, "get report")
			}
			if report == nil {
				return eris.Errorf("report %q not found", args[0])
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		items, total, err := mem.ListReports(ctx, memory.ListFilter{
			Limit:  historyLimit,
			Offset: historyOffset,
		})
		if err != nil {
			return eris.Wrap(err, "list reports")
		}

		for _, item := range items {
			fmt.Printf("%s  %.2f  %s\n", item.ID, item.Score, item.Query)
		}
		fmt.Printf("%d of %d reports\n", len(items), total)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum reports to list")
	historyCmd.Flags().IntVar(&historyOffset, "offset", 0, "listing offset")
	rootCmd.AddCommand(historyCmd)
}
