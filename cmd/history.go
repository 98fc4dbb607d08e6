package cmd

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/modprep/modprep/pkg/history"
)

type historyCmdOptions struct {
	limit int
}

// NewHistoryCmd creates the `modprep history` command.
func NewHistoryCmd() *cobra.Command {
	opts := historyCmdOptions{limit: 10}
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded setup runs",
		Long:  `Lists the runs recorded in the local history database by "modprep --store", newest first.`,
		RunE: func(c *cobra.Command, args []string) error {
			if configOptions.DryRun {
				slog.Info("dry run, skipping history listing")
				return nil
			}
			store, err := history.Open(configOptions.DBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.Recent(c.Context(), opts.limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				slog.With("db", store.Path()).Info("no recorded runs")
				return nil
			}

			table := tablewriter.NewWriter(c.OutOrStdout())
			table.SetHeader([]string{"When", "Release", "Dir", "Jobs", "Clean", "Exit", "Duration"})
			table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
			table.SetCenterSeparator("|")
			for _, r := range records {
				clean := "ok"
				if !r.CleanOK {
					clean = "failed"
				}
				table.Append([]string{
					r.RunAt.Local().Format(time.DateTime),
					r.KernelRelease,
					r.Dir,
					strconv.Itoa(r.Jobs),
					clean,
					strconv.Itoa(r.ExitCode),
					r.Duration.Truncate(time.Millisecond).String(),
				})
			}
			table.Render()
			return nil
		},
	}
	historyCmd.Flags().IntVar(&opts.limit, "limit", opts.limit, "maximum number of runs to list")
	return historyCmd
}
