package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent apply runs (requires --dsn)",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		rec, closeFn, err := openAudit(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()
		if !rec.Enabled() {
			return fmt.Errorf("apply history needs a Postgres --dsn")
		}
		runs, err := rec.Recent(cmd.Context(), limit, 0)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "RUN\tSTARTED\tSOURCE\tCREATED\tUPDATED\tREMOVED\tACCOUNTS\tERRORS")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
				r.RunID, r.StartedAt.Format(time.RFC3339), r.Source,
				r.Outcome.Created, r.Outcome.Updated, r.Outcome.SoftDeleted,
				r.Outcome.AccountsUpdated, len(r.Outcome.Errors))
		}
		return w.Flush()
	},
}

func init() {
	runsCmd.Flags().Int("limit", 20, "number of runs to show")
	rootCmd.AddCommand(runsCmd)
}
