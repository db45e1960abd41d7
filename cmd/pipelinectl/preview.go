package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"PipelineSync/internal/pipeline"
	"PipelineSync/internal/pipeline/model"
)

var previewCmd = &cobra.Command{
	Use:   "preview <file>",
	Short: "Show how a workbook differs from the stored deals",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		showAll, _ := cmd.Flags().GetBool("all")

		eng, closeFn, err := newEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		parsed, err := parseFile(eng, args[0])
		if err != nil {
			return err
		}
		res, err := eng.Preview(cmd.Context(), pipeline.PreviewRequest{Deals: parsed.Deals, Assignments: parsed.Assignments})
		if err != nil {
			return err
		}
		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		printPreview(os.Stdout, res, showAll)
		fmt.Printf("checksum: %s\n", parsed.Debug.Checksum)
		return nil
	},
}

func init() {
	previewCmd.Flags().Bool("json", false, "print the full preview as JSON")
	previewCmd.Flags().Bool("all", false, "list unchanged deals too")
	rootCmd.AddCommand(previewCmd)
}

func printPreview(out io.Writer, res *pipeline.PreviewResult, showAll bool) {
	s := res.Summary
	fmt.Fprintf(out, "new: %d  modified: %d  removed: %d  unchanged: %d  total: %d\n",
		s.New, s.Modified, s.Removed, s.Unchanged, s.Total)
	if len(res.DuplicateKeys) > 0 {
		fmt.Fprintf(out, "duplicate deal names: %s\n", strings.Join(res.DuplicateKeys, ", "))
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHANGE\tDEAL\tACCOUNT\tDETAILS")
	for _, c := range res.Changes {
		if c.ChangeType == model.ChangeUnchanged && !showAll {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.ChangeType, c.DealName, c.AccountName, describe(c))
	}
	w.Flush()
}

func describe(c model.ChangeRecord) string {
	switch c.ChangeType {
	case model.ChangeModified:
		msgs := make([]string, 0, len(c.FieldDiffs))
		for _, d := range c.FieldDiffs {
			msgs = append(msgs, d.Message)
		}
		return strings.Join(msgs, "; ")
	case model.ChangeNew:
		if c.Proposed != nil {
			return string(c.Proposed.Stage)
		}
	case model.ChangeRemoved:
		return "will be marked Closed_Lost"
	}
	return ""
}
