package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"PipelineSync/internal/pipeline"
	"PipelineSync/internal/store/memory"
)

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Parse a workbook and print the normalized deals as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// parsing never touches the store
		eng := pipeline.NewEngine(memory.New(), pipeline.WithExtractOptions(extractOptions()))
		res, err := parseFile(eng, args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
}
