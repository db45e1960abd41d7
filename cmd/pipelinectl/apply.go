package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"PipelineSync/internal/checksum"
	"PipelineSync/internal/pipeline"
	"PipelineSync/internal/pipeline/apply"
	"PipelineSync/internal/pipeline/model"
)

var applyCmd = &cobra.Command{
	Use:   "apply <file>",
	Short: "Preview a workbook and apply the approved changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		skipNew, _ := flags.GetBool("skip-new")
		skipRemoved, _ := flags.GetBool("skip-removed")
		include, _ := flags.GetStringSlice("include")
		yes, _ := flags.GetBool("yes")
		expected, _ := flags.GetString("checksum")

		eng, closeFn, err := newEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		parsed, err := parseFile(eng, args[0])
		if err != nil {
			return err
		}
		if expected != "" {
			ok, err := checksum.NewChecksumMatcher(expected).MatchSum(parsed.Debug.Checksum)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s changed since review: checksum %s", args[0], parsed.Debug.Checksum)
			}
		}
		preview, err := eng.Preview(cmd.Context(), pipeline.PreviewRequest{Deals: parsed.Deals, Assignments: parsed.Assignments})
		if err != nil {
			return err
		}

		changes, err := selectChanges(preview.Changes, include)
		if err != nil {
			return err
		}
		printPreview(os.Stdout, preview, false)
		if len(changes) == 0 && len(parsed.Assignments) == 0 {
			fmt.Println("Nothing to apply.")
			return nil
		}
		if !yes && !confirm(os.Stdin, os.Stdout, fmt.Sprintf("Apply %d changes?", len(changes))) {
			fmt.Println("Aborted.")
			return nil
		}

		res := eng.Apply(cmd.Context(), apply.Request{
			Changes:     changes,
			Assignments: parsed.Assignments,
			Options:     model.ApplyOptions{SkipNew: skipNew, SkipRemoved: skipRemoved},
		}, "pipelinectl:"+filepath.Base(args[0]))

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
		if !res.Success {
			return fmt.Errorf("apply failed: %s", res.Message)
		}
		return nil
	},
}

func init() {
	f := applyCmd.Flags()
	f.Bool("skip-new", false, "do not create new deals")
	f.Bool("skip-removed", false, "do not close deals missing from the workbook")
	f.StringSlice("include", []string{string(model.ChangeNew), string(model.ChangeModified), string(model.ChangeRemoved)},
		"change types to apply")
	f.BoolP("yes", "y", false, "apply without asking for confirmation")
	f.String("checksum", "", "refuse to apply unless the workbook has this sha256 (see parse debug output)")
	rootCmd.AddCommand(applyCmd)
}

// selectChanges keeps the changes whose type is listed in include.
// Unchanged records are never selected.
func selectChanges(changes []model.ChangeRecord, include []string) ([]model.ChangeRecord, error) {
	want := map[model.ChangeType]bool{}
	for _, s := range include {
		ct := model.ChangeType(strings.ToLower(strings.TrimSpace(s)))
		switch ct {
		case model.ChangeNew, model.ChangeModified, model.ChangeRemoved:
			want[ct] = true
		case "":
		default:
			return nil, fmt.Errorf("unknown change type %q", s)
		}
	}
	out := make([]model.ChangeRecord, 0, len(changes))
	for _, c := range changes {
		if want[c.ChangeType] {
			out = append(out, c)
		}
	}
	return out, nil
}

func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", prompt)
	line, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
