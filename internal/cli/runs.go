package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/mvp-joe/depsolver/internal/cycles"
	"github.com/mvp-joe/depsolver/internal/storage"
	"github.com/spf13/cobra"
)

var (
	runsKind   string
	runsShow   string
	runsFormat string
)

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List or show persisted analysis runs",
	Long: `Runs reads the results database configured under storage.database.

Examples:
  # Every stored run, oldest first
  depsolver runs

  # Only closure runs
  depsolver runs --kind closure

  # The stored result of one run
  depsolver runs --show 5f0c... --format yaml
`,
	Args: cobra.NoArgs,
	RunE: runRuns,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().StringVar(&runsKind, "kind", "", "Only list runs of this kind (closure or cycles)")
	runsCmd.Flags().StringVar(&runsShow, "show", "", "Print the stored result of this run ID")
	runsCmd.Flags().StringVarP(&runsFormat, "format", "f", formatText, "Output format for --show: text, json or yaml")
}

func runRuns(cmd *cobra.Command, args []string) error {
	if err := checkFormat(runsFormat); err != nil {
		return err
	}
	if runsKind != "" && runsKind != storage.KindClosure && runsKind != storage.KindCycles {
		return fmt.Errorf("unknown run kind %q", runsKind)
	}
	dir, cfg, err := loadProjectConfig()
	if err != nil {
		return err
	}
	dbPath := cfg.DatabasePath(dir)
	if dbPath == "" || dbPath == ":memory:" {
		return fmt.Errorf("no results database configured (set storage.database)")
	}
	db, err := storage.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	r := storage.NewResultReader(db)
	out := cmd.OutOrStdout()

	if runsShow != "" {
		run, err := r.Run(runsShow)
		if err != nil {
			return err
		}
		if run.Kind == storage.KindClosure {
			rep, err := r.Closure(run.ID)
			if err != nil {
				return err
			}
			if run.Status == storage.StatusFailed {
				fmt.Fprintf(out, "✗ run failed: %s\n", run.Error)
				return nil
			}
			return writeReport(out, runsFormat, rep)
		}
		a, err := storedAnalysis(r, run.ID)
		if err != nil {
			return err
		}
		return writeAnalysis(out, runsFormat, a)
	}

	runs, err := r.Runs(runsKind)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs stored")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tSTATUS\tSTARTED\tTARGETS")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			run.ID, run.Kind, run.Status, run.StartedAt.Local().Format("2006-01-02 15:04:05"), strings.Join(run.Targets, ","))
	}
	return tw.Flush()
}

// storedAnalysis rebuilds the parts of an analysis kept by a cycles run.
func storedAnalysis(r *storage.ResultReader, id string) (*cycles.Analysis, error) {
	cs, err := r.Cycles(id)
	if err != nil {
		return nil, err
	}
	cuts, err := r.Cuts(id)
	if err != nil {
		return nil, err
	}
	a := &cycles.Analysis{Cycles: cs, Cuts: cuts}
	for _, c := range cuts {
		a.TotalWeight += c.Weight
	}
	return a, nil
}
