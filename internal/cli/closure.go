package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mvp-joe/depsolver/internal/depsolver"
	"github.com/spf13/cobra"
)

var (
	closureFormat string
	closureBatch  string
	closureQuiet  bool
)

// closureCmd represents the closure command
var closureCmd = &cobra.Command{
	Use:   "closure <Type> [method]",
	Short: "Compute the declarations a method needs to compile",
	Long: `Closure walks everything a target method reaches (types, fields, methods,
constructors, initializers) and reports the reduced copy of each reached type.

A target is a fully qualified type and an optional method name, given either
as two arguments or as Type#method. Without a method every non-private method
of the type is a target.

Examples:
  # Closure of one method
  depsolver closure com.shop.Cart add

  # Same, as JSON
  depsolver closure com.shop.Cart#add --format json

  # Every target listed in a file, one per line
  depsolver closure --batch targets.txt
`,
	Args: cobra.RangeArgs(0, 2),
	RunE: runClosure,
}

func init() {
	rootCmd.AddCommand(closureCmd)
	closureCmd.Flags().StringVarP(&closureFormat, "format", "f", formatText, "Output format: text, json or yaml")
	closureCmd.Flags().StringVarP(&closureBatch, "batch", "b", "", "File of targets, one per line; # starts a comment")
	closureCmd.Flags().BoolVarP(&closureQuiet, "quiet", "q", false, "Suppress the progress bar in batch mode")
}

func runClosure(cmd *cobra.Command, args []string) error {
	if err := checkFormat(closureFormat); err != nil {
		return err
	}
	if closureBatch == "" && len(args) == 0 {
		return fmt.Errorf("requires a target or --batch")
	}
	if closureBatch != "" && len(args) > 0 {
		return fmt.Errorf("--batch cannot be combined with a target argument")
	}

	p, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer p.Close()

	if closureBatch != "" {
		targets, err := readTargets(closureBatch)
		if err != nil {
			return err
		}
		return runBatch(cmd.Context(), cmd, p, targets)
	}

	target, err := parseTargets(args)
	if err != nil {
		return err
	}
	return runSingle(cmd.Context(), cmd.OutOrStdout(), closureFormat, p, target)
}

// runSingle solves one target, persists the run and prints the report.
func runSingle(ctx context.Context, out io.Writer, format string, p *project, target depsolver.Target) error {
	if ctx == nil {
		ctx = context.Background()
	}
	res, solveErr := p.solver.SolveTarget(ctx, target)
	var rep *depsolver.Report
	if solveErr == nil {
		rep = res.Report(target)
	}
	p.persistClosure(target, rep, solveErr)
	if solveErr != nil {
		return fmt.Errorf("failed to solve %s: %w", target, solveErr)
	}
	return writeReport(out, format, rep)
}

// batchEntry is the structured output for one batch target.
type batchEntry struct {
	Target string            `json:"target" yaml:"target"`
	Error  string            `json:"error,omitempty" yaml:"error,omitempty"`
	Report *depsolver.Report `json:"report,omitempty" yaml:"report,omitempty"`
}

func runBatch(ctx context.Context, cmd *cobra.Command, p *project, targets []depsolver.Target) error {
	if ctx == nil {
		ctx = context.Background()
	}
	progress := newBatchProgress(cmd.ErrOrStderr(), len(targets), closureQuiet)
	outcomes := p.solver.SolveAll(ctx, targets, progress.OnOutcome)
	progress.Finish(len(targets))

	entries := make([]batchEntry, 0, len(outcomes))
	failed := 0
	for _, o := range outcomes {
		e := batchEntry{Target: o.Target.String()}
		var rep *depsolver.Report
		if o.Err != nil {
			failed++
			e.Error = o.Err.Error()
		} else {
			rep = o.Result.Report(o.Target)
			e.Report = rep
		}
		p.persistClosure(o.Target, rep, o.Err)
		entries = append(entries, e)
	}

	out := cmd.OutOrStdout()
	if closureFormat != formatText {
		if err := writeStructured(out, closureFormat, entries); err != nil {
			return err
		}
	} else {
		for i, e := range entries {
			if i > 0 {
				fmt.Fprintln(out)
			}
			if e.Error != "" {
				fmt.Fprintf(out, "✗ %s: %s\n", e.Target, e.Error)
				continue
			}
			if err := writeReport(out, formatText, e.Report); err != nil {
				return err
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d targets failed", failed, len(targets))
	}
	return nil
}

func (p *project) persistClosure(target depsolver.Target, rep *depsolver.Report, solveErr error) {
	if p.writer == nil {
		return
	}
	id, err := p.writer.WriteClosure([]depsolver.Target{target}, rep, solveErr)
	if err != nil {
		p.logger.Warn("failed to persist closure run", "target", target.String(), "error", err)
		return
	}
	p.logger.Debug("closure run stored", "run_id", id, "target", target.String())
}

// readTargets parses a batch file. Blank lines and lines starting with #
// are skipped.
func readTargets(path string) ([]depsolver.Target, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open batch file: %w", err)
	}
	defer f.Close()

	var targets []depsolver.Target
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		t, err := parseTargets(strings.Fields(text))
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		targets = append(targets, t)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("batch file %s lists no targets", path)
	}
	return targets, nil
}
