package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mvp-joe/depsolver/internal/depsolver"
	"github.com/mvp-joe/depsolver/internal/watcher"
	"github.com/spf13/cobra"
)

var (
	watchFormat   string
	watchCycles   bool
	watchDebounce time.Duration
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch [<Type> [method]]",
	Short: "Re-run an analysis whenever Java sources change",
	Long: `Watch runs the closure of a target (or the cycle analysis with --cycles)
once, then again every time a .java file under the source root changes.
Changed files are dropped from the declaration cache before each run.

Press Ctrl+C to stop.

Examples:
  depsolver watch com.shop.Cart add
  depsolver watch --cycles
`,
	Args: cobra.RangeArgs(0, 2),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVarP(&watchFormat, "format", "f", formatText, "Output format: text, json or yaml")
	watchCmd.Flags().BoolVar(&watchCycles, "cycles", false, "Watch the injection cycle analysis instead of a closure")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watcher.DefaultDebounce, "Quiet period before a batch of changes is handled")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := checkFormat(watchFormat); err != nil {
		return err
	}
	if watchCycles == (len(args) > 0) {
		return fmt.Errorf("requires either a target or --cycles")
	}
	var target depsolver.Target
	if !watchCycles {
		t, err := parseTargets(args)
		if err != nil {
			return err
		}
		target = t
	}

	p, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer p.Close()

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	rerun := func(ctx context.Context, changed []string) error {
		if watchCycles {
			a, err := p.analyzeCycles(ctx)
			if err != nil {
				return err
			}
			return writeAnalysis(out, watchFormat, a)
		}
		p.solver.Reset()
		return runSingle(ctx, out, watchFormat, p, target)
	}

	if err := rerun(ctx, nil); err != nil {
		p.logger.Error("initial run failed", "error", err)
	}

	files, err := watcher.NewFileWatcher([]string{p.cfg.SourceRoot(p.dir)}, watcher.Options{
		Debounce: watchDebounce,
		Logger:   p.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to watch source root: %w", err)
	}
	p.logger.Info("watching for changes", "source_root", p.cfg.SourceRoot(p.dir))

	coord := watcher.NewWatchCoordinator(files, p.index, rerun, p.logger)
	if err := coord.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
