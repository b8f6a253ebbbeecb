package cli

import (
	"context"
	"fmt"

	"github.com/mvp-joe/depsolver/internal/cycles"
	"github.com/spf13/cobra"
)

var cyclesFormat string

// cyclesCmd represents the cycles command
var cyclesCmd = &cobra.Command{
	Use:   "cycles",
	Short: "Find injection cycles and the cheapest injection points to cut",
	Long: `Cycles scans every source file for components (@Component, @Service,
@Repository, @Controller, @RestController, @Configuration) and their
injection points, enumerates the dependency cycles between them, and picks
a low-weight set of injection points whose removal breaks every cycle.

Field and setter injection are cheapest to change, then constructors, then
@Bean factory methods. Injecting a widely used component costs more.

Examples:
  depsolver cycles
  depsolver cycles --format yaml
`,
	Args: cobra.NoArgs,
	RunE: runCycles,
}

func init() {
	rootCmd.AddCommand(cyclesCmd)
	cyclesCmd.Flags().StringVarP(&cyclesFormat, "format", "f", formatText, "Output format: text, json or yaml")
}

func runCycles(cmd *cobra.Command, args []string) error {
	if err := checkFormat(cyclesFormat); err != nil {
		return err
	}
	p, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer p.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := p.analyzeCycles(ctx)
	if err != nil {
		return err
	}
	return writeAnalysis(cmd.OutOrStdout(), cyclesFormat, a)
}

func (p *project) analyzeCycles(ctx context.Context) (*cycles.Analysis, error) {
	g, err := cycles.NewBuilder(p.solver.Resolver(), p.logger).
		WithBasePackage(p.cfg.BasePackage).
		Build(ctx, p.index)
	if err != nil {
		return nil, fmt.Errorf("failed to build injection graph: %w", err)
	}
	a, err := cycles.Analyze(g)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("cycle analysis complete", "components", len(a.Components), "cycles", len(a.Cycles), "cuts", len(a.Cuts))
	if p.writer != nil {
		id, err := p.writer.WriteCycles(a)
		if err != nil {
			p.logger.Warn("failed to persist cycles run", "error", err)
		} else {
			p.logger.Debug("cycles run stored", "run_id", id)
		}
	}
	return a, nil
}
