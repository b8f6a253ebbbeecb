package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/mvp-joe/depsolver/internal/depsolver"
	"github.com/schollz/progressbar/v3"
)

// batchProgress reports batch solving with a progress bar.
type batchProgress struct {
	quiet  bool
	out    io.Writer
	bar    *progressbar.ProgressBar
	failed int
}

// newBatchProgress creates a reporter for total targets writing to out.
func newBatchProgress(out io.Writer, total int, quiet bool) *batchProgress {
	p := &batchProgress{quiet: quiet, out: out}
	if quiet {
		return p
	}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription("Solving targets"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("targets/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(out)
		}),
	)
	return p
}

// OnOutcome is passed to Solver.SolveAll.
func (p *batchProgress) OnOutcome(o depsolver.Outcome) {
	if o.Err != nil {
		p.failed++
	}
	if p.bar != nil {
		p.bar.Add(1)
	}
}

// Finish closes the bar and prints the tally.
func (p *batchProgress) Finish(total int) {
	if p.bar != nil {
		p.bar.Finish()
	}
	if p.quiet {
		return
	}
	if p.failed == 0 {
		fmt.Fprintf(p.out, "✓ Solved %s targets\n", formatNumber(total))
		return
	}
	fmt.Fprintf(p.out, "✗ Solved %s of %s targets (%d failed)\n", formatNumber(total-p.failed), formatNumber(total), p.failed)
}
