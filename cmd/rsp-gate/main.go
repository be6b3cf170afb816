// Command rsp-gate runs the repository's verification gates in order and
// stops at the first failure.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lattice-substrate/rsp-testgen/logging"
)

type gateStep struct {
	label string
	args  []string
	// slow steps are skipped by --quick.
	slow bool
}

type commandRunner interface {
	Run(ctx context.Context, name string, args []string, stdout io.Writer, stderr io.Writer) error
}

type realRunner struct{}

var gateSteps = []gateStep{
	{label: "go vet", args: []string{"vet", "./..."}},
	{label: "unit tests", args: []string{"test", "./...", "-count=1", "-timeout=10m"}},
	{label: "race tests", args: []string{"test", "./...", "-race", "-count=1", "-timeout=15m"}, slow: true},
	{label: "conformance", args: []string{"test", "./conformance", "-count=1", "-v"}},
	{label: "parser fuzz smoke", args: []string{"test", "./rsp", "-run", "^$", "-fuzz", "FuzzParseDeterministic", "-fuzztime", "15s"}, slow: true},
	{label: "chunk fuzz smoke", args: []string{"test", "./chunk", "-run", "^$", "-fuzz", "FuzzSplitRoundTrip", "-fuzztime", "15s"}, slow: true},
}

type gateFlags struct {
	quick   bool
	list    bool
	verbose bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, realRunner{}))
}

func run(args []string, stdout, stderr io.Writer, runner commandRunner) int {
	code := 0
	fl := &gateFlags{}
	cmd := &cobra.Command{
		Use:           "rsp-gate [--quick] [--list]",
		Short:         "Run vet, tests, race tests, conformance, and fuzz smoke gates",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			code = runGates(cmd.Context(), fl, stdout, stderr, runner)
			return nil
		},
	}
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.Flags().BoolVar(&fl.quick, "quick", false, "skip race and fuzz steps")
	cmd.Flags().BoolVar(&fl.list, "list", false, "print the steps that would run and exit")
	cmd.Flags().BoolVarP(&fl.verbose, "verbose", "v", false, "log step timings")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		if writeErr := writef(stderr, "error: %v\n", err); writeErr != nil {
			return 1
		}
		return 2
	}
	return code
}

func selectSteps(quick bool) []gateStep {
	steps := make([]gateStep, 0, len(gateSteps))
	for _, s := range gateSteps {
		if quick && s.slow {
			continue
		}
		steps = append(steps, s)
	}
	return steps
}

func runGates(ctx context.Context, fl *gateFlags, stdout, stderr io.Writer, runner commandRunner) int {
	steps := selectSteps(fl.quick)
	if fl.list {
		for _, step := range steps {
			if err := writef(stdout, "%s: go %v\n", step.label, step.args); err != nil {
				return 1
			}
		}
		return 0
	}

	log := logging.New(stderr, fl.verbose).Named("gate")
	defer func() { _ = log.Sync() }()

	for i, step := range steps {
		if err := writef(stdout, "[%d/%d] %s\n", i+1, len(steps), step.label); err != nil {
			return 1
		}
		start := time.Now()
		err := runner.Run(ctx, "go", step.args, stdout, stderr)
		log.Debug("step finished",
			zap.String("step", step.label),
			zap.Duration("elapsed", time.Since(start)),
			zap.Bool("ok", err == nil))
		if err != nil {
			if writeErr := writef(stderr, "gate failed: %s: %v\n", step.label, err); writeErr != nil {
				return 1
			}
			return 1
		}
	}

	if err := writef(stdout, "all gates passed\n"); err != nil {
		return 1
	}
	return 0
}

func (realRunner) Run(ctx context.Context, name string, args []string, stdout io.Writer, stderr io.Writer) error {
	// #nosec G204 -- command and args are fixed repository gate invocations.
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %v: %w", name, args, err)
	}
	return nil
}

func writef(w io.Writer, format string, args ...any) error {
	if _, err := fmt.Fprintf(w, format, args...); err != nil {
		return fmt.Errorf("write stream: %w", err)
	}
	return nil
}
