package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/leapstack-labs/bootseq/internal/cli/output"
	"github.com/leapstack-labs/bootseq/internal/executor"
	"github.com/leapstack-labs/bootseq/internal/priority"
	"github.com/leapstack-labs/bootseq/internal/sim"
	"github.com/leapstack-labs/bootseq/pkg/core"
	"github.com/spf13/cobra"
)

type simulateOptions struct {
	trace bool
	// claim takes process-wide peripheral ownership, nil for per-run
	claim func() error
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand() *cobra.Command {
	return newSimulateCommand(&simulateOptions{claim: executor.StealPeripherals})
}

func newSimulateCommand(opts *simulateOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate [model.yaml]",
		Short: "Run the bring-up sequence against a simulated core",
		Long: `Build the bring-up sequence for a model and execute it against a
simulated NVIC, system control block and SysTick.

Configuration predicates are evaluated with the configured build
configuration, features and cfg values. The final register state is
printed; --trace adds every register operation in order.`,
		Example: `  # Simulate app.yaml in the project root
  bootseq simulate

  # Simulate a release build with a feature enabled
  bootseq simulate app.yaml --configuration release --features uart1 --trace`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.trace, "trace", false, "Print the register operation trace")

	return cmd
}

func runSimulate(cmd *cobra.Command, args []string, opts *simulateOptions) error {
	c := NewCommandContext(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	dev, err := c.loadDevice()
	if err != nil {
		return err
	}
	res, err := c.build(c.modelPaths(args)[0], dev)
	if err != nil {
		return err
	}
	seq := res.Sequence

	var simOpts []sim.Option
	if dev != nil {
		simOpts = append(simOpts, sim.WithResolver(dev))
	}
	if opts.claim != nil {
		simOpts = append(simOpts, sim.WithClaim(opts.claim))
	}
	ctl := sim.New(simOpts...)

	eval, err := c.evaluator(dev, seq.PriorityBits)
	if err != nil {
		return err
	}

	run, err := executor.NewRunner(ctl, eval, c.Logger).Run(ctx, seq)
	if err != nil {
		return err
	}

	out := simulateState(res.Model.App, seq, ctl, run, opts.trace)

	r := c.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		simulateMarkdown(r, out)
	default:
		simulateText(r, out)
	}
	return nil
}

// simulateState collects the controller state for every vector the sequence
// touches.
func simulateState(app *core.App, seq *core.Sequence, ctl *sim.Controller, run *executor.Result, trace bool) *output.SimulateOutput {
	out := &output.SimulateOutput{
		App:                seq.App,
		Executed:           run.Executed,
		Taken:              nonNil(run.Taken),
		Skipped:            nonNil(run.Skipped),
		InterruptsDisabled: ctl.InterruptsDisabled(),
		PeripheralsTaken:   ctl.PeripheralsTaken(),
		SleepOnExit:        ctl.SleepOnExit(),
		TickInterrupt:      ctl.TickInterrupt(),
		Interrupts:         []output.VectorState{},
		Exceptions:         []output.VectorState{},
		Queues:             []output.QueueState{},
	}

	for i, reg := range ctl.SHPR() {
		out.SHPR[i] = fmt.Sprintf("0x%08x", reg)
	}

	seen := make(map[string]bool)
	for _, fs := range seq.Flatten() {
		name := fs.Step.Name
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		if core.IsException(name) {
			v := output.VectorState{Name: name, Priority: "-"}
			if p, ok := ctl.ExceptionPriority(name); ok {
				v.Priority = fmt.Sprintf("0x%02x", p)
				v.Logical = priority.HW2Logical(p, seq.PriorityBits)
			}
			v.Enabled = name == core.ExceptionSysTick && ctl.TickInterrupt()
			out.Exceptions = append(out.Exceptions, v)
			continue
		}

		v := output.VectorState{Name: name, Priority: "-", Enabled: ctl.Enabled(name)}
		if p, ok := ctl.Priority(name); ok {
			v.Priority = fmt.Sprintf("0x%02x", p)
			v.Logical = priority.HW2Logical(p, seq.PriorityBits)
		}
		out.Interrupts = append(out.Interrupts, v)
	}

	for _, t := range app.SoftwareTasks {
		out.Queues = append(out.Queues, output.QueueState{Task: t.Name, Slots: nonNilInts(ctl.Queue(t.Name))})
	}

	if trace {
		for _, op := range ctl.Trace() {
			out.Trace = append(out.Trace, op.String())
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilInts(s []int) []int {
	if s == nil {
		return []int{}
	}
	return s
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func simulateText(r *output.Renderer, out *output.SimulateOutput) {
	styles := r.Styles()
	r.Header(1, "Simulated pre-init: "+out.App)
	r.Printf("%s %d steps executed\n", styles.Muted.Render("run:"), out.Executed)
	if len(out.Taken) > 0 {
		r.Printf("%s %s\n", styles.Muted.Render("taken:"), strings.Join(out.Taken, ", "))
	}
	if len(out.Skipped) > 0 {
		r.Printf("%s %s\n", styles.Muted.Render("skipped:"), strings.Join(out.Skipped, ", "))
	}
	r.Println("")

	r.Header(2, "Core")
	r.Printf("  PRIMASK       %s\n", onOff(out.InterruptsDisabled))
	r.Printf("  peripherals   %s\n", onOff(out.PeripheralsTaken))
	r.Printf("  SLEEPONEXIT   %s\n", onOff(out.SleepOnExit))
	r.Printf("  TICKINT       %s\n", onOff(out.TickInterrupt))
	r.Printf("  SHPR          %s\n", strings.Join(out.SHPR[:], " "))
	r.Println("")

	if len(out.Interrupts) > 0 {
		r.Header(2, "Interrupts")
		for _, v := range out.Interrupts {
			status := "skipped"
			if v.Enabled {
				status = "success"
			}
			r.StatusLine(v.Name, status, fmt.Sprintf("%s (p%d)", v.Priority, v.Logical))
		}
		r.Println("")
	}

	if len(out.Exceptions) > 0 {
		r.Header(2, "Exceptions")
		for _, v := range out.Exceptions {
			r.Printf("  %s %s (p%d)\n", styles.Bold.Render(v.Name), v.Priority, v.Logical)
		}
		r.Println("")
	}

	if len(out.Queues) > 0 {
		r.Header(2, "Free queues")
		for _, q := range out.Queues {
			r.Printf("  %s %v\n", styles.Bold.Render(q.Task), q.Slots)
		}
	}

	if len(out.Trace) > 0 {
		r.Println("")
		r.Header(2, "Trace")
		for i, op := range out.Trace {
			r.Printf("  %3d %s\n", i, op)
		}
	}
}

func simulateMarkdown(r *output.Renderer, out *output.SimulateOutput) {
	r.Println(output.FormatHeader(1, "Simulated pre-init: "+out.App))
	r.Println("")
	r.Println(output.FormatKeyValue("Executed", fmt.Sprintf("%d", out.Executed)))
	r.Println(output.FormatKeyValue("Taken", strings.Join(out.Taken, ", ")))
	r.Println(output.FormatKeyValue("Skipped", strings.Join(out.Skipped, ", ")))
	r.Println(output.FormatKeyValue("PRIMASK", onOff(out.InterruptsDisabled)))
	r.Println(output.FormatKeyValue("Peripherals", onOff(out.PeripheralsTaken)))
	r.Println(output.FormatKeyValue("SLEEPONEXIT", onOff(out.SleepOnExit)))
	r.Println(output.FormatKeyValue("TICKINT", onOff(out.TickInterrupt)))
	r.Println(output.FormatKeyValue("SHPR", strings.Join(out.SHPR[:], " ")))
	r.Println("")

	r.Println(output.FormatHeader(2, "Vectors"))
	r.Println("")
	r.Println("| Name | Kind | Priority | Enabled | Logical |")
	r.Println("|---|---|---|---|---|")
	for _, v := range out.Interrupts {
		r.Printf("| %s | interrupt | %s | %t | %d |\n", v.Name, v.Priority, v.Enabled, v.Logical)
	}
	for _, v := range out.Exceptions {
		r.Printf("| %s | exception | %s | %t | %d |\n", v.Name, v.Priority, v.Enabled, v.Logical)
	}

	if len(out.Queues) > 0 {
		r.Println("")
		r.Println(output.FormatHeader(2, "Free queues"))
		r.Println("")
		for _, q := range out.Queues {
			r.Printf("- %s: %v\n", q.Task, q.Slots)
		}
	}

	if len(out.Trace) > 0 {
		r.Println("")
		r.Println(output.FormatHeader(2, "Trace"))
		r.Println("")
		r.Println(output.FormatCodeBlock("", strings.Join(out.Trace, "\n")))
	}
}
