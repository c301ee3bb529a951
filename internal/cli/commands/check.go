package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/leapstack-labs/bootseq/internal/cli/output"
	"github.com/leapstack-labs/bootseq/internal/verify"
	"github.com/spf13/cobra"
)

// ErrViolations is returned by check when any sequence breaks an ordering rule.
var ErrViolations = errors.New("sequence ordering violations found")

type checkOptions struct {
	graph bool
}

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	opts := &checkOptions{}

	cmd := &cobra.Command{
		Use:   "check [model.yaml...]",
		Short: "Verify the ordering of generated bring-up sequences",
		Long: `Build the bring-up sequence for each model and verify its ordering:

  - interrupts are disabled before anything else
  - the peripherals are acquired before any register write
  - every priority is written before its vector is enabled
  - every priority assertion precedes the write it guards
  - every encoded priority byte matches its logical priority

Exits with an error when any rule is violated.`,
		Example: `  # Check app.yaml in the project root
  bootseq check

  # Show the constraint graph as well
  bootseq check app.yaml --graph`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.graph, "graph", false, "Print the ordering constraints between steps")

	return cmd
}

func runCheck(cmd *cobra.Command, args []string, opts *checkOptions) error {
	c := NewCommandContext(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	dev, err := c.loadDevice()
	if err != nil {
		return err
	}
	results, err := c.buildAll(ctx, c.modelPaths(args), dev)
	if err != nil {
		return err
	}

	reports := make([]output.CheckOutput, 0, len(results))
	total := 0
	for _, res := range results {
		violations := verify.Check(res.Sequence)
		total += len(violations)
		report := output.CheckOutput{
			App:         res.Sequence.App,
			Model:       res.Model.Path,
			Steps:       len(res.Sequence.Flatten()),
			Constraints: verify.Graph(res.Sequence).EdgeCount(),
			Violations:  make([]output.ViolationOutput, 0, len(violations)),
		}
		for _, v := range violations {
			report.Violations = append(report.Violations, output.ViolationOutput{
				Rule:    string(v.Rule),
				Step:    v.Step,
				Before:  v.Before,
				Message: v.Message,
			})
		}
		reports = append(reports, report)
	}

	r := c.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		if err := r.JSON(reports); err != nil {
			return err
		}
	case output.ModeMarkdown:
		checkMarkdown(r, reports)
	default:
		checkText(r, reports)
	}

	if opts.graph {
		for _, res := range results {
			graphText(r, res)
		}
	}

	if total > 0 {
		return fmt.Errorf("%w: %d", ErrViolations, total)
	}
	return nil
}

func checkText(r *output.Renderer, reports []output.CheckOutput) {
	styles := r.Styles()
	r.Header(1, "Sequence Check")
	for _, rep := range reports {
		status := "success"
		if len(rep.Violations) > 0 {
			status = "failed"
		}
		r.StatusLine(rep.App, status, fmt.Sprintf("%d steps, %d constraints", rep.Steps, rep.Constraints))
		for _, v := range rep.Violations {
			r.Printf("      %s %s\n", styles.Error.Render(v.Rule), v.Message)
		}
	}
}

func checkMarkdown(r *output.Renderer, reports []output.CheckOutput) {
	r.Println(output.FormatHeader(1, "Sequence Check"))
	r.Println("")
	for _, rep := range reports {
		r.Println(output.FormatHeader(2, rep.App))
		r.Println(output.FormatKeyValue("Model", rep.Model))
		r.Println(output.FormatKeyValue("Steps", fmt.Sprintf("%d", rep.Steps)))
		r.Println(output.FormatKeyValue("Constraints", fmt.Sprintf("%d", rep.Constraints)))
		r.Println(output.FormatKeyValue("Violations", fmt.Sprintf("%d", len(rep.Violations))))
		if len(rep.Violations) > 0 {
			r.Println("")
			for _, v := range rep.Violations {
				r.Printf("- `%s` step %d: %s\n", v.Rule, v.Step, v.Message)
			}
		}
		r.Println("")
	}
}

// graphText prints each constraint edge as "from -> to".
func graphText(r *output.Renderer, res *buildResult) {
	g := verify.Graph(res.Sequence)
	r.Println("")
	r.Header(2, "Constraints: "+res.Sequence.App)
	for _, e := range g.Edges() {
		from, _ := g.Node(e.From)
		to, _ := g.Node(e.To)
		r.Printf("  %s %s -> %s %s\n", e.From, from.Data.Step, e.To, to.Data.Step)
	}
}
