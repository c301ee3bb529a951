package commands

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/bootseq/internal/cli/output"
	"github.com/leapstack-labs/bootseq/internal/state"
	"github.com/spf13/cobra"
)

type historyOptions struct {
	app   string
	limit int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &historyOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded sequence builds",
		Long: `List the bring-up sequences recorded by generate, newest first.

Each build records the model hash, the build variant and the sequence
fingerprint, so a sequence that changed for an unchanged model stands out.`,
		Example: `  # Show the last 20 builds
  bootseq history

  # Show builds of one application as JSON
  bootseq history --app blinky --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.app, "app", "", "Only show builds of this application")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 20, "Maximum number of builds (0 for all)")

	return cmd
}

func runHistory(cmd *cobra.Command, opts *historyOptions) error {
	c := NewCommandContext(cmd)

	store, err := c.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	builds, err := store.List(opts.app, opts.limit)
	if err != nil {
		return fmt.Errorf("failed to list builds: %w", err)
	}

	out := output.HistoryOutput{Builds: make([]output.BuildOutput, 0, len(builds)), Total: len(builds)}
	for _, b := range builds {
		out.Builds = append(out.Builds, buildOutput(b))
	}

	r := c.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		historyMarkdown(r, out)
	default:
		historyText(r, out)
	}
	return nil
}

func buildOutput(b *state.Build) output.BuildOutput {
	return output.BuildOutput{
		ID:           b.ID,
		App:          b.App,
		Model:        b.ModelPath,
		Variant:      b.Variant,
		PriorityBits: b.PriorityBits,
		Steps:        b.StepCount,
		Fingerprint:  b.Fingerprint,
		CreatedAt:    b.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func shortFingerprint(s string) string {
	if len(s) > 12 {
		return s[:12]
	}
	return s
}

func historyText(r *output.Renderer, out output.HistoryOutput) {
	if out.Total == 0 {
		r.Muted("No builds recorded.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Created", "App", "Variant", "Bits", "Steps", "Fingerprint"})
	for _, b := range out.Builds {
		t.AppendRow(table.Row{b.CreatedAt, b.App, b.Variant, b.PriorityBits, b.Steps, shortFingerprint(b.Fingerprint)})
	}
	t.Render()
	r.Muted(fmt.Sprintf("(%d builds)", out.Total))
}

func historyMarkdown(r *output.Renderer, out output.HistoryOutput) {
	r.Println(output.FormatHeader(1, "Build History"))
	r.Println("")
	if out.Total == 0 {
		r.Println("No builds recorded.")
		return
	}
	r.Println("| Created | App | Variant | Bits | Steps | Fingerprint |")
	r.Println("|---|---|---|---|---|---|")
	for _, b := range out.Builds {
		r.Printf("| %s | %s | %s | %d | %d | `%s` |\n",
			b.CreatedAt, b.App, b.Variant, b.PriorityBits, b.Steps, shortFingerprint(b.Fingerprint))
	}
	r.Println("")
	r.Println(output.FormatKeyValue("Total", fmt.Sprintf("%d", out.Total)))
}
