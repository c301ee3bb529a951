// Package emit renders a bring-up sequence for people and for compilers.
package emit

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/bootseq/pkg/core"
)

// Format identifies an output format.
type Format string

// Supported formats.
const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatGo       Format = "go"
)

// Write renders seq in the given format.
func Write(w io.Writer, seq *core.Sequence, format Format) error {
	switch format {
	case FormatText:
		return Text(w, seq)
	case FormatMarkdown, "md":
		return Markdown(w, seq)
	case FormatJSON:
		return JSON(w, seq)
	case FormatGo:
		return GoSource(w, seq, GoOptions{})
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// row is one flattened step prepared for tabular output.
type row struct {
	index     int
	kind      string
	target    string
	priority  string
	hw        string
	predicate string
}

func rows(seq *core.Sequence) []row {
	flat := seq.Flatten()
	out := make([]row, 0, len(flat))
	for i, fs := range flat {
		s := fs.Step
		r := row{index: i, kind: string(s.Kind), predicate: fs.Predicate}
		switch s.Kind {
		case core.StepSeedQueue:
			r.target = fmt.Sprintf("%s x%d", s.Task, len(s.Slots))
		case core.StepAssertPriority:
			r.priority = fmt.Sprintf("%d", s.Priority)
		case core.StepSetInterruptPriority, core.StepSetExceptionPriority:
			r.target = s.Name
			r.priority = fmt.Sprintf("%d", s.Priority)
			r.hw = fmt.Sprintf("0x%02x", s.Encoded)
		default:
			r.target = s.Name
		}
		out = append(out, r)
	}
	return out
}

// Text renders seq as a terminal table.
func Text(w io.Writer, seq *core.Sequence) error {
	if len(seq.Steps) == 0 {
		_, _ = fmt.Fprintln(w, "(0 steps)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(fmt.Sprintf("%s (%d priority bits)", seq.App, seq.PriorityBits))
	t.AppendHeader(table.Row{"#", "Step", "Target", "Priority", "HW", "Guard"})

	for _, r := range rows(seq) {
		t.AppendRow(table.Row{r.index, r.kind, r.target, r.priority, r.hw, r.predicate})
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d steps)\n", len(seq.Flatten()))
	return nil
}

// Markdown renders seq as a markdown document.
func Markdown(w io.Writer, seq *core.Sequence) error {
	_, _ = fmt.Fprintf(w, "# Pre-init sequence: %s\n\n", seq.App)
	_, _ = fmt.Fprintf(w, "Priority bits: %d\n\n", seq.PriorityBits)

	if len(seq.Steps) == 0 {
		_, _ = fmt.Fprintln(w, "(0 steps)")
		return nil
	}

	_, _ = fmt.Fprintln(w, "| # | Step | Target | Priority | HW | Guard |")
	_, _ = fmt.Fprintln(w, "| --- | --- | --- | --- | --- | --- |")
	for _, r := range rows(seq) {
		guard := ""
		if r.predicate != "" {
			guard = "`" + strings.ReplaceAll(r.predicate, "|", `\|`) + "`"
		}
		_, _ = fmt.Fprintf(w, "| %d | %s | %s | %s | %s | %s |\n",
			r.index, r.kind, r.target, r.priority, r.hw, guard)
	}
	return nil
}

// JSON writes seq as indented JSON.
func JSON(w io.Writer, seq *core.Sequence) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(seq)
}
