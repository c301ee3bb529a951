package emit

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/template"
	"unicode"

	"github.com/leapstack-labs/bootseq/pkg/core"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/tools/imports"
)

// GoOptions controls Go source generation.
type GoOptions struct {
	// Package is the generated package name, default "main"
	Package string
	// Runtime is the import path of the runtime support package, default
	// "github.com/leapstack-labs/bootseq/rt"
	Runtime string
	// Func is the generated function name, default "preInit"
	Func string
}

func (o GoOptions) withDefaults() GoOptions {
	if o.Package == "" {
		o.Package = "main"
	}
	if o.Runtime == "" {
		o.Runtime = "github.com/leapstack-labs/bootseq/rt"
	}
	if o.Func == "" {
		o.Func = "preInit"
	}
	return o
}

var goTemplate = template.Must(template.New("preinit").Parse(`// Code generated by bootseq. DO NOT EDIT.

package {{.Package}}

import rt "{{.Runtime}}"

// priorityBits is the number of NVIC priority bits of the target.
const priorityBits = {{.Bits}}

// {{.Func}} brings up {{.App}}. It must run before interrupts are enabled.
func {{.Func}}() *rt.Peripherals {
{{range .Lines}}{{.}}
{{end}}	return core
}
`))

// GoIdent converts a task or vector name into a Go identifier. Words are
// split on any rune that is not a letter or digit; the first word is
// lowercased. A leading digit gets an underscore prefix.
func GoIdent(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		return "_"
	}
	// Casers keep state and are not shared between calls.
	lower := cases.Lower(language.English)
	title := cases.Title(language.English)

	var b strings.Builder
	for i, word := range words {
		if i == 0 {
			b.WriteString(lower.String(word))
			continue
		}
		b.WriteString(title.String(word))
	}
	ident := b.String()
	if unicode.IsDigit([]rune(ident)[0]) {
		ident = "_" + ident
	}
	return ident
}

func vectorRef(kind core.StepKind, name string) string {
	if kind == core.StepSetExceptionPriority || core.IsException(name) {
		return "rt." + name
	}
	return "rt.Irq" + name
}

func goLines(steps []core.Step, indent string) []string {
	var out []string
	for _, s := range steps {
		switch s.Kind {
		case core.StepDisableInterrupts:
			out = append(out, indent+"rt.DisableInterrupts()")
		case core.StepSeedQueue:
			q := GoIdent(s.Task) + "FreeQueue"
			out = append(out,
				fmt.Sprintf("%sfor i := 0; i < %d; i++ {", indent, len(s.Slots)),
				fmt.Sprintf("%s\t%s.EnqueueUnchecked(uint8(i))", indent, q),
				indent+"}")
		case core.StepStealPeripherals:
			out = append(out, indent+"core := rt.StealPeripherals()")
		case core.StepAssertPriority:
			out = append(out,
				fmt.Sprintf("%sconst _ uint = %d - 1", indent, s.Priority),
				fmt.Sprintf("%sconst _ uint = 1<<priorityBits - %d", indent, s.Priority))
		case core.StepSetInterruptPriority:
			out = append(out, fmt.Sprintf("%score.NVIC.SetPriority(%s, 0x%02x)", indent, vectorRef(s.Kind, s.Name), s.Encoded))
		case core.StepUnmaskInterrupt:
			out = append(out, fmt.Sprintf("%srt.NVICUnmask(%s)", indent, vectorRef(s.Kind, s.Name)))
		case core.StepSetExceptionPriority:
			out = append(out, fmt.Sprintf("%score.SCB.SetPriority(%s, 0x%02x)", indent, vectorRef(s.Kind, s.Name), s.Encoded))
		case core.StepEnableTimerInterrupt:
			out = append(out, fmt.Sprintf("%srt.EnableTimerInterrupt(%s)", indent, vectorRef(s.Kind, s.Name)))
		case core.StepSleepOnExit:
			out = append(out, indent+"core.SCB.SetSleepOnExit()")
		case core.StepConditional:
			out = append(out, fmt.Sprintf("%sif rt.Cfg(%s) {", indent, strconv.Quote(s.Predicate)))
			out = append(out, goLines(s.Body, indent+"\t")...)
			out = append(out, indent+"}")
		}
	}
	return out
}

// GoSource writes seq as a Go function calling runtime primitives. Priority
// assertions become constant expressions that fail to compile when the
// priority does not fit the device.
func GoSource(w io.Writer, seq *core.Sequence, opts GoOptions) error {
	opts = opts.withDefaults()

	for _, fs := range seq.Flatten() {
		if fs.Step.Kind == core.StepSeedQueue && len(fs.Step.Slots) > core.MaxCapacity {
			return fmt.Errorf("free queue of task %q has %d slots, at most %d fit a byte index",
				fs.Step.Task, len(fs.Step.Slots), core.MaxCapacity)
		}
	}

	var buf bytes.Buffer
	err := goTemplate.Execute(&buf, map[string]any{
		"Package": opts.Package,
		"Runtime": opts.Runtime,
		"Func":    opts.Func,
		"App":     seq.App,
		"Bits":    seq.PriorityBits,
		"Lines":   goLines(seq.Steps, "\t"),
	})
	if err != nil {
		return fmt.Errorf("failed to render go source: %w", err)
	}

	src, err := imports.Process("preinit_gen.go", buf.Bytes(), &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
	if err != nil {
		return fmt.Errorf("failed to format go source: %w", err)
	}

	_, err = w.Write(src)
	return err
}
