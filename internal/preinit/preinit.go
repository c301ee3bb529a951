// Package preinit computes the bring-up sequence that runs once before any
// task body, bringing the NVIC and the system control block in line with the
// application's declared priorities.
//
// Build is a pure function of its inputs: the same App, Analysis and Options
// always produce the same Sequence. Nothing here touches hardware; an
// executor walks the result.
package preinit

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/bootseq/internal/priority"
	"github.com/leapstack-labs/bootseq/pkg/core"
)

// NameSpace resolves interrupt and exception names for a target device.
type NameSpace interface {
	HasInterrupt(name string) bool
	HasException(name string) bool
}

// Options holds build parameters that do not come from the application model.
type Options struct {
	// PriorityBits is the number of implemented NVIC priority bits
	PriorityBits int
	// NameSpace resolves bind names. Nil skips name resolution unless Strict.
	NameSpace NameSpace
	// Strict fails the build when NameSpace is nil
	Strict bool
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Build computes the bring-up sequence for app.
//
// The sequence is: disable interrupts, seed every software task queue, steal
// the peripherals, configure peripheral interrupts, configure core exceptions,
// bootstrap monotonics and finally set sleep-on-exit when there is no idle
// task. Any unrepresentable priority or unresolvable name fails the whole
// build; no partial sequence is returned.
func Build(app *core.App, analysis *core.Analysis, opts Options) (*core.Sequence, error) {
	if app == nil {
		return nil, fmt.Errorf("application model is nil")
	}
	if analysis == nil {
		analysis = &core.Analysis{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if err := priority.CheckBits(opts.PriorityBits); err != nil {
		return nil, err
	}
	if opts.NameSpace == nil && opts.Strict {
		return nil, ErrNoNameSpace
	}

	b := &builder{
		bits:   opts.PriorityBits,
		ns:     opts.NameSpace,
		logger: logger,
	}

	logger.Debug("building pre-init sequence",
		slog.String("app", app.Name),
		slog.Int("priority_bits", opts.PriorityBits),
		slog.Int("software_tasks", len(app.SoftwareTasks)),
		slog.Int("hardware_tasks", len(app.HardwareTasks)),
		slog.Int("monotonics", len(app.Monotonics)))

	interrupts, err := b.configureInterrupts(app, analysis)
	if err != nil {
		return nil, err
	}
	exceptions, err := b.configureExceptions(app)
	if err != nil {
		return nil, err
	}
	monotonics, err := b.bootstrapMonotonics(app)
	if err != nil {
		return nil, err
	}

	steps := []core.Step{core.DisableInterrupts()}
	steps = append(steps, seedQueues(app)...)
	steps = append(steps, core.StealPeripherals())
	steps = append(steps, interrupts...)
	steps = append(steps, exceptions...)
	steps = append(steps, monotonics...)
	steps = append(steps, idlePath(app)...)

	seq := &core.Sequence{
		App:          app.Name,
		PriorityBits: opts.PriorityBits,
		Steps:        steps,
	}

	logger.Debug("pre-init sequence built",
		slog.String("app", app.Name),
		slog.Int("steps", len(steps)))

	return seq, nil
}

// builder carries the per-build parameters shared by the components.
type builder struct {
	bits   int
	ns     NameSpace
	logger *slog.Logger
}

// encode is the validation gate every priority step passes through.
func (b *builder) encode(component, task, bind string, p int) (uint8, error) {
	hw, err := priority.Encode(p, b.bits)
	if err != nil {
		return 0, &BuildError{Component: component, Task: task, Bind: bind, Err: err}
	}
	return hw, nil
}

func (b *builder) resolveInterrupt(component, task, name string) error {
	if b.ns == nil || b.ns.HasInterrupt(name) {
		return nil
	}
	return &BuildError{Component: component, Task: task, Bind: name, Err: ErrUnknownInterrupt}
}

func (b *builder) resolveException(component, task, name string) error {
	if b.ns == nil || b.ns.HasException(name) {
		return nil
	}
	return &BuildError{Component: component, Task: task, Bind: name, Err: ErrUnknownException}
}

// guard wraps body in a conditional step when predicate is non-empty.
func guard(predicate string, body ...core.Step) []core.Step {
	if predicate == "" {
		return body
	}
	return []core.Step{core.Conditional(predicate, body...)}
}
