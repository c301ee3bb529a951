package preinit

import (
	"log/slog"

	"github.com/leapstack-labs/bootseq/pkg/core"
)

// vector is one (priority, name, predicate) triple to configure.
type vector struct {
	task     string
	priority int
	name     string
	cfg      string
}

// interruptVectors returns the dispatcher table entries followed by every
// interrupt-classified bind of every hardware task.
func interruptVectors(app *core.App, analysis *core.Analysis) []vector {
	var out []vector
	for _, a := range analysis.Interrupts {
		out = append(out, vector{priority: a.Priority, name: a.Interrupt})
	}
	for _, task := range app.HardwareTasks {
		for _, bind := range task.Binds {
			if bind.Kind() != core.BindInterrupt {
				continue
			}
			out = append(out, vector{task: task.Name, priority: task.Priority, name: bind.Name, cfg: bind.Cfg})
		}
	}
	return out
}

// configureInterrupts sets the priority of every peripheral interrupt and
// unmasks it. The priority is always written before the unmask: changing the
// priority of a pended interrupt is implementation defined.
func (b *builder) configureInterrupts(app *core.App, analysis *core.Analysis) ([]core.Step, error) {
	const component = "interrupts"

	var steps []core.Step
	for _, v := range interruptVectors(app, analysis) {
		hw, err := b.encode(component, v.task, v.name, v.priority)
		if err != nil {
			return nil, err
		}
		if err := b.resolveInterrupt(component, v.task, v.name); err != nil {
			return nil, err
		}

		steps = append(steps, core.AssertPriority(v.priority))
		steps = append(steps, guard(v.cfg,
			core.SetInterruptPriority(v.name, v.priority, hw),
			core.UnmaskInterrupt(v.name),
		)...)
		// Unmask again outside the predicate. Unmask is idempotent.
		steps = append(steps, core.UnmaskInterrupt(v.name))

		b.logger.Debug("interrupt configured",
			slog.String("name", v.name),
			slog.Int("priority", v.priority),
			slog.String("cfg", v.cfg))
	}
	return steps, nil
}
