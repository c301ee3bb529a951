package preinit

import (
	"log/slog"

	"github.com/leapstack-labs/bootseq/pkg/core"
)

// bootstrapMonotonics sets each timer's priority and, for timer types that
// cannot tolerate a masked interrupt while their queue is empty, enables the
// interrupt unconditionally. Configuration predicates never apply here.
func (b *builder) bootstrapMonotonics(app *core.App) ([]core.Step, error) {
	const component = "monotonics"

	var steps []core.Step
	for _, mono := range app.Monotonics {
		hw, err := b.encode(component, mono.Name, mono.Binds, mono.Priority)
		if err != nil {
			return nil, err
		}

		steps = append(steps, core.AssertPriority(mono.Priority))
		if mono.IsSysTick() {
			if err := b.resolveException(component, mono.Name, mono.Binds); err != nil {
				return nil, err
			}
			steps = append(steps, core.SetExceptionPriority(core.ExceptionSysTick, mono.Priority, hw))
		} else {
			if err := b.resolveInterrupt(component, mono.Name, mono.Binds); err != nil {
				return nil, err
			}
			steps = append(steps, core.SetInterruptPriority(mono.Binds, mono.Priority, hw))
		}

		if !mono.Type.DisableInterruptOnEmptyQueue {
			steps = append(steps, core.EnableTimerInterrupt(mono.Binds))
		}

		b.logger.Debug("monotonic configured",
			slog.String("name", mono.Name),
			slog.String("binds", mono.Binds),
			slog.String("type", mono.Type.Name),
			slog.Bool("always_enabled", !mono.Type.DisableInterruptOnEmptyQueue))
	}
	return steps, nil
}
