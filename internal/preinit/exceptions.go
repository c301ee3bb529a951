package preinit

import "github.com/leapstack-labs/bootseq/pkg/core"

// configureExceptions sets the priority of every exception-classified bind.
// Core exceptions are enabled out of reset, so there is no unmask step.
func (b *builder) configureExceptions(app *core.App) ([]core.Step, error) {
	const component = "exceptions"

	var steps []core.Step
	for _, task := range app.HardwareTasks {
		for _, bind := range task.Binds {
			if bind.Kind() != core.BindException {
				continue
			}
			hw, err := b.encode(component, task.Name, bind.Name, task.Priority)
			if err != nil {
				return nil, err
			}
			if err := b.resolveException(component, task.Name, bind.Name); err != nil {
				return nil, err
			}

			steps = append(steps, core.AssertPriority(task.Priority))
			steps = append(steps, guard(bind.Cfg,
				core.SetExceptionPriority(bind.Name, task.Priority, hw),
			)...)
		}
	}
	return steps, nil
}
