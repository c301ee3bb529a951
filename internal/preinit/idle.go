package preinit

import "github.com/leapstack-labs/bootseq/pkg/core"

// idlePath sets SLEEPONEXIT when there is no idle task, so the core sleeps
// as soon as it returns from the last active handler. A declared idle task
// manages low-power entry itself.
func idlePath(app *core.App) []core.Step {
	if app.HasIdle() {
		return nil
	}
	return []core.Step{core.SleepOnExit()}
}
