package preinit

import "github.com/leapstack-labs/bootseq/pkg/core"

// seedQueues fills every software task's free queue with its slot indices.
// Indices are pushed in ascending order so slots are claimed predictably.
func seedQueues(app *core.App) []core.Step {
	steps := make([]core.Step, 0, len(app.SoftwareTasks))
	for _, task := range app.SoftwareTasks {
		steps = append(steps, core.SeedQueue(task.Name, task.Capacity))
	}
	return steps
}
