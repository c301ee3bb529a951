// Package analysis assigns dispatcher interrupts to software task priority
// levels. Each distinct software task priority needs one free interrupt whose
// handler drains the ready queues at that level.
package analysis

import (
	"errors"
	"fmt"
	"sort"

	"github.com/leapstack-labs/bootseq/pkg/core"
)

// ErrNotEnoughDispatchers is returned when the application declares fewer
// dispatcher interrupts than it has software task priority levels.
var ErrNotEnoughDispatchers = errors.New("not enough dispatcher interrupts")

// Analyze returns the dispatcher table for app.
// Priority levels are visited from most to least urgent and take dispatchers
// in declaration order, so the most urgent level gets the first dispatcher.
func Analyze(app *core.App) (*core.Analysis, error) {
	seen := make(map[string]bool, len(app.Dispatchers))
	for _, d := range app.Dispatchers {
		if seen[d.Name] {
			return nil, fmt.Errorf("duplicate dispatcher %s", d.Name)
		}
		seen[d.Name] = true
	}

	levels := priorityLevels(app)
	if len(levels) > len(app.Dispatchers) {
		return nil, fmt.Errorf("%w: %d software task priority levels, %d dispatchers declared",
			ErrNotEnoughDispatchers, len(levels), len(app.Dispatchers))
	}

	out := &core.Analysis{Interrupts: make([]core.DispatchAssignment, 0, len(levels))}
	for i, p := range levels {
		out.Interrupts = append(out.Interrupts, core.DispatchAssignment{
			Priority:  p,
			Interrupt: app.Dispatchers[i].Name,
		})
	}
	if err := Validate(app, out); err != nil {
		return nil, err
	}
	return out, nil
}

// priorityLevels returns the distinct software task priorities, descending.
func priorityLevels(app *core.App) []int {
	seen := make(map[int]bool)
	var levels []int
	for _, task := range app.SoftwareTasks {
		if !seen[task.Priority] {
			seen[task.Priority] = true
			levels = append(levels, task.Priority)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(levels)))
	return levels
}

// Validate checks an explicit dispatcher table against the application:
// every software task priority must be dispatched, dispatchers must be device
// interrupts rather than core exceptions, and no interrupt may be used twice
// or also be bound by a hardware task or monotonic.
func Validate(app *core.App, a *core.Analysis) error {
	byPriority := make(map[int]string)
	used := make(map[string]bool)
	for _, entry := range a.Interrupts {
		if entry.Interrupt == "" {
			return fmt.Errorf("dispatcher for priority %d has no interrupt", entry.Priority)
		}
		if core.IsException(entry.Interrupt) {
			return fmt.Errorf("dispatcher %s for priority %d is a core exception", entry.Interrupt, entry.Priority)
		}
		if used[entry.Interrupt] {
			return fmt.Errorf("interrupt %s dispatches more than one priority level", entry.Interrupt)
		}
		used[entry.Interrupt] = true
		byPriority[entry.Priority] = entry.Interrupt
	}

	for _, p := range priorityLevels(app) {
		if _, ok := byPriority[p]; !ok {
			return fmt.Errorf("no dispatcher for software task priority %d", p)
		}
	}

	for _, task := range app.HardwareTasks {
		for _, bind := range task.Binds {
			if used[bind.Name] {
				return fmt.Errorf("interrupt %s is both a dispatcher and bound by task %q", bind.Name, task.Name)
			}
		}
	}
	for _, m := range app.Monotonics {
		if used[m.Binds] {
			return fmt.Errorf("interrupt %s is both a dispatcher and bound by monotonic %q", m.Binds, m.Name)
		}
	}
	return nil
}
