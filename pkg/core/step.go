package core

import (
	"fmt"
	"strings"
)

// StepKind identifies one bring-up operation.
type StepKind string

// Step kinds, in the order they first appear in a sequence.
const (
	StepDisableInterrupts    StepKind = "disable-interrupts"
	StepSeedQueue            StepKind = "seed-queue"
	StepStealPeripherals     StepKind = "steal-peripherals"
	StepAssertPriority       StepKind = "assert-priority"
	StepSetInterruptPriority StepKind = "set-interrupt-priority"
	StepUnmaskInterrupt      StepKind = "unmask-interrupt"
	StepConditional          StepKind = "conditional"
	StepSetExceptionPriority StepKind = "set-exception-priority"
	StepEnableTimerInterrupt StepKind = "enable-timer-interrupt"
	StepSleepOnExit          StepKind = "sleep-on-exit"
)

// Step is a single bring-up operation. Only the fields relevant to Kind are set.
type Step struct {
	Kind StepKind `json:"kind"`
	// Task is the software task whose free queue is seeded
	Task string `json:"task,omitempty"`
	// Slots are the free-slot indices pushed, in order
	Slots []int `json:"slots,omitempty"`
	// Name is the interrupt or exception name
	Name string `json:"name,omitempty"`
	// Priority is the logical priority
	Priority int `json:"priority,omitempty"`
	// Encoded is the hardware priority byte derived from Priority
	Encoded uint8 `json:"encoded,omitempty"`
	// Predicate guards Body for conditional steps
	Predicate string `json:"predicate,omitempty"`
	Body      []Step `json:"body,omitempty"`
}

// DisableInterrupts masks all maskable interrupts.
func DisableInterrupts() Step {
	return Step{Kind: StepDisableInterrupts}
}

// SeedQueue pushes the slot indices 0..capacity-1 into task's free queue.
func SeedQueue(task string, capacity int) Step {
	slots := make([]int, capacity)
	for i := range slots {
		slots[i] = i
	}
	return Step{Kind: StepSeedQueue, Task: task, Slots: slots}
}

// StealPeripherals takes the core peripheral singleton.
func StealPeripherals() Step {
	return Step{Kind: StepStealPeripherals}
}

// AssertPriority checks that priority is representable on the device.
func AssertPriority(priority int) Step {
	return Step{Kind: StepAssertPriority, Priority: priority}
}

// SetInterruptPriority programs an NVIC priority register.
func SetInterruptPriority(name string, priority int, encoded uint8) Step {
	return Step{Kind: StepSetInterruptPriority, Name: name, Priority: priority, Encoded: encoded}
}

// UnmaskInterrupt enables an interrupt in the NVIC.
func UnmaskInterrupt(name string) Step {
	return Step{Kind: StepUnmaskInterrupt, Name: name}
}

// Conditional runs body only when predicate holds in the executing build.
func Conditional(predicate string, body ...Step) Step {
	return Step{Kind: StepConditional, Predicate: predicate, Body: body}
}

// SetExceptionPriority programs a system handler priority register.
func SetExceptionPriority(name string, priority int, encoded uint8) Step {
	return Step{Kind: StepSetExceptionPriority, Name: name, Priority: priority, Encoded: encoded}
}

// EnableTimerInterrupt enables a timer interrupt regardless of configuration.
func EnableTimerInterrupt(name string) Step {
	return Step{Kind: StepEnableTimerInterrupt, Name: name}
}

// SleepOnExit sets SCR.SLEEPONEXIT.
func SleepOnExit() Step {
	return Step{Kind: StepSleepOnExit}
}

// String returns a one-line description of the step.
func (s Step) String() string {
	switch s.Kind {
	case StepSeedQueue:
		return fmt.Sprintf("%s %s %v", s.Kind, s.Task, s.Slots)
	case StepAssertPriority:
		return fmt.Sprintf("%s %d", s.Kind, s.Priority)
	case StepSetInterruptPriority, StepSetExceptionPriority:
		return fmt.Sprintf("%s %s %d (hw 0x%02x)", s.Kind, s.Name, s.Priority, s.Encoded)
	case StepUnmaskInterrupt, StepEnableTimerInterrupt:
		return fmt.Sprintf("%s %s", s.Kind, s.Name)
	case StepConditional:
		parts := make([]string, len(s.Body))
		for i, b := range s.Body {
			parts[i] = b.String()
		}
		return fmt.Sprintf("if %s { %s }", s.Predicate, strings.Join(parts, "; "))
	default:
		return string(s.Kind)
	}
}

// Equal reports whether two steps are identical, including conditional bodies.
func (s Step) Equal(o Step) bool {
	if s.Kind != o.Kind || s.Task != o.Task || s.Name != o.Name ||
		s.Priority != o.Priority || s.Encoded != o.Encoded || s.Predicate != o.Predicate {
		return false
	}
	if len(s.Slots) != len(o.Slots) || len(s.Body) != len(o.Body) {
		return false
	}
	for i := range s.Slots {
		if s.Slots[i] != o.Slots[i] {
			return false
		}
	}
	for i := range s.Body {
		if !s.Body[i].Equal(o.Body[i]) {
			return false
		}
	}
	return true
}
