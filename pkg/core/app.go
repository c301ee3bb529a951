package core

// App is the fully elaborated description of an application.
// It is built once by the loader and never mutated by pre-init.
// Slices keep declaration order so that everything derived from an App
// is a pure function of it.
type App struct {
	// Name is the application name
	Name string
	// SoftwareTasks are tasks dispatched through free-slot queues
	SoftwareTasks []SoftwareTask
	// HardwareTasks are tasks bound to interrupts or core exceptions
	HardwareTasks []HardwareTask
	// Monotonics are timer driven tasks, at most one per timer type
	Monotonics []MonotonicTask
	// Idle is the optional idle task
	Idle *IdleTask
	// Dispatchers are free interrupts reserved for software task dispatch
	Dispatchers []Dispatcher
}

// MaxCapacity bounds SoftwareTask.Capacity. Free queue slots are byte indices.
const MaxCapacity = 255

// SoftwareTask is a task spawned from software and dispatched from a queue.
type SoftwareTask struct {
	Name     string
	Priority int
	// Capacity is the number of instances that may be pending at once,
	// 1..MaxCapacity
	Capacity int
}

// HardwareTask is a task bound to one or more interrupt or exception vectors.
type HardwareTask struct {
	Name     string
	Priority int
	Binds    []Binding
}

// MonotonicTask is a task driven by a free-running timer.
type MonotonicTask struct {
	Name     string
	Priority int
	// Binds is the interrupt or exception name the timer fires on
	Binds string
	Type  MonotonicType
}

// MonotonicType describes the static facts of a timer implementation.
type MonotonicType struct {
	Name string
	// DisableInterruptOnEmptyQueue reports whether the timer tolerates its
	// interrupt being masked while its queue is empty. When false the
	// interrupt must be enabled unconditionally at bring-up.
	DisableInterruptOnEmptyQueue bool
}

// IsSysTick reports whether the monotonic fires on the core SysTick exception.
func (m MonotonicTask) IsSysTick() bool {
	return m.Binds == ExceptionSysTick
}

// IdleTask is the background task running at priority 0.
type IdleTask struct {
	Name string
}

// Dispatcher is a free interrupt handed to the dispatch analysis.
type Dispatcher struct {
	Name string
	// Cfg is an optional configuration predicate (informational only)
	Cfg string
}

// HasIdle reports whether the application declares an idle task.
func (a *App) HasIdle() bool {
	return a.Idle != nil
}

// Analysis is the output of the upstream dispatch analysis.
type Analysis struct {
	// Interrupts assigns one dispatcher interrupt per software task priority
	Interrupts []DispatchAssignment
}

// DispatchAssignment binds a software task priority level to the interrupt
// that dispatches it.
type DispatchAssignment struct {
	Priority  int
	Interrupt string
}
