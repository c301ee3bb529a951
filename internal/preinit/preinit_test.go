package preinit

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/bootseq/internal/priority"
	"github.com/leapstack-labs/bootseq/internal/testutil"
	"github.com/leapstack-labs/bootseq/pkg/core"
)

type fakeNameSpace struct {
	interrupts map[string]bool
	exceptions map[string]bool
}

func (f fakeNameSpace) HasInterrupt(name string) bool { return f.interrupts[name] }
func (f fakeNameSpace) HasException(name string) bool { return f.exceptions[name] }

func build(t *testing.T, app *core.App, analysis *core.Analysis, bits int) *core.Sequence {
	t.Helper()
	seq, err := Build(app, analysis, Options{PriorityBits: bits, Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	return seq
}

func hw(t *testing.T, p, bits int) uint8 {
	t.Helper()
	v, err := priority.Encode(p, bits)
	require.NoError(t, err)
	return v
}

func TestBuild_SingleSoftwareAndHardwareTask(t *testing.T) {
	app := &core.App{
		Name:          "scenario",
		SoftwareTasks: []core.SoftwareTask{{Name: "A", Priority: 1, Capacity: 4}},
		HardwareTasks: []core.HardwareTask{{Name: "x", Priority: 3, Binds: []core.Binding{{Name: "X"}}}},
	}

	seq := build(t, app, nil, 4)

	want := []core.Step{
		core.DisableInterrupts(),
		{Kind: core.StepSeedQueue, Task: "A", Slots: []int{0, 1, 2, 3}},
		core.StealPeripherals(),
		core.AssertPriority(3),
		core.SetInterruptPriority("X", 3, hw(t, 3, 4)),
		core.UnmaskInterrupt("X"),
		core.UnmaskInterrupt("X"),
		core.SleepOnExit(),
	}
	assert.Equal(t, want, seq.Steps)
	assert.Equal(t, 4, seq.PriorityBits)
	assert.Equal(t, "scenario", seq.App)
}

func TestBuild_UnrepresentablePriorityFails(t *testing.T) {
	app := &core.App{
		Name:          "too-high",
		SoftwareTasks: []core.SoftwareTask{{Name: "A", Priority: 1, Capacity: 2}},
		HardwareTasks: []core.HardwareTask{{Name: "x", Priority: 17, Binds: []core.Binding{{Name: "X"}}}},
	}

	seq, err := Build(app, nil, Options{PriorityBits: 4})
	require.Error(t, err)
	assert.Nil(t, seq, "no partial sequence on failure")
	assert.True(t, errors.Is(err, priority.ErrUnrepresentable))

	var buildErr *BuildError
	require.True(t, errors.As(err, &buildErr))
	assert.Equal(t, "interrupts", buildErr.Component)
	assert.Equal(t, "x", buildErr.Task)
	assert.Equal(t, "X", buildErr.Bind)
}

func TestBuild_PriorityRangeGate(t *testing.T) {
	const bits = 3
	for p := 0; p <= priority.Max(bits)+1; p++ {
		app := &core.App{
			Name:          "gate",
			HardwareTasks: []core.HardwareTask{{Name: "h", Priority: p, Binds: []core.Binding{{Name: "EXTI0"}}}},
		}
		_, err := Build(app, nil, Options{PriorityBits: bits})
		if p >= 1 && p <= priority.Max(bits) {
			assert.NoError(t, err, "p=%d", p)
		} else {
			assert.ErrorIs(t, err, priority.ErrUnrepresentable, "p=%d", p)
		}
	}
}

func TestBuild_InvalidBits(t *testing.T) {
	_, err := Build(&core.App{Name: "a"}, nil, Options{PriorityBits: 0})
	assert.ErrorIs(t, err, priority.ErrInvalidBits)
}

func TestBuild_NilApp(t *testing.T) {
	_, err := Build(nil, nil, Options{PriorityBits: 4})
	assert.Error(t, err)
}

func TestBuild_SeedsAscendingPerTask(t *testing.T) {
	app := &core.App{
		Name: "seeds",
		Idle: &core.IdleTask{Name: "idle"},
		SoftwareTasks: []core.SoftwareTask{
			{Name: "one", Priority: 1, Capacity: 1},
			{Name: "five", Priority: 2, Capacity: 5},
			{Name: "three", Priority: 1, Capacity: 3},
		},
	}

	seq := build(t, app, nil, 4)

	seeded := map[string][]int{}
	for _, step := range seq.Steps {
		if step.Kind == core.StepSeedQueue {
			seeded[step.Task] = step.Slots
		}
	}
	for _, task := range app.SoftwareTasks {
		slots := seeded[task.Name]
		require.Len(t, slots, task.Capacity, task.Name)
		for i, s := range slots {
			assert.Equal(t, i, s, "task %s slot %d", task.Name, i)
		}
	}
}

func TestBuild_ConditionalBinding(t *testing.T) {
	app := &core.App{
		Name: "cfg",
		Idle: &core.IdleTask{Name: "idle"},
		HardwareTasks: []core.HardwareTask{{
			Name:     "uart",
			Priority: 2,
			Binds:    []core.Binding{{Name: "UART1", Cfg: `feature == "uart1"`}},
		}},
	}

	seq := build(t, app, nil, 4)

	want := []core.Step{
		core.DisableInterrupts(),
		core.StealPeripherals(),
		core.AssertPriority(2),
		core.Conditional(`feature == "uart1"`,
			core.SetInterruptPriority("UART1", 2, hw(t, 2, 4)),
			core.UnmaskInterrupt("UART1"),
		),
		core.UnmaskInterrupt("UART1"),
	}
	assert.Equal(t, want, seq.Steps)
}

func TestBuild_DispatcherTableComesFirst(t *testing.T) {
	app := &core.App{
		Name:          "dispatch",
		Idle:          &core.IdleTask{Name: "idle"},
		SoftwareTasks: []core.SoftwareTask{{Name: "sw", Priority: 1, Capacity: 1}},
		HardwareTasks: []core.HardwareTask{{Name: "hw", Priority: 2, Binds: []core.Binding{{Name: "GPIOA"}}}},
	}
	analysis := &core.Analysis{Interrupts: []core.DispatchAssignment{{Priority: 1, Interrupt: "SSI0"}}}

	seq := build(t, app, analysis, 3)

	var unmasked []string
	for _, fs := range seq.Flatten() {
		if fs.Step.Kind == core.StepSetInterruptPriority {
			unmasked = append(unmasked, fs.Step.Name)
		}
	}
	assert.Equal(t, []string{"SSI0", "GPIOA"}, unmasked)
}

func TestBuild_Exceptions(t *testing.T) {
	app := &core.App{
		Name: "exc",
		Idle: &core.IdleTask{Name: "idle"},
		HardwareTasks: []core.HardwareTask{
			{Name: "svc", Priority: 2, Binds: []core.Binding{{Name: core.ExceptionSVCall}}},
			{Name: "pend", Priority: 1, Binds: []core.Binding{{Name: core.ExceptionPendSV, Cfg: "debug"}}},
		},
	}

	seq := build(t, app, nil, 4)

	want := []core.Step{
		core.DisableInterrupts(),
		core.StealPeripherals(),
		core.AssertPriority(2),
		core.SetExceptionPriority(core.ExceptionSVCall, 2, hw(t, 2, 4)),
		core.AssertPriority(1),
		core.Conditional("debug", core.SetExceptionPriority(core.ExceptionPendSV, 1, hw(t, 1, 4))),
	}
	assert.Equal(t, want, seq.Steps)
	assert.Zero(t, seq.Count(core.StepUnmaskInterrupt), "exceptions are never unmasked")
}

func TestBuild_MixedBindsSplitByKind(t *testing.T) {
	app := &core.App{
		Name: "mixed",
		Idle: &core.IdleTask{Name: "idle"},
		HardwareTasks: []core.HardwareTask{{
			Name:     "both",
			Priority: 2,
			Binds:    []core.Binding{{Name: core.ExceptionBusFault}, {Name: "TIM2"}},
		}},
	}

	seq := build(t, app, nil, 4)

	// Interrupts are configured before exceptions regardless of bind order.
	kinds := make([]core.StepKind, 0, len(seq.Steps))
	for _, s := range seq.Steps {
		kinds = append(kinds, s.Kind)
	}
	assert.Equal(t, []core.StepKind{
		core.StepDisableInterrupts,
		core.StepStealPeripherals,
		core.StepAssertPriority,
		core.StepSetInterruptPriority,
		core.StepUnmaskInterrupt,
		core.StepUnmaskInterrupt,
		core.StepAssertPriority,
		core.StepSetExceptionPriority,
	}, kinds)
}

func TestBuild_Monotonics(t *testing.T) {
	tests := []struct {
		name string
		mono core.MonotonicTask
		want []core.Step
	}{
		{
			name: "systick never masked",
			mono: core.MonotonicTask{Name: "mono", Priority: 3, Binds: core.ExceptionSysTick,
				Type: core.MonotonicType{Name: "Systick"}},
			want: []core.Step{
				core.AssertPriority(3),
				core.SetExceptionPriority(core.ExceptionSysTick, 3, 0xd0),
				core.EnableTimerInterrupt(core.ExceptionSysTick),
			},
		},
		{
			name: "systick tolerates masking",
			mono: core.MonotonicTask{Name: "mono", Priority: 3, Binds: core.ExceptionSysTick,
				Type: core.MonotonicType{Name: "Systick", DisableInterruptOnEmptyQueue: true}},
			want: []core.Step{
				core.AssertPriority(3),
				core.SetExceptionPriority(core.ExceptionSysTick, 3, 0xd0),
			},
		},
		{
			name: "peripheral timer never masked",
			mono: core.MonotonicTask{Name: "rtc", Priority: 1, Binds: "RTC",
				Type: core.MonotonicType{Name: "Rtc"}},
			want: []core.Step{
				core.AssertPriority(1),
				core.SetInterruptPriority("RTC", 1, 0xf0),
				core.EnableTimerInterrupt("RTC"),
			},
		},
		{
			name: "peripheral timer tolerates masking",
			mono: core.MonotonicTask{Name: "tc", Priority: 4, Binds: "TC0",
				Type: core.MonotonicType{Name: "Tc", DisableInterruptOnEmptyQueue: true}},
			want: []core.Step{
				core.AssertPriority(4),
				core.SetInterruptPriority("TC0", 4, 0xc0),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := &core.App{Name: "mono", Idle: &core.IdleTask{Name: "idle"}, Monotonics: []core.MonotonicTask{tt.mono}}
			seq := build(t, app, nil, 4)

			want := append([]core.Step{core.DisableInterrupts(), core.StealPeripherals()}, tt.want...)
			assert.Equal(t, want, seq.Steps)
		})
	}
}

func TestBuild_MonotonicIgnoresPredicatesOnOtherBinds(t *testing.T) {
	app := &core.App{
		Name: "mono-cfg",
		Idle: &core.IdleTask{Name: "idle"},
		HardwareTasks: []core.HardwareTask{{
			Name: "gated", Priority: 1, Binds: []core.Binding{{Name: "EXTI0", Cfg: "never"}},
		}},
		Monotonics: []core.MonotonicTask{{
			Name: "mono", Priority: 2, Binds: "TIM2", Type: core.MonotonicType{Name: "Tim"},
		}},
	}

	seq := build(t, app, nil, 4)

	assert.Equal(t, 1, seq.Count(core.StepEnableTimerInterrupt))
	for _, fs := range seq.Flatten() {
		if fs.Step.Kind == core.StepEnableTimerInterrupt {
			assert.Empty(t, fs.Predicate, "timer enable is never conditional")
		}
	}
}

func TestBuild_IdlePath(t *testing.T) {
	withoutIdle := build(t, &core.App{Name: "no-idle"}, nil, 4)
	assert.Equal(t, 1, withoutIdle.Count(core.StepSleepOnExit))
	assert.Equal(t, core.StepSleepOnExit, withoutIdle.Steps[len(withoutIdle.Steps)-1].Kind)

	withIdle := build(t, &core.App{Name: "idle", Idle: &core.IdleTask{Name: "idle"}}, nil, 4)
	assert.Zero(t, withIdle.Count(core.StepSleepOnExit))
}

func TestBuild_PriorityBeforeUnmask(t *testing.T) {
	app := sampleApp()
	seq := build(t, app, &core.Analysis{Interrupts: []core.DispatchAssignment{{Priority: 1, Interrupt: "SSI0"}}}, 3)

	prioritySet := map[string]bool{}
	for _, fs := range seq.Flatten() {
		switch fs.Step.Kind {
		case core.StepSetInterruptPriority:
			prioritySet[fs.Step.Name] = true
		case core.StepUnmaskInterrupt:
			assert.True(t, prioritySet[fs.Step.Name], "unmask of %s before its priority", fs.Step.Name)
		}
	}
}

func TestBuild_Idempotent(t *testing.T) {
	app := sampleApp()
	analysis := &core.Analysis{Interrupts: []core.DispatchAssignment{{Priority: 1, Interrupt: "SSI0"}}}

	first := build(t, app, analysis, 3)
	second := build(t, app, analysis, 3)

	assert.True(t, first.Equal(second))
	assert.Equal(t, first.Fingerprint(), second.Fingerprint())
}

func TestBuild_NameResolution(t *testing.T) {
	ns := fakeNameSpace{
		interrupts: map[string]bool{"UART0": true},
		exceptions: map[string]bool{core.ExceptionSysTick: true},
	}

	tests := []struct {
		name    string
		app     *core.App
		wantErr error
	}{
		{
			name: "known names",
			app: &core.App{Name: "ok",
				HardwareTasks: []core.HardwareTask{{Name: "u", Priority: 1, Binds: []core.Binding{{Name: "UART0"}}}},
				Monotonics:    []core.MonotonicTask{{Name: "m", Priority: 1, Binds: core.ExceptionSysTick}}},
		},
		{
			name: "unknown interrupt",
			app: &core.App{Name: "bad",
				HardwareTasks: []core.HardwareTask{{Name: "u", Priority: 1, Binds: []core.Binding{{Name: "UART9"}}}}},
			wantErr: ErrUnknownInterrupt,
		},
		{
			name: "unknown exception",
			app: &core.App{Name: "bad",
				HardwareTasks: []core.HardwareTask{{Name: "f", Priority: 1, Binds: []core.Binding{{Name: core.ExceptionSecureFault}}}}},
			wantErr: ErrUnknownException,
		},
		{
			name: "unknown monotonic interrupt",
			app: &core.App{Name: "bad",
				Monotonics: []core.MonotonicTask{{Name: "m", Priority: 1, Binds: "TIM9"}}},
			wantErr: ErrUnknownInterrupt,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.app, nil, Options{PriorityBits: 4, NameSpace: ns})
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestBuild_StrictWithoutNameSpace(t *testing.T) {
	_, err := Build(&core.App{Name: "strict"}, nil, Options{PriorityBits: 4, Strict: true})
	require.ErrorIs(t, err, ErrNoNameSpace)
	assert.Contains(t, err.Error(), "device.svd")
}

func TestBuildError_Message(t *testing.T) {
	err := &BuildError{Component: "interrupts", Task: "t", Bind: "X", Err: ErrUnknownInterrupt}
	assert.Equal(t, `interrupts: task "t" bound to X: unknown interrupt`, err.Error())

	err = &BuildError{Component: "interrupts", Bind: "SSI0", Err: ErrUnknownInterrupt}
	assert.Equal(t, "interrupts: SSI0: unknown interrupt", err.Error())
}

func sampleApp() *core.App {
	return &core.App{
		Name: "sample",
		SoftwareTasks: []core.SoftwareTask{
			{Name: "foo", Priority: 1, Capacity: 2},
			{Name: "bar", Priority: 1, Capacity: 3},
		},
		HardwareTasks: []core.HardwareTask{
			{Name: "uart", Priority: 3, Binds: []core.Binding{{Name: "UART0"}, {Name: "UART1", Cfg: "uart1"}}},
			{Name: "fault", Priority: 8, Binds: []core.Binding{{Name: core.ExceptionBusFault}}},
		},
		Monotonics: []core.MonotonicTask{
			{Name: "mono", Priority: 2, Binds: core.ExceptionSysTick, Type: core.MonotonicType{Name: "Systick"}},
		},
	}
}
