package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sample() *Sequence {
	return &Sequence{
		App:          "blinky",
		PriorityBits: 3,
		Steps: []Step{
			DisableInterrupts(),
			SeedQueue("foo", 2),
			StealPeripherals(),
			AssertPriority(3),
			Conditional(`feature("uart1")`,
				SetInterruptPriority("UART1", 3, 0xa0),
				UnmaskInterrupt("UART1"),
			),
			UnmaskInterrupt("UART1"),
			SetExceptionPriority(ExceptionSysTick, 2, 0xc0),
			EnableTimerInterrupt(ExceptionSysTick),
			SleepOnExit(),
		},
	}
}

func TestSequence_Flatten(t *testing.T) {
	flat := sample().Flatten()

	assert.Len(t, flat, 10)
	assert.Equal(t, 4, flat[4].Index)
	assert.Equal(t, `feature("uart1")`, flat[4].Predicate)
	assert.Equal(t, StepSetInterruptPriority, flat[4].Step.Kind)
	assert.Equal(t, 4, flat[5].Index)
	assert.Equal(t, StepUnmaskInterrupt, flat[5].Step.Kind)
	assert.Equal(t, 5, flat[6].Index)
	assert.Empty(t, flat[6].Predicate)
}

func TestSequence_Count(t *testing.T) {
	seq := sample()

	tests := []struct {
		kind StepKind
		want int
	}{
		{StepUnmaskInterrupt, 2},
		{StepConditional, 1},
		{StepSetInterruptPriority, 1},
		{StepSleepOnExit, 1},
		{StepSetExceptionPriority, 1},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, seq.Count(tt.kind))
		})
	}
}

func TestSequence_EqualAndFingerprint(t *testing.T) {
	a, b := sample(), sample()
	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.Len(t, a.Fingerprint(), 64)

	b.Steps[4].Body[0].Encoded = 0x80
	assert.False(t, a.Equal(b))
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())

	var nilSeq *Sequence
	assert.True(t, nilSeq.Equal(nil))
	assert.False(t, a.Equal(nil))
}

func TestStep_String(t *testing.T) {
	tests := []struct {
		step Step
		want string
	}{
		{DisableInterrupts(), "disable-interrupts"},
		{SeedQueue("foo", 2), "seed-queue foo [0 1]"},
		{AssertPriority(3), "assert-priority 3"},
		{SetInterruptPriority("UART0", 3, 0xa0), "set-interrupt-priority UART0 3 (hw 0xa0)"},
		{EnableTimerInterrupt("SysTick"), "enable-timer-interrupt SysTick"},
		{Conditional("x", UnmaskInterrupt("A"), UnmaskInterrupt("B")), "if x { unmask-interrupt A; unmask-interrupt B }"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.step.String())
	}
}

func TestBinding_Kind(t *testing.T) {
	assert.Equal(t, BindException, Binding{Name: ExceptionSysTick}.Kind())
	assert.Equal(t, BindException, Binding{Name: ExceptionSVCall}.Kind())
	assert.Equal(t, BindInterrupt, Binding{Name: "UART0"}.Kind())
	assert.Equal(t, "exception", BindException.String())
	assert.Equal(t, "interrupt", BindInterrupt.String())
	assert.Equal(t, "unknown", BindKind(7).String())
	assert.Len(t, Exceptions(), 8)
	for _, name := range Exceptions() {
		assert.True(t, IsException(name))
	}
}

func TestSeedQueue_ZeroCapacity(t *testing.T) {
	s := SeedQueue("idle", 0)
	assert.Empty(t, s.Slots)
}
