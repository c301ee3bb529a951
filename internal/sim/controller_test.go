package sim

import (
	"errors"
	"testing"

	"github.com/leapstack-labs/bootseq/internal/device"
	"github.com/leapstack-labs/bootseq/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_ResetState(t *testing.T) {
	c := New()
	assert.False(t, c.InterruptsDisabled())
	assert.False(t, c.PeripheralsTaken())
	assert.False(t, c.SleepOnExit())
	assert.False(t, c.TickInterrupt())
	assert.Empty(t, c.Trace())
	assert.Empty(t, c.EnabledInterrupts())
}

func TestController_InterruptRegisters(t *testing.T) {
	c := New()
	c.DisableInterrupts()
	require.NoError(t, c.SetInterruptPriority("UART0", 0x20))
	require.NoError(t, c.Unmask("UART0"))
	require.NoError(t, c.SetInterruptPriority("SSI0", 0xe0))

	assert.True(t, c.InterruptsDisabled())
	assert.True(t, c.Enabled("UART0"))
	assert.False(t, c.Enabled("SSI0"))
	assert.False(t, c.Enabled("never"))

	hw, ok := c.Priority("UART0")
	require.True(t, ok)
	assert.Equal(t, uint8(0x20), hw)

	hw, ok = c.Priority("SSI0")
	require.True(t, ok)
	assert.Equal(t, uint8(0xe0), hw)

	assert.Equal(t, []string{"UART0"}, c.EnabledInterrupts())

	c.EnableInterrupts()
	assert.False(t, c.InterruptsDisabled())
}

func TestController_ExceptionRegisters(t *testing.T) {
	tests := []struct {
		name  string
		reg   int
		shift uint
	}{
		{core.ExceptionMemoryManagement, 0, 0},
		{core.ExceptionBusFault, 0, 8},
		{core.ExceptionUsageFault, 0, 16},
		{core.ExceptionSecureFault, 0, 24},
		{core.ExceptionSVCall, 1, 24},
		{core.ExceptionDebugMonitor, 2, 0},
		{core.ExceptionPendSV, 2, 16},
		{core.ExceptionSysTick, 2, 24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			require.NoError(t, c.SetExceptionPriority(tt.name, 0xa0))

			got, ok := c.ExceptionPriority(tt.name)
			require.True(t, ok)
			assert.Equal(t, uint8(0xa0), got)

			regs := c.SHPR()
			assert.Equal(t, uint32(0xa0)<<tt.shift, regs[tt.reg])
		})
	}
}

func TestController_ExceptionPriorityOverwrite(t *testing.T) {
	c := New()
	require.NoError(t, c.SetExceptionPriority(core.ExceptionPendSV, 0xff))
	require.NoError(t, c.SetExceptionPriority(core.ExceptionSysTick, 0x40))
	require.NoError(t, c.SetExceptionPriority(core.ExceptionPendSV, 0x10))

	pendsv, _ := c.ExceptionPriority(core.ExceptionPendSV)
	systick, _ := c.ExceptionPriority(core.ExceptionSysTick)
	assert.Equal(t, uint8(0x10), pendsv)
	assert.Equal(t, uint8(0x40), systick)
}

func TestController_UnknownException(t *testing.T) {
	c := New()
	err := c.SetExceptionPriority("HardFault", 0)
	require.ErrorIs(t, err, ErrUnknownException)

	_, ok := c.ExceptionPriority("HardFault")
	assert.False(t, ok)
}

func TestController_TimerInterrupt(t *testing.T) {
	c := New()
	require.NoError(t, c.EnableTimerInterrupt(core.ExceptionSysTick))
	assert.True(t, c.TickInterrupt())

	require.NoError(t, c.EnableTimerInterrupt("TIMER0A"))
	assert.True(t, c.Enabled("TIMER0A"))
}

func TestController_SleepOnExit(t *testing.T) {
	c := New()
	c.SetSleepOnExit()
	assert.True(t, c.SleepOnExit())
}

func TestController_Queues(t *testing.T) {
	c := New()
	for i := 0; i < 3; i++ {
		require.NoError(t, c.EnqueueUnchecked("foo", i))
	}
	assert.Equal(t, []int{0, 1, 2}, c.Queue("foo"))
	assert.Empty(t, c.Queue("bar"))

	q := c.Queue("foo")
	q[0] = 99
	assert.Equal(t, []int{0, 1, 2}, c.Queue("foo"), "Queue returns a copy")
}

func TestController_AcquirePeripherals(t *testing.T) {
	c := New()
	require.NoError(t, c.AcquirePeripherals())
	assert.True(t, c.PeripheralsTaken())
	require.ErrorIs(t, c.AcquirePeripherals(), ErrPeripheralsTaken)
}

func TestController_WithClaim(t *testing.T) {
	claimErr := errors.New("claimed elsewhere")
	c := New(WithClaim(func() error { return claimErr }))
	require.ErrorIs(t, c.AcquirePeripherals(), claimErr)
	assert.False(t, c.PeripheralsTaken())
}

func TestController_WithResolver(t *testing.T) {
	dev := device.New("test", "CM3", 3, []device.Interrupt{
		{Name: "UART0", Number: 5},
		{Name: "SSI0", Number: 40},
	})
	c := New(WithResolver(dev))

	require.NoError(t, c.Unmask("SSI0"))
	assert.True(t, c.Enabled("SSI0"))
	assert.Equal(t, uint32(1<<8), c.iser[1])

	err := c.Unmask("UART9")
	require.ErrorIs(t, err, ErrUnknownInterrupt)
	assert.Contains(t, err.Error(), "UART9")
}

func TestController_Trace(t *testing.T) {
	c := New()
	c.DisableInterrupts()
	require.NoError(t, c.SetInterruptPriority("UART0", 0x20))
	require.NoError(t, c.Unmask("UART0"))

	ops := c.Trace()
	require.Len(t, ops, 3)
	assert.Equal(t, "cpsid", ops[0].String())
	assert.Equal(t, "nvic.ipr UART0 0x20", ops[1].String())
	assert.Equal(t, "nvic.iser", ops[2].Kind)
}
