package sim

import "github.com/leapstack-labs/bootseq/pkg/core"

// Register layout of the simulated system control space.
const (
	// maxInterrupts is the number of external interrupt lines an NVIC can address
	maxInterrupts = 496

	scrSleepOnExit = 1 << 1
	csrTickInt     = 1 << 1
)

// exceptionNumbers maps configurable exceptions to their vector number.
// System handler n keeps its priority in byte (n-4) of SHPR1..SHPR3.
var exceptionNumbers = map[string]int{
	core.ExceptionMemoryManagement: 4,
	core.ExceptionBusFault:         5,
	core.ExceptionUsageFault:       6,
	core.ExceptionSecureFault:      7,
	core.ExceptionSVCall:           11,
	core.ExceptionDebugMonitor:     12,
	core.ExceptionPendSV:           14,
	core.ExceptionSysTick:          15,
}

// shpr returns the register index and bit shift holding exception n.
func shpr(n int) (reg int, shift uint) {
	off := n - 4
	return off / 4, uint(off%4) * 8
}
