package core

// Core exception names. These are vendor independent and configured through
// the system control block rather than the interrupt controller.
const (
	ExceptionMemoryManagement = "MemoryManagement"
	ExceptionBusFault         = "BusFault"
	ExceptionUsageFault       = "UsageFault"
	ExceptionSecureFault      = "SecureFault"
	ExceptionSVCall           = "SVCall"
	ExceptionDebugMonitor     = "DebugMonitor"
	ExceptionPendSV           = "PendSV"
	ExceptionSysTick          = "SysTick"
)

var exceptions = map[string]bool{
	ExceptionMemoryManagement: true,
	ExceptionBusFault:         true,
	ExceptionUsageFault:       true,
	ExceptionSecureFault:      true,
	ExceptionSVCall:           true,
	ExceptionDebugMonitor:     true,
	ExceptionPendSV:           true,
	ExceptionSysTick:          true,
}

// IsException reports whether name is a configurable core exception.
func IsException(name string) bool {
	return exceptions[name]
}

// Exceptions returns the configurable core exception names in vector order.
func Exceptions() []string {
	return []string{
		ExceptionMemoryManagement,
		ExceptionBusFault,
		ExceptionUsageFault,
		ExceptionSecureFault,
		ExceptionSVCall,
		ExceptionDebugMonitor,
		ExceptionPendSV,
		ExceptionSysTick,
	}
}

// BindKind classifies a binding target.
type BindKind int

// Binding kinds.
const (
	// BindInterrupt is a vendor specific peripheral interrupt (NVIC).
	BindInterrupt BindKind = iota
	// BindException is a core exception (SCB).
	BindException
)

// String returns the string representation of the bind kind.
func (k BindKind) String() string {
	switch k {
	case BindInterrupt:
		return "interrupt"
	case BindException:
		return "exception"
	default:
		return "unknown"
	}
}

// Binding attaches a task to an interrupt or exception vector.
type Binding struct {
	// Name is the interrupt or exception name
	Name string
	// Cfg is an optional configuration predicate gating the binding.
	// Empty means the binding is always active.
	Cfg string
}

// Kind classifies the binding. Classification depends only on the name.
func (b Binding) Kind() BindKind {
	if IsException(b.Name) {
		return BindException
	}
	return BindInterrupt
}
