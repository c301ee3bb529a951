// Package sim simulates the parts of a Cortex-M core that bring-up touches:
// the NVIC, the system handler priority registers, SCR, PRIMASK, the SysTick
// control register and the software task free queues.
package sim

import (
	"errors"
	"fmt"
	"sort"

	"github.com/leapstack-labs/bootseq/pkg/core"
)

var (
	// ErrUnknownInterrupt is returned for interrupt names the resolver rejects.
	ErrUnknownInterrupt = errors.New("unknown interrupt")
	// ErrUnknownException is returned for names that are not system handlers.
	ErrUnknownException = errors.New("unknown exception")
	// ErrPeripheralsTaken is returned by a second AcquirePeripherals.
	ErrPeripheralsTaken = errors.New("peripherals already acquired")
)

// Resolver maps interrupt names to NVIC line numbers.
type Resolver interface {
	Number(name string) (int, bool)
}

// Op is one recorded register operation.
type Op struct {
	Kind  string
	Name  string
	Value uint32
}

func (o Op) String() string {
	if o.Name == "" {
		return o.Kind
	}
	return fmt.Sprintf("%s %s 0x%02x", o.Kind, o.Name, o.Value)
}

// Option configures a Controller.
type Option func(*Controller)

// WithResolver resolves interrupt names through r instead of allocating line
// numbers on first use.
func WithResolver(r Resolver) Option {
	return func(c *Controller) { c.resolver = r }
}

// WithClaim replaces the per-controller peripheral ownership check.
func WithClaim(claim func() error) Option {
	return func(c *Controller) { c.claim = claim }
}

// Controller is a simulated core. The zero value is not usable; call New.
type Controller struct {
	resolver Resolver
	claim    func() error

	primask bool
	iser    [maxInterrupts / 32]uint32
	ipr     [maxInterrupts]uint8
	shpr    [3]uint32
	scr     uint32
	csr     uint32
	taken   bool

	lines  map[string]int
	queues map[string][]int
	trace  []Op
}

// New creates a controller in its reset state.
func New(opts ...Option) *Controller {
	c := &Controller{
		lines:  make(map[string]int),
		queues: make(map[string][]int),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Controller) record(kind, name string, v uint32) {
	c.trace = append(c.trace, Op{Kind: kind, Name: name, Value: v})
}

func (c *Controller) line(name string) (int, error) {
	if c.resolver != nil {
		n, ok := c.resolver.Number(name)
		if !ok || n < 0 || n >= maxInterrupts {
			return 0, fmt.Errorf("%w: %s", ErrUnknownInterrupt, name)
		}
		return n, nil
	}
	if n, ok := c.lines[name]; ok {
		return n, nil
	}
	n := len(c.lines)
	if n >= maxInterrupts {
		return 0, fmt.Errorf("%w: %s (NVIC full)", ErrUnknownInterrupt, name)
	}
	c.lines[name] = n
	return n, nil
}

// DisableInterrupts sets PRIMASK.
func (c *Controller) DisableInterrupts() {
	c.primask = true
	c.record("cpsid", "", 0)
}

// EnableInterrupts clears PRIMASK. Bring-up never does this itself.
func (c *Controller) EnableInterrupts() {
	c.primask = false
	c.record("cpsie", "", 0)
}

// EnqueueUnchecked pushes slot onto task's free queue.
func (c *Controller) EnqueueUnchecked(task string, slot int) error {
	c.queues[task] = append(c.queues[task], slot)
	c.record("enqueue", task, uint32(slot))
	return nil
}

// AcquirePeripherals takes ownership of the core peripherals.
func (c *Controller) AcquirePeripherals() error {
	if c.claim != nil {
		if err := c.claim(); err != nil {
			return err
		}
	} else if c.taken {
		return ErrPeripheralsTaken
	}
	c.taken = true
	c.record("steal", "", 0)
	return nil
}

// SetInterruptPriority writes the NVIC priority byte of name.
func (c *Controller) SetInterruptPriority(name string, hw uint8) error {
	n, err := c.line(name)
	if err != nil {
		return err
	}
	c.ipr[n] = hw
	c.record("nvic.ipr", name, uint32(hw))
	return nil
}

// Unmask sets the NVIC enable bit of name.
func (c *Controller) Unmask(name string) error {
	n, err := c.line(name)
	if err != nil {
		return err
	}
	c.iser[n/32] |= 1 << (n % 32)
	c.record("nvic.iser", name, uint32(n))
	return nil
}

// SetExceptionPriority writes the system handler priority byte of name.
func (c *Controller) SetExceptionPriority(name string, hw uint8) error {
	n, ok := exceptionNumbers[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownException, name)
	}
	reg, shift := shpr(n)
	c.shpr[reg] &^= 0xff << shift
	c.shpr[reg] |= uint32(hw) << shift
	c.record("scb.shpr", name, uint32(hw))
	return nil
}

// EnableTimerInterrupt enables the interrupt a timer fires on. For SysTick
// this sets CSR.TICKINT; any other name is unmasked in the NVIC.
func (c *Controller) EnableTimerInterrupt(name string) error {
	if name == core.ExceptionSysTick {
		c.csr |= csrTickInt
		c.record("systick.csr", name, c.csr)
		return nil
	}
	return c.Unmask(name)
}

// SetSleepOnExit sets SCR.SLEEPONEXIT.
func (c *Controller) SetSleepOnExit() {
	c.scr |= scrSleepOnExit
	c.record("scb.scr", "", c.scr)
}

// InterruptsDisabled reports whether PRIMASK is set.
func (c *Controller) InterruptsDisabled() bool { return c.primask }

// PeripheralsTaken reports whether the peripherals were acquired.
func (c *Controller) PeripheralsTaken() bool { return c.taken }

// Enabled reports whether the NVIC enable bit of name is set.
func (c *Controller) Enabled(name string) bool {
	n, ok := c.lookup(name)
	return ok && c.iser[n/32]&(1<<(n%32)) != 0
}

// Priority returns the NVIC priority byte of name.
func (c *Controller) Priority(name string) (uint8, bool) {
	n, ok := c.lookup(name)
	if !ok {
		return 0, false
	}
	return c.ipr[n], true
}

// ExceptionPriority returns the system handler priority byte of name.
func (c *Controller) ExceptionPriority(name string) (uint8, bool) {
	n, ok := exceptionNumbers[name]
	if !ok {
		return 0, false
	}
	reg, shift := shpr(n)
	return uint8(c.shpr[reg] >> shift), true
}

// SHPR returns the raw system handler priority registers.
func (c *Controller) SHPR() [3]uint32 { return c.shpr }

// SleepOnExit reports whether SCR.SLEEPONEXIT is set.
func (c *Controller) SleepOnExit() bool { return c.scr&scrSleepOnExit != 0 }

// TickInterrupt reports whether SysTick CSR.TICKINT is set.
func (c *Controller) TickInterrupt() bool { return c.csr&csrTickInt != 0 }

// Queue returns the free queue of task.
func (c *Controller) Queue(task string) []int {
	return append([]int(nil), c.queues[task]...)
}

// EnabledInterrupts returns the names of all enabled interrupts, sorted.
func (c *Controller) EnabledInterrupts() []string {
	var out []string
	for _, name := range c.known() {
		if c.Enabled(name) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Trace returns the recorded operations in order.
func (c *Controller) Trace() []Op {
	return append([]Op(nil), c.trace...)
}

func (c *Controller) lookup(name string) (int, bool) {
	if c.resolver != nil {
		n, ok := c.resolver.Number(name)
		return n, ok && n >= 0 && n < maxInterrupts
	}
	n, ok := c.lines[name]
	return n, ok
}

// known returns the interrupt names touched so far.
func (c *Controller) known() []string {
	seen := make(map[string]bool)
	var out []string
	for _, op := range c.trace {
		if (op.Kind == "nvic.ipr" || op.Kind == "nvic.iser") && !seen[op.Name] {
			seen[op.Name] = true
			out = append(out, op.Name)
		}
	}
	return out
}
