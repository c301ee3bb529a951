// Package verify checks the ordering guarantees of a bring-up sequence.
//
// Each rule contributes "must precede" edges to a constraint graph over the
// flattened steps. A sequence is well formed when every edge points forward
// and every required predecessor exists.
package verify

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/leapstack-labs/bootseq/internal/dag"
	"github.com/leapstack-labs/bootseq/internal/priority"
	"github.com/leapstack-labs/bootseq/pkg/core"
)

// Rule names a verified ordering guarantee.
type Rule string

const (
	// RuleInterruptsFirst requires disable-interrupts to precede every step.
	RuleInterruptsFirst Rule = "interrupts-disabled-first"
	// RuleStealBeforeRegisters requires the peripheral steal before any
	// register write.
	RuleStealBeforeRegisters Rule = "steal-before-registers"
	// RulePriorityBeforeEnable requires a priority write before a name is
	// first unmasked or enabled.
	RulePriorityBeforeEnable Rule = "priority-before-enable"
	// RuleAssertBeforeWrite requires an assertion of the same priority
	// before every priority write.
	RuleAssertBeforeWrite Rule = "assert-before-write"
	// RuleEncoding requires every written byte to match its priority.
	RuleEncoding Rule = "encoding"
)

// Violation is one broken ordering guarantee.
type Violation struct {
	Rule Rule
	// Step is the flattened index of the offending step
	Step int
	// Before is the flattened index of the step that should have come
	// first, or -1 when it is missing altogether
	Before  int
	Message string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("%s: step %d: %s", v.Rule, v.Step, v.Message)
}

// Check verifies seq and returns every violation, sorted by step.
// An empty result means the sequence is well formed.
func Check(seq *core.Sequence) []*Violation {
	c := newChecker(seq)
	c.interruptsFirst()
	c.stealBeforeRegisters()
	c.priorityBeforeEnable()
	c.assertBeforeWrite()
	c.encoding()
	c.collect()
	sort.SliceStable(c.violations, func(i, j int) bool {
		return c.violations[i].Step < c.violations[j].Step
	})
	return c.violations
}

// Graph returns the constraint graph of seq. Node IDs are the flattened step
// indices formatted with ID.
func Graph(seq *core.Sequence) *dag.Graph[core.FlatStep] {
	c := newChecker(seq)
	c.interruptsFirst()
	c.stealBeforeRegisters()
	c.priorityBeforeEnable()
	c.assertBeforeWrite()
	return c.graph
}

// ID formats a flattened step index as a graph node ID.
func ID(i int) string {
	return fmt.Sprintf("%04d", i)
}

type checker struct {
	bits       int
	steps      []core.FlatStep
	graph      *dag.Graph[core.FlatStep]
	rules      map[dag.Edge]Rule
	violations []*Violation
}

func newChecker(seq *core.Sequence) *checker {
	c := &checker{
		bits:  seq.PriorityBits,
		steps: seq.Flatten(),
		graph: dag.New[core.FlatStep](),
		rules: make(map[dag.Edge]Rule),
	}
	for i, fs := range c.steps {
		c.graph.AddNode(ID(i), fs)
	}
	return c
}

func (c *checker) require(rule Rule, before, after int) {
	if before == after {
		return
	}
	e := dag.Edge{From: ID(before), To: ID(after)}
	if _, seen := c.rules[e]; seen {
		return
	}
	c.rules[e] = rule
	_ = c.graph.AddEdge(e.From, e.To)
}

func (c *checker) missing(rule Rule, step int, format string, args ...any) {
	c.violations = append(c.violations, &Violation{
		Rule:    rule,
		Step:    step,
		Before:  -1,
		Message: fmt.Sprintf(format, args...),
	})
}

func (c *checker) first(kind core.StepKind) int {
	for i, fs := range c.steps {
		if fs.Step.Kind == kind {
			return i
		}
	}
	return -1
}

func (c *checker) interruptsFirst() {
	d := c.first(core.StepDisableInterrupts)
	if d < 0 {
		if len(c.steps) > 0 {
			c.missing(RuleInterruptsFirst, 0, "sequence never disables interrupts")
		}
		return
	}
	for i := range c.steps {
		c.require(RuleInterruptsFirst, d, i)
	}
}

func isRegisterWrite(k core.StepKind) bool {
	switch k {
	case core.StepSetInterruptPriority, core.StepUnmaskInterrupt,
		core.StepSetExceptionPriority, core.StepEnableTimerInterrupt, core.StepSleepOnExit:
		return true
	}
	return false
}

func (c *checker) stealBeforeRegisters() {
	s := c.first(core.StepStealPeripherals)
	for i, fs := range c.steps {
		if !isRegisterWrite(fs.Step.Kind) {
			continue
		}
		if s < 0 {
			c.missing(RuleStealBeforeRegisters, i, "%s without taking the peripherals", fs.Step)
			return
		}
		c.require(RuleStealBeforeRegisters, s, i)
	}
}

func isPriorityWrite(k core.StepKind) bool {
	return k == core.StepSetInterruptPriority || k == core.StepSetExceptionPriority
}

func (c *checker) priorityBeforeEnable() {
	writes := make(map[string][]int)
	for i, fs := range c.steps {
		if isPriorityWrite(fs.Step.Kind) {
			writes[fs.Step.Name] = append(writes[fs.Step.Name], i)
		}
	}

	enabled := make(map[string]bool)
	for i, fs := range c.steps {
		k := fs.Step.Kind
		if k != core.StepUnmaskInterrupt && k != core.StepEnableTimerInterrupt {
			continue
		}
		name := fs.Step.Name
		if enabled[name] {
			continue
		}
		enabled[name] = true

		if len(writes[name]) == 0 {
			c.missing(RulePriorityBeforeEnable, i, "%s enabled without a priority", name)
			continue
		}
		for _, w := range writes[name] {
			c.require(RulePriorityBeforeEnable, w, i)
		}
	}
}

func (c *checker) assertBeforeWrite() {
	last := -1
	for i, fs := range c.steps {
		switch {
		case fs.Step.Kind == core.StepAssertPriority:
			last = i
		case isPriorityWrite(fs.Step.Kind):
			if last < 0 || c.steps[last].Step.Priority != fs.Step.Priority {
				c.missing(RuleAssertBeforeWrite, i, "priority %d of %s written without assertion", fs.Step.Priority, fs.Step.Name)
				continue
			}
			c.require(RuleAssertBeforeWrite, last, i)
		}
	}
}

func (c *checker) encoding() {
	for i, fs := range c.steps {
		if !isPriorityWrite(fs.Step.Kind) {
			continue
		}
		hw, err := priority.Encode(fs.Step.Priority, c.bits)
		if err != nil {
			c.missing(RuleEncoding, i, "%v", err)
			continue
		}
		if hw != fs.Step.Encoded {
			c.missing(RuleEncoding, i, "%s writes 0x%02x, priority %d encodes to 0x%02x",
				fs.Step.Name, fs.Step.Encoded, fs.Step.Priority, hw)
		}
	}
}

// collect reports every constraint edge that points backwards.
func (c *checker) collect() {
	for _, e := range c.graph.Edges() {
		from, _ := c.graph.Node(e.From)
		to, _ := c.graph.Node(e.To)
		fi, _ := strconv.Atoi(e.From)
		ti, _ := strconv.Atoi(e.To)
		if fi < ti {
			continue
		}
		c.violations = append(c.violations, &Violation{
			Rule:    c.rules[e],
			Step:    ti,
			Before:  fi,
			Message: fmt.Sprintf("%s must precede %s", from.Data.Step, to.Data.Step),
		})
	}
}
