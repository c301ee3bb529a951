// Package executor walks a bring-up sequence against a target.
//
// The executor is deliberately dumb: every decision was made when the
// sequence was built. It replays steps in order, evaluates conditional
// predicates at the point they run and re-checks priority assertions.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/bootseq/internal/priority"
	"github.com/leapstack-labs/bootseq/pkg/core"
)

// ErrNoEvaluator is returned when a sequence contains a conditional step and
// no predicate evaluator was supplied.
var ErrNoEvaluator = errors.New("conditional step requires a predicate evaluator")

// Target is the hardware (or simulated hardware) a sequence runs against.
type Target interface {
	DisableInterrupts()
	EnqueueUnchecked(task string, slot int) error
	AcquirePeripherals() error
	SetInterruptPriority(name string, hw uint8) error
	Unmask(name string) error
	SetExceptionPriority(name string, hw uint8) error
	EnableTimerInterrupt(name string) error
	SetSleepOnExit()
}

// PredicateEvaluator decides whether a configuration predicate holds in the
// running build.
type PredicateEvaluator interface {
	Eval(predicate string) (bool, error)
}

// Warmer is implemented by evaluators that can evaluate predicates ahead of
// time.
type Warmer interface {
	Warm(predicates []string) error
}

// Result summarizes one run.
type Result struct {
	// Executed is the number of primitive steps applied to the target
	Executed int
	// Taken lists the predicates that held, in execution order
	Taken []string
	// Skipped lists the predicates that did not hold, in execution order
	Skipped []string
}

// StepError reports the step that failed.
type StepError struct {
	Index int
	Step  core.Step
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Runner executes sequences against a single target.
type Runner struct {
	target Target
	eval   PredicateEvaluator
	logger *slog.Logger
}

// NewRunner creates a runner. eval may be nil for sequences without
// conditional steps; logger may be nil.
func NewRunner(target Target, eval PredicateEvaluator, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{target: target, eval: eval, logger: logger}
}

// Run executes seq against target with a discard logger.
func Run(ctx context.Context, seq *core.Sequence, target Target, eval PredicateEvaluator) (*Result, error) {
	return NewRunner(target, eval, nil).Run(ctx, seq)
}

// Run executes every step of seq in order. It stops at the first failure.
func (r *Runner) Run(ctx context.Context, seq *core.Sequence) (*Result, error) {
	if seq == nil {
		return nil, fmt.Errorf("sequence is nil")
	}
	if err := priority.CheckBits(seq.PriorityBits); err != nil {
		return nil, err
	}

	if preds := Predicates(seq); len(preds) > 0 {
		if r.eval == nil {
			return nil, ErrNoEvaluator
		}
		if w, ok := r.eval.(Warmer); ok {
			if err := w.Warm(preds); err != nil {
				return nil, fmt.Errorf("failed to evaluate predicates: %w", err)
			}
		}
	}

	r.logger.Debug("running pre-init sequence",
		slog.String("app", seq.App),
		slog.Int("steps", len(seq.Steps)))

	res := &Result{}
	for i, step := range seq.Steps {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := r.exec(seq.PriorityBits, step, res); err != nil {
			return res, &StepError{Index: i, Step: step, Err: err}
		}
	}

	r.logger.Debug("pre-init sequence complete",
		slog.String("app", seq.App),
		slog.Int("executed", res.Executed),
		slog.Int("skipped_blocks", len(res.Skipped)))

	return res, nil
}

func (r *Runner) exec(bits int, step core.Step, res *Result) error {
	switch step.Kind {
	case core.StepDisableInterrupts:
		r.target.DisableInterrupts()

	case core.StepSeedQueue:
		for _, slot := range step.Slots {
			if err := r.target.EnqueueUnchecked(step.Task, slot); err != nil {
				return err
			}
		}

	case core.StepStealPeripherals:
		if err := r.target.AcquirePeripherals(); err != nil {
			return err
		}

	case core.StepAssertPriority:
		if err := priority.Validate(step.Priority, bits); err != nil {
			return err
		}

	case core.StepSetInterruptPriority:
		if err := checkEncoding(step, bits); err != nil {
			return err
		}
		if err := r.target.SetInterruptPriority(step.Name, step.Encoded); err != nil {
			return err
		}

	case core.StepUnmaskInterrupt:
		if err := r.target.Unmask(step.Name); err != nil {
			return err
		}

	case core.StepSetExceptionPriority:
		if err := checkEncoding(step, bits); err != nil {
			return err
		}
		if err := r.target.SetExceptionPriority(step.Name, step.Encoded); err != nil {
			return err
		}

	case core.StepEnableTimerInterrupt:
		if err := r.target.EnableTimerInterrupt(step.Name); err != nil {
			return err
		}

	case core.StepSleepOnExit:
		r.target.SetSleepOnExit()

	case core.StepConditional:
		if r.eval == nil {
			return ErrNoEvaluator
		}
		ok, err := r.eval.Eval(step.Predicate)
		if err != nil {
			return err
		}
		if !ok {
			r.logger.Debug("predicate false, skipping block", slog.String("predicate", step.Predicate))
			res.Skipped = append(res.Skipped, step.Predicate)
			return nil
		}
		res.Taken = append(res.Taken, step.Predicate)
		for _, inner := range step.Body {
			if err := r.exec(bits, inner, res); err != nil {
				return err
			}
		}
		return nil

	default:
		return fmt.Errorf("unknown step kind %q", step.Kind)
	}

	res.Executed++
	return nil
}

// checkEncoding rejects a priority write whose byte does not match its
// logical priority, which only happens with hand-edited sequences.
func checkEncoding(step core.Step, bits int) error {
	hw, err := priority.Encode(step.Priority, bits)
	if err != nil {
		return err
	}
	if hw != step.Encoded {
		return fmt.Errorf("encoded priority 0x%02x does not match priority %d (want 0x%02x)", step.Encoded, step.Priority, hw)
	}
	return nil
}

// Predicates returns the distinct predicates of seq in first-use order.
func Predicates(seq *core.Sequence) []string {
	seen := make(map[string]bool)
	var out []string
	for _, step := range seq.Steps {
		if step.Kind != core.StepConditional || seen[step.Predicate] {
			continue
		}
		seen[step.Predicate] = true
		out = append(out, step.Predicate)
	}
	return out
}
