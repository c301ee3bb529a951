package starlark

import (
	"context"
	"fmt"
	"sync"

	"github.com/leapstack-labs/bootseq/internal/macro"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// BuildContext is the build variant predicates are evaluated against.
type BuildContext struct {
	// Configuration is the build configuration name
	Configuration string
	// Features are the enabled feature names
	Features []string
	// Values are free-form values exposed as the cfg dict
	Values map[string]any
	// Target describes the device
	Target *TargetInfo
	// MacrosDir holds .star helper modules callable from predicates.
	// Empty or missing means no helpers.
	MacrosDir string
}

// Evaluator evaluates predicates for one build variant.
// Results are memoized; an Evaluator is safe for concurrent use.
type Evaluator struct {
	globals starlark.StringDict

	mu    sync.Mutex
	cache map[string]bool
}

// NewEvaluator creates an evaluator for the given build context.
func NewEvaluator(b *BuildContext) (*Evaluator, error) {
	if b == nil {
		b = &BuildContext{}
	}
	globals, err := Predeclared(b)
	if err != nil {
		return nil, fmt.Errorf("invalid predicate globals: %w", err)
	}
	if b.MacrosDir != "" {
		modules, err := macro.NewLoader(b.MacrosDir, globals).Load()
		if err != nil {
			return nil, err
		}
		globals = macro.Globals(globals, modules)
	}
	return &Evaluator{
		globals: globals,
		cache:   make(map[string]bool),
	}, nil
}

// Eval evaluates predicate and returns its truth value.
func (e *Evaluator) Eval(predicate string) (bool, error) {
	e.mu.Lock()
	if v, ok := e.cache[predicate]; ok {
		e.mu.Unlock()
		return v, nil
	}
	e.mu.Unlock()

	thread := acquireThread("predicate")
	defer releaseThread(thread)

	v, err := evalTruth(thread, predicate, e.globals)
	if err != nil {
		return false, err
	}

	e.mu.Lock()
	e.cache[predicate] = v
	e.mu.Unlock()
	return v, nil
}

// Warm evaluates predicates concurrently and caches their values. Nothing
// is cached when any predicate fails.
func (e *Evaluator) Warm(predicates []string) error {
	values, err := evalAll(context.Background(), predicates, e.globals, 0)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for i, p := range predicates {
		e.cache[p] = values[i]
	}
	return nil
}

func evalTruth(thread *starlark.Thread, predicate string, globals starlark.StringDict) (bool, error) {
	v, err := starlark.EvalOptions(&syntax.FileOptions{}, thread, "predicate", predicate, globals)
	if err != nil {
		return false, &EvalError{Expr: predicate, Message: err.Error()}
	}
	return bool(v.Truth()), nil
}

// EvalError represents an error while evaluating a predicate.
type EvalError struct {
	Expr    string
	Message string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("error evaluating predicate %q: %s", e.Expr, e.Message)
}
