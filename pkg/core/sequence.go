package core

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Sequence is the ordered bring-up program for one application build.
// It is executed verbatim, exactly once, before interrupts are re-enabled.
type Sequence struct {
	App          string `json:"app"`
	PriorityBits int    `json:"priority_bits"`
	Steps        []Step `json:"steps"`
}

// FlatStep is a step with its position in the top-level sequence and the
// predicate of the conditional block containing it, if any.
type FlatStep struct {
	Index     int
	Predicate string
	Step      Step
}

// Flatten expands conditional blocks in place, preserving order.
// Conditional steps themselves are not included.
func (s *Sequence) Flatten() []FlatStep {
	var out []FlatStep
	for i, step := range s.Steps {
		if step.Kind == StepConditional {
			for _, inner := range step.Body {
				out = append(out, FlatStep{Index: i, Predicate: step.Predicate, Step: inner})
			}
			continue
		}
		out = append(out, FlatStep{Index: i, Step: step})
	}
	return out
}

// Count returns the number of steps of the given kind, including steps
// nested in conditional blocks.
func (s *Sequence) Count(kind StepKind) int {
	n := 0
	for _, fs := range s.Flatten() {
		if fs.Step.Kind == kind {
			n++
		}
	}
	if kind == StepConditional {
		for _, step := range s.Steps {
			if step.Kind == StepConditional {
				n++
			}
		}
	}
	return n
}

// Equal reports whether two sequences are identical.
func (s *Sequence) Equal(o *Sequence) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.App != o.App || s.PriorityBits != o.PriorityBits || len(s.Steps) != len(o.Steps) {
		return false
	}
	for i := range s.Steps {
		if !s.Steps[i].Equal(o.Steps[i]) {
			return false
		}
	}
	return true
}

// Fingerprint returns a stable hex digest of the canonical JSON encoding.
// Two builds from the same model produce the same fingerprint.
func (s *Sequence) Fingerprint() string {
	data, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
