// Package core defines the shared language of the bootseq system.
//
// This package contains:
//   - The elaborated application model (App, tasks, bindings, monotonics)
//   - The dispatcher analysis table produced upstream (Analysis)
//   - The bootstrap sequence produced by pre-init (Step, Sequence)
//   - Binding classification (interrupt vs core exception)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
