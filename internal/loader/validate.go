package loader

import (
	"fmt"
	"regexp"

	"github.com/leapstack-labs/bootseq/pkg/core"
)

// ValidationError reports an inconsistent application model.
type ValidationError struct {
	Task    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Task != "" {
		return fmt.Sprintf("task %q: %s", e.Task, e.Message)
	}
	return e.Message
}

var (
	// Task names become Go identifiers once separators are folded.
	taskNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)
	// Vector names are referenced verbatim by generated code.
	vectorNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Validate checks the internal consistency of app. Priority ranges are not
// checked here; they depend on the device and are enforced by pre-init.
func Validate(app *core.App) error {
	names := make(map[string]bool)
	claim := func(name string) error {
		if name == "" {
			return &ValidationError{Message: "task name is required"}
		}
		if !taskNamePattern.MatchString(name) {
			return &ValidationError{Task: name, Message: "name must start with a letter or underscore and contain only letters, digits, '_', '-' or '.'"}
		}
		if names[name] {
			return &ValidationError{Task: name, Message: "duplicate task name"}
		}
		names[name] = true
		return nil
	}

	for _, t := range app.SoftwareTasks {
		if err := claim(t.Name); err != nil {
			return err
		}
		if t.Capacity < 1 {
			return &ValidationError{Task: t.Name, Message: fmt.Sprintf("capacity must be positive, got %d", t.Capacity)}
		}
		if t.Capacity > core.MaxCapacity {
			return &ValidationError{Task: t.Name, Message: fmt.Sprintf("capacity must be at most %d, got %d", core.MaxCapacity, t.Capacity)}
		}
		if t.Priority < 1 {
			return &ValidationError{Task: t.Name, Message: fmt.Sprintf("priority must be positive, got %d", t.Priority)}
		}
	}

	bound := make(map[string]string)
	bind := func(task, vector string) error {
		if vector == "" {
			return &ValidationError{Task: task, Message: "bind name is required"}
		}
		if !vectorNamePattern.MatchString(vector) {
			return &ValidationError{Task: task, Message: fmt.Sprintf("invalid vector name %q", vector)}
		}
		if owner, ok := bound[vector]; ok {
			return &ValidationError{Task: task, Message: fmt.Sprintf("%s is already bound by task %q", vector, owner)}
		}
		bound[vector] = task
		return nil
	}

	for _, t := range app.HardwareTasks {
		if err := claim(t.Name); err != nil {
			return err
		}
		if t.Priority < 1 {
			return &ValidationError{Task: t.Name, Message: fmt.Sprintf("priority must be positive, got %d", t.Priority)}
		}
		if len(t.Binds) == 0 {
			return &ValidationError{Task: t.Name, Message: "hardware task must bind at least one interrupt or exception"}
		}
		for _, b := range t.Binds {
			if err := bind(t.Name, b.Name); err != nil {
				return err
			}
		}
	}

	types := make(map[string]string)
	for _, m := range app.Monotonics {
		if err := claim(m.Name); err != nil {
			return err
		}
		if m.Priority < 1 {
			return &ValidationError{Task: m.Name, Message: fmt.Sprintf("priority must be positive, got %d", m.Priority)}
		}
		if err := bind(m.Name, m.Binds); err != nil {
			return err
		}
		if m.Type.Name != "" {
			if owner, ok := types[m.Type.Name]; ok {
				return &ValidationError{Task: m.Name, Message: fmt.Sprintf("timer type %s already used by monotonic %q", m.Type.Name, owner)}
			}
			types[m.Type.Name] = m.Name
		}
	}

	if app.Idle != nil {
		if err := claim(app.Idle.Name); err != nil {
			return err
		}
	}

	dispatchers := make(map[string]bool)
	for _, d := range app.Dispatchers {
		if !vectorNamePattern.MatchString(d.Name) {
			return &ValidationError{Message: fmt.Sprintf("invalid dispatcher name %q", d.Name)}
		}
		if dispatchers[d.Name] {
			return &ValidationError{Message: fmt.Sprintf("duplicate dispatcher %s", d.Name)}
		}
		dispatchers[d.Name] = true
		if owner, ok := bound[d.Name]; ok {
			return &ValidationError{Message: fmt.Sprintf("dispatcher %s is bound by task %q", d.Name, owner)}
		}
		if core.IsException(d.Name) {
			return &ValidationError{Message: fmt.Sprintf("dispatcher %s is a core exception", d.Name)}
		}
	}
	return nil
}
