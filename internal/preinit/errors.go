package preinit

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownInterrupt is returned when a bind names an interrupt the
	// device does not have.
	ErrUnknownInterrupt = errors.New("unknown interrupt")
	// ErrUnknownException is returned when a bind names a core exception the
	// device core does not implement.
	ErrUnknownException = errors.New("unknown exception")
	// ErrNoNameSpace is returned when strict name checking is requested but
	// no device description was supplied.
	ErrNoNameSpace = errors.New("device interrupt names are not available: " +
		"supply a device description (--device or device.svd in bootseq.yaml) " +
		"or disable strict name checking (device.strict: false)")
)

// BuildError locates a failure at a task and bind.
type BuildError struct {
	// Component is the pre-init component that rejected the input
	Component string
	// Task is the offending task, empty for dispatcher entries
	Task string
	// Bind is the interrupt or exception name
	Bind string
	Err  error
}

func (e *BuildError) Error() string {
	switch {
	case e.Task != "" && e.Bind != "":
		return fmt.Sprintf("%s: task %q bound to %s: %v", e.Component, e.Task, e.Bind, e.Err)
	case e.Bind != "":
		return fmt.Sprintf("%s: %s: %v", e.Component, e.Bind, e.Err)
	case e.Task != "":
		return fmt.Sprintf("%s: task %q: %v", e.Component, e.Task, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Component, e.Err)
	}
}

func (e *BuildError) Unwrap() error {
	return e.Err
}
