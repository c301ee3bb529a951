package executor

import (
	"errors"
	"sync/atomic"
)

// ErrPeripheralsTaken is returned when the core peripherals were already
// claimed in this process.
var ErrPeripheralsTaken = errors.New("core peripherals already taken")

var peripheralsTaken atomic.Bool

// StealPeripherals claims the core peripheral singleton. It succeeds at most
// once per process.
func StealPeripherals() error {
	if !peripheralsTaken.CompareAndSwap(false, true) {
		return ErrPeripheralsTaken
	}
	return nil
}

// releasePeripherals undoes StealPeripherals. Tests only.
func releasePeripherals() {
	peripheralsTaken.Store(false)
}
