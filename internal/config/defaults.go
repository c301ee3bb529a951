// Package config holds the configuration defaults and project discovery
// shared by the bootseq commands.
package config

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/bootseq/internal/priority"
)

// Default configuration values.
const (
	DefaultModelFile     = "app.yaml"
	DefaultMacrosDir     = "macros"
	DefaultStateFile     = ".bootseq/state.db"
	DefaultOutput        = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultConfiguration = "debug"
	DefaultPackage       = "main"
	DefaultRuntime       = "github.com/leapstack-labs/bootseq/rt"
)

// ErrPriorityBitsUnknown is returned when neither the configuration nor a
// device description gives the number of priority bits.
var ErrPriorityBitsUnknown = errors.New("number of NVIC priority bits is unknown: " +
	"set priority_bits in bootseq.yaml (or --priority-bits) or supply a device description")

// ResolvePriorityBits picks the priority bit width for a build. A device
// value wins over the configured one; zero means unset on either side.
func ResolvePriorityBits(configured, fromDevice int) (int, error) {
	bits := configured
	if fromDevice != 0 {
		bits = fromDevice
	}
	if bits == 0 {
		return 0, ErrPriorityBitsUnknown
	}
	if err := priority.CheckBits(bits); err != nil {
		return 0, fmt.Errorf("priority_bits: %w", err)
	}
	return bits, nil
}
