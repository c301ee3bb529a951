package config

import (
	"fmt"
	"os"

	"github.com/leapstack-labs/bootseq/internal/priority"
)

var outputModes = map[string]bool{
	"": true, "auto": true, "text": true, "markdown": true, "md": true, "json": true, "go": true,
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !outputModes[c.OutputFormat] {
		return fmt.Errorf("invalid output format %q (want auto|text|markdown|json|go)", c.OutputFormat)
	}
	if c.PriorityBits != 0 {
		if err := priority.CheckBits(c.PriorityBits); err != nil {
			return fmt.Errorf("priority_bits: %w", err)
		}
	}
	return nil
}

// ValidateDevice checks that the configured device file exists.
func (c *Config) ValidateDevice() error {
	if c.Device.SVD == "" {
		return nil
	}
	if _, err := os.Stat(c.Device.SVD); os.IsNotExist(err) {
		return fmt.Errorf("device file does not exist: %s\nHint: use --device to point at a CMSIS-SVD file", c.Device.SVD)
	}
	return nil
}
