// Package config provides configuration management for the bootseq CLI.
package config

import (
	sharedcfg "github.com/leapstack-labs/bootseq/internal/config"
)

// DeviceConfig selects the device description used to resolve names.
type DeviceConfig struct {
	// SVD is the path to a CMSIS-SVD file
	SVD string `koanf:"svd"`
	// Strict fails builds when no device description is available
	Strict bool `koanf:"strict"`
}

// GoConfig controls Go source output.
type GoConfig struct {
	Package string `koanf:"package"`
	Runtime string `koanf:"runtime"`
	Func    string `koanf:"func"`
}

// Config holds all CLI configuration options.
type Config struct {
	// PriorityBits is the number of NVIC priority bits, 0 when unset
	PriorityBits int          `koanf:"priority_bits"`
	Device       DeviceConfig `koanf:"device"`
	Models       []string     `koanf:"models"`
	StatePath    string       `koanf:"state_path"`
	Verbose      bool         `koanf:"verbose"`
	OutputFormat string       `koanf:"output"`
	// Configuration is the build configuration name seen by predicates
	Configuration string `koanf:"configuration"`
	// Features are the enabled features seen by predicates
	Features []string `koanf:"features"`
	// Cfg holds free-form predicate values
	Cfg map[string]any `koanf:"cfg"`
	// MacrosDir holds .star helper modules for predicates
	MacrosDir string   `koanf:"macros_dir"`
	Go        GoConfig `koanf:"go"`

	// ProjectRoot is the directory relative paths resolve against
	ProjectRoot string `koanf:"-"`
}

// Default configuration values - uses shared defaults from internal/config
const (
	DefaultModelFile     = sharedcfg.DefaultModelFile
	DefaultMacrosDir     = sharedcfg.DefaultMacrosDir
	DefaultStateFile     = sharedcfg.DefaultStateFile
	DefaultOutput        = sharedcfg.DefaultOutput
	DefaultConfiguration = sharedcfg.DefaultConfiguration
)
