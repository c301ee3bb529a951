package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/leapstack-labs/bootseq/internal/analysis"
	"github.com/leapstack-labs/bootseq/internal/cli/config"
	"github.com/leapstack-labs/bootseq/internal/cli/output"
	intconfig "github.com/leapstack-labs/bootseq/internal/config"
	"github.com/leapstack-labs/bootseq/internal/device"
	"github.com/leapstack-labs/bootseq/internal/loader"
	"github.com/leapstack-labs/bootseq/internal/preinit"
	starctx "github.com/leapstack-labs/bootseq/internal/starlark"
	"github.com/leapstack-labs/bootseq/internal/state"
	"github.com/leapstack-labs/bootseq/pkg/core"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the loaded configuration.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise falls back to environment variables.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	bits, _ := strconv.Atoi(os.Getenv("BOOTSEQ_PRIORITY_BITS"))
	return &config.Config{
		PriorityBits: bits,
		Device: config.DeviceConfig{
			SVD:    os.Getenv("BOOTSEQ_DEVICE_SVD"),
			Strict: os.Getenv("BOOTSEQ_DEVICE_STRICT") == "true",
		},
		StatePath:     getEnvOrDefault("BOOTSEQ_STATE_PATH", config.DefaultStateFile),
		Verbose:       os.Getenv("BOOTSEQ_VERBOSE") == "true",
		OutputFormat:  os.Getenv("BOOTSEQ_OUTPUT"),
		Configuration: getEnvOrDefault("BOOTSEQ_CONFIGURATION", config.DefaultConfiguration),
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// modelPaths returns the models named on the command line, else the
// configured ones, else app.yaml in the project root.
func (c *CommandContext) modelPaths(args []string) []string {
	if len(args) > 0 {
		return args
	}
	if len(c.Cfg.Models) > 0 {
		return c.Cfg.Models
	}
	return []string{filepath.Join(c.Cfg.ProjectRoot, config.DefaultModelFile)}
}

// loadDevice reads the configured device description, nil when none is set.
func (c *CommandContext) loadDevice() (*device.Device, error) {
	if c.Cfg.Device.SVD == "" {
		return nil, nil
	}
	dev, err := device.LoadSVD(c.Cfg.Device.SVD)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("loaded device", "name", dev.Name, "cpu", dev.CPU, "priority_bits", dev.PriorityBits)
	return dev, nil
}

// buildResult is one model turned into a sequence.
type buildResult struct {
	Model    *loader.Model
	Sequence *core.Sequence
}

// build loads the model at path and computes its bring-up sequence.
func (c *CommandContext) build(path string, dev *device.Device) (*buildResult, error) {
	model, err := loader.LoadFile(path)
	if err != nil {
		return nil, err
	}

	deviceBits := 0
	var ns preinit.NameSpace
	if dev != nil {
		deviceBits = dev.PriorityBits
		ns = dev
	}
	bits, err := intconfig.ResolvePriorityBits(c.Cfg.PriorityBits, deviceBits)
	if err != nil {
		return nil, err
	}

	table := model.Analysis
	if table == nil {
		table, err = analysis.Analyze(model.App)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	} else if err := analysis.Validate(model.App, table); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	seq, err := preinit.Build(model.App, table, preinit.Options{
		PriorityBits: bits,
		NameSpace:    ns,
		Strict:       c.Cfg.Device.Strict,
		Logger:       c.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	c.Logger.Debug("built sequence", "app", seq.App, "steps", len(seq.Steps), "priority_bits", bits)
	return &buildResult{Model: model, Sequence: seq}, nil
}

// evaluator creates a predicate evaluator for the configured build.
func (c *CommandContext) evaluator(dev *device.Device, bits int) (*starctx.Evaluator, error) {
	b := &starctx.BuildContext{
		Configuration: c.Cfg.Configuration,
		Features:      c.Cfg.Features,
		Values:        c.Cfg.Cfg,
		Target:        &starctx.TargetInfo{PriorityBits: bits},
		MacrosDir:     c.Cfg.MacrosDir,
	}
	if dev != nil {
		b.Target.Device = dev.Name
		b.Target.CPU = dev.CPU
		for _, irq := range dev.Interrupts() {
			b.Target.Interrupts = append(b.Target.Interrupts, irq.Name)
		}
	}
	return starctx.NewEvaluator(b)
}

// variant identifies the build configuration for history comparisons.
func (c *CommandContext) variant() string {
	features := append([]string(nil), c.Cfg.Features...)
	sort.Strings(features)
	if len(features) == 0 {
		return c.Cfg.Configuration
	}
	return c.Cfg.Configuration + "+" + strings.Join(features, ",")
}

// openStore opens the build history, creating its directory if needed.
func (c *CommandContext) openStore() (*state.SQLiteStore, error) {
	if dir := filepath.Dir(c.Cfg.StatePath); c.Cfg.StatePath != ":memory:" && dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}
	store := state.NewSQLiteStore(c.Logger)
	if err := store.Open(c.Cfg.StatePath); err != nil {
		return nil, err
	}
	return store, nil
}
