package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/bootseq/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var example bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new bootseq project",
		Long: `Initialize a new bootseq project with a configuration file and an empty
application model.

This creates:
  - bootseq.yaml configuration file
  - app.yaml application model
  - .gitignore excluding the build history

Use --example to create a working demo with a device description, software
and hardware tasks, a SysTick monotonic, cfg-gated interrupt bindings and a
predicate macro module.`,
		Example: `  # Initialize in current directory
  bootseq init

  # Initialize with a full working example
  bootseq init --example

  # Initialize in a new directory
  bootseq init my-firmware --example`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			cfg := getConfig()
			mode := output.Mode(cfg.OutputFormat)
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

			template := "minimal"
			if example {
				template = "example"
			}
			return runInit(r, dir, template, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	cmd.Flags().BoolVar(&example, "example", false, "Create a full example project with a device description")

	return cmd
}

func runInit(r *output.Renderer, dir, template string, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, "bootseq.yaml")
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("bootseq.yaml already exists. Use --force to overwrite")
	}

	files, err := copyTemplate(template, dir, force)
	if err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	groups := groupTemplateFiles(files)
	for _, group := range []struct{ key, title string }{
		{"config", "Configuration"},
		{"models", "Models"},
		{"macros", "Macros"},
		{"device", "Device"},
	} {
		if len(groups[group.key]) == 0 {
			continue
		}
		r.Header(2, group.title)
		for _, f := range groups[group.key] {
			r.StatusLine(f, "success", "")
		}
		r.Println("")
	}

	r.Success("bootseq project initialized!")
	r.Println("")
	r.Println("Next steps:")
	if template == "minimal" {
		r.Println("  1. Describe your tasks in app.yaml")
		r.Println("  2. Point device.svd at your device description")
		r.Println("  3. Run 'bootseq generate' to build the bring-up sequence")
	} else {
		r.Println("  1. Run 'bootseq generate' to build the bring-up sequence")
		r.Println("  2. Run 'bootseq simulate --features uart1 --trace' to execute it")
		r.Println("  3. Run 'bootseq generate -o go --out-dir gen' for Go source")
	}

	return nil
}
