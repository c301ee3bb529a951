package commands

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/bootseq/internal/cli/config"
	"github.com/leapstack-labs/bootseq/internal/cli/output"
	intconfig "github.com/leapstack-labs/bootseq/internal/config"
	"github.com/leapstack-labs/bootseq/internal/device"
	"github.com/leapstack-labs/bootseq/internal/macro"
	starctx "github.com/leapstack-labs/bootseq/internal/starlark"
	"github.com/leapstack-labs/bootseq/internal/verify"
	"github.com/spf13/cobra"
)

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the project setup",
		Long: `Check that the project can be built: configuration, device description,
priority bits, application models and the build history database.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Run all checks
  bootseq doctor

  # Output as JSON
  bootseq doctor --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd)
		},
	}
}

func runDoctor(cmd *cobra.Command) error {
	c := NewCommandContext(cmd)
	out := c.diagnose()

	r := c.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		renderDoctorMarkdown(r, out)
	default:
		renderDoctorText(r, out)
	}
	return nil
}

// diagnose runs every check. Later checks still run when earlier ones fail.
func (c *CommandContext) diagnose() *output.DoctorOutput {
	out := &output.DoctorOutput{ConfigFile: config.GetConfigFileUsed()}
	add := func(check output.HealthCheck) {
		switch check.Status {
		case "error":
			out.Errors++
		case "warn":
			out.Warnings++
		}
		out.Checks = append(out.Checks, check)
	}

	cf := output.HealthCheck{ID: "CF01", Name: "Configuration file", Group: "configuration", Status: "pass"}
	if out.ConfigFile == "" {
		cf.Status = "warn"
		cf.Details = []string{"no bootseq.yaml found, using defaults"}
	} else {
		cf.Details = []string{out.ConfigFile}
	}
	add(cf)

	dev, devCheck := c.checkDevice()
	add(devCheck)
	add(c.checkPriorityBits(dev))

	for _, check := range c.checkModels(dev) {
		add(check)
	}
	add(c.checkMacros())
	add(c.checkHistory())

	return out
}

func (c *CommandContext) checkDevice() (*device.Device, output.HealthCheck) {
	check := output.HealthCheck{ID: "DV01", Name: "Device description", Group: "device", Status: "pass"}
	if c.Cfg.Device.SVD == "" {
		check.Status = "warn"
		if c.Cfg.Device.Strict {
			check.Status = "error"
		}
		check.Details = []string{"no device.svd configured, interrupt names are not checked"}
		return nil, check
	}
	dev, err := c.loadDevice()
	if err != nil {
		check.Status = "error"
		check.Details = []string{err.Error()}
		return nil, check
	}
	check.Details = []string{fmt.Sprintf("%s (%s), %d interrupts", dev.Name, dev.CPU, len(dev.Interrupts()))}
	return dev, check
}

func (c *CommandContext) checkPriorityBits(dev *device.Device) output.HealthCheck {
	check := output.HealthCheck{ID: "DV02", Name: "Priority bits", Group: "device", Status: "pass"}
	fromDevice := 0
	if dev != nil {
		fromDevice = dev.PriorityBits
	}
	bits, err := intconfig.ResolvePriorityBits(c.Cfg.PriorityBits, fromDevice)
	if err != nil {
		check.Status = "error"
		check.Details = []string{err.Error()}
		return check
	}
	check.Details = []string{fmt.Sprintf("%d bits", bits)}
	if fromDevice != 0 && c.Cfg.PriorityBits != 0 && fromDevice != c.Cfg.PriorityBits {
		check.Status = "warn"
		check.Details = append(check.Details,
			fmt.Sprintf("configured priority_bits %d ignored, device has %d", c.Cfg.PriorityBits, fromDevice))
	}
	return check
}

// checkModels builds and verifies every model.
func (c *CommandContext) checkModels(dev *device.Device) []output.HealthCheck {
	build := output.HealthCheck{ID: "MD01", Name: "Models build", Group: "models", Status: "pass"}
	order := output.HealthCheck{ID: "MD02", Name: "Sequence ordering", Group: "models", Status: "pass"}

	for _, path := range c.modelPaths(nil) {
		res, err := c.build(path, dev)
		if err != nil {
			build.Status = "error"
			build.Details = append(build.Details, err.Error())
			continue
		}
		build.Details = append(build.Details,
			fmt.Sprintf("%s: %d steps", res.Sequence.App, len(res.Sequence.Steps)))

		for _, v := range verify.Check(res.Sequence) {
			order.Status = "error"
			order.Details = append(order.Details, fmt.Sprintf("%s: %s", res.Sequence.App, v.Error()))
		}
	}
	return []output.HealthCheck{build, order}
}

// checkMacros loads the helper modules predicates can call.
func (c *CommandContext) checkMacros() output.HealthCheck {
	check := output.HealthCheck{ID: "MC01", Name: "Predicate macros", Group: "models", Status: "pass"}
	globals, err := starctx.Predeclared(&starctx.BuildContext{
		Configuration: c.Cfg.Configuration,
		Features:      c.Cfg.Features,
		Values:        c.Cfg.Cfg,
	})
	if err == nil {
		var modules []*macro.LoadedModule
		modules, err = macro.NewLoader(c.Cfg.MacrosDir, globals).Load()
		for _, m := range modules {
			check.Details = append(check.Details, fmt.Sprintf("%s: %d exports", m.Namespace, len(m.Exports)))
		}
	}
	if err != nil {
		check.Status = "error"
		check.Details = []string{err.Error()}
		return check
	}
	if len(check.Details) == 0 {
		check.Details = []string{"none"}
	}
	return check
}

func (c *CommandContext) checkHistory() output.HealthCheck {
	check := output.HealthCheck{ID: "HS01", Name: "Build history", Group: "history", Status: "pass"}
	store, err := c.openStore()
	if err != nil {
		check.Status = "warn"
		check.Details = []string{err.Error()}
		return check
	}
	defer func() { _ = store.Close() }()

	version, err := store.SchemaVersion()
	if err != nil {
		check.Status = "warn"
		check.Details = []string{err.Error()}
		return check
	}
	check.Details = []string{fmt.Sprintf("%s (schema version %d)", c.Cfg.StatePath, version)}
	return check
}

func renderDoctorText(r *output.Renderer, out *output.DoctorOutput) {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Header1.Render("bootseq Project Check"))
	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.Checks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println(styles.Bold.Render("   " + titleCaser.String(currentGroup)))
			r.Println(styles.Muted.Render("   " + strings.Repeat("-", 40)))
		}

		icon := styles.StatusSuccess.Render("✓")
		switch check.Status {
		case "warn":
			icon = styles.Warning.Render("!")
		case "error":
			icon = styles.StatusFailed.Render("✗")
		}
		r.Printf("   %s %s: %s\n", icon, check.ID, check.Name)

		for _, detail := range check.Details {
			r.Println(styles.Muted.Render("       - " + detail))
		}
	}
	r.Println("")

	summary := fmt.Sprintf("%d errors, %d warnings", out.Errors, out.Warnings)
	switch {
	case out.Errors > 0:
		r.Println("   " + styles.Error.Render(summary))
	case out.Warnings > 0:
		r.Println("   " + styles.Warning.Render(summary))
	default:
		r.Println("   " + styles.Success.Render(summary))
	}
}

func renderDoctorMarkdown(r *output.Renderer, out *output.DoctorOutput) {
	r.Println("# bootseq Project Check")
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.Checks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println("## " + titleCaser.String(currentGroup))
			r.Println("")
		}

		r.Printf("- **[%s]** %s: %s\n", strings.ToUpper(check.Status), check.ID, check.Name)
		for _, detail := range check.Details {
			r.Printf("  - %s\n", detail)
		}
	}
	r.Println("")
	r.Println(output.FormatKeyValue("Errors", fmt.Sprintf("%d", out.Errors)))
	r.Println(output.FormatKeyValue("Warnings", fmt.Sprintf("%d", out.Warnings)))
}
