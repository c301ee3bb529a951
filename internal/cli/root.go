// Package cli provides the command-line interface for bootseq.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/leapstack-labs/bootseq/internal/cli/commands"
	"github.com/leapstack-labs/bootseq/internal/cli/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Version is set at build time.
var Version = "0.1.0"

// skipConfig lists commands that run without a project.
var skipConfig = map[string]bool{
	"help":       true,
	"completion": true,
	"__complete": true,
	"version":    true,
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "bootseq",
		Short: "bootseq - pre-init bring-up sequences for Cortex-M applications",
		Long: `bootseq computes the one-time bring-up sequence that runs before any task
of a statically scheduled Cortex-M application: free queue seeding, NVIC and
system handler priorities, interrupt enables, monotonic timer setup and
sleep-on-exit.

Sequences are generated from a YAML application model, verified, simulated
against a model of the core and recorded in a build history.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if skipConfig[cmd.Name()] {
				return nil
			}

			cfg, err := config.LoadConfig(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)
			if path := config.GetConfigFileUsed(); path != "" {
				logger.Debug("using config file", slog.String("path", path))
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(context.WithValue(ctx, config.LoggerKey(), logger))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./bootseq.yaml)")
	addGlobalFlags(flags)
	registerCompletions(rootCmd)

	rootCmd.AddCommand(
		commands.NewVersionCommand(Version),
		commands.NewGenerateCommand(),
		commands.NewCheckCommand(),
		commands.NewSimulateCommand(),
		commands.NewHistoryCommand(),
		commands.NewDoctorCommand(),
		commands.NewInitCommand(),
		NewCompletionCommand(),
	)
	return rootCmd
}

// addGlobalFlags registers the flags that override bootseq.yaml keys.
func addGlobalFlags(flags *pflag.FlagSet) {
	flags.Int("priority-bits", 0, "Number of implemented NVIC priority bits")
	flags.String("device", "", "Path to a CMSIS-SVD device description")
	flags.Bool("strict", false, "Fail when interrupt names cannot be checked against a device")
	flags.String("state", "", "Path to the build history database")
	flags.String("configuration", "", "Build configuration seen by cfg predicates (e.g. debug, release)")
	flags.StringSlice("features", nil, "Enabled features seen by cfg predicates")
	flags.BoolP("verbose", "v", false, "Verbose output")
	flags.StringP("output", "o", "", "Output format (auto|text|markdown|json|go)")
}

func registerCompletions(rootCmd *cobra.Command) {
	fixed := func(values ...string) cobra.CompletionFunc {
		return func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
			return values, cobra.ShellCompDirectiveNoFileComp
		}
	}
	_ = rootCmd.RegisterFlagCompletionFunc("output", fixed("auto", "text", "markdown", "json", "go"))
	_ = rootCmd.RegisterFlagCompletionFunc("configuration", fixed("debug", "release"))
	_ = rootCmd.RegisterFlagCompletionFunc("device", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"svd"}, cobra.ShellCompDirectiveFilterFileExt
	})
}

// newLogger logs to w as text, at debug level when verbose.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Execute runs the root command.
func Execute() error {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for bootseq.

  $ source <(bootseq completion bash)
  $ bootseq completion zsh > "${fpath[1]}/_bootseq"
  $ bootseq completion fish | source
  PS> bootseq completion powershell | Out-String | Invoke-Expression`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			default:
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
		},
	}
}
