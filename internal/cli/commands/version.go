package commands

import (
	"fmt"
	"runtime"

	intconfig "github.com/leapstack-labs/bootseq/internal/config"
	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the bootseq version, the Go toolchain it was built with and the default runtime package of generated code.`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "bootseq v%s (%s %s/%s)\n", version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
			_, _ = fmt.Fprintln(w, "Pre-init bring-up sequences for Cortex-M applications")
			_, _ = fmt.Fprintf(w, "Runtime package: %s\n", intconfig.DefaultRuntime)
		},
	}
}
