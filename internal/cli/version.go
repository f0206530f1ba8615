package cli

import (
	"fmt"

	"github.com/fmueller/voxrelay/internal/platform"
	"github.com/fmueller/voxrelay/internal/version"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		// Overrides the root hook so a broken config cannot hide the version.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt := platform.CurrentRuntime()
			fmt.Fprintf(cmd.OutOrStdout(), "voxrelay v%s (%s/%s)\n", version.Resolve(), rt.OS, rt.Arch)
			return nil
		},
	}
}
