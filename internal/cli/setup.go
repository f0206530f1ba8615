package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSetupCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Download and verify speech model assets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resolved, err := app.ensureModel(cmd.Context(), true)
			if err != nil {
				return err
			}
			if resolved.IsCustomPath {
				return fmt.Errorf("setup expects a named model; got custom path %s", resolved.Path)
			}

			app.log().Info("model ready", zap.String("model", resolved.Name), zap.String("path", resolved.Path))
			fmt.Fprintf(cmd.OutOrStdout(), "Model %s ready at %s\n", resolved.Name, resolved.Path)
			return nil
		},
	}
}
