package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fmueller/voxrelay/internal/generator"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newAskCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <text>",
		Short: "Send a question to the answer generator",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			generateFn := app.generateFn
			if generateFn == nil {
				generateFn = app.generateAnswer
			}

			answer, err := generateFn(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(answer))
			return nil
		},
	}
}

func (a *appState) generateAnswer(ctx context.Context, prompt string) (string, error) {
	cfg, err := a.currentConfig()
	if err != nil {
		return "", err
	}

	gen, err := generator.New(generatorConfig(cfg))
	if err != nil {
		return "", err
	}
	if cfg.Generator.APIKey == "" {
		return "", fmt.Errorf("no API key for generator %s; set TOKEN or VOXRELAY_GENERATOR_API_KEY", cfg.Generator.Provider)
	}

	stopSpinner := startSpinner(a.progressWriter(), "Thinking")
	started := time.Now()
	answer, err := gen.Generate(ctx, prompt)
	stopSpinner()
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}

	a.log().Info("generator answered", zap.String("provider", cfg.Generator.Provider), zap.Duration("elapsed", time.Since(started)))
	return answer, nil
}
