package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/fmueller/voxrelay/internal/config"
	"github.com/stretchr/testify/require"
)

func TestAskCommandJoinsArgsAndTrimsAnswer(t *testing.T) {
	t.Parallel()

	out := new(bytes.Buffer)
	var gotPrompt string

	app := &appState{
		generateFn: func(_ context.Context, prompt string) (string, error) {
			gotPrompt = prompt
			return "  4\n", nil
		},
	}

	cmd := newAskCmd(app)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"2+2", "=?"})

	require.NoError(t, cmd.Execute())
	require.Equal(t, "2+2 =?", gotPrompt)
	require.Equal(t, "4\n", out.String())
}

func TestAskCommandReturnsGeneratorError(t *testing.T) {
	t.Parallel()

	app := &appState{
		generateFn: func(_ context.Context, _ string) (string, error) {
			return "", errors.New("quota exceeded")
		},
	}

	cmd := newAskCmd(app)
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"hello"})

	err := cmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "quota exceeded")
}

func TestGenerateAnswerRequiresAPIKey(t *testing.T) {
	t.Parallel()

	app := &appState{cfg: &config.Config{Generator: config.GeneratorConfig{Provider: "gemini"}}}

	_, err := app.generateAnswer(context.Background(), "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no API key")
}

func TestGenerateAnswerRejectsUnknownProvider(t *testing.T) {
	t.Parallel()

	app := &appState{cfg: &config.Config{Generator: config.GeneratorConfig{Provider: "yandex", APIKey: "k"}}}

	_, err := app.generateAnswer(context.Background(), "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown generator provider")
}
