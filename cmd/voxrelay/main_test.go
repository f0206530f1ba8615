package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/fmueller/voxrelay/internal/cli"
	"github.com/stretchr/testify/require"
)

func TestIsUsageError(t *testing.T) {
	t.Parallel()

	require.True(t, isUsageError(errors.New("unknown command \"bad\" for \"voxrelay\"")))
	require.True(t, isUsageError(errors.New("unknown flag: --oops")))
	require.True(t, isUsageError(errors.New("accepts 1 arg(s), received 0")))
	require.False(t, isUsageError(errors.New("download model \"base\": context deadline exceeded")))
	require.False(t, isUsageError(errors.New("invalid config: server.port must be between 1 and 65535, got 0")))
	require.False(t, isUsageError(nil))
}

func TestHelpHintTarget(t *testing.T) {
	t.Parallel()

	root := cli.NewRootCmd()
	require.Equal(t, "voxrelay", helpHintTarget(root, nil))
	require.Equal(t, "voxrelay", helpHintTarget(root, []string{"--badflag"}))
	require.Equal(t, "voxrelay", helpHintTarget(root, []string{"badcmd"}))
	require.Equal(t, "voxrelay transcribe", helpHintTarget(root, []string{"transcribe", "--language"}))
	require.Equal(t, "voxrelay ask", helpHintTarget(root, []string{"ask"}))
	require.Equal(t, "voxrelay serve", helpHintTarget(root, []string{"serve", "--port", "x"}))
	require.Equal(t, "voxrelay", helpHintTarget(nil, []string{"serve"}))
}

func TestRunExitCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		args   []string
		code   int
		stdout string
		stderr string
	}{
		{name: "version", args: []string{"version"}, code: 0, stdout: "voxrelay v"},
		{name: "unknown command", args: []string{"bogus"}, code: 1, stderr: "Run 'voxrelay --help' for usage."},
		{name: "missing ask text", args: []string{"ask"}, code: 1, stderr: "Run 'voxrelay ask --help' for usage."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var stdout, stderr bytes.Buffer
			code := run(context.Background(), tt.args, &stdout, &stderr)

			require.Equal(t, tt.code, code, stderr.String())
			require.Contains(t, stdout.String(), tt.stdout)
			require.Contains(t, stderr.String(), tt.stderr)
		})
	}
}
