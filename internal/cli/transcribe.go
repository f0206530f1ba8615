package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fmueller/voxrelay/internal/whisper"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newTranscribeCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Transcribe an audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			transcribeFn := app.transcribeFn
			if transcribeFn == nil {
				transcribeFn = app.transcribeAudio
			}

			transcript, err := transcribeFn(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), transcript)
			if whisper.IsBlankTranscript(transcript) {
				app.log().Warn(noSpeechHint())
			}
			return nil
		},
	}
}

func (a *appState) transcribeAudio(ctx context.Context, audioPath string) (string, error) {
	audioPath = filepath.Clean(audioPath)
	if _, err := os.Stat(audioPath); err != nil {
		return "", fmt.Errorf("audio file not found: %w", err)
	}

	cfg, err := a.currentConfig()
	if err != nil {
		return "", err
	}

	model, err := a.ensureModel(ctx, false)
	if err != nil {
		return "", err
	}

	engine, err := whisper.NewBundledEngine(cfg.Whisper.Executable, a.log())
	if err != nil {
		return "", err
	}

	if cfg.Whisper.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Whisper.Timeout)
		defer cancel()
	}

	a.log().Info("transcribing...", zap.String("audio", audioPath), zap.String("model", model.Path), zap.String("language", cfg.Whisper.Language))
	stopSpinner := startSpinner(a.progressWriter(), "Transcribing")
	started := time.Now()

	transcript, err := whisper.NewTranscriber(engine, model.Path, a.log()).Transcribe(ctx, audioPath, cfg.Whisper.Language)
	stopSpinner()
	if err != nil {
		a.log().Warn("transcription failed", zap.Duration("elapsed", time.Since(started)), zap.Error(err))
		return "", err
	}
	a.log().Info("transcription finished", zap.Duration("elapsed", time.Since(started)))

	return transcript, nil
}

func noSpeechHint() string {
	return "no speech detected; check the recording level or pass --language explicitly"
}
