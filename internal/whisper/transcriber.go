package whisper

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fmueller/voxrelay/internal/relay"
	"go.uber.org/zap"
)

// BlankAudioToken is what whisper.cpp prints for audio without speech.
const BlankAudioToken = "[BLANK_AUDIO]"

type TranscriptionRequest struct {
	AudioPath string
	ModelPath string
	// Language is a whisper language code; "auto" or "" lets whisper detect it.
	Language string
}

// Engine turns one audio file into raw whisper output.
type Engine interface {
	Transcribe(ctx context.Context, req TranscriptionRequest) (string, error)
}

// Transcriber adapts an Engine and a resolved model to relay.Transcriber.
// Every failure is reported as *relay.TranscriptionError.
type Transcriber struct {
	engine    Engine
	modelPath string
	logger    *zap.Logger
}

func NewTranscriber(engine Engine, modelPath string, logger *zap.Logger) *Transcriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transcriber{engine: engine, modelPath: modelPath, logger: logger}
}

func (t *Transcriber) Transcribe(ctx context.Context, audioPath, language string) (string, error) {
	audioPath = filepath.Clean(audioPath)
	if _, err := os.Stat(audioPath); err != nil {
		return "", &relay.TranscriptionError{Cause: fmt.Errorf("audio file not found: %w", err)}
	}

	text, err := t.engine.Transcribe(ctx, TranscriptionRequest{
		AudioPath: audioPath,
		ModelPath: t.modelPath,
		Language:  SanitizeLanguage(language),
	})
	if err != nil {
		return "", &relay.TranscriptionError{Cause: err}
	}

	if IsBlankTranscript(text) {
		t.logger.Warn("no speech detected", zap.String("audio", filepath.Base(audioPath)))
		return "", nil
	}
	return strings.TrimSpace(text), nil
}

func IsBlankTranscript(transcript string) bool {
	trimmed := strings.TrimSpace(transcript)
	if trimmed == "" {
		return true
	}

	return strings.EqualFold(trimmed, BlankAudioToken)
}

// SanitizeLanguage lowercases a language hint; empty means auto detection.
func SanitizeLanguage(input string) string {
	trimmed := strings.TrimSpace(strings.ToLower(input))
	if trimmed == "" {
		return "auto"
	}
	return trimmed
}
