package relay

import (
	"context"
	"io"
	"time"

	"github.com/fmueller/voxrelay/internal/storage"
)

// Transcriber turns a saved audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, language string) (string, error)
}

// Generator produces an answer for a text prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// AudioStore persists uploaded audio.
type AudioStore interface {
	Save(now time.Time, r io.Reader) (storage.SavedFile, error)
	Remove(path string) error
}
