package relay

import "fmt"

// GeneratorErrorMarker prefixes the answer recorded when generation fails.
const GeneratorErrorMarker = "[Generator error]"

// SaveError reports that an upload could not be written to disk.
type SaveError struct {
	Cause error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("save audio: %v", e.Cause)
}

func (e *SaveError) Unwrap() error {
	return e.Cause
}

// TranscriptionError reports a failure of the speech-to-text model.
type TranscriptionError struct {
	Cause error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription failed: %v", e.Cause)
}

func (e *TranscriptionError) Unwrap() error {
	return e.Cause
}

func placeholderAnswer(err error) string {
	return GeneratorErrorMarker + " " + err.Error()
}
