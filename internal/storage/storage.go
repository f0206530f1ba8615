package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FileTimeLayout is the timestamp layout embedded in saved audio file names.
const FileTimeLayout = "2006-01-02_15-04-05"

// ErrTooLarge is returned by Save when the body exceeds the configured limit.
var ErrTooLarge = errors.New("audio body exceeds size limit")

// Dir stores uploaded audio files under a single directory.
type Dir struct {
	root     string
	maxBytes int64
	token    func() string
}

// SavedFile describes an audio upload written to disk.
type SavedFile struct {
	Name  string
	Path  string
	Bytes int64
}

// Open creates root if needed. A maxBytes of zero or less disables the size limit.
func Open(root string, maxBytes int64) (*Dir, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("upload directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &Dir{root: filepath.Clean(root), maxBytes: maxBytes, token: randomToken}, nil
}

func (d *Dir) Root() string {
	return d.root
}

// NewAudioPath returns the file name and full path for an upload received at now.
func (d *Dir) NewAudioPath(now time.Time) (name, path string) {
	name = fmt.Sprintf("audio_%s_%s.wav", now.Format(FileTimeLayout), d.token())
	return name, filepath.Join(d.root, name)
}

// Save streams r into a new audio file. On failure nothing is left behind.
func (d *Dir) Save(now time.Time, r io.Reader) (SavedFile, error) {
	name, path := d.NewAudioPath(now)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return SavedFile{}, fmt.Errorf("create audio file: %w", err)
	}

	success := false
	defer func() {
		_ = f.Close()
		if !success {
			_ = os.Remove(path)
		}
	}()

	src := r
	if d.maxBytes > 0 {
		src = io.LimitReader(r, d.maxBytes+1)
	}

	n, err := io.Copy(f, src)
	if err != nil {
		return SavedFile{}, fmt.Errorf("write audio file: %w", err)
	}
	if d.maxBytes > 0 && n > d.maxBytes {
		return SavedFile{}, fmt.Errorf("%w (%d bytes)", ErrTooLarge, d.maxBytes)
	}

	if err := f.Close(); err != nil {
		return SavedFile{}, fmt.Errorf("close audio file: %w", err)
	}

	success = true
	return SavedFile{Name: name, Path: path, Bytes: n}, nil
}

// Remove deletes a saved file. A file that is already gone is not an error.
func (d *Dir) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove audio file: %w", err)
	}
	return nil
}

func randomToken() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}
