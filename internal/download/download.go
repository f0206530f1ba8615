// Package download fetches large model files over HTTP with retries and
// sha256 verification.
package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fmueller/voxrelay/internal/version"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

const (
	defaultAttempts = 3
	defaultBackoff  = 300 * time.Millisecond
)

// ChecksumError reports a file whose content does not hash to the pinned value.
type ChecksumError struct {
	Expected string
	Actual   string
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch: expected %s, got %s", e.Expected, e.Actual)
}

// StatusError is returned for non-200 responses. 4xx responses are not retried.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

type Options struct {
	Attempts   int
	Backoff    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
	// Progress receives a byte progress bar. Nil disables it.
	Progress io.Writer
}

type Fetcher struct {
	attempts int
	backoff  time.Duration
	client   *http.Client
	logger   *zap.Logger
	progress io.Writer
}

func NewFetcher(opts Options) *Fetcher {
	f := &Fetcher{
		attempts: opts.Attempts,
		backoff:  opts.Backoff,
		client:   opts.HTTPClient,
		logger:   opts.Logger,
		progress: opts.Progress,
	}
	if f.attempts <= 0 {
		f.attempts = defaultAttempts
	}
	if f.backoff <= 0 {
		f.backoff = defaultBackoff
	}
	if f.client == nil {
		f.client = &http.Client{Timeout: 30 * time.Minute}
	}
	if f.logger == nil {
		f.logger = zap.NewNop()
	}
	return f
}

// Fetch downloads url into destination. The file only appears at destination
// once it is complete and, when sha256Hex is set, verified.
func (f *Fetcher) Fetch(ctx context.Context, url, destination, sha256Hex string) error {
	if url == "" {
		return errors.New("download URL is required")
	}
	if destination == "" {
		return errors.New("destination path is required")
	}
	expected := strings.ToLower(strings.TrimSpace(sha256Hex))

	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}

	var err error
	for attempt := 1; attempt <= f.attempts; attempt++ {
		if attempt > 1 {
			f.logger.Warn("retrying download",
				zap.Int("attempt", attempt),
				zap.Int("max", f.attempts),
				zap.String("url", url),
				zap.Error(err),
			)
			select {
			case <-ctx.Done():
				return fmt.Errorf("download cancelled after %d attempt(s): %w", attempt-1, ctx.Err())
			case <-time.After(time.Duration(attempt-1) * f.backoff):
			}
		}

		err = f.fetchOnce(ctx, url, destination, expected)
		if err == nil || !retryable(ctx, err) {
			return err
		}
	}
	return err
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500 || statusErr.StatusCode == http.StatusTooManyRequests
	}
	return true
}

func (f *Fetcher) fetchOnce(ctx context.Context, url, destination, expected string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	tmp, err := os.CreateTemp(filepath.Dir(destination), "."+filepath.Base(destination)+".*.part")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	hash := sha256.New()
	sinks := []io.Writer{tmp, hash}
	bar := f.progressBar(resp.ContentLength, filepath.Base(destination))
	if bar != nil {
		sinks = append(sinks, bar)
	}

	written, err := io.Copy(io.MultiWriter(sinks...), resp.Body)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return fmt.Errorf("download body: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	actual := hex.EncodeToString(hash.Sum(nil))
	if expected != "" && actual != expected {
		return &ChecksumError{Expected: expected, Actual: actual}
	}

	if err := os.Rename(tmpPath, destination); err != nil {
		return fmt.Errorf("move download into place: %w", err)
	}
	committed = true

	f.logger.Info("download complete", zap.String("file", filepath.Base(destination)), zap.Int64("bytes", written))
	return nil
}

func (f *Fetcher) progressBar(size int64, name string) *progressbar.ProgressBar {
	if f.progress == nil || size <= 0 {
		return nil
	}
	return progressbar.NewOptions64(
		size,
		progressbar.OptionSetDescription("downloading "+name),
		progressbar.OptionSetWidth(20),
		progressbar.OptionShowBytes(true),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionSetWriter(f.progress),
		progressbar.OptionClearOnFinish(),
	)
}

// VerifyFile hashes the file at path and compares it with sha256Hex.
func VerifyFile(path, sha256Hex string) error {
	expected := strings.ToLower(strings.TrimSpace(sha256Hex))
	if expected == "" {
		return nil
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open file for checksum: %w", err)
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return fmt.Errorf("hash file: %w", err)
	}

	if actual := hex.EncodeToString(hash.Sum(nil)); actual != expected {
		return &ChecksumError{Expected: expected, Actual: actual}
	}
	return nil
}
