package whisper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/fmueller/voxrelay/internal/platform"
	"go.uber.org/zap"
)

// ExecutableEnv overrides every other way of locating whisper-cli.
const ExecutableEnv = "VOXRELAY_WHISPER_PATH"

// BundledEngine runs a whisper.cpp CLI binary for each transcription.
type BundledEngine struct {
	Executable string
	Logger     *zap.Logger
}

// NewBundledEngine locates whisper-cli. Lookup order: ExecutableEnv, configured,
// next to the voxrelay binary, then PATH.
func NewBundledEngine(configured string, logger *zap.Logger) (*BundledEngine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if override := strings.TrimSpace(os.Getenv(ExecutableEnv)); override != "" {
		if err := ensureExecutable(override); err != nil {
			return nil, fmt.Errorf("%s is not executable: %w", ExecutableEnv, err)
		}
		return &BundledEngine{Executable: override, Logger: logger}, nil
	}

	if configured = strings.TrimSpace(configured); configured != "" {
		if err := ensureExecutable(configured); err != nil {
			return nil, fmt.Errorf("configured whisper executable is not usable: %w", err)
		}
		return &BundledEngine{Executable: configured, Logger: logger}, nil
	}

	relayExe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve voxrelay executable path: %w", err)
	}

	whisperExe, err := ResolveBundledEnginePath(relayExe)
	if err == nil {
		return &BundledEngine{Executable: whisperExe, Logger: logger}, nil
	}

	if onPath, lookErr := exec.LookPath(engineBinaryName()); lookErr == nil {
		return &BundledEngine{Executable: onPath, Logger: logger}, nil
	}

	return nil, err
}

func ResolveBundledEnginePath(relayExecutable string) (string, error) {
	for _, candidate := range EnginePathCandidates(relayExecutable) {
		if err := ensureExecutable(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("whisper engine not found near %s or on PATH; install whisper.cpp or set %s (expected at ../libexec/whisper/%s)", relayExecutable, ExecutableEnv, engineBinaryName())
}

func EnginePathCandidates(relayExecutable string) []string {
	binDir := filepath.Dir(relayExecutable)
	engineName := engineBinaryName()
	hostTarget := fmt.Sprintf("%s_%s", runtime.GOOS, platform.NormalizeArch(runtime.GOARCH))

	return []string{
		filepath.Join(binDir, "..", "libexec", "whisper", engineName),
		filepath.Join(binDir, "libexec", "whisper", engineName),
		filepath.Join(binDir, "packaging", "whisper", hostTarget, engineName),
		filepath.Join(binDir, engineName),
	}
}

func (b *BundledEngine) Transcribe(ctx context.Context, req TranscriptionRequest) (string, error) {
	if strings.TrimSpace(req.AudioPath) == "" {
		return "", errors.New("audio path is required")
	}
	if strings.TrimSpace(req.ModelPath) == "" {
		return "", errors.New("model path is required")
	}

	if err := ensureExecutable(b.Executable); err != nil {
		return "", fmt.Errorf("whisper engine missing or not executable: %w", err)
	}

	// Each run gets its own output directory; requests may overlap.
	outDir, err := os.MkdirTemp("", "voxrelay-whisper-")
	if err != nil {
		return "", fmt.Errorf("create whisper output dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	outBase := filepath.Join(outDir, "transcript")
	args := []string{"-m", req.ModelPath, "-f", req.AudioPath, "-nt", "-otxt", "-of", outBase}
	lang := strings.TrimSpace(req.Language)
	if lang != "" && lang != "auto" {
		args = append(args, "-l", lang)
	}

	cmd := exec.CommandContext(ctx, b.Executable, args...)
	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	b.Logger.Debug("running whisper engine", zap.String("engine", b.Executable), zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("whisper transcribe interrupted: %w", ctxErr)
		}
		errText := strings.TrimSpace(stderr.String())
		if isMissingSharedLibraryError(errText) {
			return "", fmt.Errorf("whisper engine at %s is missing required shared libraries (%s); rebuild whisper-cli with BUILD_SHARED_LIBS=OFF", b.Executable, errText)
		}
		if isIllegalInstructionError(errText) || isIllegalInstructionError(err.Error()) {
			return "", fmt.Errorf("whisper engine crashed with an illegal CPU instruction; " +
				"your CPU may lack required instruction set extensions; " +
				"set " + ExecutableEnv + " to a whisper-cli binary built for your CPU")
		}
		return "", fmt.Errorf("whisper transcribe failed: %w (%s)", err, errText)
	}

	content, err := os.ReadFile(outBase + ".txt")
	if err != nil {
		return "", fmt.Errorf("read whisper output: %w", err)
	}

	return strings.TrimSpace(string(content)), nil
}

func engineBinaryName() string {
	if runtime.GOOS == "windows" {
		return "whisper-cli.exe"
	}
	return "whisper-cli"
}

func ensureExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}

func isMissingSharedLibraryError(stderr string) bool {
	value := strings.ToLower(strings.TrimSpace(stderr))
	if value == "" {
		return false
	}

	patterns := []string{
		"error while loading shared libraries",
		"cannot open shared object file",
		"dyld: library not loaded",
		"image not found",
	}

	for _, pattern := range patterns {
		if strings.Contains(value, pattern) {
			return true
		}
	}

	return false
}

func isIllegalInstructionError(stderr string) bool {
	return strings.Contains(strings.ToLower(stderr), "illegal instruction")
}
