package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fmueller/voxrelay/internal/config"
	"github.com/fmueller/voxrelay/internal/download"
	"github.com/fmueller/voxrelay/internal/logging"
	"github.com/fmueller/voxrelay/internal/platform"
	"github.com/fmueller/voxrelay/internal/version"
	"github.com/fmueller/voxrelay/internal/whisper"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

const dotEnvFile = ".env"

type appState struct {
	configPath   string
	dotEnvPath   string
	verbose      bool
	jsonLogs     bool
	noProgress   bool
	host         string
	port         int
	uploadDir    string
	model        string
	modelDir     string
	language     string
	autoDownload bool

	cfg    *config.Config
	logger *zap.Logger

	serveFn      func(ctx context.Context, cfg *config.Config) error
	transcribeFn func(ctx context.Context, audioPath string) (string, error)
	generateFn   func(ctx context.Context, prompt string) (string, error)
}

func newAppState() *appState {
	app := &appState{autoDownload: true, dotEnvPath: dotEnvFile}
	app.serveFn = app.runServe
	app.transcribeFn = app.transcribeAudio
	app.generateFn = app.generateAnswer
	return app
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(newAppState())
}

func newRootCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "voxrelay",
		Short:         "Relay spoken or typed questions through whisper to an answer generator",
		Long:          "voxrelay serves a small HTTP API that transcribes uploaded WAV audio with a bundled whisper engine, forwards the text to an answer generator and keeps an in-memory history of every exchange.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Resolve(),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.prepare(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.serve(cmd.Context())
		},
	}

	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	flags := cmd.PersistentFlags()
	flags.StringVar(&app.configPath, "config", app.configPath, "Path to a YAML config file")
	flags.BoolVar(&app.verbose, "verbose", app.verbose, "Enable verbose logs")
	flags.BoolVar(&app.jsonLogs, "json", app.jsonLogs, "Enable JSON logging")
	flags.BoolVar(&app.noProgress, "no-progress", app.noProgress, "Disable progress indicators")
	flags.StringVar(&app.model, "model", app.model, "Whisper model name or model file path")
	flags.StringVar(&app.modelDir, "model-dir", app.modelDir, "Directory where models are stored")
	flags.StringVar(&app.language, "language", app.language, "Language code (auto|ru|en|...) for transcription")
	flags.BoolVar(&app.autoDownload, "auto-download", app.autoDownload, "Automatically download missing models")

	bindServerFlags(cmd, app)

	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newSetupCmd(app))
	cmd.AddCommand(newTranscribeCmd(app))
	cmd.AddCommand(newAskCmd(app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func bindServerFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().StringVar(&app.host, "host", app.host, "Address to listen on")
	cmd.Flags().IntVar(&app.port, "port", app.port, "Port to listen on")
	cmd.Flags().StringVar(&app.uploadDir, "upload-dir", app.uploadDir, "Directory for uploaded audio files")
}

// prepare loads configuration, applies flags that were set explicitly and
// builds the logger.
func (a *appState) prepare(cmd *cobra.Command) error {
	if a.dotEnvPath != "" {
		if err := config.LoadDotEnv(a.dotEnvPath); err != nil {
			return err
		}
	}

	cfg, err := config.Load(platform.ResolveConfigFile(a.configPath))
	if err != nil {
		return err
	}
	a.applyFlags(cmd, cfg)
	cfg.Whisper.Language = whisper.SanitizeLanguage(cfg.Whisper.Language)

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Verbose: a.verbose, JSON: cfg.Log.JSON})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *appState) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Server.Host = a.host
	}
	if flags.Changed("port") {
		cfg.Server.Port = a.port
	}
	if flags.Changed("upload-dir") {
		cfg.Upload.Dir = a.uploadDir
	}
	if flags.Changed("model") {
		cfg.Whisper.Model = a.model
	}
	if flags.Changed("model-dir") {
		cfg.Whisper.ModelDir = a.modelDir
	}
	if flags.Changed("language") {
		cfg.Whisper.Language = a.language
	}
	if flags.Changed("auto-download") {
		cfg.Whisper.AutoDownload = a.autoDownload
	}
	if flags.Changed("json") {
		cfg.Log.JSON = a.jsonLogs
	}
}

// currentConfig returns the prepared config, loading defaults and the
// environment when prepare did not run.
func (a *appState) currentConfig() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}

	cfg, err := config.Load("")
	if err != nil {
		return nil, err
	}
	cfg.Whisper.Language = whisper.SanitizeLanguage(cfg.Whisper.Language)
	a.cfg = cfg
	return cfg, nil
}

func (a *appState) ensureModel(ctx context.Context, verify bool) (whisper.ResolvedModel, error) {
	cfg, err := a.currentConfig()
	if err != nil {
		return whisper.ResolvedModel{}, err
	}

	modelDir, err := a.modelStorageDir(cfg)
	if err != nil {
		return whisper.ResolvedModel{}, err
	}

	return whisper.EnsureModel(ctx, whisper.EnsureOptions{
		Model:        cfg.Whisper.Model,
		ModelDir:     modelDir,
		AutoDownload: cfg.Whisper.AutoDownload || verify,
		Verify:       verify,
		Fetcher:      download.NewFetcher(download.Options{Logger: a.log(), Progress: a.progressWriter()}),
		Logger:       a.log(),
	})
}

func (a *appState) modelStorageDir(cfg *config.Config) (string, error) {
	dir, err := platform.ResolveModelDir(cfg.Whisper.ModelDir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create model directory %s: %w", dir, err)
	}
	return dir, nil
}

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

// progressWriter returns stderr when progress output should be drawn, nil
// otherwise.
func (a *appState) progressWriter() io.Writer {
	if a.noProgress || !term.IsTerminal(int(os.Stderr.Fd())) {
		return nil
	}
	return os.Stderr
}
