package cli

import (
	"context"
	"fmt"

	"github.com/fmueller/voxrelay/internal/config"
	"github.com/fmueller/voxrelay/internal/generator"
	"github.com/fmueller/voxrelay/internal/history"
	"github.com/fmueller/voxrelay/internal/httpapi"
	"github.com/fmueller/voxrelay/internal/relay"
	"github.com/fmueller/voxrelay/internal/storage"
	"github.com/fmueller/voxrelay/internal/whisper"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP relay server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.serve(cmd.Context())
		},
	}

	bindServerFlags(cmd, app)
	return cmd
}

func (a *appState) serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	serveFn := a.serveFn
	if serveFn == nil {
		serveFn = a.runServe
	}

	cfg, err := a.currentConfig()
	if err != nil {
		return err
	}
	return serveFn(ctx, cfg)
}

func (a *appState) runServe(ctx context.Context, cfg *config.Config) error {
	log := a.log()

	model, err := a.ensureModel(ctx, false)
	if err != nil {
		return err
	}

	engine, err := whisper.NewBundledEngine(cfg.Whisper.Executable, log)
	if err != nil {
		return err
	}

	gen, err := generator.New(generatorConfig(cfg))
	if err != nil {
		return err
	}
	if cfg.Generator.APIKey == "" {
		log.Warn("no generator API key configured; set TOKEN or VOXRELAY_GENERATOR_API_KEY", zap.String("provider", cfg.Generator.Provider))
	}

	store, err := storage.Open(cfg.Upload.Dir, cfg.Server.MaxUploadBytes)
	if err != nil {
		return fmt.Errorf("open upload directory: %w", err)
	}

	svc := relay.NewService(relay.Options{
		Store:             store,
		Transcriber:       whisper.NewTranscriber(engine, model.Path, log),
		Generator:         gen,
		History:           history.NewLog(),
		Logger:            log,
		Language:          cfg.Whisper.Language,
		TranscribeTimeout: cfg.Whisper.Timeout,
		GenerateTimeout:   cfg.Generator.Timeout,
	})

	srv := httpapi.New(httpapi.Options{
		Addr:          cfg.Addr(),
		IndexFile:     cfg.Server.IndexFile,
		UploadDir:     store.Root(),
		Relay:         svc,
		Logger:        log,
		ModelName:     model.Name,
		GeneratorName: cfg.Generator.Provider,
		ReadTimeout:   cfg.Server.ReadTimeout,
		WriteTimeout:  cfg.Server.WriteTimeout,
		IdleTimeout:   cfg.Server.IdleTimeout,
	})

	log.Info("voxrelay ready",
		zap.String("addr", cfg.Addr()),
		zap.String("uploads", store.Root()),
		zap.String("model", model.Path),
		zap.String("language", cfg.Whisper.Language),
		zap.String("generator", cfg.Generator.Provider),
	)
	return srv.Run(ctx)
}

func generatorConfig(cfg *config.Config) generator.Config {
	return generator.Config{
		Provider: cfg.Generator.Provider,
		APIKey:   cfg.Generator.APIKey,
		Model:    cfg.Generator.Model,
		BaseURL:  cfg.Generator.BaseURL,
		Timeout:  cfg.Generator.Timeout,
	}
}
