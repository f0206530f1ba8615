package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TOKEN", "VOXRELAY_GENERATOR_API_KEY", "VOXRELAY_HOST", "VOXRELAY_PORT",
		"VOXRELAY_UPLOAD_DIR", "VOXRELAY_INDEX_FILE", "VOXRELAY_MAX_UPLOAD_BYTES",
		"VOXRELAY_WHISPER_MODEL", "VOXRELAY_MODEL_DIR", "VOXRELAY_LANGUAGE",
		"VOXRELAY_AUTO_DOWNLOAD", "VOXRELAY_WHISPER_TIMEOUT", "VOXRELAY_GENERATOR_PROVIDER",
		"VOXRELAY_GENERATOR_MODEL", "VOXRELAY_GENERATOR_BASE_URL", "VOXRELAY_GENERATOR_TIMEOUT",
		"VOXRELAY_LOG_LEVEL", "VOXRELAY_LOG_JSON",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "voxrelay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, "0.0.0.0:5000", cfg.Addr())
	require.Equal(t, "uploads", cfg.Upload.Dir)
	require.Equal(t, "index.html", cfg.Server.IndexFile)
	require.EqualValues(t, 25<<20, cfg.Server.MaxUploadBytes)
	require.Equal(t, "base", cfg.Whisper.Model)
	require.Equal(t, "ru", cfg.Whisper.Language)
	require.True(t, cfg.Whisper.AutoDownload)
	require.Equal(t, 2*time.Minute, cfg.Whisper.Timeout)
	require.Equal(t, "gemini", cfg.Generator.Provider)
	require.Equal(t, 60*time.Second, cfg.Generator.Timeout)
	require.Equal(t, 3*time.Minute+30*time.Second, cfg.Server.WriteTimeout)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestLoadYAMLWithExpansion(t *testing.T) {
	clearEnv(t)
	t.Setenv("MY_GEMINI_KEY", "from-file-expansion")

	path := writeConfig(t, `
server:
  host: 127.0.0.1
  port: 8081
upload:
  dir: /var/lib/voxrelay/uploads
whisper:
  model: small
  language: auto
  auto_download: false
  timeout: 45s
generator:
  provider: openai
  api_key: ${MY_GEMINI_KEY}
  model: gpt-test
log:
  level: debug
  json: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:8081", cfg.Addr())
	require.Equal(t, "/var/lib/voxrelay/uploads", cfg.Upload.Dir)
	require.Equal(t, "small", cfg.Whisper.Model)
	require.Equal(t, "auto", cfg.Whisper.Language)
	require.False(t, cfg.Whisper.AutoDownload)
	require.Equal(t, 45*time.Second, cfg.Whisper.Timeout)
	require.Equal(t, "openai", cfg.Generator.Provider)
	require.Equal(t, "from-file-expansion", cfg.Generator.APIKey)
	require.Equal(t, "gpt-test", cfg.Generator.Model)
	require.Equal(t, "debug", cfg.Log.Level)
	require.True(t, cfg.Log.JSON)
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("VOXRELAY_PORT", "9000")
	t.Setenv("VOXRELAY_UPLOAD_DIR", "/tmp/uploads")
	t.Setenv("TOKEN", "legacy-token")

	path := writeConfig(t, "server:\n  port: 8081\nupload:\n  dir: from-file\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9000, cfg.Server.Port)
	require.Equal(t, "/tmp/uploads", cfg.Upload.Dir)
	require.Equal(t, "legacy-token", cfg.Generator.APIKey)
}

func TestLoadAPIKeyOverrideWinsOverToken(t *testing.T) {
	clearEnv(t)
	t.Setenv("TOKEN", "legacy-token")
	t.Setenv("VOXRELAY_GENERATOR_API_KEY", "new-key")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "new-key", cfg.Generator.APIKey)
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "reading config file")
}

func TestLoadInvalidYAML(t *testing.T) {
	clearEnv(t)

	_, err := Load(writeConfig(t, "server: [unterminated"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "parsing config")
}

func TestLoadInvalidEnvironmentValue(t *testing.T) {
	clearEnv(t)
	t.Setenv("VOXRELAY_PORT", "not-a-number")

	_, err := Load("")
	require.Error(t, err)
	require.Contains(t, err.Error(), "parsing environment")
}

func TestValidateReportsProblems(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Server.Port = 70000
	cfg.Generator.Provider = "yandex"

	err = cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "server.port")
	require.Contains(t, err.Error(), "generator.provider")
}

func TestLoadDotEnvSkipsMissingAndKeepsExisting(t *testing.T) {
	clearEnv(t)
	t.Setenv("TOKEN", "from-process")

	dir := t.TempDir()
	dotenv := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("TOKEN=from-dotenv\nVOXRELAY_LANGUAGE=en\n"), 0o644))

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), dotenv))
	t.Cleanup(func() { _ = os.Unsetenv("VOXRELAY_LANGUAGE") })

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "from-process", cfg.Generator.APIKey)
	require.Equal(t, "en", cfg.Whisper.Language)
}
