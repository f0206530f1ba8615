package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Upload    UploadConfig    `yaml:"upload"`
	Whisper   WhisperConfig   `yaml:"whisper"`
	Generator GeneratorConfig `yaml:"generator"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Host           string        `yaml:"host" env:"VOXRELAY_HOST"`
	Port           int           `yaml:"port" env:"VOXRELAY_PORT"`
	IndexFile      string        `yaml:"index_file" env:"VOXRELAY_INDEX_FILE"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes" env:"VOXRELAY_MAX_UPLOAD_BYTES"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
}

type UploadConfig struct {
	Dir string `yaml:"dir" env:"VOXRELAY_UPLOAD_DIR"`
}

type WhisperConfig struct {
	Model        string        `yaml:"model" env:"VOXRELAY_WHISPER_MODEL"`
	ModelDir     string        `yaml:"model_dir" env:"VOXRELAY_MODEL_DIR"`
	Language     string        `yaml:"language" env:"VOXRELAY_LANGUAGE"`
	Executable   string        `yaml:"executable"`
	AutoDownload bool          `yaml:"auto_download" env:"VOXRELAY_AUTO_DOWNLOAD"`
	Timeout      time.Duration `yaml:"timeout" env:"VOXRELAY_WHISPER_TIMEOUT"`
}

type GeneratorConfig struct {
	Provider string `yaml:"provider" env:"VOXRELAY_GENERATOR_PROVIDER"`
	APIKey   string `yaml:"api_key" env:"TOKEN"`
	// APIKeyOverride wins over TOKEN so the legacy variable can stay exported.
	APIKeyOverride string        `yaml:"-" env:"VOXRELAY_GENERATOR_API_KEY"`
	Model          string        `yaml:"model" env:"VOXRELAY_GENERATOR_MODEL"`
	BaseURL        string        `yaml:"base_url" env:"VOXRELAY_GENERATOR_BASE_URL"`
	Timeout        time.Duration `yaml:"timeout" env:"VOXRELAY_GENERATOR_TIMEOUT"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"VOXRELAY_LOG_LEVEL"`
	JSON  bool   `yaml:"json" env:"VOXRELAY_LOG_JSON"`
}

// Load reads the optional YAML file at path, applies environment overrides and
// fills defaults. An empty path skips the file.
func Load(path string) (*Config, error) {
	// Booleans that default to true must be set before decoding.
	cfg := Config{Whisper: WhisperConfig{AutoDownload: true}}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.Generator.APIKeyOverride != "" {
		cfg.Generator.APIKey = cfg.Generator.APIKeyOverride
	}

	cfg.setDefaults()

	return &cfg, nil
}

// LoadDotEnv exports variables from the given .env files. Missing files are
// skipped and variables already set in the process win.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}
	if c.Server.IndexFile == "" {
		c.Server.IndexFile = "index.html"
	}
	if c.Server.MaxUploadBytes == 0 {
		c.Server.MaxUploadBytes = 25 << 20
	}
	if c.Upload.Dir == "" {
		c.Upload.Dir = "uploads"
	}
	if c.Whisper.Model == "" {
		c.Whisper.Model = "base"
	}
	if c.Whisper.Language == "" {
		c.Whisper.Language = "ru"
	}
	if c.Whisper.Timeout == 0 {
		c.Whisper.Timeout = 2 * time.Minute
	}
	if c.Generator.Provider == "" {
		c.Generator.Provider = "gemini"
	}
	if c.Generator.Timeout == 0 {
		c.Generator.Timeout = 60 * time.Second
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 60 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		// An upload holds the response open through transcription and generation.
		c.Server.WriteTimeout = c.Whisper.Timeout + c.Generator.Timeout + 30*time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 120 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) Validate() error {
	var problems []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if strings.TrimSpace(c.Upload.Dir) == "" {
		problems = append(problems, "upload.dir must not be empty")
	}
	switch strings.ToLower(c.Generator.Provider) {
	case "gemini", "openai":
	default:
		problems = append(problems, fmt.Sprintf("generator.provider must be gemini or openai, got %q", c.Generator.Provider))
	}
	if c.Whisper.Timeout < 0 || c.Generator.Timeout < 0 {
		problems = append(problems, "timeouts must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}
