package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

const (
	DefaultGeminiModel   = "gemini-2.5-flash"
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultOpenAIModel   = "gpt-4o-mini"
	DefaultTimeout       = 60 * time.Second
)

// ErrEmptyResponse is returned when the API answers without any text.
var ErrEmptyResponse = errors.New("empty response from generator")

// Client produces an answer for a single prompt.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Config struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
}

// New builds the client for cfg.Provider.
func New(cfg Config) (Client, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderGemini:
		return NewGemini(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Timeout), nil
	case ProviderOpenAI:
		return NewOpenAI(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown generator provider: %s", cfg.Provider)
	}
}

func Providers() []string {
	return []string{ProviderGemini, ProviderOpenAI}
}
