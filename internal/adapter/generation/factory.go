package generation

import (
	"fmt"
	"os"
	"time"

	"lecturmate/config"
	"lecturmate/internal/port"
)

// NewFromConfig builds the generator for the configured provider.
func NewFromConfig(cfg config.GenerationConfig) (port.Generator, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	switch cfg.Provider {
	case "ollama", "":
		return NewOllama(cfg.Model, cfg.BaseURL, timeout), nil
	case "openai":
		apiKey := os.Getenv(cfg.APIKeyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("generation API key not set in $%s", cfg.APIKeyEnv)
		}
		return NewOpenAI(apiKey, cfg.Model, cfg.BaseURL, timeout), nil
	default:
		return nil, fmt.Errorf("unknown generation provider: %q", cfg.Provider)
	}
}
