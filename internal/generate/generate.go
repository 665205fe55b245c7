// Package generate wraps the external text generation capability used to
// answer questions over retrieved context.
package generate

import (
	"context"
	"fmt"
)

// Generator produces a completion for a fully rendered prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Close() error
}

// Config selects and configures a generator implementation.
type Config struct {
	// Type is "http" or "mock".
	Type string
	// BaseURL, Model and TimeoutSeconds configure the HTTP gateway.
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// New creates a generator per cfg.Type.
func New(cfg Config) (Generator, error) {
	switch cfg.Type {
	case "http", "":
		return NewHTTPGenerator(HTTPConfig{
			BaseURL:        cfg.BaseURL,
			Model:          cfg.Model,
			TimeoutSeconds: cfg.TimeoutSeconds,
		}), nil
	case "mock":
		return NewMockGenerator(), nil
	default:
		return nil, fmt.Errorf("unknown generator type: %s (supported: http, mock)", cfg.Type)
	}
}
