package generate

import (
	"context"
	"fmt"
)

// MockGenerator echoes a deterministic completion for tests.
type MockGenerator struct {
	// Response, if set, is returned verbatim.
	Response string
	// Err, if set, is returned from Generate.
	Err error
	// Prompts records every prompt seen.
	Prompts []string
}

// NewMockGenerator returns a mock generator.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// Generate records the prompt and returns the configured response.
func (g *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.Prompts = append(g.Prompts, prompt)
	if g.Err != nil {
		return "", g.Err
	}
	if g.Response != "" {
		return g.Response, nil
	}
	return fmt.Sprintf("mock answer (%d chars of prompt)", len(prompt)), nil
}

// Close is a no-op.
func (g *MockGenerator) Close() error {
	return nil
}
