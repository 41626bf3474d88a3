package ai

import (
	"context"
	"strings"
)

const (
	DefaultTemperature     = 0.2
	DefaultTopP            = 0.95
	DefaultMaxOutputTokens = 2048
)

// Params carries the sampling settings sent with every completion request.
type Params struct {
	Model           string
	Temperature     float32
	TopP            float32
	MaxOutputTokens int
}

// WithDefaults replaces out-of-range values. A zero temperature is kept since
// it is a valid setting. The model is left to the provider.
func (p Params) WithDefaults() Params {
	p.Model = strings.TrimSpace(p.Model)
	if p.Temperature < 0 {
		p.Temperature = DefaultTemperature
	}
	if p.TopP <= 0 {
		p.TopP = DefaultTopP
	}
	if p.MaxOutputTokens <= 0 {
		p.MaxOutputTokens = DefaultMaxOutputTokens
	}
	return p
}

// Completer sends a prompt to a generative-text provider and returns its raw reply.
// A single attempt is made per call.
type Completer interface {
	Complete(ctx context.Context, prompt string, params Params) (string, error)
	Name() string
	// Model is the model used when Params.Model is empty.
	Model() string
}
