package fix

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Options selects and configures a suggestion backend.
type Options struct {
	Backend        string
	Model          string
	Endpoint       string
	APIKey         string
	Region         string
	Profile        string
	Timeout        time.Duration
	Temperature    float32
	MaxTokens      int
	MaxPromptChars int
}

// New builds the Suggester named by opts.Backend. An empty backend means
// static.
func New(ctx context.Context, opts Options) (Suggester, error) {
	sampling := CompletionOptions{Temperature: opts.Temperature, MaxTokens: opts.MaxTokens}

	switch strings.ToLower(opts.Backend) {
	case "", BackendStatic:
		return Static{}, nil
	case BackendOpenAI:
		b, err := NewOpenAI(opts.Endpoint, opts.Model, opts.APIKey, opts.Timeout)
		if err != nil {
			return nil, err
		}
		return NewGenerative(b, opts.MaxPromptChars, sampling), nil
	case BackendBedrock:
		client, err := NewBedrockClient(ctx, opts.Profile, opts.Region)
		if err != nil {
			return nil, fmt.Errorf("bedrock backend: %w", err)
		}
		return NewGenerative(NewBedrock(client, opts.Model), opts.MaxPromptChars, sampling), nil
	default:
		return nil, fmt.Errorf("unsupported fix backend: %s (use static, openai, or bedrock)", opts.Backend)
	}
}
