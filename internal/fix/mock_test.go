package fix

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// mockBackend is a scripted generative backend.
type mockBackend struct {
	text   string
	err    error
	prompt string
	system string
	opts   CompletionOptions
}

func (m *mockBackend) Name() string { return "mock" }

func (m *mockBackend) Complete(_ context.Context, system, prompt string, opts CompletionOptions) (string, error) {
	m.system = system
	m.prompt = prompt
	m.opts = opts
	return m.text, m.err
}

// mockConverse records the input and returns a canned output.
type mockConverse struct {
	input *bedrockruntime.ConverseInput
	out   *bedrockruntime.ConverseOutput
	err   error
}

func (m *mockConverse) Converse(_ context.Context, input *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	m.input = input
	return m.out, m.err
}

// slowSuggester sleeps and counts peak concurrency.
type slowSuggester struct {
	delay   time.Duration
	ignore  bool
	mu      sync.Mutex
	active  int
	peak    int
	started atomic.Int32
}

func (s *slowSuggester) Suggest(ctx context.Context, _ Request) []string {
	s.started.Add(1)
	s.mu.Lock()
	s.active++
	if s.active > s.peak {
		s.peak = s.active
	}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.active--
		s.mu.Unlock()
	}()

	if s.ignore {
		time.Sleep(s.delay)
		return []string{"late"}
	}
	select {
	case <-time.After(s.delay):
		return []string{"done"}
	case <-ctx.Done():
		return []string{Unavailable(ctx.Err())}
	}
}

func (s *slowSuggester) peakActive() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peak
}
