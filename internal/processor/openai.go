package processor

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/rs/zerolog"

	"github.com/inkmill/descry/internal/config"
	"github.com/inkmill/descry/internal/description"
	"github.com/inkmill/descry/internal/metrics"
)

// OpenAIName is the registry name of the OpenAI-compatible engine.
const OpenAIName = "openai"

// chatCompleter is the slice of the OpenAI client the processor uses.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAI extracts descriptions through an OpenAI-compatible chat endpoint
// using the strict-JSON contract in llmSystemPrompt.
type OpenAI struct {
	name   string
	cfg    atomic.Pointer[config.ProcessorConfig]
	sink   metrics.Sink
	logger zerolog.Logger

	mu      sync.Mutex
	client  chatCompleter
	lastErr error

	// newClient builds the chat client; swapped in tests.
	newClient func() (chatCompleter, error)
}

// NewOpenAI creates the OpenAI processor. The client is built lazily by Load
// from OPENAI_API_KEY and the optional OPENAI_BASE_URL.
func NewOpenAI(cfg config.ProcessorConfig, sink metrics.Sink, logger zerolog.Logger) *OpenAI {
	p := &OpenAI{
		name:   OpenAIName,
		sink:   sink,
		logger: logger.With().Str("processor", OpenAIName).Logger(),
	}
	p.cfg.Store(&cfg)
	p.newClient = func() (chatCompleter, error) {
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY not set")
		}
		oc := openai.DefaultConfig(key)
		if base := os.Getenv("OPENAI_BASE_URL"); base != "" {
			oc.BaseURL = base
		}
		return openai.NewClientWithConfig(oc), nil
	}
	return p
}

func (p *OpenAI) Name() string { return p.name }

// Load builds the chat client. A missing key marks the processor unavailable
// instead of failing the registry.
func (p *OpenAI) Load(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return nil
	}
	client, err := p.newClient()
	if err != nil {
		p.lastErr = &description.ModelUnavailableError{Processor: p.name, Err: err}
		return p.lastErr
	}
	p.client = client
	p.lastErr = nil
	return nil
}

func (p *OpenAI) Available() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.client != nil && p.lastErr == nil
}

func (p *OpenAI) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

func (p *OpenAI) Configure(cfg config.ProcessorConfig) {
	p.cfg.Store(&cfg)
}

// Extract sends the numbered sentences to the chat model and maps its JSON
// reply back onto chapter offsets. Transport and parse failures are reported
// to the metrics sink and returned as ExtractionError for the strategy to
// absorb.
func (p *OpenAI) Extract(ctx context.Context, text, chapterID string) ([]description.Description, error) {
	if len(text) < minTextLength {
		return []description.Description{}, nil
	}

	p.mu.Lock()
	client := p.client
	p.mu.Unlock()
	if client == nil {
		return nil, &description.ModelUnavailableError{Processor: p.name, Err: fmt.Errorf("client not loaded")}
	}

	cfg := *p.cfg.Load()
	start := time.Now()
	sentences := SplitSentences(text)

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: llmSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(sentences)},
		},
		Temperature: 0.1,
		N:           1,
	})
	if err != nil {
		p.sink.RecordFailure(p.name, err)
		return nil, &description.ExtractionError{Processor: p.name, Err: err}
	}
	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no choices in response")
		p.sink.RecordFailure(p.name, err)
		return nil, &description.ExtractionError{Processor: p.name, Err: err}
	}

	cands, err := parseCandidates(resp.Choices[0].Message.Content)
	if err != nil {
		p.sink.RecordFailure(p.name, err)
		return nil, &description.ExtractionError{Processor: p.name, Err: err}
	}

	descs := candidatesToDescriptions(cands, sentences, chapterID, p.name)
	kept := descs[:0]
	for _, d := range descs {
		if d.Confidence >= cfg.MinConfidence {
			kept = append(kept, d)
		}
	}
	p.sink.RecordExtraction(p.name, len(kept), time.Since(start))
	return kept, nil
}
