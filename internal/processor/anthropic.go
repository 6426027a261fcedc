package processor

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"

	"github.com/inkmill/descry/internal/config"
	"github.com/inkmill/descry/internal/description"
	"github.com/inkmill/descry/internal/metrics"
)

// AnthropicName is the registry name of the Anthropic messages engine.
const AnthropicName = "anthropic"

// messageCreator is the slice of the Anthropic client the processor uses.
type messageCreator interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Anthropic extracts descriptions through the Anthropic messages API using
// the same strict-JSON contract as the OpenAI engine.
type Anthropic struct {
	name   string
	cfg    atomic.Pointer[config.ProcessorConfig]
	sink   metrics.Sink
	logger zerolog.Logger

	mu      sync.Mutex
	client  messageCreator
	lastErr error

	newClient func() (messageCreator, error)
}

// NewAnthropic creates the Anthropic processor. The client is built lazily by
// Load from ANTHROPIC_API_KEY.
func NewAnthropic(cfg config.ProcessorConfig, sink metrics.Sink, logger zerolog.Logger) *Anthropic {
	p := &Anthropic{
		name:   AnthropicName,
		sink:   sink,
		logger: logger.With().Str("processor", AnthropicName).Logger(),
	}
	p.cfg.Store(&cfg)
	p.newClient = func() (messageCreator, error) {
		key := os.Getenv("ANTHROPIC_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
		client := anthropic.NewClient(option.WithAPIKey(key))
		return &client.Messages, nil
	}
	return p
}

func (p *Anthropic) Name() string { return p.name }

// Load builds the messages client; a missing key marks the processor
// unavailable instead of failing the registry.
func (p *Anthropic) Load(_ context.Context) error {
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

func (p *Anthropic) Available() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.client != nil && p.lastErr == nil
}

func (p *Anthropic) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

func (p *Anthropic) Configure(cfg config.ProcessorConfig) {
	p.cfg.Store(&cfg)
}

// Extract sends the numbered sentences to the model and maps its JSON reply
// back onto chapter offsets. Failures are absorbed by the calling strategy.
func (p *Anthropic) Extract(ctx context.Context, text, chapterID string) ([]description.Description, error) {
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

	msg, err := client.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(cfg.Model),
		MaxTokens: 2048,
		System: []anthropic.TextBlockParam{
			{Text: llmSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildUserPrompt(sentences))),
		},
	})
	if err != nil {
		p.sink.RecordFailure(p.name, err)
		return nil, &description.ExtractionError{Processor: p.name, Err: err}
	}

	var reply strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			reply.WriteString(block.Text)
		}
	}
	cands, err := parseCandidates(reply.String())
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
