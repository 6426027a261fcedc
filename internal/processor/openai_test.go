package processor

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkmill/descry/internal/config"
	"github.com/inkmill/descry/internal/description"
	"github.com/inkmill/descry/internal/metrics"
)

// fakeChat scripts the chat endpoint with func fields.
type fakeChat struct {
	createFn func(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

func (f *fakeChat) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return f.createFn(ctx, req)
}

func chatReply(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

func testOpenAI(t *testing.T, chat chatCompleter) *OpenAI {
	t.Helper()
	pc := config.ProcessorConfig{Enabled: true, Weight: 1.2, Model: "gpt-4o-mini", MinConfidence: 0.3}
	p := NewOpenAI(pc, metrics.NopSink{}, zerolog.Nop())
	p.newClient = func() (chatCompleter, error) { return chat, nil }
	require.NoError(t, p.Load(context.Background()))
	require.True(t, p.Available())
	return p
}

func TestOpenAIExtract(t *testing.T) {
	var gotReq openai.ChatCompletionRequest
	chat := &fakeChat{createFn: func(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		gotReq = req
		return chatReply(`[{"type":"location","text":"the ruined abbey","sentence":0,"confidence":0.85}]`), nil
	}}
	p := testOpenAI(t, chat)

	text := "They sheltered inside the ruined abbey. Night came quickly."
	descs, err := p.Extract(context.Background(), text, "ch-3")
	require.NoError(t, err)
	require.Len(t, descs, 1)

	assert.Equal(t, description.TypeLocation, descs[0].Type)
	assert.Equal(t, "the ruined abbey", descs[0].Text)
	assert.Equal(t, descs[0].Text, text[descs[0].Span.Start:descs[0].Span.End])
	assert.Equal(t, []string{OpenAIName}, descs[0].SourceProcessors)

	assert.Equal(t, "gpt-4o-mini", gotReq.Model)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, gotReq.Messages[0].Role)
	assert.Contains(t, gotReq.Messages[1].Content, "[0] They sheltered inside the ruined abbey.")
}

func TestOpenAIMinConfidenceFilter(t *testing.T) {
	chat := &fakeChat{createFn: func(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		return chatReply(`[{"type":"object","text":"","sentence":0,"confidence":0.1}]`), nil
	}}
	p := testOpenAI(t, chat)
	descs, err := p.Extract(context.Background(), "A long enough chapter sentence here.", "ch-1")
	require.NoError(t, err)
	assert.Empty(t, descs)
}

func TestOpenAITransportError(t *testing.T) {
	cause := errors.New("connection refused")
	chat := &fakeChat{createFn: func(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		return openai.ChatCompletionResponse{}, cause
	}}
	p := testOpenAI(t, chat)

	_, err := p.Extract(context.Background(), "A long enough chapter sentence here.", "ch-1")
	require.Error(t, err)

	var exErr *description.ExtractionError
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, OpenAIName, exErr.Processor)
	assert.ErrorIs(t, err, cause)
}

func TestOpenAIMalformedReply(t *testing.T) {
	chat := &fakeChat{createFn: func(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		return chatReply("I could not find any descriptions."), nil
	}}
	p := testOpenAI(t, chat)

	_, err := p.Extract(context.Background(), "A long enough chapter sentence here.", "ch-1")
	var exErr *description.ExtractionError
	require.ErrorAs(t, err, &exErr)
}

func TestOpenAIMissingKeyUnavailable(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	p := NewOpenAI(config.ProcessorConfig{Enabled: true, Weight: 1}, metrics.NopSink{}, zerolog.Nop())

	err := p.Load(context.Background())
	require.Error(t, err)
	var unavailable *description.ModelUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.False(t, p.Available())

	_, err = p.Extract(context.Background(), "A long enough chapter sentence here.", "ch-1")
	require.ErrorAs(t, err, &unavailable)
}

func TestOpenAIShortInputSkipsCall(t *testing.T) {
	chat := &fakeChat{createFn: func(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		t.Fatal("client must not be called for short input")
		return openai.ChatCompletionResponse{}, nil
	}}
	p := testOpenAI(t, chat)
	descs, err := p.Extract(context.Background(), "short", "ch-1")
	require.NoError(t, err)
	assert.Empty(t, descs)
}
