package refine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type fakeGenerator struct {
	reply    string
	err      error
	calls    int
	messages []llms.MessageContent
	wait     time.Duration
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.calls++
	f.messages = messages
	if f.wait > 0 {
		select {
		case <-time.After(f.wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func TestRefineDisabledMakesNoCall(t *testing.T) {
	gen := &fakeGenerator{reply: `{"refined_text": "x"}`}
	r := NewLLMRefiner(gen, "gpt-4-turbo", DefaultOptions())

	res := r.Refine(context.Background(), "shtepi", false)
	assert.Equal(t, ModelNone, res.ModelUsed)
	assert.Equal(t, "shtepi", res.RefinedText)
	assert.Zero(t, res.Confidence)
	assert.Empty(t, res.Corrections)
	assert.False(t, res.Applied())
	assert.Zero(t, gen.calls)
}

func TestRefineBlankAndUnconfigured(t *testing.T) {
	gen := &fakeGenerator{reply: `{"refined_text": "x"}`}
	res := NewLLMRefiner(gen, "m", DefaultOptions()).Refine(context.Background(), "  \n ", true)
	assert.Equal(t, ModelNone, res.ModelUsed)
	assert.Zero(t, gen.calls)

	res = NewLLMRefiner(nil, "", DefaultOptions()).Refine(context.Background(), "shtepi", true)
	assert.Equal(t, ModelNone, res.ModelUsed)
	assert.Equal(t, "shtepi", res.RefinedText)
}

func TestRefineParsesEmbeddedJSON(t *testing.T) {
	gen := &fakeGenerator{reply: "Ja rezultati:\n```json\n" +
		`{"refined_text": "Unë shkoj në shtëpi", "corrections": [{"original": "shtepi", "corrected": "shtëpi", "reason": "ë e munguar"}], "confidence": 0.9}` +
		"\n```"}
	r := NewLLMRefiner(gen, "gpt-4-turbo", DefaultOptions())

	res := r.Refine(context.Background(), "Une shkoj ne shtepi", true)
	assert.Equal(t, "gpt-4-turbo", res.ModelUsed)
	assert.True(t, res.Applied())
	assert.Equal(t, "Unë shkoj në shtëpi", res.RefinedText)
	assert.Equal(t, 0.9, res.Confidence)
	require.Len(t, res.Corrections, 1)
	assert.Equal(t, Correction{Original: "shtepi", Corrected: "shtëpi", Reason: "ë e munguar"}, res.Corrections[0])

	require.Len(t, gen.messages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, gen.messages[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, gen.messages[1].Role)
	assert.Contains(t, gen.messages[1].Parts[0].(llms.TextContent).Text, "Une shkoj ne shtepi")
}

func TestRefineFallsBackOnFailure(t *testing.T) {
	cases := map[string]*fakeGenerator{
		"network":          {err: errors.New("connection reset")},
		"no json":          {reply: "Nuk mund ta korrigjoj."},
		"malformed json":   {reply: `{"refined_text": "x",`},
		"missing text":     {reply: `{"corrections": [], "confidence": 0.7}`},
		"bad confidence":   {reply: `{"refined_text": "x", "confidence": "high"}`},
		"wrong text types": {reply: `{"refined_text": 42}`},
	}
	for name, gen := range cases {
		t.Run(name, func(t *testing.T) {
			res := NewLLMRefiner(gen, "gpt-4-turbo", DefaultOptions()).Refine(context.Background(), "shtepi", true)
			assert.Equal(t, ModelFallback, res.ModelUsed)
			assert.Equal(t, "shtepi", res.RefinedText)
			assert.Zero(t, res.Confidence)
			assert.Empty(t, res.Corrections)
			assert.True(t, res.Applied())
		})
	}
}

func TestRefineTimeoutFallsBack(t *testing.T) {
	gen := &fakeGenerator{reply: `{"refined_text": "x"}`, wait: time.Second}
	r := NewLLMRefiner(gen, "m", Options{Temperature: 0.3, Timeout: 10 * time.Millisecond})

	res := r.Refine(context.Background(), "shtepi", true)
	assert.Equal(t, ModelFallback, res.ModelUsed)
	assert.Less(t, res.ProcessingTimeMs, int64(1000))
}

func TestDefaultOptionsWaitForSlowReplies(t *testing.T) {
	assert.Zero(t, DefaultOptions().Timeout)

	gen := &fakeGenerator{reply: `{"refined_text": "shtëpi"}`, wait: 50 * time.Millisecond}
	res := NewLLMRefiner(gen, "m", DefaultOptions()).Refine(context.Background(), "shtepi", true)
	assert.Equal(t, "m", res.ModelUsed)
	assert.Equal(t, "shtëpi", res.RefinedText)
}

func TestParseReplyDefaults(t *testing.T) {
	res, err := ParseReply(`{"refined_text": "mirë"}`)
	require.NoError(t, err)
	assert.Equal(t, 0.5, res.Confidence)
	assert.NotNil(t, res.Corrections)

	res, err = ParseReply(`{"refined_text": "mirë", "confidence": "1.7"}`)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Confidence)
}

func TestExtractJSONObject(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{`prefix {"a": 1} suffix {"b": 2}`, `{"a": 1}`, true},
		{`{"a": {"b": "}"}} trailing }`, `{"a": {"b": "}"}}`, true},
		{`{"a": "say \"{hi\""}`, `{"a": "say \"{hi\""}`, true},
		{`{ unbalanced`, "", false},
		{`{ open {"x": 1}`, `{"x": 1}`, true},
		{`no braces`, "", false},
	}
	for _, tc := range cases {
		got, ok := ExtractJSONObject(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestNewModelRejectsUnknownProvider(t *testing.T) {
	m, err := NewModel(ProviderConfig{})
	require.NoError(t, err)
	assert.Nil(t, m)

	_, err = NewModel(ProviderConfig{Provider: "palm"})
	assert.ErrorContains(t, err, "unsupported")

	_, err = NewModel(ProviderConfig{Provider: "openai", Model: "gpt-4-turbo"})
	assert.ErrorContains(t, err, "API key")
}
