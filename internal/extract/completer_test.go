package extract

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/sells-group/pubenrich/internal/config"
	"github.com/sells-group/pubenrich/internal/resilience"
	"github.com/sells-group/pubenrich/pkg/anthropic"
	"github.com/sells-group/pubenrich/pkg/gemini"
	"github.com/sells-group/pubenrich/pkg/openai"
)

type mockAnthropic struct {
	mock.Mock
}

func (m *mockAnthropic) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

type mockGemini struct {
	mock.Mock
}

func (m *mockGemini) Generate(ctx context.Context, req gemini.GenerateRequest) (*gemini.GenerateResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gemini.GenerateResponse), args.Error(1)
}

func (m *mockGemini) Close() error { return nil }

var testReq = CompletionRequest{System: "sys", Prompt: "prompt", Temperature: 0.3, MaxTokens: 1500, JSON: true}

func TestAnthropicCompleter(t *testing.T) {
	client := &mockAnthropic{}
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == "claude-haiku-4-5" && req.System == "sys" && req.MaxTokens == 1500 &&
			*req.Temperature == 0.3 && len(req.Messages) == 1 && req.Messages[0].Content == "prompt"
	})).Return(&anthropic.MessageResponse{
		Model:   "claude-haiku-4-5-20251001",
		Content: []anthropic.ContentBlock{{Type: "text", Text: `{"thema":"x"}`}},
		Usage:   anthropic.TokenUsage{InputTokens: 120, OutputTokens: 30},
	}, nil)

	c := &AnthropicCompleter{Client: client, Model: "claude-haiku-4-5"}
	got, err := c.Complete(context.Background(), testReq)
	require.NoError(t, err)
	assert.Equal(t, `{"thema":"x"}`, got.Text)
	assert.Equal(t, "claude-haiku-4-5-20251001", got.Model)
	assert.Equal(t, 120, got.Usage.InputTokens)
	assert.Equal(t, 30, got.Usage.OutputTokens)
}

func TestAnthropicCompleter_Overloaded(t *testing.T) {
	client := &mockAnthropic{}
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, &anthropic.APIError{StatusCode: 529, Err: errors.New("overloaded_error")})

	_, err := (&AnthropicCompleter{Client: client}).Complete(context.Background(), testReq)
	var te *resilience.TransientError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 529, te.StatusCode)
}

func TestAnthropicCompleter_BadRequestIsPermanent(t *testing.T) {
	client := &mockAnthropic{}
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, &anthropic.APIError{StatusCode: 400, Err: errors.New("invalid_request_error")})

	_, err := (&AnthropicCompleter{Client: client}).Complete(context.Background(), testReq)
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
}

func TestOpenAICompleter(t *testing.T) {
	var got openai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"model":"gpt-4o-mini","choices":[{"message":{"role":"assistant","content":"{\"thema\":\"y\"}"}}],"usage":{"prompt_tokens":50,"completion_tokens":9}}`))
	}))
	defer srv.Close()

	c := &OpenAICompleter{Client: openai.NewClient("k", openai.WithBaseURL(srv.URL)), Model: "gpt-4o-mini"}
	out, err := c.Complete(context.Background(), testReq)
	require.NoError(t, err)

	assert.Equal(t, `{"thema":"y"}`, out.Text)
	assert.Equal(t, 50, out.Usage.InputTokens)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
}

func TestOpenAICompleter_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := &OpenAICompleter{Client: openai.NewClient("k", openai.WithBaseURL(srv.URL))}
	_, err := c.Complete(context.Background(), testReq)
	assert.True(t, resilience.IsTransient(err))
}

func TestGeminiCompleter(t *testing.T) {
	client := &mockGemini{}
	client.On("Generate", mock.Anything, mock.MatchedBy(func(req gemini.GenerateRequest) bool {
		return req.JSON && req.MaxTokens == 1500 && req.System == "sys"
	})).Return(&gemini.GenerateResponse{Text: "{}", InputTokens: 7, OutputTokens: 2}, nil).Once()
	client.On("Generate", mock.Anything, mock.Anything).
		Return(nil, &googleapi.Error{Code: http.StatusServiceUnavailable}).Once()

	c := &GeminiCompleter{Client: client, Model: "gemini-2.0-flash"}
	out, err := c.Complete(context.Background(), testReq)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.0-flash", out.Model)
	assert.Equal(t, 7, out.Usage.InputTokens)

	_, err = c.Complete(context.Background(), testReq)
	assert.True(t, resilience.IsTransient(err))
}

func TestNewCompleter(t *testing.T) {
	cfg := &config.Config{}
	cfg.LLM.Provider = "openai"
	cfg.OpenAI.Model = "gpt-4o"
	c, closeFn, err := NewCompleter(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "openai", c.Name())
	assert.NoError(t, closeFn())

	cfg.LLM.Provider = ""
	c, _, err = NewCompleter(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", c.Name())

	cfg.LLM.Provider = "llama"
	_, _, err = NewCompleter(context.Background(), cfg)
	assert.Error(t, err)
}
