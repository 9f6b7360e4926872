package extract

import (
	"context"
	"errors"
	"strings"
	"time"

	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"

	"github.com/sells-group/pubenrich/internal/config"
	"github.com/sells-group/pubenrich/internal/model"
	"github.com/sells-group/pubenrich/internal/resilience"
	"github.com/sells-group/pubenrich/pkg/anthropic"
	"github.com/sells-group/pubenrich/pkg/gemini"
	"github.com/sells-group/pubenrich/pkg/openai"
)

// CompletionRequest is one single-turn completion.
type CompletionRequest struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int64
	// JSON asks providers that support it for a JSON-only response.
	JSON bool
}

// Completion is the raw model output plus accounting.
type Completion struct {
	Text  string
	Model string
	Usage model.TokenUsage
}

// Completer is the completion service seen by the requester. Retryable
// failures come back as *resilience.TransientError.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
	Name() string
}

// NewCompleter builds the completer selected by cfg.LLM.Provider. The
// returned close function releases provider resources.
func NewCompleter(ctx context.Context, cfg *config.Config) (Completer, func() error, error) {
	noop := func() error { return nil }
	timeout := time.Duration(cfg.LLM.TimeoutSecs) * time.Second

	switch strings.ToLower(cfg.LLM.Provider) {
	case "", "anthropic":
		var opts []anthropicopt.RequestOption
		if timeout > 0 {
			opts = append(opts, anthropicopt.WithRequestTimeout(timeout))
		}
		return &AnthropicCompleter{
			Client: anthropic.NewClient(cfg.Anthropic.Key, opts...),
			Model:  cfg.Anthropic.Model,
		}, noop, nil
	case "openai":
		opts := []openai.Option{openai.WithBaseURL(cfg.OpenAI.BaseURL), openai.WithModel(cfg.OpenAI.Model)}
		return &OpenAICompleter{
			Client: openai.NewClient(cfg.OpenAI.Key, opts...),
			Model:  cfg.OpenAI.Model,
		}, noop, nil
	case "gemini":
		client, err := gemini.NewClient(ctx, cfg.Gemini.Key)
		if err != nil {
			return nil, noop, err
		}
		return &GeminiCompleter{Client: client, Model: cfg.Gemini.Model}, client.Close, nil
	}
	return nil, noop, eris.Errorf("extract: unknown llm provider %q", cfg.LLM.Provider)
}

// AnthropicCompleter adapts the Anthropic Messages API.
type AnthropicCompleter struct {
	Client anthropic.Client
	Model  string
}

func (c *AnthropicCompleter) Name() string { return "anthropic" }

func (c *AnthropicCompleter) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	temp := req.Temperature
	resp, err := c.Client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       c.Model,
		MaxTokens:   req.MaxTokens,
		System:      req.System,
		Messages:    []anthropic.Message{{Role: "user", Content: req.Prompt}},
		Temperature: &temp,
	})
	if err != nil {
		var apiErr *anthropic.APIError
		if errors.As(err, &apiErr) && apiErr.Retryable() {
			return nil, resilience.NewTransientError(err, apiErr.StatusCode)
		}
		return nil, err
	}
	return &Completion{
		Text:  resp.Text(),
		Model: firstNonEmpty(resp.Model, c.Model),
		Usage: model.TokenUsage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
		},
	}, nil
}

// OpenAICompleter adapts any OpenAI-compatible chat completions API.
type OpenAICompleter struct {
	Client openai.Client
	Model  string
}

func (c *OpenAICompleter) Name() string { return "openai" }

func (c *OpenAICompleter) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	temp := req.Temperature
	maxTokens := int(req.MaxTokens)
	creq := openai.ChatCompletionRequest{
		Model: c.Model,
		Messages: []openai.Message{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	}
	if req.JSON {
		creq.ResponseFormat = &openai.ResponseFormat{Type: "json_object"}
	}

	resp, err := c.Client.ChatCompletion(ctx, creq)
	if err != nil {
		var se *openai.StatusError
		if errors.As(err, &se) && resilience.IsTransientHTTPStatus(se.StatusCode) {
			return nil, resilience.NewTransientError(err, se.StatusCode)
		}
		return nil, err
	}
	return &Completion{
		Text:  resp.Text(),
		Model: firstNonEmpty(resp.Model, c.Model),
		Usage: model.TokenUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

// GeminiCompleter adapts Google Gemini.
type GeminiCompleter struct {
	Client gemini.Client
	Model  string
}

func (c *GeminiCompleter) Name() string { return "gemini" }

func (c *GeminiCompleter) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	temp := float32(req.Temperature)
	resp, err := c.Client.Generate(ctx, gemini.GenerateRequest{
		Model:       c.Model,
		System:      req.System,
		Prompt:      req.Prompt,
		Temperature: &temp,
		MaxTokens:   int32(req.MaxTokens),
		JSON:        req.JSON,
	})
	if err != nil {
		if gemini.IsRetryable(err) {
			return nil, resilience.NewTransientError(err, 0)
		}
		return nil, err
	}
	return &Completion{
		Text:  resp.Text,
		Model: c.Model,
		Usage: model.TokenUsage{InputTokens: resp.InputTokens, OutputTokens: resp.OutputTokens},
	}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
