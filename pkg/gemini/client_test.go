package gemini

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

func TestFromResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			FinishReason: genai.FinishReasonStop,
			Content: &genai.Content{Parts: []genai.Part{
				genai.Text(`{"thema":`),
				genai.Text(`"Handhaving"}`),
			}},
		}},
		UsageMetadata: &genai.UsageMetadata{PromptTokenCount: 42, CandidatesTokenCount: 7},
	}

	out := fromResponse(resp)
	assert.Equal(t, `{"thema":"Handhaving"}`, out.Text)
	assert.Equal(t, 42, out.InputTokens)
	assert.Equal(t, 7, out.OutputTokens)
	assert.NotEmpty(t, out.FinishReason)
}

func TestFromResponse_Empty(t *testing.T) {
	assert.Empty(t, fromResponse(nil).Text)
	assert.Empty(t, fromResponse(&genai.GenerateContentResponse{}).Text)
	assert.Empty(t, fromResponse(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
	}).Text)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(eris.Wrap(&googleapi.Error{Code: 429}, "gemini: generate content")))
	assert.True(t, IsRetryable(&googleapi.Error{Code: 503}))
	assert.False(t, IsRetryable(&googleapi.Error{Code: 400}))
	assert.False(t, IsRetryable(eris.New("other")))
}
