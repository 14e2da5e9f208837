package main

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToGeminiHistory(t *testing.T) {
	history := []Turn{
		{Role: RoleUser, Text: "persona"},
		{Role: RoleModel, Text: "This is Dan, who is this?"},
		{Role: RoleUser, Text: "  "},
		{Role: "assistant", Text: "treated as user"},
	}

	got := toGeminiHistory(history)

	require.Len(t, got, 3)
	assert.Equal(t, "user", got[0].Role)
	assert.Equal(t, []genai.Part{genai.Text("persona")}, got[0].Parts)
	assert.Equal(t, "model", got[1].Role)
	assert.Equal(t, "user", got[2].Role)
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Role:  "model",
				Parts: []genai.Part{genai.Text("Hi, "), genai.Text("I'm Dan. "), genai.Blob{MIMEType: "image/png"}},
			},
		}},
	}

	text, err := responseText(resp)
	require.NoError(t, err)
	assert.Equal(t, "Hi, I'm Dan.", text)
}

func TestResponseTextErrors(t *testing.T) {
	_, err := responseText(nil)
	assert.Error(t, err)

	_, err = responseText(&genai.GenerateContentResponse{})
	assert.ErrorContains(t, err, "no candidates")

	_, err = responseText(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
	})
	assert.ErrorContains(t, err, "empty content")

	_, err = responseText(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []genai.Part{genai.Text("  ")}}}},
	})
	assert.ErrorIs(t, err, errEmptyCompletion)
}

func TestNewGeminiBackendRequiresKey(t *testing.T) {
	_, err := newGeminiBackend(context.Background(), " ", "", 150)
	assert.Error(t, err)
}
