package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

//////////////////////////////////////////////////////////////
// LLM CLIENT
//////////////////////////////////////////////////////////////

// geminiBackend answers conversations with Google's Gemini API.
type geminiBackend struct {
	client          *genai.Client
	modelID         string
	maxOutputTokens int32
}

func newGeminiBackend(ctx context.Context, apiKey, modelID string, maxOutputTokens int32) (*geminiBackend, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = DEFAULT_MODEL_NAME
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &geminiBackend{
		client:          client,
		modelID:         modelID,
		maxOutputTokens: maxOutputTokens,
	}, nil
}

// Reply starts a chat seeded with history and sends text as the next user turn.
func (g *geminiBackend) Reply(ctx context.Context, history []Turn, text string) (string, error) {
	model := g.client.GenerativeModel(g.modelID)
	if g.maxOutputTokens > 0 {
		model.SetMaxOutputTokens(g.maxOutputTokens)
	}

	cs := model.StartChat()
	cs.History = toGeminiHistory(history)

	resp, err := cs.SendMessage(ctx, genai.Text(text))
	if err != nil {
		return "", fmt.Errorf("gemini completion failed: %w", err)
	}
	return responseText(resp)
}

func (g *geminiBackend) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func toGeminiHistory(history []Turn) []*genai.Content {
	out := make([]*genai.Content, 0, len(history))
	for _, turn := range history {
		if strings.TrimSpace(turn.Text) == "" {
			continue
		}
		role := RoleUser
		if turn.Role == RoleModel {
			role = RoleModel
		}
		out = append(out, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(turn.Text)},
		})
	}
	return out
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("gemini returned no candidates")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned empty content (finish reason %s)", candidate.FinishReason)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	reply := strings.TrimSpace(sb.String())
	if reply == "" {
		return "", errEmptyCompletion
	}
	return reply, nil
}
