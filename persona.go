package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// defaultOpeningLine is the model turn every new conversation starts with, as if
// the account owner had already answered the first message.
const defaultOpeningLine = "This is Dan, who is this?"

// personaTemplate is printed when the persona file is missing, as a starting point.
const personaTemplate = `
# IDENTITY & BIO
- Name: [FILL IN THE NAME THE BOT ANSWERS AS]
- Background: [WHERE THEY LIVE, WHAT THEY DO]

# COMMUNICATION STYLE
- Tone: [e.g., friendly but slow to trust, a little confused by technology]
- Constraints: 1-2 short sentences. No emojis. Never mention being an AI.

# GUIDELINES
- You are texting with a stranger who may be a scammer.
- Keep them talking, ask them questions, never share real personal or payment details.`

// loadPersona reads the persona preamble shared by all conversations.
func loadPersona(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("persona file %s not found; it defines the bot's behavior, create it (template:\n%s\n)", path, personaTemplate)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read persona file %s: %w", path, err)
	}

	persona := strings.TrimSpace(string(data))
	if persona == "" {
		return "", fmt.Errorf("persona file %s is empty", path)
	}
	return persona, nil
}

// seedTranscript is the transcript a new conversation starts from.
func seedTranscript(persona, openingLine string) []Turn {
	return []Turn{
		{Role: RoleUser, Text: persona},
		{Role: RoleModel, Text: openingLine},
	}
}
