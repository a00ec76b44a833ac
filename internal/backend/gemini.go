// Package backend provides conversational response backends for the router.
package backend

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/zulandar/switchboard/internal/router"
)

// Gemini answers messages using Google's Gemini API. It satisfies the
// router's Responder interface.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini backend.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("backend: gemini api key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("backend: create gemini client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

// Respond generates a reply to text given the thread history.
func (g *Gemini) Respond(ctx context.Context, text string, history []router.HistoryEntry) (string, error) {
	contents := conversationContents(text, history)
	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("backend: generate content: %w", err)
	}
	return result.Text(), nil
}

// conversationContents maps the thread history plus the triggering message
// onto Gemini conversation turns. This bot's own replies become model
// turns; everything else is a user turn, with non-human speakers labeled so
// the model can tell participants apart.
func conversationContents(text string, history []router.HistoryEntry) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, h := range history {
		switch h.Role {
		case router.RoleBot:
			contents = append(contents, genai.NewContentFromText(h.Content, genai.RoleModel))
		case router.RoleOtherBot:
			name := h.BotName
			if name == "" {
				name = "another bot"
			}
			contents = append(contents, genai.NewContentFromText(
				fmt.Sprintf("[%s] %s", name, h.Content), genai.RoleUser))
		default:
			contents = append(contents, genai.NewContentFromText(h.Content, genai.RoleUser))
		}
	}
	contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
	return contents
}
