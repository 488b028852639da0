// ABOUTME: Gemini-backed generator using the google.golang.org/genai SDK
// ABOUTME: Maps session history onto model/user turns and returns plain text

package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/marketbot/haggle-gateway/internal/session"
)

// DefaultModel is used when the config does not name one.
const DefaultModel = "gemini-2.5-flash"

// Gemini generates buyer replies with the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewGemini creates a Gemini generator. Pass nil logger for the default.
func NewGemini(ctx context.Context, apiKey, model string, logger *slog.Logger) (*Gemini, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  model,
		logger: logger.With("component", "llm"),
	}, nil
}

// Generate produces the buyer's next reply. All failures, including context
// deadline expiry, are reported as ErrUnavailable.
func (g *Gemini) Generate(ctx context.Context, req *Request) (string, error) {
	temp := float32(0.7)
	topP := float32(0.9)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(buildSystemPrompt(req), genai.RoleUser),
		Temperature:       &temp,
		TopP:              &topP,
		MaxOutputTokens:   512,
	}

	res, err := g.client.Models.GenerateContent(ctx, g.model, historyContents(req.History), cfg)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	text := strings.TrimSpace(res.Text())
	if text == "" {
		return "", fmt.Errorf("%w: empty model response", ErrUnavailable)
	}

	g.logger.Debug("generated buyer reply", "model", g.model, "chars", len(text))
	return text, nil
}

// historyContents maps session messages onto chat turns: the seller is the
// user role, the buyer side (agent replies and overrides) is the model role.
// An empty history becomes a single opening instruction so the model always
// has a user turn to respond to.
func historyContents(history []session.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, msg := range history {
		role := genai.Role(genai.RoleModel)
		if msg.Sender == session.SenderSeller {
			role = genai.RoleUser
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}
	if len(contents) == 0 {
		contents = append(contents, genai.NewContentFromText(
			"(the seller has not spoken yet; open the negotiation)", genai.RoleUser))
	}
	return contents
}
