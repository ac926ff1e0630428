package engage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/decoylab/sundew/internal/domain"
)

// ErrEmptyReply is returned when the model responds without usable text.
var ErrEmptyReply = errors.New("engage: model returned no text")

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	geminiTimeout        = 15 * time.Second
	maxReplyLength       = 200
	historyWindow        = 6
)

// personaPrompt frames the model as a naive victim trying to make the
// subject reveal payment details, numbers, and links. Replies must stay
// short and informal.
const personaPrompt = `You are playing the role of a naive, trusting elderly person who received a suspicious message.

YOUR GOALS:
1. NEVER reveal that you suspect this is a scam
2. Act confused but willing to cooperate
3. Ask clarifying questions to extract information
4. Try to get the other party to reveal their payment ID, bank account, phone number, or any links

IMPORTANT RULES:
- Keep responses SHORT (1-2 sentences only)
- Sound like a real person, NOT an AI
- NEVER use formal language
- NEVER mention "scam", "fraud", or "suspicious"
- Show you're willing to help/pay but confused
- Ask for specific details (payment ID, account number, link)`

// GeminiGenerator generates persona replies through the Generative Language
// REST API.
type GeminiGenerator struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// Compile-time interface check.
var _ Generator = (*GeminiGenerator)(nil) //nolint:gochecknoglobals // compile-time check

// NewGeminiGenerator creates a generator for the given API key and model.
func NewGeminiGenerator(apiKey, model string) *GeminiGenerator {
	return &GeminiGenerator{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultGeminiBaseURL,
		client:  &http.Client{Timeout: geminiTimeout},
	}
}

// geminiRequest mirrors the generateContent request body.
type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Reply asks the model for the persona's next message.
func (g *GeminiGenerator) Reply(ctx context.Context, message string, history []domain.Message, scamType string, turn int) (string, error) {
	prompt := buildPrompt(message, history, scamType, turn)

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: prompt}}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     0.8,
			TopP:            0.9,
			MaxOutputTokens: 100,
		},
	})
	if err != nil {
		return "", fmt.Errorf("engage.GeminiGenerator.Reply: marshal: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("engage.GeminiGenerator.Reply: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("engage.GeminiGenerator.Reply: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("engage.GeminiGenerator.Reply: unexpected status %d", resp.StatusCode)
	}

	var parsed geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("engage.GeminiGenerator.Reply: decode: %w", err)
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyReply
	}

	reply := cleanReply(parsed.Candidates[0].Content.Parts[0].Text)
	if reply == "" {
		return "", ErrEmptyReply
	}
	return reply, nil
}

// buildPrompt assembles the persona instructions, recent conversation, and
// the latest subject message into a single prompt.
func buildPrompt(message string, history []domain.Message, scamType string, turn int) string {
	var b strings.Builder
	b.WriteString(personaPrompt)
	b.WriteString("\n\nCURRENT ENGAGEMENT PHASE: ")
	b.WriteString(Phase(turn))
	b.WriteString("\nSCAM TYPE DETECTED: ")
	if scamType == "" {
		b.WriteString("unknown")
	} else {
		b.WriteString(scamType)
	}

	b.WriteString("\n\nCONVERSATION SO FAR:\n")
	start := 0
	if len(history) > historyWindow {
		start = len(history) - historyWindow
	}
	for _, m := range history[start:] {
		if m.Sender == domain.SenderSubject {
			b.WriteString("Scammer: ")
		} else {
			b.WriteString("You: ")
		}
		b.WriteString(m.Text)
		b.WriteString("\n")
	}

	b.WriteString("\nLATEST SCAMMER MESSAGE: ")
	b.WriteString(message)
	b.WriteString("\n\nGenerate a SHORT response (1-2 sentences) as the naive victim. ")
	b.WriteString("Try to extract: payment ID, bank account, phone number, or link. ")
	b.WriteString("Your response (just the message, no quotes or prefixes):")
	return b.String()
}

// cleanReply trims quoting and clamps the reply to one short line.
func cleanReply(text string) string {
	reply := strings.TrimSpace(text)
	reply = strings.Trim(reply, `"'`)
	if idx := strings.IndexByte(reply, '\n'); idx >= 0 {
		reply = reply[:idx]
	}
	if len(reply) > maxReplyLength {
		reply = reply[:maxReplyLength] + "..."
	}
	return strings.TrimSpace(reply)
}
