package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/raffaelramalhorosa/bear-watch/internal/config"
)

// NoPlace is the sentinel the model must return when a headline names no
// location. The comparison is exact (after trimming), never a substring
// check, so a real place name containing the letters is not misread as a
// miss.
const NoPlace = "none"

// Extractor pulls a single place name out of a news headline.
// An empty result means the headline names no location.
type Extractor interface {
	ExtractPlace(ctx context.Context, title string) (string, error)
}

// New creates an Extractor from the AI config. The caller is expected to
// have resolved the API key already; an empty key is an error here because
// a disabled extractor is represented by not constructing one at all.
func New(cfg config.AI, apiKey string) (Extractor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("AI not configured")
	}

	client := &http.Client{Timeout: 30 * time.Second}

	switch cfg.Provider {
	case "openai":
		model := cfg.Model
		if model == "" {
			model = "gpt-4o-mini"
		}
		return &openaiProvider{apiKey: apiKey, model: model, client: client}, nil
	case "claude":
		model := cfg.Model
		if model == "" {
			model = "claude-haiku-4-5-20251001"
		}
		return &claudeProvider{apiKey: apiKey, model: model, client: client}, nil
	default:
		return nil, fmt.Errorf("unknown AI provider: %q (valid: openai, claude)", cfg.Provider)
	}
}

const extractPrompt = `次のニュース見出しから、出来事が起きた地名（市町村名または都道府県名）を1つだけ抜き出してください。
地名のみを答えてください。余計な説明は不要です。
見出しに地名が含まれていない場合は「none」とだけ答えてください。

見出し: %s`

// parsePlace normalizes the model's reply into either a place name or the
// empty string for "no location". Anything other than a single short place
// name is treated as no location rather than an error.
func parsePlace(text string) string {
	text = strings.TrimSpace(text)
	if text == "" || strings.EqualFold(text, NoPlace) {
		return ""
	}
	// A multi-line or essay-length reply violates the prompt contract.
	if strings.ContainsAny(text, "\n") || len([]rune(text)) > 40 {
		return ""
	}
	return text
}

// --- OpenAI provider ---

type openaiProvider struct {
	apiKey string
	model  string
	client *http.Client
}

type openaiRequest struct {
	Model    string          `json:"model"`
	Messages []openaiMessage `json:"messages"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (o *openaiProvider) ExtractPlace(ctx context.Context, title string) (string, error) {
	body, _ := json.Marshal(openaiRequest{
		Model:    o.model,
		Messages: []openaiMessage{{Role: "user", Content: fmt.Sprintf(extractPrompt, title)}},
	})

	req, err := http.NewRequestWithContext(ctx, "POST", "https://api.openai.com/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("openai API %d: %s", resp.StatusCode, string(b))
	}

	var or openaiResponse
	if err := json.NewDecoder(resp.Body).Decode(&or); err != nil {
		return "", err
	}
	if len(or.Choices) == 0 {
		return "", fmt.Errorf("empty openai response")
	}
	return parsePlace(or.Choices[0].Message.Content), nil
}

// --- Claude provider ---

type claudeProvider struct {
	apiKey string
	model  string
	client *http.Client
}

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

func (c *claudeProvider) ExtractPlace(ctx context.Context, title string) (string, error) {
	body, _ := json.Marshal(claudeRequest{
		Model:     c.model,
		MaxTokens: 64,
		Messages:  []claudeMessage{{Role: "user", Content: fmt.Sprintf(extractPrompt, title)}},
	})

	req, err := http.NewRequestWithContext(ctx, "POST", "https://api.anthropic.com/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("claude API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("claude API %d: %s", resp.StatusCode, string(b))
	}

	var cr claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", err
	}
	if len(cr.Content) == 0 {
		return "", fmt.Errorf("empty claude response")
	}
	return parsePlace(cr.Content[0].Text), nil
}
