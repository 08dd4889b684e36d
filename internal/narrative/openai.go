// Package narrative generates descriptive text for game events through the
// OpenAI Responses API. Narration is strictly best-effort: the controller
// bounds every request with a timeout and falls back to a stock log line when
// this client is slow or failing.
package narrative

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/calhale/spacegame/internal/game"
)

const defaultResponsesURL = "https://api.openai.com/v1/responses"

// maxErrorBody caps how much of an error response is echoed into errors.
const maxErrorBody = 4096

// Config configures the OpenAI narration client.
type Config struct {
	// APIKey authenticates requests. Required.
	APIKey string
	// Model selects the model. Required.
	Model string
	// ResponsesURL overrides the API endpoint, mainly for testing.
	ResponsesURL string
	// HTTPClient overrides the transport. Defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// Client narrates game events via the OpenAI Responses API.
type Client struct {
	cfg Config
}

// NewClient builds a narration client.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	if strings.TrimSpace(cfg.ResponsesURL) == "" {
		cfg.ResponsesURL = defaultResponsesURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	return &Client{cfg: cfg}, nil
}

// Narrate requests one short piece of descriptive text for the event. It
// honors ctx cancellation and deadlines.
func (c *Client) Narrate(ctx context.Context, ev game.NarrationEvent) (string, error) {
	requestBody, err := json.Marshal(map[string]any{
		"model": c.cfg.Model,
		"input": buildPrompt(ev),
	})
	if err != nil {
		return "", fmt.Errorf("marshal narration request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ResponsesURL, bytes.NewReader(requestBody))
	if err != nil {
		return "", fmt.Errorf("build narration request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// The key is sent only as an Authorization header and never echoed into
	// errors or log lines.
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	res, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("narration request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, readErr := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		if readErr != nil {
			return "", fmt.Errorf("narration status %d", res.StatusCode)
		}
		return "", fmt.Errorf("narration status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		OutputText string `json:"output_text"`
		Output     []struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode narration response: %w", err)
	}

	text := strings.TrimSpace(payload.OutputText)
	if text == "" {
		for _, item := range payload.Output {
			for _, content := range item.Content {
				if t := strings.TrimSpace(content.Text); t != "" {
					text = t
					break
				}
			}
			if text != "" {
				break
			}
		}
	}
	if text == "" {
		return "", fmt.Errorf("narration response contained no text")
	}
	return text, nil
}

// buildPrompt renders the event into a short instruction. The schema is
// deliberately loose; the game only needs one atmospheric sentence or two.
func buildPrompt(ev game.NarrationEvent) string {
	var b strings.Builder
	b.WriteString("You narrate a turn-based space exploration game. ")
	b.WriteString("Write one or two atmospheric sentences for the ship log. ")
	b.WriteString("No headings, no quotes.\n")
	fmt.Fprintf(&b, "Turn %d, action: %s.", ev.Turn, ev.Verb)
	if ev.Subject != "" {
		fmt.Fprintf(&b, " Subject: %s.", ev.Subject)
	}
	if ev.Detail != "" {
		fmt.Fprintf(&b, " Details: %s", ev.Detail)
	}
	return b.String()
}
