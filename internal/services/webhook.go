package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MegaGrindStone/market-web-ui/internal/models"
)

// Webhook forwards chat prompts to an automation workflow endpoint (an n8n webhook, for example)
// and extracts the reply from whatever shape the workflow returns.
type Webhook struct {
	url string

	client *http.Client

	logger *slog.Logger
}

type webhookRequest struct {
	Message       string           `json:"message"`
	Locale        string           `json:"locale,omitempty"`
	Timestamp     string           `json:"timestamp"`
	ClientVersion string           `json:"clientVersion,omitempty"`
	Viewing       string           `json:"viewing,omitempty"`
	History       []webhookHistory `json:"history,omitempty"`
}

type webhookHistory struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// WebhookPlaceholderURL is the value shipped in sample configuration files. It is treated as
// unset.
const WebhookPlaceholderURL = "YOUR_N8N_WEBHOOK_URL"

// NewWebhook creates a Webhook client posting to url.
func NewWebhook(url, proxyURL string, logger *slog.Logger) Webhook {
	return Webhook{
		url:    strings.TrimSpace(url),
		client: newHTTPClient(proxyURL),
		logger: logger.With(slog.String("module", "webhook")),
	}
}

// Name implements coordinator.Advisor.
func (w Webhook) Name() string { return "webhook" }

// Ask implements coordinator.Advisor.
func (w Webhook) Ask(ctx context.Context, prompt models.Prompt) (string, error) {
	if w.url == "" || w.url == WebhookPlaceholderURL {
		return "", models.ConfigurationError(
			"AI advisor webhook is not configured. Please set ADVISOR_WEBHOOK_URL in your .env file.")
	}

	reqBody := webhookRequest{
		Message:       prompt.Message,
		Locale:        prompt.Locale,
		Timestamp:     prompt.Timestamp.UTC().Format(time.RFC3339),
		ClientVersion: prompt.ClientVersion,
		Viewing:       prompt.Viewing,
	}
	for _, msg := range prompt.History {
		reqBody.History = append(reqBody.History, webhookHistory{Role: string(msg.Role), Text: msg.Text})
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", models.ConfigurationError("Invalid ADVISOR_WEBHOOK_URL: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := w.client.Do(req)
	if err != nil {
		return "", models.TransportError(err, "Could not reach the AI advisor. Please check your connection.")
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return "", statusError("AI advisor", resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", models.TransportError(err, "error reading response: %v", err)
	}

	reply, err := extractReply(body)
	if err != nil {
		w.logger.Warn("Unrecognized webhook reply", slog.String("body", truncate(string(body), maxErrorBody)))
		return "", err
	}
	return reply, nil
}

// extractReply reads the reply text out of a workflow response. The canonical shape is
// {"response": "..."}; plain text, JSON strings, single-element arrays and OpenAI-style choices
// are accepted too.
func extractReply(body []byte) (string, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return "", models.FormatError(nil, "empty reply")
	}

	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		// Not JSON at all: the workflow answered in plain text.
		return string(trimmed), nil
	}

	if arr, ok := v.([]any); ok {
		if len(arr) == 0 {
			return "", models.FormatError(nil, "empty reply array")
		}
		v = arr[0]
	}

	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return s, nil
		}
	case map[string]any:
		if s, ok := replyField(t); ok {
			return s, nil
		}
	}
	return "", models.FormatError(nil, "no reply text in response")
}

func replyField(obj map[string]any) (string, bool) {
	if s, ok := nonBlank(obj["response"]); ok {
		return s, true
	}
	if choices, ok := obj["choices"].([]any); ok && len(choices) > 0 {
		if choice, ok := choices[0].(map[string]any); ok {
			if msg, ok := choice["message"].(map[string]any); ok {
				if s, ok := nonBlank(msg["content"]); ok {
					return s, true
				}
			}
			if s, ok := nonBlank(choice["text"]); ok {
				return s, true
			}
		}
	}
	for _, key := range []string{"text", "output"} {
		if s, ok := nonBlank(obj[key]); ok {
			return s, true
		}
	}
	return "", false
}

func nonBlank(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
