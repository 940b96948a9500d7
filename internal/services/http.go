package services

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MegaGrindStone/market-web-ui/internal/models"
)

const maxErrorBody = 512

// newHTTPClient returns a client routed through proxyURL when it is set. The client carries no
// timeout of its own; every call is bounded by the caller's context.
func newHTTPClient(proxyURL string) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{Transport: transport}
}

// statusError reads a bounded part of a non-2xx response body into a transport error.
func statusError(provider string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return models.TransportError(
		fmt.Errorf("unexpected status code: %d", resp.StatusCode),
		"%s error: %d %s", provider, resp.StatusCode, msg)
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}

// systemMessage appends the request metadata to the configured system prompt so every provider
// sees the same context.
func systemMessage(base string, p models.Prompt) string {
	var sb strings.Builder
	sb.WriteString(base)
	if p.Locale != "" {
		sb.WriteString(fmt.Sprintf("\nRespond for the %s locale.", p.Locale))
	}
	if !p.Timestamp.IsZero() {
		sb.WriteString(fmt.Sprintf("\nCurrent time: %s.", p.Timestamp.Format(time.RFC3339)))
	}
	if p.Viewing != "" {
		sb.WriteString(fmt.Sprintf("\nThe user is currently viewing %s.", p.Viewing))
	}
	return sb.String()
}
