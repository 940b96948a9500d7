package services_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MegaGrindStone/market-web-ui/internal/models"
	"github.com/MegaGrindStone/market-web-ui/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPrompt() models.Prompt {
	return models.Prompt{
		Message:       "Should I invest in Reliance Industries?",
		Locale:        "en-IN",
		Timestamp:     time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		ClientVersion: "1.0.0",
		Viewing:       "RELIANCE.NS",
		History: []models.Message{
			{Role: models.RoleAssistant, Text: "Namaste!"},
			{Role: models.RoleUser, Text: "Hi"},
			{Role: models.RoleAssistant, Text: "Hello there"},
		},
	}
}

func countingServer(t *testing.T, h http.HandlerFunc) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

const avGlobalQuoteBody = `{"Global Quote": {
	"01. symbol": "TCS.NS",
	"05. price": "3500.4567",
	"06. volume": "120000",
	"09. change": "35.5",
	"10. change percent": "1.0248%"
}}`

func avSeriesBody(days int) string {
	var sb strings.Builder
	sb.WriteString(`{"Time Series (Daily)": {`)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range days {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, `"%s": {"4. close": "%d.00", "5. volume": "%d"}`,
			start.AddDate(0, 0, i).Format("2006-01-02"), 3000+i, 1000+i)
	}
	sb.WriteString("}}")
	return sb.String()
}

func TestAlphaVantageQuote(t *testing.T) {
	srv, hits := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/query", r.URL.Path)
		assert.Equal(t, "TCS.NS", r.URL.Query().Get("symbol"))
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))
		switch r.URL.Query().Get("function") {
		case "GLOBAL_QUOTE":
			fmt.Fprint(w, avGlobalQuoteBody)
		case "TIME_SERIES_DAILY":
			assert.Equal(t, "compact", r.URL.Query().Get("outputsize"))
			fmt.Fprint(w, avSeriesBody(45))
		default:
			t.Errorf("unexpected function %q", r.URL.Query().Get("function"))
		}
	})

	av := services.NewAlphaVantage("test-key", srv.URL, "", discardLogger())
	q, err := av.Quote(context.Background(), "TCS.NS")
	require.NoError(t, err)

	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, "TCS.NS", q.Symbol)
	assert.InDelta(t, 3500.4567, q.Price, 1e-9)
	assert.InDelta(t, 35.5, q.Change, 1e-9)
	assert.InDelta(t, 1.0248, q.ChangePercent, 1e-9)
	assert.InDelta(t, 120000, q.Volume, 1e-9)

	require.Len(t, q.ChartPoints, 30)
	assert.InDelta(t, 3015, q.ChartPoints[0].Price, 1e-9)
	assert.InDelta(t, 3044, q.ChartPoints[29].Price, 1e-9)
	for i := 1; i < len(q.ChartPoints); i++ {
		assert.True(t, q.ChartPoints[i-1].Timestamp.Before(q.ChartPoints[i].Timestamp))
	}
}

func TestAlphaVantageFallsBackToSeries(t *testing.T) {
	srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("function") == "GLOBAL_QUOTE" {
			fmt.Fprint(w, `{"Global Quote": {}}`)
			return
		}
		fmt.Fprint(w, avSeriesBody(3))
	})

	av := services.NewAlphaVantage("test-key", srv.URL, "", discardLogger())
	q, err := av.Quote(context.Background(), "TCS.NS")
	require.NoError(t, err)
	assert.InDelta(t, 3002, q.Price, 1e-9)
	assert.InDelta(t, 1002, q.Volume, 1e-9)
}

func TestAlphaVantageMissingKey(t *testing.T) {
	srv, hits := countingServer(t, func(http.ResponseWriter, *http.Request) {})

	av := services.NewAlphaVantage("", srv.URL, "", discardLogger())
	_, err := av.Quote(context.Background(), "TCS.NS")
	require.Error(t, err)
	assert.Equal(t, models.KindConfiguration, models.KindOf(err))
	assert.Contains(t, err.Error(), "ALPHA_VANTAGE_API_KEY")
	assert.Zero(t, hits.Load(), "no request may be sent without a key")
}

func TestAlphaVantageErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind models.ErrorKind
	}{
		{
			name:     "Rate limit note",
			status:   http.StatusOK,
			body:     `{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute."}`,
			wantKind: models.KindTransport,
		},
		{
			name:     "Invalid symbol",
			status:   http.StatusOK,
			body:     `{"Error Message": "Invalid API call."}`,
			wantKind: models.KindTransport,
		},
		{
			name:     "Information",
			status:   http.StatusOK,
			body:     `{"Information": "premium endpoint"}`,
			wantKind: models.KindTransport,
		},
		{
			name:     "Server error",
			status:   http.StatusInternalServerError,
			body:     "boom",
			wantKind: models.KindTransport,
		},
		{
			name:     "Not JSON",
			status:   http.StatusOK,
			body:     "<html>",
			wantKind: models.KindFormat,
		},
		{
			name:     "No data",
			status:   http.StatusOK,
			body:     `{}`,
			wantKind: models.KindFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := countingServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			av := services.NewAlphaVantage("test-key", srv.URL, "", discardLogger())
			_, err := av.Quote(context.Background(), "TCS.NS")
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, models.KindOf(err))
			assert.NotContains(t, err.Error(), "test-key")
		})
	}
}

func TestYahooQuote(t *testing.T) {
	srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/RELIANCE.BO", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		fmt.Fprint(w, `{"chart": {"result": [{
			"meta": {"symbol": "RELIANCE.BO", "regularMarketPrice": 2510, "chartPreviousClose": 2490,
				"regularMarketVolume": 5000},
			"timestamp": [1704067200, 1704153600, 1704240000],
			"indicators": {"quote": [{"close": [2480, null, 2520], "volume": [100, null, 300]}]}
		}], "error": null}}`)
	})

	y := services.NewYahoo(srv.URL, "", discardLogger())
	q, err := y.Quote(context.Background(), "RELIANCE.BSE")
	require.NoError(t, err)

	assert.Equal(t, "RELIANCE.BSE", q.Symbol)
	assert.InDelta(t, 2510, q.Price, 1e-9)
	assert.InDelta(t, 20, q.Change, 1e-9)
	assert.InDelta(t, 20.0/2490*100, q.ChangePercent, 1e-9)
	require.Len(t, q.ChartPoints, 2, "null samples are skipped")
	assert.InDelta(t, 2520, q.High52Week, 1e-9)
	assert.InDelta(t, 2480, q.Low52Week, 1e-9)
}

func TestYahooErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind models.ErrorKind
	}{
		{
			name:     "Unknown symbol",
			status:   http.StatusNotFound,
			body:     `{"chart": {"result": null, "error": {"code": "Not Found", "description": "No data found"}}}`,
			wantKind: models.KindTransport,
		},
		{
			name:     "Gateway error",
			status:   http.StatusBadGateway,
			body:     "bad gateway",
			wantKind: models.KindTransport,
		},
		{
			name:     "Garbage",
			status:   http.StatusOK,
			body:     "not json",
			wantKind: models.KindFormat,
		},
		{
			name:     "Empty result",
			status:   http.StatusOK,
			body:     `{"chart": {"result": []}}`,
			wantKind: models.KindFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := countingServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			y := services.NewYahoo(srv.URL, "", discardLogger())
			_, err := y.Quote(context.Background(), "TCS.NS")
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, models.KindOf(err))
		})
	}
}

func TestDemoQuotesDeterministic(t *testing.T) {
	now := func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	d := services.NewDemoQuotes(now)

	a, err := d.Quote(context.Background(), "INFY.NS")
	require.NoError(t, err)
	b, err := d.Quote(context.Background(), "INFY.NS")
	require.NoError(t, err)
	c, err := d.Quote(context.Background(), "TCS.NS")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a.Price, c.Price)
	assert.Len(t, a.ChartPoints, 30)
	assert.Positive(t, a.Price)
	assert.Equal(t, a.ChartPoints[29].Price, a.Price)
}

func TestOpenAIAsk(t *testing.T) {
	srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		if assert.Len(t, req.Messages, 5) {
			assert.Equal(t, "system", req.Messages[0].Role)
			assert.Contains(t, req.Messages[0].Content, "RELIANCE.NS")
			assert.Contains(t, req.Messages[0].Content, "en-IN")
			assert.Equal(t, "user", req.Messages[4].Role)
			assert.Equal(t, "Should I invest in Reliance Industries?", req.Messages[4].Content)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": "x", "object": "chat.completion", "model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant",
			"content": "Consider diversified exposure."}, "finish_reason": "stop"}],
			"usage": {"total_tokens": 12}}`)
	})

	temp := float32(0.7)
	o := services.NewOpenAI("sk-test", srv.URL, "gpt-4o-mini", "You are a stock advisor.", "",
		services.LLMParameters{Temperature: &temp, MaxTokens: 500}, discardLogger())
	reply, err := o.Ask(context.Background(), testPrompt())
	require.NoError(t, err)
	assert.Equal(t, "Consider diversified exposure.", reply)
}

func TestOpenAIErrors(t *testing.T) {
	t.Run("Missing key", func(t *testing.T) {
		srv, hits := countingServer(t, func(http.ResponseWriter, *http.Request) {})
		o := services.NewOpenAI("", srv.URL, "gpt-4o-mini", "", "", services.LLMParameters{}, discardLogger())
		_, err := o.Ask(context.Background(), testPrompt())
		require.Error(t, err)
		assert.Equal(t, models.KindConfiguration, models.KindOf(err))
		assert.Contains(t, err.Error(), "OPENAI_API_KEY")
		assert.Zero(t, hits.Load())
	})

	t.Run("API error", func(t *testing.T) {
		srv, _ := countingServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error": {"message": "Incorrect API key provided", "type": "invalid_request_error"}}`)
		})
		o := services.NewOpenAI("sk-bad", srv.URL, "gpt-4o-mini", "", "", services.LLMParameters{}, discardLogger())
		_, err := o.Ask(context.Background(), testPrompt())
		require.Error(t, err)
		assert.Equal(t, models.KindTransport, models.KindOf(err))
		assert.Contains(t, err.Error(), "401")
	})

	t.Run("No choices", func(t *testing.T) {
		srv, _ := countingServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"id": "x", "choices": []}`)
		})
		o := services.NewOpenAI("sk-test", srv.URL, "gpt-4o-mini", "", "", services.LLMParameters{}, discardLogger())
		_, err := o.Ask(context.Background(), testPrompt())
		require.Error(t, err)
		assert.Equal(t, models.KindFormat, models.KindOf(err))
	})
}

func TestAnthropicAsk(t *testing.T) {
	srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "sk-ant", r.Header.Get("x-api-key"))

		var req struct {
			System    string `json:"system"`
			MaxTokens int    `json:"max_tokens"`
			Messages  []struct {
				Role string `json:"role"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 500, req.MaxTokens)
		assert.Contains(t, req.System, "RELIANCE.NS")
		if assert.NotEmpty(t, req.Messages) {
			assert.Equal(t, "user", req.Messages[0].Role, "leading assistant turns are dropped")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: message_start\ndata: {\"type\":\"message_start\"}\n\n")
		fmt.Fprint(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"text\":\"Consider \"}}\n\n")
		fmt.Fprint(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"text\":\"index funds.\"}}\n\n")
		fmt.Fprint(w, "event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n")
	})

	a := services.NewAnthropic("sk-ant", srv.URL, "claude", "You are a stock advisor.", "",
		services.LLMParameters{}, discardLogger())
	reply, err := a.Ask(context.Background(), testPrompt())
	require.NoError(t, err)
	assert.Equal(t, "Consider index funds.", reply)
}

func TestAnthropicStreamError(t *testing.T) {
	srv, _ := countingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: error\ndata: {\"type\":\"error\",\"error\":{\"type\":\"overloaded_error\",\"message\":\"Overloaded\"}}\n\n")
	})

	a := services.NewAnthropic("sk-ant", srv.URL, "claude", "", "", services.LLMParameters{}, discardLogger())
	_, err := a.Ask(context.Background(), testPrompt())
	require.Error(t, err)
	assert.Equal(t, models.KindTransport, models.KindOf(err))
	assert.Contains(t, err.Error(), "Overloaded")
}

func TestOpenRouterAsk(t *testing.T) {
	srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer or-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"role\":\"assistant\",\"content\":\"Hold \"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"for now.\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	o := services.NewOpenRouter("or-key", srv.URL, "model", "", "", services.LLMParameters{}, discardLogger())
	reply, err := o.Ask(context.Background(), testPrompt())
	require.NoError(t, err)
	assert.Equal(t, "Hold for now.", reply)
}

func TestOpenRouterErrors(t *testing.T) {
	t.Run("Missing key", func(t *testing.T) {
		srv, hits := countingServer(t, func(http.ResponseWriter, *http.Request) {})
		o := services.NewOpenRouter("", srv.URL, "model", "", "", services.LLMParameters{}, discardLogger())
		_, err := o.Ask(context.Background(), testPrompt())
		assert.Equal(t, models.KindConfiguration, models.KindOf(err))
		assert.Zero(t, hits.Load())
	})

	t.Run("Status", func(t *testing.T) {
		srv, _ := countingServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, "slow down")
		})
		o := services.NewOpenRouter("or-key", srv.URL, "model", "", "", services.LLMParameters{}, discardLogger())
		_, err := o.Ask(context.Background(), testPrompt())
		require.Error(t, err)
		assert.Equal(t, models.KindTransport, models.KindOf(err))
		assert.Contains(t, err.Error(), "429")
	})
}

func TestAdvisorsUseProxy(t *testing.T) {
	const upstream = "http://advisor.test/v1"

	tests := []struct {
		name   string
		reply  func(w http.ResponseWriter)
		advise func(proxyURL string) (string, error)
	}{
		{
			name: "OpenAI",
			reply: func(w http.ResponseWriter) {
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, `{"choices": [{"message": {"role": "assistant", "content": "Proxied."}}]}`)
			},
			advise: func(proxyURL string) (string, error) {
				o := services.NewOpenAI("sk-test", upstream, "gpt-4o-mini", "", proxyURL,
					services.LLMParameters{}, discardLogger())
				return o.Ask(context.Background(), testPrompt())
			},
		},
		{
			name: "Anthropic",
			reply: func(w http.ResponseWriter) {
				w.Header().Set("Content-Type", "text/event-stream")
				fmt.Fprint(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"text\":\"Proxied.\"}}\n\n")
				fmt.Fprint(w, "event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n")
			},
			advise: func(proxyURL string) (string, error) {
				a := services.NewAnthropic("sk-ant", upstream, "claude", "", proxyURL,
					services.LLMParameters{}, discardLogger())
				return a.Ask(context.Background(), testPrompt())
			},
		},
		{
			name: "OpenRouter",
			reply: func(w http.ResponseWriter) {
				w.Header().Set("Content-Type", "text/event-stream")
				fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Proxied.\"}}]}\n\n")
				fmt.Fprint(w, "data: [DONE]\n\n")
			},
			advise: func(proxyURL string) (string, error) {
				o := services.NewOpenRouter("or-key", upstream, "model", "", proxyURL,
					services.LLMParameters{}, discardLogger())
				return o.Ask(context.Background(), testPrompt())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proxy, hits := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "advisor.test", r.Host)
				tt.reply(w)
			})

			reply, err := tt.advise(proxy.URL)
			require.NoError(t, err)
			assert.Equal(t, "Proxied.", reply)
			assert.Equal(t, int32(1), hits.Load())
		})
	}
}

func TestOllamaAsk(t *testing.T) {
	srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req struct {
			Model   string         `json:"model"`
			Stream  *bool          `json:"stream"`
			Options map[string]any `json:"options"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3", req.Model)
		if assert.NotNil(t, req.Stream) {
			assert.False(t, *req.Stream)
		}
		assert.InDelta(t, 500, req.Options["num_predict"], 1e-9)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"model":"llama3","message":{"role":"assistant","content":"Diversify."},"done":true}`+"\n")
	})

	o, err := services.NewOllama(srv.URL, "llama3", "", "", services.LLMParameters{MaxTokens: 500}, discardLogger())
	require.NoError(t, err)
	reply, err := o.Ask(context.Background(), testPrompt())
	require.NoError(t, err)
	assert.Equal(t, "Diversify.", reply)
}

func TestNewOllamaInvalidHost(t *testing.T) {
	_, err := services.NewOllama("not a url", "llama3", "", "", services.LLMParameters{}, discardLogger())
	assert.Error(t, err)
}

func TestWebhookAsk(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantReply string
		wantKind  models.ErrorKind
	}{
		{name: "Canonical", status: 200, body: `{"response": "Buy on dips."}`, wantReply: "Buy on dips."},
		{name: "Plain text", status: 200, body: "Buy on dips.", wantReply: "Buy on dips."},
		{name: "JSON string", status: 200, body: `"Buy on dips."`, wantReply: "Buy on dips."},
		{name: "Array", status: 200, body: `[{"response": "Buy on dips."}]`, wantReply: "Buy on dips."},
		{
			name:      "Chat choices",
			status:    200,
			body:      `{"choices": [{"message": {"content": "Buy on dips."}}]}`,
			wantReply: "Buy on dips.",
		},
		{name: "Completion choices", status: 200, body: `{"choices": [{"text": "Buy on dips."}]}`, wantReply: "Buy on dips."},
		{name: "Text field", status: 200, body: `{"text": "Buy on dips."}`, wantReply: "Buy on dips."},
		{name: "Output field", status: 200, body: `{"output": "Buy on dips."}`, wantReply: "Buy on dips."},
		{name: "Empty object", status: 200, body: `{}`, wantKind: models.KindFormat},
		{name: "Empty array", status: 200, body: `[]`, wantKind: models.KindFormat},
		{name: "Blank body", status: 200, body: "", wantKind: models.KindFormat},
		{name: "Server error", status: 500, body: "workflow failed", wantKind: models.KindTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				assert.Equal(t, "XMLHttpRequest", r.Header.Get("X-Requested-With"))

				var req map[string]any
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "Should I invest in Reliance Industries?", req["message"])
				assert.Equal(t, "en-IN", req["locale"])
				assert.Equal(t, "2024-03-01T10:00:00Z", req["timestamp"])

				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			wh := services.NewWebhook(srv.URL, "", discardLogger())
			reply, err := wh.Ask(context.Background(), testPrompt())
			if tt.wantReply != "" {
				require.NoError(t, err)
				assert.Equal(t, tt.wantReply, reply)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, models.KindOf(err))
		})
	}
}

func TestWebhookNotConfigured(t *testing.T) {
	for _, u := range []string{"", "  ", services.WebhookPlaceholderURL} {
		wh := services.NewWebhook(u, "", discardLogger())
		_, err := wh.Ask(context.Background(), testPrompt())
		require.Error(t, err)
		assert.Equal(t, models.KindConfiguration, models.KindOf(err), "url %q", u)
	}
}

func TestProviderHonorsContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	wh := services.NewWebhook(srv.URL, "", discardLogger())
	_, err := wh.Ask(ctx, testPrompt())
	require.Error(t, err)
	assert.Equal(t, models.KindTimeout, models.KindOf(err))
}
