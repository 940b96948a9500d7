package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/MegaGrindStone/market-web-ui/internal/models"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// AlphaVantage fetches quotes from the Alpha Vantage REST API. The latest quote and the compact
// daily series are requested concurrently.
type AlphaVantage struct {
	apiKey  string
	baseURL string

	client *http.Client

	logger *slog.Logger
}

type avGlobalQuote struct {
	Quote struct {
		Symbol        string `json:"01. symbol"`
		Price         string `json:"05. price"`
		Volume        string `json:"06. volume"`
		Change        string `json:"09. change"`
		ChangePercent string `json:"10. change percent"`
	} `json:"Global Quote"`
}

type avDailySeries struct {
	Series map[string]struct {
		Close  string `json:"4. close"`
		Volume string `json:"5. volume"`
	} `json:"Time Series (Daily)"`
}

const (
	alphaVantageAPIEndpoint = "https://www.alphavantage.co"
	alphaVantageDateLayout  = "2006-01-02"
	alphaVantageChartLength = 30
)

// NewAlphaVantage creates an AlphaVantage client. An empty baseURL selects the public endpoint.
// The API key is checked on every call so a missing key fails before any request is sent.
func NewAlphaVantage(apiKey, baseURL, proxyURL string, logger *slog.Logger) AlphaVantage {
	if baseURL == "" {
		baseURL = alphaVantageAPIEndpoint
	}
	return AlphaVantage{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  newHTTPClient(proxyURL),
		logger:  logger.With(slog.String("module", "alphavantage")),
	}
}

// Name implements coordinator.QuoteProvider.
func (a AlphaVantage) Name() string { return "alphavantage" }

// Quote implements coordinator.QuoteProvider. Missing numeric fields are read as zero; only a
// response with neither a quote nor a series is a format error.
func (a AlphaVantage) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	if a.apiKey == "" {
		return models.Quote{}, models.ConfigurationError(
			"Missing Alpha Vantage API key. Please set ALPHA_VANTAGE_API_KEY in your .env file.")
	}

	var gq avGlobalQuote
	var daily avDailySeries

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.query(gctx, url.Values{
			"function": {"GLOBAL_QUOTE"},
			"symbol":   {symbol},
		}, &gq)
	})
	g.Go(func() error {
		return a.query(gctx, url.Values{
			"function":   {"TIME_SERIES_DAILY"},
			"symbol":     {symbol},
			"outputsize": {"compact"},
		}, &daily)
	})
	if err := g.Wait(); err != nil {
		return models.Quote{}, err
	}

	if gq.Quote.Price == "" && len(daily.Series) == 0 {
		return models.Quote{}, models.FormatError(nil, "Alpha Vantage returned no data for %s", symbol)
	}

	dates := make([]string, 0, len(daily.Series))
	for d := range daily.Series {
		dates = append(dates, d)
	}
	slices.Sort(dates)
	if len(dates) > alphaVantageChartLength {
		dates = dates[len(dates)-alphaVantageChartLength:]
	}

	points := make([]models.ChartPoint, 0, len(dates))
	for _, d := range dates {
		ts, err := time.Parse(alphaVantageDateLayout, d)
		if err != nil {
			a.logger.Warn("Skipping sample with bad date", slog.String("date", d))
			continue
		}
		bar := daily.Series[d]
		price, ok := parseNumber(bar.Close)
		if !ok {
			continue
		}
		vol, _ := parseNumber(bar.Volume)
		points = append(points, models.ChartPoint{Timestamp: ts, Price: price, Volume: vol})
	}

	q := models.Quote{
		Symbol:      symbol,
		MarketCap:   "N/A",
		ChartPoints: points,
	}
	q.Price, _ = parseNumber(gq.Quote.Price)
	q.Volume, _ = parseNumber(gq.Quote.Volume)
	q.Change, _ = parseNumber(gq.Quote.Change)
	q.ChangePercent, _ = parseNumber(strings.TrimSuffix(strings.TrimSpace(gq.Quote.ChangePercent), "%"))
	if len(points) > 0 {
		last := points[len(points)-1]
		if q.Price == 0 {
			q.Price = last.Price
		}
		if q.Volume == 0 {
			q.Volume = last.Volume
		}
	}
	return q, nil
}

func (a AlphaVantage) query(ctx context.Context, params url.Values, v any) error {
	params.Set("apikey", a.apiKey)
	endpoint := fmt.Sprintf("%s/query?%s", a.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		// The request URL carries the API key, so the cause stays out of the message.
		return models.TransportError(err, "Could not reach Alpha Vantage. Please check your connection.")
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return statusError("Alpha Vantage", resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.TransportError(err, "error reading Alpha Vantage response: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return models.FormatError(err, "error decoding Alpha Vantage response: %v", err)
	}
	// Rate limits and bad symbols come back as 200 with a single explanatory field.
	for _, key := range []string{"Error Message", "Note", "Information"} {
		if msg, ok := raw[key]; ok {
			var text string
			_ = json.Unmarshal(msg, &text)
			return models.TransportError(nil, "Alpha Vantage: %s", text)
		}
	}

	if err := json.Unmarshal(body, v); err != nil {
		return models.FormatError(err, "unexpected Alpha Vantage payload: %v", err)
	}
	return nil
}

// parseNumber reads a decimal string as float64. Blank or malformed input reports false.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	return d.InexactFloat64(), true
}
