package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MegaGrindStone/market-web-ui/internal/models"
)

// Yahoo fetches quotes from the public Yahoo Finance chart API. It needs no credential.
type Yahoo struct {
	baseURL string

	client *http.Client

	logger *slog.Logger
}

// yahooChart is the response structure of the chart API. Samples may be null on holidays.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string   `json:"symbol"`
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
				ChartPreviousClose *float64 `json:"chartPreviousClose"`
				PreviousClose      *float64 `json:"previousClose"`
				FiftyTwoWeekHigh   *float64 `json:"fiftyTwoWeekHigh"`
				FiftyTwoWeekLow    *float64 `json:"fiftyTwoWeekLow"`
				RegularMarketVol   *float64 `json:"regularMarketVolume"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

const yahooAPIEndpoint = "https://query1.finance.yahoo.com"

// NewYahoo creates a Yahoo Finance client. An empty baseURL selects the public endpoint.
func NewYahoo(baseURL, proxyURL string, logger *slog.Logger) Yahoo {
	if baseURL == "" {
		baseURL = yahooAPIEndpoint
	}
	return Yahoo{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  newHTTPClient(proxyURL),
		logger:  logger.With(slog.String("module", "yahoo")),
	}
}

// Name implements coordinator.QuoteProvider.
func (y Yahoo) Name() string { return "yahoo" }

// yahooSymbol maps the exchange suffix to Yahoo's convention, which lists BSE as ".BO".
func yahooSymbol(symbol string) string {
	if base, ok := strings.CutSuffix(symbol, ".BSE"); ok {
		return base + ".BO"
	}
	return symbol
}

// Quote implements coordinator.QuoteProvider. One year of daily bars is requested so the
// 52-week range can be computed when the metadata lacks it.
func (y Yahoo) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=1y",
		y.baseURL, url.PathEscape(yahooSymbol(symbol)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return models.Quote{}, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := y.client.Do(req)
	if err != nil {
		return models.Quote{}, models.TransportError(err, "Yahoo Finance request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Quote{}, models.TransportError(err, "error reading Yahoo Finance response: %v", err)
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		if !isSuccess(resp.StatusCode) {
			return models.Quote{}, models.TransportError(nil, "Yahoo Finance error: %d", resp.StatusCode)
		}
		return models.Quote{}, models.FormatError(err, "error decoding Yahoo Finance response: %v", err)
	}
	if chart.Chart.Error != nil {
		return models.Quote{}, models.TransportError(nil, "Yahoo Finance: %s", chart.Chart.Error.Description)
	}
	if !isSuccess(resp.StatusCode) {
		return models.Quote{}, models.TransportError(nil, "Yahoo Finance error: %d", resp.StatusCode)
	}
	if len(chart.Chart.Result) == 0 {
		return models.Quote{}, models.FormatError(nil, "Yahoo Finance returned no data for %s", symbol)
	}

	result := chart.Chart.Result[0]
	var closes, volumes []*float64
	if len(result.Indicators.Quote) > 0 {
		closes = result.Indicators.Quote[0].Close
		volumes = result.Indicators.Quote[0].Volume
	}

	points := make([]models.ChartPoint, 0, len(result.Timestamp))
	high, low := math.Inf(-1), math.Inf(1)
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue // null bars on holidays
		}
		p := models.ChartPoint{Timestamp: time.Unix(ts, 0).UTC(), Price: *closes[i]}
		if i < len(volumes) && volumes[i] != nil {
			p.Volume = *volumes[i]
		}
		high = math.Max(high, p.Price)
		low = math.Min(low, p.Price)
		points = append(points, p)
	}

	meta := result.Meta
	q := models.Quote{
		Symbol:      symbol,
		MarketCap:   "N/A",
		Price:       deref(meta.RegularMarketPrice),
		Volume:      deref(meta.RegularMarketVol),
		ChartPoints: points,
	}
	if len(points) > 0 {
		q.High52Week, q.Low52Week = high, low
	}
	if meta.FiftyTwoWeekHigh != nil && meta.FiftyTwoWeekLow != nil {
		q.High52Week, q.Low52Week = *meta.FiftyTwoWeekHigh, *meta.FiftyTwoWeekLow
	}
	if q.Price == 0 && len(points) > 0 {
		q.Price = points[len(points)-1].Price
	}

	prev := deref(meta.ChartPreviousClose)
	if meta.PreviousClose != nil {
		prev = *meta.PreviousClose
	}
	if prev == 0 && len(points) > 1 {
		prev = points[len(points)-2].Price
	}
	if prev > 0 && q.Price > 0 {
		q.Change = q.Price - prev
		q.ChangePercent = q.Change / prev * 100
	}

	if q.Price == 0 && len(points) == 0 {
		return models.Quote{}, models.FormatError(nil, "Yahoo Finance returned no prices for %s", symbol)
	}
	return q, nil
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
