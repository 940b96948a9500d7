package services

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/MegaGrindStone/market-web-ui/internal/models"
)

// DemoQuotes serves deterministic quotes derived from the symbol, for running the dashboard
// without a market data account. The same symbol on the same day always yields the same
// snapshot.
type DemoQuotes struct {
	now func() time.Time
}

// NewDemoQuotes creates a DemoQuotes. A nil now uses time.Now.
func NewDemoQuotes(now func() time.Time) DemoQuotes {
	if now == nil {
		now = time.Now
	}
	return DemoQuotes{now: now}
}

// Name implements coordinator.QuoteProvider.
func (d DemoQuotes) Name() string { return "demo" }

// Quote implements coordinator.QuoteProvider.
func (d DemoQuotes) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	if err := ctx.Err(); err != nil {
		return models.Quote{}, err
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(symbol))
	seed := h.Sum32()

	base := 100 + float64(seed%4900)
	// Drift between -3% and +3% over the window.
	drift := (float64(seed%601) - 300) / 10000
	today := d.now().UTC().Truncate(24 * time.Hour)

	const count = 30
	points := make([]models.ChartPoint, count)
	for i := range count {
		p := base * (1 + drift*float64(i-count/2)/float64(count/2))
		points[i] = models.ChartPoint{
			Timestamp: today.AddDate(0, 0, -(count - 1 - i)),
			Price:     p,
			Volume:    float64(500000 + (seed>>8)%500000 + uint32(i)*1000),
		}
	}

	last, prev := points[count-1], points[count-2]
	change := last.Price - prev.Price
	return models.Quote{
		Symbol:        symbol,
		Price:         last.Price,
		Change:        change,
		ChangePercent: change / prev.Price * 100,
		Volume:        last.Volume,
		MarketCap:     "N/A",
		ChartPoints:   points,
	}, nil
}
