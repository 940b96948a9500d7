// Package analysis turns raw provider output into consistent quote snapshots and derives the
// momentum insight shown next to them.
package analysis

import (
	"math"
	"slices"

	"github.com/MegaGrindStone/market-web-ui/internal/models"
	"github.com/shopspring/decimal"
)

// MaxChartPoints bounds the chart series of a snapshot to the most recent sessions.
const MaxChartPoints = 30

// Normalize returns a copy of q that satisfies the snapshot invariants: chart points ordered by
// timestamp and bounded to the newest MaxChartPoints, no negative or non-finite price and volume,
// and 52-week high >= low >= 0. When the provider did not report a usable 52-week range it is
// approximated from the chart window, falling back to the last price. Monetary figures are
// rounded to two decimals and the insight is recomputed.
func Normalize(q models.Quote) models.Quote {
	points := make([]models.ChartPoint, 0, len(q.ChartPoints))
	for _, p := range q.ChartPoints {
		if !finite(p.Price) || p.Price < 0 {
			continue
		}
		p.Price = Round2(p.Price)
		p.Volume = nonNegative(p.Volume)
		points = append(points, p)
	}
	slices.SortStableFunc(points, func(a, b models.ChartPoint) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	if len(points) > MaxChartPoints {
		points = points[len(points)-MaxChartPoints:]
	}
	q.ChartPoints = points

	q.Price = Round2(nonNegative(q.Price))
	if q.Price == 0 && len(points) > 0 {
		q.Price = points[len(points)-1].Price
	}
	q.Volume = nonNegative(q.Volume)
	if q.Volume == 0 && len(points) > 0 {
		q.Volume = points[len(points)-1].Volume
	}
	q.Change = Round2(finiteOrZero(q.Change))
	q.ChangePercent = Round2(finiteOrZero(q.ChangePercent))

	q.High52Week, q.Low52Week = yearRange(q)
	if q.MarketCap == "" {
		q.MarketCap = "N/A"
	}
	q.Insight = Assess(q)

	return q
}

func yearRange(q models.Quote) (float64, float64) {
	high, low := q.High52Week, q.Low52Week
	if finite(high) && finite(low) && low >= 0 && high > 0 && high >= low {
		return Round2(high), Round2(low)
	}
	if len(q.ChartPoints) == 0 {
		return q.Price, q.Price
	}
	high, low = q.ChartPoints[0].Price, q.ChartPoints[0].Price
	for _, p := range q.ChartPoints[1:] {
		high = math.Max(high, p.Price)
		low = math.Min(low, p.Price)
	}
	return high, low
}

// Round2 rounds f half away from zero to two decimal places.
func Round2(f float64) float64 {
	if !finite(f) {
		return 0
	}
	return decimal.NewFromFloat(f).Round(2).InexactFloat64()
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func finiteOrZero(f float64) float64 {
	if !finite(f) {
		return 0
	}
	return f
}

func nonNegative(f float64) float64 {
	if !finite(f) || f < 0 {
		return 0
	}
	return f
}
