package models

import "time"

// Quote is the snapshot of a single ticker as last fetched from the quote provider. A Quote is
// replaced wholesale by the next successful fetch and never mutated in place.
type Quote struct {
	Symbol        string
	Price         float64
	Change        float64
	ChangePercent float64
	Volume        float64
	MarketCap     string

	High52Week float64
	Low52Week  float64

	// ChartPoints is ordered by non-decreasing Timestamp.
	ChartPoints []ChartPoint

	Fundamentals Fundamentals
	Insight      Insight

	FetchedAt time.Time
}

// ChartPoint is one daily sample of the snapshot's historical series.
type ChartPoint struct {
	Timestamp time.Time
	Price     float64
	Volume    float64
}

// Fundamentals holds the valuation figures of a ticker. Providers that cannot supply them leave
// the zero value, which the dashboard renders as unavailable.
type Fundamentals struct {
	PERatio              float64
	EPS                  float64
	ROEPercent           float64
	DebtToEquity         float64
	DividendYieldPercent float64
}

// Insight is the short-term momentum reading derived from a snapshot.
type Insight struct {
	Recommendation Recommendation
	Reason         string
	Risk           RiskLevel
	Pros           []string
	Cons           []string
}

// Recommendation is the suggested action for a ticker.
type Recommendation string

// RiskLevel grades short-term volatility.
type RiskLevel string

const (
	// RecommendationBuy is suggested on strong positive momentum.
	RecommendationBuy Recommendation = "Buy"
	// RecommendationHold is suggested when the trend is neutral.
	RecommendationHold Recommendation = "Hold"
	// RecommendationSell is suggested on strong negative momentum.
	RecommendationSell Recommendation = "Sell"

	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)
