package analysis

import (
	"math"

	"github.com/MegaGrindStone/market-web-ui/internal/models"
)

const (
	buyThreshold  = 1.5
	sellThreshold = -1.5

	highRiskThreshold   = 2.5
	mediumRiskThreshold = 1.2

	momentumThreshold = 1.0
)

var recommendationReasons = map[models.Recommendation]string{
	models.RecommendationBuy:  "Positive momentum and strong short-term trend. Consider proper risk management.",
	models.RecommendationHold: "Neutral trend. Consider waiting for clearer signals or fundamental confirmation.",
	models.RecommendationSell: "Negative momentum detected. Consider reducing exposure or wait for stabilization.",
}

// Assess grades the session's percent change into a recommendation, a risk level and a short
// list of pros and cons.
func Assess(q models.Quote) models.Insight {
	cp := q.ChangePercent

	rec := models.RecommendationHold
	switch {
	case cp > buyThreshold:
		rec = models.RecommendationBuy
	case cp < sellThreshold:
		rec = models.RecommendationSell
	}

	risk := models.RiskLow
	switch abs := math.Abs(cp); {
	case abs > highRiskThreshold:
		risk = models.RiskHigh
	case abs > mediumRiskThreshold:
		risk = models.RiskMedium
	}

	in := models.Insight{
		Recommendation: rec,
		Reason:         recommendationReasons[rec],
		Risk:           risk,
		Pros:           []string{},
		Cons:           []string{},
	}
	if cp > momentumThreshold {
		in.Pros = append(in.Pros, "Price showing upward momentum")
	}
	if cp < -momentumThreshold {
		in.Cons = append(in.Cons, "Short-term downward pressure")
	}
	switch risk {
	case models.RiskLow:
		in.Pros = append(in.Pros, "Lower short-term volatility")
	case models.RiskHigh:
		in.Cons = append(in.Cons, "Elevated volatility risk")
	}
	return in
}
