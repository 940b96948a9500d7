package handlers

import (
	"bytes"
	"fmt"
	"html/template"
	"math"
	"strings"
	"time"

	"github.com/MegaGrindStone/market-web-ui/internal/coordinator"
	"github.com/MegaGrindStone/market-web-ui/internal/models"
	"github.com/yuin/goldmark"
)

type searchView struct {
	State    coordinator.SurfaceState
	Quote    models.Quote
	HasQuote bool
	Chart    chartView
	Stocks   []string
}

type chatView struct {
	State       coordinator.SurfaceState
	Messages    []models.Message
	Suggestions []string
}

// chartView is the price history as an SVG polyline in a Width x Height box.
type chartView struct {
	Width  int
	Height int
	Points string
	Up     bool
}

const (
	chartWidth  = 600
	chartHeight = 160
)

func (m Main) searchView(sess *session) searchView {
	q, ok := sess.coord.Snapshot()
	return searchView{
		State:    sess.coord.SearchState(),
		Quote:    q,
		HasQuote: ok,
		Chart:    newChartView(q.ChartPoints),
		Stocks:   m.opts.DefaultStocks,
	}
}

func (m Main) chatView(sess *session) chatView {
	return chatView{
		State:       sess.coord.ChatState(),
		Messages:    sess.coord.Messages(),
		Suggestions: m.opts.Suggestions,
	}
}

func newChartView(points []models.ChartPoint) chartView {
	cv := chartView{Width: chartWidth, Height: chartHeight}
	if len(points) < 2 {
		return cv
	}

	low, high := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		low = math.Min(low, p.Price)
		high = math.Max(high, p.Price)
	}
	span := high - low
	if span == 0 {
		span = 1
	}

	var sb strings.Builder
	step := float64(chartWidth) / float64(len(points)-1)
	for i, p := range points {
		if i > 0 {
			sb.WriteByte(' ')
		}
		x := float64(i) * step
		y := float64(chartHeight) - (p.Price-low)/span*float64(chartHeight)
		fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
	}
	cv.Points = sb.String()
	cv.Up = points[len(points)-1].Price >= points[0].Price
	return cv
}

func templateFuncs(md goldmark.Markdown) template.FuncMap {
	return template.FuncMap{
		"markdown": func(s string) template.HTML {
			var buf bytes.Buffer
			if err := md.Convert([]byte(s), &buf); err != nil {
				return template.HTML(template.HTMLEscapeString(s))
			}
			// Raw HTML in the source is omitted by the default renderer.
			return template.HTML(buf.String())
		},
		"price": func(f float64) string {
			return fmt.Sprintf("₹%.2f", f)
		},
		"signed": func(f float64) string {
			return fmt.Sprintf("%+.2f", f)
		},
		"volume":  formatVolume,
		"clock":   func(t time.Time) string { return t.Format("15:04") },
		"isError": func(s coordinator.SurfaceState) bool { return s.State == coordinator.StateError },
	}
}

// formatVolume abbreviates a share count in the Indian numbering system.
func formatVolume(v float64) string {
	switch {
	case v >= 1e7:
		return fmt.Sprintf("%.2f Cr", v/1e7)
	case v >= 1e5:
		return fmt.Sprintf("%.2f L", v/1e5)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}

// marketStatus reports whether the NSE cash session is open at now.
type marketStatus struct {
	Open  bool
	Label string
}

var ist = time.FixedZone("IST", 5*60*60+30*60)

const (
	marketOpenMinute  = 9*60 + 15
	marketCloseMinute = 15*60 + 30
)

func newMarketStatus(now time.Time) marketStatus {
	t := now.In(ist)
	minute := t.Hour()*60 + t.Minute()
	weekday := t.Weekday() != time.Saturday && t.Weekday() != time.Sunday
	if weekday && minute >= marketOpenMinute && minute < marketCloseMinute {
		return marketStatus{Open: true, Label: "Market open"}
	}
	return marketStatus{Label: "Market closed (09:15–15:30 IST, Mon–Fri)"}
}
