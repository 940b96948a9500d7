package models

import (
	"fmt"
	"strings"
)

// Exchange is an Indian stock exchange a bare ticker can be resolved against.
type Exchange string

const (
	ExchangeNSE Exchange = "NSE"
	ExchangeBSE Exchange = "BSE"
)

// ParseExchange parses an exchange name case-insensitively. An empty name resolves to NSE.
func ParseExchange(s string) (Exchange, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "NSE":
		return ExchangeNSE, nil
	case "BSE":
		return ExchangeBSE, nil
	default:
		return "", fmt.Errorf("unknown exchange %q, want NSE or BSE", s)
	}
}

// Suffix returns the ticker suffix used by quote providers for the exchange.
func (e Exchange) Suffix() string {
	if e == ExchangeBSE {
		return ".BSE"
	}
	return ".NS"
}

var exchangeSuffixes = []string{".NS", ".BSE", ".BO"}

// NormalizeSymbol turns user input into the provider symbol: trimmed, upper-cased and suffixed
// with the exchange unless it already carries a known exchange suffix. The result is empty if the
// input is blank.
func NormalizeSymbol(ticker string, exchange Exchange) string {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if t == "" {
		return ""
	}
	for _, suffix := range exchangeSuffixes {
		if strings.HasSuffix(t, suffix) && len(t) > len(suffix) {
			return t
		}
	}
	return t + exchange.Suffix()
}

// BaseSymbol strips a known exchange suffix from a normalized symbol.
func BaseSymbol(symbol string) string {
	for _, suffix := range exchangeSuffixes {
		if base, ok := strings.CutSuffix(symbol, suffix); ok && base != "" {
			return base
		}
	}
	return symbol
}
