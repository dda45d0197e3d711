package intent

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/mrarejimmyz/chatcore/core"
)

// Rule maps a pattern to an action type. Extract turns the submatches into
// a target and parameters; returning ok=false rejects the match.
type Rule struct {
	Type       core.ActionType
	Pattern    *regexp.Regexp
	Confidence float64
	Schema     map[string]any
	Extract    func(m []string) (target string, params map[string]any, ok bool)
}

const (
	number = `(\d+(?:\.\d+)?)`
	ticker = `\$?([A-Za-z][A-Za-z0-9]{1,9})`
)

var (
	tradePattern     = regexp.MustCompile(`(?i)\b(buy|sell|purchase)\s+` + number + `\s+(?:(?:shares?|units?)\s+of\s+)?` + ticker + `\b`)
	hedgePattern     = regexp.MustCompile(`(?i)\bhedge\s+(?:` + number + `\s*%\s+|` + number + `\s+)?(?:of\s+)?(?:my\s+|the\s+)?` + ticker + `\b`)
	swapPattern      = regexp.MustCompile(`(?i)\b(?:swap|convert|exchange)\s+` + number + `\s+` + ticker + `\s+(?:to|for|into)\s+` + ticker + `\b`)
	rebalancePattern = regexp.MustCompile(`(?i)\brebalance\b(?:\s+(?:my\s+|the\s+)?portfolio\b)?(?:\s+to\s+(.+))?`)
	analysisPattern  = regexp.MustCompile(`(?i)\b(?:analy[sz]e|assess|review)\s+(?:my\s+|the\s+)?` + ticker + `\b`)
	weightPattern    = regexp.MustCompile(`(?i)` + number + `\s*%\s*(?:in\s+|of\s+)?` + ticker)
)

var stopWords = map[string]bool{
	"MY": true, "THE": true, "OF": true, "TO": true, "FOR": true, "INTO": true,
	"ALL": true, "SOME": true, "AND": true, "IT": true, "THIS": true, "THAT": true,
	"SHARE": true, "SHARES": true, "UNITS": true, "POSITION": true, "EXPOSURE": true,
	"PORTFOLIO": true, "RISK": true, "HOLDINGS": true,
}

var symbolPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]{1,9}$`)

// NormalizeSymbol upper-cases s and reports whether it is a usable ticker.
func NormalizeSymbol(s string) (string, bool) {
	sym := strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	if !symbolPattern.MatchString(sym) || stopWords[sym] {
		return "", false
	}
	return sym, true
}

func parseNumber(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

// DefaultRules returns the built-in rules in their fixed priority order.
func DefaultRules() []Rule {
	return []Rule{
		{
			Type:       core.ActionTrade,
			Pattern:    tradePattern,
			Confidence: 0.95,
			Schema: map[string]any{
				"required": []string{"side", "quantity"},
				"properties": map[string]any{
					"side":     map[string]any{"type": "string", "enum": []any{"buy", "sell"}},
					"quantity": map[string]any{"type": "number", "exclusiveMinimum": 0.0},
				},
			},
			Extract: extractTrade,
		},
		{
			Type:       core.ActionHedge,
			Pattern:    hedgePattern,
			Confidence: 0.9,
			Schema: map[string]any{
				"properties": map[string]any{
					"ratio":    map[string]any{"type": "number", "exclusiveMinimum": 0.0, "maximum": 1.0},
					"quantity": map[string]any{"type": "number", "exclusiveMinimum": 0.0},
				},
			},
			Extract: extractHedge,
		},
		{
			Type:       core.ActionSwap,
			Pattern:    swapPattern,
			Confidence: 0.9,
			Schema: map[string]any{
				"required": []string{"quantity", "to"},
				"properties": map[string]any{
					"quantity": map[string]any{"type": "number", "exclusiveMinimum": 0.0},
					"to":       map[string]any{"type": "string"},
				},
			},
			Extract: extractSwap,
		},
		{
			Type:       core.ActionRebalance,
			Pattern:    rebalancePattern,
			Confidence: 0.85,
			Schema: map[string]any{
				"properties": map[string]any{
					"weights": map[string]any{"type": "object"},
				},
			},
			Extract: extractRebalance,
		},
		{
			Type:       core.ActionAnalysis,
			Pattern:    analysisPattern,
			Confidence: 0.8,
			Schema: map[string]any{
				"required": []string{"scope"},
				"properties": map[string]any{
					"scope": map[string]any{"type": "string", "enum": []any{"portfolio", "risk", "symbol"}},
				},
			},
			Extract: extractAnalysis,
		},
	}
}

func extractTrade(m []string) (string, map[string]any, bool) {
	side := strings.ToLower(m[1])
	if side == "purchase" {
		side = "buy"
	}
	qty, ok := parseNumber(m[2])
	if !ok {
		return "", nil, false
	}
	sym, ok := NormalizeSymbol(m[3])
	if !ok {
		return "", nil, false
	}
	return sym, map[string]any{"side": side, "quantity": qty}, true
}

func extractHedge(m []string) (string, map[string]any, bool) {
	target := core.TargetPortfolio
	if !strings.EqualFold(m[3], "portfolio") {
		sym, ok := NormalizeSymbol(m[3])
		if !ok {
			return "", nil, false
		}
		target = sym
	}
	params := map[string]any{}
	if pct, ok := parseNumber(m[1]); ok {
		params["ratio"] = pct / 100
	} else if qty, ok := parseNumber(m[2]); ok {
		params["quantity"] = qty
	} else {
		params["ratio"] = 0.5
	}
	return target, params, true
}

func extractSwap(m []string) (string, map[string]any, bool) {
	qty, ok := parseNumber(m[1])
	if !ok {
		return "", nil, false
	}
	from, ok := NormalizeSymbol(m[2])
	if !ok {
		return "", nil, false
	}
	to, ok := NormalizeSymbol(m[3])
	if !ok || to == from {
		return "", nil, false
	}
	return from, map[string]any{"quantity": qty, "to": to}, true
}

func extractRebalance(m []string) (string, map[string]any, bool) {
	clause := strings.TrimSpace(m[1])
	if clause == "" {
		return core.TargetPortfolio, map[string]any{}, true
	}
	weights := map[string]any{}
	var total float64
	for _, w := range weightPattern.FindAllStringSubmatch(clause, -1) {
		pct, ok := parseNumber(w[1])
		if !ok || pct <= 0 {
			return "", nil, false
		}
		sym, ok := NormalizeSymbol(w[2])
		if !ok {
			return "", nil, false
		}
		total += pct
		weights[sym] = pct / 100
	}
	if len(weights) == 0 || total > 100 {
		return "", nil, false
	}
	return core.TargetPortfolio, map[string]any{"weights": weights}, true
}

func extractAnalysis(m []string) (string, map[string]any, bool) {
	switch strings.ToLower(m[1]) {
	case "portfolio", "holdings":
		return core.TargetPortfolio, map[string]any{"scope": "portfolio"}, true
	case "risk", "exposure":
		return core.TargetPortfolio, map[string]any{"scope": "risk"}, true
	}
	sym, ok := NormalizeSymbol(m[1])
	if !ok {
		return "", nil, false
	}
	return sym, map[string]any{"scope": "symbol"}, true
}
