package engine

import (
	"strings"
	"unicode"
)

// Responder produces a reply without any generation backend. It must always
// return non-empty text.
type Responder interface {
	Respond(message string) string
}

// FallbackRule maps keywords to a canned answer. A rule matches when any
// keyword appears as a whole word in the message (case-insensitive).
type FallbackRule struct {
	Keywords []string
	Answer   string
}

// RuleResponder is the deterministic last resort used when every backend
// failed. Rules are checked in order; the first match wins.
type RuleResponder struct {
	rules         []FallbackRule
	defaultAnswer string
}

var _ Responder = (*RuleResponder)(nil)

// DefaultFallbackAnswer is returned when no rule matches.
const DefaultFallbackAnswer = "I can't reach a language model right now, so I can only handle structured requests. " +
	"Try something like \"buy 10 AAPL\", \"hedge 30% of my TSLA position\" or \"swap 2 ETH for USDC\"."

// DefaultFallbackRules returns the built-in keyword rules.
func DefaultFallbackRules() []FallbackRule {
	return []FallbackRule{
		{
			Keywords: []string{"hi", "hello", "hey", "morning", "evening"},
			Answer: "Hello! I'm running in offline mode at the moment. I can still execute trades, hedges, swaps " +
				"and rebalances for you, for example \"buy 10 AAPL\".",
		},
		{
			Keywords: []string{"help", "commands", "how"},
			Answer: "Supported requests: \"buy|sell <qty> <SYMBOL>\", \"hedge <pct>% of <SYMBOL>\", " +
				"\"swap <qty> <SYMBOL> for <SYMBOL>\" and \"rebalance to 60% FOO, 40% BAR\".",
		},
		{
			Keywords: []string{"portfolio", "holdings", "balance", "positions"},
			Answer: "Detailed portfolio commentary needs a language model, and none is reachable right now. " +
				"You can still rebalance with \"rebalance to 60% FOO, 40% BAR\".",
		},
		{
			Keywords: []string{"risk", "hedge", "exposure", "volatility"},
			Answer: "I can't assess risk conversationally right now. To reduce exposure directly, try " +
				"\"hedge 50% of my <SYMBOL> position\".",
		},
		{
			Keywords: []string{"price", "market", "news", "outlook", "forecast"},
			Answer: "Market commentary is unavailable while no language model is reachable. Please try again shortly.",
		},
		{
			Keywords: []string{"thanks", "thank", "thx"},
			Answer:   "You're welcome!",
		},
	}
}

// NewRuleResponder creates a responder. With no rules, DefaultFallbackRules
// are used.
func NewRuleResponder(rules ...FallbackRule) *RuleResponder {
	if len(rules) == 0 {
		rules = DefaultFallbackRules()
	}
	return &RuleResponder{rules: rules, defaultAnswer: DefaultFallbackAnswer}
}

// Respond implements Responder.
func (r *RuleResponder) Respond(message string) string {
	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(message), func(c rune) bool {
		return !unicode.IsLetter(c) && !unicode.IsDigit(c)
	}) {
		words[w] = true
	}
	for _, rule := range r.rules {
		for _, kw := range rule.Keywords {
			if words[strings.ToLower(kw)] && rule.Answer != "" {
				return rule.Answer
			}
		}
	}
	return r.defaultAnswer
}
