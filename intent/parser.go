package intent

import (
	"regexp"
	"strings"

	"github.com/mrarejimmyz/chatcore/core"
	"github.com/mrarejimmyz/chatcore/internal/util"
)

// DataChecker reports whether real data backs an analysis target (a symbol
// or core.TargetPortfolio).
type DataChecker interface {
	HasData(target string) bool
}

// DataCheckerFunc adapts a function to DataChecker.
type DataCheckerFunc func(target string) bool

// HasData implements DataChecker.
func (f DataCheckerFunc) HasData(target string) bool { return f(target) }

// Options configures a Parser.
type Options struct {
	// Rules in priority order. Defaults to DefaultRules().
	Rules []Rule
	// DataChecker gates analysis intents. Nil means no data is ever available.
	DataChecker DataChecker
}

// Parser matches text against ordered rules. It holds no mutable state and
// is safe for concurrent use.
type Parser struct {
	rules   []Rule
	checker DataChecker
}

// New creates a Parser.
func New(optFns ...func(o *Options)) *Parser {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if len(opts.Rules) == 0 {
		opts.Rules = DefaultRules()
	}
	return &Parser{rules: opts.Rules, checker: opts.DataChecker}
}

// Parse returns the first action whose rule matches with valid parameters,
// or nil. An action must open a clause, optionally after polite filler
// ("please", "can you", "I want to"); anything else before the verb, such as a
// negation or a hypothetical, means the user is not requesting it. Text
// ending in "?" never yields an action that changes the portfolio.
func (p *Parser) Parse(text string) *core.ActionDescriptor {
	text = strings.TrimSpace(text)
	if text == "" || isQuestion(text) {
		return nil
	}
	asked := strings.HasSuffix(text, "?")
	clauses := splitClauses(text)
	for _, r := range p.rules {
		if asked && r.Type != core.ActionAnalysis {
			continue
		}
		for _, c := range clauses {
			d, ok := match(r, c)
			if !ok {
				continue
			}
			if p.demoteAnalysis(d) {
				return nil
			}
			return d
		}
	}
	return nil
}

func match(r Rule, clause string) (*core.ActionDescriptor, bool) {
	idx := r.Pattern.FindStringSubmatchIndex(clause)
	if idx == nil || !isRequestPrefix(clause[:idx[0]]) {
		return nil, false
	}
	m := make([]string, len(idx)/2)
	for i := range m {
		if idx[2*i] >= 0 {
			m[i] = clause[idx[2*i]:idx[2*i+1]]
		}
	}
	target, params, ok := r.Extract(m)
	if !ok {
		return nil, false
	}
	if err := util.ValidateParameters(params, r.Schema); err != nil {
		return nil, false
	}
	return &core.ActionDescriptor{
		Type:       r.Type,
		Target:     target,
		Params:     params,
		Confidence: r.Confidence,
		Source:     strings.TrimSpace(m[0]),
	}, true
}

var (
	clauseSplit   = regexp.MustCompile(`(?i)[.!;]+(?:\s+|$)|\n+|,?\s+(?:and\s+)?then\s+`)
	requestFiller = regexp.MustCompile(`(?i)^(?:(?:please|kindly|now|ok|okay|so|alright|also|just|then|and|go ahead and|let'?s|i want to|i'd like to|i would like to|i wanna|can you|could you|would you|will you)[\s,]*)*$`)
)

func splitClauses(text string) []string {
	var out []string
	for _, c := range clauseSplit.Split(text, -1) {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// isRequestPrefix reports whether the words before an action verb leave it a
// direct request.
func isRequestPrefix(prefix string) bool {
	prefix = strings.TrimSpace(prefix)
	return prefix == "" || requestFiller.MatchString(prefix)
}

// demoteAnalysis reports whether an analysis match must be dropped because
// no real data backs it. Such requests go to the generator, which can
// explain the missing data conversationally; structured handling is kept for
// intents with a deterministic, verifiable outcome.
func (p *Parser) demoteAnalysis(d *core.ActionDescriptor) bool {
	if d.Type != core.ActionAnalysis {
		return false
	}
	return p.checker == nil || !p.checker.HasData(d.Target)
}

var questionWords = []string{
	"how", "what", "why", "should", "when", "where", "which", "who",
	"is", "are", "does", "do", "would", "can", "could", "will", "may", "might", "shall",
}

// isQuestion reports whether text asks about an action rather than
// requesting one ("should I buy 10 FOO?").
func isQuestion(text string) bool {
	if !strings.HasSuffix(text, "?") {
		return false
	}
	first := strings.ToLower(strings.Fields(text)[0])
	for _, w := range questionWords {
		if first == w {
			return true
		}
	}
	return false
}
