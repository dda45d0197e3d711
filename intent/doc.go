// Package intent recognises domain actions in free-form user text.
//
// A Parser walks an ordered list of rules and returns the first rule whose
// pattern matches and whose extracted parameters validate. When two rules
// could match the same text ("buy 10 FOO and hedge it") the earlier rule
// wins; the default order is trade, hedge, swap, rebalance, analysis.
//
// Parsing is pure: no I/O, no state. The only collaborator is an optional
// DataChecker used to decide whether an analysis request has real backing
// data (see Parser.demoteAnalysis).
package intent
