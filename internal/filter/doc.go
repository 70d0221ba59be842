// Package filter implements the single-message predicates used by sequence
// steps and failure checks.
//
// A Filter is compiled once from an ir.FilterSpec and then evaluated against
// each message. All set criteria must hold for a match; Not inverts the
// result and a disabled filter never matches.
package filter
