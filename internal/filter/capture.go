package filter

import (
	"regexp"

	"github.com/roach88/seqcheck/internal/ir"
)

// Captures returns the named groups of re that participated in its first
// match against s, in group order. It returns nil when re does not match.
func Captures(re *regexp.Regexp, s string) []ir.ContextPair {
	if re == nil {
		return nil
	}
	loc := re.FindStringSubmatchIndex(s)
	if loc == nil {
		return nil
	}
	var pairs []ir.ContextPair
	for i, name := range re.SubexpNames() {
		if i == 0 || name == "" || loc[2*i] < 0 {
			continue
		}
		pairs = append(pairs, ir.ContextPair{Key: name, Value: s[loc[2*i]:loc[2*i+1]]})
	}
	return pairs
}
