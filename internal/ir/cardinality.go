package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Unbounded is the Max of a cardinality without an upper limit.
const Unbounded = -1

// Cardinality is the resolved repeat range of a step within one occurrence.
type Cardinality struct {
	Min int
	Max int
}

// Mandatory reports whether at least one match is required.
func (c Cardinality) Mandatory() bool {
	return c.Min > 0
}

// Allows reports whether count matches still fit below the upper bound.
func (c Cardinality) Allows(count int) bool {
	return c.Max == Unbounded || count < c.Max
}

func (c Cardinality) String() string {
	switch {
	case c.Min == 1 && c.Max == 1:
		return ""
	case c.Min == 0 && c.Max == 1:
		return "?"
	case c.Min == 0 && c.Max == Unbounded:
		return "*"
	case c.Min == 1 && c.Max == Unbounded:
		return "+"
	case c.Max == Unbounded:
		return fmt.Sprintf("{%d,}", c.Min)
	case c.Min == c.Max:
		return fmt.Sprintf("{%d}", c.Min)
	default:
		return fmt.Sprintf("{%d,%d}", c.Min, c.Max)
	}
}

// ParseCardinality resolves a card string.
//
//	""      exactly one
//	"?"     zero or one
//	"*"     zero or more
//	"+"     one or more
//	"{n}"   exactly n
//	"{n,}"  n or more
//	"{n,m}" between n and m
func ParseCardinality(card string) (Cardinality, error) {
	switch card {
	case "":
		return Cardinality{Min: 1, Max: 1}, nil
	case "?":
		return Cardinality{Min: 0, Max: 1}, nil
	case "*":
		return Cardinality{Min: 0, Max: Unbounded}, nil
	case "+":
		return Cardinality{Min: 1, Max: Unbounded}, nil
	}

	if !strings.HasPrefix(card, "{") || !strings.HasSuffix(card, "}") {
		return Cardinality{}, fmt.Errorf("unknown cardinality %q", card)
	}
	body := card[1 : len(card)-1]

	lo, hi, ranged := strings.Cut(body, ",")
	minCount := 0
	if lo != "" || !ranged {
		n, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil || n < 0 {
			return Cardinality{}, fmt.Errorf("invalid lower bound in cardinality %q", card)
		}
		minCount = n
	}
	if !ranged {
		if minCount == 0 {
			return Cardinality{}, fmt.Errorf("cardinality %q allows no match", card)
		}
		return Cardinality{Min: minCount, Max: minCount}, nil
	}
	if strings.TrimSpace(hi) == "" {
		return Cardinality{Min: minCount, Max: Unbounded}, nil
	}
	maxCount, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil || maxCount < 1 || maxCount < minCount {
		return Cardinality{}, fmt.Errorf("invalid upper bound in cardinality %q", card)
	}
	return Cardinality{Min: minCount, Max: maxCount}, nil
}
