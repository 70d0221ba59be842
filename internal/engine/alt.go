package engine

import (
	"slices"

	"github.com/roach88/seqcheck/internal/ir"
)

// AltStep matches any one of its alternatives. Alternatives are tried in
// declaration order and share the alternation's ordinal, cardinality and
// start permission.
type AltStep struct {
	stepBase
	alts []Step
}

// Alternatives returns the alternatives in declaration order.
func (s *AltStep) Alternatives() []Step {
	return s.alts
}

func (s *AltStep) process(msg *ir.Message, occ *Occurrence, newOcc newOccurrenceFunc, tr *tracer) (bool, *Occurrence) {
	for _, alt := range s.alts {
		updated, next := alt.process(msg, occ, newOcc, tr)
		if !updated {
			continue
		}
		s.mirror(occ, alt)
		if next != occ {
			s.mirror(next, alt)
		}
		return true, next
	}
	return false, occ
}

// mirror makes the alternation's results those of the alternative that
// matched last.
func (s *AltStep) mirror(occ *Occurrence, alt Step) {
	if occ == nil {
		return
	}
	src := occ.slot(alt.Key())
	if len(src) == 0 {
		return
	}
	occ.slots[s.key] = slices.Clone(src)
	occ.via[s.key] = alt.Key()
}

func (s *AltStep) satisfied(occ *Occurrence) bool {
	for _, alt := range s.alts {
		if alt.satisfied(occ) {
			return true
		}
	}
	return false
}
