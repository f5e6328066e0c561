package cow

import (
	"fmt"

	"github.com/danielpatrickdp/digital-cow/internal/dairy"
	"github.com/shopspring/decimal"
)

// Probability returns the chance of moving from from to to in one day.
// Pairs outside the adjacency set are 0. Composite products are rounded half-even at the
// space precision; the literal 0 and 1 outcomes are returned unrounded.
func (s *Space) Probability(from, to dairy.State) (decimal.Decimal, error) {
	if !from.Phase.Valid() || !to.Phase.Valid() {
		return zero, fmt.Errorf("probability %s -> %s: %w", from, to, dairy.ErrInvalidState)
	}
	next, err := s.Successors(from)
	if err != nil {
		return zero, fmt.Errorf("probability %s -> %s: %w", from, to, err)
	}
	if !containsState(next, to) {
		return zero, nil
	}
	return s.weigh(from, to), nil
}

// weigh applies the transition table to a pair already known to be adjacent.
func (s *Space) weigh(from, to dairy.State) decimal.Decimal {
	p := s.params
	ln, dim := from.LactationNumber, from.DaysInMilk
	vwp := p.VoluntaryWaitingPeriod(ln)
	cutoff := p.InseminationCutoff(ln)
	dpLimit := p.DaysPregnantLimit(ln)

	// #region absorbing
	if dim == s.dimLimit-1 && from.Phase != dairy.Exit {
		return one
	}
	heiferCutoff := dim == cutoff+dpLimit && ln == 0
	if heiferCutoff && to.Equal(dairy.ExitState(dim, ln)) {
		return one
	}
	// #endregion absorbing

	h := HazardsFor(p, from)
	q := s.precision.Quantize
	notDeath := one.Sub(h.Death)
	notPregnant := one.Sub(h.Pregnancy)
	notAborting := one.Sub(h.Abortion)
	notBelow := one.Sub(h.MilkBelowThreshold)
	notAbove := one.Sub(h.AboveCutoff)

	switch from.Phase {
	// #region from-open
	case dairy.Open:
		switch to.Phase {
		case dairy.Open:
			if dim < vwp {
				return q(notBelow.Mul(notDeath))
			}
			return q(notPregnant.Mul(notBelow).Mul(notAbove).Mul(notDeath))
		case dairy.Pregnant:
			return q(h.Pregnancy.Mul(notBelow).Mul(notAbove).Mul(notDeath))
		case dairy.DoNotBreed:
			if dim == cutoff && ln != 0 {
				return q(notPregnant.Mul(notBelow).Mul(notDeath))
			}
			return q(h.AboveCutoff.Mul(notBelow).Mul(notDeath))
		case dairy.Exit:
			switch {
			case h.Culled():
				return one
			case dim == cutoff && ln == 0:
				return q(notPregnant.Mul(notDeath).Add(h.Death))
			default:
				return q(h.Death)
			}
		}
	// #endregion from-open

	// #region from-pregnant
	case dairy.Pregnant:
		calving := to.LactationNumber == ln+1
		switch to.Phase {
		case dairy.Open, dairy.DoNotBreed:
			if calving {
				return q(h.Birth.Mul(notBelow).Mul(notDeath))
			}
			return q(h.Abortion.Mul(notBelow).Mul(notDeath))
		case dairy.Pregnant:
			return q(notAborting.Mul(notBelow).Mul(notDeath))
		case dairy.Exit:
			switch {
			case h.Culled():
				return one
			case from.DaysPregnant == dpLimit && ln == 0:
				return q(h.Death)
			case dim >= cutoff && ln == 0:
				return q(h.Abortion.Mul(notDeath).Add(h.Death))
			default:
				return q(h.Death)
			}
		}
	// #endregion from-pregnant

	// #region from-do-not-breed
	case dairy.DoNotBreed:
		switch to.Phase {
		case dairy.DoNotBreed:
			return q(notBelow.Mul(notDeath))
		case dairy.Exit:
			if h.Culled() {
				return one
			}
			return q(h.Death)
		}
	// #endregion from-do-not-breed

	case dairy.Exit:
		if to.Equal(dairy.Origin()) {
			return one
		}
	}
	return zero
}

func containsState(states []dairy.State, st dairy.State) bool {
	for _, s := range states {
		if s.Equal(st) {
			return true
		}
	}
	return false
}
