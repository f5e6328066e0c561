package cow

import (
	"fmt"

	"github.com/danielpatrickdp/digital-cow/internal/dairy"
	"github.com/shopspring/decimal"
)

// Successors returns the states reachable from from on the next day. The first entry is
// always the Exit of the next day, except from Exit itself whose only successor is
// Open(0,0,0,0). On the last generated day only the Exit remains.
func (s *Space) Successors(from dairy.State) ([]dairy.State, error) {
	if !from.Phase.Valid() {
		return nil, fmt.Errorf("successors of %s: %w", from, dairy.ErrInvalidState)
	}
	if from.Phase == dairy.Exit {
		return []dairy.State{dairy.Origin()}, nil
	}

	dim, ln := from.DaysInMilk, from.LactationNumber
	next := []dairy.State{dairy.ExitState(dim+1, ln)}
	if dim == s.dimLimit-1 {
		return next, nil
	}

	p := s.params
	vwp := p.VoluntaryWaitingPeriod(ln)
	cutoff := p.InseminationCutoff(ln)
	dpLimit := p.DaysPregnantLimit(ln)
	dry := p.DurationDry(ln)
	aboveThreshold := from.MilkOutput.GreaterThan(p.MilkThreshold)

	var candidates []dairy.State
	switch from.Phase {
	case dairy.Open:
		if !aboveThreshold && ln != 0 {
			break
		}
		if vwp <= dim && dim <= cutoff {
			candidates = append(candidates, dairy.PregnantState(dim+1, ln, 1, decimal.Zero))
		}
		if dim >= cutoff && ln != 0 {
			candidates = append(candidates, dairy.DoNotBreedState(dim+1, ln, decimal.Zero))
		} else if dim < cutoff {
			candidates = append(candidates, dairy.OpenState(dim+1, ln, decimal.Zero))
		}

	case dairy.Pregnant:
		if !aboveThreshold && ln != 0 && from.DaysPregnant < dpLimit-dry {
			break
		}
		switch {
		case from.DaysPregnant == dpLimit && ln <= s.lnLimit:
			// Calving. In the last generated lactation the cow is not bred again.
			if ln == s.lnLimit {
				candidates = append(candidates, dairy.DoNotBreedState(dim+1, ln+1, decimal.Zero))
			} else {
				candidates = append(candidates, dairy.OpenState(0, ln+1, decimal.Zero))
			}
		case from.DaysPregnant < dpLimit:
			candidates = append(candidates, dairy.PregnantState(dim+1, ln, from.DaysPregnant+1, decimal.Zero))
			if dim < cutoff {
				candidates = append(candidates, dairy.OpenState(dim+1, ln, decimal.Zero))
			} else if ln != 0 {
				candidates = append(candidates, dairy.DoNotBreedState(dim+1, ln, decimal.Zero))
			}
		}

	case dairy.DoNotBreed:
		if !aboveThreshold {
			break
		}
		st, err := s.withYield(dairy.DoNotBreedState(dim+1, ln, decimal.Zero))
		if err != nil {
			return nil, fmt.Errorf("successors of %s: %w", from, err)
		}
		if st.MilkOutput.GreaterThanOrEqual(p.MilkThreshold) {
			next = append(next, st)
		}
		return next, nil
	}

	for _, c := range candidates {
		st, err := s.withYield(c)
		if err != nil {
			return nil, fmt.Errorf("successors of %s: %w", from, err)
		}
		next = append(next, st)
	}
	return next, nil
}
