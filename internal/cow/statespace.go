package cow

import (
	"github.com/danielpatrickdp/digital-cow/internal/dairy"
	"github.com/shopspring/decimal"
)

// pregnancyCursor tracks which days-pregnant values are reachable on the current day.
// Each day one more gestation day becomes reachable until the limit, and once the
// insemination window closes the earliest one drops off.
type pregnancyCursor struct {
	start     int
	next      int
	simulated int
}

func newPregnancyCursor() pregnancyCursor {
	return pregnancyCursor{start: 1, next: 1, simulated: 1}
}

// generate walks lactation by lactation and day by day, emitting up to four candidate
// states per (lactation, day) in Open, Pregnant, DoNotBreed, Exit order.
func (s *Space) generate() error {
	p := s.params
	threshold := p.MilkThreshold

	dim, ln := 0, 0
	cur := newPregnancyCursor()
	var stopPregnant, lastPregnancy, notHeifer bool

	for ln <= s.lnLimit {
		vwp := p.VoluntaryWaitingPeriod(ln)
		cutoff := p.InseminationCutoff(ln)
		dpLimit := p.DaysPregnantLimit(ln)

		// Open and DoNotBreed share the same non-pregnant yield for the day.
		milk, err := s.production(dairy.OpenState(dim, ln, decimal.Zero))
		if err != nil {
			return err
		}
		productive := milk.GreaterThanOrEqual(threshold) || ln == 0

		// #region open
		if dim <= cutoff && productive {
			s.add(dairy.OpenState(dim, ln, milk))
		}
		// #endregion open

		// #region pregnant
		if dim > vwp && dim <= cutoff+dpLimit && !stopPregnant {
			for ; cur.next <= cur.simulated; cur.next++ {
				st, err := s.withYield(dairy.PregnantState(dim, ln, cur.next, decimal.Zero))
				if err != nil {
					return err
				}
				s.add(st)
			}
			if dim > cutoff && dim < cutoff+dpLimit {
				cur.start++
			}
			cur.next = cur.start
			if cur.simulated != dpLimit {
				cur.simulated++
			} else if ln == s.lnLimit {
				if cur.start > dpLimit {
					stopPregnant = true
				} else if dim == vwp+dpLimit+1 {
					lastPregnancy = true
				}
			}
		}
		// #endregion pregnant

		// #region do-not-breed
		if dim > cutoff && ln != 0 {
			if productive {
				s.add(dairy.DoNotBreedState(dim, ln, milk))
			}
			if lastPregnancy {
				st, err := s.withYield(dairy.DoNotBreedState(dim, ln+1, decimal.Zero))
				if err != nil {
					return err
				}
				if st.MilkOutput.GreaterThanOrEqual(threshold) {
					s.add(st)
				}
			}
		}
		// #endregion do-not-breed

		// #region exit
		s.add(dairy.ExitState(dim, ln))
		if lastPregnancy {
			s.add(dairy.ExitState(dim, ln+1))
		}
		// #endregion exit

		// #region rollover
		if dim == s.dimLimit-1 && notHeifer {
			s.add(dairy.ExitState(s.dimLimit, ln))
			if ln == s.lnLimit {
				s.add(dairy.ExitState(s.dimLimit, ln+1))
			}
			dim = 0
			cur = newPregnancyCursor()
			ln++
		} else {
			dim++
		}
		if dim == cutoff+dpLimit+2 && ln == 0 {
			dim = 0
			cur = newPregnancyCursor()
			ln++
			notHeifer = true
		}
		// #endregion rollover
	}
	return nil
}
