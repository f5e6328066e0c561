package cow

import (
	"github.com/danielpatrickdp/digital-cow/internal/dairy"
	"github.com/danielpatrickdp/digital-cow/internal/herd"
	"github.com/shopspring/decimal"
)

var (
	zero = decimal.Zero
	one  = decimal.NewFromInt(1)
)

// #region hazards
// Ovulation is the daily chance of ovulating: 1/19 for heifers, 1/21 after calving.
func Ovulation(lactationNumber int) decimal.Decimal {
	if lactationNumber == 0 {
		return dairy.Div(one, decimal.NewFromInt(19))
	}
	return dairy.Div(one, decimal.NewFromInt(21))
}

// Insemination is the chance an ovulating cow is inseminated. Nothing before the waiting period ends.
func Insemination(daysInMilk, lactationNumber, vwp int) decimal.Decimal {
	switch {
	case daysInMilk < vwp:
		return zero
	case lactationNumber == 0:
		return decimal.RequireFromString("0.85")
	default:
		return decimal.RequireFromString("0.65")
	}
}

// Conception is the chance an insemination results in pregnancy.
func Conception(lactationNumber int) decimal.Decimal {
	switch lactationNumber {
	case 0:
		return decimal.RequireFromString("0.5")
	case 1:
		return decimal.RequireFromString("0.45")
	default:
		return decimal.RequireFromString("0.35")
	}
}

// Pregnancy is ovulation · insemination · conception.
func Pregnancy(daysInMilk, lactationNumber, vwp int) decimal.Decimal {
	return Ovulation(lactationNumber).
		Mul(Insemination(daysInMilk, lactationNumber, vwp)).
		Mul(Conception(lactationNumber))
}

// Birth is 1 on the day of calving.
func Birth(daysPregnant, dpLimit int) decimal.Decimal {
	if daysPregnant == dpLimit {
		return one
	}
	return zero
}

// Abortion is the daily chance of losing a pregnancy, by gestation stage.
func Abortion(daysPregnant, dpLimit int) decimal.Decimal {
	switch {
	case daysPregnant < 30:
		return zero
	case daysPregnant < 46:
		return dairy.Div(decimal.RequireFromString("0.125"), decimal.NewFromInt(15))
	case daysPregnant < 181:
		return dairy.Div(decimal.RequireFromString("0.099"), decimal.NewFromInt(135))
	case daysPregnant <= dpLimit:
		return dairy.Div(decimal.RequireFromString("0.02"), decimal.NewFromInt(int64(dpLimit-180)))
	default:
		return zero
	}
}

// AboveInseminationCutoff is 1 once the insemination window has closed.
func AboveInseminationCutoff(daysInMilk, cutoff int) decimal.Decimal {
	if daysInMilk > cutoff {
		return one
	}
	return zero
}

// MilkBelowThreshold is 1 for a lactating, non-dry cow producing under the threshold.
func MilkBelowThreshold(milk, threshold decimal.Decimal, lactationNumber, daysPregnant, dpLimit, durationDry int) decimal.Decimal {
	if milk.LessThan(threshold) && lactationNumber != 0 && daysPregnant < dpLimit-durationDry {
		return one
	}
	return zero
}

// Death is the daily involuntary mortality, 5% a year.
func Death() decimal.Decimal {
	return dairy.Div(decimal.RequireFromString("0.05"), decimal.NewFromInt(365))
}

// #endregion hazards

// #region bundle
// Hazards holds every hazard evaluated for one origin state.
type Hazards struct {
	Pregnancy          decimal.Decimal
	Birth              decimal.Decimal
	Abortion           decimal.Decimal
	AboveCutoff        decimal.Decimal
	MilkBelowThreshold decimal.Decimal
	Death              decimal.Decimal
}

// HazardsFor evaluates the hazards of from under p.
func HazardsFor(p herd.Params, from dairy.State) Hazards {
	ln := from.LactationNumber
	dpLimit := p.DaysPregnantLimit(ln)
	return Hazards{
		Pregnancy:   Pregnancy(from.DaysInMilk, ln, p.VoluntaryWaitingPeriod(ln)),
		Birth:       Birth(from.DaysPregnant, dpLimit),
		Abortion:    Abortion(from.DaysPregnant, dpLimit),
		AboveCutoff: AboveInseminationCutoff(from.DaysInMilk, p.InseminationCutoff(ln)),
		MilkBelowThreshold: MilkBelowThreshold(from.MilkOutput, p.MilkThreshold, ln,
			from.DaysPregnant, dpLimit, p.DurationDry(ln)),
		Death: Death(),
	}
}

// Culled reports whether the cow leaves for low yield.
func (h Hazards) Culled() bool { return h.MilkBelowThreshold.Equal(one) }

// #endregion bundle
