package yield

import (
	"fmt"

	"github.com/danielpatrickdp/digital-cow/internal/dairy"
	"github.com/shopspring/decimal"
)

// #region curve
// Curve holds the MilkBot parameters for one lactation.
type Curve struct {
	Scale  decimal.Decimal // peak-scale in kg/day
	Ramp   decimal.Decimal // days to ramp up after calving
	Offset decimal.Decimal // days between calving and the start of the curve
	Decay  decimal.Decimal // exponential decline rate per day
}

var (
	heiferCurve = Curve{
		Scale:  decimal.Zero,
		Ramp:   decimal.NewFromInt(1),
		Offset: decimal.NewFromInt(1),
		Decay:  decimal.NewFromInt(1),
	}
	firstLactationCurve = Curve{
		Scale:  decimal.RequireFromString("34.8"),
		Ramp:   decimal.RequireFromString("29.6"),
		Offset: decimal.Zero,
		Decay:  dairy.Div(decimal.RequireFromString("0.693"), decimal.NewFromInt(358)),
	}
	matureCurve = Curve{
		Scale:  decimal.RequireFromString("47.7"),
		Ramp:   decimal.RequireFromString("22.1"),
		Offset: decimal.Zero,
		Decay:  dairy.Div(decimal.RequireFromString("0.693"), decimal.NewFromInt(240)),
	}
)

// CurveFor returns the curve for a lactation. Lactations up to lactationNumberLimit+1 are
// accepted so a cow calving in its last allowed lactation still has a curve.
func CurveFor(lactationNumber, lactationNumberLimit int) (Curve, error) {
	switch {
	case lactationNumber == 0:
		return heiferCurve, nil
	case lactationNumber == 1:
		return firstLactationCurve, nil
	case lactationNumber > 1 && lactationNumber < lactationNumberLimit+2:
		return matureCurve, nil
	default:
		return Curve{}, fmt.Errorf("yield curve for lactation %d (limit %d): %w",
			lactationNumber, lactationNumberLimit, dairy.ErrConfiguration)
	}
}

// Value evaluates the curve at day t without rounding.
func (c Curve) Value(t int) decimal.Decimal {
	day := decimal.NewFromInt(int64(t))
	rise := dairy.Exp(dairy.Div(c.Offset.Sub(day), c.Ramp))
	shape := decimal.NewFromInt(1).Sub(dairy.Div(rise, decimal.NewFromInt(2)))
	return c.Scale.Mul(shape).Mul(dairy.Exp(c.Decay.Neg().Mul(day)))
}

// #endregion curve

// #region production
// Dry reports whether s is inside the dry-off window before calving.
func Dry(s dairy.State, dpLimit, durationDry int) bool {
	return s.DaysPregnant >= dpLimit-durationDry
}

// Production returns the daily yield of s rounded at p. Heifers, Exit states and cows in the
// dry-off window give nothing.
func Production(c Curve, s dairy.State, dpLimit, durationDry int, p dairy.Precision) decimal.Decimal {
	if s.LactationNumber == 0 || s.Phase == dairy.Exit || Dry(s, dpLimit, durationDry) {
		return decimal.Zero
	}
	return p.Quantize(c.Value(s.DaysInMilk))
}

// #endregion production
