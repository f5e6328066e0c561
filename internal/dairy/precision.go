package dairy

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Precision is a number of decimal places used for rounding yields and probabilities.
type Precision int32

// DefaultPrecision rounds to 10 places.
const DefaultPrecision Precision = 10

// DivisionScale is the number of places kept on intermediate divisions and exponentials.
const DivisionScale int32 = 28

// MaxPrecision is the finest rounding allowed; intermediate values carry no more places.
const MaxPrecision = Precision(DivisionScale)

// Validate rejects precisions outside 1..MaxPrecision.
func (p Precision) Validate() error {
	if p < 1 || p > MaxPrecision {
		return fmt.Errorf("precision %d outside 1..%d: %w", p, MaxPrecision, ErrValidation)
	}
	return nil
}

// Quantize rounds d half-to-even at p places.
func (p Precision) Quantize(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(int32(p))
}

// Unit is the smallest step at this precision, e.g. 0.0000000001 for 10 places.
func (p Precision) Unit() decimal.Decimal {
	return decimal.New(1, -int32(p))
}

// Div divides at DivisionScale places.
func Div(a, b decimal.Decimal) decimal.Decimal {
	return a.DivRound(b, DivisionScale)
}

const expScale int32 = 40

var (
	one = decimal.NewFromInt(1)
	two = decimal.NewFromInt(2)
)

// Exp returns e^x to 40 places. The argument is halved below 1 before the Taylor series
// and the result squared back up, which keeps arguments in the tens fast.
func Exp(x decimal.Decimal) decimal.Decimal {
	neg := x.IsNegative()
	r := x.Abs()
	squarings := 0
	for r.GreaterThan(one) {
		r = r.DivRound(two, expScale)
		squarings++
	}
	sum, err := r.Round(30).ExpTaylor(expScale)
	if err != nil {
		panic(fmt.Sprintf("exp %s: %v", r, err))
	}
	for ; squarings > 0; squarings-- {
		sum = sum.Mul(sum).Round(expScale)
	}
	if neg {
		return one.DivRound(sum, expScale)
	}
	return sum
}
