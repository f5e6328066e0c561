// Package intake estimates body weight, dry matter intake and the nitrogen and phosphorus
// excretion of a cow on a given day of the chain.
package intake

import (
	"fmt"

	"github.com/danielpatrickdp/digital-cow/internal/dairy"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var (
	one   = decimal.NewFromInt(1)
	three = decimal.NewFromInt(3)
)

// #region body weight
// Korver holds the live-weight growth parameters for one lactation class.
type Korver struct {
	BirthWeight       decimal.Decimal // kg
	MatureWeight      decimal.Decimal // kg
	GrowthRate        decimal.Decimal // per day of age
	Pregnancy         decimal.Decimal // weight gain of the conceptus
	MaxDecrease       decimal.Decimal // kg lost around the weight minimum
	DaysToMinimumLoss decimal.Decimal // days in milk at the weight minimum
}

var (
	firstLactationKorver = Korver{
		BirthWeight:       d("42"),
		MatureWeight:      d("600"),
		GrowthRate:        d("0.0039"),
		Pregnancy:         d("0.0187"),
		MaxDecrease:       d("20"),
		DaysToMinimumLoss: d("65"),
	}
	matureKorver = Korver{
		BirthWeight:       d("42"),
		MatureWeight:      d("640"),
		GrowthRate:        d("0.006"),
		Pregnancy:         d("0.0187"),
		MaxDecrease:       d("40"),
		DaysToMinimumLoss: d("70"),
	}

	heiferBase      = d("27.2")
	heiferDailyGain = d("0.822")
	heiferMaxWeight = d("1270")
)

// KorverFor returns the parameters for lactations one and later. Heifers grow linearly and
// have no Korver parameters.
func KorverFor(lactationNumber int) (Korver, error) {
	switch {
	case lactationNumber == 1:
		return firstLactationKorver, nil
	case lactationNumber > 1:
		return matureKorver, nil
	default:
		return Korver{}, fmt.Errorf("korver parameters for lactation %d: %w", lactationNumber, dairy.ErrConfiguration)
	}
}

// BodyWeight estimates live weight in kg. age is in days; vwp is the voluntary waiting
// period of the state's lactation and marks where the pregnancy term starts.
func BodyWeight(s dairy.State, age, vwp int, p dairy.Precision) (decimal.Decimal, error) {
	dim := decimal.NewFromInt(int64(s.DaysInMilk))
	if s.LactationNumber == 0 {
		bw := decimal.Max(firstLactationKorver.BirthWeight, heiferBase.Add(heiferDailyGain.Mul(dim)))
		return decimal.Min(bw, heiferMaxWeight), nil
	}
	k, err := KorverFor(s.LactationNumber)
	if err != nil {
		return decimal.Zero, err
	}

	root, err := dairy.Div(k.BirthWeight, k.MatureWeight).PowWithPrecision(dairy.Div(one, three), dairy.DivisionScale)
	if err != nil {
		return decimal.Zero, fmt.Errorf("body weight of %s: %w", s, err)
	}
	decay := dairy.Exp(k.GrowthRate.Neg().Mul(decimal.NewFromInt(int64(age))).Mul(three))
	growth := k.MatureWeight.Mul(one.Sub(one.Sub(root).Mul(decay)))

	ratio := dairy.Div(dim, k.DaysToMinimumLoss)
	loss := k.MaxDecrease.Mul(ratio).Mul(dairy.Exp(one.Sub(ratio)))

	dpc := max(s.DaysInMilk-vwp-50, 0)
	conceptus := k.Pregnancy.Pow(three).Mul(decimal.NewFromInt(int64(dpc)).Pow(three))

	return p.Quantize(growth.Add(loss).Add(conceptus)), nil
}

// #endregion body weight

// #region dry matter
var (
	fatCorrection = d("0.04")
	fcmFactor     = d("0.372")
	weightFactor  = d("0.0968")
	metabolicExp  = d("0.75")
	lagFactor     = d("-0.192")
	lagWeeks      = d("3.67")
	seven         = decimal.NewFromInt(7)
)

// DryMatterIntake estimates daily intake in kg from the 4% fat-corrected yield of s and
// the metabolic body weight.
func DryMatterIntake(s dairy.State, bodyWeight decimal.Decimal, p dairy.Precision) (decimal.Decimal, error) {
	fcm := s.MilkOutput.Mul(fatCorrection)
	metabolic, err := bodyWeight.PowWithPrecision(metabolicExp, dairy.DivisionScale)
	if err != nil {
		return decimal.Zero, fmt.Errorf("dry matter intake of %s: %w", s, err)
	}
	weeks := dairy.Div(decimal.NewFromInt(int64(s.DaysInMilk)), seven).Add(lagWeeks)
	lag := one.Sub(dairy.Exp(lagFactor.Mul(weeks)))
	return p.Quantize(fcmFactor.Mul(fcm).Add(weightFactor.Mul(metabolic)).Mul(lag)), nil
}

// #endregion dry matter

// #region excretion
// Estimate is a prediction with its error band.
type Estimate struct {
	Mean decimal.Decimal
	Min  decimal.Decimal
	Max  decimal.Decimal
}

func (e Estimate) String() string {
	return fmt.Sprintf("%s [%s, %s]", e.Mean, e.Min, e.Max)
}

type line struct{ intercept, slope decimal.Decimal }

func (l line) at(x decimal.Decimal) decimal.Decimal { return l.intercept.Add(l.slope.Mul(x)) }

type band [3]line

func (b band) estimate(x decimal.Decimal, p dairy.Precision) Estimate {
	return Estimate{Mean: p.Quantize(b[0].at(x)), Min: p.Quantize(b[1].at(x)), Max: p.Quantize(b[2].at(x))}
}

func mk(a, b string) line { return line{d(a), d(b)} }

var (
	dryUrine       = band{mk("12.0", "0.333"), mk("6.2", "0.322"), mk("17.8", "0.344")}
	lactUrine      = band{mk("14.3", "0.51"), mk("11.12", "0.39"), mk("17.48", "0.63")}
	dryFecal       = band{mk("-18.5", "10.1"), mk("-22.09", "9.931"), mk("-14.91", "10.269")}
	lactFecal      = band{mk("0.35", "0.32"), mk("-1.38", "0.3136"), mk("2.08", "0.3264")}
	dryManure      = band{mk("20.3", "0.654"), mk("15.58", "0.645"), mk("25.02", "0.663")}
	lactManure     = band{mk("15.1", "0.83"), mk("12.6", "0.812"), mk("17.6", "0.848")}
	milkNitrogen   = band{mk("-19.0", "8.13"), mk("-22.21", "7.885"), mk("-15.79", "8.375")}
	proteinToN     = d("0.625")
	milkProteinToN = d("0.638")
	endogenousN    = d("5")

	phosphorusIntakeShare = [3]decimal.Decimal{d("0.73"), d("0.7"), d("0.76")}
	phosphorusMilkShare   = [3]decimal.Decimal{d("0.37"), d("0.29"), d("0.45")}
)

// NitrogenIntake converts dry matter intake in kg and dietary crude protein in % to g N.
func NitrogenIntake(dmi, dietCP decimal.Decimal, p dairy.Precision) decimal.Decimal {
	return p.Quantize(dairy.Div(dmi.Mul(dietCP), proteinToN))
}

// ManureNitrogen is the mass balance estimate of manure N in g for a lactating cow.
func ManureNitrogen(dmi, dietCP, milkYield, milkCP decimal.Decimal, p dairy.Precision) decimal.Decimal {
	in := dairy.Div(dmi.Mul(dietCP), proteinToN)
	out := dairy.Div(milkYield.Mul(milkCP), milkProteinToN)
	return p.Quantize(in.Sub(out).Sub(endogenousN))
}

// UrineNitrogen predicts urinary N in g from N intake.
func UrineNitrogen(lactating bool, nitrogenIntake decimal.Decimal, p dairy.Precision) Estimate {
	if lactating {
		return lactUrine.estimate(nitrogenIntake, p)
	}
	return dryUrine.estimate(nitrogenIntake, p)
}

// FecalNitrogen predicts fecal N in g. Dry cows are predicted from dry matter intake,
// lactating cows from N intake.
func FecalNitrogen(lactating bool, dmi, nitrogenIntake decimal.Decimal, p dairy.Precision) Estimate {
	if lactating {
		return lactFecal.estimate(nitrogenIntake, p)
	}
	return dryFecal.estimate(dmi, p)
}

// TotalManureNitrogen predicts urinary plus fecal N in g from N intake.
func TotalManureNitrogen(lactating bool, nitrogenIntake decimal.Decimal, p dairy.Precision) Estimate {
	if lactating {
		return lactManure.estimate(nitrogenIntake, p)
	}
	return dryManure.estimate(nitrogenIntake, p)
}

// MilkNitrogen predicts N secreted in milk in g from dry matter intake.
func MilkNitrogen(dmi decimal.Decimal, p dairy.Precision) Estimate {
	return milkNitrogen.estimate(dmi, p)
}

// FecalPhosphorus predicts fecal P in g from P intake in g and milk yield in kg.
func FecalPhosphorus(phosphorusIntake, milkYield decimal.Decimal, p dairy.Precision) Estimate {
	var v [3]decimal.Decimal
	for i := range v {
		v[i] = p.Quantize(phosphorusIntakeShare[i].Mul(phosphorusIntake).Sub(phosphorusMilkShare[i].Mul(milkYield)))
	}
	return Estimate{Mean: v[0], Min: v[1], Max: v[2]}
}

// #endregion excretion
