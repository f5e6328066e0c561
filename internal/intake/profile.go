package intake

import (
	"github.com/danielpatrickdp/digital-cow/internal/dairy"
	"github.com/shopspring/decimal"
)

// Diet describes the ration and milk composition used for the excretion estimates.
type Diet struct {
	CrudeProtein     decimal.Decimal `json:"crude_protein" yaml:"crude_protein"`           // % of dry matter
	MilkCrudeProtein decimal.Decimal `json:"milk_crude_protein" yaml:"milk_crude_protein"` // % of milk
	PhosphorusIntake decimal.Decimal `json:"phosphorus_intake" yaml:"phosphorus_intake"`   // g per day
}

// DefaultDiet is a typical ration for a Holstein herd.
func DefaultDiet() Diet {
	return Diet{
		CrudeProtein:     d("16.5"),
		MilkCrudeProtein: d("3.3"),
		PhosphorusIntake: d("80"),
	}
}

// Profile is the full set of estimates for one state.
type Profile struct {
	State           dairy.State
	Lactating       bool
	BodyWeight      decimal.Decimal
	DryMatterIntake decimal.Decimal
	NitrogenIntake  decimal.Decimal
	ManureNitrogen  decimal.Decimal
	Urine           Estimate
	Fecal           Estimate
	TotalManure     Estimate
	Milk            Estimate
	FecalPhosphorus Estimate
}

// Lactating reports whether s is being milked.
func Lactating(s dairy.State) bool {
	return s.Phase != dairy.Exit && s.LactationNumber > 0 && s.MilkOutput.IsPositive()
}

// ProfileOf computes every estimate for s.
func ProfileOf(s dairy.State, age, vwp int, diet Diet, p dairy.Precision) (Profile, error) {
	bw, err := BodyWeight(s, age, vwp, p)
	if err != nil {
		return Profile{}, err
	}
	dmi, err := DryMatterIntake(s, bw, p)
	if err != nil {
		return Profile{}, err
	}
	lactating := Lactating(s)
	nIn := NitrogenIntake(dmi, diet.CrudeProtein, p)
	return Profile{
		State:           s,
		Lactating:       lactating,
		BodyWeight:      bw,
		DryMatterIntake: dmi,
		NitrogenIntake:  nIn,
		ManureNitrogen:  ManureNitrogen(dmi, diet.CrudeProtein, s.MilkOutput, diet.MilkCrudeProtein, p),
		Urine:           UrineNitrogen(lactating, nIn, p),
		Fecal:           FecalNitrogen(lactating, dmi, nIn, p),
		TotalManure:     TotalManureNitrogen(lactating, nIn, p),
		Milk:            MilkNitrogen(dmi, p),
		FecalPhosphorus: FecalPhosphorus(diet.PhosphorusIntake, s.MilkOutput, p),
	}, nil
}
