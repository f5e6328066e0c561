package intake

import (
	"testing"

	"github.com/danielpatrickdp/digital-cow/internal/dairy"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const prec = dairy.DefaultPrecision

var tolerance = decimal.New(2, -10)

func assertNear(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	w := decimal.RequireFromString(want)
	assert.True(t, w.Sub(got).Abs().LessThanOrEqual(tolerance), "want %s, got %s", want, got)
}

func TestHeiferBodyWeightIsLinearAndCapped(t *testing.T) {
	bw, err := BodyWeight(dairy.OpenState(100, 0, decimal.Zero), 100, 0, prec)
	require.NoError(t, err)
	assertNear(t, "109.4", bw)

	bw, err = BodyWeight(dairy.OpenState(0, 0, decimal.Zero), 0, 0, prec)
	require.NoError(t, err)
	assertNear(t, "42", bw)

	bw, err = BodyWeight(dairy.OpenState(2000, 0, decimal.Zero), 2000, 0, prec)
	require.NoError(t, err)
	assertNear(t, "1270", bw)
}

func TestKorverBodyWeight(t *testing.T) {
	cases := []struct {
		name  string
		state dairy.State
		age   int
		want  string
	}{
		{"first lactation at calving", dairy.OpenState(0, 1, decimal.Zero), 700, "599.9021497752"},
		{"first lactation early", dairy.OpenState(30, 1, decimal.Zero), 730, "615.7468277825"},
		{"mature with conceptus", dairy.PregnantState(150, 2, 40, decimal.Zero), 1500, "667.7533567619"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bw, err := BodyWeight(tc.state, tc.age, 60, prec)
			require.NoError(t, err)
			assertNear(t, tc.want, bw)
		})
	}
}

func TestKorverForRejectsHeifers(t *testing.T) {
	_, err := KorverFor(0)
	assert.ErrorIs(t, err, dairy.ErrConfiguration)
	k, err := KorverFor(5)
	require.NoError(t, err)
	assert.True(t, k.MatureWeight.Equal(decimal.NewFromInt(640)))
}

func TestDryMatterIntake(t *testing.T) {
	s := dairy.OpenState(150, 2, decimal.NewFromInt(30))
	dmi, err := DryMatterIntake(s, decimal.RequireFromString("667.7533567619"), prec)
	require.NoError(t, err)
	assertNear(t, "13.0557270744", dmi)

	heifer := dairy.OpenState(100, 0, decimal.Zero)
	dmi, err = DryMatterIntake(heifer, decimal.RequireFromString("109.4"), prec)
	require.NoError(t, err)
	assertNear(t, "3.1702398989", dmi)
}

func TestNitrogenEstimates(t *testing.T) {
	dmi := decimal.RequireFromString("13.0557270744")
	cp := decimal.RequireFromString("16.5")

	nIn := NitrogenIntake(dmi, cp, prec)
	assertNear(t, "344.6711947642", nIn)

	manure := ManureNitrogen(dmi, cp, decimal.NewFromInt(30), decimal.RequireFromString("3.3"), prec)
	assertNear(t, "184.4987809711", manure)

	urine := UrineNitrogen(true, nIn, prec)
	assertNear(t, "190.0823093297", urine.Mean)
	assertNear(t, "145.5417659580", urine.Min)
	assertNear(t, "234.6228527014", urine.Max)

	assertNear(t, "126.7755078565", UrineNitrogen(false, nIn, prec).Mean)
	assertNear(t, "113.3628434514", FecalNitrogen(false, dmi, nIn, prec).Mean)
	assertNear(t, "87.1430611149", MilkNitrogen(dmi, prec).Mean)

	lact := FecalNitrogen(true, dmi, nIn, prec)
	assert.True(t, lact.Min.LessThan(lact.Mean))
	assert.True(t, lact.Mean.LessThan(lact.Max))
	total := TotalManureNitrogen(true, nIn, prec)
	assert.True(t, total.Mean.GreaterThan(urine.Mean), "total includes urine")
}

func TestFecalPhosphorus(t *testing.T) {
	e := FecalPhosphorus(decimal.NewFromInt(80), decimal.NewFromInt(20), prec)
	assertNear(t, "51", e.Mean)
	assertNear(t, "50.2", e.Min)
	assertNear(t, "51.8", e.Max)
}

func TestProfileOf(t *testing.T) {
	s := dairy.PregnantState(150, 2, 40, decimal.NewFromInt(30))
	p, err := ProfileOf(s, 1500, 60, DefaultDiet(), prec)
	require.NoError(t, err)
	assert.True(t, p.Lactating)
	assertNear(t, "667.7533567619", p.BodyWeight)
	assertNear(t, "13.0557270744", p.DryMatterIntake)
	assertNear(t, "344.6711947642", p.NitrogenIntake)

	dry, err := ProfileOf(dairy.OpenState(10, 0, decimal.Zero), 400, 0, DefaultDiet(), prec)
	require.NoError(t, err)
	assert.False(t, dry.Lactating)
}
