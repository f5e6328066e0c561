package cow

import (
	"testing"

	"github.com/danielpatrickdp/digital-cow/internal/dairy"
	"github.com/danielpatrickdp/digital-cow/internal/herd"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var dailyDeath = decimal.RequireFromString("0.0001369863")

func TestHeiferFirstDay(t *testing.T) {
	s := generateSmall(t)

	exit, err := s.Probability(dairy.Origin(), dairy.ExitState(1, 0))
	require.NoError(t, err)
	assert.True(t, exit.Equal(dailyDeath), "got %s", exit)

	stay, err := s.Probability(dairy.Origin(), dairy.OpenState(1, 0, decimal.Zero))
	require.NoError(t, err)
	assert.True(t, stay.Equal(decimal.RequireFromString("0.9998630137")), "got %s", stay)
}

func TestCalvingWeight(t *testing.T) {
	s := generateSmall(t)
	from := dairy.PregnantState(14, 1, 9, decimal.Zero)

	h := HazardsFor(s.Params(), from)
	require.True(t, h.Birth.Equal(one))
	want := s.Precision().Quantize(one.Sub(h.MilkBelowThreshold).Mul(one.Sub(h.Death)))

	got, err := s.Probability(from, dairy.OpenState(0, 2, decimal.RequireFromString("23.85")))
	require.NoError(t, err)
	assert.True(t, got.Equal(want), "got %s want %s", got, want)
	assert.True(t, got.Equal(decimal.RequireFromString("0.9998630137")))
}

func TestInseminationCutoffSplit(t *testing.T) {
	s := generateSmall(t)
	from := dairy.OpenState(10, 1, decimal.RequireFromString("21.9591729640"))
	next, err := s.Successors(from)
	require.NoError(t, err)

	want := []string{"0.0001369863", "0.0139266634", "0.9859363503"}
	sum := decimal.Zero
	for i, to := range next {
		p, err := s.Probability(from, to)
		require.NoError(t, err)
		assert.True(t, p.Equal(decimal.RequireFromString(want[i])), "%s: got %s", to, p)
		sum = sum.Add(p)
	}
	assert.True(t, sum.Equal(one))
}

func TestLastSimulatedDayExitsWithCertainty(t *testing.T) {
	s := generateSmall(t)
	last := s.DaysInMilkLimit() - 1
	checked := 0
	for _, from := range s.States() {
		if from.Phase == dairy.Exit || from.DaysInMilk != last {
			continue
		}
		next, err := s.Successors(from)
		require.NoError(t, err)
		require.Len(t, next, 1)
		assert.Equal(t, dairy.Exit, next[0].Phase)

		p, err := s.Probability(from, next[0])
		require.NoError(t, err)
		assert.True(t, p.Equal(one), "%s: got %s", from, p)
		checked++
	}
	assert.NotZero(t, checked)
}

func TestProbabilityOfNonAdjacentPairIsZero(t *testing.T) {
	s := generateSmall(t)
	p, err := s.Probability(dairy.Origin(), dairy.OpenState(5, 0, decimal.Zero))
	require.NoError(t, err)
	assert.True(t, p.IsZero())

	p, err = s.Probability(dairy.ExitState(3, 0), dairy.OpenState(0, 1, decimal.Zero))
	require.NoError(t, err)
	assert.True(t, p.IsZero(), "exit only resets to the origin")
}

func TestRoundingPoints(t *testing.T) {
	s := generateSmall(t)

	// Culling returns the literal 1, never a rounded product.
	low := dairy.DoNotBreedState(20, 1, decimal.NewFromInt(5))
	culled, err := s.Probability(low, dairy.ExitState(21, 1))
	require.NoError(t, err)
	assert.Equal(t, "1", culled.String())
	assert.Equal(t, int32(0), culled.Exponent())

	// Composite products carry exactly the configured precision.
	death, err := s.Probability(dairy.Origin(), dairy.ExitState(1, 0))
	require.NoError(t, err)
	assert.Equal(t, -int32(dairy.DefaultPrecision), death.Exponent())

	raw := Death()
	assert.Greater(t, -raw.Exponent(), int32(dairy.DefaultPrecision), "hazards keep full precision until the final product")
}

func TestProbabilityRejectsInvalidPhase(t *testing.T) {
	s := generateSmall(t)
	_, err := s.Probability(dairy.Origin(), dairy.State{Phase: dairy.LifePhase(-1)})
	assert.ErrorIs(t, err, dairy.ErrInvalidState)
}

func TestHazards(t *testing.T) {
	assert.True(t, Ovulation(0).Equal(dairy.Div(one, decimal.NewFromInt(19))))
	assert.True(t, Ovulation(3).Equal(dairy.Div(one, decimal.NewFromInt(21))))

	assert.True(t, Insemination(50, 1, 60).IsZero())
	assert.Equal(t, "0.85", Insemination(400, 0, 365).String())
	assert.Equal(t, "0.65", Insemination(80, 2, 60).String())

	assert.Equal(t, "0.35", Conception(6).String())

	assert.True(t, Abortion(29, 280).IsZero())
	assert.True(t, Abortion(30, 280).Equal(dairy.Div(decimal.RequireFromString("0.125"), decimal.NewFromInt(15))))
	assert.True(t, Abortion(181, 280).Equal(dairy.Div(decimal.RequireFromString("0.02"), decimal.NewFromInt(100))))
	assert.True(t, Abortion(281, 280).IsZero())

	mt := decimal.NewFromInt(10)
	assert.True(t, MilkBelowThreshold(decimal.NewFromInt(9), mt, 2, 0, 282, 60).Equal(one))
	assert.True(t, MilkBelowThreshold(decimal.NewFromInt(9), mt, 0, 0, 282, 60).IsZero(), "heifers are never culled for yield")
	assert.True(t, MilkBelowThreshold(decimal.Zero, mt, 2, 230, 282, 60).IsZero(), "dry cows are never culled for yield")

	assert.True(t, AboveInseminationCutoff(181, 180).Equal(one))
	assert.True(t, AboveInseminationCutoff(180, 180).IsZero())
}

func TestHazardsForUsesBucket(t *testing.T) {
	p := herd.Default()
	h := HazardsFor(p, dairy.PregnantState(400, 5, 282, decimal.Zero))
	assert.True(t, h.Birth.Equal(one), "lactation 5 uses the 2+ gestation length")
	assert.True(t, h.AboveCutoff.Equal(one))
	assert.False(t, h.Culled(), "dry cow")
}
