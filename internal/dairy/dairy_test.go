package dairy

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExp(t *testing.T) {
	cases := []struct {
		x    string
		want string
	}{
		{"0", "1"},
		{"0.5", "1.6487212707001281468486507878"},
		{"1", "2.7182818284590452353602874714"},
		{"-28", "0.0000000000006914400106940203"},
	}
	for _, tc := range cases {
		got := Exp(decimal.RequireFromString(tc.x)).Round(28)
		assert.True(t, got.Equal(decimal.RequireFromString(tc.want)), "exp(%s) = %s", tc.x, got)
	}
}

func TestQuantizeIsHalfEven(t *testing.T) {
	p := Precision(2)
	assert.Equal(t, "0.12", p.Quantize(decimal.RequireFromString("0.125")).String())
	assert.Equal(t, "0.14", p.Quantize(decimal.RequireFromString("0.135")).String())
	assert.Equal(t, "0.01", p.Unit().String())
}

func TestPrecisionBounds(t *testing.T) {
	for _, p := range []Precision{-1, 0, MaxPrecision + 1, 1 << 20} {
		assert.ErrorIs(t, p.Validate(), ErrValidation, "precision %d", p)
	}
	assert.NoError(t, Precision(1).Validate())
	assert.NoError(t, MaxPrecision.Validate())
}

func TestNewState(t *testing.T) {
	s, err := NewState("Pregnant", 40, 1, 3, decimal.RequireFromString("20.5"))
	require.NoError(t, err)
	assert.Equal(t, Pregnant, s.Phase)
	assert.Equal(t, "Pregnant|40|1|3|20.5", s.Key())

	_, err = NewState("Dry", 0, 0, 0, decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = NewState("Open", 0, -1, 0, decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = NewState("Open", 0, 0, 0, decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStateEqualComparesMilkByValue(t *testing.T) {
	a := OpenState(1, 1, decimal.RequireFromString("17.40"))
	b := OpenState(1, 1, decimal.RequireFromString("17.4"))
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(DoNotBreedState(1, 1, b.MilkOutput)))
	assert.True(t, ExitState(3, 1).MilkOutput.IsZero())
	assert.True(t, Origin().Equal(OpenState(0, 0, decimal.Zero)))
}
