package yield

import (
	"errors"
	"testing"

	"github.com/danielpatrickdp/digital-cow/internal/dairy"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurveFor(t *testing.T) {
	c, err := CurveFor(1, 9)
	require.NoError(t, err)
	assert.True(t, c.Scale.Equal(decimal.RequireFromString("34.8")))

	c, err = CurveFor(10, 9)
	require.NoError(t, err, "limit+1 covers calving in the last lactation")
	assert.True(t, c.Scale.Equal(decimal.RequireFromString("47.7")))

	_, err = CurveFor(11, 9)
	assert.True(t, errors.Is(err, dairy.ErrConfiguration))
}

func TestProductionReferenceValues(t *testing.T) {
	first, err := CurveFor(1, 2)
	require.NoError(t, err)
	mature, err := CurveFor(2, 2)
	require.NoError(t, err)

	tests := []struct {
		name  string
		curve Curve
		state dairy.State
		want  string
	}{
		{"first lactation calving day", first, dairy.OpenState(0, 1, decimal.Zero), "17.4"},
		{"first lactation day 1", first, dairy.OpenState(1, 1, decimal.Zero), "17.9432516631"},
		{"first lactation day 2", first, dairy.OpenState(2, 1, decimal.Zero), "18.4652097840"},
		{"mature calving day", mature, dairy.OpenState(0, 2, decimal.Zero), "23.85"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Production(tt.curve, tt.state, 280, 60, dairy.DefaultPrecision)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestProductionZeroCases(t *testing.T) {
	c, err := CurveFor(2, 9)
	require.NoError(t, err)

	heifer := Production(heiferCurve, dairy.OpenState(10, 0, decimal.Zero), 279, 60, dairy.DefaultPrecision)
	assert.True(t, heifer.IsZero())

	exit := Production(c, dairy.ExitState(10, 2), 282, 60, dairy.DefaultPrecision)
	assert.True(t, exit.IsZero())

	dry := Production(c, dairy.PregnantState(300, 2, 222, decimal.Zero), 282, 60, dairy.DefaultPrecision)
	assert.True(t, dry.IsZero(), "dp >= dp_limit - duration_dry is dry")

	milking := Production(c, dairy.PregnantState(300, 2, 221, decimal.Zero), 282, 60, dairy.DefaultPrecision)
	assert.True(t, milking.IsPositive())
}

func TestModelMemoizesSharedCurve(t *testing.T) {
	m := NewModel(9, dairy.DefaultPrecision)

	a, err := m.Production(dairy.OpenState(50, 3, decimal.Zero), 282, 60)
	require.NoError(t, err)
	b, err := m.Production(dairy.DoNotBreedState(50, 7, decimal.Zero), 282, 60)
	require.NoError(t, err)

	assert.True(t, a.Equal(b), "lactations 2+ share a curve")
	assert.Equal(t, 1, m.Len())

	_, err = m.Production(dairy.OpenState(0, 11, decimal.Zero), 282, 60)
	assert.ErrorIs(t, err, dairy.ErrConfiguration)
}
