package cow

import (
	"testing"

	"github.com/danielpatrickdp/digital-cow/internal/dairy"
	"github.com/danielpatrickdp/digital-cow/internal/herd"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// smallHerd is a compact herd whose whole chain fits in a few hundred states.
func smallHerd(t *testing.T) herd.Params {
	t.Helper()
	p := herd.Default()
	require.NoError(t, p.SetVoluntaryWaitingPeriods([]int{10, 5, 5}))
	require.NoError(t, p.SetInseminationWindows([]int{5, 5, 5}))
	require.NoError(t, p.SetDaysPregnantLimits([]int{8, 9, 10}))
	require.NoError(t, p.SetDurationsDry([]int{2, 3}))
	p.DaysInMilkLimit = 40
	p.LactationNumberLimit = 2
	return p
}

func generateSmall(t *testing.T) *Space {
	t.Helper()
	p := smallHerd(t)
	s, err := Generate(p, p.DaysInMilkLimit, p.LactationNumberLimit, dairy.DefaultPrecision)
	require.NoError(t, err)
	return s
}

func TestGenerateSmallHerd(t *testing.T) {
	s := generateSmall(t)

	require.Equal(t, 414, s.Len())
	assert.True(t, s.State(0).Equal(dairy.Origin()), "first state is Open(0,0,0,0)")
	assert.True(t, s.State(s.Len()-1).Equal(dairy.ExitState(40, 3)), "last state is the exit one lactation past the limit")

	seen := make(map[string]bool, s.Len())
	exits := 0
	for i := 0; i < s.Len(); i++ {
		st := s.State(i)
		require.False(t, seen[st.Key()], "duplicate state %s", st)
		seen[st.Key()] = true

		idx, ok := s.Index(st)
		require.True(t, ok)
		assert.Equal(t, i, idx)

		if st.Phase == dairy.Exit {
			exits++
		}
		if st.DaysPregnant > 0 {
			assert.Equal(t, dairy.Pregnant, st.Phase, "only pregnant states count gestation days")
		}
	}
	assert.Equal(t, 132, exits)
}

func TestGenerateIsDeterministic(t *testing.T) {
	a := generateSmall(t)
	b := generateSmall(t)
	require.Equal(t, a.Len(), b.Len())
	for i := 0; i < a.Len(); i++ {
		require.True(t, a.State(i).Equal(b.State(i)), "index %d differs", i)
	}

	ea, err := a.Edges()
	require.NoError(t, err)
	eb, err := b.Edges()
	require.NoError(t, err)
	require.Equal(t, len(ea), len(eb))
	for i := range ea {
		assert.Equal(t, ea[i].From, eb[i].From)
		assert.Equal(t, ea[i].To, eb[i].To)
		assert.True(t, ea[i].Probability.Equal(eb[i].Probability))
	}
}

func TestHeiferYieldIsZero(t *testing.T) {
	s := generateSmall(t)
	for _, st := range s.States() {
		if st.LactationNumber == 0 || st.Phase == dairy.Exit {
			assert.True(t, st.MilkOutput.IsZero(), "%s should not give milk", st)
		}
	}
}

func TestGenerateRejectsBadLimits(t *testing.T) {
	p := smallHerd(t)
	_, err := Generate(p, 0, 2, dairy.DefaultPrecision)
	assert.ErrorIs(t, err, dairy.ErrValidation)

	_, err = Generate(p, 40, 5, dairy.DefaultPrecision)
	assert.ErrorIs(t, err, dairy.ErrConfiguration, "lactations past limit+1 have no yield curve")

	for _, prec := range []dairy.Precision{-1, 0, dairy.MaxPrecision + 1} {
		_, err = Generate(p, 40, 2, prec)
		assert.ErrorIs(t, err, dairy.ErrValidation, "precision %d", prec)
	}
}

func TestSuccessors(t *testing.T) {
	s := generateSmall(t)

	t.Run("exit resets to origin", func(t *testing.T) {
		next, err := s.Successors(dairy.ExitState(12, 1))
		require.NoError(t, err)
		require.Len(t, next, 1)
		assert.True(t, next[0].Equal(dairy.Origin()))
	})

	t.Run("exit comes first", func(t *testing.T) {
		open := dairy.OpenState(10, 1, decimal.RequireFromString("21.9591729640"))
		next, err := s.Successors(open)
		require.NoError(t, err)
		require.Len(t, next, 3)
		assert.True(t, next[0].Equal(dairy.ExitState(11, 1)))
		assert.Equal(t, dairy.Pregnant, next[1].Phase)
		assert.Equal(t, 1, next[1].DaysPregnant)
		assert.Equal(t, dairy.DoNotBreed, next[2].Phase)
		assert.True(t, next[1].MilkOutput.Equal(decimal.RequireFromString("22.3203272500")))
	})

	t.Run("calving opens next lactation", func(t *testing.T) {
		next, err := s.Successors(dairy.PregnantState(14, 1, 9, decimal.Zero))
		require.NoError(t, err)
		require.Len(t, next, 2)
		assert.True(t, next[1].Equal(dairy.OpenState(0, 2, decimal.RequireFromString("23.85"))))
	})

	t.Run("invalid phase", func(t *testing.T) {
		_, err := s.Successors(dairy.State{Phase: dairy.LifePhase(9)})
		assert.ErrorIs(t, err, dairy.ErrInvalidState)
	})
}

func TestTerminalCollapse(t *testing.T) {
	s := generateSmall(t)
	last := s.DaysInMilkLimit() - 1
	checked := 0
	for _, st := range s.States() {
		if st.DaysInMilk != last || st.Phase == dairy.Exit {
			continue
		}
		next, err := s.Successors(st)
		require.NoError(t, err)
		require.Len(t, next, 1, "%s", st)
		assert.True(t, next[0].Equal(dairy.ExitState(last+1, st.LactationNumber)))
		checked++
	}
	assert.Positive(t, checked)
}

func TestSpaceMatches(t *testing.T) {
	p := smallHerd(t)
	s := generateSmall(t)
	assert.True(t, s.Matches(p, 40, 2, dairy.DefaultPrecision))
	assert.False(t, s.Matches(p, 41, 2, dairy.DefaultPrecision))
	assert.False(t, s.Matches(p, 40, 2, 8))

	require.NoError(t, p.SetMilkThreshold(decimal.NewFromInt(11)))
	assert.False(t, s.Matches(p, 40, 2, dairy.DefaultPrecision))
}

func TestDefaultHerdScenario(t *testing.T) {
	if testing.Short() {
		t.Skip("full default herd generates 300k states")
	}
	p := herd.Default()
	s, err := Generate(p, p.DaysInMilkLimit, p.LactationNumberLimit, dairy.DefaultPrecision)
	require.NoError(t, err)

	assert.Equal(t, 300374, s.Len())
	assert.True(t, s.State(0).Equal(dairy.Origin()))
	assert.True(t, s.State(s.Len()-1).Equal(dairy.ExitState(1000, 10)))

	counts := map[dairy.LifePhase]int{}
	for _, st := range s.States() {
		counts[st.Phase]++
	}
	assert.Equal(t, 1935, counts[dairy.Open])
	assert.Equal(t, 284315, counts[dairy.Pregnant])
	assert.Equal(t, 3711, counts[dairy.DoNotBreed])
	assert.Equal(t, 10413, counts[dairy.Exit])
}

func TestResolveFillsMilkOutput(t *testing.T) {
	s := generateSmall(t)

	st, err := s.Resolve(dairy.OpenState(10, 1, decimal.Zero))
	require.NoError(t, err)
	assert.True(t, st.MilkOutput.Equal(decimal.RequireFromString("21.9591729640")), "got %s", st.MilkOutput)
	_, ok := s.Index(st)
	assert.True(t, ok)

	_, err = s.Resolve(dairy.State{Phase: dairy.Open, DaysInMilk: -1})
	assert.ErrorIs(t, err, dairy.ErrInvalidState)
}
