package dairy

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// #region phase
// LifePhase is the breeding status of a cow on a given day.
type LifePhase int

const (
	Open LifePhase = iota
	Pregnant
	DoNotBreed
	Exit
)

var phaseNames = [...]string{"Open", "Pregnant", "DoNotBreed", "Exit"}

// LifePhases returns every phase in generation order.
func LifePhases() []LifePhase {
	return []LifePhase{Open, Pregnant, DoNotBreed, Exit}
}

func (p LifePhase) String() string {
	if !p.Valid() {
		return "LifePhase(" + strconv.Itoa(int(p)) + ")"
	}
	return phaseNames[p]
}

// Valid reports whether p is one of the four known phases.
func (p LifePhase) Valid() bool {
	return p >= Open && p <= Exit
}

// ParseLifePhase maps a phase name to its LifePhase.
func ParseLifePhase(name string) (LifePhase, error) {
	for i, n := range phaseNames {
		if n == name {
			return LifePhase(i), nil
		}
	}
	return 0, fmt.Errorf("parse life phase %q: %w", name, ErrInvalidState)
}

// #endregion phase

// #region state
// State is one node of the chain. Values are never mutated after creation.
type State struct {
	Phase           LifePhase
	DaysInMilk      int
	LactationNumber int
	DaysPregnant    int
	MilkOutput      decimal.Decimal
}

// NewState builds a State from a phase name, rejecting unknown phases and negative counters.
func NewState(phase string, dim, ln, dp int, milk decimal.Decimal) (State, error) {
	p, err := ParseLifePhase(phase)
	if err != nil {
		return State{}, err
	}
	s := State{Phase: p, DaysInMilk: dim, LactationNumber: ln, DaysPregnant: dp, MilkOutput: milk}
	if err := s.Validate(); err != nil {
		return State{}, err
	}
	return s, nil
}

// Validate checks the phase and that no field is negative.
func (s State) Validate() error {
	if !s.Phase.Valid() {
		return fmt.Errorf("validate state %s: %w", s, ErrInvalidState)
	}
	if s.DaysInMilk < 0 || s.LactationNumber < 0 || s.DaysPregnant < 0 || s.MilkOutput.IsNegative() {
		return fmt.Errorf("validate state %s: negative field: %w", s, ErrInvalidState)
	}
	return nil
}

// Equal compares all five fields; milk output by value, so 17.4 equals 17.40.
func (s State) Equal(o State) bool {
	return s.Phase == o.Phase &&
		s.DaysInMilk == o.DaysInMilk &&
		s.LactationNumber == o.LactationNumber &&
		s.DaysPregnant == o.DaysPregnant &&
		s.MilkOutput.Equal(o.MilkOutput)
}

// Key is the canonical identity used to index generated states.
// Two states are Equal iff their keys match.
func (s State) Key() string {
	var b strings.Builder
	b.Grow(40)
	b.WriteString(s.Phase.String())
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(s.DaysInMilk))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(s.LactationNumber))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(s.DaysPregnant))
	b.WriteByte('|')
	b.WriteString(s.MilkOutput.String())
	return b.String()
}

func (s State) String() string {
	return fmt.Sprintf("State(%s, dim=%d, ln=%d, dp=%d, milk=%s)",
		s.Phase, s.DaysInMilk, s.LactationNumber, s.DaysPregnant, s.MilkOutput.String())
}

// #endregion state

// #region constructors
// OpenState returns an Open state with no pregnancy days.
func OpenState(dim, ln int, milk decimal.Decimal) State {
	return State{Phase: Open, DaysInMilk: dim, LactationNumber: ln, MilkOutput: milk}
}

// PregnantState returns a Pregnant state.
func PregnantState(dim, ln, dp int, milk decimal.Decimal) State {
	return State{Phase: Pregnant, DaysInMilk: dim, LactationNumber: ln, DaysPregnant: dp, MilkOutput: milk}
}

// DoNotBreedState returns a DoNotBreed state.
func DoNotBreedState(dim, ln int, milk decimal.Decimal) State {
	return State{Phase: DoNotBreed, DaysInMilk: dim, LactationNumber: ln, MilkOutput: milk}
}

// ExitState returns an Exit state. Exit never carries yield.
func ExitState(dim, ln int) State {
	return State{Phase: Exit, DaysInMilk: dim, LactationNumber: ln, MilkOutput: decimal.Zero}
}

// Origin is Open(0,0,0,0), the successor of every Exit.
func Origin() State {
	return OpenState(0, 0, decimal.Zero)
}

// #endregion constructors
