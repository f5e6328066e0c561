package cow

import (
	"fmt"
	"slices"

	"github.com/danielpatrickdp/digital-cow/internal/dairy"
	"github.com/danielpatrickdp/digital-cow/internal/herd"
	"github.com/danielpatrickdp/digital-cow/internal/yield"
	"github.com/shopspring/decimal"
)

// #region types
// Space is a generated state space: every state a cow can occupy under one herd
// configuration, in generation order. A Space is immutable once built and safe to share.
type Space struct {
	params    herd.Params
	dimLimit  int
	lnLimit   int
	precision dairy.Precision
	yields    *yield.Model

	states []dairy.State
	index  map[string]int
}

// #endregion types

// #region constructor
// Generate enumerates the state space for p up to dimLimit days in milk and lnLimit lactations.
func Generate(p herd.Params, dimLimit, lnLimit int, prec dairy.Precision) (*Space, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if dimLimit < 1 || lnLimit < 0 {
		return nil, fmt.Errorf("generate states dim=%d ln=%d: %w", dimLimit, lnLimit, dairy.ErrValidation)
	}
	if err := prec.Validate(); err != nil {
		return nil, fmt.Errorf("generate states: %w", err)
	}
	s := &Space{
		params:    p.Clone(),
		dimLimit:  dimLimit,
		lnLimit:   lnLimit,
		precision: prec,
		yields:    yield.NewModel(p.LactationNumberLimit, prec),
		index:     make(map[string]int),
	}
	if err := s.generate(); err != nil {
		return nil, fmt.Errorf("generate states: %w", err)
	}
	return s, nil
}

// #endregion constructor

// #region accessors
// Params returns a copy of the herd parameters the space was generated against.
func (s *Space) Params() herd.Params { return s.params.Clone() }

// DaysInMilkLimit is the generated horizon.
func (s *Space) DaysInMilkLimit() int { return s.dimLimit }

// LactationNumberLimit is the last generated lactation.
func (s *Space) LactationNumberLimit() int { return s.lnLimit }

// Precision is the rounding applied to yields and probabilities.
func (s *Space) Precision() dairy.Precision { return s.precision }

// Len is the number of states.
func (s *Space) Len() int { return len(s.states) }

// State returns the state at index i.
func (s *Space) State(i int) dairy.State { return s.states[i] }

// States returns a copy of the sequence.
func (s *Space) States() []dairy.State { return slices.Clone(s.states) }

// Index returns the position of st in generation order.
func (s *Space) Index(st dairy.State) (int, bool) {
	i, ok := s.index[st.Key()]
	return i, ok
}

// Matches reports whether the space was generated for exactly these inputs.
func (s *Space) Matches(p herd.Params, dimLimit, lnLimit int, prec dairy.Precision) bool {
	return s.dimLimit == dimLimit && s.lnLimit == lnLimit && s.precision == prec &&
		s.params.Fingerprint() == p.Fingerprint()
}

// Resolve returns st with the milk output this space's herd gives it, so a state known
// only by its counters can be looked up with Index.
func (s *Space) Resolve(st dairy.State) (dairy.State, error) {
	if err := st.Validate(); err != nil {
		return dairy.State{}, err
	}
	return s.withYield(st)
}

// #endregion accessors

// #region helpers
func (s *Space) production(st dairy.State) (decimal.Decimal, error) {
	ln := st.LactationNumber
	return s.yields.Production(st, s.params.DaysPregnantLimit(ln), s.params.DurationDry(ln))
}

// withYield returns st carrying its own computed milk output.
func (s *Space) withYield(st dairy.State) (dairy.State, error) {
	milk, err := s.production(st)
	if err != nil {
		return dairy.State{}, err
	}
	st.MilkOutput = milk
	return st, nil
}

func (s *Space) add(st dairy.State) {
	k := st.Key()
	if _, ok := s.index[k]; ok {
		return
	}
	s.index[k] = len(s.states)
	s.states = append(s.states, st)
}

// #endregion helpers
