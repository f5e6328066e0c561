package cow

import (
	"fmt"
	"strings"

	"github.com/danielpatrickdp/digital-cow/internal/dairy"
	"github.com/danielpatrickdp/digital-cow/internal/herd"
	"github.com/danielpatrickdp/digital-cow/internal/yield"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// #region types
// Config describes a new cow. Zero values give an Open heifer on day 0.
type Config struct {
	ID              uuid.UUID // uuid.Nil assigns a fresh id
	Phase           string    // defaults to "Open"
	DaysInMilk      int
	LactationNumber int
	DaysPregnant    int
	Age             int
	AgeAtFirstHeat  *int
	Precision       dairy.Precision // 0 means dairy.DefaultPrecision
}

// Cow is one animal: its current state, herd membership and generated chain.
// Membership is a herd id plus a snapshot of that herd's parameters, pushed by the Herd.
type Cow struct {
	id             uuid.UUID
	herdID         uuid.UUID
	params         herd.Params
	state          dairy.State
	precision      dairy.Precision
	curve          yield.Curve
	age            int
	ageAtFirstHeat int
	hasFirstHeat   bool
	space          *Space
}

// #endregion types

// #region constructor
// New builds a cow outside any herd. Its milk output stays zero until it joins one.
func New(cfg Config) (*Cow, error) {
	if cfg.Phase == "" {
		cfg.Phase = dairy.Open.String()
	}
	st, err := dairy.NewState(cfg.Phase, cfg.DaysInMilk, cfg.LactationNumber, cfg.DaysPregnant, decimal.Zero)
	if err != nil {
		return nil, fmt.Errorf("new cow: %w", err)
	}
	if cfg.Precision == 0 {
		cfg.Precision = dairy.DefaultPrecision
	}
	if err := cfg.Precision.Validate(); err != nil {
		return nil, fmt.Errorf("new cow: %w", err)
	}
	c := &Cow{
		id:        cfg.ID,
		state:     st,
		precision: cfg.Precision,
		age:       cfg.Age,
	}
	if c.id == uuid.Nil {
		c.id = uuid.New()
	}
	if cfg.AgeAtFirstHeat != nil {
		c.ageAtFirstHeat = *cfg.AgeAtFirstHeat
		c.hasFirstHeat = true
	}
	return c, nil
}

// #endregion constructor

// #region membership
// attach binds the cow to a herd and recomputes its milk output under the herd parameters.
func (c *Cow) attach(herdID uuid.UUID, p herd.Params) error {
	prevID, prevParams := c.herdID, c.params
	c.herdID, c.params = herdID, p.Clone()
	if err := c.refreshYield(); err != nil {
		c.herdID, c.params = prevID, prevParams
		return err
	}
	return nil
}

func (c *Cow) detach() {
	c.herdID = uuid.Nil
	c.params = herd.Params{}
	c.curve = yield.Curve{}
	c.state.MilkOutput = decimal.Zero
}

// InHerd reports whether the cow belongs to a herd.
func (c *Cow) InHerd() bool { return c.herdID != uuid.Nil }

// refreshYield reloads the curve for the current lactation and recomputes milk output.
func (c *Cow) refreshYield() error {
	if !c.InHerd() {
		return nil
	}
	ln := c.state.LactationNumber
	curve, err := yield.CurveFor(ln, c.params.LactationNumberLimit)
	if err != nil {
		return fmt.Errorf("cow %s: %w", c.id, err)
	}
	c.curve = curve
	c.state.MilkOutput = yield.Production(curve, c.state,
		c.params.DaysPregnantLimit(ln), c.params.DurationDry(ln), c.precision)
	return nil
}

// #endregion membership

// #region accessors
func (c *Cow) ID() uuid.UUID { return c.id }
func (c *Cow) HerdID() uuid.UUID { return c.herdID }
func (c *Cow) State() dairy.State { return c.state }
func (c *Cow) Precision() dairy.Precision { return c.precision }
func (c *Cow) Age() int { return c.age }
func (c *Cow) Curve() yield.Curve { return c.curve }
func (c *Cow) MilkOutput() decimal.Decimal { return c.state.MilkOutput }

// AgeAtFirstHeat returns the age of first estrus, false if it has not happened.
func (c *Cow) AgeAtFirstHeat() (int, bool) { return c.ageAtFirstHeat, c.hasFirstHeat }

func (c *Cow) SetAge(age int) { c.age = age }

func (c *Cow) SetAgeAtFirstHeat(age int) {
	c.ageAtFirstHeat = age
	c.hasFirstHeat = true
}

// #endregion accessors

// #region setters
// SetState replaces the current state and recomputes its milk output.
// On error the previous state is kept.
func (c *Cow) SetState(st dairy.State) error {
	st.MilkOutput = decimal.Zero
	if err := st.Validate(); err != nil {
		return fmt.Errorf("set state: %w", err)
	}
	prev, prevCurve := c.state, c.curve
	c.state = st
	if err := c.refreshYield(); err != nil {
		c.state, c.curve = prev, prevCurve
		return fmt.Errorf("set state: %w", err)
	}
	return nil
}

func (c *Cow) SetDaysInMilk(dim int) error {
	st := c.state
	st.DaysInMilk = dim
	return c.SetState(st)
}

func (c *Cow) SetLactationNumber(ln int) error {
	st := c.state
	st.LactationNumber = ln
	return c.SetState(st)
}

func (c *Cow) SetDaysPregnant(dp int) error {
	st := c.state
	st.DaysPregnant = dp
	return c.SetState(st)
}

// SetLifePhase sets the phase by name.
func (c *Cow) SetLifePhase(name string) error {
	p, err := dairy.ParseLifePhase(name)
	if err != nil {
		return err
	}
	st := c.state
	st.Phase = p
	return c.SetState(st)
}

// SetPrecision changes rounding. A chain generated at another precision becomes stale.
func (c *Cow) SetPrecision(p dairy.Precision) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("set precision: %w", err)
	}
	c.precision = p
	return c.refreshYield()
}

// #endregion setters

// #region chain
// GenerateTotalStates builds the state space up to the herd's own limits.
func (c *Cow) GenerateTotalStates() error {
	if !c.InHerd() {
		return fmt.Errorf("generate states for cow %s: no herd: %w", c.id, dairy.ErrPrecondition)
	}
	return c.GenerateTotalStatesWithin(c.params.DaysInMilkLimit, c.params.LactationNumberLimit)
}

// GenerateTotalStatesWithin builds the state space up to explicit limits.
func (c *Cow) GenerateTotalStatesWithin(dimLimit, lnLimit int) error {
	if !c.InHerd() {
		return fmt.Errorf("generate states for cow %s: no herd: %w", c.id, dairy.ErrPrecondition)
	}
	s, err := Generate(c.params, dimLimit, lnLimit, c.precision)
	if err != nil {
		return fmt.Errorf("cow %s: %w", c.id, err)
	}
	c.space = s
	return nil
}

// Space returns the generated state space. A chain built before the herd parameters or the
// precision changed is refused until it is regenerated.
func (c *Cow) Space() (*Space, error) {
	s := c.space
	if s == nil {
		return nil, fmt.Errorf("cow %s: no chain: %w", c.id, dairy.ErrPrecondition)
	}
	if !s.Matches(c.params, s.dimLimit, s.lnLimit, c.precision) {
		return nil, fmt.Errorf("cow %s: chain is stale: %w", c.id, dairy.ErrPrecondition)
	}
	return s, nil
}

// Stale reports whether the chain is missing or was generated for other herd parameters,
// limits or precision.
func (c *Cow) Stale() bool {
	if c.space == nil {
		return true
	}
	return !c.space.Matches(c.params, c.params.DaysInMilkLimit, c.params.LactationNumberLimit, c.precision)
}

// TotalStates returns the generated sequence.
func (c *Cow) TotalStates() ([]dairy.State, error) {
	s, err := c.Space()
	if err != nil {
		return nil, err
	}
	return s.States(), nil
}

// PossibleNewStates lists the next-day successors of from.
func (c *Cow) PossibleNewStates(from dairy.State) ([]dairy.State, error) {
	s, err := c.Space()
	if err != nil {
		return nil, err
	}
	return s.Successors(from)
}

// ProbabilityStateChange is the one-day transition probability from -> to.
func (c *Cow) ProbabilityStateChange(from, to dairy.State) (decimal.Decimal, error) {
	s, err := c.Space()
	if err != nil {
		return decimal.Zero, err
	}
	return s.Probability(from, to)
}

// Edges returns a fresh iterator over the weighted edge stream.
func (c *Cow) Edges() (*EdgeIterator, error) {
	s, err := c.Space()
	if err != nil {
		return nil, err
	}
	return NewEdgeIterator(s), nil
}

// NodeCount is the number of generated states.
func (c *Cow) NodeCount() (int, error) {
	s, err := c.Space()
	if err != nil {
		return 0, err
	}
	return s.Len(), nil
}

// EdgeCount is the total number of successors over all generated states.
func (c *Cow) EdgeCount() (int, error) {
	s, err := c.Space()
	if err != nil {
		return 0, err
	}
	return s.EdgeCount()
}

// InitialStateVector is one-hot on the current state.
func (c *Cow) InitialStateVector() ([]int, error) {
	s, err := c.Space()
	if err != nil {
		return nil, err
	}
	i, ok := s.Index(c.state)
	if !ok {
		return nil, fmt.Errorf("initial vector: %s not generated: %w", c.state, dairy.ErrInvalidState)
	}
	return s.InitialStateVector(i), nil
}

// #endregion chain

func (c *Cow) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cow %s\n", c.id)
	fmt.Fprintf(&b, "\tDIM: %d\n", c.state.DaysInMilk)
	fmt.Fprintf(&b, "\tLactation number: %d\n", c.state.LactationNumber)
	fmt.Fprintf(&b, "\tDays pregnant: %d\n", c.state.DaysPregnant)
	fmt.Fprintf(&b, "\tAge: %d\n", c.age)
	if c.InHerd() {
		fmt.Fprintf(&b, "\tHerd: %s\n", c.herdID)
	} else {
		b.WriteString("\tHerd: none\n")
	}
	fmt.Fprintf(&b, "\tCurrent state: %s", c.state.Phase)
	return b.String()
}
