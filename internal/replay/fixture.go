package replay

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/danielpatrickdp/digital-cow/internal/cow"
	"github.com/danielpatrickdp/digital-cow/internal/dairy"
	"github.com/danielpatrickdp/digital-cow/internal/herd"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// #region fixture-types

// Fixture is the top-level structure of a reference chain file: the herd it was generated
// for and every state and edge in generation order.
type Fixture struct {
	Description          string         `json:"description" yaml:"description"`
	Herd                 FixtureHerd    `json:"herd" yaml:"herd"`
	DaysInMilkLimit      int            `json:"days_in_milk_limit" yaml:"days_in_milk_limit"`
	LactationNumberLimit int            `json:"lactation_number_limit" yaml:"lactation_number_limit"`
	Precision            int            `json:"precision" yaml:"precision"`
	States               []FixtureState `json:"states" yaml:"states"`
	Edges                []FixtureEdge  `json:"edges" yaml:"edges"`
}

// FixtureHerd mirrors herd.Params for fixture files.
type FixtureHerd struct {
	VoluntaryWaitingPeriod []int           `json:"vwp" yaml:"vwp"`
	InseminationWindow     []int           `json:"insemination_window" yaml:"insemination_window"`
	DaysPregnantLimit      []int           `json:"days_pregnant_limit" yaml:"days_pregnant_limit"`
	DurationDry            []int           `json:"duration_dry" yaml:"duration_dry"`
	MilkThreshold          decimal.Decimal `json:"milk_threshold" yaml:"milk_threshold"`
	DaysInMilkLimit        int             `json:"days_in_milk_limit" yaml:"days_in_milk_limit"`
	LactationNumberLimit   int             `json:"lactation_number_limit" yaml:"lactation_number_limit"`
}

// FixtureState mirrors dairy.State for fixture files.
type FixtureState struct {
	Phase           string          `json:"phase" yaml:"phase"`
	DaysInMilk      int             `json:"days_in_milk" yaml:"days_in_milk"`
	LactationNumber int             `json:"lactation_number" yaml:"lactation_number"`
	DaysPregnant    int             `json:"days_pregnant" yaml:"days_pregnant"`
	MilkOutput      decimal.Decimal `json:"milk_output" yaml:"milk_output"`
}

// FixtureEdge mirrors cow.Edge for fixture files.
type FixtureEdge struct {
	From        uint            `json:"from" yaml:"from"`
	To          uint            `json:"to" yaml:"to"`
	Probability decimal.Decimal `json:"probability" yaml:"probability"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads a fixture file. Files ending in .yaml or .yml are parsed as YAML,
// anything else as JSON.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	unmarshal := json.Unmarshal
	if isYAML(path) {
		unmarshal = yaml.Unmarshal
	}
	if err := unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// ToParams converts a FixtureHerd to validated herd parameters. First-heat settings keep
// their defaults; they do not shape the chain.
func (h *FixtureHerd) ToParams() (herd.Params, error) {
	p := herd.Default()
	p.VoluntaryWaitingPeriods = h.VoluntaryWaitingPeriod
	p.InseminationWindows = h.InseminationWindow
	p.DaysPregnantLimits = h.DaysPregnantLimit
	p.DurationsDry = h.DurationDry
	p.MilkThreshold = h.MilkThreshold
	p.DaysInMilkLimit = h.DaysInMilkLimit
	p.LactationNumberLimit = h.LactationNumberLimit
	if err := p.Validate(); err != nil {
		return herd.Params{}, err
	}
	return p, nil
}

// ToState converts a FixtureState to a domain State.
func (s *FixtureState) ToState() (dairy.State, error) {
	return dairy.NewState(s.Phase, s.DaysInMilk, s.LactationNumber, s.DaysPregnant, s.MilkOutput)
}

// #endregion fixture-loader

// #region fixture-export

// BuildFixture captures every state and edge of s.
func BuildFixture(s *cow.Space, description string) (*Fixture, error) {
	p := s.Params()
	f := &Fixture{
		Description: description,
		Herd: FixtureHerd{
			VoluntaryWaitingPeriod: p.VoluntaryWaitingPeriods,
			InseminationWindow:     p.InseminationWindows,
			DaysPregnantLimit:      p.DaysPregnantLimits,
			DurationDry:            p.DurationsDry,
			MilkThreshold:          p.MilkThreshold,
			DaysInMilkLimit:        p.DaysInMilkLimit,
			LactationNumberLimit:   p.LactationNumberLimit,
		},
		DaysInMilkLimit:      s.DaysInMilkLimit(),
		LactationNumberLimit: s.LactationNumberLimit(),
		Precision:            int(s.Precision()),
		States:               make([]FixtureState, 0, s.Len()),
	}
	for _, st := range s.States() {
		f.States = append(f.States, FixtureState{
			Phase:           st.Phase.String(),
			DaysInMilk:      st.DaysInMilk,
			LactationNumber: st.LactationNumber,
			DaysPregnant:    st.DaysPregnant,
			MilkOutput:      st.MilkOutput,
		})
	}
	it := cow.NewEdgeIterator(s)
	for it.Next() {
		e := it.Edge()
		f.Edges = append(f.Edges, FixtureEdge{From: e.From, To: e.To, Probability: e.Probability})
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("build fixture: %w", err)
	}
	return f, nil
}

// WriteFixture encodes f as indented JSON.
func WriteFixture(w io.Writer, f *Fixture) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("write fixture: %w", err)
	}
	return nil
}

// WriteFixtureYAML encodes f as YAML.
func WriteFixtureYAML(w io.Writer, f *Fixture) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("write fixture: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("write fixture: %w", err)
	}
	return nil
}

// #endregion fixture-export
