package replay

import (
	"fmt"

	"github.com/danielpatrickdp/digital-cow/internal/cow"
	"github.com/danielpatrickdp/digital-cow/internal/dairy"
)

// #region types
// Mismatch kinds.
const (
	KindCount = "count"
	KindState = "state"
	KindEdge  = "edge"
)

// maxRecorded caps the mismatches kept in a result; all of them are still counted.
const maxRecorded = 50

// Mismatch is one difference between a fixture and the regenerated chain.
type Mismatch struct {
	Kind  string // "count" | "state" | "edge"
	Index int
	Want  string
	Got   string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s %d: want %s, got %s", m.Kind, m.Index, m.Want, m.Got)
}

// ReplayResult captures the outcome of regenerating one fixture.
type ReplayResult struct {
	StatesChecked int
	EdgesChecked  int
	Mismatches    []Mismatch
	Total         int // every mismatch found, including those past the recorded cap
}

// Passed reports whether the chain matched the fixture exactly.
func (r ReplayResult) Passed() bool { return r.Total == 0 }

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	StatesChecked   int
	EdgesChecked    int
	CountMismatches int
	StateMismatches int
	EdgeMismatches  int
	Truncated       bool
}

// #endregion types

// #region replay
func (r *ReplayResult) record(m Mismatch) {
	r.Total++
	if len(r.Mismatches) < maxRecorded {
		r.Mismatches = append(r.Mismatches, m)
	}
}

// Replay regenerates the chain described by f and compares every state and edge, in
// order, against the fixture. Probabilities and yields must match digit for digit.
func Replay(f *Fixture) (ReplayResult, error) {
	p, err := f.Herd.ToParams()
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay herd: %w", err)
	}
	s, err := cow.Generate(p, f.DaysInMilkLimit, f.LactationNumberLimit, dairy.Precision(f.Precision))
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay generate: %w", err)
	}

	var res ReplayResult

	// 1. States
	if s.Len() != len(f.States) {
		res.record(Mismatch{Kind: KindCount, Index: 0,
			Want: fmt.Sprintf("%d states", len(f.States)), Got: fmt.Sprintf("%d states", s.Len())})
	}
	for i := 0; i < min(s.Len(), len(f.States)); i++ {
		want, err := f.States[i].ToState()
		if err != nil {
			return res, fmt.Errorf("replay fixture state %d: %w", i, err)
		}
		res.StatesChecked++
		if got := s.State(i); !got.Equal(want) {
			res.record(Mismatch{Kind: KindState, Index: i, Want: want.String(), Got: got.String()})
		}
	}

	// 2. Edges
	it := cow.NewEdgeIterator(s)
	i := 0
	for ; it.Next(); i++ {
		if i >= len(f.Edges) {
			continue
		}
		res.EdgesChecked++
		got, want := it.Edge(), f.Edges[i]
		if got.From != want.From || got.To != want.To || !got.Probability.Equal(want.Probability) {
			res.record(Mismatch{Kind: KindEdge, Index: i,
				Want: fmt.Sprintf("%d->%d %s", want.From, want.To, want.Probability),
				Got:  fmt.Sprintf("%d->%d %s", got.From, got.To, got.Probability)})
		}
	}
	if err := it.Err(); err != nil {
		return res, fmt.Errorf("replay edges: %w", err)
	}
	if i != len(f.Edges) {
		res.record(Mismatch{Kind: KindCount, Index: 1,
			Want: fmt.Sprintf("%d edges", len(f.Edges)), Got: fmt.Sprintf("%d edges", i)})
	}

	return res, nil
}

// Summarize computes aggregate stats from a replay result.
func Summarize(r ReplayResult) ReplaySummary {
	s := ReplaySummary{
		StatesChecked: r.StatesChecked,
		EdgesChecked:  r.EdgesChecked,
		Truncated:     r.Total > len(r.Mismatches),
	}
	for _, m := range r.Mismatches {
		switch m.Kind {
		case KindCount:
			s.CountMismatches++
		case KindState:
			s.StateMismatches++
		case KindEdge:
			s.EdgeMismatches++
		}
	}
	return s
}

// #endregion replay
