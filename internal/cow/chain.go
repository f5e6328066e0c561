package cow

import (
	"fmt"

	"github.com/danielpatrickdp/digital-cow/internal/dairy"
	"github.com/shopspring/decimal"
)

// Edge is one weighted transition between two indexed states.
type Edge struct {
	From        uint
	To          uint
	Probability decimal.Decimal
}

// EdgeIterator walks the chain one edge at a time in generation order of the origin state,
// successors in adjacency order. It is single pass; build a new one to restart.
//
//	it := cow.NewEdgeIterator(space)
//	for it.Next() {
//		e := it.Edge()
//	}
//	if err := it.Err(); err != nil { ... }
type EdgeIterator struct {
	space   *Space
	cursor  int
	pending []Edge
	edge    Edge
	err     error
}

// NewEdgeIterator returns an iterator over every edge of s.
func NewEdgeIterator(s *Space) *EdgeIterator {
	return &EdgeIterator{space: s}
}

// Next advances to the next edge. It returns false at the end or on error.
func (it *EdgeIterator) Next() bool {
	if it.err != nil {
		return false
	}
	for len(it.pending) == 0 {
		if it.cursor >= it.space.Len() {
			return false
		}
		edges, err := it.space.edgesFrom(it.cursor)
		if err != nil {
			it.err = err
			return false
		}
		it.pending = edges
		it.cursor++
	}
	it.edge = it.pending[0]
	it.pending = it.pending[1:]
	return true
}

// Edge returns the current edge.
func (it *EdgeIterator) Edge() Edge { return it.edge }

// Err returns the error that stopped iteration, if any.
func (it *EdgeIterator) Err() error { return it.err }

// edgesFrom weighs every successor of the state at index i.
// A state with a single successor moves there with certainty.
func (s *Space) edgesFrom(i int) ([]Edge, error) {
	from := s.states[i]
	next, err := s.Successors(from)
	if err != nil {
		return nil, err
	}
	edges := make([]Edge, 0, len(next))
	for _, to := range next {
		j, ok := s.Index(to)
		if !ok {
			return nil, fmt.Errorf("edge %d %s -> %s: %w", i, from, to, dairy.ErrUnindexedSuccessor)
		}
		w := one
		if len(next) > 1 {
			w = s.weigh(from, to)
		}
		edges = append(edges, Edge{From: uint(i), To: uint(j), Probability: w})
	}
	return edges, nil
}

// Edges collects the whole edge stream.
func (s *Space) Edges() ([]Edge, error) {
	var edges []Edge
	it := NewEdgeIterator(s)
	for it.Next() {
		edges = append(edges, it.Edge())
	}
	return edges, it.Err()
}

// InitialStateVector is a one-hot distribution over the space at index i.
func (s *Space) InitialStateVector(i int) []int {
	v := make([]int, len(s.states))
	if i >= 0 && i < len(v) {
		v[i] = 1
	}
	return v
}

// EdgeCount is the total number of successors over all states.
func (s *Space) EdgeCount() (int, error) {
	n := 0
	for _, st := range s.states {
		next, err := s.Successors(st)
		if err != nil {
			return 0, err
		}
		n += len(next)
	}
	return n, nil
}
