package graph

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/danielpatrickdp/digital-cow/internal/cow"
	"github.com/danielpatrickdp/digital-cow/internal/dairy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS chains (
    chain_id          TEXT PRIMARY KEY,
    cache_key         TEXT NOT NULL UNIQUE,
    days_in_milk_limit INTEGER NOT NULL,
    lactation_number_limit INTEGER NOT NULL,
    precision         INTEGER NOT NULL,
    state_count       INTEGER NOT NULL DEFAULT 0,
    edge_count        INTEGER NOT NULL DEFAULT 0,
    created_at        TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS chain_states (
    chain_id          TEXT NOT NULL,
    idx               INTEGER NOT NULL,
    phase             TEXT NOT NULL,
    days_in_milk      INTEGER NOT NULL,
    lactation_number  INTEGER NOT NULL,
    days_pregnant     INTEGER NOT NULL,
    milk_output       TEXT NOT NULL,
    PRIMARY KEY(chain_id, idx)
);
CREATE TABLE IF NOT EXISTS transition_edges (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    chain_id    TEXT NOT NULL,
    source_idx  INTEGER NOT NULL,
    target_idx  INTEGER NOT NULL,
    probability TEXT NOT NULL,
    weight      REAL NOT NULL,
    UNIQUE(chain_id, source_idx, target_idx)
);
CREATE INDEX IF NOT EXISTS idx_edges_source ON transition_edges(chain_id, source_idx);
CREATE INDEX IF NOT EXISTS idx_edges_target ON transition_edges(chain_id, target_idx);
`

// #endregion schema

// #region types
// ErrChainNotFound is returned when no chain has the requested id.
var ErrChainNotFound = errors.New("chain not found")

// Chain describes one persisted state space.
type Chain struct {
	ID                   string
	CacheKey             string
	DaysInMilkLimit      int
	LactationNumberLimit int
	Precision            dairy.Precision
	StateCount           int
	EdgeCount            int
	CreatedAt            time.Time
}

// Edge is a stored transition. Weight is the probability as a float, used for filtering
// and ordering; Probability is the exact value.
type Edge struct {
	ID          int64
	ChainID     string
	Source      int
	Target      int
	Probability decimal.Decimal
	Weight      float64
}

// WalkResult holds the states reached by a walk and the probability of the path that
// first reached each of them.
type WalkResult struct {
	Indices       []int
	Probabilities []decimal.Decimal
}

// ChainStore persists generated chains in SQLite.
type ChainStore struct {
	db *sql.DB
}

// #endregion types

// #region constructor
// NewChainStore creates tables and returns a ChainStore.
func NewChainStore(db *sql.DB) (*ChainStore, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("graph schema: %w", err)
	}
	return &ChainStore{db: db}, nil
}

// #endregion constructor

// #region save-chain
// SaveChain writes every state and edge of s in one transaction. A chain with the same
// cache key is not written twice; the stored one is returned instead.
func (g *ChainStore) SaveChain(ctx context.Context, s *cow.Space) (Chain, error) {
	key := cow.CacheKey(s.Params(), s.DaysInMilkLimit(), s.LactationNumberLimit(), s.Precision())
	if existing, err := g.chainByKey(key); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrChainNotFound) {
		return Chain{}, err
	}

	c := Chain{
		ID:                   uuid.NewString(),
		CacheKey:             key,
		DaysInMilkLimit:      s.DaysInMilkLimit(),
		LactationNumberLimit: s.LactationNumberLimit(),
		Precision:            s.Precision(),
		StateCount:           s.Len(),
		CreatedAt:            time.Now().UTC().Truncate(time.Second),
	}

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return Chain{}, fmt.Errorf("save chain begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO chains (chain_id, cache_key, days_in_milk_limit, lactation_number_limit, precision, state_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.CacheKey, c.DaysInMilkLimit, c.LactationNumberLimit, int(c.Precision), c.StateCount,
		c.CreatedAt.Format(time.RFC3339),
	); err != nil {
		return Chain{}, fmt.Errorf("save chain: %w", err)
	}

	stateStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chain_states (chain_id, idx, phase, days_in_milk, lactation_number, days_pregnant, milk_output)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return Chain{}, fmt.Errorf("save chain states: %w", err)
	}
	defer stateStmt.Close()
	for i := 0; i < s.Len(); i++ {
		st := s.State(i)
		if _, err := stateStmt.ExecContext(ctx, c.ID, i, st.Phase.String(), st.DaysInMilk,
			st.LactationNumber, st.DaysPregnant, st.MilkOutput.String()); err != nil {
			return Chain{}, fmt.Errorf("save chain state %d: %w", i, err)
		}
	}

	edgeStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO transition_edges (chain_id, source_idx, target_idx, probability, weight)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return Chain{}, fmt.Errorf("save chain edges: %w", err)
	}
	defer edgeStmt.Close()
	it := cow.NewEdgeIterator(s)
	for it.Next() {
		e := it.Edge()
		if _, err := edgeStmt.ExecContext(ctx, c.ID, e.From, e.To,
			e.Probability.String(), e.Probability.InexactFloat64()); err != nil {
			return Chain{}, fmt.Errorf("save chain edge %d->%d: %w", e.From, e.To, err)
		}
		c.EdgeCount++
	}
	if err := it.Err(); err != nil {
		return Chain{}, fmt.Errorf("save chain edges: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE chains SET edge_count = ? WHERE chain_id = ?`, c.EdgeCount, c.ID); err != nil {
		return Chain{}, fmt.Errorf("save chain counts: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Chain{}, fmt.Errorf("save chain commit: %w", err)
	}
	return c, nil
}

// #endregion save-chain

// #region chains
const chainColumns = `chain_id, cache_key, days_in_milk_limit, lactation_number_limit, precision, state_count, edge_count, created_at`

func scanChain(row interface{ Scan(...any) error }) (Chain, error) {
	var c Chain
	var prec int
	var createdAt string
	if err := row.Scan(&c.ID, &c.CacheKey, &c.DaysInMilkLimit, &c.LactationNumberLimit, &prec,
		&c.StateCount, &c.EdgeCount, &createdAt); err != nil {
		return Chain{}, err
	}
	c.Precision = dairy.Precision(prec)
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return c, nil
}

// GetChain returns the chain with the given id.
func (g *ChainStore) GetChain(chainID string) (Chain, error) {
	c, err := scanChain(g.db.QueryRow(`SELECT `+chainColumns+` FROM chains WHERE chain_id = ?`, chainID))
	if errors.Is(err, sql.ErrNoRows) {
		return Chain{}, fmt.Errorf("get chain %s: %w", chainID, ErrChainNotFound)
	}
	return c, err
}

func (g *ChainStore) chainByKey(key string) (Chain, error) {
	c, err := scanChain(g.db.QueryRow(`SELECT `+chainColumns+` FROM chains WHERE cache_key = ?`, key))
	if errors.Is(err, sql.ErrNoRows) {
		return Chain{}, ErrChainNotFound
	}
	return c, err
}

// ListChains returns every stored chain, newest first.
func (g *ChainStore) ListChains() ([]Chain, error) {
	rows, err := g.db.Query(`SELECT ` + chainColumns + ` FROM chains ORDER BY created_at DESC, chain_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chains []Chain
	for rows.Next() {
		c, err := scanChain(rows)
		if err != nil {
			return nil, err
		}
		chains = append(chains, c)
	}
	return chains, rows.Err()
}

// #endregion chains

// #region states
// States returns the stored states of a chain in index order.
func (g *ChainStore) States(chainID string) ([]dairy.State, error) {
	rows, err := g.db.Query(
		`SELECT phase, days_in_milk, lactation_number, days_pregnant, milk_output
		 FROM chain_states WHERE chain_id = ? ORDER BY idx`,
		chainID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var states []dairy.State
	for rows.Next() {
		var phase, milk string
		var dim, ln, dp int
		if err := rows.Scan(&phase, &dim, &ln, &dp, &milk); err != nil {
			return nil, err
		}
		m, err := decimal.NewFromString(milk)
		if err != nil {
			return nil, fmt.Errorf("state milk %q: %w", milk, err)
		}
		st, err := dairy.NewState(phase, dim, ln, dp, m)
		if err != nil {
			return nil, err
		}
		states = append(states, st)
	}
	return states, rows.Err()
}

// #endregion states

// #region get-neighbors
// GetNeighbors returns all edges leaving source with weight >= minWeight, most probable first.
func (g *ChainStore) GetNeighbors(chainID string, source int, minWeight float64) ([]Edge, error) {
	rows, err := g.db.Query(
		`SELECT id, chain_id, source_idx, target_idx, probability, weight
		 FROM transition_edges
		 WHERE chain_id = ? AND source_idx = ? AND weight >= ?
		 ORDER BY weight DESC, target_idx`,
		chainID, source, minWeight,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []Edge
	for rows.Next() {
		var e Edge
		var prob string
		if err := rows.Scan(&e.ID, &e.ChainID, &e.Source, &e.Target, &prob, &e.Weight); err != nil {
			return nil, err
		}
		if e.Probability, err = decimal.NewFromString(prob); err != nil {
			return nil, fmt.Errorf("edge probability %q: %w", prob, err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// #endregion get-neighbors

// #region walk
// Walk performs a BFS from entry, following edges with weight >= minWeight, up to maxDepth
// days and maxNodes states. Each state carries the probability of the path that reached it first.
func (g *ChainStore) Walk(chainID string, entry, maxDepth int, minWeight float64, maxNodes int) (WalkResult, error) {
	if maxDepth <= 0 {
		maxDepth = 5
	}
	if maxNodes <= 0 {
		maxNodes = 10
	}

	result := WalkResult{
		Indices:       []int{entry},
		Probabilities: []decimal.Decimal{decimal.NewFromInt(1)},
	}
	visited := map[int]bool{entry: true}

	type queueItem struct {
		idx   int
		depth int
		prob  decimal.Decimal
	}
	queue := []queueItem{{entry, 0, decimal.NewFromInt(1)}}

	for len(queue) > 0 {
		if len(result.Indices) >= maxNodes {
			break
		}

		current := queue[0]
		queue = queue[1:]

		if current.depth >= maxDepth {
			continue
		}

		neighbors, err := g.GetNeighbors(chainID, current.idx, minWeight)
		if err != nil {
			return result, fmt.Errorf("walk neighbors: %w", err)
		}

		for _, edge := range neighbors {
			if len(result.Indices) >= maxNodes {
				break
			}
			if visited[edge.Target] {
				continue
			}
			visited[edge.Target] = true
			p := current.prob.Mul(edge.Probability).Round(dairy.DivisionScale)
			result.Indices = append(result.Indices, edge.Target)
			result.Probabilities = append(result.Probabilities, p)
			queue = append(queue, queueItem{edge.Target, current.depth + 1, p})
		}
	}

	return result, nil
}

// #endregion walk

// #region delete
// DeleteChain removes a chain with its states and edges.
func (g *ChainStore) DeleteChain(chainID string) error {
	tx, err := g.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, q := range []string{
		`DELETE FROM transition_edges WHERE chain_id = ?`,
		`DELETE FROM chain_states WHERE chain_id = ?`,
		`DELETE FROM chains WHERE chain_id = ?`,
	} {
		if _, err := tx.Exec(q, chainID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// #endregion delete
