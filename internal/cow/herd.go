package cow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"runtime"
	"slices"
	"sync"

	"github.com/danielpatrickdp/digital-cow/internal/dairy"
	"github.com/danielpatrickdp/digital-cow/internal/herd"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// #region types
// Herd owns its cows. Cows refer back only by herd id; the herd pushes parameter changes
// down to every member.
type Herd struct {
	id     uuid.UUID
	cache  *ChainCache
	logger *slog.Logger

	mu     sync.RWMutex
	params herd.Params
	cows   map[uuid.UUID]*Cow
	order  []uuid.UUID
}

// HerdOption configures a Herd.
type HerdOption func(*Herd)

// WithHerdID fixes the herd id instead of generating one.
func WithHerdID(id uuid.UUID) HerdOption { return func(h *Herd) { h.id = id } }

// WithCache shares a chain cache between herds.
func WithCache(c *ChainCache) HerdOption { return func(h *Herd) { h.cache = c } }

// WithLogger sets the herd logger.
func WithLogger(l *slog.Logger) HerdOption { return func(h *Herd) { h.logger = l } }

// #endregion types

// #region constructor
// NewHerd validates p and returns an empty herd.
func NewHerd(p herd.Params, opts ...HerdOption) (*Herd, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("new herd: %w", err)
	}
	h := &Herd{
		id:     uuid.New(),
		params: p.Clone(),
		cows:   make(map[uuid.UUID]*Cow),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.cache == nil {
		h.cache = NewChainCache(h.logger, nil)
	}
	return h, nil
}

// #endregion constructor

// #region params
func (h *Herd) ID() uuid.UUID { return h.id }

// Params returns a copy of the herd parameters.
func (h *Herd) Params() herd.Params {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.params.Clone()
}

// SetParams replaces the parameters and re-attaches every cow. Generated chains become stale.
// Nothing changes if any member cannot be re-attached.
func (h *Herd) SetParams(p herd.Params) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("set herd params: %w", err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	prev := h.params
	for i, id := range h.order {
		if err := h.cows[id].attach(h.id, p); err != nil {
			for _, done := range h.order[:i] {
				_ = h.cows[done].attach(h.id, prev)
			}
			return fmt.Errorf("set herd params: %w", err)
		}
	}
	h.params = p.Clone()
	if p.Fingerprint() != prev.Fingerprint() {
		dropped := h.cache.Purge(prev)
		h.logger.Debug("herd params changed", "herd", h.id, "purged_spaces", dropped)
	}
	return nil
}

// #endregion params

// #region membership
// Add places cows in the herd. Cows already present are ignored; a cow that belongs to another
// herd must be removed from it first.
func (h *Herd) Add(cows ...*Cow) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var errs []error
	for _, c := range cows {
		if c == nil {
			continue
		}
		if _, ok := h.cows[c.id]; ok {
			continue
		}
		if c.InHerd() && c.herdID != h.id {
			errs = append(errs, fmt.Errorf("add cow %s: member of herd %s: %w", c.id, c.herdID, dairy.ErrValidation))
			continue
		}
		if err := c.attach(h.id, h.params); err != nil {
			errs = append(errs, fmt.Errorf("add cow %s: %w", c.id, err))
			continue
		}
		h.cows[c.id] = c
		h.order = append(h.order, c.id)
	}
	return errors.Join(errs...)
}

// Remove takes cows out of the herd. Unknown cows are ignored.
func (h *Herd) Remove(cows ...*Cow) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range cows {
		if c == nil {
			continue
		}
		if _, ok := h.cows[c.id]; !ok {
			continue
		}
		delete(h.cows, c.id)
		h.order = slices.DeleteFunc(h.order, func(id uuid.UUID) bool { return id == c.id })
		c.detach()
	}
}

// Cow looks up a member by id.
func (h *Herd) Cow(id uuid.UUID) (*Cow, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.cows[id]
	return c, ok
}

// Cows returns members in the order they joined.
func (h *Herd) Cows() []*Cow {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Cow, 0, len(h.order))
	for _, id := range h.order {
		out = append(out, h.cows[id])
	}
	return out
}

// Len is the number of members.
func (h *Herd) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.order)
}

// #endregion membership

// #region first-heat
// CalculateMuAgeAtFirstHeat sets the herd mean age at first heat from the members.
// Cows without a first heat count as zero; a zero mean leaves the setting unchanged.
// Halves round to even.
func (h *Herd) CalculateMuAgeAtFirstHeat() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.order) == 0 {
		return
	}
	total := 0
	for _, id := range h.order {
		if age, ok := h.cows[id].AgeAtFirstHeat(); ok {
			total += age
		}
	}
	mu := int(math.RoundToEven(float64(total) / float64(len(h.order))))
	if mu != 0 {
		h.params.MuAgeAtFirstHeat = mu
	}
}

// GenerateAgeAtFirstHeat draws an age at first heat from N(mu, sigma) after refreshing mu.
func (h *Herd) GenerateAgeAtFirstHeat(rng *rand.Rand) int {
	h.CalculateMuAgeAtFirstHeat()
	h.mu.RLock()
	mu, sigma := h.params.MuAgeAtFirstHeat, h.params.SigmaAgeAtFirstHeat
	h.mu.RUnlock()
	return int(math.Round(float64(mu) + rng.NormFloat64()*float64(sigma)))
}

// #endregion first-heat

// #region generate
// Generate gives the cow a state space for the current herd parameters, reusing a cached
// one when another cow already built it.
func (h *Herd) Generate(ctx context.Context, id uuid.UUID) (*Space, error) {
	c, ok := h.Cow(id)
	if !ok {
		return nil, fmt.Errorf("generate: cow %s not in herd %s: %w", id, h.id, dairy.ErrPrecondition)
	}
	p := h.Params()
	s, err := h.cache.Get(ctx, p, p.DaysInMilkLimit, p.LactationNumberLimit, c.Precision())
	if err != nil {
		return nil, fmt.Errorf("generate cow %s: %w", id, err)
	}
	c.space = s
	return s, nil
}

// GenerateAll generates every stale member concurrently.
func (h *Herd) GenerateAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, c := range h.Cows() {
		if !c.Stale() {
			continue
		}
		g.Go(func() error {
			_, err := h.Generate(ctx, c.ID())
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	h.logger.Debug("herd generated", "herd", h.id, "cows", h.Len(), "cached_spaces", h.cache.Len())
	return nil
}

// #endregion generate
