package eval

import (
	"fmt"

	"github.com/danielpatrickdp/digital-cow/internal/cow"
	"github.com/danielpatrickdp/digital-cow/internal/dairy"
	"github.com/danielpatrickdp/digital-cow/internal/herd"
	"github.com/danielpatrickdp/digital-cow/internal/yield"
	"github.com/shopspring/decimal"
)

// #region eval-harness
// EvalHarness validates generated chains.
type EvalHarness struct {
	config EvalConfig
}

// NewEvalHarness creates an eval harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config}
}

// Chain is the material a harness checks.
type Chain struct {
	States          []dairy.State
	Edges           []cow.Edge
	DaysInMilkLimit int
	Params          herd.Params
}

// ChainOf enumerates every edge of s.
func ChainOf(s *cow.Space) (Chain, error) {
	edges, err := s.Edges()
	if err != nil {
		return Chain{}, fmt.Errorf("eval chain: %w", err)
	}
	return Chain{
		States:          s.States(),
		Edges:           edges,
		DaysInMilkLimit: s.DaysInMilkLimit(),
		Params:          s.Params(),
	}, nil
}

// RunSpace enumerates s and runs every check on it.
func (h *EvalHarness) RunSpace(s *cow.Space) (EvalResult, error) {
	c, err := ChainOf(s)
	if err != nil {
		return EvalResult{}, err
	}
	return h.Run(c), nil
}

// Run checks the chain: outgoing probability of each state, probability range,
// heifer and dry-off yields, exit absorption and the forced exit at the horizon.
// Reachability from the origin is reported but never fails the run.
func (h *EvalHarness) Run(c Chain) EvalResult {
	var metrics []EvalMetric
	passed := true
	var failReasons []string

	check := func(name string, value float64, pass bool, reason string) {
		metrics = append(metrics, EvalMetric{Name: name, Value: value, Pass: pass})
		if !pass {
			passed = false
			failReasons = append(failReasons, reason)
		}
	}

	one := decimal.NewFromInt(1)
	out := make([][]cow.Edge, len(c.States))
	sums := make([]decimal.Decimal, len(c.States))
	outOfRange := 0
	for _, e := range c.Edges {
		if e.Probability.IsNegative() || e.Probability.GreaterThan(one) {
			outOfRange++
		}
		if int(e.From) < len(c.States) {
			out[e.From] = append(out[e.From], e)
			sums[e.From] = sums[e.From].Add(e.Probability)
		}
	}

	// 1. Conservation: every state's outgoing probability sums to 1
	worst := decimal.Zero
	worstIdx := -1
	for i, sum := range sums {
		if dev := sum.Sub(one).Abs(); dev.GreaterThan(worst) || worstIdx < 0 {
			worst, worstIdx = dev, i
		}
	}
	check("conservation", worst.InexactFloat64(), worst.LessThanOrEqual(h.config.ConservationTolerance),
		fmt.Sprintf("state %d outgoing probability deviates from 1 by %s", worstIdx, worst))

	// 2. Probability range
	check("probability_range", float64(outOfRange), outOfRange == 0,
		fmt.Sprintf("%d edges outside [0, 1]", outOfRange))

	// 3. Yields: heifers, exits and dry cows give no milk
	heifers, dry := 0, 0
	for _, st := range c.States {
		if st.MilkOutput.IsZero() {
			continue
		}
		ln := st.LactationNumber
		switch {
		case ln == 0 || st.Phase == dairy.Exit:
			heifers++
		case yield.Dry(st, c.Params.DaysPregnantLimit(ln), c.Params.DurationDry(ln)):
			dry++
		}
	}
	check("heifer_yield", float64(heifers), heifers == 0, fmt.Sprintf("%d heifer or exit states with yield", heifers))
	check("dry_yield", float64(dry), dry == 0, fmt.Sprintf("%d dry states with yield", dry))

	// 4. Absorption: an exit moves to the origin with certainty
	leaks := 0
	for i, st := range c.States {
		if st.Phase != dairy.Exit {
			continue
		}
		edges := out[i]
		if len(edges) != 1 || edges[0].To != 0 || !edges[0].Probability.Equal(one) {
			leaks++
		}
	}
	check("absorption", float64(leaks), leaks == 0, fmt.Sprintf("%d exit states not absorbed into the origin", leaks))

	// 5. Horizon: a live state on the last simulated day moves to an exit with certainty
	escapes := 0
	last := c.DaysInMilkLimit - 1
	for i, st := range c.States {
		if st.Phase == dairy.Exit || st.DaysInMilk != last {
			continue
		}
		edges := out[i]
		if len(edges) != 1 || int(edges[0].To) >= len(c.States) ||
			c.States[edges[0].To].Phase != dairy.Exit || !edges[0].Probability.Equal(one) {
			escapes++
		}
	}
	check("terminal_collapse", float64(escapes), escapes == 0, fmt.Sprintf("%d states escape the horizon", escapes))

	// 6. Reachability: informational only
	share := reachableShare(out, len(c.States))
	metrics = append(metrics, EvalMetric{
		Name:  "reachable_share",
		Value: share,
		Pass:  share >= h.config.MinReachableShare,
	})

	reason := "all checks passed"
	if !passed {
		reason = fmt.Sprintf("eval failed: %s", failReasons[0])
		if len(failReasons) > 1 {
			reason = fmt.Sprintf("eval failed: %d checks: %s", len(failReasons), failReasons[0])
		}
	}

	return EvalResult{
		Passed:  passed,
		Metrics: metrics,
		Reason:  reason,
	}
}

// #endregion eval-harness

// #region helpers
// reachableShare is the fraction of states reachable from the origin along positive edges.
func reachableShare(out [][]cow.Edge, n int) float64 {
	if n == 0 {
		return 0
	}
	seen := make([]bool, n)
	seen[0] = true
	queue := []int{0}
	count := 1
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		for _, e := range out[i] {
			j := int(e.To)
			if j >= n || seen[j] || !e.Probability.IsPositive() {
				continue
			}
			seen[j] = true
			count++
			queue = append(queue, j)
		}
	}
	return float64(count) / float64(n)
}

// #endregion helpers
