package eval

import "github.com/shopspring/decimal"

// #region eval-config
// EvalConfig holds thresholds for chain validation.
type EvalConfig struct {
	ConservationTolerance decimal.Decimal // reject if any state's outgoing probability strays further from 1
	MinReachableShare     float64         // warn if fewer states are reachable from the origin
}

// DefaultEvalConfig tolerates rounding of a few units in the tenth place.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		ConservationTolerance: decimal.New(1, -9),
		MinReachableShare:     0.99,
	}
}

// #endregion eval-config

// #region eval-metric
// EvalMetric captures a single validation check result.
type EvalMetric struct {
	Name  string
	Value float64
	Pass  bool
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the output of chain validation.
type EvalResult struct {
	Passed  bool
	Metrics []EvalMetric
	Reason  string
}

// Metric returns the named metric.
func (r EvalResult) Metric(name string) (EvalMetric, bool) {
	for _, m := range r.Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return EvalMetric{}, false
}

// #endregion eval-result
