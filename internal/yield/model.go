package yield

import (
	"sync"

	"github.com/danielpatrickdp/digital-cow/internal/dairy"
	"github.com/shopspring/decimal"
)

// Model memoizes curve values per (curve, day). Lactations 2 and above share one curve,
// so a full herd horizon needs at most a few thousand evaluations.
// Safe for concurrent use.
type Model struct {
	lactationNumberLimit int
	precision            dairy.Precision

	mu     sync.Mutex
	values map[curveDay]decimal.Decimal
}

type curveDay struct {
	curve int
	day   int
}

// NewModel returns a Model rounding at p for a herd with the given lactation limit.
func NewModel(lactationNumberLimit int, p dairy.Precision) *Model {
	return &Model{
		lactationNumberLimit: lactationNumberLimit,
		precision:            p,
		values:               make(map[curveDay]decimal.Decimal),
	}
}

// Precision returns the rounding precision.
func (m *Model) Precision() dairy.Precision { return m.precision }

// Production returns the rounded daily yield of s.
// A lactation without a curve returns ErrConfiguration even when the yield would be zero.
func (m *Model) Production(s dairy.State, dpLimit, durationDry int) (decimal.Decimal, error) {
	c, err := CurveFor(s.LactationNumber, m.lactationNumberLimit)
	if err != nil {
		return decimal.Zero, err
	}
	if s.LactationNumber == 0 || s.Phase == dairy.Exit || Dry(s, dpLimit, durationDry) {
		return decimal.Zero, nil
	}

	key := curveDay{curve: min(s.LactationNumber, 2), day: s.DaysInMilk}
	m.mu.Lock()
	v, ok := m.values[key]
	m.mu.Unlock()
	if ok {
		return v, nil
	}

	v = m.precision.Quantize(c.Value(s.DaysInMilk))
	m.mu.Lock()
	m.values[key] = v
	m.mu.Unlock()
	return v, nil
}

// Len reports how many curve points are cached.
func (m *Model) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.values)
}
