package herd

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/danielpatrickdp/digital-cow/internal/dairy"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// #region types
// Params holds the settings shared by every cow in a herd.
// Tuples are indexed by lactation bucket: 0 (heifer), 1, 2 (all later lactations).
// DurationsDry has two buckets: lactation 0-1 and 2+.
type Params struct {
	VoluntaryWaitingPeriods []int           `validate:"len=3,dive,gte=0"`
	InseminationWindows     []int           `validate:"len=3,dive,gte=0"`
	DaysPregnantLimits      []int           `validate:"len=3,dive,gte=1"`
	DurationsDry            []int           `validate:"len=2,dive,gte=0"`
	MilkThreshold           decimal.Decimal `validate:"gte=0"`
	DaysInMilkLimit         int             `validate:"gte=1"`
	LactationNumberLimit    int             `validate:"gte=0"`
	MuAgeAtFirstHeat        int             `validate:"gte=0"`
	SigmaAgeAtFirstHeat     int             `validate:"gte=0"`
}

// #endregion types

// #region validator
var paramsValidate *validator.Validate

func init() {
	paramsValidate = validator.New()
	paramsValidate.RegisterCustomTypeFunc(func(v reflect.Value) interface{} {
		d, ok := v.Interface().(decimal.Decimal)
		if !ok {
			return nil
		}
		f, _ := d.Float64()
		return f
	}, decimal.Decimal{})
}

// Validate checks tuple arity and value ranges.
func (p Params) Validate() error {
	if err := paramsValidate.Struct(p); err != nil {
		return fmt.Errorf("validate herd params: %w: %w", dairy.ErrValidation, err)
	}
	return nil
}

// #endregion validator

// #region defaults
// Default returns the reference herd: vwp 365/80/60, insemination window 100/100/100,
// pregnancy limits 279/280/282, 60 dry days, 10 kg threshold, 1000 days and 9 lactations.
func Default() Params {
	return Params{
		VoluntaryWaitingPeriods: []int{365, 80, 60},
		InseminationWindows:     []int{100, 100, 100},
		DaysPregnantLimits:      []int{279, 280, 282},
		DurationsDry:            []int{60, 60},
		MilkThreshold:           decimal.NewFromInt(10),
		DaysInMilkLimit:         1000,
		LactationNumberLimit:    9,
		MuAgeAtFirstHeat:        365,
		SigmaAgeAtFirstHeat:     0,
	}
}

// #endregion defaults

// #region getters
func bucket(lactationNumber, last int) int {
	return max(0, min(lactationNumber, last))
}

// VoluntaryWaitingPeriod returns the days after calving before insemination is allowed.
func (p Params) VoluntaryWaitingPeriod(lactationNumber int) int {
	return p.VoluntaryWaitingPeriods[bucket(lactationNumber, 2)]
}

// InseminationWindow returns the days after the waiting period during which insemination is allowed.
func (p Params) InseminationWindow(lactationNumber int) int {
	return p.InseminationWindows[bucket(lactationNumber, 2)]
}

// DaysPregnantLimit returns the gestation length.
func (p Params) DaysPregnantLimit(lactationNumber int) int {
	return p.DaysPregnantLimits[bucket(lactationNumber, 2)]
}

// DurationDry returns the dry-off days before calving.
func (p Params) DurationDry(lactationNumber int) int {
	return p.DurationsDry[bucket(lactationNumber, 1)]
}

// InseminationCutoff is the last day in milk on which a cow may still be inseminated.
func (p Params) InseminationCutoff(lactationNumber int) int {
	return p.VoluntaryWaitingPeriod(lactationNumber) + p.InseminationWindow(lactationNumber)
}

// #endregion getters

// #region setters
func setTuple(dst *[]int, vals []int, arity int, rule, name string) error {
	if err := paramsValidate.Var(vals, fmt.Sprintf("len=%d,dive,%s", arity, rule)); err != nil {
		return fmt.Errorf("set %s: %w: %w", name, dairy.ErrValidation, err)
	}
	*dst = slices.Clone(vals)
	return nil
}

// SetVoluntaryWaitingPeriods replaces the three waiting periods.
func (p *Params) SetVoluntaryWaitingPeriods(vals []int) error {
	return setTuple(&p.VoluntaryWaitingPeriods, vals, 3, "gte=0", "voluntary waiting period")
}

// SetInseminationWindows replaces the three insemination windows.
func (p *Params) SetInseminationWindows(vals []int) error {
	return setTuple(&p.InseminationWindows, vals, 3, "gte=0", "insemination window")
}

// SetDaysPregnantLimits replaces the three gestation lengths.
func (p *Params) SetDaysPregnantLimits(vals []int) error {
	return setTuple(&p.DaysPregnantLimits, vals, 3, "gte=1", "days pregnant limit")
}

// SetDurationsDry replaces the two dry-off durations.
func (p *Params) SetDurationsDry(vals []int) error {
	return setTuple(&p.DurationsDry, vals, 2, "gte=0", "duration dry")
}

// SetMilkThreshold replaces the minimum productive yield.
func (p *Params) SetMilkThreshold(mt decimal.Decimal) error {
	if mt.IsNegative() {
		return fmt.Errorf("set milk threshold %s: %w", mt, dairy.ErrValidation)
	}
	p.MilkThreshold = mt
	return nil
}

// #endregion setters

// #region identity
// Clone returns a deep copy.
func (p Params) Clone() Params {
	c := p
	c.VoluntaryWaitingPeriods = slices.Clone(p.VoluntaryWaitingPeriods)
	c.InseminationWindows = slices.Clone(p.InseminationWindows)
	c.DaysPregnantLimits = slices.Clone(p.DaysPregnantLimits)
	c.DurationsDry = slices.Clone(p.DurationsDry)
	return c
}

// Fingerprint identifies the parameters that shape a chain. Age-at-first-heat does not.
func (p Params) Fingerprint() string {
	var b strings.Builder
	fmt.Fprintf(&b, "vwp=%v;iw=%v;dp=%v;dry=%v;mt=%s;dim=%d;ln=%d",
		p.VoluntaryWaitingPeriods, p.InseminationWindows, p.DaysPregnantLimits, p.DurationsDry,
		p.MilkThreshold.String(), p.DaysInMilkLimit, p.LactationNumberLimit)
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:8])
}

// #endregion identity
