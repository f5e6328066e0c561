package herd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/danielpatrickdp/digital-cow/internal/dairy"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DIGITALCOW_"

// #region settings
// Settings is the YAML shape of a herd file. Absent keys keep their defaults.
type Settings struct {
	VoluntaryWaitingPeriod []int           `yaml:"voluntary_waiting_period,omitempty"`
	InseminationWindow     []int           `yaml:"insemination_window,omitempty"`
	DaysPregnantLimit      []int           `yaml:"days_pregnant_limit,omitempty"`
	DurationDry            []int           `yaml:"duration_dry,omitempty"`
	MilkThreshold          string          `yaml:"milk_threshold,omitempty"`
	DaysInMilkLimit        int             `yaml:"days_in_milk_limit,omitempty"`
	LactationNumberLimit   *int            `yaml:"lactation_number_limit,omitempty"`
	AgeAtFirstHeat         *AgeAtFirstHeat `yaml:"age_at_first_heat,omitempty"`
}

// AgeAtFirstHeat is the normal distribution heifers reach first estrus from.
type AgeAtFirstHeat struct {
	Mu    int `yaml:"mu"`
	Sigma int `yaml:"sigma"`
}

// LoadSettings reads a herd file. Returns nil, nil when the file does not exist.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read herd settings: %w", err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse herd settings %s: %w: %w", path, dairy.ErrValidation, err)
	}
	return &s, nil
}

// SettingsFrom converts p into its file shape.
func SettingsFrom(p Params) Settings {
	ln := p.LactationNumberLimit
	return Settings{
		VoluntaryWaitingPeriod: p.VoluntaryWaitingPeriods,
		InseminationWindow:     p.InseminationWindows,
		DaysPregnantLimit:      p.DaysPregnantLimits,
		DurationDry:            p.DurationsDry,
		MilkThreshold:          p.MilkThreshold.String(),
		DaysInMilkLimit:        p.DaysInMilkLimit,
		LactationNumberLimit:   &ln,
		AgeAtFirstHeat:         &AgeAtFirstHeat{Mu: p.MuAgeAtFirstHeat, Sigma: p.SigmaAgeAtFirstHeat},
	}
}

// Apply overlays the keys present in s onto p. Setters validate each tuple.
func (s *Settings) Apply(p *Params) error {
	if s == nil {
		return nil
	}
	if s.VoluntaryWaitingPeriod != nil {
		if err := p.SetVoluntaryWaitingPeriods(s.VoluntaryWaitingPeriod); err != nil {
			return err
		}
	}
	if s.InseminationWindow != nil {
		if err := p.SetInseminationWindows(s.InseminationWindow); err != nil {
			return err
		}
	}
	if s.DaysPregnantLimit != nil {
		if err := p.SetDaysPregnantLimits(s.DaysPregnantLimit); err != nil {
			return err
		}
	}
	if s.DurationDry != nil {
		if err := p.SetDurationsDry(s.DurationDry); err != nil {
			return err
		}
	}
	if s.MilkThreshold != "" {
		mt, err := decimal.NewFromString(s.MilkThreshold)
		if err != nil {
			return fmt.Errorf("parse milk threshold %q: %w: %w", s.MilkThreshold, dairy.ErrValidation, err)
		}
		if err := p.SetMilkThreshold(mt); err != nil {
			return err
		}
	}
	if s.DaysInMilkLimit != 0 {
		p.DaysInMilkLimit = s.DaysInMilkLimit
	}
	if s.LactationNumberLimit != nil {
		p.LactationNumberLimit = *s.LactationNumberLimit
	}
	if s.AgeAtFirstHeat != nil {
		p.MuAgeAtFirstHeat = s.AgeAtFirstHeat.Mu
		p.SigmaAgeAtFirstHeat = s.AgeAtFirstHeat.Sigma
	}
	return nil
}

// #endregion settings

// #region env
// ApplyEnv overlays DIGITALCOW_* variables onto p. Tuples are comma separated.
func ApplyEnv(p *Params, lookup func(string) (string, bool)) error {
	tuples := []struct {
		key string
		set func([]int) error
	}{
		{"VWP", p.SetVoluntaryWaitingPeriods},
		{"INSEMINATION_WINDOW", p.SetInseminationWindows},
		{"DAYS_PREGNANT_LIMIT", p.SetDaysPregnantLimits},
		{"DURATION_DRY", p.SetDurationsDry},
	}
	for _, tv := range tuples {
		v, ok := lookup(EnvPrefix + tv.key)
		if !ok || v == "" {
			continue
		}
		vals, err := ParseTuple(v)
		if err != nil {
			return fmt.Errorf("env %s%s: %w", EnvPrefix, tv.key, err)
		}
		if err := tv.set(vals); err != nil {
			return fmt.Errorf("env %s%s: %w", EnvPrefix, tv.key, err)
		}
	}

	if v, ok := lookup(EnvPrefix + "MILK_THRESHOLD"); ok && v != "" {
		mt, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("env %sMILK_THRESHOLD: %w: %w", EnvPrefix, dairy.ErrValidation, err)
		}
		if err := p.SetMilkThreshold(mt); err != nil {
			return err
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"DIM_LIMIT", &p.DaysInMilkLimit},
		{"LN_LIMIT", &p.LactationNumberLimit},
		{"MU_AGE_AT_FIRST_HEAT", &p.MuAgeAtFirstHeat},
		{"SIGMA_AGE_AT_FIRST_HEAT", &p.SigmaAgeAtFirstHeat},
	}
	for _, iv := range ints {
		v, ok := lookup(EnvPrefix + iv.key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("env %s%s: %w: %w", EnvPrefix, iv.key, dairy.ErrValidation, err)
		}
		*iv.dst = n
	}
	return nil
}

// ParseTuple parses "365,80,60" into its integers.
func ParseTuple(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	vals := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("parse tuple %q: %w: %w", s, dairy.ErrValidation, err)
		}
		vals = append(vals, n)
	}
	return vals, nil
}

// #endregion env

// #region load
// Load resolves parameters from defaults, then the YAML file at path when it exists,
// then the environment. The result is validated.
func Load(path string, lookup func(string) (string, bool)) (Params, error) {
	p := Default()
	if path != "" {
		s, err := LoadSettings(path)
		if err != nil {
			return Params{}, err
		}
		if err := s.Apply(&p); err != nil {
			return Params{}, err
		}
	}
	if lookup != nil {
		if err := ApplyEnv(&p, lookup); err != nil {
			return Params{}, err
		}
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// #endregion load
