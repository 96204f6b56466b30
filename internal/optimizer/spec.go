package optimizer

import (
	"fmt"
	"math"
	"strings"
)

// MembraneType selects the default constants for a design.
type MembraneType string

const (
	Brackish MembraneType = "brackish"
	Seawater MembraneType = "seawater"
)

// MembraneDefaults holds the per-membrane constants a SystemSpec falls back to.
type MembraneDefaults struct {
	Membrane          MembraneType `json:"membrane_type" yaml:"membrane_type"`
	FluxTargets       []float64    `json:"flux_targets_lmh" yaml:"flux_targets_lmh"`
	MinConcentrate    []float64    `json:"min_concentrate_flow_m3h" yaml:"min_concentrate_flow_m3h"`
	FluxTolerance     float64      `json:"flux_tolerance" yaml:"flux_tolerance"`
	RecoveryTolerance float64      `json:"recovery_tolerance" yaml:"recovery_tolerance"`
	ElementArea       float64      `json:"element_area_m2" yaml:"element_area_m2"`
	ElementsPerVessel int          `json:"elements_per_vessel" yaml:"elements_per_vessel"`
	MaxStages         int          `json:"max_stages" yaml:"max_stages"`
	MaxRecycleRatio   float64      `json:"max_recycle_ratio" yaml:"max_recycle_ratio"`
	FeedSalinity      float64      `json:"feed_salinity_ppm" yaml:"feed_salinity_ppm"`
}

// 8" elements, 400 ft2 each, seven to a vessel.
const (
	defaultElementArea       = 37.16
	defaultElementsPerVessel = 7
)

var membraneDefaults = map[MembraneType]MembraneDefaults{
	Brackish: {
		Membrane:          Brackish,
		FluxTargets:       []float64{18, 15, 12},
		MinConcentrate:    []float64{3.8, 3.8, 3.8},
		FluxTolerance:     0.1,
		RecoveryTolerance: 0.02,
		ElementArea:       defaultElementArea,
		ElementsPerVessel: defaultElementsPerVessel,
		MaxStages:         3,
		MaxRecycleRatio:   0.9,
		FeedSalinity:      5000,
	},
	Seawater: {
		Membrane:          Seawater,
		FluxTargets:       []float64{14, 12, 10},
		MinConcentrate:    []float64{3.0, 3.0, 3.0},
		FluxTolerance:     0.1,
		RecoveryTolerance: 0.02,
		ElementArea:       defaultElementArea,
		ElementsPerVessel: defaultElementsPerVessel,
		MaxStages:         2,
		MaxRecycleRatio:   0.9,
		FeedSalinity:      35000,
	},
}

// DefaultsFor returns a copy of the default constants for the membrane tag.
func DefaultsFor(m MembraneType) (MembraneDefaults, error) {
	d, ok := membraneDefaults[MembraneType(strings.ToLower(string(m)))]
	if !ok {
		return MembraneDefaults{}, invalidInput("membrane_type", fmt.Sprintf("unknown membrane type %q", m))
	}
	d.FluxTargets = append([]float64(nil), d.FluxTargets...)
	d.MinConcentrate = append([]float64(nil), d.MinConcentrate...)
	return d, nil
}

// SystemSpec describes one RO train design request.
//
// Zero-valued optional fields take the membrane defaults in WithDefaults.
type SystemSpec struct {
	FeedFlow          float64      `json:"feed_flow_m3h" yaml:"feed_flow_m3h"`
	TargetRecovery    float64      `json:"target_recovery" yaml:"target_recovery"`
	FeedSalinity      float64      `json:"feed_salinity_ppm" yaml:"feed_salinity_ppm"`
	FluxTargets       []float64    `json:"flux_targets_lmh" yaml:"flux_targets_lmh"`
	FluxTolerance     float64      `json:"flux_tolerance" yaml:"flux_tolerance"`
	MinConcentrate    []float64    `json:"min_concentrate_flow_m3h" yaml:"min_concentrate_flow_m3h"`
	ElementArea       float64      `json:"element_area_m2" yaml:"element_area_m2"`
	ElementsPerVessel int          `json:"elements_per_vessel" yaml:"elements_per_vessel"`
	MaxStages         int          `json:"max_stages" yaml:"max_stages"`
	AllowRecycle      bool         `json:"allow_recycle" yaml:"allow_recycle"`
	MaxRecycleRatio   float64      `json:"max_recycle_ratio" yaml:"max_recycle_ratio"`
	RecoveryTolerance float64      `json:"recovery_tolerance" yaml:"recovery_tolerance"`
	Membrane          MembraneType `json:"membrane_type" yaml:"membrane_type"`
}

// WithDefaults fills unset fields from the membrane defaults. An empty
// membrane tag means brackish.
func (s SystemSpec) WithDefaults() (SystemSpec, error) {
	if s.Membrane == "" {
		s.Membrane = Brackish
	}
	d, err := DefaultsFor(s.Membrane)
	if err != nil {
		return s, err
	}
	s.Membrane = d.Membrane
	if len(s.FluxTargets) == 0 {
		s.FluxTargets = d.FluxTargets
	}
	if len(s.MinConcentrate) == 0 {
		s.MinConcentrate = d.MinConcentrate
	}
	if s.FluxTolerance == 0 {
		s.FluxTolerance = d.FluxTolerance
	}
	if s.RecoveryTolerance == 0 {
		s.RecoveryTolerance = d.RecoveryTolerance
	}
	if s.ElementArea == 0 {
		s.ElementArea = d.ElementArea
	}
	if s.ElementsPerVessel == 0 {
		s.ElementsPerVessel = d.ElementsPerVessel
	}
	if s.MaxStages == 0 {
		s.MaxStages = d.MaxStages
	}
	if s.FeedSalinity == 0 {
		s.FeedSalinity = d.FeedSalinity
	}
	if s.AllowRecycle && s.MaxRecycleRatio == 0 {
		s.MaxRecycleRatio = d.MaxRecycleRatio
	}
	return s, nil
}

// Validate rejects specs the search cannot start from.
func (s SystemSpec) Validate() error {
	switch {
	case !(s.FeedFlow > 0) || math.IsInf(s.FeedFlow, 0):
		return invalidInput("feed_flow_m3h", "must be positive")
	case !(s.TargetRecovery > 0 && s.TargetRecovery < 1):
		return invalidInput("target_recovery", "must be in (0, 1)")
	case s.MaxStages < 1 || s.MaxStages > 3:
		return invalidInput("max_stages", "must be 1, 2 or 3")
	case !(s.MaxRecycleRatio >= 0 && s.MaxRecycleRatio < 1):
		return invalidInput("max_recycle_ratio", "must be in [0, 1)")
	case !(s.FluxTolerance > 0 && s.FluxTolerance < 0.3):
		// the emergency floor sits at 0.7, so the regular band must stay above it
		return invalidInput("flux_tolerance", "must be in (0, 0.3)")
	case !(s.RecoveryTolerance > 0 && s.RecoveryTolerance < 1):
		return invalidInput("recovery_tolerance", "must be in (0, 1)")
	case !(s.ElementArea > 0):
		return invalidInput("element_area_m2", "must be positive")
	case s.ElementsPerVessel < 1:
		return invalidInput("elements_per_vessel", "must be at least 1")
	case len(s.FluxTargets) == 0:
		return invalidInput("flux_targets_lmh", "at least one flux target is required")
	case len(s.MinConcentrate) == 0:
		return invalidInput("min_concentrate_flow_m3h", "at least one value is required")
	case s.FeedSalinity < 0:
		return invalidInput("feed_salinity_ppm", "must not be negative")
	}
	for i, f := range s.FluxTargets {
		if !(f > 0) {
			return invalidInput("flux_targets_lmh", fmt.Sprintf("stage %d flux target must be positive", i+1))
		}
	}
	for i, c := range s.MinConcentrate {
		if !(c > 0) {
			return invalidInput("min_concentrate_flow_m3h", fmt.Sprintf("stage %d minimum must be positive", i+1))
		}
	}
	return nil
}

// VesselArea is the membrane area of one pressure vessel in m2.
func (s SystemSpec) VesselArea() float64 {
	return s.ElementArea * float64(s.ElementsPerVessel)
}

// FluxTarget returns the flux target for the zero-based stage index,
// repeating the last value for stages past the list.
func (s SystemSpec) FluxTarget(stage int) float64 {
	return padded(s.FluxTargets, stage)
}

// MinConcentrateFlow returns the per-vessel concentrate minimum for the
// zero-based stage index.
func (s SystemSpec) MinConcentrateFlow(stage int) float64 {
	return padded(s.MinConcentrate, stage)
}

func (s SystemSpec) upperLimit() float64 { return 1 + s.FluxTolerance }
func (s SystemSpec) lowerLimit() float64 { return 1 - s.FluxTolerance }

// withFeed returns a copy sized for a different feed and recovery target.
// Recycle is switched off: inner designs of the recycle loop are plain arrays.
func (s SystemSpec) withFeed(feed, recovery float64) SystemSpec {
	c := s
	c.FeedFlow = feed
	c.TargetRecovery = recovery
	c.AllowRecycle = false
	return c
}

func padded(vals []float64, i int) float64 {
	if len(vals) == 0 {
		return 0
	}
	if i >= len(vals) {
		return vals[len(vals)-1]
	}
	return vals[i]
}
