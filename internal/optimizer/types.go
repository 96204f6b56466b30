package optimizer

import (
	"strconv"
	"strings"
)

// StageResult is one sized stage. Values are owned copies; the tuner replaces
// elements of a stage slice instead of editing them.
type StageResult struct {
	StageNumber            int      `json:"stage_number"`
	NVessels               int      `json:"n_vessels"`
	FeedFlow               float64  `json:"feed_flow_m3h"`
	PermeateFlow           float64  `json:"permeate_flow_m3h"`
	ConcentrateFlow        float64  `json:"concentrate_flow_m3h"`
	StageRecovery          float64  `json:"stage_recovery"`
	Flux                   float64  `json:"flux_lmh"`
	FluxTarget             float64  `json:"flux_target_lmh"`
	FluxRatio              float64  `json:"flux_ratio"`
	ConcentratePerVessel   float64  `json:"concentrate_per_vessel_m3h"`
	MinConcentrateRequired float64  `json:"min_concentrate_required_m3h"`
	MembraneArea           float64  `json:"membrane_area_m2"`
	FeedSalinity           float64  `json:"feed_salinity_ppm,omitempty"`
	FeedPressureBar        *float64 `json:"feed_pressure_bar,omitempty"`
}

// RecycleBlock describes the concentrate recycle loop of a configuration.
type RecycleBlock struct {
	// RecycleRatio is recycle flow over fresh feed flow.
	RecycleRatio float64 `json:"recycle_ratio"`
	RecycleFlow  float64 `json:"recycle_flow_m3h"`
	// SplitRatio is the fraction of final concentrate sent back to the feed.
	SplitRatio            float64 `json:"recycle_split_ratio"`
	DisposalFlow          float64 `json:"disposal_flow_m3h"`
	EffectiveFeedFlow     float64 `json:"effective_feed_flow_m3h"`
	EffectiveFeedSalinity float64 `json:"effective_feed_salinity_ppm"`
	EffectiveRecovery     float64 `json:"effective_recovery"`
	SalinityEstimate      string  `json:"salinity_estimate"`
	Iteration             int     `json:"fixed_point_iteration"`
	Converged             bool    `json:"converged"`
}

// Configuration is one viable array for a SystemSpec.
type Configuration struct {
	Stages            []StageResult `json:"stages"`
	NStages           int           `json:"n_stages"`
	ArrayNotation     string        `json:"array_notation"`
	FeedFlow          float64       `json:"feed_flow_m3h"`
	TotalPermeate     float64       `json:"total_permeate_m3h"`
	FinalConcentrate  float64       `json:"final_concentrate_m3h"`
	TotalRecovery     float64       `json:"total_recovery"`
	RecoveryError     float64       `json:"recovery_error"`
	TotalVessels      int           `json:"total_vessels"`
	TotalMembraneArea float64       `json:"total_membrane_area_m2"`
	MeanFluxRatio     float64       `json:"mean_flux_ratio"`
	MaxFluxDeviation  float64       `json:"max_flux_deviation"`
	FluxRatioSpread   float64       `json:"flux_ratio_spread"`
	MeetsTarget       bool          `json:"meets_target"`
	Recycle           *RecycleBlock `json:"recycle,omitempty"`
}

func newStageResult(stageIdx int, c stageCandidate, fluxTarget, minConc, vesselArea float64) StageResult {
	return StageResult{
		StageNumber:            stageIdx + 1,
		NVessels:               c.nVessels,
		FeedFlow:               c.feed,
		PermeateFlow:           c.permeate,
		ConcentrateFlow:        c.concentrate,
		StageRecovery:          c.recovery,
		Flux:                   c.flux,
		FluxTarget:             fluxTarget,
		FluxRatio:              c.flux / fluxTarget,
		ConcentratePerVessel:   c.concentrate / float64(c.nVessels),
		MinConcentrateRequired: minConc,
		MembraneArea:           float64(c.nVessels) * vesselArea,
	}
}

// arrayNotation joins vessel counts per stage with ':'.
func arrayNotation(stages []StageResult) string {
	parts := make([]string, len(stages))
	for i, s := range stages {
		parts[i] = strconv.Itoa(s.NVessels)
	}
	return strings.Join(parts, ":")
}

// newConfiguration freezes aggregates from the stage list. It always
// recomputes totals from the stages it is given.
func newConfiguration(stages []StageResult, spec SystemSpec) Configuration {
	own := append([]StageResult(nil), stages...)
	cfg := Configuration{
		Stages:        own,
		NStages:       len(own),
		ArrayNotation: arrayNotation(own),
		FeedFlow:      spec.FeedFlow,
	}
	ratios := make([]float64, len(own))
	minRatio, maxRatio := 0.0, 0.0
	for i, s := range own {
		cfg.TotalPermeate += s.PermeateFlow
		cfg.TotalVessels += s.NVessels
		cfg.TotalMembraneArea += s.MembraneArea
		ratios[i] = s.FluxRatio
		if dev := absf(s.FluxRatio - 1); dev > cfg.MaxFluxDeviation {
			cfg.MaxFluxDeviation = dev
		}
		if i == 0 || s.FluxRatio < minRatio {
			minRatio = s.FluxRatio
		}
		if i == 0 || s.FluxRatio > maxRatio {
			maxRatio = s.FluxRatio
		}
	}
	if len(own) > 0 {
		cfg.FinalConcentrate = own[len(own)-1].ConcentrateFlow
	}
	cfg.MeanFluxRatio = mean(ratios)
	cfg.FluxRatioSpread = maxRatio - minRatio
	cfg.TotalRecovery = cfg.TotalPermeate / spec.FeedFlow
	cfg.RecoveryError = cfg.TotalRecovery - spec.TargetRecovery
	cfg.MeetsTarget = withinBand(cfg.TotalRecovery, spec.TargetRecovery, spec.RecoveryTolerance)
	return cfg
}

// recoveryEps absorbs float noise in recovery comparisons.
const recoveryEps = 1e-9

func withinBand(recovery, target, tol float64) bool {
	return recovery >= target-recoveryEps && recovery <= target+tol+recoveryEps
}
