package optimizer

import "github.com/sirupsen/logrus"

// ── Global flux rebalancing ─────────────────────────────────────────

// stagesRecovery sums permeate over the stages against the array feed.
func stagesRecovery(stages []StageResult, baseFeed float64) float64 {
	total := 0.0
	for _, s := range stages {
		total += s.PermeateFlow
	}
	return total / baseFeed
}

// restage re-evaluates stage i at a new feed and flux, keeping its vessel count.
func (o *Optimizer) restage(st StageResult, feed, flux float64) (StageResult, bool) {
	idx := st.StageNumber - 1
	c, ok := o.search.evaluate(st.NVessels, flux, feed, st.MinConcentrateRequired)
	if !ok {
		return StageResult{}, false
	}
	return newStageResult(idx, c, st.FluxTarget, st.MinConcentrateRequired, o.search.vesselArea), true
}

// propagate pushes stage from's concentrate down the chain as the next feed.
// It returns false when a downstream stage no longer satisfies its limits.
func (o *Optimizer) propagate(stages []StageResult, from int) bool {
	for i := from + 1; i < len(stages); i++ {
		next, ok := o.restage(stages[i], stages[i-1].ConcentrateFlow, stages[i].Flux)
		if !ok {
			return false
		}
		stages[i] = next
	}
	return true
}

// tuneFlux rebalances flux across sized stages until total recovery sits in
// [target, target+tol/2] or the iteration budget runs out. It works on a copy
// and returns the new stage list with the iterations used.
func (o *Optimizer) tuneFlux(in []StageResult, baseFeed float64) ([]StageResult, int) {
	stages := append([]StageResult(nil), in...)
	target, tol := o.spec.TargetRecovery, o.spec.RecoveryTolerance
	upper, lower := o.spec.upperLimit(), o.spec.lowerLimit()

	iter := 0
	for ; iter < o.tuning.MaxTuneIterations; iter++ {
		current := stagesRecovery(stages, baseFeed)
		errRec := current - target
		if errRec >= -recoveryEps && errRec <= tol/2 {
			break
		}
		reducing := errRec > 0

		// far off target the floor relaxes to the emergency ratio
		floor := lower
		if absf(errRec) > tol {
			floor = o.tuning.EmergencyFloor
		}

		flex := make([]float64, len(stages))
		totalFlex := 0.0
		for i, s := range stages {
			if reducing {
				flex[i] = s.FluxRatio - floor
			} else {
				flex[i] = upper - s.FluxRatio
			}
			if flex[i] < 0 {
				flex[i] = 0
			}
			totalFlex += flex[i]
		}
		if totalFlex <= 1e-12 {
			o.log.WithFields(logrus.Fields{"iter": iter, "recovery": current}).
				Debug("[tune] no flux headroom left")
			break
		}

		damping := o.tuning.DampingNear
		if absf(errRec) > tol {
			damping = o.tuning.DampingOver
		}
		required := -errRec * baseFeed

		changed := false
		for i := range stages {
			if flex[i] == 0 {
				continue
			}
			st := stages[i]
			share := required * flex[i] / totalFlex
			deltaFlux := share / (float64(st.NVessels) * o.search.vesselArea) * 1000
			// a stage already below the floor is never pushed up by the clamp
			minFlux := st.FluxTarget * floor
			if st.Flux < minFlux {
				minFlux = st.Flux
			}
			newFlux := clamp(st.Flux+deltaFlux*damping, minFlux, st.FluxTarget*upper)

			updated, ok := o.restage(st, st.FeedFlow, newFlux)
			if !ok {
				continue
			}
			trial := append([]StageResult(nil), stages...)
			trial[i] = updated
			if !o.propagate(trial, i) {
				continue
			}
			stages = trial
			changed = true
		}
		if !changed {
			break
		}
	}

	o.log.WithFields(logrus.Fields{
		"iterations": iter,
		"recovery":   stagesRecovery(stages, baseFeed),
		"array":      arrayNotation(stages),
	}).Debug("[tune] done")
	return stages, iter
}
