package optimizer

import "github.com/sirupsen/logrus"

// sizeStage sizes one stage of the array at the given feed. Target mode is
// used for the only stage of a 1-stage attempt; every stage of a multi-stage
// attempt is sized in maximize mode.
func (o *Optimizer) sizeStage(feed float64, stageIdx int, mode searchMode) (StageResult, bool) {
	fluxTarget := o.spec.FluxTarget(stageIdx)
	minConc := o.spec.MinConcentrateFlow(stageIdx)
	c, ok := o.search.search(feed, fluxTarget, minConc, mode, o.spec.TargetRecovery, o.spec.RecoveryTolerance)
	if !ok {
		o.log.WithFields(logrus.Fields{
			"stage": stageIdx + 1,
			"feed":  feed,
			"mode":  mode.String(),
		}).Debug("[stage] no feasible vessel count")
		return StageResult{}, false
	}
	return newStageResult(stageIdx, c, fluxTarget, minConc, o.search.vesselArea), true
}

// modeFor returns the search mode for a stage of an n-stage attempt.
func modeFor(nStages int) searchMode {
	if nStages == 1 {
		return modeTarget
	}
	return modeMaximize
}
