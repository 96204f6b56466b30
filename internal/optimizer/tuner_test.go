package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertChainBalanced(t *testing.T, stages []StageResult) {
	t.Helper()
	for i, s := range stages {
		assert.InDelta(t, s.FeedFlow, s.PermeateFlow+s.ConcentrateFlow, 1e-9, "stage %d", i+1)
		if i > 0 {
			assert.InDelta(t, stages[i-1].ConcentrateFlow, s.FeedFlow, 1e-9, "stage %d feed", i+1)
		}
	}
}

func TestTuneFlux_RebalancesOvershoot(t *testing.T) {
	o := NewOptimizer(SystemSpec{FeedFlow: 100, TargetRecovery: 0.5})
	stages, truncated := o.buildStages(2, false)
	require.False(t, truncated)
	require.Len(t, stages, 2)
	before := stagesRecovery(stages, 100)
	require.Greater(t, before, 0.52)

	tuned, iters := o.tuneFlux(stages, 100)
	require.Len(t, tuned, 2)
	assert.Greater(t, iters, 0)
	assert.LessOrEqual(t, iters, DefaultTuning().MaxTuneIterations)

	after := stagesRecovery(tuned, 100)
	assert.GreaterOrEqual(t, after, 0.5)
	assert.LessOrEqual(t, after, 0.51)
	assertChainBalanced(t, tuned)

	for _, s := range tuned {
		assert.Equal(t, stages[s.StageNumber-1].NVessels, s.NVessels, "vessel counts are fixed")
		assert.GreaterOrEqual(t, s.FluxRatio, 0.7-1e-12)
		assert.LessOrEqual(t, s.FluxRatio, 1.1+1e-12)
		assert.GreaterOrEqual(t, s.ConcentratePerVessel, s.MinConcentrateRequired)
	}
}

func TestTuneFlux_LeavesInputUntouched(t *testing.T) {
	o := NewOptimizer(SystemSpec{FeedFlow: 100, TargetRecovery: 0.5})
	stages, _ := o.buildStages(2, false)
	orig := append([]StageResult(nil), stages...)
	o.tuneFlux(stages, 100)
	assert.Equal(t, orig, stages)
}

func TestTuneFlux_StopsAtEmergencyFloor(t *testing.T) {
	o := NewOptimizer(SystemSpec{FeedFlow: 100, TargetRecovery: 0.5})
	stages, _ := o.buildStages(3, false)
	require.Len(t, stages, 3)

	tuned, _ := o.tuneFlux(stages, 100)
	// three stages cannot come down to 0.52 without breaching the floor
	assert.Greater(t, stagesRecovery(tuned, 100), 0.52)
	for _, s := range tuned {
		assert.InDelta(t, 0.7, s.FluxRatio, 1e-9)
	}
	assertChainBalanced(t, tuned)
}

func TestTuneFlux_SingleStage(t *testing.T) {
	o := NewOptimizer(SystemSpec{FeedFlow: 100, TargetRecovery: 0.5})
	st, ok := o.sizeStage(100, 0, modeMaximize)
	require.True(t, ok)
	tuned, _ := o.tuneFlux([]StageResult{st}, 100)
	rec := stagesRecovery(tuned, 100)
	assert.GreaterOrEqual(t, rec, 0.5)
	assert.LessOrEqual(t, rec, 0.51)
}
