package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlendedSalinity(t *testing.T) {
	assert.Equal(t, 5000.0, blendedSalinity(100, 5000, 0, 0.6))
	// concentrate at 0.5 effective recovery is twice the feed
	assert.InDelta(t, (100*5000+50*10000)/150.0, blendedSalinity(100, 5000, 50, 0.5), 1e-9)
	assert.Equal(t, 5000.0, blendedSalinity(0, 5000, 0, 0.5))
	assert.Equal(t, 5000.0, blendedSalinity(100, 5000, 10, 1))
}

func solution(stages, vessels int, actual float64) RecycleSolution {
	return RecycleSolution{
		ActualRecoveryFromFresh: actual,
		RecoveryError:           absf(actual - 0.6),
		Config: Configuration{
			NStages:       stages,
			TotalVessels:  vessels,
			ArrayNotation: "x",
		},
	}
}

func TestSelectRecycle(t *testing.T) {
	o := NewOptimizer(SystemSpec{FeedFlow: 150, TargetRecovery: 0.6, AllowRecycle: true, MaxStages: 3})

	all := []RecycleSolution{
		solution(1, 20, 0.615),
		solution(1, 19, 0.605),
		solution(1, 18, 0.59),  // below target never qualifies
		solution(2, 26, 0.635), // only inside the relaxed band
		solution(2, 25, 0.65),  // outside both bands
		solution(3, 30, 0.70),
	}
	got := o.selectRecycle(all)
	require.Len(t, got, 2)

	assert.Equal(t, 1, got[0].Config.NStages)
	assert.Equal(t, 19, got[0].Config.TotalVessels)
	assert.Equal(t, 2, got[1].Config.NStages)
	assert.Equal(t, 26, got[1].Config.TotalVessels)
}

func TestSelectRecycle_TiesPreferFewerVessels(t *testing.T) {
	o := NewOptimizer(SystemSpec{FeedFlow: 150, TargetRecovery: 0.6, AllowRecycle: true})
	got := o.selectRecycle([]RecycleSolution{solution(2, 27, 0.61), solution(2, 24, 0.61)})
	require.Len(t, got, 1)
	assert.Equal(t, 24, got[0].Config.TotalVessels)
}

func TestSolveRecycleAt_MassBalance(t *testing.T) {
	o := NewOptimizer(scenarioA())
	grid := linspace(o.tuning.RecycleGridMin, o.tuning.RecycleGridMax, o.tuning.RecycleGridPoints)

	found := 0
	for idx, eff := range grid {
		sols, _ := o.solveRecycleAt(idx, eff)
		for _, s := range sols {
			found++
			assert.Equal(t, idx, s.GridIndex)
			assert.Less(t, s.Iteration, o.tuning.MaxFixedPointIterations)
			assert.InDelta(t, s.Config.FinalConcentrate, s.RecycleFlow+s.DisposalFlow, 1e-9)
			assert.InDelta(t, 150*(1-0.6), s.DisposalFlow, 1e-9)
			assert.LessOrEqual(t, s.SplitRatio, 0.9+1e-12)
			assert.InDelta(t, s.EffectiveFeed, s.Config.FeedFlow, 1e-9)
		}
	}
	assert.Positive(t, found)
}

func TestOptimizeWithRecycle_AtMostOnePerStageCount(t *testing.T) {
	o := NewOptimizer(scenarioA())
	sols := o.optimizeWithRecycle()
	require.NotEmpty(t, sols)

	seen := map[int]bool{}
	for _, s := range sols {
		assert.False(t, seen[s.Config.NStages], "stage count %d selected twice", s.Config.NStages)
		seen[s.Config.NStages] = true
		assert.True(t, withinBand(s.ActualRecoveryFromFresh, 0.6, 0.04))
	}
	for i := 1; i < len(sols); i++ {
		assert.LessOrEqual(t, betterSolution(sols[i-1], sols[i]), 0)
	}
}
