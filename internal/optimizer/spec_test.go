package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsFor(t *testing.T) {
	d, err := DefaultsFor("Seawater")
	require.NoError(t, err)
	assert.Equal(t, Seawater, d.Membrane)
	assert.Equal(t, []float64{14, 12, 10}, d.FluxTargets)
	assert.Equal(t, 2, d.MaxStages)

	// callers get their own slices
	d.FluxTargets[0] = 99
	again, err := DefaultsFor(Seawater)
	require.NoError(t, err)
	assert.Equal(t, 14.0, again.FluxTargets[0])

	_, err = DefaultsFor("ceramic")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestWithDefaults(t *testing.T) {
	s, err := SystemSpec{FeedFlow: 100, TargetRecovery: 0.5}.WithDefaults()
	require.NoError(t, err)
	assert.Equal(t, Brackish, s.Membrane)
	assert.Equal(t, []float64{18, 15, 12}, s.FluxTargets)
	assert.Equal(t, 3, s.MaxStages)
	assert.Equal(t, 5000.0, s.FeedSalinity)
	assert.Zero(t, s.MaxRecycleRatio, "recycle limit only applies when recycle is on")
	assert.InDelta(t, 260.12, s.VesselArea(), 1e-9)

	r, err := SystemSpec{FeedFlow: 100, TargetRecovery: 0.5, AllowRecycle: true, MaxStages: 2, FluxTargets: []float64{16}}.WithDefaults()
	require.NoError(t, err)
	assert.Equal(t, 0.9, r.MaxRecycleRatio)
	assert.Equal(t, 2, r.MaxStages)
	assert.Equal(t, []float64{16}, r.FluxTargets)
}

func TestPaddedLookups(t *testing.T) {
	s := SystemSpec{FluxTargets: []float64{18, 15}, MinConcentrate: []float64{3.8}}
	assert.Equal(t, 18.0, s.FluxTarget(0))
	assert.Equal(t, 15.0, s.FluxTarget(1))
	assert.Equal(t, 15.0, s.FluxTarget(2))
	assert.Equal(t, 3.8, s.MinConcentrateFlow(2))
	assert.Zero(t, padded(nil, 0))
}

func TestWithFeed(t *testing.T) {
	s := SystemSpec{FeedFlow: 100, TargetRecovery: 0.5, AllowRecycle: true, MaxRecycleRatio: 0.9}
	c := s.withFeed(160, 0.7)
	assert.Equal(t, 160.0, c.FeedFlow)
	assert.Equal(t, 0.7, c.TargetRecovery)
	assert.False(t, c.AllowRecycle)
	assert.True(t, s.AllowRecycle)
}

func TestTuningMerge(t *testing.T) {
	got := DefaultTuning().Merge(Tuning{RecycleGridPoints: 20, Workers: 2})
	assert.Equal(t, 20, got.RecycleGridPoints)
	assert.Equal(t, 2, got.Workers)
	assert.Equal(t, 30, got.MaxTuneIterations)
	assert.Equal(t, DefaultTuning(), DefaultTuning().Merge(Tuning{}))
}
