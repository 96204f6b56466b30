package optimizer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func brackishSearch(t *testing.T) vesselSearch {
	t.Helper()
	spec, err := SystemSpec{FeedFlow: 100, TargetRecovery: 0.5}.WithDefaults()
	require.NoError(t, err)
	return newVesselSearch(spec, DefaultTuning())
}

func TestFluxScan(t *testing.T) {
	s := brackishSearch(t)
	scan := s.fluxScan(18)
	require.Len(t, scan, 10)
	assert.InDelta(t, 19.8, scan[0], 1e-12)
	assert.InDelta(t, 16.2, scan[9], 1e-12)
	for i := 1; i < len(scan); i++ {
		assert.Less(t, scan[i], scan[i-1], "scan must descend")
	}
}

func TestEvaluate(t *testing.T) {
	s := brackishSearch(t)

	c, ok := s.evaluate(11, 19.8, 100, 3.8)
	require.True(t, ok)
	assert.InDelta(t, 11*260.12*19.8/1000, c.permeate, 1e-9)
	assert.InDelta(t, 100-c.permeate, c.concentrate, 1e-9)
	assert.InDelta(t, c.permeate/100, c.recovery, 1e-12)

	tests := []struct {
		name string
		n    int
		flux float64
		feed float64
	}{
		{"concentrate per vessel below minimum", 12, 19.8, 100},
		{"permeate exceeds feed", 50, 19.8, 100},
		{"zero vessels", 0, 19.8, 100},
		{"zero flux", 5, 0, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := s.evaluate(tt.n, tt.flux, tt.feed, 3.8)
			assert.False(t, ok)
		})
	}
}

func TestSearch_ExhaustiveMaximize(t *testing.T) {
	s := brackishSearch(t)
	c, ok := s.search(100, 18, 3.8, modeMaximize, 0, 0)
	require.True(t, ok)
	assert.Equal(t, 11, c.nVessels)
	assert.InDelta(t, 19.8, c.flux, 1e-9)
	assert.InDelta(t, 0.56654, c.recovery, 1e-5)
}

func TestSearch_ExhaustiveTarget(t *testing.T) {
	s := brackishSearch(t)
	c, ok := s.search(100, 18, 3.8, modeTarget, 0.5, 0.02)
	require.True(t, ok)
	assert.Equal(t, 11, c.nVessels)
	assert.InDelta(t, 17.8, c.flux, 1e-9)
	assert.True(t, withinBand(c.recovery, 0.5, 0.02))
}

func TestSearch_TargetFallsBackToClosest(t *testing.T) {
	s := brackishSearch(t)
	// above the single-stage ceiling: nothing lands, the closest point is the maximum
	c, ok := s.search(100, 18, 3.8, modeTarget, 0.7, 0.02)
	require.True(t, ok)
	assert.InDelta(t, 0.56654, c.recovery, 1e-5)
}

func TestSearch_NoFeasibleCount(t *testing.T) {
	s := brackishSearch(t)
	_, ok := s.search(3, 18, 3.8, modeMaximize, 0, 0)
	assert.False(t, ok)
	_, ok = s.search(0, 18, 3.8, modeTarget, 0.5, 0.02)
	assert.False(t, ok)
}

func TestSearch_GeometricWithinGridResolution(t *testing.T) {
	s := brackishSearch(t)
	geo, ok := s.search(5000, 18, 3.8, modeMaximize, 0, 0)
	require.True(t, ok)

	full := s
	full.exhaustiveLimit = 10000
	exact, ok := full.search(5000, 18, 3.8, modeMaximize, 0, 0)
	require.True(t, ok)

	assert.LessOrEqual(t, geo.recovery, exact.recovery+1e-12)
	assert.GreaterOrEqual(t, geo.concentrate/float64(geo.nVessels), 3.8)

	lo, hi := coarseBracket(t, s, 5000, 18, 3.8)
	step := float64(hi-lo) / float64(s.refineSamples-1)
	assert.LessOrEqual(t, math.Abs(float64(geo.nVessels-exact.nVessels)), step,
		"geometric %d vs exhaustive %d, bracket [%d, %d]", geo.nVessels, exact.nVessels, lo, hi)
}

// coarseBracket returns the neighbours of the best power-of-two count.
func coarseBracket(t *testing.T, s vesselSearch, feed, fluxTarget, minConc float64) (lo, hi int) {
	t.Helper()
	maxN := int(math.Floor(feed / minConc))
	var coarse []int
	for n := 1; n < maxN; n *= 2 {
		coarse = append(coarse, n)
	}
	coarse = append(coarse, maxN)

	var best stageCandidate
	bestIdx := -1
	for i, n := range coarse {
		if c, ok := s.maxAt(n, feed, fluxTarget, minConc); ok && (bestIdx < 0 || betterMax(c, best)) {
			best, bestIdx = c, i
		}
	}
	require.GreaterOrEqual(t, bestIdx, 0)
	lo, hi = coarse[max(bestIdx-1, 0)], coarse[min(bestIdx+1, len(coarse)-1)]
	return lo, hi
}

func TestSearch_BinaryTargetLandsInBand(t *testing.T) {
	s := brackishSearch(t)
	c, ok := s.search(5000, 18, 3.8, modeTarget, 0.5, 0.02)
	require.True(t, ok)
	assert.True(t, withinBand(c.recovery, 0.5, 0.02), "recovery %v", c.recovery)
	assert.Greater(t, c.nVessels, s.exhaustiveLimit)
}

func TestLinspace(t *testing.T) {
	assert.Nil(t, linspace(0, 1, 0))
	assert.Equal(t, []float64{2}, linspace(2, 5, 1))
	got := linspace(0.5, 0.9, 5)
	require.Len(t, got, 5)
	assert.InDelta(t, 0.6, got[1], 1e-12)
	assert.Equal(t, 0.9, got[4])
}
