package pressure

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcentrationFactor(t *testing.T) {
	assert.Equal(t, 1.0, ConcentrationFactor(0))
	// ln(2)/0.5
	assert.InDelta(t, 2*math.Ln2, ConcentrationFactor(0.5), 1e-12)
	assert.Greater(t, ConcentrationFactor(0.6), ConcentrationFactor(0.4))
}

func TestFeedPressure(t *testing.T) {
	e := NewEstimator()

	pa, err := e.FeedPressure(5000, 0.5, "brackish")
	require.NoError(t, err)
	want := 5000*BarPerPPM*2*math.Ln2 + 8 + 1
	assert.InDelta(t, want*1e5, pa, 1e-6)

	sw, err := e.FeedPressure(35000, 0.45, "Seawater")
	require.NoError(t, err)
	assert.Greater(t, sw, pa)
}

func TestFeedPressure_Errors(t *testing.T) {
	e := NewEstimator()
	tests := []struct {
		name     string
		salinity float64
		recovery float64
		membrane string
		param    string
	}{
		{"unknown membrane", 5000, 0.5, "ceramic", "membrane"},
		{"zero salinity", 0, 0.5, "brackish", "salinity_ppm"},
		{"zero recovery", 5000, 0, "brackish", "stage_recovery"},
		{"full recovery", 5000, 1, "brackish", "stage_recovery"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.FeedPressure(tt.salinity, tt.recovery, tt.membrane)
			var ee EstimateError
			require.ErrorAs(t, err, &ee)
			assert.Equal(t, tt.param, ee.Param)
			assert.True(t, errors.Is(err, ErrNoEstimate))
		})
	}
}

func TestRegister(t *testing.T) {
	e := NewEstimator()
	e.Register("NF", Membrane{NetDrivingPressureBar: 4, PressureDropBar: 1})
	pa, err := e.FeedPressure(1000, 0.5, "nf")
	require.NoError(t, err)
	assert.InDelta(t, (1000*BarPerPPM*2*math.Ln2+4.5)*1e5, pa, 1e-6)
}
