// Package pressure estimates RO stage feed pressure for display.
//
// The estimate is average osmotic pressure along the stage (log-mean
// concentration factor, full salt rejection) plus the membrane's net driving
// pressure plus half the element-train pressure drop. It is an annotation
// only and never feeds back into array sizing.
package pressure

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// BarPerPPM is the osmotic pressure rule of thumb of 1 psi per 100 ppm TDS.
const BarPerPPM = 0.0689476 / 100

const pascalPerBar = 1e5

// ErrNoEstimate matches every EstimateError with errors.Is.
var ErrNoEstimate = errors.New("no pressure estimate")

// EstimateError names the argument FeedPressure could not work with.
type EstimateError struct {
	Param  string
	Reason string
}

func (e EstimateError) Error() string {
	return fmt.Sprintf("pressure: %s %s", e.Param, e.Reason)
}

func (e EstimateError) Is(target error) bool { return target == ErrNoEstimate }

// Membrane holds the pressure constants for one membrane family.
type Membrane struct {
	NetDrivingPressureBar float64
	PressureDropBar       float64
}

// Estimator maps membrane tags to their constants.
type Estimator struct {
	membranes map[string]Membrane
}

// NewEstimator returns an estimator with brackish and seawater constants.
func NewEstimator() *Estimator {
	return &Estimator{membranes: map[string]Membrane{
		"brackish": {NetDrivingPressureBar: 8, PressureDropBar: 2},
		"seawater": {NetDrivingPressureBar: 20, PressureDropBar: 2},
	}}
}

// Register adds or replaces a membrane family.
func (e *Estimator) Register(tag string, m Membrane) {
	e.membranes[strings.ToLower(tag)] = m
}

// OsmoticPressureBar returns the osmotic pressure of a solution in bar.
func OsmoticPressureBar(salinityPPM float64) float64 {
	return salinityPPM * BarPerPPM
}

// ConcentrationFactor is the log-mean concentration factor over a stage with
// the given recovery.
func ConcentrationFactor(recovery float64) float64 {
	if recovery <= 0 {
		return 1
	}
	return math.Log(1/(1-recovery)) / recovery
}

// FeedPressure returns the estimated stage feed pressure in Pa.
func (e *Estimator) FeedPressure(salinityPPM, stageRecovery float64, membrane string) (float64, error) {
	m, ok := e.membranes[strings.ToLower(membrane)]
	if !ok {
		return 0, EstimateError{Param: "membrane", Reason: fmt.Sprintf("%q is not registered", membrane)}
	}
	if !(salinityPPM > 0) {
		return 0, EstimateError{Param: "salinity_ppm", Reason: fmt.Sprintf("must be positive, got %g", salinityPPM)}
	}
	if !(stageRecovery > 0 && stageRecovery < 1) {
		return 0, EstimateError{Param: "stage_recovery", Reason: fmt.Sprintf("must be in (0, 1), got %g", stageRecovery)}
	}
	bar := OsmoticPressureBar(salinityPPM)*ConcentrationFactor(stageRecovery) +
		m.NetDrivingPressureBar + m.PressureDropBar/2
	return bar * pascalPerBar, nil
}
