package optimizer

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput matches every InvalidInputError with errors.Is.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoFeasibleConfiguration matches every NoFeasibleConfigurationError.
	ErrNoFeasibleConfiguration = errors.New("no feasible configuration")
)

// BindingConstraint names the limit that stopped the search from reaching
// the recovery target.
type BindingConstraint string

const (
	// ConstraintConcentrateFloor: the per-vessel concentrate minimum capped
	// the vessel count, so recovery stayed below target.
	ConstraintConcentrateFloor BindingConstraint = "concentrate-flow floor"
	// ConstraintFluxFloor: flux was already at the emergency floor and the
	// array still overshot the target band.
	ConstraintFluxFloor BindingConstraint = "flux floor"
)

// InvalidInputError is returned before any search starts.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s %s", e.Field, e.Reason)
}

func (e InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }

func invalidInput(field, reason string) error {
	return InvalidInputError{Field: field, Reason: reason}
}

// NoFeasibleConfigurationError is the only fatal search outcome. It carries
// the closest recovery reached and the constraint that bound it.
type NoFeasibleConfigurationError struct {
	TargetRecovery float64
	BestRecovery   float64
	BestStages     int
	Binding        BindingConstraint
}

func (e NoFeasibleConfigurationError) Error() string {
	return fmt.Sprintf("no feasible configuration for recovery %.4f: best %.4f with %d stage(s), bound by %s",
		e.TargetRecovery, e.BestRecovery, e.BestStages, e.Binding)
}

func (e NoFeasibleConfigurationError) Is(target error) bool {
	return target == ErrNoFeasibleConfiguration
}
