package main

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"ro-array-designer/internal/optimizer"
	"ro-array-designer/internal/pressure"
)

// DesignResult is the JSON-serializable result of one design run.
type DesignResult struct {
	Spec           optimizer.SystemSpec      `json:"spec"`
	Configurations []optimizer.Configuration `json:"configurations"`
	TimeMs         int64                     `json:"time_ms"`
}

// ErrorBody is what the HTTP and Lambda surfaces return for a failed design.
type ErrorBody struct {
	Error   string   `json:"error"`
	Kind    string   `json:"kind"`
	Field   string   `json:"field,omitempty"`
	Best    *float64 `json:"best_recovery,omitempty"`
	Stages  int      `json:"best_stages,omitempty"`
	Binding string   `json:"binding_constraint,omitempty"`
}

const (
	outcomeOK           = "ok"
	outcomeInvalidInput = "invalid_input"
	outcomeNoFeasible   = "no_feasible"
	outcomeError        = "error"
)

// designer runs specs with one set of tuning knobs and collaborators.
type designer struct {
	tuning   optimizer.Tuning
	log      *logrus.Entry
	pressure optimizer.PressureEstimator
}

func newDesigner(c ToolConfig, log *logrus.Entry) designer {
	return designer{
		tuning:   c.tuning(),
		log:      log,
		pressure: pressure.NewEstimator(),
	}
}

// run designs one spec and records metrics. The returned spec has the
// membrane defaults filled in.
func (d designer) run(spec optimizer.SystemSpec) (DesignResult, error) {
	start := time.Now()
	opt := optimizer.NewOptimizer(spec,
		optimizer.WithTuning(d.tuning),
		optimizer.WithLogger(d.log),
		optimizer.WithPressureEstimator(d.pressure),
	)
	configs, err := opt.Optimize()
	elapsed := time.Since(start)

	designRequests.WithLabelValues(outcomeOf(err)).Inc()
	designDuration.Observe(elapsed.Seconds())
	if err != nil {
		return DesignResult{Spec: opt.Spec(), TimeMs: elapsed.Milliseconds()}, err
	}
	designConfigurations.Observe(float64(len(configs)))
	return DesignResult{
		Spec:           opt.Spec(),
		Configurations: configs,
		TimeMs:         elapsed.Milliseconds(),
	}, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, optimizer.ErrInvalidInput):
		return outcomeInvalidInput
	case errors.Is(err, optimizer.ErrNoFeasibleConfiguration):
		return outcomeNoFeasible
	default:
		return outcomeError
	}
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	switch outcomeOf(err) {
	case outcomeOK:
		return 0
	case outcomeInvalidInput:
		return 2
	case outcomeNoFeasible:
		return 3
	default:
		return 1
	}
}

// httpStatus maps a design error to the HTTP status both servers use.
func httpStatus(err error) int {
	switch outcomeOf(err) {
	case outcomeOK:
		return 200
	case outcomeInvalidInput:
		return 400
	case outcomeNoFeasible:
		return 422
	default:
		return 500
	}
}

func errorBody(err error) ErrorBody {
	body := ErrorBody{Error: err.Error(), Kind: outcomeOf(err)}
	var ie optimizer.InvalidInputError
	if errors.As(err, &ie) {
		body.Field = ie.Field
	}
	var nf optimizer.NoFeasibleConfigurationError
	if errors.As(err, &nf) {
		best := nf.BestRecovery
		body.Best = &best
		body.Stages = nf.BestStages
		body.Binding = string(nf.Binding)
	}
	return body
}
