package main

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	goerrors "github.com/go-errors/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ro-array-designer/internal/optimizer"
)

func TestOutcomeMapping(t *testing.T) {
	invalid := optimizer.InvalidInputError{Field: "target_recovery", Reason: "must be in (0, 1)"}
	infeasible := optimizer.NoFeasibleConfigurationError{TargetRecovery: 0.96, BestRecovery: 0.88, BestStages: 3,
		Binding: optimizer.ConstraintConcentrateFloor}

	tests := []struct {
		name    string
		err     error
		outcome string
		exit    int
		status  int
	}{
		{"success", nil, outcomeOK, 0, 200},
		{"invalid input", invalid, outcomeInvalidInput, 2, 400},
		{"wrapped invalid input", goerrors.WrapPrefix(invalid, "plant-a", 0), outcomeInvalidInput, 2, 400},
		{"no feasible", infeasible, outcomeNoFeasible, 3, 422},
		{"fmt wrapped no feasible", fmt.Errorf("design: %w", infeasible), outcomeNoFeasible, 3, 422},
		{"io error", errors.New("open spec.json: no such file"), outcomeError, 1, 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.outcome, outcomeOf(tt.err))
			assert.Equal(t, tt.exit, exitCode(tt.err))
			assert.Equal(t, tt.status, httpStatus(tt.err))
		})
	}
}

func TestErrorBody(t *testing.T) {
	eb := errorBody(optimizer.NoFeasibleConfigurationError{TargetRecovery: 0.96, BestRecovery: 0.88, BestStages: 3,
		Binding: optimizer.ConstraintFluxFloor})
	assert.Equal(t, outcomeNoFeasible, eb.Kind)
	require.NotNil(t, eb.Best)
	assert.Equal(t, 0.88, *eb.Best)
	assert.Equal(t, 3, eb.Stages)
	assert.Equal(t, "flux floor", eb.Binding)
	assert.Empty(t, eb.Field)

	eb = errorBody(optimizer.InvalidInputError{Field: "max_stages", Reason: "must be 1, 2 or 3"})
	assert.Equal(t, "max_stages", eb.Field)
	assert.Nil(t, eb.Best)
}

func TestDesignerRun(t *testing.T) {
	res, err := testDesigner().run(optimizer.SystemSpec{FeedFlow: 150, TargetRecovery: 0.6, AllowRecycle: true})
	require.NoError(t, err)
	require.NotEmpty(t, res.Configurations)
	assert.Equal(t, 3, res.Spec.MaxStages, "returned spec carries membrane defaults")

	var buf bytes.Buffer
	printTable(&buf, res, 1)
	out := buf.String()
	assert.Contains(t, out, "Feed 150.00 m3/h")
	assert.Contains(t, out, res.Configurations[0].ArrayNotation)
	assert.Contains(t, out, "[1] ")
	assert.NotContains(t, out, "[2] ")
	assert.Contains(t, out, fmt.Sprintf("%d configuration(s)", len(res.Configurations)))

	require.NoError(t, writeJSON(&buf, res))
}

func TestFormatConfiguration_Recycle(t *testing.T) {
	bar := 12.5
	cfg := optimizer.Configuration{
		ArrayNotation: "18:9",
		TotalRecovery: 0.6,
		MeetsTarget:   true,
		Stages: []optimizer.StageResult{
			{StageNumber: 1, NVessels: 18, FeedPressureBar: &bar},
			{StageNumber: 2, NVessels: 9},
		},
		Recycle: &optimizer.RecycleBlock{RecycleFlow: 9.2, SplitRatio: 0.133, Converged: false},
	}
	out := formatConfiguration(1, cfg)
	assert.Contains(t, out, "[1] 18:9")
	assert.Contains(t, out, "split 0.133")
	assert.Contains(t, out, "not converged")
	assert.Contains(t, out, "12.5")
	assert.NotContains(t, out, "outside tolerance")
}
