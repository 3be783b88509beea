package simulation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solveDefaults(t *testing.T, chemistry, variant string, duration, cRate float64) (*Solution, error) {
	t.Helper()
	handle, err := SelectModel(chemistry, variant)
	require.NoError(t, err)
	return NewCircuitSolver().Solve(context.Background(), handle, handle.BaseParameters(), duration, cRate)
}

func TestCircuitSolverSolve(t *testing.T) {
	t.Run("DischargeIsMonotonicWithinCutoffs", func(t *testing.T) {
		sol, err := solveDefaults(t, "lithium-ion", "SPM", 3600, 1)
		require.NoError(t, err)
		require.NotEmpty(t, sol.Voltage)

		handle, _ := SelectModel("lithium-ion", "SPM")
		params := handle.BaseParameters()
		for i, v := range sol.Voltage {
			assert.GreaterOrEqual(t, v, params["Lower voltage cut-off [V]"], "sample %d", i)
			assert.LessOrEqual(t, v, params["Upper voltage cut-off [V]"]+0.1, "sample %d", i)
			if i > 0 {
				assert.LessOrEqual(t, v, sol.Voltage[i-1]+1e-9, "voltage rose at sample %d", i)
			}
		}
	})

	t.Run("WindowSpansZeroToDuration", func(t *testing.T) {
		sol, err := solveDefaults(t, "lead-acid", "LOQS", 1800, 1)
		require.NoError(t, err)
		assert.Equal(t, 0.0, sol.Time[0])
		assert.InDelta(t, 1800, sol.Time[len(sol.Time)-1], 1e-9)
	})

	t.Run("FinerGridForFullOrderModels", func(t *testing.T) {
		spm, err := solveDefaults(t, "lithium-ion", "SPM", 3600, 1)
		require.NoError(t, err)
		dfn, err := solveDefaults(t, "lithium-ion", "DFN", 3600, 1)
		require.NoError(t, err)
		assert.Greater(t, len(dfn.Time), len(spm.Time))
	})

	t.Run("InvalidCapacityRejected", func(t *testing.T) {
		handle, err := SelectModel("lithium-ion", "SPM")
		require.NoError(t, err)
		params := handle.BaseParameters()
		params["Nominal cell capacity [A.h]"] = 0

		_, err = NewCircuitSolver().Solve(context.Background(), handle, params, 3600, 1)
		assert.Error(t, err)
	})

	t.Run("InvalidStateOfChargeRejected", func(t *testing.T) {
		handle, err := SelectModel("lead-acid", "Full")
		require.NoError(t, err)
		params := handle.BaseParameters()
		params["Initial state of charge"] = 1.5

		_, err = NewCircuitSolver().Solve(context.Background(), handle, params, 3600, 1)
		assert.Error(t, err)
	})

	t.Run("NonPositiveDurationRejected", func(t *testing.T) {
		_, err := solveDefaults(t, "lithium-ion", "SPM", 0, 1)
		assert.Error(t, err)
	})

	t.Run("HigherRateDischargesDeeper", func(t *testing.T) {
		slow, err := solveDefaults(t, "lithium-ion", "SPM", 3600, 0.5)
		require.NoError(t, err)
		fast, err := solveDefaults(t, "lithium-ion", "SPM", 3600, 2)
		require.NoError(t, err)
		assert.Less(t, fast.FinalVoltage(), slow.FinalVoltage())
	})

	t.Run("CancelledContext", func(t *testing.T) {
		handle, err := SelectModel("lithium-ion", "SPM")
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = NewCircuitSolver().Solve(ctx, handle, handle.BaseParameters(), 3600, 1)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
