package simulation

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlotRenderer(t *testing.T) {
	renderer := NewPlotRenderer(16, 10)

	t.Run("RendersPNG", func(t *testing.T) {
		sol := &Solution{
			Time:    []float64{0, 1800, 3600},
			Voltage: []float64{4.1, 3.9, 3.6},
		}
		encoded, err := renderer.Render(sol)
		require.NoError(t, err)

		raw, err := base64.StdEncoding.DecodeString(encoded)
		require.NoError(t, err)
		assert.Equal(t, []byte("\x89PNG"), raw[:4])
	})

	t.Run("EmptySolutionRejected", func(t *testing.T) {
		_, err := renderer.Render(&Solution{})
		assert.Error(t, err)
	})

	t.Run("MismatchedSeriesRejected", func(t *testing.T) {
		_, err := renderer.Render(&Solution{Time: []float64{0, 1}, Voltage: []float64{4.0}})
		assert.Error(t, err)
	})
}
