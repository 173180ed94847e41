package olsdiag

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlot(t *testing.T) {
	res := trainedAnalysis(t)

	var buf bytes.Buffer
	require.Nil(t, res.Plot(&buf))
	out := buf.String()
	for _, title := range []string{"Regression Fit", "Regression Residual", "Residual Q-Q", "Test Prediction"} {
		assert.Contains(t, out, title)
	}

	path := filepath.Join(t.TempDir(), "analysis.html")
	require.Nil(t, PlotAnalysis(path, res))
	info, err := os.Stat(path)
	require.Nil(t, err)
	assert.Greater(t, info.Size(), int64(0))

	assert.ErrorIs(t, (&Analysis{}).Plot(&buf), ErrNothingToPlot)
	assert.ErrorIs(t, PlotAnalysis(path, nil), ErrNothingToPlot)
}
