package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aouyang1/go-olsdiag"
	"github.com/aouyang1/go-olsdiag/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMacroCSV(t *testing.T, dir string) string {
	t.Helper()
	r := rand.New(rand.NewPCG(11, 13))
	var sb strings.Builder
	sb.WriteString("year,gdp,investment,inflation\n")
	for i := 0; i < 36; i++ {
		inv := 20 + 3*math.Sin(float64(i)/3) + r.NormFloat64()
		infl := 8 + 4*math.Cos(float64(i)/5) + r.NormFloat64()
		gdp := 1.5 + 0.8*inv - 0.4*infl + 0.5*r.NormFloat64()
		fmt.Fprintf(&sb, "%d,%g,%g,%g\n", 1982+i, gdp, inv, infl)
	}
	path := filepath.Join(dir, "macro.csv")
	require.Nil(t, os.WriteFile(path, []byte(sb.String()), 0o644))
	return path
}

func TestRunAndPredict(t *testing.T) {
	dir := t.TempDir()
	cfg := config.NewDefaultConfig()
	cfg.Source.Location = writeMacroCSV(t, dir)
	cfg.Model.Target = "gdp"
	cfg.Output.ModelPath = filepath.Join(dir, "model.json")
	cfg.Output.PlotPath = filepath.Join(dir, "analysis.html")
	require.Nil(t, cfg.Validate())

	var out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.Nil(t, run(context.Background(), cfg, &out, logger))
	assert.Contains(t, out.String(), "Test Scores:")

	_, err := os.Stat(cfg.Output.PlotPath)
	require.Nil(t, err)

	m, err := olsdiag.LoadModel(cfg.Output.ModelPath)
	require.Nil(t, err)
	assert.Equal(t, []string{"investment", "inflation"}, m.FeatureNames)

	out.Reset()
	require.Nil(t, predict(context.Background(), cfg.Output.ModelPath, cfg.Source.Location, &out))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 37)
	assert.Equal(t, "index,gdp", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "1982,"))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, config.LoggingConfig{Level: "warn", Format: "json"}).Info("hidden")
	assert.Empty(t, buf.String())

	newLogger(&buf, config.LoggingConfig{Level: "info", Format: "json"}).Info("shown")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	newLogger(&buf, config.LoggingConfig{Level: "info", Format: "text"}).Info("shown")
	assert.Contains(t, buf.String(), "msg=shown")
}
