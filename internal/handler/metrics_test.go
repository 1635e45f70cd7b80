package handler

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_OwnLine(t *testing.T) {
	fixClock(t)
	t.Setenv("METRIC_NAMESPACE", "PeliculasTest")
	buf := &bytes.Buffer{}

	ctx := GetWithSlogLogger(context.Background(), NewJSONLogger(buf))
	ctx.Metric("PeliculasCreadas").Count()
	ctx.Metric("DuracionCreacion").Unit(UnitMilliseconds).Value(12)
	ctx.finalize()

	lines := readLines(t, buf)
	require.Len(t, lines, 1)
	line := lines[0]
	assert.Equal(t, float64(1), line["PeliculasCreadas"])
	assert.Equal(t, float64(12), line["DuracionCreacion"])

	awsMetrics := line["_aws"].(map[string]any)
	assert.Equal(t, float64(1709292600000), awsMetrics["Timestamp"])
	cw := awsMetrics["CloudWatchMetrics"].([]any)
	require.Len(t, cw, 2)
	first := cw[0].(map[string]any)
	assert.Equal(t, "PeliculasTest", first["Namespace"])
	assert.Equal(t, []any{map[string]any{"Name": "PeliculasCreadas", "Unit": "Count"}}, first["Metrics"])
}

func TestMetrics_CombinedMode(t *testing.T) {
	buf := &bytes.Buffer{}
	parent := GetWithSlogLogger(context.Background(), NewJSONLogger(buf))

	child, closeLog := parent.Split(context.Background())
	child.Metric("ErroresCreacion").Dimension("tipo_error", "ValidationError").Count()
	child.GetLogger().Error("Validación fallida")
	closeLog()

	lines := readLines(t, buf)
	require.Len(t, lines, 1)
	line := lines[0]
	assert.Equal(t, "ERROR", line["tipo"])
	assert.Equal(t, float64(1), line["ErroresCreacion"])
	assert.Equal(t, "ValidationError", line["tipo_error"])

	cw := line["_aws"].(map[string]any)["CloudWatchMetrics"].([]any)
	require.Len(t, cw, 1)
	first := cw[0].(map[string]any)
	assert.Equal(t, defaultMetricNamespace, first["Namespace"])
	assert.Equal(t, []any{[]any{"tipo_error"}}, first["Dimensions"])
}

func TestMetrics_NoneRecorded(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := GetWithSlogLogger(context.Background(), NewJSONLogger(buf))
	ctx.finalize()
	assert.Empty(t, buf.String())
}
