package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"DEBUG":   zapcore.DebugLevel,
		" warn ":  zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"info":    zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("debug")
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordRequest("/api/shipping_rates", "200", 0.01)
	m.RecordInstallStep("CARRIER_CREATED", "ok")
	m.RecordOptionFailure("OCA_DOM")
	m.RecordOptionFailure("OCA_DOM")
	m.RecordLookup("OCA DOM", "hit", 0.2)
	m.RecordQuote(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/api/shipping_rates", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InstallSteps.WithLabelValues("CARRIER_CREATED", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.OptionFailures.WithLabelValues("OCA_DOM")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLookups.WithLabelValues("OCA DOM", "hit")))
}

func TestNewMetrics_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics(prometheus.NewRegistry())
		NewMetrics(prometheus.NewRegistry())
	})
}
