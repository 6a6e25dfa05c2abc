package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.NotEmpty(t, cfg.Database.URL)
	assert.Equal(t, time.Minute, cfg.Worker.ReconcileInterval)
	assert.Equal(t, 5*time.Minute, cfg.Worker.StaleAfter)
	assert.Empty(t, cfg.Predict.Endpoint)
	assert.Equal(t, time.Minute, cfg.Predict.Timeout)
	assert.Equal(t, 4096, cfg.Predict.MaxInputBytes)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PREDICTPAY_SERVER_PORT", "9090")
	t.Setenv("PREDICTPAY_SERVER_LOG_LEVEL", "debug")
	t.Setenv("PREDICTPAY_DATABASE_URL", "postgres://test:test@db:5432/test")
	t.Setenv("PREDICTPAY_WORKER_STALE_AFTER", "90s")
	t.Setenv("PREDICTPAY_PREDICT_ENDPOINT", "http://model-server:9000/predict")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, "postgres://test:test@db:5432/test", cfg.Database.URL)
	assert.Equal(t, 90*time.Second, cfg.Worker.StaleAfter)
	assert.Equal(t, "http://model-server:9000/predict", cfg.Predict.Endpoint)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"bad log level", "PREDICTPAY_SERVER_LOG_LEVEL", "verbose"},
		{"port out of range", "PREDICTPAY_SERVER_PORT", "70000"},
		{"endpoint not a url", "PREDICTPAY_PREDICT_ENDPOINT", "not a url"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
