package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("WEATHER_API_BASE_URL", "")
	t.Setenv("HTTP_TIMEOUT", "")
	t.Setenv("SESSION_BACKEND", "")
	t.Setenv("FETCH_MAX_RETRIES", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/api/v1", cfg.APIBaseURL)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 1, cfg.FetchMaxRetries)
	assert.Equal(t, BackendSQLite, cfg.SessionBackend)
	assert.Equal(t, "8080", cfg.Port)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("HTTP_TIMEOUT", "soon")
	_, err := Load()
	assert.ErrorContains(t, err, "HTTP_TIMEOUT")

	t.Setenv("HTTP_TIMEOUT", "5s")
	t.Setenv("SESSION_BACKEND", "etcd")
	_, err = Load()
	assert.ErrorContains(t, err, "SESSION_BACKEND")

	t.Setenv("SESSION_BACKEND", BackendMySQL)
	t.Setenv("MYSQL_DSN", "")
	_, err = Load()
	assert.ErrorContains(t, err, "MYSQL_DSN")
}
