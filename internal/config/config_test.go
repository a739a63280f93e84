package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("JWT_SECRET", "secret")
}

func TestLoadMemoryDriverDefaults(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORAGE_DRIVER", "memory")

	cfg, err := Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "quiz-results", cfg.Name)
	assert.Equal(t, 4, cfg.Dispatcher.Workers)
	assert.Equal(t, 2*time.Minute, cfg.Dispatcher.StaleAfter)
	assert.Equal(t, "results:submissions", cfg.Dispatcher.QueueKey)
	assert.Equal(t, "http://localhost:5000", cfg.Identity.BaseURL, "identity falls back to the main service")
}

func TestLoadPostgresDriverNeedsCredentials(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORAGE_DRIVER", "postgres")

	_, err := Load(context.Background())
	assert.ErrorContains(t, err, "PG_USER")

	t.Setenv("PG_USER", "quiz")
	t.Setenv("PG_PASSWORD", "pw")
	t.Setenv("PG_DATABASE", "results")
	cfg, err := Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "host=localhost port=5432 user=quiz password=pw dbname=results sslmode=disable", cfg.Postgres.DSN())
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORAGE_DRIVER", "mongo")

	_, err := Load(context.Background())
	assert.Error(t, err)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STORAGE_DRIVER", "memory")

	_, err := Load(context.Background())
	assert.Error(t, err)
}

func TestLoadRejectsJobTimeoutPastStaleWindow(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("SUBMISSION_STALE_AFTER", "1m")

	t.Setenv("SUBMISSION_JOB_TIMEOUT", "90s")
	_, err := Load(context.Background())
	assert.ErrorContains(t, err, "SUBMISSION_JOB_TIMEOUT")

	t.Setenv("SUBMISSION_JOB_TIMEOUT", "1m")
	_, err = Load(context.Background())
	assert.ErrorContains(t, err, "SUBMISSION_STALE_AFTER")

	t.Setenv("SUBMISSION_JOB_TIMEOUT", "45s")
	cfg, err := Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.Dispatcher.JobTimeout)
}
