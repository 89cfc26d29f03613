package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirForTest mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdirForTest(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoadDefaults(t *testing.T) {
	chdirForTest(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.True(t, cfg.StatsCache.Enabled)
	assert.True(t, cfg.StatsCache.Singleflight)
	assert.Equal(t, "studentid_duesoon:", cfg.StatsCache.DueSoon.KeyPrefix)
	assert.Equal(t, 5*time.Minute, cfg.StatsCache.DueSoon.StaleAfter)
	assert.Equal(t, 30*time.Minute, cfg.StatsCache.Summary.StaleAfter)
	assert.Equal(t, 2*time.Hour, cfg.StatsCache.SummaryByType.StaleAfter)
	assert.Equal(t, "mdl_", cfg.Moodle.TablePrefix)
	assert.InDelta(t, 0.1, cfg.Tracing.SampleRatio, 0.0001)
}

func TestLoadOverridesFromEnv(t *testing.T) {
	chdirForTest(t, t.TempDir())
	t.Setenv("SUMMARY_STALE_AFTER", "10m")
	t.Setenv("DUE_SOON_STALE_AFTER", "not-a-duration")
	t.Setenv("ENABLE_STATS_CACHE", "false")
	t.Setenv("OTEL_SAMPLER_RATIO", "7")
	t.Setenv("ALLOWED_ORIGINS", "https://moodle.example.org, ,https://lms.example.org")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, cfg.StatsCache.Summary.StaleAfter)
	assert.Equal(t, 5*time.Minute, cfg.StatsCache.DueSoon.StaleAfter)
	assert.False(t, cfg.StatsCache.Enabled)
	assert.Equal(t, 1.0, cfg.Tracing.SampleRatio)
	assert.Equal(t, []string{"https://moodle.example.org", "https://lms.example.org"}, cfg.CORS.AllowedOrigins)
}
