package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-taskflow/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 200*time.Millisecond, cfg.RetryDelay)
	assert.Equal(t, 2, cfg.SectionSize)
	assert.Equal(t, "Summary", cfg.Title)
	assert.Empty(t, cfg.DotFile)
	assert.Empty(t, cfg.MetricsFile)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TASKFLOW_LOG_LEVEL", "debug")
	t.Setenv("TASKFLOW_MAX_ATTEMPTS", "5")
	t.Setenv("TASKFLOW_RETRY_DELAY", "1s")
	t.Setenv("TASKFLOW_DOT_FILE", "flow.dot")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, time.Second, cfg.RetryDelay)
	assert.Equal(t, "flow.dot", cfg.DotFile)
}

func TestLoadErrors(t *testing.T) {
	tcs := map[string]struct {
		key, value  string
		expectedErr error
	}{
		"unknown log level": {key: "TASKFLOW_LOG_LEVEL", value: "trace", expectedErr: config.ErrInvalidConfig},
		"no attempt":        {key: "TASKFLOW_MAX_ATTEMPTS", value: "0", expectedErr: config.ErrInvalidConfig},
		"negative delay":    {key: "TASKFLOW_RETRY_DELAY", value: "-1s", expectedErr: config.ErrInvalidConfig},
		"empty sections":    {key: "TASKFLOW_SECTION_SIZE", value: "0", expectedErr: config.ErrInvalidConfig},
		"not a number":      {key: "TASKFLOW_MAX_ATTEMPTS", value: "three"},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)

			_, err := config.Load()
			require.Error(t, err)

			if tc.expectedErr != nil {
				require.ErrorIs(t, err, tc.expectedErr)
			}
		})
	}
}
