package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollerConfig_Validate(t *testing.T) {
	t.Run("all required fields set", func(t *testing.T) {
		cfg := &PollerConfig{
			OutboxPollingInterval: 1 * time.Minute,
			OutboxBatchSize:       10,
			StatsPollingInterval:  3 * time.Minute,
		}
		err := cfg.Validate()
		require.NoError(t, err)
		assert.Equal(t, 3*time.Minute, cfg.StatsPollingInterval)
		assert.EqualValues(t, 10, cfg.OutboxBatchSize)
	})

	t.Run("stats polling interval not set - should use default", func(t *testing.T) {
		cfg := &PollerConfig{
			OutboxPollingInterval: 1 * time.Minute,
			StatsPollingInterval:  0, // not set
		}
		err := cfg.Validate()
		require.NoError(t, err)
		assert.Equal(t, defaultStatsPollingInterval, cfg.StatsPollingInterval)
		assert.Equal(t, 5*time.Minute, cfg.StatsPollingInterval)
		assert.EqualValues(t, defaultOutboxBatchSize, cfg.OutboxBatchSize)
	})

	t.Run("stats polling interval negative - should use default", func(t *testing.T) {
		cfg := &PollerConfig{
			OutboxPollingInterval: 1 * time.Minute,
			StatsPollingInterval:  -1 * time.Minute, // negative
		}
		err := cfg.Validate()
		require.NoError(t, err)
		assert.Equal(t, defaultStatsPollingInterval, cfg.StatsPollingInterval)
	})

	t.Run("outbox polling interval not set - should error", func(t *testing.T) {
		cfg := &PollerConfig{
			OutboxPollingInterval: 0,
		}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "outbox-polling-interval must be positive")
	})
}
