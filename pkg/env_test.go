package pkg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetenv(t *testing.T) {
	const (
		key          = "TIP_LEDGER_TEST_ENV"
		defaultValue = "default"
	)

	t.Run("unset key falls back to default", func(t *testing.T) {
		assert.Equal(t, defaultValue, Getenv("TIP_LEDGER_TEST_UNSET", defaultValue))
	})
	t.Run("empty value is kept", func(t *testing.T) {
		t.Setenv(key, "")
		assert.Empty(t, Getenv(key, defaultValue))
	})
	t.Run("set value", func(t *testing.T) {
		t.Setenv(key, "7.0.5")
		assert.Equal(t, "7.0.5", Getenv(key, defaultValue))
	})
}
