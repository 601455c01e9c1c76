package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("READ_RETRY_MAX", "not-a-number")

	cfg := Load()

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, uint64(3), cfg.ReadRetryMax)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "messaging.events", cfg.AMQPExchange)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("READ_RETRY_MAX", "0")
	t.Setenv("DEBUG_ROUTES", "true")
	t.Setenv("NATS_URL", "nats://localhost:4222")

	cfg := Load()

	assert.Equal(t, uint64(0), cfg.ReadRetryMax)
	assert.True(t, cfg.DebugRoutes)
	assert.Equal(t, "nats://localhost:4222", cfg.NATSURL)
}
