package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("TRACKER_PORT", "")
	t.Setenv("MAX_SERVERS", "")
	t.Setenv("IDLE_TIMEOUT", "")
	cfg := loadConfig()
	require.Equal(t, "7777", cfg.Port)
	require.Equal(t, 10, cfg.MaxServers)
	require.Equal(t, 30*time.Second, cfg.IdleTimeout)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("TRACKER_PORT", "9000")
	t.Setenv("MAX_IPS", "4")
	t.Setenv("HEALTH_INTERVAL", "2s")
	cfg := loadConfig()
	require.Equal(t, "9000", cfg.Port)
	require.Equal(t, 4, cfg.MaxIPs)
	require.Equal(t, 2*time.Second, cfg.HealthInterval)
}

func TestGetEnvInt_IgnoresGarbage(t *testing.T) {
	t.Setenv("X_TEST_INT", "ten")
	require.Equal(t, 3, getEnvInt("X_TEST_INT", 3))
	t.Setenv("X_TEST_INT", "-2")
	require.Equal(t, 3, getEnvInt("X_TEST_INT", 3))
}
