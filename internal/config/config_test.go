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

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, int64(1000000), cfg.InitialTreasury)
	assert.True(t, cfg.AutoSettle)
	assert.Equal(t, time.Minute, cfg.SettleInterval)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("QUEST_HTTP_ADDR", ":9090")
	t.Setenv("QUEST_INITIAL_TREASURY", "500")
	t.Setenv("QUEST_SETTLE_INTERVAL", "30s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, int64(500), cfg.InitialTreasury)
	assert.Equal(t, 30*time.Second, cfg.SettleInterval)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Run("negative treasury", func(t *testing.T) {
		t.Setenv("QUEST_INITIAL_TREASURY", "-1")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("zero interval with auto settle", func(t *testing.T) {
		t.Setenv("QUEST_SETTLE_INTERVAL", "0s")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("malformed value", func(t *testing.T) {
		t.Setenv("QUEST_INITIAL_TREASURY", "lots")
		_, err := Load()
		assert.Error(t, err)
	})
}
