package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, 60*time.Minute, cfg.PriceCacheTTL)
	require.Equal(t, 30*time.Minute, cfg.Weather.CacheTTL)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("GENAI_API_KEY", "sk-test")
	t.Setenv("PRICE_CACHE_TTL", "15m")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "9090", cfg.Port)
	require.Equal(t, 15*time.Minute, cfg.PriceCacheTTL)
	require.True(t, cfg.HasGenAI())
}

func TestHasGenAI(t *testing.T) {
	require.False(t, Config{}.HasGenAI())
	require.True(t, Config{GenAI: GenAIConfig{APIKey: "k"}}.HasGenAI())
}
