// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration.
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"postgres://localhost:5432/agrimitra"`
	RedisAddr   string `env:"REDIS_ADDR" envDefault:"localhost:6379"`

	GenAI   GenAIConfig
	Weather WeatherConfig

	PriceCacheTTL time.Duration `env:"PRICE_CACHE_TTL" envDefault:"60m"`
}

// GenAIConfig configures the upstream generative service.
type GenAIConfig struct {
	APIKey      string `env:"GENAI_API_KEY"`
	BaseURL     string `env:"GENAI_BASE_URL"`
	Model       string `env:"GENAI_MODEL"`
	VisionModel string `env:"GENAI_VISION_MODEL"`
}

// WeatherConfig configures the weather/geocoding client.
type WeatherConfig struct {
	ForecastURL  string        `env:"WEATHER_FORECAST_URL"`
	GeocodingURL string        `env:"WEATHER_GEOCODING_URL"`
	CacheTTL     time.Duration `env:"WEATHER_CACHE_TTL" envDefault:"30m"`
}

// Load reads configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// HasGenAI returns true if the generative service credential is present.
// When it is not, the app still serves; generation endpoints surface a
// configuration error instead.
func (c Config) HasGenAI() bool {
	return c.GenAI.APIKey != ""
}
