package main

import (
	"net/http"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/agrimitra/agrimitra/internal/config"
	"github.com/agrimitra/agrimitra/internal/genai"
	"github.com/agrimitra/agrimitra/internal/generate"
	"github.com/agrimitra/agrimitra/internal/http/routes"
	"github.com/agrimitra/agrimitra/internal/weather"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	if !cfg.HasGenAI() {
		logger.Warn().Msg("GENAI_API_KEY not set, generation endpoints will report service unavailable")
	}

	client := genai.New(cfg.GenAI.APIKey,
		genai.WithBaseURL(cfg.GenAI.BaseURL),
		genai.WithModels(cfg.GenAI.Model, cfg.GenAI.VisionModel),
	)

	wx := weather.New(cfg.Weather.CacheTTL,
		weather.WithForecastURL(cfg.Weather.ForecastURL),
		weather.WithGeocodingURL(cfg.Weather.GeocodingURL),
	)

	s := routes.New(routes.ServerOptions{
		Prices:    generate.NewPriceService(client, cfg.PriceCacheTTL, logger),
		Schemes:   generate.NewSchemeService(client, logger),
		Soil:      generate.NewSoilService(client, logger),
		Vision:    generate.NewVisionService(client, logger),
		Advisory:  generate.NewAdvisoryService(client, logger),
		Weather:   wx,
		RedisAddr: cfg.RedisAddr,
		Log:       logger,
	})
	h := hlog.NewHandler(logger)(s.Router)

	logger.Info().Str("port", cfg.Port).Msg("starting api")
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: h}
	if err := srv.ListenAndServe(); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}
