// Package routes exposes the generation layer over HTTP. Handlers only
// ever see validated domain results or their fallback equivalents; raw
// upstream text, cache keys and cleaning internals stay behind the
// service boundary.
package routes

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/agrimitra/agrimitra/internal/genai"
	"github.com/agrimitra/agrimitra/internal/generate"
	"github.com/agrimitra/agrimitra/internal/jobs"
	"github.com/agrimitra/agrimitra/internal/weather"
)

// Interfaces for the generation services, kept here so handlers can be
// tested against fakes.

type PriceGenerator interface {
	MarketPrices(ctx context.Context, state, district, crop string) ([]generate.MarketPrice, error)
}

type SchemeDiscoverer interface {
	Discover(ctx context.Context, profile generate.FarmerProfile) ([]generate.Scheme, error)
}

type SoilReporter interface {
	Report(ctx context.Context, sc generate.SoilContext) (generate.SoilReport, error)
}

type ImageAnalyzer interface {
	Analyze(ctx context.Context, img genai.Image, cropHint string) (generate.ImageAnalysis, error)
}

type Adviser interface {
	Advise(ctx context.Context, req generate.AdvisoryRequest) (string, error)
}

type WeatherProvider interface {
	CurrentWeather(ctx context.Context, lat, lon float64) (weather.Current, error)
	Geocode(ctx context.Context, name string) ([]weather.Place, error)
}

type Server struct {
	Router    *chi.Mux
	Prices    PriceGenerator
	Schemes   SchemeDiscoverer
	Soil      SoilReporter
	Vision    ImageAnalyzer
	Advisory  Adviser
	Weather   WeatherProvider
	RedisAddr string
	Log       zerolog.Logger
}

type ServerOptions struct {
	Prices    PriceGenerator
	Schemes   SchemeDiscoverer
	Soil      SoilReporter
	Vision    ImageAnalyzer
	Advisory  Adviser
	Weather   WeatherProvider
	RedisAddr string
	Log       zerolog.Logger
}

func New(opts ServerOptions) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	s := &Server{
		Router:    r,
		Prices:    opts.Prices,
		Schemes:   opts.Schemes,
		Soil:      opts.Soil,
		Vision:    opts.Vision,
		Advisory:  opts.Advisory,
		Weather:   opts.Weather,
		RedisAddr: opts.RedisAddr,
		Log:       opts.Log,
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(api chi.Router) {
		api.Get("/prices", s.handlePrices)
		api.Post("/schemes", s.handleSchemes)
		api.Post("/soil", s.handleSoil)
		api.Post("/scan", s.handleScan)
		api.Post("/advisory", s.handleAdvisory)
		api.Get("/weather", s.handleWeather)
		api.Get("/geocode", s.handleGeocode)
	})

	return s
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Log.Error().Err(err).Msg("encode response failed")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// generationStatus maps the error taxonomy onto HTTP statuses for the
// user-initiated endpoints that surface failures.
func generationStatus(err error) int {
	if errors.Is(err, genai.ErrNotConfigured) {
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	district := r.URL.Query().Get("district")
	crop := r.URL.Query().Get("crop")
	if state == "" || district == "" || crop == "" {
		s.writeError(w, http.StatusBadRequest, "state, district and crop are required")
		return
	}

	prices, err := s.Prices.MarketPrices(r.Context(), state, district, crop)
	if err != nil {
		s.writeError(w, generationStatus(err), "price service not available")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"prices": prices})
}

func (s *Server) handleSchemes(w http.ResponseWriter, r *http.Request) {
	var profile generate.FarmerProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if profile.State == "" {
		s.writeError(w, http.StatusBadRequest, "state is required")
		return
	}

	schemes, err := s.Schemes.Discover(r.Context(), profile)
	if err != nil {
		s.writeError(w, generationStatus(err), "scheme discovery failed, please retry")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"schemes": schemes})
}

func (s *Server) handleSoil(w http.ResponseWriter, r *http.Request) {
	var sc generate.SoilContext
	if err := json.NewDecoder(r.Body).Decode(&sc); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	report, err := s.Soil.Report(r.Context(), sc)
	if err != nil {
		s.writeError(w, generationStatus(err), "soil analysis not available")
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

type scanRequest struct {
	ImageBase64 string `json:"image_base64"`
	MIMEType    string `json:"mime_type"`
	Crop        string `json:"crop"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	data, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil || len(data) == 0 {
		s.writeError(w, http.StatusBadRequest, "image_base64 must be a non-empty base64 payload")
		return
	}
	if req.MIMEType == "" {
		req.MIMEType = "image/jpeg"
	}

	analysis, err := s.Vision.Analyze(r.Context(), genai.Image{MIMEType: req.MIMEType, Data: data}, req.Crop)
	if err != nil {
		s.writeError(w, generationStatus(err), "image analysis not available")
		return
	}
	s.writeJSON(w, http.StatusOK, analysis)
}

type advisoryRequest struct {
	FarmID string `json:"farm_id"`
	generate.AdvisoryRequest
}

func (s *Server) handleAdvisory(w http.ResponseWriter, r *http.Request) {
	var req advisoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		s.writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	// The worker persists against a farm record, so reject anything the
	// store could not reference before generating.
	farmID, err := uuid.Parse(req.FarmID)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "farm_id must be a valid UUID")
		return
	}

	answer, err := s.Advisory.Advise(r.Context(), req.AdvisoryRequest)
	if err != nil {
		s.writeError(w, generationStatus(err), "advisory failed, please retry")
		return
	}

	id := uuid.New()
	s.enqueuePersist(jobs.PersistAdvisoryPayload{
		AdvisoryID: id.String(),
		FarmID:     farmID.String(),
		Question:   req.Question,
		Answer:     answer,
		AskedUnix:  time.Now().Unix(),
	})

	s.writeJSON(w, http.StatusOK, map[string]string{"id": id.String(), "answer": answer})
}

// enqueuePersist queues the advisory for persistence. Best effort: the
// user already has their answer, a queue outage only loses history.
func (s *Server) enqueuePersist(p jobs.PersistAdvisoryPayload) {
	client := asynq.NewClient(asynq.RedisClientOpt{Addr: s.RedisAddr})
	defer func() {
		if err := client.Close(); err != nil {
			s.Log.Warn().Err(err).Msg("close asynq client")
		}
	}()

	payload, err := json.Marshal(p)
	if err != nil {
		s.Log.Error().Err(err).Msg("marshal advisory payload")
		return
	}
	info, err := client.Enqueue(asynq.NewTask(jobs.TaskPersistAdvisory, payload),
		asynq.Queue("persist"),
		asynq.MaxRetry(3),
	)
	if err != nil {
		s.Log.Warn().Err(err).Msg("enqueue advisory persist failed")
		return
	}
	s.Log.Info().Str("task_id", info.ID).Str("advisory_id", p.AdvisoryID).Msg("advisory persist queued")
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if errLat != nil || errLon != nil {
		s.writeError(w, http.StatusBadRequest, "lat and lon are required numbers")
		return
	}

	cur, err := s.Weather.CurrentWeather(r.Context(), lat, lon)
	if err != nil {
		s.Log.Warn().Err(err).Msg("weather lookup failed")
		s.writeError(w, http.StatusBadGateway, "weather service not available")
		return
	}
	s.writeJSON(w, http.StatusOK, cur)
}

func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("q")
	if name == "" {
		s.writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	places, err := s.Weather.Geocode(r.Context(), name)
	if err != nil {
		s.Log.Warn().Err(err).Msg("geocode failed")
		s.writeError(w, http.StatusBadGateway, "geocoding service not available")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"results": places})
}
