package routes

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/agrimitra/agrimitra/internal/genai"
	"github.com/agrimitra/agrimitra/internal/generate"
	"github.com/agrimitra/agrimitra/internal/weather"
)

type fakePrices struct {
	prices []generate.MarketPrice
	err    error
}

func (f *fakePrices) MarketPrices(ctx context.Context, state, district, crop string) ([]generate.MarketPrice, error) {
	return f.prices, f.err
}

type fakeSchemes struct {
	schemes []generate.Scheme
	err     error
}

func (f *fakeSchemes) Discover(ctx context.Context, p generate.FarmerProfile) ([]generate.Scheme, error) {
	return f.schemes, f.err
}

type fakeSoil struct{ report generate.SoilReport }

func (f *fakeSoil) Report(ctx context.Context, sc generate.SoilContext) (generate.SoilReport, error) {
	return f.report, nil
}

type fakeVision struct {
	gotMIME string
	gotLen  int
}

func (f *fakeVision) Analyze(ctx context.Context, img genai.Image, crop string) (generate.ImageAnalysis, error) {
	f.gotMIME = img.MIMEType
	f.gotLen = len(img.Data)
	return generate.ImageAnalysis{OverallAssessment: "Healthy"}, nil
}

type fakeAdviser struct {
	answer string
	err    error
}

func (f *fakeAdviser) Advise(ctx context.Context, req generate.AdvisoryRequest) (string, error) {
	return f.answer, f.err
}

type fakeWeather struct{ err error }

func (f *fakeWeather) CurrentWeather(ctx context.Context, lat, lon float64) (weather.Current, error) {
	return weather.Current{TemperatureC: 31}, f.err
}
func (f *fakeWeather) Geocode(ctx context.Context, name string) ([]weather.Place, error) {
	return []weather.Place{{Name: name}}, f.err
}

func newTestServer(opts ServerOptions) *Server {
	opts.Log = zerolog.Nop()
	if opts.RedisAddr == "" {
		// Nothing listens here; advisory persistence is best effort and
		// the enqueue failure must not affect the response.
		opts.RedisAddr = "127.0.0.1:1"
	}
	return New(opts)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(ServerOptions{})
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestPricesHandler(t *testing.T) {
	s := newTestServer(ServerOptions{
		Prices: &fakePrices{prices: []generate.MarketPrice{{CropName: "Wheat", MarketName: "X", MinPrice: 1, MaxPrice: 3, ModalPrice: 2, Date: "2024-01-01"}}},
	})

	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/prices?state=Punjab&district=Ludhiana&crop=Wheat", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Prices []generate.MarketPrice `json:"prices"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Prices, 1)
}

func TestPricesHandlerMissingParams(t *testing.T) {
	s := newTestServer(ServerOptions{Prices: &fakePrices{}})
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/prices?state=Punjab", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSchemesHandlerFailureSurfaces(t *testing.T) {
	s := newTestServer(ServerOptions{Schemes: &fakeSchemes{err: errors.New("upstream down")}})
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/schemes", strings.NewReader(`{"state":"Punjab"}`)))
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Contains(t, rec.Body.String(), "please retry")
}

func TestSchemesHandlerNotConfigured(t *testing.T) {
	s := newTestServer(ServerOptions{Schemes: &fakeSchemes{err: genai.ErrNotConfigured}})
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/schemes", strings.NewReader(`{"state":"Punjab"}`)))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestScanHandlerDecodesImage(t *testing.T) {
	vision := &fakeVision{}
	s := newTestServer(ServerOptions{Vision: vision})

	img := base64.StdEncoding.EncodeToString([]byte{1, 2, 3, 4})
	body := `{"image_base64":"` + img + `","mime_type":"image/png","crop":"wheat"}`
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/scan", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/png", vision.gotMIME)
	require.Equal(t, 4, vision.gotLen)
}

func TestScanHandlerRejectsBadBase64(t *testing.T) {
	s := newTestServer(ServerOptions{Vision: &fakeVision{}})
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/scan", strings.NewReader(`{"image_base64":"!!!not-base64!!!"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdvisoryHandler(t *testing.T) {
	s := newTestServer(ServerOptions{Advisory: &fakeAdviser{answer: "Irrigate in the morning."}})

	farmID := uuid.NewString()
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/advisory",
		strings.NewReader(`{"farm_id":"`+farmID+`","question":"when to irrigate?"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "Irrigate in the morning.", body["answer"])
	require.NotEmpty(t, body["id"])
}

func TestAdvisoryHandlerRequiresQuestion(t *testing.T) {
	s := newTestServer(ServerOptions{Advisory: &fakeAdviser{}})
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/advisory",
		strings.NewReader(`{"farm_id":"`+uuid.NewString()+`"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdvisoryHandlerRejectsBadFarmID(t *testing.T) {
	adviser := &fakeAdviser{answer: "should not be reached"}
	s := newTestServer(ServerOptions{Advisory: adviser})

	// The worker parses farm_id as a UUID before saving; anything else
	// would be generated and then silently dropped, so it is rejected
	// up front.
	for _, farmID := range []string{"", "f1", "not-a-uuid"} {
		rec := httptest.NewRecorder()
		s.Router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/advisory",
			strings.NewReader(`{"farm_id":"`+farmID+`","question":"help"}`)))
		require.Equal(t, http.StatusBadRequest, rec.Code, "farm_id %q", farmID)
	}
}

func TestWeatherHandler(t *testing.T) {
	s := newTestServer(ServerOptions{Weather: &fakeWeather{}})
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/weather?lat=30.9&lon=75.85", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var cur weather.Current
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cur))
	require.InDelta(t, 31.0, cur.TemperatureC, 1e-9)
}

func TestWeatherHandlerErrorPropagates(t *testing.T) {
	s := newTestServer(ServerOptions{Weather: &fakeWeather{err: errors.New("down")}})
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/weather?lat=1&lon=2", nil))
	require.Equal(t, http.StatusBadGateway, rec.Code)
}
