// Package weather wraps the open-meteo forecast and geocoding APIs with a
// short-lived cache. Failures are never papered over here: callers see the
// error.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/agrimitra/agrimitra/internal/cache"
)

const (
	DefaultForecastURL  = "https://api.open-meteo.com"
	DefaultGeocodingURL = "https://geocoding-api.open-meteo.com"
)

// Current is the weather snapshot shown on the dashboard.
type Current struct {
	TemperatureC float64 `json:"temperature_c"`
	Humidity     float64 `json:"humidity_pct"`
	WindSpeedKmh float64 `json:"wind_speed_kmh"`
	Code         int     `json:"weather_code"`
	Description  string  `json:"description"`
}

// Place is a geocoding match.
type Place struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Admin1    string  `json:"admin1,omitempty"` // state
	Country   string  `json:"country,omitempty"`
}

type Client struct {
	http        *http.Client
	forecastURL string
	geocodeURL  string
	cache       *cache.TTL[Current]
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}
func WithForecastURL(raw string) Option {
	return func(c *Client) {
		if raw != "" {
			c.forecastURL = raw
		}
	}
}
func WithGeocodingURL(raw string) Option {
	return func(c *Client) {
		if raw != "" {
			c.geocodeURL = raw
		}
	}
}

// New creates a client caching current-weather lookups for ttl.
func New(ttl time.Duration, opts ...Option) *Client {
	c := &Client{
		http:        &http.Client{Timeout: 10 * time.Second},
		forecastURL: DefaultForecastURL,
		geocodeURL:  DefaultGeocodingURL,
		cache:       cache.New[Current](ttl),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// CurrentWeather fetches weather at lat/lon. Coordinates are rounded to
// two decimals for the cache key, so nearby points share an entry.
func (c *Client) CurrentWeather(ctx context.Context, lat, lon float64) (Current, error) {
	key := fmt.Sprintf("%.2f_%.2f", lat, lon)
	if cached, ok := c.cache.Get(key); ok {
		return cached, nil
	}

	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.4f", lat))
	q.Set("longitude", fmt.Sprintf("%.4f", lon))
	q.Set("current", "temperature_2m,relative_humidity_2m,wind_speed_10m,weather_code")

	var resp struct {
		Current struct {
			Temperature float64 `json:"temperature_2m"`
			Humidity    float64 `json:"relative_humidity_2m"`
			WindSpeed   float64 `json:"wind_speed_10m"`
			Code        int     `json:"weather_code"`
		} `json:"current"`
	}
	if err := c.getJSON(ctx, c.forecastURL+"/v1/forecast?"+q.Encode(), &resp); err != nil {
		return Current{}, err
	}

	cur := Current{
		TemperatureC: resp.Current.Temperature,
		Humidity:     resp.Current.Humidity,
		WindSpeedKmh: resp.Current.WindSpeed,
		Code:         resp.Current.Code,
		Description:  describe(resp.Current.Code),
	}
	c.cache.Put(key, cur)
	return cur, nil
}

// Geocode resolves a place name. Pass-through, no cache.
func (c *Client) Geocode(ctx context.Context, name string) ([]Place, error) {
	q := url.Values{}
	q.Set("name", name)
	q.Set("count", "5")

	var resp struct {
		Results []Place `json:"results"`
	}
	if err := c.getJSON(ctx, c.geocodeURL+"/v1/search?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s: %s: %s", rawURL, resp.Status, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// WMO weather interpretation codes, condensed.
func describe(code int) string {
	switch {
	case code == 0:
		return "Clear sky"
	case code <= 3:
		return "Partly cloudy"
	case code <= 48:
		return "Fog"
	case code <= 57:
		return "Drizzle"
	case code <= 67:
		return "Rain"
	case code <= 77:
		return "Snow"
	case code <= 82:
		return "Rain showers"
	case code <= 86:
		return "Snow showers"
	default:
		return "Thunderstorm"
	}
}
