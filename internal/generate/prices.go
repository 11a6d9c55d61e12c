package generate

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/agrimitra/agrimitra/internal/cache"
	"github.com/agrimitra/agrimitra/internal/genai"
)

// MarketPrice is one mandi price record. Prices are in rupees per quintal.
type MarketPrice struct {
	CropName   string  `json:"crop_name"`
	MarketName string  `json:"market_name"`
	MinPrice   float64 `json:"min_price"`
	MaxPrice   float64 `json:"max_price"`
	ModalPrice float64 `json:"modal_price"`
	Date       string  `json:"date"`
}

// PriceService synthesizes market prices for a crop in a district. Results
// are cached for the configured TTL; on any upstream or parsing failure it
// degrades to deterministic placeholder data so the dashboard never shows
// a hard error.
type PriceService struct {
	client Completer
	cache  *cache.TTL[[]MarketPrice]
	log    zerolog.Logger
}

func NewPriceService(client Completer, ttl time.Duration, log zerolog.Logger) *PriceService {
	return &PriceService{
		client: client,
		cache:  cache.New[[]MarketPrice](ttl),
		log:    log.With().Str("domain", "prices").Logger(),
	}
}

// MarketPrices returns price records for crop in state/district, sorted
// descending by modal price. The only error it ever returns is a missing
// upstream credential; everything else falls back to synthetic data.
func (s *PriceService) MarketPrices(ctx context.Context, state, district, crop string) ([]MarketPrice, error) {
	key := cache.Key(state, district, crop) + "_ai"
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	prompt := pricePrompt(state, district, crop)
	prices, err := structured(ctx, s.client, prompt, genai.ShapeArray, validatePrices)
	if err != nil {
		if !recoverable(err) {
			return nil, err
		}
		s.log.Warn().Err(err).Str("crop", crop).Msg("price generation failed, using fallback")
		return fallbackPrices(crop), nil
	}

	s.cache.Put(key, prices)
	return prices, nil
}

func pricePrompt(state, district, crop string) string {
	return fmt.Sprintf(`List current wholesale market prices for %s in %s district, %s, India.
Respond with ONLY a JSON array of exactly 5 records, no commentary. Each record:
{"crop_name": string, "market_name": string, "min_price": number, "max_price": number, "modal_price": number, "date": "YYYY-MM-DD"}
Prices in INR per quintal.`, crop, district, state)
}

func validatePrices(prices *[]MarketPrice) error {
	if len(*prices) == 0 {
		return &ValidationError{Domain: "prices", Reason: "empty price list"}
	}
	for i, p := range *prices {
		switch {
		case p.CropName == "" || p.MarketName == "" || p.Date == "":
			return &ValidationError{Domain: "prices", Reason: fmt.Sprintf("record %d missing required fields", i)}
		case p.MinPrice <= 0 || p.MaxPrice <= 0 || p.ModalPrice <= 0:
			return &ValidationError{Domain: "prices", Reason: fmt.Sprintf("record %d has non-positive price", i)}
		case p.MinPrice > p.ModalPrice || p.ModalPrice > p.MaxPrice:
			return &ValidationError{Domain: "prices", Reason: fmt.Sprintf("record %d violates min <= modal <= max", i)}
		}
	}
	// Stable: records with equal modal prices keep their original order.
	sort.SliceStable(*prices, func(i, j int) bool {
		return (*prices)[i].ModalPrice > (*prices)[j].ModalPrice
	})
	return nil
}

var cropBasePrice = map[string]float64{
	"wheat":     2250,
	"rice":      2900,
	"paddy":     2180,
	"maize":     2090,
	"cotton":    6600,
	"soybean":   4600,
	"mustard":   5400,
	"groundnut": 6300,
	"sugarcane": 340,
}

// fallbackPrices returns exactly five fixed-shape records spanning a
// plausible band for crop. Deterministic: same crop, same day, same data.
func fallbackPrices(crop string) []MarketPrice {
	base, ok := cropBasePrice[strings.ToLower(strings.TrimSpace(crop))]
	if !ok {
		base = 2500
	}

	markets := []struct {
		name   string
		factor float64
	}{
		{"Central APMC Market", 1.04},
		{"Local District Mandi", 1.00},
		{"Regional Wholesale Market", 0.98},
		{"Cooperative Marketing Society", 0.95},
		{"Village Procurement Centre", 0.92},
	}

	date := time.Now().Format("2006-01-02")
	out := make([]MarketPrice, 0, len(markets))
	for _, m := range markets {
		modal := round2(base * m.factor)
		out = append(out, MarketPrice{
			CropName:   crop,
			MarketName: m.name,
			MinPrice:   round2(modal * 0.92),
			MaxPrice:   round2(modal * 1.08),
			ModalPrice: modal,
			Date:       date,
		})
	}
	return out
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
