package generate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/agrimitra/agrimitra/internal/genai"
)

// Scheme is one government support scheme matched to a farmer profile.
// The upstream service does not assign identifiers, so the validator
// synthesizes one per record.
type Scheme struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Benefits            string `json:"benefits"`
	Eligibility         string `json:"eligibility"`
	ApplicationGuidance string `json:"application_guidance"`
	SchemeType          string `json:"scheme_type"` // "central" or "state"
	State               string `json:"state"`
}

// FarmerProfile is the context schemes are discovered against.
type FarmerProfile struct {
	State         string   `json:"state"`
	District      string   `json:"district"`
	LandSizeAcres float64  `json:"land_size_acres"`
	Crops         []string `json:"crops"`
	Category      string   `json:"category"` // small, marginal, large
}

// SchemeService discovers government schemes for a farmer profile. Scheme
// discovery is a user-initiated action: there is no fallback and no cache,
// a failed generation surfaces as an error the user can retry.
type SchemeService struct {
	client Completer
	now    func() time.Time
	log    zerolog.Logger
}

func NewSchemeService(client Completer, log zerolog.Logger) *SchemeService {
	return &SchemeService{
		client: client,
		now:    time.Now,
		log:    log.With().Str("domain", "schemes").Logger(),
	}
}

// Discover generates schemes relevant to profile. Context varies per
// request, so results are always regenerated.
func (s *SchemeService) Discover(ctx context.Context, profile FarmerProfile) ([]Scheme, error) {
	prompt := schemePrompt(profile)
	schemes, err := structured(ctx, s.client, prompt, genai.ShapeArray, s.validateSchemes)
	if err != nil {
		s.log.Warn().Err(err).Str("state", profile.State).Msg("scheme discovery failed")
		return nil, err
	}
	return schemes, nil
}

func schemePrompt(p FarmerProfile) string {
	return fmt.Sprintf(`List 5 Indian government agricultural schemes relevant to a %s farmer in %s district, %s, growing %s on %.1f acres.
Respond with ONLY a JSON array, no commentary. Each record:
{"name": string, "benefits": string, "eligibility": string, "application_guidance": string, "scheme_type": "central"|"state", "state": string}`,
		p.Category, p.District, p.State, strings.Join(p.Crops, ", "), p.LandSizeAcres)
}

func (s *SchemeService) validateSchemes(schemes *[]Scheme) error {
	if len(*schemes) == 0 {
		return &ValidationError{Domain: "schemes", Reason: "empty scheme list"}
	}
	stamp := s.now().Unix()
	for i := range *schemes {
		sc := &(*schemes)[i]
		if sc.Name == "" || sc.Benefits == "" || sc.Eligibility == "" || sc.ApplicationGuidance == "" || sc.State == "" {
			return &ValidationError{Domain: "schemes", Reason: fmt.Sprintf("record %d missing required fields", i)}
		}
		sc.SchemeType = strings.ToLower(strings.TrimSpace(sc.SchemeType))
		if sc.SchemeType != "central" && sc.SchemeType != "state" {
			return &ValidationError{Domain: "schemes", Reason: fmt.Sprintf("record %d has scheme_type %q", i, sc.SchemeType)}
		}
		sc.ID = fmt.Sprintf("gen-scheme-%d-%d", stamp, i)
	}
	return nil
}
