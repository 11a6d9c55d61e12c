package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/agrimitra/agrimitra/internal/genai"
)

// AdvisoryRequest carries the farm context a conversational advisory is
// generated against.
type AdvisoryRequest struct {
	Question string `json:"question"`
	FarmName string `json:"farm_name"`
	Crop     string `json:"crop"`
	Location string `json:"location"`
	Season   string `json:"season"`
	Weather  string `json:"weather"`
}

// AdvisoryService answers free-form farming questions. The contract is
// prose, not structured data, so there is no extraction or validation
// beyond trimming, and no fallback: a failed call surfaces to the user.
type AdvisoryService struct {
	client Completer
	log    zerolog.Logger
}

func NewAdvisoryService(client Completer, log zerolog.Logger) *AdvisoryService {
	return &AdvisoryService{
		client: client,
		log:    log.With().Str("domain", "advisory").Logger(),
	}
}

// Advise returns the generated advisory text, cleaned and trimmed.
func (s *AdvisoryService) Advise(ctx context.Context, req AdvisoryRequest) (string, error) {
	if strings.TrimSpace(req.Question) == "" {
		return "", &ValidationError{Domain: "advisory", Reason: "empty question"}
	}

	raw, err := s.client.Complete(ctx, advisoryPrompt(req))
	if err != nil {
		s.log.Warn().Err(err).Msg("advisory generation failed")
		return "", err
	}

	text := strings.TrimSpace(genai.Clean(raw))
	if text == "" {
		return "", fmt.Errorf("%w: empty advisory text", ErrMalformed)
	}
	return text, nil
}

func advisoryPrompt(req AdvisoryRequest) string {
	var b strings.Builder
	b.WriteString("You are an agricultural advisor for Indian farmers. Answer practically and concisely.\n")
	if req.FarmName != "" {
		fmt.Fprintf(&b, "Farm: %s\n", req.FarmName)
	}
	if req.Crop != "" {
		fmt.Fprintf(&b, "Crop: %s\n", req.Crop)
	}
	if req.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", req.Location)
	}
	if req.Season != "" {
		fmt.Fprintf(&b, "Season: %s\n", req.Season)
	}
	if req.Weather != "" {
		fmt.Fprintf(&b, "Current weather: %s\n", req.Weather)
	}
	fmt.Fprintf(&b, "\nQuestion: %s", req.Question)
	return b.String()
}
