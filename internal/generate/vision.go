package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/agrimitra/agrimitra/internal/genai"
)

const defaultConfidence = 0.80

// ImageAnalysis is the result of scanning a crop photograph.
type ImageAnalysis struct {
	ColorPatterns     string   `json:"color_patterns"`
	TextureAnalysis   string   `json:"texture_analysis"`
	StressIndicators  []string `json:"stress_indicators"`
	OverallAssessment string   `json:"overall_assessment"`
	Recommendations   []string `json:"recommendations"`
	Confidence        float64  `json:"confidence"`
	AnalyzedAt        string   `json:"analyzed_at"` // always set locally
}

// imageAnalysisWire keeps confidence raw so a non-numeric value degrades
// to the default instead of failing the whole parse.
type imageAnalysisWire struct {
	ColorPatterns     string          `json:"color_patterns"`
	TextureAnalysis   string          `json:"texture_analysis"`
	StressIndicators  []string        `json:"stress_indicators"`
	OverallAssessment string          `json:"overall_assessment"`
	Recommendations   []string        `json:"recommendations"`
	Confidence        json.RawMessage `json:"confidence"`
}

// VisionService runs crop-image diagnostics through the vision-capable
// upstream model. Dashboard-decorative: any failure short of a missing
// credential degrades to a placeholder record.
type VisionService struct {
	client VisionCompleter
	now    func() time.Time
	log    zerolog.Logger
}

func NewVisionService(client VisionCompleter, log zerolog.Logger) *VisionService {
	return &VisionService{
		client: client,
		now:    time.Now,
		log:    log.With().Str("domain", "vision").Logger(),
	}
}

// Analyze scans img, optionally hinted with the crop being grown. Never
// cached: every scan is a fresh image.
func (s *VisionService) Analyze(ctx context.Context, img genai.Image, cropHint string) (ImageAnalysis, error) {
	raw, err := s.client.CompleteVision(ctx, visionPrompt(cropHint), img)
	if err != nil {
		if !recoverable(err) {
			return ImageAnalysis{}, err
		}
		s.log.Warn().Err(err).Msg("image analysis failed, using fallback")
		return s.fallbackAnalysis(), nil
	}

	body := genai.ExtractJSON(genai.Clean(raw), genai.ShapeObject)
	var wire imageAnalysisWire
	if err := json.Unmarshal([]byte(body), &wire); err != nil {
		s.log.Warn().Err(err).Msg("image analysis response malformed, using fallback")
		return s.fallbackAnalysis(), nil
	}

	analysis, err := s.validateAnalysis(wire)
	if err != nil {
		s.log.Warn().Err(err).Msg("image analysis unusable, using fallback")
		return s.fallbackAnalysis(), nil
	}
	return analysis, nil
}

func visionPrompt(cropHint string) string {
	hint := "a crop"
	if cropHint != "" {
		hint = cropHint
	}
	return fmt.Sprintf(`Analyze this photograph of %s for plant health.
Respond with ONLY a JSON object, no commentary:
{"color_patterns": string, "texture_analysis": string, "stress_indicators": [string], "overall_assessment": string, "recommendations": [string], "confidence": number between 0 and 1}`, hint)
}

func (s *VisionService) validateAnalysis(wire imageAnalysisWire) (ImageAnalysis, error) {
	if wire.ColorPatterns == "" || wire.TextureAnalysis == "" || wire.OverallAssessment == "" {
		return ImageAnalysis{}, &ValidationError{Domain: "vision", Reason: "missing required analysis fields"}
	}
	if wire.StressIndicators == nil {
		return ImageAnalysis{}, &ValidationError{Domain: "vision", Reason: "missing stress_indicators"}
	}
	if wire.Recommendations == nil {
		return ImageAnalysis{}, &ValidationError{Domain: "vision", Reason: "missing recommendations"}
	}

	confidence := defaultConfidence
	if len(wire.Confidence) > 0 {
		var f float64
		if err := json.Unmarshal(wire.Confidence, &f); err == nil && f > 0 && f <= 1 {
			confidence = f
		}
	}

	return ImageAnalysis{
		ColorPatterns:     wire.ColorPatterns,
		TextureAnalysis:   wire.TextureAnalysis,
		StressIndicators:  wire.StressIndicators,
		OverallAssessment: wire.OverallAssessment,
		Recommendations:   wire.Recommendations,
		Confidence:        confidence,
		AnalyzedAt:        s.now().Format(time.RFC3339),
	}, nil
}

func (s *VisionService) fallbackAnalysis() ImageAnalysis {
	return ImageAnalysis{
		ColorPatterns:     "Not determined",
		TextureAnalysis:   "Not determined",
		StressIndicators:  []string{},
		OverallAssessment: "Automated image analysis is currently unavailable. Please retry later or consult a local agronomist.",
		Recommendations:   []string{"Retake the photo in good daylight", "Retry the scan later"},
		Confidence:        defaultConfidence,
		AnalyzedAt:        s.now().Format(time.RFC3339),
	}
}
