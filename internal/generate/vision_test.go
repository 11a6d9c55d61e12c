package generate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/agrimitra/agrimitra/internal/genai"
)

type fakeVision struct {
	response string
	err      error
	calls    int
}

func (f *fakeVision) CompleteVision(ctx context.Context, prompt string, img genai.Image) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

const visionJSON = `{"color_patterns":"Uniform green","texture_analysis":"Smooth leaves","stress_indicators":["slight yellowing at edges"],"overall_assessment":"Healthy crop","recommendations":["Continue current irrigation"],"confidence":0.93}`

func newVisionService(upstream VisionCompleter) *VisionService {
	s := NewVisionService(upstream, zerolog.Nop())
	s.now = func() time.Time { return time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC) }
	return s
}

func testImage() genai.Image {
	return genai.Image{MIMEType: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff}}
}

func TestAnalyzeImage(t *testing.T) {
	s := newVisionService(&fakeVision{response: visionJSON})

	a, err := s.Analyze(context.Background(), testImage(), "wheat")
	require.NoError(t, err)
	require.Equal(t, "Uniform green", a.ColorPatterns)
	require.Equal(t, []string{"slight yellowing at edges"}, a.StressIndicators)
	require.InDelta(t, 0.93, a.Confidence, 1e-9)
	require.NotEmpty(t, a.AnalyzedAt)
}

func TestAnalyzeImageConfidenceDefaults(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"absent", `{"color_patterns":"c","texture_analysis":"t","stress_indicators":[],"overall_assessment":"o","recommendations":[]}`},
		{"non-numeric", `{"color_patterns":"c","texture_analysis":"t","stress_indicators":[],"overall_assessment":"o","recommendations":[],"confidence":"high"}`},
		{"out of range", `{"color_patterns":"c","texture_analysis":"t","stress_indicators":[],"overall_assessment":"o","recommendations":[],"confidence":7}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newVisionService(&fakeVision{response: tt.response})
			a, err := s.Analyze(context.Background(), testImage(), "")
			require.NoError(t, err)
			require.InDelta(t, 0.80, a.Confidence, 1e-9)
			require.Equal(t, "c", a.ColorPatterns, "real analysis, not fallback")
		})
	}
}

func TestAnalyzeImageFallback(t *testing.T) {
	tests := []struct {
		name     string
		upstream *fakeVision
	}{
		{"upstream error", &fakeVision{err: errors.New("gateway timeout")}},
		{"malformed response", &fakeVision{response: "sorry, I cannot analyze this"}},
		{"missing fields", &fakeVision{response: `{"color_patterns":"c"}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newVisionService(tt.upstream)
			a, err := s.Analyze(context.Background(), testImage(), "wheat")
			require.NoError(t, err, "image scan must never show a hard error")
			require.Equal(t, "Not determined", a.ColorPatterns)
			require.NotEmpty(t, a.Recommendations)
			require.InDelta(t, 0.80, a.Confidence, 1e-9)
		})
	}
}

func TestAnalyzeImageNotConfigured(t *testing.T) {
	s := newVisionService(&fakeVision{err: genai.ErrNotConfigured})
	_, err := s.Analyze(context.Background(), testImage(), "")
	require.ErrorIs(t, err, genai.ErrNotConfigured)
}
