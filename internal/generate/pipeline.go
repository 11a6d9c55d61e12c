// Package generate asks the upstream generative service for structured
// domain data and defends the rest of the application against its
// unreliable output. Every domain shares one pipeline: call upstream,
// clean the raw text, extract the JSON container, parse, validate. The
// domains differ only in their validator and in what happens on failure
// (deterministic fallback data versus a propagated error).
package generate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agrimitra/agrimitra/internal/genai"
)

// Completer is the upstream text-generation call used by every service.
// *genai.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// VisionCompleter is the image-capable variant.
type VisionCompleter interface {
	CompleteVision(ctx context.Context, prompt string, img genai.Image) (string, error)
}

// structured runs one request/response cycle against the upstream
// service: a single call attempt (no retries), then clean → extract →
// parse → validate. validate may mutate the value in place (coercions,
// defaults, sorting) and returns a *ValidationError when the shape is
// semantically unusable.
func structured[T any](ctx context.Context, c Completer, prompt string, shape genai.Shape, validate func(*T) error) (T, error) {
	var zero T

	raw, err := c.Complete(ctx, prompt)
	if err != nil {
		return zero, err
	}

	body := genai.ExtractJSON(genai.Clean(raw), shape)

	var out T
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := validate(&out); err != nil {
		return zero, err
	}
	return out, nil
}
