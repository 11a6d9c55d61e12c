package generate

import (
	"errors"
	"fmt"

	"github.com/agrimitra/agrimitra/internal/genai"
)

// ErrMalformed marks upstream output where no JSON payload could be
// located or parsed.
var ErrMalformed = errors.New("generate: malformed upstream response")

// ValidationError reports parsed JSON that is missing required fields or
// violates a domain range constraint.
type ValidationError struct {
	Domain string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("generate: %s validation failed: %s", e.Domain, e.Reason)
}

// recoverable reports whether err may be replaced by synthetic fallback
// data. A missing credential is fatal: no request can ever succeed, so
// falling back would only mask a deployment problem.
func recoverable(err error) bool {
	return !errors.Is(err, genai.ErrNotConfigured)
}
