package vision

import (
	"context"

	"github.com/umzugtech/volumescan/internal/domain"
)

// FallbackDetector produces a fixed, deterministic result. It stands in for
// the real provider when no credential is configured or a call fails, so
// the capture flow keeps working on low-trust data instead of breaking.
type FallbackDetector struct{}

func NewFallbackDetector() *FallbackDetector {
	return &FallbackDetector{}
}

func (d *FallbackDetector) Detect(_ context.Context, _ []byte) (*Result, error) {
	return &Result{
		Detections: []Detection{{
			Label:      "Sofa",
			Confidence: 0.92,
			Bounds:     domain.Bounds{X: 0.1, Y: 0.2, Width: 0.8, Height: 0.6},
		}},
		FurnitureType: domain.Sofa,
		Source:        SourceFallback,
	}, nil
}
