package vision

import (
	"context"

	"github.com/umzugtech/volumescan/internal/domain"
)

// Source marks where a detection result came from so callers can
// distinguish low-trust fallback data from real provider output.
type Source string

const (
	SourceProvider Source = "provider"
	SourceFallback Source = "fallback"
)

// Detection is one candidate object found in an image.
type Detection struct {
	Label      string        `json:"label"`
	Confidence float64       `json:"confidence"`
	Bounds     domain.Bounds `json:"bounds"`
}

// Result is the outcome of analysing one photo.
type Result struct {
	Detections    []Detection          `json:"detections"`
	FurnitureType domain.FurnitureType `json:"furniture_type,omitempty"`
	Source        Source               `json:"source"`
}

// Best returns the highest-confidence detection, or nil when empty.
func (r *Result) Best() *Detection {
	if len(r.Detections) == 0 {
		return nil
	}
	best := &r.Detections[0]
	for i := 1; i < len(r.Detections); i++ {
		if r.Detections[i].Confidence > best.Confidence {
			best = &r.Detections[i]
		}
	}
	return best
}

// Detector turns raw image bytes into candidate furniture detections.
type Detector interface {
	Detect(ctx context.Context, image []byte) (*Result, error)
}
