// Package estimate turns a furniture-type guess plus an optional bounding
// region into estimated physical dimensions with a confidence score.
package estimate

import (
	"context"

	"github.com/umzugtech/volumescan/internal/catalog"
	"github.com/umzugtech/volumescan/internal/domain"
)

// Estimator is a pluggable dimension-estimation strategy. The interface
// contract is the reusable part; a real photogrammetric backend can replace
// the heuristic implementation without touching any caller.
type Estimator interface {
	Estimate(ctx context.Context, image []byte, bounds *domain.Bounds, typeGuess domain.FurnitureType) (domain.Dimensions, float64, error)
}

const (
	// catalogPriorConfidence applies when no bounding region is available
	// and the catalog average is returned unmodified.
	catalogPriorConfidence = 0.55

	// boundsHeuristicConfidence applies to the nominal dimensions produced
	// from a bounding region. It is deliberately modest: the heuristic is a
	// placeholder, not a measurement.
	boundsHeuristicConfidence = 0.6
)

// nominalDimensions is what the bounds heuristic currently yields for any
// furniture. Dimension estimation from a single monocular photo needs
// reference-scale objects and perspective correction, neither of which this
// strategy attempts.
var nominalDimensions = domain.Dimensions{LengthCM: 200, WidthCM: 90, HeightCM: 85}

// CatalogEstimator estimates dimensions from the reference catalog. With no
// bounding region it returns the catalog average for the guessed type; with
// one it applies the nominal placeholder heuristic.
type CatalogEstimator struct {
	catalog *catalog.Catalog
}

func NewCatalogEstimator(c *catalog.Catalog) *CatalogEstimator {
	return &CatalogEstimator{catalog: c}
}

func (e *CatalogEstimator) Estimate(_ context.Context, _ []byte, bounds *domain.Bounds, typeGuess domain.FurnitureType) (domain.Dimensions, float64, error) {
	if bounds != nil {
		return nominalDimensions, boundsHeuristicConfidence, nil
	}

	if !typeGuess.Valid() {
		typeGuess = domain.Other
	}
	entry, err := e.catalog.Lookup(typeGuess)
	if err != nil {
		return domain.Dimensions{}, 0, err
	}
	return entry.Dimensions, catalogPriorConfidence, nil
}
