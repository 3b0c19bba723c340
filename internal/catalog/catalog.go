// Package catalog holds the static reference table of standard furniture
// dimensions and weights. It is the estimation prior for every capture
// method and has no dependencies beyond its embedded data file.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/umzugtech/volumescan/internal/domain"
)

//go:embed data/furniture.yaml
var furnitureData []byte

// ErrNotFound is the only error the catalog produces.
var ErrNotFound = errors.New("catalog: not found")

// Variant is a named size variation of a furniture type, e.g. the
// "Ecksofa" variant of a sofa.
type Variant struct {
	Subtype    string            `yaml:"subtype"`
	Dimensions domain.Dimensions `yaml:"dimensions"`
	WeightKg   float64           `yaml:"weight_kg"`
}

// Entry is the reference record for one furniture type.
type Entry struct {
	Name       string            `yaml:"name"`
	Dimensions domain.Dimensions `yaml:"dimensions"`
	WeightKg   float64           `yaml:"weight_kg"`
	Variants   []Variant         `yaml:"variants"`
}

// Catalog is an immutable lookup table, loaded once at construction.
type Catalog struct {
	entries map[domain.FurnitureType]*Entry
}

// New parses the embedded reference data. Every taxonomy value must have an
// entry; a missing one is a build defect, not a runtime condition.
func New() (*Catalog, error) {
	entries := make(map[domain.FurnitureType]*Entry)
	if err := yaml.Unmarshal(furnitureData, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse furniture data: %w", err)
	}
	for _, ft := range domain.FurnitureTypes {
		if _, ok := entries[ft]; !ok {
			return nil, fmt.Errorf("furniture data missing entry for %q", ft)
		}
	}
	return &Catalog{entries: entries}, nil
}

// Types lists the catalogued furniture types in taxonomy order.
func (c *Catalog) Types() []domain.FurnitureType {
	out := make([]domain.FurnitureType, 0, len(c.entries))
	for _, ft := range domain.FurnitureTypes {
		if _, ok := c.entries[ft]; ok {
			out = append(out, ft)
		}
	}
	return out
}

// Lookup returns the reference entry for a furniture type.
func (c *Catalog) Lookup(t domain.FurnitureType) (*Entry, error) {
	entry, ok := c.entries[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, t)
	}
	return entry, nil
}

// LookupVariant returns the dimensions and weight of a named variant.
func (c *Catalog) LookupVariant(t domain.FurnitureType, subtype string) (domain.Dimensions, float64, error) {
	entry, err := c.Lookup(t)
	if err != nil {
		return domain.Dimensions{}, 0, err
	}
	for _, v := range entry.Variants {
		if v.Subtype == subtype {
			return v.Dimensions, v.WeightKg, nil
		}
	}
	return domain.Dimensions{}, 0, fmt.Errorf("%w: %q variant %q", ErrNotFound, t, subtype)
}

// EstimateWeight scales the reference weight of a furniture type by the
// ratio of the given volume to the reference volume, rounded to whole kg.
func (c *Catalog) EstimateWeight(t domain.FurnitureType, volumeM3 float64) (float64, error) {
	entry, err := c.Lookup(t)
	if err != nil {
		return 0, err
	}
	refVolume := entry.Dimensions.VolumeM3()
	if refVolume <= 0 {
		return entry.WeightKg, nil
	}
	return math.Round(volumeM3 * entry.WeightKg / refVolume), nil
}
