package bridge

import (
	"strings"
	"time"

	"github.com/umzugtech/volumescan/internal/domain"
)

// Conversion heuristics. None of these are physically derived; they exist
// so that raw sensor output always yields a usable provisional item.
const (
	// areaToVolumeFactor converts a non-volume measurement value into a
	// provisional volume (m³ per measured unit).
	areaToVolumeFactor = 0.1

	// densityKgPerM3 is the fixed density used for AR weight estimates. A
	// piano and a box of the same volume get the same weight; the intended
	// per-category correction is unspecified, so the constant stays.
	densityKgPerM3 = 100

	// nominal cross-section (cm) used to synthesize dimensions when only a
	// volume is known. Length is solved so the recomputed volume matches.
	nominalWidthCM  = 100
	nominalHeightCM = 100
)

// dimensionsForVolume synthesizes cm dimensions whose product reproduces
// the given volume exactly, using nominal width and height placeholders.
func dimensionsForVolume(volumeM3 float64) domain.Dimensions {
	return domain.Dimensions{
		LengthCM: volumeM3 * 1e6 / (nominalWidthCM * nominalHeightCM),
		WidthCM:  nominalWidthCM,
		HeightCM: nominalHeightCM,
	}
}

// MeasurementToItem converts a raw AR measurement into a provisional
// scanned item. A volume-kind measurement keeps its value; for any other
// kind the volume is derived as value × 0.1. Pure, no I/O.
func MeasurementToItem(m domain.ARMeasurement, sessionID, customerID string, room domain.RoomType) domain.ScannedItem {
	volume := m.Value
	if m.Kind != domain.MeasureVolume {
		volume = m.Value * areaToVolumeFactor
	}

	now := time.Now()
	dims := dimensionsForVolume(volume)
	return domain.ScannedItem{
		SessionID:        sessionID,
		CustomerID:       customerID,
		FurnitureType:    domain.Other,
		CustomName:       "AR-Messung",
		RoomName:         room,
		Dimensions:       dims,
		VolumeM3:         dims.VolumeM3(),
		WeightEstimateKg: volume * densityKgPerM3,
		ScanMethod:       domain.MethodAR,
		Confidence:       m.Confidence,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// DetectionToItem converts an AR furniture detection into a provisional
// scanned item, copying the bounding box size as dimensions. Degenerate
// boxes fall back to dimensions synthesized from the reported volume so the
// item stays usable. Pure, no I/O.
func DetectionToItem(d domain.FurnitureDetection, sessionID, customerID string, room domain.RoomType) domain.ScannedItem {
	dims := domain.Dimensions{
		LengthCM: d.Size.WidthM * 100,
		WidthCM:  d.Size.DepthM * 100,
		HeightCM: d.Size.HeightM * 100,
	}
	if !dims.Positive() {
		dims = dimensionsForVolume(d.VolumeM3)
	}

	now := time.Now()
	return domain.ScannedItem{
		SessionID:        sessionID,
		CustomerID:       customerID,
		FurnitureType:    detectionType(d.Type),
		CustomName:       d.Type,
		RoomName:         room,
		Dimensions:       dims,
		VolumeM3:         dims.VolumeM3(),
		WeightEstimateKg: dims.VolumeM3() * densityKgPerM3,
		ScanMethod:       domain.MethodAR,
		Confidence:       d.Confidence,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// detectionType maps the host's detection vocabulary onto the internal
// taxonomy; unrecognised labels become the catch-all type.
func detectionType(hostType string) domain.FurnitureType {
	t := domain.FurnitureType(strings.ToLower(hostType))
	if t.Valid() {
		return t
	}
	return domain.Other
}
