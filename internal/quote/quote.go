// Package quote translates aggregated scan data into quote-ready
// recommendations, human-readable notes, and a data-quality verdict.
package quote

import (
	"fmt"
	"math"
	"strings"

	"github.com/umzugtech/volumescan/internal/domain"
	"github.com/umzugtech/volumescan/internal/session"
)

// RoomSummary is one room's share of the scan.
type RoomSummary struct {
	Room     domain.RoomType `json:"room"`
	VolumeM3 float64         `json:"volume_m3"`
	Count    int             `json:"count"`
}

// ScanData is the analysis input for every method in this package, built
// from a live aggregator or a persisted item list.
type ScanData struct {
	TotalVolumeM3 float64                 `json:"total_volume_m3"`
	ItemCount     int                     `json:"item_count"`
	Rooms         []RoomSummary           `json:"rooms"`
	Special       session.SpecialHandling `json:"special"`
	Confidence    float64                 `json:"confidence"`
}

// Analyze summarises a list of scanned items: totals, per-room breakdown in
// first-seen order, special-handling counts, and mean confidence.
func Analyze(items []*domain.ScannedItem) *ScanData {
	data := &ScanData{ItemCount: len(items)}
	index := make(map[domain.RoomType]int)
	var confidenceSum float64

	for _, item := range items {
		data.TotalVolumeM3 += item.VolumeM3
		confidenceSum += item.Confidence

		i, ok := index[item.RoomName]
		if !ok {
			i = len(data.Rooms)
			index[item.RoomName] = i
			data.Rooms = append(data.Rooms, RoomSummary{Room: item.RoomName})
		}
		data.Rooms[i].VolumeM3 += item.VolumeM3
		data.Rooms[i].Count++

		if isPiano(item) {
			data.Special.Pianos++
		}
		if item.WeightEstimateKg > 100 {
			data.Special.HeavyItems++
		}
		if item.IsFragile {
			data.Special.FragileItems++
		}
		if item.RequiresDisassembly {
			data.Special.DisassemblyRequired++
		}
	}

	if len(items) > 0 {
		data.Confidence = confidenceSum / float64(len(items))
	}
	return data
}

func isPiano(item *domain.ScannedItem) bool {
	if item.FurnitureType == domain.Piano {
		return true
	}
	name := strings.ToLower(item.CustomName)
	return strings.Contains(name, "klavier") || strings.Contains(name, "flügel")
}

// Recommendations are the service flags derived from scan data.
type Recommendations struct {
	PackingService      bool `json:"packing_service"`
	PackingMaterials    bool `json:"packing_materials"`
	DisassemblyService  bool `json:"disassembly_service"`
	ProtectionMaterials bool `json:"protection_materials"`
}

// packingVolumeThresholdM3: above this total, a packing service is
// recommended even without fragile items.
const packingVolumeThresholdM3 = 20

// ComputeRecommendations derives service recommendations. Packing materials
// are always recommended.
func ComputeRecommendations(data *ScanData) Recommendations {
	return Recommendations{
		PackingService:      data.Special.FragileItems > 0 || data.TotalVolumeM3 > packingVolumeThresholdM3,
		PackingMaterials:    true,
		DisassemblyService:  data.Special.DisassemblyRequired > 0,
		ProtectionMaterials: data.Special.FragileItems > 0,
	}
}

// roomNames maps room codes to the localized display names used in notes.
var roomNames = map[domain.RoomType]string{
	domain.LivingRoom: "Wohnzimmer",
	domain.Bedroom:    "Schlafzimmer",
	domain.Kitchen:    "Küche",
	domain.Bathroom:   "Bad",
	domain.Office:     "Büro",
	domain.DiningRoom: "Esszimmer",
	domain.Basement:   "Keller",
	domain.Attic:      "Dachboden",
	domain.Garage:     "Garage",
	domain.OtherRoom:  "Sonstiges",
}

// RoomDisplayName returns the localized name for a room code; unknown codes
// pass through unchanged.
func RoomDisplayName(room domain.RoomType) string {
	if name, ok := roomNames[room]; ok {
		return name
	}
	return string(room)
}

// lowConfidenceAdvisory: below this mean confidence the notes recommend an
// on-site visit.
const lowConfidenceAdvisory = 0.8

// GenerateNotes renders deterministic, ordered note blocks: total volume
// and item count, the per-room breakdown, one warning per special-handling
// category present, and a low-confidence advisory when warranted.
func GenerateNotes(data *ScanData) string {
	var notes []string

	notes = append(notes, fmt.Sprintf("Gescanntes Volumen: %.2f m³ (%d Gegenstände)",
		data.TotalVolumeM3, data.ItemCount))

	if len(data.Rooms) > 0 {
		parts := make([]string, 0, len(data.Rooms))
		for _, room := range data.Rooms {
			parts = append(parts, fmt.Sprintf("%s: %.1f m³", RoomDisplayName(room.Room), room.VolumeM3))
		}
		notes = append(notes, "Räume: "+strings.Join(parts, ", "))
	}

	if data.Special.Pianos > 0 {
		notes = append(notes, fmt.Sprintf("⚠️ %d Klavier(e) - Spezialtransport erforderlich", data.Special.Pianos))
	}
	if data.Special.FragileItems > 0 {
		notes = append(notes, fmt.Sprintf("⚠️ %d zerbrechliche Gegenstände", data.Special.FragileItems))
	}
	if data.Special.DisassemblyRequired > 0 {
		notes = append(notes, fmt.Sprintf("🔧 %d Möbelstücke müssen demontiert werden", data.Special.DisassemblyRequired))
	}

	if data.Confidence < lowConfidenceAdvisory {
		notes = append(notes, fmt.Sprintf("ℹ️ Scan-Genauigkeit: %d%% - Vor-Ort-Besichtigung empfohlen",
			int(math.Round(data.Confidence*100))))
	}

	return strings.Join(notes, "\n")
}

// Thresholds are the quality sanity-check bounds. The averages were chosen
// empirically, so they are configurable rather than baked in.
type Thresholds struct {
	MinTotalVolumeM3   float64
	MinConfidence      float64
	MaxAvgItemVolumeM3 float64
	MinAvgItemVolumeM3 float64
}

// DefaultThresholds returns the production defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinTotalVolumeM3:   1,
		MinConfidence:      0.6,
		MaxAvgItemVolumeM3: 2,
		MinAvgItemVolumeM3: 0.01,
	}
}

// QualityReport is the validation verdict. Warnings never block the
// underlying data; consumers decide whether to gate a "finish" action.
type QualityReport struct {
	IsValid  bool     `json:"is_valid"`
	Warnings []string `json:"warnings"`
}

// ValidateScanQuality checks the scan data against the thresholds. The
// average-volume comparisons are strictly greater/less than, so a value
// exactly on a bound passes.
func ValidateScanQuality(data *ScanData, th Thresholds) QualityReport {
	var warnings []string

	if data.ItemCount == 0 {
		warnings = append(warnings, "Keine Gegenstände gescannt")
	}
	if data.TotalVolumeM3 < th.MinTotalVolumeM3 {
		warnings = append(warnings, "Sehr geringes Volumen - bitte überprüfen")
	}
	if data.Confidence < th.MinConfidence {
		warnings = append(warnings, "Niedrige Scan-Genauigkeit - manuelle Überprüfung empfohlen")
	}
	if len(data.Rooms) == 0 {
		warnings = append(warnings, "Keine Räume erfasst")
	}

	if data.ItemCount > 0 {
		avg := data.TotalVolumeM3 / float64(data.ItemCount)
		if avg > th.MaxAvgItemVolumeM3 {
			warnings = append(warnings, "Ungewöhnlich hohes Durchschnittsvolumen pro Gegenstand")
		}
		if avg < th.MinAvgItemVolumeM3 {
			warnings = append(warnings, "Ungewöhnlich niedriges Durchschnittsvolumen pro Gegenstand")
		}
	}

	return QualityReport{IsValid: len(warnings) == 0, Warnings: warnings}
}
