package quote

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umzugtech/volumescan/internal/domain"
	"github.com/umzugtech/volumescan/internal/session"
)

func item(ft domain.FurnitureType, room domain.RoomType, l, w, h, conf float64) *domain.ScannedItem {
	dims := domain.Dimensions{LengthCM: l, WidthCM: w, HeightCM: h}
	return &domain.ScannedItem{
		FurnitureType: ft,
		RoomName:      room,
		Dimensions:    dims,
		VolumeM3:      dims.VolumeM3(),
		ScanMethod:    domain.MethodManual,
		Confidence:    conf,
	}
}

func TestAnalyze(t *testing.T) {
	sofa := item(domain.Sofa, domain.LivingRoom, 200, 90, 85, 0.9)
	piano := item(domain.Piano, domain.LivingRoom, 150, 60, 125, 0.8)
	piano.WeightEstimateKg = 250

	data := Analyze([]*domain.ScannedItem{sofa, piano})
	assert.InDelta(t, 2.655, data.TotalVolumeM3, 1e-9)
	assert.Equal(t, 2, data.ItemCount)
	require.Len(t, data.Rooms, 1)
	assert.Equal(t, domain.LivingRoom, data.Rooms[0].Room)
	assert.InDelta(t, 2.655, data.Rooms[0].VolumeM3, 1e-9)
	assert.Equal(t, 2, data.Rooms[0].Count)
	assert.Equal(t, 1, data.Special.Pianos)
	assert.Equal(t, 1, data.Special.HeavyItems)
	assert.InDelta(t, 0.85, data.Confidence, 1e-9)
}

func TestAnalyzeEmpty(t *testing.T) {
	data := Analyze(nil)
	assert.Zero(t, data.TotalVolumeM3)
	assert.Zero(t, data.ItemCount)
	assert.Zero(t, data.Confidence)
	assert.Empty(t, data.Rooms)
}

func TestAnalyzeNamedPiano(t *testing.T) {
	named := item(domain.Other, domain.LivingRoom, 150, 60, 125, 0.9)
	named.CustomName = "Omas Flügel"
	data := Analyze([]*domain.ScannedItem{named})
	assert.Equal(t, 1, data.Special.Pianos)
}

func TestComputeRecommendations(t *testing.T) {
	tests := []struct {
		name string
		data ScanData
		want Recommendations
	}{
		{
			name: "small clean scan",
			data: ScanData{TotalVolumeM3: 5, ItemCount: 3},
			want: Recommendations{PackingMaterials: true},
		},
		{
			name: "fragile items trigger packing and protection",
			data: ScanData{TotalVolumeM3: 5, Special: session.SpecialHandling{FragileItems: 2}},
			want: Recommendations{PackingService: true, PackingMaterials: true, ProtectionMaterials: true},
		},
		{
			name: "large volume triggers packing without fragiles",
			data: ScanData{TotalVolumeM3: 20.5},
			want: Recommendations{PackingService: true, PackingMaterials: true},
		},
		{
			name: "volume exactly 20 does not trigger packing",
			data: ScanData{TotalVolumeM3: 20},
			want: Recommendations{PackingMaterials: true},
		},
		{
			name: "disassembly",
			data: ScanData{Special: session.SpecialHandling{DisassemblyRequired: 1}},
			want: Recommendations{PackingMaterials: true, DisassemblyService: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeRecommendations(&tt.data))
		})
	}
}

func TestGenerateNotesVolumeFormat(t *testing.T) {
	data := &ScanData{
		TotalVolumeM3: 2.655,
		ItemCount:     2,
		Rooms:         []RoomSummary{{Room: domain.LivingRoom, VolumeM3: 2.655, Count: 2}},
		Confidence:    0.9,
	}
	notes := GenerateNotes(data)
	assert.Contains(t, notes, "2.66 m³", "volume must be formatted to two decimals")
	assert.Contains(t, notes, "(2 Gegenstände)")
	assert.Contains(t, notes, "Wohnzimmer")
	assert.NotContains(t, notes, "Vor-Ort-Besichtigung", "no advisory at high confidence")
}

func TestGenerateNotesLowConfidenceAdvisory(t *testing.T) {
	data := &ScanData{TotalVolumeM3: 3, ItemCount: 2, Confidence: 0.7}
	notes := GenerateNotes(data)
	assert.Contains(t, notes, "Scan-Genauigkeit: 70%")
}

func TestGenerateNotesGolden(t *testing.T) {
	sofa := item(domain.Sofa, domain.LivingRoom, 200, 100, 75, 0.7)
	piano := item(domain.Piano, domain.LivingRoom, 100, 100, 50, 0.7)
	box := item(domain.Box, domain.Kitchen, 60, 40, 40, 0.7)
	box.IsFragile = true
	wardrobe := item(domain.Wardrobe, domain.Bedroom, 150, 60, 220, 0.7)
	wardrobe.RequiresDisassembly = true

	data := Analyze([]*domain.ScannedItem{sofa, piano, box, wardrobe})
	notes := GenerateNotes(data)

	g := goldie.New(t)
	g.Assert(t, "furniture_notes", []byte(notes))
}

func TestValidateScanQualityEmptyScan(t *testing.T) {
	report := ValidateScanQuality(&ScanData{}, DefaultThresholds())
	assert.False(t, report.IsValid)
	assert.NotEmpty(t, report.Warnings)
}

func TestValidateScanQualityWarnings(t *testing.T) {
	th := DefaultThresholds()

	tests := []struct {
		name    string
		data    ScanData
		warning string
	}{
		{
			name:    "no items",
			data:    ScanData{Confidence: 0.9, TotalVolumeM3: 2},
			warning: "Keine Gegenstände gescannt",
		},
		{
			name:    "tiny total volume",
			data:    ScanData{ItemCount: 2, TotalVolumeM3: 0.5, Confidence: 0.9, Rooms: []RoomSummary{{Room: domain.Kitchen}}},
			warning: "Sehr geringes Volumen",
		},
		{
			name:    "low confidence",
			data:    ScanData{ItemCount: 2, TotalVolumeM3: 3, Confidence: 0.5, Rooms: []RoomSummary{{Room: domain.Kitchen}}},
			warning: "Niedrige Scan-Genauigkeit",
		},
		{
			name:    "no rooms",
			data:    ScanData{ItemCount: 2, TotalVolumeM3: 3, Confidence: 0.9},
			warning: "Keine Räume erfasst",
		},
		{
			name:    "suspiciously large average",
			data:    ScanData{ItemCount: 2, TotalVolumeM3: 4.2, Confidence: 0.9, Rooms: []RoomSummary{{Room: domain.Kitchen}}},
			warning: "hohes Durchschnittsvolumen",
		},
		{
			name:    "suspiciously small average",
			data:    ScanData{ItemCount: 100, TotalVolumeM3: 0.5, Confidence: 0.9, Rooms: []RoomSummary{{Room: domain.Kitchen}}},
			warning: "niedriges Durchschnittsvolumen",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := ValidateScanQuality(&tt.data, th)
			assert.False(t, report.IsValid)
			found := false
			for _, w := range report.Warnings {
				if strings.Contains(w, tt.warning) {
					found = true
				}
			}
			assert.True(t, found, "expected warning containing %q, got %v", tt.warning, report.Warnings)
		})
	}
}

func TestValidateScanQualityBoundariesDoNotWarn(t *testing.T) {
	th := DefaultThresholds()

	// Average exactly 2.0 m³ per item: strict > must not fire.
	data := ScanData{ItemCount: 2, TotalVolumeM3: 4.0, Confidence: 0.9, Rooms: []RoomSummary{{Room: domain.Kitchen}}}
	report := ValidateScanQuality(&data, th)
	assert.True(t, report.IsValid, "warnings: %v", report.Warnings)

	// Average exactly 0.01 m³ per item: strict < must not fire. Total still
	// has to clear the minimum-volume check, so use many items.
	data = ScanData{ItemCount: 100, TotalVolumeM3: 1.0, Confidence: 0.9, Rooms: []RoomSummary{{Room: domain.Kitchen}}}
	report = ValidateScanQuality(&data, th)
	assert.True(t, report.IsValid, "warnings: %v", report.Warnings)
}

func TestValidateScanQualityScenario(t *testing.T) {
	// Spec scenario: sofa and piano in the living room, confidences >= 0.8.
	sofa := item(domain.Sofa, domain.LivingRoom, 200, 90, 85, 0.9)
	piano := item(domain.Piano, domain.LivingRoom, 150, 60, 125, 0.8)

	data := Analyze([]*domain.ScannedItem{sofa, piano})
	assert.InDelta(t, 1.3275, data.TotalVolumeM3/float64(data.ItemCount), 1e-9)

	report := ValidateScanQuality(data, DefaultThresholds())
	assert.True(t, report.IsValid)
	assert.Empty(t, report.Warnings)
}

func TestToDetails(t *testing.T) {
	data := &ScanData{
		TotalVolumeM3: 12.3,
		ItemCount:     8,
		Rooms:         []RoomSummary{{Room: domain.LivingRoom, VolumeM3: 12.3, Count: 8}},
		Special:       session.SpecialHandling{Pianos: 1, HeavyItems: 2, DisassemblyRequired: 3},
		Confidence:    0.85,
	}

	details := ToDetails(data)
	assert.Equal(t, 13, details.VolumeM3, "volume rounds up to the next full m³")
	assert.True(t, details.PianoTransport)
	assert.Equal(t, 2, details.HeavyItemCount)
	assert.Equal(t, 150, details.FurnitureDisassemblyEUR)
	assert.True(t, details.PackingMaterials)
	assert.NotEmpty(t, details.Notes)
}

func TestRecommendedServices(t *testing.T) {
	data := &ScanData{
		TotalVolumeM3: 25,
		Special:       session.SpecialHandling{Pianos: 1, HeavyItems: 1, DisassemblyRequired: 1},
	}
	assert.Equal(t, []string{"packing", "materials", "piano", "heavy", "disassembly"}, RecommendedServices(data))

	minimal := &ScanData{TotalVolumeM3: 2}
	assert.Equal(t, []string{"materials"}, RecommendedServices(minimal))
}

func TestRoomDisplayName(t *testing.T) {
	assert.Equal(t, "Wohnzimmer", RoomDisplayName(domain.LivingRoom))
	assert.Equal(t, "Dachboden", RoomDisplayName(domain.Attic))
	assert.Equal(t, "pantry", RoomDisplayName(domain.RoomType("pantry")))
}

func TestGenerateNotesEmptyScan(t *testing.T) {
	notes := GenerateNotes(&ScanData{})
	assert.Equal(t, fmt.Sprintf("Gescanntes Volumen: 0.00 m³ (0 Gegenstände)\nℹ️ Scan-Genauigkeit: 0%% - Vor-Ort-Besichtigung empfohlen"), notes)
}
