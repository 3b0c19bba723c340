package quote

import "math"

// disassemblyPricePerItemEUR is the flat per-item surcharge for furniture
// that must be taken apart.
const disassemblyPricePerItemEUR = 50

// Details is the quote-ready record handed to the quoting collaborator.
type Details struct {
	VolumeM3                 int             `json:"volume_m3"`
	PackingRequested         bool            `json:"packing_requested"`
	PackingMaterials         bool            `json:"packing_materials"`
	PianoTransport           bool            `json:"piano_transport"`
	HeavyItemCount           int             `json:"heavy_item_count"`
	FurnitureDisassemblyEUR  int             `json:"furniture_disassembly_eur"`
	Recommendations          Recommendations `json:"recommendations"`
	Notes                    string          `json:"notes"`
}

// ToDetails converts scan data into the quote record. The volume is rounded
// up to the next full m³ because quotes are priced per started cubic metre.
func ToDetails(data *ScanData) Details {
	rec := ComputeRecommendations(data)
	return Details{
		VolumeM3:                int(math.Ceil(data.TotalVolumeM3)),
		PackingRequested:        rec.PackingService,
		PackingMaterials:        rec.PackingMaterials,
		PianoTransport:          data.Special.Pianos > 0,
		HeavyItemCount:          data.Special.HeavyItems,
		FurnitureDisassemblyEUR: data.Special.DisassemblyRequired * disassemblyPricePerItemEUR,
		Recommendations:         rec,
		Notes:                   GenerateNotes(data),
	}
}

// RecommendedServices lists the service codes a quote should offer.
func RecommendedServices(data *ScanData) []string {
	rec := ComputeRecommendations(data)
	var services []string
	if rec.PackingService {
		services = append(services, "packing")
	}
	if rec.PackingMaterials {
		services = append(services, "materials")
	}
	if data.Special.Pianos > 0 {
		services = append(services, "piano")
	}
	if data.Special.HeavyItems > 0 {
		services = append(services, "heavy")
	}
	if data.Special.DisassemblyRequired > 0 {
		services = append(services, "disassembly")
	}
	return services
}
