package vision

import (
	"strings"

	"github.com/umzugtech/volumescan/internal/domain"
)

// labelMapping maps provider label keywords (matched as case-insensitive
// substrings) onto the internal furniture taxonomy. Order matters: more
// specific keywords must come before ones they contain, so that e.g.
// "washing machine" fires before a hypothetical "machine".
var labelMapping = []struct {
	keyword string
	ftype   domain.FurnitureType
}{
	{"couch", domain.Sofa},
	{"sofa", domain.Sofa},
	{"bed", domain.Bed},
	{"wardrobe", domain.Wardrobe},
	{"cabinet", domain.Wardrobe},
	{"dresser", domain.Dresser},
	{"bookshelf", domain.Bookshelf},
	{"shelf", domain.Bookshelf},
	{"television", domain.TVStand},
	{"tv", domain.TVStand},
	{"refrigerator", domain.Refrigerator},
	{"washing machine", domain.WashingMachine},
	{"dishwasher", domain.Dishwasher},
	{"stove", domain.Stove},
	{"piano", domain.Piano},
	{"cardboard", domain.Box},
	{"box", domain.Box},
	{"desk", domain.Desk},
	{"chair", domain.Chair},
	{"table", domain.Table},
}

// genericKeywords indicate the provider saw furniture without naming a
// specific kind; these map to the catch-all type.
var genericKeywords = []string{"furniture", "home", "living", "room"}

// IdentifyFurnitureType maps provider detections onto the internal taxonomy.
// Detections are scanned in descending confidence order and the first label
// containing a known keyword wins. When only generic furniture keywords
// match, the catch-all "other" type is returned; with no match at all the
// empty type is returned so callers can tell "nothing recognised" apart
// from "unspecified furniture".
func IdentifyFurnitureType(detections []Detection) domain.FurnitureType {
	ordered := make([]Detection, len(detections))
	copy(ordered, detections)
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j].Confidence > ordered[j-1].Confidence; j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}

	for _, d := range ordered {
		label := strings.ToLower(d.Label)
		for _, m := range labelMapping {
			if strings.Contains(label, m.keyword) {
				return m.ftype
			}
		}
	}

	for _, d := range ordered {
		label := strings.ToLower(d.Label)
		for _, kw := range genericKeywords {
			if strings.Contains(label, kw) {
				return domain.Other
			}
		}
	}

	return ""
}
