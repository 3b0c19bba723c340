package domain

import "time"

// FurnitureType is the internal furniture taxonomy. Provider labels and AR
// detections are mapped onto these values before anything else sees them.
type FurnitureType string

const (
	Sofa           FurnitureType = "sofa"
	Bed            FurnitureType = "bed"
	Wardrobe       FurnitureType = "wardrobe"
	Table          FurnitureType = "table"
	Chair          FurnitureType = "chair"
	Desk           FurnitureType = "desk"
	Dresser        FurnitureType = "dresser"
	Bookshelf      FurnitureType = "bookshelf"
	TVStand        FurnitureType = "tv_stand"
	Refrigerator   FurnitureType = "refrigerator"
	WashingMachine FurnitureType = "washing_machine"
	Dishwasher     FurnitureType = "dishwasher"
	Stove          FurnitureType = "stove"
	Piano          FurnitureType = "piano"
	Box            FurnitureType = "box"
	Other          FurnitureType = "other"
)

// FurnitureTypes lists every valid taxonomy value.
var FurnitureTypes = []FurnitureType{
	Sofa, Bed, Wardrobe, Table, Chair, Desk, Dresser, Bookshelf, TVStand,
	Refrigerator, WashingMachine, Dishwasher, Stove, Piano, Box, Other,
}

// Valid reports whether t is a known taxonomy value.
func (t FurnitureType) Valid() bool {
	for _, ft := range FurnitureTypes {
		if t == ft {
			return true
		}
	}
	return false
}

// RoomType is the room taxonomy used to group items within a session.
type RoomType string

const (
	LivingRoom RoomType = "living_room"
	Bedroom    RoomType = "bedroom"
	Kitchen    RoomType = "kitchen"
	Bathroom   RoomType = "bathroom"
	Office     RoomType = "office"
	DiningRoom RoomType = "dining_room"
	Basement   RoomType = "basement"
	Attic      RoomType = "attic"
	Garage     RoomType = "garage"
	OtherRoom  RoomType = "other"
)

// ScanMethod records how an item's measurements were captured.
type ScanMethod string

const (
	MethodPhoto  ScanMethod = "photo"
	MethodManual ScanMethod = "manual"
	MethodAR     ScanMethod = "ar"
)

// Dimensions are physical extents in centimetres.
type Dimensions struct {
	LengthCM float64 `json:"length_cm" yaml:"length"`
	WidthCM  float64 `json:"width_cm" yaml:"width"`
	HeightCM float64 `json:"height_cm" yaml:"height"`
}

// VolumeM3 converts the cm³ product to m³. All stored item volumes are
// derived through this function; upstream volumes are never trusted.
func (d Dimensions) VolumeM3() float64 {
	return d.LengthCM * d.WidthCM * d.HeightCM / 1e6
}

// Positive reports whether every extent is strictly greater than zero.
func (d Dimensions) Positive() bool {
	return d.LengthCM > 0 && d.WidthCM > 0 && d.HeightCM > 0
}

// Bounds is a normalized rectangle locating a detected object within an
// image. Coordinates are in [0,1] relative to the image extents.
type Bounds struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ScanPhoto references one stored capture of an item.
type ScanPhoto struct {
	ID         string    `json:"id"`
	StorageKey string    `json:"storage_key"`
	Angle      string    `json:"angle,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// ScannedItem is one piece of furniture captured during a session. Items are
// owned by the session aggregator while the session is live and become
// read-only once the session is finalized.
type ScannedItem struct {
	ID         string `json:"id"`
	SessionID  string `json:"session_id"`
	CustomerID string `json:"customer_id"`

	FurnitureType FurnitureType `json:"furniture_type"`
	CustomName    string        `json:"custom_name,omitempty"`
	RoomName      RoomType      `json:"room_name"`

	Dimensions       Dimensions `json:"dimensions"`
	VolumeM3         float64    `json:"volume_m3"`
	WeightEstimateKg float64    `json:"weight_estimate_kg,omitempty"`

	ScanMethod ScanMethod  `json:"scan_method"`
	Confidence float64     `json:"confidence"`
	Photos     []ScanPhoto `json:"photos,omitempty"`

	IsFragile           bool     `json:"is_fragile"`
	RequiresDisassembly bool     `json:"requires_disassembly"`
	PackingMaterials    []string `json:"packing_materials,omitempty"`
	SpecialInstructions string   `json:"special_instructions,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeviceInfo describes the capture device, when known.
type DeviceInfo struct {
	Model        string `json:"model,omitempty"`
	OS           string `json:"os,omitempty"`
	HasARSupport bool   `json:"has_ar_support"`
}

// Location is where the scan took place.
type Location struct {
	Address string  `json:"address,omitempty"`
	Lat     float64 `json:"lat,omitempty"`
	Lng     float64 `json:"lng,omitempty"`
}

// ScanSession is one bounded unit of scanning work for a single customer
// visit. EndTime is set exactly once, at finalization, after which the
// session and its items are sealed.
type ScanSession struct {
	ID         string `json:"id"`
	CustomerID string `json:"customer_id"`
	EmployeeID string `json:"employee_id,omitempty"`

	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	TotalVolumeM3    float64 `json:"total_volume_m3"`
	ItemCount        int     `json:"item_count"`
	ScanQualityScore float64 `json:"scan_quality_score"`

	DeviceInfo *DeviceInfo `json:"device_info,omitempty"`
	Location   *Location   `json:"location,omitempty"`
}

// MeasurementKind classifies raw AR measurements.
type MeasurementKind string

const (
	MeasureDistance MeasurementKind = "distance"
	MeasureArea     MeasurementKind = "area"
	MeasureVolume   MeasurementKind = "volume"
)

// ARMeasurement is a transient record emitted by the native AR module. It is
// converted into a ScannedItem, never stored as-is.
type ARMeasurement struct {
	ID         string          `json:"id"`
	Kind       MeasurementKind `json:"type"`
	Value      float64         `json:"value"`
	Unit       string          `json:"unit"`
	Confidence float64         `json:"confidence"`
	Timestamp  time.Time       `json:"timestamp"`
}

// BoxSize is an AR bounding box extent in metres.
type BoxSize struct {
	WidthM  float64 `json:"width"`
	HeightM float64 `json:"height"`
	DepthM  float64 `json:"depth"`
}

// FurnitureDetection is a transient AR object detection. Like ARMeasurement
// it only exists on the wire; the bridge converts it into a ScannedItem.
type FurnitureDetection struct {
	ID         string  `json:"id"`
	Type       string  `json:"type"`
	Size       BoxSize `json:"size"`
	Confidence float64 `json:"confidence"`
	VolumeM3   float64 `json:"volume"`
}
