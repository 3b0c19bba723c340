// Package session owns the in-memory session/room/item graph for one scan
// visit. The aggregator has exactly one logical writer (the in-progress
// scan flow), so it takes no internal locks.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/umzugtech/volumescan/internal/catalog"
	"github.com/umzugtech/volumescan/internal/domain"
)

var (
	// ErrInvalidDimensions rejects items without strictly positive extents.
	ErrInvalidDimensions = errors.New("session: dimensions must be positive")

	// ErrItemNotFound is returned for edits or removals of unknown items.
	ErrItemNotFound = errors.New("session: item not found")

	// ErrSessionFinalized rejects mutation of a sealed session.
	ErrSessionFinalized = errors.New("session: already finalized")

	// ErrAlreadyFinalizing guards against re-entrant finalization.
	ErrAlreadyFinalizing = errors.New("session: finalization already in progress")
)

// persister is the subset of the scan store the aggregator needs. The
// session record and all item records are written in one batch.
type persister interface {
	SaveSessionWithItems(ctx context.Context, session *domain.ScanSession, items []*domain.ScannedItem) error
}

// Aggregator accumulates scanned items for a single session and keeps the
// volumetric invariants: item volumes are always recomputed from
// dimensions, and session totals are always derived fresh from the current
// item list.
type Aggregator struct {
	session *domain.ScanSession
	items   []*domain.ScannedItem

	catalog *catalog.Catalog
	store   persister
	logger  *slog.Logger

	finalizing bool
	sealed     bool
}

// NewAggregator starts a session for one customer visit.
func NewAggregator(customerID, employeeID string, cat *catalog.Catalog, store persister, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		session: &domain.ScanSession{
			ID:         uuid.NewString(),
			CustomerID: customerID,
			EmployeeID: employeeID,
			StartTime:  time.Now(),
		},
		catalog: cat,
		store:   store,
		logger:  logger,
	}
}

// Describe records the capture device and location on the session. Both are
// optional and may arrive after the session started.
func (a *Aggregator) Describe(device *domain.DeviceInfo, location *domain.Location) {
	if device != nil {
		a.session.DeviceInfo = device
	}
	if location != nil {
		a.session.Location = location
	}
}

// Session returns a copy of the session record with current totals applied.
func (a *Aggregator) Session() domain.ScanSession {
	s := *a.session
	totals := a.ComputeTotals()
	s.TotalVolumeM3 = totals.TotalVolumeM3
	s.ItemCount = len(a.items)
	return s
}

// Items returns the current item list. Callers must not mutate the
// returned items; all edits go through EditItem.
func (a *Aggregator) Items() []*domain.ScannedItem {
	out := make([]*domain.ScannedItem, len(a.items))
	copy(out, a.items)
	return out
}

// AddItem validates and appends an item, assigning its id and recomputing
// its volume from dimensions regardless of what the input carried. A
// missing weight estimate is filled from the catalog prior.
func (a *Aggregator) AddItem(item domain.ScannedItem) (*domain.ScannedItem, error) {
	if a.sealed {
		return nil, ErrSessionFinalized
	}
	if !item.Dimensions.Positive() {
		return nil, ErrInvalidDimensions
	}

	now := time.Now()
	item.ID = uuid.NewString()
	item.SessionID = a.session.ID
	item.CustomerID = a.session.CustomerID
	item.VolumeM3 = item.Dimensions.VolumeM3()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	if !item.FurnitureType.Valid() {
		item.FurnitureType = domain.Other
	}
	if item.WeightEstimateKg == 0 && a.catalog != nil {
		if w, err := a.catalog.EstimateWeight(item.FurnitureType, item.VolumeM3); err == nil {
			item.WeightEstimateKg = w
		}
	}

	a.items = append(a.items, &item)
	a.logger.Debug("item added",
		"session_id", a.session.ID,
		"item_id", item.ID,
		"type", item.FurnitureType,
		"volume_m3", item.VolumeM3,
	)
	return &item, nil
}

// Patch holds the editable fields of an item; nil fields are unchanged.
type Patch struct {
	FurnitureType       *domain.FurnitureType
	CustomName          *string
	RoomName            *domain.RoomType
	Dimensions          *domain.Dimensions
	WeightEstimateKg    *float64
	IsFragile           *bool
	RequiresDisassembly *bool
	PackingMaterials    *[]string
	SpecialInstructions *string
	Confidence          *float64
}

// EditItem applies a patch, re-validating dimensions and recomputing the
// item volume.
func (a *Aggregator) EditItem(id string, p Patch) (*domain.ScannedItem, error) {
	if a.sealed {
		return nil, ErrSessionFinalized
	}
	item := a.find(id)
	if item == nil {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}

	if p.FurnitureType != nil {
		if !p.FurnitureType.Valid() {
			return nil, fmt.Errorf("session: unknown furniture type %q", *p.FurnitureType)
		}
		item.FurnitureType = *p.FurnitureType
	}
	if p.CustomName != nil {
		item.CustomName = *p.CustomName
	}
	if p.RoomName != nil {
		item.RoomName = *p.RoomName
	}
	if p.Dimensions != nil {
		if !p.Dimensions.Positive() {
			return nil, ErrInvalidDimensions
		}
		item.Dimensions = *p.Dimensions
	}
	if p.WeightEstimateKg != nil {
		item.WeightEstimateKg = *p.WeightEstimateKg
	}
	if p.IsFragile != nil {
		item.IsFragile = *p.IsFragile
	}
	if p.RequiresDisassembly != nil {
		item.RequiresDisassembly = *p.RequiresDisassembly
	}
	if p.PackingMaterials != nil {
		item.PackingMaterials = *p.PackingMaterials
	}
	if p.SpecialInstructions != nil {
		item.SpecialInstructions = *p.SpecialInstructions
	}
	if p.Confidence != nil {
		item.Confidence = *p.Confidence
	}

	item.VolumeM3 = item.Dimensions.VolumeM3()
	item.UpdatedAt = time.Now()
	return item, nil
}

// RemoveItem deletes an item from the session.
func (a *Aggregator) RemoveItem(id string) error {
	if a.sealed {
		return ErrSessionFinalized
	}
	for i, item := range a.items {
		if item.ID == id {
			a.items = append(a.items[:i:i], a.items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrItemNotFound, id)
}

func (a *Aggregator) find(id string) *domain.ScannedItem {
	for _, item := range a.items {
		if item.ID == id {
			return item
		}
	}
	return nil
}

// RoomTotal is the volumetric summary of one room.
type RoomTotal struct {
	Room     domain.RoomType `json:"room"`
	VolumeM3 float64         `json:"volume_m3"`
	Count    int             `json:"count"`
}

// Totals is the volumetric summary of the whole session.
type Totals struct {
	TotalVolumeM3 float64     `json:"total_volume_m3"`
	PerRoom       []RoomTotal `json:"per_room"`
}

// ComputeTotals derives totals fresh from the current item list on every
// call; nothing is cached, so add/edit/remove can never drift the sum.
// Rooms appear in first-seen order.
func (a *Aggregator) ComputeTotals() Totals {
	var totals Totals
	index := make(map[domain.RoomType]int)
	for _, item := range a.items {
		totals.TotalVolumeM3 += item.VolumeM3
		i, ok := index[item.RoomName]
		if !ok {
			i = len(totals.PerRoom)
			index[item.RoomName] = i
			totals.PerRoom = append(totals.PerRoom, RoomTotal{Room: item.RoomName})
		}
		totals.PerRoom[i].VolumeM3 += item.VolumeM3
		totals.PerRoom[i].Count++
	}
	return totals
}

// SpecialHandling counts items that need handling beyond a standard carry.
type SpecialHandling struct {
	Pianos              int `json:"pianos"`
	HeavyItems          int `json:"heavy_items"`
	FragileItems        int `json:"fragile_items"`
	DisassemblyRequired int `json:"disassembly_required"`
}

// heavyThresholdKg marks items needing extra crew.
const heavyThresholdKg = 100

// DetectSpecialHandling scans the current items for pianos (by type or a
// custom name containing "Klavier" or "Flügel", any case), heavy items,
// fragile items, and disassembly candidates.
func (a *Aggregator) DetectSpecialHandling() SpecialHandling {
	var sh SpecialHandling
	for _, item := range a.items {
		if isPiano(item) {
			sh.Pianos++
		}
		if item.WeightEstimateKg > heavyThresholdKg {
			sh.HeavyItems++
		}
		if item.IsFragile {
			sh.FragileItems++
		}
		if item.RequiresDisassembly {
			sh.DisassemblyRequired++
		}
	}
	return sh
}

func isPiano(item *domain.ScannedItem) bool {
	if item.FurnitureType == domain.Piano {
		return true
	}
	name := strings.ToLower(item.CustomName)
	return strings.Contains(name, "klavier") || strings.Contains(name, "flügel")
}

// Finalize seals the session: it sets EndTime exactly once, fixes totals,
// item count and the quality score, and persists the session together with
// all items in a single batched write. On persistence failure nothing is
// sealed, so the caller can retry.
func (a *Aggregator) Finalize(ctx context.Context) (*domain.ScanSession, error) {
	if a.sealed {
		return nil, ErrSessionFinalized
	}
	if a.finalizing {
		return nil, ErrAlreadyFinalizing
	}
	a.finalizing = true
	defer func() { a.finalizing = false }()

	totals := a.ComputeTotals()
	now := time.Now()
	a.session.EndTime = &now
	a.session.TotalVolumeM3 = totals.TotalVolumeM3
	a.session.ItemCount = len(a.items)
	a.session.ScanQualityScore = a.meanConfidence()

	if err := a.store.SaveSessionWithItems(ctx, a.session, a.items); err != nil {
		a.session.EndTime = nil
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	a.sealed = true
	a.logger.Info("session finalized",
		"session_id", a.session.ID,
		"items", a.session.ItemCount,
		"total_volume_m3", a.session.TotalVolumeM3,
	)
	s := *a.session
	return &s, nil
}

// Finalized reports whether the session has been sealed.
func (a *Aggregator) Finalized() bool {
	return a.sealed
}

func (a *Aggregator) meanConfidence() float64 {
	if len(a.items) == 0 {
		return 0
	}
	var sum float64
	for _, item := range a.items {
		sum += item.Confidence
	}
	return sum / float64(len(a.items))
}
