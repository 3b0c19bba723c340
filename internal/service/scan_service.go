package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/umzugtech/volumescan/internal/bridge"
	"github.com/umzugtech/volumescan/internal/catalog"
	"github.com/umzugtech/volumescan/internal/domain"
	"github.com/umzugtech/volumescan/internal/estimate"
	"github.com/umzugtech/volumescan/internal/photostore"
	"github.com/umzugtech/volumescan/internal/quote"
	"github.com/umzugtech/volumescan/internal/session"
	"github.com/umzugtech/volumescan/internal/vision"
)

// ErrSessionNotFound is returned when a session id matches neither an active
// nor a persisted session.
var ErrSessionNotFound = errors.New("service: session not found")

// detector is the subset of the vision gateway that ScanService requires.
type detector interface {
	Detect(ctx context.Context, image []byte) (*vision.Result, error)
}

// scanArchive is the subset of store.ScanStore that ScanService requires.
type scanArchive interface {
	SaveSessionWithItems(ctx context.Context, s *domain.ScanSession, items []*domain.ScannedItem) error
	GetSession(ctx context.Context, id string) (*domain.ScanSession, error)
	ListItemsBySession(ctx context.Context, sessionID string) ([]*domain.ScannedItem, error)
	ListItemsByCustomer(ctx context.Context, customerID string) ([]*domain.ScannedItem, error)
}

// ScanService orchestrates the scan pipeline: photo detection, dimension
// estimation, the review policy, session aggregation, and quote generation.
// Each live session has a single writer, but the registry itself is shared
// across request handlers.
type ScanService struct {
	detector   detector
	estimator  estimate.Estimator
	catalog    *catalog.Catalog
	photoStg   photostore.PhotoStore
	archive    scanArchive
	thresholds quote.Thresholds
	logger     *slog.Logger

	mu     sync.Mutex
	active map[string]*session.Aggregator
}

func NewScanService(
	det detector,
	est estimate.Estimator,
	cat *catalog.Catalog,
	photoStg photostore.PhotoStore,
	archive scanArchive,
	thresholds quote.Thresholds,
	logger *slog.Logger,
) *ScanService {
	return &ScanService{
		detector:   det,
		estimator:  est,
		catalog:    cat,
		photoStg:   photoStg,
		archive:    archive,
		thresholds: thresholds,
		logger:     logger,
		active:     make(map[string]*session.Aggregator),
	}
}

// StartSession opens a new scan session for a customer visit and registers
// it as active.
func (s *ScanService) StartSession(_ context.Context, customerID, employeeID string, device *domain.DeviceInfo, location *domain.Location) (domain.ScanSession, error) {
	if customerID == "" {
		return domain.ScanSession{}, fmt.Errorf("service: customer id required")
	}

	agg := session.NewAggregator(customerID, employeeID, s.catalog, s.archive, s.logger)
	agg.Describe(device, location)

	sess := agg.Session()
	s.mu.Lock()
	s.active[sess.ID] = agg
	s.mu.Unlock()

	s.logger.Info("session started", "session_id", sess.ID, "customer_id", customerID)
	return sess, nil
}

func (s *ScanService) aggregator(sessionID string) (*session.Aggregator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	agg, ok := s.active[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return agg, nil
}

// Session returns the session record, preferring the live aggregator and
// falling back to the archive for finalized sessions.
func (s *ScanService) Session(ctx context.Context, sessionID string) (*domain.ScanSession, error) {
	if agg, err := s.aggregator(sessionID); err == nil {
		sess := agg.Session()
		return &sess, nil
	}

	sess, err := s.archive.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return sess, nil
}

// PhotoScanResult is the outcome of one photo capture. When Review is
// "confirm" the item was NOT added; it is returned as a proposal for the
// operator to confirm or correct via a manual add.
type PhotoScanResult struct {
	Item     *domain.ScannedItem `json:"item"`
	Review   estimate.Review     `json:"review"`
	Source   vision.Source       `json:"source"`
	Proposal bool                `json:"proposal"`
}

// AddPhotoItem runs one photo through detection and estimation. Detection
// failures never abort the scan; the gateway substitutes fallback data. The
// item confidence is the lower of detection and estimation confidence.
func (s *ScanService) AddPhotoItem(ctx context.Context, sessionID string, room domain.RoomType, image []byte, mimeType string) (*PhotoScanResult, error) {
	agg, err := s.aggregator(sessionID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("photo scan started", "session_id", sessionID, "room", room, "bytes", len(image))

	result, err := s.detector.Detect(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("failed to detect furniture: %w", err)
	}

	furnitureType := result.FurnitureType
	if furnitureType == "" {
		furnitureType = domain.Other
	}

	var bounds *domain.Bounds
	confidence := 0.0
	if best := result.Best(); best != nil {
		bounds = &best.Bounds
		confidence = best.Confidence
	}

	dims, estConfidence, err := s.estimator.Estimate(ctx, image, bounds, furnitureType)
	if err != nil {
		return nil, fmt.Errorf("failed to estimate dimensions: %w", err)
	}
	if confidence == 0 || estConfidence < confidence {
		confidence = estConfidence
	}

	item := domain.ScannedItem{
		FurnitureType: furnitureType,
		RoomName:      room,
		Dimensions:    dims,
		ScanMethod:    domain.MethodPhoto,
		Confidence:    confidence,
	}

	review := estimate.ReviewFor(confidence)
	if review == estimate.ReviewConfirm {
		item.VolumeM3 = dims.VolumeM3()
		s.logger.Info("photo scan needs confirmation", "session_id", sessionID, "confidence", confidence)
		return &PhotoScanResult{Item: &item, Review: review, Source: result.Source, Proposal: true}, nil
	}

	photoID := uuid.NewString()
	storageKey, err := s.photoStg.Save(ctx, sessionID, photoID, mimeType, bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("failed to store photo: %w", err)
	}
	item.Photos = []domain.ScanPhoto{{ID: photoID, StorageKey: storageKey, Timestamp: time.Now()}}

	added, err := agg.AddItem(item)
	if err != nil {
		return nil, err
	}

	s.logger.Info("photo scan complete",
		"session_id", sessionID,
		"item_id", added.ID,
		"type", added.FurnitureType,
		"review", review,
		"source", result.Source,
	)
	return &PhotoScanResult{Item: added, Review: review, Source: result.Source}, nil
}

// AddManualItem adds an operator-entered item. Manual measurements are
// trusted fully.
func (s *ScanService) AddManualItem(_ context.Context, sessionID string, item domain.ScannedItem) (*domain.ScannedItem, error) {
	agg, err := s.aggregator(sessionID)
	if err != nil {
		return nil, err
	}
	item.ScanMethod = domain.MethodManual
	item.Confidence = 1.0
	return agg.AddItem(item)
}

// AddARMeasurement converts a raw AR measurement into an item and adds it.
func (s *ScanService) AddARMeasurement(_ context.Context, sessionID string, room domain.RoomType, m domain.ARMeasurement) (*domain.ScannedItem, error) {
	agg, err := s.aggregator(sessionID)
	if err != nil {
		return nil, err
	}
	sess := agg.Session()
	item := bridge.MeasurementToItem(m, sessionID, sess.CustomerID, room)
	return agg.AddItem(item)
}

// AddARDetection converts an AR furniture detection into an item and adds it.
func (s *ScanService) AddARDetection(_ context.Context, sessionID string, room domain.RoomType, d domain.FurnitureDetection) (*domain.ScannedItem, error) {
	agg, err := s.aggregator(sessionID)
	if err != nil {
		return nil, err
	}
	sess := agg.Session()
	item := bridge.DetectionToItem(d, sessionID, sess.CustomerID, room)
	return agg.AddItem(item)
}

// EditItem applies a patch to an item in an active session.
func (s *ScanService) EditItem(_ context.Context, sessionID, itemID string, p session.Patch) (*domain.ScannedItem, error) {
	agg, err := s.aggregator(sessionID)
	if err != nil {
		return nil, err
	}
	return agg.EditItem(itemID, p)
}

// RemoveItem deletes an item from an active session.
func (s *ScanService) RemoveItem(_ context.Context, sessionID, itemID string) error {
	agg, err := s.aggregator(sessionID)
	if err != nil {
		return err
	}
	return agg.RemoveItem(itemID)
}

// Totals returns the current volumetric summary of an active session.
func (s *ScanService) Totals(_ context.Context, sessionID string) (session.Totals, error) {
	agg, err := s.aggregator(sessionID)
	if err != nil {
		return session.Totals{}, err
	}
	return agg.ComputeTotals(), nil
}

// SpecialHandling returns the special-handling counts of an active session.
func (s *ScanService) SpecialHandling(_ context.Context, sessionID string) (session.SpecialHandling, error) {
	agg, err := s.aggregator(sessionID)
	if err != nil {
		return session.SpecialHandling{}, err
	}
	return agg.DetectSpecialHandling(), nil
}

// FinalizeSession seals an active session, persists it, and removes it from
// the active registry. On persistence failure the session stays active and
// finalization can be retried.
func (s *ScanService) FinalizeSession(ctx context.Context, sessionID string) (*domain.ScanSession, error) {
	agg, err := s.aggregator(sessionID)
	if err != nil {
		return nil, err
	}

	sess, err := agg.Finalize(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	delete(s.active, sessionID)
	s.mu.Unlock()
	return sess, nil
}

// SessionQuote builds the quote record for one session, live or persisted.
type SessionQuote struct {
	Details quote.Details       `json:"details"`
	Quality quote.QualityReport `json:"quality"`
}

// Quote analyses a session's items into a quote-ready record plus the
// data-quality verdict. Quality warnings never block the quote.
func (s *ScanService) Quote(ctx context.Context, sessionID string) (*SessionQuote, error) {
	items, err := s.sessionItems(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	data := quote.Analyze(items)
	return &SessionQuote{
		Details: quote.ToDetails(data),
		Quality: quote.ValidateScanQuality(data, s.thresholds),
	}, nil
}

// CustomerQuote aggregates every persisted item across a customer's sessions
// into one quote record.
func (s *ScanService) CustomerQuote(ctx context.Context, customerID string) (*SessionQuote, error) {
	items, err := s.archive.ListItemsByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load customer items: %w", err)
	}

	data := quote.Analyze(items)
	return &SessionQuote{
		Details: quote.ToDetails(data),
		Quality: quote.ValidateScanQuality(data, s.thresholds),
	}, nil
}

// Items returns a session's items, live or persisted.
func (s *ScanService) Items(ctx context.Context, sessionID string) ([]*domain.ScannedItem, error) {
	return s.sessionItems(ctx, sessionID)
}

func (s *ScanService) sessionItems(ctx context.Context, sessionID string) ([]*domain.ScannedItem, error) {
	if agg, err := s.aggregator(sessionID); err == nil {
		return agg.Items(), nil
	}

	sess, err := s.archive.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	items, err := s.archive.ListItemsBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session items: %w", err)
	}
	return items, nil
}
