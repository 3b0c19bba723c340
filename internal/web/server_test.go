package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umzugtech/volumescan/internal/bridge"
	"github.com/umzugtech/volumescan/internal/catalog"
	"github.com/umzugtech/volumescan/internal/domain"
	"github.com/umzugtech/volumescan/internal/photostore/local"
	"github.com/umzugtech/volumescan/internal/quote"
	"github.com/umzugtech/volumescan/internal/service"
	"github.com/umzugtech/volumescan/internal/session"
	"github.com/umzugtech/volumescan/internal/store"
	"github.com/umzugtech/volumescan/internal/vision"

	"github.com/umzugtech/volumescan/internal/db"
	"github.com/umzugtech/volumescan/internal/estimate"
)

// jpegStub is enough of a JPEG header for content sniffing.
var jpegStub = append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, []byte("fake jpeg body")...)

type fixedDetector struct {
	result *vision.Result
}

func (d *fixedDetector) Detect(_ context.Context, _ []byte) (*vision.Result, error) {
	return d.result, nil
}

func newTestServer(t *testing.T) (*Server, *ARTransport) {
	t.Helper()

	cat, err := catalog.New()
	require.NoError(t, err)

	conn, err := db.Open(t.TempDir() + "/scans.db")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	photoStg, err := local.NewLocalPhotoStore(t.TempDir())
	require.NoError(t, err)

	det := &fixedDetector{result: &vision.Result{
		Detections: []vision.Detection{
			{Label: "Couch", Confidence: 0.9, Bounds: domain.Bounds{X: 0.1, Y: 0.1, Width: 0.5, Height: 0.5}},
		},
		FurnitureType: domain.Sofa,
		Source:        vision.SourceProvider,
	}}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.NewScanService(det, estimate.NewCatalogEstimator(cat), cat, photoStg,
		store.NewScanStore(conn), quote.DefaultThresholds(), logger)

	transport := NewARTransport()
	br := bridge.New(transport, logger, bridge.WithWaitTimeout(200*time.Millisecond))
	t.Cleanup(br.Close)

	return NewServer(svc, br, transport, logger), transport
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func createSession(t *testing.T, srv *Server) string {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/sessions", map[string]string{
		"customer_id": "cust-1",
		"employee_id": "emp-1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sess := decode[domain.ScanSession](t, rec)
	return sess.ID
}

func TestStartSessionValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/sessions", map[string]string{"employee_id": "emp-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewReader([]byte("{not json")))
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createSession(t, srv)

	rec := doJSON(t, srv, http.MethodPost, fmt.Sprintf("/sessions/%s/items", id), domain.ScannedItem{
		FurnitureType: domain.Sofa,
		RoomName:      domain.LivingRoom,
		Dimensions:    domain.Dimensions{LengthCM: 200, WidthCM: 90, HeightCM: 85},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	item := decode[domain.ScannedItem](t, rec)
	assert.Equal(t, domain.MethodManual, item.ScanMethod)
	assert.InDelta(t, 1.53, item.VolumeM3, 1e-9)

	rec = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/sessions/%s/totals", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	totals := decode[session.Totals](t, rec)
	assert.InDelta(t, 1.53, totals.TotalVolumeM3, 1e-9)

	newDims := domain.Dimensions{LengthCM: 100, WidthCM: 100, HeightCM: 100}
	rec = doJSON(t, srv, http.MethodPatch, fmt.Sprintf("/sessions/%s/items/%s", id, item.ID),
		map[string]any{"dimensions": newDims})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	edited := decode[domain.ScannedItem](t, rec)
	assert.InDelta(t, 1.0, edited.VolumeM3, 1e-9)

	rec = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/sessions/%s/finalize", id), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sealed := decode[domain.ScanSession](t, rec)
	require.NotNil(t, sealed.EndTime)
	assert.Equal(t, 1, sealed.ItemCount)

	// the archived session still serves reads
	rec = doJSON(t, srv, http.MethodGet, "/sessions/"+id, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/sessions/%s/items", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode[[]domain.ScannedItem](t, rec)
	assert.Len(t, items, 1)
}

func TestRemoveItem(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createSession(t, srv)

	rec := doJSON(t, srv, http.MethodPost, fmt.Sprintf("/sessions/%s/items", id), domain.ScannedItem{
		FurnitureType: domain.Box,
		RoomName:      domain.Kitchen,
		Dimensions:    domain.Dimensions{LengthCM: 60, WidthCM: 40, HeightCM: 40},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	item := decode[domain.ScannedItem](t, rec)

	rec = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/sessions/%s/items/%s", id, item.ID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/sessions/%s/items/%s", id, item.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRejectInvalidDimensions(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createSession(t, srv)

	rec := doJSON(t, srv, http.MethodPost, fmt.Sprintf("/sessions/%s/items", id), domain.ScannedItem{
		FurnitureType: domain.Box,
		RoomName:      domain.Kitchen,
		Dimensions:    domain.Dimensions{LengthCM: 60, WidthCM: 0, HeightCM: 40},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownSessionIs404(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/sessions/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func multipartPhoto(t *testing.T, room string, image []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("room", room))
	fw, err := mw.CreateFormFile("image", "scan.jpg")
	require.NoError(t, err)
	_, err = fw.Write(image)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestScanPhoto(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createSession(t, srv)

	body, contentType := multipartPhoto(t, "living_room", jpegStub)
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/sessions/%s/photos", id), body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	result := decode[service.PhotoScanResult](t, rec)
	require.NotNil(t, result.Item)
	assert.Equal(t, domain.Sofa, result.Item.FurnitureType)
	assert.Equal(t, domain.LivingRoom, result.Item.RoomName)
	require.Len(t, result.Item.Photos, 1)
}

func TestScanPhotoRejectsNonImage(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createSession(t, srv)

	body, contentType := multipartPhoto(t, "living_room", []byte("plain text, not an image"))
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/sessions/%s/photos", id), body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuoteRoutes(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createSession(t, srv)

	rec := doJSON(t, srv, http.MethodPost, fmt.Sprintf("/sessions/%s/items", id), domain.ScannedItem{
		FurnitureType: domain.Piano,
		RoomName:      domain.LivingRoom,
		Dimensions:    domain.Dimensions{LengthCM: 150, WidthCM: 60, HeightCM: 125},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/sessions/%s/quote", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	q := decode[service.SessionQuote](t, rec)
	assert.True(t, q.Details.PianoTransport)
	assert.Contains(t, q.Details.Notes, "Klavier")

	rec = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/sessions/%s/finalize", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/customers/cust-1/quote", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cq := decode[service.SessionQuote](t, rec)
	assert.True(t, cq.Details.PianoTransport)
}

func TestARCapabilityNegotiationOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/ar/capabilities", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[arCapabilitiesResponse](t, rec)
	assert.Equal(t, bridge.StateAwaitingHost, status.State)

	caps, err := json.Marshal(bridge.Capabilities{Available: true, Platform: "ios", HasLiDAR: true})
	require.NoError(t, err)
	rec = doJSON(t, srv, http.MethodPost, "/ar/messages", bridge.Message{
		Type: bridge.TypeCapabilities,
		Data: caps,
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool {
		rec := doJSON(t, srv, http.MethodGet, "/ar/capabilities", nil)
		return decode[arCapabilitiesResponse](t, rec).State == bridge.StateReady
	}, time.Second, 10*time.Millisecond)

	id := createSession(t, srv)
	rec = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/sessions/%s/ar/start", id), arStartRequest{Room: domain.LivingRoom})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	rec = doJSON(t, srv, http.MethodGet, "/ar/messages", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	outbox := decode[[]bridge.Message](t, rec)
	require.Len(t, outbox, 1)
	assert.Equal(t, bridge.TypeSession, outbox[0].Type)

	// outbox drained
	rec = doJSON(t, srv, http.MethodGet, "/ar/messages", nil)
	assert.Empty(t, decode[[]bridge.Message](t, rec))
}

func TestARStartBeforeReadyUnavailable(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createSession(t, srv)

	rec := doJSON(t, srv, http.MethodPost, fmt.Sprintf("/sessions/%s/ar/start", id), arStartRequest{Room: domain.LivingRoom})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestARMeasurementAndDetectionRoutes(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createSession(t, srv)

	rec := doJSON(t, srv, http.MethodPost, fmt.Sprintf("/sessions/%s/ar/measurements", id), arMeasurementRequest{
		Room: domain.Bedroom,
		Measurement: domain.ARMeasurement{
			ID: "m1", Kind: domain.MeasureVolume, Value: 1.2, Unit: "m³", Confidence: 0.9,
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	item := decode[domain.ScannedItem](t, rec)
	assert.Equal(t, domain.MethodAR, item.ScanMethod)
	assert.InDelta(t, 1.2, item.VolumeM3, 1e-9)

	rec = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/sessions/%s/ar/detections", id), arDetectionRequest{
		Room: domain.Bedroom,
		Detection: domain.FurnitureDetection{
			ID: "d1", Type: "sofa",
			Size:       domain.BoxSize{WidthM: 1.0, HeightM: 1.2, DepthM: 1.0},
			Confidence: 0.8,
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	detected := decode[domain.ScannedItem](t, rec)
	assert.Equal(t, domain.Sofa, detected.FurnitureType)
}

func TestSecurityHeaders(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/ar/capabilities", nil)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}
