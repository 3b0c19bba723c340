package web

import (
	"encoding/json"
	"net/http"

	"github.com/umzugtech/volumescan/internal/bridge"
	"github.com/umzugtech/volumescan/internal/domain"
)

type arCapabilitiesResponse struct {
	State        bridge.State        `json:"state"`
	Capabilities bridge.Capabilities `json:"capabilities"`
}

func (s *Server) handleARCapabilities(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, arCapabilitiesResponse{
		State:        s.bridge.State(),
		Capabilities: s.bridge.Capabilities(),
	})
}

type arStartRequest struct {
	Room domain.RoomType `json:"room"`
}

func (s *Server) handleARStart(w http.ResponseWriter, r *http.Request) {
	var req arStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sessionID := r.PathValue("id")
	if _, err := s.service.Session(r.Context(), sessionID); err != nil {
		s.writeServiceError(w, err)
		return
	}
	if err := s.bridge.StartARScan(sessionID, req.Room); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type arMeasurementRequest struct {
	Room        domain.RoomType      `json:"room"`
	Measurement domain.ARMeasurement `json:"measurement"`
}

func (s *Server) handleARMeasurement(w http.ResponseWriter, r *http.Request) {
	var req arMeasurementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := s.service.AddARMeasurement(r.Context(), r.PathValue("id"), req.Room, req.Measurement)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, item)
}

type arDetectionRequest struct {
	Room      domain.RoomType           `json:"room"`
	Detection domain.FurnitureDetection `json:"detection"`
}

func (s *Server) handleARDetection(w http.ResponseWriter, r *http.Request) {
	var req arDetectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := s.service.AddARDetection(r.Context(), r.PathValue("id"), req.Room, req.Detection)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, item)
}

// handleARIngress receives a message from the AR host and hands it to the
// bridge via the transport.
func (s *Server) handleARIngress(w http.ResponseWriter, r *http.Request) {
	if s.transport == nil {
		s.writeError(w, http.StatusNotFound, "no AR host attached")
		return
	}

	var msg bridge.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg.Type == "" {
		s.writeError(w, http.StatusBadRequest, "message type required")
		return
	}

	s.transport.Deliver(msg)
	w.WriteHeader(http.StatusAccepted)
}

// handleAROutbox hands queued bridge commands to the polling host.
func (s *Server) handleAROutbox(w http.ResponseWriter, r *http.Request) {
	if s.transport == nil {
		s.writeError(w, http.StatusNotFound, "no AR host attached")
		return
	}

	msgs := s.transport.Drain()
	if msgs == nil {
		msgs = []bridge.Message{}
	}
	s.writeJSON(w, http.StatusOK, msgs)
}
