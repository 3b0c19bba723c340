package web

import (
	"encoding/json"
	"net/http"

	"github.com/umzugtech/volumescan/internal/domain"
	"github.com/umzugtech/volumescan/internal/session"
)

type startSessionRequest struct {
	CustomerID string             `json:"customer_id"`
	EmployeeID string             `json:"employee_id"`
	DeviceInfo *domain.DeviceInfo `json:"device_info,omitempty"`
	Location   *domain.Location   `json:"location,omitempty"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CustomerID == "" {
		s.writeError(w, http.StatusBadRequest, "customer_id required")
		return
	}

	sess, err := s.service.StartSession(r.Context(), req.CustomerID, req.EmployeeID, req.DeviceInfo, req.Location)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.service.Session(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.Items(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if items == nil {
		items = []*domain.ScannedItem{}
	}
	s.writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleAddManualItem(w http.ResponseWriter, r *http.Request) {
	var item domain.ScannedItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	added, err := s.service.AddManualItem(r.Context(), r.PathValue("id"), item)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, added)
}

type patchItemRequest struct {
	FurnitureType       *domain.FurnitureType `json:"furniture_type,omitempty"`
	CustomName          *string               `json:"custom_name,omitempty"`
	RoomName            *domain.RoomType      `json:"room_name,omitempty"`
	Dimensions          *domain.Dimensions    `json:"dimensions,omitempty"`
	WeightEstimateKg    *float64              `json:"weight_estimate_kg,omitempty"`
	IsFragile           *bool                 `json:"is_fragile,omitempty"`
	RequiresDisassembly *bool                 `json:"requires_disassembly,omitempty"`
	PackingMaterials    *[]string             `json:"packing_materials,omitempty"`
	SpecialInstructions *string               `json:"special_instructions,omitempty"`
	Confidence          *float64              `json:"confidence,omitempty"`
}

func (s *Server) handleEditItem(w http.ResponseWriter, r *http.Request) {
	var req patchItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	patch := session.Patch{
		FurnitureType:       req.FurnitureType,
		CustomName:          req.CustomName,
		RoomName:            req.RoomName,
		Dimensions:          req.Dimensions,
		WeightEstimateKg:    req.WeightEstimateKg,
		IsFragile:           req.IsFragile,
		RequiresDisassembly: req.RequiresDisassembly,
		PackingMaterials:    req.PackingMaterials,
		SpecialInstructions: req.SpecialInstructions,
		Confidence:          req.Confidence,
	}

	item, err := s.service.EditItem(r.Context(), r.PathValue("id"), r.PathValue("itemID"), patch)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	if err := s.service.RemoveItem(r.Context(), r.PathValue("id"), r.PathValue("itemID")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := s.service.Totals(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, totals)
}

func (s *Server) handleSpecialHandling(w http.ResponseWriter, r *http.Request) {
	special, err := s.service.SpecialHandling(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, special)
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	sess, err := s.service.FinalizeSession(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSessionQuote(w http.ResponseWriter, r *http.Request) {
	q, err := s.service.Quote(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleCustomerQuote(w http.ResponseWriter, r *http.Request) {
	q, err := s.service.CustomerQuote(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, q)
}
