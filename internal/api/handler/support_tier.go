package handler

import (
	"net/http"
	"strings"

	"github.com/crowdpetition/crowdpetition/internal/api/middleware"
	"github.com/crowdpetition/crowdpetition/internal/api/response"
	"github.com/crowdpetition/crowdpetition/internal/api/validation"
	"github.com/crowdpetition/crowdpetition/internal/petition"
)

// SupportTierHandler handles support tier endpoints nested under a petition.
type SupportTierHandler struct {
	service PetitionService
}

// NewSupportTierHandler creates a new SupportTierHandler.
func NewSupportTierHandler(service PetitionService) *SupportTierHandler {
	return &SupportTierHandler{service: service}
}

// Create handles POST /petitions/{id}/supportTiers.
func (h *SupportTierHandler) Create(w http.ResponseWriter, r *http.Request) {
	petitionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req validation.TierRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if rejectInvalid(w, r, validation.ValidateCreateTier(req)) {
		return
	}

	tier := petition.NewTier{Title: strings.TrimSpace(*req.Title), Description: *req.Description, Cost: *req.Cost}
	id, err := h.service.AddTier(r.Context(), middleware.GetIdentity(r.Context()), petitionID, tier)
	if err != nil {
		writePetitionError(w, r, err, "add support tier")
		return
	}

	response.Success(w, http.StatusCreated, map[string]int64{"supportTierId": id}, middleware.GetRequestID(r.Context()))
}

// Update handles PATCH /petitions/{id}/supportTiers/{tierId}.
func (h *SupportTierHandler) Update(w http.ResponseWriter, r *http.Request) {
	petitionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	tierID, ok := pathID(w, r, "tierId")
	if !ok {
		return
	}

	var req validation.TierRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if rejectInvalid(w, r, validation.ValidateUpdateTier(req)) {
		return
	}

	fields := petition.TierUpdate{Description: req.Description, Cost: req.Cost}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		fields.Title = &title
	}
	if err := h.service.EditTier(r.Context(), middleware.GetIdentity(r.Context()), petitionID, tierID, fields); err != nil {
		writePetitionError(w, r, err, "update support tier")
		return
	}

	response.Success(w, http.StatusOK, nil, middleware.GetRequestID(r.Context()))
}

// Delete handles DELETE /petitions/{id}/supportTiers/{tierId}.
func (h *SupportTierHandler) Delete(w http.ResponseWriter, r *http.Request) {
	petitionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	tierID, ok := pathID(w, r, "tierId")
	if !ok {
		return
	}

	if err := h.service.DeleteTier(r.Context(), middleware.GetIdentity(r.Context()), petitionID, tierID); err != nil {
		writePetitionError(w, r, err, "delete support tier")
		return
	}

	response.Success(w, http.StatusOK, nil, middleware.GetRequestID(r.Context()))
}
