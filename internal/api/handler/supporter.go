package handler

import (
	"net/http"

	"github.com/crowdpetition/crowdpetition/internal/api/middleware"
	"github.com/crowdpetition/crowdpetition/internal/api/response"
	"github.com/crowdpetition/crowdpetition/internal/api/validation"
)

type supporterResponse struct {
	SupportID          int64   `json:"supportId"`
	SupportTierID      int64   `json:"supportTierId"`
	Message            *string `json:"message"`
	SupporterID        int64   `json:"supporterId"`
	SupporterFirstName string  `json:"supporterFirstName"`
	SupporterLastName  string  `json:"supporterLastName"`
	Timestamp          string  `json:"timestamp"`
}

// SupporterHandler handles pledge endpoints nested under a petition.
type SupporterHandler struct {
	service PetitionService
}

// NewSupporterHandler creates a new SupporterHandler.
func NewSupporterHandler(service PetitionService) *SupporterHandler {
	return &SupporterHandler{service: service}
}

// List handles GET /petitions/{id}/supporters.
func (h *SupporterHandler) List(w http.ResponseWriter, r *http.Request) {
	petitionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	supporters, err := h.service.Supporters(r.Context(), petitionID)
	if err != nil {
		writePetitionError(w, r, err, "list supporters")
		return
	}

	items := make([]supporterResponse, 0, len(supporters))
	for _, s := range supporters {
		items = append(items, supporterResponse{
			SupportID:          s.ID,
			SupportTierID:      s.SupportTierID,
			Message:            s.Message,
			SupporterID:        s.UserID,
			SupporterFirstName: s.FirstName,
			SupporterLastName:  s.LastName,
			Timestamp:          formatTime(s.Timestamp),
		})
	}

	response.Success(w, http.StatusOK, items, middleware.GetRequestID(r.Context()))
}

// Create handles POST /petitions/{id}/supporters.
func (h *SupporterHandler) Create(w http.ResponseWriter, r *http.Request) {
	petitionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req validation.CreateSupporterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if rejectInvalid(w, r, validation.ValidateCreateSupporter(req)) {
		return
	}

	id, err := h.service.AddSupporter(r.Context(), middleware.GetIdentity(r.Context()), petitionID, *req.SupportTierID, req.Message)
	if err != nil {
		writePetitionError(w, r, err, "add supporter")
		return
	}

	response.Success(w, http.StatusCreated, map[string]int64{"supporterId": id}, middleware.GetRequestID(r.Context()))
}
