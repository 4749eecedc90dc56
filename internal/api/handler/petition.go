package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/crowdpetition/crowdpetition/internal/api/middleware"
	"github.com/crowdpetition/crowdpetition/internal/api/response"
	"github.com/crowdpetition/crowdpetition/internal/api/validation"
	"github.com/crowdpetition/crowdpetition/internal/auth"
	"github.com/crowdpetition/crowdpetition/internal/petition"
	"github.com/crowdpetition/crowdpetition/internal/search"
)

const timeFormat = "2006-01-02T15:04:05Z"

// PetitionService is the petition behavior the HTTP layer depends on.
type PetitionService interface {
	Search(ctx context.Context, raw search.RawParams) (*petition.Page, error)
	Get(ctx context.Context, id int64) (*petition.Petition, error)
	Supporters(ctx context.Context, petitionID int64) ([]petition.Supporter, error)
	Categories(ctx context.Context) ([]petition.Category, error)

	CreatePetition(ctx context.Context, caller *auth.Identity, in petition.NewPetition) (int64, error)
	EditPetition(ctx context.Context, caller *auth.Identity, id int64, fields petition.PetitionUpdate) error
	DeletePetition(ctx context.Context, caller *auth.Identity, id int64) error

	AddTier(ctx context.Context, caller *auth.Identity, petitionID int64, tier petition.NewTier) (int64, error)
	EditTier(ctx context.Context, caller *auth.Identity, petitionID, tierID int64, fields petition.TierUpdate) error
	DeleteTier(ctx context.Context, caller *auth.Identity, petitionID, tierID int64) error

	AddSupporter(ctx context.Context, caller *auth.Identity, petitionID, tierID int64, message *string) (int64, error)
}

type petitionSummaryResponse struct {
	PetitionID         int64  `json:"petitionId"`
	Title              string `json:"title"`
	CategoryID         int64  `json:"categoryId"`
	OwnerID            int64  `json:"ownerId"`
	OwnerFirstName     string `json:"ownerFirstName"`
	OwnerLastName      string `json:"ownerLastName"`
	NumberOfSupporters int    `json:"numberOfSupporters"`
	CreationDate       string `json:"creationDate"`
	SupportingCost     *int64 `json:"supportingCost"`
	MoneyRaised        int64  `json:"moneyRaised"`
}

type petitionListResponse struct {
	Petitions []petitionSummaryResponse `json:"petitions"`
	Count     int                       `json:"count"`
}

type supportTierResponse struct {
	SupportTierID int64  `json:"supportTierId"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Cost          int64  `json:"cost"`
}

type petitionResponse struct {
	petitionSummaryResponse
	Description  string                `json:"description"`
	SupportTiers []supportTierResponse `json:"supportTiers"`
}

type categoryResponse struct {
	CategoryID int64  `json:"categoryId"`
	Name       string `json:"name"`
}

func toSummaryResponse(s petition.Summary) petitionSummaryResponse {
	return petitionSummaryResponse{
		PetitionID:         s.ID,
		Title:              s.Title,
		CategoryID:         s.CategoryID,
		OwnerID:            s.OwnerID,
		OwnerFirstName:     s.OwnerFirstName,
		OwnerLastName:      s.OwnerLastName,
		NumberOfSupporters: s.NumberOfSupporters,
		CreationDate:       formatTime(s.CreationDate),
		SupportingCost:     s.SupportingCost,
		MoneyRaised:        s.MoneyRaised,
	}
}

func toPetitionResponse(p *petition.Petition) petitionResponse {
	tiers := make([]supportTierResponse, 0, len(p.SupportTiers))
	for _, t := range p.SupportTiers {
		tiers = append(tiers, supportTierResponse{
			SupportTierID: t.ID,
			Title:         t.Title,
			Description:   t.Description,
			Cost:          t.Cost,
		})
	}
	return petitionResponse{
		petitionSummaryResponse: toSummaryResponse(petition.Summary{
			ID:                 p.ID,
			Title:              p.Title,
			CategoryID:         p.CategoryID,
			OwnerID:            p.OwnerID,
			OwnerFirstName:     p.OwnerFirstName,
			OwnerLastName:      p.OwnerLastName,
			CreationDate:       p.CreationDate,
			NumberOfSupporters: p.NumberOfSupporters,
			SupportingCost:     p.SupportingCost,
			MoneyRaised:        p.MoneyRaised,
		}),
		Description:  p.Description,
		SupportTiers: tiers,
	}
}

// PetitionHandler handles petition endpoints.
type PetitionHandler struct {
	service PetitionService
}

// NewPetitionHandler creates a new PetitionHandler.
func NewPetitionHandler(service PetitionService) *PetitionHandler {
	return &PetitionHandler{service: service}
}

// List handles GET /petitions.
func (h *PetitionHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	page, err := h.service.Search(r.Context(), search.ParamsFromQuery(r.URL.Query()))
	if err != nil {
		writePetitionError(w, r, err, "list petitions")
		return
	}

	items := make([]petitionSummaryResponse, 0, len(page.Petitions))
	for _, s := range page.Petitions {
		items = append(items, toSummaryResponse(s))
	}

	response.Success(w, http.StatusOK, petitionListResponse{Petitions: items, Count: page.Count}, requestID)
}

// Get handles GET /petitions/{id}.
func (h *PetitionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		writePetitionError(w, r, err, "get petition")
		return
	}

	response.Success(w, http.StatusOK, toPetitionResponse(p), middleware.GetRequestID(r.Context()))
}

// Create handles POST /petitions.
func (h *PetitionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req validation.CreatePetitionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if rejectInvalid(w, r, validation.ValidateCreatePetition(req)) {
		return
	}

	in := petition.NewPetition{
		Title:       strings.TrimSpace(*req.Title),
		Description: *req.Description,
		CategoryID:  *req.CategoryID,
	}
	for _, t := range req.SupportTiers {
		in.SupportTiers = append(in.SupportTiers, petition.NewTier{
			Title:       strings.TrimSpace(*t.Title),
			Description: *t.Description,
			Cost:        *t.Cost,
		})
	}

	id, err := h.service.CreatePetition(r.Context(), middleware.GetIdentity(r.Context()), in)
	if err != nil {
		writePetitionError(w, r, err, "create petition")
		return
	}

	response.Success(w, http.StatusCreated, map[string]int64{"petitionId": id}, middleware.GetRequestID(r.Context()))
}

// Update handles PATCH /petitions/{id}.
func (h *PetitionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req validation.UpdatePetitionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if rejectInvalid(w, r, validation.ValidateUpdatePetition(req)) {
		return
	}

	fields := petition.PetitionUpdate{
		Description: req.Description,
		CategoryID:  req.CategoryID,
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		fields.Title = &title
	}

	if err := h.service.EditPetition(r.Context(), middleware.GetIdentity(r.Context()), id, fields); err != nil {
		writePetitionError(w, r, err, "update petition")
		return
	}

	response.Success(w, http.StatusOK, nil, middleware.GetRequestID(r.Context()))
}

// Delete handles DELETE /petitions/{id}.
func (h *PetitionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeletePetition(r.Context(), middleware.GetIdentity(r.Context()), id); err != nil {
		writePetitionError(w, r, err, "delete petition")
		return
	}

	response.Success(w, http.StatusOK, nil, middleware.GetRequestID(r.Context()))
}

// Categories handles GET /petitions/categories.
func (h *PetitionHandler) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.service.Categories(r.Context())
	if err != nil {
		writePetitionError(w, r, err, "list categories")
		return
	}

	items := make([]categoryResponse, 0, len(cats))
	for _, c := range cats {
		items = append(items, categoryResponse{CategoryID: c.ID, Name: c.Name})
	}

	response.Success(w, http.StatusOK, items, middleware.GetRequestID(r.Context()))
}

// formatTime renders timestamps the way every response does.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}
