package validation

import (
	"fmt"
	"strings"
)

// MaxTiersPerPetition mirrors the tier cap enforced on creation.
const MaxTiersPerPetition = 3

// TierRequest is one support tier as supplied in a request body.
type TierRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Cost        *int64  `json:"cost"`
}

// CreatePetitionRequest is the body of POST /petitions.
type CreatePetitionRequest struct {
	Title        *string       `json:"title"`
	Description  *string       `json:"description"`
	CategoryID   *int64        `json:"categoryId"`
	SupportTiers []TierRequest `json:"supportTiers"`
}

// ValidateCreatePetition checks a new petition and its initial tiers.
func ValidateCreatePetition(req CreatePetitionRequest) []FieldError {
	var errs []FieldError

	errs = requiredText(errs, "title", req.Title, maxTitleLen)
	errs = requiredText(errs, "description", req.Description, maxDescriptionLen)
	errs = requiredID(errs, "categoryId", req.CategoryID)

	if n := len(req.SupportTiers); n < 1 || n > MaxTiersPerPetition {
		errs = append(errs, FieldError{
			Field:   "supportTiers",
			Message: fmt.Sprintf("supportTiers must contain between 1 and %d tiers", MaxTiersPerPetition),
		})
	}

	seen := make(map[string]bool, len(req.SupportTiers))
	for i, t := range req.SupportTiers {
		errs = validateTier(errs, fmt.Sprintf("supportTiers[%d].", i), t, true)
		if t.Title == nil {
			continue
		}
		title := strings.TrimSpace(*t.Title)
		if seen[title] {
			errs = append(errs, FieldError{Field: fmt.Sprintf("supportTiers[%d].title", i), Message: "support tier titles must be unique"})
		}
		seen[title] = true
	}

	return errs
}

// UpdatePetitionRequest is the body of PATCH /petitions/{id}. Nil fields are
// left unchanged.
type UpdatePetitionRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	CategoryID  *int64  `json:"categoryId"`
}

// ValidateUpdatePetition validates only the supplied fields.
func ValidateUpdatePetition(req UpdatePetitionRequest) []FieldError {
	var errs []FieldError

	errs = optionalText(errs, "title", req.Title, maxTitleLen)
	errs = optionalText(errs, "description", req.Description, maxDescriptionLen)
	errs = optionalID(errs, "categoryId", req.CategoryID)

	return errs
}

// ValidateCreateTier checks the body of POST /petitions/{id}/supportTiers.
func ValidateCreateTier(req TierRequest) []FieldError {
	return validateTier(nil, "", req, true)
}

// ValidateUpdateTier validates only the supplied tier fields.
func ValidateUpdateTier(req TierRequest) []FieldError {
	return validateTier(nil, "", req, false)
}

func validateTier(errs []FieldError, prefix string, t TierRequest, required bool) []FieldError {
	if required {
		errs = requiredText(errs, prefix+"title", t.Title, maxTitleLen)
		errs = requiredText(errs, prefix+"description", t.Description, maxDescriptionLen)
		return requiredNonNegative(errs, prefix+"cost", t.Cost)
	}
	errs = optionalText(errs, prefix+"title", t.Title, maxTitleLen)
	errs = optionalText(errs, prefix+"description", t.Description, maxDescriptionLen)
	return optionalNonNegative(errs, prefix+"cost", t.Cost)
}

// CreateSupporterRequest is the body of POST /petitions/{id}/supporters.
type CreateSupporterRequest struct {
	SupportTierID *int64  `json:"supportTierId"`
	Message       *string `json:"message"`
}

// ValidateCreateSupporter checks a new pledge. The message is optional.
func ValidateCreateSupporter(req CreateSupporterRequest) []FieldError {
	var errs []FieldError

	errs = requiredID(errs, "supportTierId", req.SupportTierID)
	errs = optionalText(errs, "message", req.Message, maxMessageLen)

	return errs
}
