package validation_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crowdpetition/crowdpetition/internal/api/validation"
)

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

func fields(errs []validation.FieldError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Field)
	}
	return out
}

func tier(title string, cost int64) validation.TierRequest {
	return validation.TierRequest{Title: strPtr(title), Description: strPtr("desc"), Cost: int64Ptr(cost)}
}

func validPetition() validation.CreatePetitionRequest {
	return validation.CreatePetitionRequest{
		Title:        strPtr("Clean Rivers"),
		Description:  strPtr("Stop dumping"),
		CategoryID:   int64Ptr(3),
		SupportTiers: []validation.TierRequest{tier("Bronze", 5)},
	}
}

func TestValidateCreatePetition_Valid(t *testing.T) {
	assert.Empty(t, validation.ValidateCreatePetition(validPetition()))
}

func TestValidateCreatePetition_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*validation.CreatePetitionRequest)
		want   []string
	}{
		{"missing title", func(r *validation.CreatePetitionRequest) { r.Title = nil }, []string{"title"}},
		{"blank title", func(r *validation.CreatePetitionRequest) { r.Title = strPtr("   ") }, []string{"title"}},
		{"long title", func(r *validation.CreatePetitionRequest) { r.Title = strPtr(strings.Repeat("a", 129)) }, []string{"title"}},
		{"missing description", func(r *validation.CreatePetitionRequest) { r.Description = nil }, []string{"description"}},
		{"zero category", func(r *validation.CreatePetitionRequest) { r.CategoryID = int64Ptr(0) }, []string{"categoryId"}},
		{"no tiers", func(r *validation.CreatePetitionRequest) { r.SupportTiers = nil }, []string{"supportTiers"}},
		{"four tiers", func(r *validation.CreatePetitionRequest) {
			r.SupportTiers = []validation.TierRequest{tier("a", 1), tier("b", 1), tier("c", 1), tier("d", 1)}
		}, []string{"supportTiers"}},
		{"negative cost", func(r *validation.CreatePetitionRequest) {
			r.SupportTiers = []validation.TierRequest{tier("a", -1)}
		}, []string{"supportTiers[0].cost"}},
		{"duplicate tier titles", func(r *validation.CreatePetitionRequest) {
			r.SupportTiers = []validation.TierRequest{tier("a", 1), tier("a", 2)}
		}, []string{"supportTiers[1].title"}},
		{"tier titles differing only in whitespace", func(r *validation.CreatePetitionRequest) {
			r.SupportTiers = []validation.TierRequest{tier("Bronze", 1), tier(" Bronze ", 2)}
		}, []string{"supportTiers[1].title"}},
		{"tier missing fields", func(r *validation.CreatePetitionRequest) {
			r.SupportTiers = []validation.TierRequest{{}}
		}, []string{"supportTiers[0].title", "supportTiers[0].description", "supportTiers[0].cost"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validPetition()
			tt.modify(&req)
			assert.Equal(t, tt.want, fields(validation.ValidateCreatePetition(req)))
		})
	}
}

func TestValidateUpdatePetition(t *testing.T) {
	assert.Empty(t, validation.ValidateUpdatePetition(validation.UpdatePetitionRequest{}))
	assert.Empty(t, validation.ValidateUpdatePetition(validation.UpdatePetitionRequest{Description: strPtr("new")}))

	errs := validation.ValidateUpdatePetition(validation.UpdatePetitionRequest{
		Title:      strPtr(""),
		CategoryID: int64Ptr(-4),
	})
	assert.Equal(t, []string{"title", "categoryId"}, fields(errs))
}

func TestValidateTiers(t *testing.T) {
	assert.Empty(t, validation.ValidateCreateTier(tier("Gold", 0)))
	assert.Equal(t, []string{"title", "description", "cost"}, fields(validation.ValidateCreateTier(validation.TierRequest{})))

	assert.Empty(t, validation.ValidateUpdateTier(validation.TierRequest{Cost: int64Ptr(99)}))
	assert.Equal(t, []string{"cost"}, fields(validation.ValidateUpdateTier(validation.TierRequest{Cost: int64Ptr(-1)})))
}

func TestValidateCreateSupporter(t *testing.T) {
	assert.Empty(t, validation.ValidateCreateSupporter(validation.CreateSupporterRequest{SupportTierID: int64Ptr(1)}))
	assert.Empty(t, validation.ValidateCreateSupporter(validation.CreateSupporterRequest{SupportTierID: int64Ptr(1), Message: strPtr("go!")}))

	errs := validation.ValidateCreateSupporter(validation.CreateSupporterRequest{Message: strPtr(strings.Repeat("m", 513))})
	assert.Equal(t, []string{"supportTierId", "message"}, fields(errs))
}

func TestValidateRegister(t *testing.T) {
	valid := validation.RegisterRequest{
		Email:     strPtr("ada@example.com"),
		FirstName: strPtr("Ada"),
		LastName:  strPtr("Lovelace"),
		Password:  strPtr("secret1"),
	}
	assert.Empty(t, validation.ValidateRegister(valid))

	bad := validation.RegisterRequest{
		Email:    strPtr("not-an-email"),
		LastName: strPtr(""),
		Password: strPtr("123"),
	}
	assert.Equal(t, []string{"email", "firstName", "lastName", "password"}, fields(validation.ValidateRegister(bad)))
}

func TestValidateLogin(t *testing.T) {
	assert.Empty(t, validation.ValidateLogin(validation.LoginRequest{Email: strPtr("a@b.co"), Password: strPtr("x")}))
	assert.Equal(t, []string{"email", "password"}, fields(validation.ValidateLogin(validation.LoginRequest{})))
}

func TestValidateUpdateUser(t *testing.T) {
	assert.Empty(t, validation.ValidateUpdateUser(validation.UpdateUserRequest{FirstName: strPtr("Augusta")}))

	errs := validation.ValidateUpdateUser(validation.UpdateUserRequest{Password: strPtr("new secret")})
	assert.Equal(t, []string{"currentPassword"}, fields(errs))

	errs = validation.ValidateUpdateUser(validation.UpdateUserRequest{Email: strPtr("Ada <ada@example.com>")})
	assert.Equal(t, []string{"email"}, fields(errs))
}
