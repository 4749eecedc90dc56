package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/crowdpetition/crowdpetition/internal/api/middleware"
	"github.com/crowdpetition/crowdpetition/internal/auth"
	"github.com/crowdpetition/crowdpetition/internal/petition"
	"github.com/crowdpetition/crowdpetition/internal/search"
	"github.com/crowdpetition/crowdpetition/internal/user"
)

// --- Mock petition service ---

type mockPetitionService struct {
	searchFn         func(ctx context.Context, raw search.RawParams) (*petition.Page, error)
	getFn            func(ctx context.Context, id int64) (*petition.Petition, error)
	supportersFn     func(ctx context.Context, petitionID int64) ([]petition.Supporter, error)
	categoriesFn     func(ctx context.Context) ([]petition.Category, error)
	createPetitionFn func(ctx context.Context, caller *auth.Identity, in petition.NewPetition) (int64, error)
	editPetitionFn   func(ctx context.Context, caller *auth.Identity, id int64, fields petition.PetitionUpdate) error
	deletePetitionFn func(ctx context.Context, caller *auth.Identity, id int64) error
	addTierFn        func(ctx context.Context, caller *auth.Identity, petitionID int64, tier petition.NewTier) (int64, error)
	editTierFn       func(ctx context.Context, caller *auth.Identity, petitionID, tierID int64, fields petition.TierUpdate) error
	deleteTierFn     func(ctx context.Context, caller *auth.Identity, petitionID, tierID int64) error
	addSupporterFn   func(ctx context.Context, caller *auth.Identity, petitionID, tierID int64, message *string) (int64, error)
}

func (m *mockPetitionService) Search(ctx context.Context, raw search.RawParams) (*petition.Page, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, raw)
	}
	return &petition.Page{}, nil
}

func (m *mockPetitionService) Get(ctx context.Context, id int64) (*petition.Petition, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, petition.ErrNotFound
}

func (m *mockPetitionService) Supporters(ctx context.Context, petitionID int64) ([]petition.Supporter, error) {
	if m.supportersFn != nil {
		return m.supportersFn(ctx, petitionID)
	}
	return nil, nil
}

func (m *mockPetitionService) Categories(ctx context.Context) ([]petition.Category, error) {
	if m.categoriesFn != nil {
		return m.categoriesFn(ctx)
	}
	return nil, nil
}

func (m *mockPetitionService) CreatePetition(ctx context.Context, caller *auth.Identity, in petition.NewPetition) (int64, error) {
	if m.createPetitionFn != nil {
		return m.createPetitionFn(ctx, caller, in)
	}
	return 1, nil
}

func (m *mockPetitionService) EditPetition(ctx context.Context, caller *auth.Identity, id int64, fields petition.PetitionUpdate) error {
	if m.editPetitionFn != nil {
		return m.editPetitionFn(ctx, caller, id, fields)
	}
	return nil
}

func (m *mockPetitionService) DeletePetition(ctx context.Context, caller *auth.Identity, id int64) error {
	if m.deletePetitionFn != nil {
		return m.deletePetitionFn(ctx, caller, id)
	}
	return nil
}

func (m *mockPetitionService) AddTier(ctx context.Context, caller *auth.Identity, petitionID int64, tier petition.NewTier) (int64, error) {
	if m.addTierFn != nil {
		return m.addTierFn(ctx, caller, petitionID, tier)
	}
	return 1, nil
}

func (m *mockPetitionService) EditTier(ctx context.Context, caller *auth.Identity, petitionID, tierID int64, fields petition.TierUpdate) error {
	if m.editTierFn != nil {
		return m.editTierFn(ctx, caller, petitionID, tierID, fields)
	}
	return nil
}

func (m *mockPetitionService) DeleteTier(ctx context.Context, caller *auth.Identity, petitionID, tierID int64) error {
	if m.deleteTierFn != nil {
		return m.deleteTierFn(ctx, caller, petitionID, tierID)
	}
	return nil
}

func (m *mockPetitionService) AddSupporter(ctx context.Context, caller *auth.Identity, petitionID, tierID int64, message *string) (int64, error) {
	if m.addSupporterFn != nil {
		return m.addSupporterFn(ctx, caller, petitionID, tierID, message)
	}
	return 1, nil
}

// --- Mock user service ---

type mockUserService struct {
	registerFn func(ctx context.Context, reg user.Registration) (*user.User, error)
	loginFn    func(ctx context.Context, email, password string) (*user.Session, error)
	logoutFn   func(ctx context.Context, caller *auth.Identity) error
	getFn      func(ctx context.Context, id int64) (*user.User, error)
	editFn     func(ctx context.Context, caller *auth.Identity, id int64, fields user.Update) error
}

func (m *mockUserService) Register(ctx context.Context, reg user.Registration) (*user.User, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, reg)
	}
	return &user.User{ID: 1}, nil
}

func (m *mockUserService) Login(ctx context.Context, email, password string) (*user.Session, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return nil, user.ErrInvalidCredentials
}

func (m *mockUserService) Logout(ctx context.Context, caller *auth.Identity) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, caller)
	}
	return nil
}

func (m *mockUserService) Get(ctx context.Context, id int64) (*user.User, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, user.ErrUserNotFound
}

func (m *mockUserService) Edit(ctx context.Context, caller *auth.Identity, id int64, fields user.Update) error {
	if m.editFn != nil {
		return m.editFn(ctx, caller, id, fields)
	}
	return nil
}

// --- Helpers ---

func makeChiRequest(method, path string, body []byte, params map[string]string) (*http.Request, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()

	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	return req, w
}

func asCaller(req *http.Request, userID int64) *http.Request {
	identity := &auth.Identity{UserID: userID, Token: "session-token"}
	return req.WithContext(middleware.WithIdentity(req.Context(), identity))
}

func parseEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var env map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &env)
	require.NoError(t, err, "failed to parse response body")
	return env
}

func errorObject(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	env := parseEnvelope(t, w)
	errObj, ok := env["error"].(map[string]interface{})
	require.True(t, ok, "expected error object in %s", w.Body.String())
	return errObj
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }
