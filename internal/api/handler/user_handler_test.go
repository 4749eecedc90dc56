package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdpetition/crowdpetition/internal/api/handler"
	"github.com/crowdpetition/crowdpetition/internal/auth"
	"github.com/crowdpetition/crowdpetition/internal/user"
)

func registerBody() map[string]any {
	return map[string]any{
		"email":     "ada@example.com",
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"password":  "correct horse",
	}
}

func TestUserRegister_Success(t *testing.T) {
	t.Parallel()

	var got user.Registration
	svc := &mockUserService{
		registerFn: func(_ context.Context, reg user.Registration) (*user.User, error) {
			got = reg
			return &user.User{ID: 11}, nil
		},
	}
	h := handler.NewUserHandler(svc)
	req, w := makeChiRequest(http.MethodPost, "/users/register", mustJSON(t, registerBody()), nil)

	h.Register(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := parseEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(11), data["userId"])
	assert.Equal(t, "ada@example.com", got.Email)
	assert.Equal(t, "correct horse", got.Password)
}

func TestUserRegister_DuplicateEmail(t *testing.T) {
	t.Parallel()

	svc := &mockUserService{
		registerFn: func(context.Context, user.Registration) (*user.User, error) {
			return nil, user.ErrDuplicateEmail
		},
	}
	h := handler.NewUserHandler(svc)
	req, w := makeChiRequest(http.MethodPost, "/users/register", mustJSON(t, registerBody()), nil)

	h.Register(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", errorObject(t, w)["code"])
}

func TestUserRegister_Validation(t *testing.T) {
	t.Parallel()

	h := handler.NewUserHandler(&mockUserService{})
	body := registerBody()
	body["email"] = "not an email"
	body["password"] = "123"
	req, w := makeChiRequest(http.MethodPost, "/users/register", mustJSON(t, body), nil)

	h.Register(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	details := errorObject(t, w)["details"].([]interface{})
	assert.Len(t, details, 2)
}

func TestUserLogin(t *testing.T) {
	t.Parallel()

	svc := &mockUserService{
		loginFn: func(_ context.Context, email, password string) (*user.Session, error) {
			if email == "ada@example.com" && password == "correct horse" {
				return &user.Session{UserID: 11, Token: "tok"}, nil
			}
			return nil, user.ErrInvalidCredentials
		},
	}
	h := handler.NewUserHandler(svc)

	req, w := makeChiRequest(http.MethodPost, "/users/login", []byte(`{"email":"ada@example.com","password":"correct horse"}`), nil)
	h.Login(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := parseEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(11), data["userId"])
	assert.Equal(t, "tok", data["token"])

	req, w = makeChiRequest(http.MethodPost, "/users/login", []byte(`{"email":"ada@example.com","password":"wrong"}`), nil)
	h.Login(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", errorObject(t, w)["code"])
}

func TestUserLogout(t *testing.T) {
	t.Parallel()

	var revoked string
	svc := &mockUserService{
		logoutFn: func(_ context.Context, caller *auth.Identity) error {
			revoked = caller.Token
			return nil
		},
	}
	h := handler.NewUserHandler(svc)
	req, w := makeChiRequest(http.MethodPost, "/users/logout", nil, nil)

	h.Logout(w, asCaller(req, 11))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "session-token", revoked)
}

func TestUserGet_EmailOnlyForSelf(t *testing.T) {
	t.Parallel()

	svc := &mockUserService{
		getFn: func(_ context.Context, id int64) (*user.User, error) {
			return &user.User{ID: id, Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace"}, nil
		},
	}
	h := handler.NewUserHandler(svc)
	params := map[string]string{"id": "11"}

	req, w := makeChiRequest(http.MethodGet, "/users/11", nil, params)
	h.Get(w, asCaller(req, 11))
	data := parseEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "ada@example.com", data["email"])
	assert.Equal(t, "Ada", data["firstName"])

	req, w = makeChiRequest(http.MethodGet, "/users/11", nil, params)
	h.Get(w, asCaller(req, 12))
	data = parseEnvelope(t, w)["data"].(map[string]interface{})
	assert.NotContains(t, data, "email")

	req, w = makeChiRequest(http.MethodGet, "/users/11", nil, params)
	h.Get(w, req)
	data = parseEnvelope(t, w)["data"].(map[string]interface{})
	assert.NotContains(t, data, "email")
	assert.Equal(t, "Lovelace", data["lastName"])
}

func TestUserGet_NotFound(t *testing.T) {
	t.Parallel()

	h := handler.NewUserHandler(&mockUserService{})
	req, w := makeChiRequest(http.MethodGet, "/users/99", nil, map[string]string{"id": "99"})

	h.Get(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", errorObject(t, w)["code"])
}

func TestUserUpdate_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", user.ErrUserNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"unauthenticated", user.ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"wrong current password", user.ErrInvalidCredentials, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"another account", fmt.Errorf("%w: cannot edit another user's account", user.ErrForbidden), http.StatusForbidden, "FORBIDDEN"},
		{"email taken", user.ErrDuplicateEmail, http.StatusForbidden, "FORBIDDEN"},
		{"internal", fmt.Errorf("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockUserService{
				editFn: func(context.Context, *auth.Identity, int64, user.Update) error { return tt.err },
			}
			h := handler.NewUserHandler(svc)
			req, w := makeChiRequest(http.MethodPatch, "/users/11", []byte(`{"firstName":"Augusta"}`), map[string]string{"id": "11"})

			h.Update(w, asCaller(req, 11))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, errorObject(t, w)["code"])
		})
	}
}

func TestUserUpdate_PasswordNeedsCurrent(t *testing.T) {
	t.Parallel()

	called := false
	svc := &mockUserService{
		editFn: func(context.Context, *auth.Identity, int64, user.Update) error {
			called = true
			return nil
		},
	}
	h := handler.NewUserHandler(svc)
	req, w := makeChiRequest(http.MethodPatch, "/users/11", []byte(`{"password":"new secret"}`), map[string]string{"id": "11"})

	h.Update(w, asCaller(req, 11))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	details := errorObject(t, w)["details"].([]interface{})
	require.Len(t, details, 1)
	assert.Equal(t, "currentPassword", details[0].(map[string]interface{})["field"])
	assert.False(t, called)
}
