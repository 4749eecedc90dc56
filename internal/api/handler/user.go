package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/crowdpetition/crowdpetition/internal/api/middleware"
	"github.com/crowdpetition/crowdpetition/internal/api/response"
	"github.com/crowdpetition/crowdpetition/internal/api/validation"
	"github.com/crowdpetition/crowdpetition/internal/auth"
	"github.com/crowdpetition/crowdpetition/internal/user"
)

// UserService is the account behavior the HTTP layer depends on.
type UserService interface {
	Register(ctx context.Context, reg user.Registration) (*user.User, error)
	Login(ctx context.Context, email, password string) (*user.Session, error)
	Logout(ctx context.Context, caller *auth.Identity) error
	Get(ctx context.Context, id int64) (*user.User, error)
	Edit(ctx context.Context, caller *auth.Identity, id int64, fields user.Update) error
}

type userResponse struct {
	Email     *string `json:"email,omitempty"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
}

type loginResponse struct {
	UserID int64  `json:"userId"`
	Token  string `json:"token"`
}

// UserHandler handles account endpoints.
type UserHandler struct {
	service UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service UserService) *UserHandler {
	return &UserHandler{service: service}
}

// Register handles POST /users/register.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req validation.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if rejectInvalid(w, r, validation.ValidateRegister(req)) {
		return
	}

	u, err := h.service.Register(r.Context(), user.Registration{
		Email:     *req.Email,
		FirstName: *req.FirstName,
		LastName:  *req.LastName,
		Password:  *req.Password,
	})
	if err != nil {
		writeUserError(w, r, err, "register user")
		return
	}

	response.Success(w, http.StatusCreated, map[string]int64{"userId": u.ID}, middleware.GetRequestID(r.Context()))
}

// Login handles POST /users/login.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req validation.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if rejectInvalid(w, r, validation.ValidateLogin(req)) {
		return
	}

	session, err := h.service.Login(r.Context(), *req.Email, *req.Password)
	if err != nil {
		writeUserError(w, r, err, "log in")
		return
	}

	response.Success(w, http.StatusOK, loginResponse{UserID: session.UserID, Token: session.Token}, middleware.GetRequestID(r.Context()))
}

// Logout handles POST /users/logout.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), middleware.GetIdentity(r.Context())); err != nil {
		writeUserError(w, r, err, "log out")
		return
	}

	response.Success(w, http.StatusOK, nil, middleware.GetRequestID(r.Context()))
}

// Get handles GET /users/{id}. The email is shown only to the account holder.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	u, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeUserError(w, r, err, "get user")
		return
	}

	resp := userResponse{FirstName: u.FirstName, LastName: u.LastName}
	if caller := middleware.GetIdentity(r.Context()); caller != nil && caller.UserID == u.ID {
		resp.Email = &u.Email
	}

	response.Success(w, http.StatusOK, resp, middleware.GetRequestID(r.Context()))
}

// Update handles PATCH /users/{id}.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req validation.UpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if rejectInvalid(w, r, validation.ValidateUpdateUser(req)) {
		return
	}

	err := h.service.Edit(r.Context(), middleware.GetIdentity(r.Context()), id, user.Update{
		Email:           req.Email,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Password:        req.Password,
		CurrentPassword: req.CurrentPassword,
	})
	if err != nil {
		writeUserError(w, r, err, "update user")
		return
	}

	response.Success(w, http.StatusOK, nil, middleware.GetRequestID(r.Context()))
}

func writeUserError(w http.ResponseWriter, r *http.Request, err error, op string) {
	requestID := middleware.GetRequestID(r.Context())

	switch {
	case errors.Is(err, user.ErrUserNotFound):
		response.Err(w, http.StatusNotFound, response.CodeNotFound, "User not found", requestID)
	case errors.Is(err, user.ErrDuplicateEmail):
		response.Err(w, http.StatusForbidden, response.CodeForbidden, "Email already in use", requestID)
	case errors.Is(err, user.ErrInvalidCredentials):
		response.Err(w, http.StatusUnauthorized, response.CodeUnauthorized, "Incorrect email or password", requestID)
	case errors.Is(err, user.ErrUnauthenticated):
		response.Err(w, http.StatusUnauthorized, response.CodeUnauthorized, "A valid X-Authorization session token is required", requestID)
	case errors.Is(err, user.ErrForbidden):
		response.Err(w, http.StatusForbidden, response.CodeForbidden, reason(err, user.ErrForbidden), requestID)
	default:
		slog.Error("failed to "+op, "error", err, "requestId", requestID)
		response.Err(w, http.StatusInternalServerError, response.CodeInternal, "Failed to "+op, requestID)
	}
}
