package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/crowdpetition/crowdpetition/internal/auth"
)

var (
	// ErrInvalidCredentials is returned when an email/password pair does not match.
	ErrInvalidCredentials = errors.New("incorrect email or password")
	// ErrUnauthenticated is returned when no caller identity is present.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden is returned for an edit of another account or one that breaks an account rule.
	ErrForbidden = errors.New("forbidden")
)

// Service provides account operations.
type Service struct {
	repo       Repository
	sessions   auth.SessionStore
	bcryptCost int
}

// NewService creates a new user Service.
func NewService(repo Repository, sessions auth.SessionStore, bcryptCost int) *Service {
	return &Service{
		repo:       repo,
		sessions:   sessions,
		bcryptCost: bcryptCost,
	}
}

// Register creates an account with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, reg Registration) (*User, error) {
	email := strings.TrimSpace(reg.Email)

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("checking email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	u := &User{
		Email:        email,
		FirstName:    strings.TrimSpace(reg.FirstName),
		LastName:     strings.TrimSpace(reg.LastName),
		PasswordHash: string(hash),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	slog.Info("user registered", "userId", u.ID)
	return u, nil
}

// Login verifies credentials and opens a new session.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("finding user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.sessions.Create(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	return &Session{UserID: u.ID, Token: token}, nil
}

// Logout revokes the caller's session.
func (s *Service) Logout(ctx context.Context, caller *auth.Identity) error {
	if caller == nil {
		return ErrUnauthenticated
	}
	if err := s.sessions.Revoke(ctx, caller.Token); err != nil {
		return fmt.Errorf("revoking session: %w", err)
	}
	return nil
}

// Get returns a user by id.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// Edit merges the supplied fields into the caller's own account.
func (s *Service) Edit(ctx context.Context, caller *auth.Identity, id int64, fields Update) error {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if caller == nil {
		return ErrUnauthenticated
	}
	if caller.UserID != u.ID {
		return fmt.Errorf("%w: cannot edit another user's account", ErrForbidden)
	}

	if fields.Password != nil {
		if fields.CurrentPassword == nil ||
			bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(*fields.CurrentPassword)) != nil {
			return ErrInvalidCredentials
		}
		if *fields.Password == *fields.CurrentPassword {
			return fmt.Errorf("%w: identical current and new passwords", ErrForbidden)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*fields.Password), s.bcryptCost)
		if err != nil {
			return fmt.Errorf("hashing password: %w", err)
		}
		u.PasswordHash = string(hash)
	}

	if fields.Email != nil {
		email := strings.TrimSpace(*fields.Email)
		other, err := s.repo.GetByEmail(ctx, email)
		switch {
		case err == nil && other.ID != u.ID:
			return ErrDuplicateEmail
		case err != nil && !errors.Is(err, ErrUserNotFound):
			return fmt.Errorf("checking email: %w", err)
		}
		u.Email = email
	}
	if fields.FirstName != nil {
		u.FirstName = strings.TrimSpace(*fields.FirstName)
	}
	if fields.LastName != nil {
		u.LastName = strings.TrimSpace(*fields.LastName)
	}

	return s.repo.Update(ctx, u)
}
