package petition

import (
	"context"
	"errors"

	"github.com/crowdpetition/crowdpetition/internal/search"
)

var (
	// ErrValidation marks malformed or out-of-range input.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthenticated marks a missing or invalid caller identity.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden marks an ownership or business-rule violation.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound marks a referenced petition, tier or category that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a title collision or a write that lost a race.
	ErrConflict = errors.New("conflict")
)

// Repository is the read/write access to petitions, tiers and supporters.
// It holds no business rules. GetByID and GetByTitle return nil, nil when no
// row matches.
type Repository interface {
	FindRanked(ctx context.Context, plan search.Plan) ([]Summary, error)
	GetByID(ctx context.Context, id int64) (*Petition, error)
	GetByTitle(ctx context.Context, title string) (*Petition, error)
	Insert(ctx context.Context, title, description string, ownerID, categoryID int64) (int64, error)
	Update(ctx context.Context, id int64, title, description string, categoryID int64) error
	Remove(ctx context.Context, id int64) error

	ListTiers(ctx context.Context, petitionID int64) ([]SupportTier, error)
	InsertTier(ctx context.Context, tier SupportTier, petitionID int64) (int64, error)
	InsertTiers(ctx context.Context, tiers []SupportTier, petitionID int64) error
	UpdateTier(ctx context.Context, tier SupportTier) error
	RemoveTier(ctx context.Context, tierID int64) error

	ListSupporters(ctx context.Context, petitionID int64) ([]Supporter, error)
	SupporterExists(ctx context.Context, petitionID, tierID int64) (bool, error)
	InsertSupporter(ctx context.Context, petitionID, tierID, userID int64, message *string) (int64, error)

	CategoryExists(ctx context.Context, id int64) (bool, error)
	ListCategories(ctx context.Context) ([]Category, error)

	// LockPetition blocks concurrent mutations of the petition until the
	// surrounding transaction ends. It reports whether the petition exists.
	LockPetition(ctx context.Context, id int64) (bool, error)
	// WithinTx runs fn against a repository bound to one transaction.
	WithinTx(ctx context.Context, fn func(repo Repository) error) error
}
