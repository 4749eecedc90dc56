package petition

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/crowdpetition/crowdpetition/internal/auth"
	"github.com/crowdpetition/crowdpetition/internal/search"
)

// Service runs petition listings and guards every petition, tier and
// supporter mutation. Each mutation re-reads the state it decides on inside
// one transaction holding the petition's row lock.
type Service struct {
	repo Repository
}

// NewService creates a new petition Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Search normalizes raw listing parameters, ranks every matching petition and
// returns the requested window along with the total match count.
func (s *Service) Search(ctx context.Context, raw search.RawParams) (*Page, error) {
	criteria, err := search.Normalize(raw)
	if err != nil {
		return nil, err
	}

	plan := search.PlanQuery(search.BuildFilters(criteria))
	ranked, err := s.repo.FindRanked(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("finding petitions: %w", err)
	}

	return &Page{
		Petitions: search.Window(ranked, criteria.StartIndex, criteria.Count),
		Count:     len(ranked),
	}, nil
}

// Get returns a petition with its tiers.
func (s *Service) Get(ctx context.Context, id int64) (*Petition, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: no petition with id %d", ErrNotFound, id)
	}
	return p, nil
}

// Supporters lists the pledges of an existing petition, newest first.
func (s *Service) Supporters(ctx context.Context, petitionID int64) ([]Supporter, error) {
	p, err := s.repo.GetByID(ctx, petitionID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: no petition with id %d", ErrNotFound, petitionID)
	}
	return s.repo.ListSupporters(ctx, petitionID)
}

// Categories returns all categories.
func (s *Service) Categories(ctx context.Context) ([]Category, error) {
	return s.repo.ListCategories(ctx)
}

// CreatePetition inserts a petition and its initial tiers atomically.
func (s *Service) CreatePetition(ctx context.Context, caller *auth.Identity, in NewPetition) (int64, error) {
	if caller == nil {
		return 0, ErrUnauthenticated
	}
	if n := len(in.SupportTiers); n < 1 || n > MaxTiers {
		return 0, fmt.Errorf("%w: a petition needs between 1 and %d support tiers, got %d", ErrValidation, MaxTiers, n)
	}
	seen := make(map[string]bool, len(in.SupportTiers))
	for _, t := range in.SupportTiers {
		if seen[t.Title] {
			return 0, fmt.Errorf("%w: support tier titles must be unique, %q repeats", ErrValidation, t.Title)
		}
		seen[t.Title] = true
	}

	var id int64
	err := s.repo.WithinTx(ctx, func(repo Repository) error {
		ok, err := repo.CategoryExists(ctx, in.CategoryID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: category %d does not exist", ErrValidation, in.CategoryID)
		}

		existing, err := repo.GetByTitle(ctx, in.Title)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: a petition titled %q already exists", ErrConflict, in.Title)
		}

		id, err = repo.Insert(ctx, in.Title, in.Description, caller.UserID, in.CategoryID)
		if err != nil {
			return err
		}

		tiers := make([]SupportTier, 0, len(in.SupportTiers))
		for _, t := range in.SupportTiers {
			tiers = append(tiers, SupportTier{Title: t.Title, Description: t.Description, Cost: t.Cost})
		}
		return repo.InsertTiers(ctx, tiers, id)
	})
	if err != nil {
		return 0, err
	}

	slog.Info("petition created", "petitionId", id, "ownerId", caller.UserID)
	return id, nil
}

// EditPetition merges the supplied fields over the current petition.
func (s *Service) EditPetition(ctx context.Context, caller *auth.Identity, id int64, fields PetitionUpdate) error {
	if caller == nil {
		return ErrUnauthenticated
	}

	return s.repo.WithinTx(ctx, func(repo Repository) error {
		p, err := lockAndLoad(ctx, repo, id)
		if err != nil {
			return err
		}
		if err := requireOwner(caller, p); err != nil {
			return err
		}

		title, description, categoryID := p.Title, p.Description, p.CategoryID

		if fields.Title != nil && *fields.Title != p.Title {
			other, err := repo.GetByTitle(ctx, *fields.Title)
			if err != nil {
				return err
			}
			if other != nil && other.ID != p.ID {
				return fmt.Errorf("%w: a petition titled %q already exists", ErrConflict, *fields.Title)
			}
			title = *fields.Title
		}
		if fields.Description != nil {
			description = *fields.Description
		}
		if fields.CategoryID != nil && *fields.CategoryID != p.CategoryID {
			ok, err := repo.CategoryExists(ctx, *fields.CategoryID)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: category %d does not exist", ErrValidation, *fields.CategoryID)
			}
			categoryID = *fields.CategoryID
		}

		return repo.Update(ctx, p.ID, title, description, categoryID)
	})
}

// DeletePetition removes a petition that nobody supports yet. Non-owners are
// refused before supporter state is consulted.
func (s *Service) DeletePetition(ctx context.Context, caller *auth.Identity, id int64) error {
	if caller == nil {
		return ErrUnauthenticated
	}

	return s.repo.WithinTx(ctx, func(repo Repository) error {
		p, err := lockAndLoad(ctx, repo, id)
		if err != nil {
			return err
		}
		if err := requireOwner(caller, p); err != nil {
			return err
		}

		supporters, err := repo.ListSupporters(ctx, p.ID)
		if err != nil {
			return err
		}
		if len(supporters) > 0 {
			return fmt.Errorf("%w: cannot delete a petition with one or more supporters", ErrForbidden)
		}

		return repo.Remove(ctx, p.ID)
	})
}

// AddTier appends a tier to a petition that has fewer than MaxTiers.
func (s *Service) AddTier(ctx context.Context, caller *auth.Identity, petitionID int64, tier NewTier) (int64, error) {
	if caller == nil {
		return 0, ErrUnauthenticated
	}

	var id int64
	err := s.repo.WithinTx(ctx, func(repo Repository) error {
		p, err := lockAndLoad(ctx, repo, petitionID)
		if err != nil {
			return err
		}
		if err := requireOwner(caller, p); err != nil {
			return err
		}

		if len(p.SupportTiers) >= MaxTiers {
			return fmt.Errorf("%w: cannot add a support tier if %d already exist", ErrForbidden, MaxTiers)
		}
		if p.hasTierTitle(tier.Title, 0) {
			return fmt.Errorf("%w: support title not unique within petition", ErrForbidden)
		}

		id, err = repo.InsertTier(ctx, SupportTier{Title: tier.Title, Description: tier.Description, Cost: tier.Cost}, p.ID)
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// EditTier merges the supplied fields over a tier nobody supports yet.
func (s *Service) EditTier(ctx context.Context, caller *auth.Identity, petitionID, tierID int64, fields TierUpdate) error {
	if caller == nil {
		return ErrUnauthenticated
	}

	return s.repo.WithinTx(ctx, func(repo Repository) error {
		p, err := lockAndLoad(ctx, repo, petitionID)
		if err != nil {
			return err
		}
		current, ok := p.tier(tierID)
		if !ok {
			return fmt.Errorf("%w: no support tier %d on petition %d", ErrNotFound, tierID, petitionID)
		}
		if err := requireOwner(caller, p); err != nil {
			return err
		}

		updated := current
		if fields.Title != nil {
			if p.hasTierTitle(*fields.Title, current.ID) {
				return fmt.Errorf("%w: support title not unique within petition", ErrForbidden)
			}
			updated.Title = *fields.Title
		}
		if fields.Description != nil {
			updated.Description = *fields.Description
		}
		if fields.Cost != nil {
			updated.Cost = *fields.Cost
		}

		supported, err := repo.SupporterExists(ctx, p.ID, current.ID)
		if err != nil {
			return err
		}
		if supported {
			return fmt.Errorf("%w: cannot edit a support tier that already has supporters", ErrForbidden)
		}

		return repo.UpdateTier(ctx, updated)
	})
}

// DeleteTier removes an unsupported tier unless it is the petition's last.
func (s *Service) DeleteTier(ctx context.Context, caller *auth.Identity, petitionID, tierID int64) error {
	if caller == nil {
		return ErrUnauthenticated
	}

	return s.repo.WithinTx(ctx, func(repo Repository) error {
		p, err := lockAndLoad(ctx, repo, petitionID)
		if err != nil {
			return err
		}
		if _, ok := p.tier(tierID); !ok {
			return fmt.Errorf("%w: no support tier %d on petition %d", ErrNotFound, tierID, petitionID)
		}
		if err := requireOwner(caller, p); err != nil {
			return err
		}

		supported, err := repo.SupporterExists(ctx, p.ID, tierID)
		if err != nil {
			return err
		}
		if supported {
			return fmt.Errorf("%w: cannot delete a support tier that already has supporters", ErrForbidden)
		}
		if len(p.SupportTiers) <= 1 {
			return fmt.Errorf("%w: cannot remove the only support tier of a petition", ErrForbidden)
		}

		return repo.RemoveTier(ctx, tierID)
	})
}

// AddSupporter records a pledge by a non-owner against one tier.
func (s *Service) AddSupporter(ctx context.Context, caller *auth.Identity, petitionID, tierID int64, message *string) (int64, error) {
	if caller == nil {
		return 0, ErrUnauthenticated
	}

	var id int64
	err := s.repo.WithinTx(ctx, func(repo Repository) error {
		p, err := lockAndLoad(ctx, repo, petitionID)
		if err != nil {
			return err
		}
		if _, ok := p.tier(tierID); !ok {
			return fmt.Errorf("%w: support tier %d does not exist on petition %d", ErrNotFound, tierID, petitionID)
		}
		if caller.UserID == p.OwnerID {
			return fmt.Errorf("%w: cannot support your own petition", ErrForbidden)
		}

		supporters, err := repo.ListSupporters(ctx, p.ID)
		if err != nil {
			return err
		}
		for _, sp := range supporters {
			if sp.SupportTierID == tierID && sp.UserID == caller.UserID {
				return fmt.Errorf("%w: already supported at this tier", ErrForbidden)
			}
		}

		id, err = repo.InsertSupporter(ctx, p.ID, tierID, caller.UserID, message)
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// lockAndLoad locks the petition row and reads its current state.
func lockAndLoad(ctx context.Context, repo Repository, id int64) (*Petition, error) {
	ok, err := repo.LockPetition(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: no petition with id %d", ErrNotFound, id)
	}

	p, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: no petition with id %d", ErrNotFound, id)
	}
	return p, nil
}

func requireOwner(caller *auth.Identity, p *Petition) error {
	switch auth.Authorize(caller, p.OwnerID) {
	case auth.Unauthenticated:
		return ErrUnauthenticated
	case auth.Forbidden:
		return fmt.Errorf("%w: only the owner of a petition may modify it", ErrForbidden)
	}
	return nil
}
