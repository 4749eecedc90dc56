// Package petitiontest provides an in-memory petition.Repository for tests.
package petitiontest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/crowdpetition/crowdpetition/internal/petition"
	"github.com/crowdpetition/crowdpetition/internal/search"
)

type user struct {
	first, last string
}

type petitionRow struct {
	id          int64
	title       string
	description string
	categoryID  int64
	ownerID     int64
	created     time.Time
}

type state struct {
	users      map[int64]user
	categories map[int64]string
	petitions  map[int64]petitionRow
	tiers      map[int64]petition.SupportTier
	supporters map[int64]petition.Supporter
	nextID     int64
	clock      time.Time
}

// Memory is a petition.Repository held in process memory. Transactions hold
// an exclusive lock for their whole duration and roll back on error.
type Memory struct {
	mu sync.Mutex
	st *state
}

var _ petition.Repository = (*Memory)(nil)

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{st: &state{
		users:      map[int64]user{},
		categories: map[int64]string{},
		petitions:  map[int64]petitionRow{},
		tiers:      map[int64]petition.SupportTier{},
		supporters: map[int64]petition.Supporter{},
		clock:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}}
}

// AddUser registers a user so petitions and pledges can reference it.
func (m *Memory) AddUser(id int64, first, last string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.users[id] = user{first: first, last: last}
}

// AddCategory registers a category.
func (m *Memory) AddCategory(id int64, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.categories[id] = name
}

// SetCreated overrides a petition's creation date.
func (m *Memory) SetCreated(id int64, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.st.petitions[id]; ok {
		p.created = at
		m.st.petitions[id] = p
	}
}

func (m *Memory) FindRanked(ctx context.Context, plan search.Plan) ([]petition.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.findRanked(plan)
}

func (m *Memory) GetByID(ctx context.Context, id int64) (*petition.Petition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.getByID(id), nil
}

func (m *Memory) GetByTitle(ctx context.Context, title string) (*petition.Petition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.getByTitle(title), nil
}

func (m *Memory) Insert(ctx context.Context, title, description string, ownerID, categoryID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.insert(title, description, ownerID, categoryID)
}

func (m *Memory) Update(ctx context.Context, id int64, title, description string, categoryID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.update(id, title, description, categoryID)
}

func (m *Memory) Remove(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.remove(id)
}

func (m *Memory) ListTiers(ctx context.Context, petitionID int64) ([]petition.SupportTier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.listTiers(petitionID), nil
}

func (m *Memory) InsertTier(ctx context.Context, tier petition.SupportTier, petitionID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.insertTier(tier, petitionID)
}

func (m *Memory) InsertTiers(ctx context.Context, tiers []petition.SupportTier, petitionID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range tiers {
		if _, err := m.st.insertTier(t, petitionID); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) UpdateTier(ctx context.Context, tier petition.SupportTier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.updateTier(tier)
}

func (m *Memory) RemoveTier(ctx context.Context, tierID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.removeTier(tierID)
}

func (m *Memory) ListSupporters(ctx context.Context, petitionID int64) ([]petition.Supporter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.listSupporters(petitionID), nil
}

func (m *Memory) SupporterExists(ctx context.Context, petitionID, tierID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.supporterExists(petitionID, tierID), nil
}

func (m *Memory) InsertSupporter(ctx context.Context, petitionID, tierID, userID int64, message *string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.insertSupporter(petitionID, tierID, userID, message)
}

func (m *Memory) CategoryExists(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.st.categories[id]
	return ok, nil
}

func (m *Memory) ListCategories(ctx context.Context) ([]petition.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.listCategories(), nil
}

func (m *Memory) LockPetition(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.st.petitions[id]
	return ok, nil
}

// WithinTx runs fn while holding the store lock. Any error restores the
// state observed when the transaction began.
func (m *Memory) WithinTx(ctx context.Context, fn func(repo petition.Repository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.st.clone()
	if err := fn(&txRepo{st: m.st}); err != nil {
		m.st = snapshot
		return err
	}
	return nil
}

// txRepo is the view handed to WithinTx callbacks. The enclosing Memory
// already holds the lock.
type txRepo struct {
	st *state
}

func (r *txRepo) FindRanked(ctx context.Context, plan search.Plan) ([]petition.Summary, error) {
	return r.st.findRanked(plan)
}

func (r *txRepo) GetByID(ctx context.Context, id int64) (*petition.Petition, error) {
	return r.st.getByID(id), nil
}

func (r *txRepo) GetByTitle(ctx context.Context, title string) (*petition.Petition, error) {
	return r.st.getByTitle(title), nil
}

func (r *txRepo) Insert(ctx context.Context, title, description string, ownerID, categoryID int64) (int64, error) {
	return r.st.insert(title, description, ownerID, categoryID)
}

func (r *txRepo) Update(ctx context.Context, id int64, title, description string, categoryID int64) error {
	return r.st.update(id, title, description, categoryID)
}

func (r *txRepo) Remove(ctx context.Context, id int64) error {
	return r.st.remove(id)
}

func (r *txRepo) ListTiers(ctx context.Context, petitionID int64) ([]petition.SupportTier, error) {
	return r.st.listTiers(petitionID), nil
}

func (r *txRepo) InsertTier(ctx context.Context, tier petition.SupportTier, petitionID int64) (int64, error) {
	return r.st.insertTier(tier, petitionID)
}

func (r *txRepo) InsertTiers(ctx context.Context, tiers []petition.SupportTier, petitionID int64) error {
	for _, t := range tiers {
		if _, err := r.st.insertTier(t, petitionID); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepo) UpdateTier(ctx context.Context, tier petition.SupportTier) error {
	return r.st.updateTier(tier)
}

func (r *txRepo) RemoveTier(ctx context.Context, tierID int64) error {
	return r.st.removeTier(tierID)
}

func (r *txRepo) ListSupporters(ctx context.Context, petitionID int64) ([]petition.Supporter, error) {
	return r.st.listSupporters(petitionID), nil
}

func (r *txRepo) SupporterExists(ctx context.Context, petitionID, tierID int64) (bool, error) {
	return r.st.supporterExists(petitionID, tierID), nil
}

func (r *txRepo) InsertSupporter(ctx context.Context, petitionID, tierID, userID int64, message *string) (int64, error) {
	return r.st.insertSupporter(petitionID, tierID, userID, message)
}

func (r *txRepo) CategoryExists(ctx context.Context, id int64) (bool, error) {
	_, ok := r.st.categories[id]
	return ok, nil
}

func (r *txRepo) ListCategories(ctx context.Context) ([]petition.Category, error) {
	return r.st.listCategories(), nil
}

func (r *txRepo) LockPetition(ctx context.Context, id int64) (bool, error) {
	_, ok := r.st.petitions[id]
	return ok, nil
}

func (r *txRepo) WithinTx(ctx context.Context, fn func(repo petition.Repository) error) error {
	return fn(r)
}

// --- state operations, caller holds the lock ---

func (s *state) clone() *state {
	c := &state{
		users:      make(map[int64]user, len(s.users)),
		categories: make(map[int64]string, len(s.categories)),
		petitions:  make(map[int64]petitionRow, len(s.petitions)),
		tiers:      make(map[int64]petition.SupportTier, len(s.tiers)),
		supporters: make(map[int64]petition.Supporter, len(s.supporters)),
		nextID:     s.nextID,
		clock:      s.clock,
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.petitions {
		c.petitions[k] = v
	}
	for k, v := range s.tiers {
		c.tiers[k] = v
	}
	for k, v := range s.supporters {
		c.supporters[k] = v
	}
	return c
}

func (s *state) id() int64 {
	s.nextID++
	return s.nextID
}

// tick returns strictly increasing timestamps.
func (s *state) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *state) summary(row petitionRow) petition.Summary {
	owner := s.users[row.ownerID]
	sum := petition.Summary{
		ID:             row.id,
		Title:          row.title,
		CategoryID:     row.categoryID,
		OwnerID:        row.ownerID,
		OwnerFirstName: owner.first,
		OwnerLastName:  owner.last,
		CreationDate:   row.created,
	}
	for _, t := range s.tiers {
		if t.PetitionID != row.id {
			continue
		}
		if sum.SupportingCost == nil || t.Cost < *sum.SupportingCost {
			cost := t.Cost
			sum.SupportingCost = &cost
		}
	}
	for _, sp := range s.supporters {
		if sp.PetitionID != row.id {
			continue
		}
		sum.NumberOfSupporters++
		sum.MoneyRaised += s.tiers[sp.SupportTierID].Cost
	}
	return sum
}

func (s *state) findRanked(plan search.Plan) ([]petition.Summary, error) {
	out := []petition.Summary{}
	for _, row := range s.petitions {
		ok, err := s.matches(row, plan)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, s.summary(row))
		}
	}

	var sortErr error
	sort.SliceStable(out, func(i, j int) bool {
		for _, o := range plan.Orders {
			c, err := compare(out[i], out[j], o)
			if err != nil {
				sortErr = err
				return false
			}
			if c != 0 {
				return c < 0
			}
		}
		return false
	})
	if sortErr != nil {
		return nil, sortErr
	}
	return out, nil
}

func (s *state) matches(row petitionRow, plan search.Plan) (bool, error) {
	if len(plan.TierFilters) > 0 {
		found := false
		for _, t := range s.tiers {
			if t.PetitionID != row.id {
				continue
			}
			all := true
			for _, pred := range plan.TierFilters {
				if pred.Kind != search.TierCostAtMost {
					return false, fmt.Errorf("unsupported tier predicate kind %d", pred.Kind)
				}
				if t.Cost > pred.Cost {
					all = false
					break
				}
			}
			if all {
				found = true
				break
			}
		}
		if !found {
			return false, nil
		}
	}

	for _, pred := range plan.PetitionFilters {
		switch pred.Kind {
		case search.CategoryIn:
			in := false
			for _, id := range pred.IDs {
				if id == row.categoryID {
					in = true
					break
				}
			}
			if !in {
				return false, nil
			}
		case search.OwnerIs:
			if row.ownerID != pred.ID {
				return false, nil
			}
		case search.SupportedBy:
			supported := false
			for _, sp := range s.supporters {
				if sp.PetitionID == row.id && sp.UserID == pred.ID {
					supported = true
					break
				}
			}
			if !supported {
				return false, nil
			}
		case search.TextMatch:
			q := strings.ToLower(pred.Text)
			if !strings.Contains(strings.ToLower(row.title), q) &&
				!strings.Contains(strings.ToLower(row.description), q) {
				return false, nil
			}
		default:
			return false, fmt.Errorf("unsupported petition predicate kind %d", pred.Kind)
		}
	}
	return true, nil
}

// compare orders two summaries on one key. Nulls rank last in either
// direction.
func compare(a, b petition.Summary, o search.Order) (int, error) {
	var c int
	switch o.Key {
	case search.ByTitle:
		c = strings.Compare(a.Title, b.Title)
	case search.BySupportingCost:
		switch {
		case a.SupportingCost == nil && b.SupportingCost == nil:
			return 0, nil
		case a.SupportingCost == nil:
			return 1, nil
		case b.SupportingCost == nil:
			return -1, nil
		}
		c = cmpInt64(*a.SupportingCost, *b.SupportingCost)
	case search.ByCreationDate:
		c = a.CreationDate.Compare(b.CreationDate)
	case search.ByPetitionID:
		c = cmpInt64(a.ID, b.ID)
	default:
		return 0, fmt.Errorf("unsupported sort key %d", o.Key)
	}
	if o.Descending {
		c = -c
	}
	return c, nil
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (s *state) getByID(id int64) *petition.Petition {
	row, ok := s.petitions[id]
	if !ok {
		return nil
	}
	return s.aggregate(row)
}

func (s *state) getByTitle(title string) *petition.Petition {
	for _, row := range s.petitions {
		if row.title == title {
			return s.aggregate(row)
		}
	}
	return nil
}

func (s *state) aggregate(row petitionRow) *petition.Petition {
	sum := s.summary(row)
	return &petition.Petition{
		ID:                 sum.ID,
		Title:              sum.Title,
		Description:        row.description,
		CategoryID:         sum.CategoryID,
		OwnerID:            sum.OwnerID,
		OwnerFirstName:     sum.OwnerFirstName,
		OwnerLastName:      sum.OwnerLastName,
		CreationDate:       sum.CreationDate,
		NumberOfSupporters: sum.NumberOfSupporters,
		SupportingCost:     sum.SupportingCost,
		MoneyRaised:        sum.MoneyRaised,
		SupportTiers:       s.listTiers(row.id),
	}
}

func (s *state) insert(title, description string, ownerID, categoryID int64) (int64, error) {
	if s.getByTitle(title) != nil {
		return 0, fmt.Errorf("%w: a petition with this title already exists", petition.ErrConflict)
	}
	if _, ok := s.categories[categoryID]; !ok {
		return 0, fmt.Errorf("%w: category does not exist", petition.ErrValidation)
	}
	if _, ok := s.users[ownerID]; !ok {
		return 0, fmt.Errorf("%w: owner %d does not exist", petition.ErrConflict, ownerID)
	}
	id := s.id()
	s.petitions[id] = petitionRow{
		id:          id,
		title:       title,
		description: description,
		categoryID:  categoryID,
		ownerID:     ownerID,
		created:     s.tick(),
	}
	return id, nil
}

func (s *state) update(id int64, title, description string, categoryID int64) error {
	row, ok := s.petitions[id]
	if !ok {
		return fmt.Errorf("%w: petition %d", petition.ErrNotFound, id)
	}
	if other := s.getByTitle(title); other != nil && other.ID != id {
		return fmt.Errorf("%w: a petition with this title already exists", petition.ErrConflict)
	}
	if _, ok := s.categories[categoryID]; !ok {
		return fmt.Errorf("%w: category does not exist", petition.ErrValidation)
	}
	row.title, row.description, row.categoryID = title, description, categoryID
	s.petitions[id] = row
	return nil
}

func (s *state) remove(id int64) error {
	if _, ok := s.petitions[id]; !ok {
		return fmt.Errorf("%w: petition %d", petition.ErrNotFound, id)
	}
	delete(s.petitions, id)
	for tid, t := range s.tiers {
		if t.PetitionID == id {
			delete(s.tiers, tid)
		}
	}
	for sid, sp := range s.supporters {
		if sp.PetitionID == id {
			delete(s.supporters, sid)
		}
	}
	return nil
}

func (s *state) listTiers(petitionID int64) []petition.SupportTier {
	tiers := []petition.SupportTier{}
	for _, t := range s.tiers {
		if t.PetitionID == petitionID {
			tiers = append(tiers, t)
		}
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].ID < tiers[j].ID })
	return tiers
}

func (s *state) insertTier(tier petition.SupportTier, petitionID int64) (int64, error) {
	if _, ok := s.petitions[petitionID]; !ok {
		return 0, fmt.Errorf("%w: referenced record no longer exists", petition.ErrConflict)
	}
	for _, t := range s.tiers {
		if t.PetitionID == petitionID && t.Title == tier.Title {
			return 0, fmt.Errorf("%w: support tier title not unique within petition", petition.ErrConflict)
		}
	}
	tier.ID = s.id()
	tier.PetitionID = petitionID
	s.tiers[tier.ID] = tier
	return tier.ID, nil
}

func (s *state) updateTier(tier petition.SupportTier) error {
	current, ok := s.tiers[tier.ID]
	if !ok {
		return fmt.Errorf("%w: support tier %d", petition.ErrNotFound, tier.ID)
	}
	for _, t := range s.tiers {
		if t.PetitionID == current.PetitionID && t.ID != tier.ID && t.Title == tier.Title {
			return fmt.Errorf("%w: support tier title not unique within petition", petition.ErrConflict)
		}
	}
	current.Title, current.Description, current.Cost = tier.Title, tier.Description, tier.Cost
	s.tiers[tier.ID] = current
	return nil
}

func (s *state) removeTier(tierID int64) error {
	if _, ok := s.tiers[tierID]; !ok {
		return fmt.Errorf("%w: support tier %d", petition.ErrNotFound, tierID)
	}
	for _, sp := range s.supporters {
		if sp.SupportTierID == tierID {
			return fmt.Errorf("%w: referenced record no longer exists", petition.ErrConflict)
		}
	}
	delete(s.tiers, tierID)
	return nil
}

func (s *state) listSupporters(petitionID int64) []petition.Supporter {
	out := []petition.Supporter{}
	for _, sp := range s.supporters {
		if sp.PetitionID == petitionID {
			out = append(out, sp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *state) supporterExists(petitionID, tierID int64) bool {
	for _, sp := range s.supporters {
		if sp.PetitionID == petitionID && sp.SupportTierID == tierID {
			return true
		}
	}
	return false
}

func (s *state) insertSupporter(petitionID, tierID, userID int64, message *string) (int64, error) {
	t, ok := s.tiers[tierID]
	if !ok || t.PetitionID != petitionID {
		return 0, fmt.Errorf("%w: referenced record no longer exists", petition.ErrConflict)
	}
	u, ok := s.users[userID]
	if !ok {
		return 0, fmt.Errorf("%w: referenced record no longer exists", petition.ErrConflict)
	}
	for _, sp := range s.supporters {
		if sp.SupportTierID == tierID && sp.UserID == userID {
			return 0, fmt.Errorf("%w: already supported at this tier", petition.ErrConflict)
		}
	}
	id := s.id()
	s.supporters[id] = petition.Supporter{
		ID:            id,
		PetitionID:    petitionID,
		SupportTierID: tierID,
		UserID:        userID,
		FirstName:     u.first,
		LastName:      u.last,
		Message:       message,
		Timestamp:     s.tick(),
	}
	return id, nil
}

func (s *state) listCategories() []petition.Category {
	out := make([]petition.Category, 0, len(s.categories))
	for id, name := range s.categories {
		out = append(out, petition.Category{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
