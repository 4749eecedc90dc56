package petition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/crowdpetition/crowdpetition/internal/database"
	"github.com/crowdpetition/crowdpetition/internal/search"
)

const (
	petitionTitleConstraint = "petition_title_key"
	tierTitleConstraint     = "support_tier_petition_title_key"
	supporterConstraint     = "supporter_tier_user_key"
	categoryFKConstraint    = "petition_category_id_fkey"
)

// PostgresRepository implements Repository using pgx. Outside a transaction
// every call borrows one pooled connection for a single statement.
type PostgresRepository struct {
	q  database.Querier
	tx database.TxRunner
}

// NewPostgresRepository creates a Repository backed by the given database.
func NewPostgresRepository(db *database.DB) Repository {
	return &PostgresRepository{q: db.Pool(), tx: db}
}

// WithinTx runs fn with a repository bound to a single transaction.
func (r *PostgresRepository) WithinTx(ctx context.Context, fn func(repo Repository) error) error {
	if r.tx == nil {
		// Already inside a transaction.
		return fn(r)
	}
	err := r.tx.InTx(ctx, func(tx pgx.Tx) error {
		return fn(&PostgresRepository{q: tx})
	})
	if errors.Is(err, database.ErrTxConflict) {
		slog.Warn("petition transaction gave up after retries", "error", err)
		return fmt.Errorf("%w: concurrent update, please retry", ErrConflict)
	}
	return err
}

// FindRanked executes a search plan and returns every matching summary in rank order.
func (r *PostgresRepository) FindRanked(ctx context.Context, plan search.Plan) ([]Summary, error) {
	query, args, err := buildRankedQuery(plan)
	if err != nil {
		return nil, fmt.Errorf("building petition query: %w", err)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing petitions: %w", err)
	}
	defer rows.Close()

	summaries := []Summary{}
	for rows.Next() {
		var s Summary
		err := rows.Scan(
			&s.ID, &s.Title, &s.CategoryID, &s.OwnerID,
			&s.OwnerFirstName, &s.OwnerLastName, &s.CreationDate,
			&s.NumberOfSupporters, &s.SupportingCost, &s.MoneyRaised,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning petition row: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating petition rows: %w", err)
	}

	return summaries, nil
}

// GetByID retrieves a petition with its aggregates and tiers.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*Petition, error) {
	return r.getOne(ctx, "p.id = $1", id)
}

// GetByTitle retrieves a petition by its exact title.
func (r *PostgresRepository) GetByTitle(ctx context.Context, title string) (*Petition, error) {
	return r.getOne(ctx, "p.title = $1", title)
}

func (r *PostgresRepository) getOne(ctx context.Context, where string, arg any) (*Petition, error) {
	query := fmt.Sprintf(`SELECT %s, p.description %s WHERE %s`, summaryColumns, aggregateFrom, where)

	var p Petition
	err := r.q.QueryRow(ctx, query, arg).Scan(
		&p.ID, &p.Title, &p.CategoryID, &p.OwnerID,
		&p.OwnerFirstName, &p.OwnerLastName, &p.CreationDate,
		&p.NumberOfSupporters, &p.SupportingCost, &p.MoneyRaised,
		&p.Description,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying petition: %w", err)
	}

	tiers, err := r.ListTiers(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.SupportTiers = tiers

	return &p, nil
}

// Insert creates a petition row and returns its id.
func (r *PostgresRepository) Insert(ctx context.Context, title, description string, ownerID, categoryID int64) (int64, error) {
	query := `
		INSERT INTO petition (title, description, owner_id, category_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	var id int64
	err := r.q.QueryRow(ctx, query, title, description, ownerID, categoryID).Scan(&id)
	if err != nil {
		return 0, mapWriteError("inserting petition", err)
	}
	return id, nil
}

// Update replaces the mutable fields of a petition.
func (r *PostgresRepository) Update(ctx context.Context, id int64, title, description string, categoryID int64) error {
	query := `
		UPDATE petition
		SET title = $1, description = $2, category_id = $3
		WHERE id = $4`

	result, err := r.q.Exec(ctx, query, title, description, categoryID, id)
	if err != nil {
		return mapWriteError("updating petition", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: petition %d", ErrNotFound, id)
	}
	return nil
}

// Remove deletes a petition; tiers and supporters cascade.
func (r *PostgresRepository) Remove(ctx context.Context, id int64) error {
	result, err := r.q.Exec(ctx, `DELETE FROM petition WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting petition: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: petition %d", ErrNotFound, id)
	}
	return nil
}

// ListTiers returns the tiers of a petition ordered by id.
func (r *PostgresRepository) ListTiers(ctx context.Context, petitionID int64) ([]SupportTier, error) {
	query := `
		SELECT id, petition_id, title, description, cost
		FROM support_tier
		WHERE petition_id = $1
		ORDER BY id ASC`

	rows, err := r.q.Query(ctx, query, petitionID)
	if err != nil {
		return nil, fmt.Errorf("listing support tiers: %w", err)
	}
	defer rows.Close()

	tiers := []SupportTier{}
	for rows.Next() {
		var t SupportTier
		if err := rows.Scan(&t.ID, &t.PetitionID, &t.Title, &t.Description, &t.Cost); err != nil {
			return nil, fmt.Errorf("scanning support tier row: %w", err)
		}
		tiers = append(tiers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating support tier rows: %w", err)
	}

	return tiers, nil
}

// InsertTier adds one tier to a petition and returns its id.
func (r *PostgresRepository) InsertTier(ctx context.Context, tier SupportTier, petitionID int64) (int64, error) {
	query := `
		INSERT INTO support_tier (petition_id, title, description, cost)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	var id int64
	err := r.q.QueryRow(ctx, query, petitionID, tier.Title, tier.Description, tier.Cost).Scan(&id)
	if err != nil {
		return 0, mapWriteError("inserting support tier", err)
	}
	return id, nil
}

// InsertTiers adds several tiers in order. Callers needing atomicity run it
// inside WithinTx.
func (r *PostgresRepository) InsertTiers(ctx context.Context, tiers []SupportTier, petitionID int64) error {
	for _, t := range tiers {
		if _, err := r.InsertTier(ctx, t, petitionID); err != nil {
			return err
		}
	}
	return nil
}

// UpdateTier replaces the title, description and cost of a tier.
func (r *PostgresRepository) UpdateTier(ctx context.Context, tier SupportTier) error {
	query := `
		UPDATE support_tier
		SET title = $1, description = $2, cost = $3
		WHERE id = $4`

	result, err := r.q.Exec(ctx, query, tier.Title, tier.Description, tier.Cost, tier.ID)
	if err != nil {
		return mapWriteError("updating support tier", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: support tier %d", ErrNotFound, tier.ID)
	}
	return nil
}

// RemoveTier deletes a tier.
func (r *PostgresRepository) RemoveTier(ctx context.Context, tierID int64) error {
	result, err := r.q.Exec(ctx, `DELETE FROM support_tier WHERE id = $1`, tierID)
	if err != nil {
		return mapWriteError("deleting support tier", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: support tier %d", ErrNotFound, tierID)
	}
	return nil
}

// ListSupporters returns the pledges of a petition, newest first.
func (r *PostgresRepository) ListSupporters(ctx context.Context, petitionID int64) ([]Supporter, error) {
	query := `
		SELECT s.id, s.petition_id, s.support_tier_id, s.user_id,
		       u.first_name, u.last_name, s.message, s.timestamp
		FROM supporter s
		JOIN users u ON u.id = s.user_id
		WHERE s.petition_id = $1
		ORDER BY s.timestamp DESC, s.id DESC`

	rows, err := r.q.Query(ctx, query, petitionID)
	if err != nil {
		return nil, fmt.Errorf("listing supporters: %w", err)
	}
	defer rows.Close()

	supporters := []Supporter{}
	for rows.Next() {
		var s Supporter
		err := rows.Scan(
			&s.ID, &s.PetitionID, &s.SupportTierID, &s.UserID,
			&s.FirstName, &s.LastName, &s.Message, &s.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning supporter row: %w", err)
		}
		supporters = append(supporters, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating supporter rows: %w", err)
	}

	return supporters, nil
}

// SupporterExists reports whether any pledge references the tier.
func (r *PostgresRepository) SupporterExists(ctx context.Context, petitionID, tierID int64) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM supporter WHERE petition_id = $1 AND support_tier_id = $2)`,
		petitionID, tierID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking supporters for tier: %w", err)
	}
	return exists, nil
}

// InsertSupporter records a pledge and returns its id.
func (r *PostgresRepository) InsertSupporter(ctx context.Context, petitionID, tierID, userID int64, message *string) (int64, error) {
	query := `
		INSERT INTO supporter (petition_id, support_tier_id, user_id, message)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	var id int64
	err := r.q.QueryRow(ctx, query, petitionID, tierID, userID, message).Scan(&id)
	if err != nil {
		return 0, mapWriteError("inserting supporter", err)
	}
	return id, nil
}

// CategoryExists reports whether a category id is known.
func (r *PostgresRepository) CategoryExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM category WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking category: %w", err)
	}
	return exists, nil
}

// ListCategories returns all categories ordered by id.
func (r *PostgresRepository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.q.Query(ctx, `SELECT id, name FROM category ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	categories := []Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scanning category row: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating category rows: %w", err)
	}

	return categories, nil
}

// LockPetition takes a row lock on the petition for the rest of the
// transaction. Outside a transaction the lock is released immediately.
func (r *PostgresRepository) LockPetition(ctx context.Context, id int64) (bool, error) {
	var locked int64
	err := r.q.QueryRow(ctx, `SELECT id FROM petition WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("locking petition: %w", err)
	}
	return true, nil
}

// mapWriteError turns constraint violations into domain errors.
func mapWriteError(op string, err error) error {
	switch {
	case database.IsUniqueViolation(err, petitionTitleConstraint):
		return fmt.Errorf("%w: a petition with this title already exists", ErrConflict)
	case database.IsUniqueViolation(err, tierTitleConstraint):
		return fmt.Errorf("%w: support tier title not unique within petition", ErrConflict)
	case database.IsUniqueViolation(err, supporterConstraint):
		return fmt.Errorf("%w: already supported at this tier", ErrConflict)
	case database.IsForeignKeyViolation(err, categoryFKConstraint):
		return fmt.Errorf("%w: category does not exist", ErrValidation)
	case database.IsForeignKeyViolation(err, ""):
		return fmt.Errorf("%w: referenced record no longer exists", ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}
