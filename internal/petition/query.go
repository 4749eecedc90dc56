package petition

import (
	"fmt"
	"strings"

	"github.com/crowdpetition/crowdpetition/internal/search"
)

// summaryColumns is the ordered list of columns scanned into a Summary.
const summaryColumns = `p.id, p.title, p.category_id, p.owner_id, u.first_name, u.last_name,
	p.creation_date, COALESCE(s.supporters, 0), t.min_cost, COALESCE(s.raised, 0)`

// aggregateFrom joins owners and pre-grouped tier and supporter aggregates so
// that no join multiplies petition rows.
const aggregateFrom = `FROM petition p
	JOIN users u ON u.id = p.owner_id
	LEFT JOIN (
		SELECT petition_id, MIN(cost) AS min_cost
		FROM support_tier
		GROUP BY petition_id
	) t ON t.petition_id = p.id
	LEFT JOIN (
		SELECT sp.petition_id, COUNT(*) AS supporters, SUM(st.cost)::BIGINT AS raised
		FROM supporter sp
		JOIN support_tier st ON st.id = sp.support_tier_id
		GROUP BY sp.petition_id
	) s ON s.petition_id = p.id`

// queryBuilder accumulates positional arguments. Caller values only ever
// reach the database as arguments, never as query text.
type queryBuilder struct {
	args []any
}

func (b *queryBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

// buildRankedQuery translates a search plan into a parameterized statement.
func buildRankedQuery(plan search.Plan) (string, []any, error) {
	b := &queryBuilder{}
	var conditions []string

	if len(plan.TierFilters) > 0 {
		var tierConds []string
		for _, pred := range plan.TierFilters {
			cond, err := b.tierCondition(pred)
			if err != nil {
				return "", nil, err
			}
			tierConds = append(tierConds, cond)
		}
		conditions = append(conditions, fmt.Sprintf(
			"p.id IN (SELECT tf.petition_id FROM support_tier tf WHERE %s)",
			strings.Join(tierConds, " AND ")))
	}

	for _, pred := range plan.PetitionFilters {
		cond, err := b.petitionCondition(pred)
		if err != nil {
			return "", nil, err
		}
		conditions = append(conditions, cond)
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(summaryColumns)
	sb.WriteString("\n")
	sb.WriteString(aggregateFrom)
	if len(conditions) > 0 {
		sb.WriteString("\nWHERE ")
		sb.WriteString(strings.Join(conditions, "\n\tAND "))
	}

	orderBy, err := orderClause(plan.Orders)
	if err != nil {
		return "", nil, err
	}
	sb.WriteString("\nORDER BY ")
	sb.WriteString(orderBy)

	return sb.String(), b.args, nil
}

func (b *queryBuilder) tierCondition(pred search.Predicate) (string, error) {
	switch pred.Kind {
	case search.TierCostAtMost:
		return "tf.cost <= " + b.arg(pred.Cost), nil
	default:
		return "", fmt.Errorf("unsupported tier predicate kind %d", pred.Kind)
	}
}

func (b *queryBuilder) petitionCondition(pred search.Predicate) (string, error) {
	switch pred.Kind {
	case search.CategoryIn:
		return "p.category_id = ANY(" + b.arg(pred.IDs) + ")", nil
	case search.OwnerIs:
		return "p.owner_id = " + b.arg(pred.ID), nil
	case search.SupportedBy:
		return "EXISTS (SELECT 1 FROM supporter sf WHERE sf.petition_id = p.id AND sf.user_id = " + b.arg(pred.ID) + ")", nil
	case search.TextMatch:
		ph := b.arg("%" + escapeLike(pred.Text) + "%")
		return fmt.Sprintf("(p.title ILIKE %s OR p.description ILIKE %s)", ph, ph), nil
	default:
		return "", fmt.Errorf("unsupported petition predicate kind %d", pred.Kind)
	}
}

func orderClause(orders []search.Order) (string, error) {
	if len(orders) == 0 {
		return "p.id ASC", nil
	}

	parts := make([]string, 0, len(orders))
	for _, o := range orders {
		var col string
		switch o.Key {
		case search.ByTitle:
			col = `p.title COLLATE "C"`
		case search.BySupportingCost:
			col = "t.min_cost"
		case search.ByCreationDate:
			col = "p.creation_date"
		case search.ByPetitionID:
			col = "p.id"
		default:
			return "", fmt.Errorf("unsupported sort key %d", o.Key)
		}
		dir := "ASC"
		if o.Descending {
			dir = "DESC"
		}
		parts = append(parts, col+" "+dir+" NULLS LAST")
	}
	return strings.Join(parts, ", "), nil
}

// escapeLike neutralizes LIKE wildcards so the text predicate is a plain
// substring match.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
