package search

// SortKey is a column of the aggregated petition summary that can be ranked on.
type SortKey int

const (
	ByTitle SortKey = iota
	BySupportingCost
	ByCreationDate
	ByPetitionID
)

// Order is one ranking key. Null values always rank last.
type Order struct {
	Key        SortKey
	Descending bool
}

// Plan describes a ranked petition-summary retrieval over the join of
// petitions, tiers, supporters, categories and owners, grouped by petition.
// It is store-agnostic; repositories translate it.
type Plan struct {
	TierFilters     []Predicate
	PetitionFilters []Predicate
	Orders          []Order
}

// PlanQuery splits predicates by grain and resolves the sort directive into
// orders, always ending with petition id ascending as the tie-break.
func PlanQuery(fs FilterSet) Plan {
	var p Plan
	for _, pred := range fs.Predicates {
		if pred.Grain == TierGrain {
			p.TierFilters = append(p.TierFilters, pred)
		} else {
			p.PetitionFilters = append(p.PetitionFilters, pred)
		}
	}

	p.Orders = []Order{primaryOrder(fs.Sort), {Key: ByPetitionID}}
	return p
}

func primaryOrder(d SortDirective) Order {
	switch d {
	case AlphabeticalAsc:
		return Order{Key: ByTitle}
	case AlphabeticalDesc:
		return Order{Key: ByTitle, Descending: true}
	case CostAsc:
		return Order{Key: BySupportingCost}
	case CostDesc:
		return Order{Key: BySupportingCost, Descending: true}
	case CreatedDesc:
		return Order{Key: ByCreationDate, Descending: true}
	default:
		return Order{Key: ByCreationDate}
	}
}

// Window returns the slice of a ranked list starting at start and holding at
// most count items (all remaining when count is nil). Out-of-range windows
// are empty, never an error.
func Window[T any](items []T, start int, count *int) []T {
	if start < 0 {
		start = 0
	}
	if start >= len(items) {
		return []T{}
	}
	end := len(items)
	if count != nil && *count < end-start {
		end = start + *count
	}
	return items[start:end]
}
