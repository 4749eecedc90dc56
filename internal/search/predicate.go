package search

// Grain is the row granularity a predicate is evaluated at.
type Grain int

const (
	// TierGrain predicates filter individual tier rows before they are
	// grouped into petitions.
	TierGrain Grain = iota
	// PetitionGrain predicates filter grouped petitions.
	PetitionGrain
)

// PredicateKind identifies a filter.
type PredicateKind int

const (
	TierCostAtMost PredicateKind = iota
	CategoryIn
	OwnerIs
	SupportedBy
	TextMatch
)

// Predicate is one independent filter. Only the field matching Kind is set.
type Predicate struct {
	Kind  PredicateKind
	Grain Grain
	Text  string  // TextMatch
	IDs   []int64 // CategoryIn
	ID    int64   // OwnerIs, SupportedBy
	Cost  int64   // TierCostAtMost
}

// FilterSet is a conjunction of predicates plus the requested ranking.
type FilterSet struct {
	Predicates []Predicate
	Sort       SortDirective
}

// BuildFilters converts criteria into predicates. Absent filters contribute
// nothing; the order of the result is fixed.
func BuildFilters(c Criteria) FilterSet {
	var preds []Predicate

	if c.MaxCost != nil {
		preds = append(preds, Predicate{Kind: TierCostAtMost, Grain: TierGrain, Cost: *c.MaxCost})
	}
	if c.CategoryIDs != nil {
		ids := make([]int64, len(c.CategoryIDs))
		copy(ids, c.CategoryIDs)
		preds = append(preds, Predicate{Kind: CategoryIn, Grain: PetitionGrain, IDs: ids})
	}
	if c.OwnerID != nil {
		preds = append(preds, Predicate{Kind: OwnerIs, Grain: PetitionGrain, ID: *c.OwnerID})
	}
	if c.SupporterID != nil {
		preds = append(preds, Predicate{Kind: SupportedBy, Grain: PetitionGrain, ID: *c.SupporterID})
	}
	if c.Query != nil {
		preds = append(preds, Predicate{Kind: TextMatch, Grain: PetitionGrain, Text: *c.Query})
	}

	sort := c.SortBy
	if sort == "" {
		sort = DefaultSort
	}

	return FilterSet{Predicates: preds, Sort: sort}
}
