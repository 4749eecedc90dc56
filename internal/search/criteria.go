package search

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ErrInvalidCriteria is matched by every ValidationError returned from Normalize.
var ErrInvalidCriteria = errors.New("invalid search criteria")

// SortDirective is the ranking mode applied to a listing query.
type SortDirective string

const (
	AlphabeticalAsc  SortDirective = "ALPHABETICAL_ASC"
	AlphabeticalDesc SortDirective = "ALPHABETICAL_DESC"
	CostAsc          SortDirective = "COST_ASC"
	CostDesc         SortDirective = "COST_DESC"
	CreatedAsc       SortDirective = "CREATED_ASC"
	CreatedDesc      SortDirective = "CREATED_DESC"
)

// DefaultSort is used when the caller does not supply sortBy.
const DefaultSort = CreatedAsc

var sortDirectives = []SortDirective{
	AlphabeticalAsc, AlphabeticalDesc, CostAsc, CostDesc, CreatedAsc, CreatedDesc,
}

// Valid reports whether d is one of the six recognized directives.
func (d SortDirective) Valid() bool {
	for _, s := range sortDirectives {
		if s == d {
			return true
		}
	}
	return false
}

// FieldError represents a validation error on a specific query parameter.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every malformed listing parameter.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidCriteria, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidCriteria
}

// RawParams holds listing parameters exactly as supplied. A nil pointer means
// the parameter was absent.
type RawParams struct {
	StartIndex     *string
	Count          *string
	Q              *string
	CategoryIDs    []string
	SupportingCost *string
	OwnerID        *string
	SupporterID    *string
	SortBy         *string
}

// ParamsFromQuery extracts RawParams from a URL query. categoryIds may be
// repeated.
func ParamsFromQuery(v url.Values) RawParams {
	get := func(key string) *string {
		if !v.Has(key) {
			return nil
		}
		s := v.Get(key)
		return &s
	}

	return RawParams{
		StartIndex:     get("startIndex"),
		Count:          get("count"),
		Q:              get("q"),
		CategoryIDs:    v["categoryIds"],
		SupportingCost: get("supportingCost"),
		OwnerID:        get("ownerId"),
		SupporterID:    get("supporterId"),
		SortBy:         get("sortBy"),
	}
}

// Criteria is the typed, fully-resolved form of RawParams.
type Criteria struct {
	StartIndex  int
	Count       *int // nil is unbounded
	Query       *string
	CategoryIDs []int64 // nil when the filter is absent
	MaxCost     *int64
	OwnerID     *int64
	SupporterID *int64
	SortBy      SortDirective
}

// Normalize validates raw parameters and resolves defaults. It has no side
// effects and never touches the store.
func Normalize(raw RawParams) (Criteria, error) {
	var errs []FieldError
	c := Criteria{SortBy: DefaultSort}

	if raw.StartIndex != nil {
		if n, ok := parseNonNegative(*raw.StartIndex); ok {
			c.StartIndex = int(n)
		} else {
			errs = append(errs, FieldError{Field: "startIndex", Message: "startIndex must be a non-negative integer"})
		}
	}

	if raw.Count != nil {
		if n, ok := parseNonNegative(*raw.Count); ok {
			count := int(n)
			c.Count = &count
		} else {
			errs = append(errs, FieldError{Field: "count", Message: "count must be a non-negative integer"})
		}
	}

	if raw.Q != nil {
		if *raw.Q == "" {
			errs = append(errs, FieldError{Field: "q", Message: "q must not be empty"})
		} else {
			q := *raw.Q
			c.Query = &q
		}
	}

	if raw.CategoryIDs != nil {
		ids := make([]int64, 0, len(raw.CategoryIDs))
		for _, s := range raw.CategoryIDs {
			id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
			if err != nil {
				errs = append(errs, FieldError{Field: "categoryIds", Message: fmt.Sprintf("%q is not an integer", s)})
				continue
			}
			ids = append(ids, id)
		}
		c.CategoryIDs = ids
	}

	c.MaxCost = optionalID(raw.SupportingCost, "supportingCost", &errs)
	c.OwnerID = optionalID(raw.OwnerID, "ownerId", &errs)
	c.SupporterID = optionalID(raw.SupporterID, "supporterId", &errs)

	if raw.SortBy != nil {
		d := SortDirective(*raw.SortBy)
		if d.Valid() {
			c.SortBy = d
		} else {
			errs = append(errs, FieldError{Field: "sortBy", Message: fmt.Sprintf("sortBy must be one of: %s", joinDirectives())})
		}
	}

	if len(errs) > 0 {
		return Criteria{}, &ValidationError{Fields: errs}
	}
	return c, nil
}

func optionalID(raw *string, field string, errs *[]FieldError) *int64 {
	if raw == nil {
		return nil
	}
	n, ok := parseNonNegative(*raw)
	if !ok {
		*errs = append(*errs, FieldError{Field: field, Message: field + " must be a non-negative integer"})
		return nil
	}
	return &n
}

// parseNonNegative accepts plain decimal digits only. Sign prefixes are
// rejected, and values must fit in an int64.
func parseNonNegative(s string) (int64, bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 63)
	if err != nil {
		return 0, false
	}
	return int64(n), true
}

func joinDirectives() string {
	names := make([]string, 0, len(sortDirectives))
	for _, d := range sortDirectives {
		names = append(names, string(d))
	}
	return strings.Join(names, ", ")
}
