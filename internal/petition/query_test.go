package petition

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdpetition/crowdpetition/internal/search"
)

func planFor(t *testing.T, raw search.RawParams) search.Plan {
	t.Helper()
	c, err := search.Normalize(raw)
	require.NoError(t, err)
	return search.PlanQuery(search.BuildFilters(c))
}

func sp(s string) *string { return &s }

func TestBuildRankedQuery_NoFilters(t *testing.T) {
	query, args, err := buildRankedQuery(planFor(t, search.RawParams{}))
	require.NoError(t, err)

	assert.Empty(t, args)
	assert.NotContains(t, query, "WHERE")
	assert.True(t, strings.HasSuffix(query, "ORDER BY p.creation_date ASC NULLS LAST, p.id ASC NULLS LAST"))
}

func TestBuildRankedQuery_AllFiltersAreParameterized(t *testing.T) {
	hostile := "'; DROP TABLE petition; --"
	plan := planFor(t, search.RawParams{
		Q:              sp(hostile),
		CategoryIDs:    []string{"1", "2"},
		SupportingCost: sp("15"),
		OwnerID:        sp("7"),
		SupporterID:    sp("8"),
		SortBy:         sp("COST_DESC"),
	})

	query, args, err := buildRankedQuery(plan)
	require.NoError(t, err)

	assert.NotContains(t, query, "DROP TABLE")
	assert.Contains(t, query, "p.id IN (SELECT tf.petition_id FROM support_tier tf WHERE tf.cost <= $1)")
	assert.Contains(t, query, "p.category_id = ANY($2)")
	assert.Contains(t, query, "p.owner_id = $3")
	assert.Contains(t, query, "sf.user_id = $4")
	assert.Contains(t, query, "(p.title ILIKE $5 OR p.description ILIKE $5)")
	assert.Contains(t, query, "ORDER BY t.min_cost DESC NULLS LAST, p.id ASC NULLS LAST")

	require.Len(t, args, 5)
	assert.Equal(t, int64(15), args[0])
	assert.Equal(t, []int64{1, 2}, args[1])
	assert.Equal(t, int64(7), args[2])
	assert.Equal(t, int64(8), args[3])
	assert.Equal(t, "%"+hostile+"%", args[4])
}

func TestBuildRankedQuery_SortColumns(t *testing.T) {
	tests := []struct {
		sortBy string
		want   string
	}{
		{"ALPHABETICAL_ASC", `p.title COLLATE "C" ASC NULLS LAST`},
		{"ALPHABETICAL_DESC", `p.title COLLATE "C" DESC NULLS LAST`},
		{"COST_ASC", "t.min_cost ASC NULLS LAST"},
		{"CREATED_DESC", "p.creation_date DESC NULLS LAST"},
	}

	for _, tt := range tests {
		t.Run(tt.sortBy, func(t *testing.T) {
			query, _, err := buildRankedQuery(planFor(t, search.RawParams{SortBy: sp(tt.sortBy)}))
			require.NoError(t, err)
			assert.Contains(t, query, "ORDER BY "+tt.want+", p.id ASC NULLS LAST")
		})
	}
}

func TestBuildRankedQuery_UnknownKinds(t *testing.T) {
	_, _, err := buildRankedQuery(search.Plan{TierFilters: []search.Predicate{{Kind: search.TextMatch}}})
	assert.Error(t, err)

	_, _, err = buildRankedQuery(search.Plan{PetitionFilters: []search.Predicate{{Kind: search.TierCostAtMost}}})
	assert.Error(t, err)

	_, _, err = buildRankedQuery(search.Plan{Orders: []search.Order{{Key: search.SortKey(99)}}})
	assert.Error(t, err)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% off\_now\\`, escapeLike(`50% off_now\`))
	assert.Equal(t, "plain", escapeLike("plain"))
}
