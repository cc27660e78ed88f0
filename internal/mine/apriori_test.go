package mine

import (
	"context"
	"errors"
	"testing"

	"github.com/ppiankov/rulescan/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func groceryBaskets() *model.TransactionSet {
	return model.NewTransactionSet("grocery", [][]string{
		{"milk", "cheese", "bread", "soda"},
		{"milk", "ice cream", "meat", "candy"},
		{"bread", "milk", "water", "juice"},
		{"tools", "eggs", "milk", "soda"},
		{"fruit", "tools", "water", "milk"},
		{"milk", "fruit", "bread", "candy"},
	})
}

func findRecord(t *testing.T, records []model.RuleRecord, labels ...string) model.RuleRecord {
	t.Helper()
	key := model.NewItemSet(labels...).Key()
	for _, r := range records {
		if r.Items.Key() == key {
			return r
		}
	}
	t.Fatalf("record %v not found", labels)
	return model.RuleRecord{}
}

func TestNewMiner_InvalidParams(t *testing.T) {
	cases := []model.MiningConfig{
		{MinSupport: 0},
		{MinSupport: 1.5},
		{MinSupport: 0.1, MinConfidence: -0.1},
		{MinSupport: 0.1, MinConfidence: 1.1},
		{MinSupport: 0.1, MinLift: -1},
		{MinSupport: 0.1, MaxLength: -1},
	}
	for _, params := range cases {
		_, err := NewMiner(params)
		assert.ErrorIs(t, err, ErrInvalidParams, "params %+v", params)
	}
}

func TestMine_EmptyTransactions(t *testing.T) {
	m, err := NewMiner(model.DefaultMining())
	require.NoError(t, err)

	_, err = m.Mine(context.Background(), model.NewTransactionSet("empty", nil))
	assert.True(t, errors.Is(err, ErrNoTransactions))
}

func TestMine_GroceryDefaults(t *testing.T) {
	m, err := NewMiner(model.DefaultMining())
	require.NoError(t, err)

	records, err := m.Mine(context.Background(), groceryBaskets())
	require.NoError(t, err)

	// With min_support 0.1 over six baskets every co-occurring subset is frequent
	assert.Len(t, records, distinctSubsets(groceryBaskets()))

	first := records[0]
	assert.Equal(t, model.ItemSet{"bread"}, first.Items)
	assert.InDelta(t, 0.5, first.Support, 1e-9)

	milk := findRecord(t, records, "milk")
	assert.InDelta(t, 1.0, milk.Support, 1e-9)
	require.Len(t, milk.Statistics, 1)
	assert.Empty(t, milk.Statistics[0].ItemsBase)
	assert.Equal(t, model.ItemSet{"milk"}, milk.Statistics[0].ItemsAdd)
	assert.InDelta(t, 1.0, milk.Statistics[0].Confidence, 1e-9)
	assert.InDelta(t, 1.0, milk.Statistics[0].Lift, 1e-9)

	pair := findRecord(t, records, "candy", "ice cream")
	require.Len(t, pair.Statistics, 3)
	assert.Empty(t, pair.Statistics[0].ItemsBase)
	assert.Equal(t, model.ItemSet{"candy"}, pair.Statistics[1].ItemsBase)
	assert.InDelta(t, 0.5, pair.Statistics[1].Confidence, 1e-9)
	assert.InDelta(t, 3.0, pair.Statistics[1].Lift, 1e-9)
	assert.Equal(t, model.ItemSet{"ice cream"}, pair.Statistics[2].ItemsBase)
	assert.InDelta(t, 1.0, pair.Statistics[2].Confidence, 1e-9)
	assert.InDelta(t, 3.0, pair.Statistics[2].Lift, 1e-9)
}

func TestMine_RecordsOrderedBySize(t *testing.T) {
	m, err := NewMiner(model.DefaultMining())
	require.NoError(t, err)

	records, err := m.Mine(context.Background(), groceryBaskets())
	require.NoError(t, err)

	for i := 1; i < len(records); i++ {
		prev, cur := records[i-1].Items, records[i].Items
		if prev.Len() == cur.Len() {
			assert.True(t, lessItems(prev, cur), "%v should sort before %v", prev, cur)
		} else {
			assert.Less(t, prev.Len(), cur.Len())
		}
	}
}

func TestMine_StatisticsCoverEverySplit(t *testing.T) {
	m, err := NewMiner(model.DefaultMining())
	require.NoError(t, err)

	records, err := m.Mine(context.Background(), groceryBaskets())
	require.NoError(t, err)

	quad := findRecord(t, records, "bread", "cheese", "milk", "soda")
	// 2^4 - 1 splits: every proper subset as antecedent
	require.Len(t, quad.Statistics, 15)
	for _, st := range quad.Statistics {
		assert.Equal(t, quad.Items, st.ItemsBase.Union(st.ItemsAdd))
		assert.Empty(t, st.ItemsBase.Minus(quad.Items))
		for _, l := range st.ItemsBase {
			assert.False(t, st.ItemsAdd.Contains(l))
		}
		assert.GreaterOrEqual(t, st.Confidence, 0.0)
		assert.LessOrEqual(t, st.Confidence, 1.0)
		assert.GreaterOrEqual(t, st.Lift, 0.0)
	}
}

func TestMine_MinSupportPrunes(t *testing.T) {
	m, err := NewMiner(model.MiningConfig{MinSupport: 0.5})
	require.NoError(t, err)

	records, err := m.Mine(context.Background(), groceryBaskets())
	require.NoError(t, err)

	var got []string
	for _, r := range records {
		got = append(got, r.Items.String())
	}
	assert.Equal(t, []string{"{bread}", "{milk}", "{bread, milk}"}, got)
}

func TestMine_MaxLength(t *testing.T) {
	m, err := NewMiner(model.MiningConfig{MinSupport: 0.1, MaxLength: 2})
	require.NoError(t, err)

	records, err := m.Mine(context.Background(), groceryBaskets())
	require.NoError(t, err)
	for _, r := range records {
		assert.LessOrEqual(t, r.Items.Len(), 2)
	}
}

func TestMine_ConfidenceAndLiftFloors(t *testing.T) {
	m, err := NewMiner(model.MiningConfig{MinSupport: 0.1, MinConfidence: 0.9, MinLift: 2})
	require.NoError(t, err)

	records, err := m.Mine(context.Background(), groceryBaskets())
	require.NoError(t, err)
	require.NotEmpty(t, records)

	for _, r := range records {
		require.NotEmpty(t, r.Statistics, "records without statistics must be dropped")
		for _, st := range r.Statistics {
			assert.GreaterOrEqual(t, st.Confidence, 0.9)
			assert.GreaterOrEqual(t, st.Lift, 2.0)
		}
	}
	// Single-item records only carry the empty antecedent with lift 1
	for _, r := range records {
		assert.Greater(t, r.Items.Len(), 1)
	}
}

func TestMine_Cancelled(t *testing.T) {
	m, err := NewMiner(model.DefaultMining())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = m.Mine(ctx, groceryBaskets())
	assert.ErrorIs(t, err, context.Canceled)
}

// distinctSubsets counts the non-empty subsets appearing in at least one basket
func distinctSubsets(ts *model.TransactionSet) int {
	seen := make(map[string]bool)
	for _, b := range ts.Baskets {
		for mask := 1; mask < 1<<len(b); mask++ {
			var labels []string
			for i := range b {
				if mask&(1<<i) != 0 {
					labels = append(labels, b[i])
				}
			}
			seen[model.NewItemSet(labels...).Key()] = true
		}
	}
	return len(seen)
}
