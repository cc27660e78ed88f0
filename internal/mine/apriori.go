// Package mine produces rule records from a transaction set with Apriori.
//
// Every frequent item set becomes one record. Its statistics enumerate every
// antecedent of size 0..n-1 in lexicographic order; the empty antecedent
// carries confidence equal to the set's support and lift 1.
package mine

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/ppiankov/rulescan/internal/model"
	"gonum.org/v1/gonum/stat/combin"
)

var (
	// ErrInvalidParams is returned for out-of-range mining parameters
	ErrInvalidParams = errors.New("invalid mining parameters")
	// ErrNoTransactions is returned when mining an empty transaction set
	ErrNoTransactions = errors.New("no transactions to mine")
)

// Miner runs Apriori with fixed parameters
type Miner struct {
	params model.MiningConfig
}

// NewMiner validates params and creates a miner
func NewMiner(params model.MiningConfig) (*Miner, error) {
	if params.MinSupport <= 0 || params.MinSupport > 1 {
		return nil, fmt.Errorf("%w: min_support must be in (0, 1], got %g", ErrInvalidParams, params.MinSupport)
	}
	if params.MinConfidence < 0 || params.MinConfidence > 1 {
		return nil, fmt.Errorf("%w: min_confidence must be in [0, 1], got %g", ErrInvalidParams, params.MinConfidence)
	}
	if params.MinLift < 0 {
		return nil, fmt.Errorf("%w: min_lift must be >= 0, got %g", ErrInvalidParams, params.MinLift)
	}
	if params.MaxLength < 0 {
		return nil, fmt.Errorf("%w: max_length must be >= 0, got %d", ErrInvalidParams, params.MaxLength)
	}
	return &Miner{params: params}, nil
}

// Params returns the miner's parameters
func (m *Miner) Params() model.MiningConfig {
	return m.params
}

// Mine returns one record per frequent item set, ordered by set size and then
// by label order
func (m *Miner) Mine(ctx context.Context, ts *model.TransactionSet) ([]model.RuleRecord, error) {
	if ts.Len() == 0 {
		return nil, ErrNoTransactions
	}

	counts, levels, err := m.frequentSets(ctx, ts)
	if err != nil {
		return nil, err
	}

	n := float64(ts.Len())
	records := []model.RuleRecord{}
	for _, level := range levels {
		for _, items := range level {
			stats := m.orderedStatistics(items, counts, n)
			if len(stats) == 0 {
				continue
			}
			records = append(records, model.RuleRecord{
				Items:      items,
				Support:    float64(counts[items.Key()]) / n,
				Statistics: stats,
			})
		}
	}
	return records, nil
}

// frequentSets runs the level-wise search and returns basket counts for every
// frequent set plus the sets grouped by size
func (m *Miner) frequentSets(ctx context.Context, ts *model.TransactionSet) (map[string]int, [][]model.ItemSet, error) {
	counts := make(map[string]int)
	n := float64(ts.Len())

	var singles []model.ItemSet
	for _, label := range ts.Items() {
		set := model.ItemSet{label}
		c := countBaskets(ts, set)
		if float64(c)/n >= m.params.MinSupport {
			counts[set.Key()] = c
			singles = append(singles, set)
		}
	}

	var levels [][]model.ItemSet
	current := singles
	for size := 1; len(current) > 0; size++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("mining cancelled at size %d: %w", size, err)
		}
		levels = append(levels, current)
		if m.params.MaxLength > 0 && size >= m.params.MaxLength {
			break
		}

		var next []model.ItemSet
		for _, cand := range candidates(current, counts) {
			c := countBaskets(ts, cand)
			if float64(c)/n >= m.params.MinSupport {
				counts[cand.Key()] = c
				next = append(next, cand)
			}
		}
		current = next
	}

	return counts, levels, nil
}

// candidates joins frequent sets of size k sharing their first k-1 labels and
// keeps only those whose every k-subset is frequent
func candidates(frequent []model.ItemSet, counts map[string]int) []model.ItemSet {
	var out []model.ItemSet
	for i := 0; i < len(frequent); i++ {
		for j := i + 1; j < len(frequent); j++ {
			a, b := frequent[i], frequent[j]
			k := len(a)
			if !samePrefix(a, b, k-1) {
				continue
			}
			cand := make(model.ItemSet, 0, k+1)
			cand = append(cand, a...)
			cand = append(cand, b[k-1])
			sort.Strings(cand)
			if allSubsetsFrequent(cand, counts) {
				out = append(out, cand)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return lessItems(out[i], out[j]) })
	return out
}

func allSubsetsFrequent(cand model.ItemSet, counts map[string]int) bool {
	for _, idx := range combin.Combinations(len(cand), len(cand)-1) {
		if _, ok := counts[pick(cand, idx).Key()]; !ok {
			return false
		}
	}
	return true
}

// orderedStatistics builds every antecedent => consequent split of items that
// passes the confidence and lift floors
func (m *Miner) orderedStatistics(items model.ItemSet, counts map[string]int, n float64) []model.OrderedStatistic {
	total := counts[items.Key()]
	var stats []model.OrderedStatistic

	for baseLen := 0; baseLen < len(items); baseLen++ {
		for _, idx := range subsetIndices(len(items), baseLen) {
			base := pick(items, idx)
			add := items.Minus(base)

			baseCount := int(n)
			if baseLen > 0 {
				baseCount = counts[base.Key()]
			}
			addCount := counts[add.Key()]
			if baseCount == 0 || addCount == 0 {
				continue
			}

			confidence := float64(total) / float64(baseCount)
			lift := confidence / (float64(addCount) / n)
			if confidence < m.params.MinConfidence || lift < m.params.MinLift {
				continue
			}

			stats = append(stats, model.OrderedStatistic{
				ItemsBase:  base,
				ItemsAdd:   add,
				Confidence: confidence,
				Lift:       lift,
			})
		}
	}
	return stats
}

// subsetIndices lists the k-combinations of 0..n-1 in lexicographic order
func subsetIndices(n, k int) [][]int {
	if k == 0 {
		return [][]int{{}}
	}
	return combin.Combinations(n, k)
}

func pick(items model.ItemSet, idx []int) model.ItemSet {
	out := make(model.ItemSet, len(idx))
	for i, x := range idx {
		out[i] = items[x]
	}
	return out
}

func countBaskets(ts *model.TransactionSet, set model.ItemSet) int {
	c := 0
	for _, b := range ts.Baskets {
		if b.ContainsAll(set) {
			c++
		}
	}
	return c
}

func samePrefix(a, b model.ItemSet, k int) bool {
	for i := 0; i < k; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func lessItems(a, b model.ItemSet) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
