package source

import (
	"fmt"
	"math/rand"

	"github.com/ppiankov/rulescan/internal/model"
)

// Grocery returns the six grocery baskets of the original analysis
func Grocery() *model.TransactionSet {
	return model.NewTransactionSet("sample:grocery", [][]string{
		{"milk", "cheese", "bread", "soda"},
		{"milk", "ice cream", "meat", "candy"},
		{"bread", "milk", "water", "juice"},
		{"tools", "eggs", "milk", "soda"},
		{"fruit", "tools", "water", "milk"},
		{"milk", "fruit", "bread", "candy"},
	})
}

// catalog is the item universe of synthetic baskets
var catalog = []string{
	"milk", "bread", "butter", "eggs", "cheese", "soda", "chips", "salsa",
	"coffee", "filters", "pasta", "tomato sauce", "beer", "diapers", "fruit",
	"water", "juice", "candy", "ice cream", "meat", "tools", "batteries",
}

// pattern is a planted co-occurrence: when trigger is drawn, follow is added
// with the given probability
type pattern struct {
	trigger []string
	follow  string
	rate    float64
}

var patterns = []pattern{
	{trigger: []string{"chips"}, follow: "salsa", rate: 0.8},
	{trigger: []string{"coffee"}, follow: "filters", rate: 0.7},
	{trigger: []string{"pasta"}, follow: "tomato sauce", rate: 0.75},
	{trigger: []string{"diapers"}, follow: "beer", rate: 0.6},
	{trigger: []string{"bread", "butter"}, follow: "eggs", rate: 0.65},
}

// Synthetic generates n baskets with planted patterns, deterministic per seed
func Synthetic(n int, seed int64) *model.TransactionSet {
	rng := rand.New(rand.NewSource(seed))

	rows := make([][]string, 0, n)
	for i := 0; i < n; i++ {
		size := 2 + rng.Intn(4)
		basket := make(map[string]bool, size+2)
		for len(basket) < size {
			basket[catalog[rng.Intn(len(catalog))]] = true
		}
		for _, p := range patterns {
			if hasAll(basket, p.trigger) && rng.Float64() < p.rate {
				basket[p.follow] = true
			}
		}

		row := make([]string, 0, len(basket))
		for item := range basket {
			row = append(row, item)
		}
		rows = append(rows, row)
	}

	return model.NewTransactionSet(fmt.Sprintf("synthetic:%d:%d", n, seed), rows)
}

func hasAll(basket map[string]bool, items []string) bool {
	for _, it := range items {
		if !basket[it] {
			return false
		}
	}
	return true
}
