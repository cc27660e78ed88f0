package model

import "sort"

// Basket is one observed set of co-occurring items
type Basket = ItemSet

// TransactionSet is an ordered, read-only sequence of baskets
type TransactionSet struct {
	Name    string   `json:"name,omitempty"` // Where the baskets came from (path, URL, sample name)
	Baskets []Basket `json:"baskets"`
}

// NewTransactionSet normalizes raw rows into baskets, dropping rows with no items
func NewTransactionSet(name string, rows [][]string) *TransactionSet {
	ts := &TransactionSet{Name: name}
	for _, row := range rows {
		b := NewItemSet(row...)
		if b.Len() == 0 {
			continue
		}
		ts.Baskets = append(ts.Baskets, b)
	}
	return ts
}

// Len returns the number of baskets
func (t *TransactionSet) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Baskets)
}

// Items returns every distinct label across all baskets, sorted
func (t *TransactionSet) Items() []string {
	seen := make(map[string]bool)
	var items []string
	for _, b := range t.Baskets {
		for _, l := range b {
			if !seen[l] {
				seen[l] = true
				items = append(items, l)
			}
		}
	}
	sort.Strings(items)
	return items
}

// Support returns the fraction of baskets containing every label of set.
// The empty set has support 1.
func (t *TransactionSet) Support(set ItemSet) float64 {
	if t.Len() == 0 {
		return 0
	}
	count := 0
	for _, b := range t.Baskets {
		if b.ContainsAll(set) {
			count++
		}
	}
	return float64(count) / float64(len(t.Baskets))
}
