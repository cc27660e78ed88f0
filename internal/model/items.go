package model

import (
	"encoding/json"
	"sort"
	"strings"
)

// ItemSet is an unordered set of item labels, stored sorted and deduplicated
type ItemSet []string

// NewItemSet builds an ItemSet from raw labels (trimmed, empty labels dropped)
func NewItemSet(labels ...string) ItemSet {
	seen := make(map[string]bool, len(labels))
	set := make(ItemSet, 0, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		set = append(set, l)
	}
	sort.Strings(set)
	return set
}

// Len returns the cardinality of the set
func (s ItemSet) Len() int {
	return len(s)
}

// Contains reports whether the label is in the set
func (s ItemSet) Contains(label string) bool {
	i := sort.SearchStrings(s, label)
	return i < len(s) && s[i] == label
}

// ContainsAll reports whether every label of other is in s
func (s ItemSet) ContainsAll(other ItemSet) bool {
	for _, l := range other {
		if !s.Contains(l) {
			return false
		}
	}
	return true
}

// Minus returns the labels of s that are not in other
func (s ItemSet) Minus(other ItemSet) ItemSet {
	out := make(ItemSet, 0, len(s))
	for _, l := range s {
		if !other.Contains(l) {
			out = append(out, l)
		}
	}
	return out
}

// Union returns the sorted union of both sets
func (s ItemSet) Union(other ItemSet) ItemSet {
	return NewItemSet(append(append([]string{}, s...), other...)...)
}

// Key returns a canonical string form usable as a map key
func (s ItemSet) Key() string {
	return strings.Join(s, "\x1f")
}

// String renders the set as {a, b, c}
func (s ItemSet) String() string {
	return "{" + strings.Join(s, ", ") + "}"
}

// MarshalJSON encodes an empty set as [] rather than null
func (s ItemSet) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(s))
}

// UnmarshalJSON normalizes decoded labels into set form
func (s *ItemSet) UnmarshalJSON(data []byte) error {
	var labels []string
	if err := json.Unmarshal(data, &labels); err != nil {
		return err
	}
	*s = NewItemSet(labels...)
	return nil
}
