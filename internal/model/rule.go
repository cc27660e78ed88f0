package model

// RuleRecord is one frequent item set with its rule statistics
type RuleRecord struct {
	Items      ItemSet            `json:"items"`
	Support    float64            `json:"support"`    // Fraction of baskets containing Items
	Statistics []OrderedStatistic `json:"statistics"` // One per antecedent/consequent split
}

// OrderedStatistic is one antecedent => consequent split of a record's items
type OrderedStatistic struct {
	ItemsBase  ItemSet `json:"items_base"` // Antecedent (left-hand side)
	ItemsAdd   ItemSet `json:"items_add"`  // Consequent (right-hand side)
	Confidence float64 `json:"confidence"` // P(add | base)
	Lift       float64 `json:"lift"`       // confidence / support(add); 1.0 means independent
}

// IndexPair addresses records[Record].Statistics[Statistic]
type IndexPair struct {
	Record    int `json:"record"`
	Statistic int `json:"statistic"`
}

// Resolve returns the statistic addressed by the pair, or false when out of range
func (p IndexPair) Resolve(records []RuleRecord) (RuleRecord, OrderedStatistic, bool) {
	if p.Record < 0 || p.Record >= len(records) {
		return RuleRecord{}, OrderedStatistic{}, false
	}
	rec := records[p.Record]
	if p.Statistic < 0 || p.Statistic >= len(rec.Statistics) {
		return rec, OrderedStatistic{}, false
	}
	return rec, rec.Statistics[p.Statistic], true
}
