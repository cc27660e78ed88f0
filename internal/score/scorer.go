// Package score derives transparent diagnostic signals from a scan.
package score

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/ppiankov/rulescan/internal/model"
)

// Scorer calculates the coverage index and generates signals
type Scorer struct{}

// NewScorer creates a new scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Calculate scores a scan of records against th. Records excluded by a
// lenient scan do not contribute to distributions.
func (s *Scorer) Calculate(records []model.RuleRecord, result model.ScanResult, th model.ThresholdConfig) model.Score {
	if len(records) == 0 {
		return model.Score{
			Index: 0,
			Signals: []model.Signal{{
				Type:        model.SignalNoRules,
				Severity:    model.SeverityCritical,
				Description: "No rule records to scan",
				Data:        map[string]interface{}{"records": 0},
			}},
		}
	}

	excluded := excludedRecords(result.Violations)

	var supports, confidences, lifts []float64
	for i, r := range records {
		if excluded[i] {
			continue
		}
		supports = append(supports, r.Support)
		for _, st := range r.Statistics {
			confidences = append(confidences, st.Confidence)
			lifts = append(lifts, st.Lift)
		}
	}

	var signals []model.Signal

	// 1. Distributions
	signals = append(signals,
		s.distribution(model.SignalSupportDistribution, "Support", supports, th.Support),
		s.distribution(model.SignalConfidenceDistribution, "Confidence", confidences, th.Confidence),
		s.liftDistribution(lifts, th.Lift),
	)

	// 2. Threshold coverage
	index, coverageSignal := s.coverage(len(records), result)
	signals = append(signals, coverageSignal)

	// 3. Hits hidden by per-record max selection
	if th.Selection != model.SelectAll {
		if sig, ok := s.maskedHits(records, result, th, excluded); ok {
			signals = append(signals, sig)
		}
	}

	// 4. Violations
	if len(result.Violations) > 0 {
		signals = append(signals, model.Signal{
			Type:        model.SignalViolations,
			Severity:    model.SeverityWarning,
			Description: fmt.Sprintf("%d range violations in %d records (excluded)", len(result.Violations), len(excluded)),
			Data: map[string]interface{}{
				"violations": len(result.Violations),
				"records":    len(excluded),
			},
		})
	}

	return model.Score{Index: index, Signals: signals}
}

func (s *Scorer) distribution(typ model.SignalType, label string, data []float64, threshold float64) model.Signal {
	if len(data) == 0 {
		return model.Signal{
			Type:        typ,
			Severity:    model.SeverityInfo,
			Description: label + ": no samples",
			Data:        map[string]interface{}{"samples": 0},
		}
	}

	d := summarize(data)
	d["threshold"] = threshold
	d["at_or_above"] = countAtLeast(data, threshold)

	return model.Signal{
		Type:        typ,
		Severity:    model.SeverityInfo,
		Description: fmt.Sprintf("%s: median %.3f, p90 %.3f, max %.3f", label, d["median"], d["p90"], d["max"]),
		Data:        d,
	}
}

func (s *Scorer) liftDistribution(lifts []float64, threshold float64) model.Signal {
	sig := s.distribution(model.SignalLiftDistribution, "Lift", lifts, threshold)
	if len(lifts) == 0 {
		return sig
	}

	positive := 0
	for _, l := range lifts {
		if l > 1 {
			positive++
		}
	}
	share := float64(positive) / float64(len(lifts))
	sig.Data["positive_association_share"] = share
	sig.Data["formula"] = "share of statistics with lift > 1"
	if share == 0 {
		sig.Severity = model.SeverityWarning
		sig.Description += " (no positive associations)"
	}
	return sig
}

// coverage returns the 0-100 index: share of records flagged by any check
func (s *Scorer) coverage(total int, result model.ScanResult) (int, model.Signal) {
	flagged := make(map[int]bool)
	for _, i := range result.HighSupport {
		flagged[i] = true
	}
	for _, p := range result.HighConfidence {
		flagged[p.Record] = true
	}
	for _, p := range result.HighLift {
		flagged[p.Record] = true
	}
	for _, p := range result.WideAntecedent {
		flagged[p.Record] = true
	}

	index := int(math.Round(float64(len(flagged)) * 100 / float64(total)))

	severity := model.SeverityInfo
	if len(flagged) == 0 {
		severity = model.SeverityWarning
	}

	return index, model.Signal{
		Type:     model.SignalThresholdCoverage,
		Severity: severity,
		Description: fmt.Sprintf("%d of %d records flagged (support %d, confidence %d, lift %d, wide %d)",
			len(flagged), total, len(result.HighSupport), len(result.HighConfidence), len(result.HighLift), len(result.WideAntecedent)),
		Data: map[string]interface{}{
			"records":         total,
			"flagged":         len(flagged),
			"high_support":    len(result.HighSupport),
			"high_confidence": len(result.HighConfidence),
			"high_lift":       len(result.HighLift),
			"wide_antecedent": len(result.WideAntecedent),
			"index":           index,
			"formula":         "round(flagged_records / records * 100)",
		},
	}
}

// maskedHits counts statistics meeting the confidence or lift threshold that
// max selection does not report
func (s *Scorer) maskedHits(records []model.RuleRecord, result model.ScanResult, th model.ThresholdConfig, excluded map[int]bool) (model.Signal, bool) {
	reportedConf := pairSet(result.HighConfidence)
	reportedLift := pairSet(result.HighLift)

	maskedConf, maskedLift := 0, 0
	for i, r := range records {
		if excluded[i] {
			continue
		}
		for j, st := range r.Statistics {
			p := model.IndexPair{Record: i, Statistic: j}
			if st.Confidence >= th.Confidence && !reportedConf[p] {
				maskedConf++
			}
			if st.Lift >= th.Lift && !reportedLift[p] {
				maskedLift++
			}
		}
	}

	if maskedConf == 0 && maskedLift == 0 {
		return model.Signal{}, false
	}

	return model.Signal{
		Type:        model.SignalMaskedHits,
		Severity:    model.SeverityWarning,
		Description: fmt.Sprintf("%d confidence and %d lift hits hidden by per-record max selection", maskedConf, maskedLift),
		Data: map[string]interface{}{
			"confidence": maskedConf,
			"lift":       maskedLift,
			"hint":       "rerun with selection=all to list every qualifying statistic",
		},
	}, true
}

func summarize(data []float64) map[string]interface{} {
	in := stats.Float64Data(data)
	mean, _ := stats.Mean(in)
	median, _ := stats.Median(in)
	p90, _ := stats.Percentile(in, 90)
	maxVal, _ := stats.Max(in)
	return map[string]interface{}{
		"samples": len(data),
		"mean":    mean,
		"median":  median,
		"p90":     p90,
		"max":     maxVal,
	}
}

func countAtLeast(data []float64, threshold float64) int {
	n := 0
	for _, v := range data {
		if v >= threshold {
			n++
		}
	}
	return n
}

func excludedRecords(violations []model.Violation) map[int]bool {
	out := make(map[int]bool)
	for _, v := range violations {
		out[v.Record] = true
	}
	return out
}

func pairSet(pairs []model.IndexPair) map[model.IndexPair]bool {
	out := make(map[model.IndexPair]bool, len(pairs))
	for _, p := range pairs {
		out[p] = true
	}
	return out
}
