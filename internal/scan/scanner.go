// Package scan flags mined rule records whose measures meet caller-supplied
// thresholds.
//
// Confidence and lift are checked against the per-record maximum only: a
// record holding several qualifying statistics is reported once, at the first
// statistic carrying the maximum. SelectAll opts into reporting every
// qualifying statistic instead.
package scan

import (
	"math"

	"github.com/ppiankov/rulescan/internal/model"
)

// Scanner applies thresholds to rule records.
// Scan is a pure function of its arguments:
//   - Never mutates the records
//   - Never performs I/O
//   - Produces deterministic, repeatable output
type Scanner struct{}

// NewScanner creates a new scanner
func NewScanner() *Scanner {
	return &Scanner{}
}

// Scan runs all four checks over records.
//
// In strict mode the first out-of-range measure aborts the scan with a
// *ValidationError wrapping ErrInvalidInput. In lenient mode records carrying
// a violation are left out of every output and the violations are returned in
// ScanResult.Violations.
func (s *Scanner) Scan(records []model.RuleRecord, th model.ThresholdConfig) (model.ScanResult, error) {
	result := model.ScanResult{
		HighSupport:    []int{},
		HighConfidence: []model.IndexPair{},
		HighLift:       []model.IndexPair{},
		WideAntecedent: []model.IndexPair{},
	}
	lenient := th.Mode == model.ModeLenient

	for i, rec := range records {
		if violations := checkRecord(i, rec); len(violations) > 0 {
			if !lenient {
				return model.ScanResult{}, &ValidationError{Violations: violations[:1]}
			}
			result.Violations = append(result.Violations, violations...)
			continue
		}

		if rec.Support >= th.Support {
			result.HighSupport = append(result.HighSupport, i)
		}

		bestConf, bestLift := -1, -1
		for j, st := range rec.Statistics {
			if st.ItemsBase.Len() >= th.MinAntecedentSize {
				result.WideAntecedent = append(result.WideAntecedent, model.IndexPair{Record: i, Statistic: j})
			}

			if th.Selection == model.SelectAll {
				if st.Confidence >= th.Confidence {
					result.HighConfidence = append(result.HighConfidence, model.IndexPair{Record: i, Statistic: j})
				}
				if st.Lift >= th.Lift {
					result.HighLift = append(result.HighLift, model.IndexPair{Record: i, Statistic: j})
				}
				continue
			}

			// Strict comparison keeps the first index on ties
			if bestConf < 0 || st.Confidence > rec.Statistics[bestConf].Confidence {
				bestConf = j
			}
			if bestLift < 0 || st.Lift > rec.Statistics[bestLift].Lift {
				bestLift = j
			}
		}

		if bestConf >= 0 && rec.Statistics[bestConf].Confidence >= th.Confidence {
			result.HighConfidence = append(result.HighConfidence, model.IndexPair{Record: i, Statistic: bestConf})
		}
		if bestLift >= 0 && rec.Statistics[bestLift].Lift >= th.Lift {
			result.HighLift = append(result.HighLift, model.IndexPair{Record: i, Statistic: bestLift})
		}
	}

	return result, nil
}

// Scan is a convenience wrapper around a zero-value Scanner
func Scan(records []model.RuleRecord, th model.ThresholdConfig) (model.ScanResult, error) {
	return NewScanner().Scan(records, th)
}

// Validate checks every record against the range invariants without scanning
func Validate(records []model.RuleRecord) []model.Violation {
	var out []model.Violation
	for i, rec := range records {
		out = append(out, checkRecord(i, rec)...)
	}
	return out
}

// checkRecord returns the range violations of one record, record-level first
func checkRecord(i int, rec model.RuleRecord) []model.Violation {
	var out []model.Violation
	if !inUnitInterval(rec.Support) {
		out = append(out, model.Violation{Record: i, Statistic: -1, Field: "support", Value: rec.Support})
	}
	for j, st := range rec.Statistics {
		if !inUnitInterval(st.Confidence) {
			out = append(out, model.Violation{Record: i, Statistic: j, Field: "confidence", Value: st.Confidence})
		}
		if math.IsNaN(st.Lift) || st.Lift < 0 {
			out = append(out, model.Violation{Record: i, Statistic: j, Field: "lift", Value: st.Lift})
		}
	}
	return out
}

func inUnitInterval(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}
