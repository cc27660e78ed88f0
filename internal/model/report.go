package model

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// ScanResult lists the records and statistics that met each threshold
type ScanResult struct {
	HighSupport    []int       `json:"high_support"`    // Record indices
	HighConfidence []IndexPair `json:"high_confidence"` // One per record in max selection
	HighLift       []IndexPair `json:"high_lift"`       // One per record in max selection
	WideAntecedent []IndexPair `json:"wide_antecedent"` // Every qualifying statistic
	Violations     []Violation `json:"violations,omitempty"`
}

// Empty reports whether no check matched anything
func (r ScanResult) Empty() bool {
	return len(r.HighSupport) == 0 && len(r.HighConfidence) == 0 &&
		len(r.HighLift) == 0 && len(r.WideAntecedent) == 0
}

// Violation flags a measure outside its declared range
type Violation struct {
	Record    int     `json:"record"`
	Statistic int     `json:"statistic"` // -1 for record-level fields
	Field     string  `json:"field"`     // support, confidence, lift
	Value     float64 `json:"value"`
}

// MarshalJSON writes non-finite values as strings since JSON has no NaN or Inf
func (v Violation) MarshalJSON() ([]byte, error) {
	type plain Violation
	if !math.IsNaN(v.Value) && !math.IsInf(v.Value, 0) {
		return json.Marshal(plain(v))
	}
	return json.Marshal(struct {
		Record    int    `json:"record"`
		Statistic int    `json:"statistic"`
		Field     string `json:"field"`
		Value     string `json:"value"`
	}{v.Record, v.Statistic, v.Field, strconv.FormatFloat(v.Value, 'g', -1, 64)})
}

// Report is the complete output of one run
type Report struct {
	RunID        string          `json:"run_id"`
	Subject      string          `json:"subject"` // Dataset name
	GeneratedAt  time.Time       `json:"generated_at"`
	Transactions int             `json:"transactions"`
	Items        int             `json:"items"` // Distinct item labels
	Mining       MiningConfig    `json:"mining"`
	Thresholds   ThresholdConfig `json:"thresholds"`
	CacheHit     bool            `json:"cache_hit"`

	Records []RuleRecord `json:"records"`
	Result  ScanResult   `json:"result"`
	Score   Score        `json:"score"`

	LLM *LLMSummary `json:"llm,omitempty"` // Optional narration (never affects result)
}

// Score is the transparent diagnostic summary of a scan
type Score struct {
	Index   int      `json:"index"` // Share of records flagged by any check (0-100)
	Signals []Signal `json:"signals"`
}

// Signal represents a diagnostic signal with transparent data
type Signal struct {
	Type        SignalType             `json:"type"`
	Severity    SignalSeverity         `json:"severity"`
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

// SignalType classifies the type of diagnostic signal
type SignalType string

const (
	SignalSupportDistribution    SignalType = "support_distribution"
	SignalConfidenceDistribution SignalType = "confidence_distribution"
	SignalLiftDistribution       SignalType = "lift_distribution"
	SignalThresholdCoverage      SignalType = "threshold_coverage"
	SignalMaskedHits             SignalType = "masked_hits" // Qualifying statistics hidden by max selection
	SignalViolations             SignalType = "violations"
	SignalNoRules                SignalType = "no_rules"
)

// SignalSeverity indicates the importance of the signal
type SignalSeverity string

const (
	SeverityInfo     SignalSeverity = "info"
	SeverityWarning  SignalSeverity = "warning"
	SeverityCritical SignalSeverity = "critical"
)

// LLMSummary contains an optional LLM-generated narration
type LLMSummary struct {
	Enabled    bool     `json:"enabled"`
	Provider   string   `json:"provider,omitempty"`
	Model      string   `json:"model,omitempty"`
	StrictRefs bool     `json:"strict_refs"`
	SummaryMD  string   `json:"summary_md,omitempty"`
	CitedRefs  []string `json:"cited_refs,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}
