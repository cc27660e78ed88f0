// Package llm provides optional narration of scan reports. Narration never
// changes the scan result.
package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ppiankov/rulescan/internal/model"
)

// ErrReferenceLeak is returned when a model cites a rule that the report
// did not highlight
var ErrReferenceLeak = errors.New("reference leak")

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Summarize generates a narration of the report
	Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error)

	// IsAvailable checks if the provider is configured and reachable
	IsAvailable(ctx context.Context) bool
}

// SummarizeRequest contains the input for narration
type SummarizeRequest struct {
	Report model.Report

	// AllowedRefs is the set of rule references (R<i> or R<i>.<j>) the model
	// may cite. In strict mode any other reference fails the request.
	AllowedRefs []string

	Prompt    string // Overrides BuildPrompt when set
	Model     string
	MaxTokens int
}

// SummarizeResponse contains the provider's output
type SummarizeResponse struct {
	Summary    string
	CitedRefs  []string
	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	Provider   string // "openai", "ollama", "" (disabled)
	Model      string
	APIKey     string
	BaseURL    string
	Timeout    int // seconds
	StrictRefs bool
	MaxTokens  int

	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns narration disabled with strict references
func DefaultConfig() Config {
	return Config{
		Timeout:    30,
		StrictRefs: true,
		MaxTokens:  800,
	}
}

var refPattern = regexp.MustCompile(`\bR\d+(?:\.\d+)?\b`)

// ExtractRefs returns the distinct rule references in text, in order of appearance
func ExtractRefs(text string) []string {
	seen := make(map[string]bool)
	var refs []string
	for _, m := range refPattern.FindAllString(text, -1) {
		if !seen[m] {
			seen[m] = true
			refs = append(refs, m)
		}
	}
	return refs
}

// AllowedRefs lists every reference a narration of report may cite:
// R<i> for high-support records and R<i>.<j> for highlighted statistics.
// Refs are ordered by record, then statistic, with R<i> before R<i>.<j>.
func AllowedRefs(report model.Report) []string {
	seen := make(map[model.IndexPair]bool)
	var keys []model.IndexPair
	add := func(p model.IndexPair) {
		if !seen[p] {
			seen[p] = true
			keys = append(keys, p)
		}
	}

	// Statistic -1 stands for the record itself
	for _, i := range report.Result.HighSupport {
		add(model.IndexPair{Record: i, Statistic: -1})
	}
	for _, group := range [][]model.IndexPair{report.Result.HighConfidence, report.Result.HighLift, report.Result.WideAntecedent} {
		for _, p := range group {
			add(p)
		}
	}

	sort.Slice(keys, func(a, b int) bool {
		if keys[a].Record != keys[b].Record {
			return keys[a].Record < keys[b].Record
		}
		return keys[a].Statistic < keys[b].Statistic
	})

	refs := make([]string, 0, len(keys))
	for _, k := range keys {
		if k.Statistic < 0 {
			refs = append(refs, fmt.Sprintf("R%d", k.Record))
		} else {
			refs = append(refs, pairRef(k))
		}
	}
	return refs
}

// verifyRefs fails with ErrReferenceLeak on the first cited ref not in allowed
func verifyRefs(cited, allowed []string) error {
	ok := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		ok[a] = true
	}
	for _, c := range cited {
		if !ok[c] {
			return fmt.Errorf("%w: model cited %s", ErrReferenceLeak, c)
		}
	}
	return nil
}

func pairRef(p model.IndexPair) string {
	return fmt.Sprintf("R%d.%d", p.Record, p.Statistic)
}

const systemPrompt = "You summarize association rule scan reports. You only describe the measures given to you and never speculate about causes."

const maxPromptRules = 20

// BuildPrompt constructs the default narration prompt
func BuildPrompt(report model.Report, allowed []string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, `You are summarizing a rulescan report. rulescan flags association rules whose support, confidence or lift meet fixed thresholds. It does not claim the rules are causal.

RULES:
1. Refer to rules ONLY with these references:
%s

2. Do not invent references, items or numbers that are not listed below.
3. Lift near 1.0 means the items are independent; say so when it applies.
4. If nothing was flagged, state that explicitly.

Report Summary:
- Dataset: %s
- Baskets: %d, distinct items: %d
- Rule records: %d
- Thresholds: support >= %g, confidence >= %g, lift >= %g, antecedent size >= %d
- Flagged: %d high support, %d high confidence, %d high lift, %d wide antecedent
- Coverage index: %d/100

Highlighted rules:
`, joinRefs(allowed), report.Subject, report.Transactions, report.Items, len(report.Records),
		report.Thresholds.Support, report.Thresholds.Confidence, report.Thresholds.Lift, report.Thresholds.MinAntecedentSize,
		len(report.Result.HighSupport), len(report.Result.HighConfidence), len(report.Result.HighLift), len(report.Result.WideAntecedent),
		report.Score.Index)

	written := 0
	for _, ref := range allowed {
		if written >= maxPromptRules {
			fmt.Fprintf(&sb, "... and %d more\n", len(allowed)-maxPromptRules)
			break
		}
		if line := describeRef(report.Records, ref); line != "" {
			sb.WriteString("- " + line + "\n")
			written++
		}
	}

	sb.WriteString("\nKey Signals:\n")
	for i, signal := range report.Score.Signals {
		if i >= 4 {
			break
		}
		fmt.Fprintf(&sb, "- %s: %s\n", signal.Type, signal.Description)
	}

	sb.WriteString("\nProvide a 3-4 sentence summary of which associations stand out and how strong they are.")
	return sb.String()
}

func describeRef(records []model.RuleRecord, ref string) string {
	var i, j int
	if n, _ := fmt.Sscanf(ref, "R%d.%d", &i, &j); n == 2 {
		_, st, ok := model.IndexPair{Record: i, Statistic: j}.Resolve(records)
		if !ok {
			return ""
		}
		return fmt.Sprintf("%s: %s => %s (confidence %.2f, lift %.2f)", ref, st.ItemsBase, st.ItemsAdd, st.Confidence, st.Lift)
	}
	if n, _ := fmt.Sscanf(ref, "R%d", &i); n == 1 && i >= 0 && i < len(records) {
		return fmt.Sprintf("%s: %s (support %.2f)", ref, records[i].Items, records[i].Support)
	}
	return ""
}

func joinRefs(refs []string) string {
	if len(refs) == 0 {
		return "(no rules were flagged)"
	}
	var sb strings.Builder
	for i, r := range refs {
		if i >= maxPromptRules {
			fmt.Fprintf(&sb, "\n... and %d more references", len(refs)-maxPromptRules)
			break
		}
		sb.WriteString("\n- " + r)
	}
	return sb.String()
}
