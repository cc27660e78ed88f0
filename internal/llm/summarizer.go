package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/rulescan/internal/model"
)

// Summarizer attaches an optional narration to a report. Failures degrade to
// warnings; they never fail the scan.
type Summarizer struct {
	provider Provider
	config   Config
}

// NewSummarizer creates a summarizer; an empty provider disables it
func NewSummarizer(config Config) (*Summarizer, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	return &Summarizer{provider: provider, config: config}, nil
}

// IsEnabled reports whether a provider is configured
func (s *Summarizer) IsEnabled() bool {
	return s != nil && s.provider != nil
}

// ProviderName returns the configured provider, or "" when disabled
func (s *Summarizer) ProviderName() string {
	if !s.IsEnabled() {
		return ""
	}
	return s.provider.Name()
}

// GenerateSummary narrates report. It returns nil, nil when disabled.
func (s *Summarizer) GenerateSummary(ctx context.Context, report model.Report) (*model.LLMSummary, error) {
	if !s.IsEnabled() {
		return nil, nil
	}

	summary := &model.LLMSummary{
		Provider:   s.provider.Name(),
		Model:      s.config.Model,
		StrictRefs: s.config.StrictRefs,
	}

	if !s.provider.IsAvailable(ctx) {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("LLM provider %s is not available", s.provider.Name()))
		return summary, nil
	}
	summary.Enabled = true

	allowed := AllowedRefs(report)
	resp, err := s.provider.Summarize(ctx, SummarizeRequest{
		Report:      report,
		AllowedRefs: allowed,
		Model:       s.config.Model,
		MaxTokens:   s.config.MaxTokens,
	})
	if err != nil {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("LLM summary failed: %v", err))
		return summary, nil
	}

	summary.Model = resp.Model
	summary.SummaryMD = resp.Summary
	summary.CitedRefs = resp.CitedRefs
	summary.Warnings = append(summary.Warnings,
		fmt.Sprintf("Tokens used: %d", resp.TokensUsed),
		fmt.Sprintf("Verified %d rule references against %d highlighted", len(resp.CitedRefs), len(allowed)),
	)
	return summary, nil
}

// RenderSeparateMarkdown renders the narration as its own document, kept
// apart from the scan report
func RenderSeparateMarkdown(summary *model.LLMSummary) string {
	if summary == nil || !summary.Enabled {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("# LLM Summary\n\n")
	sb.WriteString("> **GENERATED CONTENT.** The scan result was determined independently of this narration.\n\n")
	fmt.Fprintf(&sb, "- **Provider:** %s\n", summary.Provider)
	if summary.Model != "" {
		fmt.Fprintf(&sb, "- **Model:** %s\n", summary.Model)
	}
	fmt.Fprintf(&sb, "- **Strict References:** %t\n\n", summary.StrictRefs)

	if summary.SummaryMD == "" {
		sb.WriteString("_No summary generated._\n")
	} else {
		sb.WriteString(summary.SummaryMD + "\n")
	}

	if len(summary.CitedRefs) > 0 {
		fmt.Fprintf(&sb, "\nCited rules: %s\n", strings.Join(summary.CitedRefs, ", "))
	}

	if len(summary.Warnings) > 0 {
		sb.WriteString("\n## Notes\n\n")
		for _, w := range summary.Warnings {
			sb.WriteString("- " + w + "\n")
		}
	}
	return sb.String()
}
