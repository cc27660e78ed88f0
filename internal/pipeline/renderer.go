package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"github.com/ppiankov/rulescan/internal/model"
)

// Renderer writes reports as JSON, Markdown, HTML and terminal summaries
type Renderer struct {
	maxListings int
}

// NewRenderer creates a renderer; maxListings caps rows per Markdown section
// (0 = unlimited)
func NewRenderer(maxListings int) *Renderer {
	return &Renderer{maxListings: maxListings}
}

// RenderJSON writes the report as indented JSON
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return writeFile(path, append(data, '\n'))
}

// RenderMarkdown writes the report as Markdown
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	return writeFile(path, []byte(r.Markdown(report)))
}

// RenderHTML writes the Markdown report converted to a standalone HTML page
func (r *Renderer) RenderHTML(report *model.Report, path string) error {
	return writeFile(path, r.HTML(report))
}

// RenderLLMMarkdown writes a pre-rendered narration document
func (r *Renderer) RenderLLMMarkdown(md string, path string) error {
	return writeFile(path, []byte(md))
}

// HTML converts the Markdown report to a complete HTML page
func (r *Renderer) HTML(report *model.Report) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Flags: mdhtml.CommonFlags | mdhtml.CompletePage,
		Title: "rulescan: " + report.Subject,
	})
	return markdown.ToHTML([]byte(r.Markdown(report)), p, renderer)
}

// Markdown renders the report with every flagged pair resolved to its item sets
func (r *Renderer) Markdown(report *model.Report) string {
	var sb strings.Builder
	th := report.Thresholds

	fmt.Fprintf(&sb, "# rulescan report: %s\n\n", report.Subject)
	fmt.Fprintf(&sb, "- **Run:** `%s`\n", report.RunID)
	fmt.Fprintf(&sb, "- **Generated:** %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&sb, "- **Baskets:** %d (%d distinct items)\n", report.Transactions, report.Items)
	fmt.Fprintf(&sb, "- **Rule records:** %d", len(report.Records))
	if report.CacheHit {
		sb.WriteString(" (cached)")
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "- **Mining:** min support %g, min confidence %g, min lift %g, max length %d\n",
		report.Mining.MinSupport, report.Mining.MinConfidence, report.Mining.MinLift, report.Mining.MaxLength)
	fmt.Fprintf(&sb, "- **Thresholds:** support ≥ %g, confidence ≥ %g, lift ≥ %g, antecedent size ≥ %d (%s, %s)\n",
		th.Support, th.Confidence, th.Lift, th.MinAntecedentSize, orDefault(string(th.Mode), "strict"), orDefault(string(th.Selection), "max"))
	fmt.Fprintf(&sb, "- **Coverage index:** %d/100\n\n", report.Score.Index)

	// High support
	fmt.Fprintf(&sb, "## High support (%d)\n\n", len(report.Result.HighSupport))
	if len(report.Result.HighSupport) == 0 {
		sb.WriteString("_None._\n\n")
	} else {
		sb.WriteString("| Ref | Items | Support |\n|---|---|---|\n")
		for n, i := range report.Result.HighSupport {
			if r.truncated(&sb, n, len(report.Result.HighSupport)) {
				break
			}
			if i < 0 || i >= len(report.Records) {
				continue
			}
			rec := report.Records[i]
			fmt.Fprintf(&sb, "| R%d | %s | %.4f |\n", i, escapeCell(rec.Items.String()), rec.Support)
		}
		sb.WriteString("\n")
	}

	r.pairSection(&sb, "High confidence", report.Result.HighConfidence, report.Records)
	r.pairSection(&sb, "High lift", report.Result.HighLift, report.Records)
	r.pairSection(&sb, "Wide antecedent", report.Result.WideAntecedent, report.Records)

	if len(report.Result.Violations) > 0 {
		fmt.Fprintf(&sb, "## Violations (%d)\n\n", len(report.Result.Violations))
		sb.WriteString("| Record | Statistic | Field | Value |\n|---|---|---|---|\n")
		for _, v := range report.Result.Violations {
			stat := "-"
			if v.Statistic >= 0 {
				stat = fmt.Sprint(v.Statistic)
			}
			fmt.Fprintf(&sb, "| R%d | %s | %s | %g |\n", v.Record, stat, v.Field, v.Value)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Signals\n\n")
	for _, s := range report.Score.Signals {
		fmt.Fprintf(&sb, "- **%s** [%s]: %s\n", s.Type, s.Severity, s.Description)
	}
	sb.WriteString("\n")

	sb.WriteString("---\n\n_Thresholds are compared with ≥. Confidence and lift list only the per-record maximum unless selection is `all`._\n")
	return sb.String()
}

func (r *Renderer) pairSection(sb *strings.Builder, title string, pairs []model.IndexPair, records []model.RuleRecord) {
	fmt.Fprintf(sb, "## %s (%d)\n\n", title, len(pairs))
	if len(pairs) == 0 {
		sb.WriteString("_None._\n\n")
		return
	}

	sb.WriteString("| Ref | Antecedent | Consequent | Support | Confidence | Lift |\n|---|---|---|---|---|---|\n")
	for n, p := range pairs {
		if r.truncated(sb, n, len(pairs)) {
			break
		}
		rec, st, ok := p.Resolve(records)
		if !ok {
			continue
		}
		fmt.Fprintf(sb, "| R%d.%d | %s | %s | %.4f | %.4f | %.4f |\n",
			p.Record, p.Statistic, escapeCell(st.ItemsBase.String()), escapeCell(st.ItemsAdd.String()), rec.Support, st.Confidence, st.Lift)
	}
	sb.WriteString("\n")
}

// truncated writes a trailer row and reports true once n reaches the listing cap
func (r *Renderer) truncated(sb *strings.Builder, n, total int) bool {
	if r.maxListings <= 0 || n < r.maxListings {
		return false
	}
	fmt.Fprintf(sb, "| … | %d more |\n", total-n)
	return true
}

// RenderSummary prints a short summary to stdout
func (r *Renderer) RenderSummary(report *model.Report) {
	fmt.Printf("\n%s\n", report.Subject)
	fmt.Printf("  Baskets:         %d (%d items)\n", report.Transactions, report.Items)
	fmt.Printf("  Rule records:    %d\n", len(report.Records))
	fmt.Printf("  High support:    %d\n", len(report.Result.HighSupport))
	fmt.Printf("  High confidence: %d\n", len(report.Result.HighConfidence))
	fmt.Printf("  High lift:       %d\n", len(report.Result.HighLift))
	fmt.Printf("  Wide antecedent: %d\n", len(report.Result.WideAntecedent))
	if len(report.Result.Violations) > 0 {
		fmt.Printf("  Violations:      %d\n", len(report.Result.Violations))
	}
	fmt.Printf("  Coverage index:  %d/100\n", report.Score.Index)

	for _, s := range report.Score.Signals {
		if s.Severity == model.SeverityInfo {
			continue
		}
		marker := "!"
		if s.Severity == model.SeverityCritical {
			marker = "✗"
		}
		fmt.Printf("  %s %s\n", marker, s.Description)
	}
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
