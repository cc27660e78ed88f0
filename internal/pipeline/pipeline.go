// Package pipeline runs load, mine, scan, score and narrate for one dataset.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/rulescan/internal/cache"
	"github.com/ppiankov/rulescan/internal/llm"
	"github.com/ppiankov/rulescan/internal/mine"
	"github.com/ppiankov/rulescan/internal/model"
	"github.com/ppiankov/rulescan/internal/scan"
	"github.com/ppiankov/rulescan/internal/score"
	"github.com/ppiankov/rulescan/internal/source"
	"github.com/ppiankov/rulescan/internal/util"
)

// Pipeline orchestrates the complete scan process
type Pipeline struct {
	loader     *source.Loader
	scanner    *scan.Scanner
	scorer     *score.Scorer
	renderer   *Renderer
	records    *cache.Records  // nil when caching is disabled
	summarizer *llm.Summarizer // nil when narration is disabled
	logger     *util.Logger
	config     *model.Config
}

// Option customizes a Pipeline
type Option func(*Pipeline)

// WithCache stores mined records in c
func WithCache(c cache.Cache) Option {
	return func(p *Pipeline) {
		if c != nil {
			p.records = cache.NewRecords(c, 0)
		}
	}
}

// WithLogger routes pipeline diagnostics to logger
func WithLogger(logger *util.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithSummarizer overrides the summarizer built from configuration
func WithSummarizer(s *llm.Summarizer) Option {
	return func(p *Pipeline) {
		p.summarizer = s
	}
}

// NewPipeline creates a pipeline from configuration
func NewPipeline(cfg *model.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		loader:   source.NewLoader(cfg.Source, source.NewFetcher(cfg.HTTP)),
		scanner:  scan.NewScanner(),
		scorer:   score.NewScorer(),
		renderer: NewRenderer(cfg.Output.MaxListings),
		logger:   util.Discard(),
		config:   cfg,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.summarizer == nil && cfg.LLM.Provider != "" {
		s, err := llm.NewSummarizer(llm.ConfigFromModel(cfg.LLM, cfg.HTTP))
		if err != nil {
			p.logger.Warn("failed to initialize LLM provider: %v", err)
		} else {
			p.summarizer = s
		}
	}
	return p
}

// Renderer returns the pipeline's renderer
func (p *Pipeline) Renderer() *Renderer {
	return p.renderer
}

// Run loads input and runs the rest of the pipeline on it
func (p *Pipeline) Run(ctx context.Context, input string) (*model.Report, error) {
	ts, err := p.loader.Load(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	p.logger.Debug("loaded %s: %d baskets", input, ts.Len())
	return p.RunTransactions(ctx, ts)
}

// RunTransactions mines, scans, scores and optionally narrates ts
func (p *Pipeline) RunTransactions(ctx context.Context, ts *model.TransactionSet) (*model.Report, error) {
	return p.run(ctx, ts, p.config.Mining, p.config.Thresholds)
}

// RunWith is RunTransactions with per-call mining parameters and thresholds
func (p *Pipeline) RunWith(ctx context.Context, ts *model.TransactionSet, params model.MiningConfig, th model.ThresholdConfig) (*model.Report, error) {
	return p.run(ctx, ts, params, th)
}

func (p *Pipeline) run(ctx context.Context, ts *model.TransactionSet, params model.MiningConfig, th model.ThresholdConfig) (*model.Report, error) {
	if err := th.Validate(); err != nil {
		return nil, fmt.Errorf("thresholds: %w", err)
	}

	// 1. Mine (cached)
	records, hit, err := p.mine(ctx, ts, params)
	if err != nil {
		return nil, err
	}

	// 2. Scan
	result, err := p.scanner.Scan(records, th)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	if len(result.Violations) > 0 {
		p.logger.Warn("%s: %d records excluded by range violations", ts.Name, len(result.Violations))
	}

	// 3. Score
	report := &model.Report{
		RunID:        uuid.NewString(),
		Subject:      ts.Name,
		GeneratedAt:  time.Now().UTC(),
		Transactions: ts.Len(),
		Items:        len(ts.Items()),
		Mining:       params,
		Thresholds:   th,
		CacheHit:     hit,
		Records:      records,
		Result:       result,
		Score:        p.scorer.Calculate(records, result, th),
	}

	// 4. Narrate (after scoring, never affects the result)
	if p.summarizer.IsEnabled() {
		summary, err := p.summarizer.GenerateSummary(ctx, *report)
		if err != nil {
			p.logger.Warn("LLM summary generation failed: %v", err)
		} else if summary != nil {
			report.LLM = summary
		}
	}

	return report, nil
}

func (p *Pipeline) mine(ctx context.Context, ts *model.TransactionSet, params model.MiningConfig) ([]model.RuleRecord, bool, error) {
	miner, err := mine.NewMiner(params)
	if err != nil {
		return nil, false, fmt.Errorf("mine: %w", err)
	}

	var key string
	if p.records != nil {
		key = cache.CacheKey(ts, miner.Params())
		if records, ok := p.records.Get(key); ok {
			p.logger.Debug("cache hit %s", key)
			return records, true, nil
		}
	}

	records, err := miner.Mine(ctx, ts)
	if err != nil {
		return nil, false, fmt.Errorf("mine: %w", err)
	}

	if p.records != nil {
		if err := p.records.Put(key, records); err != nil {
			p.logger.Warn("cache write failed: %v", err)
		}
	}
	return records, false, nil
}

// Outputs names the files RenderReport writes; empty paths are skipped
type Outputs struct {
	JSONPath     string
	MarkdownPath string
	HTMLPath     string
}

// RenderReport renders the report to the requested outputs and prints a
// terminal summary when summary is true
func (p *Pipeline) RenderReport(report *model.Report, out Outputs, summary bool) error {
	verbose := p.config.Output.Verbose

	if out.JSONPath != "" {
		if err := p.renderer.RenderJSON(report, out.JSONPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			fmt.Printf("✓ Wrote JSON: %s\n", out.JSONPath)
		}
	}

	if out.MarkdownPath != "" {
		if err := p.renderer.RenderMarkdown(report, out.MarkdownPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose {
			fmt.Printf("✓ Wrote Markdown: %s\n", out.MarkdownPath)
		}
	}

	if out.HTMLPath != "" {
		if err := p.renderer.RenderHTML(report, out.HTMLPath); err != nil {
			return fmt.Errorf("render HTML: %w", err)
		}
		if verbose {
			fmt.Printf("✓ Wrote HTML: %s\n", out.HTMLPath)
		}
	}

	// LLM narration goes to its own file next to the Markdown report
	if report.LLM != nil && report.LLM.Enabled && out.MarkdownPath != "" {
		llmPath := strings.TrimSuffix(out.MarkdownPath, ".md") + ".llm.md"
		if err := p.renderer.RenderLLMMarkdown(llm.RenderSeparateMarkdown(report.LLM), llmPath); err != nil {
			p.logger.Warn("failed to write LLM summary: %v", err)
		} else if verbose {
			fmt.Printf("✓ Wrote LLM Summary: %s\n", llmPath)
		}
	}

	if summary {
		p.renderer.RenderSummary(report)
	}
	return nil
}
