package cli

import (
	"github.com/spf13/cobra"

	"github.com/ppiankov/rulescan/internal/model"
)

// thresholdFlags override config thresholds only when set on the command line
type thresholdFlags struct {
	support       float64
	confidence    float64
	lift          float64
	minAntecedent int
	mode          string
	selection     string
}

func (f *thresholdFlags) register(cmd *cobra.Command) {
	d := model.DefaultThresholds()
	cmd.Flags().Float64Var(&f.support, "support", d.Support, "report records with support >= this")
	cmd.Flags().Float64Var(&f.confidence, "confidence", d.Confidence, "report statistics with confidence >= this")
	cmd.Flags().Float64Var(&f.lift, "lift", d.Lift, "report statistics with lift >= this")
	cmd.Flags().IntVar(&f.minAntecedent, "min-antecedent", d.MinAntecedentSize, "report statistics whose antecedent has at least this many items")
	cmd.Flags().StringVar(&f.mode, "mode", string(d.Mode), "out-of-range measures: strict (fail) or lenient (skip and report)")
	cmd.Flags().StringVar(&f.selection, "select", string(d.Selection), "confidence/lift hits per record: max or all")
}

func (f *thresholdFlags) apply(cmd *cobra.Command, th *model.ThresholdConfig) {
	flags := cmd.Flags()
	if flags.Changed("support") {
		th.Support = f.support
	}
	if flags.Changed("confidence") {
		th.Confidence = f.confidence
	}
	if flags.Changed("lift") {
		th.Lift = f.lift
	}
	if flags.Changed("min-antecedent") {
		th.MinAntecedentSize = f.minAntecedent
	}
	if flags.Changed("mode") {
		th.Mode = model.ScanMode(f.mode)
	}
	if flags.Changed("select") {
		th.Selection = model.Selection(f.selection)
	}
}

// miningFlags override the Apriori parameters
type miningFlags struct {
	minSupport    float64
	minConfidence float64
	minLift       float64
	maxLength     int
}

func (f *miningFlags) register(cmd *cobra.Command) {
	d := model.DefaultMining()
	cmd.Flags().Float64Var(&f.minSupport, "min-support", d.MinSupport, "Apriori minimum support")
	cmd.Flags().Float64Var(&f.minConfidence, "min-confidence", d.MinConfidence, "Apriori minimum confidence")
	cmd.Flags().Float64Var(&f.minLift, "min-lift", d.MinLift, "Apriori minimum lift")
	cmd.Flags().IntVar(&f.maxLength, "max-length", d.MaxLength, "largest item set to mine (0 = unbounded)")
}

func (f *miningFlags) apply(cmd *cobra.Command, m *model.MiningConfig) {
	flags := cmd.Flags()
	if flags.Changed("min-support") {
		m.MinSupport = f.minSupport
	}
	if flags.Changed("min-confidence") {
		m.MinConfidence = f.minConfidence
	}
	if flags.Changed("min-lift") {
		m.MinLift = f.minLift
	}
	if flags.Changed("max-length") {
		m.MaxLength = f.maxLength
	}
}

// runFlags are shared by every command that runs the pipeline
type runFlags struct {
	delimiter   string
	skipHeader  bool
	sheet       string
	noCache     bool
	userAgent   string
	httpProxy   string
	httpsProxy  string
	llmProvider string
	llmModel    string
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.delimiter, "delimiter", ",", "item separator for line files")
	cmd.Flags().BoolVar(&f.skipHeader, "skip-header", false, "first CSV/XLSX row is a header")
	cmd.Flags().StringVar(&f.sheet, "sheet", "", "XLSX sheet (default: first)")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable the mined-records cache")
	cmd.Flags().StringVar(&f.userAgent, "ua", "", "HTTP User-Agent for URL inputs")
	cmd.Flags().StringVar(&f.httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	cmd.Flags().StringVar(&f.httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
	cmd.Flags().StringVar(&f.llmProvider, "llm-provider", "", "narrate the report with an LLM (openai, ollama)")
	cmd.Flags().StringVar(&f.llmModel, "llm-model", "", "LLM model name")
}

func (f *runFlags) apply(cmd *cobra.Command, cfg *model.Config) {
	flags := cmd.Flags()
	if flags.Changed("delimiter") {
		cfg.Source.Delimiter = f.delimiter
	}
	if flags.Changed("skip-header") {
		cfg.Source.SkipHeader = f.skipHeader
	}
	if flags.Changed("sheet") {
		cfg.Source.Sheet = f.sheet
	}
	if f.noCache {
		cfg.Cache.Enabled = false
	}
	if f.userAgent != "" {
		cfg.HTTP.UserAgent = f.userAgent
	}
	if f.httpProxy != "" {
		cfg.HTTP.HTTPProxy = f.httpProxy
	}
	if f.httpsProxy != "" {
		cfg.HTTP.HTTPSProxy = f.httpsProxy
	}
	if f.llmProvider != "" {
		cfg.LLM.Provider = f.llmProvider
	}
	if f.llmModel != "" {
		cfg.LLM.Model = f.llmModel
	}
}
