package model

import (
	"fmt"
	"time"
)

// Config is the complete rulescan configuration
type Config struct {
	Mining      MiningConfig      `yaml:"mining" mapstructure:"mining"`
	Thresholds  ThresholdConfig   `yaml:"thresholds" mapstructure:"thresholds"`
	Source      SourceConfig      `yaml:"source" mapstructure:"source"`
	HTTP        HTTPConfig        `yaml:"http" mapstructure:"http"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Watch       WatchConfig       `yaml:"watch" mapstructure:"watch"`
}

// MiningConfig holds the Apriori parameters used to produce rule records.
// These are separate from the post-hoc scan thresholds.
type MiningConfig struct {
	MinSupport    float64 `yaml:"min_support" json:"min_support" mapstructure:"min_support"`
	MinConfidence float64 `yaml:"min_confidence" json:"min_confidence" mapstructure:"min_confidence"`
	MinLift       float64 `yaml:"min_lift" json:"min_lift" mapstructure:"min_lift"`
	MaxLength     int     `yaml:"max_length" json:"max_length" mapstructure:"max_length"` // 0 = unbounded
}

// ThresholdConfig holds the scan thresholds
type ThresholdConfig struct {
	Support           float64   `yaml:"support" json:"support" mapstructure:"support"`
	Confidence        float64   `yaml:"confidence" json:"confidence" mapstructure:"confidence"`
	Lift              float64   `yaml:"lift" json:"lift" mapstructure:"lift"`
	MinAntecedentSize int       `yaml:"min_antecedent_size" json:"min_antecedent_size" mapstructure:"min_antecedent_size"`
	Mode              ScanMode  `yaml:"mode" json:"mode" mapstructure:"mode"`
	Selection         Selection `yaml:"selection" json:"selection" mapstructure:"selection"`
}

// ScanMode decides what happens when a record violates a range invariant
type ScanMode string

const (
	ModeStrict  ScanMode = "strict"  // Fail on the first violation
	ModeLenient ScanMode = "lenient" // Skip offending records and report violations
)

// Selection decides how confidence and lift hits are reported per record
type Selection string

const (
	SelectMax Selection = "max" // Only the per-record maximum, if it meets the threshold
	SelectAll Selection = "all" // Every statistic that meets the threshold
)

// Validate rejects unknown mode and selection values. Empty values are
// accepted and mean strict/max.
func (t ThresholdConfig) Validate() error {
	switch t.Mode {
	case "", ModeStrict, ModeLenient:
	default:
		return fmt.Errorf("unknown scan mode %q (supported: strict, lenient)", t.Mode)
	}
	switch t.Selection {
	case "", SelectMax, SelectAll:
	default:
		return fmt.Errorf("unknown selection %q (supported: max, all)", t.Selection)
	}
	return nil
}

// SourceConfig controls how transaction files are parsed
type SourceConfig struct {
	Delimiter  string `yaml:"delimiter" mapstructure:"delimiter"`     // Item separator for line files
	SkipHeader bool   `yaml:"skip_header" mapstructure:"skip_header"` // First CSV/XLSX row is a header
	Sheet      string `yaml:"sheet" mapstructure:"sheet"`             // XLSX sheet (default: first)

	SyntheticBaskets int   `yaml:"synthetic_baskets" mapstructure:"synthetic_baskets"`
	SyntheticSeed    int64 `yaml:"synthetic_seed" mapstructure:"synthetic_seed"`
}

// HTTPConfig controls remote dataset fetching
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy" mapstructure:"no_proxy"`
}

// CacheConfig controls caching of mined rule records
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Path      string        `yaml:"path" mapstructure:"path"` // bbolt file
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig controls batch processing
type ConcurrencyConfig struct {
	Workers           int     `yaml:"workers" mapstructure:"workers"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"` // Per host, URL inputs only; 0 = unlimited
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// OutputConfig controls rendering
type OutputConfig struct {
	Verbose     bool `yaml:"verbose" mapstructure:"verbose"`
	MaxListings int  `yaml:"max_listings" mapstructure:"max_listings"` // Rows per section in Markdown
}

// LLMConfig controls optional narration
type LLMConfig struct {
	Provider   string `yaml:"provider" mapstructure:"provider"` // openai, ollama, "" (disabled)
	Model      string `yaml:"model" mapstructure:"model"`
	APIKey     string `yaml:"-" mapstructure:"api_key"`
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	Timeout    int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens  int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	StrictRefs bool   `yaml:"strict_refs" mapstructure:"strict_refs"`
}

// ServerConfig controls the HTTP API
type ServerConfig struct {
	Addr         string        `yaml:"addr" mapstructure:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// WatchConfig controls rescans on file change
type WatchConfig struct {
	MinInterval time.Duration `yaml:"min_interval" mapstructure:"min_interval"` // Minimum time between rescans
	Burst       int           `yaml:"burst" mapstructure:"burst"`
}

// DefaultThresholds returns the thresholds used by the original grocery analysis
func DefaultThresholds() ThresholdConfig {
	return ThresholdConfig{
		Support:           0.75,
		Confidence:        1.0,
		Lift:              6.0,
		MinAntecedentSize: 3,
		Mode:              ModeStrict,
		Selection:         SelectMax,
	}
}

// DefaultMining returns the Apriori defaults
func DefaultMining() MiningConfig {
	return MiningConfig{
		MinSupport:    0.1,
		MinConfidence: 0.0,
		MinLift:       0.0,
		MaxLength:     0,
	}
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Mining:     DefaultMining(),
		Thresholds: DefaultThresholds(),
		Source: SourceConfig{
			Delimiter:        ",",
			SyntheticBaskets: 500,
			SyntheticSeed:    12346,
		},
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "rulescan/0.1 (+https://github.com/ppiankov/rulescan)",
			MaxBodyBytes:  10_000_000,
			RespectRobots: true,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Path:      "",
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers:           4,
			RequestsPerSecond: 2,
			Burst:             2,
		},
		Output: OutputConfig{
			MaxListings: 50,
		},
		LLM: LLMConfig{
			Timeout:    30,
			MaxTokens:  800,
			StrictRefs: true,
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			MaxBodyBytes: 5_000_000,
		},
		Watch: WatchConfig{
			MinInterval: 2 * time.Second,
			Burst:       1,
		},
	}
}
