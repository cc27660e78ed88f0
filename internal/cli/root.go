package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/rulescan/internal/cache"
	"github.com/ppiankov/rulescan/internal/model"
	"github.com/ppiankov/rulescan/internal/pipeline"
	"github.com/ppiankov/rulescan/internal/util"
)

// Version is set at build time with -ldflags "-X .../internal/cli.Version=..."
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "rulescan",
	Short: "rulescan - association rule threshold scanner",
	Long: `rulescan mines association rules from market-basket data and reports
which rules clear the support, confidence, lift and antecedent-size
thresholds you care about.

It reports where the strong rules are. It does not decide whether a
rule is meaningful for your business.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("rulescan %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.rulescan/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

var envKeyReplacer = strings.NewReplacer(".", "_")

// initConfig reads in .env, the config file and RULESCAN_* variables
func initConfig() {
	// .env is optional; OPENAI_API_KEY and friends usually live there
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		dir, err := configDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(dir)
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// RULESCAN_THRESHOLDS_SUPPORT overrides thresholds.support, and so on
	viper.SetEnvPrefix("RULESCAN")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	if err := registerDefaults(model.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Error registering defaults: %v\n", err)
	}

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// registerDefaults makes every config key known to viper so that
// environment variables are picked up by Unmarshal
func registerDefaults(cfg *model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	var sections map[string]map[string]interface{}
	if err := yaml.Unmarshal(data, &sections); err != nil {
		return err
	}
	for section, values := range sections {
		for key, value := range values {
			viper.SetDefault(section+"."+key, value)
		}
	}
	// api_key is never written to YAML
	viper.SetDefault("llm.api_key", "")
	return nil
}

// loadConfig returns the effective configuration: defaults, then the
// config file, then the environment
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if verbose {
		cfg.Output.Verbose = true
	}
	return cfg, nil
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".rulescan"), nil
}

func newLogger() *util.Logger {
	logger := util.NewDefaultLogger()
	if verbose && os.Getenv("RULESCAN_LOG_LEVEL") == "" {
		logger.SetLevel(util.LogLevelInfo)
	}
	return logger
}

// newPipeline builds a pipeline with the record cache opened when enabled.
// The returned func releases the cache.
func newPipeline(cfg *model.Config, logger *util.Logger) (*pipeline.Pipeline, func()) {
	opts := []pipeline.Option{pipeline.WithLogger(logger)}
	release := func() {}

	if cfg.Cache.Enabled {
		path := cfg.Cache.Path
		if path == "" {
			if dir, err := configDir(); err == nil {
				path = filepath.Join(dir, "cache.db")
			}
		}
		if path != "" {
			c, err := cache.NewLayeredCache(cfg.Cache.MemoryTTL, path, cfg.Cache.DiskTTL)
			if err != nil {
				logger.Warn("cache disabled: %v", err)
			} else {
				opts = append(opts, pipeline.WithCache(c))
				release = func() { _ = c.Close() }
			}
		}
	}

	return pipeline.NewPipeline(cfg, opts...), release
}
