package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/rulescan/internal/model"
)

func TestDecodeRecords(t *testing.T) {
	arr := `[{"items":["milk"],"support":1,"statistics":[{"items_base":[],"items_add":["milk"],"confidence":1,"lift":1}]}]`
	records, err := decodeRecords([]byte(arr))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, model.ItemSet{"milk"}, records[0].Items)

	wrapped := `{"run_id":"x","records":[{"items":["a","b"],"support":0.5,"statistics":[]}]}`
	records, err = decodeRecords([]byte("\n" + wrapped))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 0.5, records[0].Support)

	_, err = decodeRecords([]byte("  "))
	assert.Error(t, err)

	_, err = decodeRecords([]byte("[{"))
	assert.Error(t, err)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"sample:grocery", "sample_grocery"},
		{"https://example.com/data/baskets.csv", "example.com_data_baskets"},
		{"my baskets.txt", "my-baskets"},
		{"synthetic:500:12346", "synthetic_500_12346"},
		{"...", "dataset"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeFilename(tt.in))
		})
	}
}

func TestUniqueSlug(t *testing.T) {
	used := map[string]int{}
	assert.Equal(t, "a", uniqueSlug("a", used))
	assert.Equal(t, "b", uniqueSlug("b", used))
	assert.Equal(t, "a-2", uniqueSlug("a", used))
	assert.Equal(t, "a-3", uniqueSlug("a", used))
}

func TestLoadConfig_EnvOverridesDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.SetEnvPrefix("RULESCAN")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()
	require.NoError(t, registerDefaults(model.DefaultConfig()))

	t.Setenv("RULESCAN_THRESHOLDS_LIFT", "2.5")
	t.Setenv("RULESCAN_THRESHOLDS_MODE", "lenient")
	t.Setenv("RULESCAN_CACHE_MEMORY_TTL", "5m")

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, 2.5, cfg.Thresholds.Lift)
	assert.Equal(t, model.ModeLenient, cfg.Thresholds.Mode)
	assert.Equal(t, 5*time.Minute, cfg.Cache.MemoryTTL)
	assert.Equal(t, model.DefaultThresholds().Support, cfg.Thresholds.Support)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
}

func TestLoadConfig_File(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("thresholds:\n  support: 0.4\n  selection: all\nmining:\n  max_length: 3\n"), 0o644))

	require.NoError(t, registerDefaults(model.DefaultConfig()))
	viper.SetConfigFile(path)
	require.NoError(t, viper.ReadInConfig())

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, 0.4, cfg.Thresholds.Support)
	assert.Equal(t, model.SelectAll, cfg.Thresholds.Selection)
	assert.Equal(t, 3, cfg.Mining.MaxLength)
	assert.Equal(t, model.DefaultThresholds().Lift, cfg.Thresholds.Lift)
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, writeDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var cfg model.Config
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, model.DefaultThresholds(), cfg.Thresholds)

	err = writeDefaultConfig(path)
	assert.ErrorContains(t, err, "already exists")
}

func TestThresholdFlags_OnlyChangedApply(t *testing.T) {
	var f thresholdFlags
	cmd := &cobra.Command{Use: "x"}
	f.register(cmd)
	require.NoError(t, cmd.Flags().Parse([]string{"--lift", "3", "--select", "all"}))

	th := model.ThresholdConfig{Support: 0.2, Confidence: 0.9, Lift: 10, MinAntecedentSize: 2}
	f.apply(cmd, &th)
	assert.Equal(t, 0.2, th.Support)
	assert.Equal(t, 0.9, th.Confidence)
	assert.Equal(t, 3.0, th.Lift)
	assert.Equal(t, 2, th.MinAntecedentSize)
	assert.Equal(t, model.SelectAll, th.Selection)
}
