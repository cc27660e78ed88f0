package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/rulescan/internal/model"
	"github.com/ppiankov/rulescan/internal/scan"
)

var (
	scanThresholds thresholdFlags
	scanOut        string
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan <records.json|->",
	Short: "Scan precomputed rule records against thresholds",
	Long: `Scan reads rule records (a JSON array, or any object with a "records"
field such as a rulescan report) and lists:
- records whose support meets the support threshold
- per record, the statistic with the highest confidence and lift, if it
  meets the threshold (--select all lists every qualifying statistic)
- every statistic whose antecedent is wide enough

Example:
  rulescan scan rules.json
  rulescan scan report.json --lift 3 --select all
  cat rules.json | rulescan scan - --mode lenient`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanThresholds.register(scanCmd)
	scanCmd.Flags().StringVarP(&scanOut, "out", "o", "", "write the result JSON here instead of stdout")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	scanThresholds.apply(cmd, &cfg.Thresholds)
	if err := cfg.Thresholds.Validate(); err != nil {
		return err
	}

	records, err := readRecords(args[0])
	if err != nil {
		return err
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "Loaded %d rule records\n", len(records))
	}

	result, err := scan.Scan(records, cfg.Thresholds)
	if err != nil {
		var verr *scan.ValidationError
		if errors.As(err, &verr) {
			for _, v := range verr.Violations {
				fmt.Fprintf(os.Stderr, "✗ record %d statistic %d: %s=%g\n", v.Record, v.Statistic, v.Field, v.Value)
			}
		}
		return fmt.Errorf("scan failed: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ High support:    %d\n", len(result.HighSupport))
		fmt.Fprintf(os.Stderr, "✓ High confidence: %d\n", len(result.HighConfidence))
		fmt.Fprintf(os.Stderr, "✓ High lift:       %d\n", len(result.HighLift))
		fmt.Fprintf(os.Stderr, "✓ Wide antecedent: %d\n", len(result.WideAntecedent))
		if len(result.Violations) > 0 {
			fmt.Fprintf(os.Stderr, "! Skipped %d out-of-range measures\n", len(result.Violations))
		}
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	data = append(data, '\n')

	if scanOut == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(scanOut, data, 0o644); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", scanOut)
	}
	return nil
}

// readRecords decodes rule records from path, or stdin when path is "-"
func readRecords(path string) ([]model.RuleRecord, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	return decodeRecords(data)
}

func decodeRecords(data []byte) ([]model.RuleRecord, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("decode records: empty input")
	}

	if data[0] == '[' {
		var records []model.RuleRecord
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("decode records: %w", err)
		}
		return records, nil
	}

	var wrapped struct {
		Records []model.RuleRecord `json:"records"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return wrapped.Records, nil
}
