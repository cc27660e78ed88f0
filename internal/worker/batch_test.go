package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/rulescan/internal/model"
)

// mockRunner implements Runner
type mockRunner struct {
	failOn string
}

func (m *mockRunner) Run(ctx context.Context, input string) (*model.Report, error) {
	// Later inputs finish first so ordering is exercised
	time.Sleep(time.Duration(10-len(input)%10) * time.Millisecond)
	if m.failOn != "" && strings.Contains(input, m.failOn) {
		return nil, errors.New("scan error")
	}
	return &model.Report{Subject: input}, nil
}

func TestBatchProcessor_ProcessInputs_Order(t *testing.T) {
	processor := NewBatchProcessor(&mockRunner{}, 3, 0, 0)

	inputs := []string{"a.csv", "bb.csv", "ccc.csv", "dddd.csv", "sample:grocery"}
	results := processor.ProcessInputs(context.Background(), inputs)

	if len(results) != len(inputs) {
		t.Fatalf("expected %d results, got %d", len(inputs), len(results))
	}
	for i, res := range results {
		if res.Input != inputs[i] || res.Index != i {
			t.Errorf("result %d: expected %s, got %s (index %d)", i, inputs[i], res.Input, res.Index)
		}
		if res.Error != nil || res.Report == nil || res.Report.Subject != inputs[i] {
			t.Errorf("result %d: unexpected outcome %+v", i, res)
		}
	}
}

func TestBatchProcessor_ProcessInputs_Error(t *testing.T) {
	processor := NewBatchProcessor(&mockRunner{failOn: "bad"}, 2, 0, 0)

	results := processor.ProcessInputs(context.Background(), []string{"good.csv", "bad.csv"})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].GetError() != nil {
		t.Errorf("expected first input to succeed, got %v", results[0].Error)
	}
	if results[1].GetError() == nil {
		t.Error("expected second input to fail")
	}
}

func TestBatchProcessor_ProcessInputs_Empty(t *testing.T) {
	processor := NewBatchProcessor(&mockRunner{}, 2, 0, 0)
	results := processor.ProcessInputs(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inputs.txt")
	content := "# datasets\na.csv\n\nb.csv\na.csv\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	processor := NewBatchProcessor(&mockRunner{}, 2, 10, 1)
	results, err := processor.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 deduplicated results, got %d", len(results))
	}
}

func TestBatchProcessor_ProcessFile_NonExistent(t *testing.T) {
	processor := NewBatchProcessor(&mockRunner{}, 2, 0, 0)
	if _, err := processor.ProcessFile(context.Background(), "no_such_file.txt"); err == nil {
		t.Error("expected error for non-existent file")
	}
}

// slowRunner blocks until its delay passes or the context ends
type slowRunner struct {
	delay time.Duration
}

func (s *slowRunner) Run(ctx context.Context, input string) (*model.Report, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(s.delay):
		return &model.Report{Subject: input}, nil
	}
}

func TestBatchProcessor_ProcessInputs_TimeoutKeepsEveryInput(t *testing.T) {
	processor := NewBatchProcessor(&slowRunner{delay: 20 * time.Millisecond}, 1, 0, 0)

	inputs := make([]string, 10)
	for i := range inputs {
		inputs[i] = filepath.Join("data", strings.Repeat("x", i+1)+".csv")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Millisecond)
	defer cancel()
	results := processor.ProcessInputs(ctx, inputs)

	if len(results) != len(inputs) {
		t.Fatalf("expected %d results, got %d", len(inputs), len(results))
	}
	for i, res := range results {
		if res == nil {
			t.Fatalf("result %d missing", i)
		}
		if res.Index != i || res.Input != inputs[i] {
			t.Errorf("result %d: got index %d input %s", i, res.Index, res.Input)
		}
		if res.Error == nil {
			t.Errorf("result %d: expected an error after the deadline", i)
		}
	}
	if !errors.Is(results[len(results)-1].Error, ErrNotRun) {
		t.Errorf("expected last input to be not run, got %v", results[len(results)-1].Error)
	}
	if !errors.Is(results[len(results)-1].Error, context.DeadlineExceeded) {
		t.Errorf("expected the deadline as cause, got %v", results[len(results)-1].Error)
	}
}

func TestBatchProcessor_ProcessInputs_CancelledBeforeStart(t *testing.T) {
	processor := NewBatchProcessor(&mockRunner{}, 2, 0, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := processor.ProcessInputs(ctx, []string{"a.csv", "b.csv", "c.csv"})

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, res := range results {
		if !errors.Is(res.Error, ErrNotRun) || !errors.Is(res.Error, context.Canceled) {
			t.Errorf("result %d: expected not-run cancellation, got %v", i, res.Error)
		}
	}
}
