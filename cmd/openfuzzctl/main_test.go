package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func captureStdout(fn func() error) (string, error) {
	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		return "", err
	}

	os.Stdout = w
	runErr := fn()
	_ = w.Close()
	os.Stdout = origStdout

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		_ = r.Close()
		return "", err
	}
	_ = r.Close()
	return buf.String(), runErr
}

func TestRunRequiresCommand(t *testing.T) {
	if err := run(context.Background(), nil); err == nil || !strings.Contains(err.Error(), "usage:") {
		t.Fatalf("expected usage error, got: %v", err)
	}
	if err := run(context.Background(), []string{"evolve"}); err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("expected unknown command error, got: %v", err)
	}
}

func TestDemoCommand(t *testing.T) {
	out, err := captureStdout(func() error {
		return run(context.Background(), []string{"demo", "--temp", "30"})
	})
	if err != nil {
		t.Fatalf("demo: %v", err)
	}
	if !strings.Contains(out, "temperature=30 duty=43.486868") {
		t.Fatalf("unexpected demo output: %q", out)
	}
}

func TestDemoCommandPrintsMetrics(t *testing.T) {
	out, err := captureStdout(func() error {
		return run(context.Background(), []string{"demo", "--temp", "12", "--print-metrics"})
	})
	if err != nil {
		t.Fatalf("demo: %v", err)
	}
	if !strings.Contains(out, "openfuzz_inference_cycles 1") {
		t.Fatalf("expected inference cycle metric in output: %q", out)
	}
	if !strings.Contains(out, `openfuzz_rules_evaluated{method="mandani"} 3`) {
		t.Fatalf("expected rule metric in output: %q", out)
	}
}

func TestInferCommandWithConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "demo.yaml")
	if _, err := captureStdout(func() error {
		return run(context.Background(), []string{"template", "--out", cfg})
	}); err != nil {
		t.Fatalf("template: %v", err)
	}

	out, err := captureStdout(func() error {
		return run(context.Background(), []string{
			"infer", "--config", cfg, "--input", "temperature=30", "--json",
		})
	})
	if err != nil {
		t.Fatalf("infer: %v", err)
	}
	var summary struct {
		RunID   string             `json:"run_id"`
		Outputs map[string]float64 `json:"outputs"`
	}
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if summary.RunID == "" {
		t.Fatal("expected persisted run id")
	}
	if d := summary.Outputs["duty"]; d < 43.4868 || d > 43.4869 {
		t.Fatalf("unexpected duty: %g", d)
	}
}

func TestInferCommandErrors(t *testing.T) {
	ctx := context.Background()
	if err := run(ctx, []string{"infer", "--input", "temperature=30"}); err == nil {
		t.Fatal("expected missing --config/--system error")
	}
	if err := run(ctx, []string{"infer", "--input", "temperature"}); err == nil {
		t.Fatal("expected malformed --input error")
	}
	if err := run(ctx, []string{"infer", "--system", "ghost", "--input", "x=1"}); err == nil {
		t.Fatal("expected unknown system error")
	}
}

func TestSweepCommandWritesCSV(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "curve.csv")
	out, err := captureStdout(func() error {
		return run(context.Background(), []string{"sweep", "--steps", "5", "--csv", csvPath})
	})
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if !strings.Contains(out, "steps=5") || !strings.Contains(out, "p50=") {
		t.Fatalf("unexpected sweep output: %q", out)
	}
	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 6 || lines[0] != "temperature,duty" || !strings.HasPrefix(lines[5], "45,") {
		t.Fatalf("unexpected csv: %q", string(data))
	}
}

func TestRunsAndShowOnMemoryStore(t *testing.T) {
	out, err := captureStdout(func() error {
		return run(context.Background(), []string{"runs"})
	})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if !strings.Contains(out, "no runs found") {
		t.Fatalf("expected empty runs listing, got: %q", out)
	}
	if err := run(context.Background(), []string{"runs", "--limit", "0"}); err == nil {
		t.Fatal("expected invalid limit error")
	}
	if err := run(context.Background(), []string{"show"}); err == nil {
		t.Fatal("expected show to require a selector")
	}
	if err := run(context.Background(), []string{"show", "--latest"}); err == nil {
		t.Fatal("expected show --latest to fail on an empty store")
	}
}

func TestInitCommand(t *testing.T) {
	out, err := captureStdout(func() error {
		return run(context.Background(), []string{"init"})
	})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if !strings.Contains(out, "initialized store=memory") {
		t.Fatalf("unexpected init output: %q", out)
	}
}

func TestAssignments(t *testing.T) {
	a := assignments{}
	if err := a.Set("temperature=21.5"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := a.Set(" load = 3 "); err != nil {
		t.Fatalf("set with spaces: %v", err)
	}
	if a["temperature"] != 21.5 || a["load"] != 3 {
		t.Fatalf("unexpected assignments: %v", a)
	}
	if got := a.String(); got != "load=3,temperature=21.5" {
		t.Fatalf("unexpected string: %q", got)
	}
	for _, bad := range []string{"temperature=1", "=4", "speed", "speed=fast"} {
		if err := a.Set(bad); err == nil {
			t.Fatalf("expected %q to fail", bad)
		}
	}
}
