package stats

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"hpfold/internal/model"
)

func sampleArtifacts(runID string) RunArtifacts {
	return RunArtifacts{
		Config: RunConfig{
			RunID:         runID,
			Algorithm:     "annealing",
			Sequence:      "HPHP",
			Lattice:       "2D",
			Seed:          1,
			MaxIterations: 1000,
			Instances:     4,
		},
		Best: model.Conformation{
			Sequence:   "HPHP",
			Directions: []model.Direction{model.Down, model.Right, model.Up},
			HPEnergy:   -1,
		},
		EnergyHistory: []model.EnergySample{
			{Iteration: 0, Energy: 0},
			{Iteration: 500, Energy: -1},
		},
		FinalEnergy:   -1,
		ConvergenceMS: 12,
	}
}

func TestWriteRunArtifactsLayout(t *testing.T) {
	baseDir := t.TempDir()

	runDir, err := WriteRunArtifacts(baseDir, sampleArtifacts("run-1"))
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}
	if runDir != filepath.Join(baseDir, "run-1") {
		t.Fatalf("unexpected run dir: %s", runDir)
	}

	for _, name := range []string{"config.json", "run.json", "energy_history.csv"} {
		if _, err := os.Stat(filepath.Join(runDir, name)); err != nil {
			t.Fatalf("missing artifact %s: %v", name, err)
		}
	}

	file, err := os.Open(filepath.Join(runDir, "energy_history.csv"))
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer file.Close()
	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d csv rows, want header plus 2 samples", len(rows))
	}
	if rows[0][0] != "iteration" || rows[0][1] != "energy" {
		t.Fatalf("unexpected csv header: %v", rows[0])
	}
	if rows[2][0] != "500" || rows[2][1] != "-1" {
		t.Fatalf("unexpected csv sample row: %v", rows[2])
	}
}

func TestWriteRunArtifactsRequiresRunID(t *testing.T) {
	artifacts := sampleArtifacts("")
	if _, err := WriteRunArtifacts(t.TempDir(), artifacts); err == nil {
		t.Fatal("expected error for missing run id")
	}
}

func TestRunIndexRoundtripAndOrdering(t *testing.T) {
	baseDir := t.TempDir()

	entries := []RunIndexEntry{
		{RunID: "run-old", FinalEnergy: -1, CreatedAtUTC: "2026-08-28T10:00:00Z"},
		{RunID: "run-new", FinalEnergy: -3, CreatedAtUTC: "2026-08-29T10:00:00Z"},
	}
	for _, e := range entries {
		if err := AppendRunIndex(baseDir, e); err != nil {
			t.Fatalf("append %s: %v", e.RunID, err)
		}
	}

	listed, err := ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("got %d entries, want 2", len(listed))
	}
	if listed[0].RunID != "run-new" {
		t.Fatalf("newest run must list first, got %s", listed[0].RunID)
	}

	// Re-appending an existing run id replaces the entry in place.
	if err := AppendRunIndex(baseDir, RunIndexEntry{RunID: "run-new", FinalEnergy: -5, CreatedAtUTC: "2026-08-29T10:00:00Z"}); err != nil {
		t.Fatalf("re-append: %v", err)
	}
	listed, err = ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list after re-append: %v", err)
	}
	if len(listed) != 2 || listed[0].FinalEnergy != -5 {
		t.Fatalf("re-append did not replace: %+v", listed)
	}
}

func TestListRunIndexEmptyDir(t *testing.T) {
	listed, err := ListRunIndex(t.TempDir())
	if err != nil {
		t.Fatalf("list empty: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("expected empty index, got %d entries", len(listed))
	}
}

func TestExportRunArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	outDir := t.TempDir()

	if _, err := WriteRunArtifacts(baseDir, sampleArtifacts("run-1")); err != nil {
		t.Fatalf("write artifacts: %v", err)
	}

	exported, err := ExportRunArtifacts(baseDir, "run-1", outDir)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	for _, name := range []string{"config.json", "run.json", "energy_history.csv"} {
		if _, err := os.Stat(filepath.Join(exported, name)); err != nil {
			t.Fatalf("missing exported %s: %v", name, err)
		}
	}

	if _, err := ExportRunArtifacts(baseDir, "missing", outDir); err == nil {
		t.Fatal("expected error exporting unknown run")
	}
}

func TestReadRunArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	if _, err := WriteRunArtifacts(baseDir, sampleArtifacts("run-1")); err != nil {
		t.Fatalf("write artifacts: %v", err)
	}

	artifacts, ok, err := ReadRunArtifacts(baseDir, "run-1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !ok {
		t.Fatal("artifacts not found")
	}
	if artifacts.FinalEnergy != -1 || artifacts.Config.Algorithm != "annealing" {
		t.Fatalf("artifacts corrupted: %+v", artifacts)
	}

	if _, ok, err := ReadRunArtifacts(baseDir, "missing"); err != nil || ok {
		t.Fatalf("missing run: ok=%t err=%v", ok, err)
	}
}

func TestSummarizeBenchmark(t *testing.T) {
	summary, err := SummarizeBenchmark("annealing", "HPHP", "2D", []float64{-9, -4, -6, -8}, -8)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}

	if summary.Repeats != 4 {
		t.Fatalf("repeats: got %d want 4", summary.Repeats)
	}
	if summary.BestEnergy != -9 || summary.WorstEnergy != -4 {
		t.Fatalf("extremes: got (%v, %v)", summary.BestEnergy, summary.WorstEnergy)
	}
	if summary.MeanEnergy != -6.75 {
		t.Fatalf("mean: got %v want -6.75", summary.MeanEnergy)
	}
	if summary.MedianEnergy != -7 {
		t.Fatalf("median: got %v want -7", summary.MedianEnergy)
	}
	if summary.SuccessRate != 0.5 {
		t.Fatalf("success rate: got %v want 0.5", summary.SuccessRate)
	}

	if _, err := SummarizeBenchmark("annealing", "HPHP", "2D", nil, 0); err == nil {
		t.Fatal("expected error for empty repeats")
	}
}

func TestBenchmarkSummaryTravelsWithExport(t *testing.T) {
	baseDir := t.TempDir()
	outDir := t.TempDir()

	if _, err := WriteRunArtifacts(baseDir, sampleArtifacts("run-1")); err != nil {
		t.Fatalf("write artifacts: %v", err)
	}
	summary, err := SummarizeBenchmark("annealing", "HPHP", "2D", []float64{-1, -2}, 0)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if err := WriteBenchmarkSummary(baseDir, "run-1", summary); err != nil {
		t.Fatalf("write summary: %v", err)
	}

	exported, err := ExportRunArtifacts(baseDir, "run-1", outDir)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := os.Stat(filepath.Join(exported, "benchmark_summary.json")); err != nil {
		t.Fatalf("benchmark summary not exported: %v", err)
	}
}
