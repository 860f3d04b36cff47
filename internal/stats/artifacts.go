// Package stats writes per-run artifacts (config, energy history, best
// conformation) under a base directory, maintains the run index, and
// summarizes benchmark repeats.
package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"hpfold/internal/model"
)

const runIndexFile = "run_index.json"

type RunConfig struct {
	RunID         string  `json:"run_id"`
	Algorithm     string  `json:"algorithm"`
	Sequence      string  `json:"sequence"`
	Lattice       string  `json:"lattice"`
	Seed          int64   `json:"seed"`
	MaxIterations int     `json:"max_iterations"`
	Instances     int     `json:"instances"`
	TargetEnergy  float64 `json:"target_energy,omitempty"`
	Refined       bool    `json:"refined"`
}

type RunArtifacts struct {
	Config        RunConfig            `json:"config"`
	Best          model.Conformation   `json:"best"`
	EnergyHistory []model.EnergySample `json:"energy_history"`
	FinalEnergy   float64              `json:"final_energy"`
	Collisions    int                  `json:"collisions"`
	ConvergenceMS int64                `json:"convergence_ms"`
}

type RunIndexEntry struct {
	RunID         string  `json:"run_id"`
	Algorithm     string  `json:"algorithm"`
	Sequence      string  `json:"sequence"`
	Lattice       string  `json:"lattice"`
	Seed          int64   `json:"seed"`
	MaxIterations int     `json:"max_iterations"`
	Instances     int     `json:"instances"`
	FinalEnergy   float64 `json:"final_energy"`
	Collisions    int     `json:"collisions"`
	CreatedAtUTC  string  `json:"created_at_utc"`
}

func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "config.json"), artifacts.Config); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "run.json"), artifacts); err != nil {
		return "", err
	}
	if err := writeHistoryCSV(filepath.Join(runDir, "energy_history.csv"), artifacts.EnergyHistory); err != nil {
		return "", err
	}
	return runDir, nil
}

func writeHistoryCSV(path string, history []model.EnergySample) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"iteration", "energy"}); err != nil {
		return err
	}
	for _, sample := range history {
		record := []string{
			strconv.Itoa(sample.Iteration),
			strconv.FormatFloat(sample.Energy, 'g', -1, 64),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAtUTC > entries[j].CreatedAtUTC
	})
	return entries, nil
}

func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	for _, file := range []string{"config.json", "run.json", "energy_history.csv"} {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	benchmarkPath := filepath.Join(src, "benchmark_summary.json")
	if _, err := os.Stat(benchmarkPath); err == nil {
		if err := copyFile(benchmarkPath, filepath.Join(dst, "benchmark_summary.json")); err != nil {
			return "", err
		}
	} else if !os.IsNotExist(err) {
		return "", err
	}
	return dst, nil
}

func ReadRunArtifacts(baseDir, runID string) (RunArtifacts, bool, error) {
	path := filepath.Join(baseDir, runID, "run.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return RunArtifacts{}, false, nil
		}
		return RunArtifacts{}, false, err
	}

	var artifacts RunArtifacts
	if err := json.Unmarshal(data, &artifacts); err != nil {
		return RunArtifacts{}, false, err
	}
	return artifacts, true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
