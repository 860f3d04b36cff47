package stats

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
)

// BenchmarkSummary aggregates the best energies reached by repeated runs of
// a single algorithm on a single sequence.
type BenchmarkSummary struct {
	Algorithm    string    `json:"algorithm"`
	Sequence     string    `json:"sequence"`
	Lattice      string    `json:"lattice"`
	Repeats      int       `json:"repeats"`
	BestEnergy   float64   `json:"best_energy"`
	WorstEnergy  float64   `json:"worst_energy"`
	MeanEnergy   float64   `json:"mean_energy"`
	MedianEnergy float64   `json:"median_energy"`
	StdDev       float64   `json:"std_dev"`
	TargetEnergy float64   `json:"target_energy,omitempty"`
	SuccessRate  float64   `json:"success_rate"`
	Energies     []float64 `json:"energies"`
}

// SummarizeBenchmark computes distribution statistics over the best energy
// of each repeat. SuccessRate is the share of repeats reaching targetEnergy
// or better; it stays zero when no target is set.
func SummarizeBenchmark(algorithm, sequence, lattice string, energies []float64, targetEnergy float64) (BenchmarkSummary, error) {
	if len(energies) == 0 {
		return BenchmarkSummary{}, fmt.Errorf("no benchmark repeats to summarize")
	}

	sorted := append([]float64(nil), energies...)
	sort.Float64s(sorted)

	sum := 0.0
	for _, e := range sorted {
		sum += e
	}
	mean := sum / float64(len(sorted))

	variance := 0.0
	for _, e := range sorted {
		diff := e - mean
		variance += diff * diff
	}
	variance /= float64(len(sorted))

	median := sorted[len(sorted)/2]
	if len(sorted)%2 == 0 {
		median = (sorted[len(sorted)/2-1] + sorted[len(sorted)/2]) / 2
	}

	successes := 0
	if targetEnergy < 0 {
		for _, e := range sorted {
			if e <= targetEnergy {
				successes++
			}
		}
	}

	return BenchmarkSummary{
		Algorithm:    algorithm,
		Sequence:     sequence,
		Lattice:      lattice,
		Repeats:      len(sorted),
		BestEnergy:   sorted[0],
		WorstEnergy:  sorted[len(sorted)-1],
		MeanEnergy:   mean,
		MedianEnergy: median,
		StdDev:       math.Sqrt(variance),
		TargetEnergy: targetEnergy,
		SuccessRate:  float64(successes) / float64(len(sorted)),
		Energies:     sorted,
	}, nil
}

// WriteBenchmarkSummary stores the summary inside the run directory of the
// benchmark's representative run so the export subcommand picks it up.
func WriteBenchmarkSummary(baseDir, runID string, summary BenchmarkSummary) error {
	if runID == "" {
		return fmt.Errorf("run id is required")
	}
	return writeJSON(filepath.Join(baseDir, runID, "benchmark_summary.json"), summary)
}
