// Package hpfold is the public facade over the folding engine: it wires the
// solver registry, the parallel harness, persistence, and run artifacts into
// a small request/summary API consumed by the CLI and by embedding programs.
package hpfold

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"hpfold/internal/energy"
	"hpfold/internal/harness"
	"hpfold/internal/model"
	"hpfold/internal/refine"
	"hpfold/internal/solver"
	"hpfold/internal/stats"
	"hpfold/internal/storage"
)

const (
	defaultArtifactsDir  = "artifacts"
	defaultExportsDir    = "exports"
	defaultDBPath        = "hpfold.db"
	defaultIterations    = 20000
	defaultRefinePasses  = 3
	benchmarkSeedStride  = 7919
	defaultBenchmarkRuns = 5
)

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
	ExportsDir   string
}

type Client struct {
	store storage.Store

	artifactsDir string
	exportsDir   string
}

type SolveRequest struct {
	Sequence      string
	Algorithm     string
	Lattice       string
	MaxIterations int
	Seed          int64
	Instances     int
	TargetEnergy  float64
	InitialFold   string
	Refine        bool
	OnProgress    func(model.ProgressEvent)
}

type SolveSummary struct {
	RunID           string
	Algorithm       string
	Sequence        string
	Lattice         string
	Seed            int64
	Instances       int
	BestEnergy      float64
	Collisions      int
	Fold            string
	TotalIterations int
	ConvergenceMS   int64
	Refined         bool
	ArtifactsDir    string
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID         string
	CreatedAtUTC  string
	Algorithm     string
	Sequence      string
	Lattice       string
	Seed          int64
	MaxIterations int
	Instances     int
	BestEnergy    float64
	Collisions    int
}

type HistoryRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type BestRequest struct {
	Sequence string
	Lattice  string
}

type BestSummary struct {
	Sequence   string
	Lattice    string
	BestEnergy float64
	BestRunID  string
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type BenchmarkRequest struct {
	Sequence      string
	Algorithm     string
	Lattice       string
	MaxIterations int
	Seed          int64
	Instances     int
	Repeats       int
	TargetEnergy  float64
}

type BenchmarkReport struct {
	RunID   string
	Summary stats.BenchmarkSummary
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:        store,
		artifactsDir: artifactsDir,
		exportsDir:   exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.store.Init(ctx)
}

// Reset drops all stored runs and summaries. Only backends that support a
// full reset accept it.
func (c *Client) Reset(ctx context.Context) error {
	resetter, ok := c.store.(storage.Resetter)
	if !ok {
		return errors.New("store backend does not support reset")
	}
	return resetter.Reset(ctx)
}

// Algorithms lists the registered solver identifiers.
func (c *Client) Algorithms() []string {
	return solver.Algorithms()
}

func (c *Client) Solve(ctx context.Context, req SolveRequest) (SolveSummary, error) {
	base, err := c.prepareConfig(req.Sequence, req.Lattice, req.MaxIterations, req.Seed, req.TargetEnergy, req.InitialFold)
	if err != nil {
		return SolveSummary{}, err
	}
	base.OnProgress = req.OnProgress
	if req.Algorithm == "" {
		req.Algorithm = solver.AlgoAnnealing
	}
	if req.Instances <= 0 {
		req.Instances = 4
	}

	runner, err := harness.NewRunner(harness.Config{
		Base:      base,
		Algorithm: req.Algorithm,
		Instances: req.Instances,
	})
	if err != nil {
		return SolveSummary{}, err
	}

	result, _, err := runner.Run(ctx)
	if err != nil {
		return SolveSummary{}, err
	}

	refined := false
	if req.Refine {
		improved, err := refine.HillClimb{Passes: defaultRefinePasses, Lattice: base.Lattice}.Refine(ctx, result.Best)
		if err != nil {
			return SolveSummary{}, err
		}
		if energy.Less(improved, result.Best) {
			result.Best = improved
			refined = true
		}
	}

	now := time.Now().UTC()
	runID := fmt.Sprintf("%s-%s", req.Algorithm, uuid.NewString())

	if err := c.persistRun(ctx, runID, req.Algorithm, base, req.Instances, result, now); err != nil {
		return SolveSummary{}, err
	}

	runDir, err := c.writeArtifacts(runID, req.Algorithm, base, req.Instances, result, refined, now)
	if err != nil {
		return SolveSummary{}, err
	}

	return SolveSummary{
		RunID:           runID,
		Algorithm:       req.Algorithm,
		Sequence:        string(base.Sequence),
		Lattice:         string(base.Lattice),
		Seed:            base.Seed,
		Instances:       req.Instances,
		BestEnergy:      result.Best.HPEnergy,
		Collisions:      result.Best.Collisions,
		Fold:            directionsString(result.Best.Directions),
		TotalIterations: result.TotalIterations,
		ConvergenceMS:   result.ConvergenceMS,
		Refined:         refined,
		ArtifactsDir:    filepath.Clean(runDir),
	}, nil
}

// Benchmark repeats the same solve with strided seeds and summarizes the
// distribution of best energies. Artifacts are written for the best repeat
// with the summary alongside.
func (c *Client) Benchmark(ctx context.Context, req BenchmarkRequest) (BenchmarkReport, error) {
	base, err := c.prepareConfig(req.Sequence, req.Lattice, req.MaxIterations, req.Seed, req.TargetEnergy, "")
	if err != nil {
		return BenchmarkReport{}, err
	}
	if req.Algorithm == "" {
		req.Algorithm = solver.AlgoAnnealing
	}
	if req.Instances <= 0 {
		req.Instances = 4
	}
	if req.Repeats <= 0 {
		req.Repeats = defaultBenchmarkRuns
	}

	energies := make([]float64, 0, req.Repeats)
	var best model.SolverResult
	haveBest := false
	for rep := 0; rep < req.Repeats; rep++ {
		repCfg := base
		repCfg.Seed = base.Seed + int64(rep)*benchmarkSeedStride

		runner, err := harness.NewRunner(harness.Config{
			Base:      repCfg,
			Algorithm: req.Algorithm,
			Instances: req.Instances,
		})
		if err != nil {
			return BenchmarkReport{}, err
		}
		result, _, err := runner.Run(ctx)
		if err != nil {
			return BenchmarkReport{}, err
		}
		energies = append(energies, result.Best.HPEnergy)
		if !haveBest || energy.Less(result.Best, best.Best) {
			best = result
			haveBest = true
		}
	}

	summary, err := stats.SummarizeBenchmark(req.Algorithm, string(base.Sequence), string(base.Lattice), energies, req.TargetEnergy)
	if err != nil {
		return BenchmarkReport{}, err
	}

	now := time.Now().UTC()
	runID := fmt.Sprintf("bench-%s-%s", req.Algorithm, uuid.NewString())
	if err := c.persistRun(ctx, runID, req.Algorithm, base, req.Instances, best, now); err != nil {
		return BenchmarkReport{}, err
	}
	if _, err := c.writeArtifacts(runID, req.Algorithm, base, req.Instances, best, false, now); err != nil {
		return BenchmarkReport{}, err
	}
	if err := stats.WriteBenchmarkSummary(c.artifactsDir, runID, summary); err != nil {
		return BenchmarkReport{}, err
	}

	return BenchmarkReport{RunID: runID, Summary: summary}, nil
}

func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	records, err := c.store.ListSolveRecords(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) > req.Limit {
		records = records[:req.Limit]
	}

	out := make([]RunItem, 0, len(records))
	for _, r := range records {
		out = append(out, RunItem{
			RunID:         r.RunID,
			CreatedAtUTC:  r.CreatedAtUTC,
			Algorithm:     r.Algorithm,
			Sequence:      r.Sequence,
			Lattice:       r.Lattice,
			Seed:          r.Seed,
			MaxIterations: r.MaxIterations,
			Instances:     r.Instances,
			BestEnergy:    r.BestEnergy,
			Collisions:    r.BestCollisions,
		})
	}
	return out, nil
}

func (c *Client) History(ctx context.Context, req HistoryRequest) ([]model.EnergySample, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}

	record, ok, err := c.store.GetSolveRecord(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("run not found: %s", runID)
	}

	history := record.EnergyHistory
	if req.Limit > 0 && len(history) > req.Limit {
		history = history[len(history)-req.Limit:]
	}
	return append([]model.EnergySample(nil), history...), nil
}

func (c *Client) Best(ctx context.Context, req BestRequest) (BestSummary, error) {
	seq, err := model.ParseSequence(req.Sequence)
	if err != nil {
		return BestSummary{}, err
	}
	kind, err := model.ParseLatticeKind(req.Lattice)
	if err != nil {
		return BestSummary{}, err
	}

	summary, ok, err := c.store.GetSequenceSummary(ctx, string(seq), string(kind))
	if err != nil {
		return BestSummary{}, err
	}
	if !ok {
		return BestSummary{}, fmt.Errorf("no recorded runs for sequence %s on %s lattice", seq, kind)
	}
	return BestSummary{
		Sequence:   summary.Sequence,
		Lattice:    summary.Lattice,
		BestEnergy: summary.BestEnergy,
		BestRunID:  summary.BestRunID,
	}, nil
}

func (c *Client) Export(ctx context.Context, req ExportRequest) (ExportSummary, error) {
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest)
	if err != nil {
		return ExportSummary{}, err
	}

	exportedDir, err := stats.ExportRunArtifacts(c.artifactsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

func (c *Client) prepareConfig(sequence, latticeKind string, maxIterations int, seed int64, targetEnergy float64, initialFold string) (solver.Config, error) {
	seq, err := model.ParseSequence(sequence)
	if err != nil {
		return solver.Config{}, err
	}
	kind, err := model.ParseLatticeKind(latticeKind)
	if err != nil {
		return solver.Config{}, err
	}
	if maxIterations <= 0 {
		maxIterations = defaultIterations
	}
	if targetEnergy > 0 {
		return solver.Config{}, fmt.Errorf("target energy must be <= 0, got %v", targetEnergy)
	}

	cfg := solver.Config{
		Sequence:      seq,
		MaxIterations: maxIterations,
		Lattice:       kind,
		Seed:          seed,
		TargetEnergy:  targetEnergy,
	}
	if initialFold != "" {
		dirs := make([]model.Direction, len(initialFold))
		for i := 0; i < len(initialFold); i++ {
			dirs[i] = model.Direction(initialFold[i])
		}
		cfg.InitialDirections = dirs
	}
	return cfg, nil
}

func (c *Client) persistRun(ctx context.Context, runID, algorithm string, base solver.Config, instances int, result model.SolverResult, now time.Time) error {
	if err := c.store.Init(ctx); err != nil {
		return err
	}

	record := model.SolveRecord{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: storage.CurrentSchemaVersion,
			CodecVersion:  storage.CurrentCodecVersion,
		},
		RunID:           runID,
		Algorithm:       algorithm,
		Sequence:        string(base.Sequence),
		Lattice:         string(base.Lattice),
		Seed:            base.Seed,
		MaxIterations:   base.MaxIterations,
		Instances:       instances,
		BestEnergy:      result.Best.HPEnergy,
		BestCollisions:  result.Best.Collisions,
		Best:            result.Best,
		EnergyHistory:   result.EnergyHistory,
		TotalIterations: result.TotalIterations,
		ConvergenceMS:   result.ConvergenceMS,
		CreatedAtUTC:    now.Format(time.RFC3339Nano),
	}
	if err := c.store.SaveSolveRecord(ctx, record); err != nil {
		return err
	}

	// The per-sequence summary only tracks collision-free folds.
	if !result.Best.Valid() {
		return nil
	}
	existing, ok, err := c.store.GetSequenceSummary(ctx, record.Sequence, record.Lattice)
	if err != nil {
		return err
	}
	if ok && existing.BestEnergy <= record.BestEnergy {
		return nil
	}
	return c.store.SaveSequenceSummary(ctx, model.SequenceSummary{
		VersionedRecord: record.VersionedRecord,
		Sequence:        record.Sequence,
		Lattice:         record.Lattice,
		BestEnergy:      record.BestEnergy,
		BestRunID:       runID,
	})
}

func (c *Client) writeArtifacts(runID, algorithm string, base solver.Config, instances int, result model.SolverResult, refined bool, now time.Time) (string, error) {
	runDir, err := stats.WriteRunArtifacts(c.artifactsDir, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:         runID,
			Algorithm:     algorithm,
			Sequence:      string(base.Sequence),
			Lattice:       string(base.Lattice),
			Seed:          base.Seed,
			MaxIterations: base.MaxIterations,
			Instances:     instances,
			TargetEnergy:  base.TargetEnergy,
			Refined:       refined,
		},
		Best:          result.Best,
		EnergyHistory: result.EnergyHistory,
		FinalEnergy:   result.Best.HPEnergy,
		Collisions:    result.Best.Collisions,
		ConvergenceMS: result.ConvergenceMS,
	})
	if err != nil {
		return "", err
	}

	if err := stats.AppendRunIndex(c.artifactsDir, stats.RunIndexEntry{
		RunID:         runID,
		Algorithm:     algorithm,
		Sequence:      string(base.Sequence),
		Lattice:       string(base.Lattice),
		Seed:          base.Seed,
		MaxIterations: base.MaxIterations,
		Instances:     instances,
		FinalEnergy:   result.Best.HPEnergy,
		Collisions:    result.Best.Collisions,
		CreatedAtUTC:  now.Format(time.RFC3339Nano),
	}); err != nil {
		return "", err
	}
	return runDir, nil
}

func (c *Client) resolveRunID(ctx context.Context, runID string, latest bool) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if runID != "" {
		return runID, nil
	}
	if !latest {
		return "", errors.New("run id or latest is required")
	}

	records, err := c.store.ListSolveRecords(ctx)
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", errors.New("no runs available")
	}
	return records[0].RunID, nil
}

func directionsString(directions []model.Direction) string {
	buf := make([]byte, len(directions))
	for i, d := range directions {
		buf[i] = byte(d)
	}
	return string(buf)
}
