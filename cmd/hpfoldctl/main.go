package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"

	"hpfold/internal/model"
	"hpfold/internal/runcfg"
	"hpfold/internal/storage"
	hpapi "hpfold/pkg/hpfold"
)

const (
	artifactsDir = "artifacts"
	exportsDir   = "exports"
	defaultDB    = "hpfold.db"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "reset":
		return runReset(ctx, args[1:])
	case "solve":
		return runSolve(ctx, args[1:])
	case "benchmark":
		return runBenchmark(ctx, args[1:])
	case "algorithms":
		return runAlgorithms(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "history":
		return runHistory(ctx, args[1:])
	case "best":
		return runBest(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func newClient(storeKind, dbPath string) (*hpapi.Client, error) {
	return hpapi.New(hpapi.Options{
		StoreKind:    storeKind,
		DBPath:       dbPath,
		ArtifactsDir: artifactsDir,
		ExportsDir:   exportsDir,
	})
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDB, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Init(ctx); err != nil {
		return err
	}
	fmt.Printf("initialized store=%s\n", *storeKind)
	return nil
}

func runReset(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDB, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Init(ctx); err != nil {
		return err
	}
	if err := client.Reset(ctx); err != nil {
		return err
	}
	fmt.Printf("reset store=%s\n", *storeKind)
	return nil
}

func runSolve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("solve", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional solve preset JSON path")
	sequence := fs.String("sequence", "", "HP sequence, e.g. HPHPPHHPHPPHPHHPPHPH")
	algorithm := fs.String("algo", "annealing", "algorithm: montecarlo|annealing|genetic|evostrategy|evoprog|genprog")
	latticeKind := fs.String("lattice", "2D", "lattice type: 2D|3D")
	iterations := fs.Int("iterations", 20000, "iteration budget per instance")
	seed := fs.Int64("seed", 1, "rng seed")
	instances := fs.Int("instances", 4, "parallel solver instances")
	target := fs.Float64("target", 0, "early-stop energy goal (negative, 0 disables)")
	initialFold := fs.String("init", "", "initial direction chain (optional)")
	doRefine := fs.Bool("refine", false, "apply greedy flip refinement to the best fold")
	quiet := fs.Bool("quiet", false, "suppress progress output")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDB, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	req := hpapi.SolveRequest{
		Sequence:      *sequence,
		Algorithm:     *algorithm,
		Lattice:       *latticeKind,
		MaxIterations: *iterations,
		Seed:          *seed,
		Instances:     *instances,
		TargetEnergy:  *target,
		InitialFold:   *initialFold,
		Refine:        *doRefine,
	}
	if *configPath != "" {
		preset, err := runcfg.Load(*configPath)
		if err != nil {
			return err
		}
		applyPreset(&req, preset, fs)
	}
	if req.Sequence == "" {
		return errors.New("solve requires --sequence or a preset with one")
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if !*quiet {
		req.OnProgress = printProgress
	}

	summary, err := client.Solve(ctx, req)
	if err != nil {
		return err
	}

	fmt.Printf("solve completed run_id=%s algo=%s sequence=%s lattice=%s seed=%d instances=%d\n",
		summary.RunID,
		summary.Algorithm,
		summary.Sequence,
		summary.Lattice,
		summary.Seed,
		summary.Instances,
	)
	fmt.Printf("best_energy=%.1f collisions=%d refined=%t iterations=%s took=%s\n",
		summary.BestEnergy,
		summary.Collisions,
		summary.Refined,
		humanize.Comma(int64(summary.TotalIterations)),
		humanize.Comma(summary.ConvergenceMS)+"ms",
	)
	fmt.Printf("fold=%s\n", summary.Fold)
	fmt.Printf("artifacts_dir=%s\n", summary.ArtifactsDir)
	return nil
}

// applyPreset fills request fields from the preset unless the matching flag
// was set explicitly on the command line.
func applyPreset(req *hpapi.SolveRequest, preset runcfg.Preset, fs *flag.FlagSet) {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})

	if preset.Sequence != "" && !set["sequence"] {
		req.Sequence = preset.Sequence
	}
	if preset.Algorithm != "" && !set["algo"] {
		req.Algorithm = preset.Algorithm
	}
	if preset.Lattice != "" && !set["lattice"] {
		req.Lattice = preset.Lattice
	}
	if preset.MaxIterations > 0 && !set["iterations"] {
		req.MaxIterations = preset.MaxIterations
	}
	if preset.Seed != 0 && !set["seed"] {
		req.Seed = preset.Seed
	}
	if preset.Instances > 0 && !set["instances"] {
		req.Instances = preset.Instances
	}
	if preset.TargetEnergy != 0 && !set["target"] {
		req.TargetEnergy = preset.TargetEnergy
	}
	if preset.InitialFold != "" && !set["init"] {
		req.InitialFold = preset.InitialFold
	}
	if preset.Refine && !set["refine"] {
		req.Refine = true
	}
}

func printProgress(e model.ProgressEvent) {
	fmt.Printf("progress iteration=%s percent=%.1f current_energy=%.1f best_energy=%.1f\n",
		humanize.Comma(int64(e.Iteration)),
		e.Percent,
		e.CurrentEnergy,
		e.BestEnergy,
	)
}

func runBenchmark(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("benchmark", flag.ContinueOnError)
	sequence := fs.String("sequence", "", "HP sequence")
	algorithm := fs.String("algo", "annealing", "algorithm: montecarlo|annealing|genetic|evostrategy|evoprog|genprog")
	latticeKind := fs.String("lattice", "2D", "lattice type: 2D|3D")
	iterations := fs.Int("iterations", 20000, "iteration budget per instance")
	seed := fs.Int64("seed", 1, "rng seed")
	instances := fs.Int("instances", 4, "parallel solver instances")
	repeats := fs.Int("repeats", 5, "benchmark repeats with strided seeds")
	target := fs.Float64("target", 0, "success-rate energy goal (negative, 0 disables)")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDB, "sqlite database path")
	jsonOut := fs.Bool("json", false, "emit summary as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *sequence == "" {
		return errors.New("benchmark requires --sequence")
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	report, err := client.Benchmark(ctx, hpapi.BenchmarkRequest{
		Sequence:      *sequence,
		Algorithm:     *algorithm,
		Lattice:       *latticeKind,
		MaxIterations: *iterations,
		Seed:          *seed,
		Instances:     *instances,
		Repeats:       *repeats,
		TargetEnergy:  *target,
	})
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report.Summary)
	}

	s := report.Summary
	fmt.Printf("benchmark completed run_id=%s algo=%s sequence=%s lattice=%s repeats=%d\n",
		report.RunID, s.Algorithm, s.Sequence, s.Lattice, s.Repeats)
	fmt.Printf("best=%.1f worst=%.1f mean=%.3f median=%.1f stddev=%.3f success_rate=%.2f\n",
		s.BestEnergy, s.WorstEnergy, s.MeanEnergy, s.MedianEnergy, s.StdDev, s.SuccessRate)
	return nil
}

func runAlgorithms(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("algorithms", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient("memory", defaultDB)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	for _, name := range client.Algorithms() {
		fmt.Println(name)
	}
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDB, "sqlite database path")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	runs, err := client.Runs(ctx, hpapi.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	for _, r := range runs {
		fmt.Printf("run_id=%s created_at=%s algo=%s sequence=%s lattice=%s seed=%d iterations=%s instances=%d best_energy=%.1f collisions=%d\n",
			r.RunID,
			r.CreatedAtUTC,
			r.Algorithm,
			r.Sequence,
			r.Lattice,
			r.Seed,
			humanize.Comma(int64(r.MaxIterations)),
			r.Instances,
			r.BestEnergy,
			r.Collisions,
		)
	}
	return nil
}

func runHistory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show history for the most recent run")
	limit := fs.Int("limit", 50, "max samples to print (<=0 for all)")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDB, "sqlite database path")
	jsonOut := fs.Bool("json", false, "emit history as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("history requires --run-id or --latest")
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	history, err := client.History(ctx, hpapi.HistoryRequest{
		RunID:  *runID,
		Latest: *latest,
		Limit:  *limit,
	})
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Println("no energy history")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(history)
	}

	for _, sample := range history {
		fmt.Printf("iteration=%s best_energy=%.1f\n", humanize.Comma(int64(sample.Iteration)), sample.Energy)
	}
	return nil
}

func runBest(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("best", flag.ContinueOnError)
	sequence := fs.String("sequence", "", "HP sequence")
	latticeKind := fs.String("lattice", "2D", "lattice type: 2D|3D")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDB, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *sequence == "" {
		return errors.New("best requires --sequence")
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	summary, err := client.Best(ctx, hpapi.BestRequest{Sequence: *sequence, Lattice: *latticeKind})
	if err != nil {
		return err
	}
	fmt.Printf("sequence=%s lattice=%s best_energy=%.1f run_id=%s\n",
		summary.Sequence,
		summary.Lattice,
		summary.BestEnergy,
		summary.BestRunID,
	)
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run")
	outDir := fs.String("out", exportsDir, "export output directory")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDB, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("export requires --run-id or --latest")
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	summary, err := client.Export(ctx, hpapi.ExportRequest{
		RunID:  *runID,
		Latest: *latest,
		OutDir: *outDir,
	})
	if err != nil {
		return err
	}
	fmt.Printf("exported run_id=%s dir=%s\n", summary.RunID, summary.Directory)
	return nil
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: hpfoldctl <init|reset|solve|benchmark|algorithms|runs|history|best|export> [flags]", msg)
}
