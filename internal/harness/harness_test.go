package harness

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"hpfold/internal/model"
	"hpfold/internal/solver"
)

func baseConfig(t *testing.T, iterations int) solver.Config {
	t.Helper()
	seq, err := model.ParseSequence("HPHPPHHPHPPHPHHPPHPH")
	if err != nil {
		t.Fatalf("parse sequence: %v", err)
	}
	return solver.Config{
		Sequence:      seq,
		MaxIterations: iterations,
		Lattice:       model.Lattice2D,
		Seed:          7,
	}
}

// fakeSolver returns a canned result, an error, or panics, and records Stop.
type fakeSolver struct {
	result  model.SolverResult
	err     error
	panics  bool
	block   chan struct{}
	stopped atomic.Bool
}

func (f *fakeSolver) Name() string { return "fake" }

func (f *fakeSolver) Solve(ctx context.Context) (model.SolverResult, error) {
	if f.panics {
		panic("deliberate test panic")
	}
	if f.block != nil {
		for !f.stopped.Load() && ctx.Err() == nil {
			select {
			case <-f.block:
			case <-time.After(5 * time.Millisecond):
			}
		}
	}
	return f.result, f.err
}

func (f *fakeSolver) Stop() { f.stopped.Store(true) }

func TestRunReducesToLexicographicBest(t *testing.T) {
	results := []model.SolverResult{
		{Best: model.Conformation{Collisions: 0, HPEnergy: -4}},
		{Best: model.Conformation{Collisions: 0, HPEnergy: -7}},
		{Best: model.Conformation{Collisions: 1, HPEnergy: -9}},
	}

	i := 0
	runner, err := NewRunner(Config{
		Base:      baseConfig(t, 10),
		Instances: 3,
		Factory: func(solver.Config) (solver.Solver, error) {
			s := &fakeSolver{result: results[i]}
			i++
			return s, nil
		},
	})
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}

	best, outcomes, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("got %d outcomes, want 3", len(outcomes))
	}
	if best.Best.HPEnergy != -7 || best.Best.Collisions != 0 {
		t.Fatalf("reduction picked (%v, %d), want (-7, 0)", best.Best.HPEnergy, best.Best.Collisions)
	}
}

func TestRunIsolatesInstanceFailures(t *testing.T) {
	good := model.SolverResult{Best: model.Conformation{HPEnergy: -2}}

	var reported atomic.Int32
	i := 0
	runner, err := NewRunner(Config{
		Base:      baseConfig(t, 10),
		Instances: 3,
		Factory: func(solver.Config) (solver.Solver, error) {
			defer func() { i++ }()
			switch i {
			case 0:
				return &fakeSolver{err: errors.New("instance failure")}, nil
			case 1:
				return &fakeSolver{panics: true}, nil
			default:
				return &fakeSolver{result: good}, nil
			}
		},
		OnInstanceError: func(int, error) {
			reported.Add(1)
		},
	})
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}

	best, outcomes, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run must survive partial failure: %v", err)
	}
	if best.Best.HPEnergy != -2 {
		t.Fatalf("surviving instance result lost: %v", best.Best.HPEnergy)
	}
	if reported.Load() != 2 {
		t.Fatalf("expected 2 reported failures, got %d", reported.Load())
	}

	failures := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failures++
		}
	}
	if failures != 2 {
		t.Fatalf("expected 2 failed outcomes, got %d", failures)
	}
}

func TestRunErrorsWhenAllInstancesFail(t *testing.T) {
	runner, err := NewRunner(Config{
		Base:      baseConfig(t, 10),
		Instances: 2,
		Factory: func(solver.Config) (solver.Solver, error) {
			return &fakeSolver{err: errors.New("boom")}, nil
		},
	})
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	if _, _, err := runner.Run(context.Background()); err == nil {
		t.Fatal("expected error when every instance fails")
	}
}

func TestStopPropagatesToAllInstances(t *testing.T) {
	instances := make([]*fakeSolver, 0, 3)
	runner, err := NewRunner(Config{
		Base:      baseConfig(t, 10),
		Instances: 3,
		Factory: func(solver.Config) (solver.Solver, error) {
			s := &fakeSolver{block: make(chan struct{})}
			instances = append(instances, s)
			return s, nil
		},
	})
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}

	done := make(chan struct{})
	go func() {
		_, _, _ = runner.Run(context.Background())
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	runner.Stop()
	runner.Stop() // idempotent

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after stop")
	}
	for i, s := range instances {
		if !s.stopped.Load() {
			t.Fatalf("instance %d never observed stop", i)
		}
	}
}

func TestFactoryErrorStopsLaunchedInstances(t *testing.T) {
	blocked := &fakeSolver{block: make(chan struct{})}
	i := 0
	runner, err := NewRunner(Config{
		Base:      baseConfig(t, 10),
		Instances: 3,
		Factory: func(solver.Config) (solver.Solver, error) {
			defer func() { i++ }()
			if i == 0 {
				return blocked, nil
			}
			return nil, errors.New("factory failure")
		},
	})
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, _, err := runner.Run(context.Background())
		done <- err
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected the factory error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run leaked the already-launched instance")
	}
	if !blocked.stopped.Load() {
		t.Fatal("launched instance never observed stop")
	}
}

func TestPerInstanceSeedsDiverge(t *testing.T) {
	seeds := make(map[int64]bool)
	runner, err := NewRunner(Config{
		Base:      baseConfig(t, 1000),
		Instances: 4,
		Factory: func(cfg solver.Config) (solver.Solver, error) {
			seeds[cfg.Seed] = true
			return &fakeSolver{}, nil
		},
	})
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	if _, _, err := runner.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(seeds) != 4 {
		t.Fatalf("expected 4 distinct seeds, got %d", len(seeds))
	}
}

func TestEndToEndParallelSolve(t *testing.T) {
	runner, err := NewRunner(Config{
		Base:      baseConfig(t, 2000),
		Algorithm: solver.AlgoAnnealing,
		Instances: 4,
	})
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}

	best, outcomes, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(outcomes) != 4 {
		t.Fatalf("got %d outcomes, want 4", len(outcomes))
	}
	if !best.Best.Valid() {
		t.Fatalf("parallel best collides %d times", best.Best.Collisions)
	}
	if best.Best.HPEnergy > -1 {
		t.Fatalf("expected at least one contact across 4 instances, got %v", best.Best.HPEnergy)
	}
}
