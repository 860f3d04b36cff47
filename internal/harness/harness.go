// Package harness runs solver instances under the progress/cancellation
// protocol: isolated instances with independent seeds and jittered budgets,
// one-directional progress reporting, and a min-energy reduction over the
// per-instance bests. An instance failure is reported and never aborts its
// siblings.
package harness

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"hpfold/internal/energy"
	"hpfold/internal/model"
	"hpfold/internal/solver"
)

// Factory builds one solver instance from a per-instance config. The
// default factory dispatches through the solver registry.
type Factory func(cfg solver.Config) (solver.Solver, error)

// Outcome is one instance's terminal state.
type Outcome struct {
	Instance int
	Result   model.SolverResult
	Err      error
}

// Config parameterizes a parallel run. Instances share the algorithm and
// base parameters; each receives seed Base.Seed+1000*i and an iteration
// budget jittered by BudgetJitter to encourage divergent trajectories.
type Config struct {
	Base         solver.Config
	Algorithm    string
	Instances    int     // default 4
	BudgetJitter float64 // fraction of MaxIterations, default 0.1
	Factory      Factory
	// OnInstanceError observes per-instance failures as they happen; the
	// run continues on the surviving siblings.
	OnInstanceError func(instance int, err error)
}

// Runner owns the live instances of one parallel run. Stop is idempotent
// and propagates to every active instance; each observes it within one
// iteration's work.
type Runner struct {
	cfg Config

	mu      sync.Mutex
	active  []solver.Solver
	stopped bool
}

func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Instances == 0 {
		cfg.Instances = 4
	}
	if cfg.Instances < 1 {
		return nil, fmt.Errorf("instances must be >= 1, got %d", cfg.Instances)
	}
	if cfg.BudgetJitter == 0 {
		cfg.BudgetJitter = 0.1
	}
	if cfg.BudgetJitter < 0 || cfg.BudgetJitter >= 1 {
		return nil, fmt.Errorf("budget jitter must be in [0, 1), got %v", cfg.BudgetJitter)
	}
	if cfg.Factory == nil {
		if cfg.Algorithm == "" {
			return nil, fmt.Errorf("algorithm or factory is required")
		}
		algorithm := cfg.Algorithm
		cfg.Factory = func(c solver.Config) (solver.Solver, error) {
			return solver.Build(algorithm, c)
		}
	}
	return &Runner{cfg: cfg}, nil
}

// Run executes all instances concurrently and reduces to the lexicographic
// best (collisions, then HP energy) across instance bests. It errors only
// when every instance failed.
func (r *Runner) Run(ctx context.Context) (model.SolverResult, []Outcome, error) {
	jitter := rand.New(rand.NewSource(r.cfg.Base.Seed))
	outcomes := make([]Outcome, r.cfg.Instances)

	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Instances; i++ {
		instanceCfg := r.cfg.Base
		instanceCfg.Seed = r.cfg.Base.Seed + int64(i)*1000
		if r.cfg.Instances > 1 && r.cfg.BudgetJitter > 0 {
			span := r.cfg.BudgetJitter * float64(instanceCfg.MaxIterations)
			instanceCfg.MaxIterations += int((jitter.Float64()*2 - 1) * span)
			if instanceCfg.MaxIterations < 1 {
				instanceCfg.MaxIterations = 1
			}
		}

		instance, err := r.cfg.Factory(instanceCfg)
		if err != nil {
			// Instances launched on earlier loop turns must not outlive the
			// run: stop them and wait before surfacing the factory error.
			r.Stop()
			wg.Wait()
			return model.SolverResult{}, nil, err
		}
		if !r.register(instance) {
			instance.Stop()
		}

		wg.Add(1)
		go func(idx int, s solver.Solver) {
			defer wg.Done()
			outcomes[idx] = Outcome{Instance: idx}
			outcomes[idx].Result, outcomes[idx].Err = runInstance(ctx, s)
			if outcomes[idx].Err != nil && r.cfg.OnInstanceError != nil {
				r.cfg.OnInstanceError(idx, outcomes[idx].Err)
			}
		}(i, instance)
	}
	wg.Wait()

	r.mu.Lock()
	r.active = nil
	r.mu.Unlock()

	var best *model.SolverResult
	failures := 0
	for i := range outcomes {
		if outcomes[i].Err != nil {
			failures++
			continue
		}
		if best == nil || energy.Less(outcomes[i].Result.Best, best.Best) {
			best = &outcomes[i].Result
		}
	}
	if best == nil {
		return model.SolverResult{}, outcomes, fmt.Errorf("all %d instances failed", failures)
	}
	return *best, outcomes, nil
}

// Stop requests cooperative cancellation of every active instance. Safe to
// call at any time, repeatedly, or after completion.
func (r *Runner) Stop() {
	r.mu.Lock()
	r.stopped = true
	active := append([]solver.Solver(nil), r.active...)
	r.mu.Unlock()
	for _, s := range active {
		s.Stop()
	}
}

func (r *Runner) register(s solver.Solver) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return false
	}
	r.active = append(r.active, s)
	return true
}

// runInstance converts an instance panic into an error so one failing
// trajectory cannot take down its siblings.
func runInstance(ctx context.Context, s solver.Solver) (result model.SolverResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("solver %s panicked: %v", s.Name(), rec)
		}
	}()
	return s.Solve(ctx)
}
