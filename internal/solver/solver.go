// Package solver implements the six metaheuristic search algorithms over the
// shared conformation representation: Monte Carlo sampling, simulated
// annealing, a genetic algorithm, evolution strategies, evolutionary
// programming, and genetic programming. Every solver owns its random stream
// and supports cooperative cancellation through Stop or a context.
package solver

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"hpfold/internal/energy"
	"hpfold/internal/lattice"
	"hpfold/internal/model"
	"hpfold/internal/moves"
)

// Solver is the common capability of all algorithm variants. Solve runs the
// configured iteration budget and returns the best conformation found; Stop
// requests cooperative cancellation and is safe to call at any time,
// multiple times, or after completion.
type Solver interface {
	Name() string
	Solve(ctx context.Context) (model.SolverResult, error)
	Stop()
}

// Config is the base shape shared by every algorithm's configuration.
type Config struct {
	Sequence          model.Sequence
	MaxIterations     int
	InitialDirections []model.Direction
	Lattice           model.LatticeKind
	Seed              int64
	// TargetEnergy < 0 enables early termination once a collision-free
	// conformation reaches it. Goal checks compare pure HP energy, never
	// the penalized fitness.
	TargetEnergy float64
	OnProgress   func(model.ProgressEvent)
}

func (c *Config) validate() error {
	if _, err := model.ParseSequence(string(c.Sequence)); err != nil {
		return err
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("max iterations must be > 0, got %d", c.MaxIterations)
	}
	if c.Lattice == "" {
		c.Lattice = model.Lattice2D
	}
	if c.Lattice != model.Lattice2D && c.Lattice != model.Lattice3D {
		return fmt.Errorf("unsupported lattice type: %s", c.Lattice)
	}
	if c.InitialDirections != nil {
		if len(c.InitialDirections) != c.Sequence.Len()-1 {
			return fmt.Errorf("expected %d directions, got %d", c.Sequence.Len()-1, len(c.InitialDirections))
		}
		if err := lattice.ValidDirections(c.Lattice, c.InitialDirections); err != nil {
			return err
		}
	}
	return nil
}

// base carries the per-run state every solver shares: the validated config,
// the owned random stream, the penalty weight, and the cooperative stop flag.
type base struct {
	cfg     Config
	rng     *rand.Rand
	penalty float64
	stopped atomic.Bool
}

func newBase(cfg Config, penalty float64) (base, error) {
	if err := cfg.validate(); err != nil {
		return base{}, err
	}
	return base{
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		penalty: penalty,
	}, nil
}

func (b *base) Stop() {
	b.stopped.Store(true)
}

// halted is checked once at the top of each iteration; cancellation is
// cooperative, never preemptive.
func (b *base) halted(ctx context.Context) bool {
	return b.stopped.Load() || ctx.Err() != nil
}

func (b *base) evaluate(directions []model.Direction) model.Conformation {
	return energy.Evaluate(b.cfg.Sequence, directions, b.penalty)
}

// randomConformation draws a fresh random self-avoiding walk.
func (b *base) randomConformation() model.Conformation {
	return b.evaluate(moves.RandomSAW(b.rng, b.cfg.Lattice, b.cfg.Sequence.Len()))
}

// greedyConformation draws a contact-biased walk.
func (b *base) greedyConformation() model.Conformation {
	return b.evaluate(moves.GreedySAW(b.rng, b.cfg.Lattice, b.cfg.Sequence))
}

// initialConformation honors caller-provided directions, falling back to a
// random walk.
func (b *base) initialConformation() model.Conformation {
	if b.cfg.InitialDirections != nil {
		return b.evaluate(append([]model.Direction(nil), b.cfg.InitialDirections...))
	}
	return b.randomConformation()
}

// goalReached compares pure HP energy of a collision-free best against the
// configured target.
func (b *base) goalReached(best model.Conformation) bool {
	return b.cfg.TargetEnergy < 0 && best.Valid() && best.HPEnergy <= b.cfg.TargetEnergy
}

// tracker records the best-ever conformation, the sampled energy history,
// and drives progress callbacks at the logging cadence. History entries are
// strictly increasing in iteration and non-increasing in energy: the
// recorded energy is always the best-so-far pure HP energy of a
// collision-free best. While the incumbent still collides its raw HP energy
// is not reportable (a valid fold with fewer contacts may displace it), so
// sampling waits for the first self-avoiding best.
type tracker struct {
	cfg      Config
	best     model.Conformation
	history  []model.EnergySample
	interval int
	started  time.Time
}

func newTracker(cfg Config, initial model.Conformation) *tracker {
	interval := cfg.MaxIterations / 2000
	if interval < 1 {
		interval = 1
	}
	t := &tracker{
		cfg:      cfg,
		best:     initial.Clone(),
		interval: interval,
		started:  time.Now(),
	}
	if initial.Valid() {
		t.history = []model.EnergySample{{Iteration: 0, Energy: initial.HPEnergy}}
	}
	return t
}

// noteBest folds a candidate into the best-ever state. Best ordering is
// lexicographic: collisions first, HP energy second.
func (t *tracker) noteBest(current model.Conformation) {
	if energy.Less(current, t.best) {
		t.best = current.Clone()
	}
}

// sample emits history and progress on interval boundaries. The recorded
// history energy is the best-so-far HP energy; currentEnergy feeds only the
// progress event (Monte Carlo reports the population average here). Nothing
// is emitted until a collision-free best exists: once energy.Less has
// installed a valid incumbent the ordering keeps it valid, so the reported
// series can never rise afterwards.
func (t *tracker) sample(iteration int, currentEnergy float64) {
	if iteration%t.interval != 0 || !t.best.Valid() {
		return
	}
	t.history = append(t.history, model.EnergySample{Iteration: iteration, Energy: t.best.HPEnergy})
	if t.cfg.OnProgress != nil {
		t.cfg.OnProgress(model.ProgressEvent{
			Iteration:     iteration,
			CurrentEnergy: currentEnergy,
			BestEnergy:    t.best.HPEnergy,
			Percent:       100 * float64(iteration) / float64(t.cfg.MaxIterations),
		})
	}
}

// observe is the common single-candidate path: fold into best, then sample.
func (t *tracker) observe(iteration int, current model.Conformation) {
	t.noteBest(current)
	t.sample(iteration, current.HPEnergy)
}

// result seals the run into an immutable SolverResult.
func (t *tracker) result() model.SolverResult {
	return model.SolverResult{
		Best:            t.best,
		EnergyHistory:   t.history,
		TotalIterations: t.cfg.MaxIterations,
		ConvergenceMS:   time.Since(t.started).Milliseconds(),
	}
}
