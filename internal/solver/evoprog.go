package solver

import (
	"context"
	"fmt"

	"hpfold/internal/model"
	"hpfold/internal/moves"
)

// EvoProgConfig parameterizes evolutionary programming.
type EvoProgConfig struct {
	Config
	PopulationSize int // default 40
	TournamentSize int // competitors per tournament, default 3
	EliteCount     int // individuals copied unmodified, default 2
}

// EvoProg evolves purely by mutation: tournament selection picks each
// offspring's single parent and a pivot/pull/flip mix perturbs it. No
// recombination — that is the line between this solver and the genetic
// algorithm. The top elites carry over unmodified.
type EvoProg struct {
	base
	cfg EvoProgConfig
}

func NewEvoProg(cfg EvoProgConfig) (*EvoProg, error) {
	if cfg.PopulationSize == 0 {
		cfg.PopulationSize = 40
	}
	if cfg.TournamentSize == 0 {
		cfg.TournamentSize = 3
	}
	if cfg.EliteCount == 0 {
		cfg.EliteCount = 2
	}
	if cfg.PopulationSize < 2 {
		return nil, fmt.Errorf("population size must be >= 2, got %d", cfg.PopulationSize)
	}
	if cfg.TournamentSize < 1 || cfg.TournamentSize > cfg.PopulationSize {
		return nil, fmt.Errorf("tournament size must be in [1, population size], got %d", cfg.TournamentSize)
	}
	if cfg.EliteCount < 0 || cfg.EliteCount > cfg.PopulationSize {
		return nil, fmt.Errorf("elite count must be in [0, population size], got %d", cfg.EliteCount)
	}
	b, err := newBase(cfg.Config, 100)
	if err != nil {
		return nil, err
	}
	return &EvoProg{base: b, cfg: cfg}, nil
}

func (s *EvoProg) Name() string {
	return AlgoEvoProg
}

func (s *EvoProg) Solve(ctx context.Context) (model.SolverResult, error) {
	population := make([]model.Conformation, 0, s.cfg.PopulationSize)
	population = append(population, s.initialConformation())
	for len(population) < s.cfg.PopulationSize {
		population = append(population, s.randomConformation())
	}
	sortByFitness(population)

	t := newTracker(s.cfg.Config, population[0])
	pivot := moves.Pivot{}
	pull := moves.Pull{MaxWindow: 3}
	flip := moves.SingleFlip{Kind: s.cfg.Lattice}

	for gen := 1; gen <= s.cfg.MaxIterations; gen++ {
		if s.halted(ctx) {
			break
		}

		next := make([]model.Conformation, 0, s.cfg.PopulationSize)
		for i := 0; i < s.cfg.EliteCount && i < len(population); i++ {
			next = append(next, population[i].Clone())
		}
		for len(next) < s.cfg.PopulationSize {
			parent := s.tournament(population)
			var mover moves.Mover
			switch roll := s.rng.Float64(); {
			case roll < 0.3:
				mover = pivot
			case roll < 0.7:
				mover = pull
			default:
				mover = flip
			}
			next = append(next, s.evaluate(mover.Apply(s.rng, parent.Directions)))
		}

		population = next
		sortByFitness(population)
		t.observe(gen, population[0])
		if s.goalReached(t.best) {
			break
		}
	}
	return t.result(), nil
}

// tournament samples TournamentSize competitors uniformly and returns the
// best by penalized fitness.
func (s *EvoProg) tournament(population []model.Conformation) model.Conformation {
	best := population[s.rng.Intn(len(population))]
	for i := 1; i < s.cfg.TournamentSize; i++ {
		candidate := population[s.rng.Intn(len(population))]
		if candidate.Fitness < best.Fitness {
			best = candidate
		}
	}
	return best
}
