package solver

import (
	"context"
	"fmt"
	"sort"

	"hpfold/internal/model"
	"hpfold/internal/moves"
)

// MonteCarloConfig parameterizes the population sampler. The fractions are
// empirical defaults, not laws: fresh uniform samples and best-half mutants
// are injected each iteration, then the pool is cut back to PopulationSize
// keeping the best slice plus a random remainder for diversity.
type MonteCarloConfig struct {
	Config
	PopulationSize   int     // default 40
	FreshFraction    float64 // fresh random samples per iteration, default 0.5
	MutatedFraction  float64 // mutants of the best half per iteration, default 0.3
	KeepBestFraction float64 // survivors taken from the top, default 0.6
}

// MonteCarlo is a biased population sampler, not a strict optimizer: it
// keeps exploring uniformly for the whole budget with no stagnation
// handling, and reports the population's average energy alongside the best.
type MonteCarlo struct {
	base
	cfg MonteCarloConfig
}

func NewMonteCarlo(cfg MonteCarloConfig) (*MonteCarlo, error) {
	if cfg.PopulationSize == 0 {
		cfg.PopulationSize = 40
	}
	if cfg.PopulationSize < 2 {
		return nil, fmt.Errorf("population size must be >= 2, got %d", cfg.PopulationSize)
	}
	if cfg.FreshFraction == 0 {
		cfg.FreshFraction = 0.5
	}
	if cfg.MutatedFraction == 0 {
		cfg.MutatedFraction = 0.3
	}
	if cfg.KeepBestFraction == 0 {
		cfg.KeepBestFraction = 0.6
	}
	if cfg.FreshFraction < 0 || cfg.MutatedFraction < 0 {
		return nil, fmt.Errorf("sample fractions must be >= 0")
	}
	if cfg.KeepBestFraction <= 0 || cfg.KeepBestFraction > 1 {
		return nil, fmt.Errorf("keep-best fraction must be in (0, 1], got %v", cfg.KeepBestFraction)
	}
	b, err := newBase(cfg.Config, 100)
	if err != nil {
		return nil, err
	}
	return &MonteCarlo{base: b, cfg: cfg}, nil
}

func (s *MonteCarlo) Name() string {
	return AlgoMonteCarlo
}

func (s *MonteCarlo) Solve(ctx context.Context) (model.SolverResult, error) {
	population := make([]model.Conformation, 0, s.cfg.PopulationSize)
	population = append(population, s.initialConformation())
	for len(population) < s.cfg.PopulationSize {
		population = append(population, s.randomConformation())
	}
	sortByFitness(population)

	t := newTracker(s.cfg.Config, population[0])
	flip := moves.SingleFlip{Kind: s.cfg.Lattice}

	for iter := 1; iter <= s.cfg.MaxIterations; iter++ {
		if s.halted(ctx) {
			break
		}

		freshCount := int(s.cfg.FreshFraction * float64(s.cfg.PopulationSize))
		mutantCount := int(s.cfg.MutatedFraction * float64(s.cfg.PopulationSize))
		merged := make([]model.Conformation, 0, len(population)+freshCount+mutantCount)
		merged = append(merged, population...)

		for i := 0; i < freshCount; i++ {
			merged = append(merged, s.randomConformation())
		}
		bestHalf := len(population) / 2
		if bestHalf < 1 {
			bestHalf = 1
		}
		for i := 0; i < mutantCount; i++ {
			parent := population[s.rng.Intn(bestHalf)]
			directions := parent.Directions
			flips := 1 + s.rng.Intn(3)
			for f := 0; f < flips; f++ {
				directions = flip.Apply(s.rng, directions)
			}
			merged = append(merged, s.evaluate(directions))
		}

		population = s.downselect(merged)
		for _, c := range population {
			t.noteBest(c)
		}
		t.sample(iter, averageEnergy(population))
		if s.goalReached(t.best) {
			break
		}
	}
	return t.result(), nil
}

// downselect keeps the best KeepBestFraction of the pool by fitness and
// fills the rest with uniform picks from the remainder.
func (s *MonteCarlo) downselect(merged []model.Conformation) []model.Conformation {
	sortByFitness(merged)
	keep := int(s.cfg.KeepBestFraction * float64(s.cfg.PopulationSize))
	if keep < 1 {
		keep = 1
	}
	if keep > s.cfg.PopulationSize {
		keep = s.cfg.PopulationSize
	}
	next := make([]model.Conformation, 0, s.cfg.PopulationSize)
	next = append(next, merged[:keep]...)

	remainder := merged[keep:]
	for len(next) < s.cfg.PopulationSize && len(remainder) > 0 {
		idx := s.rng.Intn(len(remainder))
		next = append(next, remainder[idx])
		remainder = append(remainder[:idx], remainder[idx+1:]...)
	}
	for len(next) < s.cfg.PopulationSize {
		next = append(next, s.randomConformation())
	}
	sortByFitness(next)
	return next
}

func sortByFitness(population []model.Conformation) {
	sort.SliceStable(population, func(i, j int) bool {
		return population[i].Fitness < population[j].Fitness
	})
}

// averageEnergy averages pure HP energy over the self-avoiding members;
// collided conformations are excluded as invalid. A fully collided
// population falls back to the mean penalized fitness so the progress feed
// never carries NaN.
func averageEnergy(population []model.Conformation) float64 {
	sum, count := 0.0, 0
	for _, c := range population {
		if !c.Valid() {
			continue
		}
		sum += c.HPEnergy
		count++
	}
	if count > 0 {
		return sum / float64(count)
	}
	for _, c := range population {
		sum += c.Fitness
	}
	return sum / float64(len(population))
}
