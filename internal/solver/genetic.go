package solver

import (
	"context"
	"fmt"
	"sort"

	"hpfold/internal/energy"
	"hpfold/internal/lattice"
	"hpfold/internal/model"
	"hpfold/internal/moves"
)

// GeneticConfig parameterizes the genetic algorithm.
type GeneticConfig struct {
	Config
	PopulationSize    int     // default 50
	CrossoverRate     float64 // default 0.85
	MutationRate      float64 // per-gene flip probability, default 0.05
	EliteCount        int     // default 2
	SelectionPressure float64 // linear ranking pressure in [1, 2], default 1.6
	GreedySeedShare   float64 // share of the initial population built greedily, default 0.2
}

// Genetic evolves a population with linear rank selection, two-point
// crossover, per-gene mutation, and cascading repair on every offspring.
// Ordering throughout is lexicographic — collisions first, HP energy second
// — so structural validity can never be traded away for contact energy. The
// penalty weight is deliberately soft here; the lexicographic comparison
// carries the real pressure while repair untangles collisions.
type Genetic struct {
	base
	cfg GeneticConfig
}

func NewGenetic(cfg GeneticConfig) (*Genetic, error) {
	if cfg.PopulationSize == 0 {
		cfg.PopulationSize = 50
	}
	if cfg.PopulationSize < 2 {
		return nil, fmt.Errorf("population size must be >= 2, got %d", cfg.PopulationSize)
	}
	if cfg.CrossoverRate == 0 {
		cfg.CrossoverRate = 0.85
	}
	if cfg.MutationRate == 0 {
		cfg.MutationRate = 0.05
	}
	if cfg.EliteCount == 0 {
		cfg.EliteCount = 2
	}
	if cfg.SelectionPressure == 0 {
		cfg.SelectionPressure = 1.6
	}
	if cfg.GreedySeedShare == 0 {
		cfg.GreedySeedShare = 0.2
	}
	if cfg.CrossoverRate < 0 || cfg.CrossoverRate > 1 {
		return nil, fmt.Errorf("crossover rate must be in [0, 1], got %v", cfg.CrossoverRate)
	}
	if cfg.MutationRate < 0 || cfg.MutationRate > 1 {
		return nil, fmt.Errorf("mutation rate must be in [0, 1], got %v", cfg.MutationRate)
	}
	if cfg.EliteCount < 0 || cfg.EliteCount > cfg.PopulationSize {
		return nil, fmt.Errorf("elite count must be in [0, population size], got %d", cfg.EliteCount)
	}
	if cfg.SelectionPressure < 1 || cfg.SelectionPressure > 2 {
		return nil, fmt.Errorf("selection pressure must be in [1, 2], got %v", cfg.SelectionPressure)
	}
	b, err := newBase(cfg.Config, energy.SoftPenaltyWeight)
	if err != nil {
		return nil, err
	}
	return &Genetic{base: b, cfg: cfg}, nil
}

func (s *Genetic) Name() string {
	return AlgoGenetic
}

func (s *Genetic) Solve(ctx context.Context) (model.SolverResult, error) {
	population := s.seedPopulation()
	sortLexicographic(population)
	t := newTracker(s.cfg.Config, population[0])

	for gen := 1; gen <= s.cfg.MaxIterations; gen++ {
		if s.halted(ctx) {
			break
		}

		next := make([]model.Conformation, 0, s.cfg.PopulationSize)
		for i := 0; i < s.cfg.EliteCount && i < len(population); i++ {
			next = append(next, population[i].Clone())
		}

		for len(next) < s.cfg.PopulationSize {
			a := s.rankSelect(population)
			b := s.rankSelect(population)
			childA, childB := a.Directions, b.Directions
			if s.rng.Float64() < s.cfg.CrossoverRate {
				childA, childB = twoPointCrossover(s.rng, a.Directions, b.Directions)
			}
			next = append(next, s.finishOffspring(childA))
			if len(next) < s.cfg.PopulationSize {
				next = append(next, s.finishOffspring(childB))
			}
		}

		population = next
		sortLexicographic(population)
		t.observe(gen, population[0])
		if s.goalReached(t.best) {
			break
		}
	}
	return t.result(), nil
}

func (s *Genetic) seedPopulation() []model.Conformation {
	population := make([]model.Conformation, 0, s.cfg.PopulationSize)
	population = append(population, s.initialConformation())
	greedy := int(s.cfg.GreedySeedShare * float64(s.cfg.PopulationSize))
	for len(population) < s.cfg.PopulationSize {
		if len(population) <= greedy {
			population = append(population, s.greedyConformation())
			continue
		}
		population = append(population, s.randomConformation())
	}
	return population
}

// finishOffspring runs point mutation, cascading repair, and evaluation.
func (s *Genetic) finishOffspring(directions []model.Direction) model.Conformation {
	out := append([]model.Direction(nil), directions...)
	alphabet := lattice.Alphabet(s.cfg.Lattice)
	for i := range out {
		if s.rng.Float64() < s.cfg.MutationRate {
			out[i] = alphabet[s.rng.Intn(len(alphabet))]
		}
	}
	out = moves.Repair(s.rng, s.cfg.Lattice, out)
	return s.evaluate(out)
}

// rankSelect draws a parent by linear ranking: probabilities depend only on
// rank position and the pressure parameter, so a single fitness outlier
// cannot dominate mating.
func (s *Genetic) rankSelect(population []model.Conformation) model.Conformation {
	n := len(population)
	if n == 1 {
		return population[0]
	}
	pressure := s.cfg.SelectionPressure
	roll := s.rng.Float64()
	acc := 0.0
	for rank := 0; rank < n; rank++ {
		// rank 0 is the best individual; weight decreases linearly.
		weight := (pressure - (2*pressure-2)*float64(rank)/float64(n-1)) / float64(n)
		acc += weight
		if roll <= acc {
			return population[rank]
		}
	}
	return population[n-1]
}

// twoPointCrossover swaps the middle segment between two parents, keeping
// the outer segments; contiguous structural motifs survive the exchange.
func twoPointCrossover(rng interface{ Intn(int) int }, a, b []model.Direction) ([]model.Direction, []model.Direction) {
	n := len(a)
	if n < 2 {
		return append([]model.Direction(nil), a...), append([]model.Direction(nil), b...)
	}
	p1 := rng.Intn(n)
	p2 := rng.Intn(n)
	if p1 > p2 {
		p1, p2 = p2, p1
	}
	childA := append([]model.Direction(nil), a...)
	childB := append([]model.Direction(nil), b...)
	copy(childA[p1:p2], b[p1:p2])
	copy(childB[p1:p2], a[p1:p2])
	return childA, childB
}

func sortLexicographic(population []model.Conformation) {
	sort.SliceStable(population, func(i, j int) bool {
		return energy.Less(population[i], population[j])
	})
}
