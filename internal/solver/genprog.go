package solver

import (
	"context"
	"fmt"
	"sort"

	"hpfold/internal/lattice"
	"hpfold/internal/model"
)

// GenProgConfig parameterizes the genetic programming solver.
type GenProgConfig struct {
	Config
	PopulationSize  int     // default 50
	CrossoverRate   float64 // default 0.8
	SegmentRate     float64 // whole-segment replacement probability, default 0.15
	PointRate       float64 // per-gene point mutation probability, default 0.03
	EliteCount      int     // default 2
	TournamentSize  int     // default 3
	MaxCrossoverCut int     // cut points drawn from [2, MaxCrossoverCut], default 4
}

// GenProg treats the direction chain as a linear program. It differs from
// the genetic algorithm in its operators: multi-point crossover alternates
// parent segments across 2-4 cuts, and mutation can replace a whole
// contiguous sub-segment with fresh random genes — the linear analogue of
// subtree replacement.
type GenProg struct {
	base
	cfg GenProgConfig
}

func NewGenProg(cfg GenProgConfig) (*GenProg, error) {
	if cfg.PopulationSize == 0 {
		cfg.PopulationSize = 50
	}
	if cfg.CrossoverRate == 0 {
		cfg.CrossoverRate = 0.8
	}
	if cfg.SegmentRate == 0 {
		cfg.SegmentRate = 0.15
	}
	if cfg.PointRate == 0 {
		cfg.PointRate = 0.03
	}
	if cfg.EliteCount == 0 {
		cfg.EliteCount = 2
	}
	if cfg.TournamentSize == 0 {
		cfg.TournamentSize = 3
	}
	if cfg.MaxCrossoverCut == 0 {
		cfg.MaxCrossoverCut = 4
	}
	if cfg.PopulationSize < 2 {
		return nil, fmt.Errorf("population size must be >= 2, got %d", cfg.PopulationSize)
	}
	if cfg.CrossoverRate < 0 || cfg.CrossoverRate > 1 {
		return nil, fmt.Errorf("crossover rate must be in [0, 1], got %v", cfg.CrossoverRate)
	}
	if cfg.SegmentRate < 0 || cfg.SegmentRate > 1 {
		return nil, fmt.Errorf("segment rate must be in [0, 1], got %v", cfg.SegmentRate)
	}
	if cfg.PointRate < 0 || cfg.PointRate > 1 {
		return nil, fmt.Errorf("point rate must be in [0, 1], got %v", cfg.PointRate)
	}
	if cfg.EliteCount < 0 || cfg.EliteCount > cfg.PopulationSize {
		return nil, fmt.Errorf("elite count must be in [0, population size], got %d", cfg.EliteCount)
	}
	if cfg.MaxCrossoverCut < 2 {
		return nil, fmt.Errorf("max crossover cuts must be >= 2, got %d", cfg.MaxCrossoverCut)
	}
	b, err := newBase(cfg.Config, 100)
	if err != nil {
		return nil, err
	}
	return &GenProg{base: b, cfg: cfg}, nil
}

func (s *GenProg) Name() string {
	return AlgoGenProg
}

func (s *GenProg) Solve(ctx context.Context) (model.SolverResult, error) {
	population := make([]model.Conformation, 0, s.cfg.PopulationSize)
	population = append(population, s.initialConformation())
	for len(population) < s.cfg.PopulationSize {
		population = append(population, s.randomConformation())
	}
	sortByFitness(population)
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
			a := s.tournament(population)
			b := s.tournament(population)
			program := a.Directions
			if s.rng.Float64() < s.cfg.CrossoverRate {
				program = s.multiPointCrossover(a.Directions, b.Directions)
			}
			next = append(next, s.evaluate(s.mutateProgram(program)))
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

func (s *GenProg) tournament(population []model.Conformation) model.Conformation {
	best := population[s.rng.Intn(len(population))]
	for i := 1; i < s.cfg.TournamentSize; i++ {
		candidate := population[s.rng.Intn(len(population))]
		if candidate.Fitness < best.Fitness {
			best = candidate
		}
	}
	return best
}

// multiPointCrossover draws 2-4 sorted cut points and alternates the source
// parent between consecutive segments.
func (s *GenProg) multiPointCrossover(a, b []model.Direction) []model.Direction {
	n := len(a)
	if n < 2 {
		return append([]model.Direction(nil), a...)
	}
	cutCount := 2 + s.rng.Intn(s.cfg.MaxCrossoverCut-1)
	if cutCount > n-1 {
		cutCount = n - 1
	}
	cuts := make([]int, cutCount)
	for i := range cuts {
		cuts[i] = 1 + s.rng.Intn(n-1)
	}
	sort.Ints(cuts)

	child := make([]model.Direction, n)
	prev, fromA := 0, true
	for _, cut := range append(cuts, n) {
		source := b
		if fromA {
			source = a
		}
		copy(child[prev:cut], source[prev:cut])
		prev = cut
		fromA = !fromA
	}
	return child
}

// mutateProgram applies segment replacement and per-gene point mutation.
func (s *GenProg) mutateProgram(program []model.Direction) []model.Direction {
	out := append([]model.Direction(nil), program...)
	alphabet := lattice.Alphabet(s.cfg.Lattice)

	if len(out) > 0 && s.rng.Float64() < s.cfg.SegmentRate {
		maxSegment := len(out) / 4
		if maxSegment < 1 {
			maxSegment = 1
		}
		segment := 1 + s.rng.Intn(maxSegment)
		start := s.rng.Intn(len(out) - segment + 1)
		for i := start; i < start+segment; i++ {
			out[i] = alphabet[s.rng.Intn(len(alphabet))]
		}
	}
	for i := range out {
		if s.rng.Float64() < s.cfg.PointRate {
			out[i] = alphabet[s.rng.Intn(len(alphabet))]
		}
	}
	return out
}
