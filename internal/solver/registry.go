package solver

import (
	"fmt"
	"sort"
)

// Algorithm identifiers accepted by Build and the CLI.
const (
	AlgoMonteCarlo = "montecarlo"
	AlgoAnnealing  = "annealing"
	AlgoGenetic    = "genetic"
	AlgoEvoStrat   = "evostrategy"
	AlgoEvoProg    = "evoprog"
	AlgoGenProg    = "genprog"
)

var builders = map[string]func(Config) (Solver, error){
	AlgoMonteCarlo: func(cfg Config) (Solver, error) { return NewMonteCarlo(MonteCarloConfig{Config: cfg}) },
	AlgoAnnealing:  func(cfg Config) (Solver, error) { return NewAnnealing(AnnealingConfig{Config: cfg}) },
	AlgoGenetic:    func(cfg Config) (Solver, error) { return NewGenetic(GeneticConfig{Config: cfg}) },
	AlgoEvoStrat:   func(cfg Config) (Solver, error) { return NewEvoStrategy(EvoStrategyConfig{Config: cfg}) },
	AlgoEvoProg:    func(cfg Config) (Solver, error) { return NewEvoProg(EvoProgConfig{Config: cfg}) },
	AlgoGenProg:    func(cfg Config) (Solver, error) { return NewGenProg(GenProgConfig{Config: cfg}) },
}

// Build constructs a solver by algorithm identifier with that algorithm's
// default parameters. Callers needing tuned parameters use the per-algorithm
// constructors directly.
func Build(algorithm string, cfg Config) (Solver, error) {
	builder, ok := builders[algorithm]
	if !ok {
		return nil, fmt.Errorf("unknown algorithm identifier: %s", algorithm)
	}
	return builder(cfg)
}

// Algorithms lists the registered identifiers in stable order.
func Algorithms() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
