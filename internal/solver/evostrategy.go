package solver

import (
	"context"
	"fmt"
	"math"
	"sort"

	"hpfold/internal/model"
	"hpfold/internal/moves"
)

// EvoStrategyConfig parameterizes the (mu, lambda) / (mu + lambda) strategy.
type EvoStrategyConfig struct {
	Config
	Mu               int     // parent pool size, default 12
	Lambda           int     // offspring per generation, default 48
	InitialSigma     float64 // starting per-individual mutation strength, default 0.35
	SigmaDecay       float64 // survivor shrink factor on improvement, default 0.92
	SigmaBoost       float64 // boost factor on stagnation, default 1.6
	StagnationWindow int     // generations before diversity injection, default 40
	DiversityShare   float64 // parent share replaced on stagnation, default 0.2
	PlusSelection    bool    // true selects from parents+offspring, default comma
}

type esIndividual struct {
	conf  model.Conformation
	sigma float64
}

// EvoStrategy carries a self-adapting mutation-strength scalar on every
// parent. Exploitation and exploration are explicit phases: global
// improvement shrinks all survivor sigmas, stagnation replaces the weak tail
// of the pool with fresh random walks and boosts the remaining sigmas.
type EvoStrategy struct {
	base
	cfg EvoStrategyConfig
}

func NewEvoStrategy(cfg EvoStrategyConfig) (*EvoStrategy, error) {
	if cfg.Mu == 0 {
		cfg.Mu = 12
	}
	if cfg.Lambda == 0 {
		cfg.Lambda = 48
	}
	if cfg.InitialSigma == 0 {
		cfg.InitialSigma = 0.35
	}
	if cfg.SigmaDecay == 0 {
		cfg.SigmaDecay = 0.92
	}
	if cfg.SigmaBoost == 0 {
		cfg.SigmaBoost = 1.6
	}
	if cfg.StagnationWindow == 0 {
		cfg.StagnationWindow = 40
	}
	if cfg.DiversityShare == 0 {
		cfg.DiversityShare = 0.2
	}
	if cfg.Mu < 1 {
		return nil, fmt.Errorf("mu must be >= 1, got %d", cfg.Mu)
	}
	if cfg.Lambda < cfg.Mu {
		return nil, fmt.Errorf("lambda must be >= mu, got mu=%d lambda=%d", cfg.Mu, cfg.Lambda)
	}
	if cfg.InitialSigma <= 0 || cfg.InitialSigma > 1 {
		return nil, fmt.Errorf("initial sigma must be in (0, 1], got %v", cfg.InitialSigma)
	}
	if cfg.SigmaDecay <= 0 || cfg.SigmaDecay >= 1 {
		return nil, fmt.Errorf("sigma decay must be in (0, 1), got %v", cfg.SigmaDecay)
	}
	if cfg.SigmaBoost <= 1 {
		return nil, fmt.Errorf("sigma boost must be > 1, got %v", cfg.SigmaBoost)
	}
	if cfg.DiversityShare < 0 || cfg.DiversityShare > 1 {
		return nil, fmt.Errorf("diversity share must be in [0, 1], got %v", cfg.DiversityShare)
	}
	b, err := newBase(cfg.Config, 100)
	if err != nil {
		return nil, err
	}
	return &EvoStrategy{base: b, cfg: cfg}, nil
}

func (s *EvoStrategy) Name() string {
	return AlgoEvoStrat
}

func (s *EvoStrategy) Solve(ctx context.Context) (model.SolverResult, error) {
	parents := make([]esIndividual, 0, s.cfg.Mu)
	parents = append(parents, esIndividual{conf: s.initialConformation(), sigma: s.cfg.InitialSigma})
	for len(parents) < s.cfg.Mu {
		parents = append(parents, esIndividual{conf: s.randomConformation(), sigma: s.cfg.InitialSigma})
	}
	sortESByFitness(parents)

	t := newTracker(s.cfg.Config, parents[0].conf)
	sinceImprovement := 0

	for gen := 1; gen <= s.cfg.MaxIterations; gen++ {
		if s.halted(ctx) {
			break
		}

		offspring := make([]esIndividual, 0, s.cfg.Lambda)
		for i := 0; i < s.cfg.Lambda; i++ {
			parent := parents[s.rng.Intn(len(parents))]
			offspring = append(offspring, s.mutate(parent))
		}

		pool := offspring
		if s.cfg.PlusSelection {
			pool = append(append(make([]esIndividual, 0, len(parents)+len(offspring)), parents...), offspring...)
		}
		sortESByFitness(pool)
		if len(pool) > s.cfg.Mu {
			pool = pool[:s.cfg.Mu]
		}
		parents = pool

		prevBest := t.best.Fitness
		t.observe(gen, parents[0].conf)
		if s.goalReached(t.best) {
			break
		}

		if t.best.Fitness < prevBest {
			sinceImprovement = 0
			for i := range parents {
				parents[i].sigma = clampSigma(parents[i].sigma * s.cfg.SigmaDecay)
			}
		} else {
			sinceImprovement++
		}

		if sinceImprovement >= s.cfg.StagnationWindow {
			s.injectDiversity(parents)
			sinceImprovement = 0
		}
	}
	return t.result(), nil
}

// mutate produces one offspring: structural moves applied at an intensity
// driven by the parent's own sigma, then lognormal self-adaptation of the
// child's sigma.
func (s *EvoStrategy) mutate(parent esIndividual) esIndividual {
	directions := parent.conf.Directions
	applied := false
	if s.rng.Float64() < 2*parent.sigma {
		directions = moves.Pivot{}.Apply(s.rng, directions)
		applied = true
	}
	if s.rng.Float64() < 2*parent.sigma {
		directions = moves.Pull{MaxWindow: 4}.Apply(s.rng, directions)
		applied = true
	}
	if !applied {
		directions = moves.WindowScramble{Kind: s.cfg.Lattice, Rate: parent.sigma}.Apply(s.rng, directions)
	}

	tau := 1 / math.Sqrt(float64(s.cfg.Sequence.Len()))
	sigma := clampSigma(parent.sigma * math.Exp(tau*s.rng.NormFloat64()))
	return esIndividual{conf: s.evaluate(directions), sigma: sigma}
}

// injectDiversity replaces the weakest share of the parent pool with fresh
// random walks and boosts the remaining sigmas.
func (s *EvoStrategy) injectDiversity(parents []esIndividual) {
	replace := int(s.cfg.DiversityShare * float64(len(parents)))
	if replace < 1 {
		replace = 1
	}
	for i := len(parents) - replace; i < len(parents); i++ {
		parents[i] = esIndividual{conf: s.randomConformation(), sigma: s.cfg.InitialSigma}
	}
	for i := 0; i < len(parents)-replace; i++ {
		parents[i].sigma = clampSigma(parents[i].sigma * s.cfg.SigmaBoost)
	}
}

func clampSigma(sigma float64) float64 {
	if sigma < 0.01 {
		return 0.01
	}
	if sigma > 1 {
		return 1
	}
	return sigma
}

func sortESByFitness(pool []esIndividual) {
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].conf.Fitness < pool[j].conf.Fitness
	})
}
