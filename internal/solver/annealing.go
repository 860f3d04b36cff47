package solver

import (
	"context"
	"fmt"
	"math"

	"hpfold/internal/energy"
	"hpfold/internal/lattice"
	"hpfold/internal/model"
	"hpfold/internal/moves"
)

// AnnealingConfig parameterizes the simulated annealing trajectory.
type AnnealingConfig struct {
	Config
	InitialTemperature float64 // default 2, on the scale of per-move contact deltas
	FinalTemperature   float64 // default 0.05
	CoolingRate        float64 // geometric factor per iteration, default 0.995
	StagnationWindow   int     // iterations without improvement before a restart, default 1000
	RestartPivots      int     // verified pivot kicks applied on restart, default 3
	MoveAttempts       int     // self-avoiding retries per proposal, default 15
}

// Annealing is the single-trajectory Metropolis solver with
// temperature-dependent move mixing and iterated restarts: on stagnation the
// best-known solution is perturbed by collision-checked pivots and the
// temperature is reset, preserving proximity to good basins while escaping
// local minima. The trajectory itself stays self-avoiding: every proposal is
// either a retried collision-free move or a repaired mutant, so Metropolis
// compares real contact counts instead of rejecting penalty-dominated folds
// all through the cold phase.
type Annealing struct {
	base
	cfg AnnealingConfig
}

func NewAnnealing(cfg AnnealingConfig) (*Annealing, error) {
	if cfg.InitialTemperature == 0 {
		cfg.InitialTemperature = 2
	}
	if cfg.FinalTemperature == 0 {
		cfg.FinalTemperature = 0.05
	}
	if cfg.CoolingRate == 0 {
		cfg.CoolingRate = 0.995
	}
	if cfg.StagnationWindow == 0 {
		cfg.StagnationWindow = 1000
	}
	if cfg.RestartPivots == 0 {
		cfg.RestartPivots = 3
	}
	if cfg.MoveAttempts == 0 {
		cfg.MoveAttempts = 15
	}
	if cfg.InitialTemperature <= 0 || cfg.FinalTemperature <= 0 {
		return nil, fmt.Errorf("temperatures must be > 0")
	}
	if cfg.FinalTemperature > cfg.InitialTemperature {
		return nil, fmt.Errorf("final temperature %v exceeds initial temperature %v", cfg.FinalTemperature, cfg.InitialTemperature)
	}
	if cfg.CoolingRate <= 0 || cfg.CoolingRate >= 1 {
		return nil, fmt.Errorf("cooling rate must be in (0, 1), got %v", cfg.CoolingRate)
	}
	if cfg.StagnationWindow < 0 {
		return nil, fmt.Errorf("stagnation window must be >= 0, got %d", cfg.StagnationWindow)
	}
	if cfg.MoveAttempts < 1 {
		return nil, fmt.Errorf("move attempts must be >= 1, got %d", cfg.MoveAttempts)
	}
	b, err := newBase(cfg.Config, 100)
	if err != nil {
		return nil, err
	}
	return &Annealing{base: b, cfg: cfg}, nil
}

func (s *Annealing) Name() string {
	return AlgoAnnealing
}

func (s *Annealing) Solve(ctx context.Context) (model.SolverResult, error) {
	current := s.startingConformation()
	t := newTracker(s.cfg.Config, current)
	pivot := moves.Pivot{}
	pull := moves.Pull{MaxWindow: 3}
	flip := moves.SingleFlip{Kind: s.cfg.Lattice}

	temperature := s.cfg.InitialTemperature
	sinceImprovement := 0

	for iter := 1; iter <= s.cfg.MaxIterations; iter++ {
		if s.halted(ctx) {
			break
		}

		neighbor := s.neighbor(temperature, current, pivot, pull, flip)

		// Metropolis acceptance on penalized fitness. Goal checks below use
		// pure HP energy; the two must not be conflated.
		delta := neighbor.Fitness - current.Fitness
		if delta <= 0 || s.rng.Float64() < math.Exp(-delta/temperature) {
			current = neighbor
			if energy.Less(current, t.best) {
				current = s.descend(current)
			}
		}

		prevBest := t.best.Fitness
		t.observe(iter, current)
		if t.best.Fitness < prevBest {
			sinceImprovement = 0
		} else {
			sinceImprovement++
		}
		if s.goalReached(t.best) {
			break
		}

		temperature *= s.cfg.CoolingRate
		if temperature < s.cfg.FinalTemperature {
			temperature = s.cfg.FinalTemperature
		}

		if s.cfg.StagnationWindow > 0 && sinceImprovement >= s.cfg.StagnationWindow {
			current = s.restartFromBest(t.best, pivot)
			temperature = s.cfg.InitialTemperature
			sinceImprovement = 0
		}
	}
	return t.result(), nil
}

// startingConformation draws the 50/50 greedy/random start (or honors the
// caller's directions) and repairs it when it collides so the trajectory
// begins self-avoiding.
func (s *Annealing) startingConformation() model.Conformation {
	var current model.Conformation
	switch {
	case s.cfg.InitialDirections != nil:
		current = s.initialConformation()
	case s.rng.Intn(2) == 0:
		current = s.greedyConformation()
	default:
		current = s.randomConformation()
	}
	if !current.Valid() {
		current = s.evaluate(moves.Repair(s.rng, s.cfg.Lattice, current.Directions))
	}
	return current
}

// neighbor proposes a candidate from the temperature-mixed move set. The
// move is retried until self-avoiding; when no retry lands, the raw mutant
// is repaired instead, trading locality for a structurally diverse but still
// valid proposal.
func (s *Annealing) neighbor(temperature float64, current model.Conformation, pivot moves.Pivot, pull moves.Pull, flip moves.SingleFlip) model.Conformation {
	mover := s.pickMove(temperature, pivot, pull, flip)
	candidate := moves.ApplySelfAvoiding(s.rng, mover, current.Directions, s.cfg.MoveAttempts)
	if !sameDirections(candidate, current.Directions) {
		return s.evaluate(candidate)
	}
	return s.evaluate(moves.Repair(s.rng, s.cfg.Lattice, mover.Apply(s.rng, current.Directions)))
}

// pickMove mixes the operators by temperature: hot phases lean on the broad
// pivot move, cold phases on fine pull/flip refinement.
func (s *Annealing) pickMove(temperature float64, pivot moves.Pivot, pull moves.Pull, flip moves.SingleFlip) moves.Mover {
	span := s.cfg.InitialTemperature - s.cfg.FinalTemperature
	heat := 0.0
	if span > 0 {
		heat = (temperature - s.cfg.FinalTemperature) / span
	}
	pivotShare := 0.2 + 0.5*heat
	pullShare := pivotShare + (1-pivotShare)*0.6

	roll := s.rng.Float64()
	switch {
	case roll < pivotShare:
		return pivot
	case roll < pullShare:
		return pull
	default:
		return flip
	}
}

// descend drains the single-flip neighborhood of a fresh incumbent: every
// (index, alternative direction) pair is tried and strict lexicographic
// improvements are kept, repeating until a sweep yields nothing. The
// exploitation half of the iterated local search.
func (s *Annealing) descend(conf model.Conformation) model.Conformation {
	alphabet := lattice.Alphabet(s.cfg.Lattice)
	best := conf
	for improved := true; improved; {
		improved = false
		for i := range best.Directions {
			original := best.Directions[i]
			for _, d := range alphabet {
				if d == original {
					continue
				}
				candidate := append([]model.Direction(nil), best.Directions...)
				candidate[i] = d
				scored := s.evaluate(candidate)
				if energy.Less(scored, best) {
					best = scored
					improved = true
				}
			}
		}
	}
	return best
}

// restartFromBest perturbs the best-known solution with consecutive pivot
// kicks that are individually verified collision-free, the iterated local
// search pattern.
func (s *Annealing) restartFromBest(best model.Conformation, pivot moves.Pivot) model.Conformation {
	directions := append([]model.Direction(nil), best.Directions...)
	for i := 0; i < s.cfg.RestartPivots; i++ {
		directions = moves.ApplySelfAvoiding(s.rng, pivot, directions, 15)
	}
	return s.evaluate(directions)
}

func sameDirections(a, b []model.Direction) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
