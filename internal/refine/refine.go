// Package refine post-processes a finished solve with a bounded greedy
// descent: exhaustive single-direction flips, accepted only on lexicographic
// improvement. It never worsens the input conformation.
package refine

import (
	"context"

	"hpfold/internal/energy"
	"hpfold/internal/lattice"
	"hpfold/internal/model"
)

// HillClimb sweeps every (index, alternative direction) pair of the chain,
// keeps strict improvements, and repeats until a sweep yields nothing or the
// pass budget runs out.
type HillClimb struct {
	Passes  int               // full sweeps, default 3
	Penalty float64           // fitness penalty weight, default 100
	Lattice model.LatticeKind // flip alphabet; inferred from the chain when empty
}

func (HillClimb) Name() string {
	return "hillclimb_flip"
}

func (h HillClimb) Refine(ctx context.Context, conf model.Conformation) (model.Conformation, error) {
	passes := h.Passes
	if passes <= 0 {
		passes = 3
	}
	penalty := h.Penalty
	if penalty <= 0 {
		penalty = 100
	}

	kind := h.Lattice
	if kind == "" {
		kind = latticeOf(conf.Directions)
	}

	best := conf.Clone()
	alphabet := lattice.Alphabet(kind)
	for pass := 0; pass < passes; pass++ {
		if err := ctx.Err(); err != nil {
			return best, err
		}
		improved := false
		for i := range best.Directions {
			original := best.Directions[i]
			for _, d := range alphabet {
				if d == original {
					continue
				}
				candidate := append([]model.Direction(nil), best.Directions...)
				candidate[i] = d
				scored := energy.Evaluate(best.Sequence, candidate, penalty)
				if energy.Less(scored, best) {
					best = scored
					improved = true
				}
			}
		}
		if !improved {
			break
		}
	}
	return best, nil
}

// latticeOf infers the alphabet from the directions present, the fallback
// when the caller did not say. A planar chain from a 3D run should instead
// arrive with Lattice set so Z flips stay available.
func latticeOf(directions []model.Direction) model.LatticeKind {
	for _, d := range directions {
		if d == model.Forward || d == model.Backward {
			return model.Lattice3D
		}
	}
	return model.Lattice2D
}
