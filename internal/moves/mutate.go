package moves

import (
	"math/rand"

	"hpfold/internal/energy"
	"hpfold/internal/lattice"
	"hpfold/internal/model"
)

// Mover transforms a direction chain into a candidate neighbor. Movers never
// fail: a transform that cannot apply returns a copy of the input, and
// callers decide whether to verify the result against collisions. The
// returned slice is always freshly allocated.
type Mover interface {
	Name() string
	Apply(rng *rand.Rand, directions []model.Direction) []model.Direction
}

// Pivot rotates every direction on one side of a random pivot index by a
// fixed quarter turn, head or tail side chosen at random. The large-scale
// structural move; results frequently collide and must be checked.
type Pivot struct{}

func (Pivot) Name() string {
	return "pivot"
}

func (Pivot) Apply(rng *rand.Rand, directions []model.Direction) []model.Direction {
	out := append([]model.Direction(nil), directions...)
	if len(out) < 2 {
		return out
	}
	pivot := rng.Intn(len(out))
	rotate := lattice.RotateCW
	if rng.Intn(2) == 0 {
		rotate = lattice.RotateCCW
	}
	if rng.Intn(2) == 0 {
		for i := pivot; i < len(out); i++ {
			out[i] = rotate(out[i])
		}
	} else {
		for i := 0; i <= pivot; i++ {
			out[i] = rotate(out[i])
		}
	}
	return out
}

// Pull reverses a short contiguous window and flips each direction inside
// it through 180 degrees. The smaller, more local structural move.
type Pull struct {
	MaxWindow int // window length drawn from [1, MaxWindow]; default 3
}

func (Pull) Name() string {
	return "pull"
}

func (m Pull) Apply(rng *rand.Rand, directions []model.Direction) []model.Direction {
	out := append([]model.Direction(nil), directions...)
	if len(out) == 0 {
		return out
	}
	maxWindow := m.MaxWindow
	if maxWindow <= 0 {
		maxWindow = 3
	}
	if maxWindow > len(out) {
		maxWindow = len(out)
	}
	window := 1 + rng.Intn(maxWindow)
	start := rng.Intn(len(out) - window + 1)

	for l, r := start, start+window-1; l < r; l, r = l+1, r-1 {
		out[l], out[r] = out[r], out[l]
	}
	for i := start; i < start+window; i++ {
		out[i] = lattice.Flip(out[i])
	}
	return out
}

// SingleFlip replaces one direction at a random index with a different
// direction drawn uniformly from the lattice alphabet. The finest move.
type SingleFlip struct {
	Kind model.LatticeKind
}

func (SingleFlip) Name() string {
	return "single_flip"
}

func (m SingleFlip) Apply(rng *rand.Rand, directions []model.Direction) []model.Direction {
	out := append([]model.Direction(nil), directions...)
	if len(out) == 0 {
		return out
	}
	alphabet := lattice.Alphabet(m.Kind)
	idx := rng.Intn(len(out))
	replacement := alphabet[rng.Intn(len(alphabet))]
	for replacement == out[idx] {
		replacement = alphabet[rng.Intn(len(alphabet))]
	}
	out[idx] = replacement
	return out
}

// WindowScramble re-randomizes a contiguous window whose size scales with
// the mutation rate. Used as the fallback when structural moves stall.
type WindowScramble struct {
	Kind model.LatticeKind
	Rate float64 // fraction of the chain to scramble, clamped to (0, 1]
}

func (WindowScramble) Name() string {
	return "window_scramble"
}

func (m WindowScramble) Apply(rng *rand.Rand, directions []model.Direction) []model.Direction {
	out := append([]model.Direction(nil), directions...)
	if len(out) == 0 {
		return out
	}
	rate := m.Rate
	if rate <= 0 {
		rate = 0.1
	}
	if rate > 1 {
		rate = 1
	}
	window := int(rate * float64(len(out)))
	if window < 1 {
		window = 1
	}
	if window > len(out) {
		window = len(out)
	}
	start := rng.Intn(len(out) - window + 1)
	alphabet := lattice.Alphabet(m.Kind)
	for i := start; i < start+window; i++ {
		out[i] = alphabet[rng.Intn(len(alphabet))]
	}
	return out
}

// ApplySelfAvoiding retries a mover until the mutated chain is collision
// free, up to attempts tries. When no attempt succeeds it returns a copy of
// the input unchanged — a no-op mutation, not an error.
func ApplySelfAvoiding(rng *rand.Rand, m Mover, directions []model.Direction, attempts int) []model.Direction {
	if attempts <= 0 {
		attempts = 10
	}
	for i := 0; i < attempts; i++ {
		candidate := m.Apply(rng, directions)
		if energy.CountCollisions(lattice.BuildPositions(candidate)) == 0 {
			return candidate
		}
	}
	return append([]model.Direction(nil), directions...)
}
