package moves

import (
	"math/rand"

	"hpfold/internal/energy"
	"hpfold/internal/lattice"
	"hpfold/internal/model"
)

const repairRebuildAttempts = 5

// Repair resolves collisions in a direction chain with a cascading strategy:
// first try every alternative direction at the step just before the first
// colliding residue (the cheapest local fix), then rebuild the remainder of
// the walk from that point, and as a last resort regenerate the whole chain.
// Already collision-free input is returned unchanged. Bounded cost: the
// cascade never recurses.
func Repair(rng *rand.Rand, kind model.LatticeKind, directions []model.Direction) []model.Direction {
	positions := lattice.BuildPositions(directions)
	firstBad := firstCollisionIndex(positions)
	if firstBad < 0 {
		return directions
	}

	// Local fix: redirect the step leading into the first colliding site.
	alphabet := lattice.Alphabet(kind)
	step := firstBad - 1
	if step >= 0 && step < len(directions) {
		candidate := append([]model.Direction(nil), directions...)
		for _, d := range alphabet {
			if d == directions[step] {
				continue
			}
			candidate[step] = d
			if energy.CountCollisions(lattice.BuildPositions(candidate)) == 0 {
				return candidate
			}
		}
	}

	// Rebuild the tail of the walk from the first collision onward.
	for attempt := 0; attempt < repairRebuildAttempts; attempt++ {
		candidate := rebuildTail(rng, kind, directions, firstBad)
		if energy.CountCollisions(lattice.BuildPositions(candidate)) == 0 {
			return candidate
		}
	}

	// Full regeneration. RandomSAW itself may concede collisions on dense
	// walks; callers tolerate that the same way they tolerate no-op moves.
	for attempt := 0; attempt < repairRebuildAttempts; attempt++ {
		candidate := RandomSAW(rng, kind, len(directions)+1)
		if energy.CountCollisions(lattice.BuildPositions(candidate)) == 0 {
			return candidate
		}
	}
	return RandomSAW(rng, kind, len(directions)+1)
}

// firstCollisionIndex returns the position index of the first residue that
// lands on an already occupied site, or -1 when the walk is self-avoiding.
func firstCollisionIndex(positions []model.Position) int {
	seen := make(map[model.Position]struct{}, len(positions))
	for i, p := range positions {
		if _, ok := seen[p]; ok {
			return i
		}
		seen[p] = struct{}{}
	}
	return -1
}

// rebuildTail keeps directions[:from-1] intact and regrows the rest with the
// shuffled-greedy placement rule of RandomSAW.
func rebuildTail(rng *rand.Rand, kind model.LatticeKind, directions []model.Direction, from int) []model.Direction {
	keep := from - 1
	if keep < 0 {
		keep = 0
	}
	out := append([]model.Direction(nil), directions[:keep]...)

	alphabet := lattice.Alphabet(kind)
	occupied := make(map[model.Position]struct{}, len(directions)+1)
	current := model.Position{}
	occupied[current] = struct{}{}
	for _, d := range out {
		current = current.Add(lattice.Displacement(d))
		occupied[current] = struct{}{}
	}

	candidates := make([]model.Direction, len(alphabet))
	for len(out) < len(directions) {
		copy(candidates, alphabet)
		rng.Shuffle(len(candidates), func(a, b int) {
			candidates[a], candidates[b] = candidates[b], candidates[a]
		})
		placed := false
		for _, d := range candidates {
			next := current.Add(lattice.Displacement(d))
			if _, taken := occupied[next]; taken {
				continue
			}
			out = append(out, d)
			current = next
			occupied[current] = struct{}{}
			placed = true
			break
		}
		if !placed {
			d := alphabet[rng.Intn(len(alphabet))]
			out = append(out, d)
			current = current.Add(lattice.Displacement(d))
			occupied[current] = struct{}{}
		}
	}
	return out
}
