// Package energy implements the HP scoring model: self-intersection
// counting, non-local H-H contact energy, and the penalized fitness used
// for selection pressure.
package energy

import (
	"hpfold/internal/lattice"
	"hpfold/internal/model"
)

// Collision penalty weights. The penalty must dominate any achievable
// contact gain so that ranked comparisons never trade a collision for
// contacts. The genetic algorithm softens the penalty and relies on
// lexicographic (collisions, energy) ordering instead.
const (
	PenaltyWeight     = 100.0
	SoftPenaltyWeight = 15.0
)

// CountCollisions counts every repeated occupation of a lattice site, not
// just the first. Zero means the walk is self-avoiding. O(N).
func CountCollisions(positions []model.Position) int {
	if len(positions) < 2 {
		return 0
	}
	seen := make(map[model.Position]struct{}, len(positions))
	collisions := 0
	for _, p := range positions {
		if _, ok := seen[p]; ok {
			collisions++
			continue
		}
		seen[p] = struct{}{}
	}
	return collisions
}

// ContactEnergy scores -1 for every pair (i, j), j >= i+2, of hydrophobic
// residues at Manhattan distance 1. Sequence-adjacent pairs are excluded;
// only non-local contacts count. O(N^2), acceptable at interactive lengths.
func ContactEnergy(seq model.Sequence, positions []model.Position) float64 {
	if len(positions) < 3 {
		return 0
	}
	energy := 0.0
	for i := 0; i < len(positions); i++ {
		if !seq.IsH(i) {
			continue
		}
		for j := i + 2; j < len(positions); j++ {
			if !seq.IsH(j) {
				continue
			}
			if positions[i].ManhattanDistance(positions[j]) == 1 {
				energy--
			}
		}
	}
	return energy
}

// Evaluate derives positions from the direction chain and fills in all three
// scoring fields of a conformation using the given penalty weight.
func Evaluate(seq model.Sequence, directions []model.Direction, penalty float64) model.Conformation {
	positions := lattice.BuildPositions(directions)
	collisions := CountCollisions(positions)
	hpEnergy := ContactEnergy(seq, positions)
	return model.Conformation{
		Sequence:   seq,
		Directions: directions,
		Positions:  positions,
		HPEnergy:   hpEnergy,
		Collisions: collisions,
		Fitness:    hpEnergy + float64(collisions)*penalty,
	}
}

// Less is the lexicographic ordering used by collision-aware selection:
// fewer collisions always wins, energy breaks ties.
func Less(a, b model.Conformation) bool {
	if a.Collisions != b.Collisions {
		return a.Collisions < b.Collisions
	}
	return a.HPEnergy < b.HPEnergy
}
