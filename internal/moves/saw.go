// Package moves provides the self-avoiding-walk constructors and the
// structural mutation operators shared by every solver: pivot rotation,
// pull-move segment reversal, single-residue flips, window scrambles, and
// cascading chromosome repair.
package moves

import (
	"math/rand"

	"hpfold/internal/lattice"
	"hpfold/internal/model"
)

// RandomSAW builds a direction chain greedily, one residue at a time. At
// each step the candidate directions are shuffled and the first unoccupied
// site wins; when every neighbor is occupied the walk falls back to a
// uniformly random direction and accepts the collision. Diversity over
// optimality: repeated calls produce varied starting material.
func RandomSAW(rng *rand.Rand, kind model.LatticeKind, n int) []model.Direction {
	if n < 2 {
		return nil
	}
	alphabet := lattice.Alphabet(kind)
	directions := make([]model.Direction, 0, n-1)
	occupied := make(map[model.Position]struct{}, n)
	current := model.Position{}
	occupied[current] = struct{}{}

	candidates := make([]model.Direction, len(alphabet))
	for i := 1; i < n; i++ {
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
			directions = append(directions, d)
			current = next
			occupied[current] = struct{}{}
			placed = true
			break
		}
		if !placed {
			d := alphabet[rng.Intn(len(alphabet))]
			directions = append(directions, d)
			current = current.Add(lattice.Displacement(d))
			occupied[current] = struct{}{}
		}
	}
	return directions
}

// GreedySAW builds a walk like RandomSAW but, when placing a hydrophobic
// residue, prefers the free neighbor with the most already-placed H residues
// adjacent to it. A construction heuristic used to seed a fraction of
// initial populations, not an exhaustive search.
func GreedySAW(rng *rand.Rand, kind model.LatticeKind, seq model.Sequence) []model.Direction {
	n := seq.Len()
	if n < 2 {
		return nil
	}
	alphabet := lattice.Alphabet(kind)
	directions := make([]model.Direction, 0, n-1)
	occupied := make(map[model.Position]bool, n) // true marks an H residue
	current := model.Position{}
	occupied[current] = seq.IsH(0)

	candidates := make([]model.Direction, len(alphabet))
	for i := 1; i < n; i++ {
		copy(candidates, alphabet)
		rng.Shuffle(len(candidates), func(a, b int) {
			candidates[a], candidates[b] = candidates[b], candidates[a]
		})

		bestIdx := -1
		bestContacts := -1
		for ci, d := range candidates {
			next := current.Add(lattice.Displacement(d))
			if _, taken := occupied[next]; taken {
				continue
			}
			contacts := 0
			if seq.IsH(i) {
				contacts = hContactsAround(occupied, next, alphabet)
			}
			if contacts > bestContacts {
				bestContacts = contacts
				bestIdx = ci
			}
			if !seq.IsH(i) {
				break // polar residues take the first free slot
			}
		}

		if bestIdx < 0 {
			d := alphabet[rng.Intn(len(alphabet))]
			directions = append(directions, d)
			current = current.Add(lattice.Displacement(d))
			occupied[current] = seq.IsH(i)
			continue
		}
		d := candidates[bestIdx]
		directions = append(directions, d)
		current = current.Add(lattice.Displacement(d))
		occupied[current] = seq.IsH(i)
	}
	return directions
}

func hContactsAround(occupied map[model.Position]bool, site model.Position, alphabet []model.Direction) int {
	contacts := 0
	for _, d := range alphabet {
		if occupied[site.Add(lattice.Displacement(d))] {
			contacts++
		}
	}
	return contacts
}
