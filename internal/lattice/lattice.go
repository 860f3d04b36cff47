// Package lattice defines the direction vocabulary of the folding grid and
// the purely geometric operations on direction chains: displacement lookup,
// position construction, and the fixed rotation/flip permutation tables used
// by the structural move operators.
package lattice

import (
	"fmt"

	"hpfold/internal/model"
)

var (
	directions2D = []model.Direction{model.Left, model.Right, model.Up, model.Down}
	directions3D = []model.Direction{model.Left, model.Right, model.Up, model.Down, model.Forward, model.Backward}
)

var displacements = map[model.Direction]model.Position{
	model.Left:     {X: -1},
	model.Right:    {X: 1},
	model.Up:       {Y: 1},
	model.Down:     {Y: -1},
	model.Forward:  {Z: 1},
	model.Backward: {Z: -1},
}

// Rotation permutation tables. Clockwise and counter-clockwise quarter turns
// act in the XY plane; the Z axis directions are fixed points, so the same
// tables serve both lattices.
var (
	rotateCW = map[model.Direction]model.Direction{
		model.Left:     model.Up,
		model.Up:       model.Right,
		model.Right:    model.Down,
		model.Down:     model.Left,
		model.Forward:  model.Forward,
		model.Backward: model.Backward,
	}
	rotateCCW = map[model.Direction]model.Direction{
		model.Left:     model.Down,
		model.Down:     model.Right,
		model.Right:    model.Up,
		model.Up:       model.Left,
		model.Forward:  model.Forward,
		model.Backward: model.Backward,
	}
	flip180 = map[model.Direction]model.Direction{
		model.Left:     model.Right,
		model.Right:    model.Left,
		model.Up:       model.Down,
		model.Down:     model.Up,
		model.Forward:  model.Backward,
		model.Backward: model.Forward,
	}
)

// Alphabet returns the direction set of the lattice. The returned slice is
// shared; callers must not mutate it.
func Alphabet(kind model.LatticeKind) []model.Direction {
	if kind == model.Lattice3D {
		return directions3D
	}
	return directions2D
}

// Displacement is a pure, total, constant-time lookup. Directions outside
// the closed enum are a programming error and panic.
func Displacement(d model.Direction) model.Position {
	delta, ok := displacements[d]
	if !ok {
		panic(fmt.Sprintf("lattice: unknown direction %q", byte(d)))
	}
	return delta
}

// RotateCW maps a direction through a fixed 90 degree clockwise turn.
func RotateCW(d model.Direction) model.Direction {
	return rotateCW[d]
}

// RotateCCW maps a direction through a fixed 90 degree counter-clockwise turn.
func RotateCCW(d model.Direction) model.Direction {
	return rotateCCW[d]
}

// Flip maps a direction to its opposite.
func Flip(d model.Direction) model.Direction {
	return flip180[d]
}

// BuildPositions derives the residue coordinates of a direction chain.
// position[0] is the origin; position[i] = position[i-1] + displacement.
// Deterministic and O(N).
func BuildPositions(directions []model.Direction) []model.Position {
	positions := make([]model.Position, len(directions)+1)
	for i, d := range directions {
		positions[i+1] = positions[i].Add(Displacement(d))
	}
	return positions
}

// ValidDirections checks every direction against the lattice alphabet and
// reports the first offender.
func ValidDirections(kind model.LatticeKind, directions []model.Direction) error {
	for i, d := range directions {
		if kind == model.Lattice2D {
			switch d {
			case model.Left, model.Right, model.Up, model.Down:
			default:
				return fmt.Errorf("direction %q at index %d is not valid on the 2D lattice", byte(d), i)
			}
			continue
		}
		if _, ok := displacements[d]; !ok {
			return fmt.Errorf("direction %q at index %d is not valid on the 3D lattice", byte(d), i)
		}
	}
	return nil
}
