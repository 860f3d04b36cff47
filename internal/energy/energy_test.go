package energy

import (
	"testing"

	"hpfold/internal/lattice"
	"hpfold/internal/model"
)

func mustSequence(t *testing.T, raw string) model.Sequence {
	t.Helper()
	seq, err := model.ParseSequence(raw)
	if err != nil {
		t.Fatalf("parse sequence: %v", err)
	}
	return seq
}

func TestContactEnergyExcludesAdjacentResidues(t *testing.T) {
	// A straight chain of hydrophobic residues has only sequence-adjacent
	// neighbors, which never score.
	seq := mustSequence(t, "HHHH")
	dirs := []model.Direction{model.Right, model.Right, model.Right}

	conf := Evaluate(seq, dirs, PenaltyWeight)
	if conf.HPEnergy != 0 {
		t.Fatalf("straight H chain must score 0, got %v", conf.HPEnergy)
	}
}

func TestContactEnergyCountsNonLocalContacts(t *testing.T) {
	// U-shaped fold: residues 0 and 3 end up at Manhattan distance 1.
	//
	//   0 3
	//   1 2
	seq := mustSequence(t, "HHHH")
	dirs := []model.Direction{model.Down, model.Right, model.Up}

	conf := Evaluate(seq, dirs, PenaltyWeight)
	if conf.Collisions != 0 {
		t.Fatalf("U fold must be self-avoiding, got %d collisions", conf.Collisions)
	}
	if conf.HPEnergy != -1 {
		t.Fatalf("U fold of four H residues: got %v want -1", conf.HPEnergy)
	}
}

func TestContactEnergyIgnoresPolarResidues(t *testing.T) {
	seq := mustSequence(t, "HPPH")
	dirs := []model.Direction{model.Down, model.Right, model.Up}

	conf := Evaluate(seq, dirs, PenaltyWeight)
	if conf.HPEnergy != -1 {
		t.Fatalf("only the H-H terminal pair counts: got %v want -1", conf.HPEnergy)
	}

	seq = mustSequence(t, "PHHP")
	conf = Evaluate(seq, dirs, PenaltyWeight)
	if conf.HPEnergy != 0 {
		t.Fatalf("adjacent interior H pair must not score: got %v want 0", conf.HPEnergy)
	}
}

func TestContactEnergyRotationInvariant(t *testing.T) {
	seq := mustSequence(t, "HPHPHHPH")
	dirs := []model.Direction{model.Right, model.Up, model.Left, model.Up, model.Right, model.Right, model.Down}

	base := Evaluate(seq, dirs, PenaltyWeight)

	rotated := make([]model.Direction, len(dirs))
	for i, d := range dirs {
		rotated[i] = lattice.RotateCW(d)
	}
	turned := Evaluate(seq, rotated, PenaltyWeight)

	if base.HPEnergy != turned.HPEnergy || base.Collisions != turned.Collisions {
		t.Fatalf("rotation changed the score: (%v, %d) vs (%v, %d)",
			base.HPEnergy, base.Collisions, turned.HPEnergy, turned.Collisions)
	}
}

func TestCountCollisionsCountsEveryRepeat(t *testing.T) {
	// L, R, L, R walks back and forth over two sites.
	dirs := []model.Direction{model.Left, model.Right, model.Left, model.Right}
	positions := lattice.BuildPositions(dirs)

	if got := CountCollisions(positions); got != 3 {
		t.Fatalf("got %d collisions, want 3", got)
	}
}

func TestPenaltyDominatesContactGain(t *testing.T) {
	seq := mustSequence(t, "HHHHHHHH")

	colliding := Evaluate(seq, []model.Direction{
		model.Right, model.Left, model.Right, model.Up, model.Left, model.Down, model.Right,
	}, PenaltyWeight)
	if colliding.Collisions == 0 {
		t.Fatal("fixture fold is expected to collide")
	}

	straight := Evaluate(seq, []model.Direction{
		model.Right, model.Right, model.Right, model.Right, model.Right, model.Right, model.Right,
	}, PenaltyWeight)

	if colliding.Fitness <= straight.Fitness {
		t.Fatalf("penalized fitness %v must exceed any valid fold's %v", colliding.Fitness, straight.Fitness)
	}
}

func TestLessIsLexicographic(t *testing.T) {
	valid := model.Conformation{Collisions: 0, HPEnergy: -1}
	deeper := model.Conformation{Collisions: 0, HPEnergy: -3}
	colliding := model.Conformation{Collisions: 1, HPEnergy: -9}

	if !Less(deeper, valid) {
		t.Fatal("lower energy at equal collisions must win")
	}
	if !Less(valid, colliding) {
		t.Fatal("fewer collisions must win regardless of energy")
	}
	if Less(colliding, valid) {
		t.Fatal("a colliding fold must never beat a valid one")
	}
}
