package refine

import (
	"context"
	"math/rand"
	"testing"

	"hpfold/internal/energy"
	"hpfold/internal/model"
	"hpfold/internal/moves"
)

func TestRefineNeverWorsens(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	seq, err := model.ParseSequence("HPHPPHHPHPPHPHHPPHPH")
	if err != nil {
		t.Fatalf("parse sequence: %v", err)
	}

	for trial := 0; trial < 20; trial++ {
		start := energy.Evaluate(seq, moves.RandomSAW(rng, model.Lattice2D, seq.Len()), energy.PenaltyWeight)
		refined, err := HillClimb{}.Refine(context.Background(), start)
		if err != nil {
			t.Fatalf("trial %d: refine: %v", trial, err)
		}
		if energy.Less(start, refined) {
			t.Fatalf("trial %d: refinement worsened (%v, %d) to (%v, %d)",
				trial, start.HPEnergy, start.Collisions, refined.HPEnergy, refined.Collisions)
		}
	}
}

func TestRefineImprovesObviousFold(t *testing.T) {
	// An open hook one flip away from a U-fold: redirecting the last step
	// upward closes an H-H contact.
	seq, err := model.ParseSequence("HHHH")
	if err != nil {
		t.Fatalf("parse sequence: %v", err)
	}
	dirs := []model.Direction{model.Down, model.Right, model.Right}
	start := energy.Evaluate(seq, dirs, energy.PenaltyWeight)
	if start.HPEnergy != 0 {
		t.Fatalf("fixture must start without contacts, got %v", start.HPEnergy)
	}

	refined, err := HillClimb{Passes: 5}.Refine(context.Background(), start)
	if err != nil {
		t.Fatalf("refine: %v", err)
	}
	if refined.Collisions != 0 {
		t.Fatalf("refinement introduced %d collisions", refined.Collisions)
	}
	if refined.HPEnergy > -1 {
		t.Fatalf("expected at least one contact, got %v", refined.HPEnergy)
	}
}

func TestRefineUsesConfiguredLattice(t *testing.T) {
	// A planar chain that spirals around a unit loop and collides back onto
	// its own body. Every in-plane neighbor of the final steps is occupied,
	// so no 2D flip can resolve the collision, but stepping out of the plane
	// can. The chain is all-P so collisions are the only ranking criterion.
	seq, err := model.ParseSequence("PPPPPPPPPPPPPP")
	if err != nil {
		t.Fatalf("parse sequence: %v", err)
	}
	dirs := []model.Direction{
		model.Up, model.Left, model.Left, model.Left,
		model.Down, model.Down, model.Down,
		model.Right, model.Up,
		model.Right, model.Up, model.Left, model.Down,
	}
	start := energy.Evaluate(seq, dirs, energy.PenaltyWeight)
	if start.Collisions != 1 {
		t.Fatalf("fixture must carry exactly one collision, got %d", start.Collisions)
	}

	planar, err := HillClimb{Lattice: model.Lattice2D}.Refine(context.Background(), start)
	if err != nil {
		t.Fatalf("2d refine: %v", err)
	}
	if planar.Collisions != 1 {
		t.Fatalf("no single in-plane flip resolves this fixture, yet collisions became %d", planar.Collisions)
	}

	spatial, err := HillClimb{Lattice: model.Lattice3D}.Refine(context.Background(), start)
	if err != nil {
		t.Fatalf("3d refine: %v", err)
	}
	if spatial.Collisions != 0 {
		t.Fatalf("a z-axis flip resolves this fixture, got %d collisions", spatial.Collisions)
	}
}

func TestRefineHonorsCancellation(t *testing.T) {
	seq, err := model.ParseSequence("HHHHHH")
	if err != nil {
		t.Fatalf("parse sequence: %v", err)
	}
	dirs := []model.Direction{model.Right, model.Right, model.Right, model.Right, model.Right}
	start := energy.Evaluate(seq, dirs, energy.PenaltyWeight)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (HillClimb{}).Refine(ctx, start); err == nil {
		t.Fatal("expected context error from cancelled refinement")
	}
}
