package model

import (
	"fmt"
	"strings"
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Residue classifies one position of an HP sequence.
type Residue byte

const (
	Hydrophobic Residue = 'H'
	Polar       Residue = 'P'
)

// Sequence is an immutable H/P residue string, length >= 2. It is validated
// once at the boundary and never mutated afterwards.
type Sequence string

func ParseSequence(raw string) (Sequence, error) {
	if raw == "" {
		return "", fmt.Errorf("sequence is required")
	}
	if len(raw) < 2 {
		return "", fmt.Errorf("sequence must have at least 2 residues, got %d", len(raw))
	}
	upper := strings.ToUpper(raw)
	for i := 0; i < len(upper); i++ {
		if upper[i] != byte(Hydrophobic) && upper[i] != byte(Polar) {
			return "", fmt.Errorf("sequence must match [HP]+, invalid residue %q at index %d", upper[i], i)
		}
	}
	return Sequence(upper), nil
}

func (s Sequence) Len() int {
	return len(s)
}

// IsH reports whether residue i is hydrophobic.
func (s Sequence) IsH(i int) bool {
	return s[i] == byte(Hydrophobic)
}

// Direction is one lattice step of the conformation chain.
type Direction byte

const (
	Left     Direction = 'L'
	Right    Direction = 'R'
	Up       Direction = 'U'
	Down     Direction = 'D'
	Forward  Direction = 'F'
	Backward Direction = 'B'
)

// LatticeKind selects the 4-direction planar or 6-direction cubic alphabet.
type LatticeKind string

const (
	Lattice2D LatticeKind = "2D"
	Lattice3D LatticeKind = "3D"
)

func ParseLatticeKind(raw string) (LatticeKind, error) {
	switch LatticeKind(strings.ToUpper(raw)) {
	case "", Lattice2D:
		return Lattice2D, nil
	case Lattice3D:
		return Lattice3D, nil
	default:
		return "", fmt.Errorf("unsupported lattice type: %s", raw)
	}
}

// Position is an integer lattice coordinate. Z stays 0 on the 2D lattice.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func (p Position) Add(q Position) Position {
	return Position{X: p.X + q.X, Y: p.Y + q.Y, Z: p.Z + q.Z}
}

// ManhattanDistance is the L1 distance between two lattice sites.
func (p Position) ManhattanDistance(q Position) int {
	return abs(p.X-q.X) + abs(p.Y-q.Y) + abs(p.Z-q.Z)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Conformation is one candidate fold: a direction chain of length N-1 plus
// the derived positions and its evaluated energies. Positions are always
// re-derivable from (Sequence, Directions); nothing else defines geometry.
//
// HPEnergy is the pure contact energy used for reporting and goal checks.
// Fitness adds the collision penalty and drives selection. The two are kept
// as separate fields on purpose; comparison sites must pick the right one.
type Conformation struct {
	Sequence   Sequence    `json:"sequence"`
	Directions []Direction `json:"directions"`
	Positions  []Position  `json:"positions"`
	HPEnergy   float64     `json:"hp_energy"`
	Collisions int         `json:"collisions"`
	Fitness    float64     `json:"fitness"`
}

// Clone deep-copies the conformation so offspring never alias parent buffers.
func (c Conformation) Clone() Conformation {
	out := c
	out.Directions = append([]Direction(nil), c.Directions...)
	out.Positions = append([]Position(nil), c.Positions...)
	return out
}

// Valid reports whether the conformation is a self-avoiding walk.
func (c Conformation) Valid() bool {
	return c.Collisions == 0
}

// EnergySample is one (iteration, energy) point of a solve trajectory.
type EnergySample struct {
	Iteration int     `json:"iteration"`
	Energy    float64 `json:"energy"`
}

// SolverResult is the immutable outcome of one solve() call.
type SolverResult struct {
	Best            Conformation   `json:"best"`
	EnergyHistory   []EnergySample `json:"energy_history"`
	TotalIterations int            `json:"total_iterations"`
	ConvergenceMS   int64          `json:"convergence_ms"`
}

// ProgressEvent is emitted at the logging cadence. Purely observational.
type ProgressEvent struct {
	Iteration     int
	CurrentEnergy float64
	BestEnergy    float64
	Percent       float64
}

// SolveRecord is the persisted summary of one completed run.
type SolveRecord struct {
	VersionedRecord
	RunID           string         `json:"run_id"`
	Algorithm       string         `json:"algorithm"`
	Sequence        string         `json:"sequence"`
	Lattice         string         `json:"lattice"`
	Seed            int64          `json:"seed"`
	MaxIterations   int            `json:"max_iterations"`
	Instances       int            `json:"instances"`
	BestEnergy      float64        `json:"best_energy"`
	BestCollisions  int            `json:"best_collisions"`
	Best            Conformation   `json:"best"`
	EnergyHistory   []EnergySample `json:"energy_history"`
	TotalIterations int            `json:"total_iterations"`
	ConvergenceMS   int64          `json:"convergence_ms"`
	CreatedAtUTC    string         `json:"created_at_utc"`
}

// SequenceSummary tracks the best energy ever observed for a sequence.
type SequenceSummary struct {
	VersionedRecord
	Sequence   string  `json:"sequence"`
	Lattice    string  `json:"lattice"`
	BestEnergy float64 `json:"best_energy"`
	BestRunID  string  `json:"best_run_id"`
}
