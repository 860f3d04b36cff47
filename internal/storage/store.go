package storage

import (
	"context"

	"hpfold/internal/model"
)

// Store persists completed solve runs and per-sequence best summaries.
// Solvers never touch a Store; only the facade records results after a run
// finishes.
type Store interface {
	Init(ctx context.Context) error
	SaveSolveRecord(ctx context.Context, record model.SolveRecord) error
	GetSolveRecord(ctx context.Context, runID string) (model.SolveRecord, bool, error)
	ListSolveRecords(ctx context.Context) ([]model.SolveRecord, error)
	DeleteSolveRecord(ctx context.Context, runID string) error
	SaveSequenceSummary(ctx context.Context, summary model.SequenceSummary) error
	GetSequenceSummary(ctx context.Context, sequence, latticeKind string) (model.SequenceSummary, bool, error)
}

// Resetter is implemented by backends that can drop all stored state.
type Resetter interface {
	Reset(ctx context.Context) error
}

func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
