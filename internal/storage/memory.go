package storage

import (
	"context"
	"sort"
	"sync"

	"hpfold/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	records     map[string]model.SolveRecord
	summaries   map[string]model.SequenceSummary
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Init is idempotent; existing state survives repeated calls.
func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLocked()
	return nil
}

func (s *MemoryStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.records = make(map[string]model.SolveRecord)
	s.summaries = make(map[string]model.SequenceSummary)
	return nil
}

func (s *MemoryStore) ensureLocked() {
	if s.initialized {
		return
	}
	s.initialized = true
	s.records = make(map[string]model.SolveRecord)
	s.summaries = make(map[string]model.SequenceSummary)
}

func (s *MemoryStore) SaveSolveRecord(_ context.Context, record model.SolveRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLocked()
	s.records[record.RunID] = cloneRecord(record)
	return nil
}

func (s *MemoryStore) GetSolveRecord(_ context.Context, runID string) (model.SolveRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[runID]
	if !ok {
		return model.SolveRecord{}, false, nil
	}
	return cloneRecord(record), true, nil
}

func (s *MemoryStore) ListSolveRecords(_ context.Context) ([]model.SolveRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.SolveRecord, 0, len(s.records))
	for _, record := range s.records {
		out = append(out, cloneRecord(record))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAtUTC == out[j].CreatedAtUTC {
			return out[i].RunID < out[j].RunID
		}
		return out[i].CreatedAtUTC > out[j].CreatedAtUTC
	})
	return out, nil
}

func (s *MemoryStore) DeleteSolveRecord(_ context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, runID)
	return nil
}

func (s *MemoryStore) SaveSequenceSummary(_ context.Context, summary model.SequenceSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLocked()
	s.summaries[summaryKey(summary.Sequence, summary.Lattice)] = summary
	return nil
}

func (s *MemoryStore) GetSequenceSummary(_ context.Context, sequence, latticeKind string) (model.SequenceSummary, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary, ok := s.summaries[summaryKey(sequence, latticeKind)]
	return summary, ok, nil
}

func summaryKey(sequence, latticeKind string) string {
	return sequence + "/" + latticeKind
}

func cloneRecord(record model.SolveRecord) model.SolveRecord {
	out := record
	out.Best = record.Best.Clone()
	out.EnergyHistory = append([]model.EnergySample(nil), record.EnergyHistory...)
	return out
}
