package storage

import (
	"context"
	"errors"
	"testing"

	"hpfold/internal/model"
)

func versioned() model.VersionedRecord {
	return model.VersionedRecord{
		SchemaVersion: CurrentSchemaVersion,
		CodecVersion:  CurrentCodecVersion,
	}
}

func sampleRecord(runID, createdAt string, energy float64) model.SolveRecord {
	return model.SolveRecord{
		VersionedRecord: versioned(),
		RunID:           runID,
		Algorithm:       "annealing",
		Sequence:        "HPHP",
		Lattice:         "2D",
		Seed:            1,
		MaxIterations:   100,
		Instances:       4,
		BestEnergy:      energy,
		Best: model.Conformation{
			Sequence:   "HPHP",
			Directions: []model.Direction{model.Down, model.Right, model.Up},
			HPEnergy:   energy,
		},
		EnergyHistory: []model.EnergySample{{Iteration: 0, Energy: 0}, {Iteration: 50, Energy: energy}},
		CreatedAtUTC:  createdAt,
	}
}

func TestMemoryStoreRoundtrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	record := sampleRecord("run-1", "2026-08-29T10:00:00Z", -1)
	if err := store.SaveSolveRecord(ctx, record); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := store.GetSolveRecord(ctx, "run-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("record not found after save")
	}
	if got.BestEnergy != -1 || got.Algorithm != "annealing" {
		t.Fatalf("record corrupted: %+v", got)
	}
	if len(got.EnergyHistory) != 2 {
		t.Fatalf("history lost: %d samples", len(got.EnergyHistory))
	}

	// Stored state must not alias caller slices.
	got.EnergyHistory[0].Energy = 999
	again, _, err := store.GetSolveRecord(ctx, "run-1")
	if err != nil {
		t.Fatalf("get again: %v", err)
	}
	if again.EnergyHistory[0].Energy == 999 {
		t.Fatal("store leaked internal state to callers")
	}

	if _, ok, _ := store.GetSolveRecord(ctx, "missing"); ok {
		t.Fatal("missing run id reported as found")
	}
}

func TestMemoryStoreListOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for _, r := range []model.SolveRecord{
		sampleRecord("run-b", "2026-08-29T09:00:00Z", -1),
		sampleRecord("run-c", "2026-08-29T11:00:00Z", -2),
		sampleRecord("run-a", "2026-08-29T09:00:00Z", -3),
	} {
		if err := store.SaveSolveRecord(ctx, r); err != nil {
			t.Fatalf("save %s: %v", r.RunID, err)
		}
	}

	records, err := store.ListSolveRecords(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	want := []string{"run-c", "run-a", "run-b"}
	for i, id := range want {
		if records[i].RunID != id {
			t.Fatalf("position %d: got %s want %s", i, records[i].RunID, id)
		}
	}
}

func TestMemoryStoreDeleteAndReset(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.SaveSolveRecord(ctx, sampleRecord("run-1", "2026-08-29T10:00:00Z", -1)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.DeleteSolveRecord(ctx, "run-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.GetSolveRecord(ctx, "run-1"); ok {
		t.Fatal("record survived delete")
	}

	if err := store.SaveSolveRecord(ctx, sampleRecord("run-2", "2026-08-29T10:00:00Z", -1)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	records, err := store.ListSolveRecords(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("reset left %d records", len(records))
	}
}

func TestMemoryStoreSequenceSummary(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	summary := model.SequenceSummary{
		VersionedRecord: versioned(),
		Sequence:        "HPHP",
		Lattice:         "2D",
		BestEnergy:      -2,
		BestRunID:       "run-9",
	}
	if err := store.SaveSequenceSummary(ctx, summary); err != nil {
		t.Fatalf("save summary: %v", err)
	}

	got, ok, err := store.GetSequenceSummary(ctx, "HPHP", "2D")
	if err != nil {
		t.Fatalf("get summary: %v", err)
	}
	if !ok {
		t.Fatal("summary not found")
	}
	if got.BestEnergy != -2 || got.BestRunID != "run-9" {
		t.Fatalf("summary corrupted: %+v", got)
	}

	if _, ok, _ := store.GetSequenceSummary(ctx, "HPHP", "3D"); ok {
		t.Fatal("summary key must include the lattice")
	}
}

func TestCodecRoundtripAndVersionCheck(t *testing.T) {
	record := sampleRecord("run-1", "2026-08-29T10:00:00Z", -4)

	data, err := EncodeSolveRecord(record)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeSolveRecord(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.RunID != record.RunID || decoded.BestEnergy != record.BestEnergy {
		t.Fatalf("roundtrip corrupted record: %+v", decoded)
	}

	stale := record
	stale.SchemaVersion = CurrentSchemaVersion + 1
	data, err = EncodeSolveRecord(stale)
	if err != nil {
		t.Fatalf("encode stale: %v", err)
	}
	if _, err := DecodeSolveRecord(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}
}

func TestNewStoreFactory(t *testing.T) {
	if _, err := NewStore("memory", ""); err != nil {
		t.Fatalf("memory store: %v", err)
	}
	if _, err := NewStore("", ""); err != nil {
		t.Fatalf("default store: %v", err)
	}
	if _, err := NewStore("redis", ""); err == nil {
		t.Fatal("expected error for unsupported backend")
	}
}
