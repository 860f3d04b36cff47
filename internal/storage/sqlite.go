//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"hpfold/internal/model"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveSolveRecord(ctx context.Context, record model.SolveRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeSolveRecord(record)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO solve_records (run_id, schema_version, codec_version, created_at_utc, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			created_at_utc = excluded.created_at_utc,
			payload = excluded.payload
	`, record.RunID, record.SchemaVersion, record.CodecVersion, record.CreatedAtUTC, payload)
	return err
}

func (s *SQLiteStore) GetSolveRecord(ctx context.Context, runID string) (model.SolveRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.SolveRecord{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM solve_records WHERE run_id = ?`, runID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.SolveRecord{}, false, nil
		}
		return model.SolveRecord{}, false, err
	}

	record, err := DecodeSolveRecord(payload)
	if err != nil {
		return model.SolveRecord{}, false, fmt.Errorf("decode solve record %s: %w", runID, err)
	}
	return record, true, nil
}

func (s *SQLiteStore) ListSolveRecords(ctx context.Context) ([]model.SolveRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT payload FROM solve_records ORDER BY created_at_utc DESC, run_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SolveRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		record, err := DecodeSolveRecord(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteSolveRecord(ctx context.Context, runID string) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `DELETE FROM solve_records WHERE run_id = ?`, runID)
	return err
}

func (s *SQLiteStore) SaveSequenceSummary(ctx context.Context, summary model.SequenceSummary) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeSequenceSummary(summary)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO sequence_summaries (sequence, lattice, payload)
		VALUES (?, ?, ?)
		ON CONFLICT(sequence, lattice) DO UPDATE SET
			payload = excluded.payload
	`, summary.Sequence, summary.Lattice, payload)
	return err
}

func (s *SQLiteStore) GetSequenceSummary(ctx context.Context, sequence, latticeKind string) (model.SequenceSummary, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.SequenceSummary{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM sequence_summaries WHERE sequence = ? AND lattice = ?`, sequence, latticeKind).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.SequenceSummary{}, false, nil
		}
		return model.SequenceSummary{}, false, err
	}

	summary, err := DecodeSequenceSummary(payload)
	if err != nil {
		return model.SequenceSummary{}, false, fmt.Errorf("decode sequence summary %s: %w", sequence, err)
	}
	return summary, true, nil
}

func (s *SQLiteStore) Reset(ctx context.Context) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		DELETE FROM solve_records;
		DELETE FROM sequence_summaries;
	`)
	return err
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS solve_records (
			run_id TEXT PRIMARY KEY,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			created_at_utc TEXT NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS sequence_summaries (
			sequence TEXT NOT NULL,
			lattice TEXT NOT NULL,
			payload BLOB NOT NULL,
			PRIMARY KEY (sequence, lattice)
		);
	`)
	return err
}
