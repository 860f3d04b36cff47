package storage

import (
	"encoding/json"
	"errors"

	"hpfold/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeSolveRecord(r model.SolveRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeSolveRecord(data []byte) (model.SolveRecord, error) {
	var record model.SolveRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.SolveRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return model.SolveRecord{}, err
	}
	return record, nil
}

func EncodeSequenceSummary(s model.SequenceSummary) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeSequenceSummary(data []byte) (model.SequenceSummary, error) {
	var summary model.SequenceSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return model.SequenceSummary{}, err
	}
	if err := checkVersion(summary.VersionedRecord); err != nil {
		return model.SequenceSummary{}, err
	}
	return summary, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
