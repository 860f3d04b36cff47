package runcfg

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConvertCoercesKnownKeys(t *testing.T) {
	preset, err := Convert(map[string]any{
		"sequence":   "HPHP",
		"algo":       "genetic",
		"lattice":    "3D",
		"iterations": float64(5000), // JSON numbers decode as float64
		"seed":       float64(7),
		"instances":  float64(2),
		"target":     -4.0,
		"refine":     true,
		"comment":    "ignored free-form key",
	})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}

	if preset.Sequence != "HPHP" || preset.Algorithm != "genetic" || preset.Lattice != "3D" {
		t.Fatalf("string fields corrupted: %+v", preset)
	}
	if preset.MaxIterations != 5000 || preset.Seed != 7 || preset.Instances != 2 {
		t.Fatalf("numeric fields corrupted: %+v", preset)
	}
	if preset.TargetEnergy != -4 || !preset.Refine {
		t.Fatalf("target/refine corrupted: %+v", preset)
	}
}

func TestConvertRejectsWrongTypes(t *testing.T) {
	if _, err := Convert(map[string]any{"iterations": "many"}); err == nil {
		t.Fatal("expected error for string iteration count")
	}
	if _, err := Convert(map[string]any{"refine": "yes"}); err == nil {
		t.Fatal("expected error for string refine flag")
	}
}

func TestLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preset.json")
	content := `{"sequence": "HPHPPHHP", "algorithm": "annealing", "max_iterations": 1000, "seed": 3}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write preset: %v", err)
	}

	preset, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if preset.Sequence != "HPHPPHHP" || preset.Algorithm != "annealing" || preset.MaxIterations != 1000 || preset.Seed != 3 {
		t.Fatalf("preset corrupted: %+v", preset)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
