// Package runcfg loads solve presets from JSON files. Presets are decoded as
// loose maps and coerced field by field, so a config written by hand or by an
// older version tolerates extra keys and flexible number encodings.
package runcfg

import (
	"encoding/json"
	"fmt"
	"os"
)

// Preset mirrors the tunable surface of a solve request. Zero values mean
// "not set" and callers keep their own defaults.
type Preset struct {
	Sequence      string
	Algorithm     string
	Lattice       string
	MaxIterations int
	Seed          int64
	Instances     int
	Repeats       int
	TargetEnergy  float64
	InitialFold   string
	Refine        bool
}

// Load reads a preset file and converts it. Unknown keys are ignored; known
// keys with uncoercible values fail loudly.
func Load(path string) (Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Preset{}, err
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Preset{}, fmt.Errorf("parse preset %s: %w", path, err)
	}
	return Convert(raw)
}

// Convert maps a decoded preset onto the typed record.
func Convert(in map[string]any) (Preset, error) {
	var out Preset
	for key, val := range in {
		switch key {
		case "sequence":
			s, ok := asString(val)
			if !ok {
				return Preset{}, badValue(key)
			}
			out.Sequence = s
		case "algorithm", "algo":
			s, ok := asString(val)
			if !ok {
				return Preset{}, badValue(key)
			}
			out.Algorithm = s
		case "lattice":
			s, ok := asString(val)
			if !ok {
				return Preset{}, badValue(key)
			}
			out.Lattice = s
		case "max_iterations", "iterations":
			n, ok := asInt(val)
			if !ok {
				return Preset{}, badValue(key)
			}
			out.MaxIterations = n
		case "seed":
			n, ok := asInt(val)
			if !ok {
				return Preset{}, badValue(key)
			}
			out.Seed = int64(n)
		case "instances":
			n, ok := asInt(val)
			if !ok {
				return Preset{}, badValue(key)
			}
			out.Instances = n
		case "repeats":
			n, ok := asInt(val)
			if !ok {
				return Preset{}, badValue(key)
			}
			out.Repeats = n
		case "target_energy", "target":
			f, ok := asFloat64(val)
			if !ok {
				return Preset{}, badValue(key)
			}
			out.TargetEnergy = f
		case "initial_fold", "init":
			s, ok := asString(val)
			if !ok {
				return Preset{}, badValue(key)
			}
			out.InitialFold = s
		case "refine":
			b, ok := asBool(val)
			if !ok {
				return Preset{}, badValue(key)
			}
			out.Refine = b
		}
	}
	return out, nil
}

func badValue(key string) error {
	return fmt.Errorf("preset key %q has an unsupported value type", key)
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		return int(x), true
	case float32:
		return int(x), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}
