// Package starlark evaluates configuration predicates with Starlark.
//
// A predicate is a single Starlark expression, for example
//
//	feature("uart1") and configuration == "release"
//
// evaluated against the globals of one build variant. Its truth value decides
// whether a conditional bring-up step takes effect.
package starlark

import (
	"fmt"
	"sort"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// TargetInfo describes the device a build runs on.
// Exposed as the "target" global in predicates.
type TargetInfo struct {
	Device       string // "LM3S6965"
	CPU          string // "CM3"
	PriorityBits int
	// Interrupts are the peripheral interrupt names of the device. Empty
	// when no device description is loaded.
	Interrupts []string
}

// ToStarlark converts TargetInfo to a Starlark struct with device, cpu,
// priority_bits, interrupts and has_interrupt(name).
func (t *TargetInfo) ToStarlark() starlark.Value {
	names := make([]starlark.Value, len(t.Interrupts))
	known := make(map[string]bool, len(t.Interrupts))
	for i, n := range t.Interrupts {
		names[i] = starlark.String(n)
		known[n] = true
	}
	interrupts := starlark.NewList(names)
	interrupts.Freeze()

	has := starlark.NewBuiltin("has_interrupt", func(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var name string
		if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &name); err != nil {
			return nil, err
		}
		return starlark.Bool(known[name]), nil
	})

	return starlarkstruct.FromStringDict(starlark.String("target"), starlark.StringDict{
		"device":        starlark.String(t.Device),
		"cpu":           starlark.String(t.CPU),
		"priority_bits": starlark.MakeInt(t.PriorityBits),
		"interrupts":    interrupts,
		"has_interrupt": has,
	})
}

// GoToStarlark converts a decoded configuration value to Starlark. It
// accepts the shapes YAML, env and flag decoding produce: strings, bools,
// any integer or float width, and lists and string-keyed maps of those.
// Map keys are inserted sorted so iteration order is stable.
func GoToStarlark(v any) (starlark.Value, error) {
	switch val := v.(type) {
	case nil:
		return starlark.None, nil
	case string:
		return starlark.String(val), nil
	case bool:
		return starlark.Bool(val), nil
	case int:
		return starlark.MakeInt(val), nil
	case int8, int16, int32, int64:
		return starlark.MakeInt64(toInt64(val)), nil
	case uint, uint8, uint16, uint32, uint64:
		return starlark.MakeUint64(toUint64(val)), nil
	case float32:
		return starlark.Float(val), nil
	case float64:
		return starlark.Float(val), nil
	case []string:
		list := make([]starlark.Value, len(val))
		for i, s := range val {
			list[i] = starlark.String(s)
		}
		return starlark.NewList(list), nil
	case []any:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			sv, err := GoToStarlark(item)
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			list[i] = sv
		}
		return starlark.NewList(list), nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		dict := starlark.NewDict(len(val))
		for _, k := range keys {
			sv, err := GoToStarlark(val[k])
			if err != nil {
				return nil, fmt.Errorf("dict key %q: %w", k, err)
			}
			if err := dict.SetKey(starlark.String(k), sv); err != nil {
				return nil, fmt.Errorf("dict key %q: %w", k, err)
			}
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported cfg value type %T", v)
	}
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	default:
		return v.(int64)
	}
}

func toUint64(v any) uint64 {
	switch n := v.(type) {
	case uint:
		return uint64(n)
	case uint8:
		return uint64(n)
	case uint16:
		return uint64(n)
	case uint32:
		return uint64(n)
	default:
		return v.(uint64)
	}
}
