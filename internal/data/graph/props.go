package graph

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
)

// Properties hold node or edge properties. Values are restricted to string,
// []string, int64, []int64, float64, []float64, bool and []bool.
type Properties map[string]any

func (p Properties) String(key string) string {
	if s, ok := p[key].(string); ok {
		return s
	}
	return ""
}

// Strings returns a copy of the string array under key.
func (p Properties) Strings(key string) []string {
	switch v := p[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case string:
		return []string{v}
	default:
		return nil
	}
}

func (p Properties) Bool(key string) bool {
	b, _ := p[key].(bool)
	return b
}

func (p Properties) Bools(key string) []bool {
	if v, ok := p[key].([]bool); ok {
		return append([]bool(nil), v...)
	}
	return nil
}

func (p Properties) Int(key string) (int64, bool) {
	switch v := p[key].(type) {
	case int64:
		return v, true
	case float64:
		if v == math.Trunc(v) {
			return int64(v), true
		}
	}
	return 0, false
}

func (p Properties) Ints(key string) []int64 {
	if v, ok := p[key].([]int64); ok {
		return append([]int64(nil), v...)
	}
	return nil
}

func (p Properties) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Clone deep-copies p.
func (p Properties) Clone() Properties {
	if p == nil {
		return Properties{}
	}
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = CloneValue(v)
	}
	return out
}

// Keys returns the sorted property keys.
func (p Properties) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func CloneValue(v any) any {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case []int64:
		return append([]int64(nil), t...)
	case []float64:
		return append([]float64(nil), t...)
	case []bool:
		return append([]bool(nil), t...)
	default:
		return v
	}
}

// IsArray reports whether v is one of the supported array types.
func IsArray(v any) bool {
	switch v.(type) {
	case []string, []int64, []float64, []bool:
		return true
	default:
		return false
	}
}

// ValuesEqual compares two normalized property values.
func ValuesEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

// NormalizeValue coerces decoded values (JSON numbers, driver lists) into
// the supported property types. Integral floats become int64.
func NormalizeValue(v any) (any, error) {
	switch t := v.(type) {
	case string, bool, int64, []string, []int64, []bool:
		return CloneValue(t), nil
	case []float64:
		return normalizeFloats(t), nil
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case float32:
		return normalizeFloat(float64(t)), nil
	case float64:
		return normalizeFloat(t), nil
	case []any:
		return normalizeList(t)
	case nil:
		return nil, fmt.Errorf("%w: nil", ErrInvalidValue)
	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidValue, v)
	}
}

// NormalizeProperties normalizes every value of in. Keys must be identifiers.
func NormalizeProperties(in map[string]any) (Properties, error) {
	out := make(Properties, len(in))
	for k, v := range in {
		if !ValidIdentifier(k) {
			return nil, fmt.Errorf("%w: property key %q", ErrInvalidIdentifier, k)
		}
		nv, err := NormalizeValue(v)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", k, err)
		}
		out[k] = nv
	}
	return out, nil
}

func normalizeFloat(f float64) any {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return f
}

func normalizeFloats(fs []float64) any {
	ints := make([]int64, 0, len(fs))
	for _, f := range fs {
		if f != math.Trunc(f) || math.Abs(f) >= 1<<53 {
			return append([]float64(nil), fs...)
		}
		ints = append(ints, int64(f))
	}
	return ints
}

func normalizeList(items []any) (any, error) {
	if len(items) == 0 {
		return []string{}, nil
	}
	switch items[0].(type) {
	case string:
		out := make([]string, 0, len(items))
		for _, it := range items {
			s, ok := it.(string)
			if !ok {
				return nil, fmt.Errorf("%w: mixed list", ErrInvalidValue)
			}
			out = append(out, s)
		}
		return out, nil
	case bool:
		out := make([]bool, 0, len(items))
		for _, it := range items {
			b, ok := it.(bool)
			if !ok {
				return nil, fmt.Errorf("%w: mixed list", ErrInvalidValue)
			}
			out = append(out, b)
		}
		return out, nil
	case int, int32, int64, float32, float64:
		fs := make([]float64, 0, len(items))
		for _, it := range items {
			switch n := it.(type) {
			case int:
				fs = append(fs, float64(n))
			case int32:
				fs = append(fs, float64(n))
			case int64:
				fs = append(fs, float64(n))
			case float32:
				fs = append(fs, float64(n))
			case float64:
				fs = append(fs, n)
			default:
				return nil, fmt.Errorf("%w: mixed list", ErrInvalidValue)
			}
		}
		return normalizeFloats(fs), nil
	default:
		return nil, fmt.Errorf("%w: list of %T", ErrInvalidValue, items[0])
	}
}

// FormatValue renders a scalar property value as a stable string key.
func FormatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
