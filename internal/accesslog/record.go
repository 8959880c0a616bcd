// Package accesslog builds, flattens and classifies structured access-log
// records for HTTP request/response cycles.
package accesslog

import (
	"log/slog"
	"sort"
	"strconv"
)

// Value is a record value: either a scalar leaf or a nested Map.
// Keeping the recursion over a closed set of types means Flatten and the
// sinks never have to fall back to reflection.
type Value interface {
	isValue()
}

// String is a scalar string value.
type String string

// Int is a scalar integer value.
type Int int64

// Float is a scalar floating-point value.
type Float float64

// Bool is a scalar boolean value.
type Bool bool

// Map is a nested mapping of field names to values.
type Map map[string]Value

func (String) isValue() {}
func (Int) isValue()    {}
func (Float) isValue()  {}
func (Bool) isValue()   {}
func (Map) isValue()    {}

// FlatRecord maps dot-joined key paths to scalar values. Flatten guarantees
// no Map values remain.
type FlatRecord map[string]Value

// Flatten walks a nested record and emits every leaf under its dot-joined
// path. The root call carries no prefix, so top-level keys appear unchanged.
// Handles arbitrary nesting depth; adapters may inject structures deeper
// than the builder produces. Cyclic maps are a caller bug and will not
// terminate.
func Flatten(record Map) FlatRecord {
	flat := make(FlatRecord, len(record))
	flattenInto(flat, record, "")
	return flat
}

func flattenInto(flat FlatRecord, record Map, path string) {
	for key, val := range record {
		subpath := key
		if path != "" {
			subpath = path + "." + key
		}
		if nested, ok := val.(Map); ok {
			flattenInto(flat, nested, subpath)
		} else {
			flat[subpath] = val
		}
	}
}

// scalarString renders a scalar value the way a pattern match sees it.
func scalarString(v Value) string {
	switch s := v.(type) {
	case String:
		return string(s)
	case Int:
		return strconv.FormatInt(int64(s), 10)
	case Float:
		return strconv.FormatFloat(float64(s), 'f', -1, 64)
	case Bool:
		return strconv.FormatBool(bool(s))
	default:
		// Map never reaches here for flattened records.
		return ""
	}
}

// Attrs converts a flat record to slog attributes with native scalar types,
// sorted by key for deterministic output.
func Attrs(flat FlatRecord) []slog.Attr {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]slog.Attr, 0, len(flat))
	for _, k := range keys {
		switch v := flat[k].(type) {
		case String:
			attrs = append(attrs, slog.String(k, string(v)))
		case Int:
			attrs = append(attrs, slog.Int64(k, int64(v)))
		case Float:
			attrs = append(attrs, slog.Float64(k, float64(v)))
		case Bool:
			attrs = append(attrs, slog.Bool(k, bool(v)))
		}
	}
	return attrs
}
