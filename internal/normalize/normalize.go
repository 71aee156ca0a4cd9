// Package normalize converts raw client-side field values into the typed
// AttributeValue representation a server-side extension would observe.
//
// Normalize is a pure function: no side effects, never an error, never a
// panic. Every branch that cannot produce a typed value degrades to
// xrm.Null{} (or raw passthrough for unrecognized kinds) because a single
// odd field must not poison a whole snapshot pass.
package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xrmdev/plugsim/internal/xrm"
)

// Normalize maps a raw client value, given its declared column kind, to its
// canonical typed representation.
func Normalize(kind xrm.AttributeKind, raw any) xrm.AttributeValue {
	switch {
	case kind.IsReference():
		return normalizeReference(raw)
	case kind == xrm.KindOptionSet:
		return normalizeOptionSet(raw)
	case kind == xrm.KindMultiSelect:
		return normalizeMultiSelect(raw)
	case kind == xrm.KindBoolean:
		// Two-option columns are never absent server-side: coerce to a
		// strict boolean the way the client SDK itself treats the value.
		return xrm.Bool(truthy(raw))
	case kind == xrm.KindDateTime:
		return normalizeDateTime(raw)
	case kind == xrm.KindMoney:
		if f, ok := numeric(raw); ok {
			return xrm.Money{Value: f}
		}
		return xrm.Null{}
	case kind == xrm.KindInteger || kind == xrm.KindBigInt:
		// Whole values stay on an int64 path: bigint columns exceed
		// float64's 2^53 exact-integer range.
		if n, ok := integral(raw); ok {
			return xrm.Int(n)
		}
		if f, ok := numeric(raw); ok {
			return xrm.Int(int64(f))
		}
		return xrm.Null{}
	case kind == xrm.KindDecimal || kind == xrm.KindDouble:
		if f, ok := numeric(raw); ok {
			return xrm.Float(f)
		}
		return xrm.Null{}
	default:
		// string, memo, and anything unrecognized: passthrough.
		return passthrough(raw)
	}
}

// normalizeReference applies the one-element-list rule: client lookups are
// collections, only the first referenced record counts, and an empty or
// absent collection means no reference at all.
func normalizeReference(raw any) xrm.AttributeValue {
	var first map[string]any
	switch val := raw.(type) {
	case nil:
		return xrm.Null{}
	case []any:
		if len(val) == 0 {
			return xrm.Null{}
		}
		first, _ = val[0].(map[string]any)
	case []map[string]any:
		if len(val) == 0 {
			return xrm.Null{}
		}
		first = val[0]
	case map[string]any:
		first = val
	}
	if first == nil {
		return xrm.Null{}
	}

	ref := xrm.EntityReference{
		ID:          xrm.NormalizeGUID(stringField(first, "id")),
		LogicalName: stringField(first, "entityType", "entity_type", "logical_name", "logicalname"),
		Name:        stringField(first, "name"),
	}
	if ref.ID == "" && ref.LogicalName == "" {
		return xrm.Null{}
	}
	return ref
}

func normalizeOptionSet(raw any) xrm.AttributeValue {
	if raw == nil {
		return xrm.Null{}
	}
	if f, ok := numeric(raw); ok {
		return xrm.OptionSetValue{Value: int64(f)}
	}
	return xrm.Null{}
}

func normalizeMultiSelect(raw any) xrm.AttributeValue {
	list, ok := raw.([]any)
	if !ok || len(list) == 0 {
		if ints, ok := raw.([]int64); ok && len(ints) > 0 {
			return xrm.OptionSetValueCollection{Values: append([]int64(nil), ints...)}
		}
		return xrm.Null{}
	}
	values := make([]int64, 0, len(list))
	for _, elem := range list {
		if f, ok := numeric(elem); ok {
			values = append(values, int64(f))
		}
	}
	if len(values) == 0 {
		return xrm.Null{}
	}
	return xrm.OptionSetValueCollection{Values: values}
}

// dateLayouts are tried in order for string-typed date values. The client
// hands dates over either as native date objects or ISO-ish strings.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func normalizeDateTime(raw any) xrm.AttributeValue {
	switch val := raw.(type) {
	case time.Time:
		return xrm.DateTime{ISO: val.UTC().Format(time.RFC3339)}
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, val); err == nil {
				return xrm.DateTime{ISO: t.UTC().Format(time.RFC3339)}
			}
		}
		return xrm.Null{}
	default:
		return xrm.Null{}
	}
}

// passthrough maps scalars onto the union unchanged. Non-scalar values of an
// unrecognized kind have no server-side shape and normalize to Null.
func passthrough(raw any) xrm.AttributeValue {
	switch val := raw.(type) {
	case nil:
		return xrm.Null{}
	case string:
		return xrm.String(val)
	case bool:
		return xrm.Bool(val)
	case int:
		return xrm.Int(int64(val))
	case int64:
		return xrm.Int(val)
	case float64:
		if val == math.Trunc(val) && !math.IsInf(val, 0) {
			return xrm.Int(int64(val))
		}
		return xrm.Float(val)
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return xrm.Int(n)
		}
		if f, err := val.Float64(); err == nil {
			return xrm.Float(f)
		}
		return xrm.Null{}
	default:
		return xrm.Null{}
	}
}

// integral extracts an int64 without passing through float64. Reports
// false for fractional or non-numeric input; callers fall back to the
// float path for those.
func integral(raw any) (int64, bool) {
	switch val := raw.(type) {
	case int:
		return int64(val), true
	case int64:
		return val, true
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n, true
		}
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

// numeric extracts a float64 from any numeric raw shape. NaN and
// non-numeric values report false.
func numeric(raw any) (float64, bool) {
	var f float64
	switch val := raw.(type) {
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case float64:
		f = val
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// truthy mirrors the client runtime's boolean coercion.
func truthy(raw any) bool {
	switch val := raw.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case int:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0 && !math.IsNaN(val)
	case json.Number:
		f, err := val.Float64()
		return err == nil && f != 0
	default:
		return true
	}
}

func stringField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
