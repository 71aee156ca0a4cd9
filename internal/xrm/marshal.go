package xrm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// TypeTagKey is the JSON key carrying the variant tag on structured values.
const TypeTagKey = "type"

// TypeTags holds the literal tag strings distinguishing the structured
// variants in serialized form. Hosts can re-map them through configuration;
// the core only ever reads them from here.
type TypeTags struct {
	EntityReference     string `json:"entity_reference" yaml:"entity_reference"`
	OptionSet           string `json:"option_set" yaml:"option_set"`
	OptionSetCollection string `json:"option_set_collection" yaml:"option_set_collection"`
	Money               string `json:"money" yaml:"money"`
	DateTime            string `json:"date_time" yaml:"date_time"`
}

// DefaultTypeTags returns the tag set matching the server SDK type names.
func DefaultTypeTags() TypeTags {
	return TypeTags{
		EntityReference:     "EntityReference",
		OptionSet:           "OptionSetValue",
		OptionSetCollection: "OptionSetValueCollection",
		Money:               "Money",
		DateTime:            "DateTime",
	}
}

// EncodeValue lowers an AttributeValue to plain JSON-ready Go data.
// Scalars become their underlying Go value, Null becomes nil, and structured
// variants become a map tagged with the configured type tag.
func EncodeValue(v AttributeValue, tags TypeTags) any {
	return Visit(v, Visitor[any]{
		Null:   func() any { return nil },
		String: func(s string) any { return s },
		Int:    func(n int64) any { return n },
		Float:  func(f float64) any { return f },
		Bool:   func(b bool) any { return b },
		EntityReference: func(ref EntityReference) any {
			m := map[string]any{
				TypeTagKey:     tags.EntityReference,
				"id":           ref.ID,
				"logical_name": ref.LogicalName,
			}
			if ref.Name != "" {
				m["name"] = ref.Name
			}
			return m
		},
		OptionSet: func(o OptionSetValue) any {
			return map[string]any{TypeTagKey: tags.OptionSet, "value": o.Value}
		},
		OptionSetCollection: func(o OptionSetValueCollection) any {
			vals := make([]any, len(o.Values))
			for i, n := range o.Values {
				vals[i] = n
			}
			return map[string]any{TypeTagKey: tags.OptionSetCollection, "values": vals}
		},
		Money: func(m Money) any {
			return map[string]any{TypeTagKey: tags.Money, "value": m.Value}
		},
		DateTime: func(d DateTime) any {
			return map[string]any{TypeTagKey: tags.DateTime, "value": d.ISO}
		},
		Default: func(v AttributeValue) any { return nil },
	})
}

// EncodeBag lowers an AttributeBag to a plain map for JSON encoding.
func EncodeBag(b AttributeBag, tags TypeTags) map[string]any {
	out := make(map[string]any, len(b))
	for k, v := range b {
		out[k] = EncodeValue(v, tags)
	}
	return out
}

// DecodeValue reverses EncodeValue. Numbers without a fractional or exponent
// part decode to Int, everything else to Float. Unknown tag strings decode
// the map as-is into an error - the tag set is closed per configuration.
func DecodeValue(raw any, tags TypeTags) (AttributeValue, error) {
	switch val := raw.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case float64:
		if val == float64(int64(val)) {
			return Int(int64(val)), nil
		}
		return Float(val), nil
	case json.Number:
		s := string(val)
		if !strings.ContainsAny(s, ".eE") {
			n, err := val.Int64()
			if err != nil {
				return nil, fmt.Errorf("number out of int64 range: %s", s)
			}
			return Int(n), nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number: %s", s)
		}
		return Float(f), nil
	case map[string]any:
		return decodeTagged(val, tags)
	default:
		return nil, fmt.Errorf("unsupported value type: %T", raw)
	}
}

func decodeTagged(m map[string]any, tags TypeTags) (AttributeValue, error) {
	tag, _ := m[TypeTagKey].(string)
	switch tag {
	case tags.EntityReference:
		ref := EntityReference{}
		ref.ID, _ = m["id"].(string)
		ref.LogicalName, _ = m["logical_name"].(string)
		ref.Name, _ = m["name"].(string)
		return ref, nil
	case tags.OptionSet:
		n, err := asInt64(m["value"])
		if err != nil {
			return nil, fmt.Errorf("option set value: %w", err)
		}
		return OptionSetValue{Value: n}, nil
	case tags.OptionSetCollection:
		raw, _ := m["values"].([]any)
		vals := make([]int64, len(raw))
		for i, elem := range raw {
			n, err := asInt64(elem)
			if err != nil {
				return nil, fmt.Errorf("option set collection [%d]: %w", i, err)
			}
			vals[i] = n
		}
		return OptionSetValueCollection{Values: vals}, nil
	case tags.Money:
		f, err := asFloat64(m["value"])
		if err != nil {
			return nil, fmt.Errorf("money value: %w", err)
		}
		return Money{Value: f}, nil
	case tags.DateTime:
		iso, _ := m["value"].(string)
		return DateTime{ISO: iso}, nil
	default:
		return nil, fmt.Errorf("unknown value tag %q", tag)
	}
}

// DecodeBag reverses EncodeBag.
func DecodeBag(raw map[string]any, tags TypeTags) (AttributeBag, error) {
	out := make(AttributeBag, len(raw))
	for k, v := range raw {
		val, err := DecodeValue(v, tags)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		out[k] = val
	}
	return out, nil
}

func asInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	case json.Number:
		return n.Int64()
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}

func asFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	case json.Number:
		return n.Float64()
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}

// MarshalCanonical produces deterministic JSON for golden files and
// round-trip comparison: object keys in lexicographic order, strings NFC
// normalized, no HTML escaping, floats in shortest round-trippable form.
// Accepts AttributeValue, AttributeBag, and plain JSON-shaped Go data.
func MarshalCanonical(v any, tags TypeTags) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case AttributeValue:
		return MarshalCanonical(EncodeValue(val, tags), tags)
	case AttributeBag:
		return MarshalCanonical(map[string]any(EncodeBag(val, tags)), tags)
	case string:
		return canonicalString(val)
	case bool:
		if val {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case int:
		return []byte(strconv.FormatInt(int64(val), 10)), nil
	case int64:
		return []byte(strconv.FormatInt(val, 10)), nil
	case float64:
		if val == float64(int64(val)) {
			return []byte(strconv.FormatInt(int64(val), 10)), nil
		}
		return []byte(strconv.FormatFloat(val, 'g', -1, 64)), nil
	case json.Number:
		return []byte(val.String()), nil
	case []any:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := MarshalCanonical(elem, tags)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := canonicalString(k)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			buf.Write(kb)
			buf.WriteByte(':')
			vb, err := MarshalCanonical(val[k], tags)
			if err != nil {
				return nil, fmt.Errorf("value for key %q: %w", k, err)
			}
			buf.Write(vb)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

// canonicalString encodes a JSON string with NFC normalization applied at
// the serialization boundary and HTML escaping disabled.
func canonicalString(s string) ([]byte, error) {
	normalized := norm.NFC.String(s)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return nil, err
	}

	// json.Encoder adds a trailing newline, remove it
	result := buf.Bytes()
	if len(result) > 0 && result[len(result)-1] == '\n' {
		result = result[:len(result)-1]
	}
	return result, nil
}
