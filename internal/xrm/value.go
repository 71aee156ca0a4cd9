package xrm

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

// AttributeValue is a sealed interface over the normalized value variants.
// Only Null, String, Int, Float, Bool, EntityReference, OptionSetValue,
// OptionSetValueCollection, Money, and DateTime implement it.
type AttributeValue interface {
	attributeValue() // Sealed - only these types implement it
}

// Null represents an absent value. Using an explicit type (instead of a nil
// interface) keeps every map entry a valid AttributeValue.
type Null struct{}

func (Null) attributeValue() {}

// String is a plain text value, passed through normalization unchanged.
type String string

func (String) attributeValue() {}

// Int is a whole-number value (integer and bigint columns).
type Int int64

func (Int) attributeValue() {}

// Float is a fractional numeric value (decimal and double columns).
// Carried as float64 with no rounding applied by the simulator.
type Float float64

func (Float) attributeValue() {}

// Bool is a two-option column value. Normalization coerces to a strict
// boolean, so a Bool is never "absent".
type Bool bool

func (Bool) attributeValue() {}

// EntityReference is a typed pointer to another record: the referenced
// table's logical name, the record id, and an optional display name.
type EntityReference struct {
	ID          string `json:"id"`
	LogicalName string `json:"logical_name"`
	Name        string `json:"name,omitempty"`
}

func (EntityReference) attributeValue() {}

// OptionSetValue is a single choice column selection.
type OptionSetValue struct {
	Value int64 `json:"value"`
}

func (OptionSetValue) attributeValue() {}

// OptionSetValueCollection is a multi-select choice column selection.
type OptionSetValueCollection struct {
	Values []int64 `json:"values"`
}

func (OptionSetValueCollection) attributeValue() {}

// Money is a currency column value.
type Money struct {
	Value float64 `json:"value"`
}

func (Money) attributeValue() {}

// DateTime is a date/time column value carried as an ISO-8601 string.
// The client's raw date is converted once at normalization time; everything
// downstream treats the string as opaque.
type DateTime struct {
	ISO string `json:"iso"`
}

func (DateTime) attributeValue() {}

// AttributeBag maps field logical names to normalized values.
// Use SortedKeys for deterministic iteration.
type AttributeBag map[string]AttributeValue

// SortedKeys returns the bag's keys in lexicographic byte order. Field
// logical names are lower-case ASCII identifiers, so byte order is the
// stable order every encoder emits attributes in.
func (b AttributeBag) SortedKeys() []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy of the bag. Variants are value types, so a
// shallow copy is enough to keep a built context isolated from later
// snapshot passes.
func (b AttributeBag) Clone() AttributeBag {
	out := make(AttributeBag, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// NormalizeGUID canonicalizes a record id: braces stripped, lower-cased,
// hyphenated form. Returns the input unchanged if it does not parse as a
// GUID - the simulator reproduces host state, it does not reject it.
func NormalizeGUID(s string) string {
	trimmed := strings.Trim(strings.TrimSpace(s), "{}")
	id, err := uuid.Parse(trimmed)
	if err != nil {
		return s
	}
	return id.String()
}

// IsNull reports whether v is the Null variant (or a nil interface).
func IsNull(v AttributeValue) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}
