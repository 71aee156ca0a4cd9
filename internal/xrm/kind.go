package xrm

import "strings"

// AttributeKind identifies the declared column type of a form field, as
// reported by the host SDK's attribute metadata. It drives the normalization
// branch taken for the field's raw value.
type AttributeKind string

const (
	KindString      AttributeKind = "string"
	KindMemo        AttributeKind = "memo"
	KindInteger     AttributeKind = "integer"
	KindDecimal     AttributeKind = "decimal"
	KindDouble      AttributeKind = "double"
	KindBigInt      AttributeKind = "bigint"
	KindBoolean     AttributeKind = "boolean"
	KindDateTime    AttributeKind = "datetime"
	KindLookup      AttributeKind = "lookup"
	KindCustomer    AttributeKind = "customer"
	KindOwner       AttributeKind = "owner"
	KindOptionSet   AttributeKind = "optionset"
	KindMultiSelect AttributeKind = "multiselectoptionset"
	KindMoney       AttributeKind = "money"

	// KindOther covers column types the simulator has no dedicated handling
	// for (file, image, party lists, future additions). Values of this kind
	// pass through normalization unchanged.
	KindOther AttributeKind = "other"
)

// knownKinds is the closed set of kinds with dedicated normalization rules.
var knownKinds = map[AttributeKind]bool{
	KindString:      true,
	KindMemo:        true,
	KindInteger:     true,
	KindDecimal:     true,
	KindDouble:      true,
	KindBigInt:      true,
	KindBoolean:     true,
	KindDateTime:    true,
	KindLookup:      true,
	KindCustomer:    true,
	KindOwner:       true,
	KindOptionSet:   true,
	KindMultiSelect: true,
	KindMoney:       true,
	KindOther:       true,
}

// ParseKind maps a host SDK attribute-type string to an AttributeKind.
// Unrecognized strings map to KindOther rather than failing - new column
// types must degrade to passthrough, never break a snapshot pass.
func ParseKind(s string) AttributeKind {
	k := AttributeKind(strings.ToLower(strings.TrimSpace(s)))
	if knownKinds[k] {
		return k
	}
	return KindOther
}

// IsReference reports whether the kind normalizes to an EntityReference.
// Customer and owner columns are polymorphic lookups; the host SDK hands
// all three back in the same collection shape.
func (k AttributeKind) IsReference() bool {
	return k == KindLookup || k == KindCustomer || k == KindOwner
}
