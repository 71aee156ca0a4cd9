// Package testutil provides shared fixtures for simulator tests: fake form
// field accessors with controllable capabilities, and a capture builder for
// common entity shapes.
package testutil

import (
	"github.com/xrmdev/plugsim/internal/snapshot"
)

// FakeField is a test double for a form field accessor. Capability
// interfaces are implemented on the struct; zero-value behavior is a
// clean, kindless field.
type FakeField struct {
	FieldName  string
	Kind       string
	Val        any
	Dirty      bool
	Initial    any
	HasInitial bool

	// PanicWith, when set, makes Value panic with it - simulating a host
	// API failure mid-read.
	PanicWith error
}

// Name implements snapshot.Field.
func (f *FakeField) Name() string { return f.FieldName }

// Value implements snapshot.Field.
func (f *FakeField) Value() any {
	if f.PanicWith != nil {
		panic(f.PanicWith)
	}
	return f.Val
}

// IsDirty implements snapshot.DirtyReporter.
func (f *FakeField) IsDirty() bool { return f.Dirty }

// AttributeKind implements snapshot.KindReporter.
func (f *FakeField) AttributeKind() string { return f.Kind }

// InitialValue implements snapshot.InitialValueProvider.
func (f *FakeField) InitialValue() (any, bool) {
	if !f.HasInitial {
		return nil, false
	}
	return f.Initial, true
}

// OpaqueField implements only the minimal Field surface: no dirty flag, no
// initial value, no kind. Mirrors the host field types that expose nothing
// beyond name and value.
type OpaqueField struct {
	FieldName string
	Val       any
}

// Name implements snapshot.Field.
func (f *OpaqueField) Name() string { return f.FieldName }

// Value implements snapshot.Field.
func (f *OpaqueField) Value() any { return f.Val }

// Fields collects accessors into the slice type Snapshot consumes.
func Fields(fields ...snapshot.Field) []snapshot.Field {
	return fields
}

// AccountFields returns the standard test form: a clean name, a dirty
// description (initial available), and a clean revenue.
func AccountFields() []snapshot.Field {
	return Fields(
		&FakeField{FieldName: "name", Kind: "string", Val: "Acme"},
		&FakeField{
			FieldName:  "description",
			Kind:       "memo",
			Val:        "new text",
			Dirty:      true,
			Initial:    "old text",
			HasInitial: true,
		},
		&FakeField{FieldName: "revenue", Kind: "money", Val: 500000},
	)
}
