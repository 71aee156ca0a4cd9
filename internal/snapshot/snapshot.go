// Package snapshot walks the live form's fields and produces the three
// parallel attribute maps the context builder consumes: full current state,
// dirty-only state, and pre-change state.
//
// The walk is a single O(n) pass with no state kept across calls - every
// invocation recomputes everything from the field accessors it is handed.
package snapshot

import (
	"github.com/xrmdev/plugsim/internal/normalize"
	"github.com/xrmdev/plugsim/internal/xrm"
)

// Field is the minimal capability contract a form field accessor must meet
// to be snapshotted. It mirrors the host SDK's attribute surface; accessors
// lacking either capability are skipped silently because some host field
// types are inconsistent about what they expose.
type Field interface {
	Name() string
	Value() any
}

// DirtyReporter is an optional field capability: whether the value changed
// since form load. Fields without it are treated as clean.
type DirtyReporter interface {
	IsDirty() bool
}

// InitialValueProvider is an optional field capability: the raw value at
// form load time. Several host field kinds never expose this - a known
// platform limitation, handled by the InitialUnavailable branch below.
type InitialValueProvider interface {
	InitialValue() (any, bool)
}

// KindReporter is an optional field capability: the declared column type.
// Fields without it normalize through the passthrough branch.
type KindReporter interface {
	AttributeKind() string
}

// InitialSource names which branch produced a field's pre-change value.
// It exists so the fallback behavior is assertable rather than implicit.
type InitialSource int

const (
	// InitialNotDirty: the field is clean, its pre-change value is its
	// current value.
	InitialNotDirty InitialSource = iota
	// InitialFromProvider: the host supplied the form-load value.
	InitialFromProvider
	// InitialUnavailable: the field is dirty but the host cannot supply a
	// form-load value for this field kind; the current raw value is used
	// instead. Platform limitation, not a defect to repair.
	InitialUnavailable
)

// FieldSnapshot is the per-field record of one snapshot pass.
type FieldSnapshot struct {
	LogicalName   string
	Kind          xrm.AttributeKind
	Current       xrm.AttributeValue
	IsDirty       bool
	Initial       xrm.AttributeValue
	InitialSource InitialSource
}

// EntityState is the reconciled output of a snapshot pass.
//
// Invariant: keys(Dirty) is a subset of keys(Full), and keys(PreImage)
// equals keys(Full).
type EntityState struct {
	// Full holds every field's current value.
	Full xrm.AttributeBag
	// Dirty holds only fields changed since form load.
	Dirty xrm.AttributeBag
	// PreImage holds each field's value before the pending change: the
	// initial value for dirty fields, the current value otherwise.
	PreImage xrm.AttributeBag
	// InitialUnavailable lists dirty fields whose pre-change value fell
	// back to the current raw value.
	InitialUnavailable []string
}

// Take performs one snapshot pass over the given fields.
func Take(fields []Field) EntityState {
	state := EntityState{
		Full:     make(xrm.AttributeBag, len(fields)),
		Dirty:    make(xrm.AttributeBag),
		PreImage: make(xrm.AttributeBag, len(fields)),
	}
	for _, f := range fields {
		snap, ok := capture(f)
		if !ok {
			continue
		}
		state.Full[snap.LogicalName] = snap.Current
		state.PreImage[snap.LogicalName] = snap.Initial
		if snap.IsDirty {
			state.Dirty[snap.LogicalName] = snap.Current
			if snap.InitialSource == InitialUnavailable {
				state.InitialUnavailable = append(state.InitialUnavailable, snap.LogicalName)
			}
		}
	}
	return state
}

// capture builds the FieldSnapshot for one field accessor. Returns false
// when the accessor lacks the minimal capabilities.
func capture(f Field) (FieldSnapshot, bool) {
	if f == nil {
		return FieldSnapshot{}, false
	}
	name := f.Name()
	if name == "" {
		return FieldSnapshot{}, false
	}

	kind := xrm.KindOther
	if kr, ok := f.(KindReporter); ok {
		kind = xrm.ParseKind(kr.AttributeKind())
	}

	rawCurrent := f.Value()
	snap := FieldSnapshot{
		LogicalName: name,
		Kind:        kind,
		Current:     normalize.Normalize(kind, rawCurrent),
	}

	if dr, ok := f.(DirtyReporter); ok {
		snap.IsDirty = dr.IsDirty()
	}
	if !snap.IsDirty {
		snap.Initial = snap.Current
		snap.InitialSource = InitialNotDirty
		return snap, true
	}

	if ip, ok := f.(InitialValueProvider); ok {
		if rawInitial, available := ip.InitialValue(); available {
			snap.Initial = normalize.Normalize(kind, rawInitial)
			snap.InitialSource = InitialFromProvider
			return snap, true
		}
	}

	// InitialUnavailable -> use current raw value as the "before" state.
	snap.Initial = normalize.Normalize(kind, rawCurrent)
	snap.InitialSource = InitialUnavailable
	return snap, true
}
