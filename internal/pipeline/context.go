// Package pipeline assembles the simulated server-side execution context: a
// Target payload plus Pre-Image and Post-Image collections, derived from a
// form snapshot according to the message and stage being simulated.
package pipeline

import (
	"github.com/xrmdev/plugsim/internal/xrm"
)

// Entity is the attribute-bag payload shape carried by targets and images.
// An empty ID means the id is absent (a Create target never carries one).
type Entity struct {
	LogicalName string           `json:"logical_name"`
	ID          string           `json:"id,omitempty"`
	Attributes  xrm.AttributeBag `json:"attributes"`
}

// Target is the primary payload of the simulated operation: an Entity for
// Create/Update, an EntityReference for Delete. Exactly one side is set.
type Target struct {
	Entity    *Entity              `json:"entity,omitempty"`
	Reference *xrm.EntityReference `json:"reference,omitempty"`
}

// Identity carries the form's record identity, supplied by the host.
type Identity struct {
	EntityName string
	RecordID   string
	UserID     string
}

// PluginContext is the assembled simulation result. It is immutable once
// built: each Generate action produces a fresh context, and every encoder
// only reads it.
type PluginContext struct {
	MessageName       string
	Stage             int
	PrimaryEntityName string
	PrimaryEntityID   string
	InitiatingUserID  string
	Target            Target
	PreEntityImages   map[string]Entity
	PostEntityImages  map[string]Entity
}

// HasPreImage reports whether the pre-image collection is populated.
func (pc *PluginContext) HasPreImage() bool {
	return len(pc.PreEntityImages) > 0
}

// HasPostImage reports whether the post-image collection is populated.
func (pc *PluginContext) HasPostImage() bool {
	return len(pc.PostEntityImages) > 0
}

// NothingToSimulate reports the empty-update condition: an Update context
// whose target carries no attributes because no field is dirty. Callers
// must treat this as "nothing to simulate", not as a valid generation.
func (pc *PluginContext) NothingToSimulate() bool {
	return pc.Target.Entity != nil &&
		len(pc.Target.Entity.Attributes) == 0 &&
		!pc.HasPreImage() &&
		pc.Target.Entity.ID != ""
}
