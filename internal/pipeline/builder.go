package pipeline

import (
	"github.com/xrmdev/plugsim/internal/config"
	"github.com/xrmdev/plugsim/internal/snapshot"
	"github.com/xrmdev/plugsim/internal/xrm"
)

// Builder assembles PluginContexts. Message names, stage values, the image
// key, and the system-field patterns are all injected through the constants
// set; the builder hard-codes only the inclusion table itself.
type Builder struct {
	consts config.Constants
	filter *config.SystemFieldFilter
}

// NewBuilder creates a Builder for the given constants.
func NewBuilder(consts config.Constants) *Builder {
	return &Builder{
		consts: consts,
		filter: config.NewSystemFieldFilter(consts.SystemFields),
	}
}

// Build assembles the context for one message/stage pair from a snapshot.
//
// Inclusion rules, keyed by message then stage:
//
//	Create:  Target = full entity minus system fields, never an id.
//	         No Pre-Image. Post-Image = full entity with id, post-op only.
//	Update:  Target = dirty attributes with id.
//	         Pre-Image = pre-change entity with id, only when dirty is
//	         non-empty. Post-Image = full entity with id, post-op only.
//	Delete:  Target = EntityReference (never an Entity).
//	         Pre-Image = full entity with id, pre-op only (the record still
//	         exists before the delete). No Post-Image.
//	other:   Target = dirty attributes with id. No Pre-Image.
//	         Post-Image = full entity with id, post-op only.
//
// Update and Delete refuse to build for an unsaved record (no id): the
// server could never address such a record, so a silent null-id context
// would be a lie.
func (b *Builder) Build(messageName string, stage int, state snapshot.EntityState, identity Identity) (*PluginContext, error) {
	if stage != b.consts.Stages.PreOperation && stage != b.consts.Stages.PostOperation {
		return nil, &BuildError{
			Code:        ErrCodeUnknownStage,
			Message:     "stage is not a configured pipeline stage value",
			MessageName: messageName,
			EntityName:  identity.EntityName,
		}
	}

	recordID := xrm.NormalizeGUID(identity.RecordID)
	pc := &PluginContext{
		MessageName:       messageName,
		Stage:             stage,
		PrimaryEntityName: identity.EntityName,
		PrimaryEntityID:   recordID,
		InitiatingUserID:  xrm.NormalizeGUID(identity.UserID),
		PreEntityImages:   map[string]Entity{},
		PostEntityImages:  map[string]Entity{},
	}
	postOp := stage == b.consts.Stages.PostOperation

	switch messageName {
	case b.consts.Messages.Create:
		// System-managed fields must not be client-supplied on insert.
		pc.Target.Entity = &Entity{
			LogicalName: identity.EntityName,
			Attributes:  b.withoutSystemFields(state.Full),
		}
		if postOp {
			b.setImage(pc.PostEntityImages, identity.EntityName, recordID, state.Full)
		}

	case b.consts.Messages.Update:
		if recordID == "" {
			return nil, NewMissingRecordIDError(messageName, identity.EntityName)
		}
		pc.Target.Entity = &Entity{
			LogicalName: identity.EntityName,
			ID:          recordID,
			Attributes:  state.Dirty.Clone(),
		}
		if len(state.Dirty) > 0 {
			b.setImage(pc.PreEntityImages, identity.EntityName, recordID, state.PreImage)
		}
		if postOp {
			b.setImage(pc.PostEntityImages, identity.EntityName, recordID, state.Full)
		}

	case b.consts.Messages.Delete:
		if recordID == "" {
			return nil, NewMissingRecordIDError(messageName, identity.EntityName)
		}
		pc.Target.Reference = &xrm.EntityReference{
			ID:          recordID,
			LogicalName: identity.EntityName,
		}
		if !postOp {
			b.setImage(pc.PreEntityImages, identity.EntityName, recordID, state.Full)
		}

	default:
		pc.Target.Entity = &Entity{
			LogicalName: identity.EntityName,
			ID:          recordID,
			Attributes:  state.Dirty.Clone(),
		}
		if postOp {
			b.setImage(pc.PostEntityImages, identity.EntityName, recordID, state.Full)
		}
	}

	return pc, nil
}

func (b *Builder) setImage(images map[string]Entity, entityName, recordID string, bag xrm.AttributeBag) {
	images[b.consts.ImageKey] = Entity{
		LogicalName: entityName,
		ID:          recordID,
		Attributes:  bag.Clone(),
	}
}

func (b *Builder) withoutSystemFields(bag xrm.AttributeBag) xrm.AttributeBag {
	out := make(xrm.AttributeBag, len(bag))
	for name, v := range bag {
		if b.filter.IsSystem(name) {
			continue
		}
		out[name] = v
	}
	return out
}
