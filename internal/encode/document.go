package encode

import (
	"fmt"

	"github.com/xrmdev/plugsim/internal/config"
	"github.com/xrmdev/plugsim/internal/pipeline"
	"github.com/xrmdev/plugsim/internal/xrm"
)

// ContextDocument lowers a full PluginContext to JSON-shaped Go data. This
// is the "view full JSON" export and the canonical serialization used for
// round-trip checks.
func ContextDocument(pc *pipeline.PluginContext, consts config.Constants) map[string]any {
	tags := consts.TypeTags
	doc := map[string]any{
		"message_name":        pc.MessageName,
		"stage":               pc.Stage,
		"primary_entity_name": pc.PrimaryEntityName,
		"pre_entity_images":   encodeImages(pc.PreEntityImages, tags),
		"post_entity_images":  encodeImages(pc.PostEntityImages, tags),
	}
	if pc.PrimaryEntityID != "" {
		doc["primary_entity_id"] = pc.PrimaryEntityID
	}
	if pc.InitiatingUserID != "" {
		doc["initiating_user_id"] = pc.InitiatingUserID
	}
	switch {
	case pc.Target.Reference != nil:
		doc["target"] = xrm.EncodeValue(*pc.Target.Reference, tags)
	case pc.Target.Entity != nil:
		doc["target"] = encodeEntity(*pc.Target.Entity, tags)
	}
	return doc
}

// ParseContextDocument reverses ContextDocument.
func ParseContextDocument(doc map[string]any, consts config.Constants) (*pipeline.PluginContext, error) {
	tags := consts.TypeTags
	pc := &pipeline.PluginContext{
		PreEntityImages:  map[string]pipeline.Entity{},
		PostEntityImages: map[string]pipeline.Entity{},
	}
	pc.MessageName, _ = doc["message_name"].(string)
	stage, err := asInt(doc["stage"])
	if err != nil {
		return nil, fmt.Errorf("stage: %w", err)
	}
	pc.Stage = stage
	pc.PrimaryEntityName, _ = doc["primary_entity_name"].(string)
	pc.PrimaryEntityID, _ = doc["primary_entity_id"].(string)
	pc.InitiatingUserID, _ = doc["initiating_user_id"].(string)

	if rawTarget, ok := doc["target"].(map[string]any); ok {
		if _, tagged := rawTarget[xrm.TypeTagKey]; tagged {
			val, err := xrm.DecodeValue(rawTarget, tags)
			if err != nil {
				return nil, fmt.Errorf("target: %w", err)
			}
			ref, ok := val.(xrm.EntityReference)
			if !ok {
				return nil, fmt.Errorf("target: tagged value is not an entity reference")
			}
			pc.Target.Reference = &ref
		} else {
			entity, err := decodeEntity(rawTarget, tags)
			if err != nil {
				return nil, fmt.Errorf("target: %w", err)
			}
			pc.Target.Entity = &entity
		}
	}

	if pc.PreEntityImages, err = decodeImages(doc["pre_entity_images"], tags); err != nil {
		return nil, fmt.Errorf("pre images: %w", err)
	}
	if pc.PostEntityImages, err = decodeImages(doc["post_entity_images"], tags); err != nil {
		return nil, fmt.Errorf("post images: %w", err)
	}
	return pc, nil
}

func encodeImages(images map[string]pipeline.Entity, tags xrm.TypeTags) map[string]any {
	out := make(map[string]any, len(images))
	for name, entity := range images {
		out[name] = encodeEntity(entity, tags)
	}
	return out
}

func decodeImages(raw any, tags xrm.TypeTags) (map[string]pipeline.Entity, error) {
	out := map[string]pipeline.Entity{}
	m, ok := raw.(map[string]any)
	if !ok {
		return out, nil
	}
	for name, rawEntity := range m {
		em, ok := rawEntity.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("image %q is not an object", name)
		}
		entity, err := decodeEntity(em, tags)
		if err != nil {
			return nil, fmt.Errorf("image %q: %w", name, err)
		}
		out[name] = entity
	}
	return out, nil
}

func decodeEntity(m map[string]any, tags xrm.TypeTags) (pipeline.Entity, error) {
	entity := pipeline.Entity{Attributes: xrm.AttributeBag{}}
	entity.LogicalName, _ = m["logical_name"].(string)
	entity.ID, _ = m["id"].(string)
	if rawAttrs, ok := m["attributes"].(map[string]any); ok {
		bag, err := xrm.DecodeBag(rawAttrs, tags)
		if err != nil {
			return entity, err
		}
		entity.Attributes = bag
	}
	return entity, nil
}

func asInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}
