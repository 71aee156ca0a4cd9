package encode

import (
	"encoding/json"
	"fmt"

	"github.com/xrmdev/plugsim/internal/config"
	"github.com/xrmdev/plugsim/internal/pipeline"
	"github.com/xrmdev/plugsim/internal/xrm"
)

// Sections holds the three on-screen context panels. Each is either a
// pretty-printed JSON block or an explanatory placeholder stating why that
// section is empty for the chosen message and stage.
type Sections struct {
	Target    string `json:"target"`
	PreImage  string `json:"pre_image"`
	PostImage string `json:"post_image"`
}

// RenderSections renders the display view of a context. Serialization
// failures are reported inline in the affected section instead of failing
// the whole render.
func RenderSections(pc *pipeline.PluginContext, consts config.Constants) Sections {
	return Sections{
		Target:    renderTarget(pc, consts.TypeTags),
		PreImage:  renderImages(pc.PreEntityImages, preImagePlaceholder(pc, consts), consts.TypeTags),
		PostImage: renderImages(pc.PostEntityImages, postImagePlaceholder(pc, consts), consts.TypeTags),
	}
}

func renderTarget(pc *pipeline.PluginContext, tags xrm.TypeTags) string {
	switch {
	case pc.Target.Reference != nil:
		return prettyJSON(xrm.EncodeValue(*pc.Target.Reference, tags))
	case pc.Target.Entity != nil:
		return prettyJSON(encodeEntity(*pc.Target.Entity, tags))
	default:
		return "No target entity."
	}
}

func renderImages(images map[string]pipeline.Entity, placeholder string, tags xrm.TypeTags) string {
	if len(images) == 0 {
		return placeholder
	}
	out := make(map[string]any, len(images))
	for name, entity := range images {
		out[name] = encodeEntity(entity, tags)
	}
	return prettyJSON(out)
}

func encodeEntity(e pipeline.Entity, tags xrm.TypeTags) map[string]any {
	m := map[string]any{
		"logical_name": e.LogicalName,
		"attributes":   xrm.EncodeBag(e.Attributes, tags),
	}
	if e.ID != "" {
		m["id"] = e.ID
	}
	return m
}

// prettyJSON pretty-prints JSON-shaped data. encoding/json sorts map keys,
// so the output is deterministic. Failures become an inline error string at
// this boundary rather than crashing the shell.
func prettyJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("Unable to serialize this section: %v", err)
	}
	return string(data)
}

func preImagePlaceholder(pc *pipeline.PluginContext, consts config.Constants) string {
	switch pc.MessageName {
	case consts.Messages.Create:
		return "Pre-Image is not available for Create: the record does not exist yet."
	case consts.Messages.Update:
		return "Pre-Image requires at least one changed field."
	case consts.Messages.Delete:
		return "Pre-Image is only available in Pre-operation for Delete."
	default:
		return "Pre-Image is not available for this message."
	}
}

func postImagePlaceholder(pc *pipeline.PluginContext, consts config.Constants) string {
	if pc.MessageName == consts.Messages.Delete {
		return "Post-Image is not available for Delete: the record no longer exists."
	}
	return "Post-Image is only available in Post-operation."
}
