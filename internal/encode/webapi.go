package encode

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xrmdev/plugsim/internal/metadata"
	"github.com/xrmdev/plugsim/internal/pipeline"
	"github.com/xrmdev/plugsim/internal/xrm"
)

// ErrNoTarget reports that the context carries no usable target payload.
// Surfaced as a user-visible condition, never an uncaught failure.
var ErrNoTarget = errors.New("context has no target entity")

// DeleteInstruction describes how to issue the simulated delete over the
// Web API. Deletes carry no body, so instructions replace the payload.
type DeleteInstruction struct {
	Method string `json:"method"`
	URL    string `json:"url"`
}

// WebAPIExport is the REST-friendly rendering of a context's target.
// Exactly one of Body or Delete is set.
type WebAPIExport struct {
	// Collection is the resolved plural collection name of the primary
	// entity (naive fallback if resolution failed).
	Collection string `json:"collection"`
	// Body is the request payload for Create/Update targets.
	Body map[string]any `json:"body,omitempty"`
	// Delete is set instead of Body for Delete targets.
	Delete *DeleteInstruction `json:"delete,omitempty"`
}

// WebAPI converts the context's target into a Web API payload. Lookup
// values become OData bind keys referencing the target table's plural
// collection name; wrapped scalars are unwrapped. Resolution failures for
// any entity degrade to naive pluralization so the export still completes.
func WebAPI(ctx context.Context, pc *pipeline.PluginContext, resolver metadata.Resolver) (*WebAPIExport, error) {
	primary := metadata.ResolveOrFallback(ctx, resolver, pc.PrimaryEntityName)

	if pc.Target.Reference != nil {
		ref := pc.Target.Reference
		collection := primary.CollectionName
		if ref.LogicalName != "" && ref.LogicalName != pc.PrimaryEntityName {
			collection = metadata.ResolveOrFallback(ctx, resolver, ref.LogicalName).CollectionName
		}
		return &WebAPIExport{
			Collection: collection,
			Delete: &DeleteInstruction{
				Method: "DELETE",
				URL:    fmt.Sprintf("/%s(%s)", collection, strings.ToLower(ref.ID)),
			},
		}, nil
	}

	if pc.Target.Entity == nil {
		return nil, ErrNoTarget
	}

	// Referenced tables each need their own collection name for the bind
	// syntax; resolve them up front so the per-value dispatch stays
	// synchronous.
	collections := referencedCollections(ctx, pc.Target.Entity.Attributes, resolver)

	body := make(map[string]any, len(pc.Target.Entity.Attributes))
	for _, name := range pc.Target.Entity.Attributes.SortedKeys() {
		key, val := webAPIPair(name, pc.Target.Entity.Attributes[name], collections)
		body[key] = val
	}
	return &WebAPIExport{Collection: primary.CollectionName, Body: body}, nil
}

func referencedCollections(ctx context.Context, bag xrm.AttributeBag, resolver metadata.Resolver) map[string]string {
	out := map[string]string{}
	for _, v := range bag {
		if ref, ok := v.(xrm.EntityReference); ok && ref.LogicalName != "" {
			if _, done := out[ref.LogicalName]; !done {
				out[ref.LogicalName] = metadata.ResolveOrFallback(ctx, resolver, ref.LogicalName).CollectionName
			}
		}
	}
	return out
}

type webAPIValue struct {
	key string
	val any
}

// webAPIPair renders one attribute into its payload key and value.
func webAPIPair(name string, v xrm.AttributeValue, collections map[string]string) (string, any) {
	pair := xrm.Visit(v, xrm.Visitor[webAPIValue]{
		EntityReference: func(ref xrm.EntityReference) webAPIValue {
			collection := collections[ref.LogicalName]
			if collection == "" {
				collection = metadata.NaivePlural(ref.LogicalName)
			}
			return webAPIValue{
				key: name + "@odata.bind",
				val: fmt.Sprintf("/%s(%s)", collection, strings.ToLower(strings.Trim(ref.ID, "{}"))),
			}
		},
		Money: func(m xrm.Money) webAPIValue {
			return webAPIValue{key: name, val: m.Value}
		},
		OptionSet: func(o xrm.OptionSetValue) webAPIValue {
			return webAPIValue{key: name, val: o.Value}
		},
		OptionSetCollection: func(o xrm.OptionSetValueCollection) webAPIValue {
			return webAPIValue{key: name, val: append([]int64(nil), o.Values...)}
		},
		DateTime: func(d xrm.DateTime) webAPIValue {
			return webAPIValue{key: name, val: d.ISO}
		},
		Null:   func() webAPIValue { return webAPIValue{key: name, val: nil} },
		String: func(s string) webAPIValue { return webAPIValue{key: name, val: s} },
		Int:    func(n int64) webAPIValue { return webAPIValue{key: name, val: n} },
		Float:  func(f float64) webAPIValue { return webAPIValue{key: name, val: f} },
		Bool:   func(b bool) webAPIValue { return webAPIValue{key: name, val: b} },
		Default: func(v xrm.AttributeValue) webAPIValue {
			return webAPIValue{key: name, val: nil}
		},
	})
	return pair.key, pair.val
}
