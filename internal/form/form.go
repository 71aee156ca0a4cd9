// Package form loads captured client form state from YAML or JSON
// documents and adapts it to the snapshot package's field accessor
// contract. Documents are validated against an embedded CUE schema before
// decoding, so malformed captures fail with positional errors instead of
// surfacing later as odd simulation output.
package form

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/xrmdev/plugsim/internal/pipeline"
	"github.com/xrmdev/plugsim/internal/snapshot"
)

//go:embed schema.cue
var schemaCUE string

// IdentityDoc is the capture's record identity block.
type IdentityDoc struct {
	LogicalName string `yaml:"logical_name" json:"logical_name"`
	RecordID    string `yaml:"record_id" json:"record_id"`
	UserID      string `yaml:"user_id" json:"user_id"`
}

// FieldDoc is one captured form field. It implements the snapshot field
// capabilities, so a decoded capture can be snapshotted directly.
type FieldDoc struct {
	LogicalName string `yaml:"name" json:"name"`
	KindName    string `yaml:"kind" json:"kind"`
	RawValue    any    `yaml:"value" json:"value"`
	Dirty       bool   `yaml:"dirty" json:"dirty"`
	// RawInitial is nil when the capture has no form-load value for the
	// field, which exercises the initial-value-unavailable fallback.
	RawInitial *any `yaml:"initial" json:"initial"`
}

// Name implements snapshot.Field.
func (f *FieldDoc) Name() string { return f.LogicalName }

// Value implements snapshot.Field.
func (f *FieldDoc) Value() any { return f.RawValue }

// IsDirty implements snapshot.DirtyReporter.
func (f *FieldDoc) IsDirty() bool { return f.Dirty }

// AttributeKind implements snapshot.KindReporter.
func (f *FieldDoc) AttributeKind() string { return f.KindName }

// InitialValue implements snapshot.InitialValueProvider.
func (f *FieldDoc) InitialValue() (any, bool) {
	if f.RawInitial == nil {
		return nil, false
	}
	return *f.RawInitial, true
}

// Capture is a decoded form capture document.
type Capture struct {
	Entity IdentityDoc `yaml:"entity" json:"entity"`
	Fields []FieldDoc  `yaml:"fields" json:"fields"`
}

// Identity returns the capture's record identity for the context builder.
func (c *Capture) Identity() pipeline.Identity {
	return pipeline.Identity{
		EntityName: c.Entity.LogicalName,
		RecordID:   c.Entity.RecordID,
		UserID:     c.Entity.UserID,
	}
}

// Accessors adapts the captured fields to the snapshotter's contract.
func (c *Capture) Accessors() []snapshot.Field {
	out := make([]snapshot.Field, len(c.Fields))
	for i := range c.Fields {
		out[i] = &c.Fields[i]
	}
	return out
}

// Load reads, validates, and decodes a capture document. The format is
// chosen by file extension: .json is JSON, everything else is YAML.
func Load(path string) (*Capture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read capture: %w", err)
	}
	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = "json"
	}
	capture, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("capture %s: %w", path, err)
	}
	return capture, nil
}

// Parse validates and decodes a capture document from raw bytes.
func Parse(data []byte, format string) (*Capture, error) {
	var doc any
	var decode func(any) error
	switch format {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("parse JSON: %w", err)
		}
		decode = func(out any) error { return json.Unmarshal(data, out) }
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse YAML: %w", err)
		}
		decode = func(out any) error { return yaml.Unmarshal(data, out) }
	default:
		return nil, fmt.Errorf("unsupported capture format %q", format)
	}

	if err := Validate(doc); err != nil {
		return nil, err
	}

	var capture Capture
	if err := decode(&capture); err != nil {
		return nil, fmt.Errorf("decode capture: %w", err)
	}
	return &capture, nil
}

// Validate unifies a decoded document with the capture schema.
func Validate(doc any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile capture schema: %w", err)
	}
	captureDef := schema.LookupPath(cue.ParsePath("#Capture"))
	if err := captureDef.Err(); err != nil {
		return fmt.Errorf("capture schema missing #Capture: %w", err)
	}

	val := ctx.Encode(doc)
	if err := val.Err(); err != nil {
		return fmt.Errorf("encode capture for validation: %w", err)
	}

	unified := captureDef.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid capture document:\n%s", cueerrors.Details(err, nil))
	}
	return nil
}
