// Package config holds every constant the simulator core treats as host
// policy rather than code: message name strings, pipeline stage numbers, the
// image key used for Pre/Post-Image collections, the serialized value type
// tags, and the system-field patterns filtered from Create targets.
//
// Compiled-in defaults match the stock platform; a YAML file can override
// any subset without touching the core packages.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/xrmdev/plugsim/internal/xrm"
)

// MessageNames holds the wire names of the three simulated messages.
type MessageNames struct {
	Create string `yaml:"create"`
	Update string `yaml:"update"`
	Delete string `yaml:"delete"`
}

// StageValues holds the numeric pipeline stage identifiers.
type StageValues struct {
	PreOperation  int `yaml:"pre_operation"`
	PostOperation int `yaml:"post_operation"`
}

// SystemFields configures the name patterns identifying server-managed
// columns. Matching fields are excluded from a Create target - the server
// populates them itself and rejects client-supplied values on insert.
type SystemFields struct {
	Exact    []string `yaml:"exact"`
	Prefixes []string `yaml:"prefixes"`
}

// Constants is the full externally-configurable constant set.
type Constants struct {
	Messages     MessageNames `yaml:"messages"`
	Stages       StageValues  `yaml:"stages"`
	ImageKey     string       `yaml:"image_key"`
	TypeTags     xrm.TypeTags `yaml:"type_tags"`
	SystemFields SystemFields `yaml:"system_fields"`
}

// Defaults returns the stock platform constant set.
func Defaults() Constants {
	return Constants{
		Messages: MessageNames{
			Create: "Create",
			Update: "Update",
			Delete: "Delete",
		},
		Stages: StageValues{
			PreOperation:  20,
			PostOperation: 40,
		},
		ImageKey: "PluginSimImage",
		TypeTags: xrm.DefaultTypeTags(),
		SystemFields: SystemFields{
			Exact: []string{
				"createdon",
				"createdby",
				"createdonbehalfby",
				"modifiedon",
				"modifiedby",
				"modifiedonbehalfby",
				"overriddencreatedon",
				"importsequencenumber",
				"versionnumber",
				"timezoneruleversionnumber",
				"utcconversiontimezonecode",
			},
			Prefixes: []string{
				"owning",
			},
		},
	}
}

// Load reads a YAML override file on top of Defaults. Only keys present in
// the file are replaced; an empty path returns Defaults unchanged.
func Load(path string) (Constants, error) {
	consts := Defaults()
	if path == "" {
		return consts, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return consts, fmt.Errorf("read constants file: %w", err)
	}
	if err := yaml.Unmarshal(data, &consts); err != nil {
		return consts, fmt.Errorf("parse constants file %s: %w", path, err)
	}
	if err := consts.Validate(); err != nil {
		return consts, fmt.Errorf("constants file %s: %w", path, err)
	}
	return consts, nil
}

// Validate checks that overrides did not blank out a required constant.
func (c Constants) Validate() error {
	if c.Messages.Create == "" || c.Messages.Update == "" || c.Messages.Delete == "" {
		return fmt.Errorf("message names must be non-empty")
	}
	if c.Stages.PreOperation == c.Stages.PostOperation {
		return fmt.Errorf("stage values must be distinct (got %d for both)", c.Stages.PreOperation)
	}
	if c.ImageKey == "" {
		return fmt.Errorf("image key must be non-empty")
	}
	tags := []string{
		c.TypeTags.EntityReference,
		c.TypeTags.OptionSet,
		c.TypeTags.OptionSetCollection,
		c.TypeTags.Money,
		c.TypeTags.DateTime,
	}
	seen := map[string]bool{}
	for _, tag := range tags {
		if tag == "" {
			return fmt.Errorf("type tags must be non-empty")
		}
		if seen[tag] {
			return fmt.Errorf("type tag %q used for more than one variant", tag)
		}
		seen[tag] = true
	}
	return nil
}

// SystemFieldFilter answers whether a field logical name belongs to the
// server-managed set. Compiled once from SystemFields so the per-field check
// during Create target assembly is a map probe plus prefix scan.
type SystemFieldFilter struct {
	exact    map[string]bool
	prefixes []string
}

// NewSystemFieldFilter compiles the pattern set into a filter.
func NewSystemFieldFilter(sf SystemFields) *SystemFieldFilter {
	exact := make(map[string]bool, len(sf.Exact))
	for _, name := range sf.Exact {
		exact[strings.ToLower(name)] = true
	}
	prefixes := make([]string, len(sf.Prefixes))
	for i, p := range sf.Prefixes {
		prefixes[i] = strings.ToLower(p)
	}
	return &SystemFieldFilter{exact: exact, prefixes: prefixes}
}

// IsSystem reports whether the logical name matches a configured pattern.
func (f *SystemFieldFilter) IsSystem(logicalName string) bool {
	name := strings.ToLower(logicalName)
	if f.exact[name] {
		return true
	}
	for _, p := range f.prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}
