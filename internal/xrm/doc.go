// Package xrm defines the typed value model shared by every layer of the
// simulator: the sealed AttributeValue union, the attribute-kind enumeration
// reported by the host form SDK, and deterministic JSON encoding for both.
//
// AttributeValue is the server-side shape of a client field value. A lookup
// column on the form becomes an EntityReference, a choice column becomes an
// OptionSetValue, and so on. Encoders never switch on the concrete types
// directly; they go through Visit so the per-variant handling cannot drift
// between output formats.
package xrm
