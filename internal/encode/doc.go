// Package encode turns a built PluginContext into its three export
// artifacts: pretty-printed JSON sections for display, a Web API payload,
// and a C# unit-test skeleton for a record-mocking test framework.
//
// All three consume the same context read-only and dispatch over attribute
// values through xrm.Visit, each supplying only its per-variant rendering.
// Attribute emission order is lexicographic everywhere, so repeated export
// of the same context is byte-for-byte reproducible.
package encode
