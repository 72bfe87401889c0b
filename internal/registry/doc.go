// Package registry maps the type strings of field descriptions to the
// constructors that build them.
//
// Each entry declares the static shape a description must have (how many
// sources, whether a mesh or nodeset is named) so a whole description can
// be validated before any field is created. Default returns a registry
// holding every built-in field type; callers may register more.
package registry
