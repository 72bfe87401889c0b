// Package config defines the format-agnostic model of a field description:
// meshes, nodes, finite element field stores and computed fields, along with
// the Loader interface that concrete formats implement.
//
// The `config.Model` is the single input of the `dag` and `builder`
// packages. The HCL implementation lives in `internal/hcl`.
package config
