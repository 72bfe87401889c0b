// Package hcl provides the HCL implementation of the config.Loader
// interface. It parses `.hcl` field descriptions, evaluates their
// attributes against a small evaluation context (pi, e and a handful of
// numeric functions) and translates the decoded blocks into the
// format-agnostic config.Model.
package hcl
