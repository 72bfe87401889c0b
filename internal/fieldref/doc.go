/*
Package fieldref parses the references a field description uses to name its
sources.

A reference is a field name optionally followed by one component selector,
either by name or by 1-based number:

	coordinates
	coordinates.y
	coordinates[2]

A reference with a selector stands for a single-component field extracting
that component.
*/
package fieldref
