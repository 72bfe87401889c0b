// Package dag orders described fields so every field is created after its
// sources, and reports cycles and dangling references.
package dag
