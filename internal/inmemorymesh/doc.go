// Package inmemorymesh provides a thread-safe, in-memory implementation of
// the domain interfaces: nodes, meshes of linear Lagrange line, square and
// cube elements, nodesets, and node-valued field stores. It is designed for
// tests and small command line models that fit comfortably in memory.
package inmemorymesh
