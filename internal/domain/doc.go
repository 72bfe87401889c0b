// Package domain declares the finite element collaborators that field cores
// call into: meshes, elements, nodes, nodesets and node-valued field stores.
//
// The evaluation engine never inspects mesh topology or basis functions
// directly. Implementations live elsewhere (see inmemorymesh).
package domain
