/*
Package builder turns a config.Model into a populated region.

Construction runs in phases:

 1. Mesh data: nodes, meshes and their elements, nodesets, and the node
    parameters of every finite element field store.

 2. Validation: every computed field is checked against the type registry
    and the description's dependency graph is built with the `dag`
    package. All problems found in this phase are reported together.

 3. Field creation: finite element fields first, then computed fields in
    dependency order so every source exists before its users. References
    such as `coordinates.x` create (or reuse) a component field.

The whole build runs inside one change bracket of the region's field
manager, so observers see a single generation change.
*/
package builder
