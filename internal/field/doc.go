// Package field implements the computed field graph: fields and their cores,
// the region field manager, derivative descriptors, and the evaluation cache.
//
// Evaluation is lazy and memoized. Every value cache remembers the location
// counter of the Cache it was filled under; the Cache bumps that counter when
// its location moves or when the manager generation changes, so stale values
// are detected with a single integer comparison and nothing is invalidated
// eagerly.
//
// Structural changes (creating, removing, renaming and redefining fields)
// take the region tree's write lock. A top level Cache call holds the read
// lock for the duration of the call. Each goroutine must use its own Cache.
package field
