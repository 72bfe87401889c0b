// Package fieldops implements the field cores and the Module factory that
// creates fields of each type in a region's field manager.
//
// Derivatives are propagated with explicit chain and product rules over the
// sources' derivative caches. Cores that cannot differentiate a request
// report field.ErrUnsupportedDerivative; nothing is approximated by finite
// differences.
//
// Component indices in this package's API are 0-based.
package fieldops
