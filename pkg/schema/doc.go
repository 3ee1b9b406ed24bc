// Package schema validates node parameter values against the kinds
// declared in a node type's ParameterSpecs. Kinds are hints, so
// validation is deliberately permissive: unknown kinds accept any
// value, and numbers arriving as JSON float64 are accepted for int
// kinds when they are whole.
package schema
