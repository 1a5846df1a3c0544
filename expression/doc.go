// Package expression defines the expression tree consumed by the execution
// compiler.
//
// The tree is a purely structural description of an expression: constants,
// parameter references, operators, member and indexer access, calls, casts,
// type tests and constructor invocations. Member and operator references are
// by name only; binding them to concrete members happens when the tree is
// compiled against a type registry.
//
// Front ends (see github.com/signadot/dynexpr/frontend) produce trees; the
// execution package consumes them read-only, so a tree may be compiled any
// number of times and subtrees may be shared.
//
// # Related Packages
//
//   - github.com/signadot/dynexpr/binding - type descriptors and resolution
//   - github.com/signadot/dynexpr/execution - compilation and evaluation
package expression
