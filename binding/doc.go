// Package binding describes Go types for run-time member resolution.
//
// A [Registry] holds one [Type] per reflect.Type. A Type carries the shape
// of the Go type (kind flags, base type, known interfaces, element types),
// a catalog of its members by name, and tables of indexers, constructors,
// operator overloads and user-defined conversions.
//
// Go has no inheritance, static members or operator overloading, so the
// package uses these conventions:
//
//   - any is the root type. A struct whose first field is an exported
//     embedded struct B (or *B) extends B, and its pointer extends *B.
//     Everything else except interfaces extends any.
//   - *T is the nullable form of a value type T.
//   - A named integer type is an enum over its predeclared type.
//   - Statics, constructors, indexers, operators and conversions are
//     published by implementing [Declarer].
//
// Resolution ranks conversions (identity, numeric widening, reference, user
// implicit, explicit) and picks the unique cheapest candidate, reporting
// [ErrNoMatch] or [ErrAmbiguous] otherwise.
package binding
