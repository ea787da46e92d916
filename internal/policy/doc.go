// Package policy compiles ODRL-shaped usage policies into Rego and
// publishes them to the policy decision point.
//
// Each constraint becomes one equality predicate over the request's
// attributes, in document order, followed by a method guard and a path
// prefix guard. The decision defaults to false.
//
// Operands are interpolated into the Rego source verbatim. A quote or
// newline in an operand changes the program; callers that accept
// policies from untrusted sources must vet them first.
package policy
