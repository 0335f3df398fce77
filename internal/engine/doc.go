// Package engine decides which questions of a form are visible for a given
// answer set and whether a final answer set may be submitted.
//
// Everything here is a pure function of its inputs: no I/O, no shared state,
// no locking. The browser client and the submission gate run the same rules;
// testdata/conformance.yaml pins the behaviour both must share.
//
// Evaluation order is ascending question order with ties broken by id.
// A conditional rule is compared with loose (coercing) equality so that
// stored schemas keep their meaning:
//
//	true  equals "1"     -> true   (bool side: truthiness)
//	10    equals "1e1"   -> true   (numeric string)
//	"abc" equals 0       -> false  (non-numeric string vs number)
//	null  equals ""      -> true
//
// Malformed rules (unknown operator, dependency outside the form) fail open:
// the question stays visible. Lint reports them to operators.
package engine
