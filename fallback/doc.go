// Package fallback wraps a worker execution with exactly one secondary attempt.
//
// The fallback worker is a fixed, configured id. It is never re-derived from
// the scorer. Errors, nil results, Success=false and per-call timeouts all
// count as failure. When both attempts fail the assignment settles with
// Success=false and no further attempt is made.
package fallback
