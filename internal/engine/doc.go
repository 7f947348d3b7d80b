// Package engine executes scenario steps against a step registry.
//
// Each step runs through four phases:
//
//  1. Resolving: And/But are mapped to the scenario's current primary
//     keyword and the registry is searched in registration order.
//  2. Binding: every fixture the definition requires is borrowed from the
//     scenario's fixture registry in its declared mode. Binding is all or
//     nothing.
//  3. Running: synchronous handlers run on the calling goroutine.
//     Asynchronous handlers run on the loop active in the context, or on a
//     loop started for that one step and closed before Execute returns.
//  4. Terminal: every borrow taken in Binding is released exactly once,
//     including when the handler panics.
//
// Outcomes form a closed set (passed, skipped, failed) and failures carry a
// structured ExecutionError. Every outcome is stamped with a logical seq from
// Clock so traces order deterministically.
//
// Scenarios run strictly sequentially: step N's Terminal phase completes
// before step N+1 is resolved. A failing step stops its scenario; a skipped
// step does not.
package engine
