// Package store provides SQLite-backed run history.
//
// A run is one execution of a scenario suite. The store keeps three tables:
//   - runs: one row per run with scenario counts and overall status
//   - scenarios: one row per scenario, in execution order
//   - step_outcomes: one row per executed step, with its status, skip
//     reason or error
//
// Runs are written once, in a single transaction, after every scenario has
// finished. Queries order deterministically: runs newest first, scenarios by
// execution order, steps by index. Prune deletes old runs; scenarios and
// steps go with them through ON DELETE CASCADE.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
