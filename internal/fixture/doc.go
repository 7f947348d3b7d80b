// Package fixture implements the per-scenario fixture registry.
//
// A fixture is a named, typed value that step handlers borrow. Each slot
// tracks its borrow state explicitly:
//
//	Unborrowed ──Acquire(Shared)──▶ SharedBorrowed(n) ──Release×n──▶ Unborrowed
//	Unborrowed ──Acquire(Exclusive)──▶ ExclusiveBorrowed ──Release──▶ Unborrowed
//
// INVARIANT: a slot holds either zero exclusive borrows and n ≥ 0 shared
// borrows, or exactly one exclusive borrow and no shared borrows.
//
// Values are stored behind a pointer owned by the slot. An exclusive borrow
// hands out that pointer, so a "world" value supplied by value can be mutated
// in place by the step that holds it, with no wrapper types on the caller's
// side. Shared borrows hand out copies.
//
// A Registry belongs to one scenario and is driven by one step at a time.
// It does no locking.
package fixture
