// Package step defines the values exchanged between a scenario driver, the
// step registry and step handlers: keywords, step records, data tables, the
// tagged sync/async handler type, the skip signal, and the per-call handler
// Context.
package step
