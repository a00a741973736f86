// Package reactive implements a fine-grained reactive computation graph.
//
// The graph has three kinds of nodes. A Cell holds a mutable value and is
// the only node writers touch directly. A Derived lazily recomputes a value
// from other nodes it reads during evaluation. A Reaction eagerly re-runs a
// side-effecting function whenever something it read changes.
//
// Dependency edges are discovered at read time: reading a Cell or Derived
// while another node is evaluating subscribes that node to future changes.
// Edges are rebuilt from scratch on every evaluation, so conditional reads
// behave correctly.
//
// Batch groups multiple writes into a single notification pass. Within a
// settled batch every affected Reaction runs exactly once, after all writes
// have applied. A bare Set outside a batch behaves as an implicit
// single-write batch and flushes synchronously.
//
// Scopes group Derived and Reaction nodes (and nested Scopes) for bulk
// disposal. Disposed nodes keep serving their last cached value and ignore
// further notifications.
package reactive
