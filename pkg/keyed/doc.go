// Package keyed reconciles an ordered reactive source against previously
// produced output units, keyed by a caller-supplied key function.
//
// Each maintains one live entry per key. On every source change the
// reconciler disposes entries whose keys vanished, renders entries for new
// keys, and reorders surviving entries with the fewest possible
// relocations, computed via a longest-increasing-subsequence pass over the
// entries' previous positions.
//
// Two render modes exist. Each passes the bare item to the render callback
// and rebuilds the entry when the item's identity changes. EachTracked
// passes a per-entry handle instead: item updates flow through a narrow
// tracked Value read without re-rendering.
package keyed
