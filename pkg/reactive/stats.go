package reactive

import "sync/atomic"

// engineStats holds process-wide engine counters.
// All counters are monotonic; readers snapshot them via Stats().
var engineStats struct {
	cellsCreated      atomic.Uint64
	derivedCreated    atomic.Uint64
	reactionsCreated  atomic.Uint64
	cellWrites        atomic.Uint64
	derivedRecomputes atomic.Uint64
	reactionRuns      atomic.Uint64
	batchFlushes      atomic.Uint64
}

// EngineStats is a point-in-time snapshot of the engine counters.
type EngineStats struct {
	CellsCreated      uint64 `json:"cells_created"`
	DerivedCreated    uint64 `json:"derived_created"`
	ReactionsCreated  uint64 `json:"reactions_created"`
	CellWrites        uint64 `json:"cell_writes"`
	DerivedRecomputes uint64 `json:"derived_recomputes"`
	ReactionRuns      uint64 `json:"reaction_runs"`
	BatchFlushes      uint64 `json:"batch_flushes"`
}

// Stats returns a snapshot of the engine counters.
func Stats() EngineStats {
	return EngineStats{
		CellsCreated:      engineStats.cellsCreated.Load(),
		DerivedCreated:    engineStats.derivedCreated.Load(),
		ReactionsCreated:  engineStats.reactionsCreated.Load(),
		CellWrites:        engineStats.cellWrites.Load(),
		DerivedRecomputes: engineStats.derivedRecomputes.Load(),
		ReactionRuns:      engineStats.reactionRuns.Load(),
		BatchFlushes:      engineStats.batchFlushes.Load(),
	}
}
