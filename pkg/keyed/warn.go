package keyed

import (
	"log"
	"sync"

	"github.com/elbywan/balises-sub000/internal/diag"
)

// WarnHandler receives non-fatal diagnostics from the reconciler, such as
// duplicate keys. Handlers run inside the reconciliation pass; a panicking
// handler is recovered so bookkeeping anomalies can never break an update.
type WarnHandler func(w diag.Warning)

var (
	warnMu      sync.RWMutex
	warnHandler WarnHandler = func(w diag.Warning) {
		log.Printf("keyed: %s", w)
	}
)

// SetWarnHandler replaces the diagnostic sink. Passing nil restores the
// default log.Printf handler. Returns the previous handler.
func SetWarnHandler(h WarnHandler) WarnHandler {
	warnMu.Lock()
	defer warnMu.Unlock()

	old := warnHandler
	if h == nil {
		h = func(w diag.Warning) {
			log.Printf("keyed: %s", w)
		}
	}
	warnHandler = h
	return old
}

// warn delivers a diagnostic to the current sink, swallowing panics.
func warn(w diag.Warning) {
	warnMu.RLock()
	h := warnHandler
	warnMu.RUnlock()

	defer func() { _ = recover() }()
	h(w)
}
