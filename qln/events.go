package qln

import (
	"github.com/mit-dci/litnode/engine"
)

func (nd *LitNode) queueEvent(ev engine.Event) {
	nd.evMtx.Lock()
	nd.pending = append(nd.pending, ev)
	nd.evMtx.Unlock()
}

// PendingEvents returns how many events wait for ProcessPendingEvents.
func (nd *LitNode) PendingEvents() int {
	nd.evMtx.Lock()
	defer nd.evMtx.Unlock()
	return len(nd.pending)
}

// ProcessPendingEvents hands events to h in the order they were queued.  The
// first event h fails on stays at the head and processing stops.  h may call
// back into the engine.
func (nd *LitNode) ProcessPendingEvents(h engine.EventHandler) {
	nd.procMtx.Lock()
	defer nd.procMtx.Unlock()

	for {
		nd.evMtx.Lock()
		if len(nd.pending) == 0 {
			nd.evMtx.Unlock()
			return
		}
		ev := nd.pending[0]
		nd.evMtx.Unlock()

		if err := h.HandleEvent(ev); err != nil {
			nd.log.Warnf("event %s not handled, will retry: %s", ev.EventName(), err.Error())
			return
		}

		nd.evMtx.Lock()
		nd.pending = nd.pending[1:]
		nd.evMtx.Unlock()
	}
}
