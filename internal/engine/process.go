package engine

import "ampd/pkg/types"

// ProcessBlock runs one audio block through the chain. in and out may be
// the same slice (in-place). The call completes within the block deadline
// unconditionally: no I/O, no locks a slow operation might hold, no heap
// allocation in steady state. Blocks longer than the configured BlockSize
// are processed in BlockSize chunks.
func (e *Engine) ProcessBlock(in, out []float64) {
	n := len(in)
	if len(out) < n {
		n = len(out)
	}
	if n == 0 {
		return
	}
	chunk := e.cfg.BlockSize
	for off := 0; off < n; off += chunk {
		end := off + chunk
		if end > n {
			end = n
		}
		e.processChunk(in[off:end], out[off:end])
	}
}

func (e *Engine) processChunk(in, out []float64) {
	n := len(in)

	// 1. drain inbound control events
	e.drainEvents()

	// 2. deferred restore: arm a reload-all once the worker is free
	if !e.busy.Load() && e.restoreFlag.Load() {
		e.pending = reloadAllRequest()
		e.busy.Store(true)
		e.restoreFlag.Store(false)
		e.wakeWorker()
	}

	// 3. DSP chain, always, using whatever is active right now
	if &out[0] != &in[0] {
		copy(out, in)
	}
	bufA := e.bufA[:n]
	bufB := e.bufB[:n]
	copy(bufA, out)
	copy(bufB, out)

	// model stage: each slot's buffer runs through whichever family is
	// active for that slot (mutual exclusion guarantees at most one)
	namA, namB := e.nam.LoadedA(), e.nam.LoadedB()
	rtnA, rtnB := e.rtn.LoadedA(), e.rtn.LoadedB()
	if namA {
		e.nam.ComputeA(bufA)
	} else if rtnA {
		e.rtn.ComputeA(bufA)
	}
	if namB {
		e.nam.ComputeB(bufB)
	} else if rtnB {
		e.rtn.ComputeB(bufB)
	}

	slotA := namA || rtnA
	slotB := namB || rtnB
	switch {
	case slotA && slotB:
		crossfade(out, bufA, bufB, e.Blend(), &e.fadeModel)
	case slotA:
		copy(out, bufA)
	case slotB:
		copy(out, bufB)
	}
	// none active: out already carries the unmodified input

	// shared DC blocker between the model and IR stages
	e.dcb.ProcessBlock(out)

	// IR stage on a second pair of copies; a convolver being rebuilt by
	// the worker is skipped for this block rather than touched mid-swap
	irA := e.irA[:n]
	irB := e.irB[:n]
	copy(irA, out)
	copy(irB, out)
	busy := e.busy.Load()
	runA := !busy && e.convA.IsRunnable()
	runB := !busy && e.convB.IsRunnable()
	if runA {
		e.convA.Compute(n, irA, irA)
	}
	if runB {
		e.convB.Compute(n, irB, irB)
	}
	switch {
	case runA && runB:
		crossfade(out, irA, irB, e.Mix(), &e.fadeIR)
	case runA:
		copy(out, irA)
	case runB:
		copy(out, irB)
	}

	// 4. report worker completion
	if e.notifyFlag.Load() {
		e.notifyFlag.Store(false)
		e.emitNotifyPass()
		// The event drain above may already have armed the next request;
		// only reset pending when nothing is in flight.
		if !e.busy.Load() {
			e.pending = loadRequest{}
		}
	}

	// 5. cycle done
	e.blocks.Add(1)
	blocksTotal.Inc()
}

// drainEvents consumes every queued control event without blocking.
func (e *Engine) drainEvents() {
	for {
		select {
		case ev := <-e.events:
			switch ev.Op {
			case OpGet:
				for _, id := range types.AllResources {
					if e.reg.present(id) {
						e.notifier.Notify(e.stateOf(id))
					}
				}
			case OpSet:
				e.reg.setPath(ev.ID, ev.Path)
				if !e.busy.Load() {
					if req, err := encodeRequest(ev.ID); err == nil {
						e.pending = req
						e.busy.Store(true)
						e.wakeWorker()
					}
				} else {
					// A set arriving while a request is armed updates the
					// path only; no second request queues. Counted so the
					// drop is observable.
					e.dropped.Add(1)
					requestsDropped.Inc()
				}
			}
		default:
			return
		}
	}
}

// emitNotifyPass reports every resource after a drain: removed model paths
// first, then loaded model paths, then both IR paths unconditionally. At
// most one notification per resource per block.
func (e *Engine) emitNotifyPass() {
	modelIDs := types.AllResources[:4]
	for _, id := range modelIDs {
		if !e.reg.present(id) {
			e.notifier.Notify(e.stateOf(id))
		}
	}
	for _, id := range modelIDs {
		if e.reg.present(id) {
			e.notifier.Notify(e.stateOf(id))
		}
	}
	e.notifier.Notify(e.stateOf(types.IRA))
	e.notifier.Notify(e.stateOf(types.IRB))
}
