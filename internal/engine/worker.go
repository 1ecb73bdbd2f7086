package engine

import "time"

// workerLoop is the single background worker. It parks on the wake channel,
// drains the pending request to completion, then flips busy off and raises
// the notify flag for the next audio block. Started once in New, joined
// once in Close.
func (e *Engine) workerLoop() {
	defer e.wg.Done()
	for {
		select {
		case <-e.quit:
			return
		case <-e.wake:
			select {
			case <-e.quit:
				return
			default:
			}
			e.drain()
			if n := e.dropped.Swap(0); n > 0 {
				e.log.Warn().Uint64("count", n).Msg("set requests dropped while a load was in flight")
			}
			e.busy.Store(false)
			e.notifyFlag.Store(true)
		}
	}
}

// wakeWorker nudges the worker without ever blocking the caller.
func (e *Engine) wakeWorker() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// waitCycle parks the worker until the audio thread finishes a block, or
// until timeout when no blocks are being processed (restore can run before
// the stream starts). Cooperative courtesy only; the audio thread never
// waits on the worker.
func (e *Engine) waitCycle(timeout time.Duration) {
	start := e.blocks.Load()
	deadline := time.Now().Add(timeout)
	for e.blocks.Load() == start {
		if time.Now().After(deadline) {
			return
		}
		time.Sleep(time.Millisecond)
	}
}
