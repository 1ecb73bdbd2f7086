package engine

import (
	"time"

	"ampd/internal/convolver"
	"ampd/internal/neural"
	"ampd/pkg/types"
)

// convolverReadyTimeout bounds the worker's poll for a configuring
// convolver. Generous: partitioning a long IR is seconds, not minutes.
const convolverReadyTimeout = 30 * time.Second

// cycleCourtesy is how long the worker waits for a block boundary before
// swapping a rebuilt convolver in.
const cycleCourtesy = 50 * time.Millisecond

// drain executes the pending request's ordered action list. Worker thread
// only; all blocking I/O of the engine lives below this function.
func (e *Engine) drain() {
	req := e.pending
	for _, st := range req.steps() {
		kind, slot, ok := st.ID.Split()
		if !ok {
			continue
		}
		switch kind {
		case types.PrimaryModel, types.AltModel:
			e.activateModel(kind, slot, st.ScanPresent)
		case types.ImpulseResponse:
			e.reconfigureIR(slot, st.ScanPresent)
		}
	}
}

// activateModel loads one model resource and always tears down the sibling
// family for the same slot, so primary/alt mutual exclusion holds after
// every completed drain regardless of which branch ran.
func (e *Engine) activateModel(kind types.Kind, slot types.Slot, scan bool) {
	id := types.MakeResourceID(kind, slot)
	path := e.reg.path(id)

	if path == types.Sentinel {
		if !scan {
			// explicit clear of this slot's family
			e.unloadFamily(kind, slot)
			loadsTotal.WithLabelValues(string(id), "unloaded").Inc()
		}
		return
	}

	start := time.Now()
	if err := e.loadFamily(kind, slot, path); err != nil {
		e.reg.setPath(id, types.Sentinel)
		loadsTotal.WithLabelValues(string(id), "error").Inc()
		e.log.Warn().Err(err).Str("resource", string(id)).Str("path", path).Msg("model load failed")
	} else {
		loadsTotal.WithLabelValues(string(id), "ok").Inc()
		loadDuration.WithLabelValues(string(id)).Observe(time.Since(start).Seconds())
		e.log.Info().Str("resource", string(id)).Str("path", path).Msg("model loaded")
	}

	sibling := types.AltModel
	if kind == types.AltModel {
		sibling = types.PrimaryModel
	}
	e.unloadFamily(sibling, slot)
	e.reg.setPath(types.MakeResourceID(sibling, slot), types.Sentinel)
}

func (e *Engine) familyEngine(kind types.Kind) *neural.Engine {
	if kind == types.AltModel {
		return e.rtn
	}
	return e.nam
}

func (e *Engine) loadFamily(kind types.Kind, slot types.Slot, path string) error {
	eng := e.familyEngine(kind)
	if slot == types.SlotB {
		return eng.LoadB(path)
	}
	return eng.LoadA(path)
}

func (e *Engine) unloadFamily(kind types.Kind, slot types.Slot) {
	eng := e.familyEngine(kind)
	if slot == types.SlotB {
		eng.UnloadB()
	} else {
		eng.UnloadA()
	}
}

// reconfigureIR tears the slot's convolver down and rebuilds it from the
// current path. A sentinel path tears down without rebuilding. The
// convolver is never mutated in place.
func (e *Engine) reconfigureIR(slot types.Slot, scan bool) {
	id := types.MakeResourceID(types.ImpulseResponse, slot)
	conv := e.convA
	if slot == types.SlotB {
		conv = e.convB
	}
	path := e.reg.path(id)

	if conv.IsRunnable() {
		conv.Stop()
	}
	conv.Cleanup()

	if path == types.Sentinel {
		loadsTotal.WithLabelValues(string(id), "unloaded").Inc()
		return
	}

	start := time.Now()
	conv.SetSampleRate(e.cfg.SampleRate)
	conv.SetBufferSize(e.cfg.BlockSize)
	conv.Configure(path, 1.0)
	if err := conv.AwaitReady(convolverReadyTimeout); err != nil {
		e.failIR(conv, id, path, err)
		return
	}
	// courtesy: land the swap on a block boundary when audio is running
	e.waitCycle(cycleCourtesy)
	if err := conv.Start(e.cfg.RTPriority, e.cfg.RTPolicy); err != nil {
		e.failIR(conv, id, path, err)
		return
	}
	loadsTotal.WithLabelValues(string(id), "ok").Inc()
	loadDuration.WithLabelValues(string(id)).Observe(time.Since(start).Seconds())
	e.log.Info().Str("resource", string(id)).Str("path", path).Int("kernel_samples", conv.KernelLen()).Msg("impulse response loaded")
}

func (e *Engine) failIR(conv *convolver.Convolver, id types.ResourceID, path string, err error) {
	conv.Cleanup()
	e.reg.setPath(id, types.Sentinel)
	loadsTotal.WithLabelValues(string(id), "error").Inc()
	e.log.Error().Err(err).Str("resource", string(id)).Str("path", path).Msg("impulse convolver update fail")
}
