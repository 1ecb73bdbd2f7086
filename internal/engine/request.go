package engine

import "ampd/pkg/types"

// loadRequest is the single outstanding description of load work: one bool
// per resource plus a reload-all flag used only by restore. Exactly one
// request is in flight at a time; the audio thread writes it before
// flipping busy true and the worker reads it after waking.
type loadRequest struct {
	targets   [6]bool // indexed by position in types.AllResources
	reloadAll bool
}

// step is one decoded unit of work for the worker.
type step struct {
	ID types.ResourceID
	// ScanPresent marks reload-all steps: act only if the path is present,
	// and rebuild convolvers even when the path went back to the sentinel
	// (teardown side of the scan).
	ScanPresent bool
}

func (r loadRequest) empty() bool {
	if r.reloadAll {
		return false
	}
	for _, t := range r.targets {
		if t {
			return false
		}
	}
	return true
}

// encodeRequest maps a target resource to its single-entry request.
func encodeRequest(id types.ResourceID) (loadRequest, error) {
	var req loadRequest
	for i, rid := range types.AllResources {
		if rid == id {
			req.targets[i] = true
			return req, nil
		}
	}
	return req, ErrUnknownResource(id)
}

// reloadAllRequest is the restore-path request: scan every entry whose path
// is present and (re)load it, tearing down what went absent.
func reloadAllRequest() loadRequest {
	return loadRequest{reloadAll: true}
}

// steps decodes the request into its ordered action list. The order is
// fixed (primary A, primary B, alt A, alt B, IR A, IR B) so the sibling
// family teardown for a slot always precedes any later load touching it.
func (r loadRequest) steps() []step {
	if r.reloadAll {
		out := make([]step, len(types.AllResources))
		for i, id := range types.AllResources {
			out[i] = step{ID: id, ScanPresent: true}
		}
		return out
	}
	var out []step
	for i, id := range types.AllResources {
		if r.targets[i] {
			out = append(out, step{ID: id})
		}
	}
	return out
}
