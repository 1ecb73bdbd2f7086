package types

// ResourceState is the externally visible state of one resource.
type ResourceState struct {
	// Stable resource identifier.
	// example: model_a
	ID ResourceID `json:"id"`
	// Absolute file path, or the sentinel "None" when absent.
	// example: /home/amp/models/twin.nam
	Path string `json:"path"`
	// True only while the resource is loaded and contributing to output.
	// example: true
	Active bool `json:"active"`
}

// SetResourceRequest is the payload of PUT /resources/{id}.
type SetResourceRequest struct {
	// File path to load. The sentinel "None" (or DELETE) clears the slot.
	Path string `json:"path"`
}

// StatusResponse summarizes engine state for GET /status.
type StatusResponse struct {
	SampleRate float64         `json:"sample_rate"`
	BlockSize  int             `json:"block_size"`
	Busy       bool            `json:"busy"`
	Blocks     uint64          `json:"blocks_processed"`
	Resources  []ResourceState `json:"resources"`
}

// FileEntry is one loadable file found under a configured directory.
type FileEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	// Kind of resource this file can back: model or ir.
	Kind string `json:"kind"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}
