// Package engine coordinates the real-time signal path with the single
// background worker that loads amp models and impulse responses. It is
// structured into small files by concern:
//
//   - engine.go: core Engine type, Config defaults, construction, lifecycle.
//   - registry.go: the six resource path entries and their snapshots.
//   - request.go: tagged load requests, encoder and ordered decoder.
//   - worker.go: worker goroutine, wake/join handshake.
//   - loader.go: request draining, model activation with sibling teardown,
//     convolver rebuild.
//   - process.go: the per-block audio path. Never blocks, never does I/O.
//   - crossfade.go: one-pole smoothed control values and the block mixer.
//   - persist.go: save/restore of the six paths over a key/value Store.
//   - events.go: inbound control events and outbound notifications.
//   - errors.go: typed errors and predicate helpers.
//   - metrics.go: prometheus collectors.
//
// Threading model: the audio thread arms at most one pending request and
// flips the busy flag true; the worker drains it and flips busy false.
// All cross-thread signals (busy, notify, restore, per-resource active
// flags) are atomics with release/acquire ordering. The path table is six
// atomically swapped string pointers, so no lock of any kind is shared
// between the audio thread and the worker; the only thing the worker ever
// waits on is its own wake channel.
package engine
