// Package layer implements the interception mechanism: proc-address
// hijacking, per-instance binding state, trampolined call boundaries, and
// the splice of the layer's own lifecycle into the host's.
//
// A Layer sits between a host and an api.Runtime. The host resolves entry
// points through the Layer; names in the configured override set come back
// as trampoline procs that dispatch into layer-supplied handlers, every
// other name passes through untouched. Exactly one Instance is live at a
// time, held in the Layer's Registry, and the Layer performs no internal
// synchronization: it assumes the host serializes creation, destruction,
// and entry-point calls exactly as it would for the unwrapped runtime.
package layer
