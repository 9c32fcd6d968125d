// Package api models the surface of the wrapped runtime: the named,
// versioned table of entry points a host resolves and calls.
//
// The package is pure vocabulary — result codes, handles, record kinds,
// and the Runtime interface both sides of the interception layer speak.
// The layer package consumes a Runtime downward (the "next" link in the
// chain) and produces the same interface upward, so a host cannot tell a
// spliced-in layer apart from the runtime itself.
//
// Entry points are plain Go function values carried as Proc. A Proc's
// dynamic signature is its calling convention: the layer never changes
// the observable signature of anything it forwards or overrides.
package api
