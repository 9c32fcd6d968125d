// Package errors provides structured error types for the api-layer library.
//
// Errors are categorized by Phase (where the error occurred) and Kind
// (error category). The Error type carries the entry-point name involved,
// Go type names, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseConfig, errors.KindTypeMismatch).
//		Proc("begin-session").
//		GoType("string").
//		Detail("handler must be a function").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NotFound(errors.PhaseResolve, "begin-session")
//	err := errors.RequiredUnresolved(errors.PhaseCreate, "get-system")
//
// All errors implement the standard error interface and support
// errors.Is/As. Nothing in this package crosses the call boundary the
// layer guards: the host-facing vocabulary is api.Result, and these
// errors exist for the Go side of configuration and wiring only.
package errors
