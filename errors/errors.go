package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseConfig    Phase = "config"    // build-time configuration
	PhaseResolve   Phase = "resolve"   // proc-address resolution
	PhaseCreate    Phase = "create"    // instance creation
	PhaseDestroy   Phase = "destroy"   // instance destruction
	PhaseDispatch  Phase = "dispatch"  // trampoline dispatch
	PhaseEnumerate Phase = "enumerate" // extension enumeration
)

// Kind categorizes the error
type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindInvalidInput       Kind = "invalid_input"
	KindTypeMismatch       Kind = "type_mismatch"
	KindRequiredUnresolved Kind = "required_unresolved"
	KindNilProc            Kind = "nil_proc"
	KindSizeInsufficient   Kind = "size_insufficient"
	KindValidation         Kind = "validation"
	KindAlreadyLive        Kind = "already_live"
	KindNotLive            Kind = "not_live"
	KindDuplicate          Kind = "duplicate"
	KindStructuralName     Kind = "structural_name"
	KindRegistration       Kind = "registration"
)

// Error is the structured error type used throughout the library
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Proc   string
	GoType string
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Proc != "" {
		b.WriteString(" at ")
		b.WriteString(e.Proc)
	}

	if e.GoType != "" {
		b.WriteString(": Go type ")
		b.WriteString(e.GoType)
	}

	if e.Detail != "" {
		if e.GoType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Proc sets the entry-point name
func (b *Builder) Proc(name string) *Builder {
	b.err.Proc = name
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// NotFound creates an unknown entry-point error
func NotFound(phase Phase, proc string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Proc:   proc,
		Detail: "entry point not known to the surface",
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, proc, goType, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Proc:   proc,
		GoType: goType,
		Detail: detail,
	}
}

// RequiredUnresolved creates a fatal unresolved-binding error
func RequiredUnresolved(phase Phase, proc string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindRequiredUnresolved,
		Proc:   proc,
		Detail: "required binding did not resolve to a usable proc",
	}
}

// NilProc creates a nil entry-point error
func NilProc(phase Phase, proc string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilProc,
		Proc:   proc,
		Detail: "proc is nil",
	}
}

// StructuralName creates a configuration error for one of the implicitly
// intercepted names appearing where it must not
func StructuralName(proc, detail string) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindStructuralName,
		Proc:   proc,
		Detail: detail,
	}
}

// Duplicate creates a duplicate-name configuration error
func Duplicate(phase Phase, proc string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindDuplicate,
		Proc:   proc,
		Detail: "name listed more than once",
	}
}

// Registration creates a registration failure error
func Registration(phase Phase, proc string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindRegistration,
		Proc:   proc,
		Detail: "registration failed",
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
