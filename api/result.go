package api

import "fmt"

// Result is the runtime's native result-code vocabulary. Nothing internal
// to the layer crosses the call boundary as anything other than a Result;
// zero and positive values are non-errors, negative values are errors.
type Result int32

const (
	Success Result = 0

	ErrorValidationFailure    Result = -1
	ErrorRuntimeFailure       Result = -2
	ErrorInitializationFailed Result = -6
	ErrorFunctionUnsupported  Result = -7
	ErrorExtensionNotPresent  Result = -9
	ErrorLimitReached         Result = -10
	ErrorSizeInsufficient     Result = -11
	ErrorHandleInvalid        Result = -12
)

// GenericFailure is what an absorbed internal failure degrades to at the
// trampoline boundary.
const GenericFailure = ErrorRuntimeFailure

// Succeeded reports whether r is a non-error code.
func (r Result) Succeeded() bool { return r >= 0 }

// Failed reports whether r is an error code.
func (r Result) Failed() bool { return r < 0 }

func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case ErrorValidationFailure:
		return "error_validation_failure"
	case ErrorRuntimeFailure:
		return "error_runtime_failure"
	case ErrorInitializationFailed:
		return "error_initialization_failed"
	case ErrorFunctionUnsupported:
		return "error_function_unsupported"
	case ErrorExtensionNotPresent:
		return "error_extension_not_present"
	case ErrorLimitReached:
		return "error_limit_reached"
	case ErrorSizeInsufficient:
		return "error_size_insufficient"
	case ErrorHandleInvalid:
		return "error_handle_invalid"
	default:
		return fmt.Sprintf("result(%d)", int32(r))
	}
}
