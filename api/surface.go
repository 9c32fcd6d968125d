package api

// Handle is an opaque identifier of one connection to the runtime.
type Handle uint64

// NilHandle is the zero handle; no live connection ever uses it.
const NilHandle Handle = 0

// Proc is a resolved entry point: a typed Go function value. The dynamic
// signature is the calling convention, and callers must assert the exact
// type they resolved.
type Proc = any

// Runtime is the resolvable surface. The interception layer consumes one
// (the next link toward the real runtime) and exposes one (what the host
// sees in place of the real table).
type Runtime interface {
	// Resolve maps an entry-point name to a Proc. It must be callable
	// repeatedly and safe for names unknown to the surface, returning
	// ErrorFunctionUnsupported and a nil Proc rather than failing hard.
	Resolve(instance Handle, name string) (Result, Proc)

	// CreateInstance opens a connection to the surface. The create info
	// is read-only input; implementations must not retain or mutate it.
	CreateInstance(info *InstanceCreateInfo) (Result, Handle)
}

// Structural entry-point names. These three splice the layer's own
// lifecycle into the host's and are never generically overridable;
// enumerate-extensions is intercepted by the layer's built-in advertiser.
const (
	NameCreateInstance      = "create-instance"
	NameDestroyInstance     = "destroy-instance"
	NameResolveProc         = "resolve-proc"
	NameEnumerateExtensions = "enumerate-extensions"
)

// StructureKind tags variable records so a receiver can validate a slot
// before writing through it.
type StructureKind uint32

const (
	KindUnknown             StructureKind = 0
	KindInstanceCreateInfo  StructureKind = 1
	KindExtensionProperties StructureKind = 2
)

// InstanceCreateInfo is the creation request record. The layer reads it
// once and forwards a filtered copy down the chain.
type InstanceCreateInfo struct {
	Kind               StructureKind
	ApplicationName    string
	ApplicationVersion uint32
	EngineName         string
	EnabledExtensions  []string
}

// ExtensionProperties describes one extension as (name, version).
type ExtensionProperties struct {
	Kind    StructureKind
	Name    string
	Version uint32
}

// DestroyInstanceProc is the signature of the destruction entry point.
type DestroyInstanceProc = func(instance Handle) Result

// ResolveProc is the signature of the proc-address resolution entry point.
type ResolveProc = func(instance Handle, name string) (Result, Proc)

// EnumerateExtensionsProc is the signature of the extension enumeration
// entry point. It follows the two-call idiom: capacity zero queries the
// required count, a second call with a buffer of at least that capacity
// fills it. filter is empty, a real extension name, or a layer name.
type EnumerateExtensionsProc = func(filter string, capacity uint32, count *uint32, props []ExtensionProperties) Result
