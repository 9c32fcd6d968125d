// Package hostrt provides an in-process reference implementation of the
// api.Runtime surface. It is the bottom of the chain in tests, examples,
// and the inspect command: entry points are plain Go functions registered
// under kebab-case names, instances are handles into a session table, and
// extension enumeration follows the same two-call idiom a real runtime
// would expose.
package hostrt

import (
	"reflect"
	"strings"
	"unicode"

	"github.com/apishim/api-layer/api"
	"github.com/apishim/api-layer/errors"
)

// Host is the interface for struct-based entry-point providers. All
// exported methods except SurfaceName are registered as entry points,
// with PascalCase method names converted to kebab-case (GetSystem ->
// get-system).
type Host interface {
	// SurfaceName labels the provider in registration errors and logs.
	SurfaceName() string
}

// Runtime is a resolvable surface backed by ordinary Go functions.
type Runtime struct {
	procs      map[string]api.Proc
	extensions []api.ExtensionProperties
	supported  map[string]struct{}

	sessions   map[api.Handle]string
	nextHandle uint64

	createProc    api.Proc
	destroyProc   api.DestroyInstanceProc
	enumerateProc api.EnumerateExtensionsProc
}

func New() *Runtime {
	r := &Runtime{
		procs:     make(map[string]api.Proc),
		supported: make(map[string]struct{}),
		sessions:  make(map[api.Handle]string),
	}
	r.createProc = r.CreateInstance
	r.destroyProc = r.destroyInstance
	r.enumerateProc = r.enumerateExtensions
	return r
}

// RegisterHost registers all exported methods of h as entry points.
func (r *Runtime) RegisterHost(h Host) error {
	rv := reflect.ValueOf(h)
	rt := rv.Type()

	for i := 0; i < rt.NumMethod(); i++ {
		method := rt.Method(i)
		if !method.IsExported() || method.Name == "SurfaceName" {
			continue
		}
		name := kebabCase(method.Name)
		if err := r.RegisterFunc(name, rv.Method(i).Interface()); err != nil {
			return errors.Registration(errors.PhaseConfig, h.SurfaceName(), err)
		}
	}
	return nil
}

// RegisterFunc registers a single entry point under name.
func (r *Runtime) RegisterFunc(name string, fn any) error {
	if name == "" {
		return errors.InvalidInput(errors.PhaseConfig, "entry-point name cannot be empty")
	}
	if fn == nil {
		return errors.NilProc(errors.PhaseConfig, name)
	}
	if t := reflect.TypeOf(fn); t.Kind() != reflect.Func {
		return errors.TypeMismatch(errors.PhaseConfig, name, t.String(), "entry point must be a function")
	}
	switch name {
	case api.NameCreateInstance, api.NameDestroyInstance, api.NameResolveProc, api.NameEnumerateExtensions:
		return errors.StructuralName(name, "built into the runtime surface")
	}
	if _, dup := r.procs[name]; dup {
		return errors.Duplicate(errors.PhaseConfig, name)
	}
	r.procs[name] = fn
	return nil
}

// AdvertiseExtension adds one descriptor to the runtime's static
// extension list and accepts it in creation requests.
func (r *Runtime) AdvertiseExtension(name string, version uint32) {
	r.extensions = append(r.extensions, api.ExtensionProperties{
		Kind:    api.KindExtensionProperties,
		Name:    name,
		Version: version,
	})
	r.supported[name] = struct{}{}
}

// Names returns the registered entry-point names, excluding the built-in
// structural ones.
func (r *Runtime) Names() []string {
	names := make([]string, 0, len(r.procs))
	for name := range r.procs {
		names = append(names, name)
	}
	return names
}

// Created reports whether handle identifies a live connection.
func (r *Runtime) Created(handle api.Handle) bool {
	_, ok := r.sessions[handle]
	return ok
}

// Resolve implements api.Runtime. Unknown names are not an error
// condition of the resolver itself: they report ErrorFunctionUnsupported
// with a nil proc.
func (r *Runtime) Resolve(_ api.Handle, name string) (api.Result, api.Proc) {
	switch name {
	case api.NameCreateInstance:
		return api.Success, r.createProc
	case api.NameDestroyInstance:
		return api.Success, r.destroyProc
	case api.NameEnumerateExtensions:
		return api.Success, r.enumerateProc
	}
	if proc, ok := r.procs[name]; ok {
		return api.Success, proc
	}
	return api.ErrorFunctionUnsupported, nil
}

// CreateInstance implements api.Runtime.
func (r *Runtime) CreateInstance(info *api.InstanceCreateInfo) (api.Result, api.Handle) {
	if info == nil || info.Kind != api.KindInstanceCreateInfo {
		return api.ErrorValidationFailure, api.NilHandle
	}
	for _, ext := range info.EnabledExtensions {
		if _, ok := r.supported[ext]; !ok {
			return api.ErrorExtensionNotPresent, api.NilHandle
		}
	}
	r.nextHandle++
	handle := api.Handle(r.nextHandle)
	r.sessions[handle] = info.ApplicationName
	return api.Success, handle
}

func (r *Runtime) destroyInstance(handle api.Handle) api.Result {
	if _, ok := r.sessions[handle]; !ok {
		return api.ErrorHandleInvalid
	}
	delete(r.sessions, handle)
	return api.Success
}

func (r *Runtime) enumerateExtensions(filter string, capacity uint32, count *uint32, props []api.ExtensionProperties) api.Result {
	if count == nil {
		return api.ErrorValidationFailure
	}

	matched := r.extensions
	if filter != "" {
		matched = nil
		for i := range r.extensions {
			if r.extensions[i].Name == filter {
				matched = r.extensions[i : i+1]
				break
			}
		}
	}

	n := uint32(len(matched))
	*count = n
	if capacity == 0 {
		return api.Success
	}
	if int(capacity) > len(props) {
		return api.ErrorValidationFailure
	}
	if capacity < n {
		return api.ErrorSizeInsufficient
	}
	for i, ext := range matched {
		if props[i].Kind != api.KindExtensionProperties {
			return api.ErrorValidationFailure
		}
		props[i].Name = ext.Name
		props[i].Version = ext.Version
	}
	return api.Success
}

// kebabCase converts PascalCase to kebab-case (GetSystem -> get-system).
func kebabCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			prevLower := i > 0 && !unicode.IsUpper(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if i > 0 && (prevLower || nextLower) {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
