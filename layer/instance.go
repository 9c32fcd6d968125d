package layer

import (
	"github.com/apishim/api-layer/api"
)

// Binding is one entry of the function binding table: an entry-point name
// mapped to the next chain's resolved proc. Required bindings resolve or
// abort creation; optional ones may stay nil, and override logic must
// check before calling through them.
type Binding struct {
	Name     string
	Proc     api.Proc
	Required bool
}

// Instance is the single live connection to the wrapped runtime. It is
// constructed blank by the Registry, populated by the creation protocol,
// and immutable (except for binding capture) once live.
type Instance struct {
	handle          api.Handle
	applicationName string
	granted         map[string]struct{}
	bindings        map[string]*Binding

	// finalDestroy is the real runtime's destruction entry point, captured
	// when the host resolves destroy-instance through the layer.
	finalDestroy api.DestroyInstanceProc

	live bool
}

func newInstance() *Instance {
	return &Instance{
		granted:  make(map[string]struct{}),
		bindings: make(map[string]*Binding),
	}
}

// Handle returns the underlying runtime connection's identifier.
func (in *Instance) Handle() api.Handle { return in.handle }

// ApplicationName returns the name captured from the creation request.
func (in *Instance) ApplicationName() string { return in.applicationName }

// Granted reports whether the named extension was granted at creation.
func (in *Instance) Granted(extension string) bool {
	_, ok := in.granted[extension]
	return ok
}

// Proc returns the bound next-chain proc for name, or nil when the name
// was never captured or resolved to nothing. Callers of optional bindings
// must treat nil as "not available", not as an error.
func (in *Instance) Proc(name string) api.Proc {
	b, ok := in.bindings[name]
	if !ok {
		return nil
	}
	return b.Proc
}

// Binding returns the full binding record for name, or nil.
func (in *Instance) Binding(name string) *Binding {
	return in.bindings[name]
}

func (in *Instance) capture(name string, proc api.Proc, required bool) {
	if b, ok := in.bindings[name]; ok {
		b.Proc = proc
		b.Required = b.Required || required
		return
	}
	in.bindings[name] = &Binding{Name: name, Proc: proc, Required: required}
}
