package layer

import (
	"reflect"

	"github.com/apishim/api-layer/api"
	"github.com/apishim/api-layer/errors"
)

// Override names one entry point whose calls are redirected into the
// handler. Handler must be a non-variadic function whose first parameter
// is *Instance; the trampoline substituted for Name carries the handler's
// signature minus that parameter, so the host-visible shape matches the
// real entry point. Extension, when non-empty, names the extension that
// owns the entry point: resolution of an extension-owned override reports
// success even when the real runtime does not supply the function.
type Override struct {
	Name      string
	Handler   any
	Extension string
}

// Request names one entry point whose real proc the layer needs to call
// through. Required requests resolve at creation or creation fails;
// optional ones resolve best-effort.
type Request struct {
	Name     string
	Required bool
}

// Config is the static, build-time configuration of a layer. It is
// validated once, at construction; violations are configuration errors,
// never runtime conditions.
type Config struct {
	// LayerName identifies the layer in extension enumeration filters.
	LayerName string

	// LayerVersion is advertised alongside LayerName.
	LayerVersion uint32

	Overrides []Override
	Requested []Request

	// Extensions is the static descriptor list the layer itself supplies,
	// appended to the real runtime's enumeration results. Never mutated.
	Extensions []api.ExtensionProperties

	// BlockedExtensions are removed from creation requests before they
	// are forwarded down the chain; ImplicitExtensions are appended.
	BlockedExtensions  []string
	ImplicitExtensions []string

	// OnTrace, when set, receives one Event per completed trampoline
	// call in addition to the package logger's trace records.
	OnTrace func(Event)
}

var instanceParam = reflect.TypeOf((*Instance)(nil))

// structural names are implicitly intercepted and exposed as dedicated
// customization points, never as generic override entries.
func structural(name string) bool {
	switch name {
	case api.NameCreateInstance, api.NameDestroyInstance, api.NameResolveProc:
		return true
	}
	return false
}

// Validate enforces the structural-exception rules and handler shapes.
func (c *Config) Validate() error {
	if c.LayerName == "" {
		return errors.InvalidInput(errors.PhaseConfig, "layer name cannot be empty")
	}

	seen := make(map[string]struct{}, len(c.Overrides))
	for _, o := range c.Overrides {
		if o.Name == "" {
			return errors.InvalidInput(errors.PhaseConfig, "override name cannot be empty")
		}
		if structural(o.Name) {
			return errors.StructuralName(o.Name, "implicitly intercepted, not generically overridable")
		}
		if o.Name == api.NameEnumerateExtensions {
			return errors.StructuralName(o.Name, "intercepted by the built-in extension advertiser")
		}
		if _, dup := seen[o.Name]; dup {
			return errors.Duplicate(errors.PhaseConfig, o.Name)
		}
		seen[o.Name] = struct{}{}

		if err := validateHandler(o.Name, o.Handler); err != nil {
			return err
		}
	}

	seen = make(map[string]struct{}, len(c.Requested))
	for _, req := range c.Requested {
		if req.Name == "" {
			return errors.InvalidInput(errors.PhaseConfig, "requested name cannot be empty")
		}
		if req.Name == api.NameResolveProc {
			return errors.StructuralName(req.Name, "resolution itself cannot be a requested binding")
		}
		if _, dup := seen[req.Name]; dup {
			return errors.Duplicate(errors.PhaseConfig, req.Name)
		}
		seen[req.Name] = struct{}{}
	}

	return nil
}

func validateHandler(name string, handler any) error {
	if handler == nil {
		return errors.NilProc(errors.PhaseConfig, name)
	}
	ht := reflect.TypeOf(handler)
	if ht.Kind() != reflect.Func {
		return errors.TypeMismatch(errors.PhaseConfig, name, ht.String(), "handler must be a function")
	}
	if ht.IsVariadic() {
		return errors.TypeMismatch(errors.PhaseConfig, name, ht.String(), "variadic handlers are not supported")
	}
	if ht.NumIn() == 0 || ht.In(0) != instanceParam {
		return errors.TypeMismatch(errors.PhaseConfig, name, ht.String(), "handler's first parameter must be *layer.Instance")
	}
	return nil
}
