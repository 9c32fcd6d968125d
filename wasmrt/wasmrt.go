// Package wasmrt exposes a WebAssembly module's exported functions as an
// api.Runtime surface, so a layer can be spliced over guest code exactly
// as it would over a native runtime. Creating an instance instantiates
// the compiled module; resolving a name wraps the export in a uniform
// stack-value proc.
package wasmrt

import (
	"context"

	"github.com/tetratelabs/wazero"
	wzapi "github.com/tetratelabs/wazero/api"

	"github.com/apishim/api-layer/api"
	"github.com/apishim/api-layer/errors"
)

// Proc is the calling convention of every wasm-backed entry point: raw
// stack values in, raw stack values out. Guest traps surface as the
// runtime failure code, never as panics.
type Proc = func(params ...uint64) ([]uint64, api.Result)

// moduleExports is the slice of wazero's module surface the adapter
// needs; narrow so tests can fake it.
type moduleExports interface {
	ExportedFunction(name string) wzapi.Function
	Close(ctx context.Context) error
}

type instantiator func(name string) (moduleExports, error)

// Runtime adapts one compiled wasm module to the resolvable surface.
type Runtime struct {
	ctx         context.Context
	wazeroRT    wazero.Runtime
	instantiate instantiator

	modules    map[api.Handle]moduleExports
	procs      map[api.Handle]map[string]api.Proc
	nextHandle uint64

	createProc  api.Proc
	destroyProc api.DestroyInstanceProc
}

// New compiles wasm and returns a surface whose instances are module
// instantiations. ctx is retained for all guest calls.
func New(ctx context.Context, wasm []byte) (*Runtime, error) {
	rt := wazero.NewRuntime(ctx)
	compiled, err := rt.CompileModule(ctx, wasm)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "compile module")
	}

	r := newRuntime(ctx)
	r.wazeroRT = rt
	r.instantiate = func(name string) (moduleExports, error) {
		mod, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(name))
		if err != nil {
			return nil, err
		}
		return mod, nil
	}
	return r, nil
}

func newRuntime(ctx context.Context) *Runtime {
	r := &Runtime{
		ctx:     ctx,
		modules: make(map[api.Handle]moduleExports),
		procs:   make(map[api.Handle]map[string]api.Proc),
	}
	r.createProc = r.CreateInstance
	r.destroyProc = r.destroyInstance
	return r
}

// Close releases the underlying wazero runtime and all instances.
func (r *Runtime) Close(ctx context.Context) error {
	if r.wazeroRT == nil {
		return nil
	}
	return r.wazeroRT.Close(ctx)
}

// CreateInstance implements api.Runtime by instantiating the module.
func (r *Runtime) CreateInstance(info *api.InstanceCreateInfo) (api.Result, api.Handle) {
	if info == nil || info.Kind != api.KindInstanceCreateInfo {
		return api.ErrorValidationFailure, api.NilHandle
	}
	mod, err := r.instantiate(info.ApplicationName)
	if err != nil {
		return api.ErrorInitializationFailed, api.NilHandle
	}
	r.nextHandle++
	handle := api.Handle(r.nextHandle)
	r.modules[handle] = mod
	r.procs[handle] = make(map[string]api.Proc)
	return api.Success, handle
}

// Resolve implements api.Runtime. Wasm modules advertise no extensions,
// so enumerate-extensions is unsupported here; a layer above supplies its
// own. Wrapped procs are cached per (instance, name) so repeated
// resolution returns identical values.
func (r *Runtime) Resolve(instance api.Handle, name string) (api.Result, api.Proc) {
	switch name {
	case api.NameCreateInstance:
		return api.Success, r.createProc
	case api.NameDestroyInstance:
		return api.Success, r.destroyProc
	}

	mod, ok := r.modules[instance]
	if !ok {
		return api.ErrorHandleInvalid, nil
	}
	if proc, ok := r.procs[instance][name]; ok {
		return api.Success, proc
	}

	fn := mod.ExportedFunction(name)
	if fn == nil {
		return api.ErrorFunctionUnsupported, nil
	}

	proc := Proc(func(params ...uint64) ([]uint64, api.Result) {
		out, err := fn.Call(r.ctx, params...)
		if err != nil {
			return nil, api.ErrorRuntimeFailure
		}
		return out, api.Success
	})
	r.procs[instance][name] = proc
	return api.Success, proc
}

func (r *Runtime) destroyInstance(instance api.Handle) api.Result {
	mod, ok := r.modules[instance]
	if !ok {
		return api.ErrorHandleInvalid
	}
	delete(r.modules, instance)
	delete(r.procs, instance)
	if err := mod.Close(r.ctx); err != nil {
		return api.ErrorRuntimeFailure
	}
	return api.Success
}
