package layer

import (
	"go.uber.org/zap"

	"github.com/apishim/api-layer/api"
	"github.com/apishim/api-layer/errors"
)

// Layer intercepts proc-address resolution between a host and the next
// api.Runtime in the chain. It implements api.Runtime itself, so the host
// talks to it exactly as it would to the real runtime.
type Layer struct {
	cfg      Config
	next     api.Runtime
	registry *Registry

	overrides   map[string]*Override
	trampolines map[string]api.Proc

	// fixed substitution targets for the structural entry points; cached
	// once so repeated resolution returns identical procs.
	resolveSelf api.Proc
	createSelf  api.Proc
	destroySelf api.Proc
}

// New validates cfg once and builds a layer over next. All configuration
// violations surface here; after New succeeds the layer raises nothing
// across the call boundary that is not an api.Result.
func New(cfg Config, next api.Runtime) (*Layer, error) {
	if next == nil {
		return nil, errors.InvalidInput(errors.PhaseConfig, "next runtime cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l := &Layer{
		cfg:         cfg,
		next:        next,
		registry:    NewRegistry(),
		overrides:   make(map[string]*Override, len(cfg.Overrides)+1),
		trampolines: make(map[string]api.Proc, len(cfg.Overrides)+1),
	}
	for i := range cfg.Overrides {
		o := cfg.Overrides[i]
		l.overrides[o.Name] = &o
	}

	// The advertiser rides the same trampoline machinery as any override.
	l.overrides[api.NameEnumerateExtensions] = &Override{
		Name:    api.NameEnumerateExtensions,
		Handler: l.enumerateExtensions,
	}

	l.resolveSelf = api.ResolveProc(l.Resolve)
	l.createSelf = l.CreateInstance
	l.destroySelf = l.newDestroyTrampoline()

	return l, nil
}

// Registry exposes the single-slot instance holder, mainly for handlers
// and tests that need to observe lifecycle state.
func (l *Layer) Registry() *Registry { return l.registry }

// Name returns the layer's advertised name.
func (l *Layer) Name() string { return l.cfg.LayerName }

// Version returns the layer's advertised version.
func (l *Layer) Version() uint32 { return l.cfg.LayerVersion }

// Overridden reports whether name resolves to a trampoline.
func (l *Layer) Overridden(name string) bool {
	if structural(name) {
		return true
	}
	_, ok := l.overrides[name]
	return ok
}

// Resolve is the proc-address interceptor. It asks the next chain first,
// then poisons the result for names the layer owns: structural entry
// points map to the layer's own lifecycle procs, overridden names map to
// cached trampolines. Everything else passes through untouched, and
// resolving the same name twice yields the same substituted proc.
func (l *Layer) Resolve(instance api.Handle, name string) (api.Result, api.Proc) {
	res, proc := l.next.Resolve(instance, name)

	switch name {
	case api.NameDestroyInstance:
		// Captured unconditionally, whatever the next chain reported:
		// destruction must reach the real runtime even if resolution
		// happened before creation.
		if destroy, ok := proc.(api.DestroyInstanceProc); ok {
			l.registry.Current().finalDestroy = destroy
		}
		return res, l.destroySelf

	case api.NameResolveProc:
		return res, l.resolveSelf

	case api.NameCreateInstance:
		return res, l.createSelf
	}

	o, ok := l.overrides[name]
	if !ok {
		return res, proc
	}

	// Keep the real proc callable from override logic.
	if res.Succeeded() && proc != nil {
		l.registry.Current().capture(name, proc, false)
	}
	if o.Extension != "" {
		// The layer supplies this extension function whether or not the
		// runtime does.
		res = api.Success
	}
	return res, l.trampoline(name, o)
}

// CreateInstance splices the layer into the host's creation call: the
// request is filtered, forwarded down the chain, and only if the whole
// binding table populates is the instance published.
func (l *Layer) CreateInstance(info *api.InstanceCreateInfo) (api.Result, api.Handle) {
	if info == nil || info.Kind != api.KindInstanceCreateInfo {
		return api.ErrorValidationFailure, api.NilHandle
	}
	if l.registry.Live() {
		// Exactly one live instance; an explicit precondition, not a race.
		return api.ErrorLimitReached, api.NilHandle
	}

	forward := *info
	forward.EnabledExtensions = l.filterExtensions(info.EnabledExtensions)

	res, handle := l.next.CreateInstance(&forward)
	if res.Failed() {
		Logger().Error("chain creation failed", zap.Stringer("result", res))
		return res, api.NilHandle
	}

	inst := l.registry.Current()
	inst.handle = handle

	// Required bindings first; a miss aborts before anything publishes.
	// Binding order beyond that is unobservable.
	for _, req := range l.cfg.Requested {
		if !req.Required {
			continue
		}
		if !l.bind(inst, handle, req) {
			Logger().Error("required binding unresolved", zap.String("proc", req.Name))
			l.abandon(handle)
			return api.ErrorInitializationFailed, api.NilHandle
		}
	}
	for _, req := range l.cfg.Requested {
		if req.Required {
			continue
		}
		if !l.bind(inst, handle, req) {
			Logger().Debug("optional binding unresolved", zap.String("proc", req.Name))
		}
	}

	inst.applicationName = info.ApplicationName
	for _, ext := range forward.EnabledExtensions {
		inst.granted[ext] = struct{}{}
	}
	inst.live = true

	Logger().Info("instance created",
		zap.String("application", inst.applicationName),
		zap.Uint64("handle", uint64(handle)),
		zap.Strings("extensions", forward.EnabledExtensions))

	return api.Success, handle
}

// bind resolves one requested name directly against the next chain (not
// through the interceptor) and stores it. Reports whether a usable proc
// was captured.
func (l *Layer) bind(inst *Instance, handle api.Handle, req Request) bool {
	res, proc := l.next.Resolve(handle, req.Name)
	if res.Failed() || proc == nil {
		return false
	}
	inst.capture(req.Name, proc, req.Required)
	return true
}

// abandon tears down a half-created chain instance after a fatal binding
// failure. The slot is cleared first so nothing is ever published.
func (l *Layer) abandon(handle api.Handle) {
	l.registry.Reset()
	res, proc := l.next.Resolve(handle, api.NameDestroyInstance)
	if res.Failed() {
		return
	}
	if destroy, ok := proc.(api.DestroyInstanceProc); ok && destroy != nil {
		destroy(handle)
	}
}

// destroyInstance is the destruction protocol: capture the final-destroy
// proc locally, clear the registry, and only then call down the chain.
// The captured proc may trigger recursive teardown that expects the slot
// to already be empty.
func (l *Layer) destroyInstance(handle api.Handle) api.Result {
	inst := l.registry.Current()
	final := inst.finalDestroy
	l.registry.Reset()

	if final == nil {
		return api.ErrorHandleInvalid
	}
	return final(handle)
}

func (l *Layer) newDestroyTrampoline() api.DestroyInstanceProc {
	return func(handle api.Handle) (res api.Result) {
		l.traceBegin(api.NameDestroyInstance)
		recovered := false
		defer func() {
			if r := recover(); r != nil {
				recovered = true
				res = api.GenericFailure
				Logger().Error("destruction failed",
					zap.String("proc", api.NameDestroyInstance),
					zap.Any("error", r))
			}
			l.traceEnd(Event{
				Proc:      api.NameDestroyInstance,
				Result:    res,
				HasResult: true,
				Recovered: recovered,
			})
		}()
		res = l.destroyInstance(handle)
		return res
	}
}

// filterExtensions drops blocked extensions from the requested list and
// appends the implicit ones, deduplicated, preserving request order.
func (l *Layer) filterExtensions(requested []string) []string {
	blocked := make(map[string]struct{}, len(l.cfg.BlockedExtensions))
	for _, name := range l.cfg.BlockedExtensions {
		blocked[name] = struct{}{}
	}

	out := make([]string, 0, len(requested)+len(l.cfg.ImplicitExtensions))
	present := make(map[string]struct{}, cap(out))
	for _, name := range requested {
		if _, drop := blocked[name]; drop {
			Logger().Info("blocking extension", zap.String("extension", name))
			continue
		}
		if _, dup := present[name]; dup {
			continue
		}
		present[name] = struct{}{}
		out = append(out, name)
	}
	for _, name := range l.cfg.ImplicitExtensions {
		if _, dup := present[name]; dup {
			continue
		}
		if _, drop := blocked[name]; drop {
			continue
		}
		present[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
