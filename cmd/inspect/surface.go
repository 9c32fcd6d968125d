package main

import (
	"sync/atomic"

	"github.com/apishim/api-layer/api"
	"github.com/apishim/api-layer/hostrt"
	"github.com/apishim/api-layer/layer"
)

// demoSurface is the runtime-side entry-point provider the inspector
// stands up when no real runtime is wired in. It keeps just enough state
// to make call sequences observable.
type demoSurface struct {
	sessions atomic.Int64
	systemID uint64
}

func (s *demoSurface) SurfaceName() string { return "demo" }

func (s *demoSurface) GetSystem(h api.Handle) (api.Result, uint64) {
	if h == api.NilHandle {
		return api.ErrorHandleInvalid, 0
	}
	return api.Success, s.systemID
}

func (s *demoSurface) BeginSession(h api.Handle, name string) api.Result {
	if name == "" {
		return api.ErrorValidationFailure
	}
	s.sessions.Add(1)
	return api.Success
}

func (s *demoSurface) EndSession(h api.Handle) api.Result {
	if s.sessions.Add(-1) < 0 {
		s.sessions.Store(0)
		return api.ErrorValidationFailure
	}
	return api.Success
}

func (s *demoSurface) PollEvents(h api.Handle) {
	// Intentionally does nothing: a void entry point exercises the
	// trampoline's absorb-without-result path.
}

// newDemoRuntime builds the bottom of the chain.
func newDemoRuntime() (*hostrt.Runtime, error) {
	rt := hostrt.New()
	rt.AdvertiseExtension("ext-session-state", 2)
	if err := rt.RegisterHost(&demoSurface{systemID: 42}); err != nil {
		return nil, err
	}
	return rt, nil
}

// demoHandlers is the handler table bound to the default manifest's
// override names. begin-session wraps the real proc; blink-marker is
// owned entirely by the layer's ext-blink extension.
func demoHandlers() map[string]any {
	return map[string]any{
		"begin-session": func(inst *layer.Instance, h api.Handle, name string) api.Result {
			real, ok := inst.Proc("begin-session").(func(api.Handle, string) api.Result)
			if !ok {
				return api.ErrorFunctionUnsupported
			}
			return real(h, name)
		},
		"blink-marker": func(inst *layer.Instance, h api.Handle) api.Result {
			if h != inst.Handle() {
				return api.ErrorHandleInvalid
			}
			return api.Success
		},
	}
}

// defaultManifest configures the inspector when -manifest is not given.
const defaultManifest = `
[layer]
name = "inspect-layer"
version = 1

[[override]]
name = "begin-session"

[[override]]
name = "blink-marker"
extension = "ext-blink"

[[request]]
name = "begin-session"
required = true

[[request]]
name = "end-session"

[[extension]]
name = "ext-blink"
version = 1
`
