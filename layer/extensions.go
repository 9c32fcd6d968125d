package layer

import (
	"github.com/apishim/api-layer/api"
)

// enumerateExtensions is the extension advertiser: the built-in override
// of the enumerate-extensions entry point. It augments the real runtime's
// answer with the layer's static descriptor list, honoring the two-call
// idiom: capacity zero reports only the required count, a second call
// with a caller-supplied buffer fills it.
func (l *Layer) enumerateExtensions(inst *Instance, filter string, capacity uint32, count *uint32, props []api.ExtensionProperties) api.Result {
	if count == nil {
		return api.ErrorValidationFailure
	}
	if capacity > 0 && int(capacity) > len(props) {
		return api.ErrorValidationFailure
	}

	// A filter naming only this layer never reaches the real runtime.
	selfOnly := filter != "" && filter == l.cfg.LayerName

	var realCount uint32
	if !selfOnly {
		if next := l.nextEnumerator(inst); next != nil {
			res := next(filter, capacity, &realCount, props)
			if res == api.ErrorSizeInsufficient {
				// Report the full required count so the caller can
				// retry without a fresh count query.
				*count = realCount
				if filter == "" {
					*count += uint32(len(l.cfg.Extensions))
				}
				return res
			}
			if res.Failed() {
				return res
			}
		}
	}

	if filter != "" && !selfOnly {
		// Filtered by a real extension name: pure pass-through.
		*count = realCount
		return api.Success
	}

	total := realCount + uint32(len(l.cfg.Extensions))
	*count = total
	if capacity == 0 {
		return api.Success
	}
	if capacity < total {
		return api.ErrorSizeInsufficient
	}

	for i, ext := range l.cfg.Extensions {
		slot := &props[int(realCount)+i]
		if slot.Kind != api.KindExtensionProperties {
			return api.ErrorValidationFailure
		}
		slot.Name = ext.Name
		slot.Version = ext.Version
	}
	return api.Success
}

// nextEnumerator returns the real runtime's enumerate proc, preferring
// the captured binding and resolving it lazily otherwise. A runtime
// without one reports zero extensions, not an error.
func (l *Layer) nextEnumerator(inst *Instance) api.EnumerateExtensionsProc {
	if p, ok := inst.Proc(api.NameEnumerateExtensions).(api.EnumerateExtensionsProc); ok && p != nil {
		return p
	}
	res, proc := l.next.Resolve(inst.handle, api.NameEnumerateExtensions)
	if res.Failed() || proc == nil {
		return nil
	}
	p, ok := proc.(api.EnumerateExtensionsProc)
	if !ok {
		return nil
	}
	inst.capture(api.NameEnumerateExtensions, p, false)
	return p
}
