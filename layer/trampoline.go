package layer

import (
	"reflect"

	"go.uber.org/zap"

	"github.com/apishim/api-layer/api"
)

var resultType = reflect.TypeOf(api.Result(0))

// trampoline returns the uniform wrapper substituted for an overridden
// entry point, building and caching it on first resolution. The wrapper
// carries the handler's signature minus the leading *Instance parameter,
// so the host observes the real entry point's shape. Its contract: trace,
// dispatch to the current instance's handler, catch anything, translate
// to the generic failure code, trace. Nothing raised inside override
// logic ever propagates past this boundary.
func (l *Layer) trampoline(name string, o *Override) api.Proc {
	if p, ok := l.trampolines[name]; ok {
		return p
	}

	h := reflect.ValueOf(o.Handler)
	ht := h.Type()

	in := make([]reflect.Type, ht.NumIn()-1)
	for i := 1; i < ht.NumIn(); i++ {
		in[i-1] = ht.In(i)
	}
	out := make([]reflect.Type, ht.NumOut())
	for i := 0; i < ht.NumOut(); i++ {
		out[i] = ht.Out(i)
	}
	sig := reflect.FuncOf(in, out, false)

	wrapper := reflect.MakeFunc(sig, func(args []reflect.Value) (results []reflect.Value) {
		l.traceBegin(name)
		ev := Event{Proc: name, HasResult: hasResult(out)}
		defer func() {
			if r := recover(); r != nil {
				ev.Recovered = true
				Logger().Error("override failed",
					zap.String("proc", name),
					zap.Any("error", r))
				results = failureValues(out)
			}
			if ev.HasResult {
				ev.Result = resultOf(results)
			}
			l.traceEnd(ev)
		}()

		call := make([]reflect.Value, 0, len(args)+1)
		call = append(call, reflect.ValueOf(l.registry.Current()))
		call = append(call, args...)
		results = h.Call(call)
		return results
	})

	p := wrapper.Interface()
	l.trampolines[name] = p
	return p
}

func hasResult(out []reflect.Type) bool {
	for _, t := range out {
		if t == resultType {
			return true
		}
	}
	return false
}

// resultOf extracts the first api.Result from a return set, Success when
// none is present.
func resultOf(results []reflect.Value) api.Result {
	for _, v := range results {
		if v.Type() == resultType {
			return api.Result(v.Int())
		}
	}
	return api.Success
}

// failureValues builds the return set for an absorbed failure: zero
// values throughout, with any api.Result slot degraded to the generic
// failure code. Void entry points get an empty set, the failure is
// silently absorbed.
func failureValues(out []reflect.Type) []reflect.Value {
	results := make([]reflect.Value, len(out))
	for i, t := range out {
		if t == resultType {
			results[i] = reflect.ValueOf(api.GenericFailure)
			continue
		}
		results[i] = reflect.Zero(t)
	}
	return results
}
