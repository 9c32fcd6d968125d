package wasmrt

import (
	"context"
	"errors"
	"reflect"
	"testing"

	wzapi "github.com/tetratelabs/wazero/api"

	"github.com/apishim/api-layer/api"
)

type fakeFunction struct {
	wzapi.Function
	result []uint64
	err    error
	calls  [][]uint64
}

func (f *fakeFunction) Definition() wzapi.FunctionDefinition { return nil }

func (f *fakeFunction) Call(_ context.Context, params ...uint64) ([]uint64, error) {
	f.calls = append(f.calls, params)
	return f.result, f.err
}

func (f *fakeFunction) CallWithStack(_ context.Context, stack []uint64) error {
	f.calls = append(f.calls, stack)
	return f.err
}

type fakeModule struct {
	funcs  map[string]*fakeFunction
	closed bool
}

func (m *fakeModule) ExportedFunction(name string) wzapi.Function {
	fn, ok := m.funcs[name]
	if !ok {
		return nil
	}
	return fn
}

func (m *fakeModule) Close(context.Context) error {
	m.closed = true
	return nil
}

func newFakeRuntime(mod *fakeModule) *Runtime {
	r := newRuntime(context.Background())
	r.instantiate = func(string) (moduleExports, error) {
		return mod, nil
	}
	return r
}

func createFakeInstance(t *testing.T, r *Runtime) api.Handle {
	t.Helper()
	res, handle := r.CreateInstance(&api.InstanceCreateInfo{
		Kind:            api.KindInstanceCreateInfo,
		ApplicationName: "guest",
	})
	if res.Failed() {
		t.Fatalf("create instance: %v", res)
	}
	return handle
}

func TestResolve_WrapsExport(t *testing.T) {
	fn := &fakeFunction{result: []uint64{42}}
	r := newFakeRuntime(&fakeModule{funcs: map[string]*fakeFunction{"compute": fn}})
	handle := createFakeInstance(t, r)

	res, proc := r.Resolve(handle, "compute")
	if res.Failed() {
		t.Fatalf("resolve: %v", res)
	}

	call, ok := proc.(Proc)
	if !ok {
		t.Fatalf("proc has type %T", proc)
	}
	out, cres := call(5, 3)
	if cres != api.Success || len(out) != 1 || out[0] != 42 {
		t.Errorf("call = (%v, %v)", out, cres)
	}
	if len(fn.calls) != 1 || !reflect.DeepEqual(fn.calls[0], []uint64{5, 3}) {
		t.Errorf("guest saw params %v", fn.calls)
	}
}

func TestResolve_CachesProcs(t *testing.T) {
	fn := &fakeFunction{}
	r := newFakeRuntime(&fakeModule{funcs: map[string]*fakeFunction{"compute": fn}})
	handle := createFakeInstance(t, r)

	_, first := r.Resolve(handle, "compute")
	_, second := r.Resolve(handle, "compute")
	if reflect.ValueOf(first).Pointer() != reflect.ValueOf(second).Pointer() {
		t.Error("repeated resolution returned different procs")
	}
}

func TestResolve_UnknownExport(t *testing.T) {
	r := newFakeRuntime(&fakeModule{})
	handle := createFakeInstance(t, r)

	res, proc := r.Resolve(handle, "missing")
	if res != api.ErrorFunctionUnsupported || proc != nil {
		t.Errorf("got (%v, %v), want unsupported and nil", res, proc)
	}
}

func TestResolve_InvalidHandle(t *testing.T) {
	r := newFakeRuntime(&fakeModule{})
	res, _ := r.Resolve(api.Handle(99), "compute")
	if res != api.ErrorHandleInvalid {
		t.Errorf("got %v, want %v", res, api.ErrorHandleInvalid)
	}
}

func TestCall_GuestTrapBecomesResultCode(t *testing.T) {
	fn := &fakeFunction{err: errors.New("unreachable executed")}
	r := newFakeRuntime(&fakeModule{funcs: map[string]*fakeFunction{"compute": fn}})
	handle := createFakeInstance(t, r)

	_, proc := r.Resolve(handle, "compute")
	out, res := proc.(Proc)()
	if res != api.ErrorRuntimeFailure {
		t.Errorf("trap surfaced as %v, want %v", res, api.ErrorRuntimeFailure)
	}
	if out != nil {
		t.Errorf("trap returned values: %v", out)
	}
}

func TestDestroy_ClosesModule(t *testing.T) {
	mod := &fakeModule{}
	r := newFakeRuntime(mod)
	handle := createFakeInstance(t, r)

	res, proc := r.Resolve(handle, api.NameDestroyInstance)
	if res.Failed() {
		t.Fatalf("resolve destroy: %v", res)
	}
	destroy := proc.(api.DestroyInstanceProc)

	if dres := destroy(handle); dres != api.Success {
		t.Fatalf("destroy: %v", dres)
	}
	if !mod.closed {
		t.Error("module not closed")
	}
	if dres := destroy(handle); dres != api.ErrorHandleInvalid {
		t.Errorf("second destroy: got %v, want %v", dres, api.ErrorHandleInvalid)
	}
}

func TestCreateInstance_BadRequest(t *testing.T) {
	r := newFakeRuntime(&fakeModule{})
	if res, _ := r.CreateInstance(nil); res != api.ErrorValidationFailure {
		t.Errorf("nil info: %v", res)
	}
	if res, _ := r.CreateInstance(&api.InstanceCreateInfo{}); res != api.ErrorValidationFailure {
		t.Errorf("missing kind: %v", res)
	}
}
