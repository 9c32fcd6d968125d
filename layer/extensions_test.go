package layer

import (
	"testing"

	"github.com/apishim/api-layer/api"
)

func newAdvertiserFixture(t *testing.T) (*Layer, api.EnumerateExtensionsProc) {
	t.Helper()
	rt := newDemoRuntime(t) // advertises ext-real v2
	l, err := New(demoConfig(), rt)
	if err != nil {
		t.Fatalf("new layer: %v", err)
	}
	createDemoInstance(t, l)

	res, proc := l.Resolve(l.Registry().Current().Handle(), api.NameEnumerateExtensions)
	if res.Failed() {
		t.Fatalf("resolve enumerate-extensions: %v", res)
	}
	enumerate, ok := proc.(api.EnumerateExtensionsProc)
	if !ok {
		t.Fatalf("enumerate-extensions resolved to %T", proc)
	}
	return l, enumerate
}

func extensionBuffer(n uint32) []api.ExtensionProperties {
	buf := make([]api.ExtensionProperties, n)
	for i := range buf {
		buf[i].Kind = api.KindExtensionProperties
	}
	return buf
}

func TestEnumerate_TwoCallIdiom(t *testing.T) {
	_, enumerate := newAdvertiserFixture(t)

	var count uint32
	if res := enumerate("", 0, &count, nil); res != api.Success {
		t.Fatalf("count query: %v", res)
	}
	if count != 2 { // ext-real from the runtime + ext-blink from the layer
		t.Fatalf("count = %d, want 2", count)
	}

	buf := extensionBuffer(count)
	var filled uint32
	if res := enumerate("", count, &filled, buf); res != api.Success {
		t.Fatalf("fill call: %v", res)
	}
	if filled != count {
		t.Errorf("filled count = %d, want %d", filled, count)
	}

	names := map[string]uint32{}
	for _, p := range buf {
		names[p.Name] = p.Version
	}
	if names["ext-real"] != 2 {
		t.Errorf("runtime extension missing or wrong version: %v", names)
	}
	if names["ext-blink"] != 1 {
		t.Errorf("layer extension missing or wrong version: %v", names)
	}
}

func TestEnumerate_SizeInsufficient(t *testing.T) {
	_, enumerate := newAdvertiserFixture(t)

	var count uint32
	if res := enumerate("", 0, &count, nil); res.Failed() {
		t.Fatalf("count query: %v", res)
	}

	short := count - 1
	buf := extensionBuffer(short)
	var filled uint32
	if res := enumerate("", short, &filled, buf); res != api.ErrorSizeInsufficient {
		t.Fatalf("short buffer: got %v, want %v", res, api.ErrorSizeInsufficient)
	}
	if filled != count {
		t.Errorf("required count not reported: %d, want %d", filled, count)
	}
	// Nothing written beyond the real runtime's own portion.
	for i := 1; i < len(buf); i++ {
		if buf[i].Name != "" {
			t.Errorf("slot %d written on failed call: %+v", i, buf[i])
		}
	}
}

func TestEnumerate_LayerNameFilterSkipsRuntime(t *testing.T) {
	calls := 0
	fake := &fakeRuntime{
		resolveFn: func(h api.Handle, name string) (api.Result, api.Proc) {
			if name != api.NameEnumerateExtensions {
				return api.ErrorFunctionUnsupported, nil
			}
			return api.Success, api.EnumerateExtensionsProc(func(filter string, capacity uint32, count *uint32, props []api.ExtensionProperties) api.Result {
				calls++
				*count = 0
				return api.Success
			})
		},
	}
	cfg := Config{
		LayerName: "shim-demo",
		Extensions: []api.ExtensionProperties{
			{Kind: api.KindExtensionProperties, Name: "ext-blink", Version: 1},
		},
	}
	l, err := New(cfg, fake)
	if err != nil {
		t.Fatalf("new layer: %v", err)
	}

	_, proc := l.Resolve(api.NilHandle, api.NameEnumerateExtensions)
	enumerate := proc.(api.EnumerateExtensionsProc)

	var count uint32
	if res := enumerate("shim-demo", 0, &count, nil); res != api.Success {
		t.Fatalf("layer filter: %v", res)
	}
	if count != 1 {
		t.Errorf("count = %d, want only the layer's own extension", count)
	}
	if calls != 0 {
		t.Errorf("real enumerate called %d times for a layer-only filter", calls)
	}

	buf := extensionBuffer(1)
	if res := enumerate("shim-demo", 1, &count, buf); res != api.Success {
		t.Fatalf("layer filter fill: %v", res)
	}
	if buf[0].Name != "ext-blink" || buf[0].Version != 1 {
		t.Errorf("filled descriptor = %+v", buf[0])
	}
}

func TestEnumerate_RealExtensionFilterPassesThrough(t *testing.T) {
	_, enumerate := newAdvertiserFixture(t)

	var count uint32
	if res := enumerate("ext-real", 0, &count, nil); res != api.Success {
		t.Fatalf("real filter: %v", res)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1 (no layer descriptors appended)", count)
	}
}

func TestEnumerate_SlotKindValidated(t *testing.T) {
	_, enumerate := newAdvertiserFixture(t)

	var count uint32
	enumerate("", 0, &count, nil)

	buf := extensionBuffer(count)
	buf[count-1].Kind = api.KindInstanceCreateInfo // wrong record kind
	var filled uint32
	if res := enumerate("", count, &filled, buf); res != api.ErrorValidationFailure {
		t.Errorf("mismatched slot kind: got %v, want %v", res, api.ErrorValidationFailure)
	}
}

func TestEnumerate_BufferShorterThanCapacity(t *testing.T) {
	_, enumerate := newAdvertiserFixture(t)

	var count uint32
	if res := enumerate("", 4, &count, extensionBuffer(2)); res != api.ErrorValidationFailure {
		t.Errorf("capacity beyond buffer: got %v, want %v", res, api.ErrorValidationFailure)
	}
}

func TestEnumerate_RuntimeWithoutEnumerator(t *testing.T) {
	cfg := Config{
		LayerName: "shim-demo",
		Extensions: []api.ExtensionProperties{
			{Kind: api.KindExtensionProperties, Name: "ext-blink", Version: 1},
		},
	}
	l, err := New(cfg, &fakeRuntime{})
	if err != nil {
		t.Fatalf("new layer: %v", err)
	}

	_, proc := l.Resolve(api.NilHandle, api.NameEnumerateExtensions)
	enumerate := proc.(api.EnumerateExtensionsProc)

	var count uint32
	if res := enumerate("", 0, &count, nil); res != api.Success {
		t.Fatalf("count query: %v", res)
	}
	if count != 1 {
		t.Errorf("count = %d, want the layer's own list only", count)
	}
}
