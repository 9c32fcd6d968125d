package manifest

import (
	stderrors "errors"
	"testing"

	"github.com/apishim/api-layer/api"
	"github.com/apishim/api-layer/errors"
	"github.com/apishim/api-layer/layer"
)

const demoManifest = `
[layer]
name = "trace-layer"
version = 2
blocked_extensions = ["ext-banned"]
implicit_extensions = ["ext-needed"]

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

func TestParse(t *testing.T) {
	m, err := Parse(demoManifest)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if m.Layer.Name != "trace-layer" || m.Layer.Version != 2 {
		t.Errorf("layer section = %+v", m.Layer)
	}
	if len(m.Overrides) != 2 || m.Overrides[1].Extension != "ext-blink" {
		t.Errorf("overrides = %+v", m.Overrides)
	}
	if len(m.Requests) != 2 || !m.Requests[0].Required || m.Requests[1].Required {
		t.Errorf("requests = %+v", m.Requests)
	}
	if len(m.Extensions) != 1 || m.Extensions[0].Name != "ext-blink" {
		t.Errorf("extensions = %+v", m.Extensions)
	}
	if len(m.Layer.BlockedExtensions) != 1 || m.Layer.BlockedExtensions[0] != "ext-banned" {
		t.Errorf("blocked = %v", m.Layer.BlockedExtensions)
	}
}

func TestParse_Rejections(t *testing.T) {
	tests := []struct {
		name string
		text string
		kind errors.Kind
	}{
		{
			name: "missing layer name",
			text: `[layer]` + "\n" + `version = 1`,
			kind: errors.KindInvalidInput,
		},
		{
			name: "structural override",
			text: demoManifest + "\n[[override]]\nname = \"destroy-instance\"\n",
			kind: errors.KindStructuralName,
		},
		{
			name: "enumerate override",
			text: demoManifest + "\n[[override]]\nname = \"enumerate-extensions\"\n",
			kind: errors.KindStructuralName,
		},
		{
			name: "resolve request",
			text: demoManifest + "\n[[request]]\nname = \"resolve-proc\"\n",
			kind: errors.KindStructuralName,
		},
		{
			name: "duplicate override",
			text: demoManifest + "\n[[override]]\nname = \"begin-session\"\n",
			kind: errors.KindDuplicate,
		},
		{
			name: "duplicate extension",
			text: demoManifest + "\n[[extension]]\nname = \"ext-blink\"\n",
			kind: errors.KindDuplicate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text)
			if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseConfig, Kind: tt.kind}) {
				t.Errorf("got %v, want kind %s", err, tt.kind)
			}
		})
	}
}

func TestParse_MalformedTOML(t *testing.T) {
	if _, err := Parse("[layer\nname ="); err == nil {
		t.Error("malformed document accepted")
	}
}

func TestApply(t *testing.T) {
	m, err := Parse(demoManifest)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	handlers := map[string]any{
		"begin-session": func(inst *layer.Instance, h api.Handle, name string) api.Result { return api.Success },
		"blink-marker":  func(inst *layer.Instance, h api.Handle) api.Result { return api.Success },
	}
	cfg, err := m.Apply(handlers)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	if cfg.LayerName != "trace-layer" || cfg.LayerVersion != 2 {
		t.Errorf("config identity = %q v%d", cfg.LayerName, cfg.LayerVersion)
	}
	if len(cfg.Overrides) != 2 || cfg.Overrides[1].Extension != "ext-blink" {
		t.Errorf("overrides = %+v", cfg.Overrides)
	}
	if cfg.Overrides[0].Handler == nil {
		t.Error("handler not bound")
	}
	if len(cfg.Extensions) != 1 || cfg.Extensions[0].Kind != api.KindExtensionProperties {
		t.Errorf("extensions = %+v", cfg.Extensions)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("applied config does not validate: %v", err)
	}
}

func TestApply_HandlerMismatch(t *testing.T) {
	m, err := Parse(demoManifest)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	_, err = m.Apply(map[string]any{
		"begin-session": func(inst *layer.Instance) api.Result { return api.Success },
	})
	if err == nil {
		t.Error("missing handler accepted")
	}

	_, err = m.Apply(map[string]any{
		"begin-session": func(inst *layer.Instance) api.Result { return api.Success },
		"blink-marker":  func(inst *layer.Instance) api.Result { return api.Success },
		"stray":         func(inst *layer.Instance) api.Result { return api.Success },
	})
	if err == nil {
		t.Error("unclaimed handler accepted")
	}
}
