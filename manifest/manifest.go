// Package manifest loads the layer's build-time configuration from a
// TOML manifest. The manifest carries the name lists only — which entry
// points are overridden, which real procs the layer requests, which
// extension descriptors it advertises — while the handler functions stay
// in Go code. Apply joins the two into a layer.Config.
package manifest

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/apishim/api-layer/api"
	"github.com/apishim/api-layer/errors"
	"github.com/apishim/api-layer/layer"
)

// Manifest mirrors the TOML document.
type Manifest struct {
	Layer      LayerSection     `toml:"layer"`
	Overrides  []OverrideEntry  `toml:"override"`
	Requests   []RequestEntry   `toml:"request"`
	Extensions []ExtensionEntry `toml:"extension"`
}

// LayerSection is the [layer] table.
type LayerSection struct {
	Name    string `toml:"name"`
	Version uint32 `toml:"version"`

	BlockedExtensions  []string `toml:"blocked_extensions"`
	ImplicitExtensions []string `toml:"implicit_extensions"`
}

// OverrideEntry is one [[override]] table. Extension, when set, marks the
// entry point as owned by a layer-provided extension so its resolution
// succeeds even if the real runtime lacks it.
type OverrideEntry struct {
	Name      string `toml:"name"`
	Extension string `toml:"extension"`
}

// RequestEntry is one [[request]] table.
type RequestEntry struct {
	Name     string `toml:"name"`
	Required bool   `toml:"required"`
}

// ExtensionEntry is one [[extension]] table.
type ExtensionEntry struct {
	Name    string `toml:"name"`
	Version uint32 `toml:"version"`
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("load manifest %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Parse decodes a manifest from TOML text.
func Parse(text string) (*Manifest, error) {
	var m Manifest
	if _, err := toml.Decode(text, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate enforces the same structural rules layer.Config does, so a
// bad manifest is rejected offline, before any handler table exists.
func (m *Manifest) Validate() error {
	if m.Layer.Name == "" {
		return errors.InvalidInput(errors.PhaseConfig, "manifest missing layer name")
	}

	seen := make(map[string]struct{}, len(m.Overrides))
	for _, o := range m.Overrides {
		if o.Name == "" {
			return errors.InvalidInput(errors.PhaseConfig, "override entry missing name")
		}
		switch o.Name {
		case api.NameCreateInstance, api.NameDestroyInstance, api.NameResolveProc:
			return errors.StructuralName(o.Name, "implicitly intercepted, not listable in the manifest")
		case api.NameEnumerateExtensions:
			return errors.StructuralName(o.Name, "intercepted by the built-in extension advertiser")
		}
		if _, dup := seen[o.Name]; dup {
			return errors.Duplicate(errors.PhaseConfig, o.Name)
		}
		seen[o.Name] = struct{}{}
	}

	seen = make(map[string]struct{}, len(m.Requests))
	for _, r := range m.Requests {
		if r.Name == "" {
			return errors.InvalidInput(errors.PhaseConfig, "request entry missing name")
		}
		if r.Name == api.NameResolveProc {
			return errors.StructuralName(r.Name, "resolution itself cannot be a requested binding")
		}
		if _, dup := seen[r.Name]; dup {
			return errors.Duplicate(errors.PhaseConfig, r.Name)
		}
		seen[r.Name] = struct{}{}
	}

	seen = make(map[string]struct{}, len(m.Extensions))
	for _, e := range m.Extensions {
		if e.Name == "" {
			return errors.InvalidInput(errors.PhaseConfig, "extension entry missing name")
		}
		if _, dup := seen[e.Name]; dup {
			return errors.Duplicate(errors.PhaseConfig, e.Name)
		}
		seen[e.Name] = struct{}{}
	}

	return nil
}

// Apply binds handlers to the manifest's override list and produces a
// layer.Config. Every override entry must find a handler, and every
// handler must be named by an entry; either mismatch is a configuration
// error.
func (m *Manifest) Apply(handlers map[string]any) (*layer.Config, error) {
	cfg := &layer.Config{
		LayerName:          m.Layer.Name,
		LayerVersion:       m.Layer.Version,
		BlockedExtensions:  m.Layer.BlockedExtensions,
		ImplicitExtensions: m.Layer.ImplicitExtensions,
	}

	claimed := make(map[string]struct{}, len(m.Overrides))
	for _, o := range m.Overrides {
		handler, ok := handlers[o.Name]
		if !ok {
			return nil, errors.New(errors.PhaseConfig, errors.KindNotFound).
				Proc(o.Name).
				Detail("manifest override has no handler").
				Build()
		}
		claimed[o.Name] = struct{}{}
		cfg.Overrides = append(cfg.Overrides, layer.Override{
			Name:      o.Name,
			Handler:   handler,
			Extension: o.Extension,
		})
	}
	for name := range handlers {
		if _, ok := claimed[name]; !ok {
			return nil, errors.New(errors.PhaseConfig, errors.KindNotFound).
				Proc(name).
				Detail("handler is not named by any manifest override").
				Build()
		}
	}

	for _, r := range m.Requests {
		cfg.Requested = append(cfg.Requested, layer.Request{
			Name:     r.Name,
			Required: r.Required,
		})
	}

	for _, e := range m.Extensions {
		cfg.Extensions = append(cfg.Extensions, api.ExtensionProperties{
			Kind:    api.KindExtensionProperties,
			Name:    e.Name,
			Version: e.Version,
		})
	}

	return cfg, nil
}
