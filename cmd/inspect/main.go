// Command inspect stands up a demo runtime surface, splices an
// interception layer over it, and lets you resolve and call entry points
// through the layer — from flags or from an interactive TUI.
package main

import (
	"flag"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/xyproto/env/v2"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/apishim/api-layer/api"
	"github.com/apishim/api-layer/layer"
	"github.com/apishim/api-layer/manifest"
)

func main() {
	var (
		manifestPath = flag.String("manifest", env.Str("APILAYER_MANIFEST"), "Path to a layer manifest (TOML); built-in demo manifest when empty")
		logLevel     = flag.String("log", env.Str("APILAYER_LOG", "off"), "Layer logging: off, info, debug")
		list         = flag.Bool("list", false, "List entry points and extensions, then exit")
		callName     = flag.String("call", "", "Entry point to call through the layer")
		callArgs     = flag.String("args", "", "Comma-separated arguments for -call")
		interactive  = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if err := setupLogging(*logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: -i needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(*manifestPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if !*list && *callName == "" {
		fmt.Fprintln(os.Stderr, "Usage: inspect [-manifest file.toml] -list")
		fmt.Fprintln(os.Stderr, "       inspect [-manifest file.toml] -call <name> [-args a,b,c]")
		fmt.Fprintln(os.Stderr, "       inspect [-manifest file.toml] -i  (interactive mode)")
		os.Exit(1)
	}

	if err := run(*manifestPath, *callName, *callArgs, *list); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogging(level string) error {
	switch level {
	case "off", "":
		return nil
	case "info":
		lg, err := zap.NewProduction()
		if err != nil {
			return err
		}
		layer.SetLogger(lg)
	case "debug":
		lg, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		layer.SetLogger(lg)
	default:
		return fmt.Errorf("unknown log level %q", level)
	}
	return nil
}

// entry is one resolvable name with its layer-side disposition.
type entry struct {
	name       string
	overridden bool
	proc       reflect.Value
}

// inspector is the assembled chain: demo runtime at the bottom, the
// layer spliced over it, one live instance, and a trace tail.
type inspector struct {
	layer   *layer.Layer
	handle  api.Handle
	entries []entry
	events  []layer.Event
}

func newInspector(manifestPath string) (*inspector, error) {
	rt, err := newDemoRuntime()
	if err != nil {
		return nil, fmt.Errorf("demo runtime: %w", err)
	}

	var m *manifest.Manifest
	if manifestPath != "" {
		m, err = manifest.Load(manifestPath)
	} else {
		m, err = manifest.Parse(defaultManifest)
	}
	if err != nil {
		return nil, err
	}

	cfg, err := m.Apply(demoHandlers())
	if err != nil {
		return nil, err
	}

	insp := &inspector{}
	cfg.OnTrace = func(ev layer.Event) {
		insp.events = append(insp.events, ev)
	}

	l, err := layer.New(*cfg, rt)
	if err != nil {
		return nil, err
	}
	insp.layer = l

	// Create the instance the way a host would: resolve the structural
	// entry point through the layer and call what comes back.
	res, proc := l.Resolve(api.NilHandle, api.NameCreateInstance)
	if res.Failed() {
		return nil, fmt.Errorf("resolve %s: %s", api.NameCreateInstance, res)
	}
	create := proc.(func(*api.InstanceCreateInfo) (api.Result, api.Handle))
	res, handle := create(&api.InstanceCreateInfo{
		Kind:              api.KindInstanceCreateInfo,
		ApplicationName:   "inspect",
		EnabledExtensions: []string{"ext-session-state", "ext-blink"},
	})
	if res.Failed() {
		return nil, fmt.Errorf("create instance: %s", res)
	}
	insp.handle = handle

	names := rt.Names()
	names = append(names, "blink-marker", api.NameEnumerateExtensions)
	sort.Strings(names)
	for _, name := range names {
		res, proc := l.Resolve(handle, name)
		if res.Failed() || proc == nil {
			continue
		}
		insp.entries = append(insp.entries, entry{
			name:       name,
			overridden: l.Overridden(name),
			proc:       reflect.ValueOf(proc),
		})
	}
	return insp, nil
}

func (insp *inspector) entryByName(name string) (entry, bool) {
	for _, e := range insp.entries {
		if e.name == name {
			return e, true
		}
	}
	return entry{}, false
}

// call invokes one entry point through the layer. The leading api.Handle
// parameter, when present, is filled with the live instance handle;
// remaining parameters come from args.
func (insp *inspector) call(name string, args []string) ([]string, error) {
	e, ok := insp.entryByName(name)
	if !ok {
		return nil, fmt.Errorf("unknown entry point %q", name)
	}

	t := e.proc.Type()
	needed := t.NumIn()
	if needed > 0 && t.In(0) == reflect.TypeOf(api.Handle(0)) {
		needed--
	}
	in := make([]reflect.Value, 0, t.NumIn())
	next := 0
	for i := 0; i < t.NumIn(); i++ {
		pt := t.In(i)
		if i == 0 && pt == reflect.TypeOf(api.Handle(0)) {
			in = append(in, reflect.ValueOf(insp.handle))
			continue
		}
		if next >= len(args) {
			return nil, fmt.Errorf("%s needs %d argument(s), got %d", name, needed, len(args))
		}
		v, err := convertArg(args[next], pt)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", next+1, err)
		}
		in = append(in, v)
		next++
	}

	out := e.proc.Call(in)
	results := make([]string, len(out))
	for i, v := range out {
		results[i] = formatValue(v)
	}
	return results, nil
}

// convertArg parses one CLI/TUI argument into the parameter's type.
func convertArg(value string, t reflect.Type) (reflect.Value, error) {
	switch t.Kind() {
	case reflect.String:
		return reflect.ValueOf(value).Convert(t), nil
	case reflect.Bool:
		return reflect.ValueOf(value == "true" || value == "1").Convert(t), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(n).Convert(t), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(n).Convert(t), nil
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(f).Convert(t), nil
	default:
		return reflect.Value{}, fmt.Errorf("unsupported parameter type %s", t)
	}
}

func formatValue(v reflect.Value) string {
	if r, ok := v.Interface().(api.Result); ok {
		return r.String()
	}
	return fmt.Sprintf("%v", v.Interface())
}

// formatEntry renders an entry point's signature from its proc type.
func formatEntry(e entry) string {
	t := e.proc.Type()
	params := make([]string, 0, t.NumIn())
	for i := 0; i < t.NumIn(); i++ {
		params = append(params, t.In(i).String())
	}
	outs := make([]string, 0, t.NumOut())
	for i := 0; i < t.NumOut(); i++ {
		outs = append(outs, t.Out(i).String())
	}
	s := e.name + "(" + strings.Join(params, ", ") + ")"
	if len(outs) > 0 {
		s += " -> " + strings.Join(outs, ", ")
	}
	return s
}

func run(manifestPath, callName, callArgs string, listOnly bool) error {
	insp, err := newInspector(manifestPath)
	if err != nil {
		return err
	}

	fmt.Printf("Layer: %s v%d\n", insp.layer.Name(), insp.layer.Version())
	fmt.Printf("Instance: %#x\n\n", uint64(insp.handle))

	fmt.Println("Entry points:")
	for _, e := range insp.entries {
		marker := "pass    "
		if e.overridden {
			marker = "override"
		}
		fmt.Printf("  [%s] %s\n", marker, formatEntry(e))
	}

	if exts, err := insp.enumerateExtensions(); err == nil {
		fmt.Println("\nExtensions:")
		for _, ext := range exts {
			fmt.Printf("  %s v%d\n", ext.Name, ext.Version)
		}
	}

	if listOnly {
		return nil
	}

	var args []string
	if callArgs != "" {
		args = strings.Split(callArgs, ",")
	}

	fmt.Printf("\nCalling %s(%s)...\n", callName, strings.Join(args, ", "))
	results, err := insp.call(callName, args)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("Returned (void)")
	} else {
		fmt.Printf("Returned: %s\n", strings.Join(results, ", "))
	}

	if len(insp.events) > 0 {
		fmt.Println("\nTrace:")
		for _, ev := range insp.events {
			fmt.Printf("  %s\n", formatEvent(ev))
		}
	}
	return nil
}

// enumerateExtensions runs the two-call idiom through the layer's
// advertiser.
func (insp *inspector) enumerateExtensions() ([]api.ExtensionProperties, error) {
	e, ok := insp.entryByName(api.NameEnumerateExtensions)
	if !ok {
		return nil, fmt.Errorf("no enumerator")
	}
	enumerate, ok := e.proc.Interface().(api.EnumerateExtensionsProc)
	if !ok {
		return nil, fmt.Errorf("unexpected enumerator shape %T", e.proc.Interface())
	}

	var count uint32
	if res := enumerate("", 0, &count, nil); res.Failed() {
		return nil, fmt.Errorf("count query: %s", res)
	}
	props := make([]api.ExtensionProperties, count)
	for i := range props {
		props[i].Kind = api.KindExtensionProperties
	}
	if res := enumerate("", count, &count, props); res.Failed() {
		return nil, fmt.Errorf("fill: %s", res)
	}
	return props[:count], nil
}

func formatEvent(ev layer.Event) string {
	s := ev.Proc
	if ev.HasResult {
		s += " = " + ev.Result.String()
	} else {
		s += " (void)"
	}
	if ev.Recovered {
		s += " [recovered]"
	}
	return s
}
