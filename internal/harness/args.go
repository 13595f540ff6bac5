package harness

import (
	"fmt"
	"strconv"
	"strings"
)

// ArgSpec declares one typed script argument in the "--name:type:default"
// form scripts use to document their own CLI surface.
type ArgSpec struct {
	Name    string
	Type    string // "str", "int", "float", "bool"
	Default any
}

// ParseArgSpec parses a single declaration like "--dns:str:google.com".
// The default is optional; a bare "--retries:int" has a zero default for
// its type.
func ParseArgSpec(decl string) (ArgSpec, error) {
	decl = strings.TrimPrefix(decl, "--")
	parts := strings.SplitN(decl, ":", 3)
	if len(parts) < 2 {
		return ArgSpec{}, fmt.Errorf("harness: malformed arg spec %q, want --name:type[:default]", decl)
	}
	spec := ArgSpec{Name: parts[0], Type: parts[1]}
	raw := ""
	if len(parts) == 3 {
		raw = parts[2]
	}
	def, err := convert(spec.Type, raw)
	if err != nil {
		return ArgSpec{}, fmt.Errorf("harness: arg %q default: %w", spec.Name, err)
	}
	spec.Default = def
	return spec, nil
}

// standardArgs are appended to every script's declared list unless the
// script already declares one with the same name.
var standardArgs = []ArgSpec{
	{Name: "host", Type: "str", Default: ""},
	{Name: "device", Type: "str", Default: ""},
}

// ParseArgs parses argv ("--name=value" pairs) against declared specs
// plus the framework-standard ones, filling in defaults for anything
// not passed on the command line.
func ParseArgs(declared []ArgSpec, argv []string) (map[string]any, error) {
	specs := make(map[string]ArgSpec, len(declared)+len(standardArgs))
	for _, s := range declared {
		specs[s.Name] = s
	}
	for _, s := range standardArgs {
		if _, ok := specs[s.Name]; !ok {
			specs[s.Name] = s
		}
	}

	out := make(map[string]any, len(specs))
	for name, s := range specs {
		out[name] = s.Default
	}

	for _, a := range argv {
		a = strings.TrimPrefix(a, "--")
		eq := strings.IndexByte(a, '=')
		if eq < 0 {
			return nil, fmt.Errorf("harness: malformed flag %q, want --name=value", a)
		}
		name, raw := a[:eq], a[eq+1:]
		s, ok := specs[name]
		if !ok {
			return nil, fmt.Errorf("harness: unknown argument %q", name)
		}
		v, err := convert(s.Type, raw)
		if err != nil {
			return nil, fmt.Errorf("harness: argument %q: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

func convert(typ, raw string) (any, error) {
	switch typ {
	case "str", "":
		return raw, nil
	case "int":
		if raw == "" {
			return 0, nil
		}
		return strconv.Atoi(raw)
	case "float":
		if raw == "" {
			return 0.0, nil
		}
		return strconv.ParseFloat(raw, 64)
	case "bool":
		if raw == "" {
			return false, nil
		}
		return strconv.ParseBool(raw)
	default:
		return nil, fmt.Errorf("unknown arg type %q", typ)
	}
}
