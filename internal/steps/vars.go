package steps

import (
	"regexp"
	"sort"
	"strings"
)

var placeholder = regexp.MustCompile(`\{\{\s*([^{}]*?)\s*\}\}`)

// Vars is the ordered name → value store shared by the steps of one run.
// It is not safe for concurrent use.
type Vars struct {
	keys   []string
	values map[string]string
}

// NewVars seeds a store from the given maps in order, so later maps override
// earlier ones. Keys of each map are inserted in sorted order.
func NewVars(seeds ...map[string]string) *Vars {
	v := &Vars{values: make(map[string]string)}
	for _, seed := range seeds {
		names := make([]string, 0, len(seed))
		for name := range seed {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			v.Set(name, seed[name])
		}
	}
	return v
}

// Get returns the value of name, or "" when it is not defined.
func (v *Vars) Get(name string) string {
	return v.values[name]
}

func (v *Vars) Lookup(name string) (string, bool) {
	val, ok := v.values[name]
	return val, ok
}

func (v *Vars) Set(name, value string) {
	if _, ok := v.values[name]; !ok {
		v.keys = append(v.keys, name)
	}
	v.values[name] = value
}

// Names returns the defined names in insertion order.
func (v *Vars) Names() []string {
	out := make([]string, len(v.keys))
	copy(out, v.keys)
	return out
}

func (v *Vars) Len() int { return len(v.keys) }

// Map returns a copy of the store as a plain map.
func (v *Vars) Map() map[string]string {
	out := make(map[string]string, len(v.values))
	for k, val := range v.values {
		out[k] = val
	}
	return out
}

func (v *Vars) Clone() *Vars {
	c := &Vars{keys: v.Names(), values: v.Map()}
	return c
}

// Expand replaces every {{name}} in s with the value of name.
func (v *Vars) Expand(s string) string {
	if !strings.Contains(s, "{{") {
		return s
	}
	return placeholder.ReplaceAllStringFunc(s, func(m string) string {
		name := placeholder.FindStringSubmatch(m)[1]
		return v.values[name]
	})
}

// Interpolate returns a copy of s with every string value expanded. Nested
// maps and slices are copied and expanded too; other values are shared.
func (v *Vars) Interpolate(s Step) Step {
	out := make(Step, len(s))
	for k, val := range s {
		out[k] = v.expandValue(val)
	}
	return out
}

func (v *Vars) expandValue(val any) any {
	switch x := val.(type) {
	case string:
		return v.Expand(x)
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, inner := range x {
			m[k] = v.expandValue(inner)
		}
		return m
	case []any:
		s := make([]any, len(x))
		for i, inner := range x {
			s[i] = v.expandValue(inner)
		}
		return s
	default:
		return val
	}
}
