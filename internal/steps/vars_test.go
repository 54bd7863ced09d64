package steps

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewVarsCallerOverridesPreset(t *testing.T) {
	preset := map[string]string{"color": "red", "size": "M"}
	caller := map[string]string{"color": "blue", "sku": "X1"}
	v := NewVars(preset, caller)

	assert.Equal(t, "blue", v.Get("color"))
	assert.Equal(t, "M", v.Get("size"))
	assert.Equal(t, []string{"color", "size", "sku"}, v.Names())
}

func TestExpand(t *testing.T) {
	v := NewVars(map[string]string{"name": "Mug", "n": "3"})
	cases := map[string]string{
		"{{name}}":             "Mug",
		"{{ name }} x{{n}}":    "Mug x3",
		"{{missing}}":          "",
		"no placeholders":      "no placeholders",
		"{{name}}{{missing}}!": "Mug!",
		"{ {name} }":           "{ {name} }",
	}
	for in, want := range cases {
		assert.Equal(t, want, v.Expand(in), "input %q", in)
	}
}

func TestInterpolateNested(t *testing.T) {
	v := NewVars(map[string]string{"a": "1"})
	s := Step{
		"type":   "log",
		"skipTo": float64(2),
		"nested": map[string]any{"k": "{{a}}", "list": []any{"{{a}}", true}},
	}
	out := v.Interpolate(s)

	assert.Equal(t, float64(2), out["skipTo"])
	assert.Equal(t, "1", out["nested"].(map[string]any)["k"])
	assert.Equal(t, []any{"1", true}, out["nested"].(map[string]any)["list"])
	assert.Equal(t, "{{a}}", s["nested"].(map[string]any)["k"])
}

func TestCloneIsIndependent(t *testing.T) {
	v := NewVars(map[string]string{"a": "1"})
	c := v.Clone()
	c.Set("a", "2")
	c.Set("b", "3")
	assert.Equal(t, "1", v.Get("a"))
	assert.Equal(t, 1, v.Len())
	assert.Equal(t, 2, c.Len())
}
