package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahul/puppetry/internal/steps"
)

func TestParseRequestYAML(t *testing.T) {
	req, err := ParseRequest([]byte(`
loops: 2
closeBrowser: true
printifyProductURL: https://printify.test/p/9
variables:
  who: world
steps:
  - type: loadPrintifyProductURL
  - type: click
    selector: '<button id="go">Go</button>'
    skipTo: 4
  - type: wait
    seconds: 0.5
  - type: end
`))
	require.NoError(t, err)
	assert.Equal(t, 2, req.Loops.Int(0))
	assert.True(t, req.CloseBrowser)
	assert.Equal(t, "https://printify.test/p/9", req.ProductURL)
	assert.Equal(t, map[string]string{"who": "world"}, req.Variables)
	require.Len(t, req.Steps, 4)
	assert.Equal(t, steps.KindClick, req.Steps[1].Kind())

	action, err := steps.Decode(req.Steps[1])
	require.NoError(t, err)
	click := action.(*steps.Click)
	assert.Equal(t, 4, click.SkipTo.Int(0))
}

func TestParseRequestBareList(t *testing.T) {
	req, err := ParseRequest([]byte(`[{"type":"log","message":"hi"}]`))
	require.NoError(t, err)
	require.Len(t, req.Steps, 1)
	assert.False(t, req.Loops.Set)
}

func TestParseRequestAcceptsQuotedLoops(t *testing.T) {
	req, err := ParseRequest([]byte(`{"loops":"3","steps":[{"type":"end"}]}`))
	require.NoError(t, err)
	assert.Equal(t, 3, req.Loops.Int(0))

	req, err = ParseRequest([]byte("loops: \"2\"\nsteps:\n  - type: end\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, req.Loops.Int(0))
}

func TestParseRequestErrors(t *testing.T) {
	for _, src := range []string{"", "42", "steps: []", "{"} {
		_, err := ParseRequest([]byte(src))
		assert.Error(t, err, src)
	}
}
