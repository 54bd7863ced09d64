package steps

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeKey(t *testing.T) {
	cases := map[string]string{
		"":          "Backspace",
		"ENTER":     "Enter",
		"esc":       "Escape",
		"arrowLeft": "ArrowLeft",
		"space":     "Space",
		"pageDown":  "PageDown",
		"a":         "a",
		"F5":        "F5",
		"delete":    "Delete",
		"f5":        "F5",
		"pagedown":  "PageDown",
		"ctrl":      "Control",
		"Control":   "Control",
		"shift":     "Shift",
		"insert":    "Insert",
		"cmd":       "Meta",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeKey(in), "input %q", in)
	}
}

func TestClickVariants(t *testing.T) {
	page := newFakePage()
	for _, sel := range []string{`[name="qty"]`, `[aria-label="Close"]`, `[data-testid="save"]`, "#row", `[name="opt"]`} {
		page.clickable[sel] = true
	}
	page.texts["Next"] = true
	_, _, err := run(t, page, nil, `[
		{"type":"clickName","name":"qty"},
		{"type":"clickAriaLabel","label":"Close"},
		{"type":"clickDataTestID","testId":"save"},
		{"type":"clickNth","selector":"row","index":3},
		{"type":"clickNthName","name":"opt"},
		{"type":"clickText","text":"Next"},
		{"type":"clickTextCheckbox","text":"Agree"},
		{"type":"mouseClickCoordinates","x":"10","y":20.5},
		{"type":"selectAllText"}
	]`)
	require.NoError(t, err)
	assert.Equal(t, []string{
		`click [name="qty"]`,
		`click [aria-label="Close"]`,
		`click [data-testid="save"]`,
		"clickNth #row 3",
		`clickNth [name="opt"] 1`,
		"clickText Next",
	}, page.calls[:6])
}

func TestClickTextFailureIsFatal(t *testing.T) {
	_, _, err := run(t, newFakePage(), nil, `[{"type":"clickText","text":"Missing"}]`)
	require.ErrorIs(t, err, errNoElement)
}

func TestKeyPressAndTabs(t *testing.T) {
	page := newFakePage()
	in, slept := testInterpreter()
	list := parseSteps(t, `[{"type":"keyPress","key":"enter"},{"type":"keyPress"},{"type":"tabNTimes","times":3}]`)
	_, err := in.Execute(context.Background(), list, &Env{Page: page})
	require.NoError(t, err)
	assert.Equal(t, []string{"key Enter", "key Backspace", "key Tab", "key Tab", "key Tab"}, page.calls)
	assert.Equal(t, []time.Duration{DefaultTabPause, DefaultTabPause, DefaultTabPause}, *slept)
}

func TestTypeOneCharacterAtATime(t *testing.T) {
	page := newFakePage()
	in, slept := testInterpreter()
	out := &lines{}
	vars := NewVars(map[string]string{"sku": "A1"})
	list := parseSteps(t, `[
		{"type":"type","text":"hé","selector":"title"},
		{"type":"type","selector":"xy"},
		{"type":"typeVar","name":"sku"}
	]`)
	_, err := in.Execute(context.Background(), list, &Env{Page: page, Vars: vars, Log: out.add})
	require.NoError(t, err)
	assert.Equal(t, []string{
		`type "#title" h`, `type "#title" é`,
		`type "" x`, `type "" y`,
		`type "" A`, `type "" 1`,
	}, page.calls)
	assert.Len(t, *slept, 6)
	for _, d := range *slept {
		assert.Equal(t, DefaultTypeDelay, d)
	}
	assert.Contains(t, out.messages(), "[puppetry] Typed letter: é")
}

func TestListingStepsStoreVariables(t *testing.T) {
	listing := &fakeListing{title: ` "Vintage Blue Mug, 12oz" `, price: "I'd list it at $ 24,99 or so."}
	page := newFakePage()
	in, _ := testInterpreter()
	vars := NewVars(map[string]string{"img": "/tmp/mug.jpg"})
	list := parseSteps(t, `[
		{"type":"ebayListingTitle","imageVar":"img"},
		{"type":"ebayPrice"},
		{"type":"log","message":"{{ebayTitle}} @ {{ebayPrice}}"}
	]`)
	out := &lines{}
	_, err := in.Execute(context.Background(), list, &Env{Page: page, Vars: vars, Listing: listing, Log: out.add})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/mug.jpg", listing.gotImage)
	assert.Equal(t, "Vintage Blue Mug, 12oz", listing.gotTitle)
	assert.Equal(t, "24.99", vars.Get(VarPrice))
	assert.Contains(t, out.messages(), "Vintage Blue Mug, 12oz @ 24.99")
}

func TestListingStepsSoftSkip(t *testing.T) {
	cases := []struct {
		name    string
		listing ListingAssistant
		vars    map[string]string
	}{
		{"no assistant", nil, map[string]string{"ebayTitle": "t"}},
		{"no credential", &fakeListing{err: ErrNoCredential}, map[string]string{"ebayTitle": "t"}},
		{"no inputs", &fakeListing{title: "x", price: "$1"}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in, _ := testInterpreter()
			vars := NewVars(tc.vars)
			list := parseSteps(t, `[{"type":"ebayListingTitle"},{"type":"ebayPrice"},{"type":"log","message":"after"}]`)
			out := &lines{}
			_, err := in.Execute(context.Background(), list, &Env{Page: newFakePage(), Vars: vars, Listing: tc.listing, Log: out.add})
			require.NoError(t, err)
			assert.Contains(t, out.messages(), "after")
			_, ok := vars.Lookup(VarPrice)
			assert.False(t, ok)
		})
	}
}

func TestListingAPIErrorIsFatal(t *testing.T) {
	in, _ := testInterpreter()
	boom := errors.New("rate limited")
	list := parseSteps(t, `[{"type":"ebayListingTitle","image":"https://img.test/a.png"}]`)
	_, err := in.Execute(context.Background(), list, &Env{Page: newFakePage(), Listing: &fakeListing{err: boom}})
	require.ErrorIs(t, err, boom)
}

func TestExtractPrice(t *testing.T) {
	assert.Equal(t, "19.99", ExtractPrice("Suggested: $19.99"))
	assert.Equal(t, "20", ExtractPrice("$20 is fair"))
	assert.Equal(t, "about twenty dollars", ExtractPrice("  about twenty dollars \n"))
}

func TestCleanTitle(t *testing.T) {
	assert.Equal(t, "Blue Mug", CleanTitle(`"Blue   Mug"`))
	long := strings.Repeat("word ", 30)
	got := CleanTitle(long)
	assert.LessOrEqual(t, len([]rune(got)), MaxTitleLength)
	assert.False(t, strings.HasSuffix(got, " "))
}

func TestEbayUploadImage(t *testing.T) {
	up := &fakeUploader{}
	in, _ := testInterpreter()
	list := parseSteps(t, `[{"type":"ebayUploadImage","paths":" a.jpg, ,b.png ","itemId":123}]`)
	_, err := in.Execute(context.Background(), list, &Env{Page: newFakePage(), Uploader: up})
	require.NoError(t, err)
	assert.Equal(t, UploadRequest{ItemID: "123", Paths: []string{"a.jpg", "b.png"}}, up.req)

	up.err = errors.New("EPS info missing")
	_, err = in.Execute(context.Background(), list, &Env{Page: newFakePage(), Uploader: up})
	require.ErrorIs(t, err, up.err)
}

func TestUIUploadFile(t *testing.T) {
	page := newFakePage()
	page.clickable[defaultFileInput] = true
	vars := NewVars(map[string]string{"imgs": "x.jpg,y.jpg"})
	_, _, err := run(t, page, vars, `[{"type":"uiUploadFile","pathsVar":"imgs"},{"type":"uiUploadFile","paths":""}]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"x.jpg", "y.jpg"}, page.files[defaultFileInput])
	assert.Equal(t, []string{"files " + defaultFileInput}, page.calls)

	_, _, err = run(t, newFakePage(), nil, `[{"type":"uiUploadFile","paths":"a.jpg","selector":"picker"}]`)
	require.ErrorIs(t, err, errNoElement)
}

func TestSetDescriptionSanitises(t *testing.T) {
	page := newFakePage()
	in, _ := testInterpreter()
	list := parseSteps(t, `[{"type":"setDescription","selector":"desc"}]`)
	env := &Env{Page: page, Description: `<p>Default</p>`}

	_, err := in.Execute(context.Background(), list, env)
	require.NoError(t, err)
	assert.Equal(t, "<p>Default</p>", page.values["#desc"])

	env.Vars = NewVars(map[string]string{"description": `<b>Hi</b><script>alert(1)</script>`})
	_, err = in.Execute(context.Background(), list, env)
	require.NoError(t, err)
	assert.Equal(t, "<b>Hi</b>", page.values["#desc"])
}

func TestScreenshotPath(t *testing.T) {
	page := newFakePage()
	in, _ := testInterpreter()
	dir := t.TempDir()
	list := parseSteps(t, `[{"type":"screenshot","path":"shot.png"},{"type":"screenshot"}]`)
	_, err := in.Execute(context.Background(), list, &Env{Page: page, ScreenshotDir: dir})
	require.NoError(t, err)
	require.Len(t, page.calls, 2)
	assert.Equal(t, "screenshot "+filepath.Join(dir, "shot.png"), page.calls[0])
	assert.True(t, strings.HasPrefix(page.calls[1], "screenshot "+filepath.Join(dir, "screenshot-")))
}

func TestScrollBottomPauses(t *testing.T) {
	page := newFakePage()
	in, slept := testInterpreter()
	_, err := in.Execute(context.Background(), parseSteps(t, `[{"type":"scrollBottom"}]`), &Env{Page: page})
	require.NoError(t, err)
	assert.Equal(t, []string{"scroll"}, page.calls)
	assert.Equal(t, []time.Duration{DefaultScrollPause}, *slept)
}

func TestSectionTitle(t *testing.T) {
	_, out, err := run(t, newFakePage(), nil, `[{"type":"sectionTitle","title":"Pricing"}]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"[puppetry] Section: Pricing"}, out.messages())
}
