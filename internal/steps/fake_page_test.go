package steps

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var errNoElement = errors.New("no element matches selector")

// fakePage records every call and fails clicks on selectors it does not know.
type fakePage struct {
	url       string
	clickable map[string]bool
	texts     map[string]bool
	calls     []string
	typed     strings.Builder
	values    map[string]string
	files     map[string][]string
	navErr    error
}

func newFakePage() *fakePage {
	return &fakePage{
		clickable: map[string]bool{},
		texts:     map[string]bool{},
		values:    map[string]string{},
		files:     map[string][]string{},
	}
}

func (p *fakePage) record(format string, args ...any) {
	p.calls = append(p.calls, fmt.Sprintf(format, args...))
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.record("navigate %s", url)
	if p.navErr != nil {
		return p.navErr
	}
	p.url = url
	return nil
}

func (p *fakePage) URL(ctx context.Context) (string, error) { return p.url, nil }

func (p *fakePage) Click(ctx context.Context, sel string) error {
	p.record("click %s", sel)
	if !p.clickable[sel] {
		return errNoElement
	}
	return nil
}

func (p *fakePage) ClickNth(ctx context.Context, sel string, n int) error {
	p.record("clickNth %s %d", sel, n)
	if !p.clickable[sel] {
		return errNoElement
	}
	return nil
}

func (p *fakePage) ClickText(ctx context.Context, text string) error {
	p.record("clickText %s", text)
	if !p.texts[text] {
		return errNoElement
	}
	return nil
}

func (p *fakePage) ClickTextCheckbox(ctx context.Context, text string) error {
	p.record("clickTextCheckbox %s", text)
	return nil
}

func (p *fakePage) MouseClick(ctx context.Context, x, y float64) error {
	p.record("mouse %v,%v", x, y)
	return nil
}

func (p *fakePage) PressKey(ctx context.Context, key string) error {
	p.record("key %s", key)
	return nil
}

func (p *fakePage) SelectAll(ctx context.Context) error {
	p.record("selectAll")
	return nil
}

func (p *fakePage) Type(ctx context.Context, sel, text string) error {
	p.record("type %q %s", sel, text)
	p.typed.WriteString(text)
	return nil
}

func (p *fakePage) SetInputFiles(ctx context.Context, sel string, paths []string) error {
	p.record("files %s", sel)
	if !p.clickable[sel] {
		return errNoElement
	}
	p.files[sel] = paths
	return nil
}

func (p *fakePage) SetValue(ctx context.Context, sel, value string) error {
	p.record("value %s", sel)
	p.values[sel] = value
	return nil
}

func (p *fakePage) ScrollToBottom(ctx context.Context) error {
	p.record("scroll")
	return nil
}

func (p *fakePage) Screenshot(ctx context.Context, path string) error {
	p.record("screenshot %s", path)
	return nil
}

func (p *fakePage) Cookies(ctx context.Context) ([]*http.Cookie, error) {
	return []*http.Cookie{{Name: "s", Value: "1"}}, nil
}

type fakeListing struct {
	title    string
	price    string
	err      error
	gotImage string
	gotTitle string
}

func (f *fakeListing) Title(ctx context.Context, image string) (string, error) {
	f.gotImage = image
	return f.title, f.err
}

func (f *fakeListing) Price(ctx context.Context, title string) (string, error) {
	f.gotTitle = title
	return f.price, f.err
}

type fakeUploader struct {
	req UploadRequest
	err error
}

func (f *fakeUploader) Upload(ctx context.Context, page Page, req UploadRequest, log LogFunc) error {
	f.req = req
	return f.err
}

type lines struct {
	all []string
}

func (l *lines) add(line string) { l.all = append(l.all, line) }

// messages drops the per-step "Executing step" lines.
func (l *lines) messages() []string {
	var out []string
	for _, line := range l.all {
		if !strings.Contains(line, "Executing step") {
			out = append(out, line)
		}
	}
	return out
}

func testInterpreter() (*Interpreter, *[]time.Duration) {
	var slept []time.Duration
	in := NewInterpreter()
	in.Sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return in, &slept
}
