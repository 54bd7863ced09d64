package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

// ErrNotFound is returned when a selector or text matches nothing.
var ErrNotFound = errors.New("element not found")

// Page implements steps.Page on a chromedp tab.
type Page struct {
	ctx        context.Context
	timeout    time.Duration
	navTimeout time.Duration
}

// run executes actions on the tab. It stops at the earlier of timeout and
// the caller's deadline, and when the caller's context is cancelled.
func (p *Page) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	actx, cancel := context.WithDeadline(p.ctx, deadline)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(actx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (p *Page) do(ctx context.Context, actions ...chromedp.Action) error {
	return p.run(ctx, p.timeout, actions...)
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	return p.run(ctx, p.navTimeout, chromedp.Navigate(url))
}

func (p *Page) URL(ctx context.Context) (string, error) {
	var url string
	err := p.do(ctx, chromedp.Location(&url))
	return url, err
}

// nodes returns the current matches of sel without waiting for them.
func (p *Page) nodes(ctx context.Context, sel string) ([]*cdp.Node, error) {
	var nodes []*cdp.Node
	if err := p.do(ctx, chromedp.Nodes(sel, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (p *Page) Click(ctx context.Context, sel string) error {
	return p.ClickNth(ctx, sel, 1)
}

func (p *Page) ClickNth(ctx context.Context, sel string, n int) error {
	nodes, err := p.nodes(ctx, sel)
	if err != nil {
		return err
	}
	if n < 1 || n > len(nodes) {
		return fmt.Errorf("%w: %s (match %d of %d)", ErrNotFound, sel, n, len(nodes))
	}
	return p.do(ctx, chromedp.MouseClickNode(nodes[n-1]))
}

func (p *Page) ClickText(ctx context.Context, text string) error {
	return p.clickScript(ctx, clickTextJS, text)
}

func (p *Page) ClickTextCheckbox(ctx context.Context, text string) error {
	return p.clickScript(ctx, clickCheckboxJS, text)
}

func (p *Page) clickScript(ctx context.Context, script, text string) error {
	var clicked bool
	if err := p.do(ctx, chromedp.Evaluate(callJS(script, text), &clicked)); err != nil {
		return err
	}
	if !clicked {
		return fmt.Errorf("%w: text %q", ErrNotFound, text)
	}
	return nil
}

func (p *Page) MouseClick(ctx context.Context, x, y float64) error {
	return p.do(ctx,
		chromedp.MouseEvent(input.MouseMoved, x, y),
		chromedp.MouseClickXY(x, y),
	)
}

// keyCodes maps DOM key names ("F5", "Shift", "PageUp") to the runes
// chromedp's kb package encodes them as.
var keyCodes = buildKeyCodes()

func buildKeyCodes() map[string]string {
	codes := map[string]string{"Space": " "}
	for _, r := range slices.Sorted(maps.Keys(kb.Keys)) {
		name := kb.Keys[r].Key
		if utf8.RuneCountInString(name) < 2 {
			continue
		}
		if _, ok := codes[name]; !ok {
			codes[name] = string(r)
		}
	}
	return codes
}

func (p *Page) PressKey(ctx context.Context, key string) error {
	code, ok := keyCodes[key]
	if !ok {
		if len([]rune(key)) != 1 {
			return fmt.Errorf("unsupported key %q", key)
		}
		code = key
	}
	return p.do(ctx, chromedp.KeyEvent(code))
}

func (p *Page) SelectAll(ctx context.Context) error {
	return p.do(ctx, chromedp.KeyEvent("a", chromedp.KeyModifiers(input.ModifierCtrl)))
}

func (p *Page) Type(ctx context.Context, sel, text string) error {
	if sel == "" {
		return p.do(ctx, chromedp.KeyEvent(text))
	}
	return p.do(ctx, chromedp.SendKeys(sel, text, chromedp.ByQuery))
}

func (p *Page) SetInputFiles(ctx context.Context, sel string, paths []string) error {
	nodes, err := p.nodes(ctx, sel)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, sel)
	}
	abs := make([]string, 0, len(paths))
	for _, path := range paths {
		a, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		abs = append(abs, a)
	}
	return p.do(ctx, chromedp.SetUploadFiles(sel, abs, chromedp.ByQuery))
}

// SetValue assigns value to the first match of sel and fires an input event.
// A missing element is ignored.
func (p *Page) SetValue(ctx context.Context, sel, value string) error {
	var found bool
	return p.do(ctx, chromedp.Evaluate(callJS(setValueJS, sel, value), &found))
}

func (p *Page) ScrollToBottom(ctx context.Context) error {
	return p.do(ctx, chromedp.Evaluate("window.scrollTo(0, document.body.scrollHeight)", nil))
}

func (p *Page) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := p.do(ctx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, buf, 0644)
}

func (p *Page) Cookies(ctx context.Context) ([]*http.Cookie, error) {
	var cookies []*network.Cookie
	err := p.do(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, err
	}
	out := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, &http.Cookie{Name: c.Name, Value: c.Value, Domain: c.Domain, Path: c.Path})
	}
	return out, nil
}

// Evaluate runs a script in the page and decodes its result into res.
func (p *Page) Evaluate(ctx context.Context, script string, res any) error {
	return p.do(ctx, chromedp.Evaluate(script, res))
}

// callJS renders an immediately invoked call of fn with JSON encoded args.
func callJS(fn string, args ...string) string {
	encoded := make([]string, len(args))
	for i, a := range args {
		b, _ := json.Marshal(a)
		encoded[i] = string(b)
	}
	return fmt.Sprintf("(%s)(%s)", fn, strings.Join(encoded, ", "))
}
