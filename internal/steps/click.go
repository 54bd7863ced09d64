package steps

import (
	"context"
	"fmt"

	"github.com/rahul/puppetry/internal/selector"
)

// Click clicks the element described by Selector. On failure it tries the
// snippet's inline text, then SkipTo, before giving up.
type Click struct {
	Selector Text   `json:"selector"`
	SkipTo   Number `json:"skipTo"`
}

func (a *Click) Execute(ctx context.Context, env *Env) (Flow, error) {
	raw := a.Selector.String()
	sel := selector.Resolve(raw)
	err := env.Page.Click(ctx, sel)
	if err == nil {
		return Next, nil
	}

	// The text click is not verified against the page afterwards.
	if text, ok := selector.InlineText(raw); ok {
		if env.Page.ClickText(ctx, text) == nil {
			env.logf("clicked %q by text after selector %s failed", text, sel)
			return Next, nil
		}
	}
	if t, ok := env.jumpTarget(a.SkipTo); ok {
		env.jumped(t, fmt.Sprintf("click %s failed: %v", sel, err))
		return JumpTo(t), nil
	}
	return Next, fmt.Errorf("click %s: %w", sel, err)
}

type ClickText struct {
	Text Text `json:"text"`
}

func (a *ClickText) Execute(ctx context.Context, env *Env) (Flow, error) {
	if err := env.Page.ClickText(ctx, a.Text.String()); err != nil {
		return Next, fmt.Errorf("click text %q: %w", a.Text, err)
	}
	return Next, nil
}

// ClickTextCheckbox clicks the checkbox labelled with Text.
type ClickTextCheckbox struct {
	Text Text `json:"text"`
}

func (a *ClickTextCheckbox) Execute(ctx context.Context, env *Env) (Flow, error) {
	if err := env.Page.ClickTextCheckbox(ctx, a.Text.String()); err != nil {
		return Next, fmt.Errorf("click checkbox %q: %w", a.Text, err)
	}
	return Next, nil
}

type ClickName struct {
	Name Text `json:"name"`
}

func (a *ClickName) Execute(ctx context.Context, env *Env) (Flow, error) {
	return Next, clickAttr(ctx, env, "name", a.Name.String())
}

type ClickAriaLabel struct {
	Label Text `json:"label"`
}

func (a *ClickAriaLabel) Execute(ctx context.Context, env *Env) (Flow, error) {
	return Next, clickAttr(ctx, env, "aria-label", a.Label.String())
}

type ClickDataTestID struct {
	TestID Text `json:"testId"`
}

func (a *ClickDataTestID) Execute(ctx context.Context, env *Env) (Flow, error) {
	return Next, clickAttr(ctx, env, "data-testid", a.TestID.String())
}

func clickAttr(ctx context.Context, env *Env, attr, value string) error {
	sel := attrSelector(attr, value)
	if err := env.Page.Click(ctx, sel); err != nil {
		return fmt.Errorf("click %s: %w", sel, err)
	}
	return nil
}

// ClickNth clicks the Index-th (1-based) match of Selector.
type ClickNth struct {
	Selector Text   `json:"selector"`
	Index    Number `json:"index"`
}

func (a *ClickNth) Execute(ctx context.Context, env *Env) (Flow, error) {
	sel := selector.Resolve(a.Selector.String())
	return Next, clickNth(ctx, env, sel, a.Index.Int(1))
}

type ClickNthName struct {
	Name  Text   `json:"name"`
	Index Number `json:"index"`
}

func (a *ClickNthName) Execute(ctx context.Context, env *Env) (Flow, error) {
	return Next, clickNth(ctx, env, attrSelector("name", a.Name.String()), a.Index.Int(1))
}

func clickNth(ctx context.Context, env *Env, sel string, n int) error {
	if err := env.Page.ClickNth(ctx, sel, n); err != nil {
		return fmt.Errorf("click %s #%d: %w", sel, n, err)
	}
	return nil
}

type MouseClickCoordinates struct {
	X Number `json:"x"`
	Y Number `json:"y"`
}

func (a *MouseClickCoordinates) Execute(ctx context.Context, env *Env) (Flow, error) {
	x, y := a.X.Float(0), a.Y.Float(0)
	if err := env.Page.MouseClick(ctx, x, y); err != nil {
		return Next, fmt.Errorf("mouse click at %v,%v: %w", x, y, err)
	}
	return Next, nil
}

func attrSelector(attr, value string) string {
	return fmt.Sprintf(`[%s="%s"]`, attr, value)
}
