package steps

import (
	"context"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/rahul/puppetry/internal/selector"
)

type SelectAllText struct{}

func (a *SelectAllText) Execute(ctx context.Context, env *Env) (Flow, error) {
	if err := env.Page.SelectAll(ctx); err != nil {
		return Next, fmt.Errorf("select all: %w", err)
	}
	return Next, nil
}

type KeyPress struct {
	Key Text `json:"key"`
}

func (a *KeyPress) Execute(ctx context.Context, env *Env) (Flow, error) {
	key := NormalizeKey(a.Key.String())
	if err := env.Page.PressKey(ctx, key); err != nil {
		return Next, fmt.Errorf("press %s: %w", key, err)
	}
	return Next, nil
}

type TabNTimes struct {
	Times Number `json:"times"`
}

func (a *TabNTimes) Execute(ctx context.Context, env *Env) (Flow, error) {
	n := a.Times.Int(1)
	for i := 0; i < n; i++ {
		if err := env.Page.PressKey(ctx, "Tab"); err != nil {
			return Next, fmt.Errorf("press Tab (%d/%d): %w", i+1, n, err)
		}
		if err := env.in.pause(ctx, env.in.TabPause); err != nil {
			return Next, err
		}
	}
	return Next, nil
}

// Type enters Text one character at a time. When Text is empty the
// Selector value is typed into the focused element instead.
type Type struct {
	Text     Text `json:"text"`
	Selector Text `json:"selector"`
}

func (a *Type) Execute(ctx context.Context, env *Env) (Flow, error) {
	text, sel := a.Text.String(), a.Selector.String()
	if text == "" {
		text, sel = sel, ""
	}
	return Next, typeSlowly(ctx, env, sel, text)
}

// TypeVar types the value of the variable Name.
type TypeVar struct {
	Name     Text `json:"name"`
	Selector Text `json:"selector"`
}

func (a *TypeVar) Execute(ctx context.Context, env *Env) (Flow, error) {
	return Next, typeSlowly(ctx, env, a.Selector.String(), env.Vars.Get(a.Name.String()))
}

func typeSlowly(ctx context.Context, env *Env, rawSelector, text string) error {
	target := ""
	if rawSelector != "" {
		target = selector.Resolve(rawSelector)
	}
	for _, ch := range text {
		if err := env.Page.Type(ctx, target, string(ch)); err != nil {
			return fmt.Errorf("type into %q: %w", target, err)
		}
		env.logf("Typed letter: %c", ch)
		if err := env.in.pause(ctx, env.in.TypeDelay); err != nil {
			return err
		}
	}
	return nil
}

type SetVariable struct {
	Name  Text `json:"name"`
	Value Text `json:"value"`
}

func (a *SetVariable) Execute(ctx context.Context, env *Env) (Flow, error) {
	if a.Name == "" {
		return Next, nil
	}
	env.Vars.Set(a.Name.String(), a.Value.String())
	return Next, nil
}

var descriptionPolicy = bluemonday.UGCPolicy()

// SetDescription writes the listing description HTML into an editor field.
// The "description" variable wins over the configured default.
type SetDescription struct {
	Selector Text `json:"selector"`
}

func (a *SetDescription) Execute(ctx context.Context, env *Env) (Flow, error) {
	html := env.Vars.Get("description")
	if strings.TrimSpace(html) == "" {
		html = env.Description
	}
	html = descriptionPolicy.Sanitize(html)
	sel := selector.Resolve(a.Selector.String())
	if err := env.Page.SetValue(ctx, sel, html); err != nil {
		return Next, fmt.Errorf("set description on %s: %w", sel, err)
	}
	return Next, nil
}
